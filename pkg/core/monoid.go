package core

import "math"

// IntensitySpan aggregates the intensities of a contiguous run of peaks.
type IntensitySpan struct {
	Sum      float64 // Summed intensity
	Max      float64 // Highest single intensity; -Inf when empty
	MaxIndex int     // Peak index holding Max, lowest on ties; -1 when empty
	Size     int     // Number of peaks covered
}

// EmptySpan returns the identity for CombineSpans.
func EmptySpan() IntensitySpan {
	return IntensitySpan{Max: math.Inf(-1), MaxIndex: -1}
}

// PeakSpan returns the span covering the single peak at index.
func PeakSpan(index int, intensity float64) IntensitySpan {
	return IntensitySpan{Sum: intensity, Max: intensity, MaxIndex: index, Size: 1}
}

// CombineSpans joins two adjacent spans, a on the left.
func CombineSpans(a, b IntensitySpan) IntensitySpan {
	out := IntensitySpan{
		Sum:      a.Sum + b.Sum,
		Max:      a.Max,
		MaxIndex: a.MaxIndex,
		Size:     a.Size + b.Size,
	}
	if b.Size > 0 && (a.Size == 0 || b.Max > a.Max) {
		out.Max, out.MaxIndex = b.Max, b.MaxIndex
	}
	return out
}

// Baseline is a pending subtraction of Amount from every peak in a range.
// The zero value is the identity.
type Baseline struct {
	Amount float64
}

// ComposeBaselines returns the baseline equivalent to subtracting first and
// then second.
func ComposeBaselines(first, second Baseline) Baseline {
	return Baseline{Amount: first.Amount + second.Amount}
}

// ApplyBaseline subtracts b from every peak covered by s. A uniform shift
// leaves the position of the maximum where it was.
func ApplyBaseline(s IntensitySpan, b Baseline) IntensitySpan {
	if s.Size == 0 || b.Amount == 0 {
		return s
	}
	return IntensitySpan{
		Sum:      s.Sum - b.Amount*float64(s.Size),
		Max:      s.Max - b.Amount,
		MaxIndex: s.MaxIndex,
		Size:     s.Size,
	}
}

// Apex is the most intense peak of a range, by index.
type Apex struct {
	Index     int
	Intensity float64
}

// NoApex returns the identity for HigherApex.
func NoApex() Apex {
	return Apex{Index: -1, Intensity: math.Inf(-1)}
}

// HigherApex returns the more intense apex; ties go to the lower index.
func HigherApex(a, b Apex) Apex {
	switch {
	case a.Index < 0:
		return b
	case b.Index < 0:
		return a
	case b.Intensity > a.Intensity:
		return b
	case a.Intensity > b.Intensity:
		return a
	case b.Index < a.Index:
		return b
	default:
		return a
	}
}
