package core

import (
	"math"
	"testing"
)

func TestCombineSpans(t *testing.T) {
	a := PeakSpan(0, 3)
	b := PeakSpan(1, 7)

	got := CombineSpans(a, b)
	if got.Sum != 10 || got.Max != 7 || got.MaxIndex != 1 || got.Size != 2 {
		t.Errorf("CombineSpans() = %+v", got)
	}

	tie := CombineSpans(PeakSpan(4, 7), PeakSpan(5, 7))
	if tie.MaxIndex != 4 {
		t.Errorf("tie went to index %d, want 4", tie.MaxIndex)
	}

	if got := CombineSpans(EmptySpan(), a); got != a {
		t.Errorf("EmptySpan is not a left identity: %+v", got)
	}
	if got := CombineSpans(a, EmptySpan()); got != a {
		t.Errorf("EmptySpan is not a right identity: %+v", got)
	}
}

func TestApplyBaseline(t *testing.T) {
	span := CombineSpans(PeakSpan(0, 10), PeakSpan(1, 4))

	got := ApplyBaseline(span, Baseline{Amount: 3})
	if got.Sum != 8 || got.Max != 7 || got.MaxIndex != 0 || got.Size != 2 {
		t.Errorf("ApplyBaseline() = %+v", got)
	}

	// Applying twice equals applying the composition once.
	twice := ApplyBaseline(ApplyBaseline(span, Baseline{Amount: 1}), Baseline{Amount: 2})
	once := ApplyBaseline(span, ComposeBaselines(Baseline{Amount: 1}, Baseline{Amount: 2}))
	if twice != once {
		t.Errorf("composition mismatch: %+v vs %+v", twice, once)
	}

	if got := ApplyBaseline(EmptySpan(), Baseline{Amount: 5}); got.Size != 0 || !math.IsInf(got.Max, -1) {
		t.Errorf("baseline changed an empty span: %+v", got)
	}
	if got := ApplyBaseline(span, Baseline{}); got != span {
		t.Errorf("identity baseline changed the span: %+v", got)
	}
}

func TestHigherApex(t *testing.T) {
	tests := []struct {
		name string
		a, b Apex
		want Apex
	}{
		{"identity left", NoApex(), Apex{Index: 2, Intensity: 5}, Apex{Index: 2, Intensity: 5}},
		{"identity right", Apex{Index: 2, Intensity: 5}, NoApex(), Apex{Index: 2, Intensity: 5}},
		{"higher wins", Apex{Index: 0, Intensity: 1}, Apex{Index: 3, Intensity: 9}, Apex{Index: 3, Intensity: 9}},
		{"tie goes low", Apex{Index: 4, Intensity: 9}, Apex{Index: 1, Intensity: 9}, Apex{Index: 1, Intensity: 9}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := HigherApex(tt.a, tt.b); got != tt.want {
				t.Errorf("HigherApex() = %+v, want %+v", got, tt.want)
			}
		})
	}
}
