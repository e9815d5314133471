// Package profile provides range queries and baseline updates over the peak
// intensities of a single spectrum.
package profile

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"sync"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/ChrisMcGann/peakseg/pkg/core"
	"github.com/ChrisMcGann/peakseg/pkg/segtree"
)

var (
	// ErrInvalidFraction is returned for cumulative fractions outside (0, 1].
	ErrInvalidFraction = errors.New("profile: fraction must be in (0, 1]")
	// ErrNoIntensity is returned when a search needs a positive total intensity.
	ErrNoIntensity = errors.New("profile: spectrum has no positive intensity")
)

// Profile indexes the peaks of a spectrum by position. Peak i is leaf i of
// a lazy segment tree of intensity spans, so range totals, baseline
// subtraction and cumulative searches are all O(log n).
//
// A Profile is safe for concurrent use.
type Profile struct {
	mu   sync.Mutex
	meta core.Spectrum // everything but the peaks
	mzs  []float64
	tree *segtree.LazySegmentTree[core.IntensitySpan, core.Baseline]
}

// Summary describes a profile at a point in time.
type Summary struct {
	Name      string
	Peaks     int
	Total     float64
	BasePeak  core.Peak
	BaseIndex int
	MinMZ     float64
	MaxMZ     float64
	MeanMZ    float64 // Intensity-weighted
	StdDevMZ  float64 // Intensity-weighted population standard deviation
}

// New builds a profile from a validated copy of spec.
func New(spec *core.Spectrum) (*Profile, error) {
	if err := spec.Validate(); err != nil {
		return nil, err
	}

	tree, err := segtree.NewLazy(
		len(spec.Peaks),
		core.CombineSpans,
		core.ApplyBaseline,
		core.ComposeBaselines,
		core.EmptySpan(),
		core.Baseline{},
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create intensity tree: %w", err)
	}

	spans := make([]core.IntensitySpan, len(spec.Peaks))
	for i, peak := range spec.Peaks {
		spans[i] = core.PeakSpan(i, peak.Intensity)
	}
	if err := tree.Build(spans); err != nil {
		return nil, fmt.Errorf("failed to build intensity tree: %w", err)
	}

	meta := *spec.Clone()
	meta.Peaks = nil
	return &Profile{
		meta: meta,
		mzs:  spec.MZs(),
		tree: tree,
	}, nil
}

// Name returns the spectrum name.
func (p *Profile) Name() string {
	return p.meta.Name
}

// Len returns the number of peaks.
func (p *Profile) Len() int {
	return len(p.mzs)
}

// IndexRange returns the half-open peak index range [l, r) holding every
// peak with minMZ <= m/z <= maxMZ.
func (p *Profile) IndexRange(minMZ, maxMZ float64) (l, r int) {
	l = sort.SearchFloat64s(p.mzs, minMZ)
	r = sort.Search(len(p.mzs), func(i int) bool { return p.mzs[i] > maxMZ })
	if r < l {
		r = l
	}
	return l, r
}

// Intensity returns the intensity span of peaks [l, r).
func (p *Profile) Intensity(l, r int) (core.IntensitySpan, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	return p.tree.Query(l, r)
}

// WindowIntensity returns the intensity span of peaks within [minMZ, maxMZ].
func (p *Profile) WindowIntensity(minMZ, maxMZ float64) (core.IntensitySpan, error) {
	l, r := p.IndexRange(minMZ, maxMZ)
	return p.Intensity(l, r)
}

// Total returns the intensity span of the whole spectrum.
func (p *Profile) Total() (core.IntensitySpan, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	return p.tree.All()
}

// SubtractBaseline subtracts amount from the intensity of peaks [l, r).
// Intensities may go negative; see ClampNegative.
func (p *Profile) SubtractBaseline(l, r int, amount float64) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if err := p.tree.Apply(l, r, core.Baseline{Amount: amount}); err != nil {
		return fmt.Errorf("failed to subtract baseline: %w", err)
	}
	return nil
}

// SubtractBaselineWindow subtracts amount from every peak within [minMZ, maxMZ].
func (p *Profile) SubtractBaselineWindow(minMZ, maxMZ, amount float64) error {
	l, r := p.IndexRange(minMZ, maxMZ)
	return p.SubtractBaseline(l, r, amount)
}

// SetIntensity overwrites the intensity of peak i.
func (p *Profile) SetIntensity(i int, intensity float64) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if err := p.tree.Set(i, core.PeakSpan(i, intensity)); err != nil {
		return fmt.Errorf("failed to set intensity: %w", err)
	}
	return nil
}

// ClampNegative sets every negative intensity to zero and returns how many
// peaks changed.
func (p *Profile) ClampNegative() (int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	total, err := p.tree.All()
	if err != nil {
		return 0, err
	}
	if total.Size == 0 {
		return 0, nil
	}

	spans, err := p.tree.Values()
	if err != nil {
		return 0, err
	}
	clamped := 0
	for i, span := range spans {
		if span.Sum < 0 {
			if err := p.tree.Set(i, core.PeakSpan(i, 0)); err != nil {
				return clamped, err
			}
			clamped++
		}
	}
	return clamped, nil
}

// Peak returns peak i with its current intensity.
func (p *Profile) Peak(i int) (core.Peak, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	return p.peak(i)
}

func (p *Profile) peak(i int) (core.Peak, error) {
	span, err := p.tree.Get(i)
	if err != nil {
		return core.Peak{}, err
	}
	return core.Peak{MZ: p.mzs[i], Intensity: span.Sum}, nil
}

// BasePeak returns the most intense peak and its index. Ties go to the
// lowest m/z.
func (p *Profile) BasePeak() (core.Peak, int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	return p.basePeak()
}

func (p *Profile) basePeak() (core.Peak, int, error) {
	total, err := p.tree.All()
	if err != nil {
		return core.Peak{}, -1, err
	}
	if total.Size == 0 {
		return core.Peak{}, -1, ErrNoIntensity
	}

	i := total.MaxIndex
	peak, err := p.peak(i)
	return peak, i, err
}

// CumulativeMZ returns the first peak, scanning up in m/z, at which the
// running intensity reaches fraction of the total. fraction 0.5 gives the
// intensity-weighted median peak. Intensities must be non-negative.
func (p *Profile) CumulativeMZ(fraction float64) (core.Peak, int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	target, err := p.target(fraction)
	if err != nil {
		return core.Peak{}, -1, err
	}

	// The whole total is reached at the last positive peak. Prefix sums
	// round differently from the root, so locate it by sign instead.
	if fraction == 1 {
		l, err := p.tree.FindLast(len(p.mzs), func(s core.IntensitySpan) bool {
			return s.Max > 0
		})
		if err != nil {
			return core.Peak{}, -1, err
		}
		peak, err := p.peak(l)
		return peak, l, err
	}

	r, err := p.tree.FindFirst(0, func(s core.IntensitySpan) bool {
		return s.Sum >= target
	})
	if err != nil {
		return core.Peak{}, -1, err
	}
	i := min(max(r-1, 0), len(p.mzs)-1)
	peak, err := p.peak(i)
	return peak, i, err
}

// TrailingMZ is CumulativeMZ scanning down from the highest m/z.
func (p *Profile) TrailingMZ(fraction float64) (core.Peak, int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	target, err := p.target(fraction)
	if err != nil {
		return core.Peak{}, -1, err
	}

	if fraction == 1 {
		r, err := p.tree.FindFirst(0, func(s core.IntensitySpan) bool {
			return s.Max > 0
		})
		if err != nil {
			return core.Peak{}, -1, err
		}
		peak, err := p.peak(r - 1)
		return peak, r - 1, err
	}

	l, err := p.tree.FindLast(len(p.mzs), func(s core.IntensitySpan) bool {
		return s.Sum >= target
	})
	if err != nil {
		return core.Peak{}, -1, err
	}
	i := max(l, 0)
	peak, err := p.peak(i)
	return peak, i, err
}

func (p *Profile) target(fraction float64) (float64, error) {
	if math.IsNaN(fraction) || fraction <= 0 || fraction > 1 {
		return 0, ErrInvalidFraction
	}
	total, err := p.tree.All()
	if err != nil {
		return 0, err
	}
	if total.Size == 0 || total.Sum <= 0 {
		return 0, ErrNoIntensity
	}
	return fraction * total.Sum, nil
}

// Spectrum returns a copy of the spectrum with current intensities.
// Negative intensities are reported as zero.
func (p *Profile) Spectrum() (*core.Spectrum, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	return p.spectrum()
}

func (p *Profile) spectrum() (*core.Spectrum, error) {
	spans, err := p.tree.Values()
	if err != nil {
		return nil, err
	}
	spec := p.meta.Clone()
	spec.Peaks = make([]core.Peak, len(spans))
	for i, span := range spans {
		spec.Peaks[i] = core.Peak{MZ: p.mzs[i], Intensity: math.Max(span.Sum, 0)}
	}
	return spec, nil
}

// Summary computes summary statistics over current intensities, with
// negative intensities counted as zero.
func (p *Profile) Summary() (Summary, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	spec, err := p.spectrum()
	if err != nil {
		return Summary{}, err
	}
	base, baseIndex, err := p.basePeak()
	if err != nil {
		return Summary{}, err
	}

	weights := spec.Intensities()
	s := Summary{
		Name:      spec.Name,
		Peaks:     len(spec.Peaks),
		Total:     floats.Sum(weights),
		BasePeak:  base,
		BaseIndex: baseIndex,
		MinMZ:     p.mzs[0],
		MaxMZ:     p.mzs[len(p.mzs)-1],
	}
	if s.Total > 0 {
		s.MeanMZ, s.StdDevMZ = stat.PopMeanStdDev(p.mzs, weights)
	}
	return s, nil
}
