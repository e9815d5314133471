package profile

import (
	"math"
	"math/rand"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/floats"

	"github.com/ChrisMcGann/peakseg/pkg/core"
	"github.com/ChrisMcGann/peakseg/pkg/segtree"
)

// testSpectrum has peaks at m/z 100, 110, ..., 190 with intensities 0..9.
func testSpectrum() *core.Spectrum {
	spec := &core.Spectrum{Name: "ramp", PrecursorMZ: 250}
	for i := 0; i < 10; i++ {
		spec.Peaks = append(spec.Peaks, core.Peak{MZ: 100 + 10*float64(i), Intensity: float64(i)})
	}
	return spec
}

func newTestProfile(t *testing.T) *Profile {
	t.Helper()
	p, err := New(testSpectrum())
	require.NoError(t, err)
	return p
}

func TestNewRejectsInvalidSpectrum(t *testing.T) {
	_, err := New(&core.Spectrum{Name: "empty"})
	var verr *core.ValidationError
	assert.ErrorAs(t, err, &verr)
}

func TestIntensityQueries(t *testing.T) {
	p := newTestProfile(t)

	span, err := p.Intensity(0, 5)
	require.NoError(t, err)
	assert.Equal(t, 10.0, span.Sum)
	assert.Equal(t, 4.0, span.Max)
	assert.Equal(t, 5, span.Size)

	span, err = p.Intensity(1, 8)
	require.NoError(t, err)
	assert.Equal(t, 28.0, span.Sum)

	total, err := p.Total()
	require.NoError(t, err)
	assert.Equal(t, 45.0, total.Sum)

	_, err = p.Intensity(3, 11)
	assert.ErrorIs(t, err, segtree.ErrInvalidRange)
}

func TestIndexRange(t *testing.T) {
	p := newTestProfile(t)

	tests := []struct {
		name         string
		minMZ, maxMZ float64
		l, r         int
	}{
		{"inclusive bounds", 120, 150, 2, 6},
		{"between peaks", 121, 149, 3, 5},
		{"below all", 0, 50, 0, 0},
		{"above all", 500, 600, 10, 10},
		{"everything", 0, 1000, 0, 10},
		{"inverted", 150, 120, 5, 5},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l, r := p.IndexRange(tt.minMZ, tt.maxMZ)
			assert.Equal(t, tt.l, l)
			assert.Equal(t, tt.r, r)
		})
	}

	span, err := p.WindowIntensity(120, 150)
	require.NoError(t, err)
	assert.Equal(t, 2.0+3+4+5, span.Sum)
}

func TestSubtractBaseline(t *testing.T) {
	p := newTestProfile(t)

	require.NoError(t, p.SubtractBaseline(3, 4, 2))
	total, err := p.Total()
	require.NoError(t, err)
	assert.Equal(t, 43.0, total.Sum)

	require.NoError(t, p.SubtractBaselineWindow(120, 160, 1))
	span, err := p.Intensity(0, 5)
	require.NoError(t, err)
	assert.Equal(t, 5.0, span.Sum)
	span, err = p.Intensity(1, 8)
	require.NoError(t, err)
	assert.Equal(t, 21.0, span.Sum)
	total, err = p.Total()
	require.NoError(t, err)
	assert.Equal(t, 38.0, total.Sum)

	peak, err := p.Peak(3)
	require.NoError(t, err)
	assert.Equal(t, 130.0, peak.MZ)
	assert.Equal(t, 0.0, peak.Intensity)
}

func TestClampNegative(t *testing.T) {
	p := newTestProfile(t)
	require.NoError(t, p.SubtractBaseline(0, 10, 3))

	spec, err := p.Spectrum()
	require.NoError(t, err)
	assert.Equal(t, 0.0, spec.Peaks[0].Intensity, "snapshot clamps")

	n, err := p.ClampNegative()
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	total, err := p.Total()
	require.NoError(t, err)
	assert.Equal(t, 21.0, total.Sum)
}

func TestBasePeak(t *testing.T) {
	p := newTestProfile(t)

	peak, i, err := p.BasePeak()
	require.NoError(t, err)
	assert.Equal(t, 9, i)
	assert.Equal(t, 190.0, peak.MZ)

	require.NoError(t, p.SetIntensity(2, 50))
	require.NoError(t, p.SetIntensity(6, 50))
	peak, i, err = p.BasePeak()
	require.NoError(t, err)
	assert.Equal(t, 2, i, "ties go to the lowest m/z")
	assert.Equal(t, 50.0, peak.Intensity)

	require.NoError(t, p.SubtractBaselineWindow(100, 125, 10))
	_, i, err = p.BasePeak()
	require.NoError(t, err)
	assert.Equal(t, 6, i)
}

func TestBasePeakAfterRepeatedBaselines(t *testing.T) {
	rng := rand.New(rand.NewSource(7))

	for trial := 0; trial < 200; trial++ {
		n := 1 + rng.Intn(12)
		spec := &core.Spectrum{Name: "random"}
		best := 0
		for i := 0; i < n; i++ {
			intensity := 100 + math.Round(rng.Float64()*3000)/3
			spec.Peaks = append(spec.Peaks, core.Peak{MZ: 100 + float64(i), Intensity: intensity})
			if intensity > spec.Peaks[best].Intensity {
				best = i
			}
		}
		p, err := New(spec)
		require.NoError(t, err)

		for k := 0; k < 3; k++ {
			require.NoError(t, p.SubtractBaseline(0, n, math.Round(rng.Float64()*90)/10))
		}

		_, i, err := p.BasePeak()
		require.NoError(t, err)
		require.Equal(t, best, i, "trial %d: %+v", trial, spec.Peaks)
	}
}

func TestCumulativeWholeTotalSkipsZeroPeaks(t *testing.T) {
	spec := &core.Spectrum{Name: "padded", Peaks: []core.Peak{
		{MZ: 100, Intensity: 0},
		{MZ: 110, Intensity: 326.7},
		{MZ: 120, Intensity: 200.2},
		{MZ: 130, Intensity: 300.3},
		{MZ: 140, Intensity: 0},
	}}
	p, err := New(spec)
	require.NoError(t, err)
	require.NoError(t, p.SubtractBaseline(1, 4, 5.7))
	require.NoError(t, p.SubtractBaseline(1, 4, 0.9))

	_, i, err := p.CumulativeMZ(1)
	require.NoError(t, err)
	assert.Equal(t, 3, i)

	_, i, err = p.TrailingMZ(1)
	require.NoError(t, err)
	assert.Equal(t, 1, i)
}

func TestCumulativeMZ(t *testing.T) {
	p := newTestProfile(t)

	// Prefix sums: 0 1 3 6 10 15 21 28 36 45.
	tests := []struct {
		fraction float64
		want     int
	}{
		{0.2, 4},  // 9 reached at 10
		{0.5, 7},  // 22.5 reached at 28
		{0.25, 5}, // 11.25 reached at 15
		{1.0, 9},
	}
	for _, tt := range tests {
		peak, i, err := p.CumulativeMZ(tt.fraction)
		require.NoError(t, err)
		assert.Equal(t, tt.want, i, "fraction %v", tt.fraction)
		assert.Equal(t, 100+10*float64(tt.want), peak.MZ)
	}

	// Suffix sums from the top: 9 17 24 30 35 ...
	peak, i, err := p.TrailingMZ(0.5)
	require.NoError(t, err)
	assert.Equal(t, 7, i)
	assert.Equal(t, 170.0, peak.MZ)

	_, i, err = p.TrailingMZ(1.0)
	require.NoError(t, err)
	assert.Equal(t, 1, i)

	for _, bad := range []float64{0, -0.1, 1.5, math.NaN()} {
		_, _, err := p.CumulativeMZ(bad)
		assert.ErrorIs(t, err, ErrInvalidFraction)
	}
}

func TestCumulativeNeedsIntensity(t *testing.T) {
	p, err := New(&core.Spectrum{Name: "flat", Peaks: []core.Peak{{MZ: 100}, {MZ: 200}}})
	require.NoError(t, err)

	_, _, err = p.CumulativeMZ(0.5)
	assert.ErrorIs(t, err, ErrNoIntensity)
}

func TestSummary(t *testing.T) {
	p := newTestProfile(t)

	s, err := p.Summary()
	require.NoError(t, err)
	assert.Equal(t, "ramp", s.Name)
	assert.Equal(t, 10, s.Peaks)
	assert.Equal(t, 45.0, s.Total)
	assert.Equal(t, 9, s.BaseIndex)
	assert.Equal(t, 100.0, s.MinMZ)
	assert.Equal(t, 190.0, s.MaxMZ)

	spec := testSpectrum()
	weighted := make([]float64, len(spec.Peaks))
	floats.MulTo(weighted, spec.MZs(), spec.Intensities())
	assert.InDelta(t, floats.Sum(weighted)/45.0, s.MeanMZ, 1e-9)
	assert.Greater(t, s.StdDevMZ, 0.0)
}

func TestSpectrumSnapshotIsDetached(t *testing.T) {
	p := newTestProfile(t)

	spec, err := p.Spectrum()
	require.NoError(t, err)
	spec.Peaks[4].Intensity = 1000

	peak, err := p.Peak(4)
	require.NoError(t, err)
	assert.Equal(t, 4.0, peak.Intensity)
	assert.Equal(t, 250.0, spec.PrecursorMZ)
}

func TestConcurrentUse(t *testing.T) {
	p := newTestProfile(t)

	var wg sync.WaitGroup
	for g := 0; g < 8; g++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for k := 0; k < 100; k++ {
				_ = p.SubtractBaseline(0, 10, 0.5)
				_ = p.SubtractBaseline(0, 10, -0.5)
				_, _ = p.Intensity(2, 7)
			}
		}()
	}
	wg.Wait()

	total, err := p.Total()
	require.NoError(t, err)
	assert.InDelta(t, 45.0, total.Sum, 1e-9)
}

func TestSummaryIsConsistentUnderWrites(t *testing.T) {
	p := newTestProfile(t)

	done := make(chan struct{})
	go func() {
		defer close(done)
		for k := 0; k < 500; k++ {
			_ = p.SetIntensity(0, 1000)
			_ = p.SetIntensity(0, 0)
		}
	}()

	for k := 0; k < 500; k++ {
		s, err := p.Summary()
		require.NoError(t, err)
		// Peak 0 is the base peak exactly when its 1000 is in the total.
		assert.Equal(t, s.Total > 500, s.BaseIndex == 0, "total %v base %d", s.Total, s.BaseIndex)
	}
	<-done
}
