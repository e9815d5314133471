// Package filter provides peak filtering and baseline correction functions
package filter

import (
	"fmt"

	"github.com/ChrisMcGann/peakseg/pkg/core"
	"github.com/ChrisMcGann/peakseg/pkg/profile"
	"github.com/ChrisMcGann/peakseg/pkg/segtree"
)

// Config holds filtering configuration
type Config struct {
	Baseline        float64 // Subtract from every peak, clamping at zero (0 = none)
	IntensityCutoff float64 // Keep only peaks at or above this % of base peak (0 = no cutoff)
	TopN            int     // Keep only top N most intense peaks (0 = no limit)
}

// Validate checks the configuration values
func (c *Config) Validate() error {
	if c.Baseline < 0 {
		return fmt.Errorf("baseline must be non-negative, got %g", c.Baseline)
	}
	if c.IntensityCutoff < 0 || c.IntensityCutoff > 100 {
		return fmt.Errorf("intensity cutoff must be between 0 and 100, got %g", c.IntensityCutoff)
	}
	if c.TopN < 0 {
		return fmt.Errorf("top-n must be non-negative, got %d", c.TopN)
	}
	return nil
}

// Apply applies all configured filters to a spectrum
func (c *Config) Apply(spec *core.Spectrum) error {
	if err := c.Validate(); err != nil {
		return err
	}
	if len(spec.Peaks) == 0 {
		return nil
	}
	spec.SortPeaks()

	// Baseline first so the cutoff sees corrected intensities
	if c.Baseline > 0 {
		if err := c.subtractBaseline(spec); err != nil {
			return err
		}
	}

	if c.IntensityCutoff > 0 || c.TopN > 0 {
		if err := c.selectPeaks(spec); err != nil {
			return err
		}
	}

	RemoveZeroIntensityPeaks(spec)

	// Ensure peaks are sorted after all filtering
	spec.SortPeaks()

	return nil
}

// subtractBaseline lowers every peak by the configured baseline
func (c *Config) subtractBaseline(spec *core.Spectrum) error {
	prof, err := profile.New(spec)
	if err != nil {
		return fmt.Errorf("failed to index spectrum %s: %w", spec.Name, err)
	}
	if err := prof.SubtractBaseline(0, prof.Len(), c.Baseline); err != nil {
		return err
	}
	if _, err := prof.ClampNegative(); err != nil {
		return err
	}

	corrected, err := prof.Spectrum()
	if err != nil {
		return err
	}
	spec.Peaks = corrected.Peaks
	return nil
}

// selectPeaks applies the intensity cutoff and the top-N filter using an
// argmax segment tree over the peaks
func (c *Config) selectPeaks(spec *core.Spectrum) error {
	apexes, err := segtree.New(len(spec.Peaks), core.HigherApex, core.NoApex())
	if err != nil {
		return err
	}
	leaves := make([]core.Apex, len(spec.Peaks))
	for i, peak := range spec.Peaks {
		leaves[i] = core.Apex{Index: i, Intensity: peak.Intensity}
	}
	if err := apexes.Build(leaves); err != nil {
		return err
	}

	keep := make([]bool, len(spec.Peaks))
	for i := range keep {
		keep[i] = true
	}

	if c.IntensityCutoff > 0 {
		base, err := apexes.All()
		if err != nil {
			return err
		}
		threshold := (c.IntensityCutoff / 100.0) * base.Intensity

		err = apexes.Batch(func() error {
			for i, peak := range spec.Peaks {
				if peak.Intensity < threshold {
					keep[i] = false
					if err := apexes.Set(i, core.NoApex()); err != nil {
						return err
					}
				}
			}
			return nil
		})
		if err != nil {
			return fmt.Errorf("failed to apply intensity cutoff: %w", err)
		}
	}

	if c.TopN > 0 {
		top := make([]bool, len(spec.Peaks))
		for n := 0; n < c.TopN; n++ {
			apex, err := apexes.All()
			if err != nil {
				return err
			}
			if apex.Index < 0 {
				break
			}
			top[apex.Index] = true
			if err := apexes.Set(apex.Index, core.NoApex()); err != nil {
				return err
			}
		}
		keep = top
	}

	var filtered []core.Peak
	for i, peak := range spec.Peaks {
		if keep[i] {
			filtered = append(filtered, peak)
		}
	}
	spec.Peaks = filtered
	return nil
}

// RemoveZeroIntensityPeaks removes peaks with zero or negative intensity
func RemoveZeroIntensityPeaks(spec *core.Spectrum) {
	var filtered []core.Peak
	for _, peak := range spec.Peaks {
		if peak.Intensity > 0 {
			filtered = append(filtered, peak)
		}
	}
	spec.Peaks = filtered
}
