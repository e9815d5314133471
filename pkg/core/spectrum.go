// Package core provides the intermediate representation (IR) models, the
// intensity monoids, and validation logic for spectra handled by PeakSeg.
package core

import (
	"fmt"
	"math"
	"sort"
	"strings"
)

// Spectrum represents a single centroided mass spectrum.
type Spectrum struct {
	// Required fields
	Name  string // Unique key in the store
	Peaks []Peak // Centroided peaks, sorted by m/z

	// Optional metadata
	PrecursorMZ   float64  // 0 if unknown
	RetentionTime *float64 // RT in minutes

	// Internal tracking
	SourceFile string
}

// Peak represents a single m/z, intensity pair.
type Peak struct {
	MZ        float64
	Intensity float64
}

// ValidationError represents an error found during spectrum validation.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation error in %s: %s", e.Field, e.Message)
}

// Validate checks that a spectrum meets all requirements for processing.
func (s *Spectrum) Validate() error {
	var errs []string

	if strings.TrimSpace(s.Name) == "" {
		errs = append(errs, "name is required")
	}
	if len(s.Peaks) == 0 {
		errs = append(errs, "at least one peak is required")
	}
	if s.PrecursorMZ < 0 || math.IsNaN(s.PrecursorMZ) || math.IsInf(s.PrecursorMZ, 0) {
		errs = append(errs, "precursor m/z must be a non-negative number")
	}

	for i, peak := range s.Peaks {
		if math.IsNaN(peak.MZ) || math.IsInf(peak.MZ, 0) {
			errs = append(errs, fmt.Sprintf("peak %d has invalid m/z", i))
		} else if peak.MZ <= 0 {
			errs = append(errs, fmt.Sprintf("peak %d m/z must be positive", i))
		}
		if math.IsNaN(peak.Intensity) || math.IsInf(peak.Intensity, 0) {
			errs = append(errs, fmt.Sprintf("peak %d has invalid intensity", i))
		} else if peak.Intensity < 0 {
			errs = append(errs, fmt.Sprintf("peak %d intensity must be non-negative", i))
		}
	}

	if !s.ArePeaksSorted() {
		errs = append(errs, "peaks must be sorted by m/z")
	}

	if len(errs) > 0 {
		return &ValidationError{
			Field:   "Spectrum",
			Message: strings.Join(errs, "; "),
		}
	}

	return nil
}

// ArePeaksSorted checks if peaks are sorted by m/z in ascending order.
func (s *Spectrum) ArePeaksSorted() bool {
	for i := 1; i < len(s.Peaks); i++ {
		if s.Peaks[i].MZ < s.Peaks[i-1].MZ {
			return false
		}
	}
	return true
}

// SortPeaks sorts peaks by m/z in ascending order.
func (s *Spectrum) SortPeaks() {
	sort.SliceStable(s.Peaks, func(i, j int) bool {
		return s.Peaks[i].MZ < s.Peaks[j].MZ
	})
}

// TotalIntensity returns the sum of all peak intensities.
func (s *Spectrum) TotalIntensity() float64 {
	total := 0.0
	for _, peak := range s.Peaks {
		total += peak.Intensity
	}
	return total
}

// MZs returns the peak m/z values in order.
func (s *Spectrum) MZs() []float64 {
	out := make([]float64, len(s.Peaks))
	for i, peak := range s.Peaks {
		out[i] = peak.MZ
	}
	return out
}

// Intensities returns the peak intensities in order.
func (s *Spectrum) Intensities() []float64 {
	out := make([]float64, len(s.Peaks))
	for i, peak := range s.Peaks {
		out[i] = peak.Intensity
	}
	return out
}

// Clone returns a deep copy of the spectrum.
func (s *Spectrum) Clone() *Spectrum {
	c := *s
	c.Peaks = append([]Peak(nil), s.Peaks...)
	if s.RetentionTime != nil {
		rt := *s.RetentionTime
		c.RetentionTime = &rt
	}
	return &c
}
