// Package peaklist reads a single centroided spectrum from a plain
// two-column "m/z intensity" peak list
package peaklist

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/ChrisMcGann/peakseg/pkg/core"
)

// Reader parses peak lists line by line
type Reader struct {
	scanner *bufio.Scanner
	lineNum int
}

// NewReader creates a new peak list reader
func NewReader(r io.Reader) *Reader {
	return &Reader{
		scanner: bufio.NewScanner(r),
	}
}

// Read parses a peak list into a spectrum with the given name. Peaks are
// sorted by m/z and the result is validated.
func Read(r io.Reader, name string) (*core.Spectrum, error) {
	return NewReader(r).Read(name)
}

// Read consumes the whole input
func (r *Reader) Read(name string) (*core.Spectrum, error) {
	spec := &core.Spectrum{
		Name:  name,
		Peaks: []core.Peak{},
	}

	for r.scanner.Scan() {
		r.lineNum++
		line := strings.TrimSpace(r.scanner.Text())

		// Skip blank lines and comments
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		peak, err := parsePeak(line)
		if err != nil {
			// A non-numeric first data line is a column header
			if len(spec.Peaks) == 0 && !startsNumeric(line) {
				continue
			}
			return nil, fmt.Errorf("line %d: %w", r.lineNum, err)
		}
		spec.Peaks = append(spec.Peaks, peak)
	}

	if err := r.scanner.Err(); err != nil {
		return nil, fmt.Errorf("error reading peak list: %w", err)
	}

	spec.SortPeaks()
	if err := spec.Validate(); err != nil {
		return nil, err
	}
	return spec, nil
}

// parsePeak parses "mz intensity" separated by whitespace, comma or tab
func parsePeak(line string) (core.Peak, error) {
	fields := strings.FieldsFunc(line, func(c rune) bool {
		return c == ',' || c == ';' || c == ' ' || c == '\t'
	})
	if len(fields) < 2 {
		return core.Peak{}, fmt.Errorf("expected 2 fields (mz intensity), got %d", len(fields))
	}

	mz, err := strconv.ParseFloat(fields[0], 64)
	if err != nil {
		return core.Peak{}, fmt.Errorf("invalid m/z value '%s': %w", fields[0], err)
	}
	intensity, err := strconv.ParseFloat(fields[1], 64)
	if err != nil {
		return core.Peak{}, fmt.Errorf("invalid intensity value '%s': %w", fields[1], err)
	}

	return core.Peak{MZ: mz, Intensity: intensity}, nil
}

func startsNumeric(line string) bool {
	c := line[0]
	return (c >= '0' && c <= '9') || c == '.' || c == '-' || c == '+'
}
