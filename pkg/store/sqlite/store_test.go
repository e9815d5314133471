package sqlite

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ChrisMcGann/peakseg/pkg/core"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	s.now = func() time.Time { return time.Date(2026, 10, 19, 12, 0, 0, 0, time.UTC) }
	t.Cleanup(func() { s.Close() })
	return s
}

func sampleSpectrum(name string) *core.Spectrum {
	rt := 12.5
	return &core.Spectrum{
		Name:          name,
		PrecursorMZ:   445.12,
		RetentionTime: &rt,
		SourceFile:    "sample.txt",
		Peaks: []core.Peak{
			{MZ: 101.5, Intensity: 10},
			{MZ: 202.25, Intensity: 0.125},
			{MZ: 303.0, Intensity: 7},
		},
	}
}

func TestSaveAndLoad(t *testing.T) {
	s := openTestStore(t)

	orig := sampleSpectrum("alpha")
	require.NoError(t, s.SaveSpectrum(orig))

	got, err := s.LoadSpectrum("alpha")
	require.NoError(t, err)
	assert.Equal(t, orig.Name, got.Name)
	assert.Equal(t, orig.PrecursorMZ, got.PrecursorMZ)
	assert.Equal(t, orig.SourceFile, got.SourceFile)
	require.NotNil(t, got.RetentionTime)
	assert.Equal(t, 12.5, *got.RetentionTime)
	assert.Equal(t, orig.Peaks, got.Peaks)
}

func TestSaveReplaces(t *testing.T) {
	s := openTestStore(t)

	require.NoError(t, s.SaveSpectrum(sampleSpectrum("alpha")))

	updated := sampleSpectrum("alpha")
	updated.RetentionTime = nil
	updated.Peaks = updated.Peaks[:1]
	require.NoError(t, s.SaveSpectrum(updated))

	got, err := s.LoadSpectrum("alpha")
	require.NoError(t, err)
	assert.Nil(t, got.RetentionTime)
	assert.Len(t, got.Peaks, 1)

	entries, err := s.ListSpectra()
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, 1, entries[0].NumPeaks)
	assert.Equal(t, "2026-10-19 12:00:00", entries[0].ModifiedDate)
}

func TestSaveSortsAndValidates(t *testing.T) {
	s := openTestStore(t)

	spec := sampleSpectrum("unsorted")
	spec.Peaks[0], spec.Peaks[2] = spec.Peaks[2], spec.Peaks[0]
	require.NoError(t, s.SaveSpectrum(spec))

	got, err := s.LoadSpectrum("unsorted")
	require.NoError(t, err)
	assert.True(t, got.ArePeaksSorted())

	var verr *core.ValidationError
	assert.ErrorAs(t, s.SaveSpectrum(&core.Spectrum{Name: "empty"}), &verr)
}

func TestLoadMissing(t *testing.T) {
	s := openTestStore(t)

	_, err := s.LoadSpectrum("nope")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, s.DeleteSpectrum("nope"), ErrNotFound)
}

func TestListAndDelete(t *testing.T) {
	s := openTestStore(t)

	for _, name := range []string{"gamma", "alpha", "beta"} {
		require.NoError(t, s.SaveSpectrum(sampleSpectrum(name)))
	}
	require.NoError(t, s.LogOperation("beta", "baseline", "amount=1"))

	entries, err := s.ListSpectra()
	require.NoError(t, err)
	require.Len(t, entries, 3)
	assert.Equal(t, "alpha", entries[0].Name)
	assert.Equal(t, "gamma", entries[2].Name)
	assert.Equal(t, 3, entries[1].NumPeaks)
	assert.Equal(t, 445.12, entries[1].PrecursorMZ)

	require.NoError(t, s.DeleteSpectrum("beta"))
	entries, err = s.ListSpectra()
	require.NoError(t, err)
	assert.Len(t, entries, 2)

	ops, err := s.Operations("beta")
	require.NoError(t, err)
	assert.Empty(t, ops)
}

func TestOperations(t *testing.T) {
	s := openTestStore(t)

	require.NoError(t, s.LogOperation("alpha", "import", "in=a.txt"))
	require.NoError(t, s.LogOperation("alpha", "baseline", "amount=2 range=[0,3)"))
	require.NoError(t, s.LogOperation("other", "import", ""))

	ops, err := s.Operations("alpha")
	require.NoError(t, err)
	require.Len(t, ops, 2)
	assert.Equal(t, "import", ops[0].Operation)
	assert.Equal(t, "amount=2 range=[0,3)", ops[1].Detail)
	assert.Equal(t, "2026-10-19 12:00:00", ops[1].CreationDate)
}

func TestReopenKeepsData(t *testing.T) {
	path := filepath.Join(t.TempDir(), "reopen.db")

	s, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, s.SaveSpectrum(sampleSpectrum("alpha")))
	require.NoError(t, s.Close())

	s, err = Open(path)
	require.NoError(t, err)
	defer s.Close()

	var headers int
	require.NoError(t, s.db.QueryRow(`SELECT COUNT(*) FROM HeaderTable`).Scan(&headers))
	assert.Equal(t, 1, headers)

	got, err := s.LoadSpectrum("alpha")
	require.NoError(t, err)
	assert.Len(t, got.Peaks, 3)
}

func TestFloatBlobs(t *testing.T) {
	values := []float64{0, -1.5, 1e-300, 123456.789}
	got, err := decodeFloat64s(encodeFloat64s(values))
	require.NoError(t, err)
	assert.Equal(t, values, got)

	_, err = decodeFloat64s([]byte{1, 2, 3})
	assert.Error(t, err)
}
