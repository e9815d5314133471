// Package sqlite provides SQLite persistence for spectra and the operations
// applied to them
package sqlite

import (
	"database/sql"
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/ChrisMcGann/peakseg/pkg/core"
)

const (
	// Date format for ModifiedDate and OperationTable (ISO 8601 with time)
	timestampFormat = "2006-01-02 15:04:05"
	// Date format for HeaderTable
	headerDateFormat = "2006-01-02"
	// Schema version written to HeaderTable
	schemaVersion = 1
)

// ErrNotFound is returned when a named spectrum is not in the store
var ErrNotFound = errors.New("spectrum not found")

// Entry summarizes one stored spectrum
type Entry struct {
	Name         string
	NumPeaks     int
	PrecursorMZ  float64
	SourceFile   string
	ModifiedDate string
}

// Operation is one logged change to a stored spectrum
type Operation struct {
	SpectrumName string
	Operation    string
	Detail       string
	CreationDate string
}

// Store handles reading and writing spectra in a SQLite database file
type Store struct {
	db            *sql.DB
	path          string
	upsertStmt    *sql.Stmt
	operationStmt *sql.Stmt
	now           func() time.Time
}

// Open opens or creates a store at path
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	s := &Store{
		db:   db,
		path: path,
		now:  time.Now,
	}

	if err := s.createTables(); err != nil {
		db.Close()
		return nil, err
	}

	if err := s.writeHeader(); err != nil {
		db.Close()
		return nil, err
	}

	if err := s.prepareStatements(); err != nil {
		db.Close()
		return nil, err
	}

	return s, nil
}

// Path returns the database file path
func (s *Store) Path() string {
	return s.path
}

// createTables creates the required database schema
func (s *Store) createTables() error {
	schema := `
	CREATE TABLE IF NOT EXISTS SpectrumTable (
		SpectrumId INTEGER PRIMARY KEY,
		Name TEXT NOT NULL UNIQUE,
		PrecursorMass DOUBLE,
		RetentionTime DOUBLE,
		SourceFile TEXT,
		NumPeaks INTEGER,
		blobMass BLOB,
		blobIntensity BLOB,
		ModifiedDate TEXT
	);

	CREATE TABLE IF NOT EXISTS OperationTable (
		OperationId INTEGER PRIMARY KEY,
		SpectrumName TEXT NOT NULL,
		Operation TEXT NOT NULL,
		Detail TEXT,
		CreationDate TEXT
	);

	CREATE TABLE IF NOT EXISTS HeaderTable (
		version INTEGER NOT NULL DEFAULT 0,
		CreationDate TEXT,
		Description TEXT
	);
	`

	_, err := s.db.Exec(schema)
	if err != nil {
		return fmt.Errorf("failed to create tables: %w", err)
	}

	return nil
}

// writeHeader inserts the header row once per database
func (s *Store) writeHeader() error {
	var count int
	if err := s.db.QueryRow(`SELECT COUNT(*) FROM HeaderTable`).Scan(&count); err != nil {
		return fmt.Errorf("failed to read header: %w", err)
	}
	if count > 0 {
		return nil
	}

	_, err := s.db.Exec(`
		INSERT INTO HeaderTable (version, CreationDate, Description)
		VALUES (?, ?, ?)
	`, schemaVersion, s.now().Format(headerDateFormat), "PeakSeg spectrum store")
	if err != nil {
		return fmt.Errorf("failed to insert header: %w", err)
	}
	return nil
}

// prepareStatements prepares SQL statements for repeated writes
func (s *Store) prepareStatements() error {
	var err error

	s.upsertStmt, err = s.db.Prepare(`
		INSERT INTO SpectrumTable (
			Name, PrecursorMass, RetentionTime, SourceFile, NumPeaks,
			blobMass, blobIntensity, ModifiedDate
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(Name) DO UPDATE SET
			PrecursorMass = excluded.PrecursorMass,
			RetentionTime = excluded.RetentionTime,
			SourceFile = excluded.SourceFile,
			NumPeaks = excluded.NumPeaks,
			blobMass = excluded.blobMass,
			blobIntensity = excluded.blobIntensity,
			ModifiedDate = excluded.ModifiedDate
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare spectrum statement: %w", err)
	}

	s.operationStmt, err = s.db.Prepare(`
		INSERT INTO OperationTable (SpectrumName, Operation, Detail, CreationDate)
		VALUES (?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare operation statement: %w", err)
	}

	return nil
}

// SaveSpectrum writes a spectrum, replacing any stored spectrum with the same name
func (s *Store) SaveSpectrum(spec *core.Spectrum) error {
	// Ensure peaks are sorted
	if !spec.ArePeaksSorted() {
		spec.SortPeaks()
	}

	if err := spec.Validate(); err != nil {
		return err
	}

	// Handle optional retention time
	var rt interface{} = nil
	if spec.RetentionTime != nil {
		rt = *spec.RetentionTime
	}

	_, err := s.upsertStmt.Exec(
		spec.Name,                          // Name
		spec.PrecursorMZ,                   // PrecursorMass
		rt,                                 // RetentionTime
		spec.SourceFile,                    // SourceFile
		len(spec.Peaks),                    // NumPeaks
		encodeFloat64s(spec.MZs()),         // blobMass
		encodeFloat64s(spec.Intensities()), // blobIntensity
		s.now().Format(timestampFormat),    // ModifiedDate
	)
	if err != nil {
		return fmt.Errorf("failed to save spectrum %s: %w", spec.Name, err)
	}

	return nil
}

// LoadSpectrum reads the spectrum stored under name
func (s *Store) LoadSpectrum(name string) (*core.Spectrum, error) {
	var (
		precursor  float64
		rt         sql.NullFloat64
		sourceFile sql.NullString
		mzBlob     []byte
		intBlob    []byte
	)

	err := s.db.QueryRow(`
		SELECT PrecursorMass, RetentionTime, SourceFile, blobMass, blobIntensity
		FROM SpectrumTable WHERE Name = ?
	`, name).Scan(&precursor, &rt, &sourceFile, &mzBlob, &intBlob)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load spectrum %s: %w", name, err)
	}

	mzs, err := decodeFloat64s(mzBlob)
	if err != nil {
		return nil, fmt.Errorf("spectrum %s blobMass: %w", name, err)
	}
	intensities, err := decodeFloat64s(intBlob)
	if err != nil {
		return nil, fmt.Errorf("spectrum %s blobIntensity: %w", name, err)
	}
	if len(mzs) != len(intensities) {
		return nil, fmt.Errorf("spectrum %s has %d m/z values but %d intensities", name, len(mzs), len(intensities))
	}

	spec := &core.Spectrum{
		Name:        name,
		PrecursorMZ: precursor,
		SourceFile:  sourceFile.String,
		Peaks:       make([]core.Peak, len(mzs)),
	}
	if rt.Valid {
		v := rt.Float64
		spec.RetentionTime = &v
	}
	for i := range mzs {
		spec.Peaks[i] = core.Peak{MZ: mzs[i], Intensity: intensities[i]}
	}

	return spec, nil
}

// ListSpectra returns every stored spectrum ordered by name
func (s *Store) ListSpectra() ([]Entry, error) {
	rows, err := s.db.Query(`
		SELECT Name, NumPeaks, PrecursorMass, SourceFile, ModifiedDate
		FROM SpectrumTable ORDER BY Name
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to list spectra: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var (
			e          Entry
			sourceFile sql.NullString
			modified   sql.NullString
		)
		if err := rows.Scan(&e.Name, &e.NumPeaks, &e.PrecursorMZ, &sourceFile, &modified); err != nil {
			return nil, fmt.Errorf("failed to scan spectrum row: %w", err)
		}
		e.SourceFile = sourceFile.String
		e.ModifiedDate = modified.String
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list spectra: %w", err)
	}

	return entries, nil
}

// DeleteSpectrum removes a spectrum and its operation log
func (s *Store) DeleteSpectrum(name string) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.Exec(`DELETE FROM SpectrumTable WHERE Name = ?`, name)
	if err != nil {
		return fmt.Errorf("failed to delete spectrum %s: %w", name, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	if _, err := tx.Exec(`DELETE FROM OperationTable WHERE SpectrumName = ?`, name); err != nil {
		return fmt.Errorf("failed to delete operations for %s: %w", name, err)
	}

	return tx.Commit()
}

// LogOperation records a change applied to a stored spectrum
func (s *Store) LogOperation(name, operation, detail string) error {
	_, err := s.operationStmt.Exec(name, operation, detail, s.now().Format(timestampFormat))
	if err != nil {
		return fmt.Errorf("failed to log operation: %w", err)
	}
	return nil
}

// Operations returns the logged operations for a spectrum in insertion order
func (s *Store) Operations(name string) ([]Operation, error) {
	rows, err := s.db.Query(`
		SELECT SpectrumName, Operation, Detail, CreationDate
		FROM OperationTable WHERE SpectrumName = ? ORDER BY OperationId
	`, name)
	if err != nil {
		return nil, fmt.Errorf("failed to read operations: %w", err)
	}
	defer rows.Close()

	var ops []Operation
	for rows.Next() {
		var (
			op     Operation
			detail sql.NullString
			date   sql.NullString
		)
		if err := rows.Scan(&op.SpectrumName, &op.Operation, &detail, &date); err != nil {
			return nil, fmt.Errorf("failed to scan operation row: %w", err)
		}
		op.Detail = detail.String
		op.CreationDate = date.String
		ops = append(ops, op)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read operations: %w", err)
	}

	return ops, nil
}

// encodeFloat64s encodes values as a little-endian float64 blob
func encodeFloat64s(values []float64) []byte {
	buf := make([]byte, len(values)*8)
	for i, value := range values {
		binary.LittleEndian.PutUint64(buf[i*8:], math.Float64bits(value))
	}
	return buf
}

// decodeFloat64s decodes a little-endian float64 blob
func decodeFloat64s(buf []byte) ([]float64, error) {
	if len(buf)%8 != 0 {
		return nil, fmt.Errorf("blob length %d is not a multiple of 8", len(buf))
	}
	values := make([]float64, len(buf)/8)
	for i := range values {
		values[i] = math.Float64frombits(binary.LittleEndian.Uint64(buf[i*8:]))
	}
	return values, nil
}

// Close closes prepared statements and the database connection
func (s *Store) Close() error {
	if s.upsertStmt != nil {
		s.upsertStmt.Close()
	}
	if s.operationStmt != nil {
		s.operationStmt.Close()
	}

	if err := s.db.Close(); err != nil {
		return fmt.Errorf("failed to close database: %w", err)
	}

	return nil
}
