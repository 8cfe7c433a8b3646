// Package sqlite persists a built XML spectrum index so a second process
// opening the same mzXML/mzData file can skip build_index entirely.
// Adapted from the teacher's pkg/writer/sqlite/writer.go: same
// prepared-statement schema-creation/insertion pattern and go-sqlite3
// driver, repurposed from a spectral-library writer into an index-entry
// cache.
package sqlite

import (
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3"

	"github.com/msformats/specio/pkg/xmlcommon"
)

// Store handles reading and writing a cached spectrum index to a SQLite
// database file.
type Store struct {
	db         *sql.DB
	outputPath string
	entryStmt  *sql.Stmt
}

// NewStore opens (creating if necessary) a cache database at outputPath.
func NewStore(outputPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", outputPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open index cache database: %w", err)
	}

	s := &Store{db: db, outputPath: outputPath}

	if err := s.createTables(); err != nil {
		db.Close()
		return nil, err
	}

	if err := s.prepareStatements(); err != nil {
		db.Close()
		return nil, err
	}

	return s, nil
}

func (s *Store) createTables() error {
	schema := `
	CREATE TABLE IF NOT EXISTS FileIndexTable (
		FilePath TEXT PRIMARY KEY,
		Format TEXT,
		Fingerprint TEXT,
		Header BLOB,
		Footer BLOB
	);

	CREATE TABLE IF NOT EXISTS IndexEntryTable (
		FilePath TEXT REFERENCES FileIndexTable(FilePath),
		Ordinal INTEGER,
		ScanNumber INTEGER,
		ByteStart INTEGER,
		ByteEnd INTEGER
	);

	CREATE INDEX IF NOT EXISTS idx_entry_filepath ON IndexEntryTable(FilePath);
	`

	_, err := s.db.Exec(schema)
	if err != nil {
		return fmt.Errorf("failed to create index cache tables: %w", err)
	}
	return nil
}

func (s *Store) prepareStatements() error {
	var err error
	s.entryStmt, err = s.db.Prepare(`
		INSERT INTO IndexEntryTable (FilePath, Ordinal, ScanNumber, ByteStart, ByteEnd)
		VALUES (?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare index entry statement: %w", err)
	}
	return nil
}

// SaveIndex replaces any previously cached index for filePath with idx,
// keyed on fingerprint (typically file size + modification time, formatted
// by the caller) so a stale cache is detectable by LoadIndex without
// re-parsing the file.
func (s *Store) SaveIndex(filePath, format, fingerprint string, idx *xmlcommon.SpectrumIndex, header, footer []byte) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin index cache transaction: %w", err)
	}

	if _, err := tx.Exec(`DELETE FROM IndexEntryTable WHERE FilePath = ?`, filePath); err != nil {
		tx.Rollback()
		return fmt.Errorf("failed to clear stale index entries: %w", err)
	}
	if _, err := tx.Exec(`DELETE FROM FileIndexTable WHERE FilePath = ?`, filePath); err != nil {
		tx.Rollback()
		return fmt.Errorf("failed to clear stale file record: %w", err)
	}
	if _, err := tx.Exec(`
		INSERT INTO FileIndexTable (FilePath, Format, Fingerprint, Header, Footer)
		VALUES (?, ?, ?, ?, ?)
	`, filePath, format, fingerprint, header, footer); err != nil {
		tx.Rollback()
		return fmt.Errorf("failed to insert file record: %w", err)
	}

	stmt := tx.Stmt(s.entryStmt)
	for i := 0; i < idx.Count(); i++ {
		entry, _ := idx.ByOrdinal(i)
		if _, err := stmt.Exec(filePath, i, entry.ScanNumber, entry.ByteStart, entry.ByteEnd); err != nil {
			tx.Rollback()
			return fmt.Errorf("failed to insert index entry: %w", err)
		}
	}

	return tx.Commit()
}

// LoadIndex returns the cached index for filePath if present and its
// fingerprint matches expectedFingerprint; ok is false on any cache miss
// (including a fingerprint mismatch, which the caller should treat the same
// as "not cached" and fall back to build_index).
func (s *Store) LoadIndex(filePath, expectedFingerprint string) (idx *xmlcommon.SpectrumIndex, header, footer []byte, ok bool, err error) {
	var storedFingerprint string
	row := s.db.QueryRow(`SELECT Fingerprint, Header, Footer FROM FileIndexTable WHERE FilePath = ?`, filePath)
	if scanErr := row.Scan(&storedFingerprint, &header, &footer); scanErr != nil {
		if scanErr == sql.ErrNoRows {
			return nil, nil, nil, false, nil
		}
		return nil, nil, nil, false, fmt.Errorf("failed to read cached file record: %w", scanErr)
	}
	if storedFingerprint != expectedFingerprint {
		return nil, nil, nil, false, nil
	}

	rows, queryErr := s.db.Query(`
		SELECT ScanNumber, ByteStart, ByteEnd FROM IndexEntryTable
		WHERE FilePath = ? ORDER BY Ordinal ASC
	`, filePath)
	if queryErr != nil {
		return nil, nil, nil, false, fmt.Errorf("failed to read cached index entries: %w", queryErr)
	}
	defer rows.Close()

	idx = xmlcommon.NewSpectrumIndex()
	for rows.Next() {
		var e xmlcommon.IndexEntry
		if err := rows.Scan(&e.ScanNumber, &e.ByteStart, &e.ByteEnd); err != nil {
			return nil, nil, nil, false, fmt.Errorf("failed to scan cached index entry: %w", err)
		}
		idx.Add(e)
	}
	if err := rows.Err(); err != nil {
		return nil, nil, nil, false, fmt.Errorf("failed reading cached index entries: %w", err)
	}

	return idx, header, footer, true, nil
}

// Close releases the prepared statement and the database handle. Repeated
// Close is a no-op.
func (s *Store) Close() error {
	if s.entryStmt != nil {
		s.entryStmt.Close()
		s.entryStmt = nil
	}
	if s.db != nil {
		err := s.db.Close()
		s.db = nil
		return err
	}
	return nil
}
