package persist

import (
	"database/sql"
	"fmt"

	"github.com/hdhrcore/tvcore/internal/stream"
	_ "modernc.org/sqlite"
)

// Store is a sqlite-backed table of Records, one row per Service UUID.
type Store struct {
	db *sql.DB
}

// Open opens (creating if necessary) the sqlite database at path and
// ensures the service_records table exists.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("persist: open %s: %w", path, err)
	}
	const schema = `CREATE TABLE IF NOT EXISTS service_records (
		uuid TEXT PRIMARY KEY,
		pcr  INTEGER NOT NULL DEFAULT -1,
		pmt  INTEGER NOT NULL DEFAULT -1,
		blob TEXT NOT NULL
	)`
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("persist: create schema: %w", err)
	}
	return &Store{db: db}, nil
}

// Close closes the underlying database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

// Save encodes svc and upserts it by UUID.
func (s *Store) Save(svc *stream.Service) error {
	rec, err := EncodeService(svc)
	if err != nil {
		return fmt.Errorf("persist: encode %s: %w", svc.ID, err)
	}
	_, err = s.db.Exec(`INSERT INTO service_records (uuid, pcr, pmt, blob) VALUES (?, ?, ?, ?)
		ON CONFLICT(uuid) DO UPDATE SET pcr = excluded.pcr, pmt = excluded.pmt, blob = excluded.blob`,
		rec.UUID, rec.PCR, rec.PMT, rec.Blob)
	if err != nil {
		return fmt.Errorf("persist: save %s: %w", svc.ID, err)
	}
	return nil
}

// Load reads the stored record for svc.ID (if any) and applies it onto svc.
// Returns false, nil if no record exists for this UUID.
func (s *Store) Load(svc *stream.Service) (bool, error) {
	row := s.db.QueryRow(`SELECT uuid, pcr, pmt, blob FROM service_records WHERE uuid = ?`, svc.ID)
	var rec Record
	if err := row.Scan(&rec.UUID, &rec.PCR, &rec.PMT, &rec.Blob); err != nil {
		if err == sql.ErrNoRows {
			return false, nil
		}
		return false, fmt.Errorf("persist: load %s: %w", svc.ID, err)
	}
	if err := DecodeInto(svc, rec); err != nil {
		return false, fmt.Errorf("persist: decode %s: %w", svc.ID, err)
	}
	return true, nil
}

// Delete removes the stored record for uuid, if any.
func (s *Store) Delete(uuid string) error {
	_, err := s.db.Exec(`DELETE FROM service_records WHERE uuid = ?`, uuid)
	if err != nil {
		return fmt.Errorf("persist: delete %s: %w", uuid, err)
	}
	return nil
}
