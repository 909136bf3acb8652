package store

import (
	"database/sql"
	"time"

	"github.com/pavelanni/reportcard/internal/model"
)

// SetMetadata upserts a key-value pair in the metadata table.
func (s *Store) SetMetadata(key, value string) error {
	_, err := s.db.Exec(
		`INSERT INTO metadata (key, value) VALUES (?, ?)
		 ON CONFLICT(key) DO UPDATE SET value = excluded.value`,
		key, value,
	)
	return err
}

// GetMetadata returns the value for a metadata key.
// Returns empty string and nil error if the key is missing.
func (s *Store) GetMetadata(key string) (string, error) {
	var value string
	err := s.db.QueryRow(`SELECT value FROM metadata WHERE key = ?`, key).Scan(&value)
	if err == sql.ErrNoRows {
		return "", nil
	}
	return value, err
}

// SetSchoolInfo stores all SchoolInfo fields as metadata rows.
func (s *Store) SetSchoolInfo(info model.SchoolInfo) error {
	pairs := []struct{ k, v string }{
		{"school_name", info.Name},
		{"school_year", info.Year},
		{"principal", info.Principal},
	}
	for _, p := range pairs {
		if err := s.SetMetadata(p.k, p.v); err != nil {
			return err
		}
	}
	return nil
}

// GetSchoolInfo reads all SchoolInfo fields from metadata.
func (s *Store) GetSchoolInfo() (model.SchoolInfo, error) {
	var info model.SchoolInfo
	var err error

	if info.Name, err = s.GetMetadata("school_name"); err != nil {
		return info, err
	}
	if info.Year, err = s.GetMetadata("school_year"); err != nil {
		return info, err
	}
	if info.Principal, err = s.GetMetadata("principal"); err != nil {
		return info, err
	}
	return info, nil
}

// GetImportedFileHash returns the hash recorded for an imported file,
// or "" if the file was never imported.
func (s *Store) GetImportedFileHash(path string) (string, error) {
	var hash string
	err := s.db.QueryRow(`SELECT hash FROM imported_files WHERE path = ?`, path).Scan(&hash)
	if err == sql.ErrNoRows {
		return "", nil
	}
	return hash, err
}

// SetImportedFileHash records the hash of an imported file.
func (s *Store) SetImportedFileHash(path, hash string) error {
	_, err := s.db.Exec(
		`INSERT INTO imported_files (path, hash, imported_at) VALUES (?, ?, ?)
		 ON CONFLICT(path) DO UPDATE SET hash = excluded.hash, imported_at = excluded.imported_at`,
		path, hash, time.Now().UTC(),
	)
	return err
}
