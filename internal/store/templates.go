package store

import (
	"bytes"
	"database/sql"
	"fmt"
	"io"
	"io/fs"
	"time"
)

// PutTemplate stores a document template under its logical name.
func (s *Store) PutTemplate(name string, content []byte) error {
	_, err := s.db.Exec(
		`INSERT INTO templates (name, content, updated_at) VALUES (?, ?, ?)
		 ON CONFLICT(name) DO UPDATE SET content = excluded.content, updated_at = excluded.updated_at`,
		name, content, time.Now().UTC(),
	)
	return err
}

// OpenTemplate returns the stored template. A missing template is reported
// as fs.ErrNotExist.
func (s *Store) OpenTemplate(name string) (io.ReadCloser, error) {
	var content []byte
	err := s.db.QueryRow(`SELECT content FROM templates WHERE name = ?`, name).Scan(&content)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("template %q: %w", name, fs.ErrNotExist)
	}
	if err != nil {
		return nil, err
	}
	return io.NopCloser(bytes.NewReader(content)), nil
}

// ListTemplates returns the names of stored templates.
func (s *Store) ListTemplates() ([]string, error) {
	rows, err := s.db.Query(`SELECT name FROM templates ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var names []string
	for rows.Next() {
		var n string
		if err := rows.Scan(&n); err != nil {
			return nil, err
		}
		names = append(names, n)
	}
	return names, rows.Err()
}
