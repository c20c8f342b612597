// Package session persists the authenticated WhatsApp session record as a
// single JSON file.
package session

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"
)

// Record identifies an authenticated device. The key material itself lives
// in the device database; the record tells the engine which device to resume.
type Record struct {
	JID             string    `json:"jid"`
	LID             string    `json:"lid,omitempty"`
	Platform        string    `json:"platform,omitempty"`
	BusinessName    string    `json:"business_name,omitempty"`
	PushName        string    `json:"push_name,omitempty"`
	AuthenticatedAt time.Time `json:"authenticated_at"`
}

// FileStore reads and writes a Record at a fixed path. It does no locking;
// concurrent saves race and the last write wins.
type FileStore struct {
	path string
}

// NewFileStore creates a store backed by path.
func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

// Path returns the session file location.
func (s *FileStore) Path() string {
	return s.path
}

// Load returns the stored record, or nil when no session file exists.
func (s *FileStore) Load() (*Record, error) {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read session file: %w", err)
	}

	var rec Record
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("parse session file: %w", err)
	}
	if rec.JID == "" {
		return nil, fmt.Errorf("parse session file: missing jid")
	}
	return &rec, nil
}

// Save replaces the session file with rec.
func (s *FileStore) Save(rec Record) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("encode session: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("create session directory: %w", err)
	}
	if err := os.WriteFile(s.path, data, 0o600); err != nil {
		return fmt.Errorf("write session file: %w", err)
	}
	return nil
}

// Clear removes the session file. A missing file is not an error.
func (s *FileStore) Clear() error {
	if err := os.Remove(s.path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("remove session file: %w", err)
	}
	return nil
}
