// Package project provides snapshot serialization, project files (.trp) and
// the autosave store.
package project

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"titanroof/internal/version"
)

// Project file conventions.
const (
	Extension    = ".trp"
	MIMEType     = "application/trp+json"
	DefaultStem  = "titanroof-project"
	filePermBits = 0o644
)

// Envelope wraps an exported snapshot.
type Envelope struct {
	App        string          `json:"app"`
	Version    string          `json:"version"`
	ExportedAt time.Time       `json:"exportedAt"`
	Data       json.RawMessage `json:"data"`
}

// Encode wraps a snapshot in an export envelope.
func Encode(s *Snapshot, now time.Time) ([]byte, error) {
	data, err := s.Marshal()
	if err != nil {
		return nil, err
	}
	out, err := json.Marshal(Envelope{
		App:        version.AppName(),
		Version:    version.Version,
		ExportedAt: now.UTC(),
		Data:       data,
	})
	if err != nil {
		return nil, fmt.Errorf("encode envelope: %w", err)
	}
	return out, nil
}

// Decode reads an exported envelope or a bare snapshot.
func Decode(b []byte) (*Snapshot, error) {
	snap, err := Unwrap(b)
	if err != nil {
		return nil, err
	}
	return Unmarshal(snap)
}

// Unwrap returns the snapshot bytes inside an envelope, or b itself when it
// is not wrapped.
func Unwrap(b []byte) ([]byte, error) {
	var env struct {
		Data json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(b, &env); err != nil {
		return nil, fmt.Errorf("decode project: %w", err)
	}
	if d := bytes.TrimSpace(env.Data); len(d) > 0 && string(d) != "null" && d[0] == '{' {
		return env.Data, nil
	}
	return b, nil
}

// Load reads a project file.
func Load(path string) (*Snapshot, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	s, err := Decode(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", filepath.Base(path), err)
	}
	return s, nil
}

// Save writes a project file atomically.
func Save(path string, s *Snapshot) error {
	data, err := Encode(s, time.Now())
	if err != nil {
		return err
	}
	return atomicWriteFile(path, data, filePermBits)
}

var whitespace = regexp.MustCompile(`\s+`)

// FileName derives the export file name from the residence name.
func FileName(residenceName string) string {
	stem := whitespace.ReplaceAllString(strings.TrimSpace(residenceName), "-")
	if stem == "" {
		stem = DefaultStem
	}
	return stem + Extension
}

// atomicWriteFile writes through a temp file in the target directory and
// renames it into place.
func atomicWriteFile(path string, data []byte, perm os.FileMode) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create parent directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".tmp-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpPath := tmp.Name()
	defer func() {
		if tmp != nil {
			tmp.Close()
		}
		os.Remove(tmpPath)
	}()

	if _, err := tmp.Write(data); err != nil {
		return fmt.Errorf("failed to write to temp file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		return fmt.Errorf("failed to sync temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close temp file: %w", err)
	}
	tmp = nil

	if err := os.Chmod(tmpPath, perm); err != nil {
		return fmt.Errorf("failed to set permissions: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		return fmt.Errorf("failed to rename temp file: %w", err)
	}
	return nil
}
