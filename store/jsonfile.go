package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/pevans/gridiron/record"
)

// JSONFile keeps all records of a job in one JSON array file and the
// checkpoint in a plain text file next to it.
type JSONFile struct {
	path           string
	checkpointPath string
}

// NewJSONFile creates a JSON file store. If checkpointPath is empty the
// checkpoint lives at path with a ".checkpoint" suffix.
func NewJSONFile(path, checkpointPath string) (*JSONFile, error) {
	if path == "" {
		return nil, fmt.Errorf("json store requires a file path")
	}
	if checkpointPath == "" {
		checkpointPath = path + ".checkpoint"
	}

	// Create the storage directories if they don't exist
	for _, p := range []string{path, checkpointPath} {
		if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
			return nil, fmt.Errorf("failed to create storage directory: %w", err)
		}
	}

	return &JSONFile{
		path:           path,
		checkpointPath: checkpointPath,
	}, nil
}

// Path returns the records file.
func (s *JSONFile) Path() string {
	return s.path
}

// Load returns all records in the file.
func (s *JSONFile) Load() ([]record.Record, error) {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return []record.Record{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", s.path, err)
	}

	if len(strings.TrimSpace(string(data))) == 0 {
		return []record.Record{}, nil
	}

	var records []record.Record
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, &CorruptStateError{Path: s.path, Err: err}
	}
	if records == nil {
		records = []record.Record{}
	}

	return records, nil
}

// AppendAndSave rewrites the file with records appended.
func (s *JSONFile) AppendAndSave(records []record.Record) error {
	existing, err := s.Load()
	if err != nil {
		return &StoreWriteError{Op: "read", Path: s.path, Err: err}
	}

	ids := make(map[string]bool, len(existing))
	for _, rec := range existing {
		ids[rec.ID] = true
	}

	added := filterNew(ids, records)
	if len(added) == 0 {
		return nil
	}

	data, err := json.MarshalIndent(append(existing, added...), "", "  ")
	if err != nil {
		return &StoreWriteError{Op: "marshal", Path: s.path, Err: err}
	}

	if err := writeFileAtomic(s.path, data); err != nil {
		return &StoreWriteError{Op: "write", Path: s.path, Err: err}
	}

	return nil
}

// LoadCheckpoint reads the checkpoint file.
func (s *JSONFile) LoadCheckpoint() (string, bool, error) {
	return readCheckpoint(s.checkpointPath)
}

// SaveCheckpoint replaces the checkpoint file.
func (s *JSONFile) SaveCheckpoint(token string) error {
	return writeCheckpoint(s.checkpointPath, token)
}

// Close is a no-op; every write is complete when it returns.
func (s *JSONFile) Close() error {
	return nil
}

func readCheckpoint(path string) (string, bool, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("failed to read checkpoint: %w", err)
	}

	token := strings.TrimSpace(string(data))
	if token == "" {
		return "", false, nil
	}
	return token, true, nil
}

func writeCheckpoint(path, token string) error {
	if err := writeFileAtomic(path, []byte(token)); err != nil {
		return &StoreWriteError{Op: "save checkpoint", Path: path, Err: err}
	}
	return nil
}

// writeFileAtomic writes data to a temporary file in the target's directory
// and renames it into place, so readers see either the old or the new
// contents.
func writeFileAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()

	// The temp file is gone after a successful rename
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Chmod(tmpName, 0o644); err != nil {
		return err
	}

	return os.Rename(tmpName, path)
}
