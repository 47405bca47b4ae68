package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/pevans/gridiron/record"
)

// DefaultPartitionPattern names the per-year files of a partitioned store.
const DefaultPartitionPattern = "nfl_news_%d.json"

// Partitioned keeps one JSON array file per calendar year of the record
// timestamps. Each file is replaced atomically, but a flush that spans two
// years writes two files; the checkpoint is only saved once both succeed.
type Partitioned struct {
	dir            string
	pattern        string
	checkpointPath string
}

// NewPartitioned creates a partitioned store in dir. pattern must contain
// exactly one %d verb for the year.
func NewPartitioned(dir, pattern, checkpointPath string) (*Partitioned, error) {
	if dir == "" {
		return nil, fmt.Errorf("partitioned store requires a directory")
	}
	if pattern == "" {
		pattern = DefaultPartitionPattern
	}
	if strings.Count(pattern, "%d") != 1 || strings.Count(pattern, "%") != 1 {
		return nil, fmt.Errorf("partition pattern %q must contain a single %%d", pattern)
	}
	if checkpointPath == "" {
		checkpointPath = filepath.Join(dir, "checkpoint.txt")
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create storage directory: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(checkpointPath), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create storage directory: %w", err)
	}

	return &Partitioned{
		dir:            dir,
		pattern:        pattern,
		checkpointPath: checkpointPath,
	}, nil
}

// PathForYear returns the file that holds records from year.
func (s *Partitioned) PathForYear(year int) string {
	return filepath.Join(s.dir, fmt.Sprintf(s.pattern, year))
}

// Load returns the records of every year file, oldest file first.
func (s *Partitioned) Load() ([]record.Record, error) {
	paths, err := s.partitions()
	if err != nil {
		return nil, err
	}

	records := []record.Record{}
	for _, path := range paths {
		recs, err := loadPartition(path)
		if err != nil {
			return nil, err
		}
		records = append(records, recs...)
	}

	return records, nil
}

// AppendAndSave routes records to their year file and rewrites each
// touched file.
func (s *Partitioned) AppendAndSave(records []record.Record) error {
	existing, err := s.Load()
	if err != nil {
		return &StoreWriteError{Op: "read", Path: s.dir, Err: err}
	}

	ids := make(map[string]bool, len(existing))
	for _, rec := range existing {
		ids[rec.ID] = true
	}

	byYear := map[int][]record.Record{}
	for _, rec := range filterNew(ids, records) {
		if rec.Timestamp.IsZero() {
			return &StoreWriteError{
				Op:   "partition",
				Path: s.dir,
				Err:  fmt.Errorf("record %s has no date", rec.ID),
			}
		}
		year := rec.Timestamp.UTC().Year()
		byYear[year] = append(byYear[year], rec)
	}

	years := make([]int, 0, len(byYear))
	for year := range byYear {
		years = append(years, year)
	}
	sort.Ints(years)

	for _, year := range years {
		path := s.PathForYear(year)

		current, err := loadPartition(path)
		if err != nil {
			return &StoreWriteError{Op: "read", Path: path, Err: err}
		}

		data, err := json.MarshalIndent(append(current, byYear[year]...), "", "  ")
		if err != nil {
			return &StoreWriteError{Op: "marshal", Path: path, Err: err}
		}

		if err := writeFileAtomic(path, data); err != nil {
			return &StoreWriteError{Op: "write", Path: path, Err: err}
		}
	}

	return nil
}

// LoadCheckpoint reads the checkpoint file.
func (s *Partitioned) LoadCheckpoint() (string, bool, error) {
	return readCheckpoint(s.checkpointPath)
}

// SaveCheckpoint replaces the checkpoint file.
func (s *Partitioned) SaveCheckpoint(token string) error {
	return writeCheckpoint(s.checkpointPath, token)
}

func (s *Partitioned) Close() error {
	return nil
}

// partitions lists the existing year files in sorted order.
func (s *Partitioned) partitions() ([]string, error) {
	glob := filepath.Join(s.dir, strings.Replace(s.pattern, "%d", "*", 1))
	paths, err := filepath.Glob(glob)
	if err != nil {
		return nil, fmt.Errorf("failed to list partitions: %w", err)
	}

	// Only keep files whose wildcard part is a year
	var years []int
	for _, path := range paths {
		var year int
		if _, err := fmt.Sscanf(filepath.Base(path), s.pattern, &year); err != nil {
			continue
		}
		if s.PathForYear(year) != path {
			continue
		}
		years = append(years, year)
	}
	sort.Ints(years)

	out := make([]string, len(years))
	for i, year := range years {
		out[i] = s.PathForYear(year)
	}
	return out, nil
}

func loadPartition(path string) ([]record.Record, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return []record.Record{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	if len(strings.TrimSpace(string(data))) == 0 {
		return []record.Record{}, nil
	}

	var records []record.Record
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, &CorruptStateError{Path: path, Err: err}
	}
	if records == nil {
		records = []record.Record{}
	}
	return records, nil
}
