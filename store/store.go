package store

import (
	"errors"
	"fmt"

	"github.com/pevans/gridiron/record"
)

// Store is the durable home of a collection job: the accumulated records
// and the single checkpoint token.
type Store interface {
	// Load returns every stored record. It returns an empty slice if
	// nothing has been stored yet and a *CorruptStateError if stored data
	// cannot be parsed.
	Load() ([]record.Record, error)

	// AppendAndSave adds records to the stored collection. The write is all
	// or nothing; on failure it returns a *StoreWriteError and the prior
	// state is left intact. Records whose ID is already stored are skipped.
	AppendAndSave(records []record.Record) error

	// LoadCheckpoint returns the stored checkpoint token, if any.
	LoadCheckpoint() (string, bool, error)

	// SaveCheckpoint overwrites the checkpoint token.
	SaveCheckpoint(token string) error

	Close() error
}

// ErrUnknownStoreType is returned by Open for an unrecognized store type.
var ErrUnknownStoreType = errors.New("store type must be json, partitioned, or sqlite")

// CorruptStateError means persisted state exists but cannot be parsed.
// Nothing is recovered automatically: discarding prior state would cause
// duplicate work or data loss.
type CorruptStateError struct {
	Path string
	Err  error
}

func (e *CorruptStateError) Error() string {
	return fmt.Sprintf("corrupt state in %s: %v", e.Path, e.Err)
}

func (e *CorruptStateError) Unwrap() error {
	return e.Err
}

// StoreWriteError means a write did not complete. Prior state is intact.
type StoreWriteError struct {
	Op   string
	Path string
	Err  error
}

func (e *StoreWriteError) Error() string {
	return fmt.Sprintf("failed to %s %s: %v", e.Op, e.Path, e.Err)
}

func (e *StoreWriteError) Unwrap() error {
	return e.Err
}

// Config selects and locates a store. DSN is the records file for "json",
// the directory for "partitioned", and the database file for "sqlite".
type Config struct {
	Type       string `yaml:"type"`
	DSN        string `yaml:"dsn"`
	Checkpoint string `yaml:"checkpoint"`
	Pattern    string `yaml:"pattern"`
}

// Open creates the store described by cfg.
func Open(cfg Config) (Store, error) {
	switch cfg.Type {
	case "json", "":
		return NewJSONFile(cfg.DSN, cfg.Checkpoint)
	case "partitioned":
		return NewPartitioned(cfg.DSN, cfg.Pattern, cfg.Checkpoint)
	case "sqlite":
		return NewSQLite(cfg.DSN)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownStoreType, cfg.Type)
	}
}

// filterNew drops records whose ID is in existing or repeated within
// records, and adds the kept IDs to existing.
func filterNew(existing map[string]bool, records []record.Record) []record.Record {
	kept := make([]record.Record, 0, len(records))
	for _, rec := range records {
		if existing[rec.ID] {
			continue
		}
		existing[rec.ID] = true
		kept = append(kept, rec)
	}
	return kept
}
