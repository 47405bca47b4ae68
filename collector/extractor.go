package collector

import (
	"maps"

	"github.com/pevans/gridiron/record"
	"github.com/pevans/gridiron/walker"
)

// Reason explains why a raw item was skipped.
type Reason string

const (
	Malformed           Reason = "malformed"
	AlreadySeen         Reason = "already_seen"
	BeforeCheckpoint    Reason = "before_checkpoint"
	OutsideWindowFuture Reason = "outside_window_future"

	// OutsideWindowPast ends the walk: the listing is newest first, so
	// nothing after this item can be inside the window.
	OutsideWindowPast Reason = "outside_window_past"
)

// State is the checkpoint-resume state of an Extractor.
type State int

const (
	// Seeking skips everything until the checkpointed key is found.
	Seeking State = iota
	// Collecting evaluates items against the seen set and window.
	Collecting
)

func (s State) String() string {
	if s == Seeking {
		return "seeking"
	}
	return "collecting"
}

// SeenSet holds the identifiers already stored or accepted this run.
type SeenSet struct {
	ids map[string]struct{}
}

// NewSeenSet creates a set seeded with the IDs of records.
func NewSeenSet(records []record.Record) *SeenSet {
	s := &SeenSet{ids: make(map[string]struct{}, len(records))}
	for _, rec := range records {
		s.Add(rec.ID)
	}
	return s
}

// Add marks id as seen.
func (s *SeenSet) Add(id string) {
	s.ids[id] = struct{}{}
}

// Contains reports whether id has been seen.
func (s *SeenSet) Contains(id string) bool {
	_, ok := s.ids[id]
	return ok
}

// Len returns the number of seen identifiers.
func (s *SeenSet) Len() int {
	return len(s.ids)
}

// Decision is the outcome of extracting one raw item. Reason is empty when
// the item was accepted.
type Decision struct {
	Record record.Record
	Reason Reason
}

// Accepted reports whether the item became a record.
func (d Decision) Accepted() bool {
	return d.Reason == ""
}

// Extractor turns raw items into records, applying the checkpoint, seen set
// and window rules in that order.
type Extractor struct {
	seen       *SeenSet
	window     record.Window
	checkpoint string
	state      State
}

// NewExtractor creates an extractor. It starts in Seeking when a checkpoint
// was loaded and in Collecting otherwise.
func NewExtractor(seen *SeenSet, window record.Window, checkpoint string, hasCheckpoint bool) *Extractor {
	state := Collecting
	if hasCheckpoint {
		state = Seeking
	}

	return &Extractor{
		seen:       seen,
		window:     window,
		checkpoint: checkpoint,
		state:      state,
	}
}

// State returns the current resume state.
func (e *Extractor) State() State {
	return e.state
}

// Extract decides what to do with raw. It does not add accepted records to
// the seen set; the caller does that once the record is buffered.
func (e *Extractor) Extract(raw walker.RawItem) Decision {
	if e.state == Seeking {
		// The checkpointed item itself was handled by the previous run
		if raw.Key != "" && raw.Key == e.checkpoint {
			e.state = Collecting
		}
		return Decision{Reason: BeforeCheckpoint}
	}

	if raw.Malformed() {
		return Decision{Reason: Malformed}
	}

	if e.seen.Contains(raw.ID) {
		return Decision{Reason: AlreadySeen}
	}

	switch e.window.Classify(raw.Timestamp) {
	case record.Past:
		return Decision{Reason: OutsideWindowPast}
	case record.Future:
		return Decision{Reason: OutsideWindowFuture}
	}

	rec := record.New(raw.ID, raw.Timestamp)
	maps.Copy(rec.Payload, raw.Payload)

	return Decision{Record: rec}
}
