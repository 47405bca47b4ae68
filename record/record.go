package record

import (
	"encoding/json"
	"fmt"
	"time"
)

// DateLayout is the layout used for dates that carry no time of day.
const DateLayout = "2006-01-02"

// Record is the unit of output of a collection run. ID is the stable key
// used for deduplication (the canonical URL for every source we collect
// from). Payload holds whatever else the source provides and is opaque to
// the collector.
type Record struct {
	ID        string
	Timestamp time.Time
	Payload   map[string]any
}

// New creates a record with an empty payload.
func New(id string, ts time.Time) Record {
	return Record{
		ID:        id,
		Timestamp: ts,
		Payload:   map[string]any{},
	}
}

// Set stores a payload field, allocating the payload if needed.
func (r *Record) Set(key string, value any) {
	if r.Payload == nil {
		r.Payload = map[string]any{}
	}
	r.Payload[key] = value
}

// String returns the payload field as a string, or "" if absent.
func (r Record) String(key string) string {
	if v, ok := r.Payload[key]; ok {
		if s, ok := v.(string); ok {
			return s
		}
		return fmt.Sprint(v)
	}
	return ""
}

// MarshalJSON writes the record as a flat object: "url" and "date" next to
// the payload fields. This is the layout of the link and article files
// written by earlier versions of the scrapers, so they stay readable.
func (r Record) MarshalJSON() ([]byte, error) {
	out := make(map[string]any, len(r.Payload)+2)
	for k, v := range r.Payload {
		out[k] = v
	}
	out["url"] = r.ID
	out["date"] = formatTimestamp(r.Timestamp)
	return json.Marshal(out)
}

// UnmarshalJSON reads the flat layout written by MarshalJSON. The "date"
// field may be a plain date or an RFC 3339 timestamp.
func (r *Record) UnmarshalJSON(data []byte) error {
	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	id, ok := raw["url"].(string)
	if !ok || id == "" {
		return fmt.Errorf("record has no url")
	}
	delete(raw, "url")

	var ts time.Time
	if v, ok := raw["date"]; ok {
		s, ok := v.(string)
		if !ok {
			return fmt.Errorf("record %s: date is not a string", id)
		}
		parsed, err := parseTimestamp(s)
		if err != nil {
			return fmt.Errorf("record %s: %w", id, err)
		}
		ts = parsed
		delete(raw, "date")
	}

	r.ID = id
	r.Timestamp = ts
	r.Payload = raw
	return nil
}

func formatTimestamp(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	t = t.UTC()
	if t.Equal(t.Truncate(24 * time.Hour)) {
		return t.Format(DateLayout)
	}
	return t.Format(time.RFC3339)
}

func parseTimestamp(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	if t, err := time.Parse(DateLayout, s); err == nil {
		return t, nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q", s)
	}
	return t.UTC(), nil
}
