package store

import (
	"encoding/json"
	"fmt"

	"github.com/abelbrown/universal/internal/record"
)

// LoadRecords reads the record array cached under key.
// A payload that does not decode to a JSON array is discarded and the key
// cleared, so a corrupt entry heals itself on the next write. healed is true
// when that happened.
func LoadRecords(m Mirror, key string) (records []record.Record, found bool, healed bool) {
	raw, ok, err := m.Get(key)
	if err != nil || !ok {
		return nil, false, false
	}

	var out []record.Record
	// "null" decodes without error but is not an array
	if err := json.Unmarshal([]byte(raw), &out); err != nil || out == nil {
		_ = m.Clear(key)
		return nil, false, true
	}
	return out, true, false
}

// SaveRecords serializes records under key.
func SaveRecords(m Mirror, key string, records []record.Record) error {
	if records == nil {
		records = []record.Record{}
	}
	data, err := json.Marshal(records)
	if err != nil {
		return fmt.Errorf("encode %q: %w", key, err)
	}
	return m.Set(key, string(data))
}

// LoadJSON decodes the value under key into v. A value that does not decode
// is cleared. Returns false when nothing usable was stored.
func LoadJSON(m Mirror, key string, v any) bool {
	raw, ok, err := m.Get(key)
	if err != nil || !ok {
		return false
	}
	if err := json.Unmarshal([]byte(raw), v); err != nil {
		_ = m.Clear(key)
		return false
	}
	return true
}

// SaveJSON encodes v and stores it under key.
func SaveJSON(m Mirror, key string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode %q: %w", key, err)
	}
	return m.Set(key, string(data))
}
