// Package record defines the open record type shared by every component
// of the browser, plus the field map that names which attributes are shown.
package record

import (
	"fmt"
	"strconv"
	"strings"
)

// Record is an untyped backend record: field name -> scalar or nested value.
// Records are never mutated in place; use With to derive an updated copy.
type Record map[string]any

// FieldMap names which Record attributes populate which visual slot.
// Fields not named here are never rendered.
type FieldMap struct {
	ImageField       string   `json:"image_field,omitempty" yaml:"image_field,omitempty"`
	HeadingField     string   `json:"heading_field,omitempty" yaml:"heading_field,omitempty"`
	SubHeadingFields []string `json:"sub_heading_fields,omitempty" yaml:"sub_heading_fields,omitempty"`
	IDField          string   `json:"id_field" yaml:"id_field"`
	LatitudeField    string   `json:"latitude_field,omitempty" yaml:"latitude_field,omitempty"`
	LongitudeField   string   `json:"longitude_field,omitempty" yaml:"longitude_field,omitempty"`
}

// Default coordinate attribute names used when a FieldMap leaves them empty.
const (
	DefaultLatitudeField  = "latitude"
	DefaultLongitudeField = "longitude"
)

// Latitude returns the configured latitude attribute name.
func (f FieldMap) Latitude() string {
	if f.LatitudeField == "" {
		return DefaultLatitudeField
	}
	return f.LatitudeField
}

// Longitude returns the configured longitude attribute name.
func (f FieldMap) Longitude() string {
	if f.LongitudeField == "" {
		return DefaultLongitudeField
	}
	return f.LongitudeField
}

// Valid reports whether v should be rendered.
// nil is invalid. Strings are invalid when, after trimming and lower-casing,
// they are empty, "null" or "-". Every other value is valid.
func Valid(v any) bool {
	switch s := v.(type) {
	case nil:
		return false
	case string:
		switch strings.ToLower(strings.TrimSpace(s)) {
		case "", "null", "-":
			return false
		}
		return true
	default:
		return true
	}
}

// Get returns the raw value of field, or nil if the field is absent or the
// name is empty.
func (r Record) Get(field string) any {
	if field == "" || r == nil {
		return nil
	}
	return r[field]
}

// Text returns field formatted for display, and false when the value is
// absent or fails Valid.
func (r Record) Text(field string) (string, bool) {
	v := r.Get(field)
	if !Valid(v) {
		return "", false
	}
	return Format(v), true
}

// Float returns field as a float64 when it is numeric or a numeric string.
func (r Record) Float(field string) (float64, bool) {
	v := r.Get(field)
	if !Valid(v) {
		return 0, false
	}
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(n), 64)
		if err != nil {
			return 0, false
		}
		return f, true
	}
	return 0, false
}

// ID returns the identity attribute named by the field map.
func (r Record) ID(f FieldMap) any {
	return r.Get(f.IDField)
}

// With returns a copy of r with field set to value. r is left untouched.
func (r Record) With(field string, value any) Record {
	out := make(Record, len(r)+1)
	for k, v := range r {
		out[k] = v
	}
	out[field] = value
	return out
}

// SameID reports whether two identity values refer to the same record.
// JSON decoding turns numeric ids into float64, so ids are compared by
// their display form.
func SameID(a, b any) bool {
	if a == nil || b == nil {
		return false
	}
	return Format(a) == Format(b)
}

// Format renders a scalar for display. Whole floats print without a
// fractional part so decoded JSON ids read naturally.
func Format(v any) string {
	switch n := v.(type) {
	case string:
		return strings.TrimSpace(n)
	case float64:
		return strconv.FormatFloat(n, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(n), 'f', -1, 32)
	case nil:
		return ""
	default:
		return fmt.Sprint(n)
	}
}
