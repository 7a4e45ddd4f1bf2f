package db

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"gorm.io/gorm"
	"gorm.io/gorm/schema"
)

// Metadata holds the free-form JSON value attached to a content item.
// It may be an object, array, scalar or null. Renderers read known keys
// through the typed accessors and treat absence as "use the fallback".
type Metadata struct {
	value any
}

// NewMetadata normalizes v through a JSON round trip so numbers, maps and
// slices share the representation produced by decoding stored values.
func NewMetadata(v any) Metadata {
	if v == nil {
		return Metadata{}
	}
	raw, err := json.Marshal(v)
	if err != nil {
		return Metadata{}
	}
	var decoded any
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return Metadata{}
	}
	return Metadata{value: decoded}
}

// EmptyObject returns metadata holding {}.
func EmptyObject() Metadata {
	return Metadata{value: map[string]any{}}
}

// ParseMetadata parses operator supplied JSON text.
func ParseMetadata(text string) (Metadata, error) {
	var decoded any
	if err := json.Unmarshal([]byte(strings.TrimSpace(text)), &decoded); err != nil {
		return Metadata{}, fmt.Errorf("parse metadata: %w", err)
	}
	return Metadata{value: decoded}, nil
}

// Any returns the decoded value.
func (m Metadata) Any() any {
	return m.value
}

// IsNull reports whether the metadata holds JSON null.
func (m Metadata) IsNull() bool {
	return m.value == nil
}

// Lookup returns the raw value stored under key when the metadata is an object.
func (m Metadata) Lookup(key string) (any, bool) {
	obj, ok := m.value.(map[string]any)
	if !ok {
		return nil, false
	}
	v, ok := obj[key]
	if !ok || v == nil {
		return nil, false
	}
	return v, true
}

// String returns the value under key rendered as text. Numbers and booleans
// are formatted; objects and arrays are not considered strings.
func (m Metadata) String(key string) (string, bool) {
	v, ok := m.Lookup(key)
	if !ok {
		return "", false
	}
	switch typed := v.(type) {
	case string:
		return typed, true
	case float64:
		return strconv.FormatFloat(typed, 'f', -1, 64), true
	case bool:
		return strconv.FormatBool(typed), true
	default:
		return "", false
	}
}

// Float returns the numeric value under key. Numeric strings are accepted.
func (m Metadata) Float(key string) (float64, bool) {
	v, ok := m.Lookup(key)
	if !ok {
		return 0, false
	}
	switch typed := v.(type) {
	case float64:
		return typed, true
	case string:
		parsed, err := strconv.ParseFloat(strings.TrimSpace(typed), 64)
		if err != nil {
			return 0, false
		}
		return parsed, true
	default:
		return 0, false
	}
}

// Bool returns the boolean value under key.
func (m Metadata) Bool(key string) (bool, bool) {
	v, ok := m.Lookup(key)
	if !ok {
		return false, false
	}
	switch typed := v.(type) {
	case bool:
		return typed, true
	case string:
		parsed, err := strconv.ParseBool(strings.TrimSpace(typed))
		if err != nil {
			return false, false
		}
		return parsed, true
	default:
		return false, false
	}
}

// Text pretty-prints the value for editing.
func (m Metadata) Text() string {
	raw, err := json.MarshalIndent(m.value, "", "  ")
	if err != nil {
		return "null"
	}
	return string(raw)
}

// MarshalJSON implements json.Marshaler.
func (m Metadata) MarshalJSON() ([]byte, error) {
	return json.Marshal(m.value)
}

// UnmarshalJSON implements json.Unmarshaler.
func (m *Metadata) UnmarshalJSON(data []byte) error {
	var decoded any
	if err := json.Unmarshal(data, &decoded); err != nil {
		return err
	}
	m.value = decoded
	return nil
}

// Value implements driver.Valuer.
func (m Metadata) Value() (driver.Value, error) {
	raw, err := json.Marshal(m.value)
	if err != nil {
		return nil, err
	}
	return string(raw), nil
}

// Scan implements sql.Scanner.
func (m *Metadata) Scan(src any) error {
	var raw []byte
	switch typed := src.(type) {
	case nil:
		m.value = nil
		return nil
	case []byte:
		raw = typed
	case string:
		raw = []byte(typed)
	default:
		return fmt.Errorf("scan metadata: unsupported type %T", src)
	}
	if len(strings.TrimSpace(string(raw))) == 0 {
		m.value = nil
		return nil
	}
	return m.UnmarshalJSON(raw)
}

// GormDataType reports the generic column type.
func (Metadata) GormDataType() string {
	return "json"
}

// GormDBDataType picks jsonb on postgres and text elsewhere.
func (Metadata) GormDBDataType(gdb *gorm.DB, _ *schema.Field) string {
	if gdb.Dialector.Name() == "postgres" {
		return "JSONB"
	}
	return "TEXT"
}
