package repository

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Timestamp holds a created_at/updated_at column as stored. Older panels
// wrote datetime text into these columns, newer ones unix seconds.
type Timestamp struct {
	value any
}

// UnixTimestamp wraps unix seconds.
func UnixTimestamp(sec int64) Timestamp {
	return Timestamp{value: sec}
}

// TextTimestamp wraps a textual datetime such as "2024-05-01 10:00:00".
func TextTimestamp(s string) Timestamp {
	return Timestamp{value: s}
}

// IsNull reports whether the column was NULL.
func (t Timestamp) IsNull() bool {
	return t.value == nil
}

// Raw returns the stored value: int64, string or nil.
func (t Timestamp) Raw() any {
	return t.value
}

var timestampLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	time.DateTime,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04",
	time.DateOnly,
}

// Unix converts the value to unix seconds. Numeric values are used as is;
// text is parsed in loc (UTC when nil). The second result is false for NULL
// or unparseable text.
func (t Timestamp) Unix(loc *time.Location) (int64, bool) {
	switch v := t.value.(type) {
	case int64:
		return v, true
	case string:
		s := strings.TrimSpace(v)
		if s == "" {
			return 0, false
		}
		if n, err := strconv.ParseInt(s, 10, 64); err == nil {
			return n, true
		}
		if f, err := strconv.ParseFloat(s, 64); err == nil {
			return int64(f), true
		}
		if loc == nil {
			loc = time.UTC
		}
		for _, layout := range timestampLayouts {
			if parsed, err := time.ParseInLocation(layout, s, loc); err == nil {
				return parsed.Unix(), true
			}
		}
	}
	return 0, false
}

// Scan implements sql.Scanner.
func (t *Timestamp) Scan(src any) error {
	switch v := src.(type) {
	case nil:
		t.value = nil
	case int64:
		t.value = v
	case float64:
		t.value = int64(v)
	case []byte:
		t.value = string(v)
	case string:
		t.value = v
	case time.Time:
		t.value = v.Unix()
	default:
		return fmt.Errorf("repository: unsupported timestamp type %T", src)
	}
	return nil
}

// Value implements driver.Valuer.
func (t Timestamp) Value() (driver.Value, error) {
	return t.value, nil
}

// MarshalJSON writes the stored value unchanged.
func (t Timestamp) MarshalJSON() ([]byte, error) {
	return json.Marshal(t.value)
}
