// Package models defines the payloads exchanged with the store API.
package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
)

// ID is an identifier assigned by the remote service. It remembers whether
// the service sent it as a JSON number or a JSON string and encodes it back
// the same way.
type ID struct {
	value   string
	numeric bool
}

// NumericID returns an ID that encodes as a JSON number.
func NumericID(n int64) ID {
	return ID{value: strconv.FormatInt(n, 10), numeric: true}
}

// StringID returns an ID that encodes as a JSON string.
func StringID(s string) ID {
	return ID{value: s}
}

// String returns the textual form of the id.
func (id ID) String() string {
	return id.value
}

// IsZero reports whether the id is unset.
func (id ID) IsZero() bool {
	return id.value == ""
}

// MarshalJSON implements json.Marshaler.
func (id ID) MarshalJSON() ([]byte, error) {
	if id.IsZero() {
		return []byte("null"), nil
	}
	if id.numeric {
		return []byte(id.value), nil
	}
	return json.Marshal(id.value)
}

// UnmarshalJSON implements json.Unmarshaler.
func (id *ID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	switch {
	case len(data) == 0 || bytes.Equal(data, []byte("null")):
		*id = ID{}
		return nil
	case data[0] == '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return fmt.Errorf("decode id: %w", err)
		}
		*id = StringID(s)
		return nil
	default:
		var n json.Number
		if err := json.Unmarshal(data, &n); err != nil {
			return fmt.Errorf("decode id: %w", err)
		}
		*id = ID{value: n.String(), numeric: true}
		return nil
	}
}
