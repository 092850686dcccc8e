package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// Row is one results-file record keyed by column name. Values are kept as
// text; typed access goes through NewMatchRecord.
type Row map[string]string

// Get returns the trimmed value for key, or "" when absent.
func (r Row) Get(key string) string {
	return strings.TrimSpace(r[key])
}

// UnmarshalJSON accepts objects whose values are strings, numbers, booleans
// or null. Feeds exported from other tools mix quoted and native numbers;
// everything is normalised to the textual form the CSV files use.
func (r *Row) UnmarshalJSON(data []byte) error {
	// Fast path: every value is already a string
	var plain map[string]string
	if err := json.Unmarshal(data, &plain); err == nil {
		*r = plain
		return nil
	}

	// Slow path: field-by-field coercion
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("flex unmarshal: %w", err)
	}

	out := make(Row, len(raw))
	for key, rawVal := range raw {
		out[key] = coerceToText(rawVal)
	}
	*r = out
	return nil
}

// coerceToText renders a JSON scalar as text. Nested values and null become
// empty strings, which the parsers treat as missing.
func coerceToText(raw json.RawMessage) string {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return ""
	}

	switch raw[0] {
	case '"':
		var s string
		if err := json.Unmarshal(raw, &s); err == nil {
			return s
		}
	case 't', 'f':
		if b, err := strconv.ParseBool(string(raw)); err == nil {
			return strconv.FormatBool(b)
		}
	case 'n', '{', '[':
		return ""
	default:
		var n json.Number
		if err := json.Unmarshal(raw, &n); err == nil {
			return n.String()
		}
	}
	return ""
}
