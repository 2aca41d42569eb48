// Package mapper normalizes raw driver values into plain Go values so that
// result rows look the same regardless of which backend produced them.
package mapper

import (
	"encoding/json"
	"strings"
	"time"
)

// Normalize converts one raw driver value based on the column's database
// type name. Byte slices become strings, json/jsonb columns are decoded into
// maps/slices, and timestamps are normalized to UTC. Values that need no
// conversion pass through untouched.
func Normalize(value interface{}, dbType string) interface{} {
	if value == nil {
		return nil
	}

	switch v := value.(type) {
	case []byte:
		if isJSONType(dbType) {
			return decodeJSON(v)
		}
		return string(v)
	case time.Time:
		return v.UTC()
	default:
		return value
	}
}

// NormalizeRow applies Normalize to every column of a row in place and
// returns the same map for convenience.
func NormalizeRow(row map[string]interface{}, dbTypes map[string]string) map[string]interface{} {
	for col, val := range row {
		row[col] = Normalize(val, dbTypes[col])
	}
	return row
}

// isJSONType reports whether the database type name denotes a JSON column.
func isJSONType(dbType string) bool {
	switch strings.ToUpper(dbType) {
	case "JSON", "JSONB":
		return true
	default:
		return false
	}
}

// decodeJSON unmarshals a JSON column value. An empty value decodes to nil
// and a malformed value falls back to its raw text, mirroring how a codec
// failure should degrade: the caller still sees the data, just undecoded.
func decodeJSON(raw []byte) interface{} {
	if len(raw) == 0 {
		return nil
	}
	var decoded interface{}
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return string(raw)
	}
	return decoded
}
