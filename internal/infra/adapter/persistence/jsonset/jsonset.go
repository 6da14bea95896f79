// Package jsonset stores string sets (topics, keywords, preferences) as JSON
// arrays so both SQL backends can share one column format.
package jsonset

import (
	"encoding/json"
	"fmt"
)

// Encode renders a set as a JSON array. A nil set becomes "[]".
func Encode(set []string) string {
	if len(set) == 0 {
		return "[]"
	}
	b, err := json.Marshal(set)
	if err != nil {
		// []string は常にエンコード可能
		panic(fmt.Sprintf("jsonset: %v", err))
	}
	return string(b)
}

// Decode parses a JSON array column. NULL or empty input yields an empty set.
func Decode(raw []byte) ([]string, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return []string{}, nil
	}
	var out []string
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("decode json set: %w", err)
	}
	if out == nil {
		out = []string{}
	}
	return out, nil
}
