package repository

import (
	"encoding/json"
	"sort"
)

// encodeKeys serializes a key set into its canonical stored form. Keys are
// sorted first so that uniqueness constraints over the column compare
// equal sets as equal strings.
func encodeKeys(keys []string) string {
	sorted := make([]string, len(keys))
	copy(sorted, keys)
	sort.Strings(sorted)
	data, _ := json.Marshal(sorted)
	return string(data)
}

func decodeKeys(data string) []string {
	if data == "" {
		return nil
	}
	var keys []string
	if err := json.Unmarshal([]byte(data), &keys); err != nil {
		return nil
	}
	return keys
}
