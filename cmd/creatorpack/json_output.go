package main

import (
	"encoding/json"
	"io"
)

// writeJSON encodes v as indented JSON, matching the API's field names.
func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
