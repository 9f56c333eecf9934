// Package docio reads and writes the pipeline's document files.
package docio

import (
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/rotisserie/eris"
)

// ReadJSON decodes a JSON document file into T.
func ReadJSON[T any](path string) (*T, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, eris.Wrapf(err, "docio: open %s", path)
	}
	defer f.Close()

	var obj T
	if err := json.NewDecoder(f).Decode(&obj); err != nil {
		return nil, eris.Wrapf(err, "docio: decode %s", path)
	}
	return &obj, nil
}

// WriteJSON writes v as indented JSON, creating parent directories as
// needed.
func WriteJSON(path string, v any) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return eris.Wrapf(err, "docio: mkdir for %s", path)
	}
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return eris.Wrap(err, "docio: marshal")
	}
	if err := os.WriteFile(path, append(data, '\n'), 0o644); err != nil {
		return eris.Wrapf(err, "docio: write %s", path)
	}
	return nil
}
