package table

import (
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/rotisserie/eris"
)

// Write serializes the table to path atomically: the JSON is written to a
// temp file in the same directory, synced, renamed over the target, and the
// directory synced. A failed build therefore never clobbers a previous
// artifact.
func Write(t Table, path string) error {
	data, err := json.Marshal(t)
	if err != nil {
		return eris.Wrap(err, "table: marshal")
	}

	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, ".geotable-*")
	if err != nil {
		return eris.Wrap(err, "table: create temp file")
	}
	tmpPath := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpPath)
		return eris.Wrap(err, "table: write temp file")
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpPath)
		return eris.Wrap(err, "table: sync temp file")
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpPath)
		return eris.Wrap(err, "table: close temp file")
	}

	if err := os.Rename(tmpPath, path); err != nil {
		_ = os.Remove(tmpPath)
		return eris.Wrap(err, "table: rename into place")
	}

	// The rename itself is only durable once the directory entry is synced.
	d, err := os.Open(dir)
	if err != nil {
		return eris.Wrap(err, "table: open directory")
	}
	if err := d.Sync(); err != nil {
		_ = d.Close()
		return eris.Wrap(err, "table: sync directory")
	}
	if err := d.Close(); err != nil {
		return eris.Wrap(err, "table: close directory")
	}

	return nil
}

// Read loads and validates an artifact from disk.
func Read(path string) (Table, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Table{}, eris.Wrapf(err, "table: read %s", path)
	}

	var t Table
	if err := json.Unmarshal(data, &t); err != nil {
		return Table{}, eris.Wrapf(err, "table: decode %s", path)
	}
	if err := t.Validate(); err != nil {
		return Table{}, err
	}

	return t, nil
}
