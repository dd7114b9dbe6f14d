package storage

import (
	"encoding/json"
	"os"
	"path/filepath"

	"sjsage522/vehiclecrawler/internal/crawler"
	crawlerrors "sjsage522/vehiclecrawler/pkg/errors"
)

// JSONWriter persists the listings of a run as a JSON array
type JSONWriter struct {
	path string
}

// NewJSONWriter creates a writer for path
func NewJSONWriter(path string) *JSONWriter {
	return &JSONWriter{path: path}
}

// Path returns the output path
func (w *JSONWriter) Path() string {
	return w.path
}

// Write replaces the output file with listings, creating parent directories as needed.
// The file is written to a temporary sibling first and renamed into place.
func (w *JSONWriter) Write(listings []crawler.Listing) error {
	if listings == nil {
		listings = []crawler.Listing{}
	}

	dir := filepath.Dir(w.path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return crawlerrors.NewPersistence(w.path, "failed to create output directory", err)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(w.path)+".*.tmp")
	if err != nil {
		return crawlerrors.NewPersistence(w.path, "failed to create temporary file", err)
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath)

	encoder := json.NewEncoder(tmp)
	encoder.SetIndent("", "    ")
	encoder.SetEscapeHTML(false)
	if err := encoder.Encode(listings); err != nil {
		tmp.Close()
		return crawlerrors.NewPersistence(w.path, "failed to encode listings", err)
	}

	if err := tmp.Close(); err != nil {
		return crawlerrors.NewPersistence(w.path, "failed to flush output", err)
	}

	if err := os.Chmod(tmpPath, 0644); err != nil {
		return crawlerrors.NewPersistence(w.path, "failed to set output permissions", err)
	}

	if err := os.Rename(tmpPath, w.path); err != nil {
		return crawlerrors.NewPersistence(w.path, "failed to replace output file", err)
	}
	return nil
}

// Load reads listings previously written to path
func Load(path string) ([]crawler.Listing, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, crawlerrors.NewPersistence(path, "failed to read output file", err)
	}

	var listings []crawler.Listing
	if err := json.Unmarshal(data, &listings); err != nil {
		return nil, crawlerrors.NewPersistence(path, "malformed output file", err)
	}
	return listings, nil
}
