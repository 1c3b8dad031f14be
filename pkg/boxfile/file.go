package boxfile

import (
	"fmt"
	"log/slog"
	"os"
	"strings"
)

const utf8BOM = "\ufeff"

// ReadFile loads and parses the box file at path. Unlike Parse it fails
// when the file holds pages beyond heights, since saving the result would
// drop them.
func ReadFile(path string, heights []int) (Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Document{}, fmt.Errorf("failed to read box file: %w", err)
	}

	doc, err := Parse(strings.TrimPrefix(string(data), utf8BOM), heights)
	if err != nil {
		return Document{}, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	if err := doc.Complete(); err != nil {
		return Document{}, fmt.Errorf("refusing to load %s: %w", path, err)
	}

	slog.Info("Loaded box file", "path", path, "pages", len(doc.Pages), "boxes", doc.BoxCount(), "legacy", doc.Legacy)
	return doc, nil
}

// WriteFile serializes doc and writes it to path
func WriteFile(path string, doc Document, heights []int) error {
	content, err := Format(doc, heights)
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		return fmt.Errorf("failed to write box file: %w", err)
	}

	slog.Info("Saved box file", "path", path, "boxes", doc.BoxCount())
	return nil
}
