// Package segment finds text-line regions on page images. End-of-line
// marking uses the regions to decide where each line of boxes ends.
package segment

import (
	"context"
	"time"

	"github.com/lehigh-university-libraries/tessbox/pkg/box"
)

// Config represents the configuration for a segmenter
type Config struct {
	Segmenter string
	// Language is the Tesseract language code, e.g. "eng"
	Language string
	// PageSegMode is the Tesseract --psm value
	PageSegMode int
	// HOCRPath points at an existing hOCR file for the hocr segmenter
	HOCRPath string
	// Boxes holds the box rectangles of each page for the layout segmenter
	Boxes   map[int][]box.Rect
	Timeout time.Duration
}

// Lines maps a zero-based page index to the text-line rectangles found on it,
// in display space
type Lines map[int][]box.Rect

// Segmenter interface that all line segmenters must implement
type Segmenter interface {
	// Lines returns the text lines of every page in the image
	Lines(ctx context.Context, config Config, imagePath string) (Lines, error)
	// Name returns the segmenter's name
	Name() string
	// ValidateConfig validates the segmenter-specific configuration
	ValidateConfig(config Config) error
}
