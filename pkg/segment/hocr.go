package segment

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"golang.org/x/net/html"

	"github.com/lehigh-university-libraries/tessbox/pkg/box"
)

var lineClasses = []string{"ocr_line", "ocrx_line", "ocr_header", "ocr_caption", "ocr_textfloat"}

// HOCR reads text lines from an hOCR file produced elsewhere
type HOCR struct{}

// NewHOCR creates a new hOCR segmenter
func NewHOCR() *HOCR {
	return &HOCR{}
}

// Name returns the segmenter name
func (h *HOCR) Name() string {
	return "hocr"
}

// ValidateConfig validates the hOCR configuration
func (h *HOCR) ValidateConfig(config Config) error {
	if config.HOCRPath == "" {
		return errors.New("hocr segmenter requires an hOCR file")
	}
	if _, err := os.Stat(config.HOCRPath); err != nil {
		return fmt.Errorf("hOCR file not readable: %w", err)
	}
	return nil
}

// Lines reads config.HOCRPath; the image itself is not consulted
func (h *HOCR) Lines(ctx context.Context, config Config, imagePath string) (Lines, error) {
	data, err := os.ReadFile(config.HOCRPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read hOCR: %w", err)
	}
	return ParseHOCRLines(data)
}

// ParseHOCRLines walks an hOCR document and returns the bbox of every line
// element, keyed by the order of ocr_page elements
func ParseHOCRLines(data []byte) (Lines, error) {
	doc, err := html.Parse(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to parse hOCR: %w", err)
	}

	lines := Lines{}
	page := -1
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			class := attr(n, "class")
			switch {
			case hasClass(class, "ocr_page"):
				page++
				lines[page] = nil
			case page >= 0 && hasAnyClass(class, lineClasses):
				if r, ok := parseBBox(attr(n, "title")); ok {
					lines[page] = append(lines[page], r)
				}
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)

	if page < 0 {
		return nil, errors.New("no ocr_page elements found in hOCR data")
	}
	return lines, nil
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}

func hasClass(class, want string) bool {
	for _, c := range strings.Fields(class) {
		if c == want {
			return true
		}
	}
	return false
}

func hasAnyClass(class string, want []string) bool {
	for _, w := range want {
		if hasClass(class, w) {
			return true
		}
	}
	return false
}

// parseBBox reads "bbox x1 y1 x2 y2" out of an hOCR title attribute
func parseBBox(title string) (box.Rect, bool) {
	for _, part := range strings.Split(title, ";") {
		items := strings.Fields(part)
		if len(items) < 5 || items[0] != "bbox" {
			continue
		}
		var v [4]float64
		for i := range v {
			f, err := strconv.ParseFloat(items[i+1], 64)
			if err != nil {
				return box.Rect{}, false
			}
			v[i] = f
		}
		return box.NewRect(v[0], v[1], v[2], v[3]), true
	}
	return box.Rect{}, false
}
