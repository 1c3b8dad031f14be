package segment

import (
	"context"
	"errors"
	"math"
	"sort"

	"github.com/lehigh-university-libraries/tessbox/pkg/box"
)

// Layout infers text lines from the geometry of the boxes already on each
// page. It needs no external tool.
type Layout struct{}

// NewLayout creates a new layout segmenter
func NewLayout() *Layout {
	return &Layout{}
}

// Name returns the segmenter name
func (l *Layout) Name() string {
	return "layout"
}

// ValidateConfig validates the layout configuration
func (l *Layout) ValidateConfig(config Config) error {
	if config.Boxes == nil {
		return errors.New("layout segmenter requires the page boxes")
	}
	return nil
}

// Lines groups config.Boxes page by page; the image is not consulted
func (l *Layout) Lines(ctx context.Context, config Config, imagePath string) (Lines, error) {
	if err := l.ValidateConfig(config); err != nil {
		return nil, err
	}
	lines := Lines{}
	for page, rects := range config.Boxes {
		lines[page] = GroupLines(rects)
	}
	return lines, nil
}

// GroupLines clusters rectangles into text lines and returns the bounding
// rectangle of each line, top to bottom. A rectangle joins the current line
// when it overlaps the line's vertical extent widened by a third of the
// average height of the rectangles already in it.
func GroupLines(rects []box.Rect) []box.Rect {
	if len(rects) == 0 {
		return nil
	}

	sorted := make([]box.Rect, 0, len(rects))
	for _, r := range rects {
		if r.Width > 0 && r.Height > 0 {
			sorted = append(sorted, r)
		}
	}
	sort.SliceStable(sorted, func(i, j int) bool {
		if math.Abs(sorted[i].Y-sorted[j].Y) < sorted[i].Height/2 {
			return sorted[i].X < sorted[j].X
		}
		return sorted[i].Y < sorted[j].Y
	})

	var lines []box.Rect
	var current []box.Rect
	for _, r := range sorted {
		if len(current) == 0 || onSameLine(current, r) {
			current = append(current, r)
			continue
		}
		lines = append(lines, bounds(current))
		current = []box.Rect{r}
	}
	if len(current) > 0 {
		lines = append(lines, bounds(current))
	}
	return lines
}

func onSameLine(current []box.Rect, r box.Rect) bool {
	avgHeight := 0.0
	line := bounds(current)
	for _, c := range current {
		avgHeight += c.Height
	}
	avgHeight /= float64(len(current))

	tolerance := avgHeight / 3
	return r.MaxY() >= line.MinY()-tolerance && r.MinY() <= line.MaxY()+tolerance
}

func bounds(rects []box.Rect) box.Rect {
	out := rects[0]
	for _, r := range rects[1:] {
		out = out.Union(r)
	}
	return out
}
