// Package hocr renders box pages as hOCR documents, one ocrx_cinfo span per
// box, so corrected boxes can be viewed in hOCR tooling.
package hocr

import (
	"fmt"
	"math"
	"strings"

	"golang.org/x/net/html"

	"github.com/lehigh-university-libraries/tessbox/pkg/box"
	"github.com/lehigh-university-libraries/tessbox/pkg/segment"
)

// Export converts box pages to a complete hOCR document
func Export(pages []*box.Collection, heights []int) (string, error) {
	if len(pages) != len(heights) {
		return "", fmt.Errorf("have %d pages but %d page heights", len(pages), len(heights))
	}

	var divs []string
	for i, col := range pages {
		divs = append(divs, renderPage(BuildPage(i, col, heights[i])))
	}
	return WrapInHOCRDocument(strings.Join(divs, "\n")), nil
}

// BuildPage splits a page's boxes into lines. Tab markers end lines and are
// dropped. A page without markers is split by box geometry instead.
func BuildPage(index int, col *box.Collection, height int) Page {
	page := Page{Index: index, Height: height}
	boxes := col.Boxes()

	for _, b := range boxes {
		if b.Character == box.EOLMarker {
			continue
		}
		if w := int(math.Ceil(b.Rect().MaxX())); w > page.Width {
			page.Width = w
		}
	}

	if !hasMarkers(boxes) {
		page.Lines = linesByGeometry(boxes)
		return page
	}

	var current []box.Box
	for _, b := range boxes {
		if b.Character == box.EOLMarker {
			if len(current) > 0 {
				page.Lines = append(page.Lines, newLine(current))
			}
			current = nil
			continue
		}
		current = append(current, b)
	}
	if len(current) > 0 {
		page.Lines = append(page.Lines, newLine(current))
	}
	return page
}

func hasMarkers(boxes []box.Box) bool {
	for _, b := range boxes {
		if b.Character == box.EOLMarker {
			return true
		}
	}
	return false
}

func linesByGeometry(boxes []box.Box) []Line {
	rects := make([]box.Rect, 0, len(boxes))
	for _, b := range boxes {
		rects = append(rects, b.Rect())
	}

	var lines []Line
	for _, lr := range segment.GroupLines(rects) {
		var members []box.Box
		for _, b := range boxes {
			if lr.ContainsRect(b.Rect()) && !claimed(lines, b.ID()) {
				members = append(members, b)
			}
		}
		if len(members) > 0 {
			lines = append(lines, newLine(members))
		}
	}
	for _, b := range boxes {
		if !claimed(lines, b.ID()) {
			lines = append(lines, newLine([]box.Box{b}))
		}
	}
	return lines
}

func claimed(lines []Line, id box.ID) bool {
	for _, l := range lines {
		for _, b := range l.Boxes {
			if b.ID() == id {
				return true
			}
		}
	}
	return false
}

func newLine(boxes []box.Box) Line {
	r := boxes[0].Rect()
	for _, b := range boxes[1:] {
		r = r.Union(b.Rect())
	}
	return Line{Boxes: boxes, Rect: r}
}

func bbox(r box.Rect) string {
	return fmt.Sprintf("bbox %s %s %s %s",
		box.FormatCoord(r.MinX()), box.FormatCoord(r.MinY()),
		box.FormatCoord(r.MaxX()), box.FormatCoord(r.MaxY()))
}

func renderPage(p Page) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "<div class='ocr_page' id='page_%d' title='bbox 0 0 %d %d; ppageno %d'>\n", p.Index+1, p.Width, p.Height, p.Index)
	for li, line := range p.Lines {
		fmt.Fprintf(&sb, "<span class='ocr_line' id='line_%d_%d' title='%s'>", p.Index+1, li+1, bbox(line.Rect))
		for ci, b := range line.Boxes {
			fmt.Fprintf(&sb, "<span class='ocrx_cinfo' id='char_%d_%d_%d' title='%s'>%s</span>",
				p.Index+1, li+1, ci+1, bbox(b.Rect()), EscapeText(b.Character))
		}
		sb.WriteString("</span>\n")
	}
	sb.WriteString("</div>")
	return sb.String()
}

// WrapInHOCRDocument wraps content in a complete hOCR HTML document
func WrapInHOCRDocument(content string) string {
	return fmt.Sprintf(`<!DOCTYPE html PUBLIC "-//W3C//DTD XHTML 1.0 Transitional//EN" "http://www.w3.org/TR/xhtml1/DTD/xhtml1-transitional.dtd">
<html xmlns="http://www.w3.org/1999/xhtml" xml:lang="en" lang="en">
<head>
<title></title>
<meta http-equiv="Content-Type" content="text/html;charset=utf-8" />
<meta name='ocr-system' content='tessbox' />
<meta name='ocr-capabilities' content='ocr_page ocr_line ocrx_cinfo' />
</head>
<body>
%s
</body>
</html>`, content)
}

// EscapeText makes box characters safe inside an XML text node
func EscapeText(s string) string {
	return html.EscapeString(s)
}
