package hocr

import (
	"strings"
	"testing"

	"github.com/lehigh-university-libraries/tessbox/pkg/box"
)

func collection(boxes ...box.Box) *box.Collection {
	c := box.NewCollection()
	for _, b := range boxes {
		c.Add(b)
	}
	return c
}

func TestExport(t *testing.T) {
	pages := []*box.Collection{
		collection(
			box.New("H", box.Rect{X: 10, Y: 10, Width: 10, Height: 20}, 0),
			box.New("i", box.Rect{X: 22, Y: 10, Width: 5, Height: 20}, 0),
			box.New("\t", box.Rect{X: 37, Y: 10, Width: 5, Height: 20}, 0),
			box.New("<", box.Rect{X: 10, Y: 40, Width: 10, Height: 20}, 0),
		),
		collection(),
	}

	out, err := Export(pages, []int{100, 80})
	if err != nil {
		t.Fatalf("Export: %v", err)
	}

	tests := []struct {
		name string
		want string
	}{
		{"doctype", "<!DOCTYPE html"},
		{"ocr-system", "content='tessbox'"},
		{"first page", "id='page_1' title='bbox 0 0 27 100; ppageno 0'"},
		{"second page", "id='page_2' title='bbox 0 0 0 80; ppageno 1'"},
		{"first line", "id='line_1_1' title='bbox 10 10 27 30'"},
		{"second line", "id='line_1_2' title='bbox 10 40 20 60'"},
		{"char", "id='char_1_1_2' title='bbox 22 10 27 30'>i</span>"},
		{"escaped", "&lt;</span>"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if !strings.Contains(out, tt.want) {
				t.Errorf("Export() missing %q\n%s", tt.want, out)
			}
		})
	}

	if strings.Contains(out, "\t</span>") {
		t.Error("EOL marker rendered as a character")
	}
}

func TestExportPageMismatch(t *testing.T) {
	if _, err := Export([]*box.Collection{box.NewCollection()}, nil); err == nil {
		t.Error("expected error for missing heights")
	}
}

func TestBuildPageByGeometry(t *testing.T) {
	col := collection(
		box.New("a", box.Rect{X: 0, Y: 0, Width: 10, Height: 20}, 0),
		box.New("b", box.Rect{X: 12, Y: 1, Width: 10, Height: 19}, 0),
		box.New("c", box.Rect{X: 0, Y: 50, Width: 10, Height: 20}, 0),
		box.New("", box.Rect{X: 90, Y: 90, Width: 0, Height: 0}, 0),
	)

	page := BuildPage(0, col, 100)
	if len(page.Lines) != 3 {
		t.Fatalf("got %d lines, want 3", len(page.Lines))
	}
	if len(page.Lines[0].Boxes) != 2 || page.Lines[0].Boxes[1].Character != "b" {
		t.Errorf("first line = %+v", page.Lines[0].Boxes)
	}
	if page.Width != 90 {
		t.Errorf("Width = %d, want 90", page.Width)
	}
}

func TestWrapInHOCRDocument(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"empty content", ""},
		{"simple content", "<div class='ocr_page'></div>"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := WrapInHOCRDocument(tt.content)
			if !strings.Contains(result, "<!DOCTYPE html") {
				t.Errorf("WrapInHOCRDocument() missing DOCTYPE")
			}
			if !strings.Contains(result, tt.content) {
				t.Errorf("WrapInHOCRDocument() missing content")
			}
			if !strings.Contains(result, "ocr-capabilities") {
				t.Errorf("WrapInHOCRDocument() missing ocr-capabilities meta")
			}
		})
	}
}

func TestEscapeText(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"a", "a"},
		{"&", "&amp;"},
		{"<>", "&lt;&gt;"},
		{`"`, "&#34;"},
	}
	for _, tt := range tests {
		if got := EscapeText(tt.input); got != tt.expected {
			t.Errorf("EscapeText(%q) = %q, want %q", tt.input, got, tt.expected)
		}
	}
}
