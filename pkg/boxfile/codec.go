// Package boxfile reads and writes Tesseract box files.
//
// A box file holds one record per line:
//
//	<chars> <x1> <y1> <x2> <y2> [<page>]
//
// Coordinates are in file space, with the origin at the bottom-left of the
// page image. The five-field form predates multi-page files and implies
// page 0. In memory boxes live in display space (origin top-left), so every
// conversion needs the height of the page the box sits on.
package boxfile

import (
	"fmt"
	"log/slog"
	"runtime"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/lehigh-university-libraries/tessbox/pkg/box"
)

const (
	legacyFields = 5
	modernFields = 6
)

// EOL is the line terminator written by Format
var EOL = "\n"

func init() {
	if runtime.GOOS == "windows" {
		EOL = "\r\n"
	}
}

// Document is a parsed box file: one collection per page image, in page
// order, plus the record format the file was written in.
type Document struct {
	Pages []*box.Collection
	// Legacy is set when the file used five-field records
	Legacy bool
	// Unread counts records left after the last page was filled, starting
	// with one for page UnreadPage. Formatting the document drops them.
	Unread     int
	UnreadPage int
}

// Complete returns a *PageCountError when records were left unread because
// there were fewer page heights than pages in the file
func (d Document) Complete() error {
	if d.Unread == 0 {
		return nil
	}
	return &PageCountError{Pages: len(d.Pages), Page: d.UnreadPage, Records: d.Unread}
}

// BoxCount returns the number of boxes across all pages
func (d Document) BoxCount() int {
	n := 0
	for _, p := range d.Pages {
		n += p.Len()
	}
	return n
}

// FormatError reports a record whose numeric fields could not be read
type FormatError struct {
	Line    int
	Content string
	Err     error
}

func (e *FormatError) Error() string {
	return fmt.Sprintf("box file line %d %q: %v", e.Line, e.Content, e.Err)
}

func (e *FormatError) Unwrap() error {
	return e.Err
}

// PageCountError reports records for pages that have no page height
type PageCountError struct {
	Pages   int
	Page    int
	Records int
}

func (e *PageCountError) Error() string {
	return fmt.Sprintf("box file has %d records from page %d on, but only %d page heights are known", e.Records, e.Page, e.Pages)
}

// DisplayY converts the bottom edge of a box in file space to its top edge in
// display space
func DisplayY(fileY, height, pageHeight float64) float64 {
	return pageHeight - fileY - height
}

// FileY converts the top edge of a box in display space to its bottom edge in
// file space. It is the inverse of DisplayY for the same height and page.
func FileY(displayY, height, pageHeight float64) float64 {
	return pageHeight - displayY - height
}

// IsLegacy reports whether content uses five-field records. Only the first
// non-empty line is inspected; files mixing both forms are not supported.
func IsLegacy(content string) bool {
	for _, line := range strings.Split(content, "\n") {
		fields := splitRecord(line)
		if len(fields) == 0 {
			continue
		}
		return len(fields) == legacyFields
	}
	return false
}

// Parse reads box file content into one collection per page height.
//
// Lines are consumed in a single forward pass: a record whose page field is
// beyond the page being filled ends that page and is read again for the
// next one. Records with fewer than five or more than six fields are skipped.
// A non-numeric coordinate or page field fails the whole parse. Records
// after the last page are counted in Unread; see Document.Complete.
func Parse(content string, heights []int) (Document, error) {
	doc := Document{
		Pages:  make([]*box.Collection, 0, len(heights)),
		Legacy: IsLegacy(content),
	}
	lines := strings.Split(content, "\n")

	cursor := 0
	for page, height := range heights {
		col, next, err := parsePage(lines, cursor, page, height)
		if err != nil {
			return Document{}, err
		}
		cursor = next
		doc.Pages = append(doc.Pages, col)
		slog.Debug("Parsed box page", "page", page, "boxes", col.Len())
	}

	doc.Unread, doc.UnreadPage = countUnread(lines[min(cursor, len(lines)):])
	if doc.Unread > 0 {
		slog.Warn("Box file has records past the last page", "records", doc.Unread, "page", doc.UnreadPage, "pages", len(heights))
	}

	return doc, nil
}

// countUnread counts well-formed records in lines and returns the page of
// the first one
func countUnread(lines []string) (int, int) {
	n, first := 0, 0
	for _, line := range lines {
		fields := splitRecord(line)
		if len(fields) < legacyFields || len(fields) > modernFields {
			continue
		}
		if n == 0 && len(fields) == modernFields {
			first, _ = strconv.Atoi(fields[5])
		}
		n++
	}
	return n, first
}

// parsePage fills the collection for one page starting at line cursor and
// returns the line the next page should start from
func parsePage(lines []string, cursor, page, pageHeight int) (*box.Collection, int, error) {
	col := box.NewCollection()
	for i := cursor; i < len(lines); i++ {
		fields := splitRecord(lines[i])
		if len(fields) < legacyFields || len(fields) > modernFields {
			if len(fields) > 0 {
				slog.Debug("Skipping box record", "line", i+1, "fields", len(fields))
			}
			continue
		}

		coords := [4]int{}
		for j := range coords {
			v, err := strconv.Atoi(fields[j+1])
			if err != nil {
				return nil, 0, &FormatError{Line: i + 1, Content: lines[i], Err: err}
			}
			coords[j] = v
		}

		recordPage := 0
		if len(fields) == modernFields {
			v, err := strconv.Atoi(fields[5])
			if err != nil {
				return nil, 0, &FormatError{Line: i + 1, Content: lines[i], Err: err}
			}
			recordPage = v
		}
		if recordPage > page {
			return col, i, nil
		}

		x1, y1, x2, y2 := coords[0], coords[1], coords[2], coords[3]
		w := float64(x2 - x1)
		h := float64(y2 - y1)
		y := DisplayY(float64(y1), h, float64(pageHeight))
		col.Add(box.New(fields[0], box.Rect{X: float64(x1), Y: y, Width: w, Height: h}, recordPage))
	}
	return col, len(lines), nil
}

// splitRecord splits a line on runs of whitespace. A line that opens with a
// whitespace character followed by more whitespace is a record for that
// character (a blank or an end-of-line tab); a line that opens with a single
// whitespace character has an empty first field.
func splitRecord(line string) []string {
	line = strings.TrimRight(line, "\r")
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return nil
	}
	r, size := utf8.DecodeRuneInString(line)
	if !unicode.IsSpace(r) {
		return fields
	}
	next, _ := utf8.DecodeRuneInString(line[size:])
	if unicode.IsSpace(next) {
		return append([]string{string(r)}, fields...)
	}
	return append([]string{""}, fields...)
}

// Format writes doc back to box file text using the package EOL
func Format(doc Document, heights []int) (string, error) {
	return FormatWithEOL(doc, heights, EOL)
}

// FormatWithEOL writes doc back to box file text.
//
// Each box becomes "<chars> <x1> <y1> <x2> <y2> <page>" in file space, using
// the index of the collection it sits in as the page. Legacy documents have
// the trailing " 0" page column removed so an untouched file round-trips
// byte for byte.
func FormatWithEOL(doc Document, heights []int, eol string) (string, error) {
	if len(doc.Pages) != len(heights) {
		return "", fmt.Errorf("have %d pages but %d page heights", len(doc.Pages), len(heights))
	}

	var sb strings.Builder
	for page, col := range doc.Pages {
		pageHeight := float64(heights[page])
		for _, b := range col.Boxes() {
			r := b.Rect()
			sb.WriteString(b.Character)
			sb.WriteByte(' ')
			sb.WriteString(box.FormatCoord(r.MinX()))
			sb.WriteByte(' ')
			sb.WriteString(box.FormatCoord(FileY(r.MinY(), r.Height, pageHeight)))
			sb.WriteByte(' ')
			sb.WriteString(box.FormatCoord(r.MinX() + r.Width))
			sb.WriteByte(' ')
			sb.WriteString(box.FormatCoord(pageHeight - r.MinY()))
			sb.WriteByte(' ')
			sb.WriteString(strconv.Itoa(page))
			sb.WriteString(eol)
		}
	}

	out := sb.String()
	if doc.Legacy {
		out = strings.ReplaceAll(out, " 0"+eol, eol)
	}
	return out, nil
}

// StripBlankRecords removes every line that starts with whitespace. Box
// files produced by text2image carry such lines for spaces between words.
func StripBlankRecords(content string) string {
	lines := strings.SplitAfter(content, "\n")
	var sb strings.Builder
	for _, line := range lines {
		if line == "" {
			continue
		}
		r, _ := utf8.DecodeRuneInString(line)
		if unicode.IsSpace(r) {
			continue
		}
		sb.WriteString(line)
	}
	return sb.String()
}
