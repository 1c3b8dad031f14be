package boxfile

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/lehigh-university-libraries/tessbox/pkg/box"
	"github.com/lehigh-university-libraries/tessbox/pkg/textutil"
)

// ErrInvalidQuery is returned for search input that is neither characters
// nor four coordinates
var ErrInvalidQuery = errors.New("Please enter box character(s) or coordinates (x1 y1 x2 y2).")

// Query is a parsed search for a box on one page
type Query struct {
	// Chars is set for a character search
	Chars string
	// Rect is the display-space target of a coordinate search
	Rect   box.Rect
	ByRect bool
	Page   int
}

// ParseQuery reads search input. A single token is a character search and may
// contain NCR or \u escapes. Four tokens are file-space x1 y1 x2 y2
// coordinates, flipped into display space with pageHeight.
func ParseQuery(input string, page, pageHeight int) (Query, error) {
	items := strings.Fields(input)
	switch len(items) {
	case 1:
		return Query{Chars: textutil.DecodeEscapes(items[0]), Page: page}, nil
	case 4:
		var v [4]int
		for i, item := range items {
			n, err := strconv.Atoi(item)
			if err != nil {
				return Query{}, fmt.Errorf("%w: %v", ErrInvalidQuery, err)
			}
			v[i] = n
		}
		w := float64(v[2] - v[0])
		h := float64(v[3] - v[1])
		return Query{
			Rect:   box.Rect{X: float64(v[0]), Y: DisplayY(float64(v[1]), h, float64(pageHeight)), Width: w, Height: h},
			ByRect: true,
			Page:   page,
		}, nil
	}
	return Query{}, ErrInvalidQuery
}

// Run searches c, selecting the match. A miss clears the selection so a
// following edit cannot act on boxes picked before the search.
func (q Query) Run(c *box.Collection) (box.Box, bool) {
	var (
		b  box.Box
		ok bool
	)
	if q.ByRect {
		b, ok = c.FindByRect(box.New("", q.Rect, q.Page))
	} else {
		b, ok = c.FindByChars(q.Chars, q.Page)
	}
	if !ok {
		c.DeselectAll()
	}
	return b, ok
}

// NotFoundMessage is the text shown when Run finds nothing
func (q Query) NotFoundMessage() string {
	what := "character(s)"
	if q.ByRect {
		what = "coordinates"
	}
	return fmt.Sprintf("No box with the specified %s was found.", what)
}
