package box

import (
	"errors"
	"fmt"

	"github.com/lehigh-university-libraries/tessbox/pkg/textutil"
)

var (
	// ErrSelection is matched by every SelectionError
	ErrSelection = errors.New("invalid selection")
	// ErrInvalidRect is returned by SetRect for a negative width or height
	ErrInvalidRect = errors.New("box width and height must not be negative")
)

// Op names an editing operation
type Op string

const (
	OpMerge  Op = "merge"
	OpSplit  Op = "split"
	OpInsert Op = "insert"
	OpDelete Op = "delete"
	OpEdit   Op = "edit"
)

// SelectionError reports that an edit was refused because of the number of
// selected boxes. Nothing is mutated when it is returned.
type SelectionError struct {
	Op       Op
	Selected int
}

func (e *SelectionError) Error() string {
	switch e.Op {
	case OpMerge:
		return "Please select more than one box for Merge operation."
	case OpSplit:
		if e.Selected == 0 {
			return "Please select a box to split."
		}
		return "Please select only one box for Split operation."
	case OpInsert:
		if e.Selected == 0 {
			return "Please select the box to insert after."
		}
		return "Please select only one box for Insert operation."
	case OpDelete:
		return "Please select a box or more to delete."
	case OpEdit:
		if e.Selected == 0 {
			return "Please select a box to edit."
		}
		return "Please select only one box to edit."
	}
	return fmt.Sprintf("%s: %d boxes selected", e.Op, e.Selected)
}

func (e *SelectionError) Unwrap() error {
	return ErrSelection
}

const (
	// InsertOffset is how far right of the selected box a new box is placed
	InsertOffset = 15
	// EOLOffset is the gap between the last box of a line and its marker
	EOLOffset = 10
	// EOLMarker is the character of a synthetic end-of-line box
	EOLMarker = "\t"
	// BlankCharacter is the character of a placeholder box
	BlankCharacter = " "
)

// DefaultRect is the placeholder inserted into an empty page
var DefaultRect = Rect{X: 0, Y: 0, Width: 20, Height: 30}

// Merge replaces the selected boxes with one box covering all of them.
//
// Characters are concatenated in selection order and the page comes from the
// last selected box. The merged box lands where the last removed box was at
// the moment it was removed, and becomes the only selection.
func (c *Collection) Merge() (Box, error) {
	selected := c.Selected()
	if len(selected) < 2 {
		return Box{}, &SelectionError{Op: OpMerge, Selected: len(selected)}
	}

	var chars string
	var page, index int
	rect := selected[0].rect
	for _, b := range selected {
		chars += b.Character
		page = b.Page
		index = c.IndexOf(b.id)
		rect = rect.Union(b.rect)
		c.Remove(b.id)
	}

	merged := New(chars, rect, page)
	merged.Selected = true
	id, err := c.Insert(index, merged)
	if err != nil {
		return Box{}, err
	}
	c.SelectOnly(id)
	out, _ := c.Get(id)
	return out, nil
}

// Split cuts the single selected box in half along its width. The first half
// keeps the original id and position; the second half follows it.
func (c *Collection) Split() (Box, Box, error) {
	selected := c.Selected()
	if len(selected) != 1 {
		return Box{}, Box{}, &SelectionError{Op: OpSplit, Selected: len(selected)}
	}

	b := selected[0]
	index := c.IndexOf(b.id)
	r := b.rect
	w := r.Width / 2

	c.Update(b.id, func(first *Box) {
		first.SetRect(Rect{X: r.X, Y: r.Y, Width: w, Height: r.Height})
	})
	second := New(b.Character, Rect{X: r.X + w, Y: r.Y, Width: w, Height: r.Height}, b.Page)
	id, err := c.Insert(index+1, second)
	if err != nil {
		return Box{}, Box{}, err
	}
	c.SelectOnly(b.id)

	first, _ := c.Get(b.id)
	second, _ = c.Get(id)
	return first, second, nil
}

// InsertAfterSelected adds a blank placeholder box. An empty collection gets
// one at the origin; otherwise the new box follows the single selected box,
// offset to its right and sharing its size and page. The new box becomes the
// selection.
func (c *Collection) InsertAfterSelected() (Box, error) {
	var nb Box
	index := 0

	if c.Len() == 0 {
		nb = New(BlankCharacter, DefaultRect, 0)
	} else {
		selected := c.Selected()
		if len(selected) != 1 {
			return Box{}, &SelectionError{Op: OpInsert, Selected: len(selected)}
		}
		b := selected[0]
		index = c.IndexOf(b.id) + 1
		nb = New(BlankCharacter, Rect{
			X:      float64(b.X() + InsertOffset),
			Y:      float64(b.Y()),
			Width:  float64(b.Width()),
			Height: float64(b.Height()),
		}, b.Page)
	}

	id, err := c.Insert(index, nb)
	if err != nil {
		return Box{}, err
	}
	c.SelectOnly(id)
	out, _ := c.Get(id)
	return out, nil
}

// Delete removes every selected box and returns them
func (c *Collection) Delete() ([]Box, error) {
	selected := c.Selected()
	if len(selected) == 0 {
		return nil, &SelectionError{Op: OpDelete}
	}
	for _, b := range selected {
		c.Remove(b.id)
	}
	c.DeselectAll()
	for i := range selected {
		selected[i].Selected = false
	}
	return selected, nil
}

// RemoveBlank drops every box whose character is a single space and returns
// how many were removed
func (c *Collection) RemoveBlank() int {
	kept := c.boxes[:0]
	removed := 0
	for _, b := range c.boxes {
		if b.Character == BlankCharacter {
			removed++
			continue
		}
		kept = append(kept, b)
	}
	c.boxes = kept
	return removed
}

// MarkEndOfLines inserts an EOL marker box after the last box fully inside
// each text-line rectangle. Lines containing no box are skipped. It returns
// the number of markers inserted.
func (c *Collection) MarkEndOfLines(lines []Rect, page int) int {
	inserted := 0
	for _, line := range lines {
		last := -1
		for i, b := range c.boxes {
			if line.ContainsRect(b.rect) {
				last = i
			}
		}
		if last < 0 {
			continue
		}
		r := c.boxes[last].rect
		marker := New(EOLMarker, Rect{X: r.MaxX() + EOLOffset, Y: r.Y, Width: r.Width, Height: r.Height}, page)
		if _, err := c.Insert(last+1, marker); err == nil {
			inserted++
		}
	}
	return inserted
}

// SetCharacter replaces the character of the single selected box. NCR
// (&#x41;) and \u0041 escapes in chars are decoded first.
func (c *Collection) SetCharacter(chars string) (Box, error) {
	b, err := c.selectedOne(OpEdit)
	if err != nil {
		return Box{}, err
	}
	c.Update(b.id, func(nb *Box) { nb.Character = textutil.DecodeEscapes(chars) })
	out, _ := c.Get(b.id)
	return out, nil
}

// SetRect moves and resizes the single selected box
func (c *Collection) SetRect(r Rect) (Box, error) {
	b, err := c.selectedOne(OpEdit)
	if err != nil {
		return Box{}, err
	}
	if r.Width < 0 || r.Height < 0 {
		return Box{}, ErrInvalidRect
	}
	c.Update(b.id, func(nb *Box) { nb.rect = r })
	out, _ := c.Get(b.id)
	return out, nil
}

func (c *Collection) selectedOne(op Op) (Box, error) {
	selected := c.Selected()
	if len(selected) != 1 {
		return Box{}, &SelectionError{Op: op, Selected: len(selected)}
	}
	return selected[0], nil
}
