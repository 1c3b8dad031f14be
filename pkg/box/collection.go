package box

import (
	"fmt"
	"strings"
)

// Collection is the ordered set of boxes for one page.
//
// Order drives drawing, serialization and hit-testing: a later box is drawn
// on top of an earlier one. A Collection is not safe for concurrent use.
type Collection struct {
	boxes  []Box
	nextID ID
}

// NewCollection returns an empty collection
func NewCollection() *Collection {
	return &Collection{}
}

// Len returns the number of boxes
func (c *Collection) Len() int {
	return len(c.boxes)
}

// Boxes returns a copy of the boxes in collection order
func (c *Collection) Boxes() []Box {
	out := make([]Box, len(c.boxes))
	copy(out, c.boxes)
	return out
}

// At returns the box at index i
func (c *Collection) At(i int) (Box, bool) {
	if i < 0 || i >= len(c.boxes) {
		return Box{}, false
	}
	return c.boxes[i], true
}

// Get returns the box with the given id
func (c *Collection) Get(id ID) (Box, bool) {
	i := c.IndexOf(id)
	if i < 0 {
		return Box{}, false
	}
	return c.boxes[i], true
}

// IndexOf returns the position of the box with the given id, or -1
func (c *Collection) IndexOf(id ID) int {
	for i := range c.boxes {
		if c.boxes[i].id == id {
			return i
		}
	}
	return -1
}

// Add appends b and returns its assigned id
func (c *Collection) Add(b Box) ID {
	b.id = c.newID()
	c.boxes = append(c.boxes, b)
	return b.id
}

// Insert places b at index i, shifting later boxes along
func (c *Collection) Insert(i int, b Box) (ID, error) {
	if i < 0 || i > len(c.boxes) {
		return 0, fmt.Errorf("insert index %d out of range [0,%d]", i, len(c.boxes))
	}
	b.id = c.newID()
	c.boxes = append(c.boxes, Box{})
	copy(c.boxes[i+1:], c.boxes[i:])
	c.boxes[i] = b
	return b.id, nil
}

// Remove deletes the box with the given id and reports whether it was present
func (c *Collection) Remove(id ID) bool {
	i := c.IndexOf(id)
	if i < 0 {
		return false
	}
	c.boxes = append(c.boxes[:i], c.boxes[i+1:]...)
	return true
}

// Update applies fn to the stored box with the given id. The id is preserved
// whatever fn does to the copy it receives.
func (c *Collection) Update(id ID, fn func(*Box)) bool {
	i := c.IndexOf(id)
	if i < 0 {
		return false
	}
	fn(&c.boxes[i])
	c.boxes[i].id = id
	return true
}

// SetSelected flags or unflags a single box
func (c *Collection) SetSelected(id ID, selected bool) bool {
	return c.Update(id, func(b *Box) { b.Selected = selected })
}

// SelectOnly makes ids the whole selection
func (c *Collection) SelectOnly(ids ...ID) {
	want := make(map[ID]bool, len(ids))
	for _, id := range ids {
		want[id] = true
	}
	for i := range c.boxes {
		c.boxes[i].Selected = want[c.boxes[i].id]
	}
}

// DeselectAll clears the selection
func (c *Collection) DeselectAll() {
	for i := range c.boxes {
		c.boxes[i].Selected = false
	}
}

// Selected returns the selected boxes in collection order
func (c *Collection) Selected() []Box {
	var out []Box
	for _, b := range c.boxes {
		if b.Selected {
			out = append(out, b)
		}
	}
	return out
}

// BoxAt returns the topmost box containing p, that is the last one in
// collection order
func (c *Collection) BoxAt(p Point) (Box, bool) {
	for i := len(c.boxes) - 1; i >= 0; i-- {
		if c.boxes[i].Contains(p) {
			return c.boxes[i], true
		}
	}
	return Box{}, false
}

// FindByRect selects and returns the first box on query.Page whose rectangle
// equals the query rectangle
func (c *Collection) FindByRect(query Box) (Box, bool) {
	for _, b := range c.boxes {
		if b.Page == query.Page && b.rect == query.rect {
			c.SelectOnly(b.id)
			b.Selected = true
			return b, true
		}
	}
	return Box{}, false
}

// FindByChars looks for chars on the given page. A box whose character equals
// chars wins; otherwise the first run of adjacent boxes spelling chars is
// used. The match becomes the selection and its first box is returned.
func (c *Collection) FindByChars(chars string, page int) (Box, bool) {
	if chars == "" {
		return Box{}, false
	}
	for _, b := range c.boxes {
		if b.Page == page && b.Character == chars {
			c.SelectOnly(b.id)
			b.Selected = true
			return b, true
		}
	}

	for start := range c.boxes {
		if c.boxes[start].Page != page || c.boxes[start].Character == "" {
			continue
		}
		if !strings.HasPrefix(chars, c.boxes[start].Character) {
			continue
		}
		var sb strings.Builder
		var ids []ID
		for i := start; i < len(c.boxes) && c.boxes[i].Page == page; i++ {
			sb.WriteString(c.boxes[i].Character)
			ids = append(ids, c.boxes[i].id)
			s := sb.String()
			if s == chars {
				c.SelectOnly(ids...)
				first := c.boxes[start]
				return first, true
			}
			if !strings.HasPrefix(chars, s) {
				break
			}
		}
	}
	return Box{}, false
}

func (c *Collection) newID() ID {
	c.nextID++
	return c.nextID
}
