package hocr

import "github.com/lehigh-university-libraries/tessbox/pkg/box"

// Page is one ocr_page element
type Page struct {
	Index  int
	Width  int
	Height int
	Lines  []Line
}

// Line is a run of boxes ending at an end-of-line marker
type Line struct {
	Boxes []box.Box
	Rect  box.Rect
}
