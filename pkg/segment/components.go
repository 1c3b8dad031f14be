package segment

import (
	"context"
	"fmt"
	"image"
	"image/color"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"log/slog"
	"os"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"

	"github.com/lehigh-university-libraries/tessbox/pkg/box"
)

// Components segments a page image without external tools: dark connected
// components are collected as glyph rectangles and grouped into lines. Only
// the first frame of a multi-page image is read.
type Components struct{}

// NewComponents creates a new connected-component segmenter
func NewComponents() *Components {
	return &Components{}
}

// Name returns the segmenter name
func (c *Components) Name() string {
	return "components"
}

// ValidateConfig validates the components configuration
func (c *Components) ValidateConfig(config Config) error {
	return nil
}

// Lines decodes the image and returns the lines found on page 0
func (c *Components) Lines(ctx context.Context, config Config, imagePath string) (Lines, error) {
	f, err := os.Open(imagePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open image: %w", err)
	}
	defer f.Close()

	img, format, err := image.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("failed to decode image: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	glyphs := FindComponents(img)
	lines := GroupLines(glyphs)
	slog.Info("Component line segmentation completed", "image", imagePath, "format", format, "components", len(glyphs), "lines", len(lines))
	return Lines{0: lines}, nil
}

// FindComponents returns the bounding rectangle of every 8-connected run of
// dark pixels, in image coordinates. Single-pixel specks and components
// larger than half the page width or a fifth of its height (rules, borders)
// are dropped.
func FindComponents(img image.Image) []box.Rect {
	b := img.Bounds()
	width, height := b.Dx(), b.Dy()

	visited := make([]bool, width*height)
	var rects []box.Rect
	var stack []image.Point

	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			if visited[y*width+x] || !isTextPixel(img.At(b.Min.X+x, b.Min.Y+y)) {
				continue
			}

			minX, minY, maxX, maxY := x, y, x, y
			visited[y*width+x] = true
			stack = append(stack[:0], image.Pt(x, y))
			for len(stack) > 0 {
				p := stack[len(stack)-1]
				stack = stack[:len(stack)-1]
				minX, maxX = min(minX, p.X), max(maxX, p.X)
				minY, maxY = min(minY, p.Y), max(maxY, p.Y)

				for dy := -1; dy <= 1; dy++ {
					for dx := -1; dx <= 1; dx++ {
						nx, ny := p.X+dx, p.Y+dy
						if nx < 0 || nx >= width || ny < 0 || ny >= height || visited[ny*width+nx] {
							continue
						}
						if !isTextPixel(img.At(b.Min.X+nx, b.Min.Y+ny)) {
							continue
						}
						visited[ny*width+nx] = true
						stack = append(stack, image.Pt(nx, ny))
					}
				}
			}

			w, h := maxX-minX+1, maxY-minY+1
			if isGlyphSize(w, h, width, height) {
				rects = append(rects, box.Rect{X: float64(minX), Y: float64(minY), Width: float64(w), Height: float64(h)})
			}
		}
	}
	return rects
}

func isTextPixel(c color.Color) bool {
	r, g, b, _ := c.RGBA()
	gray := (r + g + b) / 3
	return gray < 32768
}

func isGlyphSize(w, h, imgWidth, imgHeight int) bool {
	if w < 2 && h < 2 {
		return false
	}
	return w <= max(imgWidth/2, 1) && h <= max(imgHeight/5, 1)
}
