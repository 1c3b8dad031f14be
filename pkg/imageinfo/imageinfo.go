// Package imageinfo discovers the page dimensions of scanned images. Box
// coordinates are flipped against page heights, so every box file load
// starts here.
package imageinfo

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	_ "golang.org/x/image/bmp"
	"golang.org/x/image/tiff"
)

// Dimension is the pixel size of one page
type Dimension struct {
	Width  int `json:"width" yaml:"width"`
	Height int `json:"height" yaml:"height"`
}

// MagickCommand is the ImageMagick binary used to enumerate TIFF frames
func MagickCommand() string {
	if cmd := os.Getenv("MAGICK_CMD"); cmd != "" {
		return cmd
	}
	return "magick"
}

// Pages returns the dimensions of every page in the image at path. Multi-page
// TIFFs are enumerated with ImageMagick; when it is unavailable only the
// first frame is reported.
func Pages(ctx context.Context, path string) ([]Dimension, error) {
	if isTIFF(path) {
		dims, err := identifyFrames(ctx, path)
		if err == nil {
			return dims, nil
		}
		slog.Warn("Unable to enumerate TIFF frames, using first frame only", "image", path, "err", err)
		return firstTIFFFrame(path)
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open image: %w", err)
	}
	defer f.Close()

	cfg, _, err := image.DecodeConfig(f)
	if err != nil {
		return nil, fmt.Errorf("failed to decode image config: %w", err)
	}
	return []Dimension{{Width: cfg.Width, Height: cfg.Height}}, nil
}

// Heights returns the page heights of the image at path
func Heights(ctx context.Context, path string) ([]int, error) {
	dims, err := Pages(ctx, path)
	if err != nil {
		return nil, err
	}
	return HeightsOf(dims), nil
}

// HeightsOf projects page heights out of dims
func HeightsOf(dims []Dimension) []int {
	heights := make([]int, len(dims))
	for i, d := range dims {
		heights[i] = d.Height
	}
	return heights
}

// BoxPath returns the box file that sits next to an image
func BoxPath(imagePath string) string {
	return strings.TrimSuffix(imagePath, filepath.Ext(imagePath)) + ".box"
}

func isTIFF(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	return ext == ".tif" || ext == ".tiff"
}

func identifyFrames(ctx context.Context, path string) ([]Dimension, error) {
	cmd := exec.CommandContext(ctx, MagickCommand(), "identify", "-format", "%w %h\n", path)
	output, err := cmd.Output()
	if err != nil {
		return nil, fmt.Errorf("failed to identify image: %w", err)
	}
	return parseIdentify(string(output))
}

// parseIdentify reads "width height" lines, one per frame
func parseIdentify(output string) ([]Dimension, error) {
	var dims []Dimension
	scanner := bufio.NewScanner(strings.NewReader(output))
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		var d Dimension
		if _, err := fmt.Sscanf(line, "%d %d", &d.Width, &d.Height); err != nil {
			return nil, fmt.Errorf("failed to parse dimensions %q: %w", line, err)
		}
		dims = append(dims, d)
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	if len(dims) == 0 {
		return nil, errors.New("no frames reported")
	}
	return dims, nil
}

func firstTIFFFrame(path string) ([]Dimension, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open image: %w", err)
	}
	defer f.Close()

	cfg, err := tiff.DecodeConfig(f)
	if err != nil {
		return nil, fmt.Errorf("failed to decode tiff config: %w", err)
	}
	return []Dimension{{Width: cfg.Width, Height: cfg.Height}}, nil
}
