package segment

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"strconv"
	"strings"
	"time"

	"github.com/lehigh-university-libraries/tessbox/pkg/box"
)

// tsvLineLevel is the TSV "level" of a text line
const tsvLineLevel = 4

// Tesseract segments pages by running the tesseract binary in TSV mode
type Tesseract struct{}

// NewTesseract creates a new Tesseract segmenter
func NewTesseract() *Tesseract {
	return &Tesseract{}
}

// Name returns the segmenter name
func (t *Tesseract) Name() string {
	return "tesseract"
}

// Command returns the tesseract binary to run
func (t *Tesseract) Command() string {
	if cmd := os.Getenv("TESSERACT_CMD"); cmd != "" {
		return cmd
	}
	return "tesseract"
}

// ValidateConfig validates the Tesseract configuration
func (t *Tesseract) ValidateConfig(config Config) error {
	if config.PageSegMode < 0 || config.PageSegMode > 13 {
		return fmt.Errorf("page segmentation mode %d out of range 0-13", config.PageSegMode)
	}
	if _, err := exec.LookPath(t.Command()); err != nil {
		return fmt.Errorf("tesseract binary not available: %w", err)
	}
	return nil
}

// Lines runs tesseract on the image and collects its text-line rows
func (t *Tesseract) Lines(ctx context.Context, config Config, imagePath string) (Lines, error) {
	if config.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, config.Timeout)
		defer cancel()
	}

	args := []string{imagePath, "stdout"}
	if config.Language != "" {
		args = append(args, "-l", config.Language)
	}
	if config.PageSegMode > 0 {
		args = append(args, "--psm", strconv.Itoa(config.PageSegMode))
	}
	args = append(args, "tsv")

	start := time.Now()
	cmd := exec.CommandContext(ctx, t.Command(), args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	output, err := cmd.Output()
	if err != nil {
		return nil, fmt.Errorf("tesseract failed: %w: %s", err, strings.TrimSpace(stderr.String()))
	}

	lines, err := ParseTSV(output)
	if err != nil {
		return nil, err
	}
	slog.Info("Tesseract line segmentation completed", "image", imagePath, "pages", len(lines), "duration", time.Since(start))
	return lines, nil
}

// ParseTSV extracts text-line rectangles from tesseract TSV output
func ParseTSV(data []byte) (Lines, error) {
	lines := Lines{}
	scanner := bufio.NewScanner(bytes.NewReader(data))
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	row := 0
	for scanner.Scan() {
		row++
		fields := strings.Split(scanner.Text(), "\t")
		if len(fields) < 10 || fields[0] == "level" {
			continue
		}

		level, err := strconv.Atoi(fields[0])
		if err != nil {
			return nil, fmt.Errorf("tsv row %d: bad level: %w", row, err)
		}
		if level != tsvLineLevel {
			continue
		}

		var v [5]int
		for i, idx := range []int{1, 6, 7, 8, 9} {
			n, err := strconv.Atoi(fields[idx])
			if err != nil {
				return nil, fmt.Errorf("tsv row %d: bad field %d: %w", row, idx, err)
			}
			v[i] = n
		}
		page := v[0] - 1
		if page < 0 {
			page = 0
		}
		lines[page] = append(lines[page], box.Rect{
			X:      float64(v[1]),
			Y:      float64(v[2]),
			Width:  float64(v[3]),
			Height: float64(v[4]),
		})
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return lines, nil
}
