package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/lehigh-university-libraries/tessbox/internal/utils"
	"github.com/lehigh-university-libraries/tessbox/pkg/box"
	"github.com/lehigh-university-libraries/tessbox/pkg/imageinfo"
	"github.com/lehigh-university-libraries/tessbox/pkg/segment"
	"github.com/spf13/cobra"
)

var (
	eolSegmenter string
	eolHOCR      string
	eolLanguage  string
	eolPSM       int
	eolTimeout   time.Duration
)

var eolCmd = &cobra.Command{
	Use:   "eol [image...]",
	Short: "Insert end-of-line markers",
	Long: `Find the text lines of each page and insert a tab box after the last box of
every line, as Tesseract expects when training LSTM models.

With image arguments every image is processed in turn and the box file next
to it is updated in place. Images without a box file are skipped.

Segmenters:
  tesseract  run tesseract on the image and use its text lines
  hocr       read the text lines of an existing hOCR file (--hocr)
  layout     group the existing boxes into lines by their geometry
  components group dark connected regions of the image into lines`,
	Args: cobra.ArbitraryArgs,
	RunE: runEOL,
}

func init() {
	RootCmd.AddCommand(eolCmd)
	addDocumentFlags(eolCmd)
	addOutputFlag(eolCmd, "Output path for the box file (overwrites the input if not specified)")
	eolCmd.Flags().StringVar(&eolSegmenter, "segmenter", utils.EnvOrDefault("TESSBOX_SEGMENTER", "tesseract"), "Line segmenter: "+strings.Join(segment.DefaultRegistry().List(), ", "))
	eolCmd.Flags().StringVar(&eolHOCR, "hocr", "", "hOCR file with ocr_line elements (hocr segmenter)")
	eolCmd.Flags().StringVar(&eolLanguage, "lang", utils.EnvOrDefault("TESSBOX_LANG", "eng"), "Tesseract language")
	eolCmd.Flags().IntVar(&eolPSM, "psm", utils.EnvIntOrDefault("TESSBOX_PSM", 0), "Tesseract page segmentation mode (0 uses the tesseract default)")
	eolCmd.Flags().DurationVar(&eolTimeout, "timeout", 5*time.Minute, "Timeout for the segmenter")
}

func runEOL(cmd *cobra.Command, args []string) error {
	registry := segment.DefaultRegistry()
	if !registry.HasSegmenter(eolSegmenter) {
		return fmt.Errorf("unknown segmenter %q, available: %s", eolSegmenter, strings.Join(registry.List(), ", "))
	}
	if len(args) == 0 {
		ws, err := loadWorkspace(cmd.Context())
		if err != nil {
			return err
		}
		return markWorkspace(cmd.Context(), registry, ws, outputPath)
	}

	if boxPath != "" || outputPath != "" {
		return errors.New("--box and --output cannot be used with image arguments")
	}
	processed, skipped := 0, 0
	for _, image := range args {
		path := imageinfo.BoxPath(image)
		if _, err := os.Stat(path); err != nil {
			slog.Warn("Skipping image without box file", "image", image, "box", path, "err", err)
			skipped++
			continue
		}
		ws, err := openWorkspace(cmd.Context(), image, path, pageHeights)
		if err != nil {
			return fmt.Errorf("%s: %w", image, err)
		}
		if err := markWorkspace(cmd.Context(), registry, ws, ""); err != nil {
			return fmt.Errorf("%s: %w", image, err)
		}
		processed++
	}
	slog.Info("Finished end-of-line marking", "processed", processed, "skipped", skipped)
	return nil
}

// markWorkspace marks the lines of every page in ws and saves it to output,
// or over its own box file when output is empty
func markWorkspace(ctx context.Context, registry *segment.Registry, ws *workspace, output string) error {
	config := segment.Config{
		Segmenter:   eolSegmenter,
		Language:    eolLanguage,
		PageSegMode: eolPSM,
		HOCRPath:    eolHOCR,
		Timeout:     eolTimeout,
	}
	if eolSegmenter == "layout" {
		config.Boxes = pageRects(ws.Doc.Pages)
	}

	inserted, err := markEndOfLines(ctx, registry, config, ws.ImagePath, ws.Doc.Pages)
	if err != nil {
		return err
	}
	slog.Info("Inserted end-of-line markers", "box", ws.BoxPath, "count", inserted)

	return ws.save(output)
}

// markEndOfLines segments the image and marks the lines found on each page
func markEndOfLines(ctx context.Context, registry *segment.Registry, config segment.Config, image string, pages []*box.Collection) (int, error) {
	s, err := registry.Get(config.Segmenter)
	if err != nil {
		return 0, err
	}
	if err := s.ValidateConfig(config); err != nil {
		return 0, fmt.Errorf("invalid %s configuration: %w", s.Name(), err)
	}
	if (s.Name() == "tesseract" || s.Name() == "components") && image == "" {
		return 0, errors.New("the tesseract segmenter needs a page image")
	}

	lines, err := s.Lines(ctx, config, image)
	if err != nil {
		return 0, err
	}

	inserted := 0
	for p, col := range pages {
		n := col.MarkEndOfLines(lines[p], p)
		slog.Debug("Marked page", "page", p, "lines", len(lines[p]), "markers", n)
		inserted += n
	}
	return inserted, nil
}

func pageRects(pages []*box.Collection) map[int][]box.Rect {
	rects := make(map[int][]box.Rect, len(pages))
	for p, col := range pages {
		for _, b := range col.Boxes() {
			rects[p] = append(rects[p], b.Rect())
		}
	}
	return rects
}
