package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/lehigh-university-libraries/tessbox/pkg/box"
	"github.com/lehigh-university-libraries/tessbox/pkg/boxfile"
	"github.com/lehigh-university-libraries/tessbox/pkg/imageinfo"
	"github.com/spf13/cobra"
)

var (
	imagePath   string
	boxPath     string
	pageHeights []int
	outputPath  string
)

// workspace is a box file loaded against the heights of its page images
type workspace struct {
	ImagePath string
	BoxPath   string
	Heights   []int
	Doc       boxfile.Document
}

func addDocumentFlags(cmd *cobra.Command) {
	cmd.Flags().StringVar(&imagePath, "image", "", "Path to the page image the box file describes")
	cmd.Flags().StringVar(&boxPath, "box", "", "Path to the box file (defaults to the image path with a .box extension)")
	cmd.Flags().IntSliceVar(&pageHeights, "heights", []int{}, "Page heights in pixels, one per page (skips reading the image)")
}

func addOutputFlag(cmd *cobra.Command, usage string) {
	cmd.Flags().StringVarP(&outputPath, "output", "o", "", usage)
}

func resolvePaths(image, boxFile string) (string, error) {
	if boxFile != "" {
		return boxFile, nil
	}
	if image == "" {
		return "", errors.New("either --image or --box is required")
	}
	return imageinfo.BoxPath(image), nil
}

// loadWorkspace reads the box file named by the document flags
func loadWorkspace(ctx context.Context) (*workspace, error) {
	return openWorkspace(ctx, imagePath, boxPath, pageHeights)
}

func openWorkspace(ctx context.Context, image, boxFile string, heights []int) (*workspace, error) {
	path, err := resolvePaths(image, boxFile)
	if err != nil {
		return nil, err
	}

	if len(heights) == 0 {
		if image == "" {
			return nil, errors.New("--heights is required when no --image is given")
		}
		heights, err = imageinfo.Heights(ctx, image)
		if err != nil {
			return nil, fmt.Errorf("failed to read page heights: %w", err)
		}
	}

	doc, err := boxfile.ReadFile(path, heights)
	if err != nil {
		return nil, err
	}

	return &workspace{
		ImagePath: image,
		BoxPath:   path,
		Heights:   heights,
		Doc:       doc,
	}, nil
}

func (w *workspace) page(p int) (*box.Collection, error) {
	if p < 0 || p >= len(w.Doc.Pages) {
		return nil, fmt.Errorf("page %d out of range, document has %d pages", p, len(w.Doc.Pages))
	}
	return w.Doc.Pages[p], nil
}

func (w *workspace) format() (string, error) {
	return boxfile.Format(w.Doc, w.Heights)
}

// save writes the box file to output, or back over the source when output is
// empty
func (w *workspace) save(output string) error {
	if output == "" {
		output = w.BoxPath
	}
	return boxfile.WriteFile(output, w.Doc, w.Heights)
}

// selectIndices makes the boxes at the given indices the selection
func selectIndices(col *box.Collection, indices []int) error {
	ids := make([]box.ID, 0, len(indices))
	for _, i := range indices {
		b, ok := col.At(i)
		if !ok {
			return fmt.Errorf("box index %d out of range, page has %d boxes", i, col.Len())
		}
		ids = append(ids, b.ID())
	}
	col.SelectOnly(ids...)
	return nil
}

func outputResult(cmd *cobra.Command, content string) error {
	if outputPath != "" {
		return os.WriteFile(outputPath, []byte(content), 0644)
	}
	_, err := fmt.Fprint(cmd.OutOrStdout(), content)
	return err
}
