package cmd

import (
	"log/slog"

	"github.com/lehigh-university-libraries/tessbox/pkg/hocr"
	"github.com/spf13/cobra"
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export a box file as hOCR",
	Long: `Write an hOCR document with one ocrx_cinfo element per box.

Boxes are grouped into ocr_line elements at end-of-line (tab) markers. Pages
without markers are grouped by box geometry.`,
	RunE: runExport,
}

func init() {
	RootCmd.AddCommand(exportCmd)
	addDocumentFlags(exportCmd)
	addOutputFlag(exportCmd, "Output path for hOCR file (prints to stdout if not specified)")
}

func runExport(cmd *cobra.Command, args []string) error {
	ws, err := loadWorkspace(cmd.Context())
	if err != nil {
		return err
	}

	content, err := hocr.Export(ws.Doc.Pages, ws.Heights)
	if err != nil {
		return err
	}

	slog.Info("Exported hOCR", "pages", len(ws.Doc.Pages), "content_length", len(content))
	return outputResult(cmd, content)
}
