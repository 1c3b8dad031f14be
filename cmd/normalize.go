package cmd

import (
	"log/slog"

	"github.com/spf13/cobra"
)

var normalizeCmd = &cobra.Command{
	Use:   "normalize",
	Short: "Parse and rewrite a box file",
	Long: `Parse a box file against its page heights and write it back out.

Malformed lines (wrong field count) are dropped and coordinates are rewritten
as integers. Five-field files stay five-field.`,
	RunE: runNormalize,
}

func init() {
	RootCmd.AddCommand(normalizeCmd)
	addDocumentFlags(normalizeCmd)
	addOutputFlag(normalizeCmd, "Output path for the box file (prints to stdout if not specified)")
}

func runNormalize(cmd *cobra.Command, args []string) error {
	ws, err := loadWorkspace(cmd.Context())
	if err != nil {
		return err
	}

	content, err := ws.format()
	if err != nil {
		return err
	}

	slog.Info("Normalized box file", "path", ws.BoxPath, "boxes", ws.Doc.BoxCount())
	return outputResult(cmd, content)
}
