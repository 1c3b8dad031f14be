package cmd

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/lehigh-university-libraries/tessbox/pkg/boxfile"
	"github.com/spf13/cobra"
)

var cleanRaw bool

var cleanCmd = &cobra.Command{
	Use:   "clean",
	Short: "Remove blank boxes",
	Long: `Remove every box whose character is a single space.

With --raw the file is cleaned as text instead: every line starting with
whitespace is removed, as produced by text2image for inter-word spaces. The
raw mode needs no page heights.`,
	RunE: runClean,
}

func init() {
	RootCmd.AddCommand(cleanCmd)
	addDocumentFlags(cleanCmd)
	addOutputFlag(cleanCmd, "Output path for the box file (overwrites the input if not specified)")
	cleanCmd.Flags().BoolVar(&cleanRaw, "raw", false, "Strip whitespace-led lines from the file text without parsing it")
}

func runClean(cmd *cobra.Command, args []string) error {
	if cleanRaw {
		return cleanRawFile()
	}

	ws, err := loadWorkspace(cmd.Context())
	if err != nil {
		return err
	}

	removed := 0
	for _, col := range ws.Doc.Pages {
		removed += col.RemoveBlank()
	}
	slog.Info("Removed blank boxes", "count", removed)

	return ws.save(outputPath)
}

func cleanRawFile() error {
	path, err := resolvePaths(imagePath, boxPath)
	if err != nil {
		return err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read box file: %w", err)
	}

	cleaned := boxfile.StripBlankRecords(string(data))
	out := outputPath
	if out == "" {
		out = path
	}
	if err := os.WriteFile(out, []byte(cleaned), 0644); err != nil {
		return fmt.Errorf("failed to write box file: %w", err)
	}

	slog.Info("Stripped blank records", "path", out, "bytes_removed", len(data)-len(cleaned))
	return nil
}
