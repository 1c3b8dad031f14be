package cmd

import (
	"fmt"
	"strings"

	"github.com/lehigh-university-libraries/tessbox/pkg/boxfile"
	"github.com/spf13/cobra"
)

var findPage int

var findCmd = &cobra.Command{
	Use:   "find <chars | x1 y1 x2 y2>",
	Short: "Find a box by character(s) or box file coordinates",
	Long: `Find a box on a page.

A single argument searches by character; NCR (&#x41;) and \u0041 escapes are
decoded first. Four arguments search for a box with exactly those box file
coordinates.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runFind,
}

func init() {
	RootCmd.AddCommand(findCmd)
	addDocumentFlags(findCmd)
	findCmd.Flags().IntVar(&findPage, "page", 0, "Page to search (zero-based)")
}

func runFind(cmd *cobra.Command, args []string) error {
	ws, err := loadWorkspace(cmd.Context())
	if err != nil {
		return err
	}
	col, err := ws.page(findPage)
	if err != nil {
		return err
	}

	q, err := boxfile.ParseQuery(strings.Join(args, " "), findPage, ws.Heights[findPage])
	if err != nil {
		return err
	}

	b, ok := q.Run(col)
	if !ok {
		fmt.Fprintln(cmd.OutOrStdout(), q.NotFoundMessage())
		return nil
	}

	index := col.IndexOf(b.ID())
	selected := col.Selected()
	records := make([]BoxRecord, 0, len(selected))
	for _, s := range selected {
		records = append(records, newBoxRecord(col.IndexOf(s.ID()), s))
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Found at index %d\n", index)
	return writeListings(cmd.OutOrStdout(), "table", []PageListing{{Page: findPage, Height: ws.Heights[findPage], Boxes: records}})
}
