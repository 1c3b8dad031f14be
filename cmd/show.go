package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"text/tabwriter"

	"github.com/lehigh-university-libraries/tessbox/pkg/box"
	"github.com/lehigh-university-libraries/tessbox/pkg/textutil"
	"github.com/spf13/cobra"
	yaml "go.yaml.in/yaml/v3"
)

// BoxRecord is the listing form of a box
type BoxRecord struct {
	Index     int    `json:"index" yaml:"index"`
	ID        uint64 `json:"id" yaml:"id"`
	Character string `json:"character" yaml:"character"`
	Codepoint string `json:"codepoint" yaml:"codepoint"`
	X         int    `json:"x" yaml:"x"`
	Y         int    `json:"y" yaml:"y"`
	Width     int    `json:"width" yaml:"width"`
	Height    int    `json:"height" yaml:"height"`
	Page      int    `json:"page" yaml:"page"`
	Selected  bool   `json:"selected,omitempty" yaml:"selected,omitempty"`
}

// PageListing is the listing form of a page
type PageListing struct {
	Page   int         `json:"page" yaml:"page"`
	Height int         `json:"height" yaml:"height"`
	Boxes  []BoxRecord `json:"boxes" yaml:"boxes"`
}

var (
	showPage   int
	showFormat string
)

var showCmd = &cobra.Command{
	Use:   "show",
	Short: "List the boxes of a box file",
	Long: `List every box with its character, code points and display-space
coordinates (origin at the top-left of the page image).`,
	RunE: runShow,
}

func init() {
	RootCmd.AddCommand(showCmd)
	addDocumentFlags(showCmd)
	showCmd.Flags().IntVar(&showPage, "page", -1, "Only list this page (zero-based); all pages when negative")
	showCmd.Flags().StringVarP(&showFormat, "format", "f", "table", "Output format: table, json, yaml")
}

func runShow(cmd *cobra.Command, args []string) error {
	ws, err := loadWorkspace(cmd.Context())
	if err != nil {
		return err
	}

	var listings []PageListing
	for p, col := range ws.Doc.Pages {
		if showPage >= 0 && p != showPage {
			continue
		}
		listings = append(listings, PageListing{Page: p, Height: ws.Heights[p], Boxes: boxRecords(col)})
	}
	if showPage >= len(ws.Doc.Pages) {
		return fmt.Errorf("page %d out of range, document has %d pages", showPage, len(ws.Doc.Pages))
	}

	return writeListings(cmd.OutOrStdout(), showFormat, listings)
}

func boxRecords(col *box.Collection) []BoxRecord {
	records := make([]BoxRecord, 0, col.Len())
	for i, b := range col.Boxes() {
		records = append(records, newBoxRecord(i, b))
	}
	return records
}

func newBoxRecord(i int, b box.Box) BoxRecord {
	return BoxRecord{
		Index:     i,
		ID:        uint64(b.ID()),
		Character: b.Character,
		Codepoint: textutil.ToHex(b.Character),
		X:         b.X(),
		Y:         b.Y(),
		Width:     b.Width(),
		Height:    b.Height(),
		Page:      b.Page,
		Selected:  b.Selected,
	}
}

func writeListings(w io.Writer, format string, listings []PageListing) error {
	switch format {
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(listings)
	case "yaml":
		data, err := yaml.Marshal(listings)
		if err != nil {
			return fmt.Errorf("failed to marshal yaml: %w", err)
		}
		_, err = w.Write(data)
		return err
	case "table":
		tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "PAGE\tINDEX\tCHAR\tCODEPOINT\tX\tY\tWIDTH\tHEIGHT")
		for _, l := range listings {
			for _, r := range l.Boxes {
				fmt.Fprintf(tw, "%d\t%d\t%s\t%s\t%d\t%d\t%d\t%d\n",
					l.Page, r.Index, strconv.Quote(r.Character), r.Codepoint, r.X, r.Y, r.Width, r.Height)
			}
		}
		return tw.Flush()
	default:
		return fmt.Errorf("unsupported format: %s", format)
	}
}
