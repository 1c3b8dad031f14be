package cmd

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/lehigh-university-libraries/tessbox/pkg/box"
	"github.com/spf13/cobra"
)

var (
	editPage    int
	editIndices []int

	setChar                         string
	setX, setY, setWidth, setHeight int
	setCmd                          *cobra.Command
)

var errNoFields = errors.New("nothing to set: give a character, x, y, width or height")

// editFunc applies one edit to the selected boxes of a page
type editFunc func(cmd *cobra.Command, col *box.Collection) error

func newEditCmd(use, short, long string, apply editFunc) *cobra.Command {
	c := &cobra.Command{
		Use:   use,
		Short: short,
		Long:  long,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runEdit(cmd, apply)
		},
	}
	addDocumentFlags(c)
	addOutputFlag(c, "Output path for the box file (overwrites the input if not specified)")
	c.Flags().IntVar(&editPage, "page", 0, "Page to edit (zero-based)")
	c.Flags().IntSliceVar(&editIndices, "select", []int{}, "Indices of the boxes to select, in order")
	return c
}

func init() {
	RootCmd.AddCommand(
		newEditCmd("merge", "Merge the selected boxes into one",
			"Replace two or more selected boxes with one box covering all of them. Characters are joined in selection order.",
			applyMerge),
		newEditCmd("split", "Split the selected box in half",
			"Cut exactly one selected box into two halves of equal width, both carrying the original character.",
			applySplit),
		newEditCmd("insert", "Insert a blank box after the selected box",
			"Insert a placeholder box to the right of exactly one selected box. An empty page needs no selection.",
			applyInsert),
		newEditCmd("delete", "Delete the selected boxes",
			"Remove every selected box from the page.",
			applyDelete),
	)

	setCmd = newEditCmd("set", "Change the character or rectangle of the selected box",
		`Change fields of exactly one selected box. --char accepts NCR (&#x41;) and
\u0041 escapes. Coordinates are in display space (origin top-left, as listed
by show); fields not given keep their value.`,
		applySet)
	setCmd.Flags().StringVar(&setChar, "char", "", "New character(s)")
	setCmd.Flags().IntVar(&setX, "x", 0, "New left edge")
	setCmd.Flags().IntVar(&setY, "y", 0, "New top edge")
	setCmd.Flags().IntVar(&setWidth, "width", 0, "New width")
	setCmd.Flags().IntVar(&setHeight, "height", 0, "New height")
	RootCmd.AddCommand(setCmd)
}

func runEdit(cmd *cobra.Command, apply editFunc) error {
	ws, err := loadWorkspace(cmd.Context())
	if err != nil {
		return err
	}
	col, err := ws.page(editPage)
	if err != nil {
		return err
	}
	if err := selectIndices(col, editIndices); err != nil {
		return err
	}

	if err := apply(cmd, col); err != nil {
		return err
	}
	return ws.save(outputPath)
}

func applyMerge(cmd *cobra.Command, col *box.Collection) error {
	merged, err := col.Merge()
	if err != nil {
		return err
	}
	slog.Info("Merged boxes", "page", merged.Page, "index", col.IndexOf(merged.ID()), "box", merged.String())
	return nil
}

func applySplit(cmd *cobra.Command, col *box.Collection) error {
	first, second, err := col.Split()
	if err != nil {
		return err
	}
	slog.Info("Split box", "first", first.String(), "second", second.String())
	return nil
}

func applyInsert(cmd *cobra.Command, col *box.Collection) error {
	b, err := col.InsertAfterSelected()
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Inserted at index %d\n", col.IndexOf(b.ID()))
	return nil
}

func applyDelete(cmd *cobra.Command, col *box.Collection) error {
	removed, err := col.Delete()
	if err != nil {
		return err
	}
	slog.Info("Deleted boxes", "count", len(removed))
	return nil
}

func applySet(cmd *cobra.Command, col *box.Collection) error {
	var fields BoxFields
	flags := cmd.Flags()
	if flags.Changed("char") {
		fields.Character = &setChar
	}
	if flags.Changed("x") {
		fields.X = &setX
	}
	if flags.Changed("y") {
		fields.Y = &setY
	}
	if flags.Changed("width") {
		fields.Width = &setWidth
	}
	if flags.Changed("height") {
		fields.Height = &setHeight
	}

	b, err := fields.apply(col)
	if err != nil {
		return err
	}
	slog.Info("Changed box", "index", col.IndexOf(b.ID()), "box", b.String())
	return nil
}

// apply edits the single selected box of col. Everything is checked before
// the first change, so a refused edit leaves col as it was.
func (f BoxFields) apply(col *box.Collection) (box.Box, error) {
	moves := f.X != nil || f.Y != nil || f.Width != nil || f.Height != nil
	if f.Character == nil && !moves {
		return box.Box{}, errNoFields
	}
	selected := col.Selected()
	if len(selected) != 1 {
		return box.Box{}, &box.SelectionError{Op: box.OpEdit, Selected: len(selected)}
	}

	b := selected[0]
	r := b.Rect()
	for _, field := range []struct {
		dst *float64
		v   *int
	}{{&r.X, f.X}, {&r.Y, f.Y}, {&r.Width, f.Width}, {&r.Height, f.Height}} {
		if field.v != nil {
			*field.dst = float64(*field.v)
		}
	}
	if r.Width < 0 || r.Height < 0 {
		return box.Box{}, box.ErrInvalidRect
	}

	var err error
	if f.Character != nil {
		if b, err = col.SetCharacter(*f.Character); err != nil {
			return box.Box{}, err
		}
	}
	if moves {
		if b, err = col.SetRect(r); err != nil {
			return box.Box{}, err
		}
	}
	return b, nil
}
