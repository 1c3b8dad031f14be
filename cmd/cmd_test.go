package cmd

import (
	"bytes"
	"encoding/json"
	"errors"
	"image"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"

	"github.com/lehigh-university-libraries/tessbox/pkg/box"
	"github.com/lehigh-university-libraries/tessbox/pkg/boxfile"
	"golang.org/x/image/tiff"
)

const threeBoxes = "a 0 0 10 10 0\nb 10 0 20 10 0\nc 20 0 30 10 0\n"

// resetFlags clears flag values left over from an earlier Execute
func resetFlags() {
	imagePath, boxPath, outputPath = "", "", ""
	pageHeights = nil
	showPage, showFormat = -1, "table"
	findPage = 0
	editPage, editIndices = 0, nil
	cleanRaw = false
	eolSegmenter, eolHOCR = "tesseract", ""
	setChar, setX, setY, setWidth, setHeight = "", 0, 0, 0, 0
	for _, name := range []string{"char", "x", "y", "width", "height"} {
		setCmd.Flags().Lookup(name).Changed = false
	}
}

func runCommand(t *testing.T, args ...string) (string, error) {
	t.Helper()
	resetFlags()
	var out bytes.Buffer
	RootCmd.SetOut(&out)
	RootCmd.SetErr(io.Discard)
	RootCmd.SetArgs(append(args, "--log-level", "ERROR"))
	err := RootCmd.Execute()
	return out.String(), err
}

func writeBoxFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "page.box")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func readFile(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	return string(data)
}

func records(lines ...string) string {
	return strings.Join(lines, boxfile.EOL) + boxfile.EOL
}

func TestNormalizeCommand(t *testing.T) {
	path := writeBoxFile(t, "A 10 20 30 40 0\nbad 1 2\n")

	out, err := runCommand(t, "normalize", "--box", path, "--heights", "100")
	if err != nil {
		t.Fatalf("normalize: %v", err)
	}
	if want := records("A 10 20 30 40 0"); out != want {
		t.Errorf("normalize output = %q, want %q", out, want)
	}
}

func TestNormalizeRequiresHeightsWithoutImage(t *testing.T) {
	path := writeBoxFile(t, threeBoxes)
	if _, err := runCommand(t, "normalize", "--box", path); err == nil {
		t.Error("expected error without --heights or --image")
	}
}

func TestShowCommand(t *testing.T) {
	path := writeBoxFile(t, "A 10 20 30 40 0\n")

	tests := []struct {
		name   string
		format string
		check  func(t *testing.T, out string)
	}{
		{
			name:   "json",
			format: "json",
			check: func(t *testing.T, out string) {
				var listings []PageListing
				if err := json.Unmarshal([]byte(out), &listings); err != nil {
					t.Fatalf("invalid json: %v", err)
				}
				if len(listings) != 1 || len(listings[0].Boxes) != 1 {
					t.Fatalf("got %+v", listings)
				}
				got := listings[0].Boxes[0]
				if got.Character != "A" || got.X != 10 || got.Y != 60 || got.Width != 20 || got.Height != 20 {
					t.Errorf("box = %+v", got)
				}
				if got.Codepoint != "U+0041" {
					t.Errorf("Codepoint = %q", got.Codepoint)
				}
			},
		},
		{
			name:   "yaml",
			format: "yaml",
			check: func(t *testing.T, out string) {
				if !strings.Contains(out, "character: A") {
					t.Errorf("yaml output missing character:\n%s", out)
				}
			},
		},
		{
			name:   "table",
			format: "table",
			check: func(t *testing.T, out string) {
				if !strings.HasPrefix(out, "PAGE") || !strings.Contains(out, `"A"`) {
					t.Errorf("table output:\n%s", out)
				}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := runCommand(t, "show", "--box", path, "--heights", "100", "-f", tt.format)
			if err != nil {
				t.Fatalf("show: %v", err)
			}
			tt.check(t, out)
		})
	}

	if _, err := runCommand(t, "show", "--box", path, "--heights", "100", "-f", "xml"); err == nil {
		t.Error("expected error for unsupported format")
	}
	if _, err := runCommand(t, "show", "--box", path, "--heights", "100", "--page", "3"); err == nil {
		t.Error("expected error for page out of range")
	}
}

func TestFindCommand(t *testing.T) {
	path := writeBoxFile(t, threeBoxes)

	tests := []struct {
		name string
		args []string
		want string
	}{
		{"by character", []string{"b"}, "Found at index 1"},
		{"by escape", []string{`\u0063`}, "Found at index 2"},
		{"by coordinates", []string{"10", "0", "20", "10"}, "Found at index 1"},
		{"missing character", []string{"z"}, "No box with the specified character(s) was found."},
		{"missing coordinates", []string{"1", "2", "3", "4"}, "No box with the specified coordinates was found."},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			args := append([]string{"find", "--box", path, "--heights", "100"}, tt.args...)
			out, err := runCommand(t, args...)
			if err != nil {
				t.Fatalf("find: %v", err)
			}
			if !strings.Contains(out, tt.want) {
				t.Errorf("output = %q, want it to contain %q", out, tt.want)
			}
		})
	}

	if _, err := runCommand(t, "find", "--box", path, "--heights", "100", "1", "2"); !errors.Is(err, boxfile.ErrInvalidQuery) {
		t.Errorf("err = %v, want ErrInvalidQuery", err)
	}
}

func TestEditCommands(t *testing.T) {
	tests := []struct {
		name string
		args []string
		want string
	}{
		{
			name: "merge",
			args: []string{"merge", "--select", "0,1"},
			want: records("ab 0 0 20 10 0", "c 20 0 30 10 0"),
		},
		{
			name: "split",
			args: []string{"split", "--select", "2"},
			want: records("a 0 0 10 10 0", "b 10 0 20 10 0", "c 20 0 25 10 0", "c 25 0 30 10 0"),
		},
		{
			name: "insert",
			args: []string{"insert", "--select", "0"},
			want: records("a 0 0 10 10 0", "  15 0 25 10 0", "b 10 0 20 10 0", "c 20 0 30 10 0"),
		},
		{
			name: "delete",
			args: []string{"delete", "--select", "0,2"},
			want: records("b 10 0 20 10 0"),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeBoxFile(t, threeBoxes)
			args := append(tt.args, "--box", path, "--heights", "100")
			if _, err := runCommand(t, args...); err != nil {
				t.Fatalf("%s: %v", tt.name, err)
			}
			if got := readFile(t, path); got != tt.want {
				t.Errorf("box file = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestEditCommandSelectionErrors(t *testing.T) {
	tests := []struct {
		name string
		args []string
	}{
		{"merge one box", []string{"merge", "--select", "0"}},
		{"split two boxes", []string{"split", "--select", "0,1"}},
		{"split nothing", []string{"split"}},
		{"insert nothing", []string{"insert"}},
		{"delete nothing", []string{"delete"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeBoxFile(t, threeBoxes)
			args := append(tt.args, "--box", path, "--heights", "100")
			_, err := runCommand(t, args...)
			var selErr *box.SelectionError
			if !errors.As(err, &selErr) {
				t.Fatalf("err = %v, want SelectionError", err)
			}
			if got := readFile(t, path); got != threeBoxes {
				t.Errorf("box file changed after refused edit: %q", got)
			}
		})
	}

	path := writeBoxFile(t, threeBoxes)
	if _, err := runCommand(t, "merge", "--box", path, "--heights", "100", "--select", "0,7"); err == nil {
		t.Error("expected error for out of range index")
	}
}

func TestEditCommandOutputFlag(t *testing.T) {
	path := writeBoxFile(t, threeBoxes)
	out := filepath.Join(t.TempDir(), "out.box")

	if _, err := runCommand(t, "delete", "--box", path, "--heights", "100", "--select", "1", "-o", out); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if got := readFile(t, path); got != threeBoxes {
		t.Error("input file should be untouched when -o is given")
	}
	if want := records("a 0 0 10 10 0", "c 20 0 30 10 0"); readFile(t, out) != want {
		t.Errorf("output file = %q, want %q", readFile(t, out), want)
	}
}

func TestSetCommand(t *testing.T) {
	tests := []struct {
		name string
		args []string
		want string
	}{
		{
			name: "character",
			args: []string{"--select", "1", "--char", "&#x42;"},
			want: records("a 0 0 10 10 0", "B 10 0 20 10 0", "c 20 0 30 10 0"),
		},
		{
			name: "unicode escape",
			args: []string{"--select", "0", "--char", `\u00e9`},
			want: records("\u00e9 0 0 10 10 0", "b 10 0 20 10 0", "c 20 0 30 10 0"),
		},
		{
			name: "move and resize",
			args: []string{"--select", "0", "--x", "2", "--width", "5"},
			want: records("a 2 0 7 10 0", "b 10 0 20 10 0", "c 20 0 30 10 0"),
		},
		{
			name: "top edge",
			args: []string{"--select", "2", "--y", "80"},
			want: records("a 0 0 10 10 0", "b 10 0 20 10 0", "c 20 10 30 20 0"),
		},
		{
			name: "zero height",
			args: []string{"--select", "2", "--height", "0", "--char", "C"},
			want: records("a 0 0 10 10 0", "b 10 0 20 10 0", "C 20 10 30 10 0"),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeBoxFile(t, threeBoxes)
			args := append([]string{"set", "--box", path, "--heights", "100"}, tt.args...)
			if _, err := runCommand(t, args...); err != nil {
				t.Fatalf("set: %v", err)
			}
			if got := readFile(t, path); got != tt.want {
				t.Errorf("box file = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestSetCommandErrors(t *testing.T) {
	tests := []struct {
		name  string
		args  []string
		check func(error) bool
	}{
		{"nothing selected", []string{"--char", "x"}, func(err error) bool { return errors.Is(err, box.ErrSelection) }},
		{"two selected", []string{"--select", "0,1", "--x", "3"}, func(err error) bool { return errors.Is(err, box.ErrSelection) }},
		{"no fields", []string{"--select", "0"}, func(err error) bool { return errors.Is(err, errNoFields) }},
		{"negative width", []string{"--select", "0", "--char", "x", "--width", "-1"}, func(err error) bool { return errors.Is(err, box.ErrInvalidRect) }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeBoxFile(t, threeBoxes)
			args := append([]string{"set", "--box", path, "--heights", "100"}, tt.args...)
			if _, err := runCommand(t, args...); !tt.check(err) {
				t.Errorf("err = %v", err)
			}
			if got := readFile(t, path); got != threeBoxes {
				t.Errorf("box file changed after refused edit: %q", got)
			}
		})
	}
}

func TestSingleFrameFallbackRejectsLaterPages(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("needs /bin/false")
	}
	t.Setenv("MAGICK_CMD", "/bin/false")

	dir := t.TempDir()
	imagePath := filepath.Join(dir, "page.tif")
	f, err := os.Create(imagePath)
	if err != nil {
		t.Fatal(err)
	}
	if err := tiff.Encode(f, image.NewGray(image.Rect(0, 0, 40, 100)), nil); err != nil {
		t.Fatal(err)
	}
	f.Close()

	content := "a 0 0 10 10 0\n  10 0 20 10 0\nb 0 0 10 10 1\nc 0 0 10 10 2\n"
	boxFile := filepath.Join(dir, "page.box")
	if err := os.WriteFile(boxFile, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	_, err = runCommand(t, "clean", "--image", imagePath)
	var pce *boxfile.PageCountError
	if !errors.As(err, &pce) || pce.Pages != 1 || pce.Records != 2 {
		t.Fatalf("err = %v, want PageCountError", err)
	}
	if got := readFile(t, boxFile); got != content {
		t.Errorf("box file changed: %q", got)
	}
}

func TestCleanCommand(t *testing.T) {
	content := "a 0 0 10 10 0\n  10 0 20 10 0\nb 20 0 30 10 0\n"

	t.Run("parsed", func(t *testing.T) {
		path := writeBoxFile(t, content)
		if _, err := runCommand(t, "clean", "--box", path, "--heights", "100"); err != nil {
			t.Fatalf("clean: %v", err)
		}
		if want := records("a 0 0 10 10 0", "b 20 0 30 10 0"); readFile(t, path) != want {
			t.Errorf("box file = %q, want %q", readFile(t, path), want)
		}
	})

	t.Run("raw", func(t *testing.T) {
		path := writeBoxFile(t, content)
		if _, err := runCommand(t, "clean", "--raw", "--box", path); err != nil {
			t.Fatalf("clean --raw: %v", err)
		}
		if want := "a 0 0 10 10 0\nb 20 0 30 10 0\n"; readFile(t, path) != want {
			t.Errorf("box file = %q, want %q", readFile(t, path), want)
		}
	})
}

func TestEOLCommandLayout(t *testing.T) {
	path := writeBoxFile(t, "a 0 90 10 100 0\nb 12 90 22 100 0\nc 0 40 10 50 0\n")

	if _, err := runCommand(t, "eol", "--segmenter", "layout", "--box", path, "--heights", "100"); err != nil {
		t.Fatalf("eol: %v", err)
	}
	want := records(
		"a 0 90 10 100 0",
		"b 12 90 22 100 0",
		"\t 32 90 42 100 0",
		"c 0 40 10 50 0",
		"\t 20 40 30 50 0",
	)
	if got := readFile(t, path); got != want {
		t.Errorf("box file = %q, want %q", got, want)
	}
}

func TestEOLCommandImages(t *testing.T) {
	dir := t.TempDir()
	withBox := filepath.Join(dir, "one.png")
	withoutBox := filepath.Join(dir, "two.png")
	boxFile := filepath.Join(dir, "one.box")
	if err := os.WriteFile(boxFile, []byte("a 0 90 10 100 0\nb 12 90 22 100 0\n"), 0644); err != nil {
		t.Fatal(err)
	}

	if _, err := runCommand(t, "eol", "--segmenter", "layout", "--heights", "100", withBox, withoutBox); err != nil {
		t.Fatalf("eol: %v", err)
	}
	if want := records("a 0 90 10 100 0", "b 12 90 22 100 0", "\t 32 90 42 100 0"); readFile(t, boxFile) != want {
		t.Errorf("box file = %q, want %q", readFile(t, boxFile), want)
	}
	if _, err := os.Stat(filepath.Join(dir, "two.box")); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("box file created for skipped image: %v", err)
	}

	if _, err := runCommand(t, "eol", "--segmenter", "layout", "--heights", "100", "-o", filepath.Join(dir, "out.box"), withBox); err == nil {
		t.Error("expected error for --output with image arguments")
	}
}

func TestEOLCommandErrors(t *testing.T) {
	path := writeBoxFile(t, threeBoxes)

	tests := []struct {
		name string
		args []string
	}{
		{"unknown segmenter", []string{"--segmenter", "kraken"}},
		{"hocr without file", []string{"--segmenter", "hocr"}},
		{"components without image", []string{"--segmenter", "components"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			args := append([]string{"eol", "--box", path, "--heights", "100"}, tt.args...)
			if _, err := runCommand(t, args...); err == nil {
				t.Error("expected error")
			}
		})
	}
}

func TestExportCommand(t *testing.T) {
	path := writeBoxFile(t, threeBoxes)

	out, err := runCommand(t, "export", "--box", path, "--heights", "100")
	if err != nil {
		t.Fatalf("export: %v", err)
	}
	for _, want := range []string{"class='ocr_page'", "class='ocr_line'", "id='char_1_1_3'"} {
		if !strings.Contains(out, want) {
			t.Errorf("export output missing %q", want)
		}
	}
}
