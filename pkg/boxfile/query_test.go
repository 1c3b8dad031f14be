package boxfile

import (
	"errors"
	"testing"

	"github.com/lehigh-university-libraries/tessbox/pkg/box"
)

func TestParseQuery(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    Query
		wantErr bool
	}{
		{
			name:  "characters",
			input: "th",
			want:  Query{Chars: "th"},
		},
		{
			name:  "escaped characters",
			input: "&#x41;",
			want:  Query{Chars: "A"},
		},
		{
			name:  "coordinates",
			input: "10 20 30 50",
			want:  Query{Rect: box.Rect{X: 10, Y: 50, Width: 20, Height: 30}, ByRect: true},
		},
		{"empty", "   ", Query{}, true},
		{"two tokens", "a b", Query{}, true},
		{"bad coordinate", "10 x 30 50", Query{}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseQuery(tt.input, 0, 100)
			if tt.wantErr {
				if !errors.Is(err, ErrInvalidQuery) {
					t.Errorf("err = %v, want ErrInvalidQuery", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseQuery: %v", err)
			}
			if got != tt.want {
				t.Errorf("ParseQuery = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestQueryRun(t *testing.T) {
	doc, err := Parse("x 0 0 5 5 0\nA 10 20 30 50 0\n", []int{100})
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	col := doc.Pages[0]

	q, _ := ParseQuery("10 20 30 50", 0, 100)
	b, ok := q.Run(col)
	if !ok || b.Character != "A" {
		t.Errorf("coordinate search = %v, %v", b, ok)
	}

	q, _ = ParseQuery("A", 0, 100)
	if b, ok := q.Run(col); !ok || b.Character != "A" {
		t.Errorf("character search = %v, %v", b, ok)
	}

	q, _ = ParseQuery("Z", 0, 100)
	if _, ok := q.Run(col); ok {
		t.Error("expected no match")
	}
	if q.NotFoundMessage() != "No box with the specified character(s) was found." {
		t.Errorf("NotFoundMessage = %q", q.NotFoundMessage())
	}
}

func TestQueryRunMissClearsSelection(t *testing.T) {
	for _, input := range []string{"Z", "1 2 3 4"} {
		t.Run(input, func(t *testing.T) {
			doc, err := Parse("x 0 0 5 5 0\nA 10 20 30 50 0\n", []int{100})
			if err != nil {
				t.Fatalf("Parse: %v", err)
			}
			col := doc.Pages[0]
			first, _ := col.At(0)
			col.SelectOnly(first.ID())

			q, err := ParseQuery(input, 0, 100)
			if err != nil {
				t.Fatalf("ParseQuery: %v", err)
			}
			if _, ok := q.Run(col); ok {
				t.Fatal("expected no match")
			}
			if n := len(col.Selected()); n != 0 {
				t.Errorf("%d boxes still selected after a miss", n)
			}
		})
	}
}
