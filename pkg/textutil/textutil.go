// Package textutil converts between the escaped forms people type for box
// characters and the literal text stored in box files.
package textutil

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/text/unicode/norm"
)

var unicodeEscape = regexp.MustCompile(`\\[uU]([0-9a-fA-F]{4})`)

// DecodeEscapes turns numeric character references (&#65; &#x41;), named
// entities and \uXXXX escapes into literal characters and returns the result
// in NFC form
func DecodeEscapes(s string) string {
	if strings.ContainsRune(s, '&') {
		s = html.UnescapeString(s)
	}
	if strings.Contains(s, `\u`) || strings.Contains(s, `\U`) {
		s = unicodeEscape.ReplaceAllStringFunc(s, func(m string) string {
			n, err := strconv.ParseUint(m[2:], 16, 32)
			if err != nil {
				return m
			}
			return string(rune(n))
		})
	}
	return norm.NFC.String(s)
}

// ToHex renders each code point of s as a U+XXXX token
func ToHex(s string) string {
	parts := make([]string, 0, len(s))
	for _, r := range s {
		parts = append(parts, fmt.Sprintf("U+%04X", r))
	}
	return strings.Join(parts, " ")
}
