package proxy

import (
	"fmt"
	"strings"

	"golang.org/x/text/encoding/htmlindex"
)

// defaultCharset is the charset of the HTML documents which don't declare one
// in the content type.
const defaultCharset = "utf-8"

// encodeCharset encodes s in the charset with the WHATWG name or label.
func encodeCharset(charset, s string) (b []byte, err error) {
	if charset == "" {
		charset = defaultCharset
	}

	enc, err := htmlindex.Get(charset)
	if err != nil {
		return nil, fmt.Errorf("charset %q: %w", charset, err)
	}

	encoded, err := enc.NewEncoder().String(s)
	if err != nil {
		return nil, fmt.Errorf("encoding to %q: %w", charset, err)
	}

	return []byte(encoded), nil
}

// indexFoldASCII returns the index of the first instance of the lowercase
// ASCII substr in s ignoring the ASCII case, or -1.  Unlike the functions of
// package bytes, it doesn't decode s, so it works with the documents in any
// ASCII-compatible charset.
func indexFoldASCII(s []byte, substr string) (idx int) {
	n := len(substr)
	for i := 0; i+n <= len(s); i++ {
		if equalFoldASCII(s[i:i+n], substr) {
			return i
		}
	}

	return -1
}

// equalFoldASCII returns true if b is equal to the lowercase ASCII s ignoring
// the ASCII case.  len(b) must be equal to len(s).
func equalFoldASCII(b []byte, s string) (ok bool) {
	for i := range b {
		c := b[i]
		if 'A' <= c && c <= 'Z' {
			c += 'a' - 'A'
		}

		if c != s[i] {
			return false
		}
	}

	return true
}

// escapeClosingTags prevents the closing tags inside the injected text from
// closing the injected element.
func escapeClosingTags(s string) (escaped string) {
	return strings.ReplaceAll(s, "</", `<\/`)
}
