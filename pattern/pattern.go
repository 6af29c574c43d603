// Package pattern finds wildcard byte signatures in memory.
//
// A signature is written as whitespace-separated tokens. Each token is
// either a two-digit hexadecimal byte or a wildcard ("?" or "??") that
// matches any byte value:
//
//	91 48 8B 05 ? ? ? ? 8B 53 14
//
// Signatures are also commonly distributed in "code style", as an escaped
// byte string and a mask in which 'x' marks an exact byte and '?' marks a
// wildcard. ParseCodeStyle accepts that notation.
package pattern

import (
	"bytes"
	"encoding/hex"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

const (
	exactMaskChar    = 'x'
	wildcardMaskChar = '?'
)

// ParseOrExit calls Parse, invoking DefaultExitFn if an error occurs.
func ParseOrExit(str string) Pattern {
	p, err := Parse(str)
	if err != nil {
		DefaultExitFn(errors.Wrapf(err, "failed to parse pattern %q", str))
	}
	return p
}

// Parse parses a whitespace-separated signature such as "AA BB ? ? CC".
func Parse(str string) (Pattern, error) {
	tokens := strings.Fields(str)
	if len(tokens) == 0 {
		return Pattern{}, errors.New("pattern cannot be empty")
	}

	values := make([]byte, len(tokens))
	mask := make([]bool, len(tokens))

	for i, token := range tokens {
		switch token {
		case "?", "??":
			continue
		}

		if len(token) != 2 {
			return Pattern{}, errors.Errorf("token %d (%q) must be two hex digits or a wildcard",
				i, token)
		}

		_, err := hex.Decode(values[i:i+1], []byte(token))
		if err != nil {
			return Pattern{}, errors.Wrapf(err, "failed to decode token %d (%q)", i, token)
		}

		mask[i] = true
	}

	return newPattern(values, mask), nil
}

// ParseCodeStyle parses a signature in code style, where sig holds the
// signature bytes (wildcard positions may contain any value) and mask
// holds one character per byte: 'x' for an exact byte, '?' for a wildcard.
func ParseCodeStyle(sig []byte, mask string) (Pattern, error) {
	if len(sig) == 0 {
		return Pattern{}, errors.New("pattern cannot be empty")
	}

	if len(sig) != len(mask) {
		return Pattern{}, errors.Errorf("signature is %d bytes, but mask is %d characters",
			len(sig), len(mask))
	}

	values := make([]byte, len(sig))
	exact := make([]bool, len(sig))

	for i := range mask {
		switch mask[i] {
		case exactMaskChar:
			values[i] = sig[i]
			exact[i] = true
		case wildcardMaskChar:
		default:
			return Pattern{}, errors.Errorf("unknown mask character %q at index %d", mask[i], i)
		}
	}

	return newPattern(values, exact), nil
}

// ParseEscapedCodeStyle is like ParseCodeStyle, but sig is an escaped
// string like "\x91\x48\x8B\x05\x00\x00\x00\x00".
func ParseEscapedCodeStyle(sig string, mask string) (Pattern, error) {
	unquoted, err := strconv.Unquote(`"` + sig + `"`)
	if err != nil {
		return Pattern{}, errors.Wrap(err, "failed to unescape signature")
	}

	return ParseCodeStyle([]byte(unquoted), mask)
}

func newPattern(values []byte, exact []bool) Pattern {
	p := Pattern{
		values: values,
		exact:  exact,
	}

	// The longest run of exact bytes is used to find candidate
	// positions with bytes.Index before verifying the rest.
	runStart := 0
	for i := 0; i <= len(exact); i++ {
		if i < len(exact) && exact[i] {
			continue
		}

		if i-runStart > p.anchorLen {
			p.anchorStart = runStart
			p.anchorLen = i - runStart
		}

		runStart = i + 1
	}

	return p
}

// Pattern is a compiled byte signature. The zero value matches nothing.
type Pattern struct {
	values      []byte
	exact       []bool
	anchorStart int
	anchorLen   int
}

// Len returns the number of bytes the pattern spans.
func (o Pattern) Len() int {
	return len(o.values)
}

// IsWildcard returns true if the byte at index i matches any value.
func (o Pattern) IsWildcard(i int) bool {
	return !o.exact[i]
}

// Find returns the offset of the first (lowest) position in window
// where the pattern matches, or -1 if there is no match.
func (o Pattern) Find(window []byte) int {
	n := len(o.values)
	if n == 0 || len(window) < n {
		return -1
	}

	lastStart := len(window) - n

	if o.anchorLen == 0 {
		// Only wildcards.
		return 0
	}

	anchor := o.values[o.anchorStart : o.anchorStart+o.anchorLen]

	pos := o.anchorStart
	for pos-o.anchorStart <= lastStart {
		idx := bytes.Index(window[pos:], anchor)
		if idx < 0 {
			return -1
		}

		start := pos + idx - o.anchorStart
		if start > lastStart {
			return -1
		}

		if o.matchesAt(window, start) {
			return start
		}

		pos += idx + 1
	}

	return -1
}

// Matches returns true if the pattern matches at the start of b.
func (o Pattern) Matches(b []byte) bool {
	if len(o.values) == 0 || len(b) < len(o.values) {
		return false
	}

	return o.matchesAt(b, 0)
}

func (o Pattern) matchesAt(window []byte, start int) bool {
	for i, v := range o.values {
		if o.exact[i] && window[start+i] != v {
			return false
		}
	}

	return true
}

// String returns the pattern in its whitespace-separated form,
// using "?" for wildcards.
func (o Pattern) String() string {
	var b strings.Builder

	for i, v := range o.values {
		if i > 0 {
			b.WriteByte(' ')
		}

		if o.exact[i] {
			b.WriteString(strings.ToUpper(hex.EncodeToString([]byte{v})))
		} else {
			b.WriteByte(wildcardMaskChar)
		}
	}

	return b.String()
}
