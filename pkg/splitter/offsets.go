// Package splitter turns a text selection inside one block into the blocks that
// replace it.
package splitter

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/rivo/uniseg"
)

// Units says how selection offsets count characters.
type Units int

const (
	// Runes counts Unicode scalar values.
	Runes Units = iota
	// Graphemes counts user-perceived characters (extended grapheme clusters).
	Graphemes
)

func (u Units) String() string {
	switch u {
	case Graphemes:
		return "graphemes"
	default:
		return "runes"
	}
}

// ParseUnits maps "runes" or "graphemes" to Units. Empty means Runes.
func ParseUnits(s string) (Units, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "runes", "rune", "chars":
		return Runes, nil
	case "graphemes", "grapheme", "clusters":
		return Graphemes, nil
	default:
		return Runes, fmt.Errorf("unknown selection units %q", s)
	}
}

// Selection is a pair of character offsets into a block's primary text.
// Start == End is a caret.
type Selection struct {
	Start int `json:"start"`
	End   int `json:"end"`
}

// Caret reports whether the selection is zero-width.
func (s Selection) Caret() bool {
	return s.Start == s.End
}

// ByteOffset returns the byte offset of the n-th character boundary of s.
// Offsets past the end clamp to len(s); negative offsets clamp to 0.
func ByteOffset(s string, n int, units Units) int {
	if n <= 0 {
		return 0
	}
	if units == Graphemes {
		return graphemeOffset(s, n)
	}
	i := 0
	for pos := range s {
		if i == n {
			return pos
		}
		i++
	}
	return len(s)
}

func graphemeOffset(s string, n int) int {
	pos := 0
	state := -1
	rest := s
	for i := 0; i < n && len(rest) > 0; i++ {
		var cluster string
		cluster, rest, _, state = uniseg.FirstGraphemeClusterInString(rest, state)
		pos += len(cluster)
	}
	return pos
}

// Bounds converts sel to byte offsets into s. A reversed selection is swapped
// and both ends are clamped to the string.
func Bounds(s string, sel Selection, units Units) (start, end int) {
	x, y := sel.Start, sel.End
	if x > y {
		x, y = y, x
	}
	start = ByteOffset(s, x, units)
	if x == y {
		return start, start
	}
	return start, ByteOffset(s, y, units)
}

// CharCount returns the length of s in the given units.
func CharCount(s string, units Units) int {
	if units == Graphemes {
		return uniseg.GraphemeClusterCount(s)
	}
	return utf8.RuneCountInString(s)
}
