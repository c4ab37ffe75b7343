// Package block holds the content model of the editor: typed, content-bearing blocks
// and the plain-value snapshots of them kept in undo logs and persistence.
package block

import (
	"fmt"
	"strings"
)

// ID is the logical id of a block. It is unique for the lifetime of an editing
// session and is never reused once retired.
type ID uint64

// Type is the tag of a Variant.
type Type int

const (
	TypeText Type = iota
	TypeUncertain
	TypeLacuna
	TypeBreak
	TypeAbbreviation
	TypeAnchor
	TypeCorrection
	TypeSpace
)

var typeNames = [...]string{
	TypeText:         "text",
	TypeUncertain:    "uncertain",
	TypeLacuna:       "lacuna",
	TypeBreak:        "break",
	TypeAbbreviation: "abbreviation",
	TypeAnchor:       "anchor",
	TypeCorrection:   "correction",
	TypeSpace:        "space",
}

// Types lists every block type in declaration order.
func Types() []Type {
	return []Type{TypeText, TypeUncertain, TypeLacuna, TypeBreak, TypeAbbreviation, TypeAnchor, TypeCorrection, TypeSpace}
}

func (t Type) String() string {
	if t < 0 || int(t) >= len(typeNames) {
		return fmt.Sprintf("type(%d)", int(t))
	}
	return typeNames[t]
}

// Valid reports whether t is one of the declared types.
func (t Type) Valid() bool {
	return t >= 0 && int(t) < len(typeNames)
}

// ContentBearing reports whether variants of this type expose a primary text.
func (t Type) ContentBearing() bool {
	switch t {
	case TypeBreak, TypeAnchor, TypeSpace:
		return false
	default:
		return t.Valid()
	}
}

// ParseType maps a type name (case-insensitive) to its Type.
func ParseType(s string) (Type, error) {
	name := strings.ToLower(strings.TrimSpace(s))
	for i, n := range typeNames {
		if n == name {
			return Type(i), nil
		}
	}
	// the verse shortcut names anchors by what they mark
	if name == "verse" {
		return TypeAnchor, nil
	}
	return 0, fmt.Errorf("unknown block type %q", s)
}

func (t Type) MarshalText() ([]byte, error) {
	if !t.Valid() {
		return nil, fmt.Errorf("invalid block type %d", int(t))
	}
	return []byte(t.String()), nil
}

func (t *Type) UnmarshalText(b []byte) error {
	parsed, err := ParseType(string(b))
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}

// BreakKind is what a Break block separates.
type BreakKind string

const (
	BreakLine   BreakKind = "line"
	BreakColumn BreakKind = "column"
	BreakPage   BreakKind = "page"
)

// ExtentUnit measures lacunae and spaces.
type ExtentUnit string

const (
	UnitCharacter ExtentUnit = "character"
	UnitLine      ExtentUnit = "line"
	UnitColumn    ExtentUnit = "column"
)

// Paragraph is normal unmarked text.
type Paragraph struct {
	Lang    string `json:"lang"`
	Content string `json:"content"`
}

// Uncertain is a damaged but still legible passage. Agent names the cause.
type Uncertain struct {
	Lang    string `json:"lang"`
	Cert    string `json:"cert,omitempty"`
	Agent   string `json:"agent"`
	Content string `json:"content"`
}

// Lacuna is a passage lost in the manuscript, with its reconstructed content.
type Lacuna struct {
	Content string     `json:"content"`
	Reason  string     `json:"reason"`
	Cert    string     `json:"cert,omitempty"`
	Extent  int        `json:"n"`
	Unit    ExtentUnit `json:"unit"`
}

// Break is a line, column or page break.
type Break struct {
	Kind BreakKind `json:"kind"`
}

// Abbreviation is an abbreviated surface form and its expansion.
type Abbreviation struct {
	Surface       string `json:"surface"`
	Expansion     string `json:"expansion"`
	SurfaceLang   string `json:"surface_lang"`
	ExpansionLang string `json:"expansion_lang"`
}

// Anchor marks the start of a verse.
type Anchor struct {
	Verse  string `json:"verse"`
	Scheme string `json:"scheme,omitempty"`
}

// Version is one reading of a corrected passage.
type Version struct {
	Lang    string `json:"lang"`
	Hand    string `json:"hand,omitempty"`
	Content string `json:"content"`
}

// Correction is a passage that one scribal hand changed; the first version is the
// reading shown as the block's content.
type Correction struct {
	Versions []Version `json:"versions"`
}

// Space is intended whitespace in the manuscript.
type Space struct {
	Quantity int        `json:"quantity"`
	Unit     ExtentUnit `json:"unit"`
}
