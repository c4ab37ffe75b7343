package block

import (
	"errors"
	"fmt"
	"slices"
)

// ErrInvalidVariant indicates a variant whose payload does not match its tag.
var ErrInvalidVariant = errors.New("invalid variant")

// Variant is the content of a block: a closed tagged union where Type selects
// which payload pointer is populated. All other payloads are nil.
//
// The payload pointers are the mutable cells of a live block. Snapshots hold
// deep copies, see Clone.
type Variant struct {
	Type         Type          `json:"type"`
	Text         *Paragraph    `json:"text,omitempty"`
	Uncertain    *Uncertain    `json:"uncertain,omitempty"`
	Lacuna       *Lacuna       `json:"lacuna,omitempty"`
	Break        *Break        `json:"break,omitempty"`
	Abbreviation *Abbreviation `json:"abbreviation,omitempty"`
	Anchor       *Anchor       `json:"anchor,omitempty"`
	Correction   *Correction   `json:"correction,omitempty"`
	Space        *Space        `json:"space,omitempty"`
}

// Fragment is one piece produced by splitting a variant.
type Fragment struct {
	Variant Variant
	// Focus is set on the fragment the user edits next.
	Focus bool
}

// NewText returns a Text variant.
func NewText(lang, content string) Variant {
	return Variant{Type: TypeText, Text: &Paragraph{Lang: lang, Content: content}}
}

// NewUncertain returns an Uncertain variant with the given reason.
func NewUncertain(lang, content, agent string) Variant {
	return Variant{Type: TypeUncertain, Uncertain: &Uncertain{Lang: lang, Content: content, Agent: agent}}
}

// NewLacuna returns a Lacuna variant with the given reason.
func NewLacuna(content, reason string) Variant {
	return Variant{Type: TypeLacuna, Lacuna: &Lacuna{Content: content, Reason: reason, Extent: 1, Unit: UnitCharacter}}
}

// NewBreak returns a Break variant.
func NewBreak(kind BreakKind) Variant {
	return Variant{Type: TypeBreak, Break: &Break{Kind: kind}}
}

// New constructs a fresh variant of type t. Content is dropped for content-free
// types; secondary fields take their defaults.
func New(t Type, lang, content string) Variant {
	switch t {
	case TypeText:
		return NewText(lang, content)
	case TypeUncertain:
		return NewUncertain(lang, content, "")
	case TypeLacuna:
		return NewLacuna(content, "")
	case TypeBreak:
		return NewBreak(BreakLine)
	case TypeAbbreviation:
		return Variant{Type: TypeAbbreviation, Abbreviation: &Abbreviation{
			Surface:       content,
			Expansion:     content,
			SurfaceLang:   lang,
			ExpansionLang: lang,
		}}
	case TypeAnchor:
		return Variant{Type: TypeAnchor, Anchor: &Anchor{}}
	case TypeCorrection:
		return Variant{Type: TypeCorrection, Correction: &Correction{
			Versions: []Version{{Lang: lang, Content: content}},
		}}
	case TypeSpace:
		return Variant{Type: TypeSpace, Space: &Space{Quantity: 1, Unit: UnitCharacter}}
	default:
		return NewText(lang, content)
	}
}

// Validate checks that exactly the payload selected by Type is populated.
func (v Variant) Validate() error {
	set := 0
	for _, p := range []bool{
		v.Text != nil, v.Uncertain != nil, v.Lacuna != nil, v.Break != nil,
		v.Abbreviation != nil, v.Anchor != nil, v.Correction != nil, v.Space != nil,
	} {
		if p {
			set++
		}
	}
	if set != 1 || !v.payloadSet() {
		return fmt.Errorf("%w: tag %s with %d payloads", ErrInvalidVariant, v.Type, set)
	}
	return nil
}

func (v Variant) payloadSet() bool {
	switch v.Type {
	case TypeText:
		return v.Text != nil
	case TypeUncertain:
		return v.Uncertain != nil
	case TypeLacuna:
		return v.Lacuna != nil
	case TypeBreak:
		return v.Break != nil
	case TypeAbbreviation:
		return v.Abbreviation != nil
	case TypeAnchor:
		return v.Anchor != nil
	case TypeCorrection:
		return v.Correction != nil
	case TypeSpace:
		return v.Space != nil
	default:
		return false
	}
}

// Content returns the primary editable text. The second result is false for
// content-free variants (breaks, anchors, spaces).
func (v Variant) Content() (string, bool) {
	if !v.payloadSet() {
		return "", false
	}
	switch v.Type {
	case TypeText:
		return v.Text.Content, true
	case TypeUncertain:
		return v.Uncertain.Content, true
	case TypeLacuna:
		return v.Lacuna.Content, true
	case TypeAbbreviation:
		return v.Abbreviation.Surface, true
	case TypeCorrection:
		if len(v.Correction.Versions) == 0 {
			return "", true
		}
		return v.Correction.Versions[0].Content, true
	default:
		return "", false
	}
}

// Lang returns the primary language of the variant, if it carries one.
func (v Variant) Lang() (string, bool) {
	if !v.payloadSet() {
		return "", false
	}
	switch v.Type {
	case TypeText:
		return v.Text.Lang, true
	case TypeUncertain:
		return v.Uncertain.Lang, true
	case TypeAbbreviation:
		return v.Abbreviation.ExpansionLang, true
	case TypeCorrection:
		if len(v.Correction.Versions) == 0 {
			return "", false
		}
		return v.Correction.Versions[0].Lang, true
	default:
		return "", false
	}
}

// WithNewContent returns a copy of v with its primary text replaced and every
// secondary field kept. Content-free variants are returned unchanged.
func (v Variant) WithNewContent(text string) Variant {
	out := v.Clone()
	if !out.payloadSet() {
		return out
	}
	switch out.Type {
	case TypeText:
		out.Text.Content = text
	case TypeUncertain:
		out.Uncertain.Content = text
	case TypeLacuna:
		out.Lacuna.Content = text
	case TypeAbbreviation:
		out.Abbreviation.Surface = text
		out.Abbreviation.Expansion = text
	case TypeCorrection:
		// a fragment of a correction only keeps the reading it was cut from
		var first Version
		if len(out.Correction.Versions) > 0 {
			first = out.Correction.Versions[0]
		}
		first.Content = text
		out.Correction.Versions = []Version{first}
	}
	return out
}

// Clone returns a deep copy of v sharing no payload memory with it.
func (v Variant) Clone() Variant {
	out := Variant{Type: v.Type}
	if v.Text != nil {
		p := *v.Text
		out.Text = &p
	}
	if v.Uncertain != nil {
		p := *v.Uncertain
		out.Uncertain = &p
	}
	if v.Lacuna != nil {
		p := *v.Lacuna
		out.Lacuna = &p
	}
	if v.Break != nil {
		p := *v.Break
		out.Break = &p
	}
	if v.Abbreviation != nil {
		p := *v.Abbreviation
		out.Abbreviation = &p
	}
	if v.Anchor != nil {
		p := *v.Anchor
		out.Anchor = &p
	}
	if v.Correction != nil {
		out.Correction = &Correction{Versions: slices.Clone(v.Correction.Versions)}
	}
	if v.Space != nil {
		p := *v.Space
		out.Space = &p
	}
	return out
}

// Equal compares tag and payload values. Payload identity is irrelevant.
func (v Variant) Equal(o Variant) bool {
	if v.Type != o.Type {
		return false
	}
	switch v.Type {
	case TypeText:
		return ptrEqual(v.Text, o.Text)
	case TypeUncertain:
		return ptrEqual(v.Uncertain, o.Uncertain)
	case TypeLacuna:
		return ptrEqual(v.Lacuna, o.Lacuna)
	case TypeBreak:
		return ptrEqual(v.Break, o.Break)
	case TypeAbbreviation:
		return ptrEqual(v.Abbreviation, o.Abbreviation)
	case TypeAnchor:
		return ptrEqual(v.Anchor, o.Anchor)
	case TypeCorrection:
		if v.Correction == nil || o.Correction == nil {
			return v.Correction == o.Correction
		}
		return slices.Equal(v.Correction.Versions, o.Correction.Versions)
	case TypeSpace:
		return ptrEqual(v.Space, o.Space)
	default:
		return false
	}
}

func ptrEqual[T comparable](a, b *T) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

// SplitAt cuts the primary text at the byte offsets [start, end) and returns
// the fragments in document order: the selected part becomes a focused variant
// of newType, the parts before and after keep v's type and secondary fields.
//
// Offsets must fall on character boundaries; they are clamped to the content.
// Content-free variants cannot be split and come back as a single unfocused copy.
func (v Variant) SplitAt(start, end int, newType Type) []Fragment {
	content, ok := v.Content()
	if !ok {
		return []Fragment{{Variant: v.Clone(), Focus: false}}
	}
	end = min(max(end, 0), len(content))
	start = min(max(start, 0), end)
	lang, _ := v.Lang()

	before, middle, after := content[:start], content[start:end], content[end:]
	if before == "" && after == "" {
		// everything selected: the whole block changes type
		return []Fragment{{Variant: New(newType, lang, content), Focus: true}}
	}

	out := make([]Fragment, 0, 3)
	if before != "" {
		out = append(out, Fragment{Variant: v.WithNewContent(before)})
	}
	out = append(out, Fragment{Variant: New(newType, lang, middle), Focus: true})
	if after != "" {
		out = append(out, Fragment{Variant: v.WithNewContent(after)})
	}
	return out
}
