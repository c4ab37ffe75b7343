package tei

import (
	"bytes"
	"errors"
	"fmt"
	"strconv"

	"github.com/antchfx/xmlquery"
	"github.com/antchfx/xpath"

	"transcription-editor/pkg/block"
)

var (
	// ErrNoBody is returned for documents without a TEI body.
	ErrNoBody = errors.New("tei: document has no body")

	// ErrUnsupportedElement is returned for body elements that map to no block type.
	ErrUnsupportedElement = errors.New("tei: unsupported element")
)

var (
	bodyExpr        = xpath.MustCompile(`//*[local-name()='body']`)
	pageExpr        = xpath.MustCompile(`*[local-name()='div'][1]`)
	titleExpr       = xpath.MustCompile(`//*[local-name()='titleStmt']/*[local-name()='title']`)
	institutionExpr = xpath.MustCompile(`//*[local-name()='msIdentifier']/*[local-name()='institution']`)
	collectionExpr  = xpath.MustCompile(`//*[local-name()='msIdentifier']/*[local-name()='collection']`)
	idnoExpr        = xpath.MustCompile(`//*[local-name()='msIdentifier']/*[local-name()='idno']`)
	textExpr        = xpath.MustCompile(`//*[local-name()='text']`)
	abbrExpr        = xpath.MustCompile(`*[local-name()='abbr']`)
	expanExpr       = xpath.MustCompile(`*[local-name()='expan']`)
	rdgExpr         = xpath.MustCompile(`*[local-name()='rdg']`)
)

// Decode parses a TEI document into its metadata and block variants, in
// document order. Ids are left to whoever loads the variants.
func Decode(data []byte) (Meta, []block.Variant, error) {
	doc, err := xmlquery.Parse(bytes.NewReader(data))
	if err != nil {
		return Meta{}, nil, fmt.Errorf("tei: parsing XML: %w", err)
	}

	meta := Meta{
		Title:       innerText(xmlquery.QuerySelector(doc, titleExpr)),
		Institution: innerText(xmlquery.QuerySelector(doc, institutionExpr)),
		Collection:  innerText(xmlquery.QuerySelector(doc, collectionExpr)),
		Name:        innerText(xmlquery.QuerySelector(doc, idnoExpr)),
	}
	if text := xmlquery.QuerySelector(doc, textExpr); text != nil {
		meta.Language = attrValue(text, "lang")
	}

	body := xmlquery.QuerySelector(doc, bodyExpr)
	if body == nil {
		return meta, nil, ErrNoBody
	}
	container := body
	if page := xmlquery.QuerySelector(body, pageExpr); page != nil {
		container = page
		meta.PageNr = attrValue(page, "n")
	}

	var out []block.Variant
	for n := container.FirstChild; n != nil; n = n.NextSibling {
		if n.Type != xmlquery.ElementNode {
			continue
		}
		v, err := decodeElement(n)
		if err != nil {
			return meta, nil, err
		}
		out = append(out, v)
	}
	return meta, out, nil
}

// Snapshots numbers variants 1..n so they can be loaded into a session.
func Snapshots(variants []block.Variant) []block.Snapshot {
	out := make([]block.Snapshot, len(variants))
	for i, v := range variants {
		out[i] = block.Snapshot{ID: block.ID(i + 1), Variant: v}
	}
	return out
}

func decodeElement(n *xmlquery.Node) (block.Variant, error) {
	switch n.Data {
	case "p", "ab":
		return block.NewText(attrValue(n, "lang"), n.InnerText()), nil
	case "unclear":
		return block.Variant{Type: block.TypeUncertain, Uncertain: &block.Uncertain{
			Lang:    attrValue(n, "lang"),
			Cert:    attrValue(n, "cert"),
			Agent:   attrValue(n, "agent"),
			Content: n.InnerText(),
		}}, nil
	case "gap":
		return block.Variant{Type: block.TypeLacuna, Lacuna: &block.Lacuna{
			Content: n.InnerText(),
			Reason:  attrValue(n, "reason"),
			Cert:    attrValue(n, "cert"),
			Extent:  atoi(attrValue(n, "quantity"), 1),
			Unit:    extentUnit(attrValue(n, "unit")),
		}}, nil
	case "lb":
		return block.NewBreak(block.BreakLine), nil
	case "cb":
		return block.NewBreak(block.BreakColumn), nil
	case "pb":
		return block.NewBreak(block.BreakPage), nil
	case "choice":
		abbr := xmlquery.QuerySelector(n, abbrExpr)
		expan := xmlquery.QuerySelector(n, expanExpr)
		return block.Variant{Type: block.TypeAbbreviation, Abbreviation: &block.Abbreviation{
			Surface:       innerText(abbr),
			Expansion:     innerText(expan),
			SurfaceLang:   attrValue(abbr, "lang"),
			ExpansionLang: attrValue(expan, "lang"),
		}}, nil
	case "anchor":
		return block.Variant{Type: block.TypeAnchor, Anchor: &block.Anchor{
			Verse:  attrValue(n, "n"),
			Scheme: attrValue(n, "subtype"),
		}}, nil
	case "app":
		versions := []block.Version{}
		for _, rdg := range xmlquery.QuerySelectorAll(n, rdgExpr) {
			versions = append(versions, block.Version{
				Lang:    attrValue(rdg, "lang"),
				Hand:    attrValue(rdg, "hand"),
				Content: rdg.InnerText(),
			})
		}
		if len(versions) == 0 {
			return block.Variant{}, fmt.Errorf("%w: <app> without <rdg>", ErrUnsupportedElement)
		}
		return block.Variant{Type: block.TypeCorrection, Correction: &block.Correction{Versions: versions}}, nil
	case "space":
		return block.Variant{Type: block.TypeSpace, Space: &block.Space{
			Quantity: atoi(attrValue(n, "quantity"), 1),
			Unit:     extentUnit(attrValue(n, "unit")),
		}}, nil
	default:
		return block.Variant{}, fmt.Errorf("%w: <%s>", ErrUnsupportedElement, n.Data)
	}
}

func innerText(n *xmlquery.Node) string {
	if n == nil {
		return ""
	}
	return n.InnerText()
}

// attrValue matches on the local name so xml:lang and a prefix-less lang both work.
func attrValue(n *xmlquery.Node, local string) string {
	if n == nil {
		return ""
	}
	for _, a := range n.Attr {
		if a.Name.Local == local {
			return a.Value
		}
	}
	return ""
}

func atoi(s string, fallback int) int {
	n, err := strconv.Atoi(s)
	if err != nil {
		return fallback
	}
	return n
}

func extentUnit(s string) block.ExtentUnit {
	switch block.ExtentUnit(s) {
	case block.UnitLine, block.UnitColumn:
		return block.ExtentUnit(s)
	default:
		return block.UnitCharacter
	}
}
