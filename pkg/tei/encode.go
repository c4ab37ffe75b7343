// Package tei converts block sequences to and from TEI-shaped XML.
//
// Each block becomes one element in the body of a page division:
//
//	Text          <p xml:lang>
//	Uncertain     <unclear xml:lang cert agent>
//	Lacuna        <gap reason cert quantity unit>
//	Break         <lb/> <cb/> <pb/>
//	Abbreviation  <choice><abbr/><expan/></choice>
//	Anchor        <anchor type="verse" n subtype/>
//	Correction    <app><rdg xml:lang hand/>...</app>
//	Space         <space quantity unit/>
package tei

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"io"
	"strconv"

	"transcription-editor/pkg/block"
)

// Namespace is the TEI namespace written on the root element.
const Namespace = "http://www.tei-c.org/ns/1.0"

// Meta describes the manuscript page a transcription belongs to.
type Meta struct {
	Title       string `json:"title"`
	Name        string `json:"name,omitempty"`
	PageNr      string `json:"page_nr,omitempty"`
	Institution string `json:"institution,omitempty"`
	Collection  string `json:"collection,omitempty"`
	Language    string `json:"language,omitempty"`
}

// Encode renders meta and blocks as a TEI document.
func Encode(meta Meta, blocks []block.Snapshot) ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteString(xml.Header)
	if err := Write(&buf, meta, blocks); err != nil {
		return nil, err
	}
	buf.WriteByte('\n')
	return buf.Bytes(), nil
}

// Write streams the TEI document to w without the XML declaration.
func Write(w io.Writer, meta Meta, blocks []block.Snapshot) error {
	e := &encoder{enc: xml.NewEncoder(w)}
	e.enc.Indent("", "  ")

	e.start("TEI", attr("xmlns", Namespace))
	e.header(meta)
	e.start("text", langAttr(meta.Language)...)
	e.start("body")
	e.start("div", attr("type", "page"), attr("n", meta.PageNr))
	for _, b := range blocks {
		e.block(b)
	}
	e.end("div")
	e.end("body")
	e.end("text")
	e.end("TEI")

	if e.err != nil {
		return e.err
	}
	return e.enc.Flush()
}

// encoder remembers the first error so the element sequence reads linearly.
type encoder struct {
	enc *xml.Encoder
	err error
}

func (e *encoder) token(t xml.Token) {
	if e.err == nil {
		e.err = e.enc.EncodeToken(t)
	}
}

func (e *encoder) start(name string, attrs ...xml.Attr) {
	var kept []xml.Attr
	for _, a := range attrs {
		if a.Value != "" {
			kept = append(kept, a)
		}
	}
	e.token(xml.StartElement{Name: xml.Name{Local: name}, Attr: kept})
}

func (e *encoder) end(name string) {
	e.token(xml.EndElement{Name: xml.Name{Local: name}})
}

func (e *encoder) text(s string) {
	if s != "" {
		e.token(xml.CharData(s))
	}
}

// element writes <name attrs>text</name>.
func (e *encoder) element(name, text string, attrs ...xml.Attr) {
	e.start(name, attrs...)
	e.text(text)
	e.end(name)
}

func (e *encoder) header(meta Meta) {
	e.start("teiHeader")
	e.start("fileDesc")
	e.start("titleStmt")
	e.element("title", meta.Title)
	e.end("titleStmt")
	e.start("sourceDesc")
	e.start("msDesc")
	e.start("msIdentifier")
	e.element("institution", meta.Institution)
	e.element("collection", meta.Collection)
	e.element("idno", meta.Name)
	e.end("msIdentifier")
	e.end("msDesc")
	e.end("sourceDesc")
	e.end("fileDesc")
	e.end("teiHeader")
}

func (e *encoder) block(b block.Snapshot) {
	if e.err != nil {
		return
	}
	v := b.Variant
	if err := v.Validate(); err != nil {
		e.err = fmt.Errorf("block %d: %w", b.ID, err)
		return
	}
	switch v.Type {
	case block.TypeText:
		e.element("p", v.Text.Content, langAttr(v.Text.Lang)...)
	case block.TypeUncertain:
		u := v.Uncertain
		e.element("unclear", u.Content, append(langAttr(u.Lang), attr("cert", u.Cert), attr("agent", u.Agent))...)
	case block.TypeLacuna:
		l := v.Lacuna
		e.element("gap", l.Content,
			attr("reason", l.Reason),
			attr("cert", l.Cert),
			attr("quantity", strconv.Itoa(l.Extent)),
			attr("unit", string(l.Unit)),
		)
	case block.TypeBreak:
		e.element(breakElement(v.Break.Kind), "")
	case block.TypeAbbreviation:
		a := v.Abbreviation
		e.start("choice")
		e.element("abbr", a.Surface, langAttr(a.SurfaceLang)...)
		e.element("expan", a.Expansion, langAttr(a.ExpansionLang)...)
		e.end("choice")
	case block.TypeAnchor:
		e.element("anchor", "", attr("type", "verse"), attr("n", v.Anchor.Verse), attr("subtype", v.Anchor.Scheme))
	case block.TypeCorrection:
		e.start("app")
		for _, ver := range v.Correction.Versions {
			e.element("rdg", ver.Content, append(langAttr(ver.Lang), attr("hand", ver.Hand))...)
		}
		e.end("app")
	case block.TypeSpace:
		e.element("space", "", attr("quantity", strconv.Itoa(v.Space.Quantity)), attr("unit", string(v.Space.Unit)))
	}
}

func breakElement(k block.BreakKind) string {
	switch k {
	case block.BreakColumn:
		return "cb"
	case block.BreakPage:
		return "pb"
	default:
		return "lb"
	}
}

func attr(name, value string) xml.Attr {
	return xml.Attr{Name: xml.Name{Local: name}, Value: value}
}

func langAttr(lang string) []xml.Attr {
	return []xml.Attr{attr("xml:lang", lang)}
}
