package tei

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"transcription-editor/pkg/block"
)

func manuscript() []block.Snapshot {
	return []block.Snapshot{
		{ID: 4, Variant: block.NewText("grc", "ἐν ἀρχῇ ")},
		{ID: 7, Variant: block.Variant{Type: block.TypeUncertain, Uncertain: &block.Uncertain{
			Lang: "grc", Cert: "low", Agent: "faded", Content: "ἦν",
		}}},
		{ID: 8, Variant: block.Variant{Type: block.TypeLacuna, Lacuna: &block.Lacuna{
			Content: "ὁ λόγος", Reason: "hole", Extent: 7, Unit: block.UnitCharacter,
		}}},
		{ID: 9, Variant: block.NewBreak(block.BreakPage)},
		{ID: 10, Variant: block.Variant{Type: block.TypeAbbreviation, Abbreviation: &block.Abbreviation{
			Surface: "θς", Expansion: "θεός", SurfaceLang: "grc", ExpansionLang: "grc",
		}}},
		{ID: 11, Variant: block.Variant{Type: block.TypeAnchor, Anchor: &block.Anchor{Verse: "John 1:1", Scheme: "kjv"}}},
		{ID: 12, Variant: block.Variant{Type: block.TypeCorrection, Correction: &block.Correction{Versions: []block.Version{
			{Lang: "grc", Hand: "m1", Content: "και"},
			{Lang: "grc", Hand: "m2", Content: "καὶ"},
		}}}},
		{ID: 13, Variant: block.Variant{Type: block.TypeSpace, Space: &block.Space{Quantity: 2, Unit: block.UnitLine}}},
		{ID: 14, Variant: block.NewText("la", "<a & b>")},
	}
}

func variants(snaps []block.Snapshot) []block.Variant {
	out := make([]block.Variant, len(snaps))
	for i, s := range snaps {
		out[i] = s.Variant
	}
	return out
}

func TestRoundTrip(t *testing.T) {
	meta := Meta{Title: "P.Oxy 1", Name: "P1", PageNr: "3r", Institution: "Bodleian", Collection: "Oxyrhynchus", Language: "grc"}
	data, err := Encode(meta, manuscript())
	require.NoError(t, err)

	gotMeta, got, err := Decode(data)
	require.NoError(t, err)
	assert.Equal(t, meta, gotMeta)
	require.Len(t, got, len(manuscript()))
	for i, want := range variants(manuscript()) {
		assert.True(t, want.Equal(got[i]), "block %d: want %+v got %+v", i, want, got[i])
	}
}

func TestEncodeShape(t *testing.T) {
	data, err := Encode(Meta{Title: "t"}, manuscript()[:4])
	require.NoError(t, err)
	s := string(data)

	assert.True(t, strings.HasPrefix(s, "<?xml"))
	assert.Contains(t, s, `<TEI xmlns="http://www.tei-c.org/ns/1.0">`)
	assert.Contains(t, s, `<p xml:lang="grc">ἐν ἀρχῇ </p>`)
	assert.Contains(t, s, `<unclear xml:lang="grc" cert="low" agent="faded">ἦν</unclear>`)
	assert.Contains(t, s, `<gap reason="hole" quantity="7" unit="character">ὁ λόγος</gap>`)
	assert.Contains(t, s, `<pb></pb>`)
}

func TestEncodeRejectsInvalidVariant(t *testing.T) {
	_, err := Encode(Meta{}, []block.Snapshot{{ID: 1, Variant: block.Variant{Type: block.TypeText}}})
	assert.ErrorIs(t, err, block.ErrInvalidVariant)
}

func TestDecodeWithoutPageDiv(t *testing.T) {
	doc := `<TEI xmlns="http://www.tei-c.org/ns/1.0"><text><body>
		<ab xml:lang="la">in principio</ab>
		<lb/>
		<gap reason="lost"/>
	</body></text></TEI>`
	_, got, err := Decode([]byte(doc))
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.True(t, block.NewText("la", "in principio").Equal(got[0]))
	assert.Equal(t, block.TypeBreak, got[1].Type)
	assert.Equal(t, 1, got[2].Lacuna.Extent)
	assert.Equal(t, block.UnitCharacter, got[2].Lacuna.Unit)
}

func TestDecodeErrors(t *testing.T) {
	_, _, err := Decode([]byte(`<TEI><text></text></TEI>`))
	assert.ErrorIs(t, err, ErrNoBody)

	_, _, err = Decode([]byte(`<TEI><text><body><figure/></body></text></TEI>`))
	assert.ErrorIs(t, err, ErrUnsupportedElement)

	_, _, err = Decode([]byte(`<TEI><text><body><app></app></body></text></TEI>`))
	assert.ErrorIs(t, err, ErrUnsupportedElement)

	_, _, err = Decode([]byte(`<TEI></text>`))
	assert.Error(t, err)
}

func TestSnapshotsNumbersFromOne(t *testing.T) {
	snaps := Snapshots([]block.Variant{block.NewText("en", "a"), block.NewBreak(block.BreakLine)})
	require.Len(t, snaps, 2)
	assert.Equal(t, block.ID(1), snaps[0].ID)
	assert.Equal(t, block.ID(2), snaps[1].ID)
}
