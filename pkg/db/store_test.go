package db

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"transcription-editor/pkg/block"
	"transcription-editor/pkg/config"
)

func sampleBlocks() []block.Snapshot {
	return []block.Snapshot{
		{ID: 1, Variant: block.NewText("grc", "ἐν ἀρχῇ")},
		{ID: 2, Variant: block.NewUncertain("grc", "ἦν", "faded")},
		{ID: 3, Variant: block.NewBreak(block.BreakLine)},
		{ID: 5, Variant: block.New(block.TypeCorrection, "grc", "ὁ λόγος")},
	}
}

func stores(t *testing.T) map[string]IDocumentStore {
	t.Helper()
	sqlite, err := NewSQLiteDocumentStore(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqlite.Close() })

	return map[string]IDocumentStore{
		"memory": NewMemoryDocumentStore(),
		"sqlite": sqlite,
	}
}

func TestDocumentLifecycle(t *testing.T) {
	ctx := context.Background()
	for name, s := range stores(t) {
		t.Run(name, func(t *testing.T) {
			doc, err := s.CreateDocument(ctx, "Papyrus 1", "grc", sampleBlocks())
			require.NoError(t, err)
			assert.NotEmpty(t, doc.ID)
			assert.Equal(t, 1, doc.Version)
			assert.Len(t, doc.Checksum, 64)

			got, err := s.GetDocument(ctx, doc.ID)
			require.NoError(t, err)
			assert.Equal(t, "Papyrus 1", got.Title)
			assert.Equal(t, "grc", got.Language)
			assert.Equal(t, sampleBlocks(), got.Blocks)
			assert.Equal(t, doc.Checksum, got.Checksum)
			assert.True(t, doc.CreatedAt.Equal(got.CreatedAt))

			list, err := s.ListDocuments(ctx)
			require.NoError(t, err)
			require.Len(t, list, 1)
			assert.Equal(t, doc.ID, list[0].ID)

			require.NoError(t, s.DeleteDocument(ctx, doc.ID))
			_, err = s.GetDocument(ctx, doc.ID)
			assert.ErrorIs(t, err, ErrDocumentNotFound)
			assert.ErrorIs(t, s.DeleteDocument(ctx, doc.ID), ErrDocumentNotFound)
		})
	}
}

func TestUpdateDocument(t *testing.T) {
	ctx := context.Background()
	for name, s := range stores(t) {
		t.Run(name, func(t *testing.T) {
			doc, err := s.CreateDocument(ctx, "draft", "grc", nil)
			require.NoError(t, err)
			assert.Empty(t, doc.Blocks)

			blocks := sampleBlocks()
			updated, err := s.UpdateDocument(ctx, doc.ID, &DocumentUpdate{Blocks: &blocks})
			require.NoError(t, err)
			assert.Equal(t, 2, updated.Version)
			assert.Equal(t, sampleBlocks(), updated.Blocks)
			assert.NotEqual(t, doc.Checksum, updated.Checksum)

			// same blocks again: nothing is written
			same := sampleBlocks()
			again, err := s.UpdateDocument(ctx, doc.ID, &DocumentUpdate{Blocks: &same})
			require.NoError(t, err)
			assert.Equal(t, 2, again.Version)

			title := "final"
			renamed, err := s.UpdateDocument(ctx, doc.ID, &DocumentUpdate{Title: &title})
			require.NoError(t, err)
			assert.Equal(t, 3, renamed.Version)
			assert.Equal(t, "final", renamed.Title)
			assert.Equal(t, sampleBlocks(), renamed.Blocks)

			noop, err := s.UpdateDocument(ctx, doc.ID, &DocumentUpdate{})
			require.NoError(t, err)
			assert.Equal(t, 3, noop.Version)

			_, err = s.UpdateDocument(ctx, "missing", &DocumentUpdate{Title: &title})
			assert.ErrorIs(t, err, ErrDocumentNotFound)
		})
	}
}

func TestMemoryStoreReturnsCopies(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryDocumentStore()
	blocks := sampleBlocks()
	doc, err := s.CreateDocument(ctx, "t", "grc", blocks)
	require.NoError(t, err)

	blocks[0].Variant.Text.Content = "changed by caller"
	doc.Blocks[1].Variant.Uncertain.Content = "changed by reader"

	got, err := s.GetDocument(ctx, doc.ID)
	require.NoError(t, err)
	assert.Equal(t, sampleBlocks(), got.Blocks)
}

func TestChecksumIsStable(t *testing.T) {
	a, err := Checksum(sampleBlocks())
	require.NoError(t, err)
	b, err := Checksum(sampleBlocks())
	require.NoError(t, err)
	assert.Equal(t, a, b)

	other := sampleBlocks()
	other[0].ID = 9
	c, err := Checksum(other)
	require.NoError(t, err)
	assert.NotEqual(t, a, c)

	empty, err := Checksum(nil)
	require.NoError(t, err)
	alsoEmpty, err := Checksum([]block.Snapshot{})
	require.NoError(t, err)
	assert.Equal(t, empty, alsoEmpty)
}

func TestDecodeRejectsInvalidVariants(t *testing.T) {
	_, err := decodeBlocks([]byte(`[{"id":1,"variant":{"type":"text"}}]`))
	assert.ErrorIs(t, err, block.ErrInvalidVariant)
}

func TestTimestampScan(t *testing.T) {
	var ts timestamp
	require.NoError(t, ts.Scan("2024-05-01 10:11:12.5+00:00"))
	assert.Equal(t, 2024, ts.Year())
	require.NoError(t, ts.Scan([]byte("2024-05-01T10:11:12Z")))
	assert.Equal(t, 10, ts.Hour())
	assert.Error(t, ts.Scan("yesterday"))
	assert.Error(t, ts.Scan(3.5))
}

func TestOpen(t *testing.T) {
	s, err := Open(&config.Config{Database: config.DatabaseConfig{Driver: "memory"}})
	require.NoError(t, err)
	assert.IsType(t, &MemoryDocumentStore{}, s)

	s, err = Open(&config.Config{Database: config.DatabaseConfig{Driver: "sqlite", SQLitePath: ":memory:"}})
	require.NoError(t, err)
	assert.IsType(t, &SQLiteDocumentStore{}, s)
	require.NoError(t, s.Close())

	_, err = Open(&config.Config{Database: config.DatabaseConfig{Driver: "oracle"}})
	assert.ErrorIs(t, err, ErrUnknownDriver)
}
