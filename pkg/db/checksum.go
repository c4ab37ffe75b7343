package db

import (
	"encoding/hex"
	"encoding/json"
	"fmt"

	"github.com/zeebo/blake3"

	"transcription-editor/pkg/block"
)

// Checksum returns the hex blake3 digest of the JSON encoding of blocks.
// Saving a document whose checksum did not change rewrites nothing.
func Checksum(blocks []block.Snapshot) (string, error) {
	_, sum, err := encodeBlocks(blocks)
	return sum, err
}

func encodeBlocks(blocks []block.Snapshot) ([]byte, string, error) {
	if blocks == nil {
		blocks = []block.Snapshot{}
	}
	data, err := json.Marshal(blocks)
	if err != nil {
		return nil, "", fmt.Errorf("encode blocks: %w", err)
	}
	h := blake3.Sum256(data)
	return data, hex.EncodeToString(h[:]), nil
}

func decodeBlocks(data []byte) ([]block.Snapshot, error) {
	var blocks []block.Snapshot
	if err := json.Unmarshal(data, &blocks); err != nil {
		return nil, fmt.Errorf("decode blocks: %w", err)
	}
	for i, b := range blocks {
		if err := b.Variant.Validate(); err != nil {
			return nil, fmt.Errorf("decode block %d at position %d: %w", b.ID, i, err)
		}
	}
	return blocks, nil
}
