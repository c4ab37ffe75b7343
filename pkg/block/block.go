package block

// Block is one live, addressable unit of document content.
type Block struct {
	ID      ID
	Variant Variant
	// Focus asks the presentation layer to focus this block's primary input on
	// its next render. It is not document content.
	Focus bool
}

// Snapshot is the dehydrated form of a Block: id and a deep copy of the
// variant, safe to keep in undo logs and hand to persistence.
type Snapshot struct {
	ID      ID      `json:"id"`
	Variant Variant `json:"variant"`
}

// NewBlock builds a live block of type t.
func NewBlock(id ID, t Type, lang, content string, focus bool) *Block {
	return &Block{ID: id, Variant: New(t, lang, content), Focus: focus}
}

// Content returns the block's primary text, see Variant.Content.
func (b *Block) Content() (string, bool) {
	return b.Variant.Content()
}

// Snapshot dehydrates b.
func (b *Block) Snapshot() Snapshot {
	return Snapshot{ID: b.ID, Variant: b.Variant.Clone()}
}

// Matches reports whether b currently holds exactly the state captured in s.
// The focus hint is ignored.
func (b *Block) Matches(s Snapshot) bool {
	return b.ID == s.ID && b.Variant.Equal(s.Variant)
}

// Hydrate builds a live block from s. The returned block shares no memory
// with the snapshot.
func (s Snapshot) Hydrate(focus bool) *Block {
	return &Block{ID: s.ID, Variant: s.Variant.Clone(), Focus: focus}
}

// Clone returns a deep copy of s.
func (s Snapshot) Clone() Snapshot {
	return Snapshot{ID: s.ID, Variant: s.Variant.Clone()}
}

// Equal compares id and variant.
func (s Snapshot) Equal(o Snapshot) bool {
	return s.ID == o.ID && s.Variant.Equal(o.Variant)
}

// CloneSnapshots deep-copies a snapshot list.
func CloneSnapshots(in []Snapshot) []Snapshot {
	if in == nil {
		return nil
	}
	out := make([]Snapshot, len(in))
	for i, s := range in {
		out[i] = s.Clone()
	}
	return out
}
