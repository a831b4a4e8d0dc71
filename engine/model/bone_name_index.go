package model

// BoneNameIndex is an insertion-only mapping from bone name to dense bone id.
// The first name assigned receives id 0, the next id 1, and so on. Ids never change once assigned.
type BoneNameIndex struct {
	ids    map[string]uint32
	names  []string
	frozen bool
}

// NewBoneNameIndex creates an empty BoneNameIndex.
//
// Returns:
//   - *BoneNameIndex: the empty index
func NewBoneNameIndex() *BoneNameIndex {
	return &BoneNameIndex{ids: make(map[string]uint32)}
}

// GetOrAssignID returns the id already assigned to name, or assigns the next free id.
// Assigning on a frozen index panics.
//
// Parameters:
//   - name: the bone name
//
// Returns:
//   - uint32: the bone id
//   - bool: true if the id was created by this call
func (b *BoneNameIndex) GetOrAssignID(name string) (uint32, bool) {
	if id, ok := b.ids[name]; ok {
		return id, false
	}
	if b.frozen {
		panic("model: bone name index is frozen, cannot assign " + name)
	}
	id := uint32(len(b.names))
	b.ids[name] = id
	b.names = append(b.names, name)
	return id, true
}

// Lookup returns the id for name without assigning one.
//
// Parameters:
//   - name: the bone name
//
// Returns:
//   - uint32: the bone id, valid only when ok is true
//   - bool: whether the name is a known bone
func (b *BoneNameIndex) Lookup(name string) (uint32, bool) {
	id, ok := b.ids[name]
	return id, ok
}

// Names returns the bone names ordered by id.
func (b *BoneNameIndex) Names() []string {
	out := make([]string, len(b.names))
	copy(out, b.names)
	return out
}

// Len returns the number of known bones.
func (b *BoneNameIndex) Len() int {
	return len(b.names)
}

// Freeze marks the index read-only. Lookups keep working.
func (b *BoneNameIndex) Freeze() {
	b.frozen = true
}

// Frozen reports whether Freeze has been called.
func (b *BoneNameIndex) Frozen() bool {
	return b.frozen
}
