// Package ringlog implements a fixed-capacity circular buffer over
// variable-length entries, with lookup by logical byte offset across the
// concatenation of all live entries. When the buffer is full a new entry
// overwrites the oldest one.
//
// The buffer stores entry descriptors only; the bytes an Entry references
// are owned by the caller. Overwriting a slot does not release the old
// entry's memory, so a caller that allocates per entry must free or drop
// its reference to the oldest entry before adding to a full buffer.
//
// Callers are responsible for any locking.
package ringlog

// Slots is the fixed number of entries the buffer can hold.
const Slots = 10

// Entry describes one stored write. Data is caller-owned.
type Entry struct {
	Data []byte
}

// Size returns the entry's byte length.
func (e *Entry) Size() int {
	return len(e.Data)
}

// Buffer is a ring of Slots entries.
//
// Invariants:
//   - empty:   in == out && !full
//   - full:    in == out && full
//   - partial: in != out && !full; live entries run from out forward to
//     (but excluding) in, wrapping modulo Slots.
type Buffer struct {
	entries [Slots]Entry
	in      int
	out     int
	full    bool
}

// Init resets the buffer to the empty state.
func (b *Buffer) Init() {
	*b = Buffer{}
}

// Len reports how many entries are currently live.
func (b *Buffer) Len() int {
	if b.full {
		return Slots
	}
	return (b.in + Slots - b.out) % Slots
}

// Full reports whether the next Add will overwrite the oldest entry.
func (b *Buffer) Full() bool {
	return b.full
}

// Add stores e at the write position. If the buffer was full, the oldest
// entry is overwritten and the read position advances past it; freeing the
// overwritten entry's memory beforehand is the caller's concern.
func (b *Buffer) Add(e Entry) {
	b.entries[b.in] = e

	if b.full {
		b.out = (b.out + 1) % Slots
	}
	b.in = (b.in + 1) % Slots

	// Holds both on first reaching capacity and on every overwrite.
	b.full = b.in == b.out
}

// FindEntryForOffset treats the live entries, oldest first, as one
// concatenated byte stream and locates the entry containing logical offset
// off. It returns the entry, the offset within it, and whether the offset
// was found; an offset at or past the total live bytes is not found.
func (b *Buffer) FindEntryForOffset(off int) (*Entry, int, bool) {
	if off < 0 {
		return nil, 0, false
	}
	if !b.full && b.in == b.out {
		return nil, 0, false
	}

	cumulative := 0
	idx := b.out
	for i, n := 0, b.Len(); i < n; i++ {
		entry := &b.entries[idx]
		if off < cumulative+entry.Size() {
			return entry, off - cumulative, true
		}
		cumulative += entry.Size()
		idx = (idx + 1) % Slots
	}
	return nil, 0, false
}
