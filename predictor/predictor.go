// Package predictor implements the bounded-history bit-frequency counters
// keyed by (context mask, recent-byte-values, partial-byte) that the model
// and mixer layers build on.
package predictor

import "fcmp/bitstream"

// CounterMax bounds each count to keep mixed sums within 32 bits.
const CounterMax = 1 << 30

// Key is the comparable lookup key for a single predictor. It packs
// (context, bitsInPartial) into a 16-bit tag next to the masked history and
// the partial byte. Keys are only compared for equality, as map keys; no
// ordering between keys is defined or exposed.
type Key struct {
	tag  uint16 // context<<8 | bitsInPartial
	data uint64 // history & byteMask
	bits uint8  // partial
}

// NewKey builds the predictor key for the given context mask and read
// state.
func NewKey(context uint8, state bitstream.ReadState) Key {
	return Key{
		tag:  uint16(context)<<8 | uint16(state.BitsInPartial),
		data: state.History & byteMask(context),
		bits: state.Partial,
	}
}

// byteMask expands each set bit of context to a 0xFF at the corresponding
// byte position of a 64-bit mask. Bit i of context selects the (i+1)-th
// previous whole byte.
func byteMask(context uint8) uint64 {
	var mask uint64
	for i := 0; i < 8; i++ {
		if context&(1<<uint(i)) != 0 {
			mask |= 0xFF << uint(8*i)
		}
	}
	return mask
}

// Value is a pair of bounded counts estimating how often a 1 or 0 bit has
// been observed under a given Key.
type Value struct {
	CountOne  uint32
	CountZero uint32
}

// newValue returns the initial (1,1) value.
func newValue() Value {
	return Value{CountOne: 1, CountZero: 1}
}

// update applies the bounded exponential-recency rule: the count matching
// the bit not observed is halved, then both counts are incremented, each
// capped at CounterMax.
func (v Value) update(bit uint8) Value {
	if bit != 0 {
		v.CountZero >>= 1
	} else {
		v.CountOne >>= 1
	}
	if v.CountOne < CounterMax {
		v.CountOne++
	}
	if v.CountZero < CounterMax {
		v.CountZero++
	}
	return v
}

// Table is the per-model predictor bank, keyed by Key.
type Table struct {
	entries map[Key]Value
}

// NewTable returns an empty predictor table.
func NewTable() *Table {
	return &Table{entries: make(map[Key]Value)}
}

// Lookup returns the stored value for key and true, or the zero Value and
// false if no prediction has been recorded yet.
func (t *Table) Lookup(key Key) (Value, bool) {
	v, ok := t.entries[key]
	return v, ok
}

// Update ensures an entry exists for key (defaulting to (1,1) on first
// access) and applies the update rule for the observed bit.
func (t *Table) Update(key Key, bit uint8) {
	v, ok := t.entries[key]
	if !ok {
		v = newValue()
	}
	t.entries[key] = v.update(bit)
}

// Reset empties the table.
func (t *Table) Reset() {
	t.entries = make(map[Key]Value)
}

// Len returns the number of recorded keys, for diagnostics only.
func (t *Table) Len() int {
	return len(t.entries)
}

// Clone returns a deep copy of the table.
func (t *Table) Clone() *Table {
	entries := make(map[Key]Value, len(t.entries))
	for k, v := range t.entries {
		entries[k] = v
	}
	return &Table{entries: entries}
}
