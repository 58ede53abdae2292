package jsnapshot

import (
	"encoding/binary"
	"math"
)

// LiteralPool is C2: a collection of literals scoped to one save or one
// merge, built by appending values and later emitted as a packed table
// plus an id/value→offset lookup. The caller destroys it (lets it go out
// of scope) on every exit path, matching the ownership rule in spec §3.
type LiteralPool struct {
	values       []PoolValue
	byValue      map[PoolValue]int
	byID         map[uint32]int // populated only via AddFromCompiledCode (save path)
	valueOffsets []uint32       // populated by EmitForSnapshot
}

// NewLiteralPool creates an empty pool.
func NewLiteralPool() *LiteralPool {
	return &LiteralPool{byValue: make(map[PoolValue]int), byID: make(map[uint32]int)}
}

// AppendValueIfAbsent interns v, returning its pool-local index. Repeated
// calls with an equal value return the same index (spec §3: "the map is a
// linear array searched by value; duplicates are impossible because the
// pool deduplicates on append").
func (p *LiteralPool) AppendValueIfAbsent(v PoolValue) int {
	if idx, ok := p.byValue[v]; ok {
		return idx
	}
	idx := len(p.values)
	p.values = append(p.values, v)
	p.byValue[v] = idx
	return idx
}

// AddFromCompiledCode is the save-side collection step (spec §4.1 step 4):
// it walks one node's constant-literal vector and serializable-values tail,
// resolving every TagID slot through store and interning the result.
func (p *LiteralPool) AddFromCompiledCode(c *CompiledCode, store LiteralStore) {
	for _, lit := range c.ConstLiterals {
		p.addID(lit, store)
	}
	for _, lit := range c.tailValues() {
		p.addID(lit, store)
	}
}

func (p *LiteralPool) addID(lit Literal, store LiteralStore) {
	if lit.Tag != TagID {
		return
	}
	v, ok := store.Resolve(lit.ID)
	if !ok {
		fatal("literal id %d not found in literal store", lit.ID)
	}
	idx := p.AppendValueIfAbsent(v)
	p.byID[lit.ID] = idx
}

// AddFromSnapshotNode is the merge-side collection step (spec §4.5 pass 2):
// it walks one already-saved node's words, resolving every TagOffset slot
// through the node's own literal table and interning the result by value.
func (p *LiteralPool) AddFromSnapshotNode(nv nodeView, literalTable []byte) {
	if !nv.IsFunction() || nv.IsStatic() {
		return
	}
	for i := uint32(0); i < nv.constCount(); i++ {
		w := nv.GetConstWord(i)
		if isSnapshotOffsetWord(w) {
			v := p.ResolveAtOffset(literalTable, w>>2)
			p.AppendValueIfAbsent(v)
		}
	}
	for i := uint32(0); i < nv.tailSlotCount(); i++ {
		w := nv.GetTailWord(i)
		if isSnapshotOffsetWord(w) {
			v := p.ResolveAtOffset(literalTable, w>>2)
			p.AppendValueIfAbsent(v)
		}
	}
}

const (
	entryKindString = 0
	entryKindNumber = 1
	entryKindBigInt = 2
)

func entrySize(v PoolValue) uint32 {
	switch v.Kind {
	case PoolNumber:
		return 1 + 8
	default:
		return 1 + 4 + uint32(len(v.Str))
	}
}

// EmitForSnapshot packs every interned value into buf starting at offset,
// returning the number of bytes written. It records each value's final
// byte offset so OffsetForID/OffsetForValue can answer afterwards.
func (p *LiteralPool) EmitForSnapshot(buf []byte, offset uint32) (uint32, error) {
	p.valueOffsets = make([]uint32, len(p.values))
	pos := offset
	for i, v := range p.values {
		size := entrySize(v)
		if pos+size > uint32(len(buf)) {
			return 0, newError(KindCommon, "cannot allocate memory for literals")
		}
		p.valueOffsets[i] = pos
		switch v.Kind {
		case PoolNumber, PoolBigInt:
			kind := byte(entryKindNumber)
			if v.Kind == PoolBigInt {
				kind = entryKindBigInt
			}
			buf[pos] = kind
			if v.Kind == PoolNumber {
				binary.LittleEndian.PutUint64(buf[pos+1:pos+9], math.Float64bits(v.Num))
			} else {
				binary.LittleEndian.PutUint32(buf[pos+1:pos+5], uint32(len(v.Str)))
				copy(buf[pos+5:pos+5+uint32(len(v.Str))], v.Str)
			}
		default:
			buf[pos] = entryKindString
			binary.LittleEndian.PutUint32(buf[pos+1:pos+5], uint32(len(v.Str)))
			copy(buf[pos+5:pos+5+uint32(len(v.Str))], v.Str)
		}
		pos += size
	}
	return pos - offset, nil
}

// ResolveAtOffset is resolve-literal-at-offset (C2): the inverse of
// EmitForSnapshot, reading one packed entry back out of a literal table.
func (p *LiteralPool) ResolveAtOffset(literalTable []byte, offset uint32) PoolValue {
	return resolveLiteralAtOffset(literalTable, offset)
}

// resolveLiteralAtOffset is the standalone form shared with the loader
// (C6), the merger (C7), and the literal extractor (C8), which read an
// existing literal table rather than the pool being built.
func resolveLiteralAtOffset(literalTable []byte, offset uint32) PoolValue {
	kind := literalTable[offset]
	switch kind {
	case entryKindNumber:
		bits := binary.LittleEndian.Uint64(literalTable[offset+1 : offset+9])
		return PoolValue{Kind: PoolNumber, Num: math.Float64frombits(bits)}
	case entryKindBigInt:
		l := binary.LittleEndian.Uint32(literalTable[offset+1 : offset+5])
		return PoolValue{Kind: PoolBigInt, Str: string(literalTable[offset+5 : offset+5+l])}
	default:
		l := binary.LittleEndian.Uint32(literalTable[offset+1 : offset+5])
		return PoolValue{Kind: PoolString, Str: string(literalTable[offset+5 : offset+5+l])}
	}
}

// entryByteSize returns how many bytes the packed entry at offset occupies,
// for callers that need to skip entries without decoding them.
func entryByteSize(literalTable []byte, offset uint32) uint32 {
	kind := literalTable[offset]
	if kind == entryKindNumber {
		return 1 + 8
	}
	l := binary.LittleEndian.Uint32(literalTable[offset+1 : offset+5])
	return 1 + 4 + l
}

// OffsetForID returns the emitted byte offset of the value interned under
// the literal-store id, for the literal-offset rewriter (C5).
func (p *LiteralPool) OffsetForID(id uint32) (uint32, bool) {
	idx, ok := p.byID[id]
	if !ok {
		return 0, false
	}
	return p.valueOffsets[idx], true
}

// OffsetForValue returns the emitted byte offset of v, for the merger's
// relocation pass (C7).
func (p *LiteralPool) OffsetForValue(v PoolValue) (uint32, bool) {
	idx, ok := p.byValue[v]
	if !ok {
		return 0, false
	}
	return p.valueOffsets[idx], true
}

// Values returns the interned values in append order, used by Save and
// Merge to size the literal table and by tests.
func (p *LiteralPool) Values() []PoolValue { return p.values }
