package jsnapshot

import "encoding/binary"

// Status flag bits (spec §3, C1). These occupy the low 8 bits of
// StatusFlags; bits 8-10 hold the 3-bit FunctionType sub-field.
const (
	FlagIsFunction            uint16 = 1 << 0
	FlagUint16Args            uint16 = 1 << 1
	FlagHasTaggedLiterals     uint16 = 1 << 2
	FlagHasLineInfo           uint16 = 1 << 3
	FlagMappedArgumentsNeeded uint16 = 1 << 4
	FlagLexicalBlockNeeded    uint16 = 1 << 5
	FlagStaticFunction        uint16 = 1 << 6
	FlagDebuggerIgnore        uint16 = 1 << 7

	functionTypeShift = 8
	functionTypeMask  = uint16(0x7) << functionTypeShift
)

// FunctionType is the 3-bit FUNCTION_TYPE sub-field of StatusFlags.
type FunctionType uint8

const (
	FunctionNormal FunctionType = iota
	FunctionConstructor
	FunctionArrow
	FunctionAccessor
	FunctionGenerator
	FunctionAsyncNormal
	FunctionAsyncArrow
	FunctionAsyncGenerator
)

func getFunctionType(flags uint16) FunctionType {
	return FunctionType((flags & functionTypeMask) >> functionTypeShift)
}

func setFunctionType(flags uint16, ft FunctionType) uint16 {
	return (flags &^ functionTypeMask) | (uint16(ft)<<functionTypeShift)&functionTypeMask
}

// SetFunctionType returns flags with its FunctionType sub-field replaced
// by ft, for callers (such as tree builders) assembling StatusFlags from
// separate pieces rather than decoding an existing word.
func SetFunctionType(flags uint16, ft FunctionType) uint16 {
	return setFunctionType(flags, ft)
}

// CompiledCode is the in-memory form of a C1 compiled-code node: either a
// function (with argument/register/literal counts, a literal vector,
// opcodes, and a serializable-values tail) or a regexp (a pattern string).
//
// Children of a function node — regexp literals and sub-functions, both
// reachable through the literal vector's sub-function slots — are plain Go
// pointers while the tree lives in memory; a nil entry in SubFunctions
// means "this slot is a self-reference to its own parent node".
type CompiledCode struct {
	IsFunction   bool
	StatusFlags  uint16
	FunctionType FunctionType

	// Function fields. RegisterEnd is the base every other *End field is
	// relative to when deriving literal-vector slice bounds.
	ArgumentEnd     uint32
	RegisterEnd     uint32
	ConstLiteralEnd uint32
	LiteralEnd      uint32
	ScriptValue     uint32 // cross-pointer, always 0 for static nodes

	ConstLiterals []Literal       // len == ConstLiteralEnd-RegisterEnd
	SubFunctions  []*CompiledCode // len == LiteralEnd-ConstLiteralEnd; nil == self-reference
	Opcodes       []byte

	// Serializable-values tail (spec C1). MappedArgumentNames is present
	// only when FlagMappedArgumentsNeeded is set, with len == ArgumentEnd.
	MappedArgumentNames []Literal
	FunctionName        *Literal
	SourceName          *Literal

	// Regexp-only field.
	Pattern string
}

// literalCount is the number of slots in the node's literal vector
// (const + sub-function region).
func (c *CompiledCode) literalCount() uint32 {
	return c.LiteralEnd - c.RegisterEnd
}

func (c *CompiledCode) constCount() uint32 {
	return c.ConstLiteralEnd - c.RegisterEnd
}

func (c *CompiledCode) subCount() uint32 {
	return c.LiteralEnd - c.ConstLiteralEnd
}

func (c *CompiledCode) uint16Args() bool {
	return c.StatusFlags&FlagUint16Args != 0
}

// argsHeaderSize is the size, in bytes, of the arguments-header variant
// selected by FlagUint16Args (spec §3: "small or wide variant").
func (c *CompiledCode) argsHeaderSize() uint32 {
	if c.uint16Args() {
		return 12 // 4 x uint16 + uint32 script_value
	}
	return 8 // 4 x uint8 (padded to 4 bytes) + uint32 script_value
}

const nodeFixedHeaderSize = 8 // size_units(2) + refs(2) + status_flags(2) + reserved(2)

// regexpHeaderSize mirrors nodeFixedHeaderSize plus nothing extra: a
// regexp node is the fixed header immediately followed by pattern bytes.
const regexpHeaderSize = nodeFixedHeaderSize

// inlineStringTable collects the distinct TagDirectString values a node
// references, in first-appearance order, assigning each a table index.
type inlineStringTable struct {
	strs    []string
	indexOf map[string]uint32
}

func newInlineStringTable() *inlineStringTable {
	return &inlineStringTable{indexOf: make(map[string]uint32)}
}

func (t *inlineStringTable) indexFor(s string) uint32 {
	if idx, ok := t.indexOf[s]; ok {
		return idx
	}
	idx := uint32(len(t.strs))
	t.strs = append(t.strs, s)
	t.indexOf[s] = idx
	return idx
}

func (t *inlineStringTable) encodedSize() int {
	n := 2 // count
	for _, s := range t.strs {
		n += 2 + len(s)
	}
	return n
}

func (t *inlineStringTable) encode(buf []byte) {
	binary.LittleEndian.PutUint16(buf[0:2], uint16(len(t.strs)))
	off := 2
	for _, s := range t.strs {
		binary.LittleEndian.PutUint16(buf[off:off+2], uint16(len(s)))
		off += 2
		copy(buf[off:off+len(s)], s)
		off += len(s)
	}
}

func decodeInlineStringTable(buf []byte) (strs []string, consumed int) {
	count := int(binary.LittleEndian.Uint16(buf[0:2]))
	off := 2
	strs = make([]string, count)
	for i := 0; i < count; i++ {
		l := int(binary.LittleEndian.Uint16(buf[off : off+2]))
		off += 2
		strs[i] = string(buf[off : off+l])
		off += l
	}
	return strs, off
}

// encodeLiteralWord packs a Literal into a tagged 32-bit word (low 2 bits
// are the tag; spec §3 invariant 2, §4.2).
func encodeLiteralWord(l Literal, strings *inlineStringTable) uint32 {
	switch l.Tag {
	case TagDirect:
		return (uint32(l.Direct)&0x3FFFFFFF)<<2 | uint32(TagDirect)
	case TagDirectString:
		return strings.indexFor(l.Str)<<2 | uint32(TagDirectString)
	case TagID:
		return l.ID<<2 | uint32(TagID)
	case TagOffset:
		return l.Offset<<2 | uint32(TagOffset)
	default:
		fatal("invalid literal tag %d", l.Tag)
		return 0
	}
}

func decodeLiteralWord(w uint32, strs []string) Literal {
	tag := LiteralTag(w & 0x3)
	payload := w >> 2
	switch tag {
	case TagDirect:
		v := int32(payload)
		if payload&0x20000000 != 0 { // sign-extend from 30 bits
			v = int32(payload | 0xC0000000)
		}
		return Literal{Tag: TagDirect, Direct: v}
	case TagDirectString:
		return Literal{Tag: TagDirectString, Str: strs[payload]}
	case TagID:
		return Literal{Tag: TagID, ID: payload}
	case TagOffset:
		return Literal{Tag: TagOffset, Offset: payload}
	default:
		fatal("invalid literal tag word %#x", w)
		return Literal{}
	}
}

func isSnapshotOffsetWord(w uint32) bool {
	return LiteralTag(w&0x3) == TagOffset
}

func isIDWord(w uint32) bool {
	return LiteralTag(w&0x3) == TagID
}

// tailValues returns, in encode/decode order, the serializable-values tail
// slots of c: mapped-argument names (if present), the function name (if
// present), then the source name (always present).
func (c *CompiledCode) tailValues() []Literal {
	var out []Literal
	if c.StatusFlags&FlagMappedArgumentsNeeded != 0 {
		out = append(out, c.MappedArgumentNames...)
	}
	if c.FunctionType != FunctionConstructor {
		if c.FunctionName != nil {
			out = append(out, *c.FunctionName)
		} else {
			out = append(out, Literal{Tag: TagDirect, Direct: 0})
		}
	}
	if c.SourceName != nil {
		out = append(out, *c.SourceName)
	} else {
		out = append(out, Literal{Tag: TagDirect, Direct: 0})
	}
	return out
}

// tailSlotCount returns how many 32-bit slots the serializable-values tail
// occupies for a node with the given flags/ArgumentEnd/FunctionType.
func tailSlotCount(flags uint16, argumentEnd uint32, ft FunctionType) uint32 {
	n := uint32(1) // source name, always present
	if flags&FlagMappedArgumentsNeeded != 0 {
		n += argumentEnd
	}
	if ft != FunctionConstructor {
		n++
	}
	return n
}
