package jsnapshot

import "encoding/binary"

// encodeRegexpNode encodes a regexp node (spec §3 "For regexp nodes").
// Refs carries the UTF-8 byte length of the pattern; size_units covers the
// fixed header plus the pattern bytes, rounded up to Alignment.
func encodeRegexpNode(c *CompiledCode) ([]byte, error) {
	patternLen := len(c.Pattern)
	if patternLen > 0xFFFF {
		return nil, newError(KindRange, "regexp pattern too large")
	}
	total := alignUp(uint32(regexpHeaderSize + patternLen))
	sizeUnits := total / Alignment
	if sizeUnits > 0xFFFF {
		return nil, newError(KindRange, "maximum snapshot size exceeded")
	}

	buf := make([]byte, total)
	binary.LittleEndian.PutUint16(buf[0:2], uint16(sizeUnits))
	binary.LittleEndian.PutUint16(buf[2:4], uint16(patternLen))
	binary.LittleEndian.PutUint16(buf[4:6], c.StatusFlags&^FlagIsFunction)
	copy(buf[regexpHeaderSize:], c.Pattern)
	return buf, nil
}

// funcNodeLayout captures the byte offsets of a function node's regions,
// computed once so encode and the raw-scanning accessors agree exactly.
type funcNodeLayout struct {
	argsHeaderSize   uint32
	literalVecOff    uint32
	literalVecBytes  uint32
	stringTableOff   uint32
	stringTableBytes uint32
	opcodesOff       uint32
	opcodesBytes     uint32
	tailOff          uint32
	tailSlots        uint32
	total            uint32
}

func computeFuncLayout(c *CompiledCode, stringTableBytes uint32) funcNodeLayout {
	var l funcNodeLayout
	l.argsHeaderSize = c.argsHeaderSize()
	l.literalVecOff = nodeFixedHeaderSize + l.argsHeaderSize
	l.literalVecBytes = c.literalCount() * 4
	l.stringTableOff = l.literalVecOff + l.literalVecBytes
	l.stringTableBytes = stringTableBytes
	l.opcodesOff = l.stringTableOff + l.stringTableBytes
	l.opcodesBytes = uint32(len(c.Opcodes))
	l.tailSlots = tailSlotCount(c.StatusFlags, c.ArgumentEnd, c.FunctionType)
	// The tail is right-aligned to the node's end (nodeView.tailStart()
	// computes it the same way), so any alignment padding falls between
	// the opcodes and the tail, not after it.
	l.total = alignUp(l.opcodesOff + l.opcodesBytes + l.tailSlots*4)
	l.tailOff = l.total - l.tailSlots*4
	return l
}

// encodeFunctionNode encodes a single function node (not its children).
// subSlotOffsets[i] is the byte offset, within the returned buffer, of the
// i-th sub-function slot word; the caller fills those in after resolving
// child offsets (spec §4.1 recursive serializer).
func encodeFunctionNode(c *CompiledCode, static bool) (buf []byte, subSlotOffsets []int, err error) {
	if !c.uint16Args() {
		if c.ArgumentEnd > 0xFF || c.RegisterEnd > 0xFF || c.ConstLiteralEnd > 0xFF || c.LiteralEnd > 0xFF {
			fatal("argument/register/literal counts require FlagUint16Args")
		}
	}

	statusFlags := c.StatusFlags
	scriptValue := c.ScriptValue
	if static {
		statusFlags |= FlagStaticFunction
		scriptValue = 0
	}

	strs := newInlineStringTable()
	for _, lit := range c.ConstLiterals {
		if lit.Tag == TagDirectString {
			strs.indexFor(lit.Str)
		}
	}
	for _, lit := range c.tailValues() {
		if lit.Tag == TagDirectString {
			strs.indexFor(lit.Str)
		}
	}

	layout := computeFuncLayout(c, uint32(strs.encodedSize()))
	sizeUnits := layout.total / Alignment
	if sizeUnits > 0xFFFF {
		return nil, nil, newError(KindRange, "maximum snapshot size exceeded")
	}

	buf = make([]byte, layout.total)
	binary.LittleEndian.PutUint16(buf[0:2], uint16(sizeUnits))
	binary.LittleEndian.PutUint16(buf[2:4], 1) // refs
	binary.LittleEndian.PutUint16(buf[4:6], statusFlags)

	if c.uint16Args() {
		binary.LittleEndian.PutUint16(buf[8:10], uint16(c.ArgumentEnd))
		binary.LittleEndian.PutUint16(buf[10:12], uint16(c.RegisterEnd))
		binary.LittleEndian.PutUint16(buf[12:14], uint16(c.ConstLiteralEnd))
		binary.LittleEndian.PutUint16(buf[14:16], uint16(c.LiteralEnd))
		binary.LittleEndian.PutUint32(buf[16:20], scriptValue)
	} else {
		buf[8] = byte(c.ArgumentEnd)
		buf[9] = byte(c.RegisterEnd)
		buf[10] = byte(c.ConstLiteralEnd)
		buf[11] = byte(c.LiteralEnd)
		binary.LittleEndian.PutUint32(buf[12:16], scriptValue)
	}

	pos := layout.literalVecOff
	for _, lit := range c.ConstLiterals {
		binary.LittleEndian.PutUint32(buf[pos:pos+4], encodeLiteralWord(lit, strs))
		pos += 4
	}
	subSlotOffsets = make([]int, c.subCount())
	for i := range subSlotOffsets {
		subSlotOffsets[i] = int(pos)
		pos += 4
	}

	strs.encode(buf[layout.stringTableOff : layout.stringTableOff+layout.stringTableBytes])

	copy(buf[layout.opcodesOff:layout.opcodesOff+layout.opcodesBytes], c.Opcodes)

	pos = layout.tailOff
	for _, lit := range c.tailValues() {
		binary.LittleEndian.PutUint32(buf[pos:pos+4], encodeLiteralWord(lit, strs))
		pos += 4
	}

	return buf, subSlotOffsets, nil
}

// nodeView is a read/write accessor over one compiled-code record sitting
// inside a larger snapshot buffer, used by the passes that scan a flat
// code region without materializing a tree: the literal-offset rewriter
// (C5), the merger's literal scan and relocation (C7), and the literal
// extractor (C8).
type nodeView struct {
	buf []byte // exactly one node's bytes, buf[:SizeBytes()]
}

func newNodeView(buf []byte) nodeView {
	sizeUnits := binary.LittleEndian.Uint16(buf[0:2])
	return nodeView{buf: buf[:uint32(sizeUnits)*Alignment]}
}

func (v nodeView) SizeBytes() uint32 { return uint32(len(v.buf)) }

func (v nodeView) Refs() uint16 { return binary.LittleEndian.Uint16(v.buf[2:4]) }

func (v nodeView) SetRefs(r uint16) { binary.LittleEndian.PutUint16(v.buf[2:4], r) }

func (v nodeView) StatusFlags() uint16 { return binary.LittleEndian.Uint16(v.buf[4:6]) }

func (v nodeView) IsFunction() bool { return v.StatusFlags()&FlagIsFunction != 0 }

func (v nodeView) IsStatic() bool { return v.StatusFlags()&FlagStaticFunction != 0 }

func (v nodeView) uint16Args() bool { return v.StatusFlags()&FlagUint16Args != 0 }

func (v nodeView) argsHeaderSize() uint32 {
	if v.uint16Args() {
		return 12
	}
	return 8
}

// counts returns (registerEnd, constLiteralEnd, literalEnd, argumentEnd),
// all already normalized to uint32 regardless of wire width.
func (v nodeView) counts() (registerEnd, constLiteralEnd, literalEnd, argumentEnd uint32) {
	if v.uint16Args() {
		argumentEnd = uint32(binary.LittleEndian.Uint16(v.buf[8:10]))
		registerEnd = uint32(binary.LittleEndian.Uint16(v.buf[10:12]))
		constLiteralEnd = uint32(binary.LittleEndian.Uint16(v.buf[12:14]))
		literalEnd = uint32(binary.LittleEndian.Uint16(v.buf[14:16]))
	} else {
		argumentEnd = uint32(v.buf[8])
		registerEnd = uint32(v.buf[9])
		constLiteralEnd = uint32(v.buf[10])
		literalEnd = uint32(v.buf[11])
	}
	return
}

func (v nodeView) constLiteralStart() uint32 {
	return nodeFixedHeaderSize + v.argsHeaderSize()
}

func (v nodeView) constCount() uint32 {
	registerEnd, constLiteralEnd, _, _ := v.counts()
	return constLiteralEnd - registerEnd
}

func (v nodeView) subFuncCount() uint32 {
	_, constLiteralEnd, literalEnd, _ := v.counts()
	return literalEnd - constLiteralEnd
}

func (v nodeView) subFuncStart() uint32 {
	return v.constLiteralStart() + v.constCount()*4
}

// literalCount is the combined length of the const-literal and
// sub-function regions of the literal vector.
func (v nodeView) literalCount() uint32 {
	return v.constCount() + v.subFuncCount()
}

// stringTableOffset is where the inline string table begins, immediately
// after the literal vector.
func (v nodeView) stringTableOffset() uint32 {
	return v.constLiteralStart() + v.literalCount()*4
}

// rawScriptValue reads the script cross-pointer word, at a position that
// depends on the arguments-header variant.
func (v nodeView) rawScriptValue() uint32 {
	if v.uint16Args() {
		return binary.LittleEndian.Uint32(v.buf[16:20])
	}
	return binary.LittleEndian.Uint32(v.buf[12:16])
}

func (v nodeView) GetConstWord(i uint32) uint32 {
	off := v.constLiteralStart() + i*4
	return binary.LittleEndian.Uint32(v.buf[off : off+4])
}

func (v nodeView) SetConstWord(i uint32, w uint32) {
	off := v.constLiteralStart() + i*4
	binary.LittleEndian.PutUint32(v.buf[off:off+4], w)
}

func (v nodeView) GetSubFuncWord(i uint32) uint32 {
	off := v.subFuncStart() + i*4
	return binary.LittleEndian.Uint32(v.buf[off : off+4])
}

func (v nodeView) SetSubFuncWord(i uint32, w uint32) {
	off := v.subFuncStart() + i*4
	binary.LittleEndian.PutUint32(v.buf[off:off+4], w)
}

func (v nodeView) tailSlotCount() uint32 {
	_, _, _, argumentEnd := v.counts()
	ft := getFunctionType(v.StatusFlags())
	return tailSlotCount(v.StatusFlags(), argumentEnd, ft)
}

func (v nodeView) tailStart() uint32 {
	return v.SizeBytes() - v.tailSlotCount()*4
}

func (v nodeView) GetTailWord(i uint32) uint32 {
	off := v.tailStart() + i*4
	return binary.LittleEndian.Uint32(v.buf[off : off+4])
}

func (v nodeView) SetTailWord(i uint32, w uint32) {
	off := v.tailStart() + i*4
	binary.LittleEndian.PutUint32(v.buf[off:off+4], w)
}
