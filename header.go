package jsnapshot

import "encoding/binary"

// Alignment is the snapshot's alignment unit A (spec §3). All sizes inside
// a snapshot are multiples of Alignment; every compiled-code record starts
// on an Alignment-aligned offset.
const Alignment = 8

// alignUp rounds n up to the next multiple of Alignment.
func alignUp(n uint32) uint32 {
	return (n + Alignment - 1) &^ (Alignment - 1)
}

// Magic identifies a snapshot buffer produced by this package.
const Magic uint32 = 0x4a525259 // "JRRY" read big-endian; stored little-endian as "YRRJ"

// Version increases whenever the on-disk layout changes.
const Version uint32 = 1

// Global feature flags (spec §3, word 2). The low 8 bits are dynamic
// (engine-feature) bits; the high 24 bits are reserved for compile-time
// features and are currently unused by this package.
const (
	FlagHasRegexLiteral  uint32 = 1 << 0
	FlagHasClassLiteral  uint32 = 1 << 1
	FlagFourByteCPointer uint32 = 1 << 2
)

// EngineFeatures is the set of dynamic feature bits this build of the
// loader supports. checkGlobalFlags clears every bit the engine supports
// and rejects the snapshot if anything remains (spec §4.4, Testable
// Property 7).
var EngineFeatures = FlagHasRegexLiteral | FlagHasClassLiteral

func checkGlobalFlags(flags uint32) bool {
	return flags&^EngineFeatures == 0
}

// evalContextBit is func_offsets[i] bit 0, reserved to distinguish an eval
// context from a global context. Merge preserves it verbatim (spec §9).
const evalContextBit uint32 = 1

// fixedHeaderWords is the number of 32-bit words in the fixed part of the
// header: magic, version, global_flags, lit_table_offset, number_of_funcs,
// and the first entry of func_offsets (the struct always has room for one
// entry, mirroring the source's flexible-array-member layout).
const fixedHeaderWords = 6

// FixedHeaderSize is the byte size of the fixed header part, already a
// multiple of Alignment.
const FixedHeaderSize uint32 = fixedHeaderWords * 4

// headerSize returns the total header size in bytes for a snapshot with n
// primary functions: the fixed part plus the (n-1) extra func_offsets
// entries, padded to Alignment (spec §3).
func headerSize(n uint32) uint32 {
	if n == 0 {
		fatal("headerSize called with zero functions")
	}
	return FixedHeaderSize + alignUp((n-1)*4)
}

// Header is the decoded form of a snapshot's 6-word header plus its
// function-offset array (spec §3).
type Header struct {
	Magic          uint32
	Version        uint32
	GlobalFlags    uint32
	LitTableOffset uint32
	NumberOfFuncs  uint32
	FuncOffsets    []uint32
}

// encode writes the header into buf at offset 0. buf must be at least
// headerSize(len(h.FuncOffsets)) bytes.
func (h *Header) encode(buf []byte) {
	binary.LittleEndian.PutUint32(buf[0:4], h.Magic)
	binary.LittleEndian.PutUint32(buf[4:8], h.Version)
	binary.LittleEndian.PutUint32(buf[8:12], h.GlobalFlags)
	binary.LittleEndian.PutUint32(buf[12:16], h.LitTableOffset)
	binary.LittleEndian.PutUint32(buf[16:20], h.NumberOfFuncs)
	for i, off := range h.FuncOffsets {
		binary.LittleEndian.PutUint32(buf[20+4*i:24+4*i], off)
	}
}

// decodeHeader parses and validates a snapshot's header. It returns a
// KindType *Error for any structural problem (spec §4.4 preconditions).
func decodeHeader(buf []byte) (*Header, error) {
	if len(buf) < int(FixedHeaderSize) {
		return nil, newError(KindType, "invalid format")
	}

	h := &Header{
		Magic:          binary.LittleEndian.Uint32(buf[0:4]),
		Version:        binary.LittleEndian.Uint32(buf[4:8]),
		GlobalFlags:    binary.LittleEndian.Uint32(buf[8:12]),
		LitTableOffset: binary.LittleEndian.Uint32(buf[12:16]),
		NumberOfFuncs:  binary.LittleEndian.Uint32(buf[16:20]),
	}

	if h.Magic != Magic || h.Version != Version || !checkGlobalFlags(h.GlobalFlags) {
		return nil, newError(KindType, "invalid version or features")
	}

	if h.NumberOfFuncs == 0 {
		return nil, newError(KindType, "invalid format")
	}

	need := headerSize(h.NumberOfFuncs)
	if uint32(len(buf)) < need {
		return nil, newError(KindType, "invalid format")
	}

	if h.LitTableOffset > uint32(len(buf)) {
		return nil, newError(KindType, "invalid format")
	}

	h.FuncOffsets = make([]uint32, h.NumberOfFuncs)
	for i := range h.FuncOffsets {
		h.FuncOffsets[i] = binary.LittleEndian.Uint32(buf[20+4*i : 24+4*i])
	}

	return h, nil
}
