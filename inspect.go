package jsnapshot

import "fmt"

// SnapshotInfo is a human-readable summary of a snapshot's header,
// produced by DescribeHeader for offline inspection tooling (the
// "inspect" subcommand supplements the original entry points with a
// read-only diagnostic view of a file's header).
type SnapshotInfo struct {
	Valid          bool
	Magic          uint32
	Version        uint32
	GlobalFlags    uint32
	FeatureNames   []string
	LitTableOffset uint32
	NumberOfFuncs  uint32
	FuncOffsets    []uint32
	TotalSize      uint32
}

// DescribeHeader decodes buf's header without materializing anything and
// reports it for display, tolerating a header that fails validation so
// the tool can show the operator what's actually there.
func DescribeHeader(buf []byte) *SnapshotInfo {
	info := &SnapshotInfo{TotalSize: uint32(len(buf))}
	if len(buf) < int(FixedHeaderSize) {
		return info
	}
	h, err := decodeHeader(buf)
	if err != nil {
		// Still surface the raw fixed fields even when validation failed,
		// so a corrupt file can be diagnosed rather than just rejected.
		info.Magic = readUint32(buf, 0)
		info.Version = readUint32(buf, 4)
		info.GlobalFlags = readUint32(buf, 8)
		return info
	}
	info.Valid = true
	info.Magic = h.Magic
	info.Version = h.Version
	info.GlobalFlags = h.GlobalFlags
	info.LitTableOffset = h.LitTableOffset
	info.NumberOfFuncs = h.NumberOfFuncs
	info.FuncOffsets = h.FuncOffsets
	info.FeatureNames = featureNames(h.GlobalFlags)
	return info
}

func readUint32(buf []byte, off int) uint32 {
	return uint32(buf[off]) | uint32(buf[off+1])<<8 | uint32(buf[off+2])<<16 | uint32(buf[off+3])<<24
}

func featureNames(flags uint32) []string {
	var names []string
	if flags&FlagHasRegexLiteral != 0 {
		names = append(names, "regex-literal")
	}
	if flags&FlagHasClassLiteral != 0 {
		names = append(names, "class-literal")
	}
	if flags&FlagFourByteCPointer != 0 {
		names = append(names, "four-byte-cpointer")
	}
	return names
}

func (info *SnapshotInfo) String() string {
	if !info.Valid {
		return fmt.Sprintf("invalid snapshot (magic=%#x version=%d size=%d bytes)", info.Magic, info.Version, info.TotalSize)
	}
	return fmt.Sprintf(
		"snapshot: version=%d size=%d bytes\n  global flags: %#x %v\n  functions: %d, offsets=%v\n  literal table offset: %d",
		info.Version, info.TotalSize, info.GlobalFlags, info.FeatureNames, info.NumberOfFuncs, info.FuncOffsets, info.LitTableOffset,
	)
}
