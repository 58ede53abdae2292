package jsnapshot

// mergeInput is one decoded input snapshot, addressed relative to its own
// body start (the byte right after its header) for the duration of a
// merge.
type mergeInput struct {
	buf          []byte
	header       *Header
	bodyStart    uint32
	literalTable []byte
}

// Merge is C7: it combines two or more already-saved snapshots into one,
// deduplicating their literals through a union pool and relocating each
// input's code region into the combined output (spec §4.5).
//
// out must be large enough to hold the result; Merge never allocates its
// own output buffer. It returns the number of bytes written.
func Merge(inputs [][]byte, out []byte) (int, error) {
	if len(inputs) < 2 {
		return 0, newError(KindCommon, "at least two snapshots must be passed")
	}

	mis := make([]*mergeInput, len(inputs))
	for i, b := range inputs {
		h, err := decodeHeader(b)
		if err != nil {
			return 0, err
		}
		bodyStart := headerSize(h.NumberOfFuncs)
		if h.LitTableOffset < bodyStart || h.LitTableOffset > uint32(len(b)) {
			return 0, newError(KindType, "invalid format")
		}
		mis[i] = &mergeInput{buf: b, header: h, bodyStart: bodyStart, literalTable: b[h.LitTableOffset:]}
	}

	// Pass 2: collect every literal reachable from every input into one
	// union pool, deduplicated by value.
	pool := NewLiteralPool()
	for _, mi := range mis {
		collectMergeLiterals(mi, pool)
	}

	// Pass 3: lay out the combined header and body.
	var numberOfFuncs uint32
	for _, mi := range mis {
		numberOfFuncs += mi.header.NumberOfFuncs
	}
	headerLen := headerSize(numberOfFuncs)

	bodyBases := make([]uint32, len(mis))
	pos := headerLen
	for i, mi := range mis {
		bodyBases[i] = pos
		pos += mi.header.LitTableOffset - mi.bodyStart
	}
	litTableOffset := alignUp(pos)

	var litBytes uint32
	for _, v := range pool.Values() {
		litBytes += entrySize(v)
	}
	total := litTableOffset + litBytes

	if uint32(len(out)) < total {
		return 0, newError(KindRange, "output buffer is too small")
	}
	dst := out[:total]
	for i := range dst {
		dst[i] = 0
	}

	// Pass 4: emit the union literal table.
	if _, err := pool.EmitForSnapshot(dst[litTableOffset:], 0); err != nil {
		return 0, err
	}

	// Pass 5: copy and relocate each input's code region.
	var funcOffsets []uint32
	for i, mi := range mis {
		bodyLen := mi.header.LitTableOffset - mi.bodyStart
		srcBody := mi.buf[mi.bodyStart : mi.bodyStart+bodyLen]
		dstBody := dst[bodyBases[i] : bodyBases[i]+bodyLen]
		copy(dstBody, srcBody)

		delta := int64(bodyBases[i]) - int64(mi.bodyStart)
		if err := relocateMergedBody(dstBody, delta, mi.literalTable, pool); err != nil {
			return 0, err
		}

		for _, fo := range mi.header.FuncOffsets {
			evalBit := fo & evalContextBit
			local := (fo &^ evalContextBit) - mi.bodyStart
			funcOffsets = append(funcOffsets, bodyBases[i]+local|evalBit)
		}
	}

	h := &Header{
		Magic:          Magic,
		Version:        Version,
		GlobalFlags:    mergedGlobalFlags(mis),
		LitTableOffset: litTableOffset,
		NumberOfFuncs:  numberOfFuncs,
		FuncOffsets:    funcOffsets,
	}
	h.encode(dst)

	return int(total), nil
}

func mergedGlobalFlags(mis []*mergeInput) uint32 {
	var flags uint32
	for _, mi := range mis {
		flags |= mi.header.GlobalFlags
	}
	return flags
}

// collectMergeLiterals walks every node reachable from mi's func offsets,
// interning the value behind each TagOffset literal slot into pool.
func collectMergeLiterals(mi *mergeInput, pool *LiteralPool) {
	visited := make(map[uint32]bool)
	var visit func(local uint32)
	visit = func(local uint32) {
		if visited[local] {
			return
		}
		visited[local] = true
		nv := newNodeView(mi.buf[mi.bodyStart+local:])
		if !nv.IsFunction() {
			return
		}
		if !nv.IsStatic() {
			pool.AddFromSnapshotNode(nv, mi.literalTable)
		}
		for i := uint32(0); i < nv.subFuncCount(); i++ {
			w := nv.GetSubFuncWord(i)
			visit(w - mi.bodyStart)
		}
	}
	for _, fo := range mi.header.FuncOffsets {
		visit((fo &^ evalContextBit) - mi.bodyStart)
	}
}

// relocateMergedBody rewrites one already-copied input body in place:
// every sub-function word shifts by delta, and every literal-table
// TagOffset word is replaced by its value's offset in the merged pool.
func relocateMergedBody(body []byte, delta int64, literalTable []byte, pool *LiteralPool) error {
	pos := uint32(0)
	for pos < uint32(len(body)) {
		nv := newNodeView(body[pos:])
		if nv.SizeBytes() == 0 {
			fatal("zero-size node encountered while relocating merged body")
		}
		if nv.IsFunction() {
			if !nv.IsStatic() {
				for i := uint32(0); i < nv.constCount(); i++ {
					if w := nv.GetConstWord(i); isSnapshotOffsetWord(w) {
						v := resolveLiteralAtOffset(literalTable, w>>2)
						off, ok := pool.OffsetForValue(v)
						if !ok {
							return newError(KindCommon, "literal value missing from merged pool")
						}
						nv.SetConstWord(i, off<<2|uint32(TagOffset))
					}
				}
				for i := uint32(0); i < nv.tailSlotCount(); i++ {
					if w := nv.GetTailWord(i); isSnapshotOffsetWord(w) {
						v := resolveLiteralAtOffset(literalTable, w>>2)
						off, ok := pool.OffsetForValue(v)
						if !ok {
							return newError(KindCommon, "literal value missing from merged pool")
						}
						nv.SetTailWord(i, off<<2|uint32(TagOffset))
					}
				}
			}
			for i := uint32(0); i < nv.subFuncCount(); i++ {
				w := nv.GetSubFuncWord(i)
				nv.SetSubFuncWord(i, uint32(int64(w)+delta))
			}
		}
		pos += nv.SizeBytes()
	}
	return nil
}
