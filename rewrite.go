package jsnapshot

// rewriteLiteralIDs is C5: a second linear pass over every node emitted by
// the save walker, replacing each TagID literal slot with a TagOffset slot
// pointing into the literal table pool just emitted. Static nodes carry no
// TagID slots and are skipped; regexp nodes carry no literal slots at all.
func rewriteLiteralIDs(body []byte, pool *LiteralPool) error {
	pos := uint32(0)
	end := uint32(len(body))
	for pos < end {
		nv := newNodeView(body[pos:])
		if nv.SizeBytes() == 0 {
			fatal("zero-size node encountered while rewriting literal ids")
		}
		if nv.IsFunction() && !nv.IsStatic() {
			for i := uint32(0); i < nv.constCount(); i++ {
				w := nv.GetConstWord(i)
				if isIDWord(w) {
					off, ok := pool.OffsetForID(w >> 2)
					if !ok {
						return newError(KindCommon, "literal id missing from pool during rewrite")
					}
					nv.SetConstWord(i, off<<2|uint32(TagOffset))
				}
			}
			for i := uint32(0); i < nv.tailSlotCount(); i++ {
				w := nv.GetTailWord(i)
				if isIDWord(w) {
					off, ok := pool.OffsetForID(w >> 2)
					if !ok {
						return newError(KindCommon, "literal id missing from pool during rewrite")
					}
					nv.SetTailWord(i, off<<2|uint32(TagOffset))
				}
			}
		}
		pos += nv.SizeBytes()
	}
	return nil
}
