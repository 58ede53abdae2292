package jsnapshot

import "encoding/binary"

// Save is the C3/C4 entry point: it serializes the compiled-code graph
// rooted at root into a single position-independent snapshot buffer.
//
// Without SaveStatic, every TagID constant literal is resolved through
// store, collected into a scratch literal pool, and emitted as a packed
// literal table; every such slot is then rewritten from an id to a byte
// offset into that table (spec §4.1-§4.3).
//
// With SaveStatic, regexp literals are rejected anywhere in the graph,
// every constant literal must already be direct or direct-string, no
// literal table is emitted, and every node is marked FlagStaticFunction
// with its script cross-pointer zeroed (spec §4.2).
func Save(root *CompiledCode, store LiteralStore, opts SaveOption) ([]byte, error) {
	if err := validateSaveOptions(opts); err != nil {
		return nil, err
	}
	static := opts&SaveStatic != 0

	if err := validateNoTaggedLiterals(root, make(map[*CompiledCode]bool)); err != nil {
		return nil, err
	}
	if static {
		if err := validateStaticTree(root, make(map[*CompiledCode]bool)); err != nil {
			return nil, err
		}
	}

	headerLen := headerSize(1)

	w := &saveWalker{offsets: make(map[*CompiledCode]uint32), static: static, store: store, headerLen: headerLen}
	if !static {
		w.pool = NewLiteralPool()
	}
	if _, err := w.walk(root); err != nil {
		return nil, err
	}
	w.applyPatches()

	litTableOff := alignUp(uint32(len(w.body)))
	w.body = append(w.body, make([]byte, litTableOff-uint32(len(w.body)))...)

	var litTableLen uint32
	if !static {
		for _, v := range w.pool.Values() {
			litTableLen += entrySize(v)
		}
		w.body = append(w.body, make([]byte, litTableLen)...)
		// TagOffset payloads are relative to the literal table's own start
		// (spec §4.3), so the pool is emitted into that sub-slice at 0.
		if _, err := w.pool.EmitForSnapshot(w.body[litTableOff:], 0); err != nil {
			return nil, err
		}
		if err := rewriteLiteralIDs(w.body[:litTableOff], w.pool); err != nil {
			return nil, err
		}
	}

	total := headerLen + uint32(len(w.body))
	buf := make([]byte, total)

	h := &Header{
		Magic:          Magic,
		Version:        Version,
		GlobalFlags:    globalFlagsFor(root),
		LitTableOffset: headerLen + litTableOff,
		NumberOfFuncs:  1,
		FuncOffsets:    []uint32{headerLen + w.offsets[root]},
	}
	h.encode(buf)
	copy(buf[headerLen:], w.body)

	return buf, nil
}

func globalFlagsFor(root *CompiledCode) uint32 {
	var flags uint32
	seen := make(map[*CompiledCode]bool)
	var walk func(c *CompiledCode)
	walk = func(c *CompiledCode) {
		if c == nil || seen[c] {
			return
		}
		seen[c] = true
		if !c.IsFunction {
			flags |= FlagHasRegexLiteral
			return
		}
		for _, child := range c.SubFunctions {
			walk(child)
		}
	}
	walk(root)
	return flags
}

// saveWalker implements the recursive save walker shared by C3 and C4: it
// reserves a node's space, recurses into its children, then patches the
// sub-function slot words once every descendant's offset is known.
type saveWalker struct {
	body      []byte
	offsets   map[*CompiledCode]uint32 // body-local (0-based) offsets
	patches   []subPatch
	pool      *LiteralPool
	store     LiteralStore
	static    bool
	headerLen uint32
}

type subPatch struct {
	pos          uint32
	child        *CompiledCode
	parentOffset uint32
}

func (w *saveWalker) walk(node *CompiledCode) (uint32, error) {
	if off, ok := w.offsets[node]; ok {
		return off, nil
	}

	if !node.IsFunction {
		if w.static {
			return 0, newError(KindRange, "regular expression not supported")
		}
		buf, err := encodeRegexpNode(node)
		if err != nil {
			return 0, err
		}
		nodeOffset := uint32(len(w.body))
		w.offsets[node] = nodeOffset
		w.body = append(w.body, buf...)
		return nodeOffset, nil
	}

	buf, subSlotOffsets, err := encodeFunctionNode(node, w.static)
	if err != nil {
		return 0, err
	}
	nodeOffset := uint32(len(w.body))
	w.offsets[node] = nodeOffset
	w.body = append(w.body, buf...)

	if !w.static {
		w.pool.AddFromCompiledCode(node, w.store)
	}

	for i, child := range node.SubFunctions {
		w.patches = append(w.patches, subPatch{pos: nodeOffset + uint32(subSlotOffsets[i]), child: child, parentOffset: nodeOffset})
	}
	for _, child := range node.SubFunctions {
		if child != nil {
			if _, err := w.walk(child); err != nil {
				return 0, err
			}
		}
	}
	return nodeOffset, nil
}

// applyPatches fills in each sub-function slot word. Sub-function words
// are full-snapshot-relative (they get fed straight into Load's buffer
// indexing), unlike literal-table offsets, which are table-relative.
func (w *saveWalker) applyPatches() {
	for _, p := range w.patches {
		off := p.parentOffset
		if p.child != nil {
			off = w.offsets[p.child]
		}
		binary.LittleEndian.PutUint32(w.body[p.pos:p.pos+4], w.headerLen+off)
	}
}

// validateNoTaggedLiterals rejects any node whose tagged-template literals
// flag is set: this package never supports emitting them (spec Non-goals).
func validateNoTaggedLiterals(node *CompiledCode, seen map[*CompiledCode]bool) error {
	if node == nil || seen[node] {
		return nil
	}
	seen[node] = true
	if !node.IsFunction {
		return nil
	}
	if node.StatusFlags&FlagHasTaggedLiterals != 0 {
		return newError(KindRange, "unsupported literal: tagged template")
	}
	for _, child := range node.SubFunctions {
		if err := validateNoTaggedLiterals(child, seen); err != nil {
			return err
		}
	}
	return nil
}

// validateStaticTree enforces the static save-walker's preconditions
// (spec §4.2): no regexp node anywhere in the graph, and every constant
// literal already direct or direct-string.
func validateStaticTree(node *CompiledCode, seen map[*CompiledCode]bool) error {
	if node == nil || seen[node] {
		return nil
	}
	seen[node] = true
	if !node.IsFunction {
		return newError(KindRange, "regular expression not supported")
	}
	for _, lit := range node.ConstLiterals {
		if !lit.isDirectOrDirectString() {
			return newError(KindRange, "Unsupported static snapshot literal: %s", lit.String())
		}
	}
	for _, child := range node.SubFunctions {
		if err := validateStaticTree(child, seen); err != nil {
			return err
		}
	}
	return nil
}
