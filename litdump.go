package jsnapshot

import "fmt"

// DumpFormat selects the output shape ExtractLiterals produces.
type DumpFormat int

const (
	// DumpPlain writes each literal followed by a newline.
	DumpPlain DumpFormat = iota
	// DumpC writes a C translation unit defining literal_count,
	// literal_sizes[], and literals[], mirroring the host engine's own
	// offline literal-dump tooling.
	DumpC
)

// ExtractLiterals is C8: it scans every string literal reachable from buf
// (both pool-table entries and each node's own inline string table, so
// the scan works on static snapshots too), drops engine-internal magic
// strings, sorts what remains by length then lexicographically, and
// renders the result in the requested format.
//
// isMagicString may be nil, in which case no string is treated as magic.
func ExtractLiterals(buf []byte, isMagicString func(string) bool, format DumpFormat) ([]byte, error) {
	h, err := decodeHeader(buf)
	if err != nil {
		return nil, err
	}
	bodyStart := headerSize(h.NumberOfFuncs)
	literalTable := buf[h.LitTableOffset:]

	seen := make(map[string]bool)
	var literals []string
	add := func(s string) {
		if seen[s] {
			return
		}
		if isMagicString != nil && isMagicString(s) {
			return
		}
		seen[s] = true
		literals = append(literals, s)
	}

	visited := make(map[uint32]bool)
	var visit func(local uint32)
	visit = func(local uint32) {
		if visited[local] {
			return
		}
		visited[local] = true
		nv := newNodeView(buf[bodyStart+local:])
		if !nv.IsFunction() {
			return
		}

		strs, _ := decodeInlineStringTable(nv.buf[nv.stringTableOffset():])
		for _, s := range strs {
			add(s)
		}

		if !nv.IsStatic() {
			for i := uint32(0); i < nv.constCount(); i++ {
				if w := nv.GetConstWord(i); isSnapshotOffsetWord(w) {
					v := resolveLiteralAtOffset(literalTable, w>>2)
					if v.Kind == PoolString {
						add(v.Str)
					}
				}
			}
			for i := uint32(0); i < nv.tailSlotCount(); i++ {
				if w := nv.GetTailWord(i); isSnapshotOffsetWord(w) {
					v := resolveLiteralAtOffset(literalTable, w>>2)
					if v.Kind == PoolString {
						add(v.Str)
					}
				}
			}
		}

		for i := uint32(0); i < nv.subFuncCount(); i++ {
			visit(nv.GetSubFuncWord(i) - bodyStart)
		}
	}
	for _, fo := range h.FuncOffsets {
		visit((fo &^ evalContextBit) - bodyStart)
	}

	heapSortLiterals(literals)

	switch format {
	case DumpC:
		return renderCLiterals(literals), nil
	default:
		return renderPlainLiterals(literals), nil
	}
}

func renderPlainLiterals(literals []string) []byte {
	var out []byte
	for _, s := range literals {
		out = append(out, s...)
		out = append(out, '\n')
	}
	return out
}

func renderCLiterals(literals []string) []byte {
	out := fmt.Sprintf("jerry_length_t literal_count = %d;\n\n", len(literals))
	out += "jerry_length_t literal_sizes[] = {\n"
	for _, s := range literals {
		out += fmt.Sprintf("  %d,\n", len(s))
	}
	out += "};\n\njerry_char_t *literals[] = {\n"
	for _, s := range literals {
		out += fmt.Sprintf("  \"%s\",\n", escapeCString(s))
	}
	out += "};\n"
	return []byte(out)
}

// escapeCString escapes a literal's bytes for embedding in a C string
// literal: '"' and '\' get a backslash, other printable ASCII passes
// through, everything else becomes \xHH.
func escapeCString(s string) string {
	var out []byte
	for i := 0; i < len(s); i++ {
		b := s[i]
		switch {
		case b == '"' || b == '\\':
			out = append(out, '\\', b)
		case b >= 0x20 && b < 0x7f:
			out = append(out, b)
		default:
			out = append(out, fmt.Sprintf("\\x%02x", b)...)
		}
	}
	return string(out)
}

// heapSortLiterals sorts literals ascending by byte length, then
// lexicographically, with a textbook array heapsort (spec §4.6).
func heapSortLiterals(literals []string) {
	n := len(literals)
	for i := n/2 - 1; i >= 0; i-- {
		siftDownLiterals(literals, i, n)
	}
	for end := n - 1; end > 0; end-- {
		literals[0], literals[end] = literals[end], literals[0]
		siftDownLiterals(literals, 0, end)
	}
}

func siftDownLiterals(literals []string, start, end int) {
	root := start
	for {
		child := 2*root + 1
		if child >= end {
			return
		}
		if child+1 < end && literalLess(literals[child], literals[child+1]) {
			child++
		}
		if literalLess(literals[root], literals[child]) {
			literals[root], literals[child] = literals[child], literals[root]
			root = child
		} else {
			return
		}
	}
}

func literalLess(a, b string) bool {
	if len(a) != len(b) {
		return len(a) < len(b)
	}
	return a < b
}
