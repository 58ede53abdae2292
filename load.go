package jsnapshot

import (
	"context"
	"encoding/binary"
)

// copyThreshold mirrors BYTECODE_NO_COPY_THRESHOLD: an opcode block this
// small or smaller is always copied out of the input buffer even without
// ExecCopyData, since the allocation overhead of redirection would exceed
// the cost of just copying the bytes (spec §4.4).
const copyThreshold = 8

// Load is C6: it validates a snapshot's header, then recursively
// materializes the compiled-code tree reachable from its first function
// entry, resolving every TagOffset literal slot against the snapshot's own
// literal table and turning it into a TagResolved literal.
func Load(buf []byte, store LiteralStore, regexpEngine Regexp, alloc Allocator, opts ExecOption) (*CompiledCode, error) {
	if err := validateExecOptions(opts); err != nil {
		return nil, err
	}
	h, err := decodeHeader(buf)
	if err != nil {
		return nil, err
	}

	rootOff := h.FuncOffsets[0] &^ evalContextBit
	if rootOff >= uint32(len(buf)) {
		return nil, newError(KindType, "invalid format")
	}
	rootView := newNodeView(buf[rootOff:])
	if rootView.IsStatic() && opts&ExecAllowStatic == 0 {
		return nil, newError(KindCommon, "static snapshot not allowed")
	}

	literalTable := buf[h.LitTableOffset:]

	w := &loadWalker{
		buf:          buf,
		literalTable: literalTable,
		store:        store,
		regexpEngine: regexpEngine,
		alloc:        alloc,
		copyAll:      opts&ExecCopyData != 0,
		cache:        make(map[uint32]*CompiledCode),
	}
	return w.materialize(rootOff)
}

// Exec is the higher-level entry point (spec §4.4): it loads the snapshot
// and then either wraps the root as a callable function or runs it as a
// script, depending on ExecLoadAsFunction.
func Exec(ctx context.Context, buf []byte, store LiteralStore, regexpEngine Regexp, alloc Allocator, vm VM, userValue any, opts ExecOption) (any, error) {
	root, err := Load(buf, store, regexpEngine, alloc, opts)
	if err != nil {
		return nil, err
	}
	if opts&ExecLoadAsFunction != 0 {
		return vm.MakeFunction(root)
	}
	return vm.RunScript(ctx, root, userValue)
}

type loadWalker struct {
	buf          []byte
	literalTable []byte
	store        LiteralStore
	regexpEngine Regexp
	alloc        Allocator
	copyAll      bool
	cache        map[uint32]*CompiledCode
}

func (w *loadWalker) materialize(offset uint32) (*CompiledCode, error) {
	if c, ok := w.cache[offset]; ok {
		return c, nil
	}

	nv := newNodeView(w.buf[offset:])
	if !nv.IsFunction() {
		return w.materializeRegexp(offset, nv)
	}

	registerEnd, constLiteralEnd, literalEnd, argumentEnd := nv.counts()
	ft := getFunctionType(nv.StatusFlags())
	c := &CompiledCode{
		IsFunction:      true,
		StatusFlags:     nv.StatusFlags(),
		FunctionType:    ft,
		ArgumentEnd:     argumentEnd,
		RegisterEnd:     registerEnd,
		ConstLiteralEnd: constLiteralEnd,
		LiteralEnd:      literalEnd,
		ScriptValue:     nv.rawScriptValue(),
	}
	w.cache[offset] = c

	strs, consumed := decodeInlineStringTable(nv.buf[nv.stringTableOffset():])
	opcodesOff := nv.stringTableOffset() + uint32(consumed)
	opcodesEnd := nv.tailStart()

	if w.copyAll || opcodesEnd-opcodesOff <= copyThreshold {
		if w.alloc != nil {
			dst, err := w.alloc.AllocAligned(opcodesEnd - opcodesOff)
			if err != nil {
				return nil, err
			}
			c.Opcodes = dst[:copy(dst, nv.buf[opcodesOff:opcodesEnd])]
		} else {
			c.Opcodes = append([]byte(nil), nv.buf[opcodesOff:opcodesEnd]...)
		}
	} else {
		c.Opcodes = nv.buf[opcodesOff:opcodesEnd]
	}

	c.ConstLiterals = make([]Literal, nv.constCount())
	for i := range c.ConstLiterals {
		c.ConstLiterals[i] = decodeMaterializedLiteral(nv.GetConstWord(uint32(i)), strs, w.literalTable)
	}

	tailIdx := uint32(0)
	if c.StatusFlags&FlagMappedArgumentsNeeded != 0 {
		c.MappedArgumentNames = make([]Literal, argumentEnd)
		for i := range c.MappedArgumentNames {
			c.MappedArgumentNames[i] = decodeMaterializedLiteral(nv.GetTailWord(tailIdx), strs, w.literalTable)
			tailIdx++
		}
	}
	if ft != FunctionConstructor {
		c.FunctionName = asOptionalLiteral(decodeMaterializedLiteral(nv.GetTailWord(tailIdx), strs, w.literalTable))
		tailIdx++
	}
	c.SourceName = asOptionalLiteral(decodeMaterializedLiteral(nv.GetTailWord(tailIdx), strs, w.literalTable))

	c.SubFunctions = make([]*CompiledCode, nv.subFuncCount())
	for i := range c.SubFunctions {
		word := nv.GetSubFuncWord(uint32(i))
		if word == offset {
			c.SubFunctions[i] = nil
			continue
		}
		child, err := w.materialize(word)
		if err != nil {
			return nil, err
		}
		c.SubFunctions[i] = child
	}

	return c, nil
}

func (w *loadWalker) materializeRegexp(offset uint32, nv nodeView) (*CompiledCode, error) {
	patternLen := binary.LittleEndian.Uint16(nv.buf[2:4])
	pattern := string(nv.buf[regexpHeaderSize : uint32(regexpHeaderSize)+uint32(patternLen)])
	c := &CompiledCode{IsFunction: false, StatusFlags: nv.StatusFlags(), Pattern: pattern}
	w.cache[offset] = c
	if w.regexpEngine != nil {
		if _, err := w.regexpEngine.Compile(pattern, c.StatusFlags); err != nil {
			return nil, err
		}
	}
	return c, nil
}

// decodeMaterializedLiteral decodes one literal word from a loaded node,
// following a TagOffset slot through the snapshot's literal table so the
// caller never has to do that resolution itself.
func decodeMaterializedLiteral(w uint32, strs []string, literalTable []byte) Literal {
	lit := decodeLiteralWord(w, strs)
	if lit.Tag == TagOffset {
		return Literal{Tag: TagResolved, Value: resolveLiteralAtOffset(literalTable, lit.Offset)}
	}
	return lit
}

// asOptionalLiteral turns the save walker's "absent" sentinel (a direct
// zero) back into a nil pointer.
func asOptionalLiteral(lit Literal) *Literal {
	if lit.Tag == TagDirect && lit.Direct == 0 {
		return nil
	}
	return &lit
}
