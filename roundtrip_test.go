package jsnapshot

import (
	"testing"
)

func TestSaveLoadDynamicRoundTrip(t *testing.T) {
	store := fakeStore{0: {Kind: PoolString, Str: "hello"}}
	root := leafFunction(Literal{Tag: TagID, ID: 0}, "main.js")

	buf, err := Save(root, store, 0)
	if err != nil {
		t.Fatalf("Save: %v", err)
	}

	loaded, err := Load(buf, nil, nil, nil, 0)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if !loaded.IsFunction {
		t.Fatalf("expected function node")
	}
	if got := loaded.ConstLiterals[0]; got.Tag != TagResolved || got.Value.Str != "hello" {
		t.Fatalf("const literal = %+v, want resolved \"hello\"", got)
	}
	if loaded.SourceName == nil || loaded.SourceName.Str != "main.js" {
		t.Fatalf("source name = %+v, want \"main.js\"", loaded.SourceName)
	}
	if len(loaded.Opcodes) != 3 {
		t.Fatalf("opcodes = %v, want 3 bytes", loaded.Opcodes)
	}
}

func TestSaveStaticRoundTrip(t *testing.T) {
	root := leafFunction(Literal{Tag: TagDirectString, Str: "world"}, "static.js")

	buf, err := Save(root, nil, SaveStatic)
	if err != nil {
		t.Fatalf("Save: %v", err)
	}

	h, err := decodeHeader(buf)
	if err != nil {
		t.Fatalf("decodeHeader: %v", err)
	}
	if h.LitTableOffset != uint32(len(buf)) {
		t.Fatalf("lit table offset = %d, want %d (no literal table)", h.LitTableOffset, len(buf))
	}

	if _, err := Load(buf, nil, nil, nil, 0); err == nil {
		t.Fatalf("Load without ExecAllowStatic should fail")
	}

	loaded, err := Load(buf, nil, nil, nil, ExecAllowStatic)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got := loaded.ConstLiterals[0]; got.Tag != TagDirectString || got.Str != "world" {
		t.Fatalf("const literal = %+v, want direct-string \"world\"", got)
	}
}

func TestSaveStaticRejectsNonDirectLiteral(t *testing.T) {
	root := leafFunction(Literal{Tag: TagID, ID: 0}, "static.js")
	if _, err := Save(root, fakeStore{0: {Kind: PoolString, Str: "x"}}, SaveStatic); err == nil {
		t.Fatalf("expected error for non-direct literal in static save")
	}
}

func TestSaveLoadSelfReference(t *testing.T) {
	root := &CompiledCode{
		IsFunction:      true,
		StatusFlags:     FlagIsFunction,
		FunctionType:    FunctionNormal,
		ConstLiteralEnd: 0,
		LiteralEnd:      1,
		SubFunctions:    []*CompiledCode{nil},
		Opcodes:         []byte{0xEE},
	}

	buf, err := Save(root, fakeStore{}, 0)
	if err != nil {
		t.Fatalf("Save: %v", err)
	}
	loaded, err := Load(buf, nil, nil, nil, 0)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(loaded.SubFunctions) != 1 || loaded.SubFunctions[0] != nil {
		t.Fatalf("sub-functions = %v, want a single nil (self-reference) slot", loaded.SubFunctions)
	}
}

func TestSaveLoadSharedSubFunction(t *testing.T) {
	child := leafFunction(Literal{Tag: TagDirect, Direct: 7}, "child.js")
	root := &CompiledCode{
		IsFunction:      true,
		StatusFlags:     FlagIsFunction,
		FunctionType:    FunctionNormal,
		ConstLiteralEnd: 0,
		LiteralEnd:      2,
		SubFunctions:    []*CompiledCode{child, child},
		Opcodes:         []byte{0xAA, 0xBB},
	}

	buf, err := Save(root, fakeStore{}, 0)
	if err != nil {
		t.Fatalf("Save: %v", err)
	}
	loaded, err := Load(buf, nil, nil, nil, 0)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if loaded.SubFunctions[0] != loaded.SubFunctions[1] {
		t.Fatalf("shared sub-function did not dedupe across load: %p != %p",
			loaded.SubFunctions[0], loaded.SubFunctions[1])
	}
}

func TestSaveLoadRegexpChild(t *testing.T) {
	regexpNode := &CompiledCode{IsFunction: false, Pattern: "a+b*"}
	root := &CompiledCode{
		IsFunction:      true,
		StatusFlags:     FlagIsFunction,
		FunctionType:    FunctionNormal,
		ConstLiteralEnd: 0,
		LiteralEnd:      1,
		SubFunctions:    []*CompiledCode{regexpNode},
		Opcodes:         []byte{0x01},
	}

	buf, err := Save(root, fakeStore{}, 0)
	if err != nil {
		t.Fatalf("Save: %v", err)
	}
	loaded, err := Load(buf, nil, nil, nil, 0)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	re := loaded.SubFunctions[0]
	if re.IsFunction || re.Pattern != "a+b*" {
		t.Fatalf("regexp child = %+v, want pattern \"a+b*\"", re)
	}
}

func TestDecodeHeaderErrors(t *testing.T) {
	if _, err := decodeHeader([]byte{1, 2, 3}); err == nil {
		t.Fatalf("expected error for truncated header")
	}
	bad := make([]byte, FixedHeaderSize+4)
	bad[0] = 0xFF // corrupt magic
	if _, err := decodeHeader(bad); err == nil {
		t.Fatalf("expected error for bad magic")
	}
}
