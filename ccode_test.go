package jsnapshot

import "testing"

func TestEncodeDecodeLiteralWordDirect(t *testing.T) {
	for _, v := range []int32{0, 1, -1, 1000, -1000} {
		w := encodeLiteralWord(Literal{Tag: TagDirect, Direct: v}, newInlineStringTable())
		got := decodeLiteralWord(w, nil)
		if got.Tag != TagDirect || got.Direct != v {
			t.Fatalf("direct %d round-tripped as %+v", v, got)
		}
	}
}

func TestEncodeDecodeLiteralWordDirectString(t *testing.T) {
	strs := newInlineStringTable()
	w := encodeLiteralWord(Literal{Tag: TagDirectString, Str: "hi"}, strs)
	got := decodeLiteralWord(w, strs.strs)
	if got.Tag != TagDirectString || got.Str != "hi" {
		t.Fatalf("direct-string round-tripped as %+v", got)
	}
}

func TestEncodeDecodeLiteralWordIDAndOffset(t *testing.T) {
	w := encodeLiteralWord(Literal{Tag: TagID, ID: 42}, nil)
	got := decodeLiteralWord(w, nil)
	if got.Tag != TagID || got.ID != 42 {
		t.Fatalf("id round-tripped as %+v", got)
	}
	if !isIDWord(w) {
		t.Fatalf("isIDWord(%#x) = false, want true", w)
	}

	w = encodeLiteralWord(Literal{Tag: TagOffset, Offset: 128}, nil)
	got = decodeLiteralWord(w, nil)
	if got.Tag != TagOffset || got.Offset != 128 {
		t.Fatalf("offset round-tripped as %+v", got)
	}
	if !isSnapshotOffsetWord(w) {
		t.Fatalf("isSnapshotOffsetWord(%#x) = false, want true", w)
	}
}

func TestInlineStringTableEncodeDecode(t *testing.T) {
	strs := newInlineStringTable()
	strs.indexFor("one")
	strs.indexFor("two")
	strs.indexFor("one") // repeat, must not grow the table

	if len(strs.strs) != 2 {
		t.Fatalf("table has %d entries, want 2", len(strs.strs))
	}

	buf := make([]byte, strs.encodedSize())
	strs.encode(buf)

	decoded, consumed := decodeInlineStringTable(buf)
	if consumed != len(buf) {
		t.Fatalf("consumed %d bytes, want %d", consumed, len(buf))
	}
	if len(decoded) != 2 || decoded[0] != "one" || decoded[1] != "two" {
		t.Fatalf("decoded = %v, want [one two]", decoded)
	}
}

func TestTailSlotCount(t *testing.T) {
	cases := []struct {
		name        string
		flags       uint16
		argumentEnd uint32
		ft          FunctionType
		want        uint32
	}{
		{"plain function", FlagIsFunction, 0, FunctionNormal, 2},     // function name + source name
		{"constructor", FlagIsFunction, 0, FunctionConstructor, 1},   // source name only
		{"mapped args", FlagIsFunction | FlagMappedArgumentsNeeded, 3, FunctionNormal, 5}, // 3 args + name + source
	}
	for _, c := range cases {
		got := tailSlotCount(c.flags, c.argumentEnd, c.ft)
		if got != c.want {
			t.Fatalf("%s: tailSlotCount = %d, want %d", c.name, got, c.want)
		}
	}
}

func TestTailValuesOrderAndSentinels(t *testing.T) {
	c := &CompiledCode{
		StatusFlags:  FlagIsFunction,
		FunctionType: FunctionNormal,
		// FunctionName and SourceName both left nil.
	}
	vals := c.tailValues()
	if len(vals) != 2 {
		t.Fatalf("tailValues() = %v, want 2 sentinel slots", vals)
	}
	for i, v := range vals {
		if v.Tag != TagDirect || v.Direct != 0 {
			t.Fatalf("tailValues()[%d] = %+v, want absent sentinel", i, v)
		}
	}
}

func TestFunctionTypeRoundTrip(t *testing.T) {
	for _, ft := range []FunctionType{
		FunctionNormal, FunctionConstructor, FunctionArrow, FunctionAccessor,
		FunctionGenerator, FunctionAsyncNormal, FunctionAsyncArrow, FunctionAsyncGenerator,
	} {
		flags := SetFunctionType(FlagIsFunction|FlagHasLineInfo, ft)
		if getFunctionType(flags) != ft {
			t.Fatalf("function type %d round-tripped as %d", ft, getFunctionType(flags))
		}
		if flags&FlagIsFunction == 0 || flags&FlagHasLineInfo == 0 {
			t.Fatalf("SetFunctionType clobbered unrelated flags: %#x", flags)
		}
	}
}

func TestEncodeRegexpNode(t *testing.T) {
	node := &CompiledCode{IsFunction: false, Pattern: "a+b*", StatusFlags: FlagIsFunction}
	buf, err := encodeRegexpNode(node)
	if err != nil {
		t.Fatalf("encodeRegexpNode: %v", err)
	}
	nv := newNodeView(buf)
	if nv.IsFunction() {
		t.Fatalf("regexp node decoded IsFunction = true")
	}
	patternLen := int(buf[2]) | int(buf[3])<<8
	if string(buf[regexpHeaderSize:regexpHeaderSize+patternLen]) != "a+b*" {
		t.Fatalf("pattern bytes = %q, want \"a+b*\"", buf[regexpHeaderSize:regexpHeaderSize+patternLen])
	}
}
