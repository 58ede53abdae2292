package jsnapshot

import "testing"

func TestMergeTwoSnapshotsDedupesSharedLiteral(t *testing.T) {
	storeA := fakeStore{0: {Kind: PoolString, Str: "shared"}}
	storeB := fakeStore{0: {Kind: PoolString, Str: "shared"}, 1: {Kind: PoolString, Str: "only-b"}}

	rootA := leafFunction(Literal{Tag: TagID, ID: 0}, "a.js")
	rootB := leafFunction(Literal{Tag: TagID, ID: 1}, "b.js")
	rootB.ConstLiterals = append(rootB.ConstLiterals, Literal{Tag: TagID, ID: 0})
	rootB.ConstLiteralEnd = 2
	rootB.LiteralEnd = 2

	bufA, err := Save(rootA, storeA, 0)
	if err != nil {
		t.Fatalf("Save A: %v", err)
	}
	bufB, err := Save(rootB, storeB, 0)
	if err != nil {
		t.Fatalf("Save B: %v", err)
	}

	out := make([]byte, len(bufA)+len(bufB)+256)
	n, err := Merge([][]byte{bufA, bufB}, out)
	if err != nil {
		t.Fatalf("Merge: %v", err)
	}
	merged := out[:n]

	h, err := decodeHeader(merged)
	if err != nil {
		t.Fatalf("decodeHeader: %v", err)
	}
	if h.NumberOfFuncs != 2 {
		t.Fatalf("NumberOfFuncs = %d, want 2", h.NumberOfFuncs)
	}

	// Load only ever materializes the first func offset; check it resolves
	// correctly, then inspect the second root's raw words directly.
	firstRoot, err := Load(merged, nil, nil, nil, 0)
	if err != nil {
		t.Fatalf("Load first root: %v", err)
	}
	if firstRoot.ConstLiterals[0].Tag != TagResolved || firstRoot.ConstLiterals[0].Value.Str != "shared" {
		t.Fatalf("first root literal = %+v, want resolved \"shared\"", firstRoot.ConstLiterals[0])
	}

	rootOffA := h.FuncOffsets[0] &^ evalContextBit
	rootOffB := h.FuncOffsets[1] &^ evalContextBit
	litTable := merged[h.LitTableOffset:]

	viewA := newNodeView(merged[rootOffA:])
	viewB := newNodeView(merged[rootOffB:])
	if !viewB.IsFunction() {
		t.Fatalf("second root is not a function node")
	}

	wA := viewA.GetConstWord(0)
	wB0 := viewB.GetConstWord(0)
	wB1 := viewB.GetConstWord(1)
	vB0 := resolveLiteralAtOffset(litTable, wB0>>2)
	vB1 := resolveLiteralAtOffset(litTable, wB1>>2)
	if vB0.Str != "only-b" {
		t.Fatalf("second root literal 0 = %+v, want \"only-b\"", vB0)
	}
	if vB1.Str != "shared" {
		t.Fatalf("second root literal 1 = %+v, want \"shared\"", vB1)
	}

	// The merged pool must have deduplicated "shared" into a single entry,
	// reused by both inputs.
	if wA>>2 != wB1>>2 {
		t.Fatalf("shared literal was not deduplicated: offsets %d != %d", wA>>2, wB1>>2)
	}
}

func TestMergeRequiresAtLeastTwoInputs(t *testing.T) {
	if _, err := Merge([][]byte{{1, 2, 3}}, make([]byte, 64)); err == nil {
		t.Fatalf("expected error for a single input")
	}
}

func TestMergeRejectsUndersizedOutput(t *testing.T) {
	store := fakeStore{0: {Kind: PoolString, Str: "x"}}
	root := leafFunction(Literal{Tag: TagID, ID: 0}, "a.js")
	buf, err := Save(root, store, 0)
	if err != nil {
		t.Fatalf("Save: %v", err)
	}
	if _, err := Merge([][]byte{buf, buf}, make([]byte, 1)); err == nil {
		t.Fatalf("expected error for an undersized output buffer")
	}
}
