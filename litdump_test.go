package jsnapshot

import (
	"strings"
	"testing"
)

func TestExtractLiteralsSortAndDedup(t *testing.T) {
	store := fakeStore{
		0: {Kind: PoolString, Str: "bb"},
		1: {Kind: PoolString, Str: "a"},
		2: {Kind: PoolString, Str: "ccc"},
	}
	root := &CompiledCode{
		IsFunction:      true,
		StatusFlags:     FlagIsFunction,
		FunctionType:    FunctionNormal,
		ConstLiteralEnd: 3,
		LiteralEnd:      3,
		ConstLiterals: []Literal{
			{Tag: TagID, ID: 0},
			{Tag: TagID, ID: 1},
			{Tag: TagID, ID: 2},
		},
		SourceName: &Literal{Tag: TagDirectString, Str: "a"}, // duplicate of id 1's value
	}

	buf, err := Save(root, store, 0)
	if err != nil {
		t.Fatalf("Save: %v", err)
	}

	out, err := ExtractLiterals(buf, nil, DumpPlain)
	if err != nil {
		t.Fatalf("ExtractLiterals: %v", err)
	}
	lines := strings.Split(strings.TrimRight(string(out), "\n"), "\n")
	want := []string{"a", "bb", "ccc"}
	if len(lines) != len(want) {
		t.Fatalf("lines = %v, want %v", lines, want)
	}
	for i, w := range want {
		if lines[i] != w {
			t.Fatalf("lines[%d] = %q, want %q", i, lines[i], w)
		}
	}
}

func TestExtractLiteralsFiltersMagicStrings(t *testing.T) {
	store := fakeStore{0: {Kind: PoolString, Str: "length"}}
	root := leafFunction(Literal{Tag: TagID, ID: 0}, "x.js")

	buf, err := Save(root, store, 0)
	if err != nil {
		t.Fatalf("Save: %v", err)
	}
	isMagic := func(s string) bool { return s == "length" }
	out, err := ExtractLiterals(buf, isMagic, DumpPlain)
	if err != nil {
		t.Fatalf("ExtractLiterals: %v", err)
	}
	if strings.Contains(string(out), "length") {
		t.Fatalf("magic string leaked into output: %q", out)
	}
	if !strings.Contains(string(out), "x.js") {
		t.Fatalf("source name missing from output: %q", out)
	}
}

func TestExtractLiteralsStaticUsesInlineStrings(t *testing.T) {
	root := leafFunction(Literal{Tag: TagDirectString, Str: "inline-only"}, "static.js")
	buf, err := Save(root, nil, SaveStatic)
	if err != nil {
		t.Fatalf("Save: %v", err)
	}
	out, err := ExtractLiterals(buf, nil, DumpPlain)
	if err != nil {
		t.Fatalf("ExtractLiterals: %v", err)
	}
	if !strings.Contains(string(out), "inline-only") {
		t.Fatalf("inline string table literal missing: %q", out)
	}
	if !strings.Contains(string(out), "static.js") {
		t.Fatalf("source name missing: %q", out)
	}
}

func TestExtractLiteralsCFormatEscaping(t *testing.T) {
	store := fakeStore{0: {Kind: PoolString, Str: "a\"b\\c"}}
	root := leafFunction(Literal{Tag: TagID, ID: 0}, "q.js")
	buf, err := Save(root, store, 0)
	if err != nil {
		t.Fatalf("Save: %v", err)
	}
	out, err := ExtractLiterals(buf, nil, DumpC)
	if err != nil {
		t.Fatalf("ExtractLiterals: %v", err)
	}
	s := string(out)
	if !strings.Contains(s, "jerry_length_t literal_count = 2;") {
		t.Fatalf("missing literal_count line: %q", s)
	}
	if !strings.Contains(s, `a\"b\\c`) {
		t.Fatalf("escaped literal not found in: %q", s)
	}
}

func TestHeapSortLiteralsOrdering(t *testing.T) {
	lits := []string{"zz", "a", "bb", "aa", "b"}
	heapSortLiterals(lits)
	want := []string{"a", "b", "aa", "bb", "zz"}
	for i, w := range want {
		if lits[i] != w {
			t.Fatalf("sorted = %v, want %v", lits, want)
		}
	}
}

func TestEscapeCString(t *testing.T) {
	got := escapeCString("a\"b\\c\x01")
	want := `a\"b\\c\x01`
	if got != want {
		t.Fatalf("escapeCString = %q, want %q", got, want)
	}
}
