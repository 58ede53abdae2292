package jsnapshot

import "context"

// This package never parses source, runs bytecode, or owns memory itself;
// it only assembles and disassembles compiled-code graphs. The interfaces
// below are the seams a host engine plugs itself into (spec §6).

// Parser turns ECMAScript source text into a compiled-code tree. No entry
// point of this package calls it; a host uses it to build the tree it
// passes to Save.
type Parser interface {
	Parse(ctx context.Context, source string, sourceName string) (*CompiledCode, error)
}

// VM creates script/function objects from a loaded compiled-code tree and
// runs them. It is the collaborator Exec hands the tree materialized by
// Load to once loading finishes.
type VM interface {
	// RunScript executes top-level code and returns its completion value.
	RunScript(ctx context.Context, root *CompiledCode, userValue any) (any, error)
	// MakeFunction wraps root as a callable function object, for
	// EXEC_LOAD_AS_FUNCTION.
	MakeFunction(root *CompiledCode) (any, error)
}

// Regexp recompiles a pattern string back into whatever internal bytecode
// the host's regexp engine uses, during load of a regexp node.
type Regexp interface {
	Compile(pattern string, flags uint16) (any, error)
}

// Allocator is the host's aligned-allocation collaborator, used by Load
// when a node must be copied out of the snapshot buffer rather than
// referenced in place (spec §4.4, the copy-vs-redirect decision).
type Allocator interface {
	AllocAligned(size uint32) ([]byte, error)
	FreeAligned(buf []byte)
}

// Exception lets the core raise host-visible exceptions of a specific
// ECMAScript error type without importing a VM dependency of its own.
type Exception interface {
	Throw(kind Kind, message string) error
}
