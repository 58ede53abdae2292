// Package jsnapshot implements the snapshot subsystem of a small-footprint
// ECMAScript engine: saving a compiled-code graph to a position-independent
// byte buffer, loading one back into a live tree, merging several buffers
// into one with literal deduplication, and dumping identifier literals out
// of a snapshot for offline tooling.
//
// The package does not parse ECMAScript source or run bytecode itself;
// those concerns belong to collaborators supplied by the host (see the
// Parser, VM, Regexp, Allocator and Exception interfaces).
package jsnapshot
