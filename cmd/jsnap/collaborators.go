package main

import (
	"context"
	"fmt"

	"github.com/xyproto/jsnapshot"
)

// cliVM is a reference VM collaborator with no real bytecode interpreter
// behind it: RunScript and MakeFunction only describe what they would do,
// which is enough to exercise Exec's dispatch logic end to end from the
// command line without pulling in a full engine.
type cliVM struct{}

func (cliVM) RunScript(_ context.Context, root *jsnapshot.CompiledCode, userValue any) (any, error) {
	return fmt.Sprintf("would run script: %d opcode bytes, %d sub-functions, user value=%v",
		len(root.Opcodes), len(root.SubFunctions), userValue), nil
}

func (cliVM) MakeFunction(root *jsnapshot.CompiledCode) (any, error) {
	return fmt.Sprintf("would wrap as function: %d opcode bytes", len(root.Opcodes)), nil
}

// cliRegexp recompiles nothing; it just reports the pattern it was asked
// to recompile, since this CLI has no regexp engine of its own.
type cliRegexp struct{}

func (cliRegexp) Compile(pattern string, flags uint16) (any, error) {
	return pattern, nil
}

// cliAllocator backs jsnapshot.Allocator with plain Go allocation.
type cliAllocator struct{}

func (cliAllocator) AllocAligned(size uint32) ([]byte, error) {
	return make([]byte, size), nil
}

func (cliAllocator) FreeAligned(buf []byte) {}
