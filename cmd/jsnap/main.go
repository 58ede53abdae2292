package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/xyproto/env/v2"
	"github.com/xyproto/jsnapshot"
)

const versionString = "jsnap 1.0.0"

// VerboseMode controls trace output across every subcommand.
var VerboseMode bool

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(1)
	}

	switch os.Args[1] {
	case "generate":
		runGenerate(os.Args[2:])
	case "exec":
		runExec(os.Args[2:])
	case "merge":
		runMerge(os.Args[2:])
	case "literals":
		runLiterals(os.Args[2:])
	case "inspect":
		runInspect(os.Args[2:])
	case "-V", "-version", "--version":
		fmt.Println(versionString)
	default:
		usage()
		os.Exit(1)
	}
}

func usage() {
	fmt.Fprintf(os.Stderr, "%s\n\nusage: jsnap <generate|exec|merge|literals|inspect> [flags]\n", versionString)
}

// staticFromEnv supplies the default of generate's -static flag, so
// JSNAP_ALLOW_STATIC=1 turns static-save mode on unless -static=false is
// given.
func staticFromEnv() bool {
	return env.Bool("JSNAP_ALLOW_STATIC")
}

func runGenerate(args []string) {
	fs := flag.NewFlagSet("generate", flag.ExitOnError)
	inFlag := fs.String("in", "", "input IR document (JSON)")
	outFlag := fs.String("o", "", "output snapshot file")
	outLongFlag := fs.String("output", "", "output snapshot file")
	static := fs.Bool("static", staticFromEnv(), "save a static snapshot (no literal table)")
	verbose := fs.Bool("v", false, "verbose")
	fs.Parse(args)
	VerboseMode = *verbose

	out := *outFlag
	if *outLongFlag != "" {
		out = *outLongFlag
	}
	if *inFlag == "" || out == "" {
		log.Fatal("generate requires -in and -o")
	}

	doc, err := readDocument(*inFlag)
	if err != nil {
		log.Fatalf("reading ir document: %v", err)
	}
	root, err := doc.buildTree()
	if err != nil {
		log.Fatalf("building compiled-code tree: %v", err)
	}

	var opts jsnapshot.SaveOption
	if *static {
		opts |= jsnapshot.SaveStatic
	}
	if VerboseMode {
		fmt.Fprintf(os.Stderr, "generating snapshot from %q (static=%v)\n", *inFlag, *static)
	}
	buf, err := jsnapshot.Save(root, doc.literalStore(), opts)
	if err != nil {
		log.Fatalf("save: %v", err)
	}
	if err := os.WriteFile(out, buf, 0o644); err != nil {
		log.Fatalf("writing %q: %v", out, err)
	}
	if VerboseMode {
		fmt.Fprintf(os.Stderr, "wrote %d bytes to %q\n", len(buf), out)
	}
}

func runExec(args []string) {
	fs := flag.NewFlagSet("exec", flag.ExitOnError)
	inFlag := fs.String("in", "", "input snapshot file")
	asFunction := fs.Bool("as-function", false, "load as a callable function instead of running as a script")
	allowStatic := fs.Bool("allow-static", false, "permit loading a static snapshot")
	copyData := fs.Bool("copy-data", false, "copy every node out of the input buffer")
	verbose := fs.Bool("v", false, "verbose")
	fs.Parse(args)
	VerboseMode = *verbose

	if *inFlag == "" {
		log.Fatal("exec requires -in")
	}
	buf, err := os.ReadFile(*inFlag)
	if err != nil {
		log.Fatalf("reading %q: %v", *inFlag, err)
	}

	var opts jsnapshot.ExecOption
	if *asFunction {
		opts |= jsnapshot.ExecLoadAsFunction
	}
	if *allowStatic {
		opts |= jsnapshot.ExecAllowStatic
	}
	if *copyData {
		opts |= jsnapshot.ExecCopyData
	}

	result, err := jsnapshot.Exec(context.Background(), buf, emptyLiteralStore{}, cliRegexp{}, cliAllocator{}, cliVM{}, nil, opts)
	if err != nil {
		log.Fatalf("exec: %v", err)
	}
	fmt.Println(result)
}

func runMerge(args []string) {
	fs := flag.NewFlagSet("merge", flag.ExitOnError)
	outFlag := fs.String("o", "", "output snapshot file")
	outLongFlag := fs.String("output", "", "output snapshot file")
	verbose := fs.Bool("v", false, "verbose")
	fs.Parse(args)
	VerboseMode = *verbose

	out := *outFlag
	if *outLongFlag != "" {
		out = *outLongFlag
	}
	inputs := fs.Args()
	if out == "" || len(inputs) < 2 {
		log.Fatal("merge requires -o and at least two input files")
	}

	buffers := make([][]byte, len(inputs))
	var total int
	for i, path := range inputs {
		b, err := os.ReadFile(path)
		if err != nil {
			log.Fatalf("reading %q: %v", path, err)
		}
		buffers[i] = b
		total += len(b)
	}

	outBuf := make([]byte, total+int(env.Int("JSNAP_MERGE_SLACK", 4096)))
	n, err := jsnapshot.Merge(buffers, outBuf)
	if err != nil {
		log.Fatalf("merge: %v", err)
	}
	if err := os.WriteFile(out, outBuf[:n], 0o644); err != nil {
		log.Fatalf("writing %q: %v", out, err)
	}
	if VerboseMode {
		fmt.Fprintf(os.Stderr, "merged %d snapshots into %d bytes\n", len(inputs), n)
	}
}

func runLiterals(args []string) {
	fs := flag.NewFlagSet("literals", flag.ExitOnError)
	inFlag := fs.String("in", "", "input snapshot file")
	format := fs.String("format", "plain", "output format: plain or c")
	fs.Parse(args)

	if *inFlag == "" {
		log.Fatal("literals requires -in")
	}
	buf, err := os.ReadFile(*inFlag)
	if err != nil {
		log.Fatalf("reading %q: %v", *inFlag, err)
	}

	var f jsnapshot.DumpFormat
	if *format == "c" {
		f = jsnapshot.DumpC
	}
	out, err := jsnapshot.ExtractLiterals(buf, nil, f)
	if err != nil {
		log.Fatalf("extracting literals: %v", err)
	}
	os.Stdout.Write(out)
}

func runInspect(args []string) {
	fs := flag.NewFlagSet("inspect", flag.ExitOnError)
	inFlag := fs.String("in", "", "input snapshot file")
	asJSON := fs.Bool("json", false, "print as JSON")
	fs.Parse(args)

	if *inFlag == "" {
		log.Fatal("inspect requires -in")
	}
	buf, err := os.ReadFile(*inFlag)
	if err != nil {
		log.Fatalf("reading %q: %v", *inFlag, err)
	}

	info := jsnapshot.DescribeHeader(buf)
	if *asJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		enc.Encode(info)
		return
	}
	fmt.Println(info)
}

func readDocument(path string) (*irDocument, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var doc irDocument
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, err
	}
	return &doc, nil
}

// emptyLiteralStore backs Load/Exec, which never need to resolve a
// TagID literal: by the time a snapshot is loaded, every literal slot is
// already TagDirect, TagDirectString, or TagOffset.
type emptyLiteralStore struct{}

func (emptyLiteralStore) Resolve(uint32) (jsnapshot.PoolValue, bool) { return jsnapshot.PoolValue{}, false }
