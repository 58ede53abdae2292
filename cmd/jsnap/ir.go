package main

import (
	"encoding/base64"
	"fmt"

	"github.com/xyproto/jsnapshot"
)

// irLiteral is the JSON form of a jsnapshot.Literal slot.
type irLiteral struct {
	Tag   string  `json:"tag"`   // "direct", "direct-string", "id"
	Value float64 `json:"value,omitempty"`
	Str   string  `json:"str,omitempty"`
	ID    uint32  `json:"id,omitempty"`
}

func (l *irLiteral) decode() (jsnapshot.Literal, error) {
	switch l.Tag {
	case "direct":
		return jsnapshot.Literal{Tag: jsnapshot.TagDirect, Direct: int32(l.Value)}, nil
	case "direct-string":
		return jsnapshot.Literal{Tag: jsnapshot.TagDirectString, Str: l.Str}, nil
	case "id":
		return jsnapshot.Literal{Tag: jsnapshot.TagID, ID: l.ID}, nil
	default:
		return jsnapshot.Literal{}, fmt.Errorf("unknown literal tag %q", l.Tag)
	}
}

// irNode is the JSON form of one compiled-code node, referencing its
// children by name within the same document.
type irNode struct {
	Kind string `json:"kind"` // "function" or "regexp"

	// function fields
	ArgumentEnd      uint32      `json:"argumentEnd,omitempty"`
	RegisterEnd      uint32      `json:"registerEnd,omitempty"`
	ConstLiteralEnd  uint32      `json:"constLiteralEnd,omitempty"`
	LiteralEnd       uint32      `json:"literalEnd,omitempty"`
	FunctionType     string      `json:"functionType,omitempty"`
	Flags            []string    `json:"flags,omitempty"`
	ConstLiterals    []irLiteral `json:"constLiterals,omitempty"`
	SubFunctions     []*string   `json:"subFunctions,omitempty"` // nil entry == self-reference
	OpcodesBase64    string      `json:"opcodesBase64,omitempty"`
	MappedArguments  []irLiteral `json:"mappedArguments,omitempty"`
	FunctionName     *irLiteral  `json:"functionName,omitempty"`
	SourceName       *irLiteral  `json:"sourceName,omitempty"`

	// regexp fields
	Pattern string `json:"pattern,omitempty"`
}

// irDocument is the JSON document cmd/jsnap reads for `generate`.
type irDocument struct {
	Literals []irLiteralValue  `json:"literals,omitempty"`
	Root     string            `json:"root"`
	Nodes    map[string]*irNode `json:"nodes"`
}

// irLiteralValue is one entry of the document's flat literal store, what
// irLiteral.ID indexes into.
type irLiteralValue struct {
	Kind string  `json:"kind"` // "string", "number", "bigint"
	Str  string  `json:"str,omitempty"`
	Num  float64 `json:"num,omitempty"`
}

// docLiteralStore adapts irDocument.Literals to jsnapshot.LiteralStore.
type docLiteralStore struct {
	values []irLiteralValue
}

func (s docLiteralStore) Resolve(id uint32) (jsnapshot.PoolValue, bool) {
	if int(id) >= len(s.values) {
		return jsnapshot.PoolValue{}, false
	}
	v := s.values[id]
	switch v.Kind {
	case "number":
		return jsnapshot.PoolValue{Kind: jsnapshot.PoolNumber, Num: v.Num}, true
	case "bigint":
		return jsnapshot.PoolValue{Kind: jsnapshot.PoolBigInt, Str: v.Str}, true
	default:
		return jsnapshot.PoolValue{Kind: jsnapshot.PoolString, Str: v.Str}, true
	}
}

var functionTypeNames = map[string]jsnapshot.FunctionType{
	"normal":          jsnapshot.FunctionNormal,
	"constructor":     jsnapshot.FunctionConstructor,
	"arrow":           jsnapshot.FunctionArrow,
	"accessor":        jsnapshot.FunctionAccessor,
	"generator":       jsnapshot.FunctionGenerator,
	"async-normal":    jsnapshot.FunctionAsyncNormal,
	"async-arrow":     jsnapshot.FunctionAsyncArrow,
	"async-generator": jsnapshot.FunctionAsyncGenerator,
}

var flagNames = map[string]uint16{
	"uint16-args":       jsnapshot.FlagUint16Args,
	"tagged-literals":   jsnapshot.FlagHasTaggedLiterals,
	"line-info":         jsnapshot.FlagHasLineInfo,
	"mapped-arguments":  jsnapshot.FlagMappedArgumentsNeeded,
	"lexical-block":     jsnapshot.FlagLexicalBlockNeeded,
	"debugger-ignore":   jsnapshot.FlagDebuggerIgnore,
}

// buildTree turns the document into a *jsnapshot.CompiledCode graph.
func (doc *irDocument) buildTree() (*jsnapshot.CompiledCode, error) {
	built := make(map[string]*jsnapshot.CompiledCode)

	var build func(name string) (*jsnapshot.CompiledCode, error)
	build = func(name string) (*jsnapshot.CompiledCode, error) {
		if c, ok := built[name]; ok {
			return c, nil
		}
		n, ok := doc.Nodes[name]
		if !ok {
			return nil, fmt.Errorf("node %q not found", name)
		}
		c := &jsnapshot.CompiledCode{}
		built[name] = c

		if n.Kind == "regexp" {
			c.IsFunction = false
			c.Pattern = n.Pattern
			return c, nil
		}

		c.IsFunction = true
		c.ArgumentEnd = n.ArgumentEnd
		c.RegisterEnd = n.RegisterEnd
		c.ConstLiteralEnd = n.ConstLiteralEnd
		c.LiteralEnd = n.LiteralEnd
		c.FunctionType = functionTypeNames[n.FunctionType]
		var flags uint16
		for _, f := range n.Flags {
			flags |= flagNames[f]
		}
		flags = jsnapshot.SetFunctionType(flags, c.FunctionType) | jsnapshot.FlagIsFunction
		c.StatusFlags = flags

		for _, l := range n.ConstLiterals {
			lit, err := l.decode()
			if err != nil {
				return nil, err
			}
			c.ConstLiterals = append(c.ConstLiterals, lit)
		}
		for _, l := range n.MappedArguments {
			lit, err := l.decode()
			if err != nil {
				return nil, err
			}
			c.MappedArgumentNames = append(c.MappedArgumentNames, lit)
		}
		if n.FunctionName != nil {
			lit, err := n.FunctionName.decode()
			if err != nil {
				return nil, err
			}
			c.FunctionName = &lit
		}
		if n.SourceName != nil {
			lit, err := n.SourceName.decode()
			if err != nil {
				return nil, err
			}
			c.SourceName = &lit
		}
		if n.OpcodesBase64 != "" {
			raw, err := base64.StdEncoding.DecodeString(n.OpcodesBase64)
			if err != nil {
				return nil, fmt.Errorf("decoding opcodes for %q: %w", name, err)
			}
			c.Opcodes = raw
		}

		for _, childName := range n.SubFunctions {
			if childName == nil {
				c.SubFunctions = append(c.SubFunctions, nil)
				continue
			}
			child, err := build(*childName)
			if err != nil {
				return nil, err
			}
			c.SubFunctions = append(c.SubFunctions, child)
		}
		return c, nil
	}

	return build(doc.Root)
}

func (doc *irDocument) literalStore() jsnapshot.LiteralStore {
	return docLiteralStore{values: doc.Literals}
}
