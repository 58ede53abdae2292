package jsnapshot

import "fmt"

// Kind classifies a snapshot error the way the host engine's exception
// categories do (spec §7): Range, Type, or Common. Fatal conditions have
// no Kind; they panic through fatal instead.
type Kind int

const (
	// KindRange covers size, limit, and feature-mismatch failures.
	KindRange Kind = iota
	// KindType covers structural invalidity discovered while loading.
	KindType
	// KindCommon covers environmental failures (disabled features,
	// allocation failure).
	KindCommon
)

func (k Kind) String() string {
	switch k {
	case KindRange:
		return "range"
	case KindType:
		return "type"
	case KindCommon:
		return "common"
	default:
		return "unknown"
	}
}

// Error is the typed error sentinel returned by Save, Exec, Merge, and
// ExtractLiterals. Host code branches on Kind the way the engine maps
// exception categories, via errors.As.
type Error struct {
	Kind Kind
	Msg  string
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Kind, e.Msg)
}

func newError(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Msg: fmt.Sprintf(format, args...)}
}

// fatal reports a non-recoverable invariant breach (spec §7's Fatal kind).
// Unlike the other three kinds this is never returned as a value: the host
// engine aborts rather than unwinds, so we panic the same way.
func fatal(format string, args ...any) {
	panic(fmt.Sprintf("jsnapshot: fatal: "+format, args...))
}
