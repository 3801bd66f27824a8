// Package errors implements HLBC's error taxonomy (spec §7): codec errors
// that bubble to the top-level parse/serialize entry points, each carrying
// enough location information for a caller to find the offending byte or
// instruction without re-running the parse under a debugger.
//
// Adapted from the teacher's internal/errors package: same builder-method
// shape (At/Wrap), but SourceLocation is reshaped around
// byte offsets and function/op indices since the codec has no source files
// of its own.
package errors

import (
	"fmt"
	"strings"
)

// Kind identifies one of the four error categories from spec §7.
type Kind string

const (
	// MalformedInput covers truncated buffers, bad magic, unknown
	// versions, invalid varints, and pool-size overflow.
	MalformedInput Kind = "MalformedInput"
	// InvalidReference covers out-of-range pool indices and jump offsets
	// that land outside a function's op list.
	InvalidReference Kind = "InvalidReference"
	// UnsupportedOpcode covers a tag byte outside the known opcode set
	// for the module's version.
	UnsupportedOpcode Kind = "UnsupportedOpcode"
	// StructureRecoveryFailure is internal and non-fatal: the lifter
	// could not match a CFG shape to a known pattern. It never aborts a
	// parse; it is only ever attached to a diagnostic, never returned
	// from Parse/Serialize.
	StructureRecoveryFailure Kind = "StructureRecoveryFailure"
)

// Location pinpoints where in a module or function an error occurred.
// Fields are -1 when not applicable (e.g. Offset is meaningless once
// parsing has moved past the raw byte stream and into per-function
// analysis, where FIndex/OpIndex take over).
type Location struct {
	Offset  int // byte offset into the raw module buffer, or -1
	FIndex  int // enclosing function index, or -1
	OpIndex int // op index within that function, or -1
}

func (l Location) String() string {
	var parts []string
	if l.Offset >= 0 {
		parts = append(parts, fmt.Sprintf("offset %d", l.Offset))
	}
	if l.FIndex >= 0 {
		parts = append(parts, fmt.Sprintf("f@%d", l.FIndex))
	}
	if l.OpIndex >= 0 {
		parts = append(parts, fmt.Sprintf("op %d", l.OpIndex))
	}
	return strings.Join(parts, ", ")
}

// HLError is the single error type returned by the codec, CFG builder,
// and lifter. It implements error and supports errors.Is/As via Unwrap
// when it wraps another error.
type HLError struct {
	Kind     Kind
	Message  string
	Location Location
	Wrapped  error
}

// New creates an HLError with no location set (Offset/FIndex/OpIndex = -1).
func New(kind Kind, format string, args ...interface{}) *HLError {
	return &HLError{
		Kind:    kind,
		Message: fmt.Sprintf(format, args...),
		Location: Location{
			Offset:  -1,
			FIndex:  -1,
			OpIndex: -1,
		},
	}
}

// At returns a copy of e with loc attached.
func (e *HLError) At(loc Location) *HLError {
	cp := *e
	cp.Location = loc
	return &cp
}

// Wrap attaches an underlying error for Unwrap/errors.Is chains.
func (e *HLError) Wrap(err error) *HLError {
	cp := *e
	cp.Wrapped = err
	return &cp
}

func (e *HLError) Error() string {
	loc := e.Location.String()
	if loc == "" {
		if e.Wrapped != nil {
			return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Wrapped)
		}
		return fmt.Sprintf("%s: %s", e.Kind, e.Message)
	}
	if e.Wrapped != nil {
		return fmt.Sprintf("%s: %s (at %s): %v", e.Kind, e.Message, loc, e.Wrapped)
	}
	return fmt.Sprintf("%s: %s (at %s)", e.Kind, e.Message, loc)
}

// Unwrap lets errors.Is/As see through to the wrapped error, if any.
func (e *HLError) Unwrap() error { return e.Wrapped }

// Malformed is a convenience constructor for the MalformedInput kind,
// the only kind that commonly carries just a byte offset.
func Malformed(offset int, format string, args ...interface{}) *HLError {
	return New(MalformedInput, format, args...).At(Location{Offset: offset, FIndex: -1, OpIndex: -1})
}

// InvalidRef is a convenience constructor for InvalidReference errors
// discovered while walking a specific function's ops.
func InvalidRef(fIndex, opIndex int, format string, args ...interface{}) *HLError {
	return New(InvalidReference, format, args...).At(Location{Offset: -1, FIndex: fIndex, OpIndex: opIndex})
}

// Unsupported is a convenience constructor for UnsupportedOpcode errors.
func Unsupported(fIndex, opIndex int, format string, args ...interface{}) *HLError {
	return New(UnsupportedOpcode, format, args...).At(Location{Offset: -1, FIndex: fIndex, OpIndex: opIndex})
}
