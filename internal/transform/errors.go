package transform

import (
	"errors"
	"fmt"

	"github.com/solatis/thomson/internal/types"
)

// ErrorCode identifies the category of an assembly failure.
type ErrorCode int

const (
	// CodeConflict indicates two leaves claim the same output location.
	CodeConflict ErrorCode = iota + 1
	// CodeIndexOutOfRange indicates an index at or beyond its declared length.
	CodeIndexOutOfRange
	// CodeArrayLengthMismatch indicates an array built with a different length.
	CodeArrayLengthMismatch
	// CodeKeyKindMismatch indicates a field key against an array or an index against an object.
	CodeKeyKindMismatch
)

var codeNames = map[ErrorCode]string{
	CodeConflict:            "conflict",
	CodeIndexOutOfRange:     "index_out_of_range",
	CodeArrayLengthMismatch: "array_length_mismatch",
	CodeKeyKindMismatch:     "key_kind_mismatch",
}

func (c ErrorCode) String() string {
	if name, ok := codeNames[c]; ok {
		return name
	}
	return "unknown"
}

// AssembleError is returned when entries cannot be merged into one output
// tree. Terminal: the transform result is discarded.
type AssembleError struct {
	// Code identifies the failure category.
	Code ErrorCode
	// Path is the output location, e.g. "/items/[1]/v.w".
	Path string
	// Cause is the types sentinel for Code.
	Cause error
}

// Error implements the error interface.
func (e *AssembleError) Error() string {
	return fmt.Sprintf("assemble %s: %v", e.Path, e.Cause)
}

// Unwrap returns the sentinel so errors.Is matches types.Err* values.
func (e *AssembleError) Unwrap() error {
	return e.Cause
}

func newAssembleError(code ErrorCode, at []types.Key) *AssembleError {
	var cause error
	switch code {
	case CodeConflict:
		cause = types.ErrConflict
	case CodeIndexOutOfRange:
		cause = types.ErrIndexOutOfRange
	case CodeArrayLengthMismatch:
		cause = types.ErrArrayLengthMismatch
	default:
		cause = types.ErrKeyKindMismatch
	}
	return &AssembleError{Code: code, Path: types.FormatKeys(at), Cause: cause}
}

// IsConflict reports whether err is a leaf collision.
func IsConflict(err error) bool {
	var e *AssembleError
	return errors.As(err, &e) && e.Code == CodeConflict
}

// IsAssembleError reports whether err is any assembly failure.
func IsAssembleError(err error) bool {
	var e *AssembleError
	return errors.As(err, &e)
}

// ErrorCodeOf returns the code of an assembly failure, or zero.
func ErrorCodeOf(err error) ErrorCode {
	var e *AssembleError
	if errors.As(err, &e) {
		return e.Code
	}
	return 0
}
