package types

import "errors"

// Sentinel errors for thomson operations.
var (
	// ErrDocumentTooDeep indicates a rule or source document exceeds the configured depth.
	ErrDocumentTooDeep = errors.New("document exceeds maximum depth")

	// ErrDocumentTooLarge indicates a document exceeds MaxDocumentSize.
	ErrDocumentTooLarge = errors.New("document exceeds maximum size")

	// ErrUnsupportedValue indicates a value outside the generic document model.
	ErrUnsupportedValue = errors.New("unsupported document value")

	// ErrUnsupportedFormat indicates an unknown document format or file extension.
	ErrUnsupportedFormat = errors.New("unsupported document format")

	// ErrInvalidRuleKey indicates a rule key with an empty dotted segment.
	ErrInvalidRuleKey = errors.New("invalid rule key")

	// ErrEdgeConflict indicates two rule keys reach the same node through different edges.
	ErrEdgeConflict = errors.New("rule key reached through conflicting edges")

	// ErrConflict indicates two leaves resolve to the same output location.
	ErrConflict = errors.New("conflicting values at output location")

	// ErrIndexOutOfRange indicates an index key beyond its declared array length.
	ErrIndexOutOfRange = errors.New("index beyond declared array length")

	// ErrArrayLengthMismatch indicates an output array built with a different length.
	ErrArrayLengthMismatch = errors.New("array length mismatch")

	// ErrKeyKindMismatch indicates a field key against an array or an index key against an object.
	ErrKeyKindMismatch = errors.New("key kind does not match container")

	// ErrIncludeConflict indicates an included TOML file redefines a non-table value.
	ErrIncludeConflict = errors.New("include redefines existing value")

	// ErrIncludeCycle indicates a TOML file includes itself directly or transitively.
	ErrIncludeCycle = errors.New("include cycle")

	// ErrInvalidInclude indicates a malformed include directive.
	ErrInvalidInclude = errors.New("invalid include directive")

	// ErrRunNotFound indicates a run ID absent from the history store.
	ErrRunNotFound = errors.New("run not found")
)
