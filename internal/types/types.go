// Package types provides domain models shared across thomson components.
//
// Zero-dependency design: keys.go, types.go and errors.go use only the
// standard library so the rule compiler and the transform core stay free of
// transport and storage concerns. ID utilities in ids.go import uuid but are
// isolated for selective inclusion.
package types

// RunID represents a UUIDv7 transform run identifier.
// String alias enables type safety while maintaining JSON string serialization.
// UUIDv7 time-ordering keeps the history table clustered by creation time.
type RunID string

// Separator splits rule keys into sub-keys and joins fused units back into
// one composite output key.
const Separator = "."

// Resource limits enforced by the compiler and the matcher.
const (
	// DefaultMaxDepth bounds recursion during compilation and matching when
	// no explicit limit is configured.
	// 64 levels covers hand-written configuration files with room to spare.
	DefaultMaxDepth = 64

	// MaxDocumentDepth is the hard ceiling for any configured depth and for
	// normalization of decoded documents.
	// Prevents stack growth from adversarial or generated input.
	MaxDocumentDepth = 1024

	// MaxDocumentSize limits a single rule or source document accepted by the
	// transform service.
	// 1MB fits typical settings files; larger inputs belong to the CLI.
	MaxDocumentSize = 1024 * 1024
)
