// internal/types/keys.go
package types

import (
	"strconv"
	"strings"
)

/*
 * Key and edge vocabulary for rule automata and document paths.
 *
 * A Key addresses one step into a document: either a named object field or
 * an array position together with the length of the array it was taken
 * from. The reserved Index(0, 0) is the pseudo-index, a wildcard that the
 * rule compiler places wherever the rule document contains an array.
 *
 * Key is a comparable struct so it can be used directly as a Go map key;
 * equality is full structural equality.
 *
 * An Edge tags how a key joins the output path: Restarted opens a new output
 * unit, Connected fuses the key onto the previous unit (dotted rule keys).
 */

// Key is one step into a document: a named field or an indexed array slot.
type Key struct {
	Name    string // field name (empty for indices)
	Of      int    // array position (valid only if IsIndex)
	Total   int    // array length (valid only if IsIndex)
	IsIndex bool   // disambiguates Index keys from Field("")
}

// Field returns a named field key.
func Field(name string) Key {
	return Key{Name: name}
}

// Index returns the key for position of in an array of length total.
func Index(of, total int) Key {
	return Key{Of: of, Total: total, IsIndex: true}
}

// PseudoIndex returns the wildcard index matching any array position.
func PseudoIndex() Key {
	return Index(0, 0)
}

// IsPseudoIndex reports whether k is the wildcard index.
func (k Key) IsPseudoIndex() bool {
	return k.IsIndex && k.Of == 0 && k.Total == 0
}

// String renders a field as its name, an index as [of] and the pseudo-index as [*].
func (k Key) String() string {
	if !k.IsIndex {
		return k.Name
	}
	if k.IsPseudoIndex() {
		return "[*]"
	}
	return "[" + strconv.Itoa(k.Of) + "]"
}

// CompareKeys orders fields before indices, fields by name and indices by
// position then length. Used wherever deterministic iteration is required.
func CompareKeys(a, b Key) int {
	if a.IsIndex != b.IsIndex {
		if a.IsIndex {
			return 1
		}
		return -1
	}
	if !a.IsIndex {
		return strings.Compare(a.Name, b.Name)
	}
	if a.Of != b.Of {
		return a.Of - b.Of
	}
	return a.Total - b.Total
}

// Edge tags how a key attaches to the output path.
type Edge int

const (
	// Restarted begins a new output unit. Zero value: the root edge.
	Restarted Edge = iota
	// Connected fuses the key onto the previous output unit.
	Connected
)

// String returns a human-readable edge name.
func (e Edge) String() string {
	switch e {
	case Restarted:
		return "restarted"
	case Connected:
		return "connected"
	default:
		return "unknown"
	}
}

// FormatUnits renders units as "[a.b, c, [0]]": keys inside a unit joined by
// Separator, units joined by ", ".
func FormatUnits(units [][]Key) string {
	parts := make([]string, 0, len(units))
	for _, unit := range units {
		names := make([]string, 0, len(unit))
		for _, k := range unit {
			names = append(names, k.String())
		}
		parts = append(parts, strings.Join(names, Separator))
	}
	return "[" + strings.Join(parts, ", ") + "]"
}

// FormatKeys renders resolved output keys as a slash-separated location,
// e.g. "/items/[1]/v.w". The empty path renders as "/".
func FormatKeys(keys []Key) string {
	if len(keys) == 0 {
		return "/"
	}
	var b strings.Builder
	for _, k := range keys {
		b.WriteByte('/')
		b.WriteString(k.String())
	}
	return b.String()
}
