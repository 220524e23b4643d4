// internal/transform/assemble.go
package transform

import (
	"maps"
	"slices"

	"github.com/solatis/thomson/internal/types"
)

/*
 * Tree assembly: merges matcher entries into one output value.
 *
 * Every entry's path resolves to a key list. Containers are materialized
 * on demand while walking the keys: a field key creates an object, an
 * index key creates an array of its declared length filled with nulls.
 *
 * Merge rules at the final location:
 *   - an unoccupied slot takes the value
 *   - an object value merges field by field into an existing object
 *   - anything else is a conflict, an explicit null included
 *
 * Arrays are created with null fillers. A filler is unoccupied; a null
 * written by an entry is not. The assembler tracks written array slots to
 * tell the two apart.
 *
 * Because two entries may only combine disjoint fields or slots, the
 * result does not depend on entry order. Every failure is returned as an
 * *AssembleError; nothing is resolved silently.
 */

// Assemble builds the output value for entries. No entries yield nil.
func Assemble(entries []Entry) (any, error) {
	a := assembler{written: make(map[*any]struct{})}

	var root any
	occupied := false
	for _, entry := range entries {
		keys := entry.Path.ResolvedKeys()
		next, err := a.assign(root, occupied, keys, entry.Value, make([]types.Key, 0, len(keys)))
		if err != nil {
			return nil, err
		}
		root, occupied = next, true
	}
	return root, nil
}

type assembler struct {
	// written holds the array slots that received a value
	written map[*any]struct{}
}

// assign writes value below slot along keys and returns the updated slot.
// occupied reports whether slot already holds a value, null included. at is
// the location of slot.
func (a *assembler) assign(slot any, occupied bool, keys []types.Key, value any, at []types.Key) (any, error) {
	if len(keys) == 0 {
		return a.place(slot, occupied, value, at)
	}
	return a.insert(slot, occupied, keys[0], keys[1:], value, at)
}

// insert steps into container through key, creating it when unoccupied.
func (a *assembler) insert(container any, occupied bool, key types.Key, rest []types.Key, value any, at []types.Key) (any, error) {
	here := append(at, key)

	if !occupied {
		if key.IsIndex && key.Of >= key.Total {
			return nil, newAssembleError(CodeIndexOutOfRange, here)
		}
		child, err := a.assign(nil, false, rest, value, here)
		if err != nil {
			return nil, err
		}
		if !key.IsIndex {
			return map[string]any{key.Name: child}, nil
		}
		arr := make([]any, key.Total)
		arr[key.Of] = child
		a.written[&arr[key.Of]] = struct{}{}
		return arr, nil
	}

	switch c := container.(type) {
	case []any:
		if !key.IsIndex {
			return nil, newAssembleError(CodeKeyKindMismatch, here)
		}
		if key.Of >= key.Total {
			return nil, newAssembleError(CodeIndexOutOfRange, here)
		}
		if len(c) != key.Total {
			return nil, newAssembleError(CodeArrayLengthMismatch, here)
		}
		slot := &c[key.Of]
		_, written := a.written[slot]
		child, err := a.assign(*slot, written, rest, value, here)
		if err != nil {
			return nil, err
		}
		*slot = child
		a.written[slot] = struct{}{}
		return c, nil

	case map[string]any:
		if key.IsIndex {
			return nil, newAssembleError(CodeKeyKindMismatch, here)
		}
		existing, ok := c[key.Name]
		child, err := a.assign(existing, ok, rest, value, here)
		if err != nil {
			return nil, err
		}
		c[key.Name] = child
		return c, nil

	default:
		// scalar or null already occupies a location that needs a container
		return nil, newAssembleError(CodeConflict, at)
	}
}

// place writes value into slot at the end of a path.
func (a *assembler) place(slot any, occupied bool, value any, at []types.Key) (any, error) {
	if !occupied {
		return a.copy(value), nil
	}

	fields, ok := value.(map[string]any)
	if !ok {
		return nil, newAssembleError(CodeConflict, at)
	}
	existing, ok := slot.(map[string]any)
	if !ok {
		return nil, newAssembleError(CodeConflict, at)
	}

	for _, name := range slices.Sorted(maps.Keys(fields)) {
		current, found := existing[name]
		merged, err := a.place(current, found, fields[name], append(at, types.Field(name)))
		if err != nil {
			return nil, err
		}
		existing[name] = merged
	}
	return existing, nil
}

// copy clones containers so the output never aliases entry values. Copied
// array slots count as written.
func (a *assembler) copy(value any) any {
	switch v := value.(type) {
	case map[string]any:
		out := make(map[string]any, len(v))
		for k, elem := range v {
			out[k] = a.copy(elem)
		}
		return out
	case []any:
		out := make([]any, len(v))
		for i, elem := range v {
			out[i] = a.copy(elem)
			a.written[&out[i]] = struct{}{}
		}
		return out
	default:
		return v
	}
}
