// internal/transform/path.go
package transform

import (
	"slices"
	"strings"

	"github.com/solatis/thomson/internal/types"
)

/*
 * Output path tracking during matching.
 *
 * A Path is a stack of keys partitioned into units. Each unit becomes one
 * output key: a single key passes through unchanged, several keys fuse
 * into one field named by joining them with types.Separator.
 *
 * Storage is a flat key slice plus the start offset of every unit, so push
 * and pop are slice appends and truncations. The matcher clones a Path only
 * when it records a leaf.
 *
 * Invariant: a unit holding an Index key holds exactly one key. Adhere
 * opens a new unit instead of fusing when either side is an index.
 */

// Path is an ordered sequence of output units.
type Path struct {
	keys   []types.Key
	starts []int
}

// Push opens a new unit holding key.
func (p *Path) Push(key types.Key) {
	p.starts = append(p.starts, len(p.keys))
	p.keys = append(p.keys, key)
}

// Adhere appends key to the last unit. With no open unit, or when key or
// the last unit is an index, it opens a new unit instead.
func (p *Path) Adhere(key types.Key) {
	if len(p.starts) == 0 || key.IsIndex || p.keys[p.starts[len(p.starts)-1]].IsIndex {
		p.Push(key)
		return
	}
	p.keys = append(p.keys, key)
}

// Link pushes or adheres key according to the edge that reached it.
func (p *Path) Link(edge types.Edge, key types.Key) {
	if edge == types.Connected {
		p.Adhere(key)
		return
	}
	p.Push(key)
}

// Pop removes the most recent key and drops its unit when it becomes
// empty. Popping an empty path is a no-op.
func (p *Path) Pop() {
	if len(p.keys) == 0 {
		return
	}
	p.keys = p.keys[:len(p.keys)-1]
	if last := len(p.starts) - 1; p.starts[last] == len(p.keys) {
		p.starts = p.starts[:last]
	}
}

// Flatten splits every unit into single-key units and returns a function
// restoring the previous grouping. The restore function must run after the
// path is back to the length it had when Flatten was called.
func (p *Path) Flatten() (restore func()) {
	saved := p.starts
	flat := make([]int, len(p.keys))
	for i := range flat {
		flat[i] = i
	}
	p.starts = flat
	return func() {
		p.starts = saved
	}
}

// Len returns the number of units.
func (p *Path) Len() int {
	return len(p.starts)
}

// Units returns a copy of the keys grouped by unit.
func (p *Path) Units() [][]types.Key {
	units := make([][]types.Key, len(p.starts))
	for i, start := range p.starts {
		end := len(p.keys)
		if i+1 < len(p.starts) {
			end = p.starts[i+1]
		}
		units[i] = slices.Clone(p.keys[start:end])
	}
	return units
}

// ResolvedKeys converts each unit to one output key.
func (p *Path) ResolvedKeys() []types.Key {
	units := p.Units()
	out := make([]types.Key, len(units))
	for i, unit := range units {
		if len(unit) == 1 {
			out[i] = unit[0]
			continue
		}
		names := make([]string, len(unit))
		for j, k := range unit {
			names[j] = k.Name
		}
		out[i] = types.Field(strings.Join(names, types.Separator))
	}
	return out
}

// Clone returns an independent copy.
func (p *Path) Clone() *Path {
	return &Path{
		keys:   slices.Clone(p.keys),
		starts: slices.Clone(p.starts),
	}
}

func (p *Path) String() string {
	return types.FormatUnits(p.Units())
}
