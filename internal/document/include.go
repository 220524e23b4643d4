// internal/document/include.go
package document

import (
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"slices"
	"strings"

	"github.com/solatis/thomson/internal/types"
)

/*
 * File loading with TOML include resolution.
 *
 * A TOML document may carry a top-level directive
 *
 *   include = ["editor", "keys/vim"]
 *
 * Each name loads "<name>.toml" relative to the including file. Included
 * tables merge into the including document recursively: absent keys are
 * added, tables merge key by key, and any other collision fails with
 * ErrIncludeConflict. Includes are processed in listed order and resolve
 * their own includes first.
 *
 * Resolution happens inside one fs.FS rooted at the directory of the
 * top-level file, so includes cannot escape that directory. A file that
 * includes itself directly or transitively fails with ErrIncludeCycle.
 *
 * JSON and YAML files are decoded as-is.
 */

const includeKey = "include"

// LoadFile reads and decodes the file at name, choosing the format from its
// extension.
func LoadFile(name string) (any, error) {
	dir, base := filepath.Split(name)
	if dir == "" {
		dir = "."
	}
	return LoadFS(os.DirFS(dir), base)
}

// LoadFS reads and decodes name from fsys.
func LoadFS(fsys fs.FS, name string) (any, error) {
	format, err := FormatFromPath(name)
	if err != nil {
		return nil, err
	}
	if format == FormatTOML {
		l := loader{fsys: fsys}
		return l.load(name)
	}

	data, err := fs.ReadFile(fsys, name)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", name, err)
	}
	doc, err := Decode(data, format)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", name, err)
	}
	return doc, nil
}

type loader struct {
	fsys  fs.FS
	stack []string
}

func (l *loader) load(name string) (map[string]any, error) {
	if slices.Contains(l.stack, name) {
		chain := append(slices.Clone(l.stack), name)
		return nil, fmt.Errorf("%w: %s", types.ErrIncludeCycle, strings.Join(chain, " -> "))
	}
	l.stack = append(l.stack, name)
	defer func() { l.stack = l.stack[:len(l.stack)-1] }()

	data, err := fs.ReadFile(l.fsys, name)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", name, err)
	}
	doc, err := Decode(data, FormatTOML)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", name, err)
	}
	table := doc.(map[string]any)

	raw, ok := table[includeKey]
	if !ok {
		return table, nil
	}
	delete(table, includeKey)

	includes, err := includeNames(raw)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", name, err)
	}

	for _, inc := range includes {
		target := path.Join(path.Dir(name), inc+".toml")
		if !fs.ValidPath(target) {
			return nil, fmt.Errorf("%s: %w: %q leaves the base directory", name, types.ErrInvalidInclude, inc)
		}
		child, err := l.load(target)
		if err != nil {
			return nil, err
		}
		if err := mergeTables(table, child, ""); err != nil {
			return nil, fmt.Errorf("%s: include %q: %w", name, inc, err)
		}
	}
	return table, nil
}

// includeNames accepts a single string or an array of strings.
func includeNames(raw any) ([]string, error) {
	switch v := raw.(type) {
	case string:
		if v == "" {
			return nil, fmt.Errorf("%w: empty name", types.ErrInvalidInclude)
		}
		return []string{v}, nil
	case []any:
		names := make([]string, 0, len(v))
		for _, elem := range v {
			s, ok := elem.(string)
			if !ok || s == "" {
				return nil, fmt.Errorf("%w: %v is not a file name", types.ErrInvalidInclude, elem)
			}
			names = append(names, s)
		}
		return names, nil
	default:
		return nil, fmt.Errorf("%w: expected string or array, got %T", types.ErrInvalidInclude, raw)
	}
}

// mergeTables adds src into dst. Existing non-table values are never
// replaced.
func mergeTables(dst, src map[string]any, at string) error {
	for key, value := range src {
		existing, ok := dst[key]
		if !ok {
			dst[key] = value
			continue
		}
		dt, dok := existing.(map[string]any)
		st, sok := value.(map[string]any)
		if !dok || !sok {
			return fmt.Errorf("%w: %s", types.ErrIncludeConflict, at+key)
		}
		if err := mergeTables(dt, st, at+key+types.Separator); err != nil {
			return err
		}
	}
	return nil
}
