// Package document decodes rule and source files into the generic document
// model consumed by the transform core, and encodes results back to text.
package document

import (
	"bytes"
	"encoding/json"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"

	"github.com/solatis/thomson/internal/transform"
	"github.com/solatis/thomson/internal/types"
)

// Format identifies a document syntax.
type Format string

const (
	FormatJSON Format = "json"
	FormatTOML Format = "toml"
	FormatYAML Format = "yaml"
)

// ParseFormat accepts a format name, case-insensitive. "yml" is an alias
// for yaml.
func ParseFormat(name string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "json":
		return FormatJSON, nil
	case "toml":
		return FormatTOML, nil
	case "yaml", "yml":
		return FormatYAML, nil
	default:
		return "", fmt.Errorf("%w: %q", types.ErrUnsupportedFormat, name)
	}
}

// FormatFromPath derives the format from a file extension.
func FormatFromPath(path string) (Format, error) {
	ext := strings.TrimPrefix(filepath.Ext(path), ".")
	if ext == "" {
		return "", fmt.Errorf("%w: %s has no extension", types.ErrUnsupportedFormat, path)
	}
	return ParseFormat(ext)
}

// Decode parses data and normalizes the result. TOML include directives
// are left untouched; use LoadFile to resolve them.
func Decode(data []byte, format Format) (any, error) {
	var doc any
	switch format {
	case FormatJSON:
		dec := json.NewDecoder(bytes.NewReader(data))
		dec.UseNumber()
		if err := dec.Decode(&doc); err != nil {
			return nil, fmt.Errorf("failed to parse json: %w", err)
		}
		if dec.More() {
			return nil, fmt.Errorf("failed to parse json: trailing data after document")
		}
	case FormatTOML:
		var table map[string]any
		if err := toml.Unmarshal(data, &table); err != nil {
			return nil, fmt.Errorf("failed to parse toml: %w", err)
		}
		doc = table
	case FormatYAML:
		if err := yaml.Unmarshal(data, &doc); err != nil {
			return nil, fmt.Errorf("failed to parse yaml: %w", err)
		}
	default:
		return nil, fmt.Errorf("%w: %q", types.ErrUnsupportedFormat, format)
	}

	return transform.Normalize(doc)
}

// Encode renders a generic document as JSON. Object keys are sorted.
func Encode(doc any, pretty bool) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if pretty {
		enc.SetIndent("", "  ")
	}
	if err := enc.Encode(doc); err != nil {
		return nil, fmt.Errorf("failed to encode output: %w", err)
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}
