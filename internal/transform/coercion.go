// internal/transform/coercion.go
package transform

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"time"

	"github.com/pelletier/go-toml/v2"

	"github.com/solatis/thomson/internal/types"
)

/*
 * Value normalization into the generic document model.
 *
 * Decoders hand over whatever their libraries produce: TOML yields int64
 * and local date/time types, YAML yields int and map[string]any (or
 * map[any]any for odd keys), JSON with UseNumber yields json.Number.
 * Normalize maps all of them onto one closed set:
 *
 *   nil | bool | int64 | float64 | string | []any | map[string]any
 *
 * Fixed scalar mapping:
 *   - signed and unsigned integers -> int64 (uint64 beyond range -> float64)
 *   - floats -> float64 (NaN and infinities rejected, JSON cannot carry them)
 *   - json.Number -> int64 when integral, float64 otherwise
 *   - time.Time -> RFC 3339 string (separator always T), TOML local
 *     date/time -> its TOML text
 *
 * Containers are always copied so the result never aliases the input.
 * Anything else fails with ErrUnsupportedValue.
 */

// Normalize returns a deep copy of value in the generic document model.
func Normalize(value any) (any, error) {
	return normalize(value, 0)
}

func normalize(value any, depth int) (any, error) {
	if depth > types.MaxDocumentDepth {
		return nil, types.ErrDocumentTooDeep
	}

	switch v := value.(type) {
	case nil, bool, string, int64:
		return v, nil
	case float64:
		return normalizeFloat(v)

	case map[string]any:
		out := make(map[string]any, len(v))
		for k, elem := range v {
			n, err := normalize(elem, depth+1)
			if err != nil {
				return nil, err
			}
			out[k] = n
		}
		return out, nil

	case map[any]any:
		out := make(map[string]any, len(v))
		for k, elem := range v {
			n, err := normalize(elem, depth+1)
			if err != nil {
				return nil, err
			}
			out[fmt.Sprint(k)] = n
		}
		return out, nil

	case []any:
		out := make([]any, len(v))
		for i, elem := range v {
			n, err := normalize(elem, depth+1)
			if err != nil {
				return nil, err
			}
			out[i] = n
		}
		return out, nil

	case []map[string]any:
		out := make([]any, len(v))
		for i, elem := range v {
			n, err := normalize(elem, depth+1)
			if err != nil {
				return nil, err
			}
			out[i] = n
		}
		return out, nil

	case int:
		return int64(v), nil
	case int8:
		return int64(v), nil
	case int16:
		return int64(v), nil
	case int32:
		return int64(v), nil
	case uint:
		return normalizeUnsigned(uint64(v)), nil
	case uint8:
		return int64(v), nil
	case uint16:
		return int64(v), nil
	case uint32:
		return int64(v), nil
	case uint64:
		return normalizeUnsigned(v), nil
	case float32:
		return normalizeFloat(float64(v))

	case json.Number:
		if i, err := v.Int64(); err == nil {
			return i, nil
		}
		f, err := strconv.ParseFloat(v.String(), 64)
		if err != nil {
			return nil, fmt.Errorf("%w: number %q", types.ErrUnsupportedValue, v.String())
		}
		return normalizeFloat(f)

	case time.Time:
		return v.Format(time.RFC3339Nano), nil
	case toml.LocalDate:
		return v.String(), nil
	case toml.LocalTime:
		return v.String(), nil
	case toml.LocalDateTime:
		return v.String(), nil

	default:
		return nil, fmt.Errorf("%w: %T", types.ErrUnsupportedValue, v)
	}
}

func normalizeUnsigned(v uint64) any {
	if v > math.MaxInt64 {
		return float64(v)
	}
	return int64(v)
}

func normalizeFloat(f float64) (any, error) {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return nil, fmt.Errorf("%w: non-finite number %v", types.ErrUnsupportedValue, f)
	}
	return f, nil
}
