package serializer

import "fmt"

// Copy returns a deep copy of plain data: maps, slices and Attributer values
// are copied recursively, everything else is shared.
func Copy(v any) any {
	switch val := v.(type) {
	case Attributer:
		return val.Attributes()
	case map[string]any:
		out := make(map[string]any, len(val))
		for k, item := range val {
			out[k] = Copy(item)
		}
		return out
	case []any:
		out := make([]any, len(val))
		for i, item := range val {
			out[i] = Copy(item)
		}
		return out
	case []map[string]any:
		out := make([]any, len(val))
		for i, item := range val {
			out[i] = Copy(item)
		}
		return out
	default:
		return v
	}
}

func typeName(v any) string {
	return fmt.Sprintf("%T", v)
}
