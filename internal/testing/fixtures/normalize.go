package fixtures

import (
	"encoding/json"
	"strings"
	"testing"
)

// Normalize deep-copies got through a JSON round-trip (so struct
// results compare the same way their serialized form will) and
// replaces any occurrence of root with the "<root>" placeholder so
// golden files stay stable across t.TempDir()'s randomized paths.
func Normalize(t *testing.T, root string, got any) any {
	t.Helper()

	data, err := json.Marshal(got)
	if err != nil {
		t.Fatalf("normalize: marshal: %v", err)
	}
	var generic any
	if err := json.Unmarshal(data, &generic); err != nil {
		t.Fatalf("normalize: unmarshal: %v", err)
	}
	return normalizeValue(generic, root)
}

func normalizeValue(v any, root string) any {
	switch val := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(val))
		for k, sub := range val {
			out[k] = normalizeValue(sub, root)
		}
		return out
	case []any:
		out := make([]any, len(val))
		for i, sub := range val {
			out[i] = normalizeValue(sub, root)
		}
		return out
	case string:
		return normalizeString(val, root)
	default:
		return v
	}
}

func normalizeString(s, root string) string {
	if root != "" {
		s = strings.ReplaceAll(s, root, "<root>")
	}
	return strings.ReplaceAll(s, "\\", "/")
}

// MarshalNormalized normalizes got and re-marshals it as indented JSON
// for golden-file storage.
func MarshalNormalized(t *testing.T, root string, got any) []byte {
	t.Helper()
	normalized := Normalize(t, root, got)
	data, err := json.MarshalIndent(normalized, "", "  ")
	if err != nil {
		t.Fatalf("marshal normalized: %v", err)
	}
	return append(data, '\n')
}
