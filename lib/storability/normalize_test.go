package storability

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestNormalize(t *testing.T) {
	n := 3

	tests := []struct {
		name  string
		value any
		want  any
	}{
		{"nil", nil, nil},
		{"scalar", 1.5, 1.5},
		{"json tree is unchanged", map[string]any{"a": []any{1.0, "x"}}, map[string]any{"a": []any{1.0, "x"}}},
		{"numeric keys become a list", map[int]any{2: "b", 1: "a", 3: "c"}, []any{"a", "b", "c"}},
		{"interface numeric keys", map[any]any{1: "a", 2.0: "b"}, []any{"a", "b"}},
		{"nested numeric keys", map[string]any{"l": map[uint8]any{1: true}}, map[string]any{"l": []any{true}}},
		{"named map", namedMap{"a": 1}, map[string]any{"a": 1}},
		{"typed slice", []string{"a", "b"}, []any{"a", "b"}},
		{"array", [2]int{1, 2}, []any{1, 2}},
		{"byte slice is kept", []byte{1, 2}, []byte{1, 2}},
		{"pointer", map[string]any{"p": &n}, map[string]any{"p": 3}},
		{"nil pointer", map[string]any{"p": (*int)(nil)}, map[string]any{"p": nil}},
		{"empty map", map[int]any{}, map[string]any{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := Check(tt.value); err != nil {
				t.Fatalf("Check() = %v, test value must be storable", err)
			}
			if diff := cmp.Diff(tt.want, Normalize(tt.value)); diff != "" {
				t.Errorf("Normalize() mismatch (-want +got):\n%s", diff)
			}
		})
	}
}
