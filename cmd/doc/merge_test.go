package doc

import (
	"testing"

	"github.com/goccy/go-json"
	"github.com/google/go-cmp/cmp"
)

func TestMergePatch(t *testing.T) {
	tests := []struct {
		name   string
		target string
		patch  string
		want   string
	}{
		{"add field", `{"a":1}`, `{"b":2}`, `{"a":1,"b":2}`},
		{"replace field", `{"a":1}`, `{"a":"x"}`, `{"a":"x"}`},
		{"remove field", `{"a":1,"b":2}`, `{"b":null}`, `{"a":1}`},
		{"remove missing field", `{"a":1}`, `{"c":null}`, `{"a":1}`},
		{"merge nested", `{"a":{"b":1,"c":2}}`, `{"a":{"c":3,"d":4}}`, `{"a":{"b":1,"c":3,"d":4}}`},
		{"object replaces scalar", `{"a":1}`, `{"a":{"b":1}}`, `{"a":{"b":1}}`},
		{"nested null removes", `{"a":{"b":1}}`, `{"a":{"b":null}}`, `{"a":{}}`},
		{"lists are replaced", `{"a":[1,2]}`, `{"a":[3]}`, `{"a":[3]}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var target, patch, want map[string]any
			for _, in := range []struct {
				raw string
				out *map[string]any
			}{{tt.target, &target}, {tt.patch, &patch}, {tt.want, &want}} {
				if err := json.Unmarshal([]byte(in.raw), in.out); err != nil {
					t.Fatalf("invalid test json %s: %v", in.raw, err)
				}
			}

			if diff := cmp.Diff(want, mergePatch(target, patch)); diff != "" {
				t.Errorf("mergePatch() mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestMergePatchNilTarget(t *testing.T) {
	got := mergePatch(nil, map[string]any{"a": 1.0})
	if diff := cmp.Diff(map[string]any{"a": 1.0}, got); diff != "" {
		t.Errorf("mergePatch() mismatch (-want +got):\n%s", diff)
	}
}
