package migration

import (
	"errors"
	"fmt"
	"testing"

	"github.com/google/go-cmp/cmp"
)

// appendStep returns a migration that appends its name to data["steps"]
func appendStep(name string, compatible bool) Migration {
	return Migration{
		BackwardsCompatible: compatible,
		Migrate: func(data any) (any, error) {
			m := data.(map[string]any)
			steps, _ := m["steps"].([]any)
			next := map[string]any{}
			for k, v := range m {
				next[k] = v
			}
			next["steps"] = append(append([]any{}, steps...), name)
			return next, nil
		},
	}
}

func TestApply(t *testing.T) {
	chain := Chain{appendStep("v1", true), appendStep("v2", true), appendStep("v3", true)}

	tests := []struct {
		name        string
		version     int
		wantSteps   []any
		wantVersion int
	}{
		{"from zero", 0, []any{"v1", "v2", "v3"}, 3},
		{"from one", 1, []any{"v2", "v3"}, 3},
		{"already current", 3, nil, 3},
		{"newer than chain", 5, nil, 5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, version, err := chain.Apply(map[string]any{}, tt.version)
			if err != nil {
				t.Fatalf("Apply() error = %v", err)
			}
			if version != tt.wantVersion {
				t.Errorf("Apply() version = %d, want %d", version, tt.wantVersion)
			}
			steps, _ := out.(map[string]any)["steps"].([]any)
			if diff := cmp.Diff(tt.wantSteps, steps); diff != "" {
				t.Errorf("Apply() steps mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

// Migrating from version v must give the same result as migrating the prefix 1..v first
func TestApplyComposes(t *testing.T) {
	chain := Chain{appendStep("v1", true), appendStep("v2", false), appendStep("v3", true), appendStep("v4", true)}

	direct, _, err := chain.Apply(map[string]any{}, 0)
	if err != nil {
		t.Fatalf("Apply() error = %v", err)
	}

	for v := 0; v <= len(chain); v++ {
		t.Run(fmt.Sprintf("prefix=%d", v), func(t *testing.T) {
			prefix, reached, err := chain[:v].Apply(map[string]any{}, 0)
			if err != nil || reached != v {
				t.Fatalf("prefix Apply() = %d, %v", reached, err)
			}
			rest, _, err := chain.Apply(prefix, v)
			if err != nil {
				t.Fatalf("Apply() error = %v", err)
			}
			if diff := cmp.Diff(direct, rest); diff != "" {
				t.Errorf("composed result differs (-direct +composed):\n%s", diff)
			}
		})
	}
}

func TestApplyFailure(t *testing.T) {
	boom := errors.New("boom")
	ran := 0
	chain := Chain{
		appendStep("v1", true),
		{Migrate: func(any) (any, error) { return nil, boom }},
		{Migrate: func(d any) (any, error) { ran++; return d, nil }},
	}

	_, version, err := chain.Apply(map[string]any{}, 0)
	var migErr *Error
	if !errors.As(err, &migErr) {
		t.Fatalf("Apply() error = %v, want *Error", err)
	}
	if migErr.Version != 2 {
		t.Errorf("Error.Version = %d, want 2", migErr.Version)
	}
	if !errors.Is(err, boom) {
		t.Errorf("Apply() error does not wrap the migration failure")
	}
	if version != 1 {
		t.Errorf("Apply() reached version %d, want 1", version)
	}
	if ran != 0 {
		t.Errorf("migrations after a failure must not run")
	}
}

func TestMinimalSupportedVersion(t *testing.T) {
	tests := []struct {
		name     string
		chain    Chain
		previous int
		want     int
	}{
		{"empty chain", Chain{}, 0, 0},
		{"all compatible keeps previous", Chain{{BackwardsCompatible: true}, {BackwardsCompatible: true}}, 1, 1},
		{"all compatible fresh", Chain{{BackwardsCompatible: true}}, 0, 0},
		{"newest incompatible", Chain{{BackwardsCompatible: true}, {BackwardsCompatible: false}}, 0, 2},
		{"older incompatible", Chain{{BackwardsCompatible: false}, {BackwardsCompatible: true}, {BackwardsCompatible: true}}, 0, 1},
		{"newest of several incompatible", Chain{{}, {}, {BackwardsCompatible: true}}, 0, 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.chain.MinimalSupportedVersion(tt.previous); got != tt.want {
				t.Errorf("MinimalSupportedVersion() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestAccepts(t *testing.T) {
	chain := Chain{{}, {}}
	for floor, want := range map[int]bool{0: true, 2: true, 3: false} {
		if got := chain.Accepts(floor); got != want {
			t.Errorf("Accepts(%d) = %v, want %v", floor, got, want)
		}
	}
	if chain.Version() != 2 {
		t.Errorf("Version() = %d, want 2", chain.Version())
	}
}
