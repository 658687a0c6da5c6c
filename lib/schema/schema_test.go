package schema

import (
	"errors"
	"testing"
)

func TestFuncAndAll(t *testing.T) {
	isMap := Func(func(d any) bool { _, ok := d.(map[string]any); return ok })
	hasCount := Func(func(d any) bool { _, ok := d.(map[string]any)["count"]; return ok })

	v := All(isMap, nil, hasCount)
	if err := v.Validate(map[string]any{"count": 1.0}); err != nil {
		t.Errorf("Validate() = %v, want nil", err)
	}
	if err := v.Validate(map[string]any{}); !errors.Is(err, ErrInvalid) {
		t.Errorf("Validate() = %v, want ErrInvalid", err)
	}
	if err := v.Validate("x"); !errors.Is(err, ErrInvalid) {
		t.Errorf("Validate() = %v, want ErrInvalid", err)
	}
}

func TestCEL(t *testing.T) {
	v, err := NewCEL(`data.count >= 0.0 && data.name != ""`)
	if err != nil {
		t.Fatalf("NewCEL() error = %v", err)
	}

	tests := []struct {
		name  string
		data  any
		valid bool
	}{
		{"valid", map[string]any{"count": 5.0, "name": "a"}, true},
		{"negative count", map[string]any{"count": -1.0, "name": "a"}, false},
		{"empty name", map[string]any{"count": 1.0, "name": ""}, false},
		{"missing field", map[string]any{"name": "a"}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := v.Validate(tt.data)
			if (err == nil) != tt.valid {
				t.Errorf("Validate() = %v, want valid=%v", err, tt.valid)
			}
			if err != nil && !errors.Is(err, ErrInvalid) {
				t.Errorf("Validate() error does not wrap ErrInvalid")
			}
		})
	}
}

func TestCELCompileErrors(t *testing.T) {
	for _, expr := range []string{"", "data.count >=", "unknown_var > 1"} {
		if _, err := NewCEL(expr); err == nil {
			t.Errorf("NewCEL(%q) succeeded, want error", expr)
		}
	}

	v, err := NewCEL(`data.count`)
	if err != nil {
		t.Fatalf("NewCEL() error = %v", err)
	}
	if err := v.Validate(map[string]any{"count": 1.0}); err == nil {
		t.Errorf("non bool expression accepted")
	}
}

func TestCUE(t *testing.T) {
	v, err := NewCUE(`{count: number & >=0, name?: string}`)
	if err != nil {
		t.Fatalf("NewCUE() error = %v", err)
	}

	tests := []struct {
		name  string
		data  any
		valid bool
	}{
		{"valid", map[string]any{"count": 5.0}, true},
		{"optional field", map[string]any{"count": 0.0, "name": "x"}, true},
		{"negative", map[string]any{"count": -1.0}, false},
		{"wrong type", map[string]any{"count": "five"}, false},
		{"missing required field", map[string]any{}, false},
		{"open struct allows extra fields", map[string]any{"count": 1.0, "extra": true}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := v.Validate(tt.data); (err == nil) != tt.valid {
				t.Errorf("Validate() = %v, want valid=%v", err, tt.valid)
			}
		})
	}

	if _, err := NewCUE(`{count: int &`); err == nil {
		t.Errorf("NewCUE() accepted invalid source")
	}
}
