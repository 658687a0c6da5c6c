// Package schema provides validators for document data.
//
// A document runs its validator on every open and update. Validators can be plain Go
// predicates (Func), CEL expressions (NewCEL) or CUE schemas (NewCUE), and All combines
// several of them.
package schema

import (
	"errors"
	"fmt"
	"sync"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	celgo "github.com/google/cel-go/cel"
)

// ErrInvalid is wrapped by every validation failure
var ErrInvalid = errors.New("schema: data does not match")

// Validator checks document data
type Validator interface {
	Validate(data any) error
}

// Func adapts a predicate to a Validator
type Func func(data any) bool

func (f Func) Validate(data any) error {
	if !f(data) {
		return ErrInvalid
	}
	return nil
}

// All combines validators, the first failure wins
func All(validators ...Validator) Validator {
	return all(validators)
}

type all []Validator

func (a all) Validate(data any) error {
	for _, v := range a {
		if v == nil {
			continue
		}
		if err := v.Validate(data); err != nil {
			return err
		}
	}
	return nil
}

// --------------------------------------------------------------------------
// CEL
// --------------------------------------------------------------------------

type celValidator struct {
	expr    string
	program celgo.Program
}

// NewCEL compiles a CEL expression over the variable `data`. The expression must evaluate
// to true for valid data, e.g. `data.count >= 0 && size(data.name) > 0`.
func NewCEL(expr string) (Validator, error) {
	if expr == "" {
		return nil, fmt.Errorf("expression must not be empty")
	}
	env, err := celgo.NewEnv(
		celgo.Variable("data", celgo.DynType),
		celgo.CrossTypeNumericComparisons(true),
	)
	if err != nil {
		return nil, err
	}
	ast, issues := env.Parse(expr)
	if issues != nil && issues.Err() != nil {
		return nil, issues.Err()
	}
	checked, issues := env.Check(ast)
	if issues != nil && issues.Err() != nil {
		return nil, issues.Err()
	}
	prg, err := env.Program(checked)
	if err != nil {
		return nil, err
	}
	return &celValidator{expr: expr, program: prg}, nil
}

func (c *celValidator) Validate(data any) error {
	out, _, err := c.program.Eval(map[string]any{"data": data})
	if err != nil {
		return fmt.Errorf("%w: %q: %v", ErrInvalid, c.expr, err)
	}
	ok, isBool := out.Value().(bool)
	if !isBool {
		return fmt.Errorf("%w: %q evaluated to %T, not bool", ErrInvalid, c.expr, out.Value())
	}
	if !ok {
		return fmt.Errorf("%w: %q is false", ErrInvalid, c.expr)
	}
	return nil
}

// --------------------------------------------------------------------------
// CUE
// --------------------------------------------------------------------------

type cueValidator struct {
	mu     sync.Mutex // cue.Context is not safe for concurrent use
	ctx    *cue.Context
	schema cue.Value
}

// NewCUE compiles a CUE schema. Data is valid if it unifies with the schema into a concrete
// value, e.g. `{count: int & >=0, name?: string}`.
func NewCUE(src string) (Validator, error) {
	ctx := cuecontext.New()
	schema := ctx.CompileString(src)
	if err := schema.Err(); err != nil {
		return nil, err
	}
	return &cueValidator{ctx: ctx, schema: schema}, nil
}

func (c *cueValidator) Validate(data any) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	v := c.ctx.Encode(data)
	if err := v.Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	if err := c.schema.Unify(v).Validate(cue.Concrete(true)); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	return nil
}
