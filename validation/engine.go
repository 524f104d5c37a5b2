package validation

import (
	"context"
	"fmt"
	"regexp"
	"slices"
	"unicode/utf8"
)

// Step identifies an onboarding step schema.
type Step int

const (
	StepPersonalInfo Step = 1
	StepRiskProfile  Step = 2
	StepPreferences  Step = 3
)

var emailPattern = regexp.MustCompile(
	"^[a-zA-Z0-9.!#$%&'*+/=?^_`{|}~-]+@[a-zA-Z0-9](?:[a-zA-Z0-9-]{0,61}[a-zA-Z0-9])?(?:\\.[a-zA-Z0-9](?:[a-zA-Z0-9-]{0,61}[a-zA-Z0-9])?)*$",
)

// Result is the outcome of validating one step.
type Result struct {
	Step   Step
	Errors FieldErrors
}

// Valid reports whether no field was rejected.
func (r Result) Valid() bool {
	return len(r.Errors) == 0
}

// Err returns nil for a valid result and an *Error otherwise.
func (r Result) Err() error {
	if r.Valid() {
		return nil
	}
	return &Error{Step: r.Step, Fields: r.Errors}
}

// Engine evaluates registered step schemas. It is safe for concurrent use
// once constructed.
type Engine struct {
	schemas map[Step]Schema
}

// NewEngine registers schemas. Each step may be registered once.
func NewEngine(schemas ...Schema) (*Engine, error) {
	e := &Engine{schemas: make(map[Step]Schema, len(schemas))}
	for _, s := range schemas {
		if _, dup := e.schemas[s.Step]; dup {
			return nil, fmt.Errorf("duplicate schema for step %d", int(s.Step))
		}
		if len(s.Fields) == 0 {
			return nil, fmt.Errorf("schema for step %d has no fields", int(s.Step))
		}
		for _, f := range s.Fields {
			for _, r := range f.Rules {
				if r.Kind == KindPattern && r.Pattern == nil {
					return nil, fmt.Errorf("field %s: pattern rule without expression", f.Name)
				}
				if r.Kind == KindEqualsField && r.Field == "" {
					return nil, fmt.Errorf("field %s: equals_field rule without target", f.Name)
				}
			}
		}
		e.schemas[s.Step] = s
	}
	return e, nil
}

// Default returns an engine loaded with the three onboarding schemas.
func Default() *Engine {
	e, err := NewEngine(PersonalInfoSchema(), RiskProfileSchema(), PreferencesSchema())
	if err != nil {
		panic(err)
	}
	return e
}

// Schema returns the registered schema for step.
func (e *Engine) Schema(step Step) (Schema, bool) {
	s, ok := e.schemas[step]
	return s, ok
}

// Validate checks rec against the schema registered for step. Every field is
// evaluated; each field reports its first violated rule.
func (e *Engine) Validate(ctx context.Context, step Step, rec Record) (Result, error) {
	if err := ctx.Err(); err != nil {
		return Result{}, err
	}
	schema, ok := e.schemas[step]
	if !ok {
		return Result{}, fmt.Errorf("%w: %d", ErrUnknownStep, int(step))
	}

	res := Result{Step: step}
	for _, f := range schema.Fields {
		v := rec.Field(f.Name)
		for _, r := range f.Rules {
			if !check(r, v, rec) {
				if res.Errors == nil {
					res.Errors = make(FieldErrors)
				}
				res.Errors[f.Name] = r.Message
				break
			}
		}
	}
	return res, nil
}

func check(r Rule, v Value, rec Record) bool {
	switch r.Kind {
	case KindRequired:
		if !v.Present {
			return false
		}
		if v.Kind == ValueString {
			return v.Str != ""
		}
		return true
	case KindLength:
		if v.Kind != ValueString {
			return false
		}
		n := utf8.RuneCountInString(v.Str)
		return n >= r.Min && (r.Max < 0 || n <= r.Max)
	case KindPattern:
		return v.Kind == ValueString && r.Pattern.MatchString(v.Str)
	case KindEmail:
		return v.Kind == ValueString && emailPattern.MatchString(v.Str)
	case KindOneOf:
		return v.Kind == ValueString && slices.Contains(r.Values, v.Str)
	case KindEqualsField:
		other := rec.Field(r.Field)
		return v.Kind == ValueString && other.Kind == ValueString && v.Str == other.Str
	case KindCount:
		if v.Kind != ValueList {
			return false
		}
		n := len(v.List)
		return n >= r.Min && (r.Max < 0 || n <= r.Max)
	case KindEachOneOf:
		if v.Kind != ValueList {
			return false
		}
		for _, item := range v.List {
			if !slices.Contains(r.Values, item) {
				return false
			}
		}
		return true
	case KindBoolean:
		return v.Kind == ValueBool && v.Present
	default:
		return false
	}
}
