package validation

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

var (
	// ErrUnknownStep is returned when Validate is called with a step that has no schema.
	ErrUnknownStep = errors.New("unknown validation step")
	// ErrValidation matches every *Error with errors.Is.
	ErrValidation = errors.New("validation failed")
)

// FieldErrors maps a field name to its human-readable violation.
type FieldErrors map[string]string

// Fields returns the violating field names in sorted order.
func (f FieldErrors) Fields() []string {
	out := make([]string, 0, len(f))
	for name := range f {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// Error carries the field violations of one failed step.
type Error struct {
	Step   Step
	Fields FieldErrors
}

func (e *Error) Error() string {
	if e == nil {
		return ErrValidation.Error()
	}
	parts := make([]string, 0, len(e.Fields))
	for _, name := range e.Fields.Fields() {
		parts = append(parts, name+": "+e.Fields[name])
	}
	return fmt.Sprintf("%s for step %d: %s", ErrValidation.Error(), int(e.Step), strings.Join(parts, "; "))
}

func (e *Error) Is(target error) bool {
	return target == ErrValidation
}
