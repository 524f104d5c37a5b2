package validation

import (
	"regexp"
	"slices"
)

// Kind identifies a constraint descriptor.
type Kind uint8

const (
	KindRequired Kind = iota + 1
	KindLength
	KindPattern
	KindEmail
	KindOneOf
	KindEqualsField
	KindCount
	KindEachOneOf
	KindBoolean
)

func (k Kind) String() string {
	switch k {
	case KindRequired:
		return "required"
	case KindLength:
		return "length"
	case KindPattern:
		return "pattern"
	case KindEmail:
		return "email"
	case KindOneOf:
		return "one_of"
	case KindEqualsField:
		return "equals_field"
	case KindCount:
		return "count"
	case KindEachOneOf:
		return "each_one_of"
	case KindBoolean:
		return "boolean"
	default:
		return "unknown"
	}
}

// Rule is one constraint descriptor. Only the parameters relevant to Kind are
// read by the evaluator.
type Rule struct {
	Kind    Kind
	Min     int
	Max     int
	Pattern *regexp.Regexp
	Values  []string
	Field   string
	Message string
}

// FieldRules binds an ordered rule list to a field name.
type FieldRules struct {
	Name  string
	Rules []Rule
}

// Schema is the rule set for one onboarding step.
type Schema struct {
	Step   Step
	Fields []FieldRules
}

// Field is a convenience constructor for FieldRules.
func Field(name string, rules ...Rule) FieldRules {
	return FieldRules{Name: name, Rules: rules}
}

// Required rejects a missing value, a blank string or an empty list.
func Required(msg string) Rule {
	return Rule{Kind: KindRequired, Message: msg}
}

// Length bounds the rune count of a string. Use max < 0 for no upper bound.
func Length(min, max int, msg string) Rule {
	return Rule{Kind: KindLength, Min: min, Max: max, Message: msg}
}

// MustMatch compiles expr and requires string values to match it.
func MustMatch(expr, msg string) Rule {
	return Rule{Kind: KindPattern, Pattern: regexp.MustCompile(expr), Message: msg}
}

// Email requires a string shaped like local@domain.tld.
func Email(msg string) Rule {
	return Rule{Kind: KindEmail, Message: msg}
}

// OneOf requires a string value to be one of values. values is copied.
func OneOf(values []string, msg string) Rule {
	return Rule{Kind: KindOneOf, Values: slices.Clone(values), Message: msg}
}

// EqualsField requires the value to equal the string value of another field
// in the same record.
func EqualsField(field, msg string) Rule {
	return Rule{Kind: KindEqualsField, Field: field, Message: msg}
}

// Count bounds the number of selected items in a list value.
func Count(min, max int, msg string) Rule {
	return Rule{Kind: KindCount, Min: min, Max: max, Message: msg}
}

// EachOneOf requires every item of a list value to be one of values.
func EachOneOf(values []string, msg string) Rule {
	return Rule{Kind: KindEachOneOf, Values: slices.Clone(values), Message: msg}
}

// Boolean requires a bool value.
func Boolean(msg string) Rule {
	return Rule{Kind: KindBoolean, Message: msg}
}

// ValueKind tags the payload held by a Value.
type ValueKind uint8

const (
	ValueString ValueKind = iota + 1
	ValueBool
	ValueList
)

// Value is a tagged field value read from a Record. Present is false when
// the field was never supplied.
type Value struct {
	Kind    ValueKind
	Present bool
	Str     string
	Bool    bool
	List    []string
}

// Record exposes draft fields by name to the evaluator.
type Record interface {
	Field(name string) Value
}

// String wraps a present string value.
func String(s string) Value {
	return Value{Kind: ValueString, Present: true, Str: s}
}

// Bool wraps a present boolean value.
func Bool(b bool) Value {
	return Value{Kind: ValueBool, Present: true, Bool: b}
}

// OptionalBool maps a nil pointer to a missing boolean.
func OptionalBool(b *bool) Value {
	if b == nil {
		return Value{Kind: ValueBool}
	}
	return Bool(*b)
}

// List maps a nil slice to a missing list; an empty non-nil slice is present.
func List(items []string) Value {
	if items == nil {
		return Value{Kind: ValueList}
	}
	return Value{Kind: ValueList, Present: true, List: items}
}

// Missing is the value for a field the record does not know.
func Missing() Value {
	return Value{}
}

// Map is a Record backed by a plain map, handy for ad-hoc checks.
type Map map[string]Value

func (m Map) Field(name string) Value {
	return m[name]
}
