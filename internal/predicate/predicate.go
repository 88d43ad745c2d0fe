// Package predicate evaluates structured boolean conditions against ticket fields.
package predicate

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Operator names a leaf comparison.
type Operator string

const (
	OpEq    Operator = "eq"
	OpNe    Operator = "ne"
	OpIn    Operator = "in"
	OpNotIn Operator = "not_in"
	OpGt    Operator = "gt"
	OpGte   Operator = "gte"
	OpLt    Operator = "lt"
	OpLte   Operator = "lte"
)

var (
	ErrUnknownField        = errors.New("predicate: unknown field")
	ErrUnsupportedOperator = errors.New("predicate: unsupported operator")
	ErrInvalidValue        = errors.New("predicate: invalid value")
	ErrMalformed           = errors.New("predicate: malformed expression")
)

// Expr is a condition tree. Exactly one of And, Or, Not or Field is set on a
// non-empty node. The zero Expr is empty and matches every ticket.
type Expr struct {
	And   []Expr   `json:"and,omitempty" yaml:"and,omitempty"`
	Or    []Expr   `json:"or,omitempty" yaml:"or,omitempty"`
	Not   *Expr    `json:"not,omitempty" yaml:"not,omitempty"`
	Field string   `json:"field,omitempty" yaml:"field,omitempty"`
	Op    Operator `json:"op,omitempty" yaml:"op,omitempty"`
	Value any      `json:"value,omitempty" yaml:"value,omitempty"`
}

// IsEmpty reports whether the expression carries no condition at all.
func (e Expr) IsEmpty() bool {
	return len(e.And) == 0 && len(e.Or) == 0 && e.Not == nil && e.Field == ""
}

// FieldKind selects the comparison semantics of a field.
type FieldKind int

const (
	KindText FieldKind = iota
	KindEnum
	KindSet
	KindTime
)

// Field describes one addressable subject attribute.
type Field struct {
	Kind FieldKind
	// Rank orders enum values; nil means the field supports equality only.
	Rank func(string) (int, bool)
	// Valid reports whether a normalized value belongs to the enum. When nil,
	// Rank decides; when both are nil any value is accepted.
	Valid func(string) bool
	// Normalize canonicalizes both sides before comparison.
	Normalize func(string) string
}

// Schema is the set of fields a condition may reference.
type Schema map[string]Field

// Subject exposes field values. ok is false when the subject does not know the
// field; a nil value with ok true means the field is unset.
type Subject interface {
	Lookup(field string) (value any, ok bool)
}

// Validate checks the expression shape, field names, operators and value types.
func Validate(expr Expr, schema Schema) error {
	return walk(expr, schema, "")
}

// Eval evaluates expr against subject. Any error means the condition could not
// be decided and callers must treat it as not matched.
func Eval(expr Expr, schema Schema, subject Subject) (bool, error) {
	if expr.IsEmpty() {
		return true, nil
	}
	if err := walk(expr, schema, ""); err != nil {
		return false, err
	}
	return evalTree(expr, schema, subject)
}

func evalTree(expr Expr, schema Schema, subject Subject) (bool, error) {
	switch {
	case expr.Field != "":
		l, err := compileLeaf(expr, schema)
		if err != nil {
			return false, err
		}
		return l.eval(subject)
	case expr.Not != nil:
		inner, err := evalTree(*expr.Not, schema, subject)
		if err != nil {
			return false, err
		}
		return !inner, nil
	case len(expr.And) > 0:
		for _, child := range expr.And {
			ok, err := evalTree(child, schema, subject)
			if err != nil || !ok {
				return false, err
			}
		}
		return true, nil
	case len(expr.Or) > 0:
		for _, child := range expr.Or {
			ok, err := evalTree(child, schema, subject)
			if err != nil {
				return false, err
			}
			if ok {
				return true, nil
			}
		}
		return false, nil
	default:
		return true, nil
	}
}

// walk validates every node and compiles every leaf.
func walk(expr Expr, schema Schema, path string) error {
	set := 0
	if len(expr.And) > 0 {
		set++
	}
	if len(expr.Or) > 0 {
		set++
	}
	if expr.Not != nil {
		set++
	}
	if expr.Field != "" {
		set++
	}
	if set > 1 {
		return fmt.Errorf("%w: node %q mixes and/or/not/field", ErrMalformed, nodePath(path))
	}
	if expr.Field == "" && (expr.Op != "" || expr.Value != nil) {
		return fmt.Errorf("%w: node %q has an operator without a field", ErrMalformed, nodePath(path))
	}

	switch {
	case expr.Field != "":
		_, err := compileLeaf(expr, schema)
		return err
	case expr.Not != nil:
		if expr.Not.IsEmpty() {
			return fmt.Errorf("%w: node %q negates an empty expression", ErrMalformed, nodePath(path))
		}
		return walk(*expr.Not, schema, path+".not")
	default:
		for i, child := range expr.And {
			if err := walk(child, schema, fmt.Sprintf("%s.and[%d]", path, i)); err != nil {
				return err
			}
		}
		for i, child := range expr.Or {
			if err := walk(child, schema, fmt.Sprintf("%s.or[%d]", path, i)); err != nil {
				return err
			}
		}
	}
	return nil
}

func nodePath(path string) string {
	if path == "" {
		return "$"
	}
	return "$" + path
}

type leaf struct {
	name   string
	field  Field
	op     Operator
	scalar string
	list   []string
	rank   int
	at     time.Time
}

func compileLeaf(expr Expr, schema Schema) (leaf, error) {
	field, ok := schema[expr.Field]
	if !ok {
		return leaf{}, fmt.Errorf("%w: %s", ErrUnknownField, expr.Field)
	}
	l := leaf{name: expr.Field, field: field, op: expr.Op}
	if !field.allows(expr.Op) {
		return leaf{}, fmt.Errorf("%w: %s on %s", ErrUnsupportedOperator, expr.Op, expr.Field)
	}

	switch expr.Op {
	case OpIn, OpNotIn:
		items, err := toList(expr.Value)
		if err != nil {
			return leaf{}, fmt.Errorf("%w: %s expects a non-empty list: %v", ErrInvalidValue, expr.Field, err)
		}
		for i := range items {
			items[i] = field.normalize(items[i])
		}
		l.list = items
	default:
		scalar, err := toScalar(expr.Value)
		if err != nil {
			return leaf{}, fmt.Errorf("%w: %s expects a scalar: %v", ErrInvalidValue, expr.Field, err)
		}
		l.scalar = field.normalize(scalar)
	}

	switch field.Kind {
	case KindTime:
		if l.op != OpIn && l.op != OpNotIn {
			at, err := time.Parse(time.RFC3339, l.scalar)
			if err != nil {
				return leaf{}, fmt.Errorf("%w: %s expects an RFC3339 timestamp", ErrInvalidValue, expr.Field)
			}
			l.at = at
		}
	case KindEnum:
		values := l.list
		if l.op != OpIn && l.op != OpNotIn {
			values = []string{l.scalar}
		}
		for _, v := range values {
			if !field.member(v) {
				return leaf{}, fmt.Errorf("%w: %q is not a valid %s", ErrInvalidValue, v, expr.Field)
			}
		}
		if field.Rank != nil && l.op.isOrdering() {
			l.rank, _ = field.Rank(l.scalar)
		}
	}
	return l, nil
}

func (f Field) member(v string) bool {
	switch {
	case f.Valid != nil:
		return f.Valid(v)
	case f.Rank != nil:
		_, ok := f.Rank(v)
		return ok
	default:
		return true
	}
}

func (f Field) normalize(v string) string {
	v = strings.TrimSpace(v)
	if f.Normalize != nil {
		return f.Normalize(v)
	}
	return v
}

func (f Field) allows(op Operator) bool {
	switch op {
	case OpEq, OpNe, OpIn, OpNotIn:
		return f.Kind != KindTime || op == OpEq || op == OpNe
	case OpGt, OpGte, OpLt, OpLte:
		return f.Kind == KindTime || (f.Kind == KindEnum && f.Rank != nil)
	default:
		return false
	}
}

func (op Operator) isOrdering() bool {
	return op == OpGt || op == OpGte || op == OpLt || op == OpLte
}

func (l leaf) eval(subject Subject) (bool, error) {
	raw, ok := subject.Lookup(l.name)
	if !ok {
		return false, fmt.Errorf("%w: subject has no %s", ErrUnknownField, l.name)
	}
	switch l.field.Kind {
	case KindSet:
		return l.evalSet(raw)
	case KindTime:
		return l.evalTime(raw)
	default:
		return l.evalScalar(raw)
	}
}

func (l leaf) evalScalar(raw any) (bool, error) {
	var value string
	switch v := raw.(type) {
	case nil:
	case string:
		value = v
	case *string:
		if v != nil {
			value = *v
		}
	case fmt.Stringer:
		value = v.String()
	default:
		return false, fmt.Errorf("%w: %s has unexpected type %T", ErrInvalidValue, l.name, raw)
	}
	value = l.field.normalize(value)
	if value == "" {
		return l.op == OpNe || l.op == OpNotIn, nil
	}

	switch l.op {
	case OpEq:
		return value == l.scalar, nil
	case OpNe:
		return value != l.scalar, nil
	case OpIn:
		return contains(l.list, value), nil
	case OpNotIn:
		return !contains(l.list, value), nil
	}

	rank, ok := l.field.Rank(value)
	if !ok {
		return false, fmt.Errorf("%w: ticket has unknown %s %q", ErrInvalidValue, l.name, value)
	}
	return compareInts(l.op, rank, l.rank), nil
}

// evalSet treats eq as membership and in as intersection.
func (l leaf) evalSet(raw any) (bool, error) {
	values, ok := raw.([]string)
	if !ok && raw != nil {
		return false, fmt.Errorf("%w: %s has unexpected type %T", ErrInvalidValue, l.name, raw)
	}
	normalized := make([]string, 0, len(values))
	for _, v := range values {
		normalized = append(normalized, l.field.normalize(v))
	}
	switch l.op {
	case OpEq:
		return contains(normalized, l.scalar), nil
	case OpNe:
		return !contains(normalized, l.scalar), nil
	case OpIn:
		return intersects(normalized, l.list), nil
	case OpNotIn:
		return !intersects(normalized, l.list), nil
	}
	return false, fmt.Errorf("%w: %s on %s", ErrUnsupportedOperator, l.op, l.name)
}

func (l leaf) evalTime(raw any) (bool, error) {
	at, ok := raw.(time.Time)
	if !ok && raw != nil {
		return false, fmt.Errorf("%w: %s has unexpected type %T", ErrInvalidValue, l.name, raw)
	}
	if at.IsZero() {
		return l.op == OpNe, nil
	}
	switch l.op {
	case OpEq:
		return at.Equal(l.at), nil
	case OpNe:
		return !at.Equal(l.at), nil
	case OpGt:
		return at.After(l.at), nil
	case OpGte:
		return !at.Before(l.at), nil
	case OpLt:
		return at.Before(l.at), nil
	case OpLte:
		return !at.After(l.at), nil
	}
	return false, fmt.Errorf("%w: %s on %s", ErrUnsupportedOperator, l.op, l.name)
}

func compareInts(op Operator, left, right int) bool {
	switch op {
	case OpGt:
		return left > right
	case OpGte:
		return left >= right
	case OpLt:
		return left < right
	case OpLte:
		return left <= right
	}
	return false
}

func toScalar(v any) (string, error) {
	switch val := v.(type) {
	case nil:
		return "", errors.New("missing value")
	case string:
		if strings.TrimSpace(val) == "" {
			return "", errors.New("empty string")
		}
		return val, nil
	case bool, int, int64, float64, float32, uint64:
		return fmt.Sprint(val), nil
	default:
		return "", fmt.Errorf("unsupported type %T", v)
	}
}

func toList(v any) ([]string, error) {
	var items []string
	switch val := v.(type) {
	case []string:
		items = append(items, val...)
	case []any:
		for _, item := range val {
			s, err := toScalar(item)
			if err != nil {
				return nil, err
			}
			items = append(items, s)
		}
	default:
		return nil, fmt.Errorf("unsupported type %T", v)
	}
	if len(items) == 0 {
		return nil, errors.New("empty list")
	}
	return items, nil
}

func contains(items []string, value string) bool {
	for _, item := range items {
		if item == value {
			return true
		}
	}
	return false
}

func intersects(a, b []string) bool {
	for _, item := range a {
		if contains(b, item) {
			return true
		}
	}
	return false
}
