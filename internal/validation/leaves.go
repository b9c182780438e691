package validation

import (
	"context"
	"fmt"
	"math"
	"strconv"
	"strings"
	"unicode/utf8"

	goskema "github.com/reoring/goskema"
	js "github.com/reoring/goskema/jsonschema"
)

// Leaf schemas. Each one collects every issue for its own value and reports
// it at "/" so object and list parents can rebase the path.

var seen = goskema.PresenceMap{"/": goskema.PresenceSeen}

func issueAt(path, code, msg string) goskema.Issue {
	return goskema.Issue{Path: path, Code: code, Message: msg, Offset: -1}
}

func asIssues(err error) goskema.Issues {
	if err == nil {
		return nil
	}
	if iss, ok := goskema.AsIssues(err); ok {
		return iss
	}
	return goskema.Issues{issueAt("/", goskema.CodeParseError, err.Error())}
}

func orNil(iss goskema.Issues) error {
	if len(iss) == 0 {
		return nil
	}
	return iss
}

// text is a string field, trimmed before any length, enum or format check.
type text struct {
	min    int
	minMsg string
	max    int
	// exact, when non-zero, is the required length.
	exact  int
	enum   []string
	format format
}

var (
	_ goskema.Schema[string]     = text{}
	_ goskema.Normalizer[string] = text{}
	_ goskema.Refiner[string]    = text{}
)

func (t text) Parse(ctx context.Context, v any) (string, error) {
	if err := t.TypeCheck(ctx, v); err != nil {
		return "", err
	}
	s, err := goskema.ApplyNormalize[string](ctx, v.(string), t)
	if err != nil {
		return "", err
	}
	iss := asIssues(t.ValidateValue(ctx, s))
	iss = append(iss, asIssues(goskema.ApplyRefine[string](ctx, s, t))...)
	if len(iss) > 0 {
		return "", iss
	}
	return s, nil
}

func (t text) ParseWithMeta(ctx context.Context, v any) (goskema.Decoded[string], error) {
	s, err := t.Parse(ctx, v)
	return goskema.Decoded[string]{Value: s, Presence: seen}, err
}

func (text) TypeCheck(_ context.Context, v any) error {
	if _, ok := v.(string); !ok {
		return goskema.Issues{issueAt("/", goskema.CodeInvalidType, expected("string", v))}
	}
	return nil
}

func (t text) RuleCheck(ctx context.Context, v any) error {
	s, ok := v.(string)
	if !ok {
		return nil
	}
	return t.ValidateValue(ctx, strings.TrimSpace(s))
}

func (t text) Validate(ctx context.Context, v any) error {
	if err := t.TypeCheck(ctx, v); err != nil {
		return err
	}
	return t.RuleCheck(ctx, v)
}

func (text) Normalize(_ context.Context, s string) (string, error) {
	return strings.TrimSpace(s), nil
}

// ValidateValue checks length and enum membership.
func (t text) ValidateValue(_ context.Context, s string) error {
	var iss goskema.Issues
	n := utf8.RuneCountInString(s)
	if t.max > 0 && n > t.max {
		iss = append(iss, issueAt("/", goskema.CodeTooLong,
			fmt.Sprintf("String must contain at most %d character(s)", t.max)))
	}
	if t.min > 0 && n < t.min {
		msg := t.minMsg
		if msg == "" {
			msg = fmt.Sprintf("String must contain at least %d character(s)", t.min)
		}
		iss = append(iss, issueAt("/", goskema.CodeTooShort, msg))
	}
	if t.exact > 0 && n != t.exact {
		iss = append(iss, issueAt("/", goskema.CodeTooShort,
			fmt.Sprintf("String must contain exactly %d character(s)", t.exact)))
	}
	if len(t.enum) > 0 && !contains(t.enum, s) {
		iss = append(iss, issueAt("/", goskema.CodeInvalidEnum, enumMessage(t.enum, s)))
	}
	return orNil(iss)
}

// Refine runs the format check, if any.
func (t text) Refine(_ context.Context, s string) error {
	if t.format == nil {
		return nil
	}
	if msg, ok := t.format(s); !ok {
		return goskema.Issues{issueAt("/", goskema.CodeInvalidFormat, msg)}
	}
	return nil
}

func (t text) JSONSchema() (*js.Schema, error) { return &js.Schema{Type: "string"}, nil }

// number is a JSON number with optional bounds.
type number struct {
	integer bool
	min     *float64
	max     *float64
}

func bound(v float64) *float64 { return &v }

var _ goskema.Schema[float64] = number{}

func (n number) Parse(ctx context.Context, v any) (float64, error) {
	if err := n.TypeCheck(ctx, v); err != nil {
		return 0, err
	}
	f, _ := asFloat(v)
	if err := n.ValidateValue(ctx, f); err != nil {
		return 0, err
	}
	return f, nil
}

func (n number) ParseWithMeta(ctx context.Context, v any) (goskema.Decoded[float64], error) {
	f, err := n.Parse(ctx, v)
	return goskema.Decoded[float64]{Value: f, Presence: seen}, err
}

func (number) TypeCheck(_ context.Context, v any) error {
	if _, ok := asFloat(v); !ok {
		return goskema.Issues{issueAt("/", goskema.CodeInvalidType, expected("number", v))}
	}
	return nil
}

func (n number) RuleCheck(ctx context.Context, v any) error {
	f, ok := asFloat(v)
	if !ok {
		return nil
	}
	return n.ValidateValue(ctx, f)
}

func (n number) Validate(ctx context.Context, v any) error {
	if err := n.TypeCheck(ctx, v); err != nil {
		return err
	}
	return n.RuleCheck(ctx, v)
}

func (n number) ValidateValue(_ context.Context, f float64) error {
	var iss goskema.Issues
	if n.integer && f != math.Trunc(f) {
		iss = append(iss, issueAt("/", goskema.CodeInvalidType, "Expected integer, received float"))
	}
	if n.min != nil && f < *n.min {
		iss = append(iss, issueAt("/", goskema.CodeTooSmall,
			"Number must be greater than or equal to "+formatNum(*n.min)))
	}
	if n.max != nil && f > *n.max {
		iss = append(iss, issueAt("/", goskema.CodeTooBig,
			"Number must be less than or equal to "+formatNum(*n.max)))
	}
	return orNil(iss)
}

func (n number) JSONSchema() (*js.Schema, error) {
	if n.integer {
		return &js.Schema{Type: "integer"}, nil
	}
	return &js.Schema{Type: "number"}, nil
}

// flag is a JSON boolean.
type flag struct{}

var _ goskema.Schema[bool] = flag{}

func (f flag) Parse(ctx context.Context, v any) (bool, error) {
	if err := f.TypeCheck(ctx, v); err != nil {
		return false, err
	}
	return v.(bool), nil
}

func (f flag) ParseWithMeta(ctx context.Context, v any) (goskema.Decoded[bool], error) {
	b, err := f.Parse(ctx, v)
	return goskema.Decoded[bool]{Value: b, Presence: seen}, err
}

func (flag) TypeCheck(_ context.Context, v any) error {
	if _, ok := v.(bool); !ok {
		return goskema.Issues{issueAt("/", goskema.CodeInvalidType, expected("boolean", v))}
	}
	return nil
}

func (flag) RuleCheck(context.Context, any) error { return nil }

func (f flag) Validate(ctx context.Context, v any) error { return f.TypeCheck(ctx, v) }

func (flag) ValidateValue(context.Context, bool) error { return nil }

func (flag) JSONSchema() (*js.Schema, error) { return &js.Schema{Type: "boolean"}, nil }

// list is an array whose elements are all parsed, so every bad element is
// reported rather than only the first.
type list[E any] struct {
	elem   goskema.Schema[E]
	min    int
	minMsg string
}

func (l list[E]) Parse(ctx context.Context, v any) ([]E, error) {
	if err := l.TypeCheck(ctx, v); err != nil {
		return nil, err
	}
	items := v.([]any)
	out := make([]E, 0, len(items))
	var iss goskema.Issues
	for i, item := range items {
		ev, err := l.elem.Parse(ctx, item)
		if err != nil {
			iss = append(iss, rebase("/"+strconv.Itoa(i), asIssues(err))...)
			continue
		}
		out = append(out, ev)
	}
	if l.min > 0 && len(items) < l.min {
		iss = append(iss, issueAt("/", goskema.CodeTooShort, l.minMsg))
	}
	if len(iss) > 0 {
		return nil, iss
	}
	return out, nil
}

func (l list[E]) ParseWithMeta(ctx context.Context, v any) (goskema.Decoded[[]E], error) {
	out, err := l.Parse(ctx, v)
	return goskema.Decoded[[]E]{Value: out, Presence: seen}, err
}

func (list[E]) TypeCheck(_ context.Context, v any) error {
	if _, ok := v.([]any); !ok {
		return goskema.Issues{issueAt("/", goskema.CodeInvalidType, expected("array", v))}
	}
	return nil
}

func (l list[E]) RuleCheck(_ context.Context, v any) error {
	items, ok := v.([]any)
	if !ok || l.min == 0 || len(items) >= l.min {
		return nil
	}
	return goskema.Issues{issueAt("/", goskema.CodeTooShort, l.minMsg)}
}

func (l list[E]) Validate(ctx context.Context, v any) error {
	if err := l.TypeCheck(ctx, v); err != nil {
		return err
	}
	return l.RuleCheck(ctx, v)
}

func (l list[E]) ValidateValue(ctx context.Context, v []E) error {
	var iss goskema.Issues
	for i := range v {
		iss = append(iss, rebase("/"+strconv.Itoa(i), asIssues(l.elem.ValidateValue(ctx, v[i])))...)
	}
	if l.min > 0 && len(v) < l.min {
		iss = append(iss, issueAt("/", goskema.CodeTooShort, l.minMsg))
	}
	return orNil(iss)
}

func (l list[E]) JSONSchema() (*js.Schema, error) {
	es, err := l.elem.JSONSchema()
	if err != nil {
		return nil, err
	}
	s := &js.Schema{Type: "array", Items: es}
	if l.min > 0 {
		n := l.min
		s.MinItems = &n
	}
	return s, nil
}

// rebase prefixes every issue path with base.
func rebase(base string, iss goskema.Issues) goskema.Issues {
	out := make(goskema.Issues, 0, len(iss))
	for _, it := range iss {
		switch {
		case it.Path == "" || it.Path == "/":
			it.Path = base
		case it.Path[0] == '/':
			it.Path = base + it.Path
		default:
			it.Path = base + "/" + it.Path
		}
		out = append(out, it)
	}
	return out
}

func asFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case interface{ Float64() (float64, error) }:
		f, err := n.Float64()
		return f, err == nil
	default:
		return 0, false
	}
}

func expected(want string, got any) string {
	return fmt.Sprintf("Expected %s, received %s", want, typeName(got))
}

func typeName(v any) string {
	switch v.(type) {
	case nil:
		return "null"
	case string:
		return "string"
	case bool:
		return "boolean"
	case []any:
		return "array"
	case map[string]any:
		return "object"
	default:
		if _, ok := asFloat(v); ok {
			return "number"
		}
		return fmt.Sprintf("%T", v)
	}
}

func enumMessage(options []string, got string) string {
	quoted := make([]string, len(options))
	for i, o := range options {
		quoted[i] = "'" + o + "'"
	}
	return fmt.Sprintf("Invalid enum value. Expected %s, received '%s'", strings.Join(quoted, " | "), got)
}

func formatNum(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func contains(options []string, s string) bool {
	for _, o := range options {
		if o == s {
			return true
		}
	}
	return false
}
