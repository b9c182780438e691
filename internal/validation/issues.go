package validation

import (
	"strconv"
	"strings"

	goskema "github.com/reoring/goskema"

	"github.com/danmuck/schemakit/internal/schema"
)

// violations converts parse issues into Violations. payload is the input
// that produced them and supplies the received type for structural
// mismatches reported by object schemas.
func violations(payload map[string]any, err error) Violations {
	iss := asIssues(err)
	out := make(Violations, 0, len(iss))
	for _, it := range iss {
		path := pointerPath(it.Path)
		msg := it.Message
		switch it.Code {
		case goskema.CodeRequired:
			msg = "Required"
		case goskema.CodeDiscriminatorMissing, goskema.CodeDiscriminatorUnknown:
			path = []string{schema.FieldType}
			msg = discriminatorMessage()
		case goskema.CodeInvalidType:
			if want, ok := strings.CutPrefix(it.Hint, "expected "); ok {
				msg = expected(want, lookup(payload, path))
			}
		}
		out = append(out, Violation{Path: path, Message: msg})
	}
	return out
}

func discriminatorMessage() string {
	options := make([]string, len(schema.Kinds))
	for i, k := range schema.Kinds {
		options[i] = "'" + string(k) + "'"
	}
	return "Invalid discriminator value. Expected " + strings.Join(options, " | ")
}

var pointerUnescaper = strings.NewReplacer("~1", "/", "~0", "~")

// pointerPath splits a JSON Pointer into its unescaped segments.
func pointerPath(p string) []string {
	p = strings.TrimPrefix(p, "/")
	if p == "" {
		return []string{}
	}
	parts := strings.Split(p, "/")
	for i, part := range parts {
		parts[i] = pointerUnescaper.Replace(part)
	}
	return parts
}

// lookup returns the value at path inside payload, or nil.
func lookup(payload map[string]any, path []string) any {
	var cur any = payload
	for _, key := range path {
		switch node := cur.(type) {
		case map[string]any:
			cur = node[key]
		case []any:
			i, err := strconv.Atoi(key)
			if err != nil || i < 0 || i >= len(node) {
				return nil
			}
			cur = node[i]
		default:
			return nil
		}
	}
	return cur
}
