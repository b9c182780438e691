// Package validation checks untyped schema payloads against the record
// variants and turns them into typed records.
//
// Validation is all-or-nothing per call: every violation of the selected
// variant is collected and returned together, never just the first.
package validation

import (
	"bytes"
	"context"
	"errors"
	"io"
	"regexp"
	"strings"

	json "github.com/goccy/go-json"

	"github.com/danmuck/schemakit/internal/schema"
)

// Violation is one failed field check.
type Violation struct {
	Path    []string `json:"path"`
	Message string   `json:"message"`
}

func (v Violation) String() string {
	if len(v.Path) == 0 {
		return v.Message
	}
	return strings.Join(v.Path, ".") + ": " + v.Message
}

// Violations is the full result of a failed validation.
type Violations []Violation

func (vs Violations) Error() string {
	parts := make([]string, len(vs))
	for i, v := range vs {
		parts[i] = v.String()
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// Err returns vs as an error, or nil when there are no violations.
func (vs Violations) Err() error {
	if len(vs) == 0 {
		return nil
	}
	return vs
}

// MaxIdentifierLength bounds schema ids.
const MaxIdentifierLength = 50

var identifierPattern = regexp.MustCompile(`^[A-Za-z0-9_-]+$`)

type identifierError string

func (e identifierError) Error() string { return string(e) }

const (
	ErrIdentifierMissing identifierError = "Schema ID required"
	ErrIdentifierFormat  identifierError = "Invalid schema ID format"
)

// ValidateIdentifier checks a schema id: 1-50 characters of [A-Za-z0-9_-].
func ValidateIdentifier(id string) error {
	if id == "" {
		return ErrIdentifierMissing
	}
	if len(id) > MaxIdentifierLength || !identifierPattern.MatchString(id) {
		return ErrIdentifierFormat
	}
	return nil
}

// DecodePayload parses a JSON request body into a generic object. The body
// must hold exactly one JSON value.
func DecodePayload(body []byte) (map[string]any, Violations) {
	var raw any
	dec := json.NewDecoder(bytes.NewReader(body))
	if err := dec.Decode(&raw); err != nil {
		return nil, invalidJSON()
	}
	var trailing any
	if err := dec.Decode(&trailing); !errors.Is(err, io.EOF) {
		return nil, invalidJSON()
	}
	m, ok := raw.(map[string]any)
	if !ok {
		return nil, Violations{{Path: []string{}, Message: expected("object", raw)}}
	}
	return m, nil
}

func invalidJSON() Violations {
	return Violations{{Path: []string{"body"}, Message: "Invalid JSON"}}
}

// ValidateRecord decodes body and validates it as a record.
func ValidateRecord(body []byte) (schema.Record, Violations) {
	m, vs := DecodePayload(body)
	if len(vs) > 0 {
		return schema.Record{}, vs
	}
	return ValidateDocument(m)
}

// ValidateDocument validates an already-decoded payload. The returned record
// carries trimmed values and defaults; metadata other than Dynamic is left
// for the caller to stamp.
func ValidateDocument(payload map[string]any) (schema.Record, Violations) {
	out, err := recordSchema.Parse(context.Background(), payload)
	if err != nil {
		return schema.Record{}, violations(payload, err)
	}
	rec, err := schema.Decode(out)
	if err != nil {
		return schema.Record{}, Violations{{Path: []string{}, Message: err.Error()}}
	}
	return rec, nil
}
