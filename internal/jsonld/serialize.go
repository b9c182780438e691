package jsonld

import (
	"errors"
	"fmt"
	"strings"

	json "github.com/goccy/go-json"
)

const (
	scriptOpen  = `<script type="application/ld+json">`
	scriptClose = `</script>`

	// ContentType is served with rendered fragments.
	ContentType = "application/ld+json"
)

var ErrNoScript = errors.New("jsonld: no ld+json script element")

// htmlEscaper rewrites the characters that could end a script element. In
// valid JSON they only occur inside strings, where the \u form is equivalent.
var htmlEscaper = strings.NewReplacer("<", `\u003c`, ">", `\u003e`, "&", `\u0026`)

// Marshal encodes doc as 2-space indented JSON. HTML-significant characters
// are escaped so the output can sit inside a script element.
func Marshal(doc any) ([]byte, error) {
	out, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("jsonld: encode document: %w", err)
	}
	return []byte(htmlEscaper.Replace(string(out))), nil
}

// Serialize wraps doc in a <script type="application/ld+json"> element.
func Serialize(doc any) (string, error) {
	body, err := Marshal(doc)
	if err != nil {
		return "", err
	}
	var b strings.Builder
	b.Grow(len(scriptOpen) + len(body) + len(scriptClose))
	b.WriteString(scriptOpen)
	b.Write(body)
	b.WriteString(scriptClose)
	return b.String(), nil
}

// Extract returns the JSON inside a fragment produced by Serialize.
func Extract(fragment string) ([]byte, error) {
	s := strings.TrimSpace(fragment)
	if !strings.HasPrefix(s, scriptOpen) || !strings.HasSuffix(s, scriptClose) {
		return nil, ErrNoScript
	}
	inner := s[len(scriptOpen) : len(s)-len(scriptClose)]
	if strings.Contains(inner, scriptClose) {
		return nil, fmt.Errorf("%w: nested script close", ErrNoScript)
	}
	if !json.Valid([]byte(inner)) {
		return nil, fmt.Errorf("jsonld: fragment body is not valid JSON")
	}
	return []byte(inner), nil
}
