// Package tmpl renders the Go templates used by configured join commands.
package tmpl

import (
	"bytes"
	"fmt"
	"strings"
	"text/template"
)

// shellQuote wraps s in single quotes, escaping embedded single quotes with
// the '\'' sequence.
func shellQuote(s string) string {
	if s == "" {
		return "''"
	}
	return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
}

var funcs = template.FuncMap{
	"shq": shellQuote,
}

func parse(text string) (*template.Template, error) {
	t, err := template.New("").Funcs(funcs).Option("missingkey=error").Parse(text)
	if err != nil {
		return nil, fmt.Errorf("parse template: %w", err)
	}
	return t, nil
}

// Render executes a template string with the given data. Undefined keys are
// an error.
//
// Available template functions:
//   - shq: Shell-quote a string for safe use in shell commands
func Render(text string, data any) (string, error) {
	t, err := parse(text)
	if err != nil {
		return "", err
	}

	var buf bytes.Buffer
	if err := t.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("execute template: %w", err)
	}

	return buf.String(), nil
}

// Check reports whether text parses and renders against a zero value of the
// data type the caller will use, without keeping the output.
func Check(text string, zero any) error {
	_, err := Render(text, zero)
	return err
}
