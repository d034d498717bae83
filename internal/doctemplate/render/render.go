package render

import (
	"fmt"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/aymerick/raymond"

	dErrors "encantar/pkg/domain-errors"
	"encantar/pkg/platform/validation"
)

// Renderer executes stored Handlebars templates and sanitizes the result.
type Renderer struct {
	sanitizer *Sanitizer
}

func NewRenderer(sanitizer *Sanitizer) *Renderer {
	if sanitizer == nil {
		sanitizer = NewSanitizer()
	}
	return &Renderer{sanitizer: sanitizer}
}

// Validate reports Handlebars syntax errors as a bad request.
func (r *Renderer) Validate(content string) error {
	if _, err := raymond.Parse(content); err != nil {
		return dErrors.Wrap(err, dErrors.CodeBadRequest, "invalid template syntax")
	}
	return nil
}

// Render executes content against data. Helper registration is per template
// so renders never share mutable state.
func (r *Renderer) Render(content string, data any) (string, error) {
	tpl, err := raymond.Parse(content)
	if err != nil {
		return "", dErrors.Wrap(err, dErrors.CodeBadRequest, "invalid template syntax")
	}
	tpl.RegisterHelpers(Helpers())
	out, err := tpl.Exec(data)
	if err != nil {
		return "", dErrors.Wrap(err, dErrors.CodeBadRequest, "failed to render template")
	}
	return r.sanitizer.HTML(out), nil
}

// Helpers are available to every document template.
func Helpers() map[string]any {
	return map[string]any{
		"eq":          eq,
		"gt":          gt,
		"add":         add,
		"formatPhone": formatPhone,
		"capitalize":  capitalize,
	}
}

func eq(a, b any) bool {
	return raymond.Str(a) == raymond.Str(b)
}

func gt(a, b any) bool {
	x, okA := number(a)
	y, okB := number(b)
	return okA && okB && x > y
}

func add(a, b any) string {
	x, _ := number(a)
	y, _ := number(b)
	return strconv.FormatFloat(x+y, 'f', -1, 64)
}

// formatPhone renders 10 or 11 digit Brazilian numbers as (DD) NNNNN-NNNN.
func formatPhone(v any) string {
	raw := raymond.Str(v)
	d := validation.DigitsOnly(raw)
	switch len(d) {
	case 11:
		return fmt.Sprintf("(%s) %s-%s", d[:2], d[2:7], d[7:])
	case 10:
		return fmt.Sprintf("(%s) %s-%s", d[:2], d[2:6], d[6:])
	}
	return raw
}

func capitalize(v any) string {
	s := strings.ToLower(raymond.Str(v))
	if s == "" {
		return ""
	}
	first, size := utf8.DecodeRuneInString(s)
	return string(unicode.ToUpper(first)) + s[size:]
}

func number(v any) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case float64:
		return n, true
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(n), 64)
		return f, err == nil
	}
	return 0, false
}
