// Package render sanitizes document template HTML and renders Handlebars
// templates with raymond.
package render

import (
	"fmt"
	"html"
	"regexp"
	"strconv"
	"strings"

	"github.com/microcosm-cc/bluemonday"

	dErrors "encantar/pkg/domain-errors"
)

var (
	mustache    = regexp.MustCompile(`\{\{\{?[^{}]*\}?\}\}`)
	placeholder = regexp.MustCompile(`__hbexpr_(\d+)__`)

	scriptTag    = regexp.MustCompile(`<\s*/?\s*script`)
	jsURL        = regexp.MustCompile(`javascript\s*:`)
	eventHandler = regexp.MustCompile(`<[^>]*[\s"'/]on[a-z]+\s*=`)
)

var styleProperties = []string{
	"color", "background-color", "font-size", "font-weight", "font-family", "font-style",
	"text-align", "text-decoration", "vertical-align", "line-height",
	"border", "border-top", "border-bottom", "border-left", "border-right", "border-collapse", "border-radius",
	"padding", "padding-top", "padding-bottom", "padding-left", "padding-right",
	"margin", "margin-top", "margin-bottom", "margin-left", "margin-right",
	"width", "height", "min-width", "max-width", "display", "float", "clear", "page-break-after", "page-break-inside",
}

// Sanitizer applies the document template allowlist.
type Sanitizer struct {
	policy *bluemonday.Policy
}

func NewSanitizer() *Sanitizer {
	p := bluemonday.NewPolicy()
	p.AllowElements(
		"html", "head", "body", "title", "meta",
		"h1", "h2", "h3", "h4", "h5", "h6",
		"div", "p", "span", "br", "hr", "section", "header", "footer",
		"table", "thead", "tbody", "tfoot", "tr", "th", "td", "caption", "colgroup", "col",
		"ul", "ol", "li",
		"strong", "b", "em", "i", "u", "small", "sub", "sup",
		"pre", "code", "blockquote",
	)
	// style elements keep their CSS text; script stays disallowed.
	p.AllowUnsafe(true)
	p.AllowElements("style")
	p.AllowAttrs("class", "id").Globally()
	p.AllowAttrs("align", "valign", "colspan", "rowspan").OnElements("td", "th", "p", "tr")
	p.AllowAttrs("border", "cellpadding", "cellspacing").OnElements("table")
	p.AllowAttrs("charset").OnElements("meta")
	p.AllowAttrs("lang").OnElements("html")
	p.AllowStyles(styleProperties...).Globally()
	p.AllowImages()
	p.AllowAttrs("width", "height", "alt", "title").OnElements("img")
	p.AllowDataURIImages()
	p.AllowStandardURLs()
	return &Sanitizer{policy: p}
}

// HTML sanitizes rendered output.
func (s *Sanitizer) HTML(in string) string {
	return s.policy.Sanitize(in)
}

// Template sanitizes template source while keeping Handlebars expressions
// byte for byte, including string literals that would otherwise be escaped.
func (s *Sanitizer) Template(in string) string {
	var exprs []string
	masked := mustache.ReplaceAllStringFunc(in, func(m string) string {
		exprs = append(exprs, m)
		return fmt.Sprintf("__hbexpr_%d__", len(exprs)-1)
	})
	clean := s.policy.Sanitize(masked)
	return placeholder.ReplaceAllStringFunc(clean, func(p string) string {
		i, err := strconv.Atoi(placeholder.FindStringSubmatch(p)[1])
		if err != nil || i >= len(exprs) {
			return ""
		}
		return exprs[i]
	})
}

// CheckContent rejects content carrying script tags, javascript: URLs or
// inline event handlers, after entity decoding and lower-casing.
func CheckContent(content string) error {
	normalized := strings.ToLower(html.UnescapeString(content))
	switch {
	case scriptTag.MatchString(normalized):
		return dErrors.New(dErrors.CodeBadRequest, "content must not contain script tags")
	case jsURL.MatchString(normalized):
		return dErrors.New(dErrors.CodeBadRequest, "content must not contain javascript: URLs")
	case eventHandler.MatchString(normalized):
		return dErrors.New(dErrors.CodeBadRequest, "content must not contain event handler attributes")
	}
	return nil
}
