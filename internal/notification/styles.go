package notification

import (
	"bytes"
	"html/template"
	"strings"
)

// DefaultDocumentTitle is used when RenderDocument is called without a title.
const DefaultDocumentTitle = "Monthly Club"

type styleRule struct {
	name     string
	selector string
	css      string
}

// styleRules is the Style Kit. Order matters: later rules override earlier ones
// and the mobile block must come last.
var styleRules = []styleRule{
	{"container", ".container", "max-width: 600px; margin: 0 auto; background-color: #ffffff; font-family: -apple-system, BlinkMacSystemFont, 'Segoe UI', Roboto, 'Helvetica Neue', Arial, sans-serif; color: #1f2937;"},
	{"content", ".content", "padding: 32px 24px;"},
	{"header", ".header", "background-color: #111827; color: #ffffff; padding: 24px; text-align: center;"},
	{"main", ".main", "background-color: #f9fafb; border-radius: 12px; padding: 24px;"},
	{"footer", ".footer", "padding: 24px; text-align: center; font-size: 12px; color: #6b7280;"},
	{"h1", "h1", "font-size: 24px; font-weight: 700; margin: 0 0 16px 0; color: #111827;"},
	{"h2", "h2", "font-size: 20px; font-weight: 600; margin: 0 0 12px 0; color: #111827;"},
	{"h3", "h3", "font-size: 16px; font-weight: 600; margin: 0 0 8px 0; color: #374151;"},
	{"paragraph", "p", "font-size: 16px; line-height: 1.6; margin: 0 0 16px 0; color: #374151;"},
	{"link", "a", "color: #4f46e5; text-decoration: underline;"},
	{"button", ".button", "display: inline-block; background-color: #4f46e5; color: #ffffff !important; padding: 12px 24px; border-radius: 8px; font-weight: 600; text-decoration: none;"},
	{"buttonSecondary", ".button-secondary", "display: inline-block; background-color: #ffffff; color: #4f46e5 !important; border: 1px solid #4f46e5; padding: 12px 24px; border-radius: 8px; font-weight: 600; text-decoration: none;"},
	{"card", ".card", "background-color: #ffffff; border: 1px solid #e5e7eb; border-radius: 8px; padding: 16px; margin: 0 0 16px 0;"},
	{"badge", ".badge", "display: inline-block; padding: 4px 10px; border-radius: 9999px; font-size: 12px; font-weight: 600; background-color: #eef2ff; color: #4338ca;"},
	{"mobile", "", "@media only screen and (max-width: 620px) { .container { width: 100% !important; } .content { padding: 24px 16px !important; } h1 { font-size: 20px !important; } .button, .button-secondary { display: block !important; text-align: center; } }"},
}

// Styles returns the Style Kit as a name to CSS fragment mapping.
func Styles() map[string]string {
	out := make(map[string]string, len(styleRules))
	for _, r := range styleRules {
		out[r.name] = r.css
	}
	return out
}

// StyleSheet concatenates every fragment of the Style Kit into CSS rules.
func StyleSheet() string {
	var b strings.Builder
	for _, r := range styleRules {
		if r.selector == "" {
			b.WriteString(r.css)
		} else {
			b.WriteString(r.selector)
			b.WriteString(" { ")
			b.WriteString(r.css)
			b.WriteString(" }")
		}
		b.WriteString("\n")
	}
	return b.String()
}

const documentLayout = `<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="UTF-8" />
<meta name="viewport" content="width=device-width, initial-scale=1.0" />
<title>{{.Title}}</title>
<style>
{{.Styles}}</style>
</head>
<body style="margin: 0; padding: 0; background-color: #f3f4f6;">
{{.Body}}
</body>
</html>
`

var (
	documentTmpl = template.Must(template.New("document").Parse(documentLayout))
	styleSheet   = template.CSS(StyleSheet())
)

// RenderDocument wraps body in a complete HTML document carrying the Style Kit.
// The body is inserted verbatim; callers are responsible for escaping any
// user-supplied text it contains.
func RenderDocument(body, title string) string {
	if title == "" {
		title = DefaultDocumentTitle
	}

	var buf bytes.Buffer
	// Static layout into an in-memory buffer: Execute has nothing to fail on.
	_ = documentTmpl.Execute(&buf, map[string]any{
		"Title":  title,
		"Styles": styleSheet,
		"Body":   template.HTML(body),
	})
	return buf.String()
}
