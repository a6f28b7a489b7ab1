package templates

import (
	"bytes"
	"embed"
	"fmt"
	htmpl "html/template"
)

//go:embed *.tmpl
var FS embed.FS

// Render produces the subject and HTML body for a named template. Data
// keys the templates use: Names, Email, ResetURL, AppName, ExpiresAtText.
func Render(name string, data map[string]any) (subject, html string, err error) {
	t, err := htmpl.ParseFS(FS, name+".tmpl")
	if err != nil {
		return "", "", fmt.Errorf("parse template %s: %w", name, err)
	}
	var buf bytes.Buffer
	if err := t.Execute(&buf, data); err != nil {
		return "", "", fmt.Errorf("render template %s: %w", name, err)
	}
	return Subject(name), buf.String(), nil
}

// Subject returns the email subject for a template name.
func Subject(name string) string {
	switch name {
	case "welcome":
		return "Welcome! Set your password"
	case "reset_password":
		return "Reset your password"
	default:
		return "Notification"
	}
}
