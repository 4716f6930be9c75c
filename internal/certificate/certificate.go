// Package certificate renders per-student certificates from an event's
// HTML template.
package certificate

import (
	"html"
	"strings"

	"eventide/internal/apperr"
	"eventide/internal/model"
)

const MaxTemplateBytes = 512 << 10

// Validate checks a template before it is stored.
func Validate(templateHTML, placeholder string) error {
	if strings.TrimSpace(templateHTML) == "" {
		return apperr.Invalid("certificate template is empty")
	}
	if len(templateHTML) > MaxTemplateBytes {
		return apperr.Invalid("certificate template exceeds 512 KB")
	}
	if placeholder == "" {
		placeholder = model.DefaultCertificatePlaceholder
	}
	if !strings.Contains(templateHTML, placeholder) {
		return apperr.Invalid("certificate template does not contain the placeholder " + placeholder)
	}
	return nil
}

// Render substitutes every occurrence of the placeholder with the
// HTML-escaped student name.
func Render(t *model.CertificateTemplate, studentName string) []byte {
	placeholder := t.Placeholder
	if placeholder == "" {
		placeholder = model.DefaultCertificatePlaceholder
	}
	return []byte(strings.ReplaceAll(t.TemplateHTML, placeholder, html.EscapeString(studentName)))
}
