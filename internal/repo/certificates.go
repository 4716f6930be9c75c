package repo

import (
	"context"
	"database/sql"
	"errors"

	"eventide/internal/apperr"
	"eventide/internal/model"
)

// UpsertCertificateTemplate stores one template per event, replacing any
// earlier upload.
func (r *repository) UpsertCertificateTemplate(ctx context.Context, t *model.CertificateTemplate) error {
	query := r.q(`
		INSERT INTO certificate_templates (event_id, template_html, placeholder, uploaded_by, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT (event_id) DO UPDATE
		SET template_html = excluded.template_html,
		    placeholder = excluded.placeholder,
		    uploaded_by = excluded.uploaded_by,
		    updated_at = excluded.updated_at
	`)
	_, err := r.db.ExecContext(ctx, query,
		t.EventID, t.TemplateHTML, t.Placeholder, t.UploadedBy, t.CreatedAt.UTC(), t.UpdatedAt.UTC(),
	)
	if err != nil {
		return classify(err, "upsert certificate template")
	}
	return nil
}

func (r *repository) GetCertificateTemplate(ctx context.Context, eventID string) (*model.CertificateTemplate, error) {
	var t model.CertificateTemplate
	err := r.db.QueryRowContext(ctx, r.q(`
		SELECT event_id, template_html, placeholder, uploaded_by, created_at, updated_at
		FROM certificate_templates
		WHERE event_id = ?
	`), eventID).Scan(&t.EventID, &t.TemplateHTML, &t.Placeholder, &t.UploadedBy, &t.CreatedAt, &t.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperr.NotFound("no certificate template for this event")
	}
	if err != nil {
		return nil, classify(err, "get certificate template")
	}
	return &t, nil
}
