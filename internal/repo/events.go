package repo

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"eventide/internal/apperr"
	"eventide/internal/model"
)

type Attachment string

const (
	AttachmentImage    Attachment = "image"
	AttachmentBrochure Attachment = "brochure"
)

const eventColumns = `id, name, description, starts_at, venue, capacity, seats_taken,
	image_url, brochure_url, organizer_id, status, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanEvent(row rowScanner, extra ...any) (*model.Event, error) {
	var (
		e        model.Event
		image    sql.NullString
		brochure sql.NullString
	)
	dest := []any{
		&e.ID, &e.Name, &e.Description, &e.StartsAt, &e.Venue, &e.Capacity, &e.SeatsTaken,
		&image, &brochure, &e.OrganizerID, &e.Status, &e.CreatedAt, &e.UpdatedAt,
	}
	if err := row.Scan(append(dest, extra...)...); err != nil {
		return nil, err
	}
	if image.Valid {
		e.ImageURL = &image.String
	}
	if brochure.Valid {
		e.BrochureURL = &brochure.String
	}
	return &e, nil
}

func (r *repository) CreateEvent(ctx context.Context, e *model.Event) error {
	query := r.q(`
		INSERT INTO events (id, name, description, starts_at, venue, capacity, seats_taken,
		                    image_url, brochure_url, organizer_id, status, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, 0, ?, ?, ?, ?, ?, ?)
	`)
	_, err := r.db.ExecContext(ctx, query,
		e.ID, e.Name, e.Description, e.StartsAt.UTC(), e.Venue, e.Capacity,
		e.ImageURL, e.BrochureURL, e.OrganizerID, e.Status, e.CreatedAt.UTC(), e.UpdatedAt.UTC(),
	)
	if err != nil {
		return classify(err, "insert event")
	}
	return nil
}

// UpdateEventDetails rewrites the editable fields. Capacity may not drop
// below the seats already held; the check runs in the same statement so it
// cannot race with registrations.
func (r *repository) UpdateEventDetails(ctx context.Context, e *model.Event) error {
	query := r.q(`
		UPDATE events
		SET name = ?, description = ?, starts_at = ?, venue = ?, capacity = ?, updated_at = ?
		WHERE id = ? AND seats_taken <= ?
	`)
	res, err := r.db.ExecContext(ctx, query,
		e.Name, e.Description, e.StartsAt.UTC(), e.Venue, e.Capacity, e.UpdatedAt.UTC(),
		e.ID, e.Capacity,
	)
	if err != nil {
		return classify(err, "update event")
	}
	n, err := res.RowsAffected()
	if err != nil {
		return classify(err, "update event")
	}
	if n > 0 {
		return nil
	}
	if _, err := r.GetEventByID(ctx, e.ID); err != nil {
		return err
	}
	return apperr.Invalid("capacity cannot be lower than the number of seats already taken")
}

func (r *repository) UpdateEventStatus(ctx context.Context, id string, from, to model.EventStatus, at time.Time) error {
	query := r.q(`UPDATE events SET status = ?, updated_at = ? WHERE id = ? AND status = ?`)
	res, err := r.db.ExecContext(ctx, query, to, at.UTC(), id, from)
	if err != nil {
		return classify(err, "update event status")
	}
	n, err := res.RowsAffected()
	if err != nil {
		return classify(err, "update event status")
	}
	if n == 0 {
		if _, err := r.GetEventByID(ctx, id); err != nil {
			return err
		}
		return apperr.New(apperr.KindConflict, "event status changed concurrently")
	}
	return nil
}

func (r *repository) SetEventAttachment(ctx context.Context, id string, kind Attachment, url string, at time.Time) error {
	var query string
	switch kind {
	case AttachmentImage:
		query = `UPDATE events SET image_url = ?, updated_at = ? WHERE id = ?`
	case AttachmentBrochure:
		query = `UPDATE events SET brochure_url = ?, updated_at = ? WHERE id = ?`
	default:
		return apperr.Invalid("unknown attachment kind")
	}
	res, err := r.db.ExecContext(ctx, r.q(query), url, at.UTC(), id)
	if err != nil {
		return classify(err, "set event attachment")
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return apperr.NotFound("event not found")
	}
	return nil
}

// GetEventByID reads from the primary. Its result feeds status checks
// and conditional writes, so replica lag must not hide a fresh event.
func (r *repository) GetEventByID(ctx context.Context, id string) (*model.Event, error) {
	query := r.q(`SELECT ` + eventColumns + ` FROM events WHERE id = ?`)
	e, err := scanEvent(r.db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperr.NotFound("event not found")
	}
	if err != nil {
		return nil, classify(err, "get event")
	}
	return e, nil
}

func (r *repository) ListPublishedEvents(ctx context.Context) ([]model.Event, error) {
	query := r.q(`
		SELECT ` + eventColumns + `
		FROM events
		WHERE status = ?
		ORDER BY starts_at ASC, id ASC
	`)
	rows, err := r.reader.QueryContext(ctx, query, model.EventPublished)
	if err != nil {
		return nil, classify(err, "list published events")
	}
	defer rows.Close()

	events := make([]model.Event, 0)
	for rows.Next() {
		e, err := scanEvent(rows)
		if err != nil {
			return nil, classify(err, "scan event")
		}
		events = append(events, *e)
	}
	if err := rows.Err(); err != nil {
		return nil, classify(err, "list published events")
	}
	return events, nil
}

// ListEventSummaries returns events newest first with their pending and
// approved counts. An empty organizerID lists every event.
func (r *repository) ListEventSummaries(ctx context.Context, organizerID string) ([]model.EventSummary, error) {
	query := `
		SELECT ` + eventColumns + `,
		       (SELECT COUNT(*) FROM registrations p WHERE p.event_id = events.id AND p.status = 'pending'),
		       (SELECT COUNT(*) FROM registrations a WHERE a.event_id = events.id AND a.status = 'approved')
		FROM events`
	var args []any
	if organizerID != "" {
		query += ` WHERE organizer_id = ?`
		args = append(args, organizerID)
	}
	query += ` ORDER BY created_at DESC, id ASC`

	rows, err := r.reader.QueryContext(ctx, r.q(query), args...)
	if err != nil {
		return nil, classify(err, "list event summaries")
	}
	defer rows.Close()

	summaries := make([]model.EventSummary, 0)
	for rows.Next() {
		var pending, approved int
		e, err := scanEvent(rows, &pending, &approved)
		if err != nil {
			return nil, classify(err, "scan event summary")
		}
		summaries = append(summaries, model.EventSummary{Event: *e, PendingCount: pending, ApprovedCount: approved})
	}
	if err := rows.Err(); err != nil {
		return nil, classify(err, "list event summaries")
	}
	return summaries, nil
}
