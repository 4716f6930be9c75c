package repo

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"eventide/internal/apperr"
	"eventide/internal/model"
)

const registrationColumns = `r.id, r.event_id, r.student_id, r.status, r.qr_code, r.registered_at,
	r.checked_in_at, r.certificate_url, r.updated_at, u.name, u.email`

const registrationFrom = ` FROM registrations r JOIN users u ON u.id = r.student_id`

func scanRegistration(row rowScanner) (*model.Registration, error) {
	var (
		reg       model.Registration
		checkedIn sql.NullTime
		cert      sql.NullString
	)
	if err := row.Scan(
		&reg.ID, &reg.EventID, &reg.StudentID, &reg.Status, &reg.QRCode, &reg.RegisteredAt,
		&checkedIn, &cert, &reg.UpdatedAt, &reg.StudentName, &reg.StudentEmail,
	); err != nil {
		return nil, err
	}
	if checkedIn.Valid {
		t := checkedIn.Time
		reg.CheckedInAt = &t
	}
	if cert.Valid {
		reg.CertificateURL = &cert.String
	}
	return &reg, nil
}

// CreateRegistrationTx is the capacity guard's write. Inside one
// transaction it rejects a second held registration for the same student,
// takes a seat with a conditional increment that only succeeds while the
// event is published and below capacity, and inserts the registration. A
// unique index on held registrations backs up the duplicate check.
func (r *repository) CreateRegistrationTx(ctx context.Context, reg *model.Registration) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return classify(err, "begin registration")
	}
	defer r.rollback(tx)

	var held int
	err = tx.QueryRowContext(ctx, r.q(`
		SELECT COUNT(*)
		FROM registrations
		WHERE event_id = ? AND student_id = ? AND status IN ('pending', 'approved', 'attended')
	`), reg.EventID, reg.StudentID).Scan(&held)
	if err != nil {
		return classify(err, "check existing registration")
	}
	if held > 0 {
		return apperr.New(apperr.KindAlreadyRegistered, "student already holds a registration for this event")
	}

	res, err := tx.ExecContext(ctx, r.q(`
		UPDATE events
		SET seats_taken = seats_taken + 1, updated_at = ?
		WHERE id = ? AND status = ? AND seats_taken < capacity
	`), reg.RegisteredAt.UTC(), reg.EventID, model.EventPublished)
	if err != nil {
		return classify(err, "take seat")
	}
	n, err := res.RowsAffected()
	if err != nil {
		return classify(err, "take seat")
	}
	if n == 0 {
		return r.explainNoSeat(ctx, tx, reg.EventID, true)
	}

	_, err = tx.ExecContext(ctx, r.q(`
		INSERT INTO registrations (id, event_id, student_id, status, qr_code, registered_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`), reg.ID, reg.EventID, reg.StudentID, reg.Status, reg.QRCode, reg.RegisteredAt.UTC(), reg.UpdatedAt.UTC())
	if err != nil {
		if isUniqueViolation(err) {
			return apperr.New(apperr.KindAlreadyRegistered, "student already holds a registration for this event")
		}
		return classify(err, "insert registration")
	}

	if err := tx.Commit(); err != nil {
		return classify(err, "commit registration")
	}
	return nil
}

// explainNoSeat turns a failed conditional seat increment into the
// matching error.
func (r *repository) explainNoSeat(ctx context.Context, tx *sql.Tx, eventID string, requirePublished bool) error {
	var status model.EventStatus
	err := tx.QueryRowContext(ctx, r.q(`SELECT status FROM events WHERE id = ?`), eventID).Scan(&status)
	if errors.Is(err, sql.ErrNoRows) {
		return apperr.NotFound("event not found")
	}
	if err != nil {
		return classify(err, "load event")
	}
	if requirePublished && status != model.EventPublished {
		return apperr.NotFound("event not published")
	}
	return apperr.New(apperr.KindCapacityExceeded, "event is full")
}

// TransitionRegistrationTx moves reg from its current status to `to`.
// Leaving the seat-holding set releases a seat; re-entering it takes one
// under the same capacity condition as a new registration. The status
// write is conditional on reg.Status so a concurrent change yields
// Conflict.
func (r *repository) TransitionRegistrationTx(ctx context.Context, reg *model.Registration, to model.RegistrationStatus, at time.Time) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return classify(err, "begin transition")
	}
	defer r.rollback(tx)

	heldBefore, heldAfter := model.HoldsSeat(reg.Status), model.HoldsSeat(to)
	switch {
	case !heldBefore && heldAfter:
		res, err := tx.ExecContext(ctx, r.q(`
			UPDATE events
			SET seats_taken = seats_taken + 1, updated_at = ?
			WHERE id = ? AND seats_taken < capacity
		`), at.UTC(), reg.EventID)
		if err != nil {
			return classify(err, "take seat")
		}
		if n, err := res.RowsAffected(); err != nil {
			return classify(err, "take seat")
		} else if n == 0 {
			return r.explainNoSeat(ctx, tx, reg.EventID, false)
		}
	case heldBefore && !heldAfter:
		_, err := tx.ExecContext(ctx, r.q(`
			UPDATE events
			SET seats_taken = seats_taken - 1, updated_at = ?
			WHERE id = ? AND seats_taken > 0
		`), at.UTC(), reg.EventID)
		if err != nil {
			return classify(err, "release seat")
		}
	}

	res, err := tx.ExecContext(ctx, r.q(`
		UPDATE registrations SET status = ?, updated_at = ? WHERE id = ? AND status = ?
	`), to, at.UTC(), reg.ID, reg.Status)
	if err != nil {
		if isUniqueViolation(err) {
			return apperr.New(apperr.KindAlreadyRegistered, "student already holds another registration for this event")
		}
		return classify(err, "update registration status")
	}
	n, err := res.RowsAffected()
	if err != nil {
		return classify(err, "update registration status")
	}
	if n == 0 {
		return apperr.New(apperr.KindConflict, "registration status changed concurrently")
	}

	if err := tx.Commit(); err != nil {
		return classify(err, "commit transition")
	}
	return nil
}

// MarkAttended is the check-in write: a single conditional update that
// only one concurrent scan can win. It reports whether this call performed
// the transition.
func (r *repository) MarkAttended(ctx context.Context, eventID, code string, at time.Time) (bool, error) {
	res, err := r.db.ExecContext(ctx, r.q(`
		UPDATE registrations
		SET status = ?, checked_in_at = ?, updated_at = ?
		WHERE event_id = ? AND qr_code = ? AND status IN ('pending', 'approved')
	`), model.RegistrationAttended, at.UTC(), at.UTC(), eventID, code)
	if err != nil {
		return false, classify(err, "mark attended")
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, classify(err, "mark attended")
	}
	return n == 1, nil
}

func (r *repository) GetRegistrationByID(ctx context.Context, id string) (*model.Registration, error) {
	query := r.q(`SELECT ` + registrationColumns + registrationFrom + ` WHERE r.id = ?`)
	reg, err := scanRegistration(r.db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperr.NotFound("registration not found")
	}
	if err != nil {
		return nil, classify(err, "get registration")
	}
	return reg, nil
}

// GetRegistrationByCode reads from the master: check-in resolves the
// outcome of a write it has just attempted.
func (r *repository) GetRegistrationByCode(ctx context.Context, eventID, code string) (*model.Registration, error) {
	query := r.q(`SELECT ` + registrationColumns + registrationFrom + ` WHERE r.event_id = ? AND r.qr_code = ?`)
	reg, err := scanRegistration(r.db.QueryRowContext(ctx, query, eventID, code))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperr.New(apperr.KindInvalidCode, "no registration matches this code")
	}
	if err != nil {
		return nil, classify(err, "get registration by code")
	}
	return reg, nil
}

func (r *repository) ListRegistrationsByEvent(ctx context.Context, eventID string) ([]model.Registration, error) {
	query := r.q(`SELECT ` + registrationColumns + registrationFrom + `
		WHERE r.event_id = ?
		ORDER BY r.registered_at DESC, r.id ASC`)
	return r.listRegistrations(ctx, query, eventID)
}

func (r *repository) ListRegistrationsByStudent(ctx context.Context, studentID string) ([]model.Registration, error) {
	query := r.q(`SELECT ` + registrationColumns + registrationFrom + `
		WHERE r.student_id = ?
		ORDER BY r.registered_at DESC, r.id ASC`)
	return r.listRegistrations(ctx, query, studentID)
}

func (r *repository) listRegistrations(ctx context.Context, query string, args ...any) ([]model.Registration, error) {
	rows, err := r.reader.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, classify(err, "list registrations")
	}
	defer rows.Close()

	regs := make([]model.Registration, 0)
	for rows.Next() {
		reg, err := scanRegistration(rows)
		if err != nil {
			return nil, classify(err, "scan registration")
		}
		regs = append(regs, *reg)
	}
	if err := rows.Err(); err != nil {
		return nil, classify(err, "list registrations")
	}
	return regs, nil
}

func (r *repository) SetCertificateURL(ctx context.Context, registrationID, url string, at time.Time) error {
	res, err := r.db.ExecContext(ctx, r.q(`
		UPDATE registrations SET certificate_url = ?, updated_at = ? WHERE id = ?
	`), url, at.UTC(), registrationID)
	if err != nil {
		return classify(err, "set certificate url")
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return apperr.NotFound("registration not found")
	}
	return nil
}
