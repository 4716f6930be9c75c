package model

import "time"

type EventStatus string

const (
	EventDraft     EventStatus = "draft"
	EventPublished EventStatus = "published"
	EventArchived  EventStatus = "archived"
	EventCompleted EventStatus = "completed"
)

type RegistrationStatus string

const (
	RegistrationPending  RegistrationStatus = "pending"
	RegistrationApproved RegistrationStatus = "approved"
	RegistrationRejected RegistrationStatus = "rejected"
	RegistrationAttended RegistrationStatus = "attended"
)

type Role string

const (
	RoleStudent   Role = "student"
	RoleOrganizer Role = "organizer"
	RoleCoadmin   Role = "coadmin"
	RoleAdmin     Role = "admin"
)

type Event struct {
	ID          string      `db:"id" json:"id"`
	Name        string      `db:"name" json:"name"`
	Description string      `db:"description" json:"description"`
	StartsAt    time.Time   `db:"starts_at" json:"starts_at"`
	Venue       string      `db:"venue" json:"venue"`
	Capacity    int         `db:"capacity" json:"capacity"`
	SeatsTaken  int         `db:"seats_taken" json:"seats_taken"`
	ImageURL    *string     `db:"image_url" json:"image_url,omitempty"`
	BrochureURL *string     `db:"brochure_url" json:"brochure_url,omitempty"`
	OrganizerID string      `db:"organizer_id" json:"organizer_id"`
	Status      EventStatus `db:"status" json:"status"`
	CreatedAt   time.Time   `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time   `db:"updated_at" json:"updated_at"`
}

// AvailableSeats is derived from the server-side seat counter only.
func (e *Event) AvailableSeats() int {
	if e.SeatsTaken >= e.Capacity {
		return 0
	}
	return e.Capacity - e.SeatsTaken
}

// EventSummary is an event with its registration counts, as shown on the
// organizer dashboard.
type EventSummary struct {
	Event
	PendingCount  int `db:"pending_count" json:"pending_count"`
	ApprovedCount int `db:"approved_count" json:"approved_count"`
}

type Registration struct {
	ID             string             `db:"id" json:"id"`
	EventID        string             `db:"event_id" json:"event_id"`
	StudentID      string             `db:"student_id" json:"student_id"`
	Status         RegistrationStatus `db:"status" json:"status"`
	QRCode         string             `db:"qr_code" json:"qr_code"`
	RegisteredAt   time.Time          `db:"registered_at" json:"registered_at"`
	CheckedInAt    *time.Time         `db:"checked_in_at" json:"checked_in_at,omitempty"`
	CertificateURL *string            `db:"certificate_url" json:"certificate_url,omitempty"`
	UpdatedAt      time.Time          `db:"updated_at" json:"updated_at"`

	StudentName  string `db:"student_name" json:"student_name,omitempty"`
	StudentEmail string `db:"student_email" json:"student_email,omitempty"`
}

// Active reports whether the registration counts against capacity in the
// glossary sense (pending or approved).
func (r *Registration) Active() bool {
	return r.Status == RegistrationPending || r.Status == RegistrationApproved
}

type UserProfile struct {
	ID         string    `db:"id" json:"id"`
	Email      string    `db:"email" json:"email"`
	Role       Role      `db:"role" json:"role"`
	Name       string    `db:"name" json:"name"`
	Phone      string    `db:"phone" json:"phone"`
	Department string    `db:"department" json:"department"`
	RegisterNo string    `db:"register_no" json:"register_no"`
	BatchYear  string    `db:"batch_year" json:"batch_year"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
	UpdatedAt  time.Time `db:"updated_at" json:"updated_at"`

	PasswordHash *string `db:"password_hash" json:"-"`
	GoogleID     *string `db:"google_id" json:"-"`
}

// ProfileFields are the user-editable parts of a profile.
type ProfileFields struct {
	Name       string
	Phone      string
	Department string
	RegisterNo string
	BatchYear  string
}

type CertificateTemplate struct {
	EventID      string    `db:"event_id" json:"event_id"`
	TemplateHTML string    `db:"template_html" json:"template_html"`
	Placeholder  string    `db:"placeholder" json:"placeholder"`
	UploadedBy   string    `db:"uploaded_by" json:"uploaded_by"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time `db:"updated_at" json:"updated_at"`
}

const DefaultCertificatePlaceholder = "{{studentName}}"
