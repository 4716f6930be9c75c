package dto

import (
	"time"

	"eventide/internal/model"
)

type EventResponse struct {
	ID             string    `json:"id"`
	Name           string    `json:"name"`
	Description    string    `json:"description"`
	StartsAt       time.Time `json:"starts_at"`
	Venue          string    `json:"venue"`
	Capacity       int       `json:"capacity"`
	SeatsTaken     int       `json:"seats_taken"`
	AvailableSeats int       `json:"available_seats"`
	ImageURL       *string   `json:"image_url,omitempty"`
	BrochureURL    *string   `json:"brochure_url,omitempty"`
	OrganizerID    string    `json:"organizer_id"`
	Status         string    `json:"status"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

func NewEventResponse(e *model.Event) EventResponse {
	return EventResponse{
		ID:             e.ID,
		Name:           e.Name,
		Description:    e.Description,
		StartsAt:       e.StartsAt,
		Venue:          e.Venue,
		Capacity:       e.Capacity,
		SeatsTaken:     e.SeatsTaken,
		AvailableSeats: e.AvailableSeats(),
		ImageURL:       e.ImageURL,
		BrochureURL:    e.BrochureURL,
		OrganizerID:    e.OrganizerID,
		Status:         string(e.Status),
		CreatedAt:      e.CreatedAt,
		UpdatedAt:      e.UpdatedAt,
	}
}

func NewEventList(events []model.Event) []EventResponse {
	out := make([]EventResponse, 0, len(events))
	for i := range events {
		out = append(out, NewEventResponse(&events[i]))
	}
	return out
}

type EventSummaryResponse struct {
	EventResponse
	PendingCount  int `json:"pending_count"`
	ApprovedCount int `json:"approved_count"`
}

func NewEventSummaryList(summaries []model.EventSummary) []EventSummaryResponse {
	out := make([]EventSummaryResponse, 0, len(summaries))
	for i := range summaries {
		out = append(out, EventSummaryResponse{
			EventResponse: NewEventResponse(&summaries[i].Event),
			PendingCount:  summaries[i].PendingCount,
			ApprovedCount: summaries[i].ApprovedCount,
		})
	}
	return out
}

type RegistrationResponse struct {
	ID             string     `json:"id"`
	EventID        string     `json:"event_id"`
	StudentID      string     `json:"student_id"`
	StudentName    string     `json:"student_name,omitempty"`
	StudentEmail   string     `json:"student_email,omitempty"`
	Status         string     `json:"status"`
	QRCode         string     `json:"qr_code,omitempty"`
	RegisteredAt   time.Time  `json:"registered_at"`
	CheckedInAt    *time.Time `json:"checked_in_at,omitempty"`
	CertificateURL *string    `json:"certificate_url,omitempty"`
	UpdatedAt      time.Time  `json:"updated_at"`
}

func NewRegistrationResponse(r *model.Registration) RegistrationResponse {
	return RegistrationResponse{
		ID:             r.ID,
		EventID:        r.EventID,
		StudentID:      r.StudentID,
		StudentName:    r.StudentName,
		StudentEmail:   r.StudentEmail,
		Status:         string(r.Status),
		QRCode:         r.QRCode,
		RegisteredAt:   r.RegisteredAt,
		CheckedInAt:    r.CheckedInAt,
		CertificateURL: r.CertificateURL,
		UpdatedAt:      r.UpdatedAt,
	}
}

func NewRegistrationList(regs []model.Registration) []RegistrationResponse {
	out := make([]RegistrationResponse, 0, len(regs))
	for i := range regs {
		out = append(out, NewRegistrationResponse(&regs[i]))
	}
	return out
}

type StudentResponse struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

type CheckInResponse struct {
	Outcome      string               `json:"outcome"`
	CheckedInAt  time.Time            `json:"checked_in_at"`
	Student      StudentResponse      `json:"student"`
	Registration RegistrationResponse `json:"registration"`
}

type UserResponse struct {
	ID         string    `json:"id"`
	Email      string    `json:"email"`
	Role       string    `json:"role"`
	Name       string    `json:"name"`
	Phone      string    `json:"phone"`
	Department string    `json:"department"`
	RegisterNo string    `json:"register_no"`
	BatchYear  string    `json:"batch_year"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

func NewUserResponse(u *model.UserProfile) UserResponse {
	return UserResponse{
		ID:         u.ID,
		Email:      u.Email,
		Role:       string(u.Role),
		Name:       u.Name,
		Phone:      u.Phone,
		Department: u.Department,
		RegisterNo: u.RegisterNo,
		BatchYear:  u.BatchYear,
		CreatedAt:  u.CreatedAt,
		UpdatedAt:  u.UpdatedAt,
	}
}

func NewUserList(users []model.UserProfile) []UserResponse {
	out := make([]UserResponse, 0, len(users))
	for i := range users {
		out = append(out, NewUserResponse(&users[i]))
	}
	return out
}

type SessionResponse struct {
	Token     string       `json:"token"`
	ExpiresAt time.Time    `json:"expires_at"`
	User      UserResponse `json:"user"`
}
