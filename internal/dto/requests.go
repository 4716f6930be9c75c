package dto

import "time"

type SignupRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8,max=72"`
	Name     string `json:"name" validate:"max=255"`
}

type LoginRequest struct {
	Email    string `json:"email" validate:"required"`
	Password string `json:"password" validate:"required"`
}

type GoogleLoginRequest struct {
	IDToken string `json:"id_token" validate:"required"`
}

// EventRequest is accepted as JSON or as multipart form fields.
type EventRequest struct {
	Name        string    `json:"name" form:"name" validate:"notblank,max=255"`
	Description string    `json:"description" form:"description" validate:"max=10000"`
	StartsAt    time.Time `json:"starts_at" form:"starts_at" time_format:"2006-01-02T15:04:05Z07:00" validate:"required"`
	Venue       string    `json:"venue" form:"venue" validate:"max=255"`
	Capacity    int       `json:"capacity" form:"capacity" validate:"positive"`
}

type EventStatusRequest struct {
	Status string `json:"status" validate:"required,oneof=draft published archived completed"`
}

type RegistrationStatusRequest struct {
	Status string `json:"status" validate:"required,oneof=pending approved rejected attended"`
}

type CheckInRequest struct {
	Code string `json:"code" validate:"required,max=255"`
}

type ProfileRequest struct {
	Name       string `json:"name" validate:"max=255"`
	Phone      string `json:"phone" validate:"max=32"`
	Department string `json:"department" validate:"max=255"`
	RegisterNo string `json:"register_no" validate:"max=64"`
	BatchYear  string `json:"batch_year" validate:"max=16"`
}

type RoleRequest struct {
	Role string `json:"role" validate:"required,oneof=student organizer coadmin admin"`
}

type CertificateTemplateRequest struct {
	TemplateHTML string `json:"template_html" validate:"required"`
	Placeholder  string `json:"placeholder" validate:"max=64"`
}
