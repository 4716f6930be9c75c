package dto

import "time"

const (
	MessageStatusChanged = "registration.status"
	MessageAttended      = "registration.attended"
)

// RegistrationMessage is the body of every async message.
type RegistrationMessage struct {
	Type           string    `json:"type"`
	RegistrationID string    `json:"registration_id"`
	EventID        string    `json:"event_id"`
	Status         string    `json:"status"`
	OccurredAt     time.Time `json:"occurred_at"`
}
