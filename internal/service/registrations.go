package service

import (
	"context"

	"github.com/google/uuid"

	"eventide/internal/access"
	"eventide/internal/apperr"
	"eventide/internal/dto"
	"eventide/internal/metrics"
	"eventide/internal/model"
	"eventide/internal/ticket"
)

// Register takes a seat for the caller at a published event. At most
// capacity registrations can hold a seat at once, whatever the
// concurrency.
func (s *service) Register(ctx context.Context, callerID, eventID string) (reg *model.Registration, err error) {
	defer func() {
		outcome := "ok"
		if err != nil {
			outcome = string(apperr.KindOf(err))
		}
		metrics.Registrations.WithLabelValues(outcome).Inc()
	}()

	caller, _, err := s.caller(ctx, callerID)
	if err != nil {
		return nil, err
	}
	if caller.Role != model.RoleStudent {
		return nil, apperr.Denied("only students can register for events")
	}
	if err := access.Authorize(caller, access.Register, access.Target{StudentID: caller.ID}).Err(); err != nil {
		return nil, err
	}

	now := s.now()
	reg = &model.Registration{
		ID:           uuid.NewString(),
		EventID:      eventID,
		StudentID:    caller.ID,
		Status:       model.RegistrationPending,
		QRCode:       ticket.NewCode(),
		RegisteredAt: now,
		UpdatedAt:    now,
	}
	err = s.withRetry("register", func() error {
		return s.repo.CreateRegistrationTx(ctx, reg)
	})
	if err != nil {
		s.log.Info().Err(err).Str("event_id", eventID).Str("caller_id", caller.ID).Msg("registration refused")
		return nil, err
	}

	s.log.Info().Str("event_id", eventID).Str("registration_id", reg.ID).Str("caller_id", caller.ID).Msg("registration created")
	return reg, nil
}

// UpdateRegistrationStatus applies a manager decision to a registration.
// The status is re-read on every attempt so a concurrent change is never
// overwritten.
func (s *service) UpdateRegistrationStatus(ctx context.Context, callerID, registrationID string, to model.RegistrationStatus) (*model.Registration, error) {
	caller, _, err := s.caller(ctx, callerID)
	if err != nil {
		return nil, err
	}
	if !model.ValidRegistrationStatus(to) {
		return nil, apperr.Invalid("unknown registration status " + string(to))
	}

	err = s.withRetry("update registration status", func() error {
		reg, err := s.repo.GetRegistrationByID(ctx, registrationID)
		if err != nil {
			return err
		}
		if _, err := s.eventForManager(ctx, caller, reg.EventID); err != nil {
			return err
		}
		if !model.CanTransitionRegistration(reg.Status, to) {
			return apperr.Newf(apperr.KindInvalidTransition, "registration cannot move from %s to %s", reg.Status, to)
		}
		return s.repo.TransitionRegistrationTx(ctx, reg, to, s.now())
	})
	if err != nil {
		return nil, err
	}

	reg, err := s.repo.GetRegistrationByID(ctx, registrationID)
	if err != nil {
		return nil, err
	}
	s.log.Info().Str("registration_id", reg.ID).Str("status", string(to)).Str("caller_id", caller.ID).Msg("registration status changed")
	s.publish(ctx, dto.MessageStatusChanged, reg)
	return reg, nil
}

// ListEventRegistrations returns an event's registrations newest first.
func (s *service) ListEventRegistrations(ctx context.Context, callerID, eventID string) ([]model.Registration, error) {
	caller, _, err := s.caller(ctx, callerID)
	if err != nil {
		return nil, err
	}
	ev, err := s.repo.GetEventByID(ctx, eventID)
	if err != nil {
		return nil, err
	}
	if err := access.Authorize(caller, access.ViewRegistration, access.Target{EventOrganizerID: ev.OrganizerID}).Err(); err != nil {
		return nil, err
	}
	return s.repo.ListRegistrationsByEvent(ctx, eventID)
}

func (s *service) ListMyRegistrations(ctx context.Context, callerID string) ([]model.Registration, error) {
	caller, _, err := s.caller(ctx, callerID)
	if err != nil {
		return nil, err
	}
	return s.repo.ListRegistrationsByStudent(ctx, caller.ID)
}

// RegistrationQR renders the registration's check-in code for its student
// or for a manager of the event.
func (s *service) RegistrationQR(ctx context.Context, callerID, registrationID string) ([]byte, error) {
	caller, _, err := s.caller(ctx, callerID)
	if err != nil {
		return nil, err
	}
	reg, err := s.repo.GetRegistrationByID(ctx, registrationID)
	if err != nil {
		return nil, err
	}
	ev, err := s.repo.GetEventByID(ctx, reg.EventID)
	if err != nil {
		return nil, err
	}
	target := access.Target{EventOrganizerID: ev.OrganizerID, StudentID: reg.StudentID}
	if err := access.Authorize(caller, access.ViewRegistration, target).Err(); err != nil {
		return nil, err
	}
	png, err := ticket.PNG(reg.QRCode, ticket.DefaultSize)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, err, "qr code could not be rendered")
	}
	return png, nil
}
