package service

import (
	"context"
	"strings"
	"time"

	"eventide/internal/apperr"
	"eventide/internal/dto"
	"eventide/internal/live"
	"eventide/internal/metrics"
	"eventide/internal/model"
)

type CheckInOutcome string

const (
	CheckedIn        CheckInOutcome = "checked_in"
	AlreadyCheckedIn CheckInOutcome = "already_checked_in"
)

type StudentRef struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

type CheckInResult struct {
	Outcome      CheckInOutcome      `json:"outcome"`
	CheckedInAt  time.Time           `json:"checked_in_at"`
	Student      StudentRef          `json:"student"`
	Registration *model.Registration `json:"registration"`
}

// CheckIn marks the registration behind a scanned code as attended.
// Repeated scans report AlreadyCheckedIn with the first scan's time.
func (s *service) CheckIn(ctx context.Context, callerID, eventID, code string) (res *CheckInResult, err error) {
	defer func() {
		outcome := "error"
		switch {
		case err != nil:
			outcome = string(apperr.KindOf(err))
		case res != nil:
			outcome = string(res.Outcome)
		}
		metrics.CheckIns.WithLabelValues(outcome).Inc()
	}()

	caller, _, err := s.caller(ctx, callerID)
	if err != nil {
		return nil, err
	}
	if _, err := s.eventForManager(ctx, caller, eventID); err != nil {
		return nil, err
	}
	code = strings.TrimSpace(code)
	if code == "" {
		return nil, apperr.New(apperr.KindInvalidCode, "code is empty")
	}

	// marked survives retries: once this call has flipped the row, a
	// failed read must not turn it into AlreadyCheckedIn.
	marked := false
	err = s.withRetry("check in", func() error {
		if !marked {
			done, err := s.repo.MarkAttended(ctx, eventID, code, s.now())
			if err != nil {
				return err
			}
			marked = done
		}
		reg, err := s.repo.GetRegistrationByCode(ctx, eventID, code)
		if err != nil {
			return err
		}
		switch {
		case marked:
			res = newCheckInResult(CheckedIn, reg)
		case reg.Status == model.RegistrationAttended:
			res = newCheckInResult(AlreadyCheckedIn, reg)
		case reg.Status == model.RegistrationRejected:
			return apperr.New(apperr.KindInvalidForCheckIn, "registration was rejected")
		default:
			// The registration changed between the update and the read.
			return apperr.New(apperr.KindConflict, "registration changed during check-in")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if res.Outcome == CheckedIn {
		s.log.Info().Str("event_id", eventID).Str("registration_id", res.Registration.ID).Str("caller_id", caller.ID).Msg("student checked in")
		if s.live != nil {
			s.live.Broadcast(eventID, live.Message{Type: "checkin", Data: res})
		}
		s.publish(ctx, dto.MessageAttended, res.Registration)
	}
	return res, nil
}

func newCheckInResult(outcome CheckInOutcome, reg *model.Registration) *CheckInResult {
	res := &CheckInResult{
		Outcome:      outcome,
		Student:      StudentRef{ID: reg.StudentID, Name: reg.StudentName, Email: reg.StudentEmail},
		Registration: reg,
	}
	if reg.CheckedInAt != nil {
		res.CheckedInAt = *reg.CheckedInAt
	}
	return res
}

// AuthorizeLiveFeed checks the caller may watch an event's check-ins.
func (s *service) AuthorizeLiveFeed(ctx context.Context, callerID, eventID string) error {
	caller, _, err := s.caller(ctx, callerID)
	if err != nil {
		return err
	}
	_, err = s.eventForManager(ctx, caller, eventID)
	return err
}
