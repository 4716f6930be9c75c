package service

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"

	"eventide/internal/access"
	"eventide/internal/apperr"
	"eventide/internal/media"
	"eventide/internal/model"
	"eventide/internal/repo"
)

type EventInput struct {
	Name        string
	Description string
	StartsAt    time.Time
	Venue       string
	Capacity    int
}

func (in EventInput) validate() error {
	if strings.TrimSpace(in.Name) == "" {
		return apperr.Invalid("event name is required")
	}
	if in.StartsAt.IsZero() {
		return apperr.Invalid("event date is required")
	}
	if in.Capacity <= 0 {
		return apperr.Invalid("capacity must be greater than zero")
	}
	return nil
}

// Attachments are optional files sent along with a new event.
type Attachments struct {
	Image    []byte
	Brochure []byte
}

// CreateEvent stores a draft event owned by the caller. Attachment
// failures do not undo the event; they are returned as warnings.
func (s *service) CreateEvent(ctx context.Context, callerID string, in EventInput, files Attachments) (*model.Event, []string, error) {
	caller, _, err := s.caller(ctx, callerID)
	if err != nil {
		return nil, nil, err
	}
	if err := access.Authorize(caller, access.CreateEvent, access.Target{}).Err(); err != nil {
		return nil, nil, err
	}
	if err := in.validate(); err != nil {
		return nil, nil, err
	}

	now := s.now()
	ev := &model.Event{
		ID:          uuid.NewString(),
		Name:        strings.TrimSpace(in.Name),
		Description: in.Description,
		StartsAt:    in.StartsAt.UTC(),
		Venue:       in.Venue,
		Capacity:    in.Capacity,
		OrganizerID: caller.ID,
		Status:      model.EventDraft,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.repo.CreateEvent(ctx, ev); err != nil {
		return nil, nil, err
	}
	s.log.Info().Str("event_id", ev.ID).Str("caller_id", caller.ID).Msg("event created")

	var warnings []string
	if len(files.Image) > 0 {
		if err := s.storeImage(ctx, ev.ID, files.Image); err != nil {
			s.log.Warn().Err(err).Str("event_id", ev.ID).Msg("event image not stored")
			warnings = append(warnings, "image not stored: "+apperr.ReasonOf(err))
		}
	}
	if len(files.Brochure) > 0 {
		if err := s.storeBrochure(ctx, ev.ID, files.Brochure); err != nil {
			s.log.Warn().Err(err).Str("event_id", ev.ID).Msg("event brochure not stored")
			warnings = append(warnings, "brochure not stored: "+apperr.ReasonOf(err))
		}
	}
	if len(warnings) == 0 && len(files.Image) == 0 && len(files.Brochure) == 0 {
		return ev, nil, nil
	}

	stored, err := s.repo.GetEventByID(ctx, ev.ID)
	if err != nil {
		return ev, warnings, nil
	}
	return stored, warnings, nil
}

func (s *service) UpdateEvent(ctx context.Context, callerID, eventID string, in EventInput) (*model.Event, error) {
	caller, _, err := s.caller(ctx, callerID)
	if err != nil {
		return nil, err
	}
	ev, err := s.eventForManager(ctx, caller, eventID)
	if err != nil {
		return nil, err
	}
	if err := in.validate(); err != nil {
		return nil, err
	}

	ev.Name = strings.TrimSpace(in.Name)
	ev.Description = in.Description
	ev.StartsAt = in.StartsAt.UTC()
	ev.Venue = in.Venue
	ev.Capacity = in.Capacity
	ev.UpdatedAt = s.now()
	if err := s.repo.UpdateEventDetails(ctx, ev); err != nil {
		return nil, err
	}
	return s.repo.GetEventByID(ctx, eventID)
}

func (s *service) UpdateEventStatus(ctx context.Context, callerID, eventID string, to model.EventStatus) (*model.Event, error) {
	caller, _, err := s.caller(ctx, callerID)
	if err != nil {
		return nil, err
	}
	if !model.ValidEventStatus(to) {
		return nil, apperr.Invalid("unknown event status " + string(to))
	}

	err = s.withRetry("update event status", func() error {
		ev, err := s.eventForManager(ctx, caller, eventID)
		if err != nil {
			return err
		}
		if !model.CanTransitionEvent(ev.Status, to) {
			return apperr.Newf(apperr.KindInvalidTransition, "event cannot move from %s to %s", ev.Status, to)
		}
		return s.repo.UpdateEventStatus(ctx, eventID, ev.Status, to, s.now())
	})
	if err != nil {
		return nil, err
	}
	s.log.Info().Str("event_id", eventID).Str("status", string(to)).Str("caller_id", caller.ID).Msg("event status changed")
	return s.repo.GetEventByID(ctx, eventID)
}

func (s *service) AttachImage(ctx context.Context, callerID, eventID string, data []byte) (*model.Event, error) {
	caller, _, err := s.caller(ctx, callerID)
	if err != nil {
		return nil, err
	}
	if _, err := s.eventForManager(ctx, caller, eventID); err != nil {
		return nil, err
	}
	if err := s.storeImage(ctx, eventID, data); err != nil {
		return nil, err
	}
	return s.repo.GetEventByID(ctx, eventID)
}

func (s *service) AttachBrochure(ctx context.Context, callerID, eventID string, data []byte) (*model.Event, error) {
	caller, _, err := s.caller(ctx, callerID)
	if err != nil {
		return nil, err
	}
	if _, err := s.eventForManager(ctx, caller, eventID); err != nil {
		return nil, err
	}
	if err := s.storeBrochure(ctx, eventID, data); err != nil {
		return nil, err
	}
	return s.repo.GetEventByID(ctx, eventID)
}

func (s *service) storeImage(ctx context.Context, eventID string, data []byte) error {
	if s.files == nil {
		return apperr.New(apperr.KindInternal, "file storage is not configured")
	}
	webp, err := media.ToWebP(data, s.image)
	if err != nil {
		return err
	}
	url, err := s.files.Save(ctx, "events/"+eventID, ".webp", webp)
	if err != nil {
		return apperr.Wrap(apperr.KindInternal, err, "image could not be saved")
	}
	return s.repo.SetEventAttachment(ctx, eventID, repo.AttachmentImage, url, s.now())
}

func (s *service) storeBrochure(ctx context.Context, eventID string, data []byte) error {
	if s.files == nil {
		return apperr.New(apperr.KindInternal, "file storage is not configured")
	}
	ext, err := media.CheckBrochure(data)
	if err != nil {
		return err
	}
	url, err := s.files.Save(ctx, "events/"+eventID, ext, data)
	if err != nil {
		return apperr.Wrap(apperr.KindInternal, err, "brochure could not be saved")
	}
	return s.repo.SetEventAttachment(ctx, eventID, repo.AttachmentBrochure, url, s.now())
}

// GetEvent returns an event. Unpublished events are only visible to
// callers allowed to view them and read as not found to everyone else.
func (s *service) GetEvent(ctx context.Context, callerID, eventID string) (*model.Event, error) {
	ev, err := s.repo.GetEventByID(ctx, eventID)
	if err != nil {
		return nil, err
	}
	if ev.Status == model.EventPublished {
		return ev, nil
	}
	if callerID == "" {
		return nil, apperr.NotFound("event not published")
	}
	caller, _, err := s.caller(ctx, callerID)
	if err != nil {
		return nil, err
	}
	d := access.Authorize(caller, access.ViewEvent, access.Target{EventOrganizerID: ev.OrganizerID, EventStatus: ev.Status})
	if !d.Allowed {
		return nil, apperr.NotFound("event not published")
	}
	return ev, nil
}

func (s *service) ListPublishedEvents(ctx context.Context) ([]model.Event, error) {
	return s.repo.ListPublishedEvents(ctx)
}

// ListManagedEvents is the organizer dashboard: every event for admins and
// coadmins, the caller's own events for organizers.
func (s *service) ListManagedEvents(ctx context.Context, callerID string) ([]model.EventSummary, error) {
	caller, _, err := s.caller(ctx, callerID)
	if err != nil {
		return nil, err
	}
	if access.Authorize(caller, access.ListAllEvents, access.Target{}).Allowed {
		return s.repo.ListEventSummaries(ctx, "")
	}
	if err := access.Authorize(caller, access.CreateEvent, access.Target{}).Err(); err != nil {
		return nil, err
	}
	return s.repo.ListEventSummaries(ctx, caller.ID)
}
