package service

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"
	"github.com/wb-go/wbf/retry"

	"eventide/internal/access"
	"eventide/internal/apperr"
	"eventide/internal/dto"
	"eventide/internal/live"
	"eventide/internal/mailer"
	"eventide/internal/media"
	"eventide/internal/metrics"
	"eventide/internal/model"
	"eventide/internal/repo"
)

type Service interface {
	CreateEvent(ctx context.Context, callerID string, in EventInput, files Attachments) (*model.Event, []string, error)
	UpdateEvent(ctx context.Context, callerID, eventID string, in EventInput) (*model.Event, error)
	UpdateEventStatus(ctx context.Context, callerID, eventID string, to model.EventStatus) (*model.Event, error)
	AttachImage(ctx context.Context, callerID, eventID string, data []byte) (*model.Event, error)
	AttachBrochure(ctx context.Context, callerID, eventID string, data []byte) (*model.Event, error)
	GetEvent(ctx context.Context, callerID, eventID string) (*model.Event, error)
	ListPublishedEvents(ctx context.Context) ([]model.Event, error)
	ListManagedEvents(ctx context.Context, callerID string) ([]model.EventSummary, error)

	Register(ctx context.Context, callerID, eventID string) (*model.Registration, error)
	UpdateRegistrationStatus(ctx context.Context, callerID, registrationID string, to model.RegistrationStatus) (*model.Registration, error)
	ListEventRegistrations(ctx context.Context, callerID, eventID string) ([]model.Registration, error)
	ListMyRegistrations(ctx context.Context, callerID string) ([]model.Registration, error)
	RegistrationQR(ctx context.Context, callerID, registrationID string) ([]byte, error)
	CheckIn(ctx context.Context, callerID, eventID, code string) (*CheckInResult, error)
	AuthorizeLiveFeed(ctx context.Context, callerID, eventID string) error

	Me(ctx context.Context, callerID string) (*model.UserProfile, error)
	UpdateProfile(ctx context.Context, callerID string, fields model.ProfileFields) (*model.UserProfile, error)
	ListUsers(ctx context.Context, callerID string) ([]model.UserProfile, error)
	SetUserRole(ctx context.Context, callerID, userID string, role model.Role) (*model.UserProfile, error)

	SetCertificateTemplate(ctx context.Context, callerID, eventID, templateHTML, placeholder string) (*model.CertificateTemplate, error)
	GetCertificateTemplate(ctx context.Context, callerID, eventID string) (*model.CertificateTemplate, error)

	NotifyStatusChange(ctx context.Context, registrationID string) error
	IssueCertificate(ctx context.Context, registrationID string) (string, error)
}

// Publisher hands registration messages to the async pipeline.
type Publisher interface {
	Publish(ctx context.Context, msg dto.RegistrationMessage) error
}

// LiveFeed pushes check-in activity to connected organizers.
type LiveFeed interface {
	Broadcast(eventID string, msg live.Message)
}

// FileStore persists attachments and certificates and returns their
// public URL.
type FileStore interface {
	Save(ctx context.Context, dir, ext string, data []byte) (string, error)
}

type Deps struct {
	Repo      repo.Repository
	Log       *zerolog.Logger
	Publisher Publisher
	Live      LiveFeed
	Files     FileStore
	Mailer    mailer.Sender
	Retry     retry.Strategy
	Image     media.ImageOptions
	// PublicURL prefixes stored file URLs in outgoing emails.
	PublicURL string
	Now       func() time.Time
}

type service struct {
	repo      repo.Repository
	log       *zerolog.Logger
	pub       Publisher
	live      LiveFeed
	files     FileStore
	mail      mailer.Sender
	retry     retry.Strategy
	image     media.ImageOptions
	publicURL string
	now       func() time.Time
}

var DefaultRetry = retry.Strategy{Attempts: 3, Delay: 20 * time.Millisecond, Backoff: 2}

func NewService(d Deps) Service {
	s := &service{
		repo:      d.Repo,
		log:       d.Log,
		pub:       d.Publisher,
		live:      d.Live,
		files:     d.Files,
		mail:      d.Mailer,
		retry:     d.Retry,
		image:     d.Image,
		publicURL: d.PublicURL,
		now:       d.Now,
	}
	if s.log == nil {
		nop := zerolog.Nop()
		s.log = &nop
	}
	if s.retry.Attempts <= 0 {
		s.retry = DefaultRetry
	}
	if s.image.Quality <= 0 {
		s.image = media.DefaultImageOptions
	}
	if s.now == nil {
		s.now = func() time.Time { return time.Now().UTC().Truncate(time.Microsecond) }
	}
	return s
}

// caller resolves callerID to its stored identity. Roles are re-read on
// every call so a role change takes effect immediately.
func (s *service) caller(ctx context.Context, callerID string) (access.Caller, *model.UserProfile, error) {
	if callerID == "" {
		return access.Caller{}, nil, apperr.New(apperr.KindUnauthenticated, "authentication required")
	}
	u, err := s.repo.GetUserByID(ctx, callerID)
	if errors.Is(err, apperr.ErrNotFound) {
		return access.Caller{}, nil, apperr.New(apperr.KindUnauthenticated, "unknown caller")
	}
	if err != nil {
		return access.Caller{}, nil, err
	}
	return access.Caller{ID: u.ID, Role: u.Role}, u, nil
}

// withRetry runs fn until it succeeds, fails with a terminal error, or
// the retry budget is spent. Exhausted retries surface as Transient.
func (s *service) withRetry(op string, fn func() error) error {
	var terminal error
	attempt := 0
	err := retry.Do(func() error {
		attempt++
		err := fn()
		if err == nil {
			return nil
		}
		if apperr.Retryable(err) {
			metrics.Retries.WithLabelValues(op).Inc()
			s.log.Warn().Err(err).Str("op", op).Int("attempt", attempt).Msg("retryable storage error")
			return err
		}
		terminal = err
		return nil
	}, s.retry)
	if terminal != nil {
		return terminal
	}
	if err != nil {
		return apperr.Wrap(apperr.KindTransient, err, op+": storage busy, try again later")
	}
	return nil
}

func (s *service) publish(ctx context.Context, msgType string, reg *model.Registration) {
	if s.pub == nil {
		return
	}
	msg := dto.RegistrationMessage{
		Type:           msgType,
		RegistrationID: reg.ID,
		EventID:        reg.EventID,
		Status:         string(reg.Status),
		OccurredAt:     s.now(),
	}
	if err := s.pub.Publish(ctx, msg); err != nil {
		s.log.Warn().Err(err).Str("type", msgType).Str("registration_id", reg.ID).Msg("failed to publish message")
	}
}

// eventForManager loads an event and checks the caller may manage it.
func (s *service) eventForManager(ctx context.Context, caller access.Caller, eventID string) (*model.Event, error) {
	ev, err := s.repo.GetEventByID(ctx, eventID)
	if err != nil {
		return nil, err
	}
	if err := access.Authorize(caller, access.ManageEvent, access.Target{EventOrganizerID: ev.OrganizerID}).Err(); err != nil {
		return nil, err
	}
	return ev, nil
}
