package service

import (
	"context"
	"errors"
	"strings"

	"eventide/internal/apperr"
	"eventide/internal/certificate"
	"eventide/internal/mailer"
	"eventide/internal/model"
)

func (s *service) SetCertificateTemplate(ctx context.Context, callerID, eventID, templateHTML, placeholder string) (*model.CertificateTemplate, error) {
	caller, _, err := s.caller(ctx, callerID)
	if err != nil {
		return nil, err
	}
	if _, err := s.eventForManager(ctx, caller, eventID); err != nil {
		return nil, err
	}
	if placeholder == "" {
		placeholder = model.DefaultCertificatePlaceholder
	}
	if err := certificate.Validate(templateHTML, placeholder); err != nil {
		return nil, err
	}

	now := s.now()
	t := &model.CertificateTemplate{
		EventID:      eventID,
		TemplateHTML: templateHTML,
		Placeholder:  placeholder,
		UploadedBy:   caller.ID,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.repo.UpsertCertificateTemplate(ctx, t); err != nil {
		return nil, err
	}
	return s.repo.GetCertificateTemplate(ctx, eventID)
}

func (s *service) GetCertificateTemplate(ctx context.Context, callerID, eventID string) (*model.CertificateTemplate, error) {
	caller, _, err := s.caller(ctx, callerID)
	if err != nil {
		return nil, err
	}
	if _, err := s.eventForManager(ctx, caller, eventID); err != nil {
		return nil, err
	}
	return s.repo.GetCertificateTemplate(ctx, eventID)
}

// NotifyStatusChange emails the student about the registration's current
// status.
func (s *service) NotifyStatusChange(ctx context.Context, registrationID string) error {
	reg, err := s.repo.GetRegistrationByID(ctx, registrationID)
	if err != nil {
		return err
	}
	ev, err := s.repo.GetEventByID(ctx, reg.EventID)
	if err != nil {
		return err
	}
	if s.mail == nil {
		return nil
	}
	subject, body := mailer.StatusEmail(ev.Name, reg.Status)
	return s.mail.Send(ctx, reg.StudentEmail, subject, body)
}

// IssueCertificate renders and stores the certificate of an attended
// registration and emails its link. It is a no-op when the certificate
// already exists or the event has no template.
func (s *service) IssueCertificate(ctx context.Context, registrationID string) (string, error) {
	reg, err := s.repo.GetRegistrationByID(ctx, registrationID)
	if err != nil {
		return "", err
	}
	if reg.Status != model.RegistrationAttended {
		return "", apperr.New(apperr.KindInvalid, "certificates are only issued for attended registrations")
	}
	if reg.CertificateURL != nil {
		return *reg.CertificateURL, nil
	}

	tpl, err := s.repo.GetCertificateTemplate(ctx, reg.EventID)
	if errors.Is(err, apperr.ErrNotFound) {
		s.log.Info().Str("event_id", reg.EventID).Msg("no certificate template, skipping certificate")
		return "", nil
	}
	if err != nil {
		return "", err
	}
	if s.files == nil {
		return "", apperr.New(apperr.KindInternal, "file storage is not configured")
	}

	name := strings.TrimSpace(reg.StudentName)
	if name == "" {
		name = reg.StudentEmail
	}
	url, err := s.files.Save(ctx, "certificates/"+reg.EventID, ".html", certificate.Render(tpl, name))
	if err != nil {
		return "", apperr.Wrap(apperr.KindTransient, err, "certificate could not be saved")
	}
	if err := s.repo.SetCertificateURL(ctx, reg.ID, url, s.now()); err != nil {
		return "", err
	}
	s.log.Info().Str("registration_id", reg.ID).Str("url", url).Msg("certificate issued")

	if s.mail != nil {
		ev, err := s.repo.GetEventByID(ctx, reg.EventID)
		if err != nil {
			return url, nil
		}
		subject, body := mailer.CertificateEmail(ev.Name, name, s.publicURL+url)
		if err := s.mail.Send(ctx, reg.StudentEmail, subject, body); err != nil {
			s.log.Warn().Err(err).Str("registration_id", reg.ID).Msg("certificate email not sent")
		}
	}
	return url, nil
}
