// Package auth signs callers in and issues the bearer tokens that carry
// their identity. Roles are never put in tokens; they are read from
// storage on every request.
package auth

import (
	"context"
	"errors"
	"net/mail"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"

	"eventide/internal/apperr"
	"eventide/internal/model"
	"eventide/internal/repo"
)

const minPasswordLen = 8

type Config struct {
	Secret         string
	TTL            time.Duration
	Issuer         string
	GoogleClientID string
	// AdminEmail, when set, gets the admin role on first sign-in.
	AdminEmail string
}

type Session struct {
	Token     string             `json:"token"`
	ExpiresAt time.Time          `json:"expires_at"`
	User      *model.UserProfile `json:"user"`
}

type Authenticator struct {
	repo     repo.Repository
	tokens   *Tokens
	google   GoogleVerifier
	admin    string
	log      *zerolog.Logger
	now      func() time.Time
	hashCost int
}

func New(r repo.Repository, cfg Config, google GoogleVerifier, log *zerolog.Logger) *Authenticator {
	return &Authenticator{
		repo:     r,
		tokens:   NewTokens(cfg.Secret, cfg.Issuer, cfg.TTL),
		google:   google,
		admin:    strings.ToLower(strings.TrimSpace(cfg.AdminEmail)),
		log:      log,
		now:      func() time.Time { return time.Now().UTC().Truncate(time.Microsecond) },
		hashCost: bcrypt.DefaultCost,
	}
}

func (a *Authenticator) Tokens() *Tokens { return a.tokens }

func normalizeEmail(email string) (string, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if _, err := mail.ParseAddress(email); err != nil {
		return "", apperr.Invalid("email is not valid")
	}
	return email, nil
}

func (a *Authenticator) roleFor(email string) model.Role {
	if a.admin != "" && email == a.admin {
		return model.RoleAdmin
	}
	return model.RoleStudent
}

// Signup creates a local account and signs it in.
func (a *Authenticator) Signup(ctx context.Context, email, password, name string) (*Session, error) {
	email, err := normalizeEmail(email)
	if err != nil {
		return nil, err
	}
	if len(password) < minPasswordLen {
		return nil, apperr.Invalid("password must be at least 8 characters")
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), a.hashCost)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindInvalid, err, "password cannot be hashed")
	}
	hashed := string(hash)

	now := a.now()
	u := &model.UserProfile{
		ID:           uuid.NewString(),
		Email:        email,
		Role:         a.roleFor(email),
		Name:         strings.TrimSpace(name),
		PasswordHash: &hashed,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := a.repo.CreateUser(ctx, u); err != nil {
		return nil, err
	}
	a.log.Info().Str("user_id", u.ID).Str("role", string(u.Role)).Msg("account created")
	return a.session(u)
}

func (a *Authenticator) Login(ctx context.Context, email, password string) (*Session, error) {
	bad := apperr.New(apperr.KindUnauthenticated, "invalid email or password")
	email, err := normalizeEmail(email)
	if err != nil {
		return nil, bad
	}
	u, err := a.repo.GetUserByEmail(ctx, email)
	if errors.Is(err, apperr.ErrNotFound) {
		return nil, bad
	}
	if err != nil {
		return nil, err
	}
	if u.PasswordHash == nil {
		return nil, apperr.New(apperr.KindUnauthenticated, "this account signs in with Google")
	}
	if err := bcrypt.CompareHashAndPassword([]byte(*u.PasswordHash), []byte(password)); err != nil {
		return nil, bad
	}
	return a.session(u)
}

// Google signs in with a Google ID token. Unknown identities with a
// verified email get an account, or are linked to the local account with
// that email.
func (a *Authenticator) Google(ctx context.Context, idToken string) (*Session, error) {
	if a.google == nil {
		return nil, apperr.New(apperr.KindUnauthenticated, "google sign-in is not configured")
	}
	id, err := a.google.Verify(idToken)
	if err != nil {
		a.log.Warn().Err(err).Msg("google id token rejected")
		return nil, apperr.New(apperr.KindUnauthenticated, "invalid Google ID token")
	}

	u, err := a.repo.GetUserByGoogleID(ctx, id.Sub)
	if err == nil {
		return a.session(u)
	}
	if !errors.Is(err, apperr.ErrNotFound) {
		return nil, err
	}

	// An email Google has not verified may belong to someone else, so it
	// can neither claim an existing account nor register a new one.
	if !id.EmailVerified {
		return nil, apperr.New(apperr.KindUnauthenticated, "google account email is not verified")
	}
	email, err := normalizeEmail(id.Email)
	if err != nil {
		return nil, apperr.New(apperr.KindUnauthenticated, "google account has no usable email")
	}
	u, err = a.repo.GetUserByEmail(ctx, email)
	switch {
	case err == nil:
		if err := a.repo.LinkGoogleID(ctx, u.ID, id.Sub, a.now()); err != nil {
			return nil, err
		}
		return a.session(u)
	case !errors.Is(err, apperr.ErrNotFound):
		return nil, err
	}

	now := a.now()
	sub := id.Sub
	u = &model.UserProfile{
		ID:        uuid.NewString(),
		Email:     email,
		Role:      a.roleFor(email),
		Name:      strings.TrimSpace(id.Name),
		GoogleID:  &sub,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := a.repo.CreateUser(ctx, u); err != nil {
		return nil, err
	}
	a.log.Info().Str("user_id", u.ID).Msg("account created from google sign-in")
	return a.session(u)
}

func (a *Authenticator) session(u *model.UserProfile) (*Session, error) {
	token, exp, err := a.tokens.Issue(u.ID, a.now())
	if err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, err, "token could not be issued")
	}
	return &Session{Token: token, ExpiresAt: exp, User: u}, nil
}
