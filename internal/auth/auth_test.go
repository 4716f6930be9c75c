package auth

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"

	"eventide/internal/apperr"
	"eventide/internal/model"
	"eventide/internal/repo/repotest"
)

type fakeGoogle struct {
	id  *GoogleIdentity
	err error
}

func (f fakeGoogle) Verify(string) (*GoogleIdentity, error) { return f.id, f.err }

func newTestAuth(t *testing.T, google GoogleVerifier) *Authenticator {
	t.Helper()
	log := zerolog.Nop()
	a := New(repotest.New(t), Config{Secret: "test-secret", Issuer: "eventide", TTL: time.Hour, AdminEmail: "Root@Example.test"}, google, &log)
	a.hashCost = bcrypt.MinCost
	return a
}

func TestSignupAndLogin(t *testing.T) {
	ctx := context.Background()
	a := newTestAuth(t, nil)

	s, err := a.Signup(ctx, " Ada@Example.test ", "correct horse", "Ada")
	if err != nil {
		t.Fatal(err)
	}
	if s.User.Email != "ada@example.test" || s.User.Role != model.RoleStudent {
		t.Fatalf("unexpected user %+v", s.User)
	}
	sub, err := a.Tokens().Parse(s.Token)
	if err != nil || sub != s.User.ID {
		t.Fatalf("token subject %q err %v", sub, err)
	}

	if _, err := a.Signup(ctx, "ada@example.test", "another pass", "Ada"); !errors.Is(err, apperr.ErrConflict) {
		t.Fatalf("duplicate signup: expected Conflict, got %v", err)
	}
	if _, err := a.Login(ctx, "ada@example.test", "wrong password"); !errors.Is(err, apperr.ErrUnauthenticated) {
		t.Fatalf("wrong password: expected Unauthenticated, got %v", err)
	}
	if _, err := a.Login(ctx, "nobody@example.test", "whatever1"); !errors.Is(err, apperr.ErrUnauthenticated) {
		t.Fatalf("unknown user: expected Unauthenticated, got %v", err)
	}
	if _, err := a.Login(ctx, "ADA@example.test", "correct horse"); err != nil {
		t.Fatalf("login: %v", err)
	}
}

func TestSignupValidation(t *testing.T) {
	ctx := context.Background()
	a := newTestAuth(t, nil)
	if _, err := a.Signup(ctx, "not-an-email", "longenough", ""); !errors.Is(err, apperr.ErrInvalid) {
		t.Fatalf("expected Invalid, got %v", err)
	}
	if _, err := a.Signup(ctx, "a@example.test", "short", ""); !errors.Is(err, apperr.ErrInvalid) {
		t.Fatalf("expected Invalid, got %v", err)
	}
}

func TestBootstrapAdmin(t *testing.T) {
	a := newTestAuth(t, nil)
	s, err := a.Signup(context.Background(), "root@example.test", "supersecret", "Root")
	if err != nil {
		t.Fatal(err)
	}
	if s.User.Role != model.RoleAdmin {
		t.Fatalf("role %s", s.User.Role)
	}
}

func TestGoogleSignIn(t *testing.T) {
	ctx := context.Background()
	a := newTestAuth(t, fakeGoogle{id: &GoogleIdentity{Sub: "g-123", Email: "grace@example.test", EmailVerified: true, Name: "Grace"}})

	first, err := a.Google(ctx, "token")
	if err != nil {
		t.Fatal(err)
	}
	second, err := a.Google(ctx, "token")
	if err != nil {
		t.Fatal(err)
	}
	if first.User.ID != second.User.ID {
		t.Fatal("second sign-in created another account")
	}
	if _, err := a.Login(ctx, "grace@example.test", "anything1"); !errors.Is(err, apperr.ErrUnauthenticated) {
		t.Fatalf("password login for google account: got %v", err)
	}

	rejected := newTestAuth(t, fakeGoogle{err: errors.New("bad signature")})
	if _, err := rejected.Google(ctx, "token"); !errors.Is(err, apperr.ErrUnauthenticated) {
		t.Fatalf("expected Unauthenticated, got %v", err)
	}
}

func TestGoogleLinksExistingAccount(t *testing.T) {
	ctx := context.Background()
	id := &GoogleIdentity{Sub: "g-9", Email: "Lin@example.test", Name: "Lin"}
	a := newTestAuth(t, fakeGoogle{id: id})
	local, err := a.Signup(ctx, "lin@example.test", "password123", "Lin")
	if err != nil {
		t.Fatal(err)
	}

	if _, err := a.Google(ctx, "token"); !errors.Is(err, apperr.ErrUnauthenticated) {
		t.Fatalf("unverified email: expected Unauthenticated, got %v", err)
	}
	stored, err := a.repo.GetUserByID(ctx, local.User.ID)
	if err != nil {
		t.Fatal(err)
	}
	if stored.GoogleID != nil {
		t.Fatal("unverified google identity was linked")
	}

	id.EmailVerified = true
	g, err := a.Google(ctx, "token")
	if err != nil {
		t.Fatal(err)
	}
	if g.User.ID != local.User.ID {
		t.Fatal("google sign-in did not link the existing account")
	}
}

func TestGoogleRejectsUnverifiedNewAccount(t *testing.T) {
	ctx := context.Background()
	a := newTestAuth(t, fakeGoogle{id: &GoogleIdentity{Sub: "g-77", Email: "root@example.test", Name: "Mallory"}})
	if _, err := a.Google(ctx, "token"); !errors.Is(err, apperr.ErrUnauthenticated) {
		t.Fatalf("expected Unauthenticated, got %v", err)
	}
	if _, err := a.repo.GetUserByEmail(ctx, "root@example.test"); !errors.Is(err, apperr.ErrNotFound) {
		t.Fatalf("account created from unverified email: %v", err)
	}
}

func TestTokens(t *testing.T) {
	tokens := NewTokens("secret", "eventide", time.Minute)
	now := time.Now()

	tok, exp, err := tokens.Issue("user-1", now)
	if err != nil {
		t.Fatal(err)
	}
	if !exp.Equal(now.Add(time.Minute)) {
		t.Fatalf("expiry %v", exp)
	}
	if sub, err := tokens.Parse(tok); err != nil || sub != "user-1" {
		t.Fatalf("parse: %q %v", sub, err)
	}

	expired, _, _ := tokens.Issue("user-1", now.Add(-time.Hour))
	if _, err := tokens.Parse(expired); !errors.Is(err, apperr.ErrUnauthenticated) {
		t.Fatalf("expired token: got %v", err)
	}
	if _, err := NewTokens("other", "eventide", time.Minute).Parse(tok); err == nil {
		t.Fatal("token signed with another secret accepted")
	}
	if _, err := NewTokens("secret", "someone-else", time.Minute).Parse(tok); err == nil {
		t.Fatal("token from another issuer accepted")
	}
}
