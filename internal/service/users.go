package service

import (
	"context"
	"strings"

	"eventide/internal/access"
	"eventide/internal/apperr"
	"eventide/internal/model"
)

func (s *service) Me(ctx context.Context, callerID string) (*model.UserProfile, error) {
	_, u, err := s.caller(ctx, callerID)
	return u, err
}

func (s *service) UpdateProfile(ctx context.Context, callerID string, f model.ProfileFields) (*model.UserProfile, error) {
	caller, _, err := s.caller(ctx, callerID)
	if err != nil {
		return nil, err
	}
	f.Name = strings.TrimSpace(f.Name)
	f.Phone = strings.TrimSpace(f.Phone)
	f.Department = strings.TrimSpace(f.Department)
	f.RegisterNo = strings.TrimSpace(f.RegisterNo)
	f.BatchYear = strings.TrimSpace(f.BatchYear)
	if err := s.repo.UpdateProfile(ctx, caller.ID, f, s.now()); err != nil {
		return nil, err
	}
	return s.repo.GetUserByID(ctx, caller.ID)
}

func (s *service) ListUsers(ctx context.Context, callerID string) ([]model.UserProfile, error) {
	caller, _, err := s.caller(ctx, callerID)
	if err != nil {
		return nil, err
	}
	if err := access.Authorize(caller, access.ListUsers, access.Target{}).Err(); err != nil {
		return nil, err
	}
	return s.repo.ListUsers(ctx)
}

// SetUserRole changes a user's role. Changes apply from the target's next
// request since roles are never cached.
func (s *service) SetUserRole(ctx context.Context, callerID, userID string, role model.Role) (*model.UserProfile, error) {
	caller, _, err := s.caller(ctx, callerID)
	if err != nil {
		return nil, err
	}
	if !model.ValidRole(role) {
		return nil, apperr.Invalid("unknown role " + string(role))
	}
	if err := access.Authorize(caller, access.ManageRoles, access.Target{UserID: userID, NewRole: role}).Err(); err != nil {
		return nil, err
	}
	if err := s.repo.UpdateUserRole(ctx, userID, role, s.now()); err != nil {
		return nil, err
	}
	s.log.Info().Str("user_id", userID).Str("role", string(role)).Str("caller_id", caller.ID).Msg("user role changed")
	return s.repo.GetUserByID(ctx, userID)
}
