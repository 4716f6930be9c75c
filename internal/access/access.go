// Package access is the single authorization decision point. Decisions are
// a pure function of the caller's role and identity and of resource
// ownership.
package access

import (
	"eventide/internal/apperr"
	"eventide/internal/model"
)

type Action string

const (
	CreateEvent      Action = "event.create"
	ViewEvent        Action = "event.view"
	ManageEvent      Action = "event.manage"
	ListAllEvents    Action = "event.list_all"
	Register         Action = "registration.create"
	ViewRegistration Action = "registration.view"
	ManageRoles      Action = "user.set_role"
	ListUsers        Action = "user.list"
)

type Caller struct {
	ID   string
	Role model.Role
}

// Target describes the resource an action applies to. Only the fields
// relevant to the action need to be set.
type Target struct {
	EventOrganizerID string
	EventStatus      model.EventStatus
	StudentID        string
	UserID           string
	NewRole          model.Role
}

type Decision struct {
	Allowed bool
	Reason  string
}

func allow() Decision { return Decision{Allowed: true} }

func deny(reason string) Decision { return Decision{Reason: reason} }

// Err converts a denial into an apperr Denied error; nil when allowed.
func (d Decision) Err() error {
	if d.Allowed {
		return nil
	}
	return apperr.Denied(d.Reason)
}

func Authorize(caller Caller, action Action, target Target) Decision {
	if caller.ID == "" {
		return deny("caller is not authenticated")
	}
	switch caller.Role {
	case model.RoleAdmin:
		return authorizeAdmin(caller, action, target)
	case model.RoleCoadmin:
		return authorizeCoadmin(action)
	case model.RoleOrganizer:
		return authorizeOrganizer(caller, action, target)
	case model.RoleStudent:
		return authorizeStudent(caller, action, target)
	}
	return deny("unknown role")
}

func authorizeAdmin(caller Caller, action Action, target Target) Decision {
	if action == ManageRoles && target.UserID == caller.ID && target.NewRole != model.RoleAdmin {
		return deny("admins cannot remove their own admin role")
	}
	return allow()
}

func authorizeCoadmin(action Action) Decision {
	switch action {
	case ManageRoles, ListUsers:
		return deny("only admins can manage users")
	}
	return allow()
}

func authorizeOrganizer(caller Caller, action Action, target Target) Decision {
	switch action {
	case CreateEvent:
		return allow()
	case ViewEvent:
		if target.EventStatus == model.EventPublished || target.EventOrganizerID == caller.ID {
			return allow()
		}
		return deny("event is not published")
	case ManageEvent, ViewRegistration:
		if target.EventOrganizerID == caller.ID {
			return allow()
		}
		return deny("organizers can only manage their own events")
	case ListAllEvents:
		return deny("organizers can only list their own events")
	case Register:
		return deny("only students can register for events")
	case ManageRoles, ListUsers:
		return deny("only admins can manage users")
	}
	return deny("action not permitted")
}

func authorizeStudent(caller Caller, action Action, target Target) Decision {
	switch action {
	case ViewEvent:
		if target.EventStatus == model.EventPublished {
			return allow()
		}
		return deny("event is not published")
	case Register:
		if target.StudentID == "" || target.StudentID == caller.ID {
			return allow()
		}
		return deny("students can only register themselves")
	case ViewRegistration:
		if target.StudentID == caller.ID {
			return allow()
		}
		return deny("students can only view their own registrations")
	case CreateEvent, ManageEvent, ListAllEvents:
		return deny("students cannot manage events")
	case ManageRoles, ListUsers:
		return deny("only admins can manage users")
	}
	return deny("action not permitted")
}
