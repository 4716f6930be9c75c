package model

var eventTransitions = map[EventStatus][]EventStatus{
	EventDraft:     {EventPublished},
	EventPublished: {EventArchived, EventCompleted},
	EventArchived:  {EventDraft},
}

// CanTransitionEvent reports whether an event may move from one lifecycle
// status to another. Completed is terminal.
func CanTransitionEvent(from, to EventStatus) bool {
	for _, s := range eventTransitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

var registrationTransitions = map[RegistrationStatus][]RegistrationStatus{
	RegistrationPending:  {RegistrationApproved, RegistrationRejected},
	RegistrationApproved: {RegistrationRejected},
	RegistrationRejected: {RegistrationApproved},
}

// CanTransitionRegistration covers manager-driven transitions only.
// Attended is reached through check-in and never left.
func CanTransitionRegistration(from, to RegistrationStatus) bool {
	for _, s := range registrationTransitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// HoldsSeat reports whether a registration in this status occupies one of
// the event's seats.
func HoldsSeat(s RegistrationStatus) bool {
	switch s {
	case RegistrationPending, RegistrationApproved, RegistrationAttended:
		return true
	}
	return false
}

func ValidEventStatus(s EventStatus) bool {
	switch s {
	case EventDraft, EventPublished, EventArchived, EventCompleted:
		return true
	}
	return false
}

func ValidRegistrationStatus(s RegistrationStatus) bool {
	switch s {
	case RegistrationPending, RegistrationApproved, RegistrationRejected, RegistrationAttended:
		return true
	}
	return false
}

func ValidRole(r Role) bool {
	switch r {
	case RoleStudent, RoleOrganizer, RoleCoadmin, RoleAdmin:
		return true
	}
	return false
}
