package models

import "time"

// ShareEventType names the kind of event a family share points at.
type ShareEventType string

const (
	ShareEventAppointment ShareEventType = "appointment"
	ShareEventCountdown   ShareEventType = "countdown"
)

// Valid reports whether t is a shareable event type.
func (t ShareEventType) Valid() bool {
	return t == ShareEventAppointment || t == ShareEventCountdown
}

// FamilyCalendarShare makes one appointment or countdown visible to selected users.
type FamilyCalendarShare struct {
	ID             string         `db:"id" json:"id"`
	AccountID      string         `db:"account_id" json:"account_id"`
	EventID        string         `db:"event_id" json:"event_id"`
	EventType      ShareEventType `db:"event_type" json:"event_type"`
	SharedByUserID string         `db:"shared_by_user_id" json:"shared_by_user_id"`
	CreatedAt      time.Time      `db:"created_at" json:"created_at"`
}

// FamilyCalendarShareMember links a share to a user who may see it.
type FamilyCalendarShareMember struct {
	ShareID      string `db:"share_id" json:"share_id"`
	MemberUserID string `db:"member_user_id" json:"member_user_id"`
}

// ShareRef is the (event ID, event type) pair used to look up shares.
type ShareRef struct {
	EventID   string         `db:"event_id" json:"event_id"`
	EventType ShareEventType `db:"event_type" json:"event_type"`
}

// SharedEventIDs holds the IDs of events that have a share record.
type SharedEventIDs struct {
	Appointments map[string]struct{}
	Countdowns   map[string]struct{}
}

// NewSharedEventIDs returns an empty ID index.
func NewSharedEventIDs() SharedEventIDs {
	return SharedEventIDs{
		Appointments: map[string]struct{}{},
		Countdowns:   map[string]struct{}{},
	}
}

// Contains reports whether the referenced event is shared.
func (s SharedEventIDs) Contains(ref ShareRef) bool {
	switch ref.EventType {
	case ShareEventAppointment:
		_, ok := s.Appointments[ref.EventID]
		return ok
	case ShareEventCountdown:
		_, ok := s.Countdowns[ref.EventID]
		return ok
	default:
		return false
	}
}

// ShareRequest creates or replaces a family share.
type ShareRequest struct {
	EventID       string         `json:"event_id" validate:"required"`
	EventType     ShareEventType `json:"event_type" validate:"required,oneof=appointment countdown"`
	MemberUserIDs []string       `json:"member_user_ids" validate:"dive,required"`
}
