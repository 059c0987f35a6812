package models

import "time"

// MemberRole is the permission level of an account member.
type MemberRole string

const (
	MemberRoleOwner  MemberRole = "owner"
	MemberRoleAdmin  MemberRole = "admin"
	MemberRoleHelper MemberRole = "helper"
	MemberRoleViewer MemberRole = "viewer"
)

// CanWrite reports whether the role may modify account data.
func (r MemberRole) CanWrite() bool {
	switch r {
	case MemberRoleOwner, MemberRoleAdmin, MemberRoleHelper:
		return true
	default:
		return false
	}
}

// MemberSource distinguishes real membership rows from roster placeholders.
type MemberSource string

const (
	MemberSourceMembership  MemberSource = "membership"
	MemberSourceProfileSync MemberSource = "profile_sync"
)

// AccountMember is one entry of an account's member roster.
type AccountMember struct {
	ID          string       `db:"id" json:"id"`
	AccountID   string       `db:"account_id" json:"account_id"`
	UserID      string       `db:"user_id" json:"user_id"`
	Role        MemberRole   `db:"role" json:"role"`
	Email       string       `db:"email" json:"email"`
	DisplayName string       `db:"display_name" json:"display_name"`
	Source      MemberSource `db:"-" json:"source"`
	CreatedAt   time.Time    `db:"created_at" json:"created_at"`
}

// IsSynthesized reports whether the member was derived from a profile link.
func (m AccountMember) IsSynthesized() bool {
	return m.Source == MemberSourceProfileSync
}

// Profile is a person record within an account.
type Profile struct {
	ID            string     `db:"id" json:"id"`
	AccountID     string     `db:"account_id" json:"account_id"`
	ProfileType   string     `db:"profile_type" json:"profile_type"`
	FullName      string     `db:"full_name" json:"full_name"`
	PreferredName *string    `db:"preferred_name" json:"preferred_name,omitempty"`
	Birthday      *time.Time `db:"birthday" json:"birthday,omitempty"`
	LinkedUserID  *string    `db:"linked_user_id" json:"linked_user_id,omitempty"`
	SourceUserID  *string    `db:"source_user_id" json:"source_user_id,omitempty"`
	CreatedAt     time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt     time.Time  `db:"updated_at" json:"updated_at"`
}

// DisplayName prefers the preferred name over the full name.
func (p Profile) DisplayName() string {
	if p.PreferredName != nil && *p.PreferredName != "" {
		return *p.PreferredName
	}
	return p.FullName
}

// ConnectedUserID returns the linked user, falling back to the source user.
func (p Profile) ConnectedUserID() *string {
	if p.LinkedUserID != nil && *p.LinkedUserID != "" {
		return p.LinkedUserID
	}
	if p.SourceUserID != nil && *p.SourceUserID != "" {
		return p.SourceUserID
	}
	return nil
}
