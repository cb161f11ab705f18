// Package domain contains entity without logic, just meta-data
package domain

import "errors"

const MaxIdentityLen = 36

var (
	ErrIdentityEmpty   = errors.New("identity empty")
	ErrIdentityTooLong = errors.New("identity too long")
)

type (
	// SessionName identifies one independent instructor+participants context.
	SessionName string

	// Identity is the display name a participant joins under.
	Identity string

	Role string
)

const (
	RoleInstructor  Role = "instructor"
	RoleParticipant Role = "participant"
)

type Participant struct {
	Identity Identity `json:"identity"`
	Role     Role     `json:"role"`
}

// NewParticipant is a tiny helper to avoid ad-hoc struct literals in adapters.
func NewParticipant(identity string, role Role) (*Participant, error) {
	if len(identity) == 0 {
		return nil, ErrIdentityEmpty
	}
	if len(identity) > MaxIdentityLen {
		return nil, ErrIdentityTooLong
	}
	if role != RoleInstructor {
		role = RoleParticipant
	}
	return &Participant{Identity: Identity(identity), Role: role}, nil
}

func (p *Participant) IsInstructor() bool { return p.Role == RoleInstructor }
