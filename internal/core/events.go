package core

import "github.com/classpoll/classpoll/internal/domain"

// Wire event names. Server-to-client events carry full snapshots, never
// deltas: a client that missed one update is corrected by the next.
const (
	EventPollCreated        = "pollCreated"
	EventPollResults        = "pollResults"
	EventParticipantsUpdate = "participantsUpdate"
	EventKickedOut          = "kickedOut"
	EventJoined             = "joined"
	EventError              = "error"
)

type PollCreatedEvent struct {
	Type     string          `json:"type"`
	Question string          `json:"question"`
	Options  []domain.Option `json:"options"`
	Version  uint64          `json:"version"`
}

type PollResultsEvent struct {
	Type    string       `json:"type"`
	Votes   domain.Tally `json:"votes"`
	Version uint64       `json:"version"`
}

type ParticipantsUpdateEvent struct {
	Type         string            `json:"type"`
	Participants []domain.Identity `json:"participants"`
}

type KickedOutEvent struct {
	Type string `json:"type"`
}

type JoinedEvent struct {
	Type     string             `json:"type"`
	Session  domain.SessionName `json:"session"`
	Identity domain.Identity    `json:"identity"`
	Role     domain.Role        `json:"role"`
}

type ErrorEvent struct {
	Type  string `json:"type"`
	Error string `json:"error"`
}
