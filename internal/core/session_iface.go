package core

import "github.com/classpoll/classpoll/internal/domain"

// BroadcastReport tells the coordinator what a mutation pushed out and
// which clients could not keep up or were taken out of the session.
// Delivery is best-effort per client; order per client is preserved by
// the transport's send queue.
type BroadcastReport struct {
	Sent    int
	Dropped []ClientID // send buffer overflow during fan-out
	Removed []ClientID // taken out of the session by this operation
}

// PollSnapshot is the externally visible state of the active poll.
type PollSnapshot struct {
	Question string          `json:"question"`
	Options  []domain.Option `json:"options"`
	Version  uint64          `json:"version"`
	Votes    domain.Tally    `json:"votes"`
}

// SessionSnapshot is the only shape a reader ever gets: the complete
// current state, never a delta.
type SessionSnapshot struct {
	Name         domain.SessionName `json:"name"`
	Participants []domain.Identity  `json:"participants"`
	Poll         *PollSnapshot      `json:"poll,omitempty"`
}

// Session is the authoritative owner of one session's roster, active
// poll, tally and vote ledger. All mutations are serialized internally;
// every mutation broadcasts the resulting snapshot before it returns, so
// all clients observe state transitions in the same order.
type Session interface {
	Name() domain.SessionName
	ParticipantCount() int
	Snapshot() SessionSnapshot

	Join(cid ClientID, cs ClientSession) BroadcastReport
	Leave(cid ClientID) BroadcastReport
	Kick(requester ClientID, target domain.Identity) (BroadcastReport, error)

	CreatePoll(requester ClientID, question string, options []domain.Option) (*domain.PollArchive, BroadcastReport, error)
	CastVote(cid ClientID, option domain.OptionID, version uint64) (BroadcastReport, error)

	// Shutdown hands back the final poll archive, if any, without broadcasting.
	Shutdown() *domain.PollArchive
}

type SessionInfo struct {
	Name             domain.SessionName `json:"name"`
	ParticipantCount int                `json:"participant_count"`
}

type SessionManager interface {
	GetOrCreate(name domain.SessionName) Session
	Get(name domain.SessionName) (Session, bool)
	List() []SessionInfo
	Stop(name domain.SessionName)
}
