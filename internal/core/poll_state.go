package core

import (
	"time"

	"github.com/classpoll/classpoll/internal/domain"
)

// pollState holds the active poll and its tally. Not goroutine-safe,
// guarded by the owning session's mutex.
type pollState struct {
	poll      *domain.Poll
	tally     domain.Tally
	startedAt time.Time
}

func newPollState(poll *domain.Poll) *pollState {
	tally := make(domain.Tally, len(poll.Options))
	for _, opt := range poll.Options {
		tally[opt.ID] = 0
	}
	return &pollState{poll: poll, tally: tally, startedAt: time.Now()}
}

func (ps *pollState) recordVote(id domain.OptionID) error {
	if !ps.poll.HasOption(id) {
		return domain.ErrUnknownOption
	}
	ps.tally[id]++
	return nil
}

func (ps *pollState) tallySnapshot() domain.Tally {
	out := make(domain.Tally, len(ps.tally))
	for id, n := range ps.tally {
		out[id] = n
	}
	return out
}

func (ps *pollState) total() int {
	sum := 0
	for _, n := range ps.tally {
		sum += n
	}
	return sum
}

func (ps *pollState) archive(session domain.SessionName) *domain.PollArchive {
	return &domain.PollArchive{
		Session:    session,
		Question:   ps.poll.Question,
		Options:    append([]domain.Option(nil), ps.poll.Options...),
		Tally:      ps.tallySnapshot(),
		StartedAt:  ps.startedAt,
		ArchivedAt: time.Now(),
	}
}

// voteLedger records which identities voted in the current poll.
// Replaced wholesale when a new poll is created.
type voteLedger map[domain.Identity]struct{}

// checkAndRecord returns false when the identity already voted.
func (l voteLedger) checkAndRecord(id domain.Identity) bool {
	if _, voted := l[id]; voted {
		return false
	}
	l[id] = struct{}{}
	return true
}
