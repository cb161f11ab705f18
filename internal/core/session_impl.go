package core

import (
	"encoding/json"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/classpoll/classpoll/internal/domain"
)

// sessionImpl is a threadsafe in-memory session coordinator.
// One mutex serializes every mutation, and broadcasts happen inside the
// critical section, so the tally/ledger invariants hold and all clients
// observe the same total order of snapshots. It never closes
// adapter-owned connections.
type sessionImpl struct {
	name domain.SessionName

	mu      sync.Mutex
	clients map[ClientID]ClientSession
	roster  *roster
	poll    *pollState
	voters  voteLedger
	version uint64
}

func NewSession(name domain.SessionName) Session {
	return &sessionImpl{
		name:    name,
		clients: make(map[ClientID]ClientSession),
		roster:  newRoster(),
	}
}

func (s *sessionImpl) Name() domain.SessionName { return s.name }

func (s *sessionImpl) ParticipantCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.roster.len()
}

func (s *sessionImpl) Snapshot() SessionSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	snap := SessionSnapshot{
		Name:         s.name,
		Participants: s.roster.snapshot(),
	}
	if s.poll != nil {
		snap.Poll = &PollSnapshot{
			Question: s.poll.poll.Question,
			Options:  append([]domain.Option(nil), s.poll.poll.Options...),
			Version:  s.poll.poll.Version,
			Votes:    s.poll.tallySnapshot(),
		}
	}
	return snap
}

func (s *sessionImpl) Join(cid ClientID, cs ClientSession) BroadcastReport {
	s.mu.Lock()
	defer s.mu.Unlock()

	identity := cs.Meta().Identity
	if prev, ok := s.clients[cid]; ok {
		// Same client id reconnecting: the old connection is superseded
		// and its roster slot released before the new one takes over.
		s.roster.remove(prev.Meta().Identity)
	}
	s.clients[cid] = cs
	s.roster.add(identity)
	log.Info().Str("module", "core.session").Str("session", string(s.name)).
		Str("cid", string(cid)).Str("identity", string(identity)).Msg("client joined")

	var rep BroadcastReport
	s.sendTo(cs, JoinedEvent{
		Type:     EventJoined,
		Session:  s.name,
		Identity: identity,
		Role:     cs.Meta().Role,
	}, &rep)
	s.broadcastRoster(&rep)

	// Late joiner catches up from full snapshots, no merge logic needed.
	if s.poll != nil {
		s.sendTo(cs, s.pollCreatedEvent(), &rep)
		s.sendTo(cs, s.pollResultsEvent(), &rep)
	}
	return rep
}

func (s *sessionImpl) Leave(cid ClientID) BroadcastReport {
	s.mu.Lock()
	defer s.mu.Unlock()

	var rep BroadcastReport
	cs, ok := s.clients[cid]
	if !ok {
		return rep
	}
	delete(s.clients, cid)
	s.roster.remove(cs.Meta().Identity)
	log.Info().Str("module", "core.session").Str("session", string(s.name)).
		Str("cid", string(cid)).Msg("client left")

	s.broadcastRoster(&rep)
	return rep
}

func (s *sessionImpl) Kick(requester ClientID, target domain.Identity) (BroadcastReport, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var rep BroadcastReport
	req, ok := s.clients[requester]
	if !ok {
		return rep, domain.ErrNotInSession
	}
	if !req.Meta().IsInstructor() {
		return rep, domain.ErrUnauthorized
	}
	if !s.roster.contains(target) {
		return rep, domain.ErrNotInSession
	}

	for cid, cs := range s.clients {
		if cs.Meta().Identity != target {
			continue
		}
		s.sendTo(cs, KickedOutEvent{Type: EventKickedOut}, &rep)
		delete(s.clients, cid)
		s.roster.remove(target)
		rep.Removed = append(rep.Removed, cid)
	}
	log.Info().Str("module", "core.session").Str("session", string(s.name)).
		Str("target", string(target)).Msg("participant kicked")

	s.broadcastRoster(&rep)
	return rep, nil
}

func (s *sessionImpl) CreatePoll(requester ClientID, question string, options []domain.Option) (*domain.PollArchive, BroadcastReport, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var rep BroadcastReport
	req, ok := s.clients[requester]
	if !ok {
		return nil, rep, domain.ErrNotInSession
	}
	if !req.Meta().IsInstructor() {
		return nil, rep, domain.ErrUnauthorized
	}

	poll, err := domain.NewPoll(question, options, s.version+1)
	if err != nil {
		return nil, rep, err
	}

	var archived *domain.PollArchive
	if s.poll != nil {
		archived = s.poll.archive(s.name)
	}

	// The switch is atomic under the session mutex: in-flight votes against
	// the previous poll land after it and fail the version check.
	s.version++
	s.poll = newPollState(poll)
	s.voters = make(voteLedger)
	log.Info().Str("module", "core.session").Str("session", string(s.name)).
		Uint64("version", s.version).Str("question", question).Msg("poll created")

	s.broadcast(s.pollCreatedEvent(), &rep)
	return archived, rep, nil
}

func (s *sessionImpl) CastVote(cid ClientID, option domain.OptionID, version uint64) (BroadcastReport, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var rep BroadcastReport
	cs, ok := s.clients[cid]
	if !ok {
		return rep, domain.ErrNotInSession
	}
	if s.poll == nil {
		return rep, domain.ErrNoActivePoll
	}
	if version != s.poll.poll.Version {
		return rep, domain.ErrStalePoll
	}
	if !s.poll.poll.HasOption(option) {
		return rep, domain.ErrUnknownOption
	}

	identity := cs.Meta().Identity
	if !s.voters.checkAndRecord(identity) {
		return rep, domain.ErrDuplicateVote
	}
	if err := s.poll.recordVote(option); err != nil {
		// Unreachable after HasOption, kept so the ledger can never run
		// ahead of the tally.
		delete(s.voters, identity)
		return rep, err
	}
	log.Debug().Str("module", "core.session").Str("session", string(s.name)).
		Str("identity", string(identity)).Str("option", string(option)).Msg("vote recorded")

	s.broadcast(s.pollResultsEvent(), &rep)
	return rep, nil
}

func (s *sessionImpl) Shutdown() *domain.PollArchive {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.poll == nil {
		return nil
	}
	archived := s.poll.archive(s.name)
	s.poll = nil
	s.voters = nil
	return archived
}

func (s *sessionImpl) pollCreatedEvent() PollCreatedEvent {
	return PollCreatedEvent{
		Type:     EventPollCreated,
		Question: s.poll.poll.Question,
		Options:  append([]domain.Option(nil), s.poll.poll.Options...),
		Version:  s.poll.poll.Version,
	}
}

func (s *sessionImpl) pollResultsEvent() PollResultsEvent {
	return PollResultsEvent{
		Type:    EventPollResults,
		Votes:   s.poll.tallySnapshot(),
		Version: s.poll.poll.Version,
	}
}

func (s *sessionImpl) broadcastRoster(rep *BroadcastReport) {
	s.broadcast(ParticipantsUpdateEvent{
		Type:         EventParticipantsUpdate,
		Participants: s.roster.snapshot(),
	}, rep)
}

func (s *sessionImpl) broadcast(v any, rep *BroadcastReport) {
	frame, err := json.Marshal(v)
	if err != nil {
		log.Error().Err(err).Str("module", "core.session").Msg("broadcast marshal")
		return
	}
	for cid, cs := range s.clients {
		if err := cs.Conn().TrySend(frame); err != nil {
			rep.Dropped = append(rep.Dropped, cid)
			continue
		}
		rep.Sent++
	}
	log.Debug().Str("module", "core.session").Str("session", string(s.name)).
		Int("sent", rep.Sent).Int("dropped", len(rep.Dropped)).Msg("broadcast result")
}

func (s *sessionImpl) sendTo(cs ClientSession, v any, rep *BroadcastReport) {
	frame, err := json.Marshal(v)
	if err != nil {
		log.Error().Err(err).Str("module", "core.session").Msg("sendTo marshal")
		return
	}
	if err := cs.Conn().TrySend(frame); err != nil {
		log.Warn().Str("module", "core.session").Str("session", string(s.name)).Msg("sendTo dropped")
		return
	}
	rep.Sent++
}
