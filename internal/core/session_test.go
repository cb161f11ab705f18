package core

import (
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/classpoll/classpoll/internal/domain"
)

// fakeConn records every frame it is handed, decoded, in order.
type fakeConn struct {
	mu     sync.Mutex
	events []map[string]any
	full   bool
	closed bool
}

func (c *fakeConn) TrySend(f Frame) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.full {
		return errors.New("backpressure")
	}
	var ev map[string]any
	if err := json.Unmarshal(f, &ev); err != nil {
		return err
	}
	c.events = append(c.events, ev)
	return nil
}

func (c *fakeConn) Close() {
	c.mu.Lock()
	c.closed = true
	c.mu.Unlock()
}

func (c *fakeConn) ofType(typ string) []map[string]any {
	c.mu.Lock()
	defer c.mu.Unlock()
	var out []map[string]any
	for _, ev := range c.events {
		if ev["type"] == typ {
			out = append(out, ev)
		}
	}
	return out
}

func (c *fakeConn) last(typ string) map[string]any {
	evs := c.ofType(typ)
	if len(evs) == 0 {
		return nil
	}
	return evs[len(evs)-1]
}

func join(t *testing.T, s Session, cid string, identity string, role domain.Role) *fakeConn {
	t.Helper()
	meta, err := domain.NewParticipant(identity, role)
	require.NoError(t, err)
	conn := &fakeConn{}
	s.Join(ClientID(cid), NewClientSession(meta, conn))
	return conn
}

func options(ids ...string) []domain.Option {
	out := make([]domain.Option, 0, len(ids))
	for _, id := range ids {
		out = append(out, domain.Option{ID: domain.OptionID(id), Text: id})
	}
	return out
}

func votes(ev map[string]any) map[string]float64 {
	out := make(map[string]float64)
	raw, _ := ev["votes"].(map[string]any)
	for id, n := range raw {
		out[id], _ = n.(float64)
	}
	return out
}

func TestJoinBroadcastsRoster(t *testing.T) {
	s := NewSession("main")
	teacher := join(t, s, "c1", "ms-frizzle", domain.RoleInstructor)
	student := join(t, s, "c2", "alice", domain.RoleParticipant)

	ev := teacher.last(EventParticipantsUpdate)
	require.NotNil(t, ev)
	assert.Equal(t, []any{"ms-frizzle", "alice"}, ev["participants"])

	// The joiner gets an ack plus the same roster snapshot.
	require.NotNil(t, student.last(EventJoined))
	require.NotNil(t, student.last(EventParticipantsUpdate))
	assert.Equal(t, 2, s.ParticipantCount())
}

func TestJoinSameIdentityTwiceKeepsSetSemantics(t *testing.T) {
	s := NewSession("main")
	join(t, s, "c1", "alice", domain.RoleParticipant)
	conn := join(t, s, "c2", "alice", domain.RoleParticipant)

	ev := conn.last(EventParticipantsUpdate)
	require.NotNil(t, ev)
	assert.Equal(t, []any{"alice"}, ev["participants"])

	// Dropping one of two connections keeps the identity on the roster.
	s.Leave("c1")
	ev = conn.last(EventParticipantsUpdate)
	assert.Equal(t, []any{"alice"}, ev["participants"])

	s.Leave("c2")
	assert.Equal(t, 0, s.ParticipantCount())
}

func TestRejoinWithSameClientIDReplacesConnection(t *testing.T) {
	s := NewSession("main")
	teacher := join(t, s, "t", "teacher", domain.RoleInstructor)
	stale := join(t, s, "c1", "alice", domain.RoleParticipant)
	live := join(t, s, "c1", "alice", domain.RoleParticipant)

	assert.Equal(t, 2, s.ParticipantCount())

	// Broadcasts reach the superseding connection, not the stale one.
	_, _, err := s.CreatePoll("t", "Still here", options("yes", "no"))
	require.NoError(t, err)
	require.NotNil(t, live.last(EventPollCreated))
	assert.Empty(t, stale.ofType(EventPollCreated))

	_, err = s.CastVote("c1", "yes", 1)
	require.NoError(t, err)

	// A single leave clears the identity; nothing lingers on the roster.
	s.Leave("c1")
	assert.Equal(t, 1, s.ParticipantCount())
	assert.Equal(t, []any{"teacher"}, teacher.last(EventParticipantsUpdate)["participants"])
}

func TestCreatePollValidation(t *testing.T) {
	s := NewSession("main")
	join(t, s, "t", "teacher", domain.RoleInstructor)
	student := join(t, s, "p", "alice", domain.RoleParticipant)

	_, _, err := s.CreatePoll("t", "", options("yes"))
	assert.ErrorIs(t, err, domain.ErrInvalidPoll)

	_, _, err = s.CreatePoll("t", "Anything", nil)
	assert.ErrorIs(t, err, domain.ErrInvalidPoll)

	_, _, err = s.CreatePoll("t", "Anything", options("yes", "yes"))
	assert.ErrorIs(t, err, domain.ErrInvalidPoll)

	_, _, err = s.CreatePoll("p", "Anything", options("yes", "no"))
	assert.ErrorIs(t, err, domain.ErrUnauthorized)

	// Rejected operations are pure no-ops: nobody saw a pollCreated.
	assert.Empty(t, student.ofType(EventPollCreated))
	assert.Nil(t, s.Snapshot().Poll)
}

func TestVoteScenario(t *testing.T) {
	s := NewSession("main")
	teacher := join(t, s, "t", "teacher", domain.RoleInstructor)
	alice := join(t, s, "a", "alice", domain.RoleParticipant)
	bob := join(t, s, "b", "bob", domain.RoleParticipant)

	_, _, err := s.CreatePoll("t", "Is the sky blue", options("yes", "no"))
	require.NoError(t, err)

	created := alice.last(EventPollCreated)
	require.NotNil(t, created)
	assert.Equal(t, "Is the sky blue", created["question"])
	assert.Len(t, created["options"], 2)

	_, err = s.CastVote("a", "yes", 1)
	require.NoError(t, err)
	assert.Equal(t, map[string]float64{"yes": 1, "no": 0}, votes(teacher.last(EventPollResults)))

	// Second vote from the same identity is rejected and broadcasts nothing.
	broadcasts := len(teacher.ofType(EventPollResults))
	_, err = s.CastVote("a", "yes", 1)
	assert.ErrorIs(t, err, domain.ErrDuplicateVote)
	assert.Len(t, teacher.ofType(EventPollResults), broadcasts)

	_, err = s.CastVote("b", "no", 1)
	require.NoError(t, err)
	assert.Equal(t, map[string]float64{"yes": 1, "no": 1}, votes(teacher.last(EventPollResults)))

	// Kick by a participant fails and leaves the roster alone.
	_, err = s.Kick("a", "bob")
	assert.ErrorIs(t, err, domain.ErrUnauthorized)
	assert.Equal(t, 3, s.ParticipantCount())

	rep, err := s.Kick("t", "bob")
	require.NoError(t, err)
	assert.Equal(t, []ClientID{"b"}, rep.Removed)
	require.NotNil(t, bob.last(EventKickedOut))
	assert.Equal(t, []any{"teacher", "alice"}, teacher.last(EventParticipantsUpdate)["participants"])
}

func TestVoteErrors(t *testing.T) {
	s := NewSession("main")
	join(t, s, "t", "teacher", domain.RoleInstructor)
	join(t, s, "a", "alice", domain.RoleParticipant)

	_, err := s.CastVote("a", "yes", 1)
	assert.ErrorIs(t, err, domain.ErrNoActivePoll)

	_, _, err = s.CreatePoll("t", "Pick one", options("yes", "no"))
	require.NoError(t, err)

	_, err = s.CastVote("a", "maybe", 1)
	assert.ErrorIs(t, err, domain.ErrUnknownOption)

	_, err = s.CastVote("ghost", "yes", 1)
	assert.ErrorIs(t, err, domain.ErrNotInSession)
}

func TestStaleVoteNeverTouchesNewPoll(t *testing.T) {
	s := NewSession("main")
	join(t, s, "t", "teacher", domain.RoleInstructor)
	alice := join(t, s, "a", "alice", domain.RoleParticipant)

	_, _, err := s.CreatePoll("t", "First", options("yes", "no"))
	require.NoError(t, err)
	_, _, err = s.CreatePoll("t", "Second", options("yes", "no"))
	require.NoError(t, err)

	// The vote raced the second CreatePoll and still references version 1.
	_, err = s.CastVote("a", "yes", 1)
	assert.ErrorIs(t, err, domain.ErrStalePoll)

	snap := s.Snapshot()
	require.NotNil(t, snap.Poll)
	assert.Equal(t, uint64(2), snap.Poll.Version)
	assert.Equal(t, domain.Tally{"yes": 0, "no": 0}, snap.Poll.Votes)
	assert.Empty(t, alice.ofType(EventPollResults))
}

func TestCreatePollResetsTallyAndLedger(t *testing.T) {
	s := NewSession("main")
	join(t, s, "t", "teacher", domain.RoleInstructor)
	join(t, s, "a", "alice", domain.RoleParticipant)

	_, _, err := s.CreatePoll("t", "First", options("yes", "no"))
	require.NoError(t, err)
	_, err = s.CastVote("a", "yes", 1)
	require.NoError(t, err)

	archived, _, err := s.CreatePoll("t", "Second", options("yes", "no"))
	require.NoError(t, err)
	require.NotNil(t, archived)
	assert.Equal(t, "First", archived.Question)
	assert.Equal(t, domain.Tally{"yes": 1, "no": 0}, archived.Tally)

	snap := s.Snapshot()
	assert.Equal(t, domain.Tally{"yes": 0, "no": 0}, snap.Poll.Votes)

	// Ledger was cleared: alice may vote again on the new poll.
	_, err = s.CastVote("a", "no", 2)
	require.NoError(t, err)
}

func TestLateJoinerReceivesLiveState(t *testing.T) {
	s := NewSession("main")
	join(t, s, "t", "teacher", domain.RoleInstructor)
	join(t, s, "a", "alice", domain.RoleParticipant)

	_, _, err := s.CreatePoll("t", "Running", options("yes", "no"))
	require.NoError(t, err)
	_, err = s.CastVote("a", "yes", 1)
	require.NoError(t, err)

	late := join(t, s, "l", "late-larry", domain.RoleParticipant)
	created := late.last(EventPollCreated)
	require.NotNil(t, created)
	assert.Equal(t, "Running", created["question"])
	assert.Equal(t, map[string]float64{"yes": 1, "no": 0}, votes(late.last(EventPollResults)))
}

func TestConcurrentVotesKeepTallyConsistent(t *testing.T) {
	s := NewSession("main")
	join(t, s, "t", "teacher", domain.RoleInstructor)

	const voters = 50
	for i := 0; i < voters; i++ {
		join(t, s, fmt.Sprintf("c%d", i), fmt.Sprintf("student-%d", i), domain.RoleParticipant)
	}
	_, _, err := s.CreatePoll("t", "Race", options("yes", "no"))
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < voters; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			opt := domain.OptionID("yes")
			if i%2 == 1 {
				opt = "no"
			}
			_, err := s.CastVote(ClientID(fmt.Sprintf("c%d", i)), opt, 1)
			assert.NoError(t, err)
		}(i)
	}
	wg.Wait()

	snap := s.Snapshot()
	assert.Equal(t, voters, snap.Poll.Votes["yes"]+snap.Poll.Votes["no"])
	assert.Equal(t, voters/2, snap.Poll.Votes["yes"])
	assert.Equal(t, voters/2, snap.Poll.Votes["no"])
}

func TestBackpressureReportedNotFatal(t *testing.T) {
	s := NewSession("main")
	teacher := join(t, s, "t", "teacher", domain.RoleInstructor)

	meta, err := domain.NewParticipant("slowpoke", domain.RoleParticipant)
	require.NoError(t, err)
	slow := &fakeConn{full: true}
	rep := s.Join("s", NewClientSession(meta, slow))
	assert.Contains(t, rep.Dropped, ClientID("s"))

	// The healthy client still got the update.
	require.NotNil(t, teacher.last(EventParticipantsUpdate))
}

func TestKickUnknownTarget(t *testing.T) {
	s := NewSession("main")
	join(t, s, "t", "teacher", domain.RoleInstructor)

	_, err := s.Kick("t", "nobody")
	assert.ErrorIs(t, err, domain.ErrNotInSession)
}
