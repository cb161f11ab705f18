package app

import (
	"context"

	"github.com/rs/zerolog/log"

	"github.com/classpoll/classpoll/internal/core"
	"github.com/classpoll/classpoll/internal/domain"
)

// Archiver receives superseded polls. Writes are fire-and-forget: the
// session never depends on their success.
type Archiver interface {
	Save(archive *domain.PollArchive) error
}

// Coordinator routes client operations to their session and applies
// cross-cutting concerns the core session stays free of: registry
// bookkeeping, slow-client eviction and poll history writes.
type Coordinator struct {
	Registry *Registry
	Sessions core.SessionManager
	Policy   Policy
	Archiver Archiver
}

func (c *Coordinator) Join(ctx context.Context, cid core.ClientID, session domain.SessionName, identity string, role domain.Role, conn core.Conn, cancel context.CancelFunc) error {
	meta, err := domain.NewParticipant(identity, role)
	if err != nil {
		return err
	}
	sess := c.Sessions.GetOrCreate(session)
	c.Registry.Bind(cid, session, meta.Identity, cancel)
	rep := sess.Join(cid, core.NewClientSession(meta, conn))
	c.applyReport(sess, rep)
	return nil
}

func (c *Coordinator) Leave(cid core.ClientID) {
	name, bound := c.Registry.SessionOf(cid)
	if !bound {
		return
	}
	// Unbind unconditionally: the session may already be gone (evicted)
	// and the registry entry must not outlive the connection.
	c.Registry.Unbind(cid)
	sess, ok := c.Sessions.Get(name)
	if !ok {
		return
	}
	rep := sess.Leave(cid)
	c.applyReport(sess, rep)
}

func (c *Coordinator) OnDisconnect(cid core.ClientID) {
	c.Leave(cid)
}

func (c *Coordinator) CreatePoll(cid core.ClientID, question string, options []domain.Option) error {
	sess, ok := c.sessionOf(cid)
	if !ok {
		return domain.ErrNotInSession
	}
	archived, rep, err := sess.CreatePoll(cid, question, options)
	if err != nil {
		return err
	}
	c.archive(archived)
	c.applyReport(sess, rep)
	return nil
}

func (c *Coordinator) CastVote(cid core.ClientID, option domain.OptionID, version uint64) error {
	sess, ok := c.sessionOf(cid)
	if !ok {
		return domain.ErrNotInSession
	}
	rep, err := sess.CastVote(cid, option, version)
	if err != nil {
		return err
	}
	c.applyReport(sess, rep)
	return nil
}

func (c *Coordinator) Kick(cid core.ClientID, target domain.Identity) error {
	sess, ok := c.sessionOf(cid)
	if !ok {
		return domain.ErrNotInSession
	}
	rep, err := sess.Kick(cid, target)
	if err != nil {
		return err
	}
	c.applyReport(sess, rep)
	return nil
}

// EvictSession disconnects every client of a session and drops it,
// archiving the active poll if one is running.
func (c *Coordinator) EvictSession(name domain.SessionName) {
	sess, ok := c.Sessions.Get(name)
	if !ok {
		return
	}
	for _, cid := range c.Registry.ClientsOfSession(name) {
		c.Registry.Cancel(cid)
	}
	c.archive(sess.Shutdown())
	c.Sessions.Stop(name)
}

func (c *Coordinator) sessionOf(cid core.ClientID) (core.Session, bool) {
	name, ok := c.Registry.SessionOf(cid)
	if !ok {
		return nil, false
	}
	return c.Sessions.Get(name)
}

func (c *Coordinator) applyReport(sess core.Session, rep core.BroadcastReport) {
	for _, cid := range rep.Removed {
		c.Registry.Cancel(cid)
	}
	if c.Policy == nil {
		return
	}
	for _, slow := range rep.Dropped {
		if c.Policy.OnBackPressure(sess, slow) == DropClient {
			c.Registry.Cancel(slow)
		}
	}
}

func (c *Coordinator) archive(archived *domain.PollArchive) {
	if archived == nil || c.Archiver == nil {
		return
	}
	go func() {
		if err := c.Archiver.Save(archived); err != nil {
			log.Error().Err(err).Str("module", "app.coordinator").
				Str("session", string(archived.Session)).Msg("poll history write failed")
		}
	}()
}
