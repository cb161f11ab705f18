package app

import (
	"context"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/classpoll/classpoll/internal/core"
	"github.com/classpoll/classpoll/internal/domain"
)

type clientEntry struct {
	Session  domain.SessionName
	Identity domain.Identity
	Cancel   context.CancelFunc
}

// Registry maps a connected client to its session binding and the cancel
// func that tears down its transport. Scoped acquisition: bound on join,
// released on disconnect.
type Registry struct {
	mu      sync.RWMutex
	clients map[core.ClientID]*clientEntry
}

func NewRegistry() *Registry {
	return &Registry{clients: make(map[core.ClientID]*clientEntry)}
}

func (r *Registry) Bind(cid core.ClientID, session domain.SessionName, identity domain.Identity, cancel context.CancelFunc) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.clients[cid] = &clientEntry{Session: session, Identity: identity, Cancel: cancel}
	log.Info().Str("module", "app.registry").Str("cid", string(cid)).
		Str("session", string(session)).Str("identity", string(identity)).Msg("bound client")
}

func (r *Registry) SessionOf(cid core.ClientID) (domain.SessionName, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	entry, ok := r.clients[cid]
	if !ok {
		return "", false
	}
	return entry.Session, true
}

func (r *Registry) Unbind(cid core.ClientID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.clients, cid)
	log.Info().Str("module", "app.registry").Str("cid", string(cid)).Msg("unbound client")
}

// Cancel tears down the client's transport; the read loop exit then
// drives the usual disconnect path.
func (r *Registry) Cancel(cid core.ClientID) bool {
	r.mu.RLock()
	entry, ok := r.clients[cid]
	r.mu.RUnlock()
	if !ok {
		return false
	}
	if entry.Cancel != nil {
		entry.Cancel()
	}
	log.Info().Str("module", "app.registry").Str("cid", string(cid)).Msg("canceled client")
	return true
}

func (r *Registry) ClientsOfSession(name domain.SessionName) []core.ClientID {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]core.ClientID, 0, len(r.clients))
	for cid, entry := range r.clients {
		if entry.Session == name {
			out = append(out, cid)
		}
	}
	return out
}
