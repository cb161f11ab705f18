package core

import "github.com/classpoll/classpoll/internal/domain"

// roster tracks connected participant identities with set semantics.
// An identity may be carried by more than one connection; it stays on the
// roster until its last connection is gone. Not goroutine-safe, guarded
// by the owning session's mutex.
type roster struct {
	conns map[domain.Identity]int
	order []domain.Identity
}

func newRoster() *roster {
	return &roster{conns: make(map[domain.Identity]int)}
}

// add returns true when the identity is new to the roster.
func (r *roster) add(id domain.Identity) bool {
	r.conns[id]++
	if r.conns[id] > 1 {
		return false
	}
	r.order = append(r.order, id)
	return true
}

// remove returns true when the identity's last connection is gone.
func (r *roster) remove(id domain.Identity) bool {
	n, ok := r.conns[id]
	if !ok {
		return false
	}
	if n > 1 {
		r.conns[id] = n - 1
		return false
	}
	delete(r.conns, id)
	for i, got := range r.order {
		if got == id {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
	return true
}

func (r *roster) contains(id domain.Identity) bool {
	_, ok := r.conns[id]
	return ok
}

func (r *roster) len() int { return len(r.conns) }

// snapshot returns identities in join order.
func (r *roster) snapshot() []domain.Identity {
	return append([]domain.Identity(nil), r.order...)
}
