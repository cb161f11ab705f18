package app

import "github.com/classpoll/classpoll/internal/core"

type BackpressureAction int

const (
	NoAction BackpressureAction = iota
	DropClient
)

// Policy decides what to do with a client whose send buffer overflowed
// during fan-out. Snapshots are self-contained, so dropping a frame is
// harmless; dropping the client frees the session from a dead reader.
type Policy interface {
	OnBackPressure(session core.Session, cid core.ClientID) BackpressureAction
}

type SimplePolicy struct{}

func (SimplePolicy) OnBackPressure(session core.Session, cid core.ClientID) BackpressureAction {
	return DropClient
}
