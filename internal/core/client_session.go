package core

import "github.com/classpoll/classpoll/internal/domain"

// ClientSession binds domain.Participant and its transport endpoint.
// This is what a session stores and fans out to.
type ClientSession interface {
	Meta() *domain.Participant
	Conn() Conn
}

type clientSession struct {
	meta *domain.Participant
	conn Conn
}

func NewClientSession(meta *domain.Participant, conn Conn) ClientSession {
	return &clientSession{meta: meta, conn: conn}
}

func (c *clientSession) Meta() *domain.Participant { return c.meta }
func (c *clientSession) Conn() Conn                { return c.conn }
