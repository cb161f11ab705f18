package core

// Frame is a marshaled event ready for the wire.
type Frame []byte

// ClientID identifies one connected client (one transport channel).
type ClientID string

// Conn abstracts the per-client messaging transport.
// Owned by the adapter; the adapter must Close() it.
// TrySend never blocks; a full buffer is reported as an error.
type Conn interface {
	TrySend(Frame) error
	Close()
}
