package domain

import "errors"

// Recoverable request errors. All of them are reported back to the
// offending client only and leave session state untouched.
var (
	ErrInvalidPoll   = errors.New("invalid poll definition")
	ErrNoActivePoll  = errors.New("no active poll")
	ErrStalePoll     = errors.New("poll no longer active")
	ErrUnknownOption = errors.New("unknown option for this poll")
	ErrDuplicateVote = errors.New("already voted in this poll")
	ErrUnauthorized  = errors.New("instructor role required")
	ErrNotInSession  = errors.New("not in session")
)
