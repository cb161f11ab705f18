package domain

import (
	"fmt"
	"time"
)

type OptionID string

// Option is immutable once its poll is created.
type Option struct {
	ID   OptionID `json:"id"`
	Text string   `json:"text"`
}

// Tally maps option id to the current vote count.
type Tally map[OptionID]int

// Poll is a single question with a fixed, ordered set of options.
// Version is unique per session and grows monotonically; a vote carrying
// an older version is stale.
type Poll struct {
	Question  string    `json:"question"`
	Options   []Option  `json:"options"`
	Version   uint64    `json:"version"`
	CreatedAt time.Time `json:"created_at"`
}

func NewPoll(question string, options []Option, version uint64) (*Poll, error) {
	if question == "" {
		return nil, fmt.Errorf("%w: empty question", ErrInvalidPoll)
	}
	if len(options) == 0 {
		return nil, fmt.Errorf("%w: no options", ErrInvalidPoll)
	}
	seen := make(map[OptionID]struct{}, len(options))
	for _, opt := range options {
		if opt.ID == "" || opt.Text == "" {
			return nil, fmt.Errorf("%w: option id and text required", ErrInvalidPoll)
		}
		if _, dup := seen[opt.ID]; dup {
			return nil, fmt.Errorf("%w: duplicate option %q", ErrInvalidPoll, opt.ID)
		}
		seen[opt.ID] = struct{}{}
	}
	return &Poll{
		Question:  question,
		Options:   append([]Option(nil), options...),
		Version:   version,
		CreatedAt: time.Now(),
	}, nil
}

func (p *Poll) HasOption(id OptionID) bool {
	for _, opt := range p.Options {
		if opt.ID == id {
			return true
		}
	}
	return false
}

// PollArchive is what gets handed to the history store when a poll is
// superseded: question, options, final tally, timestamps.
type PollArchive struct {
	Session    SessionName `json:"session"`
	Question   string      `json:"question"`
	Options    []Option    `json:"options"`
	Tally      Tally       `json:"tally"`
	StartedAt  time.Time   `json:"started_at"`
	ArchivedAt time.Time   `json:"archived_at"`
}
