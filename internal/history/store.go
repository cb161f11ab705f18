// Package history persists superseded polls so instructors can review
// past questions and their final tallies.
package history

import (
	"database/sql"
	"encoding/json"
	"fmt"

	_ "modernc.org/sqlite"

	"github.com/classpoll/classpoll/internal/domain"
)

const schema = `
CREATE TABLE IF NOT EXISTS poll_history (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    session TEXT NOT NULL,
    question TEXT NOT NULL,
    options TEXT NOT NULL,
    tally TEXT NOT NULL,
    started_at TIMESTAMP NOT NULL,
    archived_at TIMESTAMP NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_poll_history_session ON poll_history(session);
`

type Store struct {
	db *sql.DB
}

// Open opens (or creates) the sqlite database at path and ensures the
// schema exists. Safe to call against an existing file.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open history db: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("create history schema: %w", err)
	}
	return &Store{db: db}, nil
}

func (s *Store) Save(archive *domain.PollArchive) error {
	options, err := json.Marshal(archive.Options)
	if err != nil {
		return fmt.Errorf("marshal options: %w", err)
	}
	tally, err := json.Marshal(archive.Tally)
	if err != nil {
		return fmt.Errorf("marshal tally: %w", err)
	}
	_, err = s.db.Exec(`
		INSERT INTO poll_history (session, question, options, tally, started_at, archived_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, string(archive.Session), archive.Question, string(options), string(tally),
		archive.StartedAt, archive.ArchivedAt)
	if err != nil {
		return fmt.Errorf("insert poll history: %w", err)
	}
	return nil
}

// BySession returns archived polls for one session, oldest first.
func (s *Store) BySession(name domain.SessionName) ([]domain.PollArchive, error) {
	rows, err := s.db.Query(`
		SELECT session, question, options, tally, started_at, archived_at
		FROM poll_history WHERE session = ? ORDER BY id
	`, string(name))
	if err != nil {
		return nil, fmt.Errorf("query poll history: %w", err)
	}
	defer rows.Close()

	var out []domain.PollArchive
	for rows.Next() {
		var (
			a       domain.PollArchive
			options string
			tally   string
		)
		if err := rows.Scan(&a.Session, &a.Question, &options, &tally, &a.StartedAt, &a.ArchivedAt); err != nil {
			return nil, fmt.Errorf("scan poll history: %w", err)
		}
		if err := json.Unmarshal([]byte(options), &a.Options); err != nil {
			return nil, fmt.Errorf("unmarshal options: %w", err)
		}
		if err := json.Unmarshal([]byte(tally), &a.Tally); err != nil {
			return nil, fmt.Errorf("unmarshal tally: %w", err)
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

func (s *Store) Close() error {
	return s.db.Close()
}
