package transcript

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/hark-stt/hark-core/internal/infrastructure/database"
)

// Query limits for the read surface.
const (
	defaultLimit = 50
	maxLimit     = 200
)

const entryColumns = `id, session_id, sequence, raw_text, text, language, confidence, language_mismatch, captured_at`

// Store persists entries in the transcripts table and serves the API's
// read queries. It doubles as a pipeline sink.
type Store struct {
	db *database.DB
}

// NewStore creates a transcript store on the given database.
func NewStore(db *database.DB) *Store {
	return &Store{db: db}
}

// Name implements Sink.
func (s *Store) Name() string { return "sqlite" }

// Write implements Sink.
func (s *Store) Write(ctx context.Context, entry Entry) error {
	return s.Save(ctx, entry)
}

// Save inserts one entry.
func (s *Store) Save(ctx context.Context, entry Entry) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO transcripts (`+entryColumns+`)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		entry.ID, entry.SessionID, int64(entry.Sequence),
		entry.Raw, entry.Text,
		entry.Language, entry.Confidence, boolToInt(entry.LanguageMismatch),
		entry.CapturedAt.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("inserting transcript: %w", err)
	}
	return nil
}

// Recent returns the newest entries, most recent first.
func (s *Store) Recent(ctx context.Context, limit int) ([]Entry, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+entryColumns+` FROM transcripts
		 ORDER BY captured_at DESC, sequence DESC LIMIT ?`,
		clampLimit(limit),
	)
	if err != nil {
		return nil, fmt.Errorf("querying recent transcripts: %w", err)
	}
	return scanEntries(rows)
}

// BySession returns one session's entries in spoken order.
func (s *Store) BySession(ctx context.Context, sessionID string, limit int) ([]Entry, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+entryColumns+` FROM transcripts
		 WHERE session_id = ? ORDER BY sequence ASC LIMIT ?`,
		sessionID, clampLimit(limit),
	)
	if err != nil {
		return nil, fmt.Errorf("querying session transcripts: %w", err)
	}
	return scanEntries(rows)
}

// CountBySession returns how many entries a session has stored.
func (s *Store) CountBySession(ctx context.Context, sessionID string) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM transcripts WHERE session_id = ?`, sessionID,
	).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("counting session transcripts: %w", err)
	}
	return n, nil
}

func scanEntries(rows *sql.Rows) ([]Entry, error) {
	defer rows.Close() //nolint:errcheck // read-only cursor

	var entries []Entry
	for rows.Next() {
		var e Entry
		var sequence int64
		var mismatch int
		var captured string
		if err := rows.Scan(&e.ID, &e.SessionID, &sequence, &e.Raw, &e.Text,
			&e.Language, &e.Confidence, &mismatch, &captured); err != nil {
			return nil, fmt.Errorf("scanning transcript: %w", err)
		}
		e.Sequence = uint64(sequence)
		e.LanguageMismatch = mismatch != 0

		t, err := time.Parse(time.RFC3339Nano, captured)
		if err != nil {
			return nil, fmt.Errorf("parsing transcript timestamp %q: %w", captured, err)
		}
		e.CapturedAt = t

		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating transcripts: %w", err)
	}

	if entries == nil {
		entries = []Entry{}
	}
	return entries, nil
}

func clampLimit(limit int) int {
	if limit <= 0 {
		return defaultLimit
	}
	if limit > maxLimit {
		return maxLimit
	}
	return limit
}

// boolToInt maps a flag onto the INTEGER column SQLite stores it in.
func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
