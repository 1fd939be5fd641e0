// Package audit persists chat transcripts for review.
package audit

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"

	"github.com/SveinnSSR/lavashow-chat-2024/internal/domain"
)

// Supported drivers.
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// Entry is one completed chat turn.
type Entry struct {
	ID          uuid.UUID `json:"id"`
	SessionID   string    `json:"sessionId"`
	UserMessage string    `json:"userMessage"`
	Reply       string    `json:"reply"`
	QueryType   string    `json:"queryType,omitempty"`
	Source      string    `json:"source"`
	LatencyMS   int64     `json:"latencyMs"`
	CreatedAt   time.Time `json:"createdAt"`
}

const schema = `
CREATE TABLE IF NOT EXISTS chat_transcripts (
	id TEXT PRIMARY KEY,
	session_id TEXT NOT NULL,
	user_message TEXT NOT NULL,
	reply TEXT NOT NULL,
	query_type TEXT NOT NULL DEFAULT '',
	source TEXT NOT NULL,
	latency_ms BIGINT NOT NULL DEFAULT 0,
	created_at TIMESTAMP NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_chat_transcripts_session ON chat_transcripts (session_id, created_at);
`

// Store writes and reads transcripts.
type Store struct {
	db     *sql.DB
	driver string
}

// Open connects to the database and creates the schema.
func Open(ctx context.Context, driver, dsn string) (*Store, error) {
	var sqlDriver string
	switch driver {
	case DriverSQLite:
		sqlDriver = "sqlite3"
	case DriverPostgres:
		sqlDriver = "postgres"
	default:
		return nil, domain.ConfigError(fmt.Sprintf("unsupported audit driver %q", driver), nil)
	}

	db, err := sql.Open(sqlDriver, dsn)
	if err != nil {
		return nil, domain.StorageError("open audit database", err)
	}
	if driver == DriverSQLite {
		// sqlite serializes writers
		db.SetMaxOpenConns(1)
	}

	s := &Store{db: db, driver: driver}
	if err := s.migrate(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) migrate(ctx context.Context) error {
	for _, stmt := range strings.Split(schema, ";") {
		if strings.TrimSpace(stmt) == "" {
			continue
		}
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return domain.StorageError("create audit schema", err)
		}
	}
	return nil
}

// Record inserts an entry, filling ID and CreatedAt when unset.
func (s *Store) Record(ctx context.Context, e Entry) error {
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now().UTC()
	}

	query := s.rebind(`
		INSERT INTO chat_transcripts (id, session_id, user_message, reply, query_type, source, latency_ms, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`)
	_, err := s.db.ExecContext(ctx, query,
		e.ID.String(), e.SessionID, e.UserMessage, e.Reply,
		e.QueryType, e.Source, e.LatencyMS, e.CreatedAt,
	)
	if err != nil {
		return domain.StorageError("record transcript", err)
	}
	return nil
}

// ListBySession returns a session's entries, oldest first. limit <= 0 means
// no limit.
func (s *Store) ListBySession(ctx context.Context, sessionID string, limit int) ([]Entry, error) {
	query := `
		SELECT id, session_id, user_message, reply, query_type, source, latency_ms, created_at
		FROM chat_transcripts
		WHERE session_id = ?
		ORDER BY created_at ASC, id ASC
	`
	args := []interface{}{sessionID}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, s.rebind(query), args...)
	if err != nil {
		return nil, domain.StorageError("list transcripts", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var (
			e  Entry
			id string
		)
		if err := rows.Scan(&id, &e.SessionID, &e.UserMessage, &e.Reply,
			&e.QueryType, &e.Source, &e.LatencyMS, &e.CreatedAt); err != nil {
			return nil, domain.StorageError("scan transcript", err)
		}
		parsed, err := uuid.Parse(id)
		if err != nil {
			return nil, domain.StorageError("parse transcript id", err)
		}
		e.ID = parsed
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, domain.StorageError("iterate transcripts", err)
	}
	return entries, nil
}

// Get returns one entry.
func (s *Store) Get(ctx context.Context, id uuid.UUID) (*Entry, error) {
	query := s.rebind(`
		SELECT session_id, user_message, reply, query_type, source, latency_ms, created_at
		FROM chat_transcripts WHERE id = ?
	`)
	e := &Entry{ID: id}
	err := s.db.QueryRowContext(ctx, query, id.String()).Scan(
		&e.SessionID, &e.UserMessage, &e.Reply, &e.QueryType, &e.Source, &e.LatencyMS, &e.CreatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.NotFoundError("transcript "+id.String(), err)
	}
	if err != nil {
		return nil, domain.StorageError("get transcript", err)
	}
	return e, nil
}

// Ping checks the connection.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// rebind turns ? placeholders into $n for postgres.
func (s *Store) rebind(query string) string {
	if s.driver != DriverPostgres {
		return query
	}
	var b strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteString("$" + strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}
