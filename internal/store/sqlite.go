package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/stillpointhq/stillpoint/internal/session"
)

// Timestamps are stored as RFC3339Nano text so rows stay portable across
// SQLite tooling.
const sqliteSchema = `
CREATE TABLE IF NOT EXISTS sessions (
	id TEXT PRIMARY KEY,
	owner_id TEXT NOT NULL,
	state TEXT NOT NULL,
	space TEXT NOT NULL DEFAULT '',
	region TEXT NOT NULL DEFAULT '',
	iteration_count INTEGER NOT NULL DEFAULT 0,
	depth_score REAL NOT NULL DEFAULT 0,
	grounding_count INTEGER NOT NULL DEFAULT 0,
	soft_limit_warned INTEGER NOT NULL DEFAULT 0,
	pending_question TEXT NOT NULL DEFAULT '',
	reflected_words TEXT NOT NULL DEFAULT '',
	summary TEXT NOT NULL DEFAULT '',
	started_at TEXT,
	created_at TEXT NOT NULL,
	updated_at TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_sessions_owner_created ON sessions (owner_id, created_at DESC);

CREATE TABLE IF NOT EXISTS turns (
	id TEXT PRIMARY KEY,
	session_id TEXT NOT NULL REFERENCES sessions(id) ON DELETE CASCADE,
	iteration_number INTEGER NOT NULL,
	question_asked TEXT NOT NULL,
	user_response TEXT NOT NULL,
	reflected_words TEXT NOT NULL DEFAULT '',
	space_explored TEXT NOT NULL DEFAULT '',
	depth_score_at_end REAL NOT NULL DEFAULT 0,
	intervention_label TEXT NOT NULL DEFAULT '',
	created_at TEXT NOT NULL
);

CREATE UNIQUE INDEX IF NOT EXISTS idx_turns_session_iteration ON turns (session_id, iteration_number);

CREATE TABLE IF NOT EXISTS audit_events (
	id TEXT PRIMARY KEY,
	session_id TEXT NOT NULL REFERENCES sessions(id) ON DELETE CASCADE,
	event_type TEXT NOT NULL,
	trigger_summary TEXT NOT NULL DEFAULT '',
	depth_score REAL NOT NULL DEFAULT 0,
	response_taken TEXT NOT NULL DEFAULT '',
	created_at TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_audit_events_session_created ON audit_events (session_id, created_at);
`

// SQLiteStore persists sessions in a local SQLite file. It suits single-node
// deployments that want durability without a database server.
type SQLiteStore struct {
	db *sql.DB
}

func NewSQLiteStore(ctx context.Context, path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", strings.TrimSpace(path))
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	if _, err := db.ExecContext(ctx, "PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("pragma journal_mode: %w", err)
	}
	if _, err := db.ExecContext(ctx, "PRAGMA foreign_keys=ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("pragma foreign_keys: %w", err)
	}
	if _, err := db.ExecContext(ctx, sqliteSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("init sqlite schema: %w", err)
	}
	return &SQLiteStore{db: db}, nil
}

func (s *SQLiteStore) CreateSession(ctx context.Context, sess *session.Session) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO sessions (
			id, owner_id, state, space, region, iteration_count, depth_score,
			grounding_count, soft_limit_warned, pending_question, reflected_words,
			summary, started_at, created_at, updated_at
		) VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?,?,?)`,
		sess.ID,
		sess.OwnerID,
		string(sess.State),
		string(sess.Space),
		sess.Region,
		sess.IterationCount,
		sess.DepthScore,
		sess.GroundingCount,
		sess.SoftLimitWarned,
		sess.PendingQuestion,
		sess.ReflectedWords,
		sess.Summary,
		nullableTime(sess.StartedAt),
		formatTime(sess.CreatedAt),
		formatTime(sess.UpdatedAt),
	)
	if err != nil {
		return fmt.Errorf("create session: %w", err)
	}
	return nil
}

func (s *SQLiteStore) GetSession(ctx context.Context, id string) (*session.Session, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, owner_id, state, space, region, iteration_count, depth_score,
			grounding_count, soft_limit_warned, pending_question, reflected_words,
			summary, started_at, created_at, updated_at
		 FROM sessions WHERE id=?`, id)

	var sess session.Session
	var state, space, createdAt, updatedAt string
	var startedAt sql.NullString
	err := row.Scan(&sess.ID, &sess.OwnerID, &state, &space, &sess.Region,
		&sess.IterationCount, &sess.DepthScore, &sess.GroundingCount,
		&sess.SoftLimitWarned, &sess.PendingQuestion, &sess.ReflectedWords,
		&sess.Summary, &startedAt, &createdAt, &updatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("scan session row: %w", err)
	}

	sess.State = session.State(state)
	sess.Space = session.Space(space)
	if startedAt.Valid {
		ts := parseTime(startedAt.String)
		sess.StartedAt = &ts
	}
	sess.CreatedAt = parseTime(createdAt)
	sess.UpdatedAt = parseTime(updatedAt)
	return &sess, nil
}

func (s *SQLiteStore) CommitTurn(ctx context.Context, commit Commit) error {
	if commit.Session == nil {
		return fmt.Errorf("commit requires a session")
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx,
		`UPDATE sessions SET
			state=?, space=?, region=?, iteration_count=?, depth_score=?,
			grounding_count=?, soft_limit_warned=?, pending_question=?,
			reflected_words=?, summary=?, started_at=?, updated_at=?
		 WHERE id=?`,
		string(commit.Session.State),
		string(commit.Session.Space),
		commit.Session.Region,
		commit.Session.IterationCount,
		commit.Session.DepthScore,
		commit.Session.GroundingCount,
		commit.Session.SoftLimitWarned,
		commit.Session.PendingQuestion,
		commit.Session.ReflectedWords,
		commit.Session.Summary,
		nullableTime(commit.Session.StartedAt),
		formatTime(commit.Session.UpdatedAt),
		commit.Session.ID,
	)
	if err != nil {
		return fmt.Errorf("update session: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrNotFound
	}

	if commit.Turn != nil {
		_, err = tx.ExecContext(ctx,
			`INSERT INTO turns (
				id, session_id, iteration_number, question_asked, user_response,
				reflected_words, space_explored, depth_score_at_end,
				intervention_label, created_at
			) VALUES (?,?,?,?,?,?,?,?,?,?)`,
			commit.Turn.ID,
			commit.Turn.SessionID,
			commit.Turn.IterationNumber,
			commit.Turn.QuestionAsked,
			commit.Turn.UserResponse,
			commit.Turn.ReflectedWords,
			commit.Turn.SpaceExplored,
			commit.Turn.DepthScoreAtEnd,
			commit.Turn.InterventionLabel,
			formatTime(commit.Turn.CreatedAt),
		)
		if err != nil {
			return fmt.Errorf("insert turn: %w", err)
		}
	}

	for _, ev := range commit.Events {
		_, err = tx.ExecContext(ctx,
			`INSERT INTO audit_events (
				id, session_id, event_type, trigger_summary, depth_score,
				response_taken, created_at
			) VALUES (?,?,?,?,?,?,?)`,
			ev.ID,
			ev.SessionID,
			ev.EventType,
			ev.TriggerSummary,
			ev.DepthScore,
			ev.ResponseTaken,
			formatTime(ev.CreatedAt),
		)
		if err != nil {
			return fmt.Errorf("insert audit event: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

func (s *SQLiteStore) Turns(ctx context.Context, sessionID string) ([]session.Turn, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, session_id, iteration_number, question_asked, user_response,
			reflected_words, space_explored, depth_score_at_end,
			intervention_label, created_at
		 FROM turns WHERE session_id=? ORDER BY iteration_number`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("query turns: %w", err)
	}
	defer rows.Close()

	var turns []session.Turn
	for rows.Next() {
		var t session.Turn
		var createdAt string
		if err := rows.Scan(&t.ID, &t.SessionID, &t.IterationNumber, &t.QuestionAsked,
			&t.UserResponse, &t.ReflectedWords, &t.SpaceExplored, &t.DepthScoreAtEnd,
			&t.InterventionLabel, &createdAt); err != nil {
			return nil, fmt.Errorf("scan turn row: %w", err)
		}
		t.CreatedAt = parseTime(createdAt)
		turns = append(turns, t)
	}
	return turns, rows.Err()
}

func (s *SQLiteStore) AuditTrail(ctx context.Context, sessionID string) ([]session.AuditEvent, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, session_id, event_type, trigger_summary, depth_score,
			response_taken, created_at
		 FROM audit_events WHERE session_id=? ORDER BY created_at`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("query audit events: %w", err)
	}
	defer rows.Close()

	var events []session.AuditEvent
	for rows.Next() {
		var ev session.AuditEvent
		var createdAt string
		if err := rows.Scan(&ev.ID, &ev.SessionID, &ev.EventType, &ev.TriggerSummary,
			&ev.DepthScore, &ev.ResponseTaken, &createdAt); err != nil {
			return nil, fmt.Errorf("scan audit row: %w", err)
		}
		ev.CreatedAt = parseTime(createdAt)
		events = append(events, ev)
	}
	return events, rows.Err()
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func parseTime(raw string) time.Time {
	t, _ := time.Parse(time.RFC3339Nano, raw)
	return t
}

func nullableTime(t *time.Time) any {
	if t == nil {
		return nil
	}
	return formatTime(*t)
}
