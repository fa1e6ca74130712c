package store

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/stillpointhq/stillpoint/internal/session"
)

// PostgresStore persists sessions in PostgreSQL. One CommitTurn maps to one
// transaction.
type PostgresStore struct {
	pool *pgxpool.Pool
}

func NewPostgresStore(ctx context.Context, databaseURL string) (*PostgresStore, error) {
	pool, err := pgxpool.New(ctx, strings.TrimSpace(databaseURL))
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	if err := initSchema(ctx, pool); err != nil {
		pool.Close()
		return nil, err
	}
	return &PostgresStore{pool: pool}, nil
}

func initSchema(ctx context.Context, pool *pgxpool.Pool) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS sessions (
			id TEXT PRIMARY KEY,
			owner_id TEXT NOT NULL,
			state TEXT NOT NULL,
			space TEXT NOT NULL DEFAULT '',
			region TEXT NOT NULL DEFAULT '',
			iteration_count INTEGER NOT NULL DEFAULT 0,
			depth_score DOUBLE PRECISION NOT NULL DEFAULT 0,
			grounding_count INTEGER NOT NULL DEFAULT 0,
			soft_limit_warned BOOLEAN NOT NULL DEFAULT FALSE,
			pending_question TEXT NOT NULL DEFAULT '',
			reflected_words TEXT NOT NULL DEFAULT '',
			summary TEXT NOT NULL DEFAULT '',
			started_at TIMESTAMPTZ NULL,
			created_at TIMESTAMPTZ NOT NULL,
			updated_at TIMESTAMPTZ NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS idx_sessions_owner_created ON sessions (owner_id, created_at DESC);`,
		`CREATE TABLE IF NOT EXISTS turns (
			id TEXT PRIMARY KEY,
			session_id TEXT NOT NULL REFERENCES sessions(id) ON DELETE CASCADE,
			iteration_number INTEGER NOT NULL,
			question_asked TEXT NOT NULL,
			user_response TEXT NOT NULL,
			reflected_words TEXT NOT NULL DEFAULT '',
			space_explored TEXT NOT NULL DEFAULT '',
			depth_score_at_end DOUBLE PRECISION NOT NULL DEFAULT 0,
			intervention_label TEXT NOT NULL DEFAULT '',
			created_at TIMESTAMPTZ NOT NULL
		);`,
		`CREATE UNIQUE INDEX IF NOT EXISTS idx_turns_session_iteration ON turns (session_id, iteration_number);`,
		`CREATE TABLE IF NOT EXISTS audit_events (
			id TEXT PRIMARY KEY,
			session_id TEXT NOT NULL REFERENCES sessions(id) ON DELETE CASCADE,
			event_type TEXT NOT NULL,
			trigger_summary TEXT NOT NULL DEFAULT '',
			depth_score DOUBLE PRECISION NOT NULL DEFAULT 0,
			response_taken TEXT NOT NULL DEFAULT '',
			created_at TIMESTAMPTZ NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS idx_audit_events_session_created ON audit_events (session_id, created_at);`,
	}

	for _, stmt := range stmts {
		if _, err := pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("init schema failed on %q: %w", stmt, err)
		}
	}
	return nil
}

func (s *PostgresStore) CreateSession(ctx context.Context, sess *session.Session) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO sessions (
			id, owner_id, state, space, region, iteration_count, depth_score,
			grounding_count, soft_limit_warned, pending_question, reflected_words,
			summary, started_at, created_at, updated_at
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15)`,
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
		sess.StartedAt,
		sess.CreatedAt,
		sess.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("create session: %w", err)
	}
	return nil
}

func (s *PostgresStore) GetSession(ctx context.Context, id string) (*session.Session, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT id, owner_id, state, space, region, iteration_count, depth_score,
			grounding_count, soft_limit_warned, pending_question, reflected_words,
			summary, started_at, created_at, updated_at
		 FROM sessions WHERE id=$1`, id)
	return scanSessionRow(row)
}

func (s *PostgresStore) CommitTurn(ctx context.Context, commit Commit) error {
	if commit.Session == nil {
		return fmt.Errorf("commit requires a session")
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	tag, err := tx.Exec(ctx,
		`UPDATE sessions SET
			state=$2, space=$3, region=$4, iteration_count=$5, depth_score=$6,
			grounding_count=$7, soft_limit_warned=$8, pending_question=$9,
			reflected_words=$10, summary=$11, started_at=$12, updated_at=$13
		 WHERE id=$1`,
		commit.Session.ID,
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
		commit.Session.StartedAt,
		commit.Session.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("update session: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}

	if commit.Turn != nil {
		_, err = tx.Exec(ctx,
			`INSERT INTO turns (
				id, session_id, iteration_number, question_asked, user_response,
				reflected_words, space_explored, depth_score_at_end,
				intervention_label, created_at
			) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)`,
			commit.Turn.ID,
			commit.Turn.SessionID,
			commit.Turn.IterationNumber,
			commit.Turn.QuestionAsked,
			commit.Turn.UserResponse,
			commit.Turn.ReflectedWords,
			commit.Turn.SpaceExplored,
			commit.Turn.DepthScoreAtEnd,
			commit.Turn.InterventionLabel,
			commit.Turn.CreatedAt,
		)
		if err != nil {
			return fmt.Errorf("insert turn: %w", err)
		}
	}

	for _, ev := range commit.Events {
		_, err = tx.Exec(ctx,
			`INSERT INTO audit_events (
				id, session_id, event_type, trigger_summary, depth_score,
				response_taken, created_at
			) VALUES ($1,$2,$3,$4,$5,$6,$7)`,
			ev.ID,
			ev.SessionID,
			ev.EventType,
			ev.TriggerSummary,
			ev.DepthScore,
			ev.ResponseTaken,
			ev.CreatedAt,
		)
		if err != nil {
			return fmt.Errorf("insert audit event: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

func (s *PostgresStore) Turns(ctx context.Context, sessionID string) ([]session.Turn, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, session_id, iteration_number, question_asked, user_response,
			reflected_words, space_explored, depth_score_at_end,
			intervention_label, created_at
		 FROM turns WHERE session_id=$1 ORDER BY iteration_number`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("query turns: %w", err)
	}
	defer rows.Close()

	var turns []session.Turn
	for rows.Next() {
		var t session.Turn
		if err := rows.Scan(&t.ID, &t.SessionID, &t.IterationNumber, &t.QuestionAsked,
			&t.UserResponse, &t.ReflectedWords, &t.SpaceExplored, &t.DepthScoreAtEnd,
			&t.InterventionLabel, &t.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan turn row: %w", err)
		}
		turns = append(turns, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate turn rows: %w", err)
	}
	return turns, nil
}

func (s *PostgresStore) AuditTrail(ctx context.Context, sessionID string) ([]session.AuditEvent, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, session_id, event_type, trigger_summary, depth_score,
			response_taken, created_at
		 FROM audit_events WHERE session_id=$1 ORDER BY created_at`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("query audit events: %w", err)
	}
	defer rows.Close()

	var events []session.AuditEvent
	for rows.Next() {
		var ev session.AuditEvent
		if err := rows.Scan(&ev.ID, &ev.SessionID, &ev.EventType, &ev.TriggerSummary,
			&ev.DepthScore, &ev.ResponseTaken, &ev.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan audit row: %w", err)
		}
		events = append(events, ev)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate audit rows: %w", err)
	}
	return events, nil
}

func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}

func scanSessionRow(row pgx.Row) (*session.Session, error) {
	var sess session.Session
	var state, space string
	err := row.Scan(&sess.ID, &sess.OwnerID, &state, &space, &sess.Region,
		&sess.IterationCount, &sess.DepthScore, &sess.GroundingCount,
		&sess.SoftLimitWarned, &sess.PendingQuestion, &sess.ReflectedWords,
		&sess.Summary, &sess.StartedAt, &sess.CreatedAt, &sess.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("scan session row: %w", err)
	}
	sess.State = session.State(state)
	sess.Space = session.Space(space)
	return &sess, nil
}
