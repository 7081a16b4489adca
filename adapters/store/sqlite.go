// Package store archives training sessions. It is fed by session events and
// is never read by the live request path.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/satriahrh/client-talk/domain"
)

// SQLiteStore implements domain.SessionRepository using SQLite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens (and creates if needed) the archive database at dbPath.
func NewSQLite(dbPath string) (*SQLiteStore, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create database directory: %w", err)
	}

	dsn := dbPath + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&_pragma=foreign_keys(1)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	// one writer keeps SQLITE_BUSY away
	db.SetMaxOpenConns(1)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	s := &SQLiteStore{db: db}
	if err := s.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("initialize schema: %w", err)
	}
	return s, nil
}

func (s *SQLiteStore) initSchema() error {
	query := `
	CREATE TABLE IF NOT EXISTS training_sessions (
		session_id TEXT PRIMARY KEY,
		scenario_id TEXT NOT NULL,
		category TEXT NOT NULL,
		category_name TEXT NOT NULL DEFAULT '',
		title TEXT NOT NULL,
		description TEXT NOT NULL,
		difficulty INTEGER NOT NULL,
		client_persona TEXT NOT NULL,
		project_context TEXT NOT NULL,
		hidden_requirements TEXT NOT NULL DEFAULT '[]',
		status TEXT NOT NULL DEFAULT 'in_progress',
		started_at INTEGER NOT NULL,
		last_activity_at INTEGER NOT NULL,
		completed_at INTEGER,
		final_score INTEGER,
		feedback TEXT
	);
	CREATE INDEX IF NOT EXISTS idx_sessions_idle ON training_sessions(last_activity_at) WHERE status = 'in_progress';

	CREATE TABLE IF NOT EXISTS conversation_messages (
		id TEXT PRIMARY KEY,
		session_id TEXT NOT NULL REFERENCES training_sessions(session_id),
		seq INTEGER NOT NULL,
		role TEXT NOT NULL,
		content TEXT NOT NULL,
		intent_detected TEXT,
		created_at INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_messages_session ON conversation_messages(session_id, seq);

	CREATE TABLE IF NOT EXISTS evaluation_results (
		id TEXT PRIMARY KEY,
		session_id TEXT NOT NULL REFERENCES training_sessions(session_id),
		criteria_type TEXT NOT NULL,
		criteria_name TEXT NOT NULL,
		score INTEGER NOT NULL,
		feedback TEXT NOT NULL,
		examples TEXT NOT NULL DEFAULT '[]',
		created_at INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_evaluations_session ON evaluation_results(session_id);
	`
	if _, err := s.db.Exec(query); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	return nil
}

// Ping verifies database connectivity.
func (s *SQLiteStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// SaveSession records a new session and its opening messages.
func (s *SQLiteStore) SaveSession(ctx context.Context, session *domain.SessionState, hiddenRequirements []string) error {
	hidden, err := json.Marshal(nonNil(hiddenRequirements))
	if err != nil {
		return fmt.Errorf("marshal hidden requirements: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	sc := session.Scenario
	_, err = tx.ExecContext(ctx, `
	INSERT INTO training_sessions (session_id, scenario_id, category, category_name, title, description,
		difficulty, client_persona, project_context, hidden_requirements, status, started_at, last_activity_at)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT(session_id) DO NOTHING`,
		session.SessionID, sc.ID, string(sc.Category), sc.CategoryName, sc.Title, sc.Description,
		sc.Difficulty, sc.ClientPersona, sc.ProjectContext, string(hidden), string(session.Status),
		session.StartedAt.UnixMilli(), session.StartedAt.UnixMilli(),
	)
	if err != nil {
		return fmt.Errorf("insert session: %w", err)
	}

	if err := insertMessages(ctx, tx, session.SessionID, session.Messages); err != nil {
		return err
	}
	return tx.Commit()
}

// AppendMessages adds msgs after the last archived message of the session.
func (s *SQLiteStore) AppendMessages(ctx context.Context, sessionID string, msgs []domain.Message) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx,
		`UPDATE training_sessions SET last_activity_at = ? WHERE session_id = ?`,
		time.Now().UnixMilli(), sessionID)
	if err != nil {
		return fmt.Errorf("touch session: %w", err)
	}
	if n, err := res.RowsAffected(); err != nil {
		return fmt.Errorf("get rows affected: %w", err)
	} else if n == 0 {
		return fmt.Errorf("append to %s: %w", sessionID, domain.ErrSessionNotFound)
	}

	if err := insertMessages(ctx, tx, sessionID, msgs); err != nil {
		return err
	}
	return tx.Commit()
}

func insertMessages(ctx context.Context, tx *sql.Tx, sessionID string, msgs []domain.Message) error {
	var next int64
	row := tx.QueryRowContext(ctx,
		`SELECT COALESCE(MAX(seq), -1) + 1 FROM conversation_messages WHERE session_id = ?`, sessionID)
	if err := row.Scan(&next); err != nil {
		return fmt.Errorf("next message seq: %w", err)
	}

	for _, m := range msgs {
		var intent any
		if m.Metadata != nil && m.Metadata.IntentDetected != "" {
			intent = string(m.Metadata.IntentDetected)
		}
		res, err := tx.ExecContext(ctx, `
		INSERT INTO conversation_messages (id, session_id, seq, role, content, intent_detected, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO NOTHING`,
			m.ID, sessionID, next, string(m.Role), m.Content, intent, m.Timestamp.UnixMilli())
		if err != nil {
			return fmt.Errorf("insert message: %w", err)
		}
		if n, _ := res.RowsAffected(); n > 0 {
			next++
		}
	}
	return nil
}

// SaveEvaluation stores per-criterion results and completes the session.
func (s *SQLiteStore) SaveEvaluation(ctx context.Context, evaluation *domain.SessionEvaluation, completedAt time.Time) error {
	feedback, err := json.Marshal(feedbackOf(evaluation))
	if err != nil {
		return fmt.Errorf("marshal feedback: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, `
	UPDATE training_sessions
	SET status = ?, completed_at = ?, final_score = ?, feedback = ?, last_activity_at = ?
	WHERE session_id = ?`,
		string(domain.StatusCompleted), completedAt.UnixMilli(), evaluation.OverallScore,
		string(feedback), completedAt.UnixMilli(), evaluation.SessionID)
	if err != nil {
		return fmt.Errorf("complete session: %w", err)
	}
	if n, err := res.RowsAffected(); err != nil {
		return fmt.Errorf("get rows affected: %w", err)
	} else if n == 0 {
		return fmt.Errorf("evaluate %s: %w", evaluation.SessionID, domain.ErrSessionNotFound)
	}

	// a redelivered event replaces the earlier results
	if _, err := tx.ExecContext(ctx, `DELETE FROM evaluation_results WHERE session_id = ?`, evaluation.SessionID); err != nil {
		return fmt.Errorf("clear evaluation results: %w", err)
	}
	for _, r := range evaluation.Results {
		examples, err := json.Marshal(nonNil(r.Examples))
		if err != nil {
			return fmt.Errorf("marshal examples: %w", err)
		}
		_, err = tx.ExecContext(ctx, `
		INSERT INTO evaluation_results (id, session_id, criteria_type, criteria_name, score, feedback, examples, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			uuid.NewString(), evaluation.SessionID, r.CriteriaType, r.CriteriaName, r.Score,
			r.Feedback, string(examples), completedAt.UnixMilli())
		if err != nil {
			return fmt.Errorf("insert evaluation result: %w", err)
		}
	}
	return tx.Commit()
}

// GetSession loads a session and its transcript in order.
func (s *SQLiteStore) GetSession(ctx context.Context, sessionID string) (*domain.SessionState, error) {
	row := s.db.QueryRowContext(ctx, `
	SELECT session_id, scenario_id, category, category_name, title, description, difficulty,
	       client_persona, project_context, status, started_at, completed_at
	FROM training_sessions WHERE session_id = ?`, sessionID)

	var (
		session     domain.SessionState
		sc          = &session.Scenario
		category    string
		status      string
		startedAt   int64
		completedAt sql.NullInt64
	)
	err := row.Scan(&session.SessionID, &sc.ID, &category, &sc.CategoryName, &sc.Title, &sc.Description,
		&sc.Difficulty, &sc.ClientPersona, &sc.ProjectContext, &status, &startedAt, &completedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("get %s: %w", sessionID, domain.ErrSessionNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("scan session row: %w", err)
	}
	sc.Category = domain.Category(category)
	session.Status = domain.SessionStatus(status)
	session.StartedAt = time.UnixMilli(startedAt).UTC()
	if completedAt.Valid {
		t := time.UnixMilli(completedAt.Int64).UTC()
		session.CompletedAt = &t
	}

	rows, err := s.db.QueryContext(ctx, `
	SELECT id, role, content, intent_detected, created_at
	FROM conversation_messages WHERE session_id = ? ORDER BY seq`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("query messages: %w", err)
	}
	defer rows.Close()

	session.Messages = []domain.Message{}
	for rows.Next() {
		var (
			m         domain.Message
			role      string
			intent    sql.NullString
			createdAt int64
		)
		if err := rows.Scan(&m.ID, &role, &m.Content, &intent, &createdAt); err != nil {
			return nil, fmt.Errorf("scan message row: %w", err)
		}
		m.Role = domain.Role(role)
		m.Timestamp = time.UnixMilli(createdAt).UTC()
		if intent.Valid {
			m.Metadata = &domain.MessageMetadata{IntentDetected: domain.Emotion(intent.String)}
		}
		session.Messages = append(session.Messages, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate messages: %w", err)
	}
	return &session, nil
}

// AbandonIdle marks in-progress sessions without activity since cutoff as
// abandoned.
func (s *SQLiteStore) AbandonIdle(ctx context.Context, cutoff time.Time) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `
	UPDATE training_sessions SET status = ?, completed_at = ?
	WHERE status = ? AND last_activity_at < ?
	RETURNING session_id`,
		string(domain.StatusAbandoned), time.Now().UnixMilli(),
		string(domain.StatusInProgress), cutoff.UnixMilli())
	if err != nil {
		return nil, fmt.Errorf("abandon idle sessions: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan session id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

type feedback struct {
	OverallScore    int      `json:"overallScore"`
	Strengths       []string `json:"strengths"`
	Improvements    []string `json:"improvements"`
	Recommendations []string `json:"recommendations"`
}

func feedbackOf(e *domain.SessionEvaluation) feedback {
	return feedback{
		OverallScore:    e.OverallScore,
		Strengths:       nonNil(e.Strengths),
		Improvements:    nonNil(e.Improvements),
		Recommendations: nonNil(e.Recommendations),
	}
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
