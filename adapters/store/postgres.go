package store

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"time"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/satriahrh/client-talk/domain"
	"github.com/satriahrh/client-talk/utils/log"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// PostgresStore implements domain.SessionRepository on PostgreSQL.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgres migrates the schema and opens a connection pool.
func NewPostgres(ctx context.Context, databaseURL string) (*PostgresStore, error) {
	if err := runMigrations(databaseURL); err != nil {
		return nil, err
	}

	config, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse database config: %w", err)
	}
	config.MaxConns = 10
	config.MinConns = 1

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("create connection pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return &PostgresStore{pool: pool}, nil
}

func runMigrations(databaseURL string) error {
	sub, err := fs.Sub(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("load embedded migrations: %w", err)
	}
	d, err := iofs.New(sub, ".")
	if err != nil {
		return fmt.Errorf("create migration source: %w", err)
	}

	m, err := migrate.NewWithSourceInstance("iofs", d, databaseURL)
	if err != nil {
		return fmt.Errorf("create migrate instance: %w", err)
	}
	defer m.Close()

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("run migrations: %w", err)
	}

	version, dirty, _ := m.Version()
	log.With(zap.Uint("version", version), zap.Bool("dirty", dirty)).Info("migrations applied")
	return nil
}

func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}

func (s *PostgresStore) SaveSession(ctx context.Context, session *domain.SessionState, hiddenRequirements []string) error {
	return pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		sc := session.Scenario
		_, err := tx.Exec(ctx, `
		INSERT INTO training_sessions (session_id, scenario_id, category, category_name, title, description,
			difficulty, client_persona, project_context, hidden_requirements, status, started_at, last_activity_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $12)
		ON CONFLICT (session_id) DO NOTHING`,
			session.SessionID, sc.ID, string(sc.Category), sc.CategoryName, sc.Title, sc.Description,
			sc.Difficulty, sc.ClientPersona, sc.ProjectContext, nonNil(hiddenRequirements),
			string(session.Status), session.StartedAt,
		)
		if err != nil {
			return fmt.Errorf("insert session: %w", err)
		}
		return insertMessagesPg(ctx, tx, session.SessionID, session.Messages)
	})
}

func (s *PostgresStore) AppendMessages(ctx context.Context, sessionID string, msgs []domain.Message) error {
	return pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx,
			`UPDATE training_sessions SET last_activity_at = now() WHERE session_id = $1`, sessionID)
		if err != nil {
			return fmt.Errorf("touch session: %w", err)
		}
		if tag.RowsAffected() == 0 {
			return fmt.Errorf("append to %s: %w", sessionID, domain.ErrSessionNotFound)
		}
		return insertMessagesPg(ctx, tx, sessionID, msgs)
	})
}

func insertMessagesPg(ctx context.Context, tx pgx.Tx, sessionID string, msgs []domain.Message) error {
	var next int
	err := tx.QueryRow(ctx,
		`SELECT COALESCE(MAX(seq), -1) + 1 FROM conversation_messages WHERE session_id = $1`,
		sessionID).Scan(&next)
	if err != nil {
		return fmt.Errorf("next message seq: %w", err)
	}

	for _, m := range msgs {
		var intent *string
		if m.Metadata != nil && m.Metadata.IntentDetected != "" {
			v := string(m.Metadata.IntentDetected)
			intent = &v
		}
		tag, err := tx.Exec(ctx, `
		INSERT INTO conversation_messages (id, session_id, seq, role, content, intent_detected, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (id) DO NOTHING`,
			m.ID, sessionID, next, string(m.Role), m.Content, intent, m.Timestamp)
		if err != nil {
			return fmt.Errorf("insert message: %w", err)
		}
		if tag.RowsAffected() > 0 {
			next++
		}
	}
	return nil
}

func (s *PostgresStore) SaveEvaluation(ctx context.Context, evaluation *domain.SessionEvaluation, completedAt time.Time) error {
	return pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx, `
		UPDATE training_sessions
		SET status = $1, completed_at = $2, final_score = $3, feedback = $4, last_activity_at = $2
		WHERE session_id = $5`,
			string(domain.StatusCompleted), completedAt, evaluation.OverallScore,
			feedbackOf(evaluation), evaluation.SessionID)
		if err != nil {
			return fmt.Errorf("complete session: %w", err)
		}
		if tag.RowsAffected() == 0 {
			return fmt.Errorf("evaluate %s: %w", evaluation.SessionID, domain.ErrSessionNotFound)
		}

		// a redelivered event replaces the earlier results
		batch := &pgx.Batch{}
		batch.Queue(`DELETE FROM evaluation_results WHERE session_id = $1`, evaluation.SessionID)
		for _, r := range evaluation.Results {
			batch.Queue(`
			INSERT INTO evaluation_results (id, session_id, criteria_type, criteria_name, score, feedback, examples, created_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
				uuid.New(), evaluation.SessionID, r.CriteriaType, r.CriteriaName, r.Score,
				r.Feedback, nonNil(r.Examples), completedAt)
		}
		if err := tx.SendBatch(ctx, batch).Close(); err != nil {
			return fmt.Errorf("insert evaluation results: %w", err)
		}
		return nil
	})
}

func (s *PostgresStore) GetSession(ctx context.Context, sessionID string) (*domain.SessionState, error) {
	var (
		session  domain.SessionState
		sc       = &session.Scenario
		category string
		status   string
	)
	err := s.pool.QueryRow(ctx, `
	SELECT session_id, scenario_id, category, category_name, title, description, difficulty,
	       client_persona, project_context, status, started_at, completed_at
	FROM training_sessions WHERE session_id = $1`, sessionID).Scan(
		&session.SessionID, &sc.ID, &category, &sc.CategoryName, &sc.Title, &sc.Description,
		&sc.Difficulty, &sc.ClientPersona, &sc.ProjectContext, &status, &session.StartedAt,
		&session.CompletedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("get %s: %w", sessionID, domain.ErrSessionNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("scan session row: %w", err)
	}
	sc.Category = domain.Category(category)
	session.Status = domain.SessionStatus(status)

	rows, err := s.pool.Query(ctx, `
	SELECT id, role, content, intent_detected, created_at
	FROM conversation_messages WHERE session_id = $1 ORDER BY seq`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("query messages: %w", err)
	}
	defer rows.Close()

	session.Messages = []domain.Message{}
	for rows.Next() {
		var (
			m      domain.Message
			role   string
			intent *string
		)
		if err := rows.Scan(&m.ID, &role, &m.Content, &intent, &m.Timestamp); err != nil {
			return nil, fmt.Errorf("scan message row: %w", err)
		}
		m.Role = domain.Role(role)
		if intent != nil {
			m.Metadata = &domain.MessageMetadata{IntentDetected: domain.Emotion(*intent)}
		}
		session.Messages = append(session.Messages, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate messages: %w", err)
	}
	return &session, nil
}

func (s *PostgresStore) AbandonIdle(ctx context.Context, cutoff time.Time) ([]string, error) {
	rows, err := s.pool.Query(ctx, `
	UPDATE training_sessions SET status = $1, completed_at = now()
	WHERE status = $2 AND last_activity_at < $3
	RETURNING session_id`,
		string(domain.StatusAbandoned), string(domain.StatusInProgress), cutoff)
	if err != nil {
		return nil, fmt.Errorf("abandon idle sessions: %w", err)
	}
	ids, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, fmt.Errorf("collect session ids: %w", err)
	}
	return ids, nil
}
