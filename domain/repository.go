package domain

import (
	"context"
	"time"
)

// SessionRepository archives finished and running sessions. The live request
// path never reads from it.
type SessionRepository interface {
	// SaveSession records a newly started session with its hidden requirements.
	SaveSession(ctx context.Context, session *SessionState, hiddenRequirements []string) error

	// AppendMessages adds messages to an archived session and refreshes its
	// activity time.
	AppendMessages(ctx context.Context, sessionID string, msgs []Message) error

	// SaveEvaluation stores the evaluation and marks the session completed.
	SaveEvaluation(ctx context.Context, evaluation *SessionEvaluation, completedAt time.Time) error

	// GetSession loads an archived session with its transcript.
	GetSession(ctx context.Context, sessionID string) (*SessionState, error)

	// AbandonIdle marks in-progress sessions idle since before cutoff as
	// abandoned and returns their ids.
	AbandonIdle(ctx context.Context, cutoff time.Time) ([]string, error)

	Ping(ctx context.Context) error
	Close() error
}
