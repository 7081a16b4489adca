package domain

import (
	"fmt"
	"time"
)

type SessionStatus string

const (
	StatusInProgress SessionStatus = "in_progress"
	StatusCompleted  SessionStatus = "completed"
	StatusAbandoned  SessionStatus = "abandoned"
)

// MinEvaluationMessages is the shortest transcript the evaluator accepts.
const MinEvaluationMessages = 2

// SessionState is a whole training session. The live service never keeps it;
// it is round-tripped through the client.
type SessionState struct {
	SessionID   string        `json:"sessionId"`
	Scenario    ScenarioInfo  `json:"scenario"`
	Messages    []Message     `json:"messages"`
	Status      SessionStatus `json:"status"`
	StartedAt   time.Time     `json:"startedAt"`
	CompletedAt *time.Time    `json:"completedAt,omitempty"`
}

// Transition moves the session to next. Only in_progress sessions can move,
// and only to completed or abandoned.
func (s *SessionState) Transition(next SessionStatus, at time.Time) error {
	if s.Status != StatusInProgress {
		return fmt.Errorf("session %s is %s: %w", s.SessionID, s.Status, ErrInvalidTransition)
	}
	switch next {
	case StatusCompleted, StatusAbandoned:
	default:
		return fmt.Errorf("cannot move session to %q: %w", next, ErrInvalidTransition)
	}
	s.Status = next
	s.CompletedAt = &at
	return nil
}

// Append adds messages to the transcript in order.
func (s *SessionState) Append(msgs ...Message) {
	s.Messages = append(s.Messages, msgs...)
}
