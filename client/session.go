package client

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/satriahrh/client-talk/domain"
)

// MinEvaluationTurns is how many trainee messages must be sent before the
// session can be evaluated.
const MinEvaluationTurns = 3

var (
	ErrNoSession    = errors.New("no active session")
	ErrEmptyMessage = errors.New("empty message")
)

// Session holds at most one active training session. The mutex only guards
// the fields; concurrent calls are not queued or rejected, callers gate on
// Loading.
type Session struct {
	api *API
	now func() time.Time

	mu         sync.Mutex
	state      *domain.SessionState
	watchToken string
	evaluation *domain.SessionEvaluation
	loading    bool
	err        error
}

func NewSession(api *API) *Session {
	return &Session{api: api, now: time.Now}
}

// Start replaces any current session with a new one.
func (s *Session) Start(ctx context.Context, category domain.Category, difficulty int) error {
	s.mu.Lock()
	s.loading = true
	s.err = nil
	s.evaluation = nil
	s.mu.Unlock()

	started, err := s.api.CreateSession(ctx, category, difficulty)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.loading = false
	if err != nil {
		s.err = fmt.Errorf("start session: %w", err)
		return s.err
	}
	state := started.SessionState
	s.state = &state
	s.watchToken = started.WatchToken
	return nil
}

// Send posts the trainee's message. The transcript only grows once the
// server answers.
func (s *Session) Send(ctx context.Context, text string) (*ChatResult, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, ErrEmptyMessage
	}

	s.mu.Lock()
	if s.state == nil {
		s.mu.Unlock()
		return nil, ErrNoSession
	}
	sessionID := s.state.SessionID
	scenario := s.state.Scenario
	history := slices.Clone(s.state.Messages)
	s.loading = true
	s.err = nil
	s.mu.Unlock()

	result, err := s.api.Chat(ctx, sessionID, scenario, history, text)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.loading = false
	if err != nil {
		s.err = fmt.Errorf("send message: %w", err)
		return nil, s.err
	}
	if s.state != nil && s.state.SessionID == sessionID {
		s.state.Append(result.UserMessage, result.ClientMessage)
	}
	return result, nil
}

// Evaluate scores the session and marks it completed.
func (s *Session) Evaluate(ctx context.Context) (*domain.SessionEvaluation, error) {
	s.mu.Lock()
	if s.state == nil {
		s.mu.Unlock()
		return nil, ErrNoSession
	}
	sessionID := s.state.SessionID
	scenario := s.state.Scenario
	history := slices.Clone(s.state.Messages)
	s.loading = true
	s.err = nil
	s.mu.Unlock()

	evaluation, err := s.api.Evaluate(ctx, sessionID, scenario, history)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.loading = false
	if err != nil {
		s.err = fmt.Errorf("evaluate session: %w", err)
		return nil, s.err
	}
	s.evaluation = evaluation
	if s.state != nil && s.state.SessionID == sessionID {
		if err := s.state.Transition(domain.StatusCompleted, s.now()); err != nil {
			s.err = err
			return evaluation, err
		}
	}
	return evaluation, nil
}

// Abandon ends the current session without an evaluation.
func (s *Session) Abandon() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == nil {
		return ErrNoSession
	}
	return s.state.Transition(domain.StatusAbandoned, s.now())
}

// Reset forgets the session, its evaluation and the last error.
func (s *Session) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = nil
	s.watchToken = ""
	s.evaluation = nil
	s.err = nil
}

// State returns a copy of the current session, or nil.
func (s *Session) State() *domain.SessionState {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == nil {
		return nil
	}
	state := *s.state
	state.Messages = slices.Clone(s.state.Messages)
	return &state
}

func (s *Session) WatchToken() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.watchToken
}

func (s *Session) Evaluation() *domain.SessionEvaluation {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.evaluation
}

func (s *Session) Loading() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loading
}

func (s *Session) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

// UserTurns counts the trainee's messages so far.
func (s *Session) UserTurns() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == nil {
		return 0
	}
	return domain.CountRole(s.state.Messages, domain.UserRole)
}

// CanEvaluate reports whether the trainee has said enough and nothing is in
// flight.
func (s *Session) CanEvaluate() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state != nil &&
		!s.loading &&
		s.state.Status == domain.StatusInProgress &&
		domain.CountRole(s.state.Messages, domain.UserRole) >= MinEvaluationTurns
}
