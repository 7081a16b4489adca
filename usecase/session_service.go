package usecase

import (
	"context"
	"encoding/json"
	"fmt"
	"math/rand/v2"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/satriahrh/client-talk/domain"
	"github.com/satriahrh/client-talk/utils/log"
)

// SessionService runs the three training operations. It keeps no session
// state; callers round-trip scenario and transcript on every call.
type SessionService struct {
	gateway *Gateway
	broker  domain.MessageBroker
	now     func() time.Time
	newID   func() string
	pick    func(n int) int
}

type Option func(*SessionService)

// WithBroker publishes session events to broker. Without it no events are
// emitted.
func WithBroker(broker domain.MessageBroker) Option {
	return func(s *SessionService) { s.broker = broker }
}

func WithClock(now func() time.Time) Option {
	return func(s *SessionService) { s.now = now }
}

func WithIDGenerator(newID func() string) Option {
	return func(s *SessionService) { s.newID = newID }
}

// WithPicker replaces the random index source used for category selection.
func WithPicker(pick func(n int) int) Option {
	return func(s *SessionService) { s.pick = pick }
}

func NewSessionService(gateway *Gateway, opts ...Option) *SessionService {
	s := &SessionService{
		gateway: gateway,
		now:     time.Now,
		newID:   uuid.NewString,
		pick:    rand.IntN,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Categories returns the fixed training categories.
func (s *SessionService) Categories() []domain.CategoryInfo {
	return domain.Categories()
}

type CreateSessionInput struct {
	// Category is optional; empty picks one at random.
	Category domain.Category
	// Difficulty is optional; nil means domain.DefaultDifficulty.
	Difficulty *float64
}

func (s *SessionService) CreateSession(ctx context.Context, in CreateSessionInput) (*domain.SessionState, error) {
	category := in.Category
	if category == "" {
		all := domain.Categories()
		category = all[s.pick(len(all))].ID
	}
	info, ok := domain.LookupCategory(category)
	if !ok {
		return nil, fmt.Errorf("category %q: %w", category, domain.ErrUnknownCategory)
	}

	difficulty := domain.DefaultDifficulty
	if in.Difficulty != nil {
		difficulty = domain.ClampDifficulty(*in.Difficulty)
	}

	generated, err := s.gateway.GenerateScenario(ctx, category, difficulty)
	if err != nil {
		return nil, err
	}

	scenario := domain.ScenarioInfo{
		ID:             s.newID(),
		Title:          generated.Title,
		Description:    generated.Description,
		Category:       category,
		CategoryName:   info.NameJa,
		Difficulty:     difficulty,
		ClientPersona:  generated.ClientPersona,
		ProjectContext: generated.ProjectContext,
	}

	opening := s.gateway.GenerateOpeningMessage(ctx, scenario)

	session := &domain.SessionState{
		SessionID: s.newID(),
		Scenario:  scenario,
		Status:    domain.StatusInProgress,
		StartedAt: s.now(),
	}
	session.Append(
		domain.Message{
			ID:        s.newID(),
			Role:      domain.SystemRole,
			Content:   "【シナリオ開始】\n\n" + generated.Description,
			Timestamp: s.now(),
		},
		domain.Message{
			ID:        s.newID(),
			Role:      domain.ClientRole,
			Content:   opening,
			Timestamp: s.now(),
		},
	)

	ctx = log.WithSessionID(ctx, session.SessionID)
	log.WithCtx(ctx).Info("Session started",
		zap.String("category", string(category)),
		zap.Int("difficulty", difficulty))

	s.publish(ctx, domain.SessionEvent{
		Type:               domain.EventSessionStarted,
		SessionID:          session.SessionID,
		Session:            session,
		HiddenRequirements: generated.HiddenRequirements,
	})
	return session, nil
}

type ContinueInput struct {
	// SessionID is optional and only used to route session events.
	SessionID   string
	Scenario    *domain.ScenarioInfo
	Messages    []domain.Message
	UserMessage string
}

type ContinueResult struct {
	UserMessage   domain.Message `json:"userMessage"`
	ClientMessage domain.Message `json:"clientMessage"`
	Emotion       domain.Emotion `json:"emotion"`
	Hints         []string       `json:"hints,omitempty"`
}

// Continue appends the trainee's message and produces the client's reply.
// The caller owns the merged history for the next call.
func (s *SessionService) Continue(ctx context.Context, in ContinueInput) (*ContinueResult, error) {
	if in.Scenario == nil || in.UserMessage == "" {
		return nil, fmt.Errorf("scenario and user message are required: %w", domain.ErrValidation)
	}
	ctx = log.WithSessionID(ctx, in.SessionID)

	userMessage := domain.Message{
		ID:        s.newID(),
		Role:      domain.UserRole,
		Content:   in.UserMessage,
		Timestamp: s.now(),
	}

	history := make([]domain.Message, 0, len(in.Messages)+1)
	history = append(history, in.Messages...)
	history = append(history, userMessage)

	reply := s.gateway.GenerateClientResponse(ctx, *in.Scenario, history)

	clientMessage := domain.Message{
		ID:        s.newID(),
		Role:      domain.ClientRole,
		Content:   reply.Message,
		Timestamp: s.now(),
		Metadata:  &domain.MessageMetadata{IntentDetected: reply.Emotion},
	}

	if in.SessionID != "" {
		s.publish(ctx, domain.SessionEvent{
			Type:      domain.EventSessionMessages,
			SessionID: in.SessionID,
			Messages:  []domain.Message{userMessage, clientMessage},
		})
	}

	return &ContinueResult{
		UserMessage:   userMessage,
		ClientMessage: clientMessage,
		Emotion:       reply.Emotion,
		Hints:         reply.Hints,
	}, nil
}

type EvaluateInput struct {
	SessionID string
	Scenario  *domain.ScenarioInfo
	Messages  []domain.Message
}

// Evaluate scores the transcript once. There are no retries and no partial
// results.
func (s *SessionService) Evaluate(ctx context.Context, in EvaluateInput) (*domain.SessionEvaluation, error) {
	if in.Scenario == nil || len(in.Messages) < domain.MinEvaluationMessages {
		return nil, fmt.Errorf("need a scenario and at least %d messages: %w", domain.MinEvaluationMessages, domain.ErrValidation)
	}
	ctx = log.WithSessionID(ctx, in.SessionID)

	eval, err := s.gateway.EvaluateSession(ctx, *in.Scenario, in.Messages)
	if err != nil {
		return nil, err
	}
	eval.SessionID = in.SessionID

	log.WithCtx(ctx).Info("Session evaluated", zap.Int("overall_score", eval.OverallScore))

	if in.SessionID != "" {
		s.publish(ctx, domain.SessionEvent{
			Type:       domain.EventSessionEvaluated,
			SessionID:  in.SessionID,
			Evaluation: eval,
		})
	}
	return eval, nil
}

// publish never fails the caller; broker errors are only logged.
func (s *SessionService) publish(ctx context.Context, event domain.SessionEvent) {
	if s.broker == nil {
		return
	}
	event.OccurredAt = s.now()

	payload, err := json.Marshal(event)
	if err != nil {
		log.WithCtx(ctx).Error("Error marshaling session event", zap.Error(err))
		return
	}
	if err := s.broker.Publish(ctx, domain.SessionEventsTopic, event.SessionID, payload); err != nil {
		log.WithCtx(ctx).Warn("Error publishing session event",
			zap.String("type", string(event.Type)),
			zap.Error(err))
	}
}
