package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/satriahrh/client-talk/domain"
	"github.com/satriahrh/client-talk/utils/log"
)

// Recorder copies session events from the broker into a repository.
type Recorder struct {
	repo   domain.SessionRepository
	broker domain.MessageBroker
}

func NewRecorder(repo domain.SessionRepository, broker domain.MessageBroker) *Recorder {
	return &Recorder{repo: repo, broker: broker}
}

// Run consumes events until ctx is done or the broker closes the stream.
func (r *Recorder) Run(ctx context.Context) error {
	events, err := r.broker.Subscribe(ctx, domain.SessionEventsTopic, "")
	if err != nil {
		return fmt.Errorf("subscribe to session events: %w", err)
	}
	log.With(zap.String("topic", domain.SessionEventsTopic)).Info("Archive recorder started")

	for env := range events {
		var event domain.SessionEvent
		if err := json.Unmarshal(env.Payload, &event); err != nil {
			log.With(zap.Error(err)).Warn("Dropping malformed session event")
			continue
		}
		if err := r.record(ctx, event); err != nil {
			log.WithCtx(log.WithSessionID(ctx, event.SessionID)).Error("Error archiving session event",
				zap.String("type", string(event.Type)),
				zap.Error(err))
		}
	}
	log.With(zap.Error(ctx.Err())).Info("Archive recorder stopped")
	return nil
}

func (r *Recorder) record(ctx context.Context, event domain.SessionEvent) error {
	switch event.Type {
	case domain.EventSessionStarted:
		if event.Session == nil {
			return errors.New("started event without session")
		}
		return r.repo.SaveSession(ctx, event.Session, event.HiddenRequirements)
	case domain.EventSessionMessages:
		return r.repo.AppendMessages(ctx, event.SessionID, event.Messages)
	case domain.EventSessionEvaluated:
		if event.Evaluation == nil {
			return errors.New("evaluated event without evaluation")
		}
		at := event.OccurredAt
		if at.IsZero() {
			at = time.Now()
		}
		return r.repo.SaveEvaluation(ctx, event.Evaluation, at)
	case domain.EventSessionAbandoned:
		// written by the sweeper before publishing
		return nil
	default:
		return fmt.Errorf("unknown event type %q", event.Type)
	}
}

// StartIdleSweeper periodically abandons archived sessions idle for longer
// than ttl and announces each one on the broker.
func StartIdleSweeper(ctx context.Context, repo domain.SessionRepository, broker domain.MessageBroker, ttl, interval time.Duration) {
	ticker := time.NewTicker(interval)
	go func() {
		defer ticker.Stop()
		log.With(zap.Duration("interval", interval), zap.Duration("ttl", ttl)).Info("Idle sweeper started")

		for {
			select {
			case <-ticker.C:
				SweepIdle(ctx, repo, broker, time.Now().Add(-ttl))
			case <-ctx.Done():
				log.With(zap.Error(ctx.Err())).Info("Idle sweeper shutting down")
				return
			}
		}
	}()
}

// SweepIdle runs one sweep and returns the abandoned session ids.
func SweepIdle(ctx context.Context, repo domain.SessionRepository, broker domain.MessageBroker, cutoff time.Time) []string {
	ids, err := repo.AbandonIdle(ctx, cutoff)
	if err != nil {
		log.With(zap.Error(err)).Error("Idle sweeper failed to abandon sessions")
		return nil
	}

	for _, id := range ids {
		payload, err := json.Marshal(domain.SessionEvent{
			Type:       domain.EventSessionAbandoned,
			SessionID:  id,
			OccurredAt: time.Now(),
		})
		if err != nil {
			continue
		}
		if err := broker.Publish(ctx, domain.SessionEventsTopic, id, payload); err != nil {
			log.WithCtx(log.WithSessionID(ctx, id)).Warn("Error publishing abandoned event", zap.Error(err))
		}
	}
	if len(ids) > 0 {
		log.With(zap.Int("count", len(ids))).Info("Abandoned idle sessions")
	}
	return ids
}
