package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/satriahrh/client-talk/domain"
)

// fakeLlm answers text and JSON prompts from canned replies.
type fakeLlm struct {
	text    string
	textErr error
	json    string
	jsonErr error

	mu      sync.Mutex
	prompts []string
}

func (f *fakeLlm) Generate(_ context.Context, prompt string) (string, error) {
	f.record(prompt)
	return f.text, f.textErr
}

func (f *fakeLlm) GenerateJSON(_ context.Context, prompt string) (string, error) {
	f.record(prompt)
	return f.json, f.jsonErr
}

func (f *fakeLlm) record(prompt string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.prompts = append(f.prompts, prompt)
}

func (f *fakeLlm) lastPrompt() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.prompts) == 0 {
		return ""
	}
	return f.prompts[len(f.prompts)-1]
}

var errUpstream = errors.New("connection reset by peer")

type publishedEvent struct {
	topic      string
	routingKey string
	event      domain.SessionEvent
}

type recordingBroker struct {
	mu     sync.Mutex
	events []publishedEvent
	err    error
}

func (b *recordingBroker) Publish(_ context.Context, topic, routingKey string, message []byte) error {
	if b.err != nil {
		return b.err
	}
	var ev domain.SessionEvent
	if err := json.Unmarshal(message, &ev); err != nil {
		return err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.events = append(b.events, publishedEvent{topic: topic, routingKey: routingKey, event: ev})
	return nil
}

func (b *recordingBroker) Subscribe(context.Context, string, string) (<-chan domain.Envelope, error) {
	return nil, errors.New("not supported")
}

func (b *recordingBroker) Close() error { return nil }

func (b *recordingBroker) published() []publishedEvent {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]publishedEvent(nil), b.events...)
}

var fixedNow = time.Date(2026, 10, 18, 9, 0, 0, 0, time.UTC)

func sequentialIDs() func() string {
	n := 0
	return func() string {
		n++
		return fmt.Sprintf("id-%d", n)
	}
}

func newTestService(gen domain.Llm, opts ...Option) *SessionService {
	base := []Option{
		WithClock(func() time.Time { return fixedNow }),
		WithIDGenerator(sequentialIDs()),
		WithPicker(func(int) int { return 0 }),
	}
	return NewSessionService(NewGateway(gen), append(base, opts...)...)
}

func float(v float64) *float64 { return &v }

var testScenario = domain.ScenarioInfo{
	ID:             "sc-1",
	Title:          "予約システム導入",
	Description:    "美容室の予約をWeb化したい",
	Category:       domain.RequirementConfirmation,
	CategoryName:   "要件確認",
	Difficulty:     2,
	ClientPersona:  "個人経営の美容室オーナー",
	ProjectContext: "電話予約が多く取りこぼしがある",
}

const scenarioJSON = `{"title":"予約システム導入","description":"美容室の予約をWeb化したい","clientPersona":"個人経営の美容室オーナー","projectContext":"電話予約が多く取りこぼしがある","hiddenRequirements":["LINE連携","キャンセル待ち"]}`
