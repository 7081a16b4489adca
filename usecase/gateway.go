package usecase

import (
	"context"
	"fmt"
	"math"
	"strings"

	"go.uber.org/zap"

	"github.com/satriahrh/client-talk/domain"
	"github.com/satriahrh/client-talk/prompt"
	"github.com/satriahrh/client-talk/utils/jsonx"
	"github.com/satriahrh/client-talk/utils/log"
)

const (
	FallbackReply   = "すみません、もう少し詳しく説明していただけますか？"
	FallbackOpening = "よろしくお願いします。プロジェクトについてご相談したいことがあるのですが..."
)

// Gateway turns prompts into typed model results. Reply and opening
// generation never fail: they fall back to canned text so a conversation
// never stalls. Scenario and evaluation failures are returned to the caller.
type Gateway struct {
	llm domain.Llm
}

func NewGateway(gen domain.Llm) *Gateway {
	return &Gateway{llm: gen}
}

// GenerateScenario fails with domain.ErrScenarioGenerationFailed.
func (g *Gateway) GenerateScenario(ctx context.Context, category domain.Category, difficulty int) (domain.GeneratedScenario, error) {
	var out domain.GeneratedScenario

	raw, err := g.llm.GenerateJSON(ctx, prompt.Scenario(category, difficulty))
	if err == nil {
		err = jsonx.DecodeJSON(raw, &out)
	}
	if err == nil && (strings.TrimSpace(out.Title) == "" || strings.TrimSpace(out.ClientPersona) == "") {
		err = &jsonx.FormatError{Reason: "scenario without title or persona"}
	}
	if err != nil {
		log.WithCtx(ctx).Error("Error generating scenario",
			zap.String("category", string(category)),
			zap.Int("difficulty", difficulty),
			zap.Error(err))
		return domain.GeneratedScenario{}, fmt.Errorf("%w: %w", domain.ErrScenarioGenerationFailed, err)
	}

	if out.HiddenRequirements == nil {
		out.HiddenRequirements = []string{}
	}
	return out, nil
}

// GenerateOpeningMessage returns FallbackOpening on any failure.
func (g *Gateway) GenerateOpeningMessage(ctx context.Context, scenario domain.ScenarioInfo) string {
	raw, err := g.llm.Generate(ctx, prompt.OpeningMessage(scenario))
	if err != nil {
		log.WithCtx(ctx).Error("Error generating initial client message", zap.Error(err))
		return FallbackOpening
	}

	text := strings.TrimSpace(raw)
	if text == "" {
		log.WithCtx(ctx).Warn("Empty initial client message, using fallback")
		return FallbackOpening
	}
	return text
}

// GenerateClientResponse returns a confused FallbackReply on any failure.
func (g *Gateway) GenerateClientResponse(ctx context.Context, scenario domain.ScenarioInfo, history []domain.Message) domain.ClientResponse {
	var out domain.ClientResponse

	raw, err := g.llm.GenerateJSON(ctx, prompt.Reply(scenario, history))
	if err == nil {
		err = jsonx.DecodeJSON(raw, &out)
	}
	if err == nil && strings.TrimSpace(out.Message) == "" {
		err = &jsonx.FormatError{Reason: "reply without message"}
	}
	if err != nil {
		log.WithCtx(ctx).Error("Error generating client response", zap.Error(err))
		return domain.ClientResponse{Message: FallbackReply, Emotion: domain.Confused}
	}

	if !out.Emotion.Valid() {
		log.WithCtx(ctx).Warn("Unknown emotion from model", zap.String("emotion", string(out.Emotion)))
		out.Emotion = domain.Neutral
	}
	if len(out.Hints) == 0 {
		out.Hints = nil
	}
	return out
}

// evaluationReply mirrors the evaluation JSON with lenient number types.
type evaluationReply struct {
	OverallScore float64 `json:"overallScore"`
	Results      []struct {
		CriteriaType string   `json:"criteriaType"`
		CriteriaName string   `json:"criteriaName"`
		Score        float64  `json:"score"`
		Feedback     string   `json:"feedback"`
		Examples     []string `json:"examples"`
	} `json:"results"`
	Strengths       []string `json:"strengths"`
	Improvements    []string `json:"improvements"`
	Recommendations []string `json:"recommendations"`
}

// EvaluateSession fails with domain.ErrEvaluationFailed. The returned
// evaluation has no session id; the caller stamps it.
func (g *Gateway) EvaluateSession(ctx context.Context, scenario domain.ScenarioInfo, history []domain.Message) (*domain.SessionEvaluation, error) {
	var reply evaluationReply

	raw, err := g.llm.GenerateJSON(ctx, prompt.Evaluation(scenario, history))
	if err == nil {
		err = jsonx.DecodeJSON(raw, &reply)
	}
	if err != nil {
		log.WithCtx(ctx).Error("Error evaluating session", zap.Error(err))
		return nil, fmt.Errorf("%w: %w", domain.ErrEvaluationFailed, err)
	}

	eval := &domain.SessionEvaluation{
		OverallScore:    score(reply.OverallScore),
		Results:         make([]domain.EvaluationResult, 0, len(reply.Results)),
		Strengths:       nonNil(reply.Strengths),
		Improvements:    nonNil(reply.Improvements),
		Recommendations: nonNil(reply.Recommendations),
	}
	for _, r := range reply.Results {
		eval.Results = append(eval.Results, domain.EvaluationResult{
			CriteriaType: r.CriteriaType,
			CriteriaName: r.CriteriaName,
			Score:        score(r.Score),
			Feedback:     r.Feedback,
			Examples:     nonNil(r.Examples),
		})
	}
	return eval, nil
}

// score rounds and clamps to 0-100.
func score(v float64) int {
	if math.IsNaN(v) {
		return 0
	}
	return int(math.Max(0, math.Min(100, math.Round(v))))
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
