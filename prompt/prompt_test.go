package prompt

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/satriahrh/client-talk/domain"
)

var scenario = domain.ScenarioInfo{
	ID:             "sc-1",
	Title:          "ECサイトのリニューアル",
	Description:    "老舗雑貨店のECサイトを刷新する",
	Category:       domain.ConsensusBuilding,
	Difficulty:     3,
	ClientPersona:  "せっかちな営業部長",
	ProjectContext: "売上が前年比で落ちている",
}

func history() []domain.Message {
	now := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	return []domain.Message{
		{ID: "1", Role: domain.SystemRole, Content: "【シナリオ開始】", Timestamp: now},
		{ID: "2", Role: domain.ClientRole, Content: "サイトをいい感じにしたい", Timestamp: now},
		{ID: "3", Role: domain.UserRole, Content: "予算はいくらですか？", Timestamp: now},
	}
}

func TestScenario(t *testing.T) {
	p := Scenario(domain.TechnicalTranslation, 4)

	assert.Contains(t, p, "技術翻訳のシナリオ")
	assert.Contains(t, p, "【難易度】4/5")
	assert.Contains(t, p, `"hiddenRequirements"`)
}

func TestScenario_UnknownCategoryIsEmbeddedVerbatim(t *testing.T) {
	p := Scenario(domain.Category("sales_pitch"), 1)
	assert.Contains(t, p, "【カテゴリ】sales_pitch")
}

func TestOpeningMessage(t *testing.T) {
	p := OpeningMessage(scenario)

	assert.Contains(t, p, scenario.ClientPersona)
	assert.Contains(t, p, scenario.ProjectContext)
	assert.Contains(t, p, "200文字程度")
	assert.Contains(t, p, "JSON形式は不要")
}

func TestReply_TwoLabels(t *testing.T) {
	p := Reply(scenario, history())

	assert.Contains(t, p, "クライアント: 【シナリオ開始】")
	assert.Contains(t, p, "クライアント: サイトをいい感じにしたい")
	assert.Contains(t, p, "開発者: 予算はいくらですか？")
	assert.NotContains(t, p, "システム:")
	assert.Contains(t, p, `"neutral" | "satisfied" | "confused" | "frustrated" | "pleased"`)
}

func TestEvaluation_ThreeLabelsAndCriteria(t *testing.T) {
	p := Evaluation(scenario, history())

	assert.Contains(t, p, "システム: 【シナリオ開始】")
	assert.Contains(t, p, "クライアント: サイトをいい感じにしたい")
	assert.Contains(t, p, "開発者: 予算はいくらですか？")
	assert.Contains(t, p, "タイトル: ECサイトのリニューアル")
	for _, c := range domain.Criteria() {
		assert.Contains(t, p, c.NameJa+" ("+c.Key+")")
	}
	assert.Contains(t, p, `"overallScore"`)
	assert.Contains(t, p, `"recommendations"`)
}

func TestPromptsAreDeterministic(t *testing.T) {
	assert.Equal(t, Reply(scenario, history()), Reply(scenario, history()))
	assert.Equal(t, Evaluation(scenario, history()), Evaluation(scenario, history()))
	assert.Equal(t, Scenario(domain.ConsensusBuilding, 2), Scenario(domain.ConsensusBuilding, 2))
}

func TestTranscript_PreservesOrder(t *testing.T) {
	out := Transcript(history(), true)
	lines := strings.Split(out, "\n")

	assert.Len(t, lines, 3)
	assert.True(t, strings.HasPrefix(lines[0], "システム"))
	assert.True(t, strings.HasPrefix(lines[2], "開発者"))
	assert.Empty(t, Transcript(nil, true))
}
