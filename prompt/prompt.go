// Package prompt renders the instructions sent to the language model. Every
// function is pure: the same input always yields the same prompt.
package prompt

import (
	"fmt"
	"strings"

	"github.com/satriahrh/client-talk/domain"
)

const (
	developerLabel = "開発者"
	clientLabel    = "クライアント"
	systemLabel    = "システム"
)

var categoryPrompts = map[domain.Category]string{
	domain.RequirementConfirmation:     "要件確認のシナリオ。クライアントの曖昧な要望から具体的な要件を引き出す",
	domain.TechnicalTranslation:        "技術翻訳のシナリオ。技術的な内容を非エンジニアに説明する",
	domain.AmbiguityStructuring:        "曖昧さの構造化シナリオ。抽象的な要望を具体化する",
	domain.ResponsibilityClarification: "責任範囲の明確化シナリオ。誰が何を担当するか明確にする",
	domain.ConsensusBuilding:           "合意形成のシナリオ。クライアントとの合意を文書化する",
}

// Scenario asks for a new training scenario as JSON. difficulty is expected
// to be clamped already.
func Scenario(category domain.Category, difficulty int) string {
	desc, ok := categoryPrompts[category]
	if !ok {
		desc = string(category)
	}

	var b strings.Builder
	b.WriteString("Web受託開発におけるコミュニケーション訓練用のシナリオを生成してください。\n\n")
	fmt.Fprintf(&b, "【カテゴリ】%s\n", desc)
	fmt.Fprintf(&b, "【難易度】%d/5 (1が易しい、5が難しい)\n\n", difficulty)
	b.WriteString(`【要件】
- 日本のWeb受託開発でよくある状況を想定
- クライアントは非エンジニアの事業担当者
- リアリティのある設定にする
- 難易度に応じて複雑さを調整

【出力形式】
以下のJSON形式で返してください：
{
  "title": "シナリオタイトル（日本語、20文字以内）",
  "description": "シナリオの概要（日本語、100文字以内）",
  "clientPersona": "クライアントの人物像・性格・背景（日本語、200文字程度）",
  "projectContext": "プロジェクトの背景・状況（日本語、300文字程度）",
  "hiddenRequirements": ["開発者が引き出すべき隠れた要件のリスト"]
}

JSON形式のみで返答してください。`)
	return b.String()
}

// OpeningMessage asks for the client's first, deliberately vague request as
// plain text.
func OpeningMessage(scenario domain.ScenarioInfo) string {
	var b strings.Builder
	b.WriteString("あなたはWeb受託開発のクライアント役です。以下の設定に基づいて、開発者に対する最初の相談・要望を述べてください。\n\n")
	writePersona(&b, scenario)
	b.WriteString(`【指示】
- これからプロジェクトについて開発者と話し合います
- クライアントとして、プロジェクトの要望や課題を自然に伝えてください
- 最初の段階では具体的すぎず、ある程度曖昧な表現を含めてください
- 開発者が質問したくなるような内容にしてください
- 200文字程度で簡潔に述べてください

テキストのみで返答してください（JSON形式は不要）。`)
	return b.String()
}

// Reply asks for the client's next in-character turn as JSON.
func Reply(scenario domain.ScenarioInfo, history []domain.Message) string {
	var b strings.Builder
	b.WriteString("あなたはWeb受託開発のクライアント役です。以下の設定に基づいてロールプレイしてください。\n\n")
	writePersona(&b, scenario)
	b.WriteString("【これまでの会話】\n")
	b.WriteString(Transcript(history, false))
	b.WriteString("\n\n")

	emotions := make([]string, len(domain.Emotions))
	for i, e := range domain.Emotions {
		emotions[i] = fmt.Sprintf("%q", e)
	}

	b.WriteString(`【指示】
- クライアントとして自然に返答してください
- 必要に応じて曖昧な返答をしたり、追加の要望を出したりしてください
- ただし、開発者が適切な質問をした場合は具体的に答えてください
- 感情(emotion)は会話の流れに応じて設定してください

【出力形式】
以下のJSON形式で返答してください：
{
  "message": "クライアントとしての返答",
`)
	fmt.Fprintf(&b, "  \"emotion\": %s,\n", strings.Join(emotions, " | "))
	b.WriteString(`  "hints": ["開発者へのヒント（省略可）"]
}

JSON形式のみで返答し、他のテキストは含めないでください。`)
	return b.String()
}

// Evaluation asks for a scored assessment of the transcript as JSON.
func Evaluation(scenario domain.ScenarioInfo, history []domain.Message) string {
	var b strings.Builder
	b.WriteString("あなたはWeb受託開発のコミュニケーションスキルを評価する専門家です。\n")
	b.WriteString("以下の会話を評価し、開発者のコミュニケーション能力を採点してください。\n\n")

	b.WriteString("【シナリオ】\n")
	fmt.Fprintf(&b, "タイトル: %s\n", scenario.Title)
	fmt.Fprintf(&b, "説明: %s\n", scenario.Description)
	fmt.Fprintf(&b, "クライアントペルソナ: %s\n", scenario.ClientPersona)
	fmt.Fprintf(&b, "プロジェクト背景: %s\n\n", scenario.ProjectContext)

	b.WriteString("【会話履歴】\n")
	b.WriteString(Transcript(history, true))
	b.WriteString("\n\n")

	criteria := domain.Criteria()
	fmt.Fprintf(&b, "【評価基準】\n以下の%dつの観点から0-100点で評価してください：\n\n", len(criteria))
	for i, c := range criteria {
		fmt.Fprintf(&b, "%d. %s (%s)\n", i+1, c.NameJa, c.Key)
		for _, cp := range c.Checkpoints {
			fmt.Fprintf(&b, "   - %s\n", cp)
		}
		b.WriteString("\n")
	}

	b.WriteString(`【出力形式】
以下のJSON形式で評価結果を返してください：
{
  "overallScore": 総合点(0-100),
  "results": [
    {
      "criteriaType": "評価基準の英語名",
      "criteriaName": "評価基準の日本語名",
      "score": 点数(0-100),
      "feedback": "具体的なフィードバック",
      "examples": ["会話中の良い例または改善点の例"]
    }
  ],
  "strengths": ["良かった点"],
  "improvements": ["改善点"],
  "recommendations": ["次回への具体的なアドバイス"]
}

JSON形式のみで返答し、他のテキストは含めないでください。`)
	return b.String()
}

// Transcript renders history one "label: content" line per message. With
// withSystem false every non-user message is labelled as the client.
func Transcript(history []domain.Message, withSystem bool) string {
	lines := make([]string, 0, len(history))
	for _, m := range history {
		lines = append(lines, label(m.Role, withSystem)+": "+m.Content)
	}
	return strings.Join(lines, "\n")
}

func label(role domain.Role, withSystem bool) string {
	switch {
	case role == domain.UserRole:
		return developerLabel
	case role == domain.ClientRole || !withSystem:
		return clientLabel
	default:
		return systemLabel
	}
}

func writePersona(b *strings.Builder, scenario domain.ScenarioInfo) {
	b.WriteString("【クライアントのペルソナ】\n")
	b.WriteString(scenario.ClientPersona)
	b.WriteString("\n\n【プロジェクト背景】\n")
	b.WriteString(scenario.ProjectContext)
	b.WriteString("\n\n")
}
