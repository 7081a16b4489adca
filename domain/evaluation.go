package domain

// Criterion is one fixed scoring axis of an evaluation.
type Criterion struct {
	Key         string
	NameJa      string
	Checkpoints []string
}

var criteria = []Criterion{
	{
		Key:    "requirement_decomposition",
		NameJa: "要件分解・具体化",
		Checkpoints: []string{
			"要件を適切に分解できているか",
			"具体的な質問で詳細を引き出せているか",
		},
	},
	{
		Key:    "technical_translation",
		NameJa: "技術と非技術の翻訳",
		Checkpoints: []string{
			"技術的な内容を分かりやすく説明できているか",
			"クライアントの言葉を技術要件に変換できているか",
		},
	},
	{
		Key:    "ambiguity_structuring",
		NameJa: "曖昧さの構造化",
		Checkpoints: []string{
			"曖昧な要望を明確化できているか",
			"選択肢を提示して確認できているか",
		},
	},
	{
		Key:    "responsibility_clarification",
		NameJa: "責任範囲の明文化",
		Checkpoints: []string{
			"誰が何を担当するか明確にできているか",
			"スコープを適切に管理できているか",
		},
	},
	{
		Key:    "consensus_building",
		NameJa: "合意形成",
		Checkpoints: []string{
			"合意事項を確認・文書化できているか",
			"認識のずれを防ぐ工夫ができているか",
		},
	},
}

// Criteria returns the scoring axes in prompt order.
func Criteria() []Criterion {
	out := make([]Criterion, len(criteria))
	copy(out, criteria)
	return out
}

type EvaluationResult struct {
	CriteriaType string   `json:"criteriaType"`
	CriteriaName string   `json:"criteriaName"`
	Score        int      `json:"score"`
	Feedback     string   `json:"feedback"`
	Examples     []string `json:"examples"`
}

// SessionEvaluation is created once at the end of a session and never
// modified afterwards.
type SessionEvaluation struct {
	SessionID       string             `json:"sessionId"`
	OverallScore    int                `json:"overallScore"`
	Results         []EvaluationResult `json:"results"`
	Strengths       []string           `json:"strengths"`
	Improvements    []string           `json:"improvements"`
	Recommendations []string           `json:"recommendations"`
}
