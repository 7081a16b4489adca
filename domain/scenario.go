package domain

import "math"

type Category string

const (
	RequirementConfirmation     Category = "requirement_confirmation"
	TechnicalTranslation        Category = "technical_translation"
	AmbiguityStructuring        Category = "ambiguity_structuring"
	ResponsibilityClarification Category = "responsibility_clarification"
	ConsensusBuilding           Category = "consensus_building"
)

const (
	MinDifficulty     = 1
	MaxDifficulty     = 5
	DefaultDifficulty = 2
)

// CategoryInfo is the public descriptor of a training category.
type CategoryInfo struct {
	ID          Category `json:"id"`
	Name        string   `json:"name"`
	NameJa      string   `json:"nameJa"`
	Description string   `json:"description"`
}

var categories = []CategoryInfo{
	{
		ID:          RequirementConfirmation,
		Name:        "Requirement Confirmation",
		NameJa:      "要件確認",
		Description: "クライアントの要望を正確に把握し、具体的な要件に落とし込む練習",
	},
	{
		ID:          TechnicalTranslation,
		Name:        "Technical Translation",
		NameJa:      "技術と非技術の翻訳",
		Description: "技術的な内容を非エンジニアに分かりやすく説明する、または非技術的な要望を技術要件に変換する練習",
	},
	{
		ID:          AmbiguityStructuring,
		Name:        "Ambiguity Structuring",
		NameJa:      "曖昧さの構造化",
		Description: "曖昧な要望から具体的な仕様を引き出し、構造化する練習",
	},
	{
		ID:          ResponsibilityClarification,
		Name:        "Responsibility Clarification",
		NameJa:      "責任範囲の明文化",
		Description: "プロジェクトにおける責任範囲を明確にし、文書化する練習",
	},
	{
		ID:          ConsensusBuilding,
		Name:        "Consensus Building",
		NameJa:      "合意形成",
		Description: "クライアントとの合意を形成し、文書で確認する練習",
	},
}

// Categories returns the fixed category list in display order. The returned
// slice is a copy.
func Categories() []CategoryInfo {
	out := make([]CategoryInfo, len(categories))
	copy(out, categories)
	return out
}

// LookupCategory returns the descriptor for c.
func LookupCategory(c Category) (CategoryInfo, bool) {
	for _, info := range categories {
		if info.ID == c {
			return info, true
		}
	}
	return CategoryInfo{}, false
}

// ClampDifficulty rounds d to the nearest integer and forces it into
// [MinDifficulty, MaxDifficulty]. NaN maps to the default.
func ClampDifficulty(d float64) int {
	if math.IsNaN(d) {
		return DefaultDifficulty
	}
	d = math.Round(d)
	if d < MinDifficulty {
		return MinDifficulty
	}
	if d > MaxDifficulty {
		return MaxDifficulty
	}
	return int(d)
}

// ScenarioInfo frames a training session. It is immutable once generated.
type ScenarioInfo struct {
	ID             string   `json:"id"`
	Title          string   `json:"title"`
	Description    string   `json:"description"`
	Category       Category `json:"category"`
	CategoryName   string   `json:"categoryName,omitempty"`
	Difficulty     int      `json:"difficulty"`
	ClientPersona  string   `json:"clientPersona"`
	ProjectContext string   `json:"projectContext"`
}

// GeneratedScenario is what the model produces for a scenario request.
// HiddenRequirements are never shown to the trainee.
type GeneratedScenario struct {
	Title              string   `json:"title"`
	Description        string   `json:"description"`
	ClientPersona      string   `json:"clientPersona"`
	ProjectContext     string   `json:"projectContext"`
	HiddenRequirements []string `json:"hiddenRequirements"`
}
