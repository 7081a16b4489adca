package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/satriahrh/client-talk/domain"
)

func TestParseCommand(t *testing.T) {
	cmd, ok := parseCommand("/start consensus_building 4")
	require.True(t, ok)
	assert.Equal(t, "start", cmd.name)
	assert.Equal(t, []string{"consensus_building", "4"}, cmd.args)

	cmd, ok = parseCommand("  /EVAL ")
	require.True(t, ok)
	assert.Equal(t, "eval", cmd.name)
	assert.Empty(t, cmd.args)

	cmd, ok = parseCommand("/")
	require.True(t, ok)
	assert.Equal(t, "help", cmd.name)

	_, ok = parseCommand("予算はいくらですか？")
	assert.False(t, ok)
}

func TestParseStartArgs(t *testing.T) {
	tests := []struct {
		name       string
		args       []string
		category   domain.Category
		difficulty int
		wantErr    bool
	}{
		{"defaults", nil, "", domain.DefaultDifficulty, false},
		{"random", []string{"random", "5"}, "", 5, false},
		{"category", []string{"technical_translation"}, domain.TechnicalTranslation, domain.DefaultDifficulty, false},
		{"both", []string{"consensus_building", "1"}, domain.ConsensusBuilding, 1, false},
		{"unknown category", []string{"sales"}, "", 0, true},
		{"difficulty too high", []string{"random", "6"}, "", 0, true},
		{"difficulty not a number", []string{"random", "hard"}, "", 0, true},
		{"too many args", []string{"random", "2", "x"}, "", 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			category, difficulty, err := parseStartArgs(tt.args)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.category, category)
			assert.Equal(t, tt.difficulty, difficulty)
		})
	}
}

func TestEvaluationMarkdown(t *testing.T) {
	md := evaluationMarkdown(&domain.SessionEvaluation{
		OverallScore: 72,
		Results: []domain.EvaluationResult{
			{CriteriaName: "合意形成", Score: 65, Feedback: "確認が\n少ない"},
		},
		Strengths:    []string{"質問が具体的"},
		Improvements: []string{},
	})

	assert.Contains(t, md, "# 評価結果: 72 / 100")
	assert.Contains(t, md, "| 合意形成 | 65 | 確認が 少ない |")
	assert.Contains(t, md, "## 良かった点\n\n- 質問が具体的")
	assert.NotContains(t, md, "改善点")
}

func TestStars(t *testing.T) {
	assert.Equal(t, "★★★☆☆", stars(3))
	assert.Equal(t, "★☆☆☆☆", stars(0))
	assert.Equal(t, "★★★★★", stars(9))
}

func TestWatchURL(t *testing.T) {
	got, err := watchURL("http://localhost:8080", "abc")
	require.NoError(t, err)
	assert.Equal(t, "ws://localhost:8080/ws?token=abc", got)

	got, err = watchURL("https://trainer.example.com/api/", "a b")
	require.NoError(t, err)
	assert.Equal(t, "wss://trainer.example.com/api/ws?token=a+b", got)
}
