package main

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"

	"github.com/satriahrh/client-talk/domain"
)

var (
	promptStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("86")).
			Bold(true)

	titleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("141")).
			Bold(true)

	clientStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("213"))

	systemStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("245")).
			Italic(true)

	infoStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("245"))

	hintStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("42"))

	warningStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("214"))
)

var emotionLabels = map[domain.Emotion]string{
	domain.Neutral:    "😐",
	domain.Satisfied:  "🙂",
	domain.Confused:   "😕",
	domain.Frustrated: "😠",
	domain.Pleased:    "😄",
}

func renderMessage(m domain.Message) string {
	switch m.Role {
	case domain.SystemRole:
		return systemStyle.Render(m.Content)
	case domain.ClientRole:
		label := "クライアント"
		if m.Metadata != nil {
			if e, ok := emotionLabels[m.Metadata.IntentDetected]; ok {
				label += " " + e
			}
		}
		return clientStyle.Render(label+": ") + m.Content
	default:
		return promptStyle.Render("あなた: ") + m.Content
	}
}

func renderScenario(s domain.ScenarioInfo) string {
	var b strings.Builder
	b.WriteString(titleStyle.Render(s.Title))
	b.WriteString("\n")
	fmt.Fprintf(&b, "%s / 難易度 %s\n", s.CategoryName, stars(s.Difficulty))
	b.WriteString(infoStyle.Render(s.ClientPersona))
	return b.String()
}

func stars(difficulty int) string {
	difficulty = max(domain.MinDifficulty, min(domain.MaxDifficulty, difficulty))
	return strings.Repeat("★", difficulty) + strings.Repeat("☆", domain.MaxDifficulty-difficulty)
}

func renderHints(hints []string) string {
	lines := make([]string, 0, len(hints))
	for _, h := range hints {
		lines = append(lines, hintStyle.Render("💡 "+h))
	}
	return strings.Join(lines, "\n")
}

// evaluationMarkdown lays out an evaluation as a markdown report.
func evaluationMarkdown(e *domain.SessionEvaluation) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# 評価結果: %d / 100\n\n", e.OverallScore)

	if len(e.Results) > 0 {
		b.WriteString("| 観点 | 点数 | フィードバック |\n|---|---|---|\n")
		for _, r := range e.Results {
			feedback := strings.ReplaceAll(r.Feedback, "\n", " ")
			fmt.Fprintf(&b, "| %s | %d | %s |\n", r.CriteriaName, r.Score, feedback)
		}
		b.WriteString("\n")
	}

	writeList(&b, "良かった点", e.Strengths)
	writeList(&b, "改善点", e.Improvements)
	writeList(&b, "次回へのアドバイス", e.Recommendations)
	return b.String()
}

func writeList(b *strings.Builder, heading string, items []string) {
	if len(items) == 0 {
		return
	}
	fmt.Fprintf(b, "## %s\n\n", heading)
	for _, item := range items {
		fmt.Fprintf(b, "- %s\n", item)
	}
	b.WriteString("\n")
}

func renderMarkdown(md string) string {
	out, err := glamour.Render(md, "dark")
	if err != nil {
		return md
	}
	return out
}
