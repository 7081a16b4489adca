// Command smoke plays one scripted training round against a running server.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/satriahrh/client-talk/client"
	"github.com/satriahrh/client-talk/domain"
)

var script = []string{
	"はじめまして。今回のプロジェクトの目的を教えていただけますか？",
	"現在の業務で一番困っていることは何でしょうか？",
	"ご予算と希望の納期はどのくらいでしょうか？",
}

func main() {
	baseURL := flag.String("server", "http://localhost:8080", "training service base URL")
	category := flag.String("category", "", "scenario category (empty for random)")
	difficulty := flag.Int("difficulty", domain.DefaultDifficulty, "scenario difficulty 1-5")
	audioPath := flag.String("audio", "", "optional LINEAR16 16 kHz recording to transcribe")
	flag.Parse()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	api := client.NewAPI(*baseURL)
	session := client.NewSession(api)

	fmt.Println("🚀 Starting smoke run...")
	if err := session.Start(ctx, domain.Category(*category), *difficulty); err != nil {
		log.Fatalf("Failed to start session: %v", err)
	}
	state := session.State()
	fmt.Printf("✅ Session %s: %s (%s, %d)\n", state.SessionID, state.Scenario.Title, state.Scenario.CategoryName, state.Scenario.Difficulty)
	fmt.Printf("💬 %s\n", state.Messages[len(state.Messages)-1].Content)

	lines := script
	if *audioPath != "" {
		audio, err := os.ReadFile(*audioPath)
		if err != nil {
			log.Fatalf("Failed to read audio file: %v", err)
		}
		fmt.Printf("📁 Loaded audio file: %s (%d bytes)\n", *audioPath, len(audio))
		text, err := api.Transcribe(ctx, audio)
		if err != nil {
			log.Fatalf("Failed to transcribe audio: %v", err)
		}
		fmt.Printf("🎤 Transcribed: %s\n", text)
		lines = append([]string{text}, lines...)
	}

	for _, line := range lines {
		result, err := session.Send(ctx, line)
		if err != nil {
			log.Fatalf("Failed to send message: %v", err)
		}
		fmt.Printf("👤 %s\n💬 [%s] %s\n", line, result.Emotion, result.ClientMessage.Content)
	}

	if !session.CanEvaluate() {
		log.Fatalf("Session not ready for evaluation after %d turns", session.UserTurns())
	}
	evaluation, err := session.Evaluate(ctx)
	if err != nil {
		log.Fatalf("Failed to evaluate session: %v", err)
	}
	fmt.Printf("📊 Overall score: %d\n", evaluation.OverallScore)
	for _, r := range evaluation.Results {
		fmt.Printf("   %s: %d\n", r.CriteriaName, r.Score)
	}
	fmt.Println("✅ Smoke run completed successfully!")
}
