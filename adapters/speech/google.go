package speech

import (
	"context"
	"errors"
	"fmt"
	"strings"

	speech "cloud.google.com/go/speech/apiv1"
	"cloud.google.com/go/speech/apiv1/speechpb"

	"github.com/satriahrh/client-talk/domain"
)

const (
	DefaultLanguageCode = "ja-JP"
	SampleRateHertz     = 16000
)

// GoogleSpeech transcribes the trainee's spoken turns. Audio must be
// LINEAR16 mono at SampleRateHertz.
type GoogleSpeech struct {
	client       *speech.Client
	languageCode string
}

var _ domain.Transcriber = (*GoogleSpeech)(nil)

func NewGoogleSpeech(ctx context.Context, languageCode string) (*GoogleSpeech, error) {
	client, err := speech.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("creating Google speech client: %w", err)
	}
	if languageCode == "" {
		languageCode = DefaultLanguageCode
	}
	return &GoogleSpeech{
		client:       client,
		languageCode: languageCode,
	}, nil
}

// Transcribe recognizes a short clip and joins the best alternative of
// every result.
func (g *GoogleSpeech) Transcribe(ctx context.Context, audio []byte) (string, error) {
	if len(audio) == 0 {
		return "", errors.New("empty audio")
	}
	resp, err := g.client.Recognize(ctx, &speechpb.RecognizeRequest{
		Config: &speechpb.RecognitionConfig{
			Encoding:                   speechpb.RecognitionConfig_LINEAR16,
			SampleRateHertz:            SampleRateHertz,
			LanguageCode:               g.languageCode,
			EnableAutomaticPunctuation: true,
		},
		Audio: &speechpb.RecognitionAudio{
			AudioSource: &speechpb.RecognitionAudio_Content{Content: audio},
		},
	})
	if err != nil {
		return "", fmt.Errorf("recognizing speech: %w", err)
	}

	var sb strings.Builder
	for _, result := range resp.GetResults() {
		alts := result.GetAlternatives()
		if len(alts) == 0 {
			continue
		}
		sb.WriteString(alts[0].GetTranscript())
	}
	return sb.String(), nil
}

func (g *GoogleSpeech) Close() error {
	return g.client.Close()
}
