package tts

import (
	"context"
	"errors"
	"fmt"

	texttospeech "cloud.google.com/go/texttospeech/apiv1"
	"cloud.google.com/go/texttospeech/apiv1/texttospeechpb"

	"github.com/satriahrh/client-talk/domain"
)

const DefaultLanguageCode = "ja-JP"

// GoogleTTS voices client replies with Google Cloud Text-to-Speech.
type GoogleTTS struct {
	client       *texttospeech.Client
	languageCode string
	voice        string
}

var _ domain.Synthesizer = (*GoogleTTS)(nil)

// NewGoogleTTS creates a client. An empty voice lets the API pick one for
// the language.
func NewGoogleTTS(ctx context.Context, languageCode, voice string) (*GoogleTTS, error) {
	client, err := texttospeech.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("creating Google tts client: %w", err)
	}
	if languageCode == "" {
		languageCode = DefaultLanguageCode
	}
	return &GoogleTTS{
		client:       client,
		languageCode: languageCode,
		voice:        voice,
	}, nil
}

// Synthesize returns MP3 audio for text.
func (g *GoogleTTS) Synthesize(ctx context.Context, text string) ([]byte, error) {
	if text == "" {
		return nil, errors.New("nothing to synthesize")
	}
	req := texttospeechpb.SynthesizeSpeechRequest{
		Input: &texttospeechpb.SynthesisInput{
			InputSource: &texttospeechpb.SynthesisInput_Text{
				Text: text,
			},
		},
		Voice: &texttospeechpb.VoiceSelectionParams{
			LanguageCode: g.languageCode,
			Name:         g.voice,
			SsmlGender:   texttospeechpb.SsmlVoiceGender_NEUTRAL,
		},
		AudioConfig: &texttospeechpb.AudioConfig{
			AudioEncoding: texttospeechpb.AudioEncoding_MP3,
		},
	}
	resp, err := g.client.SynthesizeSpeech(ctx, &req)
	if err != nil {
		return nil, fmt.Errorf("synthesizing speech: %w", err)
	}

	return resp.GetAudioContent(), nil
}

func (g *GoogleTTS) Close() error {
	return g.client.Close()
}
