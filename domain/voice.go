package domain

import "context"

// Synthesizer turns client replies into speech.
type Synthesizer interface {
	Synthesize(ctx context.Context, text string) ([]byte, error)
}

// Transcriber turns a trainee utterance into text.
type Transcriber interface {
	Transcribe(ctx context.Context, audio []byte) (string, error)
}
