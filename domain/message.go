package domain

import "time"

type Role string

const (
	UserRole   Role = "user"
	ClientRole Role = "client"
	SystemRole Role = "system"
)

// Message is one transcript entry. Transcripts are append-only and their
// order is the conversation order.
type Message struct {
	ID        string           `json:"id"`
	Role      Role             `json:"role"`
	Content   string           `json:"content"`
	Timestamp time.Time        `json:"timestamp"`
	Metadata  *MessageMetadata `json:"metadata,omitempty"`
}

type MessageMetadata struct {
	IntentDetected Emotion `json:"intentDetected,omitempty"`
}

type Emotion string

const (
	Neutral    Emotion = "neutral"
	Satisfied  Emotion = "satisfied"
	Confused   Emotion = "confused"
	Frustrated Emotion = "frustrated"
	Pleased    Emotion = "pleased"
)

// Emotions lists the emotions a client reply may carry.
var Emotions = []Emotion{Neutral, Satisfied, Confused, Frustrated, Pleased}

func (e Emotion) Valid() bool {
	for _, v := range Emotions {
		if e == v {
			return true
		}
	}
	return false
}

// ClientResponse is the model's in-character reply. It is folded into a
// client Message right away and never stored on its own.
type ClientResponse struct {
	Message string   `json:"message"`
	Emotion Emotion  `json:"emotion"`
	Hints   []string `json:"hints,omitempty"`
}

// CountRole returns how many messages in history have the given role.
func CountRole(history []Message, role Role) int {
	n := 0
	for _, m := range history {
		if m.Role == role {
			n++
		}
	}
	return n
}
