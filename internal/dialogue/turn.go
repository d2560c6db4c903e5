package dialogue

import "time"

// Speaker attributes a turn to one side of the conversation.
type Speaker string

const (
	SpeakerUser      Speaker = "user"
	SpeakerAssistant Speaker = "assistant"
)

// Turn is one utterance within a conversation. Voice input arrives here
// already transcribed; turn content is always text.
type Turn struct {
	// Seq is monotonic and gapless within a session, starting at 1.
	Seq       int
	Speaker   Speaker
	Content   string
	Persona   string
	Timestamp time.Time
}
