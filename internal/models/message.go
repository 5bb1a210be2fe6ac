package models

// Sender identifies who authored a log message
type Sender string

const (
	SenderUser      Sender = "user"
	SenderAssistant Sender = "assistant"
)

// Message represents a chat message for display
type Message struct {
	Sender Sender
	Text   string
}

// UserMessage builds a message authored by the user
func UserMessage(text string) Message {
	return Message{Sender: SenderUser, Text: text}
}

// AssistantMessage builds a message authored by the assistant
func AssistantMessage(text string) Message {
	return Message{Sender: SenderAssistant, Text: text}
}

// PlaceholderText is shown while a call is outstanding
const PlaceholderText = "Typing..."

// Entry is one row of the session log. Pending entries are placeholders
// for in-flight calls and are removed when the call settles.
type Entry struct {
	ID      string
	Message Message
	Pending bool
}
