package domain

// Role identifies who authored a transcript message.
type Role string

// Available message roles.
const (
	// RoleUser marks a message typed by the user.
	RoleUser Role = "user"

	// RoleAssistant marks a message produced by the analysis service.
	RoleAssistant Role = "assistant"
)

// String returns the string representation.
func (r Role) String() string {
	return string(r)
}

// MessageStatus is the lifecycle state of a message.
// Messages move pending -> streaming -> complete|error; terminal states never change.
type MessageStatus int

const (
	// StatusPending is an assistant message awaiting its first fragment.
	StatusPending MessageStatus = iota
	// StatusStreaming is an assistant message receiving fragments.
	StatusStreaming
	// StatusComplete is a finished message.
	StatusComplete
	// StatusError is a message whose stream failed.
	StatusError
)

// String returns the string representation of the status.
func (s MessageStatus) String() string {
	switch s {
	case StatusPending:
		return "pending"
	case StatusStreaming:
		return "streaming"
	case StatusComplete:
		return "complete"
	case StatusError:
		return "error"
	default:
		return "unknown"
	}
}

// IsTerminal reports whether the status can no longer change.
func (s MessageStatus) IsTerminal() bool {
	return s == StatusComplete || s == StatusError
}

// Message is one entry in the chat transcript.
type Message struct {
	// ID is the unique message identifier, also used as its handle.
	ID string

	// Role is the author of the message.
	Role Role

	// Content is the accumulated message text.
	Content string

	// Status is the lifecycle state.
	Status MessageStatus
}

// IsTyping reports whether the message is an assistant message that has not
// received any text yet. Consumers render it as a typing indicator.
func (m Message) IsTyping() bool {
	return m.Role == RoleAssistant && m.Status == StatusPending && m.Content == ""
}

// MessageHandle addresses an assistant message inside a transcript.
// Handles are invalidated when the transcript is reset.
type MessageHandle string

// String returns the string representation.
func (h MessageHandle) String() string {
	return string(h)
}
