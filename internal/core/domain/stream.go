package domain

// StreamEventKind tags the variant of a StreamEvent.
type StreamEventKind int

const (
	// EventFragment carries decoded text, possibly empty.
	EventFragment StreamEventKind = iota
	// EventDone marks a clean end of stream.
	EventDone
	// EventError marks a failed stream. It is always the last event.
	EventError
)

// String returns the string representation of the kind.
func (k StreamEventKind) String() string {
	switch k {
	case EventFragment:
		return "fragment"
	case EventDone:
		return "done"
	case EventError:
		return "error"
	default:
		return "unknown"
	}
}

// StreamEvent is one item emitted by the stream decoder.
type StreamEvent struct {
	Kind StreamEventKind
	Text string
	Err  error
}

// Fragment returns a fragment event.
func Fragment(text string) StreamEvent {
	return StreamEvent{Kind: EventFragment, Text: text}
}

// Done returns an end-of-stream event.
func Done() StreamEvent {
	return StreamEvent{Kind: EventDone}
}

// Failed returns an error event.
func Failed(err error) StreamEvent {
	return StreamEvent{Kind: EventError, Err: err}
}
