package chat

import (
	"errors"
	"io"

	"github.com/cloudwego/eino/schema"
)

// EventType tags an event on a conversation stream.
type EventType string

const (
	// EventChunk carries the next fragment of the assistant response.
	EventChunk EventType = "chunk"
	// EventComplete is the last event of a successful turn.
	EventComplete EventType = "complete"
)

// Event is one item of a conversation stream. A stream yields zero or more
// chunks and then exactly one complete event before io.EOF; any other error
// from Recv ends the stream and means nothing was persisted.
type Event struct {
	Type         EventType
	Content      string
	SessionID    string
	FullResponse string
}

// Drain consumes a conversation stream, calling onChunk for every fragment,
// and returns the complete event. It closes the reader.
func Drain(sr *schema.StreamReader[Event], onChunk func(string)) (Event, error) {
	defer sr.Close()

	var complete Event
	for {
		ev, err := sr.Recv()
		if errors.Is(err, io.EOF) {
			if complete.Type != EventComplete {
				return Event{}, io.ErrUnexpectedEOF
			}
			return complete, nil
		}
		if err != nil {
			return Event{}, err
		}
		switch ev.Type {
		case EventChunk:
			if onChunk != nil {
				onChunk(ev.Content)
			}
		case EventComplete:
			complete = ev
		}
	}
}
