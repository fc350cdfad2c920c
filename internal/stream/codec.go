package stream

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"strings"
)

// EncodeFrame writes one event as an SSE frame: a single `data:` line holding
// the JSON payload, terminated by a blank line.
func EncodeFrame(w io.Writer, event Event) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("stream: encoding %s event: %w", event.Type, err)
	}
	if _, err := fmt.Fprintf(w, "data: %s\n\n", payload); err != nil {
		return fmt.Errorf("stream: writing frame: %w", err)
	}
	return nil
}

// ParseEvent decodes the accumulated data of one frame into an Event. A
// payload that is not valid JSON becomes a raw event carrying the undecoded
// text, so one garbled frame never aborts consumption.
func ParseEvent(payload string) Event {
	var event Event
	if err := json.Unmarshal([]byte(payload), &event); err != nil || event.Type == "" {
		return Event{Type: KindRaw, Raw: payload}
	}
	event.Raw = payload
	return event
}

// FrameReader reads SSE frames from a line-oriented transport. Continuation
// `data:` lines accumulate into a buffer until a blank line marks the frame
// complete. Non-data lines (comments, event names) are ignored.
type FrameReader struct {
	scanner *bufio.Scanner
	buffer  strings.Builder
}

// NewFrameReader creates a FrameReader over r.
func NewFrameReader(r io.Reader) *FrameReader {
	scanner := bufio.NewScanner(r)
	// Frames carry whole stage payloads, which can exceed the default
	// 64KB token limit.
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	return &FrameReader{scanner: scanner}
}

// Next returns the next decoded event. It returns io.EOF when the transport
// ends cleanly with no partial frame pending, or the transport's error if
// reading fails mid-stream.
func (fr *FrameReader) Next() (Event, error) {
	for fr.scanner.Scan() {
		line := fr.scanner.Text()
		switch {
		case strings.HasPrefix(line, "data:"):
			fr.buffer.WriteString(strings.TrimSpace(line[len("data:"):]))
		case line == "":
			if fr.buffer.Len() == 0 {
				continue
			}
			payload := fr.buffer.String()
			fr.buffer.Reset()
			return ParseEvent(payload), nil
		default:
			// Ignore non-data lines.
		}
	}

	if err := fr.scanner.Err(); err != nil {
		return Event{}, err
	}

	// A trailing frame without a final blank line still counts.
	if fr.buffer.Len() > 0 {
		payload := fr.buffer.String()
		fr.buffer.Reset()
		return ParseEvent(payload), nil
	}

	return Event{}, io.EOF
}
