package stream

import (
	"bufio"
	"io"
	"strings"
)

// Event is a single server-sent event.
type Event struct {
	ID    string
	Event string
	Data  string
}

// eventReader reads SSE frames one at a time. Comment lines (":") and
// unknown fields are skipped.
type eventReader struct {
	scanner *bufio.Scanner
}

func newEventReader(r io.Reader) *eventReader {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	return &eventReader{scanner: scanner}
}

// Next blocks until a complete event is read. It returns io.EOF when the
// stream ends.
func (r *eventReader) Next() (Event, error) {
	var ev Event
	var dataLines []string
	hasData := false

	for r.scanner.Scan() {
		line := r.scanner.Text()

		if line == "" {
			if hasData {
				ev.Data = strings.Join(dataLines, "\n")
				return ev, nil
			}
			ev = Event{}
			continue
		}

		if strings.HasPrefix(line, ":") {
			continue
		}

		field, value, _ := strings.Cut(line, ":")
		value = strings.TrimPrefix(value, " ")

		switch field {
		case "data":
			dataLines = append(dataLines, value)
			hasData = true
		case "event":
			ev.Event = value
		case "id":
			ev.ID = value
		}
	}

	if err := r.scanner.Err(); err != nil {
		return Event{}, err
	}

	// An unterminated frame at end of stream is discarded.
	return Event{}, io.EOF
}
