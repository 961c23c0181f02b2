package llm

import (
	"bufio"
	"bytes"
	"io"
)

// EventReader reads the data payloads of a text/event-stream body.
// Multi-line data fields are joined with "\n"; comments and other fields are ignored.
type EventReader struct {
	scanner *bufio.Scanner
}

func NewEventReader(r io.Reader) *EventReader {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	return &EventReader{scanner: scanner}
}

// Next returns the next event's data, or io.EOF at the end of the body.
func (r *EventReader) Next() ([]byte, error) {
	var data [][]byte
	for r.scanner.Scan() {
		line := r.scanner.Bytes()
		if len(line) == 0 {
			if len(data) > 0 {
				return bytes.Join(data, []byte("\n")), nil
			}
			continue
		}
		if bytes.HasPrefix(line, []byte("data:")) {
			payload := bytes.TrimPrefix(line, []byte("data:"))
			payload = bytes.TrimPrefix(payload, []byte(" "))
			data = append(data, append([]byte(nil), payload...))
		}
	}
	if err := r.scanner.Err(); err != nil {
		return nil, err
	}
	if len(data) > 0 {
		return bytes.Join(data, []byte("\n")), nil
	}
	return nil, io.EOF
}
