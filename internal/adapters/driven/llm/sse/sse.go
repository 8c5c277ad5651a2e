// Package sse reads the server-sent event framing used by streaming LLM APIs.
package sse

import (
	"bufio"
	"errors"
	"io"
	"strings"
)

// ErrDone is returned by a Handler to end the stream early without error.
var ErrDone = errors.New("sse: done")

// maxLineSize bounds a single event line.
const maxLineSize = 1024 * 1024

// Handler receives the payload of each data line.
type Handler func(data string) error

// Read calls fn with each non-empty "data:" payload in r until EOF,
// a "[DONE]" sentinel, or an error from fn. ErrDone from fn ends the
// stream cleanly. Other fields (event:, id:, comments) are ignored.
func Read(r io.Reader, fn Handler) error {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineSize)

	for scanner.Scan() {
		line := scanner.Text()
		if !strings.HasPrefix(line, "data:") {
			continue
		}
		data := strings.TrimSpace(strings.TrimPrefix(line, "data:"))
		if data == "" {
			continue
		}
		if data == "[DONE]" {
			return nil
		}
		if err := fn(data); err != nil {
			if errors.Is(err, ErrDone) {
				return nil
			}
			return err
		}
	}
	return scanner.Err()
}

// ReadLines calls fn with each non-empty line in r. It is used for
// newline-delimited JSON streams such as Ollama's.
func ReadLines(r io.Reader, fn Handler) error {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineSize)

	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if err := fn(line); err != nil {
			if errors.Is(err, ErrDone) {
				return nil
			}
			return err
		}
	}
	return scanner.Err()
}
