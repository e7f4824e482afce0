package eventlog

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/hupe1980/umf/event"
)

const (
	initialBufferSize = 64 * 1024
	maxLineSize       = 8 * 1024 * 1024
)

// Iterate decodes r line by line and calls fn for each envelope in order.
// Blank lines, undecodable lines and non-increasing sequences stop the
// iteration with a *LineError. An error returned by fn stops the iteration
// and is returned as is.
func Iterate(r io.Reader, fn func(env event.Envelope) error) error {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, initialBufferSize), maxLineSize)

	var (
		lineNo int
		last   uint64
	)
	for scanner.Scan() {
		lineNo++
		line := scanner.Text()
		if strings.TrimSpace(line) == "" {
			return &LineError{Line: lineNo, Err: ErrBlankLine}
		}

		env, err := event.FromJSONLine(line)
		if err != nil {
			return &LineError{Line: lineNo, Err: err}
		}

		if lineNo > 1 && env.Sequence <= last {
			return &LineError{Line: lineNo, Err: fmt.Errorf("%w: %d after %d", ErrSequenceRegression, env.Sequence, last)}
		}
		last = env.Sequence

		if err := fn(env); err != nil {
			return err
		}
	}

	if err := scanner.Err(); err != nil {
		return &LineError{Line: lineNo + 1, Err: err}
	}
	return nil
}

// ReadAll decodes every envelope in r.
func ReadAll(r io.Reader) ([]event.Envelope, error) {
	var envs []event.Envelope
	err := Iterate(r, func(env event.Envelope) error {
		envs = append(envs, env)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return envs, nil
}
