package cli

import (
	"bufio"
	"context"
	"errors"
	"io"
	"strings"
	"sync"
)

// ErrInputCanceled is returned when input is canceled by context.
var ErrInputCanceled = errors.New("input canceled")

type lineResult struct {
	err  error
	line string
}

// LineReader reads lines in the background so a read can be abandoned when
// the context ends. An abandoned read does not lose the line: it is
// delivered to the next ReadLine.
type LineReader struct {
	reader *bufio.Reader
	lines  chan lineResult
	once   sync.Once
}

// NewLineReader creates a new line reader.
func NewLineReader(reader io.Reader) *LineReader {
	if reader == nil {
		panic("reader cannot be nil")
	}

	return &LineReader{
		reader: bufio.NewReader(reader),
		lines:  make(chan lineResult),
	}
}

func (r *LineReader) start() {
	r.once.Do(func() {
		go func() {
			for {
				line, err := r.reader.ReadString('\n')
				if line != "" {
					r.lines <- lineResult{line: line}
				}
				if err != nil {
					r.lines <- lineResult{err: err}
					close(r.lines)
					return
				}
			}
		}()
	})
}

// ReadLine returns the next line without surrounding whitespace.
// It returns io.EOF once the input is exhausted.
func (r *LineReader) ReadLine(ctx context.Context) (string, error) {
	if ctx.Err() != nil {
		return "", ErrInputCanceled
	}
	r.start()

	select {
	case <-ctx.Done():
		return "", ErrInputCanceled
	case res, ok := <-r.lines:
		if !ok {
			return "", io.EOF
		}
		if res.err != nil {
			return "", res.err
		}
		return strings.TrimSpace(res.line), nil
	}
}
