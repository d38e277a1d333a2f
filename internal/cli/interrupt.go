package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"sync"
	"syscall"
)

// InterruptHandler manages graceful shutdown with a friendly message.
type InterruptHandler struct {
	writer      io.Writer
	notify      func(chan<- os.Signal)
	stop        func(chan<- os.Signal)
	farewell    string
	interrupted bool
	mu          sync.Mutex
}

// NewInterruptHandler creates a new interrupt handler that prints farewell
// when the process is interrupted.
func NewInterruptHandler(writer io.Writer, farewell string) *InterruptHandler {
	if writer == nil {
		writer = os.Stdout
	}
	return &InterruptHandler{
		writer:   writer,
		farewell: farewell,
		notify: func(ch chan<- os.Signal) {
			signal.Notify(ch, os.Interrupt, syscall.SIGTERM)
		},
		stop: func(ch chan<- os.Signal) {
			signal.Stop(ch)
		},
	}
}

// HandleInterrupts returns a context that is canceled on SIGINT or SIGTERM.
// Signal handling ends when the parent context is done.
func (h *InterruptHandler) HandleInterrupts(ctx context.Context) context.Context {
	ctx, cancel := context.WithCancel(ctx)

	sigChan := make(chan os.Signal, 1)
	h.notify(sigChan)

	go func() {
		defer h.stop(sigChan)
		select {
		case <-sigChan:
			h.mu.Lock()
			if !h.interrupted {
				h.interrupted = true
				h.showInterruptMessage()
			}
			h.mu.Unlock()
			cancel()
		case <-ctx.Done():
		}
	}()

	return ctx
}

func (h *InterruptHandler) showInterruptMessage() {
	msg := "\n" + FormatWarning("Interrupted!")
	if h.farewell != "" {
		msg += "\n" + FormatInfo(h.farewell)
	}
	msg += "\n"

	if _, err := fmt.Fprint(h.writer, msg); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to write interrupt message: %v\n", err)
	}
}

// WasInterrupted returns true if the process was interrupted.
func (h *InterruptHandler) WasInterrupted() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.interrupted
}
