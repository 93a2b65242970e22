// Package notify is the client's global toast: messages every screen should
// see regardless of which command triggered them, such as server errors.
package notify

import (
	"context"
	"fmt"
	"io"
	"sync"

	"github.com/docscrib/docscrib-cli/internal/logging"
)

type Level string

const (
	LevelInfo  Level = "info"
	LevelWarn  Level = "warn"
	LevelError Level = "error"
)

type Notifier interface {
	Notify(ctx context.Context, level Level, msg string)
}

// Func adapts a plain function to Notifier.
type Func func(ctx context.Context, level Level, msg string)

func (f Func) Notify(ctx context.Context, level Level, msg string) { f(ctx, level, msg) }

// Nop drops every message.
type Nop struct{}

func (Nop) Notify(context.Context, Level, string) {}

// WriterNotifier prints toasts to a terminal. Safe for concurrent use.
type WriterNotifier struct {
	mu sync.Mutex
	w  io.Writer
}

func NewWriterNotifier(w io.Writer) *WriterNotifier {
	return &WriterNotifier{w: w}
}

func (n *WriterNotifier) Notify(_ context.Context, level Level, msg string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	fmt.Fprintf(n.w, "[%s] %s\n", level, msg)
}

// LogNotifier forwards toasts to a logger, for non-interactive runs.
type LogNotifier struct {
	log logging.Logger
}

func NewLogNotifier(log logging.Logger) *LogNotifier {
	return &LogNotifier{log: log}
}

func (n *LogNotifier) Notify(ctx context.Context, level Level, msg string) {
	switch level {
	case LevelError:
		n.log.Error(ctx, msg)
	case LevelWarn:
		n.log.Warn(ctx, msg)
	default:
		n.log.Info(ctx, msg)
	}
}

// Multi fans a toast out to several notifiers.
type Multi []Notifier

func (m Multi) Notify(ctx context.Context, level Level, msg string) {
	for _, n := range m {
		n.Notify(ctx, level, msg)
	}
}
