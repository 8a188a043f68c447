package logging

import (
	"bytes"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"
)

// Options selects how Init sets up the default logger.
type Options struct {
	Level  string // DEBUG, INFO, WARN or ERROR; anything else means INFO
	Format string // "json" or "text"
	File   string // optional log file, output is teed into it
	// Buffer holds the output back until SetOutput names a target. Used
	// while the TUI is not up yet.
	Buffer bool
}

// bufferingTeeWriter buffers output until it gets a target and always tees
// into the log file, if there is one.
type bufferingTeeWriter struct {
	mu          sync.Mutex
	buffer      *bytes.Buffer
	target      io.Writer
	file        *os.File
	isBuffering bool
}

func (w *bufferingTeeWriter) Write(p []byte) (n int, err error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	var firstErr error
	if w.isBuffering {
		w.buffer.Write(p)
	} else if w.target != nil {
		if _, err := w.target.Write(p); err != nil {
			firstErr = err
		}
	}
	if w.file != nil {
		if _, err := w.file.Write(p); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return len(p), firstErr
}

var writer = &bufferingTeeWriter{buffer: &bytes.Buffer{}, target: os.Stderr}

// ParseLevel maps a level name to its slog level.
func ParseLevel(levelStr string) slog.Level {
	switch strings.ToUpper(levelStr) {
	case "DEBUG":
		return slog.LevelDebug
	case "WARN":
		return slog.LevelWarn
	case "ERROR":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// Init installs a new default slog logger. Without Buffer the output goes
// to stderr right away.
func Init(opts Options) error {
	w := &bufferingTeeWriter{
		buffer:      &bytes.Buffer{},
		isBuffering: opts.Buffer,
	}
	if !opts.Buffer {
		w.target = os.Stderr
	}
	if opts.File != "" {
		file, err := os.OpenFile(opts.File, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o666)
		if err != nil {
			return fmt.Errorf("open log file: %w", err)
		}
		w.file = file
	}

	handlerOpts := &slog.HandlerOptions{Level: ParseLevel(opts.Level)}
	var handler slog.Handler
	if strings.EqualFold(opts.Format, "json") {
		handler = slog.NewJSONHandler(w, handlerOpts)
	} else {
		handler = slog.NewTextHandler(w, handlerOpts)
	}

	writer = w
	slog.SetDefault(slog.New(handler))
	return nil
}

// SetOutput flushes the buffer to the new writer and starts live logging.
func SetOutput(newTarget io.Writer) error {
	writer.mu.Lock()
	defer writer.mu.Unlock()

	if writer.buffer.Len() > 0 {
		if _, err := newTarget.Write(writer.buffer.Bytes()); err != nil {
			return err
		}
		writer.buffer.Reset()
	}
	writer.target = newTarget
	writer.isBuffering = false
	return nil
}

// BufferOutput stops live logging and starts buffering.
func BufferOutput() {
	writer.mu.Lock()
	defer writer.mu.Unlock()
	writer.target = nil
	writer.isBuffering = true
}

// Close closes the log file and writes lines that never reached a target
// to stderr.
func Close() error {
	writer.mu.Lock()
	defer writer.mu.Unlock()

	var firstErr error
	if writer.file != nil {
		if err := writer.file.Close(); err != nil {
			firstErr = err
		}
		writer.file = nil
	}
	// buffered lines were already teed into the file
	if writer.buffer.Len() > 0 && writer.target == nil {
		if _, err := os.Stderr.Write(writer.buffer.Bytes()); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	writer.buffer.Reset()
	return firstErr
}
