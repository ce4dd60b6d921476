package logging

import (
	"io"
	"log/slog"
	"os"

	"github.com/samber/oops"
)

// Setup builds the process logger and installs it as the slog default. When
// logstashAddr is set, records are teed to Logstash as JSON lines; the
// returned closer releases that connection.
func Setup(format, logstashAddr string) (*slog.Logger, io.Closer, error) {
	var (
		out    io.Writer = os.Stderr
		closer io.Closer = nopCloser{}
	)
	if logstashAddr != "" {
		ls, err := NewLogstashWriter(logstashAddr)
		if err != nil {
			return nil, nil, err
		}
		out = io.MultiWriter(os.Stderr, ls)
		closer = ls
	}

	logger, err := New(out, format)
	if err != nil {
		_ = closer.Close()
		return nil, nil, err
	}
	slog.SetDefault(logger)
	return logger, closer, nil
}

// New returns a logger writing format ("json" or "text") to w.
func New(w io.Writer, format string) (*slog.Logger, error) {
	opts := &slog.HandlerOptions{Level: slog.LevelInfo}
	switch format {
	case "", "json":
		return slog.New(slog.NewJSONHandler(w, opts)), nil
	case "text":
		return slog.New(slog.NewTextHandler(w, opts)), nil
	default:
		return nil, oops.Code("CONFIG_INVALID").With("log_format", format).
			Errorf("invalid log format %q: must be 'json' or 'text'", format)
	}
}

// LogError logs err with its oops code and context when it carries them.
func LogError(logger *slog.Logger, msg string, err error, attrs ...any) {
	if oopsErr, ok := oops.AsOops(err); ok {
		attrs = append(attrs, "error", oopsErr.Error())
		if code := oopsErr.Code(); code != nil {
			attrs = append(attrs, "code", code)
		}
		if ctx := oopsErr.Context(); len(ctx) > 0 {
			attrs = append(attrs, "context", ctx)
		}
		logger.Error(msg, attrs...)
		return
	}
	logger.Error(msg, append(attrs, "error", err)...)
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
