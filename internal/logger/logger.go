package logger

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

// New builds the session logger. With debug disabled it returns a discard
// logger and logging is off entirely. With debug enabled it appends
// "[timestamp] [LEVEL] message" lines to path; error records are also
// written to stderr so callers see failures without tailing the file.
// The returned closer releases the log file.
func New(debug bool, path string) (*slog.Logger, func() error, error) {
	if !debug {
		return slog.New(slog.DiscardHandler), func() error { return nil }, nil
	}
	if strings.TrimSpace(path) == "" {
		path = "driftmail.log"
	}
	if err := ensureParentDir(path); err != nil {
		return nil, nil, fmt.Errorf("create log dir: %w", err)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, nil, fmt.Errorf("open log file: %w", err)
	}
	h := &lineHandler{file: f, errOut: os.Stderr, mu: &sync.Mutex{}}
	return slog.New(h), f.Close, nil
}

func ensureParentDir(path string) error {
	dir := filepath.Dir(path)
	if dir == "." || dir == "" {
		return nil
	}
	return os.MkdirAll(dir, 0o755)
}

// lineHandler writes one log record per line in the append-only
// "[timestamp] [LEVEL] message key=value" form.
type lineHandler struct {
	file   *os.File
	errOut *os.File
	mu     *sync.Mutex
	attrs  []slog.Attr
	group  string
}

func (h *lineHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= slog.LevelDebug
}

func (h *lineHandler) Handle(_ context.Context, record slog.Record) error {
	ts := record.Time
	if ts.IsZero() {
		ts = time.Now()
	}

	var b strings.Builder
	fmt.Fprintf(&b, "[%s] [%s] %s", ts.Format(time.RFC3339), record.Level.String(), record.Message)
	for _, attr := range h.attrs {
		writeAttr(&b, h.group, attr)
	}
	record.Attrs(func(attr slog.Attr) bool {
		writeAttr(&b, h.group, attr)
		return true
	})
	b.WriteByte('\n')
	line := b.String()

	h.mu.Lock()
	defer h.mu.Unlock()
	if _, err := h.file.WriteString(line); err != nil {
		return err
	}
	if record.Level >= slog.LevelError && h.errOut != nil {
		_, _ = h.errOut.WriteString(line)
	}
	return nil
}

func (h *lineHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	next := *h
	next.attrs = append(append([]slog.Attr(nil), h.attrs...), attrs...)
	return &next
}

func (h *lineHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	next := *h
	if h.group != "" {
		next.group = h.group + "." + name
	} else {
		next.group = name
	}
	return &next
}

func writeAttr(b *strings.Builder, group string, attr slog.Attr) {
	if attr.Equal(slog.Attr{}) {
		return
	}
	key := attr.Key
	if group != "" {
		key = group + "." + key
	}
	fmt.Fprintf(b, " %s=%v", key, attr.Value.Resolve().Any())
}
