package logger

import (
	"errors"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"

	"gopkg.in/natefinch/lumberjack.v2"
)

// Config describes how the process-wide logger should behave.
type Config struct {
	Level       string
	Format      string
	OutputPaths []string
	Audit       AuditConfig
}

// AuditConfig controls where security relevant events (challenge issue,
// token redemption, consent mint and revoke) are written.
type AuditConfig struct {
	Enabled    bool
	Path       string
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
	Compress   bool
}

var (
	mu            sync.RWMutex
	defaultLogger *slog.Logger
	auditLogger   *slog.Logger
	closers       []io.Closer
)

// Init configures the global logger instances. Calling Init again replaces
// the previous loggers and closes their file outputs.
func Init(cfg Config) error {
	level := parseLevel(cfg.Level)
	handlerOpts := &slog.HandlerOptions{Level: level}

	var opened []io.Closer
	handler, err := buildHandler(cfg.Format, cfg.OutputPaths, handlerOpts, &opened)
	if err != nil {
		closeAll(opened)
		return err
	}
	base := slog.New(handler)

	audit := base.With(slog.String("stream", "audit"))
	if cfg.Audit.Enabled {
		if cfg.Audit.Path == "" {
			closeAll(opened)
			return errors.New("audit log path cannot be empty when enabled")
		}
		writer := newRollingFile(cfg.Audit.Path, cfg.Audit.MaxSizeMB, cfg.Audit.MaxBackups, cfg.Audit.MaxAgeDays, cfg.Audit.Compress)
		opened = append(opened, writer)
		audit = slog.New(slog.NewJSONHandler(writer, &slog.HandlerOptions{Level: slog.LevelInfo}))
	}

	mu.Lock()
	previous := closers
	defaultLogger = base
	auditLogger = audit
	closers = opened
	mu.Unlock()

	closeAll(previous)
	return nil
}

// Use installs an externally constructed logger, mostly for tests.
func Use(l *slog.Logger) {
	if l == nil {
		return
	}
	mu.Lock()
	defaultLogger = l
	auditLogger = l
	mu.Unlock()
}

func buildHandler(format string, outputs []string, opts *slog.HandlerOptions, opened *[]io.Closer) (slog.Handler, error) {
	writers := make([]io.Writer, 0, len(outputs))
	if len(outputs) == 0 {
		writers = append(writers, os.Stdout)
	}
	for _, out := range outputs {
		switch strings.ToLower(strings.TrimSpace(out)) {
		case "", "stdout":
			writers = append(writers, os.Stdout)
		case "stderr":
			writers = append(writers, os.Stderr)
		default:
			writer := newRollingFile(out, 0, 0, 0, false)
			*opened = append(*opened, writer)
			writers = append(writers, writer)
		}
	}

	var writer io.Writer
	if len(writers) == 1 {
		writer = writers[0]
	} else {
		writer = io.MultiWriter(writers...)
	}

	if strings.EqualFold(format, "text") {
		return slog.NewTextHandler(writer, opts), nil
	}
	return slog.NewJSONHandler(writer, opts), nil
}

func newRollingFile(path string, maxSizeMB, maxBackups, maxAgeDays int, compress bool) *lumberjack.Logger {
	if maxSizeMB <= 0 {
		maxSizeMB = 100
	}
	if maxBackups <= 0 {
		maxBackups = 7
	}
	if maxAgeDays <= 0 {
		maxAgeDays = 30
	}
	return &lumberjack.Logger{
		Filename:   path,
		MaxSize:    maxSizeMB,
		MaxBackups: maxBackups,
		MaxAge:     maxAgeDays,
		Compress:   compress,
	}
}

func parseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func closeAll(list []io.Closer) error {
	var err error
	for _, closer := range list {
		err = errors.Join(err, closer.Close())
	}
	return err
}

// L returns the structured logger instance.
func L() *slog.Logger {
	mu.RLock()
	l := defaultLogger
	mu.RUnlock()
	if l == nil {
		_ = Init(Config{})
		mu.RLock()
		l = defaultLogger
		mu.RUnlock()
	}
	return l
}

// Audit returns the audit logger.
func Audit() *slog.Logger {
	mu.RLock()
	l := auditLogger
	mu.RUnlock()
	if l == nil {
		return L()
	}
	return l
}

// Sync flushes and closes file outputs.
func Sync() error {
	mu.Lock()
	list := closers
	closers = nil
	mu.Unlock()
	return closeAll(list)
}

// Named returns a child logger tagged with the component name.
func Named(name string) *slog.Logger {
	return L().With(slog.String("component", name))
}
