package infrastructure

import (
	"io"
	"log/slog"
	"os"

	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/JaimeStill/adherence/internal/config"
)

// NewLogger builds the process logger. With a file configured, output goes to
// a lumberjack-rotated file and the returned closer releases it; otherwise
// output goes to stderr and the closer is nil.
func NewLogger(cfg *config.LoggingConfig) (*slog.Logger, io.Closer) {
	var (
		w      io.Writer = os.Stderr
		closer io.Closer
	)

	if cfg.File != "" {
		file := &lumberjack.Logger{
			Filename:   cfg.File,
			MaxSize:    cfg.MaxSizeMB,
			MaxBackups: cfg.MaxBackups,
			MaxAge:     cfg.MaxAgeDays,
			Compress:   true,
		}
		w, closer = file, file
	}

	return slog.New(newHandler(w, cfg)), closer
}

func newHandler(w io.Writer, cfg *config.LoggingConfig) slog.Handler {
	opts := &slog.HandlerOptions{Level: cfg.SlogLevel()}
	if cfg.Format == "json" {
		return slog.NewJSONHandler(w, opts)
	}
	return slog.NewTextHandler(w, opts)
}
