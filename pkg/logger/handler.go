package logger

import (
	"log/slog"
	"os"
)

// NewHandler builds the default slog handler for the service. A nil
// options value enables source locations at info level.
func NewHandler(opts *slog.HandlerOptions) slog.Handler {
	if opts == nil {
		opts = &slog.HandlerOptions{
			AddSource: true,
			Level:     slog.LevelInfo,
		}
	}

	return slog.NewJSONHandler(os.Stdout, opts)
}
