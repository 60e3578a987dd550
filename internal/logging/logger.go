package logging

import (
	"fmt"
	"io"
	"log/slog"
	"strings"
)

// New builds the text logger used across fitplan. Level is one of debug, info, warn or error.
func New(w io.Writer, level string) (*slog.Logger, error) {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(strings.ToUpper(level))); err != nil {
		return nil, fmt.Errorf("parse log level %q: %w", level, err)
	}
	handler := NewContextHandler(slog.NewTextHandler(w, &slog.HandlerOptions{
		AddSource:   false,
		Level:       lvl,
		ReplaceAttr: nil,
	}))
	return slog.New(handler), nil
}
