package watcher

import (
	"context"
	"log/slog"
	"unicode/utf8"

	"go.klb.dev/clipmon/internal/event"
)

// logChange logs a clipboard event at INFO (size) and DEBUG (text preview up
// to 50 runes).
func logChange(msg, text string) {
	slog.Info(msg, "runes", utf8.RuneCountInString(text), "bytes", len(text))

	if !slog.Default().Enabled(context.Background(), slog.LevelDebug) {
		return
	}
	slog.Debug("clipboard text", "preview", event.Preview(text, event.PreviewLen))
}
