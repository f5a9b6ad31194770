package bot

import (
	"log/slog"
)

const maxMessageLength = 4000

// SendMessageWithLevel delivers an alert to every operator chat when level passes the bot threshold.
func (t *TgBot) SendMessageWithLevel(msg string, level slog.Level) {
	if level < t.minLogLevel {
		return
	}
	for _, id := range t.adminIds {
		for _, part := range splitMessage(msg, maxMessageLength) {
			t.plainResponse(id, part)
		}
	}
}
