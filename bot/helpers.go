package bot

import (
	"fmt"
	"log/slog"
	"qrpass/lib/sl"
	"regexp"
	"strings"

	tgbotapi "github.com/PaulSonOfLars/gotgbot/v2"
)

var tokenPattern = regexp.MustCompile(`^[0-9a-f]{32}$`)

func (t *TgBot) plainResponse(chatId int64, text string) {
	if text == "" {
		t.log.With("id", chatId).Debug("empty message")
		return
	}

	_, err := t.api.SendMessage(chatId, text, &tgbotapi.SendMessageOpts{
		ParseMode: "MarkdownV2",
	})
	if err != nil {
		t.log.With(slog.Int64("id", chatId)).Warn("sending message", sl.Err(err))
		_, err = t.api.SendMessage(chatId, text, &tgbotapi.SendMessageOpts{})
		if err != nil {
			t.log.With(slog.Int64("id", chatId)).Error("sending safe message", sl.Err(err))
		}
	}
}

func (t *TgBot) sendWithKeyboard(chatId int64, text string, keyboard tgbotapi.InlineKeyboardMarkup) {
	if text == "" {
		return
	}
	_, err := t.api.SendMessage(chatId, text, &tgbotapi.SendMessageOpts{
		ParseMode:   "MarkdownV2",
		ReplyMarkup: keyboard,
	})
	if err != nil {
		t.log.With(slog.Int64("id", chatId)).Warn("sending message with keyboard", sl.Err(err))
	}
}

func Sanitize(input string) string {
	reservedChars := "\\_{}#+-.!|()[]=*`>~"
	var sb strings.Builder
	for _, char := range input {
		if strings.ContainsRune(reservedChars, char) {
			sb.WriteRune('\\')
		}
		sb.WriteRune(char)
	}
	return sb.String()
}

// tokenArg extracts the token from "/command <token>"; a full redemption link is accepted too.
func tokenArg(text string) (string, error) {
	args := strings.Fields(text)
	if len(args) < 2 {
		return "", fmt.Errorf("token is missing")
	}
	token := args[1]
	if i := strings.LastIndex(token, "token="); i >= 0 {
		token = token[i+len("token="):]
	}
	token = strings.ToLower(strings.TrimSpace(token))
	if !tokenPattern.MatchString(token) {
		return "", fmt.Errorf("not a pass token")
	}
	return token, nil
}

func splitMessage(text string, maxLen int) []string {
	if len(text) <= maxLen {
		return []string{text}
	}
	var parts []string
	for len(text) > 0 {
		if len(text) <= maxLen {
			parts = append(parts, text)
			break
		}
		// Try to split at newline
		cutAt := maxLen
		nlIdx := strings.LastIndex(text[:maxLen], "\n")
		if nlIdx > 0 {
			cutAt = nlIdx + 1
		}
		parts = append(parts, text[:cutAt])
		text = text[cutAt:]
	}
	return parts
}

// reportError logs the error and sends a neutral message to the operator.
func (t *TgBot) reportError(chatId int64, command string, err error) {
	t.log.Error("bot command failed",
		slog.String("command", command),
		slog.Int64("user_id", chatId),
		sl.Err(err),
	)
	t.plainResponse(chatId, "Something went wrong\\. Please try again later\\.")
}
