package bot

import (
	"fmt"
	"qrpass/entity"
	"qrpass/lib/clock"
	"strings"
	"time"

	tgbotapi "github.com/PaulSonOfLars/gotgbot/v2"
	"github.com/PaulSonOfLars/gotgbot/v2/ext"
)

func (t *TgBot) help(_ *tgbotapi.Bot, ctx *ext.Context) error {
	chatId := ctx.EffectiveUser.Id
	if t.core.OperatorByTelegramId(chatId) == nil {
		t.plainResponse(chatId, fmt.Sprintf("This bot is for event staff\\. Your id: `%d`", chatId))
		return nil
	}
	var sb strings.Builder
	sb.WriteString("*Commands*\n")
	for _, command := range commandsOperator {
		sb.WriteString(fmt.Sprintf("/%s \\- %s\n", command.Command, Sanitize(command.Description)))
	}
	t.plainResponse(chatId, sb.String())
	return nil
}

// pass shows the state of a pass without touching it.
func (t *TgBot) pass(_ *tgbotapi.Bot, ctx *ext.Context) error {
	chatId := ctx.EffectiveUser.Id
	opCtx, cancel, ok := t.operatorContext(chatId)
	if !ok {
		t.plainResponse(chatId, "Operator access required\\.")
		return nil
	}
	defer cancel()

	token, err := tokenArg(ctx.EffectiveMessage.Text)
	if err != nil {
		t.plainResponse(chatId, "Usage: `/pass <token>`")
		return nil
	}

	result, err := t.core.Peek(opCtx, token)
	if err != nil {
		t.reportError(chatId, "/pass", err)
		return nil
	}
	t.plainResponse(chatId, describePass(token, result.Code, result.Name, result.CheckedInAt))
	return nil
}

// reset asks for confirmation before returning a pass to unused.
func (t *TgBot) reset(_ *tgbotapi.Bot, ctx *ext.Context) error {
	chatId := ctx.EffectiveUser.Id
	opCtx, cancel, ok := t.operatorContext(chatId)
	if !ok {
		t.plainResponse(chatId, "Operator access required\\.")
		return nil
	}
	defer cancel()

	token, err := tokenArg(ctx.EffectiveMessage.Text)
	if err != nil {
		t.plainResponse(chatId, "Usage: `/reset <token>`")
		return nil
	}

	result, err := t.core.Peek(opCtx, token)
	if err != nil {
		t.reportError(chatId, "/reset", err)
		return nil
	}
	if result.Code == entity.CodeNotFound {
		t.plainResponse(chatId, "Pass not found\\.")
		return nil
	}

	text := describePass(token, result.Code, result.Name, result.CheckedInAt) + "\nReset this pass to unused?"
	t.sendWithKeyboard(chatId, text, resetKeyboard(token))
	return nil
}

func (t *TgBot) stats(_ *tgbotapi.Bot, ctx *ext.Context) error {
	chatId := ctx.EffectiveUser.Id
	opCtx, cancel, ok := t.operatorContext(chatId)
	if !ok {
		t.plainResponse(chatId, "Operator access required\\.")
		return nil
	}
	defer cancel()

	stats, err := t.core.Stats(opCtx)
	if err != nil {
		t.reportError(chatId, "/stats", err)
		return nil
	}
	t.plainResponse(chatId, fmt.Sprintf("*Passes*: %d\nused: %d\nunused: %d", stats.Total(), stats.Used, stats.Unused))
	return nil
}

func describePass(token string, code entity.Code, name string, checkedInAt *time.Time) string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("`%s`\n", token))
	if name != "" {
		sb.WriteString(fmt.Sprintf("*%s*\n", Sanitize(name)))
	}
	switch code {
	case entity.CodeReady:
		sb.WriteString("status: unused")
	case entity.CodeAlreadyUsed:
		sb.WriteString("status: used")
		if checkedInAt != nil {
			sb.WriteString(fmt.Sprintf(" at %s", Sanitize(clock.Format(*checkedInAt))))
		}
	default:
		sb.WriteString("status: not found")
	}
	return sb.String()
}
