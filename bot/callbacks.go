package bot

import (
	"fmt"
	"strings"

	tgbotapi "github.com/PaulSonOfLars/gotgbot/v2"
	"github.com/PaulSonOfLars/gotgbot/v2/ext"
)

// Callback data prefixes; Telegram limits callback data to 64 bytes.
const (
	cbResetConfirm = "rs:" // rs:<token>
	cbResetCancel  = "rc:"
)

func resetKeyboard(token string) tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.InlineKeyboardMarkup{
		InlineKeyboard: [][]tgbotapi.InlineKeyboardButton{{
			{Text: "Reset", CallbackData: cbResetConfirm + token},
			{Text: "Cancel", CallbackData: cbResetCancel},
		}},
	}
}

func (t *TgBot) onResetConfirm(_ *tgbotapi.Bot, ctx *ext.Context) error {
	cq := ctx.CallbackQuery
	chatId := cq.From.Id

	opCtx, cancel, ok := t.operatorContext(chatId)
	if !ok {
		_, _ = cq.Answer(t.api, &tgbotapi.AnswerCallbackQueryOpts{Text: "Not authorized", ShowAlert: true})
		return nil
	}
	defer cancel()

	token := strings.TrimPrefix(cq.Data, cbResetConfirm)
	found, err := t.core.ResetPass(opCtx, token)
	if err != nil {
		t.reportError(chatId, "reset:confirm", err)
		_, _ = cq.Answer(t.api, &tgbotapi.AnswerCallbackQueryOpts{Text: "Error occurred"})
		return nil
	}
	if !found {
		_, _ = cq.Answer(t.api, &tgbotapi.AnswerCallbackQueryOpts{Text: "Pass not found"})
		return nil
	}

	_, _ = cq.Answer(t.api, &tgbotapi.AnswerCallbackQueryOpts{Text: "Pass reset"})
	t.plainResponse(chatId, fmt.Sprintf("Pass `%s` reset to unused\\.", token))
	return nil
}

func (t *TgBot) onResetCancel(_ *tgbotapi.Bot, ctx *ext.Context) error {
	_, _ = ctx.CallbackQuery.Answer(t.api, &tgbotapi.AnswerCallbackQueryOpts{Text: "Cancelled"})
	return nil
}
