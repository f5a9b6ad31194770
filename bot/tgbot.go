// Package bot implements the operator-facing Telegram bot.
//
//   - tgbot.go    : TgBot struct, lifecycle (Start/Stop), command menu
//   - commands.go : /pass, /reset, /stats, /help
//   - callbacks.go: reset confirmation buttons
//   - messaging.go: alert delivery to operators (used by the slog Telegram handler)
//   - helpers.go  : Sanitize, plainResponse, argument parsing
//
// Only operators with a telegram_id in the config may use it. The bot is a second
// operator path next to POST /api/reset-pass; guests never reach it.
package bot

import (
	"context"
	"fmt"
	"log/slog"
	"qrpass/entity"
	"qrpass/internal/redemption"
	"qrpass/lib/api/cont"
	"qrpass/lib/sl"
	"time"

	tgbotapi "github.com/PaulSonOfLars/gotgbot/v2"
	"github.com/PaulSonOfLars/gotgbot/v2/ext"
	"github.com/PaulSonOfLars/gotgbot/v2/ext/handlers"
	"github.com/PaulSonOfLars/gotgbot/v2/ext/handlers/filters/callbackquery"
)

const commandTimeout = 5 * time.Second

// Core is what the bot needs from the application.
type Core interface {
	OperatorByTelegramId(id int64) *entity.Operator
	Peek(ctx context.Context, token string) (*redemption.PeekResult, error)
	ResetPass(ctx context.Context, token string) (bool, error)
	Stats(ctx context.Context) (*redemption.Stats, error)
}

type TgBot struct {
	log         *slog.Logger
	api         *tgbotapi.Bot
	core        Core
	adminIds    []int64
	minLogLevel slog.Level
	updater     *ext.Updater
}

var commandsOperator = []tgbotapi.BotCommand{
	{Command: "pass", Description: "Show a pass by token"},
	{Command: "reset", Description: "Reset a pass to unused"},
	{Command: "stats", Description: "Count used and unused passes"},
	{Command: "help", Description: "Show available commands"},
}

func NewTgBot(apiKey string, core Core, adminIds []int64, minLevel slog.Level, log *slog.Logger) (*TgBot, error) {
	tgBot := &TgBot{
		log:         log.With(sl.Module("tgbot")),
		core:        core,
		adminIds:    adminIds,
		minLogLevel: minLevel,
	}

	api, err := tgbotapi.NewBot(apiKey, nil)
	if err != nil {
		return nil, fmt.Errorf("creating api instance: %v", err)
	}
	tgBot.api = api

	return tgBot, nil
}

// SetCore connects the bot to the application. The bot is built before the core
// so the core's logger can already forward alerts through it.
func (t *TgBot) SetCore(core Core) {
	t.core = core
}

// Start polls for updates and blocks until Stop.
func (t *TgBot) Start() error {
	if t.core == nil {
		return fmt.Errorf("core not connected")
	}
	dispatcher := ext.NewDispatcher(&ext.DispatcherOpts{
		Error: func(b *tgbotapi.Bot, ctx *ext.Context, err error) ext.DispatcherAction {
			t.log.Error("handling update:", sl.Err(err))
			return ext.DispatcherActionNoop
		},
		MaxRoutines: ext.DefaultMaxRoutines,
	})
	t.updater = ext.NewUpdater(dispatcher, nil)

	dispatcher.AddHandler(handlers.NewCommand("start", t.help))
	dispatcher.AddHandler(handlers.NewCommand("help", t.help))
	dispatcher.AddHandler(handlers.NewCommand("pass", t.pass))
	dispatcher.AddHandler(handlers.NewCommand("reset", t.reset))
	dispatcher.AddHandler(handlers.NewCommand("stats", t.stats))

	dispatcher.AddHandler(handlers.NewCallback(callbackquery.Prefix(cbResetConfirm), t.onResetConfirm))
	dispatcher.AddHandler(handlers.NewCallback(callbackquery.Prefix(cbResetCancel), t.onResetCancel))

	t.setOperatorCommands()

	err := t.updater.StartPolling(t.api, &ext.PollingOpts{
		DropPendingUpdates: true,
		GetUpdatesOpts: &tgbotapi.GetUpdatesOpts{
			Timeout: 9,
			RequestOpts: &tgbotapi.RequestOpts{
				Timeout: time.Second * 10,
			},
		},
	})
	if err != nil {
		return fmt.Errorf("failed to start polling: %w", err)
	}
	t.log.With(slog.Int("operators", len(t.adminIds))).Info("telegram bot started")

	t.updater.Idle()
	return nil
}

func (t *TgBot) Stop() {
	if t.updater != nil {
		t.log.Info("stopping telegram bot")
		t.updater.Stop()
	}
}

// setOperatorCommands pushes the command menu to each operator chat only.
func (t *TgBot) setOperatorCommands() {
	for _, id := range t.adminIds {
		_, err := t.api.SetMyCommands(commandsOperator, &tgbotapi.SetMyCommandsOpts{
			Scope: tgbotapi.BotCommandScopeChat{ChatId: id},
		})
		if err != nil {
			t.log.With(slog.Int64("id", id)).Warn("setting operator commands", sl.Err(err))
		}
	}
}

// operatorContext authorizes a chat and returns a bounded context carrying the operator.
func (t *TgBot) operatorContext(chatId int64) (context.Context, context.CancelFunc, bool) {
	operator := t.core.OperatorByTelegramId(chatId)
	if operator == nil {
		return nil, nil, false
	}
	ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
	return cont.PutOperator(ctx, operator), cancel, true
}
