package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"qrpass/bot"
	"qrpass/impl/auth"
	"qrpass/impl/core"
	"qrpass/internal/config"
	"qrpass/internal/database"
	"qrpass/internal/http-server/api"
	"qrpass/internal/redemption"
	"qrpass/lib/clock"
	"qrpass/lib/logger"
	"qrpass/lib/sl"
	"syscall"
	"time"
)

const logFileName = "qrpass"

func main() {
	configPath := flag.String("conf", "config.yml", "path to config file")
	logPath := flag.String("log", "/var/log/", "path to log file directory")
	flag.Parse()

	conf := config.MustLoad(*configPath)
	lg := logger.SetupLogger(conf.Env, *logPath, logFileName)
	lg.Info("starting qrpass", slog.String("config", *configPath), slog.String("env", conf.Env))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// no serving without a store
	store, err := database.Open(ctx, conf, lg)
	if err != nil {
		lg.Error("store connection", sl.Err(err))
		os.Exit(1)
	}
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := store.Close(closeCtx); err != nil {
			lg.Warn("closing store", sl.Err(err))
		}
	}()
	lg.Info("store connected", slog.String("driver", conf.Store.Driver))

	operators := auth.New(conf.Operator.Operators)

	var tgBot *bot.TgBot
	if conf.Telegram.Enabled {
		// the bot logs through the plain logger; only the rest of the app forwards alerts to it
		tgBot, err = bot.NewTgBot(conf.Telegram.ApiKey, nil, operators.TelegramIds(), slog.Level(conf.Telegram.AlertLevel), lg)
		if err != nil {
			lg.Error("telegram bot", sl.Err(err))
			tgBot = nil
		} else {
			lg = logger.WithTelegram(lg, tgBot, slog.Level(conf.Telegram.AlertLevel))
		}
	}

	rs := redemption.New(store, clock.System(), conf.Redemption.IdempotencyWindow, lg)
	lg.Info("redemption service ready", slog.Duration("idempotency_window", rs.Window()))

	handler := core.New(rs, lg)
	handler.SetAuthService(operators)
	handler.SetHealthChecker(store)

	if tgBot != nil {
		tgBot.SetCore(handler)
		go func() {
			if err := tgBot.Start(); err != nil {
				lg.Error("telegram bot stopped", sl.Err(err))
			}
		}()
		defer tgBot.Stop()
	}

	server := api.New(conf, lg, handler)
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			lg.Error("server shutdown", sl.Err(err))
		}
	}()

	if err = server.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		lg.Error("error starting server", sl.Err(err))
		log.Printf("server: %v", err)
	}
	lg.Info("server stopped")
}
