package logger

import (
	"bytes"
	"errors"
	"log/slog"
	"qrpass/lib/sl"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingNotifier struct {
	mu       sync.Mutex
	messages []string
	levels   []slog.Level
}

func (n *recordingNotifier) SendMessageWithLevel(msg string, level slog.Level) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.messages = append(n.messages, msg)
	n.levels = append(n.levels, level)
}

func TestTelegramHandlerForwardsAlerts(t *testing.T) {
	var buf bytes.Buffer
	base := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	notifier := &recordingNotifier{}
	log := WithTelegram(base, notifier, slog.LevelError)

	log.Debug("debug line")
	log.Info("pass checked in")
	log.With(sl.Module("redemption")).Error("data integrity: unknown pass state", sl.Err(errors.New("no timestamp")))

	assert.Contains(t, buf.String(), "debug line")
	assert.Contains(t, buf.String(), "pass checked in")
	assert.Contains(t, buf.String(), "data integrity")

	require.Len(t, notifier.messages, 1)
	assert.Equal(t, slog.LevelError, notifier.levels[0])
	msg := notifier.messages[0]
	assert.Contains(t, msg, "*ERROR*")
	assert.Contains(t, msg, "data integrity: unknown pass state")
	assert.Contains(t, msg, "mod: redemption")
	assert.Contains(t, msg, "no timestamp")
}

func TestTelegramHandlerGroups(t *testing.T) {
	notifier := &recordingNotifier{}
	base := slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))
	log := WithTelegram(base, notifier, slog.LevelWarn).WithGroup("store")

	log.Warn("slow ping")

	require.Len(t, notifier.messages, 1)
	assert.Contains(t, notifier.messages[0], "`store.slow ping`")
}

func TestTelegramHandlerWithoutNotifier(t *testing.T) {
	var buf bytes.Buffer
	base := slog.New(slog.NewTextHandler(&buf, nil))
	log := slog.New(NewTelegramHandler(base.Handler(), nil, slog.LevelInfo))

	log.Error("still logged")
	assert.Contains(t, buf.String(), "still logged")
}

func TestSetupLoggerLocal(t *testing.T) {
	log := SetupLogger(envLocal, t.TempDir(), "qrpass")
	require.NotNil(t, log)
}
