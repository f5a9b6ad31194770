package bot

import (
	"context"
	"qrpass/entity"
	"qrpass/internal/redemption"
	"qrpass/lib/api/cont"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const token = "0123456789abcdef0123456789abcdef"

func TestSanitize(t *testing.T) {
	assert.Equal(t, "Ada Lovelace", Sanitize("Ada Lovelace"))
	assert.Equal(t, "O'Brien", Sanitize("O'Brien"))
	assert.Equal(t, `2025\-06\-01 \(VIP\)\.`, Sanitize("2025-06-01 (VIP)."))
	assert.Equal(t, `\*bold\* \_x\_`, Sanitize("*bold* _x_"))
}

func TestTokenArg(t *testing.T) {
	tests := []struct {
		name    string
		text    string
		want    string
		wantErr bool
	}{
		{"plain", "/pass " + token, token, false},
		{"upper case", "/pass " + strings.ToUpper(token), token, false},
		{"redemption link", "/reset https://example.org/p?token=" + token, token, false},
		{"missing", "/pass", "", true},
		{"short", "/pass abc", "", true},
		{"not hex", "/pass " + strings.Repeat("z", 32), "", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tokenArg(tt.text)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestSplitMessage(t *testing.T) {
	assert.Equal(t, []string{"short"}, splitMessage("short", 10))

	parts := splitMessage("line one\nline two\nline three", 12)
	assert.Equal(t, []string{"line one\n", "line two\n", "line three"}, parts)

	parts = splitMessage(strings.Repeat("x", 25), 10)
	require.Len(t, parts, 3)
	assert.Equal(t, strings.Repeat("x", 25), strings.Join(parts, ""))
}

func TestDescribePass(t *testing.T) {
	at := time.Date(2025, 6, 1, 18, 0, 0, 0, time.UTC)

	text := describePass(token, entity.CodeAlreadyUsed, "Ada Lovelace", &at)
	assert.Contains(t, text, "`"+token+"`")
	assert.Contains(t, text, "*Ada Lovelace*")
	assert.Contains(t, text, `status: used at 2025\-06\-01T18:00:00Z`)

	assert.Contains(t, describePass(token, entity.CodeReady, "Ada", nil), "status: unused")
	assert.Contains(t, describePass(token, entity.CodeNotFound, "", nil), "status: not found")
}

func TestResetKeyboard(t *testing.T) {
	keyboard := resetKeyboard(token)
	require.Len(t, keyboard.InlineKeyboard, 1)
	require.Len(t, keyboard.InlineKeyboard[0], 2)
	data := keyboard.InlineKeyboard[0][0].CallbackData
	assert.Equal(t, cbResetConfirm+token, data)
	assert.LessOrEqual(t, len(data), 64)
}

type operatorsOnly struct {
	Core
	operator *entity.Operator
}

func (o operatorsOnly) OperatorByTelegramId(id int64) *entity.Operator {
	if o.operator != nil && o.operator.TelegramId == id {
		return o.operator
	}
	return nil
}

func (o operatorsOnly) Stats(context.Context) (*redemption.Stats, error) {
	return &redemption.Stats{}, nil
}

func TestOperatorContext(t *testing.T) {
	bot := &TgBot{core: operatorsOnly{operator: &entity.Operator{Name: "door", TelegramId: 42}}}

	_, _, ok := bot.operatorContext(7)
	assert.False(t, ok)

	ctx, cancel, ok := bot.operatorContext(42)
	require.True(t, ok)
	defer cancel()
	operator := cont.GetOperator(ctx)
	require.NotNil(t, operator)
	assert.Equal(t, "door", operator.Name)
	_, hasDeadline := ctx.Deadline()
	assert.True(t, hasDeadline)
}
