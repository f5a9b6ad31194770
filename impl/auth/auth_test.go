package auth

import (
	"qrpass/entity"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var operators = []entity.Operator{
	{Name: "door", Key: "door-operator-key-0001", TelegramId: 42},
	{Name: "desk", Key: "desk-operator-key-0002"},
}

func TestOperatorByKey(t *testing.T) {
	a := New(operators)
	require.True(t, a.Enabled())

	operator, err := a.OperatorByKey("desk-operator-key-0002")
	require.NoError(t, err)
	assert.Equal(t, "desk", operator.Name)

	operator.Name = "changed"
	again, err := a.OperatorByKey("desk-operator-key-0002")
	require.NoError(t, err)
	assert.Equal(t, "desk", again.Name)

	_, err = a.OperatorByKey("desk-operator-key-000")
	assert.ErrorIs(t, err, ErrUnknownKey)
	_, err = a.OperatorByKey("")
	assert.ErrorIs(t, err, ErrUnknownKey)
}

func TestOperatorByTelegramId(t *testing.T) {
	a := New(operators)

	operator := a.OperatorByTelegramId(42)
	require.NotNil(t, operator)
	assert.Equal(t, "door", operator.Name)

	assert.Nil(t, a.OperatorByTelegramId(7))
	assert.Nil(t, a.OperatorByTelegramId(0))
	assert.Equal(t, []int64{42}, a.TelegramIds())
}

func TestDisabled(t *testing.T) {
	a := New(nil)
	assert.False(t, a.Enabled())
	assert.Empty(t, a.TelegramIds())
	_, err := a.OperatorByKey("anything-at-all-1234")
	assert.ErrorIs(t, err, ErrUnknownKey)
}
