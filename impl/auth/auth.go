package auth

import (
	"crypto/subtle"
	"errors"
	"qrpass/entity"
)

var ErrUnknownKey = errors.New("unknown operator key")

// Auth resolves operators configured statically in the config file.
type Auth struct {
	operators []entity.Operator
}

func New(operators []entity.Operator) *Auth {
	return &Auth{operators: operators}
}

// Enabled is false when no operator is configured; the operator path is then open.
func (a *Auth) Enabled() bool {
	return len(a.operators) > 0
}

func (a *Auth) OperatorByKey(key string) (*entity.Operator, error) {
	if key == "" {
		return nil, ErrUnknownKey
	}
	for i := range a.operators {
		if subtle.ConstantTimeCompare([]byte(a.operators[i].Key), []byte(key)) == 1 {
			operator := a.operators[i]
			return &operator, nil
		}
	}
	return nil, ErrUnknownKey
}

func (a *Auth) OperatorByTelegramId(id int64) *entity.Operator {
	if id == 0 {
		return nil
	}
	for i := range a.operators {
		if a.operators[i].TelegramId == id {
			operator := a.operators[i]
			return &operator
		}
	}
	return nil
}

func (a *Auth) TelegramIds() []int64 {
	var ids []int64
	for _, operator := range a.operators {
		if operator.TelegramId != 0 {
			ids = append(ids, operator.TelegramId)
		}
	}
	return ids
}
