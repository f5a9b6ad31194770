package cont

import (
	"context"
	"qrpass/entity"
)

type ctxKey string

const OperatorKey ctxKey = "operator"

func PutOperator(c context.Context, operator *entity.Operator) context.Context {
	return context.WithValue(c, OperatorKey, *operator)
}

// GetOperator returns the authenticated operator, or nil on an unauthenticated route.
func GetOperator(c context.Context) *entity.Operator {
	operator, ok := c.Value(OperatorKey).(entity.Operator)
	if !ok {
		return nil
	}
	return &operator
}
