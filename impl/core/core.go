package core

import (
	"context"
	"fmt"
	"log/slog"
	"qrpass/entity"
	"qrpass/internal/redemption"
	"qrpass/lib/sl"
)

type AuthService interface {
	Enabled() bool
	OperatorByKey(key string) (*entity.Operator, error)
	OperatorByTelegramId(id int64) *entity.Operator
}

type HealthChecker interface {
	Ping(ctx context.Context) error
}

// Core joins the redemption service, operator auth and store health
// behind the interfaces the HTTP handlers and the bot consume.
type Core struct {
	redemption *redemption.Service
	auth       AuthService
	health     HealthChecker
	log        *slog.Logger
}

func New(rs *redemption.Service, log *slog.Logger) *Core {
	if rs == nil {
		panic("redemption service is nil")
	}
	return &Core{
		redemption: rs,
		log:        log.With(sl.Module("core")),
	}
}

func (c *Core) SetAuthService(auth AuthService) {
	c.auth = auth
}

func (c *Core) SetHealthChecker(health HealthChecker) {
	c.health = health
}

func (c *Core) AuthEnabled() bool {
	return c.auth != nil && c.auth.Enabled()
}

func (c *Core) AuthenticateByKey(key string) (*entity.Operator, error) {
	if c.auth == nil {
		return nil, fmt.Errorf("auth service not connected")
	}
	return c.auth.OperatorByKey(key)
}

func (c *Core) OperatorByTelegramId(id int64) *entity.Operator {
	if c.auth == nil {
		return nil
	}
	return c.auth.OperatorByTelegramId(id)
}

func (c *Core) Peek(ctx context.Context, token string) (*redemption.PeekResult, error) {
	return c.redemption.Peek(ctx, token)
}

func (c *Core) CheckIn(ctx context.Context, token string) (*redemption.CheckInResult, error) {
	return c.redemption.CheckIn(ctx, token)
}

func (c *Core) ResetPass(ctx context.Context, token string) (bool, error) {
	return c.redemption.Reset(ctx, token)
}

func (c *Core) Stats(ctx context.Context) (*redemption.Stats, error) {
	return c.redemption.Stats(ctx)
}

func (c *Core) Health(ctx context.Context) error {
	if c.health == nil {
		return nil
	}
	return c.health.Ping(ctx)
}
