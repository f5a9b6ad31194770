package database

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"qrpass/entity"
	"qrpass/internal/config"
	"qrpass/lib/sl"
	"time"

	"github.com/sethvargo/go-retry"
)

const collectionPasses = "passes"

// ErrDuplicate is returned by CreatePass when the token is already taken.
var ErrDuplicate = errors.New("duplicate pass token")

// Store persists passes. CheckIn is the single atomic compare-and-set
// unused -> used; it returns (nil, nil) when no unused pass matched.
type Store interface {
	CreatePass(ctx context.Context, pass *entity.Pass) error
	GetPass(ctx context.Context, token string) (*entity.Pass, error)
	CheckIn(ctx context.Context, token string, now time.Time) (*entity.Pass, error)
	ResetPass(ctx context.Context, token string) (bool, error)
	CountByStatus(ctx context.Context, status entity.Status) (int64, error)
	Ping(ctx context.Context) error
	Close(ctx context.Context) error
}

// Open connects the store selected in the configuration.
func Open(ctx context.Context, conf *config.Config, log *slog.Logger) (Store, error) {
	switch conf.Store.Driver {
	case config.DriverMongo:
		return NewMongoClient(ctx, conf.Mongo, log)
	case config.DriverMySQL, config.DriverSQLite:
		return NewSQLClient(ctx, conf.Store.Driver, conf.SQL, log)
	case config.DriverMemory:
		return NewMemory(), nil
	default:
		return nil, fmt.Errorf("unknown store driver: %s", conf.Store.Driver)
	}
}

// withRetry runs connect up to attempts times with exponential backoff starting at delay.
func withRetry(ctx context.Context, log *slog.Logger, attempts int, delay time.Duration, connect func(ctx context.Context) error) error {
	if attempts < 1 {
		attempts = 1
	}
	if delay <= 0 {
		delay = time.Second
	}
	attempt := 0
	backoff := retry.WithMaxRetries(uint64(attempts-1), retry.NewExponential(delay))
	return retry.Do(ctx, backoff, func(ctx context.Context) error {
		attempt++
		err := connect(ctx)
		if err == nil {
			return nil
		}
		log.With(
			slog.Int("attempt", attempt),
			slog.Int("max", attempts),
		).Warn("connect attempt failed", sl.Err(err))
		return retry.RetryableError(err)
	})
}

func copyPass(p *entity.Pass) *entity.Pass {
	if p == nil {
		return nil
	}
	c := *p
	if p.Phone != nil {
		phone := *p.Phone
		c.Phone = &phone
	}
	if p.Note != nil {
		note := *p.Note
		c.Note = &note
	}
	if p.CheckedInAt != nil {
		at := *p.CheckedInAt
		c.CheckedInAt = &at
	}
	return &c
}
