package redemption

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"qrpass/entity"
	"qrpass/lib/api/cont"
	"qrpass/lib/clock"
	"qrpass/lib/sl"
	"time"
)

const DefaultIdempotencyWindow = 15 * time.Second

var ErrEmptyToken = errors.New("empty token")

// Store is the subset of the pass store the redemption side needs.
type Store interface {
	GetPass(ctx context.Context, token string) (*entity.Pass, error)
	CheckIn(ctx context.Context, token string, now time.Time) (*entity.Pass, error)
	ResetPass(ctx context.Context, token string) (bool, error)
	CountByStatus(ctx context.Context, status entity.Status) (int64, error)
}

type PeekResult struct {
	Code        entity.Code
	Name        string
	CheckedInAt *time.Time
}

type CheckInResult struct {
	Outcome
	// Performed is true for exactly one attempt per transition.
	Performed bool
}

type Stats struct {
	Unused int64
	Used   int64
}

func (s Stats) Total() int64 {
	return s.Unused + s.Used
}

type Service struct {
	store  Store
	clock  clock.Clock
	window time.Duration
	log    *slog.Logger
}

func New(store Store, clk clock.Clock, window time.Duration, log *slog.Logger) *Service {
	if store == nil {
		panic("redemption store is nil")
	}
	if clk == nil {
		clk = clock.System()
	}
	if window < 0 {
		window = DefaultIdempotencyWindow
	}
	return &Service{
		store:  store,
		clock:  clk,
		window: window,
		log:    log.With(sl.Module("redemption")),
	}
}

func (s *Service) Window() time.Duration {
	return s.window
}

// Peek reports the pass state without consuming it.
func (s *Service) Peek(ctx context.Context, token string) (*PeekResult, error) {
	if token == "" {
		return nil, ErrEmptyToken
	}
	pass, err := s.store.GetPass(ctx, token)
	if err != nil {
		return nil, fmt.Errorf("peek: %w", err)
	}
	if pass == nil {
		return &PeekResult{Code: entity.CodeNotFound}, nil
	}
	result := &PeekResult{
		Code:        entity.CodeAlreadyUsed,
		Name:        pass.Name,
		CheckedInAt: pass.CheckedInAt,
	}
	if pass.IsUnused() {
		result.Code = entity.CodeReady
	}
	return result, nil
}

// CheckIn performs one atomic conditional update and, only when it did not match,
// one read to tell a missing pass from a used one.
func (s *Service) CheckIn(ctx context.Context, token string) (*CheckInResult, error) {
	if token == "" {
		return nil, ErrEmptyToken
	}
	log := s.log.With(sl.Token(token))

	now := s.clock.Now().UTC().Truncate(time.Millisecond)
	snapshot, err := s.store.CheckIn(ctx, token, now)
	if err != nil {
		return nil, fmt.Errorf("check-in: %w", err)
	}
	performed := snapshot != nil
	if !performed {
		snapshot, err = s.store.GetPass(ctx, token)
		if err != nil {
			return nil, fmt.Errorf("check-in lookup: %w", err)
		}
	}

	outcome := Evaluate(snapshot, performed, now, s.window)
	log = log.With(slog.String("outcome", outcome.Kind.String()))

	switch outcome.Kind {
	case KindSuccess:
		log.Info("checked in", slog.String("name", outcome.Name))
	case KindIdempotentSuccess:
		log.With(
			slog.Duration("since", now.Sub(*outcome.CheckedInAt)),
		).Info("repeated check-in inside window")
	case KindConflict:
		log.With(
			slog.Time("checked_in_at", *outcome.CheckedInAt),
		).Warn("pass already used")
	case KindNotFound:
		log.Debug("pass not found")
	case KindInconsistent:
		attrs := []any{slog.Bool("performed", performed)}
		if snapshot != nil {
			attrs = append(attrs,
				slog.String("status", string(snapshot.Status)),
				slog.Bool("has_checked_in_at", snapshot.CheckedInAt != nil),
			)
		}
		log.With(attrs...).Error("data integrity: unknown pass state")
	}

	return &CheckInResult{
		Outcome:   outcome,
		Performed: outcome.Kind == KindSuccess,
	}, nil
}

// Reset forces a pass back to unused. Operator path only; it bypasses the protocol.
func (s *Service) Reset(ctx context.Context, token string) (bool, error) {
	if token == "" {
		return false, ErrEmptyToken
	}
	log := s.log.With(sl.Token(token))
	if operator := cont.GetOperator(ctx); operator != nil {
		log = log.With(slog.String("operator", operator.Name))
	}

	found, err := s.store.ResetPass(ctx, token)
	if err != nil {
		return false, fmt.Errorf("reset: %w", err)
	}
	if found {
		log.Warn("pass reset to unused")
	} else {
		log.Debug("reset: pass not found")
	}
	return found, nil
}

func (s *Service) Stats(ctx context.Context) (*Stats, error) {
	unused, err := s.store.CountByStatus(ctx, entity.StatusUnused)
	if err != nil {
		return nil, fmt.Errorf("count unused: %w", err)
	}
	used, err := s.store.CountByStatus(ctx, entity.StatusUsed)
	if err != nil {
		return nil, fmt.Errorf("count used: %w", err)
	}
	return &Stats{Unused: unused, Used: used}, nil
}
