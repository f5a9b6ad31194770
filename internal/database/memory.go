package database

import (
	"context"
	"fmt"
	"qrpass/entity"
	"sync"
	"time"
)

// Memory is a process-local store for tests and demos. Its mutex plays the role
// of the per-record atomicity a shared database provides.
type Memory struct {
	mu     sync.Mutex
	passes map[string]*entity.Pass
}

func NewMemory() *Memory {
	return &Memory{
		passes: make(map[string]*entity.Pass),
	}
}

func (m *Memory) CreatePass(_ context.Context, pass *entity.Pass) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.passes[pass.Token]; ok {
		return fmt.Errorf("%w: %s", ErrDuplicate, pass.Token)
	}
	m.passes[pass.Token] = copyPass(pass)
	return nil
}

func (m *Memory) GetPass(_ context.Context, token string) (*entity.Pass, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return copyPass(m.passes[token]), nil
}

func (m *Memory) CheckIn(_ context.Context, token string, now time.Time) (*entity.Pass, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	pass, ok := m.passes[token]
	if !ok || pass.Status != entity.StatusUnused {
		return nil, nil
	}
	at := now
	pass.Status = entity.StatusUsed
	pass.CheckedInAt = &at
	return copyPass(pass), nil
}

func (m *Memory) ResetPass(_ context.Context, token string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	pass, ok := m.passes[token]
	if !ok {
		return false, nil
	}
	pass.Status = entity.StatusUnused
	pass.CheckedInAt = nil
	return true, nil
}

func (m *Memory) CountByStatus(_ context.Context, status entity.Status) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var count int64
	for _, pass := range m.passes {
		if pass.Status == status {
			count++
		}
	}
	return count, nil
}

// Put stores a snapshot as is, bypassing the protocol. Tests use it to seed
// records in states the protocol never produces.
func (m *Memory) Put(pass *entity.Pass) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.passes[pass.Token] = copyPass(pass)
}

func (m *Memory) Ping(_ context.Context) error {
	return nil
}

func (m *Memory) Close(_ context.Context) error {
	return nil
}
