package repository

import (
	"context"
	"sort"
	"sync"

	"github.com/ignatzorin/order-intake/internal/domain/valueobject"
	"github.com/ignatzorin/order-intake/internal/usecase/intake"
)

// MemoryLedger - журнал отправок в памяти процесса, когда база не настроена.
type MemoryLedger struct {
	mu       sync.RWMutex
	attempts []intake.SubmissionAttempt
}

func NewMemoryLedger() *MemoryLedger {
	return &MemoryLedger{}
}

func (l *MemoryLedger) Record(ctx context.Context, a intake.SubmissionAttempt) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.attempts = append(l.attempts, a)
	return nil
}

func (l *MemoryLedger) FindSucceeded(ctx context.Context, idempotencyKey string) (*intake.SubmissionAttempt, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	l.mu.RLock()
	defer l.mu.RUnlock()
	for i := len(l.attempts) - 1; i >= 0; i-- {
		a := l.attempts[i]
		if a.IdempotencyKey == idempotencyKey && a.Status == valueobject.SubmissionSucceeded {
			return &a, nil
		}
	}
	return nil, nil
}

func (l *MemoryLedger) ListBySession(ctx context.Context, sessionID string, limit int) ([]intake.SubmissionAttempt, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = 20
	}
	l.mu.RLock()
	var out []intake.SubmissionAttempt
	for _, a := range l.attempts {
		if a.SessionID.String() == sessionID {
			out = append(out, a)
		}
	}
	l.mu.RUnlock()

	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}
