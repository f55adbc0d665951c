package service

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/ignatzorin/order-intake/internal/logger"
	"github.com/ignatzorin/order-intake/internal/metrics"
	"github.com/ignatzorin/order-intake/internal/pkg/apperror"
	"github.com/ignatzorin/order-intake/internal/usecase/intake"
)

const DefaultSessionTTL = 2 * time.Hour

// Session - сессия мастера заказа одного пользователя.
type Session struct {
	ID        uuid.UUID
	OwnerID   uuid.UUID
	Wizard    *intake.Wizard
	CreatedAt time.Time
	ExpiresAt time.Time
}

// ExpireHook вызывается после удаления сессии.
type ExpireHook func(ctx context.Context, sessionID uuid.UUID)

type SessionOption func(*SessionStore)

func WithSessionClock(now func() time.Time) SessionOption {
	return func(s *SessionStore) { s.now = now }
}

func WithSessionMetrics(m *metrics.Metrics) SessionOption {
	return func(s *SessionStore) { s.metrics = m }
}

// WithExpireHook добавляет обработчик удаления сессии, например очистку вложений.
func WithExpireHook(hook ExpireHook) SessionOption {
	return func(s *SessionStore) { s.hooks = append(s.hooks, hook) }
}

// SessionStore хранит сессии в памяти с TTL, продлеваемым при каждом обращении.
type SessionStore struct {
	mu       sync.RWMutex
	sessions map[uuid.UUID]*Session
	ttl      time.Duration
	now      func() time.Time
	metrics  *metrics.Metrics
	hooks    []ExpireHook
	log      logrus.FieldLogger
}

// NewSessionStore создаёт хранилище сессий.
func NewSessionStore(ttl time.Duration, opts ...SessionOption) *SessionStore {
	if ttl <= 0 {
		ttl = DefaultSessionTTL
	}
	s := &SessionStore{
		sessions: make(map[uuid.UUID]*Session),
		ttl:      ttl,
		now:      time.Now,
		log:      logger.WithComponent("sessions"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Create открывает новую сессию с пустым черновиком.
func (s *SessionStore) Create(ownerID uuid.UUID, opts ...intake.WizardOption) Session {
	w := intake.NewWizard(opts...)
	now := s.now()
	sess := &Session{
		ID:        w.ID(),
		OwnerID:   ownerID,
		Wizard:    w,
		CreatedAt: now,
		ExpiresAt: now.Add(s.ttl),
	}

	s.mu.Lock()
	s.sessions[sess.ID] = sess
	n := len(s.sessions)
	s.mu.Unlock()

	s.metrics.SetActiveSessions(n)
	return *sess
}

// Get возвращает сессию владельца и продлевает её срок.
func (s *SessionStore) Get(id, ownerID uuid.UUID) (Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[id]
	now := s.now()
	if !ok || now.After(sess.ExpiresAt) {
		return Session{}, apperror.ErrSessionNotFound
	}
	if sess.OwnerID != ownerID {
		return Session{}, apperror.ErrForbidden
	}
	sess.ExpiresAt = now.Add(s.ttl)
	return *sess, nil
}

// Delete удаляет сессию владельца. Сессию с идущей отправкой или загрузкой файлов удалить нельзя.
func (s *SessionStore) Delete(ctx context.Context, id, ownerID uuid.UUID) error {
	sess, err := s.Get(id, ownerID)
	if err != nil {
		return err
	}
	if sess.Wizard.Busy() {
		return intake.ErrSubmissionInProgress
	}
	s.Remove(ctx, id)
	return nil
}

// Remove удаляет сессию без проверки владельца.
func (s *SessionStore) Remove(ctx context.Context, id uuid.UUID) {
	s.mu.Lock()
	_, ok := s.sessions[id]
	delete(s.sessions, id)
	n := len(s.sessions)
	s.mu.Unlock()

	if !ok {
		return
	}
	s.metrics.SetActiveSessions(n)
	s.runHooks(ctx, id)
}

// Len возвращает число активных сессий.
func (s *SessionStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

// Cleanup удаляет истёкшие сессии и возвращает их число.
// Сессии с идущей отправкой или загрузкой файлов не удаляются.
func (s *SessionStore) Cleanup(ctx context.Context) int {
	now := s.now()
	var expired []uuid.UUID

	s.mu.Lock()
	for id, sess := range s.sessions {
		if !now.After(sess.ExpiresAt) {
			continue
		}
		if sess.Wizard.Busy() {
			continue
		}
		delete(s.sessions, id)
		expired = append(expired, id)
	}
	n := len(s.sessions)
	s.mu.Unlock()

	if len(expired) == 0 {
		return 0
	}
	s.metrics.SetActiveSessions(n)
	for _, id := range expired {
		s.runHooks(ctx, id)
	}
	s.log.WithField("expired", len(expired)).Info("удалены истёкшие сессии")
	return len(expired)
}

// Run периодически удаляет истёкшие сессии до отмены контекста.
func (s *SessionStore) Run(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = 5 * time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.Cleanup(ctx)
		}
	}
}

func (s *SessionStore) runHooks(ctx context.Context, id uuid.UUID) {
	for _, hook := range s.hooks {
		hook(ctx, id)
	}
}
