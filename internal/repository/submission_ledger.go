package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/ignatzorin/order-intake/internal/domain/valueobject"
	"github.com/ignatzorin/order-intake/internal/usecase/intake"
)

// SubmissionLedgerRepository хранит попытки отправки в таблице submission_attempts.
type SubmissionLedgerRepository struct {
	db *sqlx.DB
}

func NewSubmissionLedgerRepository(db *sqlx.DB) *SubmissionLedgerRepository {
	return &SubmissionLedgerRepository{db: db}
}

func (r *SubmissionLedgerRepository) Record(ctx context.Context, a intake.SubmissionAttempt) error {
	_, err := r.db.NamedExecContext(ctx, `
		INSERT INTO submission_attempts (idempotency_key, session_id, status, order_id, reason, message, created_at)
		VALUES (:idempotency_key, :session_id, :status, :order_id, :reason, :message, :created_at)
	`, a)
	if err != nil {
		return fmt.Errorf("record submission attempt: %w", err)
	}
	return nil
}

// FindSucceeded возвращает последнюю успешную попытку с ключом или nil.
func (r *SubmissionLedgerRepository) FindSucceeded(ctx context.Context, idempotencyKey string) (*intake.SubmissionAttempt, error) {
	var a intake.SubmissionAttempt
	err := r.db.GetContext(ctx, &a, `
		SELECT idempotency_key, session_id, status, order_id, reason, message, created_at
		FROM submission_attempts
		WHERE idempotency_key = $1 AND status = $2
		ORDER BY created_at DESC
		LIMIT 1
	`, idempotencyKey, valueobject.SubmissionSucceeded)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find submission attempt: %w", err)
	}
	return &a, nil
}

// ListBySession возвращает попытки сессии, новые первыми.
func (r *SubmissionLedgerRepository) ListBySession(ctx context.Context, sessionID string, limit int) ([]intake.SubmissionAttempt, error) {
	if limit <= 0 {
		limit = 20
	}
	var attempts []intake.SubmissionAttempt
	err := r.db.SelectContext(ctx, &attempts, `
		SELECT idempotency_key, session_id, status, order_id, reason, message, created_at
		FROM submission_attempts
		WHERE session_id = $1
		ORDER BY created_at DESC
		LIMIT $2
	`, sessionID, limit)
	if err != nil {
		return nil, fmt.Errorf("list submission attempts: %w", err)
	}
	return attempts, nil
}
