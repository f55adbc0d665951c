package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/ignatzorin/order-intake/internal/repository/common"
	"github.com/ignatzorin/order-intake/internal/vocabulary"
)

// VocabularyRepository хранит переопределения словаря в таблице vocabulary_entries.
type VocabularyRepository struct {
	db *sqlx.DB
}

func NewVocabularyRepository(db *sqlx.DB) *VocabularyRepository {
	return &VocabularyRepository{db: db}
}

// Entries возвращает записи в порядке отображения.
func (r *VocabularyRepository) Entries(ctx context.Context) ([]vocabulary.Entry, error) {
	var entries []vocabulary.Entry
	err := r.db.SelectContext(ctx, &entries, `
		SELECT kind, label, token FROM vocabulary_entries ORDER BY kind, position, label
	`)
	if err != nil {
		return nil, fmt.Errorf("list vocabulary entries: %w", err)
	}
	return entries, nil
}

// Replace заменяет все записи одной транзакцией.
func (r *VocabularyRepository) Replace(ctx context.Context, entries []vocabulary.Entry) error {
	for _, e := range entries {
		if !e.Kind.IsValid() || e.Label == "" || e.Token == "" {
			return fmt.Errorf("%w: vocabulary entry %q/%q", common.ErrInvalidInput, e.Kind, e.Label)
		}
	}
	return common.WithTransaction(ctx, r.db, func(tx *sqlx.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM vocabulary_entries`); err != nil {
			return fmt.Errorf("clear vocabulary entries: %w", err)
		}
		bi := common.NewBatchInserter(tx, `INSERT INTO vocabulary_entries (kind, label, token, position)`, 4, 200)
		for i, e := range entries {
			if err := bi.Add(ctx, e.Kind, e.Label, e.Token, i); err != nil {
				return err
			}
		}
		return bi.Flush(ctx)
	})
}
