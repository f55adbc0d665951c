package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/ignatzorin/order-intake/internal/config"
	"github.com/ignatzorin/order-intake/internal/db"
	"github.com/ignatzorin/order-intake/internal/domain/entity"
	"github.com/ignatzorin/order-intake/internal/domain/valueobject"
	"github.com/ignatzorin/order-intake/internal/logger"
	"github.com/ignatzorin/order-intake/internal/pricing"
	"github.com/ignatzorin/order-intake/internal/repository"
	"github.com/ignatzorin/order-intake/internal/service"
	"github.com/ignatzorin/order-intake/internal/vocabulary"
)

func rootCmd() *cobra.Command {
	var logLevel string

	cmd := &cobra.Command{
		Use:           "intakectl",
		Short:         "Order intake wizard tooling",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			logger.Init(logLevel)
			logger.SetTextFormatter()
		},
	}
	cmd.PersistentFlags().StringVar(&logLevel, "log-level", "warn", "Log level (debug, info, warn, error)")

	cmd.AddCommand(estimateCmd(), mapCmd(), migrateCmd(), vocabularyCmd(), tokenCmd())
	return cmd
}

func estimateCmd() *cobra.Command {
	var (
		pages   int
		urgency string
		level   string
	)

	cmd := &cobra.Command{
		Use:   "estimate",
		Short: "Print the suggested budget and fees",
		RunE: func(cmd *cobra.Command, args []string) error {
			if pages < 0 {
				return fmt.Errorf("pages must not be negative")
			}
			u, err := valueobject.NewUrgencyTier(urgency)
			if err != nil {
				return err
			}
			budget := pricing.Estimate(pages, u, valueobject.ParseAcademicLevel(level))
			fees, err := pricing.CalculateFees(budget)
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), fees)
		},
	}
	cmd.Flags().IntVar(&pages, "pages", 1, "Number of pages")
	cmd.Flags().StringVar(&urgency, "urgency", string(valueobject.UrgencyStandard), "Urgency tier (standard, urgent, very_urgent)")
	cmd.Flags().StringVar(&level, "level", "", "Academic level label, e.g. Masters")
	return cmd
}

func mapCmd() *cobra.Command {
	var (
		draftPath      string
		vocabularyPath string
	)

	cmd := &cobra.Command{
		Use:   "map",
		Short: "Translate a draft JSON document into the order service request",
		RunE: func(cmd *cobra.Command, args []string) error {
			raw, err := readInput(cmd.InOrStdin(), draftPath)
			if err != nil {
				return err
			}
			draft := entity.NewOrderDraft()
			if err := json.Unmarshal(raw, &draft); err != nil {
				return fmt.Errorf("decode draft: %w", err)
			}

			table := vocabulary.Builtin()
			if vocabularyPath != "" {
				entries, err := vocabulary.NewFileSource(vocabularyPath).Entries(cmd.Context())
				if err != nil {
					return err
				}
				table = vocabulary.NewTable(entries)
			}
			return writeJSON(cmd.OutOrStdout(), vocabulary.Map(draft, table))
		},
	}
	cmd.Flags().StringVarP(&draftPath, "draft", "d", "-", "Draft JSON file, - for stdin")
	cmd.Flags().StringVar(&vocabularyPath, "vocabulary", "", "YAML file with vocabulary overrides")
	return cmd
}

func migrateCmd() *cobra.Command {
	var (
		databaseURL string
		dir         string
	)

	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply SQL migrations to the ledger database",
		RunE: func(cmd *cobra.Command, args []string) error {
			if databaseURL == "" {
				return fmt.Errorf("database url is required (--database-url or DATABASE_URL)")
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), time.Minute)
			defer cancel()

			conn, err := db.NewPostgres(ctx, databaseURL)
			if err != nil {
				return err
			}
			defer conn.Close()

			applied, err := db.RunMigrations(ctx, conn, dir)
			if err != nil {
				return err
			}
			if len(applied) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "no pending migrations")
				return nil
			}
			fmt.Fprintln(cmd.OutOrStdout(), "applied: "+strings.Join(applied, ", "))
			return nil
		},
	}
	cmd.Flags().StringVar(&databaseURL, "database-url", os.Getenv("DATABASE_URL"), "PostgreSQL DSN")
	cmd.Flags().StringVar(&dir, "dir", "./migrations", "Migrations directory")
	return cmd
}

// vocabularyStore - хранилище, в которое импортируется словарь.
type vocabularyStore interface {
	Replace(ctx context.Context, entries []vocabulary.Entry) error
}

func vocabularyCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "vocabulary",
		Short: "Manage vocabulary overrides stored in the database",
	}

	var (
		databaseURL string
		file        string
	)
	importCmd := &cobra.Command{
		Use:   "import",
		Short: "Replace the vocabulary_entries table with the contents of a YAML file",
		RunE: func(cmd *cobra.Command, args []string) error {
			if databaseURL == "" {
				return fmt.Errorf("database url is required (--database-url or DATABASE_URL)")
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), time.Minute)
			defer cancel()

			conn, err := db.NewPostgres(ctx, databaseURL)
			if err != nil {
				return err
			}
			defer conn.Close()

			n, err := importVocabulary(ctx, repository.NewVocabularyRepository(conn), file)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "imported %d entries\n", n)
			return nil
		},
	}
	importCmd.Flags().StringVar(&databaseURL, "database-url", os.Getenv("DATABASE_URL"), "PostgreSQL DSN")
	importCmd.Flags().StringVarP(&file, "file", "f", "", "YAML file with vocabulary overrides")
	_ = importCmd.MarkFlagRequired("file")

	cmd.AddCommand(importCmd)
	return cmd
}

// importVocabulary читает YAML-файл и заменяет им записи хранилища.
// Серверы подхватят изменения после истечения TTL кеша или после сброса через admin API.
func importVocabulary(ctx context.Context, store vocabularyStore, path string) (int, error) {
	entries, err := vocabulary.NewFileSource(path).Entries(ctx)
	if err != nil {
		return 0, err
	}
	if err := store.Replace(ctx, entries); err != nil {
		return 0, err
	}
	return len(entries), nil
}

func tokenCmd() *cobra.Command {
	var (
		userID string
		role   string
		ttl    time.Duration
	)

	cmd := &cobra.Command{
		Use:   "token",
		Short: "Issue an access token signed with JWT_SECRET (development only)",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			if cfg.IsProduction() {
				return fmt.Errorf("token issuing is disabled in production")
			}
			id := uuid.New()
			if userID != "" {
				if id, err = uuid.Parse(userID); err != nil {
					return fmt.Errorf("invalid user id: %w", err)
				}
			}
			token, exp, err := service.NewTokenManager(cfg.JWTSecret, ttl).GenerateAccess(id, role)
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), map[string]string{
				"user_id":      id.String(),
				"access_token": token,
				"expires_at":   exp.UTC().Format(time.RFC3339),
			})
		},
	}
	cmd.Flags().StringVar(&userID, "user", "", "User UUID (random if empty)")
	cmd.Flags().StringVar(&role, "role", "client", "Role claim")
	cmd.Flags().DurationVar(&ttl, "ttl", time.Hour, "Token lifetime")
	return cmd
}

func readInput(stdin io.Reader, path string) ([]byte, error) {
	if path == "" || path == "-" {
		return io.ReadAll(stdin)
	}
	return os.ReadFile(path)
}

func writeJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
