package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/sirupsen/logrus"

	"github.com/ignatzorin/order-intake/internal/config"
	"github.com/ignatzorin/order-intake/internal/db"
	"github.com/ignatzorin/order-intake/internal/goroutine"
	httpRouter "github.com/ignatzorin/order-intake/internal/http/router"
	"github.com/ignatzorin/order-intake/internal/interface/http/handler"
	"github.com/ignatzorin/order-intake/internal/logger"
	"github.com/ignatzorin/order-intake/internal/metrics"
	"github.com/ignatzorin/order-intake/internal/orderapi"
	"github.com/ignatzorin/order-intake/internal/repository"
	"github.com/ignatzorin/order-intake/internal/service"
	"github.com/ignatzorin/order-intake/internal/storage"
	"github.com/ignatzorin/order-intake/internal/usecase/intake"
	"github.com/ignatzorin/order-intake/internal/vocabulary"
	"github.com/ignatzorin/order-intake/internal/ws"
)

// ledgerStore - журнал отправок вместе с выборкой по сессии.
type ledgerStore interface {
	intake.SubmissionLedger
	handler.AttemptLister
}

// countingInvalidator сбрасывает кеш словаря и учитывает сброс в метриках.
type countingInvalidator struct {
	cache   *vocabulary.OptionCache
	metrics *metrics.Metrics
}

func (c countingInvalidator) Invalidate() {
	c.cache.Invalidate()
	c.metrics.IncVocabularyInvalidations()
}

func main() {
	// Готовим контекст для graceful shutdown.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		logrus.Fatalf("main: ошибка загрузки конфигурации: %v", err)
	}

	logger.Init(cfg.LogLevel)
	if !cfg.IsProduction() {
		logger.SetTextFormatter()
	}
	log := logger.WithComponent("main")

	m := metrics.New()

	// База необязательна: без неё журнал отправок хранится в памяти.
	var (
		dbConn *sqlx.DB
		ledger ledgerStore = repository.NewMemoryLedger()
		source vocabulary.Source
	)
	if cfg.DatabaseURL != "" {
		dbConn, err = db.NewPostgres(ctx, cfg.DatabaseURL)
		if err != nil {
			log.Fatalf("ошибка подключения к базе: %v", err)
		}
		defer safeClose(dbConn, log)

		applied, err := db.RunMigrations(ctx, dbConn, cfg.MigrationsPath)
		if err != nil {
			log.Fatalf("ошибка миграций: %v", err)
		}
		if len(applied) > 0 {
			log.WithField("migrations", applied).Info("миграции применены")
		}

		ledger = repository.NewSubmissionLedgerRepository(dbConn)
		source = repository.NewVocabularyRepository(dbConn)
	} else {
		log.Warn("DATABASE_URL не задан, журнал отправок хранится в памяти")
	}

	// Файл словаря имеет приоритет над таблицей в базе.
	if cfg.VocabularyFile != "" {
		source = vocabulary.NewFileSource(cfg.VocabularyFile)
	}
	cache := vocabulary.NewOptionCache(source, cfg.VocabularyCacheTTL, logger.WithComponent("vocabulary"))

	if cfg.VocabularyFile != "" {
		watcher, err := vocabulary.NewWatcher(cfg.VocabularyFile, countingInvalidator{cache: cache, metrics: m}, logger.WithComponent("vocabulary"))
		if err != nil {
			log.WithError(err).Warn("не удалось наблюдать за файлом словаря, изменения применятся по TTL")
		} else {
			defer watcher.Close()
			goroutine.SafeGoWithContext(ctx, watcher.Run)
		}
	}

	files, err := storage.NewFileStorage(cfg.MediaStoragePath, cfg.MaxAttachmentsBytes())
	if err != nil {
		log.Fatalf("ошибка инициализации хранилища вложений: %v", err)
	}

	hub := ws.NewHub()
	goroutine.SafeGoWithContext(ctx, hub.Run)

	orders := orderapi.NewClient(cfg.OrderAPIBaseURL, cfg.OrderAPIToken, files)
	coordinator := intake.NewCoordinator(orders, orders, cache,
		intake.WithSubmitTimeout(cfg.SubmitTimeout),
		intake.WithUploadTimeout(cfg.UploadTimeout),
		intake.WithUploadConcurrency(cfg.UploadConcurrency),
		intake.WithLedger(ledger),
		intake.WithNotifier(hub),
		intake.WithMetrics(m),
	)

	sessions := service.NewSessionStore(cfg.SessionTTL,
		service.WithSessionMetrics(m),
		service.WithExpireHook(func(ctx context.Context, id uuid.UUID) {
			if err := files.DeleteSession(ctx, id); err != nil {
				log.WithError(err).WithField("session_id", id).Warn("не удалось удалить вложения сессии")
			}
			hub.Forget(id)
		}),
	)
	goroutine.SafeGoWithContext(ctx, func(ctx context.Context) {
		sessions.Run(ctx, time.Minute)
	})

	tokens := service.NewTokenManager(cfg.JWTSecret, 0)
	limits := intake.Limits{MaxFiles: cfg.MaxAttachedFiles, MaxBytes: cfg.MaxAttachmentsBytes()}

	handlers := httpRouter.Handlers{
		Wizard: handler.NewWizardHandler(sessions, coordinator, cache, files, ledger, intake.WithLimits(limits)),
		WS:     handler.NewWSHandler(hub, sessions, cfg.AllowedOrigins),
		Health: handler.NewHealthHandler(dbConn, sessions),
		Admin:  handler.NewAdminHandler(cache, m),
	}
	engine := httpRouter.SetupRouter(cfg, handlers, tokens, m)

	server := &http.Server{
		Addr:              ":" + cfg.HTTPPort,
		Handler:           engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	// Завершаем сервер при получении сигнала.
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			log.WithError(err).Error("ошибка остановки http сервера")
		}
	}()

	log.WithFields(logrus.Fields{
		"port":      cfg.HTTPPort,
		"env":       cfg.Env,
		"order_api": cfg.OrderAPIBaseURL,
	}).Info("HTTP сервер запущен")

	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatalf("сервер завершился с ошибкой: %v", err)
	}
}

// safeClose закрывает соединение с базой.
func safeClose(conn *sqlx.DB, log logrus.FieldLogger) {
	if err := conn.Close(); err != nil {
		log.WithError(err).Error("ошибка закрытия базы")
	}
}
