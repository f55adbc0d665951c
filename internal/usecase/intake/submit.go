package intake

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/ignatzorin/order-intake/internal/domain/entity"
	"github.com/ignatzorin/order-intake/internal/domain/valueobject"
	"github.com/ignatzorin/order-intake/internal/logger"
	"github.com/ignatzorin/order-intake/internal/metrics"
	"github.com/ignatzorin/order-intake/internal/pkg/apperror"
	"github.com/ignatzorin/order-intake/internal/vocabulary"
)

const (
	DefaultSubmitTimeout     = 30 * time.Second
	DefaultUploadTimeout     = 2 * time.Minute
	DefaultUploadConcurrency = 3
)

// OrderCreator создаёт заказ во внешнем сервисе и возвращает его идентификатор.
type OrderCreator interface {
	CreateOrder(ctx context.Context, req vocabulary.OrderRequest, idempotencyKey string) (string, error)
}

// FileUploader загружает один файл к созданному заказу.
type FileUploader interface {
	UploadFile(ctx context.Context, orderID string, file entity.AttachedFile) error
}

// TableProvider отдаёт актуальную таблицу словаря.
type TableProvider interface {
	Table(ctx context.Context) *vocabulary.Table
}

// SubmissionAttempt - запись об одной попытке отправки.
type SubmissionAttempt struct {
	IdempotencyKey string                      `db:"idempotency_key"`
	SessionID      uuid.UUID                   `db:"session_id"`
	Status         valueobject.SubmissionState `db:"status"`
	OrderID        string                      `db:"order_id"`
	Reason         valueobject.FailureReason   `db:"reason"`
	Message        string                      `db:"message"`
	CreatedAt      time.Time                   `db:"created_at"`
}

// SubmissionLedger хранит попытки отправки. FindSucceeded возвращает nil, nil, если
// успешной попытки с таким ключом нет.
type SubmissionLedger interface {
	Record(ctx context.Context, attempt SubmissionAttempt) error
	FindSucceeded(ctx context.Context, idempotencyKey string) (*SubmissionAttempt, error)
}

// Типы событий, которые получает Notifier.
const (
	EventSubmissionStarted   = "submission.started"
	EventSubmissionSucceeded = "submission.succeeded"
	EventSubmissionFailed    = "submission.failed"
	EventUploadFile          = "upload.file"
)

// Event - событие отправки для подписчиков сессии.
type Event struct {
	Type    string      `json:"type"`
	Payload interface{} `json:"payload,omitempty"`
}

// Notifier доставляет события сессии. Доставка best-effort.
type Notifier interface {
	Notify(sessionID uuid.UUID, event Event)
}

type UploadStatus string

const (
	UploadPending  UploadStatus = "pending"
	UploadUploaded UploadStatus = "uploaded"
	UploadFailed   UploadStatus = "failed"
)

// FileResult - итог загрузки одного файла.
type FileResult struct {
	Name   string       `json:"name"`
	Status UploadStatus `json:"status"`
	Reason string       `json:"reason,omitempty"`
}

// Outcome - результат успешного создания заказа. Ошибки загрузки файлов
// отражаются здесь по каждому файлу и не отменяют заказ.
type Outcome struct {
	OrderID string       `json:"order_id"`
	Reused  bool         `json:"reused"`
	Uploads []FileResult `json:"uploads"`
}

func (o *Outcome) UploadedCount() int { return o.count(UploadUploaded) }

func (o *Outcome) FailedCount() int { return o.count(UploadFailed) }

// Complete сообщает, что все вложения загружены.
func (o *Outcome) Complete() bool { return o.UploadedCount() == len(o.Uploads) }

func (o *Outcome) count(status UploadStatus) int {
	n := 0
	for _, r := range o.Uploads {
		if r.Status == status {
			n++
		}
	}
	return n
}

type failurePayload struct {
	Reason  valueobject.FailureReason `json:"reason"`
	Message string                    `json:"message"`
	Fields  FieldErrors               `json:"fields,omitempty"`
}

type CoordinatorOption func(*Coordinator)

func WithSubmitTimeout(d time.Duration) CoordinatorOption {
	return func(c *Coordinator) {
		if d > 0 {
			c.submitTimeout = d
		}
	}
}

func WithUploadTimeout(d time.Duration) CoordinatorOption {
	return func(c *Coordinator) {
		if d > 0 {
			c.uploadTimeout = d
		}
	}
}

func WithUploadConcurrency(n int) CoordinatorOption {
	return func(c *Coordinator) {
		if n > 0 {
			c.concurrency = n
		}
	}
}

func WithLedger(l SubmissionLedger) CoordinatorOption {
	return func(c *Coordinator) { c.ledger = l }
}

func WithNotifier(n Notifier) CoordinatorOption {
	return func(c *Coordinator) { c.notifier = n }
}

func WithMetrics(m *metrics.Metrics) CoordinatorOption {
	return func(c *Coordinator) { c.metrics = m }
}

func WithLogger(l logrus.FieldLogger) CoordinatorOption {
	return func(c *Coordinator) { c.log = l }
}

// Coordinator выполняет финальный переход мастера: проверка, перевод словаря,
// создание заказа и последующая загрузка файлов.
type Coordinator struct {
	orders        OrderCreator
	uploader      FileUploader
	tables        TableProvider
	ledger        SubmissionLedger
	notifier      Notifier
	metrics       *metrics.Metrics
	log           logrus.FieldLogger
	submitTimeout time.Duration
	uploadTimeout time.Duration
	concurrency   int
	now           func() time.Time
}

func NewCoordinator(orders OrderCreator, uploader FileUploader, tables TableProvider, opts ...CoordinatorOption) *Coordinator {
	c := &Coordinator{
		orders:        orders,
		uploader:      uploader,
		tables:        tables,
		submitTimeout: DefaultSubmitTimeout,
		uploadTimeout: DefaultUploadTimeout,
		concurrency:   DefaultUploadConcurrency,
		now:           time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.log == nil {
		c.log = logger.WithComponent("intake")
	}
	return c
}

// Submit отправляет черновик. Заказ создаётся не более одного раза на действие
// пользователя; повтор без изменений черновика использует тот же ключ идемпотентности.
func (c *Coordinator) Submit(ctx context.Context, w *Wizard) (*Outcome, error) {
	started := c.now()
	draft, key, err := w.beginSubmit()
	if err != nil {
		var validationErr *ValidationError
		if errors.As(err, &validationErr) {
			c.metrics.ObserveValidationFailure(valueobject.StepReview.String())
		}
		return nil, err
	}

	log := c.log.WithFields(logrus.Fields{
		"session_id":      w.ID().String(),
		"idempotency_key": key,
	})
	log.Info("intake: отправка заказа")
	c.notify(w.ID(), Event{Type: EventSubmissionStarted})

	orderID, reused := c.previousOrder(ctx, key, log)
	if !reused {
		req := vocabulary.Map(draft, c.table(ctx))
		callCtx, cancel := context.WithTimeout(ctx, c.submitTimeout)
		orderID, err = c.orders.CreateOrder(callCtx, req, key)
		cancel()
		if err != nil {
			return nil, c.fail(ctx, w, key, started, err, log)
		}
	}

	w.finishSuccess(orderID)
	c.record(ctx, SubmissionAttempt{
		IdempotencyKey: key,
		SessionID:      w.ID(),
		Status:         valueobject.SubmissionSucceeded,
		OrderID:        orderID,
		CreatedAt:      c.now(),
	}, log)
	c.metrics.ObserveSubmit("succeeded", c.now().Sub(started))
	c.notify(w.ID(), Event{Type: EventSubmissionSucceeded, Payload: map[string]string{"order_id": orderID}})
	log.WithFields(logrus.Fields{
		"order_id":    orderID,
		"reused":      reused,
		"duration_ms": c.now().Sub(started).Milliseconds(),
	}).Info("intake: заказ создан")

	uploads := w.mergeUploads(c.uploadAll(ctx, w.ID(), orderID, draft.AttachedFiles))
	return &Outcome{OrderID: orderID, Reused: reused, Uploads: uploads}, nil
}

// RetryUploads повторяет загрузку названных файлов или всех незагруженных.
// Состояние заказа не меняется.
func (c *Coordinator) RetryUploads(ctx context.Context, w *Wizard, names ...string) (*Outcome, error) {
	orderID, files, err := w.uploadTargets(names)
	if err != nil {
		return nil, err
	}
	uploads := w.mergeUploads(c.uploadAll(ctx, w.ID(), orderID, files))
	return &Outcome{OrderID: orderID, Uploads: uploads}, nil
}

func (c *Coordinator) previousOrder(ctx context.Context, key string, log logrus.FieldLogger) (string, bool) {
	if c.ledger == nil {
		return "", false
	}
	prev, err := c.ledger.FindSucceeded(ctx, key)
	if err != nil {
		log.WithError(err).Warn("intake: журнал отправок недоступен")
		return "", false
	}
	if prev == nil || prev.OrderID == "" {
		return "", false
	}
	return prev.OrderID, true
}

func (c *Coordinator) fail(ctx context.Context, w *Wizard, key string, started time.Time, err error, log logrus.FieldLogger) *apperror.AppError {
	reason, appErr := classify(ctx, err)
	fields := draftFields(appErr.Fields)
	appErr = appErr.WithFields(fields)

	w.finishFailure(reason, appErr.Message, fields)
	c.record(ctx, SubmissionAttempt{
		IdempotencyKey: key,
		SessionID:      w.ID(),
		Status:         valueobject.SubmissionFailed,
		Reason:         reason,
		Message:        appErr.Message,
		CreatedAt:      c.now(),
	}, log)
	c.metrics.ObserveSubmit(string(reason), c.now().Sub(started))
	c.notify(w.ID(), Event{Type: EventSubmissionFailed, Payload: failurePayload{
		Reason:  reason,
		Message: appErr.Message,
		Fields:  fields,
	}})

	entry := log.WithError(err).WithFields(logrus.Fields{
		"reason":      reason,
		"duration_ms": c.now().Sub(started).Milliseconds(),
	})
	if reason == valueobject.FailureRejected {
		entry.Info("intake: заказ отклонён")
	} else {
		entry.Warn("intake: не удалось создать заказ")
	}
	return appErr
}

// classify определяет причину отказа. Отмена родительского контекста - cancelled,
// истечение таймаута - timeout; остальное решает код ошибки клиента.
func classify(ctx context.Context, err error) (valueobject.FailureReason, *apperror.AppError) {
	if errors.Is(ctx.Err(), context.Canceled) {
		return valueobject.FailureCancelled, apperror.Wrap(err, apperror.ErrCodeSubmissionCancelled, "submission was cancelled")
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return valueobject.FailureTimeout, apperror.Wrap(err, apperror.ErrCodeSubmissionTransient, "order service did not respond in time")
	}

	var appErr *apperror.AppError
	if !errors.As(err, &appErr) {
		return valueobject.FailureTransient, apperror.Wrap(err, apperror.ErrCodeSubmissionTransient, "order service is unavailable")
	}
	switch appErr.Code {
	case apperror.ErrCodeSubmissionRejected, apperror.ErrCodeValidation:
		return valueobject.FailureRejected, appErr
	case apperror.ErrCodeSubmissionFatal, apperror.ErrCodeUnauthorized, apperror.ErrCodeForbidden:
		return valueobject.FailureFatal, appErr
	case apperror.ErrCodeSubmissionCancelled:
		return valueobject.FailureCancelled, appErr
	default:
		return valueobject.FailureTransient, appErr
	}
}

// draftFields переводит имена полей сервиса заказов в ключи черновика.
// Неизвестные поля сохраняются как есть.
func draftFields(wire map[string]string) FieldErrors {
	if len(wire) == 0 {
		return nil
	}
	out := make(FieldErrors, len(wire))
	for name, msg := range wire {
		if key, ok := vocabulary.WireFieldToDraftField(name); ok {
			if prev, dup := out[key]; dup && prev != msg {
				msg = prev + "; " + msg
			}
			out[key] = msg
			continue
		}
		out[name] = msg
	}
	return out
}

func (c *Coordinator) uploadAll(ctx context.Context, sessionID uuid.UUID, orderID string, files []entity.AttachedFile) []FileResult {
	results := make([]FileResult, len(files))
	if len(files) == 0 {
		return results
	}

	uploadCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.uploadTimeout)
	defer cancel()

	var g errgroup.Group
	g.SetLimit(c.concurrency)
	for i, f := range files {
		g.Go(func() error {
			result := FileResult{Name: f.Name, Status: UploadUploaded}
			if c.uploader == nil {
				result = FileResult{Name: f.Name, Status: UploadFailed, Reason: "file uploads are not configured"}
			} else if err := c.uploader.UploadFile(uploadCtx, orderID, f); err != nil {
				result = FileResult{Name: f.Name, Status: UploadFailed, Reason: uploadReason(err)}
				c.log.WithError(err).WithFields(logrus.Fields{
					"order_id": orderID,
					"file":     f.Name,
				}).Warn("intake: не удалось загрузить файл")
			}
			results[i] = result
			c.metrics.ObserveUpload(string(result.Status))
			c.notify(sessionID, Event{Type: EventUploadFile, Payload: result})
			return nil
		})
	}
	_ = g.Wait()
	return results
}

func uploadReason(err error) string {
	var appErr *apperror.AppError
	if errors.As(err, &appErr) {
		return appErr.Message
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return "upload timed out"
	}
	return err.Error()
}

func (c *Coordinator) table(ctx context.Context) *vocabulary.Table {
	if c.tables == nil {
		return vocabulary.Builtin()
	}
	if t := c.tables.Table(ctx); t != nil {
		return t
	}
	return vocabulary.Builtin()
}

func (c *Coordinator) record(ctx context.Context, attempt SubmissionAttempt, log logrus.FieldLogger) {
	if c.ledger == nil {
		return
	}
	if err := c.ledger.Record(context.WithoutCancel(ctx), attempt); err != nil {
		log.WithError(err).Warn("intake: не удалось записать попытку отправки")
	}
}

func (c *Coordinator) notify(sessionID uuid.UUID, event Event) {
	if c.notifier != nil {
		c.notifier.Notify(sessionID, event)
	}
}
