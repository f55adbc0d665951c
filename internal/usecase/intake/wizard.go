package intake

import (
	"encoding/binary"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/govalues/decimal"

	"github.com/ignatzorin/order-intake/internal/domain/entity"
	"github.com/ignatzorin/order-intake/internal/domain/valueobject"
	"github.com/ignatzorin/order-intake/internal/pkg/apperror"
	"github.com/ignatzorin/order-intake/internal/pricing"
)

// Estimator считает оценку бюджета по входам черновика.
type Estimator func(pages int, urgency valueobject.UrgencyTier, level valueobject.AcademicLevel) decimal.Decimal

// Limits - ограничения на вложения черновика.
type Limits struct {
	MaxFiles int
	MaxBytes int64
}

// DefaultLimits: 10 файлов, 50 МБ суммарно.
var DefaultLimits = Limits{MaxFiles: 10, MaxBytes: 50 << 20}

var ErrDuplicateFile = apperror.New(apperror.ErrCodeConflict, "a file with this name is already attached")

type WizardOption func(*Wizard)

func WithClock(now func() time.Time) WizardOption {
	return func(w *Wizard) { w.now = now }
}

func WithLimits(l Limits) WizardOption {
	return func(w *Wizard) { w.limits = l }
}

func WithEstimator(e Estimator) WizardOption {
	return func(w *Wizard) { w.estimate = e }
}

// Wizard - единственный владелец состояния мастера. Все переходы сериализуются мьютексом.
type Wizard struct {
	mu sync.Mutex

	id       uuid.UUID
	draft    entity.OrderDraft
	step     valueobject.Step
	errs     FieldErrors
	state    valueobject.SubmissionState
	reason   valueobject.FailureReason
	failure  string
	orderID  string
	uploads  []FileResult
	revision uint64
	// uploading выставлен, пока идёт загрузка файлов созданного заказа.
	uploading bool

	limits   Limits
	now      func() time.Time
	estimate Estimator
}

// State - снимок состояния мастера для чтения.
type State struct {
	ID              uuid.UUID
	Draft           entity.OrderDraft
	Step            valueobject.Step
	FieldErrors     FieldErrors
	Submission      valueobject.SubmissionState
	FailureReason   valueobject.FailureReason
	FailureMessage  string
	OrderID         string
	Uploads         []FileResult
	Uploading       bool
	Revision        uint64
	SuggestedBudget decimal.Decimal
	Fees            pricing.Fees
	Limits          Limits
}

// NewWizard создаёт мастер с пустым черновиком на шаге Details.
func NewWizard(opts ...WizardOption) *Wizard {
	w := &Wizard{
		id:       uuid.New(),
		limits:   DefaultLimits,
		now:      time.Now,
		estimate: pricing.Estimate,
	}
	for _, opt := range opts {
		opt(w)
	}
	w.resetLocked()
	return w
}

func (w *Wizard) ID() uuid.UUID { return w.id }

func (w *Wizard) resetLocked() {
	w.draft = entity.NewOrderDraft()
	w.draft.BudgetAmount = w.suggestedLocked()
	w.step = valueobject.FirstStep
	w.errs = FieldErrors{}
	w.state = valueobject.SubmissionIdle
	w.reason = ""
	w.failure = ""
	w.orderID = ""
	w.uploads = nil
	w.uploading = false
	w.revision++
}

func (w *Wizard) suggestedLocked() decimal.Decimal {
	return w.estimate(w.draft.PageCount, w.draft.Urgency, w.draft.AcademicLevel)
}

// guardLocked запрещает изменения во время отправки и после успешного создания заказа.
func (w *Wizard) guardLocked() error {
	switch w.state {
	case valueobject.SubmissionSubmitting:
		return ErrSubmissionInProgress
	case valueobject.SubmissionSucceeded:
		return ErrAlreadySubmitted
	}
	return nil
}

// Patch сливает поля патча в черновик и снимает ошибки с изменённых полей.
// Изменение страниц, срочности или уровня пересчитывает бюджет, если он не задан вручную.
// Патч вложений, превышающий лимиты, отклоняется целиком.
func (w *Wizard) Patch(p entity.DraftPatch) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if err := w.guardLocked(); err != nil {
		return err
	}
	if p.AttachedFiles != nil {
		if entity.HasDuplicateNames(*p.AttachedFiles) {
			return ErrDuplicateFile
		}
		if err := w.capacityLocked(*p.AttachedFiles); err != nil {
			return err
		}
	}
	w.applyLocked(p)
	return nil
}

func (w *Wizard) applyLocked(p entity.DraftPatch) {
	next := p.ApplyTo(w.draft)
	for _, key := range p.Keys() {
		delete(w.errs, key)
	}

	handBack := p.BudgetIsManual != nil && !*p.BudgetIsManual
	if !next.BudgetIsManual && (p.TouchesPricing() || handBack) {
		estimate := w.estimate(next.PageCount, next.Urgency, next.AcademicLevel)
		if !estimate.Equal(next.BudgetAmount) {
			next.BudgetAmount = estimate
			delete(w.errs, entity.FieldBudgetAmount)
		}
	}

	w.draft = next
	w.revision++
	if w.state == valueobject.SubmissionFailed && w.state.CanTransitionTo(valueobject.SubmissionIdle) {
		w.state = valueobject.SubmissionIdle
		w.reason = ""
		w.failure = ""
	}
}

func (w *Wizard) capacityLocked(files []entity.AttachedFile) error {
	count := len(files)
	total := entity.TotalBytes(files)
	if count > w.limits.MaxFiles || total > w.limits.MaxBytes {
		return &CapacityError{
			MaxFiles:       w.limits.MaxFiles,
			MaxBytes:       w.limits.MaxBytes,
			AttemptedFiles: count,
			AttemptedBytes: total,
		}
	}
	return nil
}

// CheckCapacity проверяет, поместятся ли файлы рядом с уже прикреплёнными. Черновик не меняется.
func (w *Wizard) CheckCapacity(files ...entity.AttachedFile) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if err := w.guardLocked(); err != nil {
		return err
	}
	return w.capacityLocked(append(w.draft.Clone().AttachedFiles, files...))
}

// AttachFiles добавляет файлы в конец списка вложений.
func (w *Wizard) AttachFiles(files ...entity.AttachedFile) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if err := w.guardLocked(); err != nil {
		return err
	}
	next := append(w.draft.Clone().AttachedFiles, files...)
	if entity.HasDuplicateNames(next) {
		return ErrDuplicateFile
	}
	if err := w.capacityLocked(next); err != nil {
		return err
	}
	w.applyLocked(entity.DraftPatch{AttachedFiles: &next})
	return nil
}

// RemoveFile убирает вложение по имени и возвращает его, чтобы вызывающий мог удалить содержимое.
func (w *Wizard) RemoveFile(name string) (entity.AttachedFile, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if err := w.guardLocked(); err != nil {
		return entity.AttachedFile{}, err
	}
	rest := make([]entity.AttachedFile, 0, len(w.draft.AttachedFiles))
	var removed *entity.AttachedFile
	for i, f := range w.draft.AttachedFiles {
		if removed == nil && f.Name == name {
			removed = &w.draft.AttachedFiles[i]
			continue
		}
		rest = append(rest, f)
	}
	if removed == nil {
		return entity.AttachedFile{}, ErrFileNotFound
	}
	out := *removed
	w.applyLocked(entity.DraftPatch{AttachedFiles: &rest})
	return out, nil
}

// Advance проверяет текущий шаг. При ошибках сохраняет их и оставляет шаг прежним,
// иначе переходит к следующему шагу (на последнем шаге ничего не происходит).
func (w *Wizard) Advance() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if err := w.guardLocked(); err != nil {
		return err
	}
	errs := Validate(w.draft, w.step, w.now())
	if len(errs) > 0 {
		for k, v := range errs {
			w.errs[k] = v
		}
		return &ValidationError{Fields: errs}
	}
	if w.step < valueobject.LastStep {
		w.step++
	}
	return nil
}

// Retreat возвращает на предыдущий шаг, не ниже первого. Ошибки полей сохраняются.
func (w *Wizard) Retreat() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if err := w.guardLocked(); err != nil {
		return err
	}
	if w.step > valueobject.FirstStep {
		w.step--
	}
	return nil
}

// Reset возвращает мастер в начальное состояние. Во время отправки запрещён.
func (w *Wizard) Reset() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.busyLocked() {
		return ErrSubmissionInProgress
	}
	w.resetLocked()
	return nil
}

// Busy сообщает, идёт ли создание заказа или загрузка его файлов.
func (w *Wizard) Busy() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.busyLocked()
}

func (w *Wizard) busyLocked() bool {
	return w.state == valueobject.SubmissionSubmitting || w.uploading
}

// Snapshot возвращает копию состояния.
func (w *Wizard) Snapshot() State {
	w.mu.Lock()
	defer w.mu.Unlock()

	fees, err := pricing.CalculateFees(w.draft.BudgetAmount)
	if err != nil {
		fees = pricing.Fees{Budget: w.draft.BudgetAmount}
	}
	uploads := make([]FileResult, len(w.uploads))
	copy(uploads, w.uploads)

	return State{
		ID:              w.id,
		Draft:           w.draft.Clone(),
		Step:            w.step,
		FieldErrors:     w.errs.clone(),
		Submission:      w.state,
		FailureReason:   w.reason,
		FailureMessage:  w.failure,
		OrderID:         w.orderID,
		Uploads:         uploads,
		Uploading:       w.uploading,
		Revision:        w.revision,
		SuggestedBudget: w.estimate(w.draft.PageCount, w.draft.Urgency, w.draft.AcademicLevel),
		Fees:            fees,
		Limits:          w.limits,
	}
}

// idempotencyKeyLocked стабилен для неизменной ревизии черновика.
func (w *Wizard) idempotencyKeyLocked() string {
	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], w.revision)
	return uuid.NewSHA1(w.id, buf[:]).String()
}

// beginSubmit проверяет черновик целиком и переводит мастер в submitting.
func (w *Wizard) beginSubmit() (entity.OrderDraft, string, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if err := w.guardLocked(); err != nil {
		return entity.OrderDraft{}, "", err
	}
	errs := Validate(w.draft, valueobject.StepReview, w.now())
	if len(errs) > 0 {
		for k, v := range errs {
			w.errs[k] = v
		}
		return entity.OrderDraft{}, "", &ValidationError{Fields: errs}
	}
	w.state = valueobject.SubmissionSubmitting
	w.reason = ""
	w.failure = ""
	return w.draft.Clone(), w.idempotencyKeyLocked(), nil
}

func (w *Wizard) finishSuccess(orderID string) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if !w.state.CanTransitionTo(valueobject.SubmissionSucceeded) {
		return
	}
	w.state = valueobject.SubmissionSucceeded
	w.orderID = orderID
	w.uploads = pendingUploads(w.draft.AttachedFiles)
	w.uploading = len(w.uploads) > 0
}

func (w *Wizard) finishFailure(reason valueobject.FailureReason, message string, fields FieldErrors) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if !w.state.CanTransitionTo(valueobject.SubmissionFailed) {
		return
	}
	w.state = valueobject.SubmissionFailed
	w.reason = reason
	w.failure = message
	for k, v := range fields {
		w.errs[k] = v
	}
}

// mergeUploads заменяет результаты по имени файла, сохраняя порядок вложений,
// и завершает фазу загрузки.
func (w *Wizard) mergeUploads(results []FileResult) []FileResult {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.uploading = false

	byName := make(map[string]FileResult, len(results))
	for _, r := range results {
		byName[r.Name] = r
	}
	for i, r := range w.uploads {
		if updated, ok := byName[r.Name]; ok {
			w.uploads[i] = updated
		}
	}
	out := make([]FileResult, len(w.uploads))
	copy(out, w.uploads)
	return out
}

// uploadTargets возвращает файлы для повторной загрузки: названные или все незагруженные,
// и открывает фазу загрузки. Файлы в статусе pending не возвращаются.
func (w *Wizard) uploadTargets(names []string) (string, []entity.AttachedFile, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.state != valueobject.SubmissionSucceeded {
		return "", nil, ErrNotSubmitted
	}
	if w.uploading {
		return "", nil, ErrSubmissionInProgress
	}
	status := make(map[string]UploadStatus, len(w.uploads))
	for _, r := range w.uploads {
		status[r.Name] = r.Status
	}

	var files []entity.AttachedFile
	if len(names) == 0 {
		for _, f := range w.draft.AttachedFiles {
			if s := status[f.Name]; s != UploadUploaded && s != UploadPending {
				files = append(files, f)
			}
		}
	} else {
		files = make([]entity.AttachedFile, 0, len(names))
		for _, name := range names {
			f, ok := w.draft.FindFile(name)
			if !ok {
				return "", nil, ErrFileNotFound
			}
			if status[name] != UploadPending {
				files = append(files, f)
			}
		}
	}
	w.uploading = len(files) > 0
	return w.orderID, files, nil
}

func pendingUploads(files []entity.AttachedFile) []FileResult {
	out := make([]FileResult, len(files))
	for i, f := range files {
		out[i] = FileResult{Name: f.Name, Status: UploadPending}
	}
	return out
}
