package intake

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/ignatzorin/order-intake/internal/domain/entity"
	"github.com/ignatzorin/order-intake/internal/domain/valueobject"
	"github.com/ignatzorin/order-intake/internal/metrics"
	"github.com/ignatzorin/order-intake/internal/pkg/apperror"
	"github.com/ignatzorin/order-intake/internal/vocabulary"
)

type mockOrderCreator struct {
	mock.Mock
}

func (m *mockOrderCreator) CreateOrder(ctx context.Context, req vocabulary.OrderRequest, key string) (string, error) {
	args := m.Called(ctx, req, key)
	return args.String(0), args.Error(1)
}

type mockUploader struct {
	mock.Mock
}

func (m *mockUploader) UploadFile(ctx context.Context, orderID string, f entity.AttachedFile) error {
	args := m.Called(ctx, orderID, f)
	return args.Error(0)
}

type memoryLedger struct {
	mu       sync.Mutex
	attempts []SubmissionAttempt
}

func (l *memoryLedger) Record(_ context.Context, a SubmissionAttempt) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.attempts = append(l.attempts, a)
	return nil
}

func (l *memoryLedger) FindSucceeded(_ context.Context, key string) (*SubmissionAttempt, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for i := range l.attempts {
		if l.attempts[i].IdempotencyKey == key && l.attempts[i].Status == valueobject.SubmissionSucceeded {
			a := l.attempts[i]
			return &a, nil
		}
	}
	return nil, nil
}

type recordingNotifier struct {
	mu     sync.Mutex
	events []Event
}

func (n *recordingNotifier) Notify(_ uuid.UUID, e Event) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, e)
}

func (n *recordingNotifier) types() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := make([]string, len(n.events))
	for i, e := range n.events {
		out[i] = e.Type
	}
	return out
}

func named(name string) interface{} {
	return mock.MatchedBy(func(f entity.AttachedFile) bool { return f.Name == name })
}

func TestSubmit_CreatesOrderAndUploadsFiles(t *testing.T) {
	orders := new(mockOrderCreator)
	uploads := new(mockUploader)
	notifier := &recordingNotifier{}
	m := metrics.New()
	c := NewCoordinator(orders, uploads, nil, WithNotifier(notifier), WithMetrics(m))

	w := readyWizard(t)
	require.NoError(t, w.AttachFiles(file("a.pdf", 10), file("b.pdf", 20)))

	orders.On("CreateOrder", mock.Anything, mock.MatchedBy(func(r vocabulary.OrderRequest) bool {
		return r.Type == "research paper" && r.Level == "bachelors" && r.Style == "apa7" &&
			r.MinPages == 5 && r.MaxPages == 5 &&
			r.Instructions == "Compare productivity studies\n\nUse peer-reviewed sources"
	}), mock.AnythingOfType("string")).Return("order-1", nil).Once()
	uploads.On("UploadFile", mock.Anything, "order-1", mock.Anything).Return(nil)

	out, err := c.Submit(context.Background(), w)

	require.NoError(t, err)
	assert.Equal(t, "order-1", out.OrderID)
	assert.False(t, out.Reused)
	assert.Equal(t, 2, out.UploadedCount())
	assert.True(t, out.Complete())
	assert.Equal(t, []string{"a.pdf", "b.pdf"}, []string{out.Uploads[0].Name, out.Uploads[1].Name})

	s := w.Snapshot()
	assert.Equal(t, valueobject.SubmissionSucceeded, s.Submission)
	assert.Equal(t, "order-1", s.OrderID)
	assert.Equal(t, out.Uploads, s.Uploads)

	orders.AssertExpectations(t)
	uploads.AssertNumberOfCalls(t, "UploadFile", 2)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Submissions.WithLabelValues("succeeded")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.Uploads.WithLabelValues("uploaded")))

	types := notifier.types()
	require.Len(t, types, 4)
	assert.Equal(t, EventSubmissionStarted, types[0])
	assert.Equal(t, EventSubmissionSucceeded, types[1])
	assert.Equal(t, []string{EventUploadFile, EventUploadFile}, types[2:])
}

func TestSubmit_ValidationBlocksNetwork(t *testing.T) {
	orders := new(mockOrderCreator)
	m := metrics.New()
	c := NewCoordinator(orders, nil, nil, WithMetrics(m))
	w := newTestWizard(t)

	_, err := c.Submit(context.Background(), w)

	var validationErr *ValidationError
	require.True(t, errors.As(err, &validationErr))
	assert.Contains(t, validationErr.Fields, entity.FieldTitle)
	assert.Contains(t, validationErr.Fields, entity.FieldPaymentMethod)
	assert.Equal(t, valueobject.SubmissionIdle, w.Snapshot().Submission)
	assert.Equal(t, MsgTitleRequired, w.Snapshot().FieldErrors[entity.FieldTitle])
	orders.AssertNotCalled(t, "CreateOrder", mock.Anything, mock.Anything, mock.Anything)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.ValidationFailures.WithLabelValues("review")))
}

func TestSubmit_ExpiredDeadlineBlocksNetwork(t *testing.T) {
	orders := new(mockOrderCreator)
	c := NewCoordinator(orders, nil, nil)
	w := readyWizard(t)
	require.NoError(t, w.Patch(entity.DraftPatch{Deadline: ptr(testNow.Add(-time.Hour))}))

	_, err := c.Submit(context.Background(), w)

	var validationErr *ValidationError
	require.True(t, errors.As(err, &validationErr))
	assert.Equal(t, FieldErrors{entity.FieldDeadline: MsgDeadlineInPast}, validationErr.Fields)
	orders.AssertNotCalled(t, "CreateOrder", mock.Anything, mock.Anything, mock.Anything)
}

func TestSubmit_SecondCallWhilePendingIsRejected(t *testing.T) {
	orders := new(mockOrderCreator)
	c := NewCoordinator(orders, nil, nil)
	w := readyWizard(t)

	release := make(chan struct{})
	orders.On("CreateOrder", mock.Anything, mock.Anything, mock.Anything).
		Run(func(mock.Arguments) { <-release }).
		Return("order-1", nil)

	done := make(chan error, 1)
	go func() {
		_, err := c.Submit(context.Background(), w)
		done <- err
	}()

	require.Eventually(t, func() bool {
		return w.Snapshot().Submission == valueobject.SubmissionSubmitting
	}, time.Second, 5*time.Millisecond)

	_, err := c.Submit(context.Background(), w)
	assert.ErrorIs(t, err, ErrSubmissionInProgress)
	assert.ErrorIs(t, w.Advance(), ErrSubmissionInProgress)
	assert.ErrorIs(t, w.Retreat(), ErrSubmissionInProgress)

	close(release)
	require.NoError(t, <-done)

	_, err = c.Submit(context.Background(), w)
	assert.ErrorIs(t, err, ErrAlreadySubmitted)
	orders.AssertNumberOfCalls(t, "CreateOrder", 1)
}

func TestSubmit_RejectedMapsServerFields(t *testing.T) {
	orders := new(mockOrderCreator)
	c := NewCoordinator(orders, nil, nil)
	w := readyWizard(t)
	before := w.Snapshot()

	rejection := apperror.New(apperror.ErrCodeSubmissionRejected, "order was rejected").
		WithFields(map[string]string{"min_pages": "too many pages", "language": "unsupported"})
	orders.On("CreateOrder", mock.Anything, mock.Anything, mock.Anything).Return("", rejection)

	_, err := c.Submit(context.Background(), w)

	require.Error(t, err)
	assert.Equal(t, apperror.ErrCodeSubmissionRejected, apperror.CodeOf(err))
	assert.False(t, apperror.IsRetryable(err))

	s := w.Snapshot()
	assert.Equal(t, valueobject.SubmissionFailed, s.Submission)
	assert.Equal(t, valueobject.FailureRejected, s.FailureReason)
	assert.Equal(t, "too many pages", s.FieldErrors[entity.FieldPageCount])
	assert.Equal(t, "unsupported", s.FieldErrors["language"])
	assert.Equal(t, before.Draft, s.Draft)
	assert.Equal(t, before.Revision, s.Revision)
}

func TestSubmit_TransientFailureCanBeRetriedWithSameKey(t *testing.T) {
	orders := new(mockOrderCreator)
	ledger := &memoryLedger{}
	c := NewCoordinator(orders, nil, nil, WithLedger(ledger))
	w := readyWizard(t)

	var keys []string
	collect := func(args mock.Arguments) { keys = append(keys, args.String(2)) }
	orders.On("CreateOrder", mock.Anything, mock.Anything, mock.Anything).
		Run(collect).Return("", apperror.New(apperror.ErrCodeSubmissionTransient, "order service is unavailable")).Once()
	orders.On("CreateOrder", mock.Anything, mock.Anything, mock.Anything).
		Run(collect).Return("order-7", nil).Once()

	_, err := c.Submit(context.Background(), w)
	require.Error(t, err)
	assert.True(t, apperror.IsRetryable(err))
	assert.Equal(t, valueobject.FailureTransient, w.Snapshot().FailureReason)
	assert.True(t, w.Snapshot().FailureReason.Retryable())

	out, err := c.Submit(context.Background(), w)
	require.NoError(t, err)
	assert.Equal(t, "order-7", out.OrderID)

	require.Len(t, keys, 2)
	assert.Equal(t, keys[0], keys[1])
	require.Len(t, ledger.attempts, 2)
	assert.Equal(t, valueobject.SubmissionFailed, ledger.attempts[0].Status)
	assert.Equal(t, valueobject.FailureTransient, ledger.attempts[0].Reason)
	assert.Equal(t, "order-7", ledger.attempts[1].OrderID)
}

func TestSubmit_UnclassifiedErrorIsTransient(t *testing.T) {
	orders := new(mockOrderCreator)
	c := NewCoordinator(orders, nil, nil)
	w := readyWizard(t)
	orders.On("CreateOrder", mock.Anything, mock.Anything, mock.Anything).Return("", errors.New("connection reset"))

	_, err := c.Submit(context.Background(), w)

	assert.True(t, apperror.IsRetryable(err))
	assert.Equal(t, valueobject.FailureTransient, w.Snapshot().FailureReason)
}

func TestSubmit_FatalFailure(t *testing.T) {
	orders := new(mockOrderCreator)
	c := NewCoordinator(orders, nil, nil)
	w := readyWizard(t)
	orders.On("CreateOrder", mock.Anything, mock.Anything, mock.Anything).
		Return("", apperror.New(apperror.ErrCodeSubmissionFatal, "order service rejected credentials"))

	_, err := c.Submit(context.Background(), w)

	assert.Equal(t, apperror.ErrCodeSubmissionFatal, apperror.CodeOf(err))
	assert.False(t, apperror.IsRetryable(err))
	assert.Equal(t, valueobject.FailureFatal, w.Snapshot().FailureReason)
	assert.False(t, w.Snapshot().FailureReason.Retryable())
}

func TestSubmit_TimeoutIsRetryable(t *testing.T) {
	orders := new(mockOrderCreator)
	c := NewCoordinator(orders, nil, nil, WithSubmitTimeout(20*time.Millisecond))
	w := readyWizard(t)
	orders.On("CreateOrder", mock.Anything, mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) { <-args.Get(0).(context.Context).Done() }).
		Return("", context.DeadlineExceeded)

	_, err := c.Submit(context.Background(), w)

	assert.True(t, apperror.IsRetryable(err))
	s := w.Snapshot()
	assert.Equal(t, valueobject.SubmissionFailed, s.Submission)
	assert.Equal(t, valueobject.FailureTimeout, s.FailureReason)
}

func TestSubmit_CancelledByCaller(t *testing.T) {
	orders := new(mockOrderCreator)
	c := NewCoordinator(orders, nil, nil)
	w := readyWizard(t)

	ctx, cancel := context.WithCancel(context.Background())
	orders.On("CreateOrder", mock.Anything, mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) {
			cancel()
			<-args.Get(0).(context.Context).Done()
		}).
		Return("", context.Canceled)

	_, err := c.Submit(ctx, w)

	assert.Equal(t, apperror.ErrCodeSubmissionCancelled, apperror.CodeOf(err))
	s := w.Snapshot()
	assert.Equal(t, valueobject.SubmissionFailed, s.Submission)
	assert.Equal(t, valueobject.FailureCancelled, s.FailureReason)
}

func TestSubmit_PartialUploadsAndRetry(t *testing.T) {
	orders := new(mockOrderCreator)
	uploads := new(mockUploader)
	c := NewCoordinator(orders, uploads, nil, WithUploadConcurrency(2))
	w := readyWizard(t)
	require.NoError(t, w.AttachFiles(file("a.pdf", 1), file("b.pdf", 2), file("c.pdf", 3)))

	orders.On("CreateOrder", mock.Anything, mock.Anything, mock.Anything).Return("order-9", nil)
	uploads.On("UploadFile", mock.Anything, "order-9", named("b.pdf")).
		Return(apperror.New(apperror.ErrCodeUploadFailed, "storage quota exceeded")).Once()
	uploads.On("UploadFile", mock.Anything, "order-9", mock.Anything).Return(nil)

	out, err := c.Submit(context.Background(), w)

	require.NoError(t, err)
	assert.Equal(t, "order-9", out.OrderID)
	assert.Equal(t, 2, out.UploadedCount())
	assert.Equal(t, 1, out.FailedCount())
	assert.False(t, out.Complete())
	assert.Equal(t, FileResult{Name: "b.pdf", Status: UploadFailed, Reason: "storage quota exceeded"}, out.Uploads[1])
	assert.Equal(t, valueobject.SubmissionSucceeded, w.Snapshot().Submission)

	retried, err := c.RetryUploads(context.Background(), w)
	require.NoError(t, err)
	assert.True(t, retried.Complete())
	assert.Equal(t, "order-9", retried.OrderID)
	uploads.AssertNumberOfCalls(t, "UploadFile", 4)
	orders.AssertNumberOfCalls(t, "CreateOrder", 1)
}

func TestRetryUploads_RefusedWhileSubmitUploads(t *testing.T) {
	orders := new(mockOrderCreator)
	uploads := new(mockUploader)
	c := NewCoordinator(orders, uploads, nil)
	w := readyWizard(t)
	require.NoError(t, w.AttachFiles(file("a.pdf", 1)))

	release := make(chan struct{})
	orders.On("CreateOrder", mock.Anything, mock.Anything, mock.Anything).Return("order-3", nil)
	uploads.On("UploadFile", mock.Anything, "order-3", mock.Anything).
		Run(func(mock.Arguments) { <-release }).
		Return(nil)

	done := make(chan error, 1)
	go func() {
		_, err := c.Submit(context.Background(), w)
		done <- err
	}()

	require.Eventually(t, func() bool {
		return w.Snapshot().Submission == valueobject.SubmissionSucceeded
	}, time.Second, 5*time.Millisecond)

	_, err := c.RetryUploads(context.Background(), w)
	assert.ErrorIs(t, err, ErrSubmissionInProgress)
	_, err = c.RetryUploads(context.Background(), w, "a.pdf")
	assert.ErrorIs(t, err, ErrSubmissionInProgress)

	close(release)
	require.NoError(t, <-done)
	assert.False(t, w.Busy())
	uploads.AssertNumberOfCalls(t, "UploadFile", 1)
}

func TestRetryUploads_Errors(t *testing.T) {
	c := NewCoordinator(new(mockOrderCreator), new(mockUploader), nil)
	w := readyWizard(t)

	_, err := c.RetryUploads(context.Background(), w)
	assert.ErrorIs(t, err, ErrNotSubmitted)

	_, _, err = w.beginSubmit()
	require.NoError(t, err)
	w.finishSuccess("order-1")
	_, err = c.RetryUploads(context.Background(), w, "ghost.pdf")
	assert.ErrorIs(t, err, ErrFileNotFound)
}

func TestSubmit_ReusesSucceededLedgerRecord(t *testing.T) {
	orders := new(mockOrderCreator)
	ledger := &memoryLedger{}
	c := NewCoordinator(orders, nil, nil, WithLedger(ledger))
	w := readyWizard(t)
	require.NoError(t, ledger.Record(context.Background(), SubmissionAttempt{
		IdempotencyKey: w.idempotencyKeyLocked(),
		SessionID:      w.ID(),
		Status:         valueobject.SubmissionSucceeded,
		OrderID:        "order-3",
	}))

	out, err := c.Submit(context.Background(), w)

	require.NoError(t, err)
	assert.True(t, out.Reused)
	assert.Equal(t, "order-3", out.OrderID)
	orders.AssertNotCalled(t, "CreateOrder", mock.Anything, mock.Anything, mock.Anything)
}

func TestSubmit_UsesTableProvider(t *testing.T) {
	orders := new(mockOrderCreator)
	cache := vocabulary.NewOptionCache(nil, time.Hour, nil)
	c := NewCoordinator(orders, nil, cache)
	w := readyWizard(t)
	orders.On("CreateOrder", mock.Anything, mock.MatchedBy(func(r vocabulary.OrderRequest) bool {
		return r.Subject == "business" && r.Urgency == "low" && r.Language == vocabulary.Language
	}), mock.Anything).Return("order-2", nil)

	_, err := c.Submit(context.Background(), w)
	require.NoError(t, err)
	orders.AssertExpectations(t)
}

func TestDraftFields(t *testing.T) {
	fields := draftFields(map[string]string{
		"min_pages": "too few",
		"max_pages": "too few",
		"style":     "unknown",
		"budget":    "too low",
	})
	assert.Equal(t, FieldErrors{
		entity.FieldPageCount:     "too few",
		entity.FieldCitationStyle: "unknown",
		"budget":                  "too low",
	}, fields)
	assert.Nil(t, draftFields(nil))
}
