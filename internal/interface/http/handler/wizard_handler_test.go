package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ignatzorin/order-intake/internal/domain/entity"
	"github.com/ignatzorin/order-intake/internal/http/middleware"
	"github.com/ignatzorin/order-intake/internal/repository"
	"github.com/ignatzorin/order-intake/internal/service"
	"github.com/ignatzorin/order-intake/internal/storage"
	"github.com/ignatzorin/order-intake/internal/usecase/intake"
	"github.com/ignatzorin/order-intake/internal/vocabulary"
)

var testNow = time.Date(2026, 10, 14, 9, 0, 0, 0, time.UTC)

func init() {
	gin.SetMode(gin.TestMode)
}

type fakeOrders struct {
	mu       sync.Mutex
	requests []vocabulary.OrderRequest
	keys     []string
}

func (f *fakeOrders) CreateOrder(_ context.Context, req vocabulary.OrderRequest, key string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.requests = append(f.requests, req)
	f.keys = append(f.keys, key)
	return "ord-42", nil
}

type fakeUploader struct {
	mu    sync.Mutex
	names []string
}

func (f *fakeUploader) UploadFile(_ context.Context, _ string, file entity.AttachedFile) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.names = append(f.names, file.Name)
	return nil
}

type env struct {
	router   *gin.Engine
	orders   *fakeOrders
	uploader *fakeUploader
	sessions *service.SessionStore
	ledger   *repository.MemoryLedger
}

func newEnv(t *testing.T) *env {
	t.Helper()
	files, err := storage.NewFileStorage(t.TempDir(), 5<<20)
	require.NoError(t, err)

	log := logrus.New()
	log.SetOutput(bytes.NewBuffer(nil))

	e := &env{
		orders:   &fakeOrders{},
		uploader: &fakeUploader{},
		sessions: service.NewSessionStore(time.Hour),
		ledger:   repository.NewMemoryLedger(),
	}
	tables := vocabulary.NewOptionCache(nil, time.Minute, log)
	coordinator := intake.NewCoordinator(e.orders, e.uploader, tables,
		intake.WithLedger(e.ledger), intake.WithLogger(log))
	h := NewWizardHandler(e.sessions, coordinator, tables, files, e.ledger,
		intake.WithClock(func() time.Time { return testNow }))

	r := gin.New()
	r.Use(middleware.ErrorHandler(intake.ToAppError))
	r.Use(func(c *gin.Context) {
		if id, err := uuid.Parse(c.GetHeader("X-User")); err == nil {
			c.Set(middleware.ContextUserIDKey, id)
		}
		c.Next()
	})
	r.GET("/api/wizard/options", h.Options)
	r.POST("/api/wizard", h.Create)
	wizard := r.Group("/api/wizard/:id", middleware.UUIDValidator("id"))
	wizard.GET("", h.Get)
	wizard.DELETE("", h.Delete)
	wizard.PATCH("", h.Patch)
	wizard.POST("/advance", h.Advance)
	wizard.POST("/retreat", h.Retreat)
	wizard.POST("/files", h.AttachFile)
	wizard.DELETE("/files/:name", h.RemoveFile)
	wizard.POST("/submit", h.Submit)
	wizard.POST("/uploads/retry", h.RetryUploads)
	wizard.GET("/attempts", h.Attempts)
	e.router = r
	return e
}

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   *struct {
		Code   string            `json:"code"`
		Fields map[string]string `json:"fields"`
	} `json:"error"`
}

func (e *env) do(t *testing.T, user uuid.UUID, method, path string, body []byte, contentType string) (int, envelope) {
	t.Helper()
	req := httptest.NewRequest(method, path, bytes.NewReader(body))
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	req.Header.Set("X-User", user.String())
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)

	var env envelope
	if w.Body.Len() > 0 {
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env), w.Body.String())
	}
	return w.Code, env
}

func (e *env) json(t *testing.T, user uuid.UUID, method, path string, payload interface{}) (int, envelope) {
	t.Helper()
	var body []byte
	if payload != nil {
		var err error
		body, err = json.Marshal(payload)
		require.NoError(t, err)
	}
	return e.do(t, user, method, path, body, "application/json")
}

func (e *env) create(t *testing.T, user uuid.UUID) string {
	t.Helper()
	code, resp := e.json(t, user, http.MethodPost, "/api/wizard", nil)
	require.Equal(t, http.StatusCreated, code)
	var data struct {
		ID string `json:"id"`
	}
	require.NoError(t, json.Unmarshal(resp.Data, &data))
	return data.ID
}

func completeDraft() map[string]interface{} {
	return map[string]interface{}{
		"title":          "Remote work and productivity",
		"subject":        "Business",
		"order_type":     "Term Paper",
		"academic_level": "Undergraduate",
		"page_count":     5,
		"deadline":       "2026-10-17T09:00:00Z",
		"urgency":        "urgent",
		"description":    "Compare productivity studies",
		"instructions":   "Use peer-reviewed sources",
		"citation_style": "APA",
		"source_count":   4,
		"payment_method": "card",
	}
}

func upload(t *testing.T, name string, content []byte) ([]byte, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("file", name)
	require.NoError(t, err)
	_, err = part.Write(content)
	require.NoError(t, err)
	require.NoError(t, mw.Close())
	return buf.Bytes(), mw.FormDataContentType()
}

func TestWizardHandler_Options(t *testing.T) {
	e := newEnv(t)
	code, resp := e.json(t, uuid.New(), http.MethodGet, "/api/wizard/options", nil)
	require.Equal(t, http.StatusOK, code)

	var opts vocabulary.Options
	require.NoError(t, json.Unmarshal(resp.Data, &opts))
	assert.Contains(t, opts.OrderTypes, "Term Paper")
	assert.Contains(t, opts.PaymentMethods, "card")
}

func TestWizardHandler_AdvanceReturnsFieldErrors(t *testing.T) {
	e := newEnv(t)
	user := uuid.New()
	id := e.create(t, user)

	code, resp := e.json(t, user, http.MethodPost, "/api/wizard/"+id+"/advance", nil)
	assert.Equal(t, http.StatusUnprocessableEntity, code)
	require.NotNil(t, resp.Error)
	assert.Equal(t, "VALIDATION_ERROR", resp.Error.Code)
	assert.Contains(t, resp.Error.Fields, entity.FieldTitle)
	assert.Contains(t, resp.Error.Fields, entity.FieldDeadline)
}

func TestWizardHandler_PatchRejectsMalformedValues(t *testing.T) {
	e := newEnv(t)
	user := uuid.New()
	id := e.create(t, user)

	code, resp := e.json(t, user, http.MethodPatch, "/api/wizard/"+id, map[string]interface{}{
		"deadline":       "next friday",
		"budget_amount":  "-5",
		"payment_method": "cash",
		"title":          strings.Repeat("x", 201),
	})
	assert.Equal(t, http.StatusUnprocessableEntity, code)
	require.NotNil(t, resp.Error)
	assert.Len(t, resp.Error.Fields, 4)
}

func TestWizardHandler_FullFlow(t *testing.T) {
	e := newEnv(t)
	user := uuid.New()
	id := e.create(t, user)
	base := "/api/wizard/" + id

	code, _ := e.json(t, user, http.MethodPatch, base, completeDraft())
	require.Equal(t, http.StatusOK, code)

	body, ct := upload(t, "sources.pdf", []byte("%PDF-1.4\n1 0 obj\n<<>>\nendobj\n"))
	code, resp := e.do(t, user, http.MethodPost, base+"/files", body, ct)
	require.Equal(t, http.StatusCreated, code, string(resp.Data))

	var snap struct {
		Draft struct {
			AttachedFiles []entity.AttachedFile `json:"attached_files"`
		} `json:"draft"`
	}
	require.NoError(t, json.Unmarshal(resp.Data, &snap))
	require.Len(t, snap.Draft.AttachedFiles, 1)
	assert.Equal(t, "application/pdf", snap.Draft.AttachedFiles[0].MediaType)

	for i := 0; i < 4; i++ {
		code, _ = e.json(t, user, http.MethodPost, base+"/advance", nil)
		require.Equal(t, http.StatusOK, code)
	}

	code, resp = e.json(t, user, http.MethodPost, base+"/submit", nil)
	require.Equal(t, http.StatusCreated, code)

	var submitted struct {
		Outcome intake.Outcome `json:"outcome"`
		Wizard  struct {
			Submission string `json:"submission"`
			OrderID    string `json:"order_id"`
		} `json:"wizard"`
	}
	require.NoError(t, json.Unmarshal(resp.Data, &submitted))
	assert.Equal(t, "ord-42", submitted.Outcome.OrderID)
	assert.Equal(t, "succeeded", submitted.Wizard.Submission)
	assert.Equal(t, []string{"sources.pdf"}, e.uploader.names)

	require.Len(t, e.orders.requests, 1)
	req := e.orders.requests[0]
	assert.Equal(t, "research paper", req.Type)
	assert.Equal(t, "bachelors", req.Level)
	assert.Equal(t, "apa7", req.Style)
	assert.Equal(t, "Compare productivity studies\n\nUse peer-reviewed sources", req.Instructions)

	code, resp = e.json(t, user, http.MethodPatch, base, map[string]interface{}{"title": "Changed"})
	assert.Equal(t, http.StatusConflict, code)

	code, resp = e.json(t, user, http.MethodGet, base+"/attempts", nil)
	require.Equal(t, http.StatusOK, code)
	assert.Contains(t, string(resp.Data), `"status":"succeeded"`)
}

func TestWizardHandler_RejectsUnsupportedFile(t *testing.T) {
	e := newEnv(t)
	user := uuid.New()
	id := e.create(t, user)

	body, ct := upload(t, "tool.exe", []byte{0x4d, 0x5a, 0x90, 0x00, 0x03, 0x00, 0x00, 0x00})
	code, resp := e.do(t, user, http.MethodPost, "/api/wizard/"+id+"/files", body, ct)
	assert.Equal(t, http.StatusUnprocessableEntity, code)
	require.NotNil(t, resp.Error)
	assert.Contains(t, resp.Error.Fields, entity.FieldAttachedFiles)
}

func TestWizardHandler_RemoveFile(t *testing.T) {
	e := newEnv(t)
	user := uuid.New()
	id := e.create(t, user)
	base := "/api/wizard/" + id

	body, ct := upload(t, "notes.txt", []byte("reading list"))
	code, _ := e.do(t, user, http.MethodPost, base+"/files", body, ct)
	require.Equal(t, http.StatusCreated, code)

	code, _ = e.json(t, user, http.MethodDelete, base+"/files/notes.txt", nil)
	assert.Equal(t, http.StatusOK, code)

	code, resp := e.json(t, user, http.MethodDelete, base+"/files/notes.txt", nil)
	assert.Equal(t, http.StatusNotFound, code)
	require.NotNil(t, resp.Error)
}

func TestWizardHandler_SessionOwnership(t *testing.T) {
	e := newEnv(t)
	owner := uuid.New()
	id := e.create(t, owner)

	code, _ := e.json(t, uuid.New(), http.MethodGet, "/api/wizard/"+id, nil)
	assert.Equal(t, http.StatusForbidden, code)

	code, _ = e.json(t, owner, http.MethodGet, "/api/wizard/"+uuid.NewString(), nil)
	assert.Equal(t, http.StatusNotFound, code)

	code, _ = e.json(t, owner, http.MethodGet, "/api/wizard/not-a-uuid", nil)
	assert.Equal(t, http.StatusBadRequest, code)

	code, _ = e.json(t, owner, http.MethodDelete, "/api/wizard/"+id, nil)
	assert.Equal(t, http.StatusNoContent, code)
	assert.Equal(t, 0, e.sessions.Len())
}

func TestWizardHandler_RetryBeforeSubmit(t *testing.T) {
	e := newEnv(t)
	user := uuid.New()
	id := e.create(t, user)

	code, resp := e.json(t, user, http.MethodPost, "/api/wizard/"+id+"/uploads/retry", nil)
	assert.Equal(t, http.StatusConflict, code)
	require.NotNil(t, resp.Error)
	assert.Equal(t, "CONFLICT", resp.Error.Code)
}
