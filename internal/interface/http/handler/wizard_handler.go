package handler

import (
	"context"
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/ignatzorin/order-intake/internal/domain/entity"
	"github.com/ignatzorin/order-intake/internal/interface/http/dto"
	"github.com/ignatzorin/order-intake/internal/interface/http/response"
	"github.com/ignatzorin/order-intake/internal/logger"
	"github.com/ignatzorin/order-intake/internal/pkg/apperror"
	"github.com/ignatzorin/order-intake/internal/service"
	"github.com/ignatzorin/order-intake/internal/storage"
	"github.com/ignatzorin/order-intake/internal/usecase/intake"
	"github.com/ignatzorin/order-intake/internal/validation"
)

// AttachmentStore сохраняет вложения до создания заказа.
type AttachmentStore interface {
	Save(ctx context.Context, sessionID uuid.UUID, originalName string, r io.Reader) (storage.StagedFile, error)
	Delete(ctx context.Context, relativePath string) error
}

// AttemptLister отдаёт журнал отправок сессии.
type AttemptLister interface {
	ListBySession(ctx context.Context, sessionID string, limit int) ([]intake.SubmissionAttempt, error)
}

type WizardHandler struct {
	sessions    *service.SessionStore
	coordinator *intake.Coordinator
	tables      intake.TableProvider
	files       AttachmentStore
	attempts    AttemptLister
	wizardOpts  []intake.WizardOption
	log         logrus.FieldLogger
}

func NewWizardHandler(
	sessions *service.SessionStore,
	coordinator *intake.Coordinator,
	tables intake.TableProvider,
	files AttachmentStore,
	attempts AttemptLister,
	wizardOpts ...intake.WizardOption,
) *WizardHandler {
	return &WizardHandler{
		sessions:    sessions,
		coordinator: coordinator,
		tables:      tables,
		files:       files,
		attempts:    attempts,
		wizardOpts:  wizardOpts,
		log:         logger.WithComponent("wizard_handler"),
	}
}

// session возвращает сессию текущего пользователя или пишет ошибку.
func (h *WizardHandler) session(c *gin.Context) (service.Session, bool) {
	userID, err := getUserID(c)
	if err != nil {
		response.Error(c, err)
		return service.Session{}, false
	}
	id, err := getSessionID(c)
	if err != nil {
		response.Error(c, err)
		return service.Session{}, false
	}
	sess, err := h.sessions.Get(id, userID)
	if err != nil {
		response.Error(c, err)
		return service.Session{}, false
	}
	return sess, true
}

func snapshot(sess service.Session) dto.WizardResponse {
	return dto.WizardFromState(sess.Wizard.Snapshot())
}

// Options обрабатывает GET /api/wizard/options.
func (h *WizardHandler) Options(c *gin.Context) {
	response.Success(c, h.tables.Table(c.Request.Context()).Options())
}

// Create обрабатывает POST /api/wizard.
func (h *WizardHandler) Create(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	sess := h.sessions.Create(userID, h.wizardOpts...)
	response.Created(c, snapshot(sess))
}

// Get обрабатывает GET /api/wizard/:id.
func (h *WizardHandler) Get(c *gin.Context) {
	sess, ok := h.session(c)
	if !ok {
		return
	}
	response.Success(c, snapshot(sess))
}

// Delete обрабатывает DELETE /api/wizard/:id.
func (h *WizardHandler) Delete(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	id, err := getSessionID(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	if err := h.sessions.Delete(c.Request.Context(), id, userID); err != nil {
		_ = c.Error(err)
		return
	}
	response.NoContent(c)
}

// Patch обрабатывает PATCH /api/wizard/:id.
func (h *WizardHandler) Patch(c *gin.Context) {
	sess, ok := h.session(c)
	if !ok {
		return
	}

	var req dto.PatchWizardRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request body")
		return
	}
	patch, fieldErrs := req.ToPatch()
	if fieldErrs != nil {
		_ = c.Error(&intake.ValidationError{Fields: fieldErrs})
		return
	}
	if err := sess.Wizard.Patch(patch); err != nil {
		_ = c.Error(err)
		return
	}
	response.Success(c, snapshot(sess))
}

// Advance обрабатывает POST /api/wizard/:id/advance.
// При ошибках проверки шаг не меняется, ошибки возвращаются в error.fields.
func (h *WizardHandler) Advance(c *gin.Context) {
	h.transition(c, (*intake.Wizard).Advance)
}

// Retreat обрабатывает POST /api/wizard/:id/retreat.
func (h *WizardHandler) Retreat(c *gin.Context) {
	h.transition(c, (*intake.Wizard).Retreat)
}

// Reset обрабатывает POST /api/wizard/:id/reset.
func (h *WizardHandler) Reset(c *gin.Context) {
	h.transition(c, (*intake.Wizard).Reset)
}

func (h *WizardHandler) transition(c *gin.Context, fn func(*intake.Wizard) error) {
	sess, ok := h.session(c)
	if !ok {
		return
	}
	if err := fn(sess.Wizard); err != nil {
		_ = c.Error(err)
		return
	}
	response.Success(c, snapshot(sess))
}

// AttachFile обрабатывает POST /api/wizard/:id/files (multipart, поле file).
func (h *WizardHandler) AttachFile(c *gin.Context) {
	sess, ok := h.session(c)
	if !ok {
		return
	}

	header, err := c.FormFile("file")
	if err != nil {
		response.BadRequest(c, "multipart field file is required")
		return
	}
	name := validation.SanitizeFileName(header.Filename)
	if name == "" {
		_ = c.Error(attachmentError("File name is not valid"))
		return
	}

	// Проверяем лимиты до записи на диск по заявленному размеру.
	if err := sess.Wizard.CheckCapacity(entity.AttachedFile{Name: name, Size: header.Size}); err != nil {
		_ = c.Error(err)
		return
	}

	src, err := header.Open()
	if err != nil {
		response.BadRequest(c, "could not read uploaded file")
		return
	}
	defer src.Close()

	ctx := c.Request.Context()
	staged, err := h.files.Save(ctx, sess.ID, name, src)
	if err != nil {
		_ = c.Error(stagingError(err))
		return
	}

	file := entity.AttachedFile{
		Name:        name,
		Size:        staged.Size,
		MediaType:   staged.MediaType,
		StoragePath: staged.Path,
	}
	if err := sess.Wizard.AttachFiles(file); err != nil {
		if delErr := h.files.Delete(context.WithoutCancel(ctx), staged.Path); delErr != nil {
			h.log.WithError(delErr).WithField("path", staged.Path).Warn("не удалось удалить отклонённое вложение")
		}
		_ = c.Error(err)
		return
	}
	response.Created(c, snapshot(sess))
}

// RemoveFile обрабатывает DELETE /api/wizard/:id/files/:name.
func (h *WizardHandler) RemoveFile(c *gin.Context) {
	sess, ok := h.session(c)
	if !ok {
		return
	}
	removed, err := sess.Wizard.RemoveFile(c.Param("name"))
	if err != nil {
		_ = c.Error(err)
		return
	}
	if removed.StoragePath != "" {
		if err := h.files.Delete(c.Request.Context(), removed.StoragePath); err != nil {
			h.log.WithError(err).WithField("path", removed.StoragePath).Warn("не удалось удалить вложение")
		}
	}
	response.Success(c, snapshot(sess))
}

// Submit обрабатывает POST /api/wizard/:id/submit.
// 201 - заказ создан и все файлы загружены, 202 - заказ создан, часть файлов не загружена.
func (h *WizardHandler) Submit(c *gin.Context) {
	sess, ok := h.session(c)
	if !ok {
		return
	}
	outcome, err := h.coordinator.Submit(c.Request.Context(), sess.Wizard)
	if err != nil {
		_ = c.Error(err)
		return
	}
	h.writeOutcome(c, sess, outcome)
}

// RetryUploads обрабатывает POST /api/wizard/:id/uploads/retry.
func (h *WizardHandler) RetryUploads(c *gin.Context) {
	sess, ok := h.session(c)
	if !ok {
		return
	}
	var req dto.RetryUploadsRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			response.BadRequest(c, "invalid request body")
			return
		}
	}
	outcome, err := h.coordinator.RetryUploads(c.Request.Context(), sess.Wizard, req.Names...)
	if err != nil {
		_ = c.Error(err)
		return
	}
	h.writeOutcome(c, sess, outcome)
}

// Attempts обрабатывает GET /api/wizard/:id/attempts.
func (h *WizardHandler) Attempts(c *gin.Context) {
	sess, ok := h.session(c)
	if !ok {
		return
	}
	if h.attempts == nil {
		response.Success(c, []dto.AttemptResponse{})
		return
	}
	attempts, err := h.attempts.ListBySession(c.Request.Context(), sess.ID.String(), 20)
	if err != nil {
		_ = c.Error(apperror.Wrap(err, apperror.ErrCodeDatabase, "could not load submission attempts"))
		return
	}
	response.Success(c, dto.AttemptsFrom(attempts))
}

func (h *WizardHandler) writeOutcome(c *gin.Context, sess service.Session, outcome *intake.Outcome) {
	body := dto.SubmitResponse{Outcome: outcome, Wizard: snapshot(sess)}
	if outcome.Complete() {
		c.JSON(http.StatusCreated, response.Response{Success: true, Data: body})
		return
	}
	response.Accepted(c, body)
}

func attachmentError(msg string) error {
	return &intake.ValidationError{Fields: intake.FieldErrors{entity.FieldAttachedFiles: msg}}
}

func stagingError(err error) error {
	switch {
	case errors.Is(err, storage.ErrFileTooLarge):
		return apperror.Wrap(err, apperror.ErrCodeCapacity, "file exceeds the size limit").
			WithFields(map[string]string{entity.FieldAttachedFiles: "File exceeds the size limit"})
	case errors.Is(err, storage.ErrUnsupported):
		return attachmentError("File type is not supported")
	case errors.Is(err, storage.ErrEmptyFile):
		return attachmentError("File is empty")
	}
	return apperror.Wrap(err, apperror.ErrCodeInternal, "could not store file")
}
