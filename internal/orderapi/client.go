// Package orderapi - HTTP-клиент сервиса создания заказов.
package orderapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/ignatzorin/order-intake/internal/domain/entity"
	"github.com/ignatzorin/order-intake/internal/pkg/apperror"
	"github.com/ignatzorin/order-intake/internal/vocabulary"
)

const (
	IdempotencyHeader = "Idempotency-Key"
	maxErrorBody      = 1 << 20
)

// ContentOpener открывает содержимое подготовленного вложения.
type ContentOpener interface {
	Open(path string) (io.ReadCloser, error)
}

type Client struct {
	baseURL    string
	token      string
	files      ContentOpener
	httpClient *http.Client
}

// NewClient создаёт клиент. Таймауты задаёт контекст вызова, у http.Client
// остаётся только страховочный верхний предел.
func NewClient(baseURL, token string, files ContentOpener) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		files:   files,
		httpClient: &http.Client{
			Timeout: 5 * time.Minute,
		},
	}
}

// WithHTTPClient подменяет http.Client (используется в тестах).
func (c *Client) WithHTTPClient(hc *http.Client) *Client {
	c.httpClient = hc
	return c
}

type createResponse struct {
	ID flexibleID `json:"id"`
}

// flexibleID принимает идентификатор и строкой, и числом.
type flexibleID string

func (f *flexibleID) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err == nil {
		*f = flexibleID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return fmt.Errorf("orderapi: некорректный id: %s", string(b))
	}
	*f = flexibleID(n.String())
	return nil
}

type errorResponse struct {
	Message string                     `json:"message"`
	Errors  map[string]json.RawMessage `json:"errors"`
}

// fields приводит ошибки полей к строкам: сервис отдаёт либо строку, либо массив строк.
func (e errorResponse) fields() map[string]string {
	if len(e.Errors) == 0 {
		return nil
	}
	out := make(map[string]string, len(e.Errors))
	for name, raw := range e.Errors {
		var msg string
		if err := json.Unmarshal(raw, &msg); err == nil {
			out[name] = msg
			continue
		}
		var list []string
		if err := json.Unmarshal(raw, &list); err == nil && len(list) > 0 {
			out[name] = strings.Join(list, "; ")
			continue
		}
		out[name] = strings.Trim(string(raw), `"`)
	}
	return out
}

// CreateOrder отправляет заказ. Ошибки классифицируются кодами apperror:
// SUBMISSION_REJECTED, SUBMISSION_FATAL или SUBMISSION_TRANSIENT.
func (c *Client) CreateOrder(ctx context.Context, req vocabulary.OrderRequest, idempotencyKey string) (string, error) {
	if c.baseURL == "" {
		return "", apperror.New(apperror.ErrCodeSubmissionFatal, "order service is not configured")
	}
	body, err := json.Marshal(req)
	if err != nil {
		return "", apperror.Wrap(err, apperror.ErrCodeInternal, "failed to encode order")
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/orders", bytes.NewReader(body))
	if err != nil {
		return "", apperror.Wrap(err, apperror.ErrCodeInternal, "failed to build request")
	}
	httpReq.Header.Set("Content-Type", "application/json; charset=utf-8")
	httpReq.Header.Set("Accept", "application/json")
	if idempotencyKey != "" {
		httpReq.Header.Set(IdempotencyHeader, idempotencyKey)
	}
	c.authorize(httpReq)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return "", apperror.Wrap(err, apperror.ErrCodeSubmissionTransient, "order service is unavailable")
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return "", classifyStatus(resp)
	}

	var out createResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", apperror.Wrap(err, apperror.ErrCodeSubmissionTransient, "unreadable response from order service")
	}
	if out.ID == "" {
		return "", apperror.New(apperror.ErrCodeSubmissionTransient, "order service returned no order id")
	}
	return string(out.ID), nil
}

// UploadFile отправляет одно вложение multipart-запросом.
func (c *Client) UploadFile(ctx context.Context, orderID string, file entity.AttachedFile) error {
	if c.files == nil {
		return apperror.New(apperror.ErrCodeUploadFailed, "attachment storage is not configured")
	}
	content, err := c.files.Open(file.StoragePath)
	if err != nil {
		return apperror.Wrap(err, apperror.ErrCodeUploadFailed, "staged file is missing")
	}
	defer content.Close()

	pr, pw := io.Pipe()
	mw := multipart.NewWriter(pw)
	go func() {
		pw.CloseWithError(writeFilePart(mw, file, content))
	}()

	endpoint := fmt.Sprintf("%s/orders/%s/files", c.baseURL, url.PathEscape(orderID))
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, pr)
	if err != nil {
		_ = pr.Close()
		return apperror.Wrap(err, apperror.ErrCodeInternal, "failed to build request")
	}
	httpReq.Header.Set("Content-Type", mw.FormDataContentType())
	c.authorize(httpReq)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return apperror.Wrap(err, apperror.ErrCodeUploadFailed, "upload failed")
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		e := readError(resp)
		msg := e.Message
		if msg == "" {
			msg = "upload failed with status " + strconv.Itoa(resp.StatusCode)
		}
		return apperror.New(apperror.ErrCodeUploadFailed, msg)
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}

func writeFilePart(mw *multipart.Writer, file entity.AttachedFile, content io.Reader) error {
	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition", contentDisposition("file", file.Name))
	mediaType := file.MediaType
	if mediaType == "" {
		mediaType = "application/octet-stream"
	}
	header.Set("Content-Type", mediaType)

	part, err := mw.CreatePart(header)
	if err != nil {
		return err
	}
	if _, err := io.Copy(part, content); err != nil {
		return err
	}
	return mw.Close()
}

func contentDisposition(field, filename string) string {
	escape := strings.NewReplacer(`\`, `\\`, `"`, `\"`)
	return fmt.Sprintf(`form-data; name="%s"; filename="%s"`, escape.Replace(field), escape.Replace(filename))
}

func (c *Client) authorize(req *http.Request) {
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
}

func readError(resp *http.Response) errorResponse {
	var e errorResponse
	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	if err != nil {
		return e
	}
	if json.Unmarshal(raw, &e) != nil {
		e.Message = strings.TrimSpace(string(raw))
	}
	return e
}

// classifyStatus: 400/409/422 - отказ с ошибками полей, 401/403 - фатально,
// прочие 4xx - отказ, остальное (408, 429, 5xx) - временная ошибка.
func classifyStatus(resp *http.Response) *apperror.AppError {
	e := readError(resp)
	status := resp.StatusCode
	cause := errors.New("order service responded with status " + strconv.Itoa(status))

	switch status {
	case http.StatusBadRequest, http.StatusConflict, http.StatusUnprocessableEntity:
		msg := e.Message
		if msg == "" {
			msg = "order was rejected by the order service"
		}
		return apperror.Wrap(cause, apperror.ErrCodeSubmissionRejected, msg).WithFields(e.fields())
	case http.StatusUnauthorized, http.StatusForbidden:
		return apperror.Wrap(cause, apperror.ErrCodeSubmissionFatal, "order service rejected credentials")
	}
	if status >= 400 && status < 500 && status != http.StatusRequestTimeout && status != http.StatusTooManyRequests {
		msg := e.Message
		if msg == "" {
			msg = "order was rejected by the order service"
		}
		return apperror.Wrap(cause, apperror.ErrCodeSubmissionRejected, msg).WithFields(e.fields())
	}
	return apperror.Wrap(cause, apperror.ErrCodeSubmissionTransient, "order service is temporarily unavailable")
}
