package storage

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/h2non/filetype"
)

var (
	ErrFileTooLarge   = errors.New("storage: file exceeds size limit")
	ErrEmptyFile      = errors.New("storage: file is empty")
	ErrUnsupported    = errors.New("storage: unsupported file type")
	ErrOutsideStorage = errors.New("storage: path is outside storage root")
)

// Разрешённые типы вложений.
var allowedMediaTypes = map[string]bool{
	"application/pdf":               true,
	"application/msword":            true,
	"application/vnd.ms-excel":      true,
	"application/vnd.ms-powerpoint": true,
	"application/rtf":               true,
	"application/zip":               true,
	"application/gzip":              true,

	"application/vnd.openxmlformats-officedocument.wordprocessingml.document":   true,
	"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet":         true,
	"application/vnd.openxmlformats-officedocument.presentationml.presentation": true,
	"application/vnd.oasis.opendocument.text":                                   true,

	"text/plain": true,
	"text/csv":   true,
	"image/jpeg": true,
	"image/png":  true,
	"image/gif":  true,
	"image/webp": true,
}

// Текстовые форматы не имеют сигнатуры; для них тип определяется по расширению.
var textExtensions = map[string]string{
	".txt": "text/plain",
	".md":  "text/plain",
	".csv": "text/csv",
	".rtf": "application/rtf",
}

// StagedFile - вложение, сохранённое до создания заказа.
type StagedFile struct {
	Path      string
	Size      int64
	MediaType string
}

// FileStorage хранит вложения мастера на диске до их загрузки в сервис заказов.
type FileStorage struct {
	rootPath     string
	maxFileBytes int64
}

// NewFileStorage создаёт файловое хранилище.
func NewFileStorage(rootPath string, maxFileBytes int64) (*FileStorage, error) {
	if err := os.MkdirAll(rootPath, 0o755); err != nil {
		return nil, fmt.Errorf("storage: не удалось создать каталог %s: %w", rootPath, err)
	}
	abs, err := filepath.Abs(rootPath)
	if err != nil {
		return nil, fmt.Errorf("storage: некорректный путь %s: %w", rootPath, err)
	}
	return &FileStorage{rootPath: abs, maxFileBytes: maxFileBytes}, nil
}

// DetectMediaType определяет тип по сигнатуре, для текстовых форматов - по расширению.
// Пустая строка означает, что тип не распознан.
func DetectMediaType(head []byte, name string) string {
	if kind, err := filetype.Match(head); err == nil && kind != filetype.Unknown {
		return kind.MIME.Value
	}
	if mt, ok := textExtensions[strings.ToLower(filepath.Ext(name))]; ok {
		return mt
	}
	return ""
}

// IsAllowedMediaType сообщает, можно ли прикрепить файл такого типа.
func IsAllowedMediaType(mediaType string) bool {
	return allowedMediaTypes[mediaType]
}

// Save проверяет тип и размер файла и сохраняет его в каталог сессии.
func (s *FileStorage) Save(ctx context.Context, sessionID uuid.UUID, originalName string, r io.Reader) (StagedFile, error) {
	if err := ctx.Err(); err != nil {
		return StagedFile{}, err
	}

	br := bufio.NewReaderSize(r, 512)
	head, err := br.Peek(512)
	if err != nil && !errors.Is(err, io.EOF) && !errors.Is(err, bufio.ErrBufferFull) {
		return StagedFile{}, fmt.Errorf("storage: не удалось прочитать файл: %w", err)
	}
	if len(head) == 0 {
		return StagedFile{}, ErrEmptyFile
	}
	mediaType := DetectMediaType(head, originalName)
	if !IsAllowedMediaType(mediaType) {
		return StagedFile{}, ErrUnsupported
	}

	sessionDir := filepath.Join(s.rootPath, sessionID.String())
	if err := os.MkdirAll(sessionDir, 0o755); err != nil {
		return StagedFile{}, fmt.Errorf("storage: не удалось создать каталог сессии: %w", err)
	}

	fileName := fmt.Sprintf("%d_%s%s", time.Now().UnixNano(), uuid.NewString()[:8], strings.ToLower(filepath.Ext(originalName)))
	targetPath := filepath.Join(sessionDir, fileName)
	tempPath := targetPath + ".tmp"

	f, err := os.Create(tempPath)
	if err != nil {
		return StagedFile{}, fmt.Errorf("storage: не удалось создать файл: %w", err)
	}
	defer f.Close()

	limited := io.LimitedReader{R: br, N: s.maxFileBytes + 1}
	written, err := io.Copy(f, &limited)
	if err != nil {
		_ = os.Remove(tempPath)
		return StagedFile{}, fmt.Errorf("storage: ошибка записи файла: %w", err)
	}
	if written > s.maxFileBytes {
		_ = f.Close()
		_ = os.Remove(tempPath)
		return StagedFile{}, ErrFileTooLarge
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(tempPath)
		return StagedFile{}, fmt.Errorf("storage: ошибка закрытия файла: %w", err)
	}
	if err := os.Rename(tempPath, targetPath); err != nil {
		return StagedFile{}, fmt.Errorf("storage: не удалось переименовать файл: %w", err)
	}

	return StagedFile{
		Path:      filepath.ToSlash(filepath.Join(sessionID.String(), fileName)),
		Size:      written,
		MediaType: mediaType,
	}, nil
}

// Open открывает сохранённый файл по относительному пути.
func (s *FileStorage) Open(relativePath string) (io.ReadCloser, error) {
	target, err := s.resolve(relativePath)
	if err != nil {
		return nil, err
	}
	return os.Open(target)
}

// Delete удаляет файл из хранилища. Отсутствующий файл не считается ошибкой.
func (s *FileStorage) Delete(ctx context.Context, relativePath string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	target, err := s.resolve(relativePath)
	if err != nil {
		return err
	}
	if err := os.Remove(target); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("storage: не удалось удалить файл: %w", err)
	}
	return nil
}

// DeleteSession удаляет все вложения сессии.
func (s *FileStorage) DeleteSession(ctx context.Context, sessionID uuid.UUID) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := os.RemoveAll(filepath.Join(s.rootPath, sessionID.String())); err != nil {
		return fmt.Errorf("storage: не удалось удалить файлы сессии: %w", err)
	}
	return nil
}

func (s *FileStorage) resolve(relativePath string) (string, error) {
	target := filepath.Join(s.rootPath, filepath.FromSlash(relativePath))
	rel, err := filepath.Rel(s.rootPath, target)
	if err != nil || rel == "." || strings.HasPrefix(rel, "..") {
		return "", ErrOutsideStorage
	}
	return target, nil
}
