package vocabulary

import (
	"context"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/sirupsen/logrus"
)

const defaultDebounce = 300 * time.Millisecond

// Invalidator - то, что умеет сбросить закешированную таблицу.
type Invalidator interface {
	Invalidate()
}

// Watcher следит за файлом словаря и сбрасывает кеш после изменений.
// Наблюдается каталог файла: редакторы часто заменяют файл через rename.
type Watcher struct {
	path     string
	target   Invalidator
	debounce time.Duration
	fsw      *fsnotify.Watcher
	log      logrus.FieldLogger
}

func NewWatcher(path string, target Invalidator, log logrus.FieldLogger) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if log == nil {
		log = logrus.StandardLogger()
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		_ = fsw.Close()
		return nil, err
	}
	if err := fsw.Add(filepath.Dir(abs)); err != nil {
		_ = fsw.Close()
		return nil, err
	}
	return &Watcher{
		path:     abs,
		target:   target,
		debounce: defaultDebounce,
		fsw:      fsw,
		log:      log,
	}, nil
}

// Run обрабатывает события до отмены контекста или закрытия наблюдателя.
func (w *Watcher) Run(ctx context.Context) {
	var timer *time.Timer
	var fire <-chan time.Time
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != w.path {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) &&
				!event.Has(fsnotify.Rename) && !event.Has(fsnotify.Remove) {
				continue
			}
			if timer == nil {
				timer = time.NewTimer(w.debounce)
			} else {
				timer.Reset(w.debounce)
			}
			fire = timer.C
		case <-fire:
			fire = nil
			w.target.Invalidate()
			w.log.WithField("path", w.path).Info("vocabulary: файл изменён, кеш сброшен")
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			w.log.WithError(err).Warn("vocabulary: ошибка наблюдения за файлом")
		}
	}
}

func (w *Watcher) Close() error {
	return w.fsw.Close()
}
