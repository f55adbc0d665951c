package vocabulary

import (
	"context"
	"fmt"
	"os"
	"sort"

	"gopkg.in/yaml.v3"
)

// fileDocument - формат YAML-файла словаря:
//
//	order_type:
//	  "Reaction Paper": essay
//	citation_style:
//	  "APA 6": apa6
type fileDocument map[Kind]map[string]string

// FileSource читает переопределения словаря из YAML-файла.
type FileSource struct {
	path string
}

func NewFileSource(path string) *FileSource {
	return &FileSource{path: path}
}

func (s *FileSource) Path() string { return s.path }

// Entries читает файл при каждом вызове; кеширование - забота OptionCache.
func (s *FileSource) Entries(ctx context.Context) ([]Entry, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	raw, err := os.ReadFile(s.path)
	if err != nil {
		return nil, fmt.Errorf("vocabulary: не удалось прочитать %s: %w", s.path, err)
	}
	return ParseYAML(raw)
}

// ParseYAML разбирает документ словаря. Неизвестные разделы - ошибка.
func ParseYAML(raw []byte) ([]Entry, error) {
	var doc fileDocument
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("vocabulary: некорректный YAML: %w", err)
	}
	var entries []Entry
	for _, kind := range []Kind{KindOrderType, KindAcademicLevel, KindCitationStyle} {
		section := doc[kind]
		labels := make([]string, 0, len(section))
		for label := range section {
			labels = append(labels, label)
		}
		sort.Strings(labels)
		for _, label := range labels {
			entries = append(entries, Entry{Kind: kind, Label: label, Token: section[label]})
		}
		delete(doc, kind)
	}
	for kind := range doc {
		return nil, fmt.Errorf("vocabulary: неизвестный раздел %q", kind)
	}
	return entries, nil
}
