package valueobject

import "strings"

// catalog хранит закрытый набор вариантов: код и человекочитаемую метку.
type catalog struct {
	codes  []string
	labels []string
}

func newCatalog(pairs ...[2]string) catalog {
	c := catalog{
		codes:  make([]string, 0, len(pairs)),
		labels: make([]string, 0, len(pairs)),
	}
	for _, p := range pairs {
		c.codes = append(c.codes, p[0])
		c.labels = append(c.labels, p[1])
	}
	return c
}

// lookup ищет код по метке без учёта регистра и лишних пробелов.
func (c catalog) lookup(label string) (string, bool) {
	key := NormalizeLabel(label)
	for i, l := range c.labels {
		if NormalizeLabel(l) == key {
			return c.codes[i], true
		}
	}
	for _, code := range c.codes {
		if code == key {
			return code, true
		}
	}
	return "", false
}

func (c catalog) label(code string) string {
	for i, cc := range c.codes {
		if cc == code {
			return c.labels[i]
		}
	}
	return ""
}

func (c catalog) allLabels() []string {
	out := make([]string, len(c.labels))
	copy(out, c.labels)
	return out
}

// NormalizeLabel приводит метку к виду для сравнения: нижний регистр, одиночные пробелы.
func NormalizeLabel(label string) string {
	return strings.ToLower(strings.Join(strings.Fields(label), " "))
}

// parseChoice разбирает метку в пару (код, свободный текст).
// Пустая строка даёт пустое значение, неизвестная метка - вариант other.
func parseChoice(c catalog, other, label string) (string, string) {
	trimmed := strings.TrimSpace(label)
	if trimmed == "" {
		return "", ""
	}
	if code, ok := c.lookup(trimmed); ok && code != other {
		return code, ""
	}
	if NormalizeLabel(trimmed) == other {
		return other, ""
	}
	return other, trimmed
}

// choiceLabel возвращает отображаемую метку для пары (код, свободный текст).
func choiceLabel(c catalog, other, code, custom string) string {
	if code == other {
		if t := strings.TrimSpace(custom); t != "" {
			return t
		}
		return c.label(other)
	}
	return c.label(code)
}
