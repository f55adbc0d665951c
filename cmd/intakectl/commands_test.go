package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ignatzorin/order-intake/internal/vocabulary"
)

func run(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	cmd := rootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestEstimateCommand(t *testing.T) {
	out, err := run(t, "", "estimate", "--pages", "5", "--urgency", "standard")
	require.NoError(t, err)

	var fees map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(out), &fees))
	assert.Contains(t, fees, "budget")
	assert.Contains(t, fees, "service_fee")
	assert.Contains(t, fees, "total")
}

func TestEstimateCommand_RejectsUnknownUrgency(t *testing.T) {
	_, err := run(t, "", "estimate", "--urgency", "asap")
	assert.Error(t, err)
}

func TestMapCommand_FromStdin(t *testing.T) {
	draft := `{"title":"Remote work","subject":"History","order_type":"Term Paper",
		"academic_level":"Undergraduate","page_count":3,"deadline":"2026-10-17T12:00:00+03:00",
		"urgency":"urgent","description":"Desc","instructions":"Instr","citation_style":"APA",
		"source_count":2,"payment_method":"card"}`

	out, err := run(t, draft, "map")
	require.NoError(t, err)

	var req map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(out), &req))
	assert.Equal(t, "research paper", req["type"])
	assert.Equal(t, "bachelors", req["level"])
	assert.Equal(t, "apa7", req["style"])
	assert.Equal(t, "history", req["subject"])
	assert.Equal(t, "medium", req["urgency"])
	assert.Equal(t, "2026-10-17T09:00:00Z", req["deadline"])
	assert.Equal(t, "Desc\n\nInstr", req["instructions"])
}

func TestMapCommand_WithVocabularyFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "vocabulary.yaml")
	require.NoError(t, os.WriteFile(path, []byte("order_type:\n  Term Paper: term paper\n"), 0o600))

	out, err := run(t, `{"order_type":"Term Paper"}`, "map", "--vocabulary", path)
	require.NoError(t, err)
	assert.Contains(t, out, `"type": "term paper"`)
}

func TestMigrateCommand_RequiresDatabaseURL(t *testing.T) {
	_, err := run(t, "", "migrate", "--database-url", "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "database url is required")
}

type recordingStore struct {
	entries []vocabulary.Entry
	err     error
}

func (s *recordingStore) Replace(_ context.Context, entries []vocabulary.Entry) error {
	s.entries = entries
	return s.err
}

func TestImportVocabulary_ReplacesEntriesFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "vocabulary.yaml")
	doc := "order_type:\n  Term Paper: term paper\n  Lab Report: lab report\ncitation_style:\n  APA 6: apa6\n"
	require.NoError(t, os.WriteFile(path, []byte(doc), 0o600))

	store := &recordingStore{}
	n, err := importVocabulary(context.Background(), store, path)

	require.NoError(t, err)
	assert.Equal(t, 3, n)
	assert.Equal(t, []vocabulary.Entry{
		{Kind: vocabulary.KindOrderType, Label: "Lab Report", Token: "lab report"},
		{Kind: vocabulary.KindOrderType, Label: "Term Paper", Token: "term paper"},
		{Kind: vocabulary.KindCitationStyle, Label: "APA 6", Token: "apa6"},
	}, store.entries)
}

func TestImportVocabulary_Errors(t *testing.T) {
	_, err := importVocabulary(context.Background(), &recordingStore{}, filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)

	path := filepath.Join(t.TempDir(), "vocabulary.yaml")
	require.NoError(t, os.WriteFile(path, []byte("order_type:\n  Essay: essay\n"), 0o600))
	failing := &recordingStore{err: errors.New("connection refused")}
	_, err = importVocabulary(context.Background(), failing, path)
	assert.ErrorContains(t, err, "connection refused")
}

func TestVocabularyImportCommand_RequiresDatabaseURL(t *testing.T) {
	_, err := run(t, "", "vocabulary", "import", "--file", "x.yaml", "--database-url", "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "database url is required")
}
