package rollout

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/codex-go/agentcore/internal/models"
)

func TestWriter_CreateAppendReadAll_PreservesOrder(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "thread.jsonl")

	w, err := Create(path, SessionMeta{ThreadID: "thread-1", CreatedAt: time.Now(), CLIVersion: "test"})
	require.NoError(t, err)

	require.NoError(t, w.Append(NewEventItem(TurnStartedEvent("t1"))))
	require.NoError(t, w.Append(NewResponseItem(models.ConversationItem{Type: models.ItemTypeUserMessage, Content: "hi"})))
	require.NoError(t, w.Append(NewEventItem(TurnCompleteEvent("t1"))))
	require.NoError(t, w.Close())

	items, err := ReadAll(path)
	require.NoError(t, err)
	require.Len(t, items, 4)
	assert.Equal(t, ItemSessionMeta, items[0].Type)
	assert.Equal(t, ItemEventMsg, items[1].Type)
	assert.Equal(t, EventTurnStarted, items[1].EventMsg.Type)
	assert.Equal(t, ItemResponseItem, items[2].Type)
	assert.Equal(t, "hi", items[2].ResponseItem.Content)
	assert.Equal(t, EventTurnComplete, items[3].EventMsg.Type)
}

func TestWriter_Create_RefusesExistingFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "thread.jsonl")

	w, err := Create(path, SessionMeta{ThreadID: "t", CreatedAt: time.Now()})
	require.NoError(t, err)
	require.NoError(t, w.Close())

	_, err = Create(path, SessionMeta{ThreadID: "t", CreatedAt: time.Now()})
	assert.Error(t, err)
}

func TestPath_UsesUTCDateAndThreadID(t *testing.T) {
	created := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	got := Path("/home/.codex", "abc-123", created)
	assert.Equal(t, filepath.Join("/home/.codex", "sessions", "2026-01-02", "abc-123.jsonl"), got)
}
