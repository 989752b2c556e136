package badger

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rashmirrout/loglens/core"
	"github.com/rashmirrout/loglens/storage"
)

func newTestSessionStore(t *testing.T) *SessionStore {
	t.Helper()
	store, err := NewMemorySessionStore()
	require.NoError(t, err)
	t.Cleanup(func() {
		require.NoError(t, store.Close())
	})
	return store.(*SessionStore)
}

func TestAppendAndHistory(t *testing.T) {
	store := newTestSessionStore(t)
	ctx := context.Background()

	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	messages := []*core.ChatMessage{
		{IssueID: "issue-1", Role: core.RoleUser, Message: "why did it crash?", Timestamp: base},
		{IssueID: "issue-1", Role: core.RoleAssistant, Message: "out of memory at 12:04", References: []string{"app.log (lines 10-18)"}, Timestamp: base.Add(time.Second)},
		{IssueID: "issue-2", Role: core.RoleUser, Message: "unrelated", Timestamp: base},
	}
	require.NoError(t, store.AppendMessages(ctx, messages...))

	history, err := store.History(ctx, "issue-1", 0)
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, core.RoleUser, history[0].Role)
	assert.Equal(t, core.RoleAssistant, history[1].Role)
	assert.Equal(t, []string{"app.log (lines 10-18)"}, history[1].References)

	// IDs were assigned
	assert.NotZero(t, history[0].Id)
	assert.NotZero(t, history[1].Id)
}

func TestHistoryChronologicalOrder(t *testing.T) {
	store := newTestSessionStore(t)
	ctx := context.Background()

	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	// Append out of chronological order
	require.NoError(t, store.AppendMessages(ctx,
		&core.ChatMessage{IssueID: "issue-1", Role: core.RoleUser, Message: "third", Timestamp: base.Add(2 * time.Second)},
		&core.ChatMessage{IssueID: "issue-1", Role: core.RoleUser, Message: "first", Timestamp: base},
		&core.ChatMessage{IssueID: "issue-1", Role: core.RoleUser, Message: "second", Timestamp: base.Add(time.Second)},
	))

	history, err := store.History(ctx, "issue-1", 0)
	require.NoError(t, err)
	require.Len(t, history, 3)
	assert.Equal(t, "first", history[0].Message)
	assert.Equal(t, "second", history[1].Message)
	assert.Equal(t, "third", history[2].Message)
}

func TestHistoryLimitKeepsMostRecent(t *testing.T) {
	store := newTestSessionStore(t)
	ctx := context.Background()

	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	for i := 0; i < 5; i++ {
		require.NoError(t, store.AppendMessages(ctx, &core.ChatMessage{
			IssueID:   "issue-1",
			Role:      core.RoleUser,
			Message:   string(rune('a' + i)),
			Timestamp: base.Add(time.Duration(i) * time.Second),
		}))
	}

	history, err := store.History(ctx, "issue-1", 2)
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, "d", history[0].Message)
	assert.Equal(t, "e", history[1].Message)
}

func TestHistoryEmptyIssue(t *testing.T) {
	store := newTestSessionStore(t)

	history, err := store.History(context.Background(), "missing", 10)
	require.NoError(t, err)
	assert.Empty(t, history)
}

func TestClosedStoreRejectsOperations(t *testing.T) {
	store, err := NewMemorySessionStore()
	require.NoError(t, err)
	require.NoError(t, store.Close())

	ctx := context.Background()
	err = store.AppendMessages(ctx, &core.ChatMessage{
		IssueID: "issue-1",
		Role:    core.RoleUser,
		Message: "too late",
	})
	assert.ErrorIs(t, err, storage.ErrStorageClosed)

	_, err = store.History(ctx, "issue-1", 0)
	assert.ErrorIs(t, err, storage.ErrStorageClosed)

	assert.ErrorIs(t, store.ClearHistory(ctx, "issue-1"), storage.ErrStorageClosed)
}

func TestClearHistory(t *testing.T) {
	store := newTestSessionStore(t)
	ctx := context.Background()

	require.NoError(t, store.AppendMessages(ctx,
		&core.ChatMessage{IssueID: "issue-1", Role: core.RoleUser, Message: "keep me out"},
		&core.ChatMessage{IssueID: "issue-2", Role: core.RoleUser, Message: "survivor"},
	))

	require.NoError(t, store.ClearHistory(ctx, "issue-1"))

	history, err := store.History(ctx, "issue-1", 0)
	require.NoError(t, err)
	assert.Empty(t, history)

	other, err := store.History(ctx, "issue-2", 0)
	require.NoError(t, err)
	assert.Len(t, other, 1)
}
