package storage

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"finsight/internal/common"
	"finsight/internal/model"
)

func newTestStorage(t *testing.T) *SQLiteStorage {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "test.db")
	store, err := NewSQLiteStorage(dbPath)
	require.NoError(t, err)
	require.NoError(t, store.Migrate(context.Background()))
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func sampleContext(sessionID string) *model.ConversationContext {
	conv := &model.ConversationContext{
		SessionID:     sessionID,
		OriginalQuery: "how much did I spend?",
		State:         model.StateAwaitingClarification,
		Rounds:        1,
		Pending: &model.IntentClassification{
			Intent:             model.IntentAggregate,
			Confidence:         0.9,
			NeedsClarification: true,
			ClarifyQuestion:    "For which month?",
		},
	}
	conv.AddTurn(model.TurnQuery, "how much did I spend?")
	conv.AddTurn(model.TurnClarificationRequest, "For which month?")
	return conv
}

func TestSaveAndGetRoundTrip(t *testing.T) {
	store := newTestStorage(t)
	ctx := context.Background()

	original := sampleContext("s1")
	require.NoError(t, store.Save(ctx, original))

	loaded, err := store.Get(ctx, "s1")
	require.NoError(t, err)

	assert.Equal(t, original.SessionID, loaded.SessionID)
	assert.Equal(t, original.OriginalQuery, loaded.OriginalQuery)
	assert.Equal(t, model.StateAwaitingClarification, loaded.State)
	assert.Equal(t, 1, loaded.Rounds)
	require.NotNil(t, loaded.Pending)
	assert.Equal(t, model.IntentAggregate, loaded.Pending.Intent)
	assert.Equal(t, "For which month?", loaded.Pending.ClarifyQuestion)
	require.Len(t, loaded.Turns, 2)
	assert.Equal(t, model.TurnQuery, loaded.Turns[0].Type)
	assert.Equal(t, model.TurnClarificationRequest, loaded.Turns[1].Type)
}

func TestGetUnknownSession(t *testing.T) {
	store := newTestStorage(t)

	_, err := store.Get(context.Background(), "missing")
	assert.ErrorIs(t, err, common.ErrSessionNotFound)
}

func TestSaveReplacesTurns(t *testing.T) {
	store := newTestStorage(t)
	ctx := context.Background()

	conv := sampleContext("s1")
	require.NoError(t, store.Save(ctx, conv))

	conv.AddTurn(model.TurnClarificationResponse, "in July")
	conv.Rounds = 2
	require.NoError(t, store.Save(ctx, conv))

	loaded, err := store.Get(ctx, "s1")
	require.NoError(t, err)
	require.Len(t, loaded.Turns, 3)
	assert.Equal(t, 2, loaded.Rounds)
	assert.Equal(t, "how much did I spend? in July", loaded.CumulativeQuery())
}

func TestSaveWithoutPendingClassification(t *testing.T) {
	store := newTestStorage(t)
	ctx := context.Background()

	conv := sampleContext("s1")
	conv.Pending = nil
	require.NoError(t, store.Save(ctx, conv))

	loaded, err := store.Get(ctx, "s1")
	require.NoError(t, err)
	assert.Nil(t, loaded.Pending)
}

func TestClearRemovesSessionAndTurns(t *testing.T) {
	store := newTestStorage(t)
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, sampleContext("s1")))
	require.NoError(t, store.Clear(ctx, "s1"))

	_, err := store.Get(ctx, "s1")
	assert.ErrorIs(t, err, common.ErrSessionNotFound)

	var turnCount int
	require.NoError(t, store.db.QueryRow(`SELECT COUNT(*) FROM turns`).Scan(&turnCount))
	assert.Zero(t, turnCount)
}

func TestClearUnknownSessionIsNoOp(t *testing.T) {
	store := newTestStorage(t)
	assert.NoError(t, store.Clear(context.Background(), "missing"))
}

func TestPurgeStale(t *testing.T) {
	store := newTestStorage(t)
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, sampleContext("stale")))
	require.NoError(t, store.Save(ctx, sampleContext("fresh")))

	// Backdate one session past the idle cutoff.
	old := time.Now().UTC().Add(-2 * time.Hour)
	_, err := store.db.Exec(`UPDATE sessions SET updated_at = ? WHERE session_id = ?`, old, "stale")
	require.NoError(t, err)

	purged, err := store.PurgeStale(ctx, 3600)
	require.NoError(t, err)
	assert.Equal(t, 1, purged)

	_, err = store.Get(ctx, "stale")
	assert.ErrorIs(t, err, common.ErrSessionNotFound)
	_, err = store.Get(ctx, "fresh")
	assert.NoError(t, err)
}

func TestMigrateIsIdempotent(t *testing.T) {
	store := newTestStorage(t)
	assert.NoError(t, store.Migrate(context.Background()))
}

func TestReopenPreservesSessions(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "test.db")
	ctx := context.Background()

	store1, err := NewSQLiteStorage(dbPath)
	require.NoError(t, err)
	require.NoError(t, store1.Migrate(ctx))
	require.NoError(t, store1.Save(ctx, sampleContext("s1")))
	require.NoError(t, store1.Close())

	store2, err := NewSQLiteStorage(dbPath)
	require.NoError(t, err)
	defer func() { _ = store2.Close() }()
	require.NoError(t, store2.Migrate(ctx))

	loaded, err := store2.Get(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, model.StateAwaitingClarification, loaded.State)
}
