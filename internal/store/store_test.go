package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStore(t *testing.T) {
	ctx := context.Background()
	st := NewMemoryStore[string](0)

	_, err := st.Get(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, st.Save(ctx, "a", "one"))
	v, err := st.Get(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, "one", v)

	require.NoError(t, st.Delete(ctx, "a"))
	_, err = st.Get(ctx, "a")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemoryStoreExpiry(t *testing.T) {
	ctx := context.Background()
	st := NewMemoryStore[int](time.Hour).(*memory[int])
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	st.now = func() time.Time { return now }

	require.NoError(t, st.Save(ctx, "a", 1))
	now = now.Add(2 * time.Hour)
	_, err := st.Get(ctx, "a")
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, st.Save(ctx, "b", 2))
	assert.Len(t, st.items, 1, "expired entries are swept on save")
}

func openTest(t *testing.T) *SQLite {
	t.Helper()
	db, err := OpenSQLite(filepath.Join(t.TempDir(), "nested", "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func TestMigrateIsIdempotent(t *testing.T) {
	db := openTest(t)
	require.NoError(t, migrate(db.db))

	var n int
	require.NoError(t, db.db.QueryRow(`SELECT COUNT(*) FROM _migrations`).Scan(&n))
	assert.Equal(t, 1, n)
}

func TestHistoryRoundTrip(t *testing.T) {
	ctx := context.Background()
	db := openTest(t)
	addr := "0x00000000000000000000000000000000000000AA"

	require.NoError(t, db.InsertSession(ctx, SessionRow{ID: "s1", Address: addr, StartedAt: time.Now(), Status: "playing", Stage: 1}))
	require.NoError(t, db.InsertSession(ctx, SessionRow{ID: "s2", Address: "0xother", StartedAt: time.Now(), Status: "playing", Stage: 1}))

	require.NoError(t, db.InsertAttempt(ctx, Attempt{ID: "a1", SessionID: "s1", Stage: 1, Moves: 4, Status: "confirmed", TxHash: "0xabc"}))
	require.NoError(t, db.InsertAttempt(ctx, Attempt{ID: "a2", SessionID: "s1", Stage: 2, Moves: 9, Status: "error", Error: "user rejected"}))
	require.NoError(t, db.InsertAttempt(ctx, Attempt{ID: "a3", SessionID: "s2", Stage: 1, Moves: 2, Status: "skipped"}))

	got, err := db.RecentAttempts(ctx, "0x00000000000000000000000000000000000000aa", 50)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "a2", got[0].ID)
	assert.Equal(t, "user rejected", got[0].Error)
	assert.Equal(t, "0xabc", got[1].TxHash)
	assert.Empty(t, got[0].TxHash)
	assert.NotEmpty(t, got[0].CreatedAt)

	got, err = db.SessionAttempts(ctx, "s2")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "skipped", got[0].Status)

	got, err = db.RecentAttempts(ctx, addr, 1)
	require.NoError(t, err)
	assert.Len(t, got, 1)
}

func TestUpdateSessionKeepsFirstFinish(t *testing.T) {
	ctx := context.Background()
	db := openTest(t)
	require.NoError(t, db.InsertSession(ctx, SessionRow{ID: "s1", StartedAt: time.Now(), Status: "playing", Stage: 1}))

	first := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	later := first.Add(time.Hour)
	require.NoError(t, db.UpdateSession(ctx, SessionRow{ID: "s1", Status: "game_over", Stage: 3, TotalMoves: 20, FinishedAt: &first}))
	require.NoError(t, db.UpdateSession(ctx, SessionRow{ID: "s1", Status: "game_over", Stage: 3, TotalMoves: 20, FinishedAt: &later}))

	var status, finished string
	var stage, moves int
	require.NoError(t, db.db.QueryRow(`SELECT status, stage, total_moves, finished_at FROM sessions WHERE id='s1'`).
		Scan(&status, &stage, &moves, &finished))
	assert.Equal(t, "game_over", status)
	assert.Equal(t, 3, stage)
	assert.Equal(t, 20, moves)
	assert.Equal(t, "2026-03-01T12:00:00.000Z", finished)
}

func TestAttemptRequiresSession(t *testing.T) {
	db := openTest(t)
	err := db.InsertAttempt(context.Background(), Attempt{ID: "a1", SessionID: "nope", Stage: 1, Moves: 1, Status: "error"})
	assert.Error(t, err, "foreign keys are enforced")
}
