package store

import (
	"context"
	"errors"
	"os"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/ppiankov/truthpost/internal/model"
)

func resolution(v model.Verdict) model.Resolution {
	return model.Resolution{
		Verdict:     v,
		Explanation: "checked against the source",
		Digest:      "bafkreitest",
		ResolvedAt:  time.Now(),
	}
}

// runStoreContract exercises behaviour every backend must share. The store
// must be empty with its sequence at zero.
func runStoreContract(t *testing.T, s Store) {
	ctx := context.Background()

	var ids []string
	for _, d := range []Draft{
		{Text: "claim one", SourceURL: "https://example.com/1", Submitter: "alice"},
		{Text: "claim two", SourceURL: "https://example.com/2", Submitter: "bob"},
		{Text: "claim three", SourceURL: "https://example.com/3", Submitter: "alice"},
	} {
		c, err := s.Submit(ctx, d)
		require.NoError(t, err)
		assert.Equal(t, model.VerdictPending, c.Verdict)
		assert.False(t, c.Resolved)
		assert.Empty(t, c.Explanation)
		ids = append(ids, c.ID)
	}
	assert.Equal(t, []string{"claim_1", "claim_2", "claim_3"}, ids)

	_, err := s.Get(ctx, "claim_99")
	assert.ErrorIs(t, err, ErrNotFound)

	score, err := s.UserReputation(ctx, "nobody")
	require.NoError(t, err)
	assert.Equal(t, int64(0), score)

	_, err = s.Resolve(ctx, "claim_1", resolution(model.VerdictPending))
	require.Error(t, err)
	c, err := s.Get(ctx, "claim_1")
	require.NoError(t, err)
	assert.False(t, c.Resolved, "non-terminal verdict must not be written")

	resolved, err := s.Resolve(ctx, "claim_1", resolution(model.VerdictFalse))
	require.NoError(t, err)
	assert.True(t, resolved.Resolved)
	assert.Equal(t, model.VerdictFalse, resolved.Verdict)
	assert.NotNil(t, resolved.ResolvedAt)

	_, err = s.Resolve(ctx, "claim_1", resolution(model.VerdictTrue))
	assert.ErrorIs(t, err, ErrAlreadyResolved)

	_, err = s.Resolve(ctx, "claim_404", resolution(model.VerdictTrue))
	assert.ErrorIs(t, err, ErrNotFound)

	stored, err := s.Get(ctx, "claim_1")
	require.NoError(t, err)
	assert.Equal(t, model.VerdictFalse, stored.Verdict, "second resolution must not overwrite")

	score, err = s.UserReputation(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, int64(1), score)

	var wins atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := s.Resolve(ctx, "claim_2", resolution(model.VerdictTrue))
			if err == nil {
				wins.Add(1)
			} else if !errors.Is(err, ErrAlreadyResolved) {
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, int32(1), wins.Load(), "exactly one concurrent resolution may commit")

	rep, err := s.Reputation(ctx)
	require.NoError(t, err)
	assert.Equal(t, map[string]int64{"alice": 1, "bob": 1}, rep)

	all, err := s.List(ctx)
	require.NoError(t, err)
	require.Len(t, all, 3)
	for i, c := range all {
		assert.Equal(t, ids[i], c.ID)
	}
	assert.False(t, all[2].Resolved)
}

func TestMemoryStore_Contract(t *testing.T) {
	runStoreContract(t, NewMemoryStore())
}

func TestMemoryClaimStore_InsertionOrder(t *testing.T) {
	s := NewMemoryClaimStore()
	s.Put(model.Claim{ID: "claim_2"})
	s.Put(model.Claim{ID: "claim_1"})
	s.Put(model.Claim{ID: "claim_2", Text: "overwritten"})

	all := s.All()
	require.Len(t, all, 2)
	assert.Equal(t, "claim_2", all[0].ID)
	assert.Equal(t, "overwritten", all[0].Text)
	assert.True(t, s.Contains("claim_1"))
	assert.False(t, s.Contains("claim_3"))
}

func TestMemoryReputationLedger(t *testing.T) {
	l := NewMemoryReputationLedger()
	assert.Equal(t, int64(0), l.Get("carol"))

	l.Increment("carol")
	l.Increment("carol")
	assert.Equal(t, int64(2), l.Get("carol"))

	snapshot := l.All()
	snapshot["carol"] = 100
	assert.Equal(t, int64(2), l.Get("carol"), "All must return a copy")
}

func TestPostgresStore_Contract(t *testing.T) {
	dsn := os.Getenv("TRUTHPOST_TEST_POSTGRES_URL")
	if dsn == "" {
		t.Skip("TRUTHPOST_TEST_POSTGRES_URL not set")
	}
	ctx := context.Background()

	s, err := OpenPostgres(ctx, dsn)
	require.NoError(t, err)
	defer func() { _ = s.Close() }()

	_, err = s.db.Exec(ctx, `TRUNCATE claims, reputation`)
	require.NoError(t, err)
	_, err = s.db.Exec(ctx, `UPDATE claim_sequence SET value = 0`)
	require.NoError(t, err)

	runStoreContract(t, s)
}

func TestGormStore_Contract(t *testing.T) {
	dsn := os.Getenv("TRUTHPOST_TEST_MYSQL_DSN")
	if dsn == "" {
		t.Skip("TRUTHPOST_TEST_MYSQL_DSN not set")
	}

	s, err := OpenMySQL(dsn)
	require.NoError(t, err)
	defer func() { _ = s.Close() }()

	require.NoError(t, s.db.Exec("DELETE FROM claims").Error)
	require.NoError(t, s.db.Exec("DELETE FROM reputation").Error)
	require.NoError(t, s.db.Exec("UPDATE claim_sequence SET value = 0").Error)

	runStoreContract(t, s)
}

func TestOpen_Drivers(t *testing.T) {
	ctx := context.Background()
	logger := zap.NewNop()

	s, err := Open(ctx, model.StorageConfig{Driver: "memory"}, logger)
	require.NoError(t, err)
	assert.IsType(t, &MemoryStore{}, s)

	_, err = Open(ctx, model.StorageConfig{Driver: "postgres"}, logger)
	assert.ErrorContains(t, err, "dsn is required")

	_, err = Open(ctx, model.StorageConfig{Driver: "sqlite"}, logger)
	assert.ErrorContains(t, err, "unknown storage driver")
}

func TestEnsureParam(t *testing.T) {
	assert.Equal(t, "user@/db?parseTime=true", ensureParam("user@/db", "parseTime", "true"))
	assert.Equal(t, "user@/db?a=1&parseTime=true", ensureParam("user@/db?a=1", "parseTime", "true"))
	assert.Equal(t, "user@/db?parseTime=false", ensureParam("user@/db?parseTime=false", "parseTime", "true"))
}
