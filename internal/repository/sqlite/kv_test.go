package sqlite

import (
	"context"
	"log/slog"
	"strings"
	"testing"

	"dressline/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestKV(t *testing.T, opts KVOptions) *KVStore {
	t.Helper()
	db, err := OpenBackupStore(context.Background(), ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewKVStore(&RepositoryConfig{DB: db, Logger: slog.New(slog.DiscardHandler)}, opts)
}

func TestKVGetSetDelete(t *testing.T) {
	ctx := context.Background()
	kv := newTestKV(t, KVOptions{})

	_, err := kv.Get(ctx, "missing")
	assert.ErrorIs(t, err, domain.ErrNotFound)

	require.NoError(t, kv.Set(ctx, "a", "1"))
	require.NoError(t, kv.Set(ctx, "a", "2"))
	v, err := kv.Get(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, "2", v)

	require.NoError(t, kv.Delete(ctx, "a"))
	require.NoError(t, kv.Delete(ctx, "a"))
	_, err = kv.Get(ctx, "a")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestKVKeysPrefixTreatsUnderscoreLiterally(t *testing.T) {
	ctx := context.Background()
	kv := newTestKV(t, KVOptions{})
	for _, k := range []string{"pdf_backup_1", "pdf_backup_meta_1", "pdfXbackup_2", "other"} {
		require.NoError(t, kv.Set(ctx, k, "x"))
	}

	keys, err := kv.Keys(ctx, "pdf_backup_")
	require.NoError(t, err)
	assert.Equal(t, []string{"pdf_backup_1", "pdf_backup_meta_1"}, keys)
}

func TestKVValueLimit(t *testing.T) {
	ctx := context.Background()
	kv := newTestKV(t, KVOptions{MaxValueBytes: 10})

	require.NoError(t, kv.Set(ctx, "k", strings.Repeat("x", 10)))
	err := kv.Set(ctx, "k", strings.Repeat("x", 11))
	assert.ErrorIs(t, err, domain.ErrQuotaExceeded)
	assert.ErrorIs(t, err, domain.ErrStorage)
}

func TestKVQuotaCountsReplacedValue(t *testing.T) {
	ctx := context.Background()
	kv := newTestKV(t, KVOptions{QuotaBytes: 20})

	require.NoError(t, kv.Set(ctx, "a", strings.Repeat("x", 9))) // 10 bytes
	require.NoError(t, kv.Set(ctx, "b", strings.Repeat("x", 9))) // 20 bytes
	assert.ErrorIs(t, kv.Set(ctx, "c", ""), domain.ErrQuotaExceeded)

	// overwriting in place frees the old value first
	require.NoError(t, kv.Set(ctx, "a", strings.Repeat("y", 9)))

	used, err := kv.Usage(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(20), used)
}
