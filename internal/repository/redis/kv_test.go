package redis

import (
	"context"
	"log/slog"
	"os"
	"strings"
	"testing"

	"dressline/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEscapeGlob(t *testing.T) {
	assert.Equal(t, `pdf_backup_`, escapeGlob("pdf_backup_"))
	assert.Equal(t, `a\*b\?c\[d\]\\`, escapeGlob(`a*b?c[d]\`))
}

func TestValueLimitCheckedBeforeNetwork(t *testing.T) {
	// the client is never dialled: the limit check happens first
	s := NewKVStoreWithClient(nil, Options{MaxValueBytes: 4}, slog.New(slog.DiscardHandler))
	err := s.Set(context.Background(), "k", "12345")
	assert.ErrorIs(t, err, domain.ErrQuotaExceeded)
}

// TestRedisRoundTrip runs against a live server when REDIS_ADDR is set.
func TestRedisRoundTrip(t *testing.T) {
	addr := os.Getenv("REDIS_ADDR")
	if addr == "" {
		t.Skip("REDIS_ADDR not set")
	}
	ctx := context.Background()
	prefix := "dressline-test:" + strings.ReplaceAll(t.Name(), "/", "_") + ":"

	s, err := NewKVStore(ctx, Options{Addr: addr, KeyPrefix: prefix}, slog.New(slog.DiscardHandler))
	require.NoError(t, err)
	defer s.Close()
	t.Cleanup(func() {
		keys, _ := s.Keys(context.Background(), "")
		for _, k := range keys {
			_ = s.Delete(context.Background(), k)
		}
	})

	_, err = s.Get(ctx, "missing")
	assert.ErrorIs(t, err, domain.ErrNotFound)

	require.NoError(t, s.Set(ctx, "pdf_backup_1", "a"))
	require.NoError(t, s.Set(ctx, "pdf_backup_meta_1", "b"))
	require.NoError(t, s.Set(ctx, "other", "c"))

	keys, err := s.Keys(ctx, "pdf_backup_")
	require.NoError(t, err)
	assert.Equal(t, []string{"pdf_backup_1", "pdf_backup_meta_1"}, keys)

	v, err := s.Get(ctx, "pdf_backup_1")
	require.NoError(t, err)
	assert.Equal(t, "a", v)
}
