package tester

import (
	"context"
	"log/slog"
	"testing"

	"dressline/internal/domain/repositories"
	ebookRepo "dressline/internal/domain/repositories/ebook"
	"dressline/internal/repository/sqlite"

	"github.com/stretchr/testify/require"
)

// Store bundles the repositories of one in-memory local store.
type Store struct {
	Books   ebookRepo.BookRepository
	Modules ebookRepo.ModuleRepository
	Tx      repositories.TransactionManager
}

// Logger discards everything.
func Logger() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

// LocalStore opens a migrated in-memory local store closed at test cleanup.
func LocalStore(t testing.TB) *Store {
	t.Helper()
	db, err := sqlite.OpenLocalStore(context.Background(), ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	cfg := &sqlite.RepositoryConfig{DB: db, Logger: Logger()}
	return &Store{
		Books:   sqlite.NewBookRepository(cfg),
		Modules: sqlite.NewModuleRepository(cfg),
		Tx:      sqlite.NewTransactionManager(db),
	}
}

// BackupStore opens an in-memory SQLite backup medium.
func BackupStore(t testing.TB, opts sqlite.KVOptions) *sqlite.KVStore {
	t.Helper()
	db, err := sqlite.OpenBackupStore(context.Background(), ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	return sqlite.NewKVStore(&sqlite.RepositoryConfig{DB: db, Logger: Logger()}, opts)
}
