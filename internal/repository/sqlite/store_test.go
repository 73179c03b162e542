package sqlite

import (
	"context"
	"errors"
	"log/slog"
	"path/filepath"
	"testing"

	"dressline/internal/domain"
	models "dressline/internal/domain/models/ebook"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testStore struct {
	books   *SQLiteBookRepository
	modules *SQLiteModuleRepository
	tx      *TransactionManager
}

func newTestStore(t *testing.T) *testStore {
	t.Helper()
	db, err := OpenLocalStore(context.Background(), ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	cfg := &RepositoryConfig{DB: db, Logger: slog.New(slog.DiscardHandler)}
	return &testStore{
		books:   NewBookRepository(cfg).(*SQLiteBookRepository),
		modules: NewModuleRepository(cfg).(*SQLiteModuleRepository),
		tx:      NewTransactionManager(db).(*TransactionManager),
	}
}

func strPtr(s string) *string { return &s }

func TestMigrationsAreVersioned(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "store.db")

	db, err := OpenLocalStore(ctx, path)
	require.NoError(t, err)
	version, err := SchemaVersion(ctx, db)
	require.NoError(t, err)
	assert.Equal(t, localStoreMigrations[len(localStoreMigrations)-1].version, version)
	require.NoError(t, CheckIntegrity(ctx, db))
	require.NoError(t, db.Close())

	// reopening must not re-apply migrations
	db, err = OpenLocalStore(ctx, path)
	require.NoError(t, err)
	defer db.Close()
	var applied int
	require.NoError(t, db.QueryRowContext(ctx, "SELECT COUNT(*) FROM schema_version").Scan(&applied))
	assert.Equal(t, len(localStoreMigrations), applied)
}

func TestBookCRUD(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	book := &models.Book{Title: "T", WelcomeContent: "<p>w</p>", Bibliography: "<p>b</p>"}
	require.NoError(t, s.books.Create(ctx, book))
	assert.NotZero(t, book.ID)

	got, err := s.books.GetByID(ctx, book.ID)
	require.NoError(t, err)
	assert.Equal(t, book, got)

	updated, err := s.books.Update(ctx, book.ID, models.BookPatch{Title: strPtr("T2")})
	require.NoError(t, err)
	assert.Equal(t, "T2", updated.Title)
	assert.Equal(t, "<p>w</p>", updated.WelcomeContent, "unsupplied fields are kept")

	_, err = s.books.Update(ctx, 999, models.BookPatch{Title: strPtr("x")})
	assert.ErrorIs(t, err, domain.ErrNotFound)

	n, err := s.books.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	require.NoError(t, s.books.Delete(ctx, book.ID))
	_, err = s.books.GetByID(ctx, book.ID)
	assert.ErrorIs(t, err, domain.ErrNotFound)
	assert.ErrorIs(t, s.books.Delete(ctx, book.ID), domain.ErrNotFound)
}

func TestGetOrCreateDefaultBook(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	book, err := s.books.GetOrCreateDefault(ctx)
	require.NoError(t, err)
	assert.Equal(t, models.DefaultBookTitle, book.Title)
	assert.Equal(t, models.DefaultBookWelcome, book.WelcomeContent)
	assert.Equal(t, models.DefaultBookBibliography, book.Bibliography)

	again, err := s.books.GetOrCreateDefault(ctx)
	require.NoError(t, err)
	assert.Equal(t, book.ID, again.ID)

	n, err := s.books.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestFirstBookIsLowestID(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	require.NoError(t, s.books.BulkInsert(ctx, []models.Book{{ID: 7, Title: "seven"}, {ID: 3, Title: "three"}}))

	first, err := s.books.First(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(3), first.ID)
}

func TestModuleCreateRejectsOrphan(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	err := s.modules.Create(ctx, &models.Module{BookID: 42, Title: "A", Order: 1})
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrOrphanedModule)
	var orphan *domain.OrphanedModuleError
	require.True(t, errors.As(err, &orphan))
	assert.Equal(t, int64(42), orphan.BookID)

	n, err := s.modules.Count(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestModuleUpdateValidatesBookChange(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	book := &models.Book{Title: "T"}
	require.NoError(t, s.books.Create(ctx, book))
	module := &models.Module{BookID: book.ID, Title: "A", Order: 1}
	require.NoError(t, s.modules.Create(ctx, module))

	missing := int64(500)
	_, err := s.modules.Update(ctx, module.ID, models.ModulePatch{BookID: &missing})
	assert.ErrorIs(t, err, domain.ErrOrphanedModule)

	updated, err := s.modules.Update(ctx, module.ID, models.ModulePatch{Content: strPtr("<p>x</p>")})
	require.NoError(t, err)
	assert.Equal(t, "<p>x</p>", updated.Content)
	assert.Equal(t, "A", updated.Title)
}

func TestListByBookSortedByOrder(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	require.NoError(t, s.books.BulkInsert(ctx, []models.Book{{ID: 1, Title: "T"}, {ID: 2, Title: "U"}}))
	require.NoError(t, s.modules.BulkInsert(ctx, []models.Module{
		{ID: 1, BookID: 1, Title: "C", Order: 3},
		{ID: 2, BookID: 1, Title: "A", Order: 1},
		{ID: 3, BookID: 2, Title: "other", Order: 1},
		{ID: 4, BookID: 1, Title: "B", Order: 2},
	}))

	modules, err := s.modules.ListByBook(ctx, 1)
	require.NoError(t, err)
	require.Len(t, modules, 3)
	assert.Equal(t, []string{"A", "B", "C"}, []string{modules[0].Title, modules[1].Title, modules[2].Title})

	max, err := s.modules.MaxOrder(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, 3, max)

	max, err = s.modules.MaxOrder(ctx, 99)
	require.NoError(t, err)
	assert.Zero(t, max)
}

func TestAttachmentVariantsPersist(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	require.NoError(t, s.modules.BulkInsert(ctx, []models.Module{
		{ID: 1, BookID: 1, Title: "none", Order: 1},
		{ID: 2, BookID: 1, Title: "inline", Order: 2, PDFAttachment: models.NewInlineAttachment("a.pdf", "aGVsbG8=")},
		{ID: 3, BookID: 1, Title: "legacy", Order: 3, PDFAttachment: models.NewLegacyAttachment("blob:abc")},
	}))

	all, err := s.modules.ListAll(ctx)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Nil(t, all[0].PDFAttachment)
	assert.Equal(t, models.NewInlineAttachment("a.pdf", "aGVsbG8="), all[1].PDFAttachment)
	assert.Equal(t, models.NewLegacyAttachment("blob:abc"), all[2].PDFAttachment)

	require.NoError(t, s.modules.SetAttachment(ctx, 2, nil))
	m, err := s.modules.GetByID(ctx, 2)
	require.NoError(t, err)
	assert.Nil(t, m.PDFAttachment)

	assert.ErrorIs(t, s.modules.SetAttachment(ctx, 99, nil), domain.ErrNotFound)
}

func TestBulkInsertPreservesIDsAndIsAtomic(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	require.NoError(t, s.books.BulkInsert(ctx, []models.Book{{ID: 10, Title: "ten"}, {Title: "auto"}}))
	books, err := s.books.List(ctx)
	require.NoError(t, err)
	require.Len(t, books, 2)
	assert.Equal(t, int64(10), books[0].ID)
	assert.Greater(t, books[1].ID, int64(10))

	// duplicate ID in the batch: nothing from the batch is kept
	err = s.modules.BulkInsert(ctx, []models.Module{{ID: 5, BookID: 10}, {ID: 6, BookID: 10}, {ID: 5, BookID: 10}})
	assert.ErrorIs(t, err, domain.ErrConflict)
	n, err := s.modules.Count(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestUpdateOrders(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	require.NoError(t, s.modules.BulkInsert(ctx, []models.Module{{ID: 1, BookID: 1, Order: 5}, {ID: 2, BookID: 1, Order: 9}}))

	require.NoError(t, s.modules.UpdateOrders(ctx, map[int64]int{1: 2, 2: 1}))
	modules, err := s.modules.ListByBook(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, int64(2), modules[0].ID)
	assert.Equal(t, 1, modules[0].Order)

	err = s.modules.UpdateOrders(ctx, map[int64]int{1: 1, 77: 2})
	assert.ErrorIs(t, err, domain.ErrNotFound)
	m, err := s.modules.GetByID(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, 2, m.Order, "failed batch rolls back")
}

func TestTransactionRollsBackClearAndInsert(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	require.NoError(t, s.books.BulkInsert(ctx, []models.Book{{ID: 1, Title: "keep"}}))

	err := s.tx.ExecTx(ctx, func(ctx context.Context) error {
		if err := s.books.DeleteAll(ctx); err != nil {
			return err
		}
		return s.books.BulkInsert(ctx, []models.Book{{ID: 2}, {ID: 2}})
	})
	require.Error(t, err)

	books, err := s.books.List(ctx)
	require.NoError(t, err)
	require.Len(t, books, 1)
	assert.Equal(t, "keep", books[0].Title)
}

func TestClearAll(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	require.NoError(t, s.books.BulkInsert(ctx, []models.Book{{ID: 1}}))
	require.NoError(t, s.modules.BulkInsert(ctx, []models.Module{{ID: 1, BookID: 1}}))

	require.NoError(t, s.modules.DeleteAll(ctx))
	require.NoError(t, s.books.DeleteAll(ctx))

	nb, _ := s.books.Count(ctx)
	nm, _ := s.modules.Count(ctx)
	assert.Zero(t, nb)
	assert.Zero(t, nm)
}
