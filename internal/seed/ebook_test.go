package seed

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	models "dressline/internal/domain/models/ebook"
	"dressline/internal/repository/sqlite"
	ebookService "dressline/internal/service/ebook"
	"dressline/internal/tester"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newSeeder(t *testing.T) (*Seeder, *tester.Store) {
	t.Helper()
	store := tester.LocalStore(t)
	kv := tester.BackupStore(t, sqlite.KVOptions{})
	snapshot := ebookService.NewSnapshotService(store.Books, store.Modules, store.Tx, kv, nil, tester.Logger())
	return NewSeeder(store.Books, store.Modules, snapshot, tester.Logger()), store
}

func TestBootstrapUsesInitialContent(t *testing.T) {
	seeder, store := newSeeder(t)
	ctx := context.Background()

	source, err := seeder.Bootstrap(ctx, filepath.Join(t.TempDir(), "missing.json"))
	require.NoError(t, err)
	assert.Equal(t, SourceInitial, source)

	modules, err := store.Modules.ListAll(ctx)
	require.NoError(t, err)
	require.Len(t, modules, 5)
	assert.Equal(t, "Kirish", modules[0].Title)

	source, err = seeder.Bootstrap(ctx, "")
	require.NoError(t, err)
	assert.Equal(t, SourceExisting, source)
}

func TestBootstrapLoadsStaticFileWithoutDuplicates(t *testing.T) {
	seeder, store := newSeeder(t)
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "static-data.json")
	require.NoError(t, os.WriteFile(path, []byte(`{
		"books": [{"id": 2, "title": "Statik", "welcomeContent": "", "bibliography": ""}],
		"modules": [
			{"id": 1, "bookId": 2, "title": "A", "content": "", "order": 1},
			{"id": 2, "bookId": 2, "title": "A", "content": "", "order": 2},
			{"id": 3, "bookId": 2, "title": "B", "content": "", "order": 3}
		]
	}`), 0o600))

	source, err := seeder.Bootstrap(ctx, path)
	require.NoError(t, err)
	assert.Equal(t, SourceStatic, source)

	modules, err := store.Modules.ListByBook(ctx, 2)
	require.NoError(t, err)
	assert.Equal(t, []int64{1, 3}, []int64{modules[0].ID, modules[1].ID})
}

func TestBootstrapFallsBackOnBadStaticFile(t *testing.T) {
	seeder, store := newSeeder(t)
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "static-data.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"books": [`), 0o600))

	source, err := seeder.Bootstrap(ctx, path)
	require.NoError(t, err)
	assert.Equal(t, SourceInitial, source)

	books, err := store.Books.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, "DressLine", books[0].Title)
}

func TestUniqueByTitle(t *testing.T) {
	modules := []models.Module{{ID: 1, Title: "x"}, {ID: 2, Title: "y"}, {ID: 3, Title: "x"}}
	assert.Equal(t, []models.Module{{ID: 1, Title: "x"}, {ID: 2, Title: "y"}}, UniqueByTitle(modules))
}
