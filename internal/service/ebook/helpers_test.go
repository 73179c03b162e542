package ebook

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"dressline/internal/domain"
	models "dressline/internal/domain/models/ebook"
	ebookRepo "dressline/internal/domain/repositories/ebook"
	ebookSvc "dressline/internal/domain/services/ebook"
	"dressline/internal/repository/sqlite"
	"dressline/internal/service/sanitizer"
	"dressline/internal/tester"

	"github.com/stretchr/testify/require"
)

type countingTrigger struct{ n atomic.Int32 }

func (c *countingTrigger) Trigger() { c.n.Add(1) }

type fixture struct {
	store    *tester.Store
	kv       *sqlite.KVStore
	trigger  *countingTrigger
	books    ebookSvc.BookService
	modules  ebookSvc.ModuleService
	snapshot ebookSvc.SnapshotService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store := tester.LocalStore(t)
	kv := tester.BackupStore(t, sqlite.KVOptions{})
	trigger := &countingTrigger{}
	html := sanitizer.NewHTMLSanitizer()
	logger := tester.Logger()

	return &fixture{
		store:    store,
		kv:       kv,
		trigger:  trigger,
		books:    NewBookService(store.Books, store.Modules, store.Tx, html, trigger, logger),
		modules:  NewModuleService(store.Modules, store.Tx, html, trigger, logger),
		snapshot: NewSnapshotService(store.Books, store.Modules, store.Tx, kv, trigger, logger),
	}
}

func (f *fixture) seedBook(t *testing.T, title string) *models.Book {
	t.Helper()
	book := &models.Book{Title: title, WelcomeContent: "<p>w</p>", Bibliography: "<p>b</p>"}
	require.NoError(t, f.store.Books.Create(context.Background(), book))
	return book
}

func (f *fixture) seedModule(t *testing.T, bookID int64, title string, order int, att *models.Attachment) *models.Module {
	t.Helper()
	m := &models.Module{BookID: bookID, Title: title, Content: "<p>" + title + "</p>", Order: order, PDFAttachment: att}
	require.NoError(t, f.store.Modules.Create(context.Background(), m))
	return m
}

func orders(modules []models.Module) []int {
	out := make([]int, len(modules))
	for i, m := range modules {
		out[i] = m.Order
	}
	return out
}

func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

// failingModules fails ListAll and passes everything else through.
type failingModules struct {
	ebookRepo.ModuleRepository
}

func (failingModules) ListAll(context.Context) ([]models.Module, error) {
	return nil, domain.NewStorageError("list modules", errors.New("disk I/O error"))
}

// fakeRemote is an in-memory RemoteStore.
type fakeRemote struct {
	mu      sync.Mutex
	seq     int
	books   []models.RemoteBook
	modules []models.RemoteModule

	failCreateModuleAfter int // fail once this many modules exist; 0 disables
	failDelete            map[string]bool
	listErr               error
	deleteCalls           atomic.Int32
}

func newFakeRemote() *fakeRemote {
	return &fakeRemote{failDelete: map[string]bool{}}
}

func (r *fakeRemote) nextID(kind string) string {
	r.seq++
	return fmt.Sprintf("%s-%03d", kind, r.seq)
}

func (r *fakeRemote) CreateBook(_ context.Context, book *models.RemoteBook) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	b := *book
	b.ID = r.nextID("book")
	b.CreatedAt = time.Unix(int64(r.seq), 0)
	r.books = append(r.books, b)
	return b.ID, nil
}

func (r *fakeRemote) CreateModule(_ context.Context, module *models.RemoteModule) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failCreateModuleAfter > 0 && len(r.modules) >= r.failCreateModuleAfter {
		return "", domain.NewRemoteError("create module", errors.New("connection reset"))
	}
	m := *module
	m.ID = r.nextID("module")
	m.CreatedAt = time.Unix(int64(r.seq), 0)
	r.modules = append(r.modules, m)
	return m.ID, nil
}

func (r *fakeRemote) ListBooks(_ context.Context, limit int) ([]models.RemoteBook, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.listErr != nil {
		return nil, r.listErr
	}
	out := slices.Clone(r.books)
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *fakeRemote) ListModulesByBook(_ context.Context, bookID string) ([]models.RemoteModule, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []models.RemoteModule
	for _, m := range r.modules {
		if m.BookID == bookID {
			out = append(out, m)
		}
	}
	slices.SortStableFunc(out, func(a, b models.RemoteModule) int {
		return cmp.Compare(remoteOrder(a), remoteOrder(b))
	})
	return out, nil
}

func (r *fakeRemote) DeleteBook(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.books = slices.DeleteFunc(r.books, func(b models.RemoteBook) bool { return b.ID == id })
	return nil
}

func (r *fakeRemote) DeleteModule(_ context.Context, id string) error {
	r.deleteCalls.Add(1)
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failDelete[id] {
		return domain.NewRemoteError("delete module", errors.New("permission denied"))
	}
	r.modules = slices.DeleteFunc(r.modules, func(m models.RemoteModule) bool { return m.ID == id })
	return nil
}

func (r *fakeRemote) modulesOf(bookID string) []models.RemoteModule {
	out, _ := r.ListModulesByBook(context.Background(), bookID)
	return out
}
