package ebook

import (
	"bytes"
	"context"
	"errors"
	"io"
	"testing"

	"dressline/internal/attachment"
	"dressline/internal/config"
	"dressline/internal/domain"
	models "dressline/internal/domain/models/ebook"
	ebookSvc "dressline/internal/domain/services/ebook"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func strPtr(s string) *string { return &s }

func TestGetActiveBookCreatesDefaultOnce(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	first, err := f.books.GetActiveBook(ctx)
	require.NoError(t, err)
	assert.Equal(t, models.DefaultBookTitle, first.Title)
	assert.Equal(t, models.DefaultBookWelcome, first.WelcomeContent)

	again, err := f.books.GetActiveBook(ctx)
	require.NoError(t, err)
	assert.Equal(t, first.ID, again.ID)

	count, err := f.store.Books.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestCreateBookValidatesAndSanitizes(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.books.CreateBook(ctx, &ebookSvc.CreateBookRequest{Title: "   "})
	assert.ErrorIs(t, err, domain.ErrValidation)

	book, err := f.books.CreateBook(ctx, &ebookSvc.CreateBookRequest{
		Title:          "  DressLine  ",
		WelcomeContent: `<p>Salom</p><script>alert(1)</script>`,
	})
	require.NoError(t, err)
	assert.Equal(t, "DressLine", book.Title)
	assert.Equal(t, "<p>Salom</p>", book.WelcomeContent)

	updated, err := f.books.UpdateBook(ctx, book.ID, &ebookSvc.UpdateBookRequest{Bibliography: strPtr("<ol><li>Manba</li></ol>")})
	require.NoError(t, err)
	assert.Equal(t, "DressLine", updated.Title)
	assert.Equal(t, "<ol><li>Manba</li></ol>", updated.Bibliography)

	_, err = f.books.UpdateBook(ctx, book.ID, &ebookSvc.UpdateBookRequest{Title: strPtr("")})
	assert.ErrorIs(t, err, domain.ErrValidation)

	_, err = f.books.UpdateBook(ctx, 999, &ebookSvc.UpdateBookRequest{Title: strPtr("x")})
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestDeleteBookRemovesItsModules(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	keep := f.seedBook(t, "keep")
	drop := f.seedBook(t, "drop")
	f.seedModule(t, keep.ID, "k1", 1, nil)
	f.seedModule(t, drop.ID, "d1", 1, nil)
	f.seedModule(t, drop.ID, "d2", 2, nil)

	require.NoError(t, f.books.DeleteBook(ctx, drop.ID))

	_, err := f.books.GetBook(ctx, drop.ID)
	assert.ErrorIs(t, err, domain.ErrNotFound)
	all, err := f.store.Modules.ListAll(ctx)
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, "k1", all[0].Title)
	assert.EqualValues(t, 1, f.trigger.n.Load())

	assert.ErrorIs(t, f.books.DeleteBook(ctx, drop.ID), domain.ErrNotFound)
	assert.EqualValues(t, 1, f.trigger.n.Load())

	// a book without modules leaves nothing for the backup to drop
	empty := f.seedBook(t, "empty")
	require.NoError(t, f.books.DeleteBook(ctx, empty.ID))
	assert.EqualValues(t, 1, f.trigger.n.Load())
}

func TestModuleOrderStaysContiguous(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	book := f.seedBook(t, "T")

	var ids []int64
	for _, title := range []string{"A", "B", "C", "D"} {
		m, err := f.modules.CreateModule(ctx, &ebookSvc.CreateModuleRequest{BookID: book.ID, Title: title})
		require.NoError(t, err)
		ids = append(ids, m.ID)
	}

	list, err := f.modules.ListModules(ctx, book.ID)
	require.NoError(t, err)
	assert.Equal(t, []int{1, 2, 3, 4}, orders(list))

	require.NoError(t, f.modules.DeleteModule(ctx, ids[1]))
	list, err = f.modules.ListModules(ctx, book.ID)
	require.NoError(t, err)
	assert.Equal(t, []int{1, 2, 3}, orders(list))

	reordered, err := f.modules.ReorderModules(ctx, book.ID, &ebookSvc.ReorderModulesRequest{ModuleIDs: []int64{ids[3], ids[0], ids[2]}})
	require.NoError(t, err)
	assert.Equal(t, []int{1, 2, 3}, orders(reordered))
	assert.Equal(t, []string{"D", "A", "C"}, []string{reordered[0].Title, reordered[1].Title, reordered[2].Title})

	m, err := f.modules.CreateModule(ctx, &ebookSvc.CreateModuleRequest{BookID: book.ID, Title: "E"})
	require.NoError(t, err)
	assert.Equal(t, 4, m.Order)

	assert.EqualValues(t, 6, f.trigger.n.Load())
}

func TestDeleteThenReindexScenario(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	require.NoError(t, f.store.Books.BulkInsert(ctx, []models.Book{{ID: 1, Title: "T"}}))
	require.NoError(t, f.store.Modules.BulkInsert(ctx, []models.Module{
		{ID: 1, BookID: 1, Order: 1, Title: "A"},
		{ID: 2, BookID: 1, Order: 2, Title: "B"},
	}))

	require.NoError(t, f.modules.DeleteModule(ctx, 1))
	require.NoError(t, f.modules.ReindexModules(ctx, 1))

	m, err := f.modules.GetModule(ctx, 2)
	require.NoError(t, err)
	assert.Equal(t, 1, m.Order)
}

func TestReindexClosesGapsLeftByImport(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	book := f.seedBook(t, "T")
	f.seedModule(t, book.ID, "A", 3, nil)
	f.seedModule(t, book.ID, "B", 7, nil)
	f.seedModule(t, book.ID, "C", 7, nil)

	require.NoError(t, f.modules.ReindexModules(ctx, book.ID))

	list, err := f.modules.ListModules(ctx, book.ID)
	require.NoError(t, err)
	assert.Equal(t, []int{1, 2, 3}, orders(list))
	assert.Equal(t, "A", list[0].Title)
}

func TestReorderRejectsIncompletePermutation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	book := f.seedBook(t, "T")
	a := f.seedModule(t, book.ID, "A", 1, nil)
	b := f.seedModule(t, book.ID, "B", 2, nil)

	tests := []struct {
		name string
		ids  []int64
	}{
		{"missing module", []int64{a.ID}},
		{"duplicate module", []int64{a.ID, a.ID}},
		{"foreign module", []int64{a.ID, 999}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.modules.ReorderModules(ctx, book.ID, &ebookSvc.ReorderModulesRequest{ModuleIDs: tt.ids})
			assert.ErrorIs(t, err, domain.ErrValidation)
		})
	}

	list, err := f.modules.ListModules(ctx, book.ID)
	require.NoError(t, err)
	assert.Equal(t, []int64{a.ID, b.ID}, []int64{list[0].ID, list[1].ID})
}

func TestCreateModuleForMissingBook(t *testing.T) {
	f := newFixture(t)

	_, err := f.modules.CreateModule(context.Background(), &ebookSvc.CreateModuleRequest{BookID: 42, Title: "A"})

	var orphan *domain.OrphanedModuleError
	require.ErrorAs(t, err, &orphan)
	assert.Equal(t, int64(42), orphan.BookID)
	assert.ErrorIs(t, err, domain.ErrOrphanedModule)
	assert.Zero(t, f.trigger.n.Load())
}

// unreadable fails the test if the upload body is touched.
type unreadable struct{ t *testing.T }

func (u unreadable) Read([]byte) (int, error) {
	u.t.Error("body read before validation")
	return 0, io.EOF
}

func TestAttachPDFRejectsBeforeReading(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	book := f.seedBook(t, "T")
	m := f.seedModule(t, book.ID, "A", 1, nil)

	tests := []struct {
		name string
		req  ebookSvc.AttachPDFRequest
	}{
		{"wrong type", ebookSvc.AttachPDFRequest{FileName: "a.pdf", MIMEType: "image/png", Size: 10}},
		{"extension is not trusted", ebookSvc.AttachPDFRequest{FileName: "a.pdf", MIMEType: "application/octet-stream", Size: 10}},
		{"too large", ebookSvc.AttachPDFRequest{FileName: "a.pdf", MIMEType: models.PDFMimeType, Size: config.MaxPDFBytes + 1}},
		{"no name", ebookSvc.AttachPDFRequest{FileName: " ", MIMEType: models.PDFMimeType, Size: 10}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := tt.req
			req.Body = unreadable{t}
			_, err := f.modules.AttachPDF(ctx, m.ID, &req)
			assert.ErrorIs(t, err, domain.ErrValidation)
		})
	}

	stored, err := f.modules.GetModule(ctx, m.ID)
	require.NoError(t, err)
	assert.Nil(t, stored.PDFAttachment)
}

func TestAttachPDFRejectsUnderstatedSize(t *testing.T) {
	f := newFixture(t)
	book := f.seedBook(t, "T")
	m := f.seedModule(t, book.ID, "A", 1, nil)

	_, err := f.modules.AttachPDF(context.Background(), m.ID, &ebookSvc.AttachPDFRequest{
		FileName: "big.pdf",
		MIMEType: models.PDFMimeType,
		Size:     100,
		Body:     bytes.NewReader(make([]byte, config.MaxPDFBytes+1)),
	})
	assert.ErrorIs(t, err, domain.ErrValidation)
}

type failingReader struct{}

func (failingReader) Read([]byte) (int, error) { return 0, errors.New("connection closed") }

func TestAttachPDFReportsUnreadableBody(t *testing.T) {
	f := newFixture(t)
	book := f.seedBook(t, "T")
	m := f.seedModule(t, book.ID, "A", 1, nil)

	_, err := f.modules.AttachPDF(context.Background(), m.ID, &ebookSvc.AttachPDFRequest{
		FileName: "a.pdf",
		MIMEType: models.PDFMimeType,
		Size:     10,
		Body:     failingReader{},
	})
	assert.ErrorIs(t, err, domain.ErrEncoding)
}

func TestAttachPDFStoresVerifiedCopy(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	book := f.seedBook(t, "T")
	m := f.seedModule(t, book.ID, "A", 1, nil)
	payload := bytes.Repeat([]byte("%PDF-1.4 not really a pdf\n"), 100)

	result, err := f.modules.AttachPDF(ctx, m.ID, &ebookSvc.AttachPDFRequest{
		FileName: "/tmp/uploads/lesson.pdf",
		MIMEType: models.PDFMimeType,
		Size:     int64(len(payload)),
		Body:     bytes.NewReader(payload),
	})
	require.NoError(t, err)
	assert.Equal(t, "lesson.pdf", result.Module.PDFAttachment.Name)
	assert.Equal(t, len(attachment.EncodeBytes(payload)), result.EncodedSize)
	assert.Equal(t, "2.6 kB", result.DisplaySize)
	assert.Zero(t, result.PageCount)

	stored, err := f.modules.GetModule(ctx, m.ID)
	require.NoError(t, err)
	blob, err := attachment.Decode(stored.PDFAttachment.Data, "")
	require.NoError(t, err)
	assert.Equal(t, payload, blob.Data)
	assert.EqualValues(t, 1, f.trigger.n.Load())

	require.NoError(t, f.modules.ClearAttachment(ctx, m.ID))
	stored, err = f.modules.GetModule(ctx, m.ID)
	require.NoError(t, err)
	assert.Nil(t, stored.PDFAttachment)
}

func TestAttachPDFUnknownModule(t *testing.T) {
	f := newFixture(t)

	_, err := f.modules.AttachPDF(context.Background(), 7, &ebookSvc.AttachPDFRequest{
		FileName: "a.pdf",
		MIMEType: models.PDFMimeType,
		Size:     1,
		Body:     bytes.NewReader([]byte{1}),
	})
	assert.ErrorIs(t, err, domain.ErrNotFound)
}
