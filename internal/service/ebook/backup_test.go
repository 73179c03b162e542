package ebook

import (
	"bytes"
	"context"
	"encoding/json"
	"strconv"
	"testing"
	"time"

	"dressline/internal/attachment"
	"dressline/internal/domain"
	models "dressline/internal/domain/models/ebook"
	"dressline/internal/repository/sqlite"
	"dressline/internal/tester"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var backupTime = time.Date(2025, 3, 14, 9, 26, 53, 589_000_000, time.UTC)

// encodedPayload returns base64 text of exactly n characters (n divisible by 4).
func encodedPayload(n int, fill byte) string {
	return attachment.EncodeBytes(bytes.Repeat([]byte{fill}, n/4*3))
}

func itemKey(id int64) string { return models.BackupItemPrefix + strconv.FormatInt(id, 10) }

func TestBackupEmpty(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	book := f.seedBook(t, "T")
	f.seedModule(t, book.ID, "no pdf", 1, nil)
	svc := NewBackupService(f.store.Modules, f.kv, tester.Logger(), WithClock(fixedClock(backupTime)))

	report, err := svc.BackupAll(ctx)
	require.NoError(t, err)
	assert.Equal(t, models.BackupEmpty, report.Status)

	status, err := f.kv.Get(ctx, models.BackupStatusKey)
	require.NoError(t, err)
	assert.Equal(t, "empty", status)
	ts, err := f.kv.Get(ctx, models.BackupTimestampKey)
	require.NoError(t, err)
	assert.Equal(t, "2025-03-14T09:26:53.589Z", ts)
}

func TestBackupModeFollowsThreshold(t *testing.T) {
	tests := []struct {
		name     string
		size     int
		status   models.BackupStatus
		combined bool
	}{
		{"1 MiB is stored combined", 1 << 20, models.BackupComplete, true},
		{"4 MiB is stored per item", 4 << 20, models.BackupChunked, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			ctx := context.Background()
			book := f.seedBook(t, "T")
			m := f.seedModule(t, book.ID, "A", 1, models.NewInlineAttachment("a.pdf", encodedPayload(tt.size, 'a')))
			svc := NewBackupService(f.store.Modules, f.kv, tester.Logger())

			report, err := svc.BackupAll(ctx)
			require.NoError(t, err)
			assert.Equal(t, tt.status, report.Status)
			assert.Equal(t, tt.size, report.TotalSize)

			_, combinedErr := f.kv.Get(ctx, models.BackupDataKey)
			_, itemErr := f.kv.Get(ctx, itemKey(m.ID))
			if tt.combined {
				assert.NoError(t, combinedErr)
				assert.ErrorIs(t, itemErr, domain.ErrNotFound)
			} else {
				assert.ErrorIs(t, combinedErr, domain.ErrNotFound)
				assert.NoError(t, itemErr)
			}

			raw, err := f.kv.Get(ctx, models.BackupMetadataKey)
			require.NoError(t, err)
			var meta map[string]models.BackupMeta
			require.NoError(t, json.Unmarshal([]byte(raw), &meta))
			assert.Equal(t, models.BackupMeta{Name: "a.pdf", Size: tt.size}, meta[strconv.FormatInt(m.ID, 10)])
		})
	}
}

func TestBackupIsIdempotent(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	book := f.seedBook(t, "T")
	f.seedModule(t, book.ID, "A", 1, models.NewInlineAttachment("a.pdf", encodedPayload(400, 'a')))
	f.seedModule(t, book.ID, "B", 2, models.NewInlineAttachment("b.pdf", encodedPayload(800, 'b')))
	svc := NewBackupService(f.store.Modules, f.kv, tester.Logger())

	first, err := svc.BackupAll(ctx)
	require.NoError(t, err)
	metaFirst, err := f.kv.Get(ctx, models.BackupMetadataKey)
	require.NoError(t, err)

	second, err := svc.BackupAll(ctx)
	require.NoError(t, err)
	metaSecond, err := f.kv.Get(ctx, models.BackupMetadataKey)
	require.NoError(t, err)

	assert.Equal(t, first.Status, second.Status)
	assert.Equal(t, first.Metadata, second.Metadata)
	assert.JSONEq(t, metaFirst, metaSecond)
}

func TestBackupFallsBackWhenCombinedWriteFails(t *testing.T) {
	ctx := context.Background()

	t.Run("every item fits", func(t *testing.T) {
		f := newFixture(t)
		kv := tester.BackupStore(t, sqlite.KVOptions{MaxValueBytes: 1000})
		book := f.seedBook(t, "T")
		f.seedModule(t, book.ID, "A", 1, models.NewInlineAttachment("a.pdf", encodedPayload(600, 'a')))
		f.seedModule(t, book.ID, "B", 2, models.NewInlineAttachment("b.pdf", encodedPayload(600, 'b')))

		report, err := NewBackupService(f.store.Modules, kv, tester.Logger()).BackupAll(ctx)
		require.NoError(t, err)
		assert.Equal(t, models.BackupChunked, report.Status)
		assert.Empty(t, report.Failed)
	})

	t.Run("one item exceeds the value limit", func(t *testing.T) {
		f := newFixture(t)
		kv := tester.BackupStore(t, sqlite.KVOptions{MaxValueBytes: 1000})
		book := f.seedBook(t, "T")
		small := f.seedModule(t, book.ID, "A", 1, models.NewInlineAttachment("a.pdf", encodedPayload(200, 'a')))
		big := f.seedModule(t, book.ID, "B", 2, models.NewInlineAttachment("b.pdf", encodedPayload(2000, 'b')))

		report, err := NewBackupService(f.store.Modules, kv, tester.Logger(), WithClock(fixedClock(backupTime))).BackupAll(ctx)
		require.NoError(t, err)
		assert.Equal(t, models.BackupPartial, report.Status)
		assert.Equal(t, []int64{big.ID}, report.Failed)

		_, err = kv.Get(ctx, itemKey(small.ID))
		assert.NoError(t, err)
		_, err = kv.Get(ctx, itemKey(big.ID))
		assert.ErrorIs(t, err, domain.ErrNotFound)

		raw, err := kv.Get(ctx, models.BackupMetaPrefix+strconv.FormatInt(big.ID, 10))
		require.NoError(t, err)
		var meta models.BackupItemMeta
		require.NoError(t, json.Unmarshal([]byte(raw), &meta))
		assert.Equal(t, models.BackupItemMeta{Name: "b.pdf", Size: 2000, Timestamp: "2025-03-14T09:26:53.589Z"}, meta)

		status, err := NewBackupService(f.store.Modules, kv, tester.Logger()).Status(ctx)
		require.NoError(t, err)
		assert.Equal(t, models.BackupPartial, status.Status)
		assert.Equal(t, []int64{big.ID}, status.Failed)
		assert.Equal(t, 2, status.Items)
	})
}

func TestBackupChunkedSurvivesOversizedItem(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	kv := tester.BackupStore(t, sqlite.KVOptions{MaxValueBytes: 1000})
	book := f.seedBook(t, "T")
	f.seedModule(t, book.ID, "A", 1, models.NewInlineAttachment("a.pdf", encodedPayload(2000, 'a')))
	ok := f.seedModule(t, book.ID, "B", 2, models.NewInlineAttachment("b.pdf", encodedPayload(400, 'b')))

	report, err := NewBackupService(f.store.Modules, kv, tester.Logger(), WithChunkThreshold(100)).BackupAll(ctx)
	require.NoError(t, err)
	assert.Equal(t, models.BackupChunked, report.Status)
	assert.Len(t, report.Failed, 1)

	_, err = kv.Get(ctx, itemKey(ok.ID))
	assert.NoError(t, err)
}

func TestBackupPrunesStaleItems(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	book := f.seedBook(t, "T")
	a := f.seedModule(t, book.ID, "A", 1, models.NewInlineAttachment("a.pdf", encodedPayload(400, 'a')))
	b := f.seedModule(t, book.ID, "B", 2, models.NewInlineAttachment("b.pdf", encodedPayload(400, 'b')))
	chunked := NewBackupService(f.store.Modules, f.kv, tester.Logger(), WithChunkThreshold(100))

	_, err := chunked.BackupAll(ctx)
	require.NoError(t, err)
	require.NoError(t, f.store.Modules.SetAttachment(ctx, b.ID, nil))

	_, err = chunked.BackupAll(ctx)
	require.NoError(t, err)
	_, err = f.kv.Get(ctx, itemKey(a.ID))
	assert.NoError(t, err)
	_, err = f.kv.Get(ctx, itemKey(b.ID))
	assert.ErrorIs(t, err, domain.ErrNotFound)

	// switching to combined mode drops the per-item copies
	report, err := NewBackupService(f.store.Modules, f.kv, tester.Logger()).BackupAll(ctx)
	require.NoError(t, err)
	assert.Equal(t, models.BackupComplete, report.Status)
	keys, err := f.kv.Keys(ctx, models.BackupItemPrefix)
	require.NoError(t, err)
	assert.NotContains(t, keys, itemKey(a.ID))
}

func TestBackupRecordsErrorStatus(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	svc := NewBackupService(failingModules{f.store.Modules}, f.kv, tester.Logger())

	report, err := svc.BackupAll(ctx)
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrStorage)
	assert.Equal(t, models.BackupError, report.Status)

	status, err := f.kv.Get(ctx, models.BackupStatusKey)
	require.NoError(t, err)
	assert.Equal(t, "error", status)
	msg, err := f.kv.Get(ctx, models.BackupErrorKey)
	require.NoError(t, err)
	assert.Contains(t, msg, "disk I/O error")
	_, err = f.kv.Get(ctx, models.BackupTimestampKey)
	assert.NoError(t, err)

	// verify and restore degrade to empty results
	assert.Empty(t, svc.VerifyAll(ctx))
	assert.Zero(t, svc.RestoreAll(ctx))
}

func TestVerifyAllFlagsProblems(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	book := f.seedBook(t, "T")
	f.seedModule(t, book.ID, "valid", 1, models.NewInlineAttachment("ok.pdf", encodedPayload(40, 'x')))
	f.seedModule(t, book.ID, "none", 2, nil)
	corrupt := f.seedModule(t, book.ID, "corrupt", 3, models.NewInlineAttachment("c.pdf", "not*base64!"))
	empty := f.seedModule(t, book.ID, "empty", 4, models.NewInlineAttachment("e.pdf", ""))
	unnamed := f.seedModule(t, book.ID, "unnamed", 5, models.NewInlineAttachment("", encodedPayload(40, 'y')))
	legacy := f.seedModule(t, book.ID, "legacy", 6, models.NewLegacyAttachment("uploads/old.pdf"))

	svc := NewBackupService(f.store.Modules, f.kv, tester.Logger())
	problems := svc.VerifyAll(ctx)

	var ids []int64
	for _, p := range problems {
		ids = append(ids, p.ID)
		assert.NotEmpty(t, p.Reason)
	}
	assert.Equal(t, []int64{corrupt.ID, empty.ID, unnamed.ID, legacy.ID}, ids)
	assert.Equal(t, "corrupt", problems[0].Title)
}

func TestRestoreAllNeverOverwritesValidAttachments(t *testing.T) {
	for _, threshold := range []int{1 << 20, 10} {
		t.Run(strconv.Itoa(threshold), func(t *testing.T) {
			f := newFixture(t)
			ctx := context.Background()
			book := f.seedBook(t, "T")
			original := encodedPayload(400, 'a')
			broken := f.seedModule(t, book.ID, "A", 1, models.NewInlineAttachment("a.pdf", original))
			replaced := f.seedModule(t, book.ID, "B", 2, models.NewInlineAttachment("b.pdf", encodedPayload(400, 'b')))
			lost := f.seedModule(t, book.ID, "C", 3, models.NewInlineAttachment("c.pdf", encodedPayload(400, 'c')))
			svc := NewBackupService(f.store.Modules, f.kv, tester.Logger(), WithChunkThreshold(threshold))

			_, err := svc.BackupAll(ctx)
			require.NoError(t, err)

			newer := models.NewInlineAttachment("b-v2.pdf", encodedPayload(80, 'z'))
			require.NoError(t, f.store.Modules.SetAttachment(ctx, broken.ID, models.NewInlineAttachment("a.pdf", "@@@@")))
			require.NoError(t, f.store.Modules.SetAttachment(ctx, replaced.ID, newer))
			require.NoError(t, f.store.Modules.SetAttachment(ctx, lost.ID, nil))

			assert.Equal(t, 2, svc.RestoreAll(ctx))

			got, err := f.store.Modules.GetByID(ctx, broken.ID)
			require.NoError(t, err)
			assert.Equal(t, original, got.PDFAttachment.Data)

			got, err = f.store.Modules.GetByID(ctx, replaced.ID)
			require.NoError(t, err)
			assert.Equal(t, newer, got.PDFAttachment)

			got, err = f.store.Modules.GetByID(ctx, lost.ID)
			require.NoError(t, err)
			assert.Equal(t, "c.pdf", got.PDFAttachment.Name)

			// a second pass finds nothing left to do
			assert.Zero(t, svc.RestoreAll(ctx))
		})
	}
}

func TestRestoreAllWithoutBackup(t *testing.T) {
	f := newFixture(t)
	book := f.seedBook(t, "T")
	f.seedModule(t, book.ID, "A", 1, nil)

	svc := NewBackupService(f.store.Modules, f.kv, tester.Logger())
	assert.Zero(t, svc.RestoreAll(context.Background()))
}

func TestBackupStatusReadsMarkers(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	svc := NewBackupService(f.store.Modules, f.kv, tester.Logger(), WithClock(fixedClock(backupTime)))

	_, err := svc.Status(ctx)
	assert.ErrorIs(t, err, domain.ErrNotFound)

	book := f.seedBook(t, "T")
	f.seedModule(t, book.ID, "A", 1, models.NewInlineAttachment("a.pdf", encodedPayload(400, 'a')))
	_, err = svc.BackupAll(ctx)
	require.NoError(t, err)

	status, err := svc.Status(ctx)
	require.NoError(t, err)
	assert.Equal(t, models.BackupComplete, status.Status)
	assert.True(t, backupTime.Equal(status.Timestamp))
	assert.Equal(t, 1, status.Items)
	assert.Equal(t, 400, status.TotalSize)
	assert.Empty(t, status.Error)
}

func TestBackupKeepsLastGoodCopyOfBrokenAttachments(t *testing.T) {
	for _, threshold := range []int{1 << 20, 10} {
		t.Run(strconv.Itoa(threshold), func(t *testing.T) {
			f := newFixture(t)
			ctx := context.Background()
			book := f.seedBook(t, "T")
			good := encodedPayload(400, 'a')
			corrupted := f.seedModule(t, book.ID, "A", 1, models.NewInlineAttachment("a.pdf", good))
			cleared := f.seedModule(t, book.ID, "B", 2, models.NewInlineAttachment("b.pdf", encodedPayload(400, 'b')))
			svc := NewBackupService(f.store.Modules, f.kv, tester.Logger(), WithChunkThreshold(threshold))

			_, err := svc.BackupAll(ctx)
			require.NoError(t, err)

			require.NoError(t, f.store.Modules.SetAttachment(ctx, corrupted.ID, models.NewInlineAttachment("a.pdf", "!!!!corrupt")))
			require.NoError(t, f.store.Modules.SetAttachment(ctx, cleared.ID, models.NewInlineAttachment("b.pdf", "")))

			// backing up twice must not replace the good copies with broken data
			for i := 0; i < 2; i++ {
				report, err := svc.BackupAll(ctx)
				require.NoError(t, err)
				assert.Equal(t, []int64{corrupted.ID, cleared.ID}, report.Carried)
				assert.Equal(t, 2, report.Items)
			}

			assert.Equal(t, 2, svc.RestoreAll(ctx))
			got, err := f.store.Modules.GetByID(ctx, corrupted.ID)
			require.NoError(t, err)
			assert.Equal(t, good, got.PDFAttachment.Data)
			got, err = f.store.Modules.GetByID(ctx, cleared.ID)
			require.NoError(t, err)
			assert.NotEmpty(t, got.PDFAttachment.Data)
		})
	}
}

func TestBackupSkipsBrokenAttachmentWithoutPreviousCopy(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	book := f.seedBook(t, "T")
	f.seedModule(t, book.ID, "A", 1, models.NewInlineAttachment("a.pdf", "!!!!corrupt"))
	svc := NewBackupService(f.store.Modules, f.kv, tester.Logger())

	report, err := svc.BackupAll(ctx)
	require.NoError(t, err)
	assert.Equal(t, models.BackupEmpty, report.Status)
	assert.Empty(t, report.Carried)
	_, err = f.kv.Get(ctx, models.BackupDataKey)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}
