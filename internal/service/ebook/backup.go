package ebook

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strconv"
	"strings"
	"time"

	"dressline/internal/attachment"
	"dressline/internal/config"
	"dressline/internal/domain"
	models "dressline/internal/domain/models/ebook"
	ebookRepo "dressline/internal/domain/repositories/ebook"
	ebookSvc "dressline/internal/domain/services/ebook"
)

// backupTimeLayout is ISO-8601 with milliseconds, as written by browsers.
const backupTimeLayout = "2006-01-02T15:04:05.000Z07:00"

// BackupOption customises the backup service.
type BackupOption func(*backupService)

// WithChunkThreshold overrides the encoded size above which items are stored separately.
func WithChunkThreshold(n int) BackupOption {
	return func(s *backupService) { s.threshold = n }
}

// WithClock overrides time.Now.
func WithClock(now func() time.Time) BackupOption {
	return func(s *backupService) { s.now = now }
}

// backupService implements the BackupService interface
type backupService struct {
	moduleRepo ebookRepo.ModuleRepository
	store      ebookRepo.BackupStore
	threshold  int
	now        func() time.Time
	logger     *slog.Logger
}

// NewBackupService creates a backup service writing to store
func NewBackupService(
	moduleRepo ebookRepo.ModuleRepository,
	store ebookRepo.BackupStore,
	logger *slog.Logger,
	opts ...BackupOption,
) ebookSvc.BackupService {
	s := &backupService{
		moduleRepo: moduleRepo,
		store:      store,
		threshold:  config.BackupChunkThreshold,
		now:        time.Now,
		logger:     logger,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

type backupEntry struct {
	id   int64
	name string
	data string
}

func (e backupEntry) key() string { return models.BackupItemPrefix + strconv.FormatInt(e.id, 10) }

// BackupAll writes every inline attachment to the backup medium. The status
// and timestamp markers are written whatever happens.
func (s *backupService) BackupAll(ctx context.Context) (*models.BackupReport, error) {
	report := &models.BackupReport{Timestamp: s.now().UTC()}

	err := s.run(ctx, report)
	if err != nil {
		report.Status = models.BackupError
		report.Error = err.Error()
		s.put(ctx, models.BackupErrorKey, report.Error)
		s.logger.Error("backup pass failed", "error", err)
	} else {
		s.remove(ctx, models.BackupErrorKey)
	}

	s.put(ctx, models.BackupStatusKey, string(report.Status))
	s.put(ctx, models.BackupTimestampKey, report.Timestamp.Format(backupTimeLayout))

	if err == nil {
		s.logger.Info("backup pass finished",
			"status", report.Status,
			"items", report.Items,
			"total_size", report.TotalSize,
			"failed", len(report.Failed),
			"carried", len(report.Carried),
		)
	}
	return report, err
}

func (s *backupService) run(ctx context.Context, report *models.BackupReport) error {
	modules, err := s.moduleRepo.ListAll(ctx)
	if err != nil {
		return err
	}

	var (
		entries  []backupEntry
		previous func(id int64) (models.BackupItem, bool)
		loaded   bool
	)
	for _, m := range modules {
		if m.PDFAttachment == nil {
			continue
		}
		if attachmentProblem(m.PDFAttachment) == "" {
			entries = append(entries, backupEntry{id: m.ID, name: m.PDFAttachment.Name, data: m.PDFAttachment.Data})
			report.TotalSize += len(m.PDFAttachment.Data)
			continue
		}

		// a broken attachment keeps its last good copy so restore can still use it
		if !loaded {
			previous, _ = s.lastBackup(ctx)
			loaded = true
		}
		if previous == nil {
			continue
		}
		item, ok := previous(m.ID)
		if !ok || attachmentProblem(models.NewInlineAttachment(item.Name, item.Data)) != "" {
			continue
		}
		s.logger.Warn("attachment unusable, keeping previous backup copy", "module_id", m.ID)
		entries = append(entries, backupEntry{id: m.ID, name: item.Name, data: item.Data})
		report.TotalSize += len(item.Data)
		report.Carried = append(report.Carried, m.ID)
	}
	report.Items = len(entries)

	if len(entries) == 0 {
		report.Status = models.BackupEmpty
		s.remove(ctx, models.BackupMetadataKey)
		s.prune(ctx, nil, true)
		return nil
	}

	report.Metadata = make(map[string]models.BackupMeta, len(entries))
	for _, e := range entries {
		report.Metadata[strconv.FormatInt(e.id, 10)] = models.BackupMeta{Name: e.name, Size: len(e.data)}
	}
	metadata, err := json.Marshal(report.Metadata)
	if err != nil {
		return fmt.Errorf("encode backup metadata: %w", err)
	}
	if err := s.store.Set(ctx, models.BackupMetadataKey, string(metadata)); err != nil {
		s.logger.Warn("backup metadata not written", "error", err)
	}

	if report.TotalSize > s.threshold {
		failed, err := s.writeItems(ctx, entries)
		if err != nil {
			return err
		}
		report.Failed = failed
		report.Status = models.BackupChunked
		s.prune(ctx, entries, true)
		return nil
	}

	combined := make(map[string]models.BackupItem, len(entries))
	for _, e := range entries {
		combined[strconv.FormatInt(e.id, 10)] = models.BackupItem{Name: e.name, Data: e.data}
	}
	payload, err := json.Marshal(combined)
	if err != nil {
		return fmt.Errorf("encode backup data: %w", err)
	}

	err = s.store.Set(ctx, models.BackupDataKey, string(payload))
	if err == nil {
		report.Status = models.BackupComplete
		s.prune(ctx, nil, false)
		return nil
	}
	s.logger.Warn("combined backup write failed, falling back to per-item writes", "error", err)

	failed, err := s.writeItems(ctx, entries)
	if err != nil {
		return err
	}
	report.Failed = failed
	report.Status = models.BackupChunked
	if len(failed) > 0 {
		report.Status = models.BackupPartial
	}
	s.prune(ctx, entries, true)
	return nil
}

// writeItems stores each entry under its own key. An item that cannot be
// written gets a metadata-only record instead and is reported as failed.
func (s *backupService) writeItems(ctx context.Context, entries []backupEntry) ([]int64, error) {
	var failed []int64
	for _, e := range entries {
		if err := ctx.Err(); err != nil {
			return failed, err
		}

		item, err := json.Marshal(models.BackupItem{Name: e.name, Data: e.data})
		if err != nil {
			return failed, fmt.Errorf("encode backup item %d: %w", e.id, err)
		}
		metaKey := models.BackupMetaPrefix + strconv.FormatInt(e.id, 10)

		if err := s.store.Set(ctx, e.key(), string(item)); err != nil {
			s.logger.Warn("backup item not written, keeping metadata only",
				"module_id", e.id,
				"size", len(e.data),
				"error", err,
			)
			failed = append(failed, e.id)

			meta, _ := json.Marshal(models.BackupItemMeta{
				Name:      e.name,
				Size:      len(e.data),
				Timestamp: s.now().UTC().Format(backupTimeLayout),
			})
			s.put(ctx, metaKey, string(meta))
			// an older copy of this item would be stale now
			s.remove(ctx, e.key())
			continue
		}
		s.remove(ctx, metaKey)
	}
	return failed, nil
}

// prune deletes per-item keys of modules not in keep. In combined mode
// (chunked false) all per-item keys go; in chunked mode the combined blob goes.
func (s *backupService) prune(ctx context.Context, keep []backupEntry, chunked bool) {
	live := make(map[int64]bool, len(keep))
	for _, e := range keep {
		live[e.id] = true
	}

	keys, err := s.store.Keys(ctx, models.BackupItemPrefix)
	if err != nil {
		s.logger.Warn("listing backup keys failed", "error", err)
		return
	}
	for _, key := range keys {
		id, ok := itemID(key)
		if !ok {
			continue
		}
		if !chunked || !live[id] {
			s.remove(ctx, key)
		}
	}

	if chunked {
		s.remove(ctx, models.BackupDataKey)
	}
}

// itemID extracts the module id from pdf_backup_{id} and pdf_backup_meta_{id}.
func itemID(key string) (int64, bool) {
	rest := strings.TrimPrefix(key, models.BackupItemPrefix)
	rest = strings.TrimPrefix(rest, "meta_")
	id, err := strconv.ParseInt(rest, 10, 64)
	if err != nil {
		return 0, false
	}
	return id, true
}

// put writes a marker key, logging failures.
func (s *backupService) put(ctx context.Context, key, value string) {
	if err := s.store.Set(ctx, key, value); err != nil {
		s.logger.Warn("backup marker not written", "key", key, "error", err)
	}
}

// remove deletes a key, ignoring missing keys.
func (s *backupService) remove(ctx context.Context, key string) {
	if err := s.store.Delete(ctx, key); err != nil && !errors.Is(err, domain.ErrNotFound) {
		s.logger.Warn("backup key not deleted", "key", key, "error", err)
	}
}

// attachmentProblem returns why an attachment is unusable, or "" when it decodes
// to a non-empty payload and has a name.
func attachmentProblem(a *models.Attachment) string {
	switch {
	case a == nil:
		return "no attachment"
	case a.Kind == models.AttachmentLegacy:
		return "legacy reference without inline data"
	case strings.TrimSpace(a.Name) == "":
		return "missing file name"
	}

	blob, err := attachment.Decode(a.Data, models.PDFMimeType)
	if err != nil {
		return err.Error()
	}
	if blob.Size() == 0 {
		return "empty payload"
	}
	return ""
}

// VerifyAll reports modules whose attachment is unusable. Failures are logged
// and yield an empty result.
func (s *backupService) VerifyAll(ctx context.Context) []models.ProblemModule {
	problems := []models.ProblemModule{}

	modules, err := s.moduleRepo.ListAll(ctx)
	if err != nil {
		s.logger.Error("verify: listing modules failed", "error", err)
		return problems
	}

	for _, m := range modules {
		if m.PDFAttachment == nil {
			continue
		}
		if reason := attachmentProblem(m.PDFAttachment); reason != "" {
			problems = append(problems, models.ProblemModule{ID: m.ID, Title: m.Title, Reason: reason})
		}
	}

	s.logger.Info("attachments verified",
		"modules", len(modules),
		"problems", len(problems),
	)
	return problems
}

// lastBackup returns a reader over the entries written by the last backup
// pass, or nil when there is nothing usable to read.
func (s *backupService) lastBackup(ctx context.Context) (func(id int64) (models.BackupItem, bool), models.BackupStatus) {
	raw, err := s.store.Get(ctx, models.BackupStatusKey)
	if err != nil {
		if !errors.Is(err, domain.ErrNotFound) {
			s.logger.Error("reading backup status failed", "error", err)
		}
		return nil, ""
	}
	status := models.BackupStatus(raw)

	switch status {
	case models.BackupComplete:
		data, err := s.store.Get(ctx, models.BackupDataKey)
		if err != nil {
			s.logger.Error("combined backup unavailable", "error", err)
			return nil, status
		}
		var combined map[string]models.BackupItem
		if err := json.Unmarshal([]byte(data), &combined); err != nil {
			s.logger.Error("combined backup is corrupt", "error", err)
			return nil, status
		}
		return func(id int64) (models.BackupItem, bool) {
			item, ok := combined[strconv.FormatInt(id, 10)]
			return item, ok
		}, status
	case models.BackupChunked, models.BackupPartial:
		return func(id int64) (models.BackupItem, bool) {
			data, err := s.store.Get(ctx, models.BackupItemPrefix+strconv.FormatInt(id, 10))
			if err != nil {
				return models.BackupItem{}, false
			}
			var item models.BackupItem
			if err := json.Unmarshal([]byte(data), &item); err != nil {
				s.logger.Warn("backup item is corrupt", "module_id", id, "error", err)
				return models.BackupItem{}, false
			}
			return item, true
		}, status
	default:
		return nil, status
	}
}

// RestoreAll copies backed-up attachments into modules that lack a valid one.
// Modules with a valid attachment are never touched.
func (s *backupService) RestoreAll(ctx context.Context) int {
	lookup, status := s.lastBackup(ctx)
	if lookup == nil {
		s.logger.Info("restore: nothing to restore", "status", status)
		return 0
	}

	modules, err := s.moduleRepo.ListAll(ctx)
	if err != nil {
		s.logger.Error("restore: listing modules failed", "error", err)
		return 0
	}

	restored := 0
	for _, m := range modules {
		if attachmentProblem(m.PDFAttachment) == "" {
			continue
		}
		item, ok := lookup(m.ID)
		if !ok {
			continue
		}
		candidate := models.NewInlineAttachment(item.Name, item.Data)
		if reason := attachmentProblem(candidate); reason != "" {
			s.logger.Warn("restore: backup entry unusable", "module_id", m.ID, "reason", reason)
			continue
		}
		if err := s.moduleRepo.SetAttachment(ctx, m.ID, candidate); err != nil {
			s.logger.Error("restore: writing attachment failed", "module_id", m.ID, "error", err)
			continue
		}
		restored++
	}

	s.logger.Info("attachments restored",
		"status", status,
		"restored", restored,
	)
	return restored
}

// Status reads the markers left by the last backup pass.
func (s *backupService) Status(ctx context.Context) (*models.BackupReport, error) {
	status, err := s.store.Get(ctx, models.BackupStatusKey)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, fmt.Errorf("backup status: %w", domain.ErrNotFound)
		}
		return nil, err
	}
	report := &models.BackupReport{Status: models.BackupStatus(status)}

	if ts, err := s.store.Get(ctx, models.BackupTimestampKey); err == nil {
		if t, err := time.Parse(time.RFC3339, ts); err == nil {
			report.Timestamp = t
		}
	}
	if msg, err := s.store.Get(ctx, models.BackupErrorKey); err == nil && report.Status == models.BackupError {
		report.Error = msg
	}

	if raw, err := s.store.Get(ctx, models.BackupMetadataKey); err == nil && report.Status != models.BackupEmpty {
		if err := json.Unmarshal([]byte(raw), &report.Metadata); err != nil {
			s.logger.Warn("backup metadata is corrupt", "error", err)
		}
		for _, m := range report.Metadata {
			report.TotalSize += m.Size
		}
		report.Items = len(report.Metadata)
	}

	if report.Status == models.BackupPartial {
		keys, err := s.store.Keys(ctx, models.BackupMetaPrefix)
		if err == nil {
			for _, key := range keys {
				if id, ok := itemID(key); ok {
					report.Failed = append(report.Failed, id)
				}
			}
			sort.Slice(report.Failed, func(i, j int) bool { return report.Failed[i] < report.Failed[j] })
		}
	}

	return report, nil
}
