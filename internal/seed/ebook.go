// Package seed fills an empty local store with first-run content.
package seed

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"

	models "dressline/internal/domain/models/ebook"
	ebookRepo "dressline/internal/domain/repositories/ebook"
	ebookSvc "dressline/internal/domain/services/ebook"

	mapset "github.com/deckarep/golang-set/v2"
)

// Source names where bootstrap content came from.
type Source string

const (
	SourceExisting Source = "existing"
	SourceStatic   Source = "static"
	SourceInitial  Source = "initial"
)

// Seeder bootstraps the local store
type Seeder struct {
	bookRepo   ebookRepo.BookRepository
	moduleRepo ebookRepo.ModuleRepository
	snapshot   ebookSvc.SnapshotService
	logger     *slog.Logger
}

// NewSeeder creates a new seeder
func NewSeeder(
	bookRepo ebookRepo.BookRepository,
	moduleRepo ebookRepo.ModuleRepository,
	snapshot ebookSvc.SnapshotService,
	logger *slog.Logger,
) *Seeder {
	return &Seeder{
		bookRepo:   bookRepo,
		moduleRepo: moduleRepo,
		snapshot:   snapshot,
		logger:     logger,
	}
}

// Bootstrap leaves a populated store alone. When either collection is empty
// it loads staticFile, and falls back to the built-in content when the file
// is missing or unreadable.
func (s *Seeder) Bootstrap(ctx context.Context, staticFile string) (Source, error) {
	books, err := s.bookRepo.Count(ctx)
	if err != nil {
		return "", err
	}
	modules, err := s.moduleRepo.Count(ctx)
	if err != nil {
		return "", err
	}
	if books > 0 && modules > 0 {
		s.logger.Debug("store already populated", "books", books, "modules", modules)
		return SourceExisting, nil
	}

	if staticFile != "" {
		err := s.loadStatic(ctx, staticFile)
		if err == nil {
			return SourceStatic, nil
		}
		if errors.Is(err, fs.ErrNotExist) {
			s.logger.Info("no static data file, using initial content", "path", staticFile)
		} else {
			s.logger.Warn("static data file rejected, using initial content", "path", staticFile, "error", err)
		}
	}

	if err := s.Reset(ctx); err != nil {
		return "", err
	}
	return SourceInitial, nil
}

// Reset replaces the store with the built-in content
func (s *Seeder) Reset(ctx context.Context) error {
	books, modules := Initial()
	if _, err := s.snapshot.PersistSnapshot(ctx, books, modules); err != nil {
		return fmt.Errorf("seed initial content: %w", err)
	}
	s.logger.Info("initial content loaded", "books", len(books), "modules", len(modules))
	return nil
}

func (s *Seeder) loadStatic(ctx context.Context, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	var data models.Snapshot
	if err := json.NewDecoder(f).Decode(&data); err != nil {
		return fmt.Errorf("parse %s: %w", path, err)
	}

	modules := UniqueByTitle(data.Modules)
	if dropped := len(data.Modules) - len(modules); dropped > 0 {
		s.logger.Info("dropped duplicate modules from static data", "count", dropped)
	}

	if _, err := s.snapshot.PersistSnapshot(ctx, data.Books, modules); err != nil {
		return err
	}
	s.logger.Info("static data loaded", "path", path, "books", len(data.Books), "modules", len(modules))
	return nil
}

// UniqueByTitle keeps the first module of every title
func UniqueByTitle(modules []models.Module) []models.Module {
	seen := mapset.NewThreadUnsafeSet[string]()
	unique := make([]models.Module, 0, len(modules))
	for _, m := range modules {
		if seen.Add(m.Title) {
			unique = append(unique, m)
		}
	}
	return unique
}

// Initial returns the built-in book with its five starter modules
func Initial() ([]models.Book, []models.Module) {
	books := []models.Book{{
		ID:             1,
		Title:          "DressLine",
		WelcomeContent: "<h1>DressLine</h1><p>Modern E-Book</p>",
		Bibliography:   "<h2>Bibliography</h2><p>List of references...</p>",
	}}

	topics := []struct{ title, content string }{
		{
			"Kirish",
			"<h1>Kirish</h1><p>Bu yerda siz kitobning kirish qismini yozishingiz mumkin.</p>",
		},
		{
			"1-Mavzu: Kirish. Kiyimlarni konstruksiyalashga doir dastlabki ma'lumotlar.",
			"<h1>1-Mavzu: Kirish</h1><p>Kiyimlarni konstruksiyalashga doir dastlabki ma'lumotlar haqida ma'lumot.</p>",
		},
		{
			"2-Mavzu: Gavdadan o'lchov olish qoidalari. Kiyimni loyihalash usullari",
			"<h1>2-Mavzu: Gavdadan o'lchov olish qoidalari</h1><p>Kiyimni loyihalash usullari haqida ma'lumot.</p>",
		},
		{
			"3-Mavzu: Oshxonada kiyiladigan kiyimlarni konstruksiyalash haqida umumiy ma'lumot",
			"<h1>3-Mavzu: Oshxonada kiyiladigan kiyimlar</h1><p>Oshxonada kiyiladigan kiyimlarni konstruksiyalash haqida umumiy ma'lumot.</p>",
		},
		{
			"4-Mavzu: Chaqaloqlar kiyimlari turlari haqida umumiy ma'lumot",
			"<h1>4-Mavzu: Chaqaloqlar kiyimlari</h1><p>Chaqaloqlar kiyimlari turlari haqida umumiy ma'lumot.</p>",
		},
	}

	modules := make([]models.Module, len(topics))
	for i, topic := range topics {
		modules[i] = models.Module{
			ID:      int64(i + 1),
			BookID:  books[0].ID,
			Title:   topic.title,
			Content: topic.content,
			Order:   i + 1,
		}
	}
	return books, modules
}
