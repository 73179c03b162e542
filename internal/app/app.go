// Package app wires stores, services and background jobs for every binary.
package app

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"dressline/internal/appmode"
	"dressline/internal/attachment"
	"dressline/internal/config"
	"dressline/internal/domain/repositories"
	ebookRepo "dressline/internal/domain/repositories/ebook"
	ebookSvc "dressline/internal/domain/services/ebook"
	"dressline/internal/jobs"
	"dressline/internal/repository/postgres"
	"dressline/internal/repository/redis"
	"dressline/internal/repository/sqlite"
	ebookService "dressline/internal/service/ebook"
	"dressline/internal/service/sanitizer"
	"dressline/internal/seed"
)

// App holds everything a binary needs. Remote, RemoteTx and Sync are nil
// when no remote database is configured.
type App struct {
	Config *config.Config
	Logger *slog.Logger

	BookRepo   ebookRepo.BookRepository
	ModuleRepo ebookRepo.ModuleRepository
	TxManager  repositories.TransactionManager
	Backup     ebookRepo.BackupStore
	Remote     *postgres.PostgresRemoteStore
	RemoteTx   repositories.TransactionManager

	Books    ebookSvc.BookService
	Modules  ebookSvc.ModuleService
	Backups  ebookSvc.BackupService
	Snapshot ebookSvc.SnapshotService
	Sync     ebookSvc.SyncService

	Seeder  *seed.Seeder
	Runner  *jobs.Runner
	Mode    *appmode.State
	Handles *attachment.Handles

	closers []func()
}

// New opens every configured store and builds the services. The job runner
// is created but not started.
func New(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*App, error) {
	a := &App{Config: cfg, Logger: logger}
	ready := false
	defer func() {
		if !ready {
			a.Close()
		}
	}()

	localDB, err := sqlite.OpenLocalStore(ctx, cfg.LocalDBPath, sqlite.WithMkdirAll())
	if err != nil {
		return nil, fmt.Errorf("open local store: %w", err)
	}
	a.onClose(func() { localDB.Close() })
	if err := sqlite.CheckIntegrity(ctx, localDB); err != nil {
		logger.Warn("local store integrity check failed", "error", err)
	}

	localConfig := &sqlite.RepositoryConfig{DB: localDB, Logger: logger}
	a.BookRepo = sqlite.NewBookRepository(localConfig)
	a.ModuleRepo = sqlite.NewModuleRepository(localConfig)
	a.TxManager = sqlite.NewTransactionManager(localDB)

	if a.Backup, err = a.openBackup(ctx); err != nil {
		return nil, err
	}

	if cfg.RemoteDBURL != "" {
		pool, err := postgres.CreateConnectionPool(ctx, cfg.RemoteDBURL)
		if err != nil {
			return nil, fmt.Errorf("connect remote database: %w", err)
		}
		a.onClose(pool.Close)

		a.Remote = postgres.NewRemoteStore(&postgres.RepositoryConfig{
			Pool:   pool,
			Tables: postgres.NewTableNames(cfg.TablePrefix),
			Logger: logger,
		})
		a.RemoteTx = postgres.NewTransactionManager(pool, logger)
		logger.Info("remote mirror connected", "table_prefix", cfg.TablePrefix)
	}

	mode, err := appmode.Parse(cfg.AppMode)
	if err != nil {
		return nil, err
	}
	a.Mode = appmode.New(mode)
	a.Handles = attachment.NewHandles()

	// the trigger resolves the job by id, so services can exist before it is added
	a.Runner = jobs.NewRunner(logger)
	trigger := a.Runner.TriggerFor(jobs.BackupJobID)

	html := sanitizer.NewHTMLSanitizer()
	a.Books = ebookService.NewBookService(a.BookRepo, a.ModuleRepo, a.TxManager, html, trigger, logger)
	a.Modules = ebookService.NewModuleService(a.ModuleRepo, a.TxManager, html, trigger, logger)
	a.Backups = ebookService.NewBackupService(a.ModuleRepo, a.Backup, logger)
	a.Snapshot = ebookService.NewSnapshotService(a.BookRepo, a.ModuleRepo, a.TxManager, a.Backup, trigger, logger)
	if a.Remote != nil {
		a.Sync = ebookService.NewSyncService(a.BookRepo, a.ModuleRepo, a.TxManager, a.Remote, trigger, logger)
	}
	a.Seeder = seed.NewSeeder(a.BookRepo, a.ModuleRepo, a.Snapshot, logger)

	if err := a.Runner.Add(jobs.NewBackupJob(a.Backups, logger), cfg.BackupSchedule); err != nil {
		return nil, err
	}

	ready = true
	return a, nil
}

func (a *App) openBackup(ctx context.Context) (ebookRepo.BackupStore, error) {
	cfg := a.Config
	switch cfg.BackupBackend {
	case "redis":
		store, err := redis.NewKVStore(ctx, redis.Options{
			Addr:          cfg.RedisAddr,
			Password:      cfg.RedisPassword,
			DB:            cfg.RedisDB,
			KeyPrefix:     cfg.RedisKeyPrefix,
			MaxValueBytes: cfg.BackupMaxValueBytes,
		}, a.Logger)
		if err != nil {
			return nil, fmt.Errorf("open redis backup medium: %w", err)
		}
		a.onClose(func() { store.Close() })
		a.Logger.Info("backup medium ready", "backend", "redis", "addr", cfg.RedisAddr)
		return store, nil

	default:
		db, err := sqlite.OpenBackupStore(ctx, cfg.BackupDBPath, sqlite.WithMkdirAll())
		if err != nil {
			return nil, fmt.Errorf("open sqlite backup medium: %w", err)
		}
		a.onClose(func() { db.Close() })
		a.Logger.Info("backup medium ready", "backend", "sqlite", "path", cfg.BackupDBPath)
		return newSQLiteBackup(db, cfg, a.Logger), nil
	}
}

func newSQLiteBackup(db *sql.DB, cfg *config.Config, logger *slog.Logger) *sqlite.KVStore {
	return sqlite.NewKVStore(&sqlite.RepositoryConfig{DB: db, Logger: logger}, sqlite.KVOptions{
		MaxValueBytes: cfg.BackupMaxValueBytes,
		QuotaBytes:    cfg.BackupQuotaBytes,
	})
}

// EnsureRemoteSchema creates the remote tables; it is a no-op without a remote
func (a *App) EnsureRemoteSchema(ctx context.Context) error {
	if a.Remote == nil {
		return nil
	}
	return a.Remote.EnsureSchema(ctx, a.RemoteTx)
}

func (a *App) onClose(fn func()) {
	a.closers = append(a.closers, fn)
}

// Close stops the job runner and closes the stores in reverse open order
func (a *App) Close() {
	if a.Runner != nil {
		a.Runner.Stop()
	}
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}
