// Package postgres implements the remote document mirror on PostgreSQL.
package postgres

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// RepositoryConfig holds configuration for repository implementations
type RepositoryConfig struct {
	Pool   *pgxpool.Pool
	Tables *TableNames
	Logger *slog.Logger
}

// TableNames holds dynamically prefixed table names of the remote mirror
type TableNames struct {
	Books   string
	Modules string
}

// NewTableNames creates table names with the given prefix (dev_, test_, prod_)
func NewTableNames(prefix string) *TableNames {
	return &TableNames{
		Books:   fmt.Sprintf("%sbooks", prefix),
		Modules: fmt.Sprintf("%smodules", prefix),
	}
}

// CreateConnectionPool creates a pgx pool for the remote mirror.
//
// Sync traffic is a handful of sequential statements per admin action, so the
// pool is small. Connections through a transaction pooler (PgBouncer, port
// 6543) cannot use prepared statements; for those the pool switches to
// QueryExecModeCacheDescribe unless the URL already sets
// default_query_exec_mode.
//
// Table names are interpolated with fmt.Sprintf before the statement reaches
// the server, so each prefix gets its own cached statements.
func CreateConnectionPool(ctx context.Context, databaseURL string) (*pgxpool.Pool, error) {
	config, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse connection string: %w", err)
	}

	config.MaxConns = 8
	config.MinConns = 1

	if config.ConnConfig.Port == 6543 && config.ConnConfig.DefaultQueryExecMode == pgx.QueryExecModeCacheStatement {
		config.ConnConfig.DefaultQueryExecMode = pgx.QueryExecModeCacheDescribe
		slog.Debug("auto-configured cache_describe mode for PgBouncer compatibility", "port", 6543)
	}

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("create connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	return pool, nil
}

// GetExecutor returns the transaction carried by ctx, or the pool when there is none.
func GetExecutor(ctx context.Context, pool *pgxpool.Pool) DBTX {
	if tx := GetTx(ctx); tx != nil {
		return tx
	}
	return pool
}
