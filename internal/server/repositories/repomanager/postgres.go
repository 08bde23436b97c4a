// Package repomanager wires repository implementations to their storage:
// PostgreSQL (with goose migrations) or process memory.
package repomanager

import (
	"context"
	"database/sql"

	"github.com/dmitrijs2005/gophguard/internal/dbx"
	"github.com/dmitrijs2005/gophguard/internal/server/migrations"
	"github.com/dmitrijs2005/gophguard/internal/server/repositories/accounts"
	"github.com/dmitrijs2005/gophguard/internal/server/repositories/loginevents"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
)

// PostgresRepositoryManager vends PostgreSQL-backed repositories and
// exposes a schema migration hook.
type PostgresRepositoryManager struct {
	db *sql.DB
}

// OpenPostgres opens a pgx-backed pool and checks it is reachable.
func OpenPostgres(ctx context.Context, dsn string) (*PostgresRepositoryManager, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, err
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return NewPostgresRepositoryManager(db), nil
}

func NewPostgresRepositoryManager(db *sql.DB) *PostgresRepositoryManager {
	return &PostgresRepositoryManager{db: db}
}

func (m *PostgresRepositoryManager) Accounts() accounts.Repository {
	return accounts.NewPostgresRepository(m.db)
}

func (m *PostgresRepositoryManager) LoginEvents() loginevents.Repository {
	return loginevents.NewPostgresRepository(m.db)
}

func (m *PostgresRepositoryManager) WithTx(ctx context.Context, fn func(ctx context.Context, repos Repositories) error) error {
	return dbx.WithTx(ctx, m.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		return fn(ctx, txRepositories{tx: tx})
	})
}

func (m *PostgresRepositoryManager) Close() error {
	return m.db.Close()
}

// gooseUpContext is a seam for testing goose.UpContext.
var gooseUpContext = func(ctx context.Context, db *sql.DB, dir string, opts ...goose.OptionsFunc) error {
	return goose.UpContext(ctx, db, dir, opts...)
}

// RunMigrations applies the embedded migrations.
func (m *PostgresRepositoryManager) RunMigrations(ctx context.Context) error {
	goose.SetBaseFS(migrations.Migrations)
	if err := goose.SetDialect("pgx"); err != nil {
		return err
	}
	return gooseUpContext(ctx, m.db, ".")
}

type txRepositories struct {
	tx dbx.DBTX
}

func (r txRepositories) Accounts() accounts.Repository {
	return accounts.NewPostgresRepository(r.tx)
}

func (r txRepositories) LoginEvents() loginevents.Repository {
	return loginevents.NewPostgresRepository(r.tx)
}
