package repomanager

import (
	"context"

	"github.com/dmitrijs2005/gophguard/internal/server/repositories/accounts"
	"github.com/dmitrijs2005/gophguard/internal/server/repositories/loginevents"
)

// Repositories is a set of repositories bound to one connection or
// transaction.
type Repositories interface {
	Accounts() accounts.Repository
	LoginEvents() loginevents.Repository
}

type RepositoryManager interface {
	Repositories

	RunMigrations(ctx context.Context) error
	// WithTx runs fn with repositories bound to a single transaction. The
	// transaction is committed when fn returns nil and rolled back otherwise.
	WithTx(ctx context.Context, fn func(ctx context.Context, repos Repositories) error) error
	Close() error
}
