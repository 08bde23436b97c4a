package repomanager

import (
	"context"

	"github.com/dmitrijs2005/gophguard/internal/server/repositories/accounts"
	"github.com/dmitrijs2005/gophguard/internal/server/repositories/loginevents"
)

// MemoryRepositoryManager serves single-process deployments and tests.
//
// WithTx offers no rollback: every repository call is atomic on its own and
// account writes stay conditioned on the version, which is all the services
// rely on.
type MemoryRepositoryManager struct {
	accounts *accounts.MemoryRepository
	events   *loginevents.MemoryRepository
}

func NewMemoryRepositoryManager() *MemoryRepositoryManager {
	return &MemoryRepositoryManager{
		accounts: accounts.NewMemoryRepository(),
		events:   loginevents.NewMemoryRepository(),
	}
}

func (m *MemoryRepositoryManager) Accounts() accounts.Repository       { return m.accounts }
func (m *MemoryRepositoryManager) LoginEvents() loginevents.Repository { return m.events }

func (m *MemoryRepositoryManager) RunMigrations(context.Context) error { return nil }
func (m *MemoryRepositoryManager) Close() error                        { return nil }

func (m *MemoryRepositoryManager) WithTx(ctx context.Context, fn func(ctx context.Context, repos Repositories) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return fn(ctx, m)
}
