package accounts

import (
	"context"
	"sync"

	"github.com/dmitrijs2005/gophguard/internal/common"
	"github.com/dmitrijs2005/gophguard/internal/server/models"
	"github.com/google/uuid"
)

// MemoryRepository keeps accounts in process memory. Records are cloned on
// the way in and out, so callers never share state with the store.
type MemoryRepository struct {
	mu      sync.RWMutex
	byID    map[string]*models.Account
	byEmail map[string]string
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		byID:    make(map[string]*models.Account),
		byEmail: make(map[string]string),
	}
}

func (r *MemoryRepository) Create(ctx context.Context, a *models.Account) (*models.Account, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	email := NormalizeEmail(a.Email)
	if _, ok := r.byEmail[email]; ok {
		return nil, common.ErrDuplicateEmail
	}
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	a.Email = email
	a.Version = 1

	r.byID[a.ID] = a.Clone()
	r.byEmail[email] = a.ID
	return a, nil
}

func (r *MemoryRepository) GetByID(ctx context.Context, id string) (*models.Account, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	a, ok := r.byID[id]
	if !ok {
		return nil, common.ErrorNotFound
	}
	return a.Clone(), nil
}

func (r *MemoryRepository) GetByEmail(ctx context.Context, email string) (*models.Account, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	id, ok := r.byEmail[NormalizeEmail(email)]
	if !ok {
		return nil, common.ErrorNotFound
	}
	return r.byID[id].Clone(), nil
}

func (r *MemoryRepository) GetByResetToken(ctx context.Context, digest string) (*models.Account, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, a := range r.byID {
		if a.Reset != nil && a.Reset.TokenDigest == digest {
			return a.Clone(), nil
		}
	}
	return nil, common.ErrorNotFound
}

func (r *MemoryRepository) Update(ctx context.Context, a *models.Account) (*models.Account, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	cur, ok := r.byID[a.ID]
	if !ok || cur.Version != a.Version {
		return nil, common.ErrVersionConflict
	}

	email := NormalizeEmail(a.Email)
	if email != cur.Email {
		if _, taken := r.byEmail[email]; taken {
			return nil, common.ErrDuplicateEmail
		}
		delete(r.byEmail, cur.Email)
		r.byEmail[email] = a.ID
	}

	a.Email = email
	a.Version = cur.Version + 1
	r.byID[a.ID] = a.Clone()
	return a, nil
}
