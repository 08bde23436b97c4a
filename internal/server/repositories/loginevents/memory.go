package loginevents

import (
	"context"
	"sync"

	"github.com/dmitrijs2005/gophguard/internal/server/models"
	"github.com/google/uuid"
)

type MemoryRepository struct {
	mu     sync.RWMutex
	events []models.LoginEvent
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{}
}

func (r *MemoryRepository) Record(ctx context.Context, e *models.LoginEvent) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if e.ID == "" {
		e.ID = uuid.NewString()
	}

	r.mu.Lock()
	r.events = append(r.events, *e)
	r.mu.Unlock()
	return nil
}

// ListByAccount walks the log backwards; insertion order stands in for
// created_at ordering.
func (r *MemoryRepository) ListByAccount(ctx context.Context, accountID string, limit int) ([]models.LoginEvent, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]models.LoginEvent, 0)
	for i := len(r.events) - 1; i >= 0 && len(out) < limit; i-- {
		if r.events[i].AccountID == accountID {
			out = append(out, r.events[i])
		}
	}
	return out, nil
}
