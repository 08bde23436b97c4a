// Package loginevents keeps the append-only log of authentication outcomes.
package loginevents

import (
	"context"

	"github.com/dmitrijs2005/gophguard/internal/server/models"
)

type Repository interface {
	Record(ctx context.Context, event *models.LoginEvent) error
	// ListByAccount returns up to limit events, newest first.
	ListByAccount(ctx context.Context, accountID string, limit int) ([]models.LoginEvent, error)
}
