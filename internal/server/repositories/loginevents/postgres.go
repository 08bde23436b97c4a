package loginevents

import (
	"context"
	"fmt"

	"github.com/dmitrijs2005/gophguard/internal/dbx"
	"github.com/dmitrijs2005/gophguard/internal/server/models"
	"github.com/google/uuid"
)

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Record(ctx context.Context, e *models.LoginEvent) error {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}

	query :=
		`INSERT INTO login_events (id, account_id, email, outcome, device, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6)`

	if _, err := r.db.ExecContext(ctx, query, e.ID, e.AccountID, e.Email, string(e.Outcome), e.Device, e.CreatedAt); err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func (r *PostgresRepository) ListByAccount(ctx context.Context, accountID string, limit int) ([]models.LoginEvent, error) {
	query :=
		`SELECT id, account_id, email, outcome, device, created_at FROM login_events
		 WHERE account_id = $1
		 ORDER BY created_at DESC
		 LIMIT $2`

	rows, err := r.db.QueryContext(ctx, query, accountID, limit)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	events := make([]models.LoginEvent, 0, limit)
	for rows.Next() {
		var (
			e       models.LoginEvent
			outcome string
		)
		if err := rows.Scan(&e.ID, &e.AccountID, &e.Email, &outcome, &e.Device, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		e.Outcome = models.EventOutcome(outcome)
		e.CreatedAt = e.CreatedAt.UTC()
		events = append(events, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}

	return events, nil
}
