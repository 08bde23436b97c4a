package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/gophguard/internal/common"
	"github.com/dmitrijs2005/gophguard/internal/server/models"
	"github.com/dmitrijs2005/gophguard/internal/server/repositories/accounts"
	"github.com/dmitrijs2005/gophguard/internal/server/repositories/repomanager"
	"github.com/google/uuid"
)

// change is what a mutation decided for one read of an account.
type change struct {
	// write persists the (mutated) account.
	write bool
	// event, when set, is appended to the login event log in the same
	// transaction.
	event  models.EventOutcome
	device string
	// result is handed back to the caller after the transaction commits.
	result error
}

type loader func(ctx context.Context, repo accounts.Repository) (*models.Account, error)

func byID(id string) loader {
	return func(ctx context.Context, repo accounts.Repository) (*models.Account, error) {
		return repo.GetByID(ctx, id)
	}
}

// mutate loads an account, lets apply decide on it and commits the outcome
// with a version check. A lost race re-reads the record and re-runs apply,
// so apply must be a pure function of the account and now apart from the
// values it hands back through its closure.
func (s *AccessService) mutate(ctx context.Context, load loader, apply func(a *models.Account, now time.Time) change) (*models.Account, error) {
	for attempt := 0; attempt < s.maxRetries; attempt++ {
		var (
			account *models.Account
			result  error
		)

		err := s.repos.WithTx(ctx, func(ctx context.Context, repos repomanager.Repositories) error {
			a, err := load(ctx, repos.Accounts())
			if err != nil {
				return err
			}

			now := s.clock.Now()
			c := apply(a, now)

			if c.write {
				a.UpdatedAt = now
				if a, err = repos.Accounts().Update(ctx, a); err != nil {
					return err
				}
			}
			if c.event != "" {
				if err := s.recordEvent(ctx, repos, a, c.event, c.device, now); err != nil {
					return err
				}
			}

			account, result = a, c.result
			return nil
		})

		if errors.Is(err, common.ErrVersionConflict) {
			s.metrics.OptimisticRetry()
			continue
		}
		if err != nil {
			return nil, storeError(err)
		}
		return account, result
	}

	return nil, fmt.Errorf("%w: account kept changing, gave up after %d attempts", common.ErrTransient, s.maxRetries)
}

func (s *AccessService) recordEvent(ctx context.Context, repos repomanager.Repositories, a *models.Account, outcome models.EventOutcome, device string, now time.Time) error {
	return repos.LoginEvents().Record(ctx, &models.LoginEvent{
		ID:        uuid.NewString(),
		AccountID: a.ID,
		Email:     a.Email,
		Outcome:   outcome,
		Device:    device,
		CreatedAt: now,
	})
}

// storeError passes through errors callers act on and turns everything
// else the store reports into a retryable failure.
func storeError(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, common.ErrorNotFound),
		errors.Is(err, common.ErrDuplicateEmail),
		errors.Is(err, common.ErrTransient),
		errors.Is(err, context.Canceled),
		errors.Is(err, context.DeadlineExceeded):
		return err
	default:
		return fmt.Errorf("%w: %v", common.ErrTransient, err)
	}
}

func sameLockout(a, b models.Lockout) bool {
	if a.Stage != b.Stage || a.FailedAttempts != b.FailedAttempts {
		return false
	}
	if a.TemporaryLockUntil == nil || b.TemporaryLockUntil == nil {
		return a.TemporaryLockUntil == b.TemporaryLockUntil
	}
	return a.TemporaryLockUntil.Equal(*b.TemporaryLockUntil)
}
