package services

import (
	"context"

	"github.com/dmitrijs2005/gophguard/internal/common"
	"github.com/dmitrijs2005/gophguard/internal/server/models"
)

// LoginEvents lists the newest events of an account. Only the owner and
// admins may read them. A non-positive limit gets the default page size.
func (s *AccessService) LoginEvents(ctx context.Context, principal models.Principal, accountID string, limit int) ([]models.LoginEvent, error) {
	if principal.AccountID != accountID && !principal.IsAdmin() {
		return nil, common.ErrForbidden
	}
	if accountID == "" {
		return nil, &common.ValidationError{Field: "account_id", Reason: "is required"}
	}

	switch {
	case limit <= 0:
		limit = defaultEventsLimit
	case limit > maxEventsLimit:
		limit = maxEventsLimit
	}

	events, err := s.repos.LoginEvents().ListByAccount(ctx, accountID, limit)
	if err != nil {
		return nil, storeError(err)
	}
	return events, nil
}
