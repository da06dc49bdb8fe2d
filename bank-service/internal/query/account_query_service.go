package query

import (
	"context"

	"github.com/Vashist1110/AVS-Bank/bank-service/internal/repository"
	"github.com/Vashist1110/AVS-Bank/shared/cqrs"
	"github.com/Vashist1110/AVS-Bank/shared/models"
)

const DefaultTransactionsLimit = 10

type AccountQueryService struct {
	readRepo *repository.AccountReadRepository
	limit    int
}

func NewAccountQueryService(readRepo *repository.AccountReadRepository, limit int) *AccountQueryService {
	if limit <= 0 {
		limit = DefaultTransactionsLimit
	}
	return &AccountQueryService{readRepo: readRepo, limit: limit}
}

// Profile returns the caller's account with its pending request flags.
func (s *AccountQueryService) Profile(ctx context.Context, q cqrs.GetProfileQuery) (*models.AccountView, error) {
	return s.readRepo.GetAccountView(ctx, q.AccountID)
}

// Transactions returns the caller's most recent history rows.
func (s *AccountQueryService) Transactions(ctx context.Context, q cqrs.ListTransactionsQuery) ([]models.Transaction, error) {
	limit := q.Limit
	if limit <= 0 {
		limit = s.limit
	}
	return s.readRepo.RecentTransactions(ctx, q.AccountID, limit)
}
