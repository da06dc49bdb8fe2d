package query

import (
	"context"

	"github.com/Vashist1110/AVS-Bank/bank-service/internal/repository"
	"github.com/Vashist1110/AVS-Bank/shared/cqrs"
	"github.com/Vashist1110/AVS-Bank/shared/models"
)

// AdminQueryService backs the admin dashboard. Lists read the store
// directly; admins always see current data.
type AdminQueryService struct {
	store    repository.Store
	readRepo *repository.AccountReadRepository
	limit    int
}

func NewAdminQueryService(store repository.Store, readRepo *repository.AccountReadRepository, limit int) *AdminQueryService {
	if limit <= 0 {
		limit = DefaultTransactionsLimit
	}
	return &AdminQueryService{store: store, readRepo: readRepo, limit: limit}
}

// Dashboard aggregates counts by gender and account type plus the total
// balance, all from one snapshot.
func (s *AdminQueryService) Dashboard(ctx context.Context) (*models.DashboardStats, error) {
	return s.store.Stats(ctx)
}

func (s *AdminQueryService) ListUsers(ctx context.Context) ([]models.AccountView, error) {
	accounts, err := s.store.ListAccounts(ctx)
	if err != nil {
		return nil, err
	}
	kyc, err := s.store.ListPendingKYC(ctx)
	if err != nil {
		return nil, err
	}
	updates, err := s.store.ListPendingUpdates(ctx)
	if err != nil {
		return nil, err
	}

	pendingKYC := make(map[string]bool, len(kyc))
	for _, r := range kyc {
		pendingKYC[r.AccountID] = true
	}
	pendingUpdate := make(map[string]bool, len(updates))
	for _, r := range updates {
		pendingUpdate[r.AccountID] = true
	}

	views := make([]models.AccountView, 0, len(accounts))
	for i := range accounts {
		view := models.NewAccountView(&accounts[i])
		view.HasPendingKYCRequest = pendingKYC[view.ID]
		view.HasPendingUpdateRequest = pendingUpdate[view.ID]
		views = append(views, *view)
	}
	return views, nil
}

func (s *AdminQueryService) GetUser(ctx context.Context, q cqrs.GetUserQuery) (*models.AccountView, error) {
	return s.readRepo.GetAccountView(ctx, q.AccountID)
}

// UserTransactions returns the most recent history rows of any account.
func (s *AdminQueryService) UserTransactions(ctx context.Context, q cqrs.ListTransactionsQuery) ([]models.Transaction, error) {
	if _, err := s.store.GetAccount(ctx, q.AccountID); err != nil {
		return nil, err
	}
	limit := q.Limit
	if limit <= 0 {
		limit = s.limit
	}
	return s.readRepo.RecentTransactions(ctx, q.AccountID, limit)
}

func (s *AdminQueryService) ListKYCRequests(ctx context.Context) ([]models.KYCRequestView, error) {
	return s.store.ListPendingKYC(ctx)
}

func (s *AdminQueryService) ListUpdateRequests(ctx context.Context) ([]models.UpdateRequestView, error) {
	return s.store.ListPendingUpdates(ctx)
}
