package query

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/Vashist1110/AVS-Bank/bank-service/internal/repository"
	"github.com/Vashist1110/AVS-Bank/shared/apperr"
	"github.com/Vashist1110/AVS-Bank/shared/auth"
	"github.com/Vashist1110/AVS-Bank/shared/cqrs"
	"github.com/Vashist1110/AVS-Bank/shared/models"
	sharedredis "github.com/Vashist1110/AVS-Bank/shared/redis"
	"github.com/Vashist1110/AVS-Bank/shared/utils"
	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

func newTestRedis(t *testing.T) *goredis.Client {
	t.Helper()
	mr := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return client
}

func seedAccount(t *testing.T, store repository.Store, id, phone, gender, accountType string, balance int64) *models.Account {
	t.Helper()
	hash, err := utils.HashPassword("Str0ng!Pass")
	if err != nil {
		t.Fatal(err)
	}
	account := &models.Account{
		ID:           id,
		Name:         "Customer " + id,
		Phone:        phone,
		Gender:       gender,
		DOB:          "1990-01-01",
		Adhaar:       "1234123412" + phone[8:],
		PAN:          "ABCDE12" + phone[8:] + "F",
		AccountType:  accountType,
		Balance:      balance,
		KYCStatus:    models.KYCNotSubmitted,
		PasswordHash: hash,
		CreatedAt:    time.Now(),
		UpdatedAt:    time.Now(),
	}
	if err := store.CreateAccount(context.Background(), account); err != nil {
		t.Fatal(err)
	}
	return account
}

func TestDashboardAggregatesOneSnapshot(t *testing.T) {
	store := repository.NewMemoryStore()
	readRepo := repository.NewAccountReadRepository(store, newTestRedis(t), time.Minute, zap.NewNop())
	svc := NewAdminQueryService(store, readRepo, 0)

	seedAccount(t, store, "acc-1", "9000000001", "Male", models.AccountTypeSavings, 1000)
	seedAccount(t, store, "acc-2", "9000000002", "Female", models.AccountTypeCurrent, 2500)
	seedAccount(t, store, "acc-3", "9000000003", "Female", models.AccountTypeSavings, 0)

	stats, err := svc.Dashboard(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if stats.TotalUsers != 3 || stats.TotalBalance != 3500 {
		t.Fatalf("totals = %d users, %d balance", stats.TotalUsers, stats.TotalBalance)
	}
	if stats.MaleUsers != 1 || stats.FemaleUsers != 2 || stats.SavingsAccounts != 2 || stats.CurrentAccounts != 1 {
		t.Fatalf("partitions = %+v", stats)
	}
}

func TestListUsersSetsPendingFlags(t *testing.T) {
	store := repository.NewMemoryStore()
	readRepo := repository.NewAccountReadRepository(store, newTestRedis(t), time.Minute, zap.NewNop())
	svc := NewAdminQueryService(store, readRepo, 0)
	ctx := context.Background()

	seedAccount(t, store, "acc-1", "9000000001", "Male", models.AccountTypeSavings, 0)
	seedAccount(t, store, "acc-2", "9000000002", "Female", models.AccountTypeSavings, 0)
	err := store.InTx(ctx, func(tx repository.Tx) error {
		return tx.InsertKYCRequest(ctx, &models.KYCRequest{
			ID: "kyc-1", AccountID: "acc-2", Status: models.RequestPending, CreatedAt: time.Now(),
		})
	})
	if err != nil {
		t.Fatal(err)
	}

	users, err := svc.ListUsers(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(users) != 2 {
		t.Fatalf("expected 2 users, got %d", len(users))
	}
	for _, u := range users {
		if u.HasPendingKYCRequest != (u.ID == "acc-2") || u.HasPendingUpdateRequest {
			t.Errorf("flags for %s = %v/%v", u.ID, u.HasPendingKYCRequest, u.HasPendingUpdateRequest)
		}
	}

	kyc, err := svc.ListKYCRequests(ctx)
	if err != nil || len(kyc) != 1 || kyc[0].AccountNumber != "AVS1002" {
		t.Fatalf("kyc list = %+v, %v", kyc, err)
	}
}

func TestTransactionQueries(t *testing.T) {
	store := repository.NewMemoryStore()
	readRepo := repository.NewAccountReadRepository(store, newTestRedis(t), time.Minute, zap.NewNop())
	ctx := context.Background()
	seedAccount(t, store, "acc-1", "9000000001", "Male", models.AccountTypeSavings, 0)

	err := store.InTx(ctx, func(tx repository.Tx) error {
		for i := int64(1); i <= 15; i++ {
			if err := tx.InsertTransaction(ctx, &models.Transaction{
				ID: i, AccountID: "acc-1", Amount: i, Type: models.TransactionCredit,
				Kind: models.KindDeposit, BalanceAfter: i * (i + 1) / 2, CreatedAt: time.Now(),
			}); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		t.Fatal(err)
	}

	accounts := NewAccountQueryService(readRepo, 0)
	txns, err := accounts.Transactions(ctx, cqrs.ListTransactionsQuery{AccountID: "acc-1"})
	if err != nil || len(txns) != DefaultTransactionsLimit || txns[0].ID != 15 {
		t.Fatalf("default page = %d rows (first %+v), %v", len(txns), txns, err)
	}
	txns, _ = accounts.Transactions(ctx, cqrs.ListTransactionsQuery{AccountID: "acc-1", Limit: 3})
	if len(txns) != 3 || txns[2].ID != 13 {
		t.Fatalf("limited page = %+v", txns)
	}

	admin := NewAdminQueryService(store, readRepo, 5)
	txns, err = admin.UserTransactions(ctx, cqrs.ListTransactionsQuery{AccountID: "acc-1"})
	if err != nil || len(txns) != 5 {
		t.Fatalf("admin page = %d, %v", len(txns), err)
	}
	if _, err := admin.UserTransactions(ctx, cqrs.ListTransactionsQuery{AccountID: "acc-404"}); !errors.Is(err, repository.ErrAccountNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestAdminGetUser(t *testing.T) {
	store := repository.NewMemoryStore()
	readRepo := repository.NewAccountReadRepository(store, newTestRedis(t), time.Minute, zap.NewNop())
	ctx := context.Background()
	seedAccount(t, store, "acc-1", "9000000001", "Female", models.AccountTypeCurrent, 700)
	err := store.InTx(ctx, func(tx repository.Tx) error {
		return tx.InsertKYCRequest(ctx, &models.KYCRequest{
			ID: "kyc-1", AccountID: "acc-1", PancardPath: "p", PhotoPath: "f", SignaturePath: "s",
			Status: models.RequestPending, CreatedAt: time.Now(),
		})
	})
	if err != nil {
		t.Fatal(err)
	}

	svc := NewAdminQueryService(store, readRepo, 0)
	view, err := svc.GetUser(ctx, cqrs.GetUserQuery{AccountID: "acc-1"})
	if err != nil {
		t.Fatal(err)
	}
	if view.Balance != 700 || !view.HasPendingKYCRequest || view.HasPendingUpdateRequest {
		t.Fatalf("view = %+v", view)
	}
	if _, err := svc.GetUser(ctx, cqrs.GetUserQuery{AccountID: "acc-404"}); !errors.Is(err, repository.ErrAccountNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestProfileIncludesPendingFlags(t *testing.T) {
	store := repository.NewMemoryStore()
	readRepo := repository.NewAccountReadRepository(store, newTestRedis(t), time.Minute, zap.NewNop())
	ctx := context.Background()
	seedAccount(t, store, "acc-1", "9000000001", "Male", models.AccountTypeSavings, 0)
	err := store.InTx(ctx, func(tx repository.Tx) error {
		return tx.InsertUpdateRequest(ctx, &models.UpdateRequest{
			ID: "upd-1", AccountID: "acc-1", Changes: models.FieldMap{"name": "New"},
			Previous: models.FieldMap{"name": "Old"}, Status: models.RequestPending, CreatedAt: time.Now(),
		})
	})
	if err != nil {
		t.Fatal(err)
	}

	view, err := NewAccountQueryService(readRepo, 0).Profile(ctx, cqrs.GetProfileQuery{AccountID: "acc-1"})
	if err != nil {
		t.Fatal(err)
	}
	if !view.HasPendingUpdateRequest || view.HasPendingKYCRequest || view.Role != "user" {
		t.Fatalf("view = %+v", view)
	}
}

func TestLogin(t *testing.T) {
	store := repository.NewMemoryStore()
	client := newTestRedis(t)
	tokens, err := auth.NewTokenManager("login-test-secret-123", time.Hour)
	if err != nil {
		t.Fatal(err)
	}
	limiter := sharedredis.NewRateLimiter(client, "test:login", 3, time.Minute)
	svc := NewAuthQueryService(store, tokens, limiter, zap.NewNop())
	ctx := context.Background()

	seedAccount(t, store, "acc-1", "9000000001", "Male", models.AccountTypeSavings, 0)
	hash, _ := utils.HashPassword("Adm1n!Pass")
	if err := store.CreateAdmin(ctx, &models.Admin{ID: "adm-1", Username: "root", PasswordHash: hash}); err != nil {
		t.Fatal(err)
	}

	result, err := svc.Login(ctx, cqrs.LoginCommand{Phone: "9000000001", Password: "Str0ng!Pass"})
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	principal, err := tokens.Authenticate(result.AccessToken)
	if err != nil || principal.Subject != "acc-1" || principal.Role != auth.RoleUser {
		t.Fatalf("principal = %+v, %v", principal, err)
	}

	if _, err := svc.Login(ctx, cqrs.LoginCommand{Phone: "9000000001", Password: "wrong"}); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected invalid credentials, got %v", err)
	}
	if _, err := svc.Login(ctx, cqrs.LoginCommand{Phone: "9000000099", Password: "Str0ng!Pass"}); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected invalid credentials for unknown phone, got %v", err)
	}

	admin, err := svc.AdminLogin(ctx, cqrs.AdminLoginCommand{Username: "ROOT", Password: "Adm1n!Pass"})
	if err != nil || admin.Role != auth.RoleAdmin {
		t.Fatalf("admin login = %+v, %v", admin, err)
	}

	// 9000000001 has used 2 of its 3 attempts.
	if _, err := svc.Login(ctx, cqrs.LoginCommand{Phone: "9000000001", Password: "Str0ng!Pass"}); err != nil {
		t.Fatalf("third attempt: %v", err)
	}
	_, err = svc.Login(ctx, cqrs.LoginCommand{Phone: "9000000001", Password: "Str0ng!Pass"})
	if apperr.KindOf(err) != apperr.KindRateLimited {
		t.Fatalf("expected rate limited, got %v", err)
	}
}

func TestLoginFailsOpenWithoutLimiter(t *testing.T) {
	store := repository.NewMemoryStore()
	tokens, _ := auth.NewTokenManager("login-test-secret-123", time.Hour)
	svc := NewAuthQueryService(store, tokens, nil, zap.NewNop())
	seedAccount(t, store, "acc-1", "9000000001", "Male", models.AccountTypeSavings, 0)

	for i := 0; i < 5; i++ {
		if _, err := svc.Login(context.Background(), cqrs.LoginCommand{Phone: "9000000001", Password: "Str0ng!Pass"}); err != nil {
			t.Fatalf("attempt %d: %v", i, err)
		}
	}
}
