package repository

import (
	"context"

	"github.com/Vashist1110/AVS-Bank/shared/apperr"
	"github.com/Vashist1110/AVS-Bank/shared/models"
)

var (
	ErrAccountNotFound = apperr.New(apperr.KindNotFound, "account not found")
	ErrRequestNotFound = apperr.New(apperr.KindNotFound, "request not found")
	ErrAdminNotFound   = apperr.New(apperr.KindNotFound, "admin not found")

	ErrPhoneTaken    = apperr.New(apperr.KindValidation, "phone number already registered")
	ErrEmailTaken    = apperr.New(apperr.KindValidation, "email already registered")
	ErrAdhaarTaken   = apperr.New(apperr.KindValidation, "adhaar number already registered")
	ErrPANTaken      = apperr.New(apperr.KindValidation, "PAN already registered")
	ErrUsernameTaken = apperr.New(apperr.KindValidation, "username already taken")

	ErrKYCPending    = apperr.New(apperr.KindDuplicatePending, "a KYC request is already pending")
	ErrUpdatePending = apperr.New(apperr.KindDuplicatePending, "an update request is already pending")
)

// Store is the write model: accounts, their history and the request queue.
// Everything that must observe a consistent balance or pending state runs
// inside InTx.
type Store interface {
	// InTx runs fn in a transaction. Changes are committed only if fn returns
	// nil.
	InTx(ctx context.Context, fn func(Tx) error) error

	// CreateAccount assigns the next account number and inserts a.
	CreateAccount(ctx context.Context, a *models.Account) error
	GetAccount(ctx context.Context, id string) (*models.Account, error)
	GetAccountByPhone(ctx context.Context, phone string) (*models.Account, error)
	GetAccountByNumber(ctx context.Context, accountNumber string) (*models.Account, error)
	ListAccounts(ctx context.Context) ([]models.Account, error)

	// ListTransactions returns up to limit rows, newest first.
	ListTransactions(ctx context.Context, accountID string, limit int) ([]models.Transaction, error)

	ListPendingKYC(ctx context.Context) ([]models.KYCRequestView, error)
	ListPendingUpdates(ctx context.Context) ([]models.UpdateRequestView, error)
	HasPendingKYC(ctx context.Context, accountID string) (bool, error)
	HasPendingUpdate(ctx context.Context, accountID string) (bool, error)

	// Stats aggregates all accounts from a single snapshot.
	Stats(ctx context.Context) (*models.DashboardStats, error)

	CreateAdmin(ctx context.Context, a *models.Admin) error
	GetAdminByUsername(ctx context.Context, username string) (*models.Admin, error)
}

// Tx is the transactional view of the Store. Lock* methods hold the row
// until the transaction ends.
type Tx interface {
	LockAccount(ctx context.Context, id string) (*models.Account, error)
	FindAccountIDByNumber(ctx context.Context, accountNumber string) (string, error)
	// SaveAccount writes every mutable column, re-checking uniqueness of
	// phone, email, adhaar and PAN.
	SaveAccount(ctx context.Context, a *models.Account) error
	DeleteAccount(ctx context.Context, id string) error
	InsertTransaction(ctx context.Context, t *models.Transaction) error

	// PendingKYC returns the pending KYC request of an account, or nil.
	PendingKYC(ctx context.Context, accountID string) (*models.KYCRequest, error)
	InsertKYCRequest(ctx context.Context, r *models.KYCRequest) error
	LockKYCRequest(ctx context.Context, id string) (*models.KYCRequest, error)
	SaveKYCRequest(ctx context.Context, r *models.KYCRequest) error

	// PendingUpdate returns the pending update request of an account, or nil.
	PendingUpdate(ctx context.Context, accountID string) (*models.UpdateRequest, error)
	InsertUpdateRequest(ctx context.Context, r *models.UpdateRequest) error
	LockUpdateRequest(ctx context.Context, id string) (*models.UpdateRequest, error)
	SaveUpdateRequest(ctx context.Context, r *models.UpdateRequest) error
}
