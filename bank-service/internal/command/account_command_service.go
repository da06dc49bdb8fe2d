package command

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/Vashist1110/AVS-Bank/bank-service/internal/repository"
	"github.com/Vashist1110/AVS-Bank/shared/apperr"
	"github.com/Vashist1110/AVS-Bank/shared/cqrs"
	"github.com/Vashist1110/AVS-Bank/shared/events"
	"github.com/Vashist1110/AVS-Bank/shared/models"
	"github.com/Vashist1110/AVS-Bank/shared/utils"
	"go.uber.org/zap"
)

var ErrAccountHasBalance = apperr.New(apperr.KindValidation, "account balance must be zero before it can be deleted")

// AccountCommandService opens, edits and closes accounts. It never changes a
// balance after opening; that is the ledger's job.
type AccountCommandService struct {
	store     repository.Store
	readModel ReadModel
	publisher EventPublisher
	logger    *zap.Logger
	now       func() time.Time
}

func NewAccountCommandService(store repository.Store, readModel ReadModel, publisher EventPublisher, logger *zap.Logger) *AccountCommandService {
	return &AccountCommandService{
		store:     store,
		readModel: readModel,
		publisher: publisher,
		logger:    logger,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// Register opens an account and assigns its account number.
func (s *AccountCommandService) Register(ctx context.Context, cmd cqrs.RegisterCommand) (*models.Account, error) {
	if cmd.InitialBalance < 0 {
		return nil, apperr.New(apperr.KindValidation, "initial balance cannot be negative")
	}
	hash, err := utils.HashPassword(cmd.Password)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	now := s.now()
	account := &models.Account{
		ID:            utils.GenerateID("acc"),
		Name:          strings.TrimSpace(cmd.Name),
		Email:         strings.ToLower(strings.TrimSpace(cmd.Email)),
		Phone:         strings.TrimSpace(cmd.Phone),
		Gender:        cmd.Gender,
		DOB:           cmd.DOB,
		Adhaar:        strings.TrimSpace(cmd.Adhaar),
		PAN:           strings.ToUpper(strings.TrimSpace(cmd.PAN)),
		AccountType:   strings.ToLower(cmd.AccountType),
		TypeOfAccount: strings.TrimSpace(cmd.TypeOfAccount),
		Balance:       cmd.InitialBalance,
		KYCStatus:     models.KYCNotSubmitted,
		PasswordHash:  hash,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if err := s.store.CreateAccount(ctx, account); err != nil {
		return nil, err
	}

	publish(ctx, s.publisher, s.logger, events.AccountEventsStream, events.AccountCreated, events.AccountCreatedEvent{
		AccountID:     account.ID,
		AccountNumber: account.AccountNumber,
		AccountType:   account.AccountType,
	})
	s.logger.Info("account opened", zap.String("account_id", account.ID), zap.String("account_number", account.AccountNumber))
	return account, nil
}

// AdminUpdateUser writes the given fields directly, bypassing the request
// queue.
func (s *AccountCommandService) AdminUpdateUser(ctx context.Context, cmd cqrs.AdminUpdateUserCommand) (*models.Account, error) {
	var changed []string
	var account *models.Account
	err := s.store.InTx(ctx, func(tx repository.Tx) error {
		var err error
		account, err = tx.LockAccount(ctx, cmd.AccountID)
		if err != nil {
			return err
		}

		set := func(field string, dst *string, value *string, normalize func(string) string) {
			if value == nil {
				return
			}
			v := normalize(*value)
			if *dst != v {
				*dst = v
				changed = append(changed, field)
			}
		}
		trim := strings.TrimSpace
		set("name", &account.Name, cmd.Name, trim)
		set("email", &account.Email, cmd.Email, func(v string) string { return strings.ToLower(trim(v)) })
		set("phone", &account.Phone, cmd.Phone, trim)
		set("gender", &account.Gender, cmd.Gender, trim)
		set("dob", &account.DOB, cmd.DOB, trim)
		set("adhaar", &account.Adhaar, cmd.Adhaar, trim)
		set("pan", &account.PAN, cmd.PAN, func(v string) string { return strings.ToUpper(trim(v)) })
		set("account_type", &account.AccountType, cmd.AccountType, func(v string) string { return strings.ToLower(trim(v)) })
		set("type_of_account", &account.TypeOfAccount, cmd.TypeOfAccount, trim)
		if len(changed) == 0 {
			return nil
		}

		account.UpdatedAt = s.now()
		return tx.SaveAccount(ctx, account)
	})
	if err != nil {
		return nil, err
	}
	if len(changed) == 0 {
		return account, nil
	}

	s.readModel.InvalidateAccountView(ctx, account.ID)
	publish(ctx, s.publisher, s.logger, events.AccountEventsStream, events.AccountUpdated, events.AccountUpdatedEvent{
		AccountID: account.ID,
		Fields:    changed,
	})
	return account, nil
}

// DeleteUser closes an account. Accounts still holding money cannot be
// closed.
func (s *AccountCommandService) DeleteUser(ctx context.Context, cmd cqrs.DeleteUserCommand) error {
	var account *models.Account
	err := s.store.InTx(ctx, func(tx repository.Tx) error {
		var err error
		account, err = tx.LockAccount(ctx, cmd.AccountID)
		if err != nil {
			return err
		}
		if account.Balance > 0 {
			return ErrAccountHasBalance
		}
		return tx.DeleteAccount(ctx, cmd.AccountID)
	})
	if err != nil {
		return err
	}

	s.readModel.DropAccount(ctx, account.ID)
	publish(ctx, s.publisher, s.logger, events.AccountEventsStream, events.AccountDeleted, events.AccountDeletedEvent{
		AccountID:     account.ID,
		AccountNumber: account.AccountNumber,
	})
	s.logger.Info("account closed", zap.String("account_id", account.ID))
	return nil
}
