package command

import (
	"context"
	"errors"
	"fmt"
	"math"
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

var (
	ErrInvalidAmount     = apperr.New(apperr.KindValidation, "amount must be greater than zero")
	ErrInsufficientFunds = apperr.New(apperr.KindInsufficientFunds, "Insufficient funds")
	ErrRecipientNotFound = apperr.New(apperr.KindRecipientNotFound, "Recipient account not found")
	ErrSelfTransfer      = apperr.New(apperr.KindValidation, "cannot transfer to your own account")
	ErrBalanceOverflow   = apperr.New(apperr.KindValidation, "amount exceeds the maximum balance")
)

// LedgerCommandService moves money. Every operation locks the accounts it
// touches for the length of one store transaction, so the funds check always
// sees the balance as of that operation's turn.
type LedgerCommandService struct {
	store     repository.Store
	readModel ReadModel
	publisher EventPublisher
	logger    *zap.Logger
	now       func() time.Time
}

func NewLedgerCommandService(store repository.Store, readModel ReadModel, publisher EventPublisher, logger *zap.Logger) *LedgerCommandService {
	return &LedgerCommandService{
		store:     store,
		readModel: readModel,
		publisher: publisher,
		logger:    logger,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// Deposit credits the account and returns the new balance.
func (s *LedgerCommandService) Deposit(ctx context.Context, cmd cqrs.DepositCommand) (int64, error) {
	if cmd.Amount <= 0 {
		return 0, ErrInvalidAmount
	}

	var row models.Transaction
	err := s.store.InTx(ctx, func(tx repository.Tx) error {
		account, err := tx.LockAccount(ctx, cmd.AccountID)
		if err != nil {
			return err
		}
		if account.Balance > math.MaxInt64-cmd.Amount {
			return ErrBalanceOverflow
		}
		account.Balance += cmd.Amount
		row, err = s.record(ctx, tx, account, cmd.Amount, models.TransactionCredit, models.KindDeposit, "")
		return err
	})
	if err != nil {
		return 0, err
	}

	s.afterCommit(ctx, row)
	return row.BalanceAfter, nil
}

// Withdraw debits the account and returns the new balance.
func (s *LedgerCommandService) Withdraw(ctx context.Context, cmd cqrs.WithdrawCommand) (int64, error) {
	if cmd.Amount <= 0 {
		return 0, ErrInvalidAmount
	}

	var row models.Transaction
	err := s.store.InTx(ctx, func(tx repository.Tx) error {
		account, err := tx.LockAccount(ctx, cmd.AccountID)
		if err != nil {
			return err
		}
		if cmd.Amount > account.Balance {
			return ErrInsufficientFunds
		}
		account.Balance -= cmd.Amount
		row, err = s.record(ctx, tx, account, cmd.Amount, models.TransactionDebit, models.KindWithdraw, "")
		return err
	})
	if err != nil {
		return 0, err
	}

	s.afterCommit(ctx, row)
	return row.BalanceAfter, nil
}

// Transfer moves funds to the account with the given number and returns the
// sender's new balance. Both sides commit together or not at all.
func (s *LedgerCommandService) Transfer(ctx context.Context, cmd cqrs.TransferCommand) (int64, error) {
	if cmd.Amount <= 0 {
		return 0, ErrInvalidAmount
	}
	recipientNumber := strings.ToUpper(strings.TrimSpace(cmd.RecipientAccount))
	if recipientNumber == "" {
		return 0, apperr.New(apperr.KindValidation, "recipient account is required")
	}

	var debit, credit models.Transaction
	err := s.store.InTx(ctx, func(tx repository.Tx) error {
		recipientID, err := tx.FindAccountIDByNumber(ctx, recipientNumber)
		if errors.Is(err, repository.ErrAccountNotFound) {
			return ErrRecipientNotFound
		}
		if err != nil {
			return err
		}
		if recipientID == cmd.AccountID {
			return ErrSelfTransfer
		}

		source, recipient, err := lockPair(ctx, tx, cmd.AccountID, recipientID)
		if err != nil {
			return err
		}
		if cmd.Amount > source.Balance {
			return ErrInsufficientFunds
		}
		if recipient.Balance > math.MaxInt64-cmd.Amount {
			return ErrBalanceOverflow
		}

		source.Balance -= cmd.Amount
		recipient.Balance += cmd.Amount
		if debit, err = s.record(ctx, tx, source, cmd.Amount, models.TransactionDebit, models.KindTransferOut, recipient.AccountNumber); err != nil {
			return err
		}
		credit, err = s.record(ctx, tx, recipient, cmd.Amount, models.TransactionCredit, models.KindTransferIn, source.AccountNumber)
		return err
	})
	if err != nil {
		return 0, err
	}

	s.afterCommit(ctx, debit, credit)
	return debit.BalanceAfter, nil
}

// lockPair locks both accounts in ascending id order so two opposite
// transfers cannot deadlock.
func lockPair(ctx context.Context, tx repository.Tx, sourceID, recipientID string) (*models.Account, *models.Account, error) {
	lock := func(id string) (*models.Account, error) {
		account, err := tx.LockAccount(ctx, id)
		if errors.Is(err, repository.ErrAccountNotFound) && id == recipientID {
			return nil, ErrRecipientNotFound
		}
		return account, err
	}

	firstID, secondID := sourceID, recipientID
	if secondID < firstID {
		firstID, secondID = secondID, firstID
	}
	first, err := lock(firstID)
	if err != nil {
		return nil, nil, err
	}
	second, err := lock(secondID)
	if err != nil {
		return nil, nil, err
	}
	if first.ID == sourceID {
		return first, second, nil
	}
	return second, first, nil
}

// record saves the account and appends its history row.
func (s *LedgerCommandService) record(ctx context.Context, tx repository.Tx, account *models.Account, amount int64, txnType, kind, counterparty string) (models.Transaction, error) {
	now := s.now()
	account.UpdatedAt = now
	if err := tx.SaveAccount(ctx, account); err != nil {
		return models.Transaction{}, err
	}

	id, err := utils.NewTransactionID()
	if err != nil {
		return models.Transaction{}, fmt.Errorf("failed to generate transaction id: %w", err)
	}
	row := models.Transaction{
		ID:           id,
		AccountID:    account.ID,
		Amount:       amount,
		Type:         txnType,
		Kind:         kind,
		Counterparty: counterparty,
		BalanceAfter: account.Balance,
		CreatedAt:    now,
	}
	if err := tx.InsertTransaction(ctx, &row); err != nil {
		return models.Transaction{}, err
	}
	return row, nil
}

func (s *LedgerCommandService) afterCommit(ctx context.Context, rows ...models.Transaction) {
	for _, row := range rows {
		s.readModel.InvalidateAccountView(ctx, row.AccountID)
		if err := s.readModel.ProjectTransaction(ctx, row); err != nil {
			s.logger.Warn("failed to project transaction", zap.Int64("transaction_id", row.ID), zap.Error(err))
		}

		publish(ctx, s.publisher, s.logger, events.LedgerEventsStream, events.TransactionCreated, events.TransactionCreatedEvent{
			TransactionID: row.ID,
			AccountID:     row.AccountID,
			Amount:        row.Amount,
			Type:          row.Type,
			Kind:          row.Kind,
			Counterparty:  row.Counterparty,
			BalanceAfter:  row.BalanceAfter,
			CreatedAt:     row.CreatedAt,
		})

		change := row.Amount
		if row.Type == models.TransactionDebit {
			change = -change
		}
		publish(ctx, s.publisher, s.logger, events.LedgerEventsStream, events.BalanceUpdated, events.BalanceUpdatedEvent{
			AccountID:  row.AccountID,
			NewBalance: row.BalanceAfter,
			Change:     change,
		})
	}

	s.logger.Info("ledger operation committed",
		zap.String("kind", rows[0].Kind),
		zap.String("account_id", rows[0].AccountID),
		zap.Int64("amount", rows[0].Amount),
	)
}
