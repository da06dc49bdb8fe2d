package command

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/Vashist1110/AVS-Bank/bank-service/internal/repository"
	"github.com/Vashist1110/AVS-Bank/shared/apperr"
	"github.com/Vashist1110/AVS-Bank/shared/cqrs"
	"github.com/Vashist1110/AVS-Bank/shared/events"
	"github.com/Vashist1110/AVS-Bank/shared/middleware"
	"github.com/Vashist1110/AVS-Bank/shared/models"
	"github.com/Vashist1110/AVS-Bank/shared/utils"
	"go.uber.org/zap"
)

var (
	ErrNoChanges       = apperr.New(apperr.KindNoChanges, "No changes detected")
	ErrAlreadyResolved = apperr.New(apperr.KindAlreadyResolved, "Request already processed")
	ErrInvalidAction   = apperr.New(apperr.KindValidation, "action must be approve or reject")
	ErrMissingDocument = apperr.New(apperr.KindValidation, "pancard, photo and signature are all required")
)

// updatableFields lists what a user may ask to change, with the rule each new
// value must satisfy.
var updatableFields = map[string]string{
	"name":   "required,min=2,max=100,alphaspace",
	"email":  "required,email,max=120",
	"phone":  "required,digits10",
	"gender": "required,oneof=Male Female Other",
	"dob":    "required,isodate",
}

// DocumentStore persists uploaded KYC files.
type DocumentStore interface {
	Save(label, filename string, data []byte) (string, error)
	Remove(names ...string) error
}

// RequestCommandService runs the KYC and profile-update queues. An account
// has at most one pending request of each kind.
type RequestCommandService struct {
	store     repository.Store
	documents DocumentStore
	readModel ReadModel
	publisher EventPublisher
	logger    *zap.Logger
	now       func() time.Time
}

func NewRequestCommandService(
	store repository.Store,
	documents DocumentStore,
	readModel ReadModel,
	publisher EventPublisher,
	logger *zap.Logger,
) *RequestCommandService {
	return &RequestCommandService{
		store:     store,
		documents: documents,
		readModel: readModel,
		publisher: publisher,
		logger:    logger,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

func (s *RequestCommandService) SubmitKYC(ctx context.Context, cmd cqrs.SubmitKYCCommand) (*models.KYCRequest, error) {
	docs := []struct {
		label string
		doc   cqrs.Document
	}{
		{"pancard", cmd.Pancard},
		{"photo", cmd.Photo},
		{"signature", cmd.Signature},
	}
	for _, d := range docs {
		if d.doc.Filename == "" || len(d.doc.Data) == 0 {
			return nil, ErrMissingDocument
		}
	}

	// Cheap early exit; the locked check below is the one that counts.
	if pending, err := s.store.HasPendingKYC(ctx, cmd.AccountID); err != nil {
		return nil, err
	} else if pending {
		return nil, repository.ErrKYCPending
	}

	stored := make([]string, 0, len(docs))
	for _, d := range docs {
		name, err := s.documents.Save(d.label, d.doc.Filename, d.doc.Data)
		if err != nil {
			s.discard(stored)
			return nil, err
		}
		stored = append(stored, name)
	}

	req := &models.KYCRequest{
		ID:            utils.GenerateID("kyc"),
		AccountID:     cmd.AccountID,
		PancardPath:   stored[0],
		PhotoPath:     stored[1],
		SignaturePath: stored[2],
		Status:        models.RequestPending,
		CreatedAt:     s.now(),
	}
	err := s.store.InTx(ctx, func(tx repository.Tx) error {
		account, err := tx.LockAccount(ctx, cmd.AccountID)
		if err != nil {
			return err
		}
		existing, err := tx.PendingKYC(ctx, cmd.AccountID)
		if err != nil {
			return err
		}
		if existing != nil {
			return repository.ErrKYCPending
		}
		if err := tx.InsertKYCRequest(ctx, req); err != nil {
			return err
		}
		account.KYCStatus = models.KYCPending
		account.UpdatedAt = req.CreatedAt
		return tx.SaveAccount(ctx, account)
	})
	if err != nil {
		s.discard(stored)
		return nil, err
	}

	s.readModel.InvalidateAccountView(ctx, cmd.AccountID)
	publish(ctx, s.publisher, s.logger, events.RequestEventsStream, events.KYCSubmitted, events.RequestSubmittedEvent{
		RequestID: req.ID,
		AccountID: req.AccountID,
	})
	s.logger.Info("kyc request submitted", zap.String("request_id", req.ID), zap.String("account_id", req.AccountID))
	return req, nil
}

func (s *RequestCommandService) discard(names []string) {
	if len(names) == 0 {
		return
	}
	if err := s.documents.Remove(names...); err != nil {
		s.logger.Warn("failed to remove orphaned documents", zap.Strings("documents", names), zap.Error(err))
	}
}

// SubmitUpdate queues a profile change. Fields equal to the current values
// are dropped; if nothing is left the request is rejected with no_changes.
func (s *RequestCommandService) SubmitUpdate(ctx context.Context, cmd cqrs.SubmitUpdateCommand) (*models.UpdateRequest, error) {
	requested := make(map[string]string, len(cmd.Fields))
	for field, value := range cmd.Fields {
		field = strings.ToLower(strings.TrimSpace(field))
		if _, ok := updatableFields[field]; !ok {
			return nil, apperr.New(apperr.KindValidation, "field %q cannot be updated", field)
		}
		requested[field] = normalizeField(field, value)
	}

	var req *models.UpdateRequest
	err := s.store.InTx(ctx, func(tx repository.Tx) error {
		account, err := tx.LockAccount(ctx, cmd.AccountID)
		if err != nil {
			return err
		}
		existing, err := tx.PendingUpdate(ctx, cmd.AccountID)
		if err != nil {
			return err
		}
		if existing != nil {
			return repository.ErrUpdatePending
		}

		current := profileFields(account)
		changes := models.FieldMap{}
		previous := models.FieldMap{}
		for field, value := range requested {
			if current[field] == value {
				continue
			}
			changes[field] = value
			previous[field] = current[field]
		}
		if len(changes) == 0 {
			return ErrNoChanges
		}
		if err := validateChanges(changes); err != nil {
			return err
		}

		req = &models.UpdateRequest{
			ID:        utils.GenerateID("upd"),
			AccountID: cmd.AccountID,
			Changes:   changes,
			Previous:  previous,
			Status:    models.RequestPending,
			CreatedAt: s.now(),
		}
		return tx.InsertUpdateRequest(ctx, req)
	})
	if err != nil {
		return nil, err
	}

	s.readModel.InvalidateAccountView(ctx, cmd.AccountID)
	publish(ctx, s.publisher, s.logger, events.RequestEventsStream, events.UpdateSubmitted, events.RequestSubmittedEvent{
		RequestID: req.ID,
		AccountID: req.AccountID,
	})
	s.logger.Info("update request submitted", zap.String("request_id", req.ID), zap.String("account_id", req.AccountID))
	return req, nil
}

// ResolveKYC approves or rejects a pending KYC request and mirrors the
// decision onto the account's KYC status.
func (s *RequestCommandService) ResolveKYC(ctx context.Context, cmd cqrs.ResolveRequestCommand) (*models.KYCRequest, error) {
	status, err := decisionStatus(cmd.Action)
	if err != nil {
		return nil, err
	}

	var req *models.KYCRequest
	err = s.store.InTx(ctx, func(tx repository.Tx) error {
		req, err = tx.LockKYCRequest(ctx, cmd.RequestID)
		if err != nil {
			return err
		}
		if req.Status != models.RequestPending {
			return ErrAlreadyResolved
		}
		account, err := tx.LockAccount(ctx, req.AccountID)
		if err != nil {
			return err
		}

		now := s.now()
		req.Status = status
		req.ResolvedAt = &now
		if status == models.RequestApproved {
			account.KYCStatus = models.KYCApproved
		} else {
			account.KYCStatus = models.KYCRejected
		}
		account.UpdatedAt = now
		if err := tx.SaveAccount(ctx, account); err != nil {
			return err
		}
		return tx.SaveKYCRequest(ctx, req)
	})
	if err != nil {
		return nil, err
	}

	s.afterResolve(ctx, events.KYCResolved, req.ID, req.AccountID, req.Status, cmd.AdminID)
	return req, nil
}

// ResolveUpdate approves or rejects a pending profile update. Approval writes
// the requested fields, re-checking that phone and email are still unique.
func (s *RequestCommandService) ResolveUpdate(ctx context.Context, cmd cqrs.ResolveRequestCommand) (*models.UpdateRequest, error) {
	status, err := decisionStatus(cmd.Action)
	if err != nil {
		return nil, err
	}

	var req *models.UpdateRequest
	err = s.store.InTx(ctx, func(tx repository.Tx) error {
		req, err = tx.LockUpdateRequest(ctx, cmd.RequestID)
		if err != nil {
			return err
		}
		if req.Status != models.RequestPending {
			return ErrAlreadyResolved
		}

		now := s.now()
		if status == models.RequestApproved {
			account, err := tx.LockAccount(ctx, req.AccountID)
			if err != nil {
				return err
			}
			applyFields(account, req.Changes)
			account.UpdatedAt = now
			if err := tx.SaveAccount(ctx, account); err != nil {
				return err
			}
		}
		req.Status = status
		req.ResolvedAt = &now
		return tx.SaveUpdateRequest(ctx, req)
	})
	if err != nil {
		return nil, err
	}

	s.afterResolve(ctx, events.UpdateResolved, req.ID, req.AccountID, req.Status, cmd.AdminID)
	if req.Status == models.RequestApproved {
		publish(ctx, s.publisher, s.logger, events.AccountEventsStream, events.AccountUpdated, events.AccountUpdatedEvent{
			AccountID: req.AccountID,
			Fields:    sortedKeys(req.Changes),
		})
	}
	return req, nil
}

func (s *RequestCommandService) afterResolve(ctx context.Context, eventType, requestID, accountID, status, adminID string) {
	s.readModel.InvalidateAccountView(ctx, accountID)
	publish(ctx, s.publisher, s.logger, events.RequestEventsStream, eventType, events.RequestResolvedEvent{
		RequestID: requestID,
		AccountID: accountID,
		Status:    status,
		AdminID:   adminID,
	})
	s.logger.Info("request resolved",
		zap.String("type", eventType),
		zap.String("request_id", requestID),
		zap.String("status", status),
		zap.String("admin_id", adminID),
	)
}

func decisionStatus(action string) (string, error) {
	switch strings.ToLower(strings.TrimSpace(action)) {
	case cqrs.ActionApprove:
		return models.RequestApproved, nil
	case cqrs.ActionReject:
		return models.RequestRejected, nil
	default:
		return "", ErrInvalidAction
	}
}

func normalizeField(field, value string) string {
	value = strings.TrimSpace(value)
	if field == "email" {
		return strings.ToLower(value)
	}
	return value
}

func validateChanges(changes models.FieldMap) error {
	for _, field := range sortedKeys(changes) {
		if msg := middleware.ValidateField(changes[field], updatableFields[field]); msg != "" {
			return apperr.New(apperr.KindValidation, "%s: %s", field, msg)
		}
	}
	return nil
}

func profileFields(a *models.Account) map[string]string {
	return map[string]string{
		"name":   a.Name,
		"email":  a.Email,
		"phone":  a.Phone,
		"gender": a.Gender,
		"dob":    a.DOB,
	}
}

func applyFields(a *models.Account, changes models.FieldMap) {
	for field, value := range changes {
		switch field {
		case "name":
			a.Name = value
		case "email":
			a.Email = value
		case "phone":
			a.Phone = value
		case "gender":
			a.Gender = value
		case "dob":
			a.DOB = value
		}
	}
}

func sortedKeys(m models.FieldMap) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
