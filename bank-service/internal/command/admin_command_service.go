package command

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/Vashist1110/AVS-Bank/bank-service/internal/repository"
	"github.com/Vashist1110/AVS-Bank/shared/apperr"
	"github.com/Vashist1110/AVS-Bank/shared/cqrs"
	"github.com/Vashist1110/AVS-Bank/shared/middleware"
	"github.com/Vashist1110/AVS-Bank/shared/models"
	"github.com/Vashist1110/AVS-Bank/shared/utils"
)

// AdminCommandService provisions admin logins. It has no HTTP surface; the
// createadmin tool drives it.
type AdminCommandService struct {
	store repository.Store
	now   func() time.Time
}

func NewAdminCommandService(store repository.Store) *AdminCommandService {
	return &AdminCommandService{store: store, now: func() time.Time { return time.Now().UTC() }}
}

func (s *AdminCommandService) CreateAdmin(ctx context.Context, cmd cqrs.CreateAdminCommand) (*models.Admin, error) {
	username := strings.TrimSpace(cmd.Username)
	if msg := middleware.ValidateField(username, "required,min=3,max=50,alphanum"); msg != "" {
		return nil, apperr.New(apperr.KindValidation, "username: %s", msg)
	}
	if !middleware.StrongPassword(cmd.Password) {
		return nil, apperr.New(apperr.KindValidation, "password must be at least 8 characters with an uppercase letter, a digit and a special character")
	}

	hash, err := utils.HashPassword(cmd.Password)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}
	admin := &models.Admin{
		ID:           utils.GenerateID("adm"),
		Username:     username,
		Name:         strings.TrimSpace(cmd.Name),
		PasswordHash: hash,
		CreatedAt:    s.now(),
	}
	if err := s.store.CreateAdmin(ctx, admin); err != nil {
		return nil, err
	}
	return admin, nil
}
