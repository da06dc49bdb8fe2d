package handler

import (
	"context"
	"io"
	"net/http"

	"github.com/Vashist1110/AVS-Bank/shared/cqrs"
	"github.com/Vashist1110/AVS-Bank/shared/middleware"
	"github.com/Vashist1110/AVS-Bank/shared/models"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// AdminCommander defines the write-side operations used by AdminHandler.
type AdminCommander interface {
	Register(context.Context, cqrs.RegisterCommand) (*models.Account, error)
	AdminUpdateUser(context.Context, cqrs.AdminUpdateUserCommand) (*models.Account, error)
	DeleteUser(context.Context, cqrs.DeleteUserCommand) error
}

// RequestResolver approves or rejects queued requests.
type RequestResolver interface {
	ResolveKYC(context.Context, cqrs.ResolveRequestCommand) (*models.KYCRequest, error)
	ResolveUpdate(context.Context, cqrs.ResolveRequestCommand) (*models.UpdateRequest, error)
}

// AdminQuerier defines the read-side operations used by AdminHandler.
type AdminQuerier interface {
	Dashboard(context.Context) (*models.DashboardStats, error)
	ListUsers(context.Context) ([]models.AccountView, error)
	GetUser(context.Context, cqrs.GetUserQuery) (*models.AccountView, error)
	UserTransactions(context.Context, cqrs.ListTransactionsQuery) ([]models.Transaction, error)
	ListKYCRequests(context.Context) ([]models.KYCRequestView, error)
	ListUpdateRequests(context.Context) ([]models.UpdateRequestView, error)
}

// DocumentOpener serves stored KYC files.
type DocumentOpener interface {
	Open(name string) (io.ReadCloser, string, error)
}

type AdminHandler struct {
	accounts  AdminCommander
	requests  RequestResolver
	queries   AdminQuerier
	documents DocumentOpener
}

type AdminUpdateUserRequest struct {
	Name          *string `json:"name" validate:"omitempty,min=2,max=100,alphaspace"`
	Email         *string `json:"email" validate:"omitempty,email,max=120"`
	Phone         *string `json:"phone" validate:"omitempty,digits10"`
	Gender        *string `json:"gender" validate:"omitempty,oneof=Male Female Other"`
	DOB           *string `json:"dob" validate:"omitempty,isodate"`
	Adhaar        *string `json:"adhaar" validate:"omitempty,digits12"`
	PAN           *string `json:"pan" validate:"omitempty,pan"`
	AccountType   *string `json:"account_type" validate:"omitempty,oneof=savings current"`
	TypeOfAccount *string `json:"type_of_account" validate:"omitempty,max=50"`
}

type ResolveRequest struct {
	Action string `json:"action" validate:"required,oneof=approve reject"`
}

type MessageResponse struct {
	Msg string `json:"msg"`
}

type UserResponse struct {
	Msg  string              `json:"msg"`
	User *models.AccountView `json:"user"`
}

type ListUsersResponse struct {
	Users []models.AccountView `json:"users"`
}

type ListKYCRequestsResponse struct {
	Requests []models.KYCRequestView `json:"requests"`
}

type ListUpdateRequestsResponse struct {
	Requests []models.UpdateRequestView `json:"requests"`
}

type ResolvedResponse struct {
	Msg     string `json:"msg"`
	Request any    `json:"request"`
}

func NewAdminHandler(accounts AdminCommander, requests RequestResolver, queries AdminQuerier, documents DocumentOpener) *AdminHandler {
	return &AdminHandler{accounts: accounts, requests: requests, queries: queries, documents: documents}
}

func (h *AdminHandler) Dashboard(c *gin.Context) {
	stats, err := h.queries.Dashboard(c.Request.Context())
	if err != nil {
		middleware.RespondWithAppError(c, err)
		return
	}
	c.JSON(http.StatusOK, stats)
}

func (h *AdminHandler) ListUsers(c *gin.Context) {
	users, err := h.queries.ListUsers(c.Request.Context())
	if err != nil {
		middleware.RespondWithAppError(c, err)
		return
	}
	c.JSON(http.StatusOK, ListUsersResponse{Users: nonNil(users)})
}

func (h *AdminHandler) GetUser(c *gin.Context) {
	view, err := h.queries.GetUser(c.Request.Context(), cqrs.GetUserQuery{AccountID: c.Param("id")})
	if err != nil {
		middleware.RespondWithAppError(c, err)
		return
	}
	c.JSON(http.StatusOK, view)
}

// CreateUser opens an account on a customer's behalf. The body is the same
// as self-registration.
func (h *AdminHandler) CreateUser(c *gin.Context) {
	var req RegisterRequest
	if !bindRegisterRequest(c, &req) {
		return
	}

	account, err := h.accounts.Register(c.Request.Context(), req.command())
	if err != nil {
		middleware.RespondWithAppError(c, err)
		return
	}
	middleware.LoggerFrom(c).Info("admin created user",
		zap.String("admin_id", adminID(c)),
		zap.String("account_id", account.ID),
	)
	c.JSON(http.StatusCreated, RegisterResponse{
		Msg:           "Account created successfully",
		AccountNumber: account.AccountNumber,
	})
}

func (h *AdminHandler) UpdateUser(c *gin.Context) {
	var req AdminUpdateUserRequest
	if !bindJSON(c, &req) {
		return
	}

	account, err := h.accounts.AdminUpdateUser(c.Request.Context(), cqrs.AdminUpdateUserCommand{
		AccountID:     c.Param("id"),
		Name:          req.Name,
		Email:         req.Email,
		Phone:         req.Phone,
		Gender:        req.Gender,
		DOB:           req.DOB,
		Adhaar:        req.Adhaar,
		PAN:           req.PAN,
		AccountType:   req.AccountType,
		TypeOfAccount: req.TypeOfAccount,
	})
	if err != nil {
		middleware.RespondWithAppError(c, err)
		return
	}
	c.JSON(http.StatusOK, UserResponse{Msg: "User updated successfully", User: models.NewAccountView(account)})
}

func (h *AdminHandler) DeleteUser(c *gin.Context) {
	if err := h.accounts.DeleteUser(c.Request.Context(), cqrs.DeleteUserCommand{AccountID: c.Param("id")}); err != nil {
		middleware.RespondWithAppError(c, err)
		return
	}
	middleware.LoggerFrom(c).Info("admin deleted user",
		zap.String("admin_id", adminID(c)),
		zap.String("account_id", c.Param("id")),
	)
	c.JSON(http.StatusOK, MessageResponse{Msg: "User deleted successfully"})
}

func (h *AdminHandler) UserTransactions(c *gin.Context) {
	limit, ok := limitParam(c)
	if !ok {
		return
	}
	txns, err := h.queries.UserTransactions(c.Request.Context(), cqrs.ListTransactionsQuery{
		AccountID: c.Param("id"),
		Limit:     limit,
	})
	if err != nil {
		middleware.RespondWithAppError(c, err)
		return
	}
	c.JSON(http.StatusOK, ListTransactionsResponse{Transactions: nonNil(txns)})
}

func (h *AdminHandler) ListKYCRequests(c *gin.Context) {
	requests, err := h.queries.ListKYCRequests(c.Request.Context())
	if err != nil {
		middleware.RespondWithAppError(c, err)
		return
	}
	c.JSON(http.StatusOK, ListKYCRequestsResponse{Requests: nonNil(requests)})
}

func (h *AdminHandler) ResolveKYC(c *gin.Context) {
	cmd, ok := resolveCommand(c)
	if !ok {
		return
	}
	req, err := h.requests.ResolveKYC(c.Request.Context(), cmd)
	if err != nil {
		middleware.RespondWithAppError(c, err)
		return
	}
	c.JSON(http.StatusOK, ResolvedResponse{Msg: "KYC request " + req.Status, Request: req})
}

func (h *AdminHandler) ListUpdateRequests(c *gin.Context) {
	requests, err := h.queries.ListUpdateRequests(c.Request.Context())
	if err != nil {
		middleware.RespondWithAppError(c, err)
		return
	}
	c.JSON(http.StatusOK, ListUpdateRequestsResponse{Requests: nonNil(requests)})
}

func (h *AdminHandler) ResolveUpdate(c *gin.Context) {
	cmd, ok := resolveCommand(c)
	if !ok {
		return
	}
	req, err := h.requests.ResolveUpdate(c.Request.Context(), cmd)
	if err != nil {
		middleware.RespondWithAppError(c, err)
		return
	}
	c.JSON(http.StatusOK, ResolvedResponse{Msg: "Update request " + req.Status, Request: req})
}

// Document streams a stored KYC file.
func (h *AdminHandler) Document(c *gin.Context) {
	f, contentType, err := h.documents.Open(c.Param("name"))
	if err != nil {
		middleware.RespondWithAppError(c, err)
		return
	}
	defer f.Close()

	c.Header("Cache-Control", "private, no-store")
	c.DataFromReader(http.StatusOK, -1, contentType, f, nil)
}

func resolveCommand(c *gin.Context) (cqrs.ResolveRequestCommand, bool) {
	var req ResolveRequest
	if !bindJSON(c, &req) {
		return cqrs.ResolveRequestCommand{}, false
	}
	return cqrs.ResolveRequestCommand{
		RequestID: c.Param("id"),
		Action:    req.Action,
		AdminID:   adminID(c),
	}, true
}

func adminID(c *gin.Context) string {
	principal, _ := middleware.PrincipalFrom(c)
	return principal.Subject
}
