package handler

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/Vashist1110/AVS-Bank/shared/apperr"
	"github.com/Vashist1110/AVS-Bank/shared/cqrs"
	"github.com/Vashist1110/AVS-Bank/shared/middleware"
	"github.com/Vashist1110/AVS-Bank/shared/models"
	"github.com/gin-gonic/gin"
)

const maxTransactionsLimit = 50

// AccountRegistrar opens accounts.
type AccountRegistrar interface {
	Register(context.Context, cqrs.RegisterCommand) (*models.Account, error)
}

// LedgerCommander defines the money-moving operations used by UserHandler.
type LedgerCommander interface {
	Deposit(context.Context, cqrs.DepositCommand) (int64, error)
	Withdraw(context.Context, cqrs.WithdrawCommand) (int64, error)
	Transfer(context.Context, cqrs.TransferCommand) (int64, error)
}

// RequestSubmitter defines the request-queue operations open to users.
type RequestSubmitter interface {
	SubmitKYC(context.Context, cqrs.SubmitKYCCommand) (*models.KYCRequest, error)
	SubmitUpdate(context.Context, cqrs.SubmitUpdateCommand) (*models.UpdateRequest, error)
}

// AccountQuerier defines the read-side operations used by UserHandler.
type AccountQuerier interface {
	Profile(context.Context, cqrs.GetProfileQuery) (*models.AccountView, error)
	Transactions(context.Context, cqrs.ListTransactionsQuery) ([]models.Transaction, error)
}

type UserHandler struct {
	accounts       AccountRegistrar
	ledger         LedgerCommander
	requests       RequestSubmitter
	queries        AccountQuerier
	maxUploadBytes int64
}

type RegisterRequest struct {
	Name            string `json:"name" validate:"required,min=2,max=100,alphaspace"`
	Email           string `json:"email" validate:"omitempty,email,max=120"`
	Phone           string `json:"phone" validate:"required,digits10"`
	Gender          string `json:"gender" validate:"required,oneof=Male Female Other"`
	DOB             string `json:"dob" validate:"required,isodate"`
	Adhaar          string `json:"adhaar" validate:"required,digits12"`
	PAN             string `json:"pan" validate:"required,pan"`
	AccountType     string `json:"account_type" validate:"required,oneof=savings current"`
	TypeOfAccount   string `json:"type_of_account" validate:"max=50"`
	InitialBalance  *int64 `json:"initial_balance" validate:"required,gte=0"`
	Password        string `json:"password" validate:"required,strongpassword"`
	ConfirmPassword string `json:"confirm_password" validate:"required,eqfield=Password"`
}

func (r *RegisterRequest) normalize() {
	r.Name = strings.TrimSpace(r.Name)
	r.Email = strings.TrimSpace(r.Email)
	r.Phone = strings.TrimSpace(r.Phone)
	r.AccountType = strings.ToLower(strings.TrimSpace(r.AccountType))
}

func (r RegisterRequest) command() cqrs.RegisterCommand {
	return cqrs.RegisterCommand{
		Name:           r.Name,
		Email:          r.Email,
		Phone:          r.Phone,
		Gender:         r.Gender,
		DOB:            r.DOB,
		Adhaar:         r.Adhaar,
		PAN:            r.PAN,
		AccountType:    r.AccountType,
		TypeOfAccount:  r.TypeOfAccount,
		InitialBalance: *r.InitialBalance,
		Password:       r.Password,
	}
}

type RegisterResponse struct {
	Msg           string `json:"msg"`
	AccountNumber string `json:"account_number"`
}

type AmountRequest struct {
	Amount int64 `json:"amount" validate:"required,gt=0"`
}

type TransferRequest struct {
	Amount           int64  `json:"amount" validate:"required,gt=0"`
	RecipientAccount string `json:"recipient_account" validate:"required"`
}

type BalanceResponse struct {
	Msg        string `json:"msg"`
	NewBalance int64  `json:"new_balance"`
}

type ListTransactionsResponse struct {
	Transactions []models.Transaction `json:"transactions"`
}

type RequestSubmittedResponse struct {
	Msg       string `json:"msg"`
	RequestID string `json:"request_id"`
}

func NewUserHandler(accounts AccountRegistrar, ledger LedgerCommander, requests RequestSubmitter, queries AccountQuerier, maxUploadBytes int64) *UserHandler {
	return &UserHandler{
		accounts:       accounts,
		ledger:         ledger,
		requests:       requests,
		queries:        queries,
		maxUploadBytes: maxUploadBytes,
	}
}

func (h *UserHandler) Register(c *gin.Context) {
	var req RegisterRequest
	if !bindRegisterRequest(c, &req) {
		return
	}

	account, err := h.accounts.Register(c.Request.Context(), req.command())
	if err != nil {
		middleware.RespondWithAppError(c, err)
		return
	}
	c.JSON(http.StatusCreated, RegisterResponse{
		Msg:           "Account created successfully",
		AccountNumber: account.AccountNumber,
	})
}

// bindRegisterRequest is shared by self-registration and admin-created users.
func bindRegisterRequest(c *gin.Context, req *RegisterRequest) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		middleware.RespondWithError(c, http.StatusBadRequest, "Invalid request body")
		return false
	}
	req.normalize()
	if validationErrors := middleware.ValidateRequest(*req); validationErrors != nil {
		middleware.RespondWithValidationError(c, validationErrors)
		return false
	}
	return true
}

func (h *UserHandler) Profile(c *gin.Context) {
	accountID, ok := callerID(c)
	if !ok {
		return
	}
	view, err := h.queries.Profile(c.Request.Context(), cqrs.GetProfileQuery{AccountID: accountID})
	if err != nil {
		middleware.RespondWithAppError(c, err)
		return
	}
	c.JSON(http.StatusOK, view)
}

func (h *UserHandler) Deposit(c *gin.Context) {
	accountID, ok := callerID(c)
	if !ok {
		return
	}
	var req AmountRequest
	if !bindJSON(c, &req) {
		return
	}

	balance, err := h.ledger.Deposit(c.Request.Context(), cqrs.DepositCommand{AccountID: accountID, Amount: req.Amount})
	if err != nil {
		middleware.RespondWithAppError(c, err)
		return
	}
	c.JSON(http.StatusOK, BalanceResponse{
		Msg:        fmt.Sprintf("Deposited ₹%d successfully", req.Amount),
		NewBalance: balance,
	})
}

func (h *UserHandler) Withdraw(c *gin.Context) {
	accountID, ok := callerID(c)
	if !ok {
		return
	}
	var req AmountRequest
	if !bindJSON(c, &req) {
		return
	}

	balance, err := h.ledger.Withdraw(c.Request.Context(), cqrs.WithdrawCommand{AccountID: accountID, Amount: req.Amount})
	if err != nil {
		middleware.RespondWithAppError(c, err)
		return
	}
	c.JSON(http.StatusOK, BalanceResponse{
		Msg:        fmt.Sprintf("Withdrew ₹%d successfully", req.Amount),
		NewBalance: balance,
	})
}

func (h *UserHandler) Transfer(c *gin.Context) {
	accountID, ok := callerID(c)
	if !ok {
		return
	}
	var req TransferRequest
	if !bindJSON(c, &req) {
		return
	}

	balance, err := h.ledger.Transfer(c.Request.Context(), cqrs.TransferCommand{
		AccountID:        accountID,
		Amount:           req.Amount,
		RecipientAccount: req.RecipientAccount,
	})
	if err != nil {
		middleware.RespondWithAppError(c, err)
		return
	}
	c.JSON(http.StatusOK, BalanceResponse{
		Msg:        fmt.Sprintf("Transferred ₹%d to %s successfully", req.Amount, strings.ToUpper(strings.TrimSpace(req.RecipientAccount))),
		NewBalance: balance,
	})
}

func (h *UserHandler) Transactions(c *gin.Context) {
	accountID, ok := callerID(c)
	if !ok {
		return
	}
	limit, ok := limitParam(c)
	if !ok {
		return
	}

	txns, err := h.queries.Transactions(c.Request.Context(), cqrs.ListTransactionsQuery{AccountID: accountID, Limit: limit})
	if err != nil {
		middleware.RespondWithAppError(c, err)
		return
	}
	c.JSON(http.StatusOK, ListTransactionsResponse{Transactions: nonNil(txns)})
}

// RequestKYC accepts the pancard, photo and signature files as one multipart
// form.
func (h *UserHandler) RequestKYC(c *gin.Context) {
	accountID, ok := callerID(c)
	if !ok {
		return
	}

	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.maxUploadBytes)
	if err := c.Request.ParseMultipartForm(h.maxUploadBytes); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			middleware.RespondWithError(c, http.StatusBadRequest, fmt.Sprintf("Upload exceeds %d bytes", h.maxUploadBytes))
			return
		}
		middleware.RespondWithError(c, http.StatusBadRequest, "Invalid multipart form")
		return
	}

	cmd := cqrs.SubmitKYCCommand{AccountID: accountID}
	for field, dst := range map[string]*cqrs.Document{
		"pancard":   &cmd.Pancard,
		"photo":     &cmd.Photo,
		"signature": &cmd.Signature,
	} {
		doc, err := formDocument(c, field)
		if err != nil {
			middleware.RespondWithAppError(c, err)
			return
		}
		*dst = doc
	}

	req, err := h.requests.SubmitKYC(c.Request.Context(), cmd)
	if err != nil {
		middleware.RespondWithAppError(c, err)
		return
	}
	c.JSON(http.StatusCreated, RequestSubmittedResponse{Msg: "KYC request submitted", RequestID: req.ID})
}

// formDocument reads one uploaded file. A missing file yields an empty
// document and is reported by the request queue.
func formDocument(c *gin.Context, field string) (cqrs.Document, error) {
	header, err := c.FormFile(field)
	if errors.Is(err, http.ErrMissingFile) {
		return cqrs.Document{}, nil
	}
	if err != nil {
		return cqrs.Document{}, apperr.Wrap(apperr.KindValidation, err, "invalid upload for "+field)
	}
	f, err := header.Open()
	if err != nil {
		return cqrs.Document{}, fmt.Errorf("failed to open upload %s: %w", field, err)
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		return cqrs.Document{}, fmt.Errorf("failed to read upload %s: %w", field, err)
	}
	return cqrs.Document{Filename: header.Filename, Data: data}, nil
}

// RequestUpdate accepts a JSON object of field name to requested value.
func (h *UserHandler) RequestUpdate(c *gin.Context) {
	accountID, ok := callerID(c)
	if !ok {
		return
	}

	var body map[string]any
	if err := c.ShouldBindJSON(&body); err != nil {
		middleware.RespondWithError(c, http.StatusBadRequest, "Invalid request body")
		return
	}
	fields := make(map[string]string, len(body))
	for field, value := range body {
		s, isString := value.(string)
		if !isString {
			middleware.RespondWithError(c, http.StatusBadRequest, fmt.Sprintf("%s must be a string", field))
			return
		}
		fields[field] = s
	}

	req, err := h.requests.SubmitUpdate(c.Request.Context(), cqrs.SubmitUpdateCommand{AccountID: accountID, Fields: fields})
	if err != nil {
		middleware.RespondWithAppError(c, err)
		return
	}
	c.JSON(http.StatusCreated, RequestSubmittedResponse{Msg: "Update request submitted", RequestID: req.ID})
}

// callerID returns the authenticated subject, answering 401 when there is
// none.
func callerID(c *gin.Context) (string, bool) {
	principal, ok := middleware.PrincipalFrom(c)
	if !ok || principal.Subject == "" {
		middleware.RespondWithAppError(c, apperr.New(apperr.KindUnauthorized, "Authentication required"))
		return "", false
	}
	return principal.Subject, true
}

func bindJSON(c *gin.Context, req any) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		middleware.RespondWithError(c, http.StatusBadRequest, "Invalid request body")
		return false
	}
	if validationErrors := middleware.ValidateRequest(req); validationErrors != nil {
		middleware.RespondWithValidationError(c, validationErrors)
		return false
	}
	return true
}

// limitParam reads the optional ?limit= query parameter; 0 means the
// service default.
func limitParam(c *gin.Context) (int, bool) {
	raw := c.Query("limit")
	if raw == "" {
		return 0, true
	}
	limit, err := strconv.Atoi(raw)
	if err != nil || limit < 1 || limit > maxTransactionsLimit {
		middleware.RespondWithError(c, http.StatusBadRequest, fmt.Sprintf("limit must be between 1 and %d", maxTransactionsLimit))
		return 0, false
	}
	return limit, true
}

func nonNil[T any](items []T) []T {
	if items == nil {
		return []T{}
	}
	return items
}
