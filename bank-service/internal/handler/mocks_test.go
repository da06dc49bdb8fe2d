package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"

	"github.com/Vashist1110/AVS-Bank/bank-service/internal/query"
	"github.com/Vashist1110/AVS-Bank/shared/auth"
	"github.com/Vashist1110/AVS-Bank/shared/cqrs"
	"github.com/Vashist1110/AVS-Bank/shared/middleware"
	"github.com/Vashist1110/AVS-Bank/shared/models"
	"github.com/gin-gonic/gin"
)

// ---- mock implementations ----

type mockAccounts struct {
	registerFn func(cqrs.RegisterCommand) (*models.Account, error)
	updateFn   func(cqrs.AdminUpdateUserCommand) (*models.Account, error)
	deleteFn   func(cqrs.DeleteUserCommand) error
}

func (m *mockAccounts) Register(_ context.Context, cmd cqrs.RegisterCommand) (*models.Account, error) {
	if m.registerFn != nil {
		return m.registerFn(cmd)
	}
	return nil, fmt.Errorf("not configured")
}

func (m *mockAccounts) AdminUpdateUser(_ context.Context, cmd cqrs.AdminUpdateUserCommand) (*models.Account, error) {
	if m.updateFn != nil {
		return m.updateFn(cmd)
	}
	return nil, fmt.Errorf("not configured")
}

func (m *mockAccounts) DeleteUser(_ context.Context, cmd cqrs.DeleteUserCommand) error {
	if m.deleteFn != nil {
		return m.deleteFn(cmd)
	}
	return fmt.Errorf("not configured")
}

type mockLedger struct {
	depositFn  func(cqrs.DepositCommand) (int64, error)
	withdrawFn func(cqrs.WithdrawCommand) (int64, error)
	transferFn func(cqrs.TransferCommand) (int64, error)
}

func (m *mockLedger) Deposit(_ context.Context, cmd cqrs.DepositCommand) (int64, error) {
	if m.depositFn != nil {
		return m.depositFn(cmd)
	}
	return 0, fmt.Errorf("not configured")
}

func (m *mockLedger) Withdraw(_ context.Context, cmd cqrs.WithdrawCommand) (int64, error) {
	if m.withdrawFn != nil {
		return m.withdrawFn(cmd)
	}
	return 0, fmt.Errorf("not configured")
}

func (m *mockLedger) Transfer(_ context.Context, cmd cqrs.TransferCommand) (int64, error) {
	if m.transferFn != nil {
		return m.transferFn(cmd)
	}
	return 0, fmt.Errorf("not configured")
}

type mockRequests struct {
	submitKYCFn     func(cqrs.SubmitKYCCommand) (*models.KYCRequest, error)
	submitUpdateFn  func(cqrs.SubmitUpdateCommand) (*models.UpdateRequest, error)
	resolveKYCFn    func(cqrs.ResolveRequestCommand) (*models.KYCRequest, error)
	resolveUpdateFn func(cqrs.ResolveRequestCommand) (*models.UpdateRequest, error)
}

func (m *mockRequests) SubmitKYC(_ context.Context, cmd cqrs.SubmitKYCCommand) (*models.KYCRequest, error) {
	if m.submitKYCFn != nil {
		return m.submitKYCFn(cmd)
	}
	return nil, fmt.Errorf("not configured")
}

func (m *mockRequests) SubmitUpdate(_ context.Context, cmd cqrs.SubmitUpdateCommand) (*models.UpdateRequest, error) {
	if m.submitUpdateFn != nil {
		return m.submitUpdateFn(cmd)
	}
	return nil, fmt.Errorf("not configured")
}

func (m *mockRequests) ResolveKYC(_ context.Context, cmd cqrs.ResolveRequestCommand) (*models.KYCRequest, error) {
	if m.resolveKYCFn != nil {
		return m.resolveKYCFn(cmd)
	}
	return nil, fmt.Errorf("not configured")
}

func (m *mockRequests) ResolveUpdate(_ context.Context, cmd cqrs.ResolveRequestCommand) (*models.UpdateRequest, error) {
	if m.resolveUpdateFn != nil {
		return m.resolveUpdateFn(cmd)
	}
	return nil, fmt.Errorf("not configured")
}

type mockAccountQuerier struct {
	profileFn      func(cqrs.GetProfileQuery) (*models.AccountView, error)
	transactionsFn func(cqrs.ListTransactionsQuery) ([]models.Transaction, error)
}

func (m *mockAccountQuerier) Profile(_ context.Context, q cqrs.GetProfileQuery) (*models.AccountView, error) {
	if m.profileFn != nil {
		return m.profileFn(q)
	}
	return nil, fmt.Errorf("not configured")
}

func (m *mockAccountQuerier) Transactions(_ context.Context, q cqrs.ListTransactionsQuery) ([]models.Transaction, error) {
	if m.transactionsFn != nil {
		return m.transactionsFn(q)
	}
	return nil, fmt.Errorf("not configured")
}

type mockAdminQuerier struct {
	dashboardFn      func() (*models.DashboardStats, error)
	listUsersFn      func() ([]models.AccountView, error)
	getUserFn        func(cqrs.GetUserQuery) (*models.AccountView, error)
	userTxnsFn       func(cqrs.ListTransactionsQuery) ([]models.Transaction, error)
	listKYCFn        func() ([]models.KYCRequestView, error)
	listUpdateReqsFn func() ([]models.UpdateRequestView, error)
}

func (m *mockAdminQuerier) Dashboard(context.Context) (*models.DashboardStats, error) {
	if m.dashboardFn != nil {
		return m.dashboardFn()
	}
	return nil, fmt.Errorf("not configured")
}

func (m *mockAdminQuerier) ListUsers(context.Context) ([]models.AccountView, error) {
	if m.listUsersFn != nil {
		return m.listUsersFn()
	}
	return nil, fmt.Errorf("not configured")
}

func (m *mockAdminQuerier) GetUser(_ context.Context, q cqrs.GetUserQuery) (*models.AccountView, error) {
	if m.getUserFn != nil {
		return m.getUserFn(q)
	}
	return nil, fmt.Errorf("not configured")
}

func (m *mockAdminQuerier) UserTransactions(_ context.Context, q cqrs.ListTransactionsQuery) ([]models.Transaction, error) {
	if m.userTxnsFn != nil {
		return m.userTxnsFn(q)
	}
	return nil, fmt.Errorf("not configured")
}

func (m *mockAdminQuerier) ListKYCRequests(context.Context) ([]models.KYCRequestView, error) {
	if m.listKYCFn != nil {
		return m.listKYCFn()
	}
	return nil, fmt.Errorf("not configured")
}

func (m *mockAdminQuerier) ListUpdateRequests(context.Context) ([]models.UpdateRequestView, error) {
	if m.listUpdateReqsFn != nil {
		return m.listUpdateReqsFn()
	}
	return nil, fmt.Errorf("not configured")
}

type mockAuth struct {
	loginFn      func(cqrs.LoginCommand) (*query.LoginResult, error)
	adminLoginFn func(cqrs.AdminLoginCommand) (*query.LoginResult, error)
}

func (m *mockAuth) Login(_ context.Context, cmd cqrs.LoginCommand) (*query.LoginResult, error) {
	if m.loginFn != nil {
		return m.loginFn(cmd)
	}
	return nil, fmt.Errorf("not configured")
}

func (m *mockAuth) AdminLogin(_ context.Context, cmd cqrs.AdminLoginCommand) (*query.LoginResult, error) {
	if m.adminLoginFn != nil {
		return m.adminLoginFn(cmd)
	}
	return nil, fmt.Errorf("not configured")
}

type mockDocuments struct {
	files map[string][]byte
	err   error
}

func (m *mockDocuments) Open(name string) (io.ReadCloser, string, error) {
	if m.err != nil {
		return nil, "", m.err
	}
	data, ok := m.files[name]
	if !ok {
		return nil, "", fmt.Errorf("not configured")
	}
	return io.NopCloser(bytes.NewReader(data)), "image/png", nil
}

// ---- helpers ----

func fakeAuth(p auth.Principal) gin.HandlerFunc {
	return func(c *gin.Context) {
		if p.Subject != "" {
			middleware.SetPrincipal(c, p)
		}
		c.Next()
	}
}

func doRequest(router http.Handler, method, url string, body any) *httptest.ResponseRecorder {
	var req *http.Request
	if body != nil {
		var raw []byte
		if s, ok := body.(string); ok {
			raw = []byte(s)
		} else {
			raw, _ = json.Marshal(body)
		}
		req, _ = http.NewRequest(method, url, strings.NewReader(string(raw)))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req, _ = http.NewRequest(method, url, nil)
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func decodeBody(w *httptest.ResponseRecorder) map[string]any {
	var out map[string]any
	_ = json.Unmarshal(w.Body.Bytes(), &out)
	return out
}

// ---- test data ----

var testUser = auth.Principal{Subject: "acc-001", Role: auth.RoleUser}
var testAdmin = auth.Principal{Subject: "adm-001", Role: auth.RoleAdmin}

func validRegisterBody() map[string]any {
	return map[string]any{
		"name":             "Asha Verma",
		"email":            "asha@example.com",
		"phone":            "9876543210",
		"gender":           "Female",
		"dob":              "1995-04-12",
		"adhaar":           "123412341234",
		"pan":              "ABCDE1234F",
		"account_type":     "Savings",
		"type_of_account":  "Individual",
		"initial_balance":  25000,
		"password":         "Str0ng!Pass",
		"confirm_password": "Str0ng!Pass",
	}
}
