package handler

import (
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/Vashist1110/AVS-Bank/shared/apperr"
	"github.com/Vashist1110/AVS-Bank/shared/cqrs"
	"github.com/Vashist1110/AVS-Bank/shared/models"
	"github.com/gin-gonic/gin"
)

func newAdminTestRouter(accounts AdminCommander, requests RequestResolver, queries AdminQuerier, documents DocumentOpener) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(fakeAuth(testAdmin))
	h := NewAdminHandler(accounts, requests, queries, documents)
	admin := r.Group("/admin")
	admin.GET("/dashboard", h.Dashboard)
	admin.GET("/users", h.ListUsers)
	admin.POST("/create-user", h.CreateUser)
	admin.GET("/users/:id", h.GetUser)
	admin.PUT("/users/:id", h.UpdateUser)
	admin.DELETE("/users/:id", h.DeleteUser)
	admin.GET("/users/:id/transactions", h.UserTransactions)
	admin.GET("/kyc-requests", h.ListKYCRequests)
	admin.POST("/kyc-requests/:id", h.ResolveKYC)
	admin.GET("/update-requests", h.ListUpdateRequests)
	admin.POST("/update-requests/:id", h.ResolveUpdate)
	admin.GET("/documents/:name", h.Document)
	return r
}

func TestDashboard(t *testing.T) {
	queries := &mockAdminQuerier{dashboardFn: func() (*models.DashboardStats, error) {
		stats := models.NewDashboardStats()
		stats.Add("Male", models.AccountTypeSavings, 1000)
		stats.Add("Female", models.AccountTypeCurrent, 500)
		return stats, nil
	}}
	router := newAdminTestRouter(&mockAccounts{}, &mockRequests{}, queries, &mockDocuments{})

	w := doRequest(router, http.MethodGet, "/admin/dashboard", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	body := decodeBody(w)
	if body["total_users"] != float64(2) || body["total_balance"] != float64(1500) || body["savings_accounts"] != float64(1) {
		t.Errorf("unexpected stats: %s", w.Body.String())
	}
}

func TestListUsers(t *testing.T) {
	t.Run("empty list renders as array", func(t *testing.T) {
		queries := &mockAdminQuerier{listUsersFn: func() ([]models.AccountView, error) { return nil, nil }}
		router := newAdminTestRouter(&mockAccounts{}, &mockRequests{}, queries, &mockDocuments{})
		w := doRequest(router, http.MethodGet, "/admin/users", nil)
		if w.Code != http.StatusOK || w.Body.String() != `{"users":[]}` {
			t.Fatalf("unexpected response %d: %s", w.Code, w.Body.String())
		}
	})

	t.Run("internal error hides detail", func(t *testing.T) {
		queries := &mockAdminQuerier{listUsersFn: func() ([]models.AccountView, error) {
			return nil, errors.New("connection reset by peer")
		}}
		router := newAdminTestRouter(&mockAccounts{}, &mockRequests{}, queries, &mockDocuments{})
		w := doRequest(router, http.MethodGet, "/admin/users", nil)
		if w.Code != http.StatusInternalServerError {
			t.Fatalf("expected 500, got %d", w.Code)
		}
		if decodeBody(w)["message"] != "Internal server error" {
			t.Errorf("expected generic message, got %s", w.Body.String())
		}
	})
}

func TestCreateUser(t *testing.T) {
	accounts := &mockAccounts{registerFn: func(cmd cqrs.RegisterCommand) (*models.Account, error) {
		return &models.Account{ID: "acc-002", AccountNumber: "AVS1002"}, nil
	}}
	router := newAdminTestRouter(accounts, &mockRequests{}, &mockAdminQuerier{}, &mockDocuments{})

	w := doRequest(router, http.MethodPost, "/admin/create-user", validRegisterBody())
	if w.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", w.Code, w.Body.String())
	}
	if decodeBody(w)["account_number"] != "AVS1002" {
		t.Errorf("unexpected body: %s", w.Body.String())
	}
}

func TestUpdateUser(t *testing.T) {
	tests := []struct {
		name           string
		body           map[string]any
		updateFn       func(cqrs.AdminUpdateUserCommand) (*models.Account, error)
		expectedStatus int
	}{
		{
			name: "success - only given fields are set",
			body: map[string]any{"phone": "9000000001"},
			updateFn: func(cmd cqrs.AdminUpdateUserCommand) (*models.Account, error) {
				if cmd.AccountID != "acc-001" || cmd.Phone == nil || *cmd.Phone != "9000000001" || cmd.Name != nil {
					t.Errorf("unexpected command: %+v", cmd)
				}
				return &models.Account{ID: cmd.AccountID, Phone: *cmd.Phone}, nil
			},
			expectedStatus: http.StatusOK,
		},
		{
			name:           "bad request - invalid gender",
			body:           map[string]any{"gender": "Unknown"},
			expectedStatus: http.StatusBadRequest,
		},
		{
			name: "not found - unknown account",
			body: map[string]any{"name": "New Name"},
			updateFn: func(cmd cqrs.AdminUpdateUserCommand) (*models.Account, error) {
				return nil, apperr.New(apperr.KindNotFound, "Account not found")
			},
			expectedStatus: http.StatusNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			router := newAdminTestRouter(&mockAccounts{updateFn: tt.updateFn}, &mockRequests{}, &mockAdminQuerier{}, &mockDocuments{})
			w := doRequest(router, http.MethodPut, "/admin/users/acc-001", tt.body)
			if w.Code != tt.expectedStatus {
				t.Fatalf("expected status %d, got %d: %s", tt.expectedStatus, w.Code, w.Body.String())
			}
		})
	}
}

func TestDeleteUser(t *testing.T) {
	tests := []struct {
		name           string
		deleteFn       func(cqrs.DeleteUserCommand) error
		expectedStatus int
	}{
		{name: "success", deleteFn: func(cqrs.DeleteUserCommand) error { return nil }, expectedStatus: http.StatusOK},
		{
			name: "bad request - balance not zero",
			deleteFn: func(cqrs.DeleteUserCommand) error {
				return apperr.New(apperr.KindValidation, "account balance must be zero before it can be deleted")
			},
			expectedStatus: http.StatusBadRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			router := newAdminTestRouter(&mockAccounts{deleteFn: tt.deleteFn}, &mockRequests{}, &mockAdminQuerier{}, &mockDocuments{})
			w := doRequest(router, http.MethodDelete, "/admin/users/acc-001", nil)
			if w.Code != tt.expectedStatus {
				t.Fatalf("expected status %d, got %d", tt.expectedStatus, w.Code)
			}
		})
	}
}

func TestGetUser(t *testing.T) {
	queries := &mockAdminQuerier{getUserFn: func(q cqrs.GetUserQuery) (*models.AccountView, error) {
		if q.AccountID != "acc-009" {
			return nil, apperr.New(apperr.KindNotFound, "Account not found")
		}
		return &models.AccountView{ID: "acc-009", Name: "Asha Verma", Balance: 2500, HasPendingKYCRequest: true}, nil
	}}
	router := newAdminTestRouter(&mockAccounts{}, &mockRequests{}, queries, &mockDocuments{})

	w := doRequest(router, http.MethodGet, "/admin/users/acc-009", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	body := decodeBody(w)
	if body["id"] != "acc-009" || body["balance"] != float64(2500) || body["has_pending_kyc_request"] != true {
		t.Errorf("unexpected user: %s", w.Body.String())
	}

	w = doRequest(router, http.MethodGet, "/admin/users/acc-404", nil)
	if w.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", w.Code)
	}
}

func TestUserTransactions(t *testing.T) {
	queries := &mockAdminQuerier{userTxnsFn: func(q cqrs.ListTransactionsQuery) ([]models.Transaction, error) {
		if q.AccountID != "acc-009" {
			return nil, apperr.New(apperr.KindNotFound, "Account not found")
		}
		return []models.Transaction{{ID: 42, Amount: 100, Type: models.TransactionCredit, Kind: models.KindDeposit, CreatedAt: time.Now()}}, nil
	}}
	router := newAdminTestRouter(&mockAccounts{}, &mockRequests{}, queries, &mockDocuments{})

	w := doRequest(router, http.MethodGet, "/admin/users/acc-009/transactions?limit=3", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	txns, _ := decodeBody(w)["transactions"].([]any)
	if len(txns) != 1 || txns[0].(map[string]any)["id"] != "42" {
		t.Errorf("unexpected transactions: %s", w.Body.String())
	}

	w = doRequest(router, http.MethodGet, "/admin/users/acc-404/transactions", nil)
	if w.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", w.Code)
	}
}

func TestResolveRequests(t *testing.T) {
	requests := &mockRequests{
		resolveKYCFn: func(cmd cqrs.ResolveRequestCommand) (*models.KYCRequest, error) {
			if cmd.AdminID != testAdmin.Subject {
				t.Errorf("expected admin id %q, got %q", testAdmin.Subject, cmd.AdminID)
			}
			switch cmd.RequestID {
			case "kyc-done":
				return nil, apperr.New(apperr.KindAlreadyResolved, "Request already processed")
			case "kyc-missing":
				return nil, apperr.New(apperr.KindNotFound, "Request not found")
			}
			return &models.KYCRequest{ID: cmd.RequestID, Status: cmd.Action + "d"}, nil
		},
		resolveUpdateFn: func(cmd cqrs.ResolveRequestCommand) (*models.UpdateRequest, error) {
			if cmd.RequestID == "upd-clash" {
				return nil, apperr.New(apperr.KindValidation, "Phone already registered")
			}
			return &models.UpdateRequest{ID: cmd.RequestID, Status: models.RequestRejected}, nil
		},
	}
	router := newAdminTestRouter(&mockAccounts{}, requests, &mockAdminQuerier{}, &mockDocuments{})

	tests := []struct {
		name           string
		path           string
		body           map[string]any
		expectedStatus int
		expectedError  string
	}{
		{name: "approve kyc", path: "/admin/kyc-requests/kyc-001", body: map[string]any{"action": "approve"}, expectedStatus: http.StatusOK},
		{name: "already resolved", path: "/admin/kyc-requests/kyc-done", body: map[string]any{"action": "reject"}, expectedStatus: http.StatusConflict, expectedError: "already_resolved"},
		{name: "unknown request", path: "/admin/kyc-requests/kyc-missing", body: map[string]any{"action": "approve"}, expectedStatus: http.StatusNotFound, expectedError: "not_found"},
		{name: "invalid action", path: "/admin/kyc-requests/kyc-001", body: map[string]any{"action": "maybe"}, expectedStatus: http.StatusBadRequest, expectedError: "validation_error"},
		{name: "missing action", path: "/admin/update-requests/upd-001", body: map[string]any{}, expectedStatus: http.StatusBadRequest, expectedError: "validation_error"},
		{name: "reject update", path: "/admin/update-requests/upd-001", body: map[string]any{"action": "reject"}, expectedStatus: http.StatusOK},
		{name: "approve update clashes", path: "/admin/update-requests/upd-clash", body: map[string]any{"action": "approve"}, expectedStatus: http.StatusBadRequest, expectedError: "validation_error"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := doRequest(router, http.MethodPost, tt.path, tt.body)
			if w.Code != tt.expectedStatus {
				t.Fatalf("expected status %d, got %d: %s", tt.expectedStatus, w.Code, w.Body.String())
			}
			if tt.expectedError != "" && decodeBody(w)["error"] != tt.expectedError {
				t.Errorf("expected error %q, got %v", tt.expectedError, decodeBody(w)["error"])
			}
		})
	}
}

func TestListRequests(t *testing.T) {
	queries := &mockAdminQuerier{
		listKYCFn: func() ([]models.KYCRequestView, error) {
			return []models.KYCRequestView{{
				KYCRequest:    models.KYCRequest{ID: "kyc-001", Status: models.RequestPending},
				AccountNumber: "AVS1001",
			}}, nil
		},
		listUpdateReqsFn: func() ([]models.UpdateRequestView, error) { return nil, nil },
	}
	router := newAdminTestRouter(&mockAccounts{}, &mockRequests{}, queries, &mockDocuments{})

	w := doRequest(router, http.MethodGet, "/admin/kyc-requests", nil)
	reqs, _ := decodeBody(w)["requests"].([]any)
	if w.Code != http.StatusOK || len(reqs) != 1 || reqs[0].(map[string]any)["account_number"] != "AVS1001" {
		t.Fatalf("unexpected kyc list %d: %s", w.Code, w.Body.String())
	}

	w = doRequest(router, http.MethodGet, "/admin/update-requests", nil)
	if w.Code != http.StatusOK || w.Body.String() != `{"requests":[]}` {
		t.Fatalf("unexpected update list %d: %s", w.Code, w.Body.String())
	}
}

func TestDocument(t *testing.T) {
	docs := &mockDocuments{files: map[string][]byte{"photo-abc.png": []byte("PNGDATA")}}
	router := newAdminTestRouter(&mockAccounts{}, &mockRequests{}, &mockAdminQuerier{}, docs)

	w := doRequest(router, http.MethodGet, "/admin/documents/photo-abc.png", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if w.Body.String() != "PNGDATA" || w.Header().Get("Content-Type") != "image/png" {
		t.Errorf("unexpected document response: %q %q", w.Body.String(), w.Header().Get("Content-Type"))
	}

	missing := &mockDocuments{err: apperr.New(apperr.KindNotFound, "document not found")}
	router = newAdminTestRouter(&mockAccounts{}, &mockRequests{}, &mockAdminQuerier{}, missing)
	w = doRequest(router, http.MethodGet, "/admin/documents/nope.png", nil)
	if w.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", w.Code)
	}
}
