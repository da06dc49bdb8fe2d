package bankclient

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"github.com/Vashist1110/AVS-Bank/shared/models"
)

// UserUpdate is the body of PUT /admin/users/:id. Nil fields are left alone.
type UserUpdate struct {
	Name          *string `json:"name,omitempty"`
	Email         *string `json:"email,omitempty"`
	Phone         *string `json:"phone,omitempty"`
	Gender        *string `json:"gender,omitempty"`
	DOB           *string `json:"dob,omitempty"`
	Adhaar        *string `json:"adhaar,omitempty"`
	PAN           *string `json:"pan,omitempty"`
	AccountType   *string `json:"account_type,omitempty"`
	TypeOfAccount *string `json:"type_of_account,omitempty"`
}

type Action string

const (
	Approve Action = "approve"
	Reject  Action = "reject"
)

func (c *Client) Dashboard(ctx context.Context) (*models.DashboardStats, error) {
	var out models.DashboardStats
	if err := c.doJSON(ctx, http.MethodGet, "/admin/dashboard", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) ListUsers(ctx context.Context) ([]models.AccountView, error) {
	var out struct {
		Users []models.AccountView `json:"users"`
	}
	if err := c.doJSON(ctx, http.MethodGet, "/admin/users", nil, &out); err != nil {
		return nil, err
	}
	return out.Users, nil
}

func (c *Client) GetUser(ctx context.Context, id string) (*models.AccountView, error) {
	var out models.AccountView
	if err := c.doJSON(ctx, http.MethodGet, "/admin/users/"+url.PathEscape(id), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) CreateUser(ctx context.Context, r Registration) (*RegisterResponse, error) {
	var out RegisterResponse
	if err := c.doJSON(ctx, http.MethodPost, "/admin/create-user", r, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) UpdateUser(ctx context.Context, id string, u UserUpdate) (*models.AccountView, error) {
	var out struct {
		User *models.AccountView `json:"user"`
	}
	if err := c.doJSON(ctx, http.MethodPut, "/admin/users/"+url.PathEscape(id), u, &out); err != nil {
		return nil, err
	}
	return out.User, nil
}

func (c *Client) DeleteUser(ctx context.Context, id string) error {
	return c.doJSON(ctx, http.MethodDelete, "/admin/users/"+url.PathEscape(id), nil, nil)
}

func (c *Client) UserTransactions(ctx context.Context, id string, limit int) ([]models.Transaction, error) {
	return c.transactions(ctx, "/admin/users/"+url.PathEscape(id)+"/transactions", limit)
}

func (c *Client) ListKYCRequests(ctx context.Context) ([]models.KYCRequestView, error) {
	var out struct {
		Requests []models.KYCRequestView `json:"requests"`
	}
	if err := c.doJSON(ctx, http.MethodGet, "/admin/kyc-requests", nil, &out); err != nil {
		return nil, err
	}
	return out.Requests, nil
}

func (c *Client) ResolveKYC(ctx context.Context, id string, action Action) (*models.KYCRequest, error) {
	var out struct {
		Request *models.KYCRequest `json:"request"`
	}
	if err := c.doJSON(ctx, http.MethodPost, "/admin/kyc-requests/"+url.PathEscape(id), map[string]Action{"action": action}, &out); err != nil {
		return nil, err
	}
	return out.Request, nil
}

func (c *Client) ListUpdateRequests(ctx context.Context) ([]models.UpdateRequestView, error) {
	var out struct {
		Requests []models.UpdateRequestView `json:"requests"`
	}
	if err := c.doJSON(ctx, http.MethodGet, "/admin/update-requests", nil, &out); err != nil {
		return nil, err
	}
	return out.Requests, nil
}

func (c *Client) ResolveUpdate(ctx context.Context, id string, action Action) (*models.UpdateRequest, error) {
	var out struct {
		Request *models.UpdateRequest `json:"request"`
	}
	if err := c.doJSON(ctx, http.MethodPost, "/admin/update-requests/"+url.PathEscape(id), map[string]Action{"action": action}, &out); err != nil {
		return nil, err
	}
	return out.Request, nil
}

// Document downloads a stored KYC file.
func (c *Client) Document(ctx context.Context, name string) ([]byte, string, error) {
	resp, err := c.send(ctx, http.MethodGet, "/admin/documents/"+url.PathEscape(name), nil, "")
	if err != nil {
		return nil, "", err
	}
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, "", fmt.Errorf("failed to read document: %w", err)
	}
	return data, resp.Header.Get("Content-Type"), nil
}
