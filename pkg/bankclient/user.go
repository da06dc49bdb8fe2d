package bankclient

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strconv"

	"github.com/Vashist1110/AVS-Bank/shared/auth"
	"github.com/Vashist1110/AVS-Bank/shared/models"
)

// Registration is the body of POST /register and POST /admin/create-user.
type Registration struct {
	Name            string `json:"name"`
	Email           string `json:"email,omitempty"`
	Phone           string `json:"phone"`
	Gender          string `json:"gender"`
	DOB             string `json:"dob"`
	Adhaar          string `json:"adhaar"`
	PAN             string `json:"pan"`
	AccountType     string `json:"account_type"`
	TypeOfAccount   string `json:"type_of_account,omitempty"`
	InitialBalance  int64  `json:"initial_balance"`
	Password        string `json:"password"`
	ConfirmPassword string `json:"confirm_password"`
}

type RegisterResponse struct {
	Msg           string `json:"msg"`
	AccountNumber string `json:"account_number"`
}

type LoginResponse struct {
	AccessToken string    `json:"access_token"`
	Role        auth.Role `json:"role"`
}

type BalanceResponse struct {
	Msg        string `json:"msg"`
	NewBalance int64  `json:"new_balance"`
}

type SubmittedResponse struct {
	Msg       string `json:"msg"`
	RequestID string `json:"request_id"`
}

// Document is one file of a KYC submission.
type Document struct {
	Filename string
	Content  io.Reader
}

// KYCDocuments are the three files a KYC request needs.
type KYCDocuments struct {
	Pancard   Document
	Photo     Document
	Signature Document
}

func (c *Client) Register(ctx context.Context, r Registration) (*RegisterResponse, error) {
	var out RegisterResponse
	if err := c.doJSON(ctx, http.MethodPost, "/register", r, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Login signs a customer in and stores the token in the session.
func (c *Client) Login(ctx context.Context, phone, password string) (*LoginResponse, error) {
	return c.login(ctx, "/login", map[string]string{"phone": phone, "password": password})
}

// AdminLogin signs an admin in and stores the token in the session.
func (c *Client) AdminLogin(ctx context.Context, username, password string) (*LoginResponse, error) {
	return c.login(ctx, "/admin/login", map[string]string{"username": username, "password": password})
}

func (c *Client) login(ctx context.Context, path string, body map[string]string) (*LoginResponse, error) {
	var out LoginResponse
	if err := c.doJSON(ctx, http.MethodPost, path, body, &out); err != nil {
		return nil, err
	}
	c.session.Set(out.AccessToken, out.Role)
	return &out, nil
}

// Logout forgets the session token. Tokens are stateless, so nothing is sent.
func (c *Client) Logout() {
	c.session.Clear()
}

func (c *Client) Profile(ctx context.Context) (*models.AccountView, error) {
	var out models.AccountView
	if err := c.doJSON(ctx, http.MethodGet, "/profile", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) Deposit(ctx context.Context, amount int64) (*BalanceResponse, error) {
	return c.balanceCall(ctx, "/deposit", map[string]any{"amount": amount})
}

func (c *Client) Withdraw(ctx context.Context, amount int64) (*BalanceResponse, error) {
	return c.balanceCall(ctx, "/withdraw", map[string]any{"amount": amount})
}

func (c *Client) Transfer(ctx context.Context, recipientAccount string, amount int64) (*BalanceResponse, error) {
	return c.balanceCall(ctx, "/transfer", map[string]any{"amount": amount, "recipient_account": recipientAccount})
}

func (c *Client) balanceCall(ctx context.Context, path string, body map[string]any) (*BalanceResponse, error) {
	var out BalanceResponse
	if err := c.doJSON(ctx, http.MethodPost, path, body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Transactions returns the caller's most recent transactions. limit 0 uses
// the server default.
func (c *Client) Transactions(ctx context.Context, limit int) ([]models.Transaction, error) {
	return c.transactions(ctx, "/transactions", limit)
}

func (c *Client) transactions(ctx context.Context, path string, limit int) ([]models.Transaction, error) {
	if limit > 0 {
		path += "?" + url.Values{"limit": {strconv.Itoa(limit)}}.Encode()
	}
	var out struct {
		Transactions []models.Transaction `json:"transactions"`
	}
	if err := c.doJSON(ctx, http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	return out.Transactions, nil
}

// SubmitKYC uploads the three KYC documents as one multipart form.
func (c *Client) SubmitKYC(ctx context.Context, docs KYCDocuments) (*SubmittedResponse, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	for _, part := range []struct {
		field string
		doc   Document
	}{
		{"pancard", docs.Pancard},
		{"photo", docs.Photo},
		{"signature", docs.Signature},
	} {
		if part.doc.Content == nil {
			continue
		}
		fw, err := w.CreateFormFile(part.field, part.doc.Filename)
		if err != nil {
			return nil, fmt.Errorf("failed to add %s: %w", part.field, err)
		}
		if _, err := io.Copy(fw, part.doc.Content); err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", part.field, err)
		}
	}
	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("failed to finish form: %w", err)
	}

	resp, err := c.send(ctx, http.MethodPost, "/request-kyc-update", &buf, w.FormDataContentType())
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	var out SubmittedResponse
	if err := decode(resp, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// RequestUpdate asks an admin to change the given profile fields.
func (c *Client) RequestUpdate(ctx context.Context, fields map[string]string) (*SubmittedResponse, error) {
	var out SubmittedResponse
	if err := c.doJSON(ctx, http.MethodPost, "/request-update", fields, &out); err != nil {
		return nil, err
	}
	return &out, nil
}
