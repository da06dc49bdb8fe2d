package models

import "time"

// AccountView is the read-side projection of an account, cached in Redis.
// It never carries the password hash.
type AccountView struct {
	ID                      string    `json:"id"`
	Name                    string    `json:"name"`
	Email                   string    `json:"email,omitempty"`
	Phone                   string    `json:"phone"`
	Gender                  string    `json:"gender"`
	DOB                     string    `json:"dob"`
	Adhaar                  string    `json:"adhaar"`
	PAN                     string    `json:"pan"`
	AccountNumber           string    `json:"account_number"`
	AccountType             string    `json:"account_type"`
	TypeOfAccount           string    `json:"type_of_account,omitempty"`
	Balance                 int64     `json:"balance"`
	KYCStatus               string    `json:"kyc_status"`
	HasPendingKYCRequest    bool      `json:"has_pending_kyc_request"`
	HasPendingUpdateRequest bool      `json:"has_pending_update_request"`
	Role                    string    `json:"role"`
	CreatedAt               time.Time `json:"created_at"`
	UpdatedAt               time.Time `json:"updated_at"`
}

// NewAccountView projects an account. Pending flags are filled by the caller.
func NewAccountView(a *Account) *AccountView {
	return &AccountView{
		ID:            a.ID,
		Name:          a.Name,
		Email:         a.Email,
		Phone:         a.Phone,
		Gender:        a.Gender,
		DOB:           a.DOB,
		Adhaar:        a.Adhaar,
		PAN:           a.PAN,
		AccountNumber: a.AccountNumber,
		AccountType:   a.AccountType,
		TypeOfAccount: a.TypeOfAccount,
		Balance:       a.Balance,
		KYCStatus:     a.KYCStatus,
		Role:          "user",
		CreatedAt:     a.CreatedAt,
		UpdatedAt:     a.UpdatedAt,
	}
}

// KYCRequestView is a pending KYC request as listed to admins.
type KYCRequestView struct {
	KYCRequest
	AccountNumber string `json:"account_number" db:"account_number"`
	AccountName   string `json:"account_name" db:"account_name"`
}

// UpdateRequestView is a pending profile-update request as listed to admins.
type UpdateRequestView struct {
	UpdateRequest
	AccountNumber string `json:"account_number" db:"account_number"`
	AccountName   string `json:"account_name" db:"account_name"`
}

// DashboardStats is the admin dashboard summary. The flat counters mirror the
// partitions for the dashboard page.
type DashboardStats struct {
	TotalUsers      int            `json:"total_users"`
	TotalBalance    int64          `json:"total_balance"`
	UsersByGender   map[string]int `json:"users_by_gender"`
	AccountsByType  map[string]int `json:"accounts_by_type"`
	MaleUsers       int            `json:"male_users"`
	FemaleUsers     int            `json:"female_users"`
	SavingsAccounts int            `json:"savings_accounts"`
	CurrentAccounts int            `json:"current_accounts"`
}

// NewDashboardStats returns empty stats with initialised partitions.
func NewDashboardStats() *DashboardStats {
	return &DashboardStats{
		UsersByGender:  map[string]int{},
		AccountsByType: map[string]int{},
	}
}

// Add counts one account into the stats.
func (s *DashboardStats) Add(gender, accountType string, balance int64) {
	s.AddGroup(gender, accountType, 1, balance)
}

// AddGroup counts n accounts sharing gender and account type.
func (s *DashboardStats) AddGroup(gender, accountType string, n int, balance int64) {
	s.TotalUsers += n
	s.TotalBalance += balance
	s.UsersByGender[gender] += n
	s.AccountsByType[accountType] += n
	s.MaleUsers = s.UsersByGender["Male"]
	s.FemaleUsers = s.UsersByGender["Female"]
	s.SavingsAccounts = s.AccountsByType[AccountTypeSavings]
	s.CurrentAccounts = s.AccountsByType[AccountTypeCurrent]
}
