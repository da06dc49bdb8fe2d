package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

const (
	AccountTypeSavings = "savings"
	AccountTypeCurrent = "current"
)

const (
	KYCNotSubmitted = "not_submitted"
	KYCPending      = "pending"
	KYCApproved     = "approved"
	KYCRejected     = "rejected"
)

// Request statuses, shared by KYC and profile-update requests.
const (
	RequestPending  = "pending"
	RequestApproved = "approved"
	RequestRejected = "rejected"
)

const (
	TransactionCredit = "credit"
	TransactionDebit  = "debit"
)

const (
	KindDeposit     = "deposit"
	KindWithdraw    = "withdraw"
	KindTransferIn  = "transfer_in"
	KindTransferOut = "transfer_out"
)

// Account is the customer and their single bank account. Balance is in whole
// currency units and only the ledger changes it.
type Account struct {
	ID            string    `json:"id" db:"id"`
	Name          string    `json:"name" db:"name"`
	Email         string    `json:"email,omitempty" db:"email"`
	Phone         string    `json:"phone" db:"phone"`
	Gender        string    `json:"gender" db:"gender"`
	DOB           string    `json:"dob" db:"dob"`
	Adhaar        string    `json:"adhaar" db:"adhaar"`
	PAN           string    `json:"pan" db:"pan"`
	AccountNumber string    `json:"account_number" db:"account_number"`
	AccountType   string    `json:"account_type" db:"account_type"`
	TypeOfAccount string    `json:"type_of_account,omitempty" db:"type_of_account"`
	Balance       int64     `json:"balance" db:"balance"`
	KYCStatus     string    `json:"kyc_status" db:"kyc_status"`
	PasswordHash  string    `json:"-" db:"password_hash"`
	CreatedAt     time.Time `json:"created_at" db:"created_at"`
	UpdatedAt     time.Time `json:"updated_at" db:"updated_at"`
}

type Admin struct {
	ID           string    `json:"id" db:"id"`
	Username     string    `json:"username" db:"username"`
	Name         string    `json:"name" db:"name"`
	PasswordHash string    `json:"-" db:"password_hash"`
	CreatedAt    time.Time `json:"created_at" db:"created_at"`
}

// Transaction is one history row. A transfer writes two rows, one per side.
type Transaction struct {
	ID           int64     `json:"id,string" db:"id"`
	AccountID    string    `json:"-" db:"account_id"`
	Amount       int64     `json:"amount" db:"amount"`
	Type         string    `json:"type" db:"type"`
	Kind         string    `json:"kind" db:"kind"`
	Counterparty string    `json:"counterparty,omitempty" db:"counterparty"`
	BalanceAfter int64     `json:"balance_after" db:"balance_after"`
	CreatedAt    time.Time `json:"created_at" db:"created_at"`
}

type KYCRequest struct {
	ID            string     `json:"id" db:"id"`
	AccountID     string     `json:"account_id" db:"account_id"`
	PancardPath   string     `json:"pancard_image" db:"pancard_path"`
	PhotoPath     string     `json:"photo_image" db:"photo_path"`
	SignaturePath string     `json:"signature_image" db:"signature_path"`
	Status        string     `json:"status" db:"status"`
	CreatedAt     time.Time  `json:"created_at" db:"created_at"`
	ResolvedAt    *time.Time `json:"resolved_at,omitempty" db:"resolved_at"`
}

// UpdateRequest carries the fields a user asked to change and the values
// they had at submission time.
type UpdateRequest struct {
	ID         string     `json:"id" db:"id"`
	AccountID  string     `json:"account_id" db:"account_id"`
	Changes    FieldMap   `json:"changes" db:"changes"`
	Previous   FieldMap   `json:"previous" db:"previous"`
	Status     string     `json:"status" db:"status"`
	CreatedAt  time.Time  `json:"created_at" db:"created_at"`
	ResolvedAt *time.Time `json:"resolved_at,omitempty" db:"resolved_at"`
}

// FieldMap is a field name to value mapping stored as JSONB.
type FieldMap map[string]string

func (m FieldMap) Value() (driver.Value, error) {
	if m == nil {
		return "{}", nil
	}
	b, err := json.Marshal(m)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

func (m *FieldMap) Scan(src any) error {
	var data []byte
	switch v := src.(type) {
	case nil:
		*m = FieldMap{}
		return nil
	case []byte:
		data = v
	case string:
		data = []byte(v)
	default:
		return fmt.Errorf("cannot scan %T into FieldMap", src)
	}
	out := FieldMap{}
	if err := json.Unmarshal(data, &out); err != nil {
		return fmt.Errorf("decode field map: %w", err)
	}
	*m = out
	return nil
}

// Clone returns an independent copy.
func (m FieldMap) Clone() FieldMap {
	out := make(FieldMap, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
