package cqrs

type RegisterCommand struct {
	Name           string
	Email          string
	Phone          string
	Gender         string
	DOB            string
	Adhaar         string
	PAN            string
	AccountType    string
	TypeOfAccount  string
	InitialBalance int64
	Password       string
}

// AdminUpdateUserCommand changes account fields directly. Nil fields are left
// alone. Balance is not here: only the ledger moves money.
type AdminUpdateUserCommand struct {
	AccountID     string
	Name          *string
	Email         *string
	Phone         *string
	Gender        *string
	DOB           *string
	Adhaar        *string
	PAN           *string
	AccountType   *string
	TypeOfAccount *string
}

type DeleteUserCommand struct {
	AccountID string
}

type DepositCommand struct {
	AccountID string
	Amount    int64
}

type WithdrawCommand struct {
	AccountID string
	Amount    int64
}

type TransferCommand struct {
	AccountID        string
	Amount           int64
	RecipientAccount string
}

// Document is one uploaded KYC file.
type Document struct {
	Filename string
	Data     []byte
}

type SubmitKYCCommand struct {
	AccountID string
	Pancard   Document
	Photo     Document
	Signature Document
}

type SubmitUpdateCommand struct {
	AccountID string
	Fields    map[string]string
}

const (
	ActionApprove = "approve"
	ActionReject  = "reject"
)

type ResolveRequestCommand struct {
	RequestID string
	Action    string
	AdminID   string
}

type LoginCommand struct {
	Phone    string
	Password string
}

type AdminLoginCommand struct {
	Username string
	Password string
}

type CreateAdminCommand struct {
	Username string
	Name     string
	Password string
}
