package cqrs

// ---------- Account queries ----------

// GetProfileQuery fetches the caller's own account view.
type GetProfileQuery struct {
	AccountID string
}

// ListTransactionsQuery fetches the most recent history rows of an account.
// Limit <= 0 means the service default.
type ListTransactionsQuery struct {
	AccountID string
	Limit     int
}

// ---------- Admin queries ----------

// GetUserQuery fetches any account by id.
type GetUserQuery struct {
	AccountID string
}
