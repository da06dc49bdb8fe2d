package repository

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/Vashist1110/AVS-Bank/shared/models"
	"github.com/Vashist1110/AVS-Bank/shared/utils"
)

// MemoryStore keeps everything in process. Transactions hold a store-wide
// lock and stage their writes, so a failed transaction leaves no trace.
type MemoryStore struct {
	mu       sync.RWMutex
	seq      int64
	order    []string
	accounts map[string]*models.Account
	txns     map[string][]models.Transaction
	kyc      map[string]*models.KYCRequest
	updates  map[string]*models.UpdateRequest
	admins   map[string]*models.Admin
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		seq:      utils.FirstAccountSequence - 1,
		accounts: map[string]*models.Account{},
		txns:     map[string][]models.Transaction{},
		kyc:      map[string]*models.KYCRequest{},
		updates:  map[string]*models.UpdateRequest{},
		admins:   map[string]*models.Admin{},
	}
}

func (s *MemoryStore) InTx(ctx context.Context, fn func(Tx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	tx := &memTx{
		store:    s,
		accounts: map[string]*models.Account{},
		deleted:  map[string]bool{},
		kyc:      map[string]*models.KYCRequest{},
		updates:  map[string]*models.UpdateRequest{},
	}
	if err := fn(tx); err != nil {
		return err
	}
	tx.commit()
	return nil
}

func (s *MemoryStore) CreateAccount(ctx context.Context, a *models.Account) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.checkUnique(a, nil); err != nil {
		return err
	}
	s.seq++
	a.AccountNumber = utils.FormatAccountNumber(s.seq)
	stored := *a
	s.accounts[a.ID] = &stored
	s.order = append(s.order, a.ID)
	return nil
}

func (s *MemoryStore) GetAccount(ctx context.Context, id string) (*models.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	a, ok := s.accounts[id]
	if !ok {
		return nil, ErrAccountNotFound
	}
	out := *a
	return &out, nil
}

func (s *MemoryStore) GetAccountByPhone(ctx context.Context, phone string) (*models.Account, error) {
	return s.findAccount(func(a *models.Account) bool { return a.Phone == phone })
}

func (s *MemoryStore) GetAccountByNumber(ctx context.Context, accountNumber string) (*models.Account, error) {
	return s.findAccount(func(a *models.Account) bool { return a.AccountNumber == accountNumber })
}

func (s *MemoryStore) findAccount(match func(*models.Account) bool) (*models.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, id := range s.order {
		if a := s.accounts[id]; match(a) {
			out := *a
			return &out, nil
		}
	}
	return nil, ErrAccountNotFound
}

func (s *MemoryStore) ListAccounts(ctx context.Context) ([]models.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.Account, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, *s.accounts[id])
	}
	return out, nil
}

func (s *MemoryStore) ListTransactions(ctx context.Context, accountID string, limit int) ([]models.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rows := s.txns[accountID]
	out := make([]models.Transaction, 0, len(rows))
	for i := len(rows) - 1; i >= 0; i-- {
		if limit > 0 && len(out) == limit {
			break
		}
		out = append(out, rows[i])
	}
	return out, nil
}

func (s *MemoryStore) ListPendingKYC(ctx context.Context) ([]models.KYCRequestView, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := []models.KYCRequestView{}
	for _, r := range s.kyc {
		if r.Status != models.RequestPending {
			continue
		}
		view := models.KYCRequestView{KYCRequest: *r}
		if a, ok := s.accounts[r.AccountID]; ok {
			view.AccountNumber = a.AccountNumber
			view.AccountName = a.Name
		}
		out = append(out, view)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (s *MemoryStore) ListPendingUpdates(ctx context.Context) ([]models.UpdateRequestView, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := []models.UpdateRequestView{}
	for _, r := range s.updates {
		if r.Status != models.RequestPending {
			continue
		}
		view := models.UpdateRequestView{UpdateRequest: cloneUpdate(r)}
		if a, ok := s.accounts[r.AccountID]; ok {
			view.AccountNumber = a.AccountNumber
			view.AccountName = a.Name
		}
		out = append(out, view)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (s *MemoryStore) HasPendingKYC(ctx context.Context, accountID string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, r := range s.kyc {
		if r.AccountID == accountID && r.Status == models.RequestPending {
			return true, nil
		}
	}
	return false, nil
}

func (s *MemoryStore) HasPendingUpdate(ctx context.Context, accountID string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, r := range s.updates {
		if r.AccountID == accountID && r.Status == models.RequestPending {
			return true, nil
		}
	}
	return false, nil
}

func (s *MemoryStore) Stats(ctx context.Context) (*models.DashboardStats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	stats := models.NewDashboardStats()
	for _, a := range s.accounts {
		stats.Add(a.Gender, a.AccountType, a.Balance)
	}
	return stats, nil
}

func (s *MemoryStore) CreateAdmin(ctx context.Context, a *models.Admin) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := strings.ToLower(a.Username)
	if _, exists := s.admins[key]; exists {
		return ErrUsernameTaken
	}
	stored := *a
	s.admins[key] = &stored
	return nil
}

func (s *MemoryStore) GetAdminByUsername(ctx context.Context, username string) (*models.Admin, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	a, ok := s.admins[strings.ToLower(username)]
	if !ok {
		return nil, ErrAdminNotFound
	}
	out := *a
	return &out, nil
}

// checkUnique reports a clash between a and any live account other than a
// itself. Callers hold s.mu. When tx is set its staged writes shadow the
// stored accounts.
func (s *MemoryStore) checkUnique(a *models.Account, tx *memTx) error {
	for _, id := range s.order {
		if id == a.ID {
			continue
		}
		other := s.accounts[id]
		if tx != nil {
			if tx.deleted[id] {
				continue
			}
			if staged, ok := tx.accounts[id]; ok {
				other = staged
			}
		}
		switch {
		case other.Phone == a.Phone:
			return ErrPhoneTaken
		case a.Email != "" && strings.EqualFold(other.Email, a.Email):
			return ErrEmailTaken
		case other.Adhaar == a.Adhaar:
			return ErrAdhaarTaken
		case strings.EqualFold(other.PAN, a.PAN):
			return ErrPANTaken
		}
	}
	return nil
}

type memTx struct {
	store    *MemoryStore
	accounts map[string]*models.Account
	deleted  map[string]bool
	txns     []models.Transaction
	kyc      map[string]*models.KYCRequest
	updates  map[string]*models.UpdateRequest
}

func (t *memTx) account(id string) (*models.Account, bool) {
	if t.deleted[id] {
		return nil, false
	}
	if a, ok := t.accounts[id]; ok {
		return a, true
	}
	a, ok := t.store.accounts[id]
	return a, ok
}

func (t *memTx) LockAccount(ctx context.Context, id string) (*models.Account, error) {
	a, ok := t.account(id)
	if !ok {
		return nil, ErrAccountNotFound
	}
	out := *a
	return &out, nil
}

func (t *memTx) FindAccountIDByNumber(ctx context.Context, accountNumber string) (string, error) {
	for _, id := range t.store.order {
		if a, ok := t.account(id); ok && a.AccountNumber == accountNumber {
			return id, nil
		}
	}
	return "", ErrAccountNotFound
}

func (t *memTx) SaveAccount(ctx context.Context, a *models.Account) error {
	if _, ok := t.account(a.ID); !ok {
		return ErrAccountNotFound
	}
	if err := t.store.checkUnique(a, t); err != nil {
		return err
	}
	staged := *a
	t.accounts[a.ID] = &staged
	return nil
}

func (t *memTx) DeleteAccount(ctx context.Context, id string) error {
	if _, ok := t.account(id); !ok {
		return ErrAccountNotFound
	}
	delete(t.accounts, id)
	t.deleted[id] = true
	return nil
}

func (t *memTx) InsertTransaction(ctx context.Context, txn *models.Transaction) error {
	if _, ok := t.account(txn.AccountID); !ok {
		return ErrAccountNotFound
	}
	t.txns = append(t.txns, *txn)
	return nil
}

func (t *memTx) kycRequest(id string) (*models.KYCRequest, bool) {
	if r, ok := t.kyc[id]; ok {
		return r, true
	}
	r, ok := t.store.kyc[id]
	return r, ok
}

func (t *memTx) PendingKYC(ctx context.Context, accountID string) (*models.KYCRequest, error) {
	for _, r := range t.kyc {
		if r.AccountID == accountID && r.Status == models.RequestPending {
			out := *r
			return &out, nil
		}
	}
	for id, r := range t.store.kyc {
		if _, staged := t.kyc[id]; staged {
			continue
		}
		if r.AccountID == accountID && r.Status == models.RequestPending {
			out := *r
			return &out, nil
		}
	}
	return nil, nil
}

func (t *memTx) InsertKYCRequest(ctx context.Context, r *models.KYCRequest) error {
	if _, ok := t.account(r.AccountID); !ok {
		return ErrAccountNotFound
	}
	if r.Status == models.RequestPending {
		if existing, _ := t.PendingKYC(ctx, r.AccountID); existing != nil {
			return ErrKYCPending
		}
	}
	staged := *r
	t.kyc[r.ID] = &staged
	return nil
}

func (t *memTx) LockKYCRequest(ctx context.Context, id string) (*models.KYCRequest, error) {
	r, ok := t.kycRequest(id)
	if !ok || t.deleted[r.AccountID] {
		return nil, ErrRequestNotFound
	}
	out := *r
	return &out, nil
}

func (t *memTx) SaveKYCRequest(ctx context.Context, r *models.KYCRequest) error {
	if _, ok := t.kycRequest(r.ID); !ok {
		return ErrRequestNotFound
	}
	staged := *r
	t.kyc[r.ID] = &staged
	return nil
}

func (t *memTx) updateRequest(id string) (*models.UpdateRequest, bool) {
	if r, ok := t.updates[id]; ok {
		return r, true
	}
	r, ok := t.store.updates[id]
	return r, ok
}

func (t *memTx) PendingUpdate(ctx context.Context, accountID string) (*models.UpdateRequest, error) {
	for _, r := range t.updates {
		if r.AccountID == accountID && r.Status == models.RequestPending {
			out := cloneUpdate(r)
			return &out, nil
		}
	}
	for id, r := range t.store.updates {
		if _, staged := t.updates[id]; staged {
			continue
		}
		if r.AccountID == accountID && r.Status == models.RequestPending {
			out := cloneUpdate(r)
			return &out, nil
		}
	}
	return nil, nil
}

func (t *memTx) InsertUpdateRequest(ctx context.Context, r *models.UpdateRequest) error {
	if _, ok := t.account(r.AccountID); !ok {
		return ErrAccountNotFound
	}
	if r.Status == models.RequestPending {
		if existing, _ := t.PendingUpdate(ctx, r.AccountID); existing != nil {
			return ErrUpdatePending
		}
	}
	staged := cloneUpdate(r)
	t.updates[r.ID] = &staged
	return nil
}

func (t *memTx) LockUpdateRequest(ctx context.Context, id string) (*models.UpdateRequest, error) {
	r, ok := t.updateRequest(id)
	if !ok || t.deleted[r.AccountID] {
		return nil, ErrRequestNotFound
	}
	out := cloneUpdate(r)
	return &out, nil
}

func (t *memTx) SaveUpdateRequest(ctx context.Context, r *models.UpdateRequest) error {
	if _, ok := t.updateRequest(r.ID); !ok {
		return ErrRequestNotFound
	}
	staged := cloneUpdate(r)
	t.updates[r.ID] = &staged
	return nil
}

// commit applies the staged writes. The caller holds store.mu.
func (t *memTx) commit() {
	s := t.store
	for id, a := range t.accounts {
		s.accounts[id] = a
	}
	for _, txn := range t.txns {
		s.txns[txn.AccountID] = append(s.txns[txn.AccountID], txn)
	}
	for id, r := range t.kyc {
		s.kyc[id] = r
	}
	for id, r := range t.updates {
		s.updates[id] = r
	}
	if len(t.deleted) == 0 {
		return
	}
	for id := range t.deleted {
		delete(s.accounts, id)
		delete(s.txns, id)
	}
	for id, r := range s.kyc {
		if t.deleted[r.AccountID] {
			delete(s.kyc, id)
		}
	}
	for id, r := range s.updates {
		if t.deleted[r.AccountID] {
			delete(s.updates, id)
		}
	}
	order := s.order[:0]
	for _, id := range s.order {
		if !t.deleted[id] {
			order = append(order, id)
		}
	}
	s.order = order
}

func cloneUpdate(r *models.UpdateRequest) models.UpdateRequest {
	out := *r
	out.Changes = r.Changes.Clone()
	out.Previous = r.Previous.Clone()
	return out
}
