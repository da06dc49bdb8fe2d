package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/Vashist1110/AVS-Bank/shared/events"
	"github.com/Vashist1110/AVS-Bank/shared/models"
	sharedredis "github.com/Vashist1110/AVS-Bank/shared/redis"
	goredis "github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const (
	accountViewKeyPrefix  = "avs:account:view:"
	recentTxnKeyPrefix    = "avs:account:txns:"
	processedTxnKeyPrefix = "avs:processed:txn:"
	generationKeyPrefix   = "avs:account:gen:"
	generationTTL         = 24 * time.Hour
	processedTxnTTL       = 72 * time.Hour
	recentTransactionsCap = 50
	DefaultReadModelTTL   = 30 * time.Second
)

// AccountReadRepository serves account views and recent history from Redis,
// falling back to the Store and warming Redis on a miss. Commands invalidate
// views and project new history rows after they commit.
//
// Each account has a generation counter that every post-commit change bumps.
// A warm is only written if the generation is the one read before the store
// read, so a read that raced a commit never overwrites newer state.
type AccountReadRepository struct {
	store  Store
	redis  *goredis.Client
	cache  *sharedredis.ViewCache[models.AccountView]
	ttl    time.Duration
	logger *zap.Logger
}

func NewAccountReadRepository(store Store, redisClient *goredis.Client, ttl time.Duration, logger *zap.Logger) *AccountReadRepository {
	if ttl <= 0 {
		ttl = DefaultReadModelTTL
	}
	return &AccountReadRepository{
		store:  store,
		redis:  redisClient,
		cache:  sharedredis.NewViewCache[models.AccountView](redisClient, accountViewKeyPrefix, ttl, logger),
		ttl:    ttl,
		logger: logger,
	}
}

// GetAccountView returns the caller-facing view of an account, including the
// pending request flags.
func (r *AccountReadRepository) GetAccountView(ctx context.Context, accountID string) (*models.AccountView, error) {
	if view, ok := r.cache.Get(ctx, accountID); ok {
		return view, nil
	}

	gen, genOK := r.generation(ctx, accountID)
	account, err := r.store.GetAccount(ctx, accountID)
	if err != nil {
		return nil, err
	}
	view := models.NewAccountView(account)
	if view.HasPendingKYCRequest, err = r.store.HasPendingKYC(ctx, accountID); err != nil {
		return nil, err
	}
	if view.HasPendingUpdateRequest, err = r.store.HasPendingUpdate(ctx, accountID); err != nil {
		return nil, err
	}

	if genOK {
		r.cache.SetIfGuard(ctx, accountID, view, generationKeyPrefix+accountID, gen)
	}
	return view, nil
}

// generation returns the account's current generation, "" when it has none.
// ok is false when Redis could not be read, in which case nothing is warmed.
func (r *AccountReadRepository) generation(ctx context.Context, accountID string) (string, bool) {
	gen, err := r.redis.Get(ctx, generationKeyPrefix+accountID).Result()
	if errors.Is(err, goredis.Nil) {
		return "", true
	}
	if err != nil {
		r.logger.Warn("read model generation unavailable", zap.String("account_id", accountID), zap.Error(err))
		return "", false
	}
	return gen, true
}

func bumpGeneration(ctx context.Context, pipe goredis.Pipeliner, accountID string) {
	key := generationKeyPrefix + accountID
	pipe.Incr(ctx, key)
	pipe.Expire(ctx, key, generationTTL)
}

// InvalidateAccountView drops cached views so the next read sees the store.
func (r *AccountReadRepository) InvalidateAccountView(ctx context.Context, accountIDs ...string) {
	pipe := r.redis.TxPipeline()
	for _, id := range accountIDs {
		bumpGeneration(ctx, pipe, id)
		pipe.Del(ctx, accountViewKeyPrefix+id)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		r.logger.Warn("account view invalidation failed", zap.Strings("account_ids", accountIDs), zap.Error(err))
	}
}

// DropAccount removes every read-model key of a deleted account.
func (r *AccountReadRepository) DropAccount(ctx context.Context, accountID string) {
	r.cache.Delete(ctx, accountID)
	if err := r.redis.Del(ctx, recentTxnKeyPrefix+accountID).Err(); err != nil {
		r.logger.Warn("failed to drop recent transactions", zap.String("account_id", accountID), zap.Error(err))
	}
}

// RecentTransactions returns up to limit history rows, newest first.
func (r *AccountReadRepository) RecentTransactions(ctx context.Context, accountID string, limit int) ([]models.Transaction, error) {
	if limit <= 0 || limit > recentTransactionsCap {
		limit = recentTransactionsCap
	}
	key := recentTxnKeyPrefix + accountID

	if txns, ok := r.cachedTransactions(ctx, key, limit); ok {
		return txns, nil
	}

	gen, genOK := r.generation(ctx, accountID)
	txns, err := r.store.ListTransactions(ctx, accountID, recentTransactionsCap)
	if err != nil {
		return nil, err
	}
	if genOK {
		r.warmTransactions(ctx, accountID, gen, txns)
	}
	if len(txns) > limit {
		txns = txns[:limit]
	}
	return txns, nil
}

func (r *AccountReadRepository) cachedTransactions(ctx context.Context, key string, limit int) ([]models.Transaction, bool) {
	n, err := r.redis.Exists(ctx, key).Result()
	if err != nil || n == 0 {
		return nil, false
	}
	raw, err := r.redis.LRange(ctx, key, 0, int64(limit-1)).Result()
	if err != nil {
		r.logger.Warn("recent transactions read failed", zap.String("key", key), zap.Error(err))
		return nil, false
	}
	txns := make([]models.Transaction, 0, len(raw))
	for _, item := range raw {
		var txn models.Transaction
		if err := json.Unmarshal([]byte(item), &txn); err != nil {
			r.logger.Warn("recent transaction entry undecodable", zap.String("key", key), zap.Error(err))
			return nil, false
		}
		txns = append(txns, txn)
	}
	return txns, true
}

// warmListScript rebuilds the list at KEYS[2] only while the generation at
// KEYS[1] still holds ARGV[1]. ARGV[2] is the TTL in ms, the rest are entries.
var warmListScript = goredis.NewScript(`
local current = redis.call("GET", KEYS[1])
if current == false then
  current = ""
end
if current ~= ARGV[1] then
  return 0
end
redis.call("DEL", KEYS[2])
for i = 3, #ARGV do
  redis.call("RPUSH", KEYS[2], ARGV[i])
end
redis.call("PEXPIRE", KEYS[2], ARGV[2])
return 1
`)

// warmTransactions writes the list and marks its rows as projected so a late
// event for the same row is not pushed twice. Redis has no empty lists, so
// accounts without history are always read from the store.
func (r *AccountReadRepository) warmTransactions(ctx context.Context, accountID, gen string, txns []models.Transaction) {
	if len(txns) == 0 {
		return
	}
	key := recentTxnKeyPrefix + accountID
	args := make([]any, 0, len(txns)+2)
	args = append(args, gen, r.ttl.Milliseconds())
	for _, txn := range txns {
		data, err := json.Marshal(txn)
		if err != nil {
			r.logger.Error("recent transaction marshal failed", zap.Error(err))
			return
		}
		args = append(args, data)
	}

	written, err := warmListScript.Run(ctx, r.redis, []string{generationKeyPrefix + accountID, key}, args...).Int64()
	if err != nil {
		r.logger.Warn("recent transactions warm failed", zap.String("key", key), zap.Error(err))
		return
	}
	if written == 0 {
		r.logger.Debug("recent transactions changed during warm", zap.String("account_id", accountID))
		return
	}

	pipe := r.redis.Pipeline()
	for _, txn := range txns {
		pipe.SetNX(ctx, processedTxnKeyPrefix+strconv.FormatInt(txn.ID, 10), "1", processedTxnTTL)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		r.logger.Warn("failed to mark warmed transactions", zap.String("key", key), zap.Error(err))
	}
}

// HandleLedgerEvent is the stream-side twin of ProjectTransaction. It picks
// up rows whose post-commit projection was lost.
func (r *AccountReadRepository) HandleLedgerEvent(ctx context.Context, event events.Event) error {
	if event.Type != events.TransactionCreated {
		return nil
	}
	var data events.TransactionCreatedEvent
	if err := event.DecodeData(&data); err != nil {
		return err
	}
	return r.ProjectTransaction(ctx, models.Transaction{
		ID:           data.TransactionID,
		AccountID:    data.AccountID,
		Amount:       data.Amount,
		Type:         data.Type,
		Kind:         data.Kind,
		Counterparty: data.Counterparty,
		BalanceAfter: data.BalanceAfter,
		CreatedAt:    data.CreatedAt,
	})
}

// ProjectTransaction pushes a committed row onto the account's recent history
// if that list is warm. Each row is projected at most once.
func (r *AccountReadRepository) ProjectTransaction(ctx context.Context, txn models.Transaction) error {
	marker := processedTxnKeyPrefix + strconv.FormatInt(txn.ID, 10)
	fresh, err := r.redis.SetNX(ctx, marker, "1", processedTxnTTL).Result()
	if err != nil {
		return fmt.Errorf("failed to mark transaction processed: %w", err)
	}
	if !fresh {
		r.logger.Debug("transaction already projected", zap.Int64("transaction_id", txn.ID))
		return nil
	}

	entry, err := json.Marshal(txn)
	if err != nil {
		return fmt.Errorf("failed to encode transaction: %w", err)
	}

	key := recentTxnKeyPrefix + txn.AccountID
	pipe := r.redis.TxPipeline()
	bumpGeneration(ctx, pipe, txn.AccountID)
	pipe.LPushX(ctx, key, entry)
	pipe.LTrim(ctx, key, 0, recentTransactionsCap-1)
	if _, err := pipe.Exec(ctx); err != nil {
		// unmark so a redelivery retries
		r.redis.Del(ctx, marker)
		return fmt.Errorf("failed to project transaction: %w", err)
	}
	return nil
}
