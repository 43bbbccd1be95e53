// Package journal keeps recent deposit and withdraw transactions in memory.
package journal

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/patrickmn/go-cache"

	"atm/app/models"
	"atm/pkg/response"
)

const cleanupFactor = 2

type Service interface {
	Record(tx *models.Transaction)
	Has(hash string) bool
	TransactionHistory(ctx context.Context, filter *models.TransactionHistoryFilter) (*models.TransactionHistory, error)
	GetTransaction(ctx context.Context, account, hash string) (*models.Transaction, error)
}

// Journal is a TTL cache of transactions keyed by hash. A record replaces
// the previous one of the same hash, a final status is never downgraded.
type Journal struct {
	cache *cache.Cache
}

func New(ttl time.Duration) *Journal {
	return &Journal{cache: cache.New(ttl, cleanupFactor*ttl)}
}

func (j *Journal) Record(tx *models.Transaction) {
	key := strings.ToLower(tx.Hash)
	if cached, ok := j.cache.Get(key); ok {
		if prev, ok := cached.(*models.Transaction); ok && prev.IsFinal() && !tx.IsFinal() {
			return
		}
	}
	j.cache.Set(key, tx, cache.DefaultExpiration)
}

// Has reports whether the transaction was recorded, i.e. sent by this service.
func (j *Journal) Has(hash string) bool {
	_, ok := j.cache.Get(strings.ToLower(hash))
	return ok
}

// TransactionHistory lists the transactions of the account, newest first.
func (j *Journal) TransactionHistory(ctx context.Context, filter *models.TransactionHistoryFilter) (*models.TransactionHistory, error) {
	var txs []*models.Transaction
	for _, item := range j.cache.Items() {
		tx, ok := item.Object.(*models.Transaction)
		if !ok || !strings.EqualFold(tx.Account, filter.Account) {
			continue
		}
		txs = append(txs, tx)
	}

	sort.Slice(txs, func(a, b int) bool {
		if txs[a].SubmittedAt == txs[b].SubmittedAt {
			return txs[a].Hash < txs[b].Hash
		}
		return txs[a].SubmittedAt > txs[b].SubmittedAt
	})

	out := &models.TransactionHistory{
		Transactions: []*models.Transaction{},
		Meta:         &models.ListMeta{Total: uint64(len(txs))},
	}
	if filter.Skip >= uint64(len(txs)) {
		return out, nil
	}
	txs = txs[filter.Skip:]
	if filter.Limit != nil && *filter.Limit < uint64(len(txs)) {
		txs = txs[:*filter.Limit]
	}
	out.Transactions = append(out.Transactions, txs...)
	return out, nil
}

func (j *Journal) GetTransaction(ctx context.Context, account, hash string) (*models.Transaction, error) {
	cached, ok := j.cache.Get(strings.ToLower(hash))
	if !ok {
		return nil, response.NewError(response.CodeNotFound, "transaction not found")
	}

	tx, ok := cached.(*models.Transaction)
	if !ok || !strings.EqualFold(tx.Account, account) {
		return nil, response.NewError(response.CodeNotFound, "transaction not found")
	}
	return tx, nil
}
