// Package scrapper follows changes made outside this service: contract
// events of other clients and account switches in the wallet.
package scrapper

import (
	"context"

	"github.com/ethereum/go-ethereum/common"

	"atm/app/ledger/atm"
	"atm/app/models"
)

// Sessions is the part of the session controller the scrappers drive.
type Sessions interface {
	Snapshot() *models.Session
	Refresh(ctx context.Context) (*models.Session, error)
	MarkStale() *models.Session
	AccountsChanged(ctx context.Context, accounts []common.Address) *models.Session
}

// Journal tells transactions of this service from foreign ones.
type Journal interface {
	Has(hash string) bool
}

type Events interface {
	FilterEvents(ctx context.Context, from, to uint64) ([]*atm.Event, error)
}

type Heads interface {
	BlockNumber(ctx context.Context) (uint64, error)
}
