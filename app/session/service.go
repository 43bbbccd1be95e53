package session

import (
	"context"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/pkg/errors"

	"atm/app/models"
)

// InstallHint is shown instead of a balance while no wallet is detected.
const InstallHint = "Please install a wallet in order to use this ATM."

var (
	ErrBusy         = errors.New("another operation is in progress")
	ErrInvalidState = errors.New("operation is not allowed in the current state")
)

type State string

const (
	StateNoProvider       State = "NoProvider"
	StateProviderDetected State = "ProviderDetected"
	StateUnauthorized     State = "Unauthorized"
	StateAuthorized       State = "Authorized"
	StateQuerying         State = "Querying"
	StateDepositing       State = "Depositing"
	StateWithdrawing      State = "Withdrawing"
)

// Service is the session lifecycle as seen by the presentation layer.
type Service interface {
	Start(ctx context.Context) (*models.Session, error)
	Detect(ctx context.Context) (*models.Session, error)
	Connect(ctx context.Context) (*models.Session, error)
	Refresh(ctx context.Context) (*models.Session, error)
	Deposit(ctx context.Context, amount *big.Int) (*models.Transaction, error)
	Withdraw(ctx context.Context, amount *big.Int) (*models.Transaction, error)
	AccountsChanged(ctx context.Context, accounts []common.Address) *models.Session
	DefaultAmount() *big.Int
	MarkStale() *models.Session
	Snapshot() *models.Session
	Subscribe() (<-chan *models.SessionEvent, func())
}

// Journal keeps the transactions submitted by the controller.
type Journal interface {
	Record(tx *models.Transaction)
}

// Funds reads the native balance of an account.
type Funds interface {
	BalanceAt(ctx context.Context, account common.Address, blockNumber *big.Int) (*big.Int, error)
}

// Recorder collects controller metrics.
type Recorder interface {
	Transition(state string)
	LedgerCall(call string, err error, elapsed time.Duration)
}

type nopRecorder struct{}

func (nopRecorder) Transition(string)                        {}
func (nopRecorder) LedgerCall(string, error, time.Duration) {}
