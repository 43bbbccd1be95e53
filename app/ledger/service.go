package ledger

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/pkg/errors"

	"atm/app/wallet"
)

var (
	ErrBinding           = errors.New("cannot bind the contract without an account and a wallet")
	ErrRemoteUnavailable = errors.New("ledger is unavailable")
	ErrTransactionFailed = errors.New("transaction failed")
)

// Contract is the remote ledger: one read and two mutating calls.
type Contract interface {
	GetBalance(opts *bind.CallOpts) (*big.Int, error)
	Deposit(opts *bind.TransactOpts, amount *big.Int) (*types.Transaction, error)
	Withdraw(opts *bind.TransactOpts, amount *big.Int) (*types.Transaction, error)
}

// Ledger is the client side of a bound contract.
type Ledger interface {
	Account() common.Address
	QueryBalance(ctx context.Context) (*big.Int, error)
	Deposit(ctx context.Context, amount *big.Int) (*PendingTransaction, error)
	Withdraw(ctx context.Context, amount *big.Int) (*PendingTransaction, error)
}

// Binder builds a Ledger for an authorized account.
type Binder interface {
	Bind(account common.Address, provider wallet.Provider) (Ledger, error)
}
