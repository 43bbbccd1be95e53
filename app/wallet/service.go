package wallet

import (
	"context"

	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/pkg/errors"
)

var (
	ErrNoProvider     = errors.New("no wallet provider detected, install a wallet in order to use this ATM")
	ErrUserRejected   = errors.New("user rejected the request")
	ErrNoAccounts     = errors.New("wallet returned no accounts")
	ErrUnknownAccount = errors.New("account is not authorized by the wallet")
)

// RequestMode tells a provider whether it may show a prompt to the user.
type RequestMode int

const (
	// ModePassive returns already authorized accounts and never prompts.
	ModePassive RequestMode = iota
	// ModeInteractive asks the user to authorize an account.
	ModeInteractive
)

func (m RequestMode) String() string {
	if m == ModeInteractive {
		return "interactive"
	}
	return "passive"
}

// Provider is a wallet capability provider: account discovery,
// account authorization and transaction signing.
type Provider interface {
	Name() string
	RequestAccounts(ctx context.Context, mode RequestMode) ([]common.Address, error)
	// Signer returns transact options whose Signer authorizes outgoing calls of the account.
	// It must not perform I/O; signing itself may suspend on a wallet prompt.
	Signer(account common.Address) (*bind.TransactOpts, error)
}

// Detector finds the provider of the host environment.
type Detector interface {
	Detect(ctx context.Context) (Provider, bool)
}
