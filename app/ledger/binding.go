package ledger

import (
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/pkg/errors"

	"atm/app/ledger/atm"
	"atm/app/wallet"
)

// Backend is what a binding needs from the node: contract calls and receipts.
type Backend interface {
	bind.ContractBackend
	bind.DeployBackend
}

// Binding is the contract at a fixed address with the signer of one account.
type Binding struct {
	Address  common.Address
	Account  common.Address
	Contract Contract
	Signer   *bind.TransactOpts
}

// ContractBinder binds the contract deployed at Address.
type ContractBinder struct {
	Address  common.Address
	Backend  Backend
	GasLimit uint64 // 0 estimates the gas of every call
}

// Bind combines the fixed address and schema with the account's signer.
// It performs no I/O.
func (b *ContractBinder) Bind(account common.Address, provider wallet.Provider) (Ledger, error) {
	if account == (common.Address{}) || provider == nil {
		return nil, ErrBinding
	}

	signer, err := provider.Signer(account)
	if err != nil {
		return nil, errors.WithMessage(ErrBinding, err.Error())
	}
	signer.GasLimit = b.GasLimit

	return NewClient(&Binding{
		Address:  b.Address,
		Account:  account,
		Contract: atm.NewATM(b.Address, b.Backend),
		Signer:   signer,
	}, b.Backend), nil
}
