// Package atm binds the Assessment ATM contract.
package atm

import (
	"context"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/pkg/errors"
)

// ATMABI is the interface schema of the deployed contract.
const ATMABI = `[
	{"inputs":[{"internalType":"uint256","name":"initBalance","type":"uint256"}],"stateMutability":"payable","type":"constructor"},
	{"inputs":[{"internalType":"uint256","name":"balance","type":"uint256"},{"internalType":"uint256","name":"withdrawAmount","type":"uint256"}],"name":"InsufficientBalance","type":"error"},
	{"anonymous":false,"inputs":[{"indexed":false,"internalType":"uint256","name":"amount","type":"uint256"}],"name":"Deposit","type":"event"},
	{"anonymous":false,"inputs":[{"indexed":false,"internalType":"uint256","name":"amount","type":"uint256"}],"name":"Withdraw","type":"event"},
	{"inputs":[{"internalType":"uint256","name":"_amount","type":"uint256"}],"name":"deposit","outputs":[],"stateMutability":"payable","type":"function"},
	{"inputs":[],"name":"getBalance","outputs":[{"internalType":"uint256","name":"","type":"uint256"}],"stateMutability":"view","type":"function"},
	{"inputs":[],"name":"owner","outputs":[{"internalType":"address payable","name":"","type":"address"}],"stateMutability":"view","type":"function"},
	{"inputs":[{"internalType":"uint256","name":"_withdrawAmount","type":"uint256"}],"name":"withdraw","outputs":[],"stateMutability":"nonpayable","type":"function"}
]`

var parsedABI abi.ABI

func init() {
	var err error
	if parsedABI, err = abi.JSON(strings.NewReader(ATMABI)); err != nil {
		panic(errors.Wrap(err, "failed to parse the ATM abi"))
	}
}

// ATM is a Go binding around the deployed contract.
type ATM struct {
	address  common.Address
	contract *bind.BoundContract
	filterer bind.ContractFilterer
}

// NewATM binds the contract at address. No I/O is performed.
func NewATM(address common.Address, backend bind.ContractBackend) *ATM {
	return &ATM{
		address:  address,
		contract: bind.NewBoundContract(address, parsedABI, backend, backend, backend),
		filterer: backend,
	}
}

// GetBalance calls getBalance() and returns the stored value.
func (a *ATM) GetBalance(opts *bind.CallOpts) (*big.Int, error) {
	var out []interface{}
	if err := a.contract.Call(opts, &out, "getBalance"); err != nil {
		return nil, err
	}
	if len(out) != 1 {
		return nil, errors.Errorf("getBalance returned %d values", len(out))
	}
	return abi.ConvertType(out[0], new(big.Int)).(*big.Int), nil
}

// Deposit submits deposit(amount).
func (a *ATM) Deposit(opts *bind.TransactOpts, amount *big.Int) (*types.Transaction, error) {
	return a.contract.Transact(opts, "deposit", amount)
}

// Withdraw submits withdraw(amount).
func (a *ATM) Withdraw(opts *bind.TransactOpts, amount *big.Int) (*types.Transaction, error) {
	return a.contract.Transact(opts, "withdraw", amount)
}

// Event is a Deposit or Withdraw log of the contract.
type Event struct {
	Name   string
	Amount *big.Int
	Raw    types.Log
}

// FilterEvents returns the Deposit and Withdraw logs of blocks from..to, both inclusive.
func (a *ATM) FilterEvents(ctx context.Context, from, to uint64) ([]*Event, error) {
	deposit, withdraw := parsedABI.Events["Deposit"].ID, parsedABI.Events["Withdraw"].ID
	logs, err := a.filterer.FilterLogs(ctx, ethereum.FilterQuery{
		FromBlock: new(big.Int).SetUint64(from),
		ToBlock:   new(big.Int).SetUint64(to),
		Addresses: []common.Address{a.address},
		Topics:    [][]common.Hash{{deposit, withdraw}},
	})
	if err != nil {
		return nil, errors.Wrap(err, "failed to filter contract logs")
	}

	events := make([]*Event, 0, len(logs))
	for _, l := range logs {
		if len(l.Topics) == 0 || l.Removed {
			continue
		}
		name := "Deposit"
		if l.Topics[0] == withdraw {
			name = "Withdraw"
		}
		var out struct{ Amount *big.Int }
		if err := a.contract.UnpackLog(&out, name, l); err != nil {
			return nil, errors.Wrapf(err, "failed to unpack %s log", name)
		}
		events = append(events, &Event{Name: name, Amount: out.Amount, Raw: l})
	}
	return events, nil
}
