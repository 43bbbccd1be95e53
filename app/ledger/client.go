package ledger

import (
	"context"
	"math/big"
	"strings"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/pkg/errors"

	"atm/app/ledger/atm"
	"atm/app/models"
	"atm/app/wallet"
	"atm/pkg/eth"
	"atm/pkg/log"
)

// Error keeps the kind of a ledger failure next to its cause.
type Error struct {
	Kind error
	Err  error
}

func (e *Error) Error() string {
	return e.Kind.Error() + ": " + e.Err.Error()
}

func (e *Error) Is(target error) bool {
	return target == e.Kind
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Client calls the contract of a single Binding.
type Client struct {
	binding  *Binding
	receipts bind.DeployBackend
}

func NewClient(binding *Binding, receipts bind.DeployBackend) *Client {
	return &Client{binding: binding, receipts: receipts}
}

func (c *Client) Account() common.Address {
	return c.binding.Account
}

// QueryBalance is a single read-only round trip.
func (c *Client) QueryBalance(ctx context.Context) (*big.Int, error) {
	balance, err := c.binding.Contract.GetBalance(&bind.CallOpts{
		Context: ctx,
		From:    c.binding.Account,
	})
	if err != nil {
		return nil, &Error{Kind: ErrRemoteUnavailable, Err: err}
	}
	return balance, nil
}

// Deposit submits deposit(amount). The call is confirmed by PendingTransaction.Confirm.
func (c *Client) Deposit(ctx context.Context, amount *big.Int) (*PendingTransaction, error) {
	return c.submit(ctx, models.KindDeposit, amount, c.binding.Contract.Deposit)
}

// Withdraw submits withdraw(amount). The call is confirmed by PendingTransaction.Confirm.
func (c *Client) Withdraw(ctx context.Context, amount *big.Int) (*PendingTransaction, error) {
	return c.submit(ctx, models.KindWithdraw, amount, c.binding.Contract.Withdraw)
}

type transactFn func(opts *bind.TransactOpts, amount *big.Int) (*types.Transaction, error)

func (c *Client) submit(ctx context.Context, kind string, amount *big.Int, transact transactFn) (*PendingTransaction, error) {
	if amount == nil {
		return nil, errors.New("amount is required")
	}

	opts := *c.binding.Signer
	opts.Context = ctx

	tx, err := transact(&opts, amount)
	if err != nil {
		return nil, classifySubmitError(err)
	}

	log.Infow("transaction submitted", "kind", kind, "hash", tx.Hash().Hex(), "amount", amount.String())
	return &PendingTransaction{
		Kind:        kind,
		Account:     c.binding.Account,
		Amount:      new(big.Int).Set(amount),
		SubmittedAt: time.Now(),
		tx:          tx,
		receipts:    c.receipts,
		status:      models.TxStatusSubmitted,
	}, nil
}

func classifySubmitError(err error) error {
	if errors.Is(err, wallet.ErrUserRejected) {
		return err
	}
	if data, ok := atm.RevertData(err); ok {
		return &Error{Kind: ErrTransactionFailed, Err: atm.DecodeRevert(data)}
	}
	if strings.Contains(err.Error(), "execution reverted") {
		return &Error{Kind: ErrTransactionFailed, Err: err}
	}
	return &Error{Kind: ErrRemoteUnavailable, Err: err}
}

// PendingTransaction is a submitted mutating call waiting for finalization.
type PendingTransaction struct {
	Kind        string
	Account     common.Address
	Amount      *big.Int
	SubmittedAt time.Time

	tx       *types.Transaction
	receipts bind.DeployBackend

	mu          sync.RWMutex
	status      string
	receipt     *types.Receipt
	confirmedAt time.Time
}

func (p *PendingTransaction) Hash() common.Hash {
	return p.tx.Hash()
}

func (p *PendingTransaction) Status() string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.status
}

// Confirm waits until the transaction is mined. A reverted transaction
// is reported as ErrTransactionFailed.
func (p *PendingTransaction) Confirm(ctx context.Context) (*types.Receipt, error) {
	receipt, err := bind.WaitMined(ctx, p.receipts, p.tx)
	if err != nil {
		return nil, &Error{Kind: ErrRemoteUnavailable, Err: errors.Wrap(err, "failed to wait for the receipt")}
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	p.receipt = receipt
	p.confirmedAt = time.Now()

	if receipt.Status != types.ReceiptStatusSuccessful {
		p.status = models.TxStatusFailed
		return receipt, &Error{
			Kind: ErrTransactionFailed,
			Err:  errors.Errorf("%s %s reverted in block %s", p.Kind, p.tx.Hash().Hex(), receipt.BlockNumber),
		}
	}

	p.status = models.TxStatusConfirmed
	log.Infow("transaction confirmed", "kind", p.Kind, "hash", p.tx.Hash().Hex(), "block", receipt.BlockNumber)
	return receipt, nil
}

// ToPublic renders the transaction for observers.
func (p *PendingTransaction) ToPublic() *models.Transaction {
	p.mu.RLock()
	defer p.mu.RUnlock()

	out := &models.Transaction{
		Hash:        p.tx.Hash().Hex(),
		Kind:        p.Kind,
		Account:     p.Account.Hex(),
		Amount:      p.Amount.String(),
		Status:      p.status,
		SubmittedAt: p.SubmittedAt.Unix(),
	}
	if p.receipt != nil {
		out.ConfirmedAt = p.confirmedAt.Unix()
		if p.receipt.BlockNumber != nil {
			out.BlockNumber = p.receipt.BlockNumber.Uint64()
		}
		out.GasUsed = p.receipt.GasUsed
		fee := eth.CalcGasCost(p.receipt.GasUsed, p.receipt.EffectiveGasPrice)
		out.Fee = eth.ToETH(fee, eth.EtherDecimals).String()
	}
	return out
}
