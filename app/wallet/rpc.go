package wallet

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/rpc"
	"github.com/pkg/errors"
)

// userRejectedCode is the EIP-1193 error code of a declined request.
const userRejectedCode = 4001

// RPCCaller is the part of rpc.Client used by the provider.
type RPCCaller interface {
	CallContext(ctx context.Context, result interface{}, method string, args ...interface{}) error
}

// RPCProvider talks to an external wallet over JSON-RPC with the same
// methods a browser wallet exposes: eth_accounts, eth_requestAccounts, eth_signTransaction.
type RPCProvider struct {
	client  RPCCaller
	chainID *big.Int
}

func NewRPCProvider(client RPCCaller, chainID *big.Int) *RPCProvider {
	return &RPCProvider{client: client, chainID: chainID}
}

func (p *RPCProvider) Name() string {
	return "rpc wallet"
}

func (p *RPCProvider) RequestAccounts(ctx context.Context, mode RequestMode) ([]common.Address, error) {
	method := "eth_accounts"
	if mode == ModeInteractive {
		method = "eth_requestAccounts"
	}

	var accounts []common.Address
	if err := p.client.CallContext(ctx, &accounts, method); err != nil {
		return nil, classifyRPCError(err, method)
	}
	return accounts, nil
}

func (p *RPCProvider) Signer(account common.Address) (*bind.TransactOpts, error) {
	if account == (common.Address{}) {
		return nil, ErrUnknownAccount
	}
	return &bind.TransactOpts{
		From: account,
		Signer: func(from common.Address, tx *types.Transaction) (*types.Transaction, error) {
			// the wallet prompt cannot be cancelled once issued
			return p.signTransaction(context.Background(), from, tx)
		},
	}, nil
}

type signTransactionResult struct {
	Raw hexutil.Bytes `json:"raw"`
}

func (p *RPCProvider) signTransaction(ctx context.Context, from common.Address, tx *types.Transaction) (*types.Transaction, error) {
	args := map[string]interface{}{
		"from":    from,
		"to":      tx.To(),
		"gas":     hexutil.Uint64(tx.Gas()),
		"value":   (*hexutil.Big)(tx.Value()),
		"data":    hexutil.Bytes(tx.Data()),
		"nonce":   hexutil.Uint64(tx.Nonce()),
		"chainId": (*hexutil.Big)(p.chainID),
	}
	if tx.Type() == types.DynamicFeeTxType {
		args["maxFeePerGas"] = (*hexutil.Big)(tx.GasFeeCap())
		args["maxPriorityFeePerGas"] = (*hexutil.Big)(tx.GasTipCap())
	} else {
		args["gasPrice"] = (*hexutil.Big)(tx.GasPrice())
	}

	var result signTransactionResult
	if err := p.client.CallContext(ctx, &result, "eth_signTransaction", args); err != nil {
		return nil, classifyRPCError(err, "eth_signTransaction")
	}

	signed := new(types.Transaction)
	if err := signed.UnmarshalBinary(result.Raw); err != nil {
		return nil, errors.Wrap(err, "failed to decode a signed transaction")
	}

	sender, err := types.Sender(types.LatestSignerForChainID(p.chainID), signed)
	if err != nil {
		return nil, errors.Wrap(err, "failed to recover the signer")
	}
	if sender != from {
		return nil, errors.Errorf("wallet signed with %s instead of %s", sender.Hex(), from.Hex())
	}
	return signed, nil
}

func classifyRPCError(err error, method string) error {
	var rpcErr rpc.Error
	if errors.As(err, &rpcErr) && rpcErr.ErrorCode() == userRejectedCode {
		return errors.WithMessage(ErrUserRejected, rpcErr.Error())
	}
	return errors.Wrapf(err, "%s failed", method)
}
