package atm

import (
	"bytes"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/rpc"
	"github.com/pkg/errors"
	"golang.org/x/crypto/sha3"
)

var (
	insufficientBalanceID []byte
	errorStringID         []byte
)

func init() {
	insufficientBalanceID = selector("InsufficientBalance(uint256,uint256)")
	errorStringID = selector("Error(string)")
}

func selector(signature string) []byte {
	hash := sha3.NewLegacyKeccak256()
	hash.Write([]byte(signature))
	return hash.Sum(nil)[:4]
}

// InsufficientBalanceError is the decoded InsufficientBalance revert.
type InsufficientBalanceError struct {
	Balance        *big.Int
	WithdrawAmount *big.Int
}

func (e *InsufficientBalanceError) Error() string {
	return fmt.Sprintf("insufficient balance: balance %s, withdraw amount %s", e.Balance, e.WithdrawAmount)
}

// RevertData extracts revert data from a node error, if the node returned any.
func RevertData(err error) ([]byte, bool) {
	var dataErr rpc.DataError
	if !errors.As(err, &dataErr) {
		return nil, false
	}
	switch data := dataErr.ErrorData().(type) {
	case string:
		raw, decodeErr := hexutil.Decode(data)
		if decodeErr != nil {
			return nil, false
		}
		return raw, true
	case []byte:
		return data, true
	default:
		return nil, false
	}
}

// DecodeRevert turns revert data into an error with a readable reason.
func DecodeRevert(data []byte) error {
	if len(data) < 4 {
		return errors.New("execution reverted")
	}

	id, args := data[:4], data[4:]
	switch {
	case bytes.Equal(id, insufficientBalanceID):
		values, err := abi.Arguments{{Type: uint256Type}, {Type: uint256Type}}.Unpack(args)
		if err != nil || len(values) != 2 {
			return errors.New("execution reverted: malformed InsufficientBalance")
		}
		return &InsufficientBalanceError{
			Balance:        values[0].(*big.Int),
			WithdrawAmount: values[1].(*big.Int),
		}
	case bytes.Equal(id, errorStringID):
		reason, err := abi.UnpackRevert(data)
		if err != nil {
			return errors.New("execution reverted")
		}
		return errors.Errorf("execution reverted: %s", reason)
	default:
		return errors.Errorf("execution reverted: unknown error %s", hexutil.Encode(id))
	}
}

var uint256Type, _ = abi.NewType("uint256", "", nil)

// InsufficientBalanceSelector returns the 4-byte id of the InsufficientBalance error.
func InsufficientBalanceSelector() []byte {
	return append([]byte(nil), insufficientBalanceID...)
}
