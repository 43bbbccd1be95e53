package eth

import (
	"math/big"
	"regexp"

	"github.com/ethereum/go-ethereum/common"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
)

const EtherDecimals = 18

var (
	addressRegex = regexp.MustCompile("^0x[0-9a-fA-F]{40}$")
)

func CalcGasCost(gasUsed uint64, gasPrice *big.Int) *big.Int {
	if gasPrice == nil {
		return new(big.Int)
	}
	gas := new(big.Int).SetUint64(gasUsed)
	return gas.Mul(gas, gasPrice)
}

func IsValidAddress(iaddress interface{}) bool {
	switch v := iaddress.(type) {
	case string:
		return addressRegex.MatchString(v)
	case common.Address:
		return addressRegex.MatchString(v.Hex())
	default:
		return false
	}
}

// ToETH converts an amount in the smallest units into a decimal amount.
func ToETH(ivalue interface{}, decimals uint8) decimal.Decimal {
	value := new(big.Int)
	switch v := ivalue.(type) {
	case string:
		value.SetString(v, 10)
	case *big.Int:
		if v != nil {
			value = v
		}
	}

	return decimal.NewFromBigInt(value, -int32(decimals))
}

// ParseAmount parses an integer amount of ledger units, e.g. "1" or "25".
func ParseAmount(raw string) (*big.Int, error) {
	amount, err := decimal.NewFromString(raw)
	if err != nil {
		return nil, errors.Wrapf(err, "invalid amount %q", raw)
	}
	if !amount.Equal(amount.Truncate(0)) {
		return nil, errors.Errorf("amount %q must be an integer", raw)
	}
	return amount.BigInt(), nil
}
