package wallet

import (
	"context"
	"crypto/ecdsa"
	"math/big"

	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/pkg/errors"
	"github.com/tyler-smith/go-bip32"
	"github.com/tyler-smith/go-bip39"
)

// MnemonicProvider is a local HD wallet, accounts are derived along m/44'/60'/0'/0/{index}.
type MnemonicProvider struct {
	keys     map[common.Address]*ecdsa.PrivateKey
	ordered  []common.Address
	chainID  *big.Int
	prompter Prompter
	approved approvals
}

func NewMnemonicProvider(mnemonic string, count int, chainID *big.Int, prompter Prompter) (*MnemonicProvider, error) {
	seed, err := bip39.NewSeedWithErrorChecking(mnemonic, "")
	if err != nil {
		return nil, errors.Wrap(err, "invalid mnemonic")
	}
	if count < 1 {
		count = 1
	}
	if prompter == nil {
		prompter = AutoApprover{}
	}

	p := &MnemonicProvider{
		keys:     make(map[common.Address]*ecdsa.PrivateKey, count),
		chainID:  chainID,
		prompter: prompter,
	}
	for i := 0; i < count; i++ {
		key, err := deriveKey(seed, uint32(i))
		if err != nil {
			return nil, errors.Wrapf(err, "failed to derive account %d", i)
		}
		addr := crypto.PubkeyToAddress(key.PublicKey)
		p.keys[addr] = key
		p.ordered = append(p.ordered, addr)
	}
	return p, nil
}

func (p *MnemonicProvider) Name() string {
	return "mnemonic"
}

// Accounts returns every derived address in derivation order.
func (p *MnemonicProvider) Accounts() []common.Address {
	return append([]common.Address(nil), p.ordered...)
}

func (p *MnemonicProvider) RequestAccounts(ctx context.Context, mode RequestMode) ([]common.Address, error) {
	if mode == ModePassive {
		return p.approved.list(), nil
	}

	acc := p.ordered[0]
	if err := p.prompter.Confirm(ctx, Prompt{
		Kind:     PromptConnect,
		Provider: p.Name(),
		Accounts: []common.Address{acc},
	}); err != nil {
		return nil, err
	}
	p.approved.add(acc)

	return []common.Address{acc}, nil
}

func (p *MnemonicProvider) Signer(account common.Address) (*bind.TransactOpts, error) {
	key, ok := p.keys[account]
	if !ok || !p.approved.has(account) {
		return nil, ErrUnknownAccount
	}
	opts, err := bind.NewKeyedTransactorWithChainID(key, p.chainID)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create a keyed transactor")
	}
	opts.Signer = confirmSigner(p.prompter, p.Name(), opts.Signer)
	return opts, nil
}

// deriveKey derives the private key at m/44'/60'/0'/0/{index}.
func deriveKey(seed []byte, index uint32) (*ecdsa.PrivateKey, error) {
	key, err := bip32.NewMasterKey(seed)
	if err != nil {
		return nil, errors.Wrap(err, "master key")
	}

	path := []uint32{
		bip32.FirstHardenedChild + 44,
		bip32.FirstHardenedChild + 60,
		bip32.FirstHardenedChild + 0,
		0,
		index,
	}
	for _, child := range path {
		if key, err = key.NewChildKey(child); err != nil {
			return nil, errors.Wrapf(err, "derive child %d", child)
		}
	}

	// bip32 may return keys shorter than 32 bytes
	return crypto.ToECDSA(common.LeftPadBytes(key.Key, 32))
}
