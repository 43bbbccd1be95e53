package wallet

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum/accounts"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/accounts/keystore"
	"github.com/ethereum/go-ethereum/common"
	"github.com/pkg/errors"
)

// KeystoreProvider is a local wallet backed by an encrypted go-ethereum keystore.
// Connecting unlocks the first key of the keystore.
type KeystoreProvider struct {
	ks         *keystore.KeyStore
	passphrase string
	chainID    *big.Int
	prompter   Prompter
	approved   approvals
}

func NewKeystoreProvider(ks *keystore.KeyStore, passphrase string, chainID *big.Int, prompter Prompter) *KeystoreProvider {
	return &KeystoreProvider{
		ks:         ks,
		passphrase: passphrase,
		chainID:    chainID,
		prompter:   prompter,
	}
}

func (p *KeystoreProvider) Name() string {
	return "keystore"
}

func (p *KeystoreProvider) RequestAccounts(ctx context.Context, mode RequestMode) ([]common.Address, error) {
	if mode == ModePassive {
		return p.approved.list(), nil
	}

	accs := p.ks.Accounts()
	if len(accs) == 0 {
		return nil, nil
	}
	acc := accs[0]

	if err := p.prompter.Confirm(ctx, Prompt{
		Kind:     PromptConnect,
		Provider: p.Name(),
		Accounts: []common.Address{acc.Address},
	}); err != nil {
		return nil, err
	}

	if err := p.ks.Unlock(acc, p.passphrase); err != nil {
		return nil, errors.Wrapf(err, "failed to unlock %s", acc.Address.Hex())
	}
	p.approved.add(acc.Address)

	return []common.Address{acc.Address}, nil
}

func (p *KeystoreProvider) Signer(account common.Address) (*bind.TransactOpts, error) {
	if !p.approved.has(account) {
		return nil, ErrUnknownAccount
	}
	opts, err := bind.NewKeyStoreTransactorWithChainID(p.ks, accounts.Account{Address: account}, p.chainID)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create a keystore transactor")
	}
	opts.Signer = confirmSigner(p.prompter, p.Name(), opts.Signer)
	return opts, nil
}
