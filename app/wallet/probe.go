package wallet

import (
	"context"
	"math/big"
	"os"
	"sync"

	"github.com/ethereum/go-ethereum/accounts/keystore"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/rpc"
	"github.com/pkg/errors"

	"atm/app/config"
	"atm/pkg/log"
)

const (
	KindRPC      = "rpc"
	KindKeystore = "keystore"
	KindMnemonic = "mnemonic"
)

// Probe detects the configured wallet provider. Once a provider is found it
// is kept for the process lifetime, absence is re-checked on every call.
type Probe struct {
	cfg      config.Wallet
	chainID  *big.Int
	prompter Prompter

	mu       sync.Mutex
	provider Provider
}

func NewProbe(cfg config.Wallet, chainID *big.Int, prompter Prompter) *Probe {
	if prompter == nil {
		prompter = AutoApprover{}
	}
	return &Probe{
		cfg:      cfg,
		chainID:  chainID,
		prompter: prompter,
	}
}

func (p *Probe) Detect(ctx context.Context) (Provider, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.provider != nil {
		return p.provider, true
	}

	provider, err := p.detect(ctx)
	if err != nil {
		log.Infow("wallet provider is absent", "kind", p.cfg.Kind, "reason", err.Error())
		return nil, false
	}

	log.Infow("wallet provider detected", "provider", provider.Name())
	p.provider = provider
	return provider, true
}

func (p *Probe) detect(ctx context.Context) (Provider, error) {
	switch p.cfg.Kind {
	case KindRPC:
		return p.detectRPC(ctx)
	case KindKeystore:
		if _, err := os.Stat(p.cfg.KeystoreDir); err != nil {
			return nil, errors.Wrap(err, "keystore directory is unavailable")
		}
		ks := keystore.NewKeyStore(p.cfg.KeystoreDir, keystore.StandardScryptN, keystore.StandardScryptP)
		return NewKeystoreProvider(ks, p.cfg.Passphrase, p.chainID, p.prompter), nil
	case KindMnemonic:
		return NewMnemonicProvider(p.cfg.Mnemonic, p.cfg.Accounts, p.chainID, p.prompter)
	case "":
		return nil, errors.New("no wallet configured")
	default:
		return nil, errors.Errorf("unknown wallet kind %q", p.cfg.Kind)
	}
}

func (p *Probe) detectRPC(ctx context.Context) (Provider, error) {
	client, err := rpc.DialContext(ctx, p.cfg.RPCUrl)
	if err != nil {
		return nil, errors.Wrap(err, "failed to dial the wallet")
	}

	var chainID hexutil.Big
	if err = client.CallContext(ctx, &chainID, "eth_chainId"); err != nil {
		client.Close()
		return nil, errors.Wrap(err, "wallet does not answer")
	}
	if p.chainID != nil && p.chainID.Cmp(chainID.ToInt()) != 0 {
		client.Close()
		return nil, errors.Errorf("wallet is connected to chain %s, expected %s", chainID.ToInt(), p.chainID)
	}

	return NewRPCProvider(client, chainID.ToInt()), nil
}
