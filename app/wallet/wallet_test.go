package wallet

import (
	"context"
	"encoding/json"
	"math/big"
	"strings"
	"testing"

	"github.com/ethereum/go-ethereum/accounts/keystore"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const hardhatMnemonic = "test test test test test test test test test test test junk"

var (
	testChainID  = big.NewInt(31337)
	contractAddr = common.HexToAddress("0x5FbDB2315678afecb367f032d93F642f64180aa3")
)

func rejectAll() Prompter {
	return PrompterFunc(func(context.Context, Prompt) error { return ErrUserRejected })
}

func newTestTx() *types.Transaction {
	return types.NewTx(&types.LegacyTx{
		Nonce:    1,
		To:       &contractAddr,
		Gas:      50000,
		GasPrice: big.NewInt(1),
		Data:     []byte{0xb6, 0xb5, 0x5f, 0x25},
	})
}

func TestMnemonicProvider_Derivation(t *testing.T) {
	p, err := NewMnemonicProvider(hardhatMnemonic, 2, testChainID, AutoApprover{})
	require.NoError(t, err)

	accounts := p.Accounts()
	require.Len(t, accounts, 2)
	assert.Equal(t, common.HexToAddress("0xf39Fd6e51aad88F6F4ce6aB8827279cffFb92266"), accounts[0])
	assert.Equal(t, common.HexToAddress("0x70997970C51812dc3A010C7d01b50e0d17dc79C8"), accounts[1])
}

func TestMnemonicProvider_InvalidMnemonic(t *testing.T) {
	_, err := NewMnemonicProvider("not a valid mnemonic", 1, testChainID, nil)
	assert.Error(t, err)
}

func TestMnemonicProvider_Authorize(t *testing.T) {
	p, err := NewMnemonicProvider(hardhatMnemonic, 1, testChainID, AutoApprover{})
	require.NoError(t, err)
	ctx := context.Background()

	passive, err := p.RequestAccounts(ctx, ModePassive)
	require.NoError(t, err)
	assert.Empty(t, passive, "nothing is authorized before connecting")

	_, err = p.Signer(p.Accounts()[0])
	assert.True(t, errors.Is(err, ErrUnknownAccount))

	accounts, err := p.RequestAccounts(ctx, ModeInteractive)
	require.NoError(t, err)
	assert.Equal(t, p.Accounts()[:1], accounts)

	passive, err = p.RequestAccounts(ctx, ModePassive)
	require.NoError(t, err)
	assert.Equal(t, accounts, passive)

	opts, err := p.Signer(accounts[0])
	require.NoError(t, err)
	signed, err := opts.Signer(accounts[0], newTestTx())
	require.NoError(t, err)
	sender, err := types.Sender(types.LatestSignerForChainID(testChainID), signed)
	require.NoError(t, err)
	assert.Equal(t, accounts[0], sender)
}

func TestMnemonicProvider_Rejected(t *testing.T) {
	p, err := NewMnemonicProvider(hardhatMnemonic, 1, testChainID, rejectAll())
	require.NoError(t, err)

	_, err = p.RequestAccounts(context.Background(), ModeInteractive)
	assert.True(t, errors.Is(err, ErrUserRejected))

	passive, err := p.RequestAccounts(context.Background(), ModePassive)
	require.NoError(t, err)
	assert.Empty(t, passive)
}

func TestMnemonicProvider_TransactionRejected(t *testing.T) {
	approveConnect := PrompterFunc(func(_ context.Context, prompt Prompt) error {
		if prompt.Kind == PromptTransaction {
			return ErrUserRejected
		}
		return nil
	})
	p, err := NewMnemonicProvider(hardhatMnemonic, 1, testChainID, approveConnect)
	require.NoError(t, err)

	accounts, err := p.RequestAccounts(context.Background(), ModeInteractive)
	require.NoError(t, err)
	opts, err := p.Signer(accounts[0])
	require.NoError(t, err)

	_, err = opts.Signer(accounts[0], newTestTx())
	assert.True(t, errors.Is(err, ErrUserRejected))
}

func TestKeystoreProvider(t *testing.T) {
	const scryptN = 2
	const scryptP = 1
	ks := keystore.NewKeyStore(t.TempDir(), scryptN, scryptP)
	acc, err := ks.NewAccount("secret")
	require.NoError(t, err)

	p := NewKeystoreProvider(ks, "secret", testChainID, AutoApprover{})
	accounts, err := p.RequestAccounts(context.Background(), ModeInteractive)
	require.NoError(t, err)
	assert.Equal(t, []common.Address{acc.Address}, accounts)

	opts, err := p.Signer(acc.Address)
	require.NoError(t, err)
	assert.Equal(t, acc.Address, opts.From)

	signed, err := opts.Signer(acc.Address, newTestTx())
	require.NoError(t, err)
	sender, err := types.Sender(types.LatestSignerForChainID(testChainID), signed)
	require.NoError(t, err)
	assert.Equal(t, acc.Address, sender)
}

func TestKeystoreProvider_WrongPassphrase(t *testing.T) {
	ks := keystore.NewKeyStore(t.TempDir(), 2, 1)
	_, err := ks.NewAccount("secret")
	require.NoError(t, err)

	p := NewKeystoreProvider(ks, "wrong", testChainID, AutoApprover{})
	_, err = p.RequestAccounts(context.Background(), ModeInteractive)
	assert.Error(t, err)
	assert.False(t, errors.Is(err, ErrUserRejected))
}

func TestKeystoreProvider_Empty(t *testing.T) {
	ks := keystore.NewKeyStore(t.TempDir(), 2, 1)
	p := NewKeystoreProvider(ks, "", testChainID, AutoApprover{})

	accounts, err := p.RequestAccounts(context.Background(), ModeInteractive)
	require.NoError(t, err)
	assert.Empty(t, accounts)
}

// fakeRPC answers wallet methods the way a browser wallet would.
type fakeRPC struct {
	accounts []common.Address
	rejected bool
}

type rpcError struct {
	code int
	msg  string
}

func (e *rpcError) Error() string  { return e.msg }
func (e *rpcError) ErrorCode() int { return e.code }

func (f *fakeRPC) CallContext(_ context.Context, result interface{}, method string, args ...interface{}) error {
	switch method {
	case "eth_accounts":
		return assign(result, f.accounts)
	case "eth_requestAccounts":
		if f.rejected {
			return &rpcError{code: userRejectedCode, msg: "User rejected the request."}
		}
		return assign(result, f.accounts)
	default:
		return &rpcError{code: -32601, msg: "method not found"}
	}
}

func assign(result interface{}, value interface{}) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	return json.Unmarshal(raw, result)
}

func TestRPCProvider_RequestAccounts(t *testing.T) {
	addr := common.HexToAddress("0xf39Fd6e51aad88F6F4ce6aB8827279cffFb92266")
	p := NewRPCProvider(&fakeRPC{accounts: []common.Address{addr}}, testChainID)

	accounts, err := p.RequestAccounts(context.Background(), ModePassive)
	require.NoError(t, err)
	assert.Equal(t, []common.Address{addr}, accounts)

	accounts, err = p.RequestAccounts(context.Background(), ModeInteractive)
	require.NoError(t, err)
	assert.Equal(t, []common.Address{addr}, accounts)
}

func TestRPCProvider_Rejected(t *testing.T) {
	p := NewRPCProvider(&fakeRPC{rejected: true}, testChainID)

	_, err := p.RequestAccounts(context.Background(), ModeInteractive)
	assert.True(t, errors.Is(err, ErrUserRejected))
}

// signingRPC signs with a local key, like a wallet answering eth_signTransaction.
type signingRPC struct {
	fakeRPC
	sign func(tx *types.Transaction) (*types.Transaction, error)
}

func (s *signingRPC) CallContext(ctx context.Context, result interface{}, method string, args ...interface{}) error {
	if method != "eth_signTransaction" {
		return s.fakeRPC.CallContext(ctx, result, method, args...)
	}
	fields := args[0].(map[string]interface{})
	tx := types.NewTx(&types.LegacyTx{
		Nonce:    uint64(fields["nonce"].(hexutil.Uint64)),
		To:       fields["to"].(*common.Address),
		Gas:      uint64(fields["gas"].(hexutil.Uint64)),
		GasPrice: fields["gasPrice"].(*hexutil.Big).ToInt(),
		Value:    fields["value"].(*hexutil.Big).ToInt(),
		Data:     fields["data"].(hexutil.Bytes),
	})
	signed, err := s.sign(tx)
	if err != nil {
		return err
	}
	raw, err := signed.MarshalBinary()
	if err != nil {
		return err
	}
	return assign(result, signTransactionResult{Raw: raw})
}

func TestRPCProvider_Signer(t *testing.T) {
	key, err := crypto.GenerateKey()
	require.NoError(t, err)
	from := crypto.PubkeyToAddress(key.PublicKey)
	signer := types.LatestSignerForChainID(testChainID)

	p := NewRPCProvider(&signingRPC{sign: func(tx *types.Transaction) (*types.Transaction, error) {
		return types.SignTx(tx, signer, key)
	}}, testChainID)

	opts, err := p.Signer(from)
	require.NoError(t, err)
	signed, err := opts.Signer(from, newTestTx())
	require.NoError(t, err)
	assert.Equal(t, uint64(1), signed.Nonce())

	other := common.HexToAddress("0x70997970C51812dc3A010C7d01b50e0d17dc79C8")
	_, err = opts.Signer(other, newTestTx())
	assert.Error(t, err, "a signature of another account must be refused")
}

type staticDetector struct {
	provider Provider
}

func (d staticDetector) Detect(context.Context) (Provider, bool) {
	return d.provider, d.provider != nil
}

func TestSession(t *testing.T) {
	ctx := context.Background()

	s := NewSession(staticDetector{})
	_, ok := s.Discover(ctx)
	assert.False(t, ok)
	_, err := s.Authorize(ctx)
	assert.True(t, errors.Is(err, ErrNoProvider))

	p, err := NewMnemonicProvider(hardhatMnemonic, 1, testChainID, AutoApprover{})
	require.NoError(t, err)
	s = NewSession(staticDetector{provider: p})

	_, ok = s.Discover(ctx)
	assert.False(t, ok, "discovery must not authorize")

	acc, err := s.Authorize(ctx)
	require.NoError(t, err)
	assert.Equal(t, p.Accounts()[0], acc)

	discovered, ok := s.Discover(ctx)
	assert.True(t, ok)
	assert.Equal(t, acc, discovered)
}

func TestSession_NoAccounts(t *testing.T) {
	s := NewSession(staticDetector{provider: NewRPCProvider(&fakeRPC{}, testChainID)})
	_, err := s.Authorize(context.Background())
	assert.True(t, errors.Is(err, ErrNoAccounts))
}

func TestTerminalPrompter(t *testing.T) {
	prompt := Prompt{Kind: PromptConnect, Provider: "mnemonic", Accounts: []common.Address{contractAddr}}
	tests := []struct {
		name  string
		input string
		err   error
	}{
		{"yes", "y\n", nil},
		{"yes without newline", "YES", nil},
		{"no", "n\n", ErrUserRejected},
		{"empty line", "\n", ErrUserRejected},
		{"closed input", "", ErrUserRejected},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := new(strings.Builder)
			err := NewTerminalPrompter(strings.NewReader(tt.input), out).Confirm(context.Background(), prompt)
			if tt.err == nil {
				assert.NoError(t, err)
			} else {
				assert.True(t, errors.Is(err, tt.err), "got %v", err)
			}
			assert.Contains(t, out.String(), "approve? [y/N]")
		})
	}
}
