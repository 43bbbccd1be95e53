package wallet

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"math/big"
	"strings"
	"sync"

	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/pkg/errors"
)

type PromptKind string

const (
	PromptConnect     PromptKind = "connect"
	PromptTransaction PromptKind = "transaction"
)

// Prompt is what a local wallet asks the user to approve.
type Prompt struct {
	Kind     PromptKind
	Provider string
	Accounts []common.Address // connect
	From     common.Address   // transaction
	To       *common.Address
	Value    *big.Int
	Data     []byte
}

func (p Prompt) String() string {
	switch p.Kind {
	case PromptConnect:
		addrs := make([]string, 0, len(p.Accounts))
		for _, a := range p.Accounts {
			addrs = append(addrs, a.Hex())
		}
		return fmt.Sprintf("%s wants to connect account %s", p.Provider, strings.Join(addrs, ", "))
	case PromptTransaction:
		to := "<new contract>"
		if p.To != nil {
			to = p.To.Hex()
		}
		return fmt.Sprintf("%s: sign a call from %s to %s (value %s wei, %d bytes of data)",
			p.Provider, p.From.Hex(), to, p.Value, len(p.Data))
	default:
		return string(p.Kind)
	}
}

// Prompter asks the user to approve a wallet request.
// A declined prompt is reported as ErrUserRejected.
type Prompter interface {
	Confirm(ctx context.Context, prompt Prompt) error
}

// PrompterFunc adapts a function to the Prompter interface.
type PrompterFunc func(ctx context.Context, prompt Prompt) error

func (f PrompterFunc) Confirm(ctx context.Context, prompt Prompt) error {
	return f(ctx, prompt)
}

// AutoApprover approves every request.
type AutoApprover struct{}

func (AutoApprover) Confirm(context.Context, Prompt) error {
	return nil
}

// TerminalPrompter asks for a y/N answer on a terminal. Closed input
// declines every prompt, so detached processes need AutoApprover.
type TerminalPrompter struct {
	mu  sync.Mutex
	in  *bufio.Reader
	out io.Writer
}

func NewTerminalPrompter(in io.Reader, out io.Writer) *TerminalPrompter {
	return &TerminalPrompter{in: bufio.NewReader(in), out: out}
}

func (t *TerminalPrompter) Confirm(ctx context.Context, prompt Prompt) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if _, err := fmt.Fprintf(t.out, "%s\napprove? [y/N]: ", prompt); err != nil {
		return errors.Wrap(err, "failed to show a prompt")
	}
	answer, err := t.in.ReadString('\n')
	if err != nil && err != io.EOF {
		return errors.Wrap(err, "failed to read an answer")
	}

	switch strings.ToLower(strings.TrimSpace(answer)) {
	case "y", "yes":
		return nil
	default:
		return ErrUserRejected
	}
}

// confirmSigner asks the prompter before every signature.
func confirmSigner(prompter Prompter, provider string, sign bind.SignerFn) bind.SignerFn {
	return func(from common.Address, tx *types.Transaction) (*types.Transaction, error) {
		// signing prompts cannot be cancelled once shown
		if err := prompter.Confirm(context.Background(), Prompt{
			Kind:     PromptTransaction,
			Provider: provider,
			From:     from,
			To:       tx.To(),
			Value:    tx.Value(),
			Data:     tx.Data(),
		}); err != nil {
			return nil, err
		}
		return sign(from, tx)
	}
}

// approvals is the set of accounts a local wallet has connected.
type approvals struct {
	mu       sync.RWMutex
	accounts []common.Address
}

func (a *approvals) add(account common.Address) {
	a.mu.Lock()
	defer a.mu.Unlock()
	for _, acc := range a.accounts {
		if acc == account {
			return
		}
	}
	a.accounts = append(a.accounts, account)
}

func (a *approvals) has(account common.Address) bool {
	a.mu.RLock()
	defer a.mu.RUnlock()
	for _, acc := range a.accounts {
		if acc == account {
			return true
		}
	}
	return false
}

func (a *approvals) list() []common.Address {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return append([]common.Address(nil), a.accounts...)
}
