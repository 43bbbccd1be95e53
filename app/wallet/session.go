package wallet

import (
	"context"

	"github.com/ethereum/go-ethereum/common"
	"github.com/pkg/errors"

	"atm/pkg/log"
)

// Session discovers and authorizes the account of the detected provider.
type Session struct {
	detector Detector
}

func NewSession(detector Detector) *Session {
	return &Session{detector: detector}
}

// Discover asks for already authorized accounts without prompting.
// Every failure is reported as "no account".
func (s *Session) Discover(ctx context.Context) (common.Address, bool) {
	provider, ok := s.detector.Detect(ctx)
	if !ok {
		return common.Address{}, false
	}

	accounts, err := provider.RequestAccounts(ctx, ModePassive)
	if err != nil {
		log.Debugw("account discovery failed", "provider", provider.Name(), "error", err.Error())
		return common.Address{}, false
	}
	if len(accounts) == 0 {
		return common.Address{}, false
	}
	return accounts[0], true
}

// Authorize prompts the user to connect an account and waits for the answer.
// The prompt is not cancelled when ctx is.
func (s *Session) Authorize(ctx context.Context) (common.Address, error) {
	provider, ok := s.detector.Detect(ctx)
	if !ok {
		return common.Address{}, ErrNoProvider
	}

	accounts, err := provider.RequestAccounts(context.WithoutCancel(ctx), ModeInteractive)
	if err != nil {
		if errors.Is(err, ErrUserRejected) {
			return common.Address{}, err
		}
		return common.Address{}, errors.Wrap(err, "failed to authorize an account")
	}
	if len(accounts) == 0 {
		return common.Address{}, ErrNoAccounts
	}

	log.Infow("account authorized", "provider", provider.Name(), "account", accounts[0].Hex())
	return accounts[0], nil
}
