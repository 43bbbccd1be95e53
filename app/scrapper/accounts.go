package scrapper

import (
	"context"
	"strings"
	"time"

	"atm/app/session"
	"atm/app/wallet"
	"atm/pkg/log"
)

// AccountsScraper polls the wallet for its authorized accounts without
// prompting and reports switches and disconnects to the session.
type AccountsScraper struct {
	detector wallet.Detector
	sessions Sessions
	interval time.Duration
}

func NewAccountsScraper(detector wallet.Detector, sessions Sessions, interval time.Duration) *AccountsScraper {
	return &AccountsScraper{
		detector: detector,
		sessions: sessions,
		interval: interval,
	}
}

func (a *AccountsScraper) Start(ctx context.Context) {
	log.Info("Start accounts scrapper...")
	if a.interval <= 0 {
		return
	}
	go func() {
		ticker := time.NewTicker(a.interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				log.Info("accounts scrapper stopped")
				return
			case <-ticker.C:
				a.Scrape(ctx)
			}
		}
	}()
}

// Scrape compares the first authorized account with the bound one. It
// reports whether the session was told about a change.
func (a *AccountsScraper) Scrape(ctx context.Context) bool {
	snapshot := a.sessions.Snapshot()
	if snapshot.Provider == "" {
		return false // detection is only re-checked on request
	}

	provider, ok := a.detector.Detect(ctx)
	if !ok {
		return false
	}

	accounts, err := provider.RequestAccounts(ctx, wallet.ModePassive)
	if err != nil {
		log.Debugw("failed to poll wallet accounts", "error", err.Error())
		return false
	}

	next := ""
	if len(accounts) > 0 {
		next = accounts[0].Hex()
	}
	if strings.EqualFold(next, snapshot.Account) {
		return false
	}

	updated := a.sessions.AccountsChanged(ctx, accounts)
	if updated.State == string(session.StateAuthorized) {
		if _, err := a.sessions.Refresh(ctx); err != nil {
			log.Debugw("balance refresh after account change failed", "error", err.Error())
		}
	}
	return true
}
