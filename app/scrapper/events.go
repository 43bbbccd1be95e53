package scrapper

import (
	"context"
	"sync"
	"time"

	"github.com/pkg/errors"

	"atm/app/session"
	"atm/pkg/log"
)

// EventsScraper polls Deposit and Withdraw logs of the contract. A log of
// a transaction this service did not send means the cached balance is
// stale, so the balance is queried again.
type EventsScraper struct {
	events     Events
	heads      Heads
	sessions   Sessions
	journal    Journal
	interval   time.Duration
	packetSize uint64

	mu        sync.Mutex
	lastBlock uint64
}

func NewEventsScraper(
	events Events,
	heads Heads,
	sessions Sessions,
	journal Journal,
	interval time.Duration,
	packetSize uint64,
) *EventsScraper {
	return &EventsScraper{
		events:     events,
		heads:      heads,
		sessions:   sessions,
		journal:    journal,
		interval:   interval,
		packetSize: packetSize,
	}
}

// Start remembers the current head and polls newer blocks until ctx is done.
// A zero interval leaves polling to explicit Scrape calls.
func (e *EventsScraper) Start(ctx context.Context) error {
	log.Info("Start event scrapper...")

	head, err := e.heads.BlockNumber(ctx)
	if err != nil {
		return errors.Wrap(err, "failed to fetch the last block")
	}
	log.Debugw("fetch the last block", "block", head)

	e.mu.Lock()
	e.lastBlock = head
	e.mu.Unlock()

	if e.interval > 0 {
		go e.monitorEvents(ctx)
	}
	return nil
}

func (e *EventsScraper) monitorEvents(ctx context.Context) {
	ticker := time.NewTicker(e.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Info("event scrapper stopped")
			return
		case <-ticker.C:
			if _, err := e.Scrape(ctx); err != nil {
				log.Warnw("failed to scrape contract events", "error", err.Error())
			}
		}
	}
}

// Scrape processes the blocks mined since the last call and returns the
// number of foreign events found.
func (e *EventsScraper) Scrape(ctx context.Context) (int, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	head, err := e.heads.BlockNumber(ctx)
	if err != nil {
		return 0, errors.Wrap(err, "failed to fetch the last block")
	}

	// fetch events by packets
	foreign := 0
	for start := e.lastBlock + 1; start <= head; {
		end := start + e.packetSize - 1
		if end > head || end < start { // overflow
			end = head
		}

		events, err := e.events.FilterEvents(ctx, start, end)
		if err != nil {
			return foreign, err
		}
		for _, event := range events {
			hash := event.Raw.TxHash.Hex()
			if e.journal.Has(hash) {
				continue
			}
			foreign++
			log.Infow("foreign contract event", "event", event.Name, "amount", event.Amount, "tx", hash, "block", event.Raw.BlockNumber)
		}

		e.lastBlock = end
		start = end + 1
	}

	if foreign > 0 {
		e.refresh(ctx)
	}
	return foreign, nil
}

func (e *EventsScraper) refresh(ctx context.Context) {
	if e.sessions.MarkStale().State != string(session.StateAuthorized) {
		return
	}
	if _, err := e.sessions.Refresh(ctx); err != nil {
		// a running call refreshes the balance when it completes
		log.Debugw("balance refresh after foreign events skipped", "error", err.Error())
	}
}
