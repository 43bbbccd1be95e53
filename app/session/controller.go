package session

import (
	"context"
	"math/big"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/pkg/errors"

	"atm/app/ledger"
	"atm/app/models"
	"atm/app/wallet"
	"atm/pkg/eth"
	"atm/pkg/log"
)

const subscriberBuffer = 64

type Option func(*Controller)

func WithJournal(journal Journal) Option {
	return func(c *Controller) { c.journal = journal }
}

func WithFunds(funds Funds) Option {
	return func(c *Controller) { c.funds = funds }
}

func WithRecorder(recorder Recorder) Option {
	return func(c *Controller) { c.recorder = recorder }
}

func WithDefaultAmount(amount *big.Int) Option {
	return func(c *Controller) { c.defaultAmount = new(big.Int).Set(amount) }
}

// Controller owns the account and the balance of the session and moves
// them through the connect, query, deposit and withdraw lifecycle.
// One operation runs at a time, the lock is never held while waiting
// on the wallet or the node.
type Controller struct {
	detector wallet.Detector
	accounts *wallet.Session
	binder   ledger.Binder

	journal       Journal
	funds         Funds
	recorder      Recorder
	defaultAmount *big.Int

	mu          sync.Mutex
	state       State
	busy        bool
	provider    wallet.Provider
	account     common.Address
	ledger      ledger.Ledger
	generation  uint64
	balance     *big.Int
	stale       bool
	ethBalance  *big.Int
	pending     *ledger.PendingTransaction
	lastErr     error
	subscribers map[uint64]chan *models.SessionEvent
	nextSubID   uint64
}

func NewController(detector wallet.Detector, binder ledger.Binder, opts ...Option) *Controller {
	c := &Controller{
		detector:      detector,
		accounts:      wallet.NewSession(detector),
		binder:        binder,
		recorder:      nopRecorder{},
		defaultAmount: big.NewInt(1),
		state:         StateNoProvider,
		subscribers:   make(map[uint64]chan *models.SessionEvent),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Controller) DefaultAmount() *big.Int {
	return new(big.Int).Set(c.defaultAmount)
}

// Start detects the provider and binds an account the wallet already
// authorized, without prompting.
func (c *Controller) Start(ctx context.Context) (*models.Session, error) {
	ctx = context.WithoutCancel(ctx)
	if err := c.begin(); err != nil {
		return nil, err
	}
	defer c.end()

	if !c.detect(ctx) {
		return c.Snapshot(), nil
	}

	c.mu.Lock()
	gen, bound := c.generation, c.ledger != nil
	c.mu.Unlock()
	if bound {
		return c.Snapshot(), nil
	}

	account, ok := c.accounts.Discover(ctx)
	if !ok {
		log.Infow("no authorized account yet")
		return c.Snapshot(), nil
	}
	if err := c.bindAccount(gen, account); err != nil {
		return c.Snapshot(), err
	}

	c.refresh(ctx)
	return c.Snapshot(), nil
}

// Detect re-checks the wallet provider. It is a no-op once a provider is known.
func (c *Controller) Detect(ctx context.Context) (*models.Session, error) {
	ctx = context.WithoutCancel(ctx)
	if err := c.begin(); err != nil {
		return nil, err
	}
	defer c.end()

	c.detect(ctx)
	return c.Snapshot(), nil
}

// Connect binds the account the wallet already authorized or prompts the
// user for one, then queries the balance.
func (c *Controller) Connect(ctx context.Context) (*models.Session, error) {
	ctx = context.WithoutCancel(ctx)
	if err := c.begin(StateNoProvider, StateUnauthorized, StateAuthorized); err != nil {
		return nil, err
	}
	defer c.end()

	c.mu.Lock()
	state, gen := c.state, c.generation
	c.mu.Unlock()

	switch state {
	case StateNoProvider:
		c.fail(wallet.ErrNoProvider)
		return c.Snapshot(), wallet.ErrNoProvider
	case StateAuthorized:
		return c.Snapshot(), nil
	}

	account, ok := c.accounts.Discover(ctx)
	if !ok {
		var err error
		if account, err = c.accounts.Authorize(ctx); err != nil {
			c.fail(err)
			return c.Snapshot(), err
		}
	}
	if err := c.bindAccount(gen, account); err != nil {
		return c.Snapshot(), err
	}

	c.refresh(ctx)
	return c.Snapshot(), nil
}

// Refresh queries the balance of the bound account. On failure the last
// known balance is kept and the error is reported.
func (c *Controller) Refresh(ctx context.Context) (*models.Session, error) {
	ctx = context.WithoutCancel(ctx)
	if err := c.begin(StateAuthorized); err != nil {
		return nil, err
	}
	defer c.end()

	if err := c.refresh(ctx); err != nil {
		return c.Snapshot(), err
	}
	return c.Snapshot(), nil
}

func (c *Controller) Deposit(ctx context.Context, amount *big.Int) (*models.Transaction, error) {
	return c.call(ctx, models.KindDeposit, amount)
}

func (c *Controller) Withdraw(ctx context.Context, amount *big.Int) (*models.Transaction, error) {
	return c.call(ctx, models.KindWithdraw, amount)
}

// AccountsChanged reflects an account switch or a disconnect on the wallet
// side. The binding is rebuilt and the balance becomes unknown. Results of
// an operation still running for the previous account are dropped.
func (c *Controller) AccountsChanged(ctx context.Context, accounts []common.Address) *models.Session {
	var next common.Address
	if len(accounts) > 0 {
		next = accounts[0]
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.provider == nil || next == c.account {
		return c.snapshot()
	}

	log.Infow("wallet account changed", "from", c.account.Hex(), "to", next.Hex())
	c.generation++
	c.unbind()
	if next == (common.Address{}) {
		c.setState(StateUnauthorized)
		return c.snapshot()
	}

	l, err := c.binder.Bind(next, c.provider)
	if err != nil {
		c.lastErr = err
		c.setState(StateUnauthorized)
		return c.snapshot()
	}
	c.account, c.ledger = next, l
	c.setState(StateAuthorized)
	return c.snapshot()
}

// MarkStale flags a known balance as outdated, e.g. after a contract call
// made outside this session. The next successful query clears the flag.
func (c *Controller) MarkStale() *models.Session {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.balance != nil && !c.stale {
		c.stale = true
		c.publish(models.EventState)
	}
	return c.snapshot()
}

// Snapshot returns the observable state of the session.
func (c *Controller) Snapshot() *models.Session {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshot()
}

// Subscribe returns a channel of session events and a function releasing it.
// Events are dropped for subscribers that do not keep up.
func (c *Controller) Subscribe() (<-chan *models.SessionEvent, func()) {
	c.mu.Lock()
	defer c.mu.Unlock()

	id := c.nextSubID
	c.nextSubID++
	ch := make(chan *models.SessionEvent, subscriberBuffer)
	c.subscribers[id] = ch

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			c.mu.Lock()
			defer c.mu.Unlock()
			delete(c.subscribers, id)
			close(ch)
		})
	}
}

func (c *Controller) call(ctx context.Context, kind string, amount *big.Int) (*models.Transaction, error) {
	ctx = context.WithoutCancel(ctx)
	if amount == nil {
		amount = c.DefaultAmount()
	}
	if err := c.begin(StateAuthorized); err != nil {
		return nil, err
	}
	defer c.end()

	c.mu.Lock()
	gen, l := c.generation, c.ledger
	if kind == models.KindDeposit {
		c.setState(StateDepositing)
	} else {
		c.setState(StateWithdrawing)
	}
	c.mu.Unlock()

	submit := l.Deposit
	if kind == models.KindWithdraw {
		submit = l.Withdraw
	}

	start := time.Now()
	pending, err := submit(ctx, amount)
	c.recorder.LedgerCall(kind, err, time.Since(start))
	if err != nil {
		c.settle(gen, err)
		return nil, err
	}

	c.mu.Lock()
	if gen == c.generation {
		c.pending = pending
	}
	c.record(pending)
	c.mu.Unlock()

	start = time.Now()
	_, err = pending.Confirm(ctx)
	c.recorder.LedgerCall("confirm", err, time.Since(start))

	c.mu.Lock()
	c.record(pending)
	if err != nil || gen != c.generation {
		c.mu.Unlock()
		if err == nil {
			err = errors.WithMessage(ErrInvalidState, "account changed while the transaction was pending")
		}
		c.settle(gen, err)
		return pending.ToPublic(), err
	}
	c.stale = true
	c.setState(StateQuerying)
	c.mu.Unlock()

	c.refresh(ctx)
	return pending.ToPublic(), nil
}

// refresh runs Authorized -> Querying -> Authorized for the current binding.
// Results are dropped when the account changed in between.
func (c *Controller) refresh(ctx context.Context) error {
	c.mu.Lock()
	gen, l := c.generation, c.ledger
	if l == nil {
		c.mu.Unlock()
		return ErrInvalidState
	}
	if c.state != StateQuerying {
		c.setState(StateQuerying)
	}
	c.mu.Unlock()

	start := time.Now()
	balance, err := l.QueryBalance(ctx)
	c.recorder.LedgerCall("getBalance", err, time.Since(start))
	if err != nil {
		c.mu.Lock()
		if gen == c.generation && c.balance != nil {
			c.stale = true
		}
		c.mu.Unlock()
		c.settle(gen, err)
		return err
	}

	var funds *big.Int
	if c.funds != nil {
		if funds, err = c.funds.BalanceAt(ctx, l.Account(), nil); err != nil {
			log.Warnw("failed to read the native balance", "account", l.Account().Hex(), "error", err.Error())
		}
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if gen != c.generation {
		return nil
	}
	c.balance, c.stale = balance, false
	if funds != nil {
		c.ethBalance = funds
	}
	c.setState(StateAuthorized)
	return nil
}

// detect moves NoProvider -> ProviderDetected -> Unauthorized when a provider is found.
func (c *Controller) detect(ctx context.Context) bool {
	c.mu.Lock()
	if c.provider != nil {
		c.mu.Unlock()
		return true
	}
	c.mu.Unlock()

	provider, ok := c.detector.Detect(ctx)

	c.mu.Lock()
	defer c.mu.Unlock()
	if !ok {
		c.publish(models.EventState)
		return false
	}
	c.provider = provider
	c.setState(StateProviderDetected)
	c.setState(StateUnauthorized)
	return true
}

func (c *Controller) bindAccount(gen uint64, account common.Address) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if gen != c.generation {
		if c.account == account && c.ledger != nil {
			return nil // bound meanwhile by an accounts change
		}
		return errors.WithMessage(ErrInvalidState, "account changed while connecting")
	}
	l, err := c.binder.Bind(account, c.provider)
	if err != nil {
		c.lastErr = err
		c.publish(models.EventError)
		return err
	}

	c.generation++
	c.unbind()
	c.account, c.ledger = account, l
	c.setState(StateAuthorized)
	return nil
}

// settle returns to Authorized after a failed ledger call, the balance is untouched.
func (c *Controller) settle(gen uint64, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if gen != c.generation {
		log.Infow("dropping the result of a stale binding", "error", err.Error())
		return
	}
	c.lastErr = err
	c.publish(models.EventError)
	c.setState(StateAuthorized)
}

func (c *Controller) fail(err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.lastErr = err
	c.publish(models.EventError)
}

// begin marks an operation as in flight. With no states given any state is allowed.
func (c *Controller) begin(allowed ...State) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.busy {
		return ErrBusy
	}
	if len(allowed) > 0 && !c.in(allowed) {
		return errors.WithMessagef(ErrInvalidState, "session is %s", c.state)
	}
	c.busy = true
	c.lastErr = nil
	return nil
}

func (c *Controller) end() {
	c.mu.Lock()
	c.busy = false
	c.mu.Unlock()
}

func (c *Controller) in(states []State) bool {
	for _, s := range states {
		if c.state == s {
			return true
		}
	}
	return false
}

// unbind drops everything derived from the current account.
func (c *Controller) unbind() {
	c.account = common.Address{}
	c.ledger = nil
	c.balance = nil
	c.stale = false
	c.ethBalance = nil
	c.pending = nil
}

func (c *Controller) record(pending *ledger.PendingTransaction) {
	tx := pending.ToPublic()
	if c.journal != nil {
		c.journal.Record(tx)
	}
	c.publish(models.EventTransaction)
}

func (c *Controller) setState(state State) {
	if c.state != state {
		log.Debugw("session transition", "from", c.state, "to", state)
		c.recorder.Transition(string(state))
	}
	c.state = state
	c.publish(models.EventState)
}

func (c *Controller) publish(eventType string) {
	if len(c.subscribers) == 0 {
		return
	}
	event := &models.SessionEvent{Type: eventType, Session: c.snapshot()}
	for id, ch := range c.subscribers {
		select {
		case ch <- event:
		default:
			log.Warnw("session subscriber is too slow, event dropped", "subscriber", id, "type", eventType)
		}
	}
}

func (c *Controller) snapshot() *models.Session {
	out := &models.Session{
		State:        string(c.state),
		Bound:        c.ledger != nil,
		BalanceStale: c.stale,
	}
	if c.provider != nil {
		out.Provider = c.provider.Name()
	} else {
		out.Hint = InstallHint
	}
	if c.account != (common.Address{}) {
		out.Account = c.account.Hex()
	}
	if c.balance != nil {
		balance := c.balance.String()
		out.Balance = &balance
	}
	if c.ethBalance != nil {
		out.EthBalance = eth.ToETH(c.ethBalance, eth.EtherDecimals).String()
	}
	if c.pending != nil {
		out.Pending = c.pending.ToPublic()
	}
	if c.lastErr != nil {
		out.LastError = c.lastErr.Error()
	}
	return out
}
