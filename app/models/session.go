package models

const (
	EventState       = "state"
	EventTransaction = "transaction"
	EventError       = "error"
)

// Session is a snapshot of the session controller.
type Session struct {
	State        string       `json:"state"`
	Provider     string       `json:"provider,omitempty"`
	Account      string       `json:"account,omitempty"`
	Bound        bool         `json:"bound"`
	Balance      *string      `json:"balance"` // nil while unknown
	BalanceStale bool         `json:"balance_stale,omitempty"`
	EthBalance   string       `json:"eth_balance,omitempty"`
	Pending      *Transaction `json:"pending,omitempty"`
	LastError    string       `json:"last_error,omitempty"`
	Hint         string       `json:"hint,omitempty"`
}

// SessionEvent is published on every controller transition.
type SessionEvent struct {
	Type    string   `json:"type"`
	Session *Session `json:"session"`
}

// ConnectedSession is returned by the connect action.
type ConnectedSession struct {
	Session     *Session `json:"session"`
	AccessToken string   `json:"access_token,omitempty"`
}

// CallResult is returned by deposit and withdraw.
type CallResult struct {
	Transaction *Transaction `json:"transaction"`
	Session     *Session     `json:"session"`
}

type Balance struct {
	Account string `json:"account"`
	Balance string `json:"balance"`
}
