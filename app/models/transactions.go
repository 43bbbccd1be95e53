package models

const (
	KindDeposit  = "deposit"
	KindWithdraw = "withdraw"

	TxStatusSubmitted = "submitted"
	TxStatusConfirmed = "confirmed"
	TxStatusFailed    = "failed"
)

// Transaction is a deposit or withdraw call as seen by observers.
type Transaction struct {
	Hash        string `json:"hash"`
	Kind        string `json:"kind"`
	Account     string `json:"account"`
	Amount      string `json:"amount"`
	Status      string `json:"status"`
	SubmittedAt int64  `json:"submitted_at"`
	ConfirmedAt int64  `json:"confirmed_at,omitempty"`
	BlockNumber uint64 `json:"block_number,omitempty"`
	GasUsed     uint64 `json:"gas_used,omitempty"`
	Fee         string `json:"fee,omitempty"` // in ETH
}

// IsFinal reports whether the transaction left the submitted state.
func (t *Transaction) IsFinal() bool {
	return t.Status == TxStatusConfirmed || t.Status == TxStatusFailed
}

// NewCall is the body of deposit and withdraw requests.
type NewCall struct {
	Amount string `json:"amount,omitempty"` // ledger units, the configured default when empty
}

// TransactionHistoryFilter selects a page of the account's transactions, newest first.
type TransactionHistoryFilter struct {
	Account string
	Skip    uint64
	Limit   *uint64
}

type ListMeta struct {
	Total uint64 `json:"total"`
}

type TransactionHistory struct {
	Transactions []*Transaction `json:"transactions"`
	Meta         *ListMeta      `json:"meta"`
}
