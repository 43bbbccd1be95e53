package server

import (
	"github.com/pkg/errors"

	"atm/app/ledger"
	"atm/app/session"
	"atm/app/wallet"
	"atm/pkg/response"
)

// toResponseError gives session and ledger failures their response codes.
func toResponseError(err error) error {
	var respErr *response.Error
	if errors.As(err, &respErr) {
		return err
	}

	var code int
	var message interface{}
	switch {
	case errors.Is(err, wallet.ErrNoProvider):
		code, message = response.CodeNoProvider, session.InstallHint
	case errors.Is(err, wallet.ErrUserRejected):
		code, message = response.CodeUserRejected, "the request was rejected in the wallet"
	case errors.Is(err, ledger.ErrTransactionFailed):
		code, message = response.CodeTransactionFailed, err.Error()
	case errors.Is(err, ledger.ErrRemoteUnavailable):
		code, message = response.CodeRemoteUnavailable, "the ledger is unavailable, try again later"
	case errors.Is(err, session.ErrBusy):
		code, message = response.CodeBusy, "another operation is in progress, wait for it to finish"
	case errors.Is(err, session.ErrInvalidState),
		errors.Is(err, wallet.ErrNoAccounts),
		errors.Is(err, ledger.ErrBinding):
		code, message = response.CodeInvalidState, err.Error()
	default:
		return err
	}
	return response.NewError(code, message).SetInternal(err)
}
