package server

import (
	"context"
	"io"
	"math/big"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi"
	"github.com/go-chi/render"

	"atm/app/auth"
	"atm/app/journal"
	"atm/app/models"
	"atm/app/notifier"
	"atm/app/projection"
	"atm/app/session"
	"atm/pkg/eth"
	"atm/pkg/log"
	"atm/pkg/response"
	"atm/pkg/web"
)

const (
	apiPrefix = "/api/v1"

	defaultCallTimeout = 2 * time.Minute
)

type callFn func(ctx context.Context, amount *big.Int) (*models.Transaction, error)

// Rest is a gateway for incoming HTTP requests
type Rest struct {
	Router     chi.Router
	Session    session.Service
	Journal    journal.Service
	Projection projection.Service
	Notifier   notifier.Service
	Auth       auth.Service

	// how long deposit and withdraw requests wait for the confirmation,
	// the call itself keeps running after that
	CallTimeout time.Duration
}

func (s *Rest) Route() {
	s.Router.Route(apiPrefix, func(r chi.Router) {
		// public routes
		r.Get("/session", s.getSession)
		r.Post("/session/detect", s.detect)
		r.Post("/session/connect", s.connect)
		r.Post("/projection", s.projection)
		r.Get("/subscribe", s.subscribe)

		// private routes, the token must belong to the bound account
		r.Group(func(r chi.Router) {
			r.Use(s.Auth.GetJWTVerifier(), s.Auth.GetJWTAuthenticator())

			r.Get("/balance", s.getBalance)
			r.Post("/deposit", s.deposit)
			r.Post("/withdraw", s.withdraw)

			r.Get("/transactions", s.transactionHistory)
			r.Get("/transactions/{hash}", s.getTransaction)
		})
	})
}

func (s *Rest) getSession(w http.ResponseWriter, r *http.Request) {
	web.RenderResult(w, r, s.Session.Snapshot())
}

func (s *Rest) detect(w http.ResponseWriter, r *http.Request) {
	out, err := s.Session.Detect(r.Context())
	if err != nil {
		renderError(w, r, err)
		return
	}

	web.RenderResult(w, r, out)
}

func (s *Rest) connect(w http.ResponseWriter, r *http.Request) {
	out, err := s.Session.Connect(r.Context())
	if err != nil {
		renderError(w, r, err)
		return
	}

	token, err := s.Auth.IssueAccessToken(r.Context(), out.Account)
	if err != nil {
		renderError(w, r, err)
		return
	}

	web.RenderResult(w, r, &models.ConnectedSession{Session: out, AccessToken: token})
}

func (s *Rest) projection(w http.ResponseWriter, r *http.Request) {
	in := new(models.NewProjection)
	if err := render.DecodeJSON(r.Body, in); err != nil {
		renderError(w, r, response.NewError(response.CodeBadRequest, "invalid projection request").SetInternal(err))
		return
	}

	out, err := s.Projection.Project(r.Context(), in)
	if err != nil {
		renderError(w, r, err)
		return
	}

	web.RenderResult(w, r, out)
}

func (s *Rest) subscribe(w http.ResponseWriter, r *http.Request) {
	greeting := &models.Notification{
		Topic:   models.TopicSession,
		Message: &models.SessionEvent{Type: models.EventState, Session: s.Session.Snapshot()},
	}

	if err := s.Notifier.Subscribe(r.Context(), &models.NewSubscription{
		ResponseWriter: w,
		Request:        r,
		Greeting:       greeting,
	}); err != nil {
		log.AddFields(r.Context(), "subscribe", err.Error()) // the upgrader already replied
		return
	}
}

func (s *Rest) getBalance(w http.ResponseWriter, r *http.Request) {
	out, err := s.Session.Refresh(r.Context())
	if err != nil {
		renderError(w, r, err)
		return
	}

	balance := ""
	if out.Balance != nil {
		balance = *out.Balance
	}
	web.RenderResult(w, r, &models.Balance{Account: out.Account, Balance: balance})
}

func (s *Rest) deposit(w http.ResponseWriter, r *http.Request) {
	s.call(w, r, s.Session.Deposit)
}

func (s *Rest) withdraw(w http.ResponseWriter, r *http.Request) {
	s.call(w, r, s.Session.Withdraw)
}

// call waits for the confirmation up to CallTimeout. When it takes longer
// the pending state is returned and the result arrives over the websocket.
func (s *Rest) call(w http.ResponseWriter, r *http.Request, fn callFn) {
	in := new(models.NewCall)
	if err := render.DecodeJSON(r.Body, in); err != nil && err != io.EOF {
		renderError(w, r, response.NewError(response.CodeBadRequest, "invalid call request").SetInternal(err))
		return
	}

	amount := s.Session.DefaultAmount()
	if in.Amount != "" {
		var err error
		if amount, err = eth.ParseAmount(in.Amount); err != nil {
			renderError(w, r, response.NewError(response.CodeBadRequest, err.Error()))
			return
		}
		if amount.Sign() < 0 {
			renderError(w, r, response.NewError(response.CodeBadRequest, "amount cannot be negative"))
			return
		}
	}
	log.AddFields(r.Context(), "amount", amount.String())

	type result struct {
		tx  *models.Transaction
		err error
	}
	done := make(chan result, 1)
	ctx := context.WithoutCancel(r.Context())
	go func() {
		tx, err := fn(ctx, amount)
		done <- result{tx: tx, err: err}
	}()

	timeout := s.CallTimeout
	if timeout <= 0 {
		timeout = defaultCallTimeout
	}
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case res := <-done:
		if res.err != nil {
			renderError(w, r, res.err)
			return
		}
		web.RenderResult(w, r, &models.CallResult{Transaction: res.tx, Session: s.Session.Snapshot()})
	case <-timer.C:
		snapshot := s.Session.Snapshot()
		log.AddFields(r.Context(), "pending", true)
		render.Status(r, http.StatusAccepted)
		web.RenderResult(w, r, &models.CallResult{Transaction: snapshot.Pending, Session: snapshot})
	}
}

func (s *Rest) transactionHistory(w http.ResponseWriter, r *http.Request) {
	accessToken, err := models.AccessTokenFromContext(r.Context())
	if err != nil {
		renderError(w, r, err)
		return
	}

	var skip uint64
	qskip, ok := r.URL.Query()["skip"]
	if ok && len(qskip) > 0 {
		skip, _ = strconv.ParseUint(qskip[0], 10, 64)
	}

	var limit *uint64
	qlimit, ok := r.URL.Query()["limit"]
	if ok && len(qlimit) > 0 {
		tmpLimit, _ := strconv.ParseUint(qlimit[0], 10, 64)
		limit = &tmpLimit
	}

	out, err := s.Journal.TransactionHistory(r.Context(), &models.TransactionHistoryFilter{
		Account: accessToken.Account,
		Skip:    skip,
		Limit:   limit,
	})
	if err != nil {
		renderError(w, r, err)
		return
	}

	web.RenderResult(w, r, out)
}

func (s *Rest) getTransaction(w http.ResponseWriter, r *http.Request) {
	accessToken, err := models.AccessTokenFromContext(r.Context())
	if err != nil {
		renderError(w, r, err)
		return
	}

	out, err := s.Journal.GetTransaction(r.Context(), accessToken.Account, chi.URLParam(r, "hash"))
	if err != nil {
		renderError(w, r, err)
		return
	}

	web.RenderResult(w, r, out)
}

func renderError(w http.ResponseWriter, r *http.Request, err error) {
	web.RenderError(w, r, toResponseError(err))
}
