package main

import (
	"context"
	"math/big"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/jwtauth"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/multierr"

	"atm/app/auth"
	"atm/app/config"
	"atm/app/journal"
	"atm/app/ledger"
	"atm/app/ledger/atm"
	"atm/app/metrics"
	"atm/app/notifier"
	"atm/app/projection"
	"atm/app/scrapper"
	"atm/app/server"
	"atm/app/session"
	"atm/app/wallet"
	"atm/pkg/eth"
	"atm/pkg/log"
	"atm/pkg/web"
	webware "atm/pkg/web/middleware"
)

const (
	maxRequestsAllowed    = 10000
	corsMaxAge            = 12 * time.Hour
	serverShutdownTimeout = 30 * time.Second
	dialTimeout           = 10 * time.Second
)

func main() {
	cfg, err := config.Parse()
	if err != nil {
		panic(err)
	}

	zlog := log.ConfigureLogger(cfg.Logging)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// connect to the node
	dialCtx, dialCancel := context.WithTimeout(ctx, dialTimeout)
	ethClient, _, err := eth.Dial(dialCtx, cfg.Ethereum.NodeUrl)
	dialCancel()
	if err != nil {
		log.Fatal("failed connection to node: ", err)
	}

	var prompter wallet.Prompter = wallet.AutoApprover{}
	if !cfg.Wallet.AutoApprove {
		prompter = wallet.NewTerminalPrompter(os.Stdin, os.Stdout)
	}
	detector := wallet.NewProbe(cfg.Wallet, cfg.Ethereum.ChainIDBig(), prompter)

	contractAddress := common.HexToAddress(cfg.Ethereum.ContractAddress)
	binder := &ledger.ContractBinder{
		Address:  contractAddress,
		Backend:  ethClient,
		GasLimit: cfg.Ethereum.GasLimit,
	}
	journalSvc := journal.New(cfg.Ethereum.JournalTTL)

	metrics.RegisterMetrics()
	ctrl := session.NewController(detector, binder,
		session.WithJournal(journalSvc),
		session.WithFunds(ethClient),
		session.WithRecorder(metrics.Recorder{}),
		session.WithDefaultAmount(big.NewInt(cfg.Ethereum.DefaultAmount)),
	)

	// forward session events to the websocket subscribers
	notifierSvc := notifier.NewManager()
	go notifierSvc.Start(ctx)
	events, unsubscribe := ctrl.Subscribe()
	defer unsubscribe()
	go notifierSvc.Forward(ctx, events)

	authSvc := &auth.Manager{
		JWTAuth:  jwtauth.New("HS256", []byte(cfg.Secrets.Token), nil),
		Sessions: ctrl,
	}

	router := newRouter(cfg.CorsOrigins)
	rest := server.Rest{
		Router:      router,
		Session:     ctrl,
		Journal:     journalSvc,
		Projection:  &projection.Manager{Sink: notifierSvc},
		Notifier:    notifierSvc,
		Auth:        authSvc,
		CallTimeout: cfg.Ethereum.ConfirmTimeout,
	}
	rest.Route() // handle http requests

	// discover an already authorized account, a missing wallet is not fatal
	if _, err := ctrl.Start(ctx); err != nil {
		log.Warnw("session started without a bound account", "error", err.Error())
	}

	// start scrappers
	if cfg.Ethereum.PollInterval > 0 {
		eventScraper := scrapper.NewEventsScraper(
			atm.NewATM(contractAddress, ethClient),
			ethClient,
			ctrl,
			journalSvc,
			cfg.Ethereum.PollInterval,
			cfg.Ethereum.PacketSize,
		)
		if err = eventScraper.Start(ctx); err != nil {
			log.Fatal("failed to start event scrapper: ", err)
		}
		scrapper.NewAccountsScraper(detector, ctrl, cfg.Ethereum.PollInterval).Start(ctx)
	}

	// start an http server and remember to shut it down
	srv := &http.Server{
		Addr:    cfg.RestAddr,
		Handler: router,
	}
	serverErr := make(chan error, 1)
	go func() {
		serverErr <- web.Start(srv)
	}()

	// wait for the program exit
	exit := make(chan os.Signal, 1)
	signal.Notify(exit, os.Interrupt, syscall.SIGTERM)
	select {
	case <-exit:
	case err = <-serverErr:
	}

	cancel()
	err = multierr.Append(err, web.Shutdown(srv, serverShutdownTimeout))
	ethClient.Close()
	if err != nil {
		for _, e := range multierr.Errors(err) {
			log.Error("shutdown: ", e)
		}
	}
	_ = zlog.Sync() // flush the logger
	if err != nil {
		os.Exit(1)
	}
}

func newRouter(corsOrigins []string) chi.Router {
	router := chi.NewRouter()

	// add middleware
	router.Use(
		cors.Handler(cors.Options{
			AllowedOrigins: corsOrigins,
			AllowedMethods: []string{http.MethodGet, http.MethodPost},
			AllowedHeaders: []string{"Origin", "Content-Type", "Authorization"},
			MaxAge:         int(corsMaxAge.Seconds()),
		}),
		middleware.Throttle(maxRequestsAllowed),
		middleware.RealIP,
		middleware.RequestID,
		webware.ZapLogger,
		webware.Recoverer,
		webware.Metrics(metrics.RecordHTTPRequest),
	)
	router.Handle("/metrics", promhttp.Handler())

	return router
}
