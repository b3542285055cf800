package api

import (
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.vocdoni.io/dvote/log"

	"github.com/cvctoken/cvct/ledger"
	"github.com/cvctoken/cvct/payroll"
	stg "github.com/cvctoken/cvct/storage"
)

// APIConfig represents the configuration for the API HTTP server.
type APIConfig struct {
	Host        string
	Port        int
	Storage     *stg.Storage
	Ledger      *ledger.Ledger
	PlainLedger *payroll.Ledger
	Scheduler   *payroll.Scheduler
}

// API is the HTTP operation surface of the ledger: token operations in both
// execution models, job status and the payroll scheduler.
type API struct {
	router    *chi.Mux
	storage   *stg.Storage
	ledger    *ledger.Ledger
	plain     *payroll.Ledger
	scheduler *payroll.Scheduler
}

// New creates a new API instance with the given configuration and starts the
// HTTP server.
func New(conf *APIConfig) (*API, error) {
	if conf == nil {
		return nil, fmt.Errorf("missing API configuration")
	}
	if conf.Storage == nil || conf.Ledger == nil {
		return nil, fmt.Errorf("missing storage or ledger instance")
	}
	a := &API{
		storage:   conf.Storage,
		ledger:    conf.Ledger,
		plain:     conf.PlainLedger,
		scheduler: conf.Scheduler,
	}

	a.initRouter()
	go func() {
		log.Infow("starting API server", "host", conf.Host, "port", conf.Port)
		if err := http.ListenAndServe(fmt.Sprintf("%s:%d", conf.Host, conf.Port), a.router); err != nil {
			log.Fatalf("failed to start the API server: %v", err)
		}
	}()
	return a, nil
}

// Router returns the chi router for testing purposes
func (a *API) Router() *chi.Mux {
	return a.router
}

// registerHandlers registers all the API handlers.
func (a *API) registerHandlers() {
	a.router.Get(PingEndpoint, func(w http.ResponseWriter, r *http.Request) {
		httpWriteOK(w)
	})
	a.router.Post(MintsEndpoint, a.newMint)
	a.router.Get(MintEndpoint, a.mint)
	a.router.Post(AccountsEndpoint, a.newAccount)
	a.router.Get(AccountEndpoint, a.account)
	a.router.Post(DepositsEndpoint, a.deposit)
	a.router.Post(WithdrawalsEndpoint, a.withdraw)
	a.router.Post(TransfersEndpoint, a.transfer)
	a.router.Get(JobEndpoint, a.job)

	a.router.Post(PlainMintsEndpoint, a.newPlainMint)
	a.router.Post(PlainAccountsEndpoint, a.newPlainAccount)
	a.router.Post(PlainDepositsEndpoint, a.plainDeposit)
	a.router.Post(OrgsEndpoint, a.newOrg)
	a.router.Post(PayrollsEndpoint, a.newPayroll)
	a.router.Post(PayrollMembersEndpoint, a.newPayrollMember)
	a.router.Get(PayrollMemberEndpoint, a.payrollMember)
	a.router.Put(PayrollMemberEndpoint, a.updatePayrollMember)
	a.router.Post(PayrollRunEndpoint, a.runPayrollMember)
	a.router.Post(PayrollPauseEndpoint, a.pausePayroll)
	a.router.Post(PayrollResumeEndpoint, a.resumePayroll)
	a.router.Post(PayrollCloseEndpoint, a.closePayroll)
}

// initRouter creates the router with all the routes and middleware.
func (a *API) initRouter() {
	a.router = chi.NewRouter()
	a.router.Use(cors.New(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-CSRF-Token"},
		AllowCredentials: true,
		MaxAge:           300, // Maximum value not ignored by any of major browsers
	}).Handler)
	a.router.Use(middleware.Logger)
	a.router.Use(middleware.Recoverer)
	a.router.Use(middleware.Throttle(100))
	a.router.Use(middleware.ThrottleBacklog(5000, 40000, 60*time.Second))
	a.router.Use(middleware.Timeout(45 * time.Second))

	a.registerHandlers()
}
