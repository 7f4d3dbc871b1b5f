// Package httpapi exposes the circulation system as a JSON HTTP API: JWT
// login, role-guarded circulation commands, catalog and account management,
// and the report endpoints. All domain decisions stay in the lending engine
// and the stores; this package only translates HTTP to commands and error
// kinds to status codes.
package httpapi

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"libcirc/internal/accounts"
	"libcirc/internal/catalog"
	"libcirc/internal/reporting"
	"libcirc/lending"
	"libcirc/lending/sqlengine"
)

// Server bundles the API dependencies and builds the router.
type Server struct {
	engine          *sqlengine.Engine
	catalog         *catalog.Store
	accounts        *accounts.Store
	reports         *reporting.Store
	auth            *Authenticator
	logger          *slog.Logger
	limiter         *clientLimiter
	defaultLoanDays int
	clock           func() time.Time
}

// Options carries the dependencies for NewServer. Logger defaults to
// slog.Default, DefaultLoanDays to 14.
type Options struct {
	Engine          *sqlengine.Engine
	Catalog         *catalog.Store
	Accounts        *accounts.Store
	Reports         *reporting.Store
	Auth            *Authenticator
	Logger          *slog.Logger
	RatePerSecond   float64
	RateBurst       int
	DefaultLoanDays int
	Clock           func() time.Time
}

// NewServer creates the API server.
func NewServer(opts Options) *Server {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	loanDays := opts.DefaultLoanDays
	if loanDays <= 0 {
		loanDays = 14
	}

	clock := opts.Clock
	if clock == nil {
		clock = time.Now
	}

	var limiter *clientLimiter
	if opts.RatePerSecond > 0 {
		limiter = newClientLimiter(opts.RatePerSecond, opts.RateBurst)
	}

	return &Server{
		engine:          opts.Engine,
		catalog:         opts.Catalog,
		accounts:        opts.Accounts,
		reports:         opts.Reports,
		auth:            opts.Auth,
		logger:          logger,
		limiter:         limiter,
		defaultLoanDays: loanDays,
		clock:           clock,
	}
}

func (s *Server) today() lending.Date {
	return lending.DateOf(s.clock())
}

// Router builds the chi router with all API routes.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()

	r.Use(requestIDMiddleware)
	if s.limiter != nil {
		r.Use(s.limiter.middleware)
	}

	r.Post("/api/login", s.handleLogin)

	r.Group(func(r chi.Router) {
		r.Use(s.auth.middleware)

		r.Get("/api/dashboard", s.handleDashboard)

		r.Get("/api/books", s.handleListBooks)
		r.Get("/api/books/{id}", s.handleGetBook)
		r.Get("/api/categories", s.handleCategories)
		r.Get("/api/my/loans", s.handleMyLoans)

		r.Group(func(r chi.Router) {
			r.Use(requireStaff)

			r.Post("/api/books", s.handleAddBook)
			r.Put("/api/books/{id}", s.handleUpdateBook)
			r.Delete("/api/books/{id}", s.handleDeleteBook)

			r.Post("/api/users", s.handleCreateUser)
			r.Get("/api/users", s.handleListUsers)
			r.Get("/api/users/{id}", s.handleGetUser)
			r.Delete("/api/users/{id}", s.handleDeleteUser)

			r.Post("/api/loans", s.handleIssueBook)
			r.Post("/api/returns", s.handleReturnBook)
			r.Get("/api/loans/open", s.handleOpenLoans)
			r.Get("/api/loans/overdue", s.handleOverdueLoans)
			r.Get("/api/loans/finished", s.handleFinishedLoans)

			r.Get("/api/reports/fines", s.handleFineStats)
			r.Get("/api/reports/most-issued", s.handleMostIssued)
			r.Get("/api/reports/most-active", s.handleMostActive)
			r.Get("/api/reports/categories", s.handleBooksByCategory)
			r.Get("/api/reports/roles", s.handleUserCountsByRole)
			r.Get("/api/reports/overdue", s.handleOverdueReport)
		})
	})

	return r
}
