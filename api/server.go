/*
server.go - HTTP router and middleware configuration

PURPOSE:
  Configures the HTTP router (chi), middleware stack, and route definitions.
  This is the wiring layer that connects URLs to handlers.

MIDDLEWARE STACK:
  1. RequestID:  Unique ID per request, picked up by the logger
  2. Logger:     zap request log, level by status
  3. Recovery:   Panic recovery (500 instead of crash)
  4. CORS:       Cross-origin requests for the front end

ROUTE GROUPS:
  /api/{accounts,customers,suppliers,inventory,workers,...}  Master data
  /api/{sales,purchases,expenses,transfers,...}               Transactions
  /api/records, /api/trash                                    Soft delete
  /api/audit/*                                                Auditor
  /api/reports/*                                              Reports
  /api/scenarios/*                                            Demo data
  /*                                                          Front end

SECURITY NOTE:
  No authentication. The only write guard is the read-only flag.

SEE ALSO:
  - handlers.go: Handler implementations
  - cmd/server/main.go: Server startup
*/
package api

import (
	"net/http"
	"os"
	"path/filepath"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/warp/bookkeeper/books"
	"github.com/warp/bookkeeper/logger"
)

var defaultOrigins = []string{"http://localhost:5173", "http://localhost:8080"}

// NewRouter creates a router with all routes configured. With no origins
// the local development front ends are allowed.
func NewRouter(h *Handler, allowedOrigins ...string) *chi.Mux {
	if len(allowedOrigins) == 0 {
		allowedOrigins = defaultOrigins
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(logger.Middleware(h.Log))
	r.Use(logger.Recovery(h.Log))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   allowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", ProfileHeader},
		ExposedHeaders:   []string{"Content-Disposition"},
		AllowCredentials: true,
	}))

	r.Route("/api", func(r chi.Router) {
		r.Route("/accounts", func(r chi.Router) {
			r.Get("/", list(h, (*books.Books).Accounts))
			r.Post("/", create(h, (*books.Books).CreateAccount))
			r.Get("/{id}/ledger", h.accountLedger())
		})

		r.Route("/customers", func(r chi.Router) {
			r.Get("/", list(h, (*books.Books).Customers))
			r.Post("/", create(h, (*books.Books).CreateCustomer))
			r.Post("/quick", h.QuickAddCustomer)
			r.Post("/{id}/payments", h.CustomerPayment)
			r.Get("/{id}/ledger", h.partyLedger(books.KindCustomer))
		})

		r.Route("/suppliers", func(r chi.Router) {
			r.Get("/", list(h, (*books.Books).Suppliers))
			r.Post("/", create(h, (*books.Books).CreateSupplier))
			r.Post("/{id}/payments", h.SupplierPayment)
			r.Get("/{id}/ledger", h.partyLedger(books.KindSupplier))
		})

		r.Route("/inventory", func(r chi.Router) {
			r.Get("/", list(h, (*books.Books).Items))
			r.Post("/", create(h, (*books.Books).CreateItem))
			r.Post("/quick", h.QuickAddItem)
			r.Get("/{id}/ledger", h.stockLedger())
		})

		r.Route("/workers", func(r chi.Router) {
			r.Get("/", list(h, (*books.Books).Workers))
			r.Post("/", create(h, (*books.Books).CreateWorker))
			r.Post("/quick", h.QuickAddWorker)
			r.Get("/{id}/ledger", h.workerLedger())
			r.Get("/{id}/balance", h.WorkerBalance)
		})

		r.Get("/expense-categories", list(h, (*books.Books).ExpenseCategories))
		r.Post("/expense-categories", create(h, (*books.Books).CreateExpenseCategory))

		// Transactions
		r.Get("/sales", list(h, (*books.Books).Sales))
		r.Post("/sales", create(h, (*books.Books).RecordSale))
		r.Get("/purchases", list(h, (*books.Books).Purchases))
		r.Post("/purchases", create(h, (*books.Books).RecordPurchase))
		r.Get("/expenses", list(h, (*books.Books).Expenses))
		r.Post("/expenses", create(h, (*books.Books).RecordExpense))
		r.Get("/transfers", list(h, (*books.Books).Transfers))
		r.Post("/transfers", create(h, (*books.Books).RecordTransfer))
		r.Get("/production", list(h, (*books.Books).Production))
		r.Post("/production", create(h, (*books.Books).RecordProduction))
		r.Get("/salary-transactions", list(h, (*books.Books).SalaryTransactions))
		r.Post("/salary-transactions", create(h, (*books.Books).RecordSalaryTransaction))
		r.Get("/stock-adjustments", list(h, (*books.Books).StockAdjustments))
		r.Post("/stock-adjustments", create(h, (*books.Books).RecordStockAdjustment))
		r.Get("/attendance", list(h, (*books.Books).Attendance))
		r.Post("/attendance", create(h, (*books.Books).MarkAttendance))

		r.Get("/ledger", h.FullLedger)

		// Trash
		r.Delete("/records/{collection}/{id}", h.DeleteRecord)
		r.Get("/trash", h.ListTrash)
		r.Post("/trash/{id}/restore", h.RestoreRecord)

		r.Route("/audit", func(r chi.Router) {
			r.Get("/", h.RunAudit)
			r.Post("/fix", h.FixAudit)
			r.Get("/runs", h.ListAuditRuns)
		})

		r.Route("/reports", func(r chi.Router) {
			r.Get("/profit-loss", h.ProfitAndLoss)
			r.Get("/monthly", h.Monthly)
			r.Get("/monthly.xlsx", h.MonthlyXLSX)
			r.Get("/daily", h.Daily)
			r.Post("/profit-split", h.ProfitSplit)
		})

		r.Route("/scenarios", func(r chi.Router) {
			r.Get("/", h.ListScenarios)
			r.Get("/current", h.GetCurrentScenario)
			r.Post("/load", h.LoadScenario)
			r.Post("/reset", h.ResetProfile)
		})
	})

	r.Get("/*", frontend())
	return r
}

// frontend serves the built web app from web/dist, falling back to
// index.html for client-side routes. Without a build it serves a stub page.
func frontend() http.HandlerFunc {
	staticDir := "./web/dist"
	if _, err := os.Stat(staticDir); os.IsNotExist(err) {
		exe, _ := os.Executable()
		staticDir = filepath.Join(filepath.Dir(exe), "web", "dist")
	}

	if _, err := os.Stat(staticDir); err != nil {
		return func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "text/html")
			w.Write([]byte(`<!DOCTYPE html>
<html>
<head><title>Bookkeeper</title></head>
<body style="font-family: system-ui; max-width: 800px; margin: 50px auto; padding: 20px;">
<h1>Bookkeeper API</h1>
<ul>
<li><a href="/api/accounts">/api/accounts</a> - Accounts</li>
<li><a href="/api/audit">/api/audit</a> - Run the auditor</li>
<li><a href="/api/reports/profit-loss">/api/reports/profit-loss</a> - Profit and loss</li>
<li><a href="/api/scenarios">/api/scenarios</a> - Demo scenarios</li>
</ul>
</body>
</html>`))
		}
	}

	fileServer := http.FileServer(http.Dir(staticDir))
	return func(w http.ResponseWriter, r *http.Request) {
		if _, err := os.Stat(filepath.Join(staticDir, filepath.Clean(r.URL.Path))); os.IsNotExist(err) {
			http.ServeFile(w, r, filepath.Join(staticDir, "index.html"))
			return
		}
		fileServer.ServeHTTP(w, r)
	}
}
