package router

import (
	"net/http"

	"earnlink/internal/config"
	"earnlink/internal/handlers"
	"earnlink/internal/locks"
	"earnlink/internal/middleware"
	"earnlink/internal/services"
	"earnlink/internal/store"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"
)

func SetupRouter(st store.Store, cfg config.Config, logger zerolog.Logger) *mux.Router {
	km := locks.NewKeyedMutex()

	ledger := services.NewLedgerService(st, km, logger)
	offerwall := services.NewOfferwallService(st, km, ledger, logger, cfg.RevenueShare)
	tasks := services.NewTaskService(st, km, ledger, logger)
	withdrawals := services.NewWithdrawalService(st, ledger, logger, cfg.MinWithdrawal, cfg.SupportedCoins)
	referrals := services.NewReferralService(st, ledger, logger, cfg.ReferralReward)
	users := services.NewUserService(st, ledger, referrals, logger, cfg.AdminEmail)
	auth := services.NewAuthService(cfg.JWTSecret, logger)

	authHandler := handlers.NewAuthHandler(users, auth, logger)
	balanceHandler := handlers.NewBalanceHandler(ledger, logger)
	postbackHandler := handlers.NewPostbackHandler(offerwall, st, logger)
	taskHandler := handlers.NewTaskHandler(tasks, logger)
	withdrawalHandler := handlers.NewWithdrawalHandler(withdrawals, logger)
	referralHandler := handlers.NewReferralHandler(referrals, logger)
	settingsHandler := handlers.NewSettingsHandler(st, logger)

	r := mux.NewRouter()

	rateLimiter := middleware.NewRateLimiter(rate.Limit(20), 40)

	r.Use(middleware.ErrorHandling(logger))
	r.Use(middleware.RequestLogging(logger))
	r.Use(middleware.SecurityHeaders())
	r.Use(middleware.CORS())
	r.Use(rateLimiter.Middleware())

	api := r.PathPrefix("/api").Subrouter()

	// Offerwall networks call this server-to-server; it has its own secret
	// check instead of JWT auth.
	api.HandleFunc("/postback/{network}", postbackHandler.Handle).Methods("GET")

	authRoutes := api.PathPrefix("/auth").Subrouter()
	authRoutes.HandleFunc("/register", authHandler.Register).Methods("POST")
	authRoutes.HandleFunc("/login", authHandler.Login).Methods("POST")

	protected := api.PathPrefix("").Subrouter()
	protected.Use(middleware.Authentication(cfg.JWTSecret, logger))

	protected.HandleFunc("/auth/me", authHandler.Me).Methods("GET")

	protected.HandleFunc("/balance", balanceHandler.GetCurrentBalance).Methods("GET")
	protected.HandleFunc("/balance/transactions", balanceHandler.GetTransactions).Methods("GET")
	protected.HandleFunc("/balance/payout-address", balanceHandler.SetPayoutAddress).Methods("PUT")

	protected.HandleFunc("/tasks", taskHandler.ListActive).Methods("GET")
	protected.HandleFunc("/tasks/{id}/submit", taskHandler.Submit).Methods("POST")
	protected.HandleFunc("/tasks/submissions", taskHandler.MySubmissions).Methods("GET")

	protected.HandleFunc("/withdrawals", withdrawalHandler.Request).Methods("POST")
	protected.HandleFunc("/withdrawals", withdrawalHandler.MyRequests).Methods("GET")

	protected.HandleFunc("/referrals", referralHandler.MyReferrals).Methods("GET")
	protected.HandleFunc("/referrals/stats", referralHandler.MyStats).Methods("GET")

	admin := protected.PathPrefix("/admin").Subrouter()
	admin.Use(middleware.RequireAdmin())

	admin.HandleFunc("/tasks", taskHandler.CreateTask).Methods("POST")
	admin.HandleFunc("/tasks", taskHandler.AllTasks).Methods("GET")
	admin.HandleFunc("/submissions", taskHandler.PendingSubmissions).Methods("GET")
	admin.HandleFunc("/submissions/{id}/review", taskHandler.Review).Methods("POST")

	admin.HandleFunc("/withdrawals", withdrawalHandler.Pending).Methods("GET")
	admin.HandleFunc("/withdrawals/{id}/process", withdrawalHandler.Process).Methods("POST")

	admin.HandleFunc("/referrals", referralHandler.All).Methods("GET")
	admin.HandleFunc("/referrals/{id}/review", referralHandler.Review).Methods("POST")

	admin.HandleFunc("/settings", settingsHandler.GetAll).Methods("GET")
	admin.HandleFunc("/settings", settingsHandler.Update).Methods("PATCH")

	r.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"ok"}`))
	}).Methods("GET")

	return r
}
