package main

import (
	"log/slog"
	"net/http"
	"os"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/joho/godotenv"
	"github.com/rs/cors"
	httpSwagger "github.com/swaggo/http-swagger"

	"github.com/splittab/splittab/internal/allocation"
	"github.com/splittab/splittab/internal/auth"
	"github.com/splittab/splittab/internal/bill"
	"github.com/splittab/splittab/internal/config"
	"github.com/splittab/splittab/internal/item"
	"github.com/splittab/splittab/internal/metrics"
	"github.com/splittab/splittab/internal/participant"
	"github.com/splittab/splittab/internal/settlement"
	"github.com/splittab/splittab/internal/storage/postgres"
	"github.com/splittab/splittab/internal/user"
	"github.com/splittab/splittab/pkg/logging"
	mw "github.com/splittab/splittab/pkg/middleware"

	_ "github.com/splittab/splittab/docs"
)

// @title           SplitTab API
// @version         1.0
// @description     Receipt-splitting backend: bills, items, participants and portion allocations.
// @BasePath        /api/v1
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
func main() {
	// Load .env file
	if err := godotenv.Load(); err != nil {
		slog.Info("No .env file found, using environment variables")
	}

	// Load configuration
	cfg := config.Load()
	logging.Setup(cfg.LogLevel)

	// Initialize database connection
	db, err := postgres.Connect(cfg.DatabaseURL)
	if err != nil {
		slog.Error("Failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	if err := postgres.Migrate(db); err != nil {
		slog.Error("Failed to run migrations", "error", err)
		os.Exit(1)
	}

	slog.Info("Connected to database")

	// Stores
	billStore := postgres.NewBillStore(db)
	participantStore := postgres.NewParticipantStore(db)
	itemStore := postgres.NewItemStore(db)
	allocationStore := postgres.NewAllocationStore(db)
	userStore := postgres.NewUserStore(db)

	// Settlement aggregator, shared by the write paths
	aggregator := settlement.NewAggregator(billStore, participantStore, itemStore, allocationStore)

	// Auth
	jwtManager := auth.NewJWTManager(cfg.JWTSecret, cfg.TokenTTL)

	// User feature
	userService := user.NewService(userStore, jwtManager)
	userHandler := user.NewHandler(userService)

	// Bill feature
	billService := bill.NewService(billStore, participantStore, itemStore, allocationStore, aggregator)
	billHandler := bill.NewHandler(billService)

	// Participant feature
	participantService := participant.NewService(billStore, participantStore, allocationStore)
	participantHandler := participant.NewHandler(participantService)

	// Item feature
	itemService := item.NewService(billStore, itemStore, allocationStore, aggregator)
	itemHandler := item.NewHandler(itemService)

	// Allocation feature
	allocationService := allocation.NewService(billStore, participantStore, itemStore, allocationStore, aggregator)
	allocationHandler := allocation.NewHandler(allocationService)

	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(metrics.Instrument)
	r.Use(cors.New(cors.Options{
		AllowedOrigins:   cfg.CORSOrigins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowedHeaders:   []string{"Authorization", "Content-Type"},
		AllowCredentials: true,
	}).Handler)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"ok"}`))
	})
	r.Handle("/metrics", metrics.Handler())
	r.Get("/swagger/*", httpSwagger.Handler())

	// API routes
	r.Route("/api/v1", func(r chi.Router) {
		// Public account endpoints
		r.Mount("/users", userHandler.Routes())

		// Everything else requires a session token
		r.Group(func(r chi.Router) {
			r.Use(mw.Auth(jwtManager))

			r.Get("/users/me", userHandler.Me)
			r.Mount("/bills", billHandler.Routes())
			r.Mount("/participants", participantHandler.Routes())
			r.Mount("/items", itemHandler.Routes())
			r.Mount("/allocations", allocationHandler.Routes())
		})
	})

	// Start server
	port := cfg.Port
	if port == "" {
		port = "8080"
	}

	slog.Info("Server starting", "port", port)
	if err := http.ListenAndServe(":"+port, r); err != nil {
		slog.Error("Server failed", "error", err)
		os.Exit(1)
	}
}
