package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/jmoiron/sqlx"
	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
	redislib "github.com/redis/go-redis/v9"

	"fitfoco/internal/auth"
	"fitfoco/internal/device"
	"fitfoco/internal/handler"
	"fitfoco/internal/middleware"
	"fitfoco/internal/provision"
	"fitfoco/internal/realtime"
	"fitfoco/internal/repository/postgres"
	"fitfoco/internal/security"
	"fitfoco/internal/trust"
	"fitfoco/internal/webhook"
	"fitfoco/pkg/config"
	"fitfoco/pkg/logger"
	"fitfoco/pkg/mailer"
	"fitfoco/pkg/validator"
)

func main() {
	// .env is optional in deployed environments
	_ = godotenv.Load()

	cfg := config.Load()
	log := logger.New("fitfoco-api")

	if err := cfg.ValidateCore(); err != nil {
		log.Fatal("Invalid configuration", map[string]interface{}{"error": err.Error()})
	}

	log.Info("Starting FitFoco API", map[string]interface{}{
		"port": cfg.Server.Port,
	})

	// Database connection
	db, err := sqlx.Connect("postgres", cfg.Database.URL)
	if err != nil {
		log.Fatal("Failed to connect to database", map[string]interface{}{
			"error": err.Error(),
		})
	}
	defer db.Close()

	db.SetMaxOpenConns(cfg.Database.MaxOpenConns)
	db.SetMaxIdleConns(cfg.Database.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.Database.ConnMaxLifetime)

	log.Info("Database connected", nil)

	// Redis connection
	redisClient := redislib.NewClient(&redislib.Options{
		Addr:     cfg.Redis.URL,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})

	if err := redisClient.Ping(context.Background()).Err(); err != nil {
		log.Fatal("Failed to connect to Redis", map[string]interface{}{
			"error": err.Error(),
		})
	}

	log.Info("Redis connected", nil)

	// Repositories
	deviceRepo := postgres.NewDeviceRepository(db)
	securityRepo := postgres.NewSecurityRepository(db)
	accountRepo := postgres.NewAccountRepository(db)
	subscriptionRepo := postgres.NewSubscriptionRepository(db)

	// Mailer
	smtp := mailer.New(mailer.Config{
		Host:     cfg.Email.SMTPHost,
		Port:     cfg.Email.SMTPPort,
		Username: cfg.Email.SMTPUsername,
		Password: cfg.Email.SMTPPassword,
		From:     cfg.Email.SMTPFrom,
		UseTLS:   cfg.Email.SMTPUseTLS,
	})
	credentials := mailer.NewCredentialsSender(smtp, cfg.Checkout.LoginURL)

	// Services
	hub := realtime.NewHub(log)
	scorer := trust.NewScorer(securityRepo)
	authService := auth.NewService(accountRepo, cfg.JWT.Secret, cfg.JWT.Expiration)
	deviceService := device.NewService(deviceRepo, securityRepo, scorer, hub, log)
	securityService := security.NewService(securityRepo, deviceRepo, hub)
	provisionService := provision.NewService(authService, subscriptionRepo, credentials, log)

	val := validator.New()
	normalizer := webhook.NewNormalizer(val, log)

	revoker := middleware.NewRedisTokenRevoker(redisClient, cfg.JWT.Expiration)

	// Handlers
	authHandler := handler.NewAuthHandler(authService, revoker, val, log)
	deviceHandler := handler.NewDeviceHandler(deviceService, val, log)
	webhookHandler := handler.NewWebhookHandler(normalizer, provisionService, log)
	securityHandler := handler.NewSecurityHandler(securityService, val)
	subscriptionHandler := handler.NewSubscriptionHandler(provisionService, val)
	plansHandler := handler.NewPlansHandler(cfg.Checkout.CaktoBaseURL)

	// Router
	r := mux.NewRouter()
	r.Use(middleware.CORS)
	r.Use(middleware.SecurityHeaders)
	r.Use(middleware.Recovery)
	r.Use(middleware.NewLoggingMiddleware(log).Log)

	authMW := middleware.NewAuthMiddleware(cfg.JWT.Secret, revoker)

	// Public routes
	r.HandleFunc("/health", healthCheck).Methods("GET")
	r.HandleFunc("/ready", readyCheck(db)).Methods("GET")
	r.HandleFunc("/api/v1/auth/login", authHandler.Login).Methods("POST")
	r.HandleFunc("/api/v1/plans", plansHandler.GetPlans).Methods("GET")
	r.HandleFunc("/webhooks/risepay", webhookHandler.RisePay).Methods("POST")
	r.HandleFunc("/webhooks/cakto", webhookHandler.Cakto).Methods("POST")

	// Authenticated routes
	api := r.PathPrefix("/api/v1").Subrouter()
	api.Use(authMW.Authenticate)
	api.HandleFunc("/auth/logout", authHandler.Logout).Methods("POST")
	api.HandleFunc("/auth/me", authHandler.Me).Methods("GET")
	api.HandleFunc("/track-device", deviceHandler.TrackDevice).Methods("POST")
	api.HandleFunc("/devices", deviceHandler.GetMyDevices).Methods("GET")
	api.HandleFunc("/subscription", subscriptionHandler.GetMySubscription).Methods("GET")

	// Admin routes
	admin := api.PathPrefix("/admin").Subrouter()
	admin.Use(middleware.RequireRole("admin"))
	admin.HandleFunc("/totp/enroll", authHandler.EnrollTOTP).Methods("POST")
	admin.HandleFunc("/totp/confirm", authHandler.ConfirmTOTP).Methods("POST")
	admin.HandleFunc("/devices", securityHandler.GetDevices).Methods("GET")
	admin.HandleFunc("/devices/{id}/block", securityHandler.BlockDevice).Methods("POST")
	admin.HandleFunc("/devices/{id}", securityHandler.DeleteDevice).Methods("DELETE")
	admin.HandleFunc("/activities", securityHandler.GetActivities).Methods("GET")
	admin.HandleFunc("/activities/{id}/block-ip", securityHandler.BlockActivityIP).Methods("POST")
	admin.HandleFunc("/blacklist", securityHandler.GetBlacklist).Methods("GET")
	admin.HandleFunc("/blacklist", securityHandler.AddToBlacklist).Methods("POST")
	admin.HandleFunc("/blacklist/{id}", securityHandler.RemoveFromBlacklist).Methods("DELETE")
	admin.HandleFunc("/clients", subscriptionHandler.CreateClient).Methods("POST")
	admin.HandleFunc("/subscriptions", subscriptionHandler.ManualApprove).Methods("POST")
	admin.HandleFunc("/feed", hub.ServeWS).Methods("GET")

	srv := &http.Server{
		Addr:         fmt.Sprintf("%s:%s", cfg.Server.Host, cfg.Server.Port),
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	// Graceful shutdown
	go func() {
		log.Info("FitFoco API started", map[string]interface{}{
			"address": srv.Addr,
		})
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("Server failed to start", map[string]interface{}{
				"error": err.Error(),
			})
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("Shutting down FitFoco API...", nil)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal("Server forced to shutdown", map[string]interface{}{
			"error": err.Error(),
		})
	}

	log.Info("FitFoco API stopped", nil)
}

func healthCheck(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(`{"status":"healthy"}`))
}

func readyCheck(db *sqlx.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := db.Ping(); err != nil {
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte(`{"status":"not_ready"}`))
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ready"}`))
	}
}
