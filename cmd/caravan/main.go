package main

import (
	"context"
	"crypto/rand"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/ebersole/caravan/internal/database"
	"github.com/ebersole/caravan/internal/logging"
	"github.com/ebersole/caravan/internal/push"
	"github.com/ebersole/caravan/internal/server"
)

func main() {
	// Optional .env for local development
	_ = godotenv.Load()

	port := os.Getenv("CARAVAN_PORT")
	if port == "" {
		port = "8080"
	}

	dbPath := os.Getenv("CARAVAN_DB_PATH")
	if dbPath == "" {
		dbPath = "caravan.db"
	}

	logger := logging.Setup(os.Getenv("CARAVAN_LOG_LEVEL"))

	db, err := database.Open(dbPath)
	if err != nil {
		log.Fatalf("failed to open database: %v", err)
	}
	defer db.Close()

	cfg := server.Config{
		TicketSecret: ticketSecret(logger),
		SecureCookie: os.Getenv("CARAVAN_SECURE_COOKIE") == "true",
		Push: push.Config{
			VAPIDPublicKey:  os.Getenv("CARAVAN_VAPID_PUBLIC"),
			VAPIDPrivateKey: os.Getenv("CARAVAN_VAPID_PRIVATE"),
		},
	}

	srv := server.New(db, cfg, logger)

	httpServer := &http.Server{
		Addr:         ":" + port,
		Handler:      srv.Router(),
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	// Periodic cleanup of expired sessions and rate-limit windows
	cleanupDone := make(chan struct{})
	go func() {
		ticker := time.NewTicker(time.Hour)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				if n, err := srv.SessionStore().DeleteExpired(); err != nil {
					logger.Error("session cleanup", "error", err)
				} else if n > 0 {
					logger.Debug("session cleanup", "deleted", n)
				}
				srv.RateLimiter().Cleanup()
			case <-cleanupDone:
				return
			}
		}
	}()

	go func() {
		logger.Info("caravan listening", "port", port)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server error: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down")
	close(cleanupDone)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(ctx); err != nil {
		log.Fatalf("shutdown error: %v", err)
	}
}

// ticketSecret resolves the websocket ticket signing secret. Without an
// explicit secret a random one is generated, which invalidates outstanding
// tickets on restart; harmless given their 60s lifetime.
func ticketSecret(logger *slog.Logger) []byte {
	if s := os.Getenv("CARAVAN_WS_TICKET_SECRET"); s != "" {
		return []byte(s)
	}
	secret := make([]byte, 32)
	if _, err := rand.Read(secret); err != nil {
		log.Fatalf("generate ticket secret: %v", err)
	}
	logger.Warn("CARAVAN_WS_TICKET_SECRET not set, using a random per-process secret")
	return secret
}
