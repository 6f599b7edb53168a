package main

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	_ "github.com/lib/pq"

	"TahsilatRaporu/api"
	"TahsilatRaporu/api/database"
	"TahsilatRaporu/api/exchange"
	"TahsilatRaporu/internal/config"
	"TahsilatRaporu/internal/jobs"
	"TahsilatRaporu/internal/logger"
	"TahsilatRaporu/internal/serviceiface"
	"TahsilatRaporu/internal/session"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, relying on environment")
	}

	cfg, err := config.Load(os.Getenv("APP_CONFIG"))
	if err != nil {
		log.Fatalf("[ERROR] load config: %v", err)
	}

	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		log.Fatal("[ERROR] DATABASE_URL is not set")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	pool, err := pgxpool.New(ctx, dbURL)
	if err != nil {
		cancel()
		log.Fatalf("[ERROR] connect to database: %v", err)
	}
	if err := pool.Ping(ctx); err != nil {
		cancel()
		log.Fatalf("[ERROR] ping database: %v", err)
	}
	if err := database.EnsureSchema(ctx, pool); err != nil {
		cancel()
		log.Fatalf("[ERROR] bootstrap schema: %v", err)
	}
	cancel()
	defer pool.Close()

	reportDB, err := sql.Open("postgres", dbURL)
	if err != nil {
		log.Fatalf("[ERROR] open report connection: %v", err)
	}
	defer reportDB.Close()

	sessions := session.NewManager(config.DefaultSessionTTLMinutes * time.Minute)
	services := []serviceiface.Service{
		logger.NewLoggerService(cfg.Logging),
		sessions,
		jobs.NewCronService(cfg.Jobs, cfg.Rates, exchange.NewPgRateStore(pool), sessions),
	}
	for _, svc := range services {
		if err := svc.Start(); err != nil {
			log.Fatalf("[ERROR] start %s: %v", svc.Name(), err)
		}
		log.Printf("%s started", svc.Name())
	}

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      api.NewRouter(pool, reportDB, cfg, sessions),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 60 * time.Second,
	}

	go func() {
		log.Printf("listening on %s", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("[ERROR] server: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("shutting down")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("[ERROR] shutdown: %v", err)
	}
	for i := len(services) - 1; i >= 0; i-- {
		if err := services[i].Stop(); err != nil {
			log.Printf("[ERROR] stop %s: %v", services[i].Name(), err)
		}
	}
}
