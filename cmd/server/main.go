package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"taskflow/internal/app"
	"taskflow/internal/config"
	"taskflow/internal/handler"
	"taskflow/internal/jwtauth"
	"taskflow/internal/reminder"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	a, err := app.New(cfg, app.Options{Migrate: true})
	if err != nil {
		log.Fatalf("failed to initialize: %v", err)
	}
	defer a.Close()

	verifier, err := jwtauth.NewVerifier(jwtauth.Config{
		Issuer:   cfg.Auth.Issuer,
		Audience: cfg.Auth.Audience,
		JWKSURL:  cfg.Auth.JWKSURL,
	})
	if err != nil {
		log.Fatalf("failed to initialize token verifier: %v", err)
	}

	// Daily reminder schedule
	var scheduler *reminder.Scheduler
	if cfg.Reminder.Enabled {
		scheduler, err = reminder.NewScheduler(a.Reminders, cfg.Reminder.Hour, cfg.Reminder.Location)
		if err != nil {
			log.Fatalf("failed to initialize reminder scheduler: %v", err)
		}
		scheduler.Start()
		log.Printf("reminders scheduled %q in %s (next: %s)", scheduler.Spec(), cfg.Reminder.Location, scheduler.Next().Format(time.RFC3339))
	} else {
		log.Println("reminder scheduler disabled")
	}

	deps := &handler.Deps{
		Config:    cfg,
		Verifier:  verifier,
		Users:     a.Users,
		Tasks:     a.Tasks,
		Sender:    a.Sender,
		Reminders: a.Reminders,
	}
	if a.DB != nil {
		deps.Health = a.DB
	}

	server := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           handler.New(deps),
		ReadHeaderTimeout: 10 * time.Second,
	}

	// Channel to listen for shutdown signals
	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, syscall.SIGINT, syscall.SIGTERM)

	// Channel to signal server errors
	serverErr := make(chan error, 1)

	go func() {
		log.Printf("TaskFlow server starting on :%s (env: %s, store: %s)", cfg.Port, cfg.Environment, cfg.StoreBackend)
		serverErr <- server.ListenAndServe()
	}()

	select {
	case err := <-serverErr:
		if err != nil && err != http.ErrServerClosed {
			log.Fatalf("server error: %v", err)
		}
	case sig := <-shutdown:
		log.Printf("received signal %v, initiating graceful shutdown...", sig)

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if scheduler != nil {
			log.Println("stopping reminder scheduler...")
			if err := scheduler.Stop(ctx); err != nil {
				log.Printf("reminder run still in progress at shutdown: %v", err)
			}
		}

		log.Println("waiting for in-flight requests to complete...")
		if err := server.Shutdown(ctx); err != nil {
			log.Printf("graceful shutdown failed: %v, forcing shutdown", err)
			if err := server.Close(); err != nil {
				log.Fatalf("forced shutdown failed: %v", err)
			}
		}

		log.Println("server shutdown complete")
	}
}
