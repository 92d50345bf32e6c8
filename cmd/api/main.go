package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"authcore.io/internal/config"
	"authcore.io/internal/httpapi"
	"authcore.io/internal/identity"
	"authcore.io/internal/mail"
	"authcore.io/internal/obs"
	"authcore.io/internal/store/pg"
	"authcore.io/internal/token"
)

var version = "1.0.0"

func main() {
	// .env is optional; real deployments set the environment directly.
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	obs.Init()
	obs.InitBuildInfo(version, os.Getenv("AUTHCORE_COMMIT"))

	store, err := pg.Open(cfg.DatabaseDSN)
	if err != nil {
		log.Fatalf("open db: %v", err)
	}
	defer store.Close()

	codec, err := token.NewCodec(cfg.AccessSecret, cfg.RefreshSecret,
		token.WithAccessTTL(cfg.AccessTTL),
		token.WithRefreshTTL(cfg.RefreshTTL),
		token.WithResetTTL(cfg.ResetTTL),
		token.WithIssuer(cfg.Issuer),
	)
	if err != nil {
		log.Fatalf("token codec: %v", err)
	}

	svcOpts := []identity.ServiceOption{
		identity.WithDefaultRole(cfg.DefaultRole),
		identity.WithClientURL(cfg.ClientURL),
	}
	if cfg.SMTPHost != "" {
		var mailOpts []mail.Option
		if cfg.SMTPUser != "" {
			mailOpts = append(mailOpts, mail.WithCredentials(cfg.SMTPUser, cfg.SMTPPass))
		}
		notifier, err := mail.NewSMTP(cfg.SMTPHost, strconv.Itoa(cfg.SMTPPort), cfg.EmailFrom, mailOpts...)
		if err != nil {
			log.Fatalf("smtp: %v", err)
		}
		svcOpts = append(svcOpts, identity.WithNotifier(notifier))
	} else {
		log.Println("SMTP not configured; password reset emails are logged only")
	}

	authSvc, err := identity.NewService(store, codec, svcOpts...)
	if err != nil {
		log.Fatalf("identity service: %v", err)
	}
	rbacSvc, err := identity.NewRBACService(store)
	if err != nil {
		log.Fatalf("rbac service: %v", err)
	}

	// Re-insert any missing catalog permissions on every boot. Roles, grants
	// and the bootstrap admin come from run-once seeds.
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	if err := authSvc.EnsureBuiltins(ctx); err != nil {
		cancel()
		log.Fatalf("ensure builtins: %v", err)
	}
	cancel()

	api := httpapi.New(httpapi.ReadyProbe{DB: store.DB()}, version, codec, authSvc, rbacSvc,
		httpapi.WithRateLimit(cfg.RateLimitPerSecond, cfg.RateLimitBurst),
		httpapi.WithErrorDetail(!cfg.IsProduction()),
	)

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           api.Handler(),
		ReadTimeout:       15 * time.Second,
		ReadHeaderTimeout: 15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	log.Printf("Starting authcore-api %s on %s (%s)", version, srv.Addr, cfg.Env)

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("listen: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	<-stop
	log.Println("Shutting down...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	_ = srv.Shutdown(shutdownCtx)
	log.Println("Stopped")
}
