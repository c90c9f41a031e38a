package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"peka.app/internal/assistant"
	"peka.app/internal/auth"
	"peka.app/internal/calendar"
	"peka.app/internal/config"
	"peka.app/internal/focus"
	"peka.app/internal/httpapi"
	"peka.app/internal/oauth"
	"peka.app/internal/obs"
	"peka.app/internal/onboarding"
	"peka.app/internal/session"
	"peka.app/internal/store/pg"
	"peka.app/internal/stream"
	"peka.app/internal/todo"
)

// Overridden at build time via -ldflags "-X main.version=... -X main.commit=...".
var (
	version = "0.3.0"
	commit  = "dev"
)

func main() {
	obs.Init()
	obs.InitBuildInfo(version, commit)

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	var store *pg.Store
	if cfg.PGDSN != "" {
		store, err = pg.Open(cfg.PGDSN)
		if err != nil {
			log.Fatalf("open db: %v", err)
		}
	}
	if store == nil {
		log.Fatal("missing DSN: set PEKA_PG_DSN")
	}

	codec, err := auth.NewCodec(cfg.AuthSecret,
		auth.WithIssuer(cfg.TokenIssuer),
		auth.WithTTL(cfg.TokenTTL),
	)
	if err != nil {
		log.Fatalf("token codec: %v", err)
	}

	users := auth.NewPGUserStore(store.DB())
	authn, err := auth.NewAuthenticator(users)
	if err != nil {
		log.Fatalf("authenticator: %v", err)
	}
	resolver, err := auth.NewResolver(codec, users)
	if err != nil {
		log.Fatalf("resolver: %v", err)
	}
	sessions, err := session.NewTokenStore(cfg.SessionSecret, int(cfg.SessionMaxAge/time.Second))
	if err != nil {
		log.Fatalf("session store: %v", err)
	}

	deps := httpapi.Deps{
		Authenticator: authn,
		Resolver:      resolver,
		Codec:         codec,
		Users:         users,
		Todos:         todo.NewService(todo.NewPGStore(store.DB())),
		Focus:         focus.NewService(focus.NewPGStore(store.DB())),
		Onboarding:    onboarding.NewService(onboarding.NewPGStore(store.DB())),
		Sessions:      sessions,
		Stream:        stream.New(),
		ReadyProbe:    httpapi.ReadyProbe{DB: store.DB()},
		Version:       version,
		CORSOrigins:   cfg.CORSOrigins,
		RateBurst:     cfg.RateBurst,
		RatePerSec:    cfg.RatePerSec,
	}

	// Optional collaborators: skipped when unconfigured, their
	// endpoints answer 503.
	if cfg.GoogleClientID != "" && cfg.GoogleClientSecret != "" {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		google, err := oauth.NewGoogle(ctx, cfg.GoogleClientID, cfg.GoogleClientSecret, cfg.GoogleIssuer, cfg.GoogleRedirectURL)
		cancel()
		if err != nil {
			log.Fatalf("google oauth: %v", err)
		}
		deps.Google = google
	}
	if cfg.AssistantURL != "" && cfg.AssistantAPIKey != "" {
		client, err := assistant.NewClient(cfg.AssistantURL, cfg.AssistantAPIKey,
			assistant.WithTimeout(cfg.AssistantTimeout))
		if err != nil {
			log.Fatalf("assistant: %v", err)
		}
		deps.Assistant = client
	}
	cal, err := calendar.NewClient(cfg.CalendarBaseURL)
	if err != nil {
		log.Fatalf("calendar: %v", err)
	}
	deps.Calendar = cal

	api := httpapi.New(deps)

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           api.Handler(),
		ReadTimeout:       15 * time.Second,
		ReadHeaderTimeout: 15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	log.Printf("Starting peka-api %s on %s", version, srv.Addr)

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("listen: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	<-stop
	log.Println("Shutting down...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	_ = srv.Shutdown(ctx)
	_ = store.Close()
	log.Println("Stopped")
}
