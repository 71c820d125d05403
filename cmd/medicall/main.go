package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/medicall/agent/internal/config"
	"github.com/medicall/agent/internal/dialogue"
	"github.com/medicall/agent/internal/dispatch"
	"github.com/medicall/agent/internal/httpapi"
	"github.com/medicall/agent/internal/knowledge"
	"github.com/medicall/agent/internal/llm"
	"github.com/medicall/agent/internal/observability"
	"github.com/medicall/agent/internal/session"
	"github.com/medicall/agent/internal/store"
)

func main() {
	// Local development convenience; a missing .env is not an error.
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config error: %v", err)
	}
	if strings.TrimSpace(cfg.OpenAIAPIKey) == "" {
		log.Fatalf("OPENAI_API_KEY is required")
	}

	metrics := observability.NewMetrics(cfg.MetricsNamespace)

	kb := knowledge.Default()
	if cfg.KnowledgeDir != "" {
		kb, err = knowledge.Load(cfg.KnowledgeDir)
		if err != nil {
			log.Fatalf("knowledge base load failed: %v", err)
		}
		log.Printf("knowledge base: %s (%d diseases)", cfg.KnowledgeDir, len(kb.Diseases()))
	} else {
		log.Printf("knowledge base: builtin (%d diseases)", len(kb.Diseases()))
	}

	ctx := context.Background()
	sessionStore, err := store.NewStore(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("session store init failed: %v", err)
	}
	defer sessionStore.Close()

	client := llm.NewClient(llm.Config{
		APIKey:      cfg.OpenAIAPIKey,
		Model:       cfg.OpenAIModel,
		Temperature: float32(cfg.OpenAITemperature),
	}, kb)

	dispatcher := dispatch.New(cfg.DispatchURL, cfg.DispatchTimeout)
	if cfg.DispatchURL == "" {
		log.Printf("dispatch gateway: log only (DISPATCH_URL not set)")
	} else {
		log.Printf("dispatch gateway: %s", cfg.DispatchURL)
	}

	controller := dialogue.NewController(dialogue.Config{
		Reasoner:          client,
		Oracle:            client,
		Locator:           client,
		Guide:             client,
		Dispatcher:        dispatcher,
		Knowledge:         kb,
		CallTimeout:       cfg.ClientTimeout,
		MaxInferenceTurns: cfg.MaxInferenceTurns,
	})

	sessions := session.NewManager(controller, sessionStore, metrics, cfg.SessionInactivityTimeout)
	sessions.SetExpireHook(func(_ *session.Session) {
		metrics.SessionEvents.WithLabelValues("expired").Inc()
		metrics.ActiveSessions.Set(float64(sessions.ActiveCount()))
	})

	api := httpapi.New(cfg, sessions, controller, metrics)
	httpServer := &http.Server{
		Addr:    cfg.BindAddr,
		Handler: api.Router(),
	}

	runCtx, runCancel := context.WithCancel(context.Background())
	defer runCancel()
	sessions.StartJanitor(runCtx, cfg.JanitorInterval)

	go func() {
		log.Printf("server listening on %s", cfg.BindAddr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("listen error: %v", err)
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh
	log.Printf("shutdown signal received")

	runCancel()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Printf("graceful shutdown failed: %v", err)
		_ = httpServer.Close()
	}

	log.Printf("shutdown complete")
}
