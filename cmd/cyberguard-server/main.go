package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"cyberguard/internal/auth"
	"cyberguard/internal/config"
	"cyberguard/internal/feedback"
	"cyberguard/internal/httpapi"
	"cyberguard/internal/logger"
	"cyberguard/internal/quiz"
	"cyberguard/internal/quiz/sqlite"
	"cyberguard/internal/storage"
	"cyberguard/internal/textgen"
)

const shutdownTimeout = 10 * time.Second

func main() {
	cfg := config.FromEnv()

	addr := flag.String("addr", cfg.HTTPAddr, "HTTP listen address")
	flag.Parse()

	log, err := logger.New(cfg.LogMode)
	if err != nil {
		fmt.Fprintln(os.Stderr, "error: build logger:", err)
		os.Exit(1)
	}
	defer log.Sync()

	if err := cfg.Validate(); err != nil {
		log.Fatal("invalid configuration", "error", err)
	}
	if cfg.UsesDefaultSecret() {
		log.Warn("AUTH_HMAC_SECRET is not set, tokens are signed with the built-in development secret")
	}

	store, err := sqlite.NewSQLiteStore(cfg.DBPath)
	if err != nil {
		log.Fatal("open database", "path", cfg.DBPath, "error", err)
	}
	defer store.Close()

	documents, err := storage.NewFSStore(cfg.DocumentsPath)
	if err != nil {
		log.Fatal("open document store", "path", cfg.DocumentsPath, "error", err)
	}

	var explainer quiz.Explainer
	if cfg.TextGenEnabled() {
		client := textgen.NewClient(cfg.TextGenBaseURL, cfg.TextGenAPIKey, textgen.WithModel(cfg.TextGenModel))
		explainer = feedback.NewGenerator(client, cfg.TextGenTimeout, log)
		log.Info("text generation enabled", "base_url", cfg.TextGenBaseURL, "model", cfg.TextGenModel)
	} else {
		log.Info("text generation disabled, using template feedback")
	}

	service := quiz.NewService(store.Repositories(), explainer, log, quiz.WithDocuments(documents))
	authSvc := auth.NewAuthService(cfg.AuthHMACSecret, cfg.AuthIssuer)

	router := httpapi.NewRouter(httpapi.NewAPI(service, log, httpapi.WithHealthCheck(store.Ping)), authSvc, httpapi.RouterOptions{
		CORSOrigins: cfg.CORSOrigins,
	})
	server := &http.Server{
		Addr:              *addr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.ListenAndServe()
	}()
	log.Info("cyberguard-server listening", "addr", *addr, "db", cfg.DBPath)

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			log.Error("shutdown failed", "error", err)
		}
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("server failed", "error", err)
		}
	}
}
