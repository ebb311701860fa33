package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"cyberguard/internal/auth"
	"cyberguard/internal/cli"
	"cyberguard/internal/config"
	"cyberguard/internal/feedback"
	"cyberguard/internal/logger"
	"cyberguard/internal/quiz"
	"cyberguard/internal/quiz/sqlite"
	"cyberguard/internal/textgen"
)

func main() {
	cfg := config.FromEnv()

	dbPath := flag.String("db", cfg.DBPath, "SQLite database path")
	tokenTTL := flag.Duration("token-ttl", 24*time.Hour, "lifetime of tokens issued by the token command")
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "usage: %s [flags] <command> [args]\n", os.Args[0])
		flag.PrintDefaults()
	}
	flag.Parse()

	log, err := logger.New(cfg.LogMode)
	if err != nil {
		fmt.Fprintln(os.Stderr, "error: build logger:", err)
		os.Exit(1)
	}
	defer log.Sync()

	if err := cfg.Validate(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
	if cfg.UsesDefaultSecret() {
		log.Warn("AUTH_HMAC_SECRET is not set, tokens are signed with the built-in development secret")
	}

	store, err := sqlite.NewSQLiteStore(*dbPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, "error: open database:", err)
		os.Exit(1)
	}
	defer store.Close()

	deps := cli.Deps{
		Service:  quiz.NewService(store.Repositories(), nil, log),
		Auth:     auth.NewAuthService(cfg.AuthHMACSecret, cfg.AuthIssuer),
		TokenTTL: *tokenTTL,
	}
	if cfg.TextGenEnabled() {
		client := textgen.NewClient(cfg.TextGenBaseURL, cfg.TextGenAPIKey, textgen.WithModel(cfg.TextGenModel))
		// Question generation is not on a request path, so it gets the hard timeout.
		deps.Generator = feedback.NewGenerator(client, textgen.HardTimeout, log)
	}

	if err := cli.Run(context.Background(), flag.Args(), os.Stdout, deps); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
