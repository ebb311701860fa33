package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"cyberguard/internal/userclient"
)

func main() {
	token := flag.String("token", os.Getenv("CYBERGUARD_TOKEN"), "bearer token (defaults to $CYBERGUARD_TOKEN)")
	server := flag.String("server", "http://127.0.0.1:8080", "training service base URL")
	count := flag.Int("count", 10, "questions per training round")
	timeout := flag.Duration("timeout", 5*time.Second, "HTTP timeout")
	flag.Parse()

	if *token == "" {
		fmt.Fprintln(os.Stderr, "error: --token is required")
		os.Exit(1)
	}

	err := userclient.Run(context.Background(), os.Stdin, os.Stdout, userclient.Config{
		Token:         *token,
		ServerURL:     *server,
		QuestionCount: *count,
		HTTPTimeout:   *timeout,
	})
	if err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
