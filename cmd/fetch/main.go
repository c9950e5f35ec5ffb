package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/samvad-hq/octo-harvester/internal/app"
	"github.com/samvad-hq/octo-harvester/internal/config"
	"github.com/samvad-hq/octo-harvester/internal/logger"
)

type queryFlags map[string]string

func (q queryFlags) String() string { return fmt.Sprint(map[string]string(q)) }

func (q queryFlags) Set(v string) error {
	key, val, ok := strings.Cut(v, "=")
	if !ok || strings.TrimSpace(key) == "" {
		return fmt.Errorf("query must be key=value, got %q", v)
	}
	q[strings.TrimSpace(key)] = val
	return nil
}

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "fetch failed: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	query := queryFlags{}
	path := flag.String("path", "", "API path to fetch, e.g. /repos/octocat/Hello-World/readme")
	media := flag.String("media", app.MediaJSON, "rendition: json, raw or html")
	text := flag.Bool("text", false, "print only the visible text of an html rendition")
	flag.Var(query, "q", "query parameter key=value (repeatable)")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	log, err := logger.Init(cfg)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer logger.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	body, err := app.Fetch(ctx, cfg, log, app.FetchOptions{
		Path:  *path,
		Media: *media,
		Query: query,
		Text:  *text,
	})
	if err != nil {
		return err
	}

	if _, err := os.Stdout.Write(body); err != nil {
		return err
	}
	fmt.Println()
	return nil
}
