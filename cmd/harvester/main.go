package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/samvad-hq/octo-harvester/internal/app"
	"github.com/samvad-hq/octo-harvester/internal/config"
	"github.com/samvad-hq/octo-harvester/internal/logger"
	"github.com/samvad-hq/octo-harvester/pkg/interceptor"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "harvester start failed: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	log, err := logger.Init(cfg)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer logger.Close()

	logger.InfoObj("harvester starting", "config", cfg.Redacted())

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	harvester, err := app.NewHarvester(ctx, cfg, log)
	if err != nil {
		logger.ErrorObj("failed to initialize harvester", "error", err)
		return err
	}

	go reloadCredentialsOnHangup(ctx, harvester.Credentials(), log)

	if err := harvester.Run(ctx); err != nil {
		return fmt.Errorf("harvester run: %w", err)
	}

	return nil
}

// reloadCredentialsOnHangup re-reads the environment on SIGHUP and swaps the
// token, OTP and scraping flag used by subsequent requests.
func reloadCredentialsOnHangup(ctx context.Context, creds *interceptor.Credentials, log logger.Logger) {
	hup := make(chan os.Signal, 1)
	signal.Notify(hup, syscall.SIGHUP)
	defer signal.Stop(hup)

	for {
		select {
		case <-ctx.Done():
			return
		case <-hup:
			cfg, err := config.Load()
			if err != nil {
				log.ErrorObj("credential reload failed", "error", err)
				continue
			}
			creds.Set(interceptor.CredentialSet{
				Token:    cfg.APIToken,
				OTP:      cfg.APIOTP,
				Scraping: cfg.ScrapingMode,
			})
			log.InfoObj("credentials reloaded", "credentials_meta", map[string]any{
				"token_set":     cfg.APIToken != "",
				"otp_set":       cfg.APIOTP != "",
				"scraping_mode": cfg.ScrapingMode,
			})
		}
	}
}
