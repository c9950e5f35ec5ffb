package app

import (
	"github.com/samvad-hq/octo-harvester/internal/config"
	"github.com/samvad-hq/octo-harvester/internal/logger"
	"github.com/samvad-hq/octo-harvester/pkg/httpclient"
	"github.com/samvad-hq/octo-harvester/pkg/interceptor"
)

// NewCredentials seeds the shared credential set from config.
func NewCredentials(cfg *config.Config) *interceptor.Credentials {
	return interceptor.NewCredentials(interceptor.CredentialSet{
		Token:    cfg.APIToken,
		OTP:      cfg.APIOTP,
		Scraping: cfg.ScrapingMode,
	})
}

// NewAPIClient builds the API client with the interceptor chain installed.
func NewAPIClient(cfg *config.Config, creds *interceptor.Credentials, log logger.Logger) *httpclient.RestyClient {
	return httpclient.NewRestyClient(httpclient.Options{
		BaseURL:         cfg.APIBaseURL,
		Timeout:         cfg.HTTPTimeout,
		Credentials:     creds,
		UserAgent:       cfg.UserAgent,
		MediaType:       cfg.MediaType,
		ObjectKeyPrefix: cfg.ObjectKeyPrefix,
		Logger:          log,
	})
}
