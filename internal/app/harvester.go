package app

import (
	"context"
	"fmt"
	"time"

	"github.com/samvad-hq/octo-harvester/internal/config"
	"github.com/samvad-hq/octo-harvester/internal/harvest"
	"github.com/samvad-hq/octo-harvester/internal/logger"
	"github.com/samvad-hq/octo-harvester/internal/storage"
	"github.com/samvad-hq/octo-harvester/pkg/endpoints"
	"github.com/samvad-hq/octo-harvester/pkg/interceptor"
	"github.com/samvad-hq/octo-harvester/pkg/publishers"
)

// Harvester is the long-running runtime: it walks the configured endpoints on
// an interval and publishes unseen items.
type Harvester struct {
	cfg             *config.Config
	endpoints       []endpoints.Endpoint
	creds           *interceptor.Credentials
	fanout          *publishers.Fanout
	service         *harvest.Service
	harvestInterval time.Duration
	log             logger.Logger
	store           storage.Store
}

// NewHarvester builds a harvester runtime from config files.
func NewHarvester(ctx context.Context, cfg *config.Config, log logger.Logger) (*Harvester, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config must not be nil")
	}
	if log == nil {
		log = &logger.NopLogger{}
	}
	if ctx == nil {
		ctx = context.Background()
	}

	if err := endpoints.LoadEndpoints(cfg.EndpointsFile); err != nil {
		return nil, fmt.Errorf("load endpoints registry: %w", err)
	}
	eps := endpoints.EnabledEndpoints()
	ids := make([]string, 0, len(eps))
	for _, ep := range eps {
		ids = append(ids, ep.ID)
	}
	log.InfoObj("endpoints registry loaded", "endpoints_meta", map[string]any{
		"enabled": len(ids),
		"ids":     ids,
	})

	pubCfgs, err := publishers.LoadConfigs(cfg.PublishersFile)
	if err != nil {
		return nil, fmt.Errorf("load publishers registry: %w", err)
	}
	enabledPublishers := publishers.Enabled(pubCfgs)
	if len(enabledPublishers) == 0 {
		return nil, fmt.Errorf("no publishers configured")
	}
	pubClients, err := publishers.BuildAll(ctx, publishers.DefaultRegistry(), enabledPublishers, log)
	if err != nil {
		return nil, fmt.Errorf("build publishers: %w", err)
	}
	fanout := publishers.NewFanout(pubClients)
	summaries := make([]map[string]string, 0, len(enabledPublishers))
	for _, pubCfg := range enabledPublishers {
		summaries = append(summaries, map[string]string{"id": pubCfg.ID, "type": pubCfg.Type})
	}
	log.InfoObj("publishers registry loaded", "publishers_meta", map[string]any{
		"count":      len(summaries),
		"publishers": summaries,
	})

	store, err := storage.NewStore(cfg.StorageType, cfg.BBoltPath, storage.Options{
		ItemTTL:         cfg.StorageTTL,
		CleanupInterval: cfg.StorageCleanupInterval,
	})
	if err != nil {
		_ = fanout.Close()
		return nil, fmt.Errorf("init storage: %w", err)
	}
	log.InfoObj("storage initialized", "storage_config", map[string]any{
		"type":                     cfg.StorageType,
		"path":                     cfg.BBoltPath,
		"item_ttl_seconds":         int(cfg.StorageTTL.Seconds()),
		"cleanup_interval_seconds": int(cfg.StorageCleanupInterval.Seconds()),
	})

	creds := NewCredentials(cfg)
	walker := harvest.NewWalker(NewAPIClient(cfg, creds, log), harvest.WalkerOptions{
		RequestsPerSecond: cfg.RequestsPerSecond,
		MaxPages:          cfg.MaxPages,
		ObjectKeyPrefix:   cfg.ObjectKeyPrefix,
		Logger:            log,
	})

	return &Harvester{
		cfg:             cfg,
		endpoints:       eps,
		creds:           creds,
		fanout:          fanout,
		service:         harvest.NewService(walker, fanout, log, store),
		harvestInterval: cfg.HarvestInterval,
		log:             log,
		store:           store,
	}, nil
}

// Credentials exposes the live credential set so callers can rotate tokens
// without rebuilding the client.
func (h *Harvester) Credentials() *interceptor.Credentials { return h.creds }

// Run starts the harvest loop until the context is cancelled.
func (h *Harvester) Run(ctx context.Context) error {
	if h == nil || h.service == nil {
		return fmt.Errorf("harvester is not initialized")
	}
	defer h.close()

	if len(h.endpoints) == 0 {
		h.log.WarnObj("no endpoints enabled; harvester idle", "endpoints_file", h.cfg.EndpointsFile)
		<-ctx.Done()
		return ctx.Err()
	}

	h.log.InfoObj("harvester loop starting", "harvester_state", map[string]any{
		"endpoints_count":  len(h.endpoints),
		"publishers_count": h.fanout.Size(),
		"harvest_interval": h.harvestInterval.String(),
	})

	if err := h.runOnce(ctx); err != nil {
		h.log.ErrorObj("initial harvest failed", "error", err)
	}

	ticker := time.NewTicker(h.harvestInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			h.log.InfoObj("harvester loop exiting", "reason", ctx.Err())
			return nil
		case <-ticker.C:
			if err := h.runOnce(ctx); err != nil {
				h.log.ErrorObj("scheduled harvest failed", "error", err)
			}
		}
	}
}

// runOnce performs a single pass across all enabled endpoints.
func (h *Harvester) runOnce(ctx context.Context) error {
	start := time.Now()
	h.log.InfoObj("harvest started", "harvest_meta", map[string]any{
		"endpoints_count": len(h.endpoints),
		"started_at":      start.UTC(),
	})
	if err := h.service.Run(ctx, h.endpoints); err != nil {
		return err
	}
	h.log.InfoObj("harvest completed", "harvest_meta", map[string]any{
		"endpoints_count": len(h.endpoints),
		"elapsed_ms":      time.Since(start).Milliseconds(),
	})
	return nil
}

func (h *Harvester) close() {
	if err := h.fanout.Close(); err != nil {
		h.log.ErrorObj("publisher close failed", "error", err)
	}
	if h.store == nil {
		return
	}
	if err := h.store.Close(); err != nil {
		h.log.ErrorObj("storage close failed", "error", err)
	}
}
