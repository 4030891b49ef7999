package app

import (
	"context"
	"fmt"

	"github.com/cropwatch-hq/agromet-harvester/internal/config"
	"github.com/cropwatch-hq/agromet-harvester/internal/harvest"
	"github.com/cropwatch-hq/agromet-harvester/internal/logger"
	"github.com/cropwatch-hq/agromet-harvester/internal/storage"
	"github.com/cropwatch-hq/agromet-harvester/pkg/agromet"
	"github.com/cropwatch-hq/agromet-harvester/pkg/publishers"
	"github.com/cropwatch-hq/agromet-harvester/pkg/sites"
)

// runtime holds the wiring shared by the harvester and backfill binaries:
// site registry, publisher fanout, dedup storage, and the harvest service.
type runtime struct {
	cfg            *config.Config
	siteReg        *sites.Registry
	fanout         *publishers.Fanout
	harvestService *harvest.Service
	log            logger.Logger
	store          storage.Store
}

// newRuntime builds the shared wiring from config files.
func newRuntime(ctx context.Context, cfg *config.Config, log logger.Logger) (*runtime, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config must not be nil")
	}
	if log == nil {
		log = &logger.NopLogger{}
	}
	if ctx == nil {
		ctx = context.Background()
	}

	siteReg, err := sites.LoadRegistry(cfg.SitesFile)
	if err != nil {
		return nil, fmt.Errorf("load sites registry: %w", err)
	}
	siteList := siteReg.All()
	siteIDs := make([]string, 0, len(siteList))
	for _, s := range siteList {
		siteIDs = append(siteIDs, s.ID)
	}
	log.InfoObj("sites registry loaded", "sites_meta", map[string]any{
		"count": len(siteIDs),
		"ids":   siteIDs,
	})

	publisherReg, err := publishers.LoadRegistry(cfg.PublishersFile)
	if err != nil {
		return nil, fmt.Errorf("load publishers registry: %w", err)
	}

	enabledPublishers := publisherReg.Enabled()
	if len(enabledPublishers) == 0 {
		return nil, fmt.Errorf("no publishers configured")
	}

	pubRegistry := publishers.DefaultRegistry()
	pubClients, err := publishers.BuildAll(ctx, pubRegistry, enabledPublishers, log)
	if err != nil {
		return nil, fmt.Errorf("build publishers: %w", err)
	}
	fanout := publishers.NewFanout(pubClients)
	publisherSummaries := make([]map[string]string, 0, len(enabledPublishers))
	for _, pubCfg := range enabledPublishers {
		publisherSummaries = append(publisherSummaries, map[string]string{
			"id":   pubCfg.ID,
			"type": pubCfg.Type,
		})
	}
	log.InfoObj("publishers registry loaded", "publishers_meta", map[string]any{
		"count":      len(publisherSummaries),
		"publishers": publisherSummaries,
	})

	storeOpts := storage.Options{
		ObservationTTL:  cfg.StorageTTL,
		CleanupInterval: cfg.StorageCleanupInterval,
	}
	store, err := storage.NewStore(cfg.StorageType, cfg.BBoltPath, storeOpts)
	if err != nil {
		return nil, fmt.Errorf("init storage: %w", err)
	}
	log.InfoObj("storage initialized", "storage_config", map[string]any{
		"type":                     cfg.StorageType,
		"path":                     cfg.BBoltPath,
		"observation_ttl_seconds":  int(cfg.StorageTTL.Seconds()),
		"cleanup_interval_seconds": int(cfg.StorageCleanupInterval.Seconds()),
	})

	if cfg.AgrometAppID == "" || cfg.AgrometAppKey == "" {
		log.WarnObj("agromet credentials missing; upstream requests will be rejected",
			"config_hint", "set AGROMET_APP_ID and AGROMET_APP_KEY")
	}

	return &runtime{
		cfg:            cfg,
		siteReg:        siteReg,
		fanout:         fanout,
		harvestService: harvest.NewService(newAgrometClient(cfg, log), fanout, log, store),
		log:            log,
		store:          store,
	}, nil
}

// newAgrometClient builds the upstream API client shared by the run loops.
// The tolerant failure policy turns 404 responses into empty windows instead
// of errors, which is what sparse station data looks like in practice.
func newAgrometClient(cfg *config.Config, log logger.Logger) *agromet.Client {
	detail := agromet.LogDetail{URL: true, Params: true}
	if cfg.Env == "development" {
		detail.Response = true
	}
	return agromet.New(
		agromet.WithAppID(cfg.AgrometAppID),
		agromet.WithAppKey(cfg.AgrometAppKey),
		agromet.WithHost(cfg.AgrometHost),
		agromet.WithTimeout(cfg.APITimeout),
		agromet.WithFailurePolicy(agromet.PolicyTolerant),
		agromet.WithLogger(logger.NewAPILogger(log)),
		agromet.WithLogDetail(detail),
	)
}

// closeStore safely closes the storage backend, logging any errors encountered.
func (r *runtime) closeStore() {
	if r == nil || r.store == nil {
		return
	}
	if err := r.store.Close(); err != nil {
		r.log.ErrorObj("storage close failed", "error", err)
	}
}
