package app

import (
	"context"
	"fmt"
	"time"

	"github.com/cropwatch-hq/agromet-harvester/internal/config"
	"github.com/cropwatch-hq/agromet-harvester/internal/logger"
	"github.com/cropwatch-hq/agromet-harvester/pkg/sites"
)

// Harvester represents the weather harvester runtime. It manages the harvest
// loop, coordinating between sites, the harvest service, and publishers. It
// also handles storage initialization and cleanup.
type Harvester struct {
	*runtime
	harvestInterval time.Duration
}

// NewHarvester builds a harvester runtime from config files.
func NewHarvester(ctx context.Context, cfg *config.Config, log logger.Logger) (*Harvester, error) {
	rt, err := newRuntime(ctx, cfg, log)
	if err != nil {
		return nil, err
	}
	return &Harvester{
		runtime:         rt,
		harvestInterval: cfg.HarvestInterval,
	}, nil
}

// Run starts the harvest loop until the context is cancelled.
func (h *Harvester) Run(ctx context.Context) error {
	if h == nil || h.runtime == nil || h.harvestService == nil {
		return fmt.Errorf("harvester is not initialized")
	}
	defer h.closeStore()
	siteList := h.siteReg.All()
	if len(siteList) == 0 {
		h.log.WarnObj("no sites configured; harvester idle", "sites_file", h.cfg.SitesFile)
		<-ctx.Done()
		return ctx.Err()
	}

	h.log.InfoObj("harvester loop starting", "harvester_state", map[string]any{
		"sites_count":      len(siteList),
		"publishers_count": h.fanout.Size(),
		"harvest_interval": h.harvestInterval.String(),
	})

	if err := h.runOnce(ctx, siteList); err != nil {
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
			if err := h.runOnce(ctx, siteList); err != nil {
				h.log.ErrorObj("scheduled harvest failed", "error", err)
			}
		}
	}
}

// runOnce performs a single harvest pass across all sites.
func (h *Harvester) runOnce(ctx context.Context, siteList []sites.Site) error {
	start := time.Now()
	h.log.InfoObj("harvest started", "harvest_meta", map[string]any{
		"sites_count": len(siteList),
		"started_at":  start.UTC(),
	})
	if err := h.harvestService.Run(ctx, siteList); err != nil {
		return err
	}
	h.log.InfoObj("harvest completed", "harvest_meta", map[string]any{
		"sites_count": len(siteList),
		"elapsed_ms":  time.Since(start).Milliseconds(),
	})
	return nil
}
