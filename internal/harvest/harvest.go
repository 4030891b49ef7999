package harvest

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cropwatch-hq/agromet-harvester/internal/domain"
	"github.com/cropwatch-hq/agromet-harvester/internal/logger"
	"github.com/cropwatch-hq/agromet-harvester/pkg/publishers"
	"github.com/cropwatch-hq/agromet-harvester/pkg/sites"
)

const dayFormat = "2006-01-02"

// Service coordinates harvesting across the configured sites.
type Service struct {
	fetcher MetricFetcher
	pub     EventPublisher
	log     logger.Logger
	store   Deduper
	now     func() time.Time
}

// NewService wires a harvest service from its collaborators. A nil log or
// store falls back to a no-op implementation.
func NewService(fetcher MetricFetcher, pub EventPublisher, log logger.Logger, store Deduper) *Service {
	if log == nil {
		log = logger.NopLogger{}
	}
	if store == nil {
		store = noDedup{}
	}
	return &Service{
		fetcher: fetcher,
		pub:     pub,
		log:     log,
		store:   store,
		now:     time.Now,
	}
}

// Run executes one harvest pass over all configured sites.
func (s *Service) Run(ctx context.Context, all []sites.Site) error {
	if s == nil || s.fetcher == nil {
		return fmt.Errorf("harvest service is not initialized")
	}

	if len(all) == 0 {
		return fmt.Errorf("no sites configured for harvesting")
	}

	errs := s.runAll(ctx, all)
	if len(errs) > 0 {
		return errors.Join(errs...)
	}

	return nil
}

// RunRange harvests every day-aligned window in [start, end) for all sites.
// Windows have the same shape as live harvest windows, so the ledger dedups
// backfilled observations against already harvested ones.
func (s *Service) RunRange(ctx context.Context, all []sites.Site, start, end time.Time) error {
	if s == nil || s.fetcher == nil {
		return fmt.Errorf("harvest service is not initialized")
	}

	if len(all) == 0 {
		return fmt.Errorf("no sites configured for harvesting")
	}

	startDay := start.UTC().Truncate(24 * time.Hour)
	endDay := end.UTC().Truncate(24 * time.Hour)
	if !endDay.After(startDay) {
		return fmt.Errorf("range %s..%s spans no full day",
			start.Format(dayFormat), end.Format(dayFormat))
	}

	var errs []error
	for _, site := range all {
		for day := startDay; day.Before(endDay); day = day.Add(24 * time.Hour) {
			if ctx.Err() != nil {
				return errors.Join(errs...)
			}
			if day.After(startDay) && !sleepCtx(ctx, site.RequestDelay()) {
				return errors.Join(errs...)
			}
			if err := s.harvestSiteWindow(ctx, site, day.Unix(), day.Add(24*time.Hour).Unix()); err != nil {
				errs = append(errs, fmt.Errorf("window %s: %w", day.Format(dayFormat), err))
			}
		}
	}
	return errors.Join(errs...)
}

func (s *Service) runAll(ctx context.Context, all []sites.Site) []error {
	errs := make([]error, 0, len(all))

	for _, site := range all {
		if ctx.Err() != nil {
			return errs
		}
		if err := s.harvestSite(ctx, site); err != nil {
			errs = append(errs, err)
			s.log.ErrorObj("site harvest failed", "site_error", map[string]any{
				"site_id": site.ID,
				"error":   err.Error(),
			})
		}
	}

	return errs
}

func (s *Service) harvestSite(ctx context.Context, site sites.Site) error {
	windowStart, windowEnd := harvestWindow(s.now(), site.Lookback())
	return s.harvestSiteWindow(ctx, site, windowStart, windowEnd)
}

func (s *Service) harvestSiteWindow(ctx context.Context, site sites.Site, windowStart, windowEnd int64) error {
	var errs []error
	published := 0
	for i, metric := range site.Metrics {
		if ctx.Err() != nil {
			break
		}
		if i > 0 && !sleepCtx(ctx, site.RequestDelay()) {
			break
		}

		ok, err := s.harvestMetric(ctx, site, metric, windowStart, windowEnd)
		if err != nil {
			errs = append(errs, fmt.Errorf("harvest %s/%s: %w", site.ID, metric, err))
			continue
		}
		if ok {
			published++
		}
	}
	if len(errs) > 0 {
		return errors.Join(errs...)
	}

	s.log.InfoObj("site harvest completed", "site_result", map[string]any{
		"site_id":                site.ID,
		"metrics_requested":      len(site.Metrics),
		"observations_published": published,
		"window_start":           windowStart,
		"window_end":             windowEnd,
	})
	return nil
}

// harvestMetric fetches one metric window and publishes it unless the
// ledger already saw it. It reports whether a fresh observation went out.
func (s *Service) harvestMetric(ctx context.Context, site sites.Site, metric string, windowStart, windowEnd int64) (bool, error) {
	id := domain.ObservationID(site.ID, metric, windowStart, windowEnd)

	seen, err := s.store.SeenObservation(id)
	if err != nil {
		// Fail open: a ledger fault must not halt harvesting.
		s.log.WarnObj("dedup lookup failed", "dedup_error", map[string]any{
			"observation_id": id,
			"error":          err.Error(),
		})
	} else if seen {
		return false, nil
	}

	payload, err := s.fetcher.HistoricalDaily(ctx, metric, site.Query(windowStart, windowEnd))
	if err != nil {
		return false, fmt.Errorf("fetch %s: %w", metric, err)
	}
	if payload == nil {
		// The upstream recorded nothing for this window.
		s.log.DebugObj("no data for window", "empty_window", map[string]any{
			"site_id":      site.ID,
			"metric":       metric,
			"window_start": windowStart,
			"window_end":   windowEnd,
		})
		return false, nil
	}

	obs := domain.Observation{
		ID:          id,
		SiteID:      site.ID,
		Metric:      metric,
		WindowStart: windowStart,
		WindowEnd:   windowEnd,
		UnitCode:    site.UnitCode,
		Payload:     payload,
	}

	if _, err := s.pub.Publish(ctx, publishers.NewEvent(site.ID, site.Name, obs)); err != nil {
		// Not marked: the next pass retries the whole window.
		return false, fmt.Errorf("publish observation %s: %w", id, err)
	}

	if err := s.store.MarkObservation(id); err != nil {
		s.log.WarnObj("dedup mark failed", "dedup_error", map[string]any{
			"observation_id": id,
			"error":          err.Error(),
		})
	}
	return true, nil
}

// harvestWindow computes the day-aligned window ending at the most recent
// UTC midnight, so repeated polls inside one day dedup to the same ID.
func harvestWindow(now time.Time, lookback time.Duration) (int64, int64) {
	end := now.UTC().Truncate(24 * time.Hour)
	start := end.Add(-lookback)
	return start.Unix(), end.Unix()
}

// sleepCtx waits for the throttle delay and reports false if the context
// ended first.
func sleepCtx(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return true
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}

type noDedup struct{}

func (noDedup) SeenObservation(string) (bool, error) { return false, nil }
func (noDedup) MarkObservation(string) error         { return nil }
