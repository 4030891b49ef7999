package harvest

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/cropwatch-hq/agromet-harvester/internal/domain"
	"github.com/cropwatch-hq/agromet-harvester/pkg/agromet"
	"github.com/cropwatch-hq/agromet-harvester/pkg/publishers"
	"github.com/cropwatch-hq/agromet-harvester/pkg/sites"
)

// fakeFetcher returns a preset payload per metric or an error.
type fakeFetcher struct {
	mu       sync.Mutex
	payloads map[string]json.RawMessage
	err      error
	queries  []agromet.Query
	metrics  []string
	onFetch  func()
}

func (f *fakeFetcher) HistoricalDaily(_ context.Context, metric string, q agromet.Query) (json.RawMessage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.metrics = append(f.metrics, metric)
	f.queries = append(f.queries, q)
	if f.onFetch != nil {
		f.onFetch()
	}
	if f.err != nil {
		return nil, f.err
	}
	return f.payloads[metric], nil
}

// fakePublisher records published events and can inject errors.
type fakePublisher struct {
	mu        sync.Mutex
	events    []publishers.Event
	errOnID   string
	successes int
}

func (f *fakePublisher) Publish(_ context.Context, evt publishers.Event) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, evt)
	if evt.Observation.ID == f.errOnID {
		return 0, errors.New("boom")
	}
	f.successes++
	return 1, nil
}

// fakeDeduper tracks seen IDs.
type fakeDeduper struct {
	mu      sync.Mutex
	seen    map[string]bool
	failID  string
	failErr error
}

func (f *fakeDeduper) SeenObservation(id string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if id == f.failID && f.failErr != nil {
		return false, f.failErr
	}
	return f.seen[id], nil
}

func (f *fakeDeduper) MarkObservation(id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.seen == nil {
		f.seen = make(map[string]bool)
	}
	f.seen[id] = true
	return nil
}

func testSite() sites.Site {
	return sites.Site{
		ID:        "site-1",
		Name:      "Site One",
		Latitude:  40.71,
		Longitude: -74.01,
		Metrics:   []string{"air_temp", "precip"},
		// keep the inter-metric throttle negligible in tests
		RequestDelayMs: 1,
		LookbackHours:  24,
	}
}

func fixedNow() time.Time {
	return time.Date(2020, 1, 2, 15, 4, 5, 0, time.UTC)
}

func TestServicePublishesFreshObservationsOnly(t *testing.T) {
	site := testSite()
	windowStart, windowEnd := harvestWindow(fixedNow(), site.Lookback())
	seenID := domain.ObservationID(site.ID, "air_temp", windowStart, windowEnd)

	fetcher := &fakeFetcher{payloads: map[string]json.RawMessage{
		"air_temp": json.RawMessage(`{"air_temp":[1]}`),
		"precip":   json.RawMessage(`{"precip":[2]}`),
	}}
	pub := &fakePublisher{}
	deduper := &fakeDeduper{seen: map[string]bool{seenID: true}}

	svc := NewService(fetcher, pub, nil, deduper)
	svc.now = fixedNow

	if err := svc.Run(context.Background(), []sites.Site{site}); err != nil {
		t.Fatalf("Run: %v", err)
	}

	if len(pub.events) != 1 {
		t.Fatalf("expected 1 published event, got %d", len(pub.events))
	}
	evt := pub.events[0]
	if evt.Observation.Metric != "precip" {
		t.Fatalf("expected only the unseen metric published, got %q", evt.Observation.Metric)
	}
	if evt.SiteID != "site-1" || evt.SiteName != "Site One" {
		t.Fatalf("unexpected event identity %q/%q", evt.SiteID, evt.SiteName)
	}
	if string(evt.Observation.Payload) != `{"precip":[2]}` {
		t.Fatalf("unexpected payload %q", evt.Observation.Payload)
	}
	if !deduper.seen[evt.Observation.ID] {
		t.Fatalf("MarkObservation not called for the published window")
	}
	// The dedup check runs before the fetch, so the seen metric never
	// reaches the upstream API.
	if len(fetcher.metrics) != 1 || fetcher.metrics[0] != "precip" {
		t.Fatalf("expected a single fetch for precip, got %v", fetcher.metrics)
	}
}

func TestServiceSkipsEmptyWindows(t *testing.T) {
	fetcher := &fakeFetcher{payloads: map[string]json.RawMessage{}}
	pub := &fakePublisher{}
	deduper := &fakeDeduper{}

	svc := NewService(fetcher, pub, nil, deduper)
	svc.now = fixedNow

	if err := svc.Run(context.Background(), []sites.Site{testSite()}); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(pub.events) != 0 {
		t.Fatalf("expected no events for empty windows, got %d", len(pub.events))
	}
	if len(deduper.seen) != 0 {
		t.Fatalf("empty windows must not be marked, got %v", deduper.seen)
	}
}

func TestServiceAggregatesPublishErrors(t *testing.T) {
	site := testSite()
	site.Metrics = []string{"air_temp"}
	windowStart, windowEnd := harvestWindow(fixedNow(), site.Lookback())
	badID := domain.ObservationID(site.ID, "air_temp", windowStart, windowEnd)

	fetcher := &fakeFetcher{payloads: map[string]json.RawMessage{
		"air_temp": json.RawMessage(`{}`),
	}}
	pub := &fakePublisher{errOnID: badID}
	deduper := &fakeDeduper{}

	svc := NewService(fetcher, pub, nil, deduper)
	svc.now = fixedNow

	err := svc.Run(context.Background(), []sites.Site{site})
	if err == nil || !strings.Contains(err.Error(), badID) {
		t.Fatalf("expected error mentioning the observation id, got %v", err)
	}
	if deduper.seen[badID] {
		t.Fatalf("failed publishes must not be marked as seen")
	}
}

func TestServiceFailsOpenOnDeduperErrors(t *testing.T) {
	site := testSite()
	site.Metrics = []string{"air_temp"}
	windowStart, windowEnd := harvestWindow(fixedNow(), site.Lookback())
	id := domain.ObservationID(site.ID, "air_temp", windowStart, windowEnd)

	fetcher := &fakeFetcher{payloads: map[string]json.RawMessage{
		"air_temp": json.RawMessage(`{}`),
	}}
	pub := &fakePublisher{}
	deduper := &fakeDeduper{failID: id, failErr: errors.New("lookup failed")}

	svc := NewService(fetcher, pub, nil, deduper)
	svc.now = fixedNow

	if err := svc.Run(context.Background(), []sites.Site{site}); err != nil {
		t.Fatalf("a ledger fault must not fail the harvest: %v", err)
	}
	if len(pub.events) != 1 {
		t.Fatalf("expected the window published despite the ledger fault, got %d events", len(pub.events))
	}
}

func TestServiceFetchErrorSurfaces(t *testing.T) {
	site := testSite()
	site.Metrics = []string{"air_temp"}

	fetcher := &fakeFetcher{err: errors.New("upstream status 500")}
	svc := NewService(fetcher, &fakePublisher{}, nil, &fakeDeduper{})
	svc.now = fixedNow

	err := svc.Run(context.Background(), []sites.Site{site})
	if err == nil || !strings.Contains(err.Error(), "site-1/air_temp") {
		t.Fatalf("expected error naming the site and metric, got %v", err)
	}
}

func TestServiceRunAllCancelsEarly(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	svc := NewService(&fakeFetcher{}, &fakePublisher{}, nil, nil)
	errs := svc.runAll(ctx, []sites.Site{testSite()})
	if len(errs) != 0 {
		t.Fatalf("expected no errors on cancelled context, got %v", errs)
	}
}

func TestServiceStopsRemainingMetricsOnCancel(t *testing.T) {
	site := testSite()
	// A throttle only a context stop can cut short.
	site.RequestDelayMs = 60000

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	fetcher := &fakeFetcher{
		payloads: map[string]json.RawMessage{"air_temp": json.RawMessage(`{}`)},
		onFetch:  cancel,
	}
	pub := &fakePublisher{}

	svc := NewService(fetcher, pub, nil, nil)
	svc.now = fixedNow

	done := make(chan error, 1)
	go func() { done <- svc.Run(ctx, []sites.Site{site}) }()

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Run: %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatalf("run did not stop after cancellation")
	}
	if len(fetcher.metrics) != 1 || fetcher.metrics[0] != "air_temp" {
		t.Fatalf("expected the remaining metric skipped, got %v", fetcher.metrics)
	}
	if len(pub.events) != 1 {
		t.Fatalf("the observation fetched before cancellation must still publish, got %d", len(pub.events))
	}
}

func TestSleepCtxHonorsCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(10 * time.Millisecond)
		cancel()
	}()
	if sleepCtx(ctx, time.Minute) {
		t.Fatalf("expected the sleep cut short by cancellation")
	}
	if !sleepCtx(context.Background(), 0) {
		t.Fatalf("a zero delay must not block")
	}
}

func TestRunRequiresSites(t *testing.T) {
	svc := NewService(&fakeFetcher{}, &fakePublisher{}, nil, nil)
	if err := svc.Run(context.Background(), nil); err == nil {
		t.Fatalf("expected error when sites list empty")
	}
}

func TestRunRangePublishesEachDayWindow(t *testing.T) {
	site := testSite()
	site.Metrics = []string{"air_temp"}

	fetcher := &fakeFetcher{payloads: map[string]json.RawMessage{
		"air_temp": json.RawMessage(`{"air_temp":[1]}`),
	}}
	pub := &fakePublisher{}
	deduper := &fakeDeduper{}

	svc := NewService(fetcher, pub, nil, deduper)

	start := time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2020, 1, 4, 0, 0, 0, 0, time.UTC)
	if err := svc.RunRange(context.Background(), []sites.Site{site}, start, end); err != nil {
		t.Fatalf("RunRange: %v", err)
	}

	if len(pub.events) != 3 {
		t.Fatalf("expected 3 day windows published, got %d", len(pub.events))
	}
	for i, evt := range pub.events {
		wantStart := start.Add(time.Duration(i) * 24 * time.Hour).Unix()
		if evt.Observation.WindowStart != wantStart {
			t.Fatalf("window %d starts at %d, want %d", i, evt.Observation.WindowStart, wantStart)
		}
		if evt.Observation.WindowEnd != wantStart+86400 {
			t.Fatalf("window %d ends at %d, want %d", i, evt.Observation.WindowEnd, wantStart+86400)
		}
	}
	if len(deduper.seen) != 3 {
		t.Fatalf("expected 3 marked windows, got %d", len(deduper.seen))
	}
}

func TestRunRangeSkipsAlreadyHarvestedWindows(t *testing.T) {
	site := testSite()
	site.Metrics = []string{"air_temp"}

	// A live harvest already covered the middle day.
	day2 := time.Date(2020, 1, 2, 0, 0, 0, 0, time.UTC)
	seenID := domain.ObservationID(site.ID, "air_temp", day2.Unix(), day2.Add(24*time.Hour).Unix())

	fetcher := &fakeFetcher{payloads: map[string]json.RawMessage{
		"air_temp": json.RawMessage(`{}`),
	}}
	pub := &fakePublisher{}
	deduper := &fakeDeduper{seen: map[string]bool{seenID: true}}

	svc := NewService(fetcher, pub, nil, deduper)

	start := day2.Add(-24 * time.Hour)
	end := day2.Add(48 * time.Hour)
	if err := svc.RunRange(context.Background(), []sites.Site{site}, start, end); err != nil {
		t.Fatalf("RunRange: %v", err)
	}
	if len(pub.events) != 2 {
		t.Fatalf("expected the seen window skipped, got %d events", len(pub.events))
	}
	for _, evt := range pub.events {
		if evt.Observation.WindowStart == day2.Unix() {
			t.Fatalf("seen window was republished")
		}
	}
}

func TestRunRangeRejectsEmptyRange(t *testing.T) {
	svc := NewService(&fakeFetcher{}, &fakePublisher{}, nil, nil)
	at := time.Date(2020, 1, 1, 12, 0, 0, 0, time.UTC)
	err := svc.RunRange(context.Background(), []sites.Site{testSite()}, at, at)
	if err == nil || !strings.Contains(err.Error(), "spans no full day") {
		t.Fatalf("expected empty range rejected, got %v", err)
	}
}

func TestHarvestWindowDayAligned(t *testing.T) {
	start, end := harvestWindow(fixedNow(), 24*time.Hour)

	wantEnd := time.Date(2020, 1, 2, 0, 0, 0, 0, time.UTC).Unix()
	wantStart := time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC).Unix()
	if end != wantEnd || start != wantStart {
		t.Fatalf("unexpected window %d..%d, want %d..%d", start, end, wantStart, wantEnd)
	}

	// The query carries the same window.
	q := testSite().Query(start, end)
	if q.Start != wantStart || q.End != wantEnd {
		t.Fatalf("query window mismatch: %d..%d", q.Start, q.End)
	}
}
