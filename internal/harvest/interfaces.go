package harvest

import (
	"context"
	"encoding/json"

	"github.com/cropwatch-hq/agromet-harvester/pkg/agromet"
	"github.com/cropwatch-hq/agromet-harvester/pkg/publishers"
)

// MetricFetcher pulls one historical metric window from the weather API.
// *agromet.Client satisfies it.
type MetricFetcher interface {
	HistoricalDaily(ctx context.Context, metric string, q agromet.Query) (json.RawMessage, error)
}

// EventPublisher publishes harvested observations downstream and reports
// how many sinks accepted the event.
type EventPublisher interface {
	Publish(ctx context.Context, evt publishers.Event) (int, error)
}

// Deduper tracks observation IDs that have already been published.
type Deduper interface {
	SeenObservation(id string) (bool, error)
	MarkObservation(id string) error
}
