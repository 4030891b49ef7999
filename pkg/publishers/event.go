package publishers

import (
	"time"

	"github.com/cropwatch-hq/agromet-harvester/internal/domain"
)

// Event represents the payload published downstream.
type Event struct {
	SiteID      string             `json:"site_id"`
	SiteName    string             `json:"site_name"`
	Observation domain.Observation `json:"observation"`
	HarvestedAt time.Time          `json:"harvested_at"`
}

// NewEvent constructs an Event for the given site + observation.
func NewEvent(siteID, siteName string, obs domain.Observation) Event {
	return Event{
		SiteID:      siteID,
		SiteName:    siteName,
		Observation: obs,
		HarvestedAt: time.Now().UTC(),
	}
}
