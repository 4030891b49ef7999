package domain

import (
	"crypto/sha1" //nolint:gosec // non-cryptographic id generation
	"encoding/hex"
	"encoding/json"
	"fmt"
)

// Domain contains core models shared by the harvest and publishing layers.

// Observation is one harvested metric window for one site, carrying the
// upstream payload untouched.
type Observation struct {
	ID          string          `json:"id"`
	SiteID      string          `json:"site_id"`
	Metric      string          `json:"metric"`
	WindowStart int64           `json:"window_start"`
	WindowEnd   int64           `json:"window_end"`
	UnitCode    string          `json:"unitcode,omitempty"`
	Payload     json.RawMessage `json:"payload,omitempty"`
}

// ObservationID derives the stable identity of a site's metric window. Two
// harvests of the same window yield the same ID, which is what the seen
// ledger dedups on.
func ObservationID(siteID, metric string, windowStart, windowEnd int64) string {
	sum := sha1.Sum([]byte(fmt.Sprintf("%s|%s|%d|%d", siteID, metric, windowStart, windowEnd)))
	return hex.EncodeToString(sum[:])
}
