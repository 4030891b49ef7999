package sites

import "github.com/cropwatch-hq/agromet-harvester/pkg/agromet"

// Query renders the site as an API query for one harvest window. The
// verbatim location string wins over the coordinate pair when present.
func (s Site) Query(windowStart, windowEnd int64) agromet.Query {
	return agromet.Query{
		Start:     windowStart,
		End:       windowEnd,
		Latitude:  s.Latitude,
		Longitude: s.Longitude,
		Location:  s.Location,
		UnitCode:  s.UnitCode,
	}
}
