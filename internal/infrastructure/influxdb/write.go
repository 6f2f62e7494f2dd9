package influxdb

import (
	"strconv"
	"time"

	"github.com/influxdata/influxdb-client-go/v2/api/write"

	"github.com/nerrad567/gray-logic-dmx/internal/diagnostics"
)

// Measurement names.
const (
	// MeasurementLink holds one point per diagnostics tick.
	MeasurementLink = "sacn_link"

	// MeasurementUniverse holds one point per universe with stats, per tick.
	MeasurementUniverse = "sacn_universe"

	// MeasurementError holds one point per recorded network error.
	MeasurementError = "sacn_error"
)

// WriteStats records one diagnostics tick. It implements
// diagnostics.StatsSink.
//
// The write is non-blocking; points are batched and sent asynchronously.
func (c *Client) WriteStats(stats diagnostics.NetworkStats, at time.Time) {
	if !c.IsConnected() {
		return
	}
	for _, p := range statsPoints(c.site, stats, at) {
		c.writer.WritePoint(p)
	}
}

// WriteError records one network error. It implements diagnostics.ErrorSink.
func (c *Client) WriteError(e diagnostics.NetworkError) {
	if !c.IsConnected() {
		return
	}
	c.writer.WritePoint(errorPoint(c.site, e))
}

// statsPoints converts a tick into a link point followed by one point per
// universe.
func statsPoints(site string, stats diagnostics.NetworkStats, at time.Time) []*write.Point {
	points := make([]*write.Point, 0, len(stats.UniverseStats)+1)

	points = append(points, write.NewPoint(
		MeasurementLink,
		map[string]string{"site": site},
		map[string]interface{}{
			"connected":          stats.Connected,
			"latency_ms":         stats.Latency,
			"packets_per_second": stats.PacketsPerSecond,
			"active_universes":   stats.ActiveUniverses(),
		},
		at,
	))

	for u, us := range stats.UniverseStats {
		points = append(points, write.NewPoint(
			MeasurementUniverse,
			map[string]string{
				"site":     site,
				"universe": strconv.Itoa(u),
			},
			map[string]interface{}{
				"active":             us.Active,
				"packets_per_second": us.PacketsPerSecond,
				"errors":             us.Errors,
			},
			at,
		))
	}
	return points
}

func errorPoint(site string, e diagnostics.NetworkError) *write.Point {
	tags := map[string]string{
		"site": site,
		"type": string(e.Type),
	}
	if e.Universe != nil {
		tags["universe"] = strconv.Itoa(*e.Universe)
	}
	return write.NewPoint(
		MeasurementError,
		tags,
		map[string]interface{}{
			"id":      e.ID,
			"message": e.Message,
		},
		e.Timestamp,
	)
}
