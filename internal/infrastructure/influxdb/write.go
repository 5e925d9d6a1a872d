package influxdb

import (
	"time"

	"github.com/influxdata/influxdb-client-go/v2/api/write"
)

// Measurement names.
const (
	MeasurementRingEvents    = "rf_ring_events"
	MeasurementDecodeOutcome = "rf_decode_outcomes"
)

// WriteRingEvent records one decoded, de-duplicated frame.
//
// The device identifier is a field rather than a tag: 17-bit ids would
// blow up series cardinality.
//
// Example:
//
//	client.WriteRingEvent("selectplus_doorbell", 4242, "rx-hall", time.Now())
func (c *Client) WriteRingEvent(protocolID string, id int, receiver string, at time.Time) {
	c.writePoint(ringEventPoint(protocolID, id, receiver, at))
}

// WriteDecodeOutcome records what happened to one received pulse train
// ("decoded", "rejected" or "unmatched").
func (c *Client) WriteDecodeOutcome(receiver, outcome string, at time.Time) {
	c.writePoint(decodeOutcomePoint(receiver, outcome, at))
}

func (c *Client) writePoint(point *write.Point) {
	if !c.IsConnected() {
		return
	}
	c.writeAPI.WritePoint(point)
}

func ringEventPoint(protocolID string, id int, receiver string, at time.Time) *write.Point {
	return write.NewPoint(
		MeasurementRingEvents,
		map[string]string{
			"protocol": protocolID,
			"receiver": receiver,
		},
		map[string]any{
			"id":    int64(id),
			"count": int64(1),
		},
		at,
	)
}

func decodeOutcomePoint(receiver, outcome string, at time.Time) *write.Point {
	return write.NewPoint(
		MeasurementDecodeOutcome,
		map[string]string{
			"receiver": receiver,
			"outcome":  outcome,
		},
		map[string]any{
			"count": int64(1),
		},
		at,
	)
}
