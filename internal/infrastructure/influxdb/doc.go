// Package influxdb records RF activity in InfluxDB.
//
// It wraps the official influxdb-client-go v2 library. The client satisfies
// the RF433 bridge's Recorder interface:
//
//   - rf_ring_events: one point per decoded, de-duplicated frame
//     (tags: protocol, receiver; fields: id, count)
//   - rf_decode_outcomes: one point per received pulse train
//     (tags: receiver, outcome; field: count)
//
// # Usage
//
//	client, err := influxdb.Connect(ctx, cfg.InfluxDB)
//	if err != nil {
//	    return err
//	}
//	defer client.Close()
//
//	client.WriteRingEvent("selectplus_doorbell", 4242, "rx-hall", time.Now())
//
// Writes are non-blocking and batched according to batch_size and
// flush_interval. Async write errors are delivered via SetOnError.
package influxdb
