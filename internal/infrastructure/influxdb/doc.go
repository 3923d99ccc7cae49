// Package influxdb records checkpoint telemetry in an InfluxDB v2 bucket.
//
// Four measurements cover the product's questions: verifications
// (accept/reject/error per terminal), decodes (still-image import
// outcomes), session_events (coarse lifecycle transitions), and
// terminal_presence (online/offline flips). Dashboards chart acceptance
// rates, rejection spikes and fleet health from these alone.
//
// The wrapper sits on influxdb-client-go's non-blocking write API:
// domain helpers cost a channel send, batches flush on size or
// interval, and failures come back through the SetOnError callback.
// The checkpoint hot path never waits on telemetry.
//
//	client, err := influxdb.Connect(ctx, cfg.InfluxDB)
//	if errors.Is(err, influxdb.ErrDisabled) {
//	    // run without telemetry
//	}
//	defer client.Close()
//	client.WriteVerification("term-gate-1", influxdb.OutcomeAccepted)
//
// Points are tagged by terminal and outcome only: no codes, no roll
// numbers. The bucket answers "how is the checkpoint doing", never
// "who walked through".
package influxdb
