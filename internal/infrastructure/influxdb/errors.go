package influxdb

import "errors"

// Sentinel errors; match with errors.Is.
var (
	// ErrDisabled means telemetry is switched off in config. Connect
	// returns it so the caller can skip the whole subsystem.
	ErrDisabled = errors.New("influxdb: disabled in configuration")

	// ErrConnectionFailed wraps a failed startup ping.
	ErrConnectionFailed = errors.New("influxdb: connection failed")

	// ErrNotConnected means the client has been closed or never opened.
	ErrNotConnected = errors.New("influxdb: not connected")

	// ErrWriteFailed marks a synchronous write failure. Batched write
	// errors arrive via the SetOnError callback instead.
	ErrWriteFailed = errors.New("influxdb: write failed")
)
