package api

import (
	"net/http"
	"runtime"
	"time"
)

// SystemMetrics is the payload of the metrics endpoint: process health
// plus per-subsystem counters.
type SystemMetrics struct {
	Timestamp     string           `json:"timestamp"`
	Version       string           `json:"version"`
	UptimeSeconds int64            `json:"uptime_seconds"`
	Runtime       RuntimeMetrics   `json:"runtime"`
	WebSocket     WSMetrics        `json:"websocket"`
	MQTT          MQTTMetrics      `json:"mqtt"`
	InfluxDB      *InfluxMetrics   `json:"influxdb,omitempty"`
	Sessions      SessionMetrics   `json:"sessions"`
	Terminals     TerminalMetrics  `json:"terminals"`
	Audit         AuditMetrics     `json:"audit"`
}

// RuntimeMetrics reports Go runtime figures.
type RuntimeMetrics struct {
	Goroutines    int     `json:"goroutines"`
	MemoryAllocMB float64 `json:"memory_alloc_mb"`
	MemoryTotalMB float64 `json:"memory_total_mb"`
	NumGC         uint32  `json:"num_gc"`
}

// WSMetrics reports live observation socket usage.
type WSMetrics struct {
	ConnectedClients int `json:"connected_clients"`
}

// MQTTMetrics reports broker connectivity.
type MQTTMetrics struct {
	Connected bool `json:"connected"`
}

// InfluxMetrics reports telemetry sink connectivity.
type InfluxMetrics struct {
	Connected bool `json:"connected"`
}

// SessionMetrics counts live scan sessions by mode.
type SessionMetrics struct {
	Active int            `json:"active"`
	ByMode map[string]int `json:"by_mode"`
}

// TerminalMetrics summarises the terminal registry.
type TerminalMetrics struct {
	Total         int `json:"total"`
	Online        int `json:"online"`
	CameraGranted int `json:"camera_granted"`
}

// AuditMetrics summarises the audit recorder.
type AuditMetrics struct {
	Recorded int `json:"recorded"`
	Retained int `json:"retained"`
}

// handleMetrics reports process and subsystem health in one payload.
func (s *Server) handleMetrics(w http.ResponseWriter, _ *http.Request) {
	var memStats runtime.MemStats
	runtime.ReadMemStats(&memStats)

	metrics := SystemMetrics{
		Timestamp:     time.Now().UTC().Format(time.RFC3339),
		Version:       s.version,
		UptimeSeconds: int64(time.Since(s.startTime).Seconds()),
		Runtime: RuntimeMetrics{
			Goroutines:    runtime.NumGoroutine(),
			MemoryAllocMB: float64(memStats.Alloc) / 1024 / 1024,
			MemoryTotalMB: float64(memStats.TotalAlloc) / 1024 / 1024,
			NumGC:         memStats.NumGC,
		},
	}

	if s.hub != nil {
		metrics.WebSocket.ConnectedClients = s.hub.ClientCount()
	}

	if s.mqtt != nil {
		metrics.MQTT = MQTTMetrics{
			Connected: s.mqtt.IsConnected(),
		}
	}

	// Telemetry is optional, so the field is omitted when disabled.
	if s.influx != nil {
		metrics.InfluxDB = &InfluxMetrics{
			Connected: s.influx.IsConnected(),
		}
	}

	states := s.sessions.States()
	metrics.Sessions = SessionMetrics{
		Active: len(states),
		ByMode: make(map[string]int),
	}
	for _, st := range states {
		metrics.Sessions.ByMode[st.Mode()]++
	}

	termStats := s.terminals.GetStats()
	metrics.Terminals = TerminalMetrics{
		Total:         termStats.Total,
		Online:        termStats.Online,
		CameraGranted: termStats.CameraGranted,
	}

	auditStats := s.audit.GetStats()
	metrics.Audit = AuditMetrics{
		Recorded: auditStats.Recorded,
		Retained: auditStats.Retained,
	}

	writeJSON(w, http.StatusOK, metrics)
}
