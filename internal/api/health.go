package api

import "net/http"

// handleHealth returns the server health status.
//
// The daemon keeps serving when optional components are down, so the
// response reports each one rather than collapsing to a single code.
// MQTT down means terminals cannot reach us; that degrades the status
// but still answers 200 so probes can tell "degraded" from "dead".
func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	status := "ok"

	components := map[string]string{}

	if s.mqtt != nil {
		if s.mqtt.IsConnected() {
			components["mqtt"] = "connected"
		} else {
			components["mqtt"] = "disconnected"
			status = "degraded"
		}
	} else {
		components["mqtt"] = "not_configured"
	}

	if s.influx != nil && s.influx.IsConnected() {
		components["influxdb"] = "connected"
	} else {
		components["influxdb"] = "disabled"
	}

	if s.roster != nil && s.roster.CodeCount() > 0 {
		components["roster"] = "loaded"
	} else {
		components["roster"] = "empty"
		status = "degraded"
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"status":     status,
		"version":    s.version,
		"components": components,
	})
}
