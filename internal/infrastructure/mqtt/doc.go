// Package mqtt wraps the paho client for Scanpoint Core's message bus.
//
// Everything that crosses the process boundary at runtime rides MQTT:
// scan terminals publish events and presence, the core answers with
// retained session state and zoom advice, and still-image decode
// requests round-trip to external decoder workers.
//
//	terminals ↔ broker ↔ core ↔ broker ↔ decoder workers
//
// The wrapper adds what raw paho leaves to the caller: subscriptions are
// tracked and restored on reconnect, message handlers run under panic
// containment, publishes are size-capped and ack-checked, and the core
// announces itself on scanpoint/system/status with an LWT so a crash is
// as visible as a graceful shutdown.
//
//	client, err := mqtt.Connect(cfg.MQTT)
//	if err != nil {
//	    return err
//	}
//	defer client.Close()
//
//	client.Subscribe(mqtt.Topics{}.AllTerminalEvents(), 1, onEvent)
//	client.PublishRetained(mqtt.Topics{}.SessionState(termID), stateJSON)
//
// Production deployments should turn on broker TLS and credentials; the
// anonymous tcp:// path exists for local development against Mosquitto.
package mqtt
