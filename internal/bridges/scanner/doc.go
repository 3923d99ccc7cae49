// Package scanner bridges scan terminals and decode workers to the
// session core over MQTT.
//
// Terminals are deliberately thin. They stream camera frames, keystrokes
// and button presses as events, and render whatever session state the
// core publishes back; every verification decision is made core-side.
//
// # Message Flow
//
//	terminal events   scanpoint/terminal/{id}/event   → session inputs
//	terminal status   scanpoint/terminal/{id}/status  → presence registry
//	session state     scanpoint/session/{id}/state    ← retained snapshots
//	zoom advice       scanpoint/terminal/{id}/zoom    ← level changes
//	decode request    scanpoint/decode/request        ← still images
//	decode response   scanpoint/decode/response/{req} → pending decodes
//
// The bridge enforces the camera-permission grant: frame events from a
// terminal whose retained status lacks the grant are dropped before they
// reach a session. Status subscriptions are opened before event
// subscriptions so retained grants land first.
//
// Still-image decoding is fanned out to external decode workers through
// MQTTDecoder, which satisfies scan.Decoder. Workers race on the shared
// request topic and answer on per-request reply topics.
//
// # Usage
//
//	bridge, err := scanner.NewBridge(scanner.BridgeOptions{
//	    MQTT:     mqttAdapter,
//	    Sessions: sessionManager,
//	    Registry: registryAdapter,
//	    Logger:   logger,
//	})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	if err := bridge.Start(); err != nil {
//	    log.Fatal(err)
//	}
//	defer bridge.Stop()
//
// The bridge implements session.Notifier; wire it into the session
// manager so transitions are published as they happen.
package scanner
