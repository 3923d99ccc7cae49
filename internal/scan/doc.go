// Package scan defines the decode boundary between Scanpoint Core and the
// camera side of the system.
//
// The core never touches pixels. Live preview frames arrive pre-decoded
// from the terminal; still images selected on a terminal are handed to a
// Decoder implementation, which is an external collaborator (the MQTT
// decode worker in production, a stub in tests). The ZoomAdvisor suggests
// camera zoom levels from detection geometry and is advisory only.
package scan
