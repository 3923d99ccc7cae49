// Package terminal tracks the scanner terminals known to this core.
//
// Terminals self-announce over the bridge with status events; the
// registry keeps an in-memory record per terminal (presence, camera
// permission, placement) and marks terminals offline when they go quiet.
// Nothing is persisted: a restart starts from an empty fleet and the
// terminals re-announce.
//
// The camera permission flag gates the scan pipeline: frame events from
// a terminal that has not reported camera_granted are dropped at the
// bridge and never reach a session.
package terminal
