package scanner

// =============================================================================
// MQTT Decode Dispatcher
// =============================================================================
//
// Still-image decoding is delegated to decode workers over MQTT. The
// dispatcher publishes a request on the shared request topic, where any
// number of workers race to answer; the first response on the request's
// reply topic wins. Requests are correlated by ID, so concurrent decodes
// for different sessions never cross.
//
// A request with no answer runs into the caller's context deadline, which
// the session layer surfaces as "no code found".
// =============================================================================

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/scanpoint/scanpoint-core/internal/infrastructure/mqtt"
	"github.com/scanpoint/scanpoint-core/internal/scan"
)

// MQTTDecoder implements scan.Decoder on top of the decode worker pool.
type MQTTDecoder struct {
	mqtt   MQTTClient
	logger Logger

	topics mqtt.Topics

	mu      sync.Mutex
	pending map[string]chan DecodeResponse
	started bool
}

// NewMQTTDecoder builds a dispatcher on the given client. A nil logger
// defaults to a no-op. Call Start before the first Decode.
func NewMQTTDecoder(client MQTTClient, logger Logger) *MQTTDecoder {
	if logger == nil {
		logger = noopLogger{}
	}
	return &MQTTDecoder{
		mqtt:    client,
		logger:  logger,
		pending: make(map[string]chan DecodeResponse),
	}
}

// Start subscribes to worker responses.
func (d *MQTTDecoder) Start() error {
	if err := d.mqtt.Subscribe(d.topics.AllDecodeResponses(), 1, d.handleResponse); err != nil {
		return fmt.Errorf("scanner: subscribe decode responses: %w", err)
	}
	d.mu.Lock()
	d.started = true
	d.mu.Unlock()
	d.logger.Info("decode dispatcher started",
		"responses", d.topics.AllDecodeResponses())
	return nil
}

// Decode publishes a decode request and waits for the first worker answer
// or the context deadline. A worker answering found=false maps to
// scan.ErrNoCode.
func (d *MQTTDecoder) Decode(ctx context.Context, image []byte) (*scan.Result, error) {
	requestID := "req-" + uuid.NewString()[:8]

	d.mu.Lock()
	if !d.started {
		d.mu.Unlock()
		return nil, ErrNotStarted
	}
	ch := make(chan DecodeResponse, 1)
	d.pending[requestID] = ch
	d.mu.Unlock()
	defer d.forget(requestID)

	payload, err := json.Marshal(NewDecodeRequest(requestID, image))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecodeRequestFailed, err)
	}
	if err := d.mqtt.Publish(d.topics.DecodeRequest(), payload, 1, false); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecodeRequestFailed, err)
	}
	d.logger.Debug("decode request dispatched",
		"request_id", requestID, "bytes", len(image))

	select {
	case resp := <-ch:
		if resp.Error != "" {
			return nil, fmt.Errorf("%w: %s", ErrWorkerFailed, resp.Error)
		}
		if !resp.Found || resp.Text == "" {
			return nil, scan.ErrNoCode
		}
		return &scan.Result{Text: resp.Text, Bounds: resp.Box}, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (d *MQTTDecoder) forget(requestID string) {
	d.mu.Lock()
	delete(d.pending, requestID)
	d.mu.Unlock()
}

func (d *MQTTDecoder) handleResponse(topic string, payload []byte) {
	msg, err := ParseDecodeResponse(payload)
	if err != nil {
		d.logger.Warn("dropping malformed decode response",
			"topic", topic, "error", err)
		return
	}

	d.mu.Lock()
	ch, ok := d.pending[msg.RequestID]
	if ok {
		delete(d.pending, msg.RequestID)
	}
	d.mu.Unlock()

	if !ok {
		// Late or duplicate answer: the request timed out, or another
		// worker already won the race.
		d.logger.Debug("decode response without pending request",
			"request_id", msg.RequestID)
		return
	}
	// Buffered channel, and the pending entry is removed before sending,
	// so this never blocks and never double-sends.
	ch <- *msg
}
