package mqtt

import "fmt"

// maxPayloadSize caps a single message at 1MB. Imported still images
// travel base64-encoded inside decode requests, so this also bounds how
// large an import can be.
const maxPayloadSize = 1 << 20

// Publish sends payload to topic and waits for the broker's ack (at the
// given QoS). Retained messages are the convention for state topics
// (session state, system status) so a late subscriber sees the
// current value immediately; events and decode requests are never
// retained.
//
// Fails fast on an empty topic, a QoS above 2, an oversized payload, or
// a dead connection.
func (c *Client) Publish(topic string, payload []byte, qos byte, retained bool) error {
	switch {
	case topic == "":
		return ErrInvalidTopic
	case qos > maxQoS:
		return ErrInvalidQoS
	case len(payload) > maxPayloadSize:
		return fmt.Errorf("%w: %d bytes exceeds the %d byte cap", ErrPublishFailed, len(payload), maxPayloadSize)
	case !c.IsConnected():
		return ErrNotConnected
	}

	token := c.client.Publish(topic, qos, retained, payload)
	if !token.WaitTimeout(defaultPublishTimeout) {
		return fmt.Errorf("%w: no ack within %v", ErrPublishFailed, defaultPublishTimeout)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("%w: %w", ErrPublishFailed, err)
	}
	return nil
}

// PublishString publishes a string payload.
func (c *Client) PublishString(topic, payload string, qos byte, retained bool) error {
	return c.Publish(topic, []byte(payload), qos, retained)
}

// PublishRetained publishes retained at the configured default QoS.
func (c *Client) PublishRetained(topic string, payload []byte) error {
	return c.Publish(topic, payload, byte(c.cfg.QoS), true)
}
