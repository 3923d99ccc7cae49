package mqtt

import "errors"

// Sentinel errors for broker operations; match with errors.Is.
var (
	// ErrConnectionFailed wraps a failed initial broker handshake.
	ErrConnectionFailed = errors.New("mqtt: connection failed")

	// ErrNotConnected means the operation needs a live broker session.
	ErrNotConnected = errors.New("mqtt: client not connected")

	// ErrPublishFailed wraps a rejected or timed-out publish.
	ErrPublishFailed = errors.New("mqtt: publish failed")

	// ErrSubscribeFailed wraps a rejected or timed-out subscribe.
	ErrSubscribeFailed = errors.New("mqtt: subscribe failed")

	// ErrUnsubscribeFailed wraps a rejected or timed-out unsubscribe.
	ErrUnsubscribeFailed = errors.New("mqtt: unsubscribe failed")

	// ErrInvalidQoS flags a QoS outside 0..2.
	ErrInvalidQoS = errors.New("mqtt: invalid QoS level (must be 0, 1, or 2)")

	// ErrInvalidTopic flags an empty topic.
	ErrInvalidTopic = errors.New("mqtt: topic cannot be empty")
)
