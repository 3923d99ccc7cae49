package session

import "errors"

// Domain errors for the session package.
var (
	// ErrSessionNotFound is returned when a terminal has no live session.
	ErrSessionNotFound = errors.New("session: not found")

	// ErrNoDecoder is reported as a session error when an image import
	// arrives and no still-image decoder is configured.
	ErrNoDecoder = errors.New("session: no decoder available")
)

// User-facing session error messages. These are surfaced verbatim on the
// terminal screen, so the wording is fixed.
const (
	msgScanFirst   = "Please scan a QR code first"
	msgEnterInput  = "Please enter your roll number"
	msgAuthFailed  = "Authentication failed. Please try again."
	msgNoCodeFound = "No QR code found in the selected image"
	msgErrorPrefix = "An error occurred: "
)
