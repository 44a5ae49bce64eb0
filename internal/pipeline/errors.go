package pipeline

import (
	"errors"
	"fmt"
)

// Error kinds for the translation pipeline. Every failure is caught at the
// component that produced it and converted to a log/status event; none of
// these may terminate the process.
var (
	// ErrDevice: microphone or sink unavailable. Fatal to the capture
	// session that hit it, not to the system.
	ErrDevice = errors.New("device error")

	// ErrChannel: streaming transcription connection dropped. The session
	// returns to Idle and must be restarted by the caller.
	ErrChannel = errors.New("channel error")

	// ErrUpstream: translation or synthesis timeout/failure. The current
	// turn fails and the active-turn slot is released. No retry.
	ErrUpstream = errors.New("upstream error")
)

// DeviceError wraps err as a device failure.
func DeviceError(err error) error {
	return fmt.Errorf("%w: %v", ErrDevice, err)
}

// ChannelError wraps err as a streaming channel failure.
func ChannelError(err error) error {
	return fmt.Errorf("%w: %v", ErrChannel, err)
}

// UpstreamError wraps err as a translation/synthesis failure.
func UpstreamError(err error) error {
	return fmt.Errorf("%w: %v", ErrUpstream, err)
}
