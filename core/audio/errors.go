package audio

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrPermissionDenied is returned when the user or OS refuses microphone
	// access.
	ErrPermissionDenied = errors.New("audio input permission denied")
	// ErrDeviceUnavailable is returned when no usable capture device exists.
	ErrDeviceUnavailable = errors.New("audio device unavailable")
)

// ClassifyDeviceError wraps a backend error with the matching sentinel so
// callers can use errors.Is without knowing the backend.
func ClassifyDeviceError(action string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrPermissionDenied) || errors.Is(err, ErrDeviceUnavailable) {
		return fmt.Errorf("%s: %w", action, err)
	}

	msg := strings.ToLower(err.Error())
	if strings.Contains(msg, "denied") || strings.Contains(msg, "permission") || strings.Contains(msg, "not authorized") {
		return fmt.Errorf("%s: %w: %w", action, ErrPermissionDenied, err)
	}
	return fmt.Errorf("%s: %w: %w", action, ErrDeviceUnavailable, err)
}
