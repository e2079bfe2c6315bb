package domain

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
)

var (
	// ErrDeviceUnavailable means no microphone or speaker could be opened.
	ErrDeviceUnavailable = errors.New("audio device unavailable")
	// ErrPermissionDenied means the environment refused microphone access.
	ErrPermissionDenied = errors.New("microphone permission denied")
	// ErrCancelled marks a user-initiated abort. It is never shown as an error.
	ErrCancelled = errors.New("request cancelled")
	// ErrBusy is returned when an action is not reachable from the current voice state.
	ErrBusy = errors.New("voice session busy")
)

// NetworkError is a transport failure talking to the backend.
type NetworkError struct {
	Op  string
	URL string
	Err error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("network error during %s %s: %v", e.Op, e.URL, e.Err)
}

func (e *NetworkError) Unwrap() error { return e.Err }

// UpstreamError is a non-success status returned by the backend.
type UpstreamError struct {
	StatusCode int
	Detail     string
}

func (e *UpstreamError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("backend returned %d: %s", e.StatusCode, e.Detail)
	}
	return fmt.Sprintf("backend returned %d", e.StatusCode)
}

// UnsupportedFileError rejects an upload before any request is sent.
type UnsupportedFileError struct {
	Name    string
	Ext     string
	Allowed []string
}

func (e *UnsupportedFileError) Error() string {
	return fmt.Sprintf("unsupported file %q: %s is not one of %s", e.Name, e.Ext, strings.Join(e.Allowed, ", "))
}

var (
	DocumentExtensions = []string{".pdf", ".txt", ".md"}
	AudioExtensions    = []string{".wav", ".mp3", ".m4a", ".ogg", ".webm", ".flac"}
	ImageExtensions    = []string{".png", ".jpg", ".jpeg", ".gif", ".webp", ".bmp"}
)

// CheckExtension returns an *UnsupportedFileError unless name ends in one of allowed.
func CheckExtension(name string, allowed []string) error {
	ext := strings.ToLower(filepath.Ext(name))
	for _, a := range allowed {
		if ext == a {
			return nil
		}
	}
	return &UnsupportedFileError{Name: filepath.Base(name), Ext: ext, Allowed: allowed}
}

// IsCancelled reports whether err stems from a user abort.
func IsCancelled(err error) bool {
	return errors.Is(err, ErrCancelled)
}

// IsDeviceError reports whether err is a microphone/speaker acquisition failure.
func IsDeviceError(err error) bool {
	return errors.Is(err, ErrDeviceUnavailable) || errors.Is(err, ErrPermissionDenied)
}

// Describe renders err the way it is shown to the user.
func Describe(err error) string {
	var up *UpstreamError
	var unsupported *UnsupportedFileError
	switch {
	case err == nil:
		return ""
	case errors.As(err, &up) && up.Detail != "":
		return up.Detail
	case errors.As(err, &unsupported):
		return unsupported.Error()
	case errors.Is(err, ErrPermissionDenied):
		return "Could not access microphone. Please check permissions."
	case errors.Is(err, ErrDeviceUnavailable):
		return "Could not access microphone"
	default:
		return err.Error()
	}
}
