package platform

import (
	"errors"
	"fmt"
)

var (
	// ErrUnsupportedPlatform is returned by the factory for platform names
	// it does not recognise.
	ErrUnsupportedPlatform = errors.New("unsupported platform")

	// ErrNotImplemented is returned by connector methods the platform
	// integration does not support yet. Callers should check Capabilities
	// before invoking.
	ErrNotImplemented = errors.New("not implemented for this platform")

	// ErrTokenExpired is returned when the stored access token has expired
	// and no refresh token is available.
	ErrTokenExpired = errors.New("access token expired")
)

// APIError is a non-2xx response from a platform API.
type APIError struct {
	Platform   string
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	body := e.Body
	if len(body) > 200 {
		body = body[:200]
	}
	return fmt.Sprintf("%s API error (status %d): %s", e.Platform, e.StatusCode, body)
}
