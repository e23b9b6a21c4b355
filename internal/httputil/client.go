package httputil

import (
	"net/http"
	"time"
)

const DefaultTimeout = 30 * time.Second

// NewClient returns an HTTP client with standard timeout configuration.
func NewClient() *http.Client {
	return &http.Client{
		Timeout: DefaultTimeout,
	}
}

// NewClientTimeout returns an HTTP client with a custom timeout for
// callers that need something tighter than the default.
func NewClientTimeout(d time.Duration) *http.Client {
	return &http.Client{
		Timeout: d,
	}
}
