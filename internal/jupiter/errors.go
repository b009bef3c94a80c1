package jupiter

import (
	"errors"
	"fmt"

	"solana-stock-swap/internal/domain"
)

// ErrNoRoute means no quote is currently available for the pair.
var ErrNoRoute = errors.New("no route currently available")

// maxBodyExcerpt bounds how much of an upstream body is kept on errors.
const maxBodyExcerpt = 2048

// UpstreamError is a failed quote request. StatusCode is zero for transport
// and decode failures.
type UpstreamError struct {
	StatusCode int
	Body       string
	Err        error
}

func (e *UpstreamError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("quote upstream status %d: %s", e.StatusCode, e.Body)
	}
	return fmt.Sprintf("quote upstream: %v", e.Err)
}

func (e *UpstreamError) Unwrap() error { return e.Err }

// Is matches ErrNoRoute and domain.ErrUpstreamUnavailable.
func (e *UpstreamError) Is(target error) bool {
	return target == ErrNoRoute || target == domain.ErrUpstreamUnavailable
}

// SwapBuildError is a failed swap-transaction build.
type SwapBuildError struct {
	StatusCode int
	Body       string
	Err        error
}

func (e *SwapBuildError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("swap build status %d: %s", e.StatusCode, e.Body)
	}
	return fmt.Sprintf("swap build: %v", e.Err)
}

func (e *SwapBuildError) Unwrap() error { return e.Err }

func (e *SwapBuildError) Is(target error) bool {
	return target == domain.ErrUpstreamUnavailable
}

func excerpt(body []byte) string {
	if len(body) > maxBodyExcerpt {
		return string(body[:maxBodyExcerpt])
	}
	return string(body)
}
