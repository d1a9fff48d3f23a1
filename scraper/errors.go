package scraper

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
)

// ErrTimeout indicates a request that did not complete within the timeout.
type ErrTimeout struct {
	Err error
}

func (e ErrTimeout) Error() string { return "timeout: " + e.Err.Error() }
func (e ErrTimeout) Unwrap() error { return e.Err }

// ErrConnection indicates the site could not be reached.
type ErrConnection struct {
	Err error
}

func (e ErrConnection) Error() string { return "connection: " + e.Err.Error() }
func (e ErrConnection) Unwrap() error { return e.Err }

// ErrForbidden is an HTTP 403 answer.
type ErrForbidden struct {
	Err error
}

func (e ErrForbidden) Error() string { return "forbidden: " + e.Err.Error() }
func (e ErrForbidden) Unwrap() error { return e.Err }

// ErrNotFound is an HTTP 404 answer.
type ErrNotFound struct {
	Err error
}

func (e ErrNotFound) Error() string { return "not found: " + e.Err.Error() }
func (e ErrNotFound) Unwrap() error { return e.Err }

// ErrRateLimited is an HTTP 429 answer.
type ErrRateLimited struct {
	Err error
}

func (e ErrRateLimited) Error() string { return "rate limited: " + e.Err.Error() }
func (e ErrRateLimited) Unwrap() error { return e.Err }

// ErrServer is any 5xx answer.
type ErrServer struct {
	Status int
	Err    error
}

func (e ErrServer) Error() string { return fmt.Sprintf("server error %d: %v", e.Status, e.Err) }
func (e ErrServer) Unwrap() error { return e.Err }

// classifyError maps a colly error and the response status, if any, onto
// one of the error types above. Unknown failures are returned unchanged.
func classifyError(err error, statusCode int) error {
	if err == nil && statusCode < http.StatusBadRequest {
		return nil
	}
	if err == nil {
		err = fmt.Errorf("http status %d", statusCode)
	}

	switch {
	case statusCode == http.StatusForbidden:
		return ErrForbidden{Err: err}
	case statusCode == http.StatusNotFound:
		return ErrNotFound{Err: err}
	case statusCode == http.StatusTooManyRequests:
		return ErrRateLimited{Err: err}
	case statusCode >= http.StatusInternalServerError:
		return ErrServer{Status: statusCode, Err: err}
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return ErrTimeout{Err: err}
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return ErrTimeout{Err: err}
	}
	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return ErrConnection{Err: err}
	}
	return err
}

func errorTypeLabel(err error) string {
	if err == nil {
		return "unknown"
	}
	var (
		timeout     ErrTimeout
		conn        ErrConnection
		forbidden   ErrForbidden
		notFound    ErrNotFound
		rateLimited ErrRateLimited
		server      ErrServer
	)
	switch {
	case errors.As(err, &timeout):
		return "timeout"
	case errors.As(err, &conn):
		return "connection"
	case errors.As(err, &forbidden):
		return "forbidden"
	case errors.As(err, &notFound):
		return "not_found"
	case errors.As(err, &rateLimited):
		return "rate_limited"
	case errors.As(err, &server):
		return "server_error"
	}
	return "other"
}

// retryable reports whether another attempt could succeed. A 403 or 404
// answer will not change on retry.
func retryable(err error) bool {
	switch errorTypeLabel(err) {
	case "forbidden", "not_found":
		return false
	}
	return !errors.Is(err, context.Canceled)
}
