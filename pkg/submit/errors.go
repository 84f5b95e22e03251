package submit

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
)

// Errors.
var (
	// ErrProviderRejected marks a request the control plane refused.
	// Surfaced verbatim, never retried.
	ErrProviderRejected = errors.New("control plane rejected request")
	// ErrTransientFailure marks a timeout or throttle, eligible for retry.
	ErrTransientFailure = errors.New("transient control plane failure")
	// ErrDependencyNotMet marks entries skipped because a family they depend
	// on did not complete successfully.
	ErrDependencyNotMet = errors.New("dependency stage did not complete")
	// ErrServerCreateFailed aborts the run; every child is scoped under the
	// server, so nothing else can proceed.
	ErrServerCreateFailed = errors.New("server creation failed")
)

// Classify wraps a control-plane error as either rejected or transient.
//
// HTTP 408, 429 and 5xx responses are transient; any other provider response
// is a rejection. Errors without a response (connection resets, DNS) are
// treated as transient. Context cancellation passes through unchanged.
func Classify(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}

	var respErr *azcore.ResponseError
	if !errors.As(err, &respErr) {
		return wrapErr(ErrTransientFailure, err)
	}

	switch {
	case respErr.StatusCode == http.StatusRequestTimeout,
		respErr.StatusCode == http.StatusTooManyRequests,
		respErr.StatusCode >= 500:
		return wrapErr(ErrTransientFailure, err)
	default:
		return wrapErr(ErrProviderRejected, err)
	}
}

// Retryable reports whether the classified error may be retried.
func Retryable(err error) bool {
	return errors.Is(err, ErrTransientFailure)
}

// wrapErr wraps a sentinel error with a cause for additional context.
func wrapErr(sentinel, cause error) error {
	return fmt.Errorf("%w: %v", sentinel, cause)
}
