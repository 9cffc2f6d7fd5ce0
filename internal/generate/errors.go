// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package generate

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// Kind classifies a generation failure.
type Kind string

const (
	KindInvalidCredentials Kind = "invalid-credentials"
	KindQuotaExceeded      Kind = "quota-exceeded"
	KindNetworkUnreachable Kind = "network-unreachable"
	KindModelUnavailable   Kind = "model-unavailable"
	KindUnknown            Kind = "unknown"
)

// Transient reports whether a retry may succeed.
func (k Kind) Transient() bool {
	switch k {
	case KindQuotaExceeded, KindNetworkUnreachable, KindModelUnavailable:
		return true
	}
	return false
}

// Error is a classified generation failure.
type Error struct {
	Kind Kind
	Err  error
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %v", e.Kind, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Classify returns the Kind of err. Errors already classified keep their
// kind; gRPC statuses, network errors and known service messages are
// mapped; everything else is KindUnknown.
func Classify(err error) Kind {
	if err == nil {
		return ""
	}
	var ge *Error
	if errors.As(err, &ge) {
		return ge.Kind
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return KindNetworkUnreachable
	}
	if errors.Is(err, context.Canceled) {
		return KindUnknown
	}
	if st, ok := status.FromError(err); ok {
		switch st.Code() {
		case codes.Unauthenticated, codes.PermissionDenied:
			return KindInvalidCredentials
		case codes.ResourceExhausted:
			return KindQuotaExceeded
		case codes.NotFound, codes.Unavailable, codes.Internal:
			return KindModelUnavailable
		case codes.DeadlineExceeded:
			return KindNetworkUnreachable
		}
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return KindNetworkUnreachable
	}

	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "api key not valid"):
		return KindInvalidCredentials
	case strings.Contains(msg, "quota"):
		return KindQuotaExceeded
	}
	return KindUnknown
}

// classified wraps err with its kind unless it is already classified.
func classified(err error) error {
	var ge *Error
	if errors.As(err, &ge) {
		return err
	}
	return &Error{Kind: Classify(err), Err: err}
}

// kindForStatus maps an HTTP status from a generation API to a Kind.
func kindForStatus(code int) Kind {
	switch code {
	case http.StatusUnauthorized, http.StatusForbidden:
		return KindInvalidCredentials
	case http.StatusTooManyRequests:
		return KindQuotaExceeded
	case http.StatusNotFound, http.StatusInternalServerError, http.StatusBadGateway,
		http.StatusServiceUnavailable, http.StatusGatewayTimeout, 529:
		return KindModelUnavailable
	}
	return KindUnknown
}

// UserMessage returns the message shown to the user for a failure kind.
func UserMessage(k Kind) string {
	switch k {
	case KindInvalidCredentials:
		return "The API key is not valid. Check the configured key and try again."
	case KindQuotaExceeded:
		return "The generation quota has been exceeded. Wait a while or check your account limits."
	case KindNetworkUnreachable:
		return "The generation service could not be reached. Check your network connection."
	case KindModelUnavailable:
		return "The generation model is unavailable right now. Try again later or choose another model."
	default:
		return "Failed to generate notes. See the log for details."
	}
}
