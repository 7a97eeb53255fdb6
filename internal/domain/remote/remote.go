// Package remote names the network operations the screens depend on and
// the failure classes every upstream client must report.
package remote

import (
	"fmt"

	apperrors "github.com/harvesta/companion/pkg/errors"
)

// Operation identifies one round trip to an external service.
type Operation string

const (
	OpFetchLatest  Operation = "fetch-latest"
	OpFetchHistory Operation = "fetch-history"
	OpUploadImages Operation = "upload-images"
	OpFetchWeather Operation = "fetch-weather"
)

// FailureKind is the coarse classification surfaced to screens.
type FailureKind string

const (
	FailureNetworkUnreachable FailureKind = apperrors.CodeNetworkUnreachable
	FailureUpstream           FailureKind = apperrors.CodeUpstream
	FailurePermissionDenied   FailureKind = apperrors.CodePermissionDenied
	FailureValidation         FailureKind = apperrors.CodeValidation
)

// NetworkUnreachable reports a transport level failure for op.
func NetworkUnreachable(op Operation, err error) error {
	return apperrors.Wrap(string(FailureNetworkUnreachable), fmt.Sprintf("%s: service unreachable", op), err)
}

// UpstreamStatus reports a non-2xx response. The body is kept as the
// wrapped cause for logs; the message shown to users never carries it.
func UpstreamStatus(op Operation, status int, body string) error {
	if status == 401 || status == 403 {
		return apperrors.Wrap(string(FailurePermissionDenied), fmt.Sprintf("%s: upstream denied access (status %d)", op, status), nil)
	}
	var cause error
	if body != "" {
		cause = fmt.Errorf("upstream body: %s", body)
	}
	return apperrors.Wrap(string(FailureUpstream), fmt.Sprintf("%s: upstream returned status %d", op, status), cause)
}

// Malformed reports a body that could not be decoded.
func Malformed(op Operation, err error) error {
	return apperrors.Wrap(string(FailureUpstream), fmt.Sprintf("%s: malformed response", op), err)
}

// Validation reports a request rejected before any network call.
func Validation(op Operation, message string) error {
	return apperrors.Wrap(string(FailureValidation), fmt.Sprintf("%s: %s", op, message), nil)
}

// PermissionDenied reports a device capability the user refused.
func PermissionDenied(message string) error {
	return apperrors.Wrap(string(FailurePermissionDenied), message, nil)
}

// KindOf classifies err; unknown errors count as upstream failures.
func KindOf(err error) FailureKind {
	return FailureKind(apperrors.CodeOf(err, string(FailureUpstream)))
}

// Transient reports whether the failure deserves a non-blocking notice
// rather than a blocking one.
func (k FailureKind) Transient() bool {
	return k == FailureNetworkUnreachable || k == FailureUpstream
}
