package api

import (
	"context"
	"errors"
	"net/http"

	"google.golang.org/grpc/codes"

	"github.com/solatis/thomson/internal/transform"
	"github.com/solatis/thomson/internal/types"
)

// Error mapping shared by the gRPC and HTTP surfaces.
// Assembly failures map to INVALID_ARGUMENT / 422.
// Input validation errors map to INVALID_ARGUMENT / 400.
// History store errors map to UNAVAILABLE / 503.
// Context timeouts map to DEADLINE_EXCEEDED / 504.

var (
	// ErrHistoryUnavailable wraps failures writing or reading the run history.
	ErrHistoryUnavailable = errors.New("history store unavailable")

	// ErrHistoryDisabled is returned by run queries when no store is configured.
	ErrHistoryDisabled = errors.New("history store not configured")

	// ErrBadRequest marks a malformed request envelope.
	ErrBadRequest = errors.New("malformed request")
)

var inputErrors = []error{
	ErrBadRequest,
	types.ErrUnsupportedValue,
	types.ErrUnsupportedFormat,
	types.ErrInvalidRuleKey,
	types.ErrEdgeConflict,
	types.ErrDocumentTooDeep,
	types.ErrInvalidInclude,
}

func isInputError(err error) bool {
	for _, target := range inputErrors {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

// grpcCode classifies err for the gRPC surface.
func grpcCode(err error) codes.Code {
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return codes.DeadlineExceeded
	case errors.Is(err, context.Canceled):
		return codes.Canceled
	case errors.Is(err, types.ErrDocumentTooLarge):
		return codes.ResourceExhausted
	case transform.IsAssembleError(err), isInputError(err):
		return codes.InvalidArgument
	case errors.Is(err, types.ErrRunNotFound):
		return codes.NotFound
	case errors.Is(err, ErrHistoryDisabled):
		return codes.FailedPrecondition
	case errors.Is(err, ErrHistoryUnavailable):
		return codes.Unavailable
	default:
		return codes.Internal
	}
}

// httpStatus classifies err for the HTTP surface.
func httpStatus(err error) int {
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	case errors.Is(err, context.Canceled):
		return http.StatusServiceUnavailable
	case errors.Is(err, types.ErrDocumentTooLarge):
		return http.StatusRequestEntityTooLarge
	case transform.IsAssembleError(err):
		return http.StatusUnprocessableEntity
	case isInputError(err):
		return http.StatusBadRequest
	case errors.Is(err, types.ErrRunNotFound), errors.Is(err, ErrHistoryDisabled):
		return http.StatusNotFound
	case errors.Is(err, ErrHistoryUnavailable):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
