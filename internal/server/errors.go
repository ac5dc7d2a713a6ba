package server

import (
	"context"
	"errors"
	"net/http"

	"github.com/ChuLiYu/schedsim/internal/analytics"
	"github.com/ChuLiYu/schedsim/internal/repository"
	"github.com/ChuLiYu/schedsim/internal/scheduler"
	"github.com/ChuLiYu/schedsim/pkg/types"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// ErrBadRequest marks a request that could not be decoded.
var ErrBadRequest = errors.New("bad request")

// Error codes carried in the JSON error body.
const (
	CodeInvalidArgument = "invalid_argument"
	CodeNotFound        = "not_found"
	CodeConflict        = "conflict"
	CodeCanceled        = "canceled"
	CodeInternal        = "internal"
)

// APIError is the JSON body of every failed HTTP request.
type APIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type classification struct {
	httpStatus int
	code       string
	grpcCode   codes.Code
}

func classify(err error) classification {
	switch {
	case errors.Is(err, repository.ErrProcessNotFound):
		return classification{http.StatusNotFound, CodeNotFound, codes.NotFound}
	case errors.Is(err, repository.ErrDuplicateProcess):
		return classification{http.StatusConflict, CodeConflict, codes.AlreadyExists}
	case errors.Is(err, ErrBadRequest),
		errors.Is(err, types.ErrInvalidProcess),
		errors.Is(err, scheduler.ErrInvalidConfiguration),
		errors.Is(err, scheduler.ErrDuplicateProcessID),
		errors.Is(err, analytics.ErrEmptyProcessSet):
		return classification{http.StatusBadRequest, CodeInvalidArgument, codes.InvalidArgument}
	case errors.Is(err, context.Canceled):
		return classification{499, CodeCanceled, codes.Canceled}
	case errors.Is(err, context.DeadlineExceeded):
		return classification{http.StatusGatewayTimeout, CodeCanceled, codes.DeadlineExceeded}
	default:
		return classification{http.StatusInternalServerError, CodeInternal, codes.Internal}
	}
}

// toStatus converts a core error into a gRPC status error.
func toStatus(err error) error {
	if err == nil {
		return nil
	}
	if _, ok := status.FromError(err); ok {
		return err
	}
	return status.Error(classify(err).grpcCode, err.Error())
}
