package errors

import (
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// MapToGRPCError converts a domain error into a gRPC status error.
// Used when a stream or unary call has to terminate with an error
// instead of reporting it inside a result frame.
func MapToGRPCError(err error) error {
	if err == nil {
		return nil
	}
	if _, ok := status.FromError(err); ok {
		return err
	}
	switch Code(err) {
	case CodeNotAuthenticated:
		return status.Error(codes.Unauthenticated, err.Error())
	case CodeAlreadyBound, CodeAlreadyExists:
		return status.Error(codes.AlreadyExists, err.Error())
	case CodeSessionClosed:
		return status.Error(codes.FailedPrecondition, err.Error())
	case CodeInvalidArgument:
		return status.Error(codes.InvalidArgument, err.Error())
	case CodeNotFound:
		return status.Error(codes.NotFound, err.Error())
	case CodeUnknownMethod:
		return status.Error(codes.Unimplemented, err.Error())
	default:
		return status.Error(codes.Internal, ErrOperationFailed.Error())
	}
}

