package grpc

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/dmitrijs2005/gophguard/internal/common"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
)

// Trailer keys carrying the actionable detail of lockout and session errors.
const (
	TrailerRemainingAttempts = "remaining-attempts"
	TrailerRetryAfterMinutes = "retry-after-minutes"
	TrailerLockedUntil       = "locked-until"
	TrailerSessionDevice     = "session-device"
)

// toStatus maps a service error onto a gRPC status. Internal failures are
// logged by the caller and reach the client without detail.
func toStatus(ctx context.Context, err error) error {
	if err == nil {
		return nil
	}
	if _, ok := status.FromError(err); ok {
		return err
	}

	switch {
	case errors.Is(err, context.Canceled):
		return status.Error(codes.Canceled, "request canceled")
	case errors.Is(err, context.DeadlineExceeded):
		return status.Error(codes.DeadlineExceeded, "deadline exceeded")
	case errors.Is(err, common.ErrTooManyRequests):
		return status.Error(codes.ResourceExhausted, err.Error())
	case errors.Is(err, common.ErrDuplicateEmail):
		return status.Error(codes.AlreadyExists, err.Error())
	}

	setDetailTrailer(ctx, err)

	switch common.KindOf(err) {
	case common.KindValidation:
		return status.Error(codes.InvalidArgument, err.Error())
	case common.KindAuthentication:
		return status.Error(codes.Unauthenticated, err.Error())
	case common.KindAuthorization:
		return status.Error(codes.PermissionDenied, err.Error())
	case common.KindNotFound:
		return status.Error(codes.NotFound, err.Error())
	case common.KindTransient:
		return status.Error(codes.Unavailable, "temporarily unavailable, retry later")
	default:
		return status.Error(codes.Internal, "internal error")
	}
}

func setDetailTrailer(ctx context.Context, err error) {
	var md metadata.MD

	var (
		ice      *common.InvalidCredentialsError
		lock     *common.TemporaryLockError
		conflict *common.SessionConflictError
	)
	switch {
	case errors.As(err, &ice):
		md = metadata.Pairs(TrailerRemainingAttempts, strconv.Itoa(ice.RemainingAttempts))
	case errors.As(err, &lock):
		md = metadata.Pairs(
			TrailerRetryAfterMinutes, strconv.Itoa(lock.RemainingMinutes),
			TrailerLockedUntil, lock.Until.UTC().Format(time.RFC3339),
		)
	case errors.As(err, &conflict):
		md = metadata.Pairs(TrailerSessionDevice, conflict.Device)
	default:
		return
	}

	// outside a server call there is no stream to attach to
	_ = grpc.SetTrailer(ctx, md)
}
