package metrics

import (
	"context"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// RequestRecorder receives one observation per finished gRPC request
type RequestRecorder interface {
	ObserveRequest(method string, elapsed time.Duration, code codes.Code)
}

// UnaryServerInterceptor reports every unary request to the given recorders.
// Nil recorders are skipped.
func UnaryServerInterceptor(recorders ...RequestRecorder) grpc.UnaryServerInterceptor {
	active := make([]RequestRecorder, 0, len(recorders))
	for _, r := range recorders {
		if r != nil {
			active = append(active, r)
		}
	}

	return func(ctx context.Context, req interface{}, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (interface{}, error) {
		start := time.Now()
		resp, err := handler(ctx, req)

		elapsed, code := time.Since(start), requestCode(err)
		for _, r := range active {
			r.ObserveRequest(info.FullMethod, elapsed, code)
		}
		return resp, err
	}
}

// requestCode maps a handler error to its status code.
// Context errors that never became a status map to Canceled or DeadlineExceeded.
func requestCode(err error) codes.Code {
	if err == nil {
		return codes.OK
	}
	if s, ok := status.FromError(err); ok {
		return s.Code()
	}
	return status.FromContextError(err).Code()
}
