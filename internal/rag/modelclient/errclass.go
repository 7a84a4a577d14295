package modelclient

import (
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/onboardrag/core/internal/domain/ragerr"
)

// ClassifyGRPCError maps a genai/grpc-transport error into the shared
// taxonomy. Provider packages call this so the Client never has to know
// about grpc status codes itself.
func ClassifyGRPCError(err error) error {
	if err == nil {
		return nil
	}
	s, ok := status.FromError(err)
	if !ok {
		return ragerr.New(ragerr.Internal, "model provider call failed", err)
	}
	switch s.Code() {
	case codes.ResourceExhausted:
		return ragerr.RateLimited("provider throttled the request", err, 0)
	case codes.Unavailable, codes.DeadlineExceeded, codes.Aborted, codes.Internal:
		return ragerr.New(ragerr.ModelTransient, "provider returned a transient error", err)
	default:
		return ragerr.New(ragerr.Internal, "model provider call failed", err)
	}
}

// ClassifyHTTPStatus maps an HTTP status code from an OpenAI/Anthropic
// style REST provider into the shared taxonomy.
func ClassifyHTTPStatus(statusCode int, retryAfterSeconds float64, err error) error {
	switch {
	case statusCode == 429:
		return ragerr.RateLimited("provider throttled the request", err, retryAfterSeconds)
	case statusCode >= 500:
		return ragerr.New(ragerr.ModelTransient, "provider returned a transient error", err)
	case statusCode == 0:
		// connection reset / no response at all
		return ragerr.New(ragerr.ModelTransient, "provider connection failed", err)
	default:
		return ragerr.New(ragerr.Internal, "model provider call failed", err)
	}
}
