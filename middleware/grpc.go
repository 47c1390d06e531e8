package middleware

import (
	"context"
	"fmt"
	"net"
	"strconv"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/peer"
	"google.golang.org/grpc/status"

	"github.com/storyloom/gate/admission"
	"github.com/storyloom/gate/meta"
)

// Metadata keys read from and written to gRPC calls.
const (
	MetadataUserID     = "x-user-id"
	MetadataRetryAfter = "retry-after-seconds"
)

// IdentityFromGRPC derives the request identity from the peer address and
// incoming metadata.
func IdentityFromGRPC(ctx context.Context, fullMethod string) meta.Identity {
	id := meta.Identity{Route: fullMethod}

	if p, ok := peer.FromContext(ctx); ok && p.Addr != nil {
		host, _, err := net.SplitHostPort(p.Addr.String())
		if err == nil && host != "" {
			id.SourceIP = host
		} else {
			id.SourceIP = p.Addr.String()
		}
	}

	if md, ok := metadata.FromIncomingContext(ctx); ok {
		if values := md.Get(MetadataUserID); len(values) > 0 {
			id.UserID = values[0]
		}
	}
	return id.Normalize()
}

// UnaryServerInterceptor enforces admission control for ctrl's route class on
// every unary call. Denied calls fail with ResourceExhausted and carry the
// retry hint in trailing metadata.
func UnaryServerInterceptor(ctrl *admission.Controller) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		id := IdentityFromGRPC(ctx, info.FullMethod)
		dec := ctrl.Check(ctx, id)

		if !dec.Allowed {
			trailer := metadata.Pairs(MetadataRetryAfter, strconv.Itoa(dec.RetryAfterSeconds()))
			_ = grpc.SetTrailer(ctx, trailer)
			return nil, status.Error(codes.ResourceExhausted, fmt.Sprintf("rate limit exceeded, retry in %ds", dec.RetryAfterSeconds()))
		}

		return handler(id.WithContext(ctx), req)
	}
}
