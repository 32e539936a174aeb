package middleware

import (
	"context"
	"runtime/debug"
	"time"

	"github.com/fekuna/buffet-service/pkg/logger"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// ContextInterceptor logs each unary call and converts panics into codes.Internal.
func ContextInterceptor(log logger.ZapLogger) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (resp any, err error) {
		start := time.Now()
		defer func() {
			if rec := recover(); rec != nil {
				log.Error("grpc panic recovered",
					zap.String("method", info.FullMethod),
					zap.Any("panic", rec),
					zap.ByteString("stack", debug.Stack()),
				)
				err = status.Error(codes.Internal, "internal error")
			}
			log.Debug("grpc call",
				zap.String("method", info.FullMethod),
				zap.String("code", status.Code(err).String()),
				zap.Duration("latency", time.Since(start)),
			)
		}()
		return handler(ctx, req)
	}
}
