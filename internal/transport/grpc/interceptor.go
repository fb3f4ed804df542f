package grpc

import (
	"context"
	"strings"
	"time"

	"fulfillment-service/internal/service"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
)

const userIDKey = "x-user-id"

// NewOperatorUnaryServerInterceptor переносит x-user-id из metadata в context.
// Невалидный идентификатор: InvalidArgument; отсутствие не ошибка.
func NewOperatorUnaryServerInterceptor() grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		md, ok := metadata.FromIncomingContext(ctx)
		if !ok {
			return handler(ctx, req)
		}
		raw := strings.TrimSpace(getFirst(md, userIDKey))
		if raw == "" {
			return handler(ctx, req)
		}
		uid, err := uuid.Parse(raw)
		if err != nil {
			return nil, status.Errorf(codes.InvalidArgument, "invalid %s metadata (method=%s)", userIDKey, info.FullMethod)
		}
		return handler(service.WithUserID(ctx, uid), req)
	}
}

// NewLoggingUnaryServerInterceptor логирует вызовы и перехватывает панику в хендлере.
func NewLoggingUnaryServerInterceptor(log *zap.Logger) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (resp any, err error) {
		start := time.Now()
		defer func() {
			if r := recover(); r != nil {
				log.Error("grpc handler panic", zap.String("method", info.FullMethod), zap.Any("panic", r))
				err = status.Error(codes.Internal, "internal error")
			}
			code := status.Code(err)
			fields := []zap.Field{
				zap.String("method", info.FullMethod),
				zap.String("code", code.String()),
				zap.Duration("elapsed", time.Since(start)),
			}
			if code == codes.OK {
				log.Debug("grpc call", fields...)
			} else {
				log.Warn("grpc call failed", append(fields, zap.Error(err))...)
			}
		}()
		return handler(ctx, req)
	}
}

func getFirst(md metadata.MD, key string) string {
	vals := md.Get(key)
	if len(vals) > 0 {
		return vals[0]
	}
	return ""
}
