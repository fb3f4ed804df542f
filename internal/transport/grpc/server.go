package grpc

import (
	"context"
	"net"
	"time"

	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	"google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"
)

// ServiceName: имя сервиса в health-протоколе.
const ServiceName = "fulfillment.v1.FulfillmentService"

// Pinger: внешняя зависимость, от которой зависит статус SERVING (redis, БД).
type Pinger interface {
	Ping(ctx context.Context) error
}

type Server struct {
	srv    *grpc.Server
	health *health.Server
	deps   map[string]Pinger
	log    *zap.Logger
}

func NewServer(log *zap.Logger, deps map[string]Pinger) *Server {
	srv := grpc.NewServer(
		grpc.ChainUnaryInterceptor(
			NewLoggingUnaryServerInterceptor(log),
			NewOperatorUnaryServerInterceptor(),
		),
	)

	healthSrv := health.NewServer()
	healthSrv.SetServingStatus("", grpc_health_v1.HealthCheckResponse_SERVING)
	healthSrv.SetServingStatus(ServiceName, grpc_health_v1.HealthCheckResponse_SERVING)
	grpc_health_v1.RegisterHealthServer(srv, healthSrv)

	reflection.Register(srv)

	return &Server{srv: srv, health: healthSrv, deps: deps, log: log}
}

func (s *Server) Serve(lis net.Listener) error {
	return s.srv.Serve(lis)
}

// CheckDependencies переводит сервис в NOT_SERVING, если хотя бы одна зависимость не отвечает.
func (s *Server) CheckDependencies(ctx context.Context) grpc_health_v1.HealthCheckResponse_ServingStatus {
	st := grpc_health_v1.HealthCheckResponse_SERVING
	for name, dep := range s.deps {
		pctx, cancel := context.WithTimeout(ctx, 2*time.Second)
		err := dep.Ping(pctx)
		cancel()
		if err != nil {
			s.log.Warn("dependency is unhealthy", zap.String("dependency", name), zap.Error(err))
			st = grpc_health_v1.HealthCheckResponse_NOT_SERVING
		}
	}
	s.health.SetServingStatus(ServiceName, st)
	return st
}

// WatchDependencies периодически перепроверяет зависимости до отмены ctx.
func (s *Server) WatchDependencies(ctx context.Context, every time.Duration) {
	if len(s.deps) == 0 || every <= 0 {
		return
	}
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.CheckDependencies(ctx)
		}
	}
}

func (s *Server) GracefulStop() {
	s.health.Shutdown()
	s.srv.GracefulStop()
}
