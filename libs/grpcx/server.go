package grpcx

import (
	"context"
	"log/slog"
	"net"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/google.golang.org/grpc/otelgrpc"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

// Server is a gRPC server that always exposes the standard health service.
// Per-dependency probes flip the serving status on a timer.
type Server struct {
	*grpc.Server
	health *health.Server
	logger *slog.Logger
}

type Probe struct {
	Service string
	Check   func(context.Context) error
}

func NewServer(logger *slog.Logger, extra ...grpc.ServerOption) *Server {
	opts := []grpc.ServerOption{
		grpc.StatsHandler(otelgrpc.NewServerHandler()),
		grpc.ChainUnaryInterceptor(
			UnaryServerRequestIDInterceptor(),
			UnaryServerLoggingInterceptor(logger),
		),
	}
	opts = append(opts, extra...)
	srv := grpc.NewServer(opts...)
	hs := health.NewServer()
	healthpb.RegisterHealthServer(srv, hs)
	return &Server{Server: srv, health: hs, logger: logger}
}

// SetServing marks the named service (empty = overall) as serving or not.
func (s *Server) SetServing(service string, serving bool) {
	st := healthpb.HealthCheckResponse_NOT_SERVING
	if serving {
		st = healthpb.HealthCheckResponse_SERVING
	}
	s.health.SetServingStatus(service, st)
}

// WatchProbes re-evaluates probes every interval until ctx is done.
func (s *Server) WatchProbes(ctx context.Context, interval time.Duration, probes ...Probe) {
	if interval <= 0 {
		interval = 10 * time.Second
	}
	evaluate := func() {
		allOK := true
		for _, p := range probes {
			checkCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
			err := p.Check(checkCtx)
			cancel()
			if err != nil {
				allOK = false
				s.logger.Warn("health probe failed", "service", p.Service, "err", err)
			}
			s.SetServing(p.Service, err == nil)
		}
		s.SetServing("", allOK)
	}

	evaluate()
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			evaluate()
		}
	}
}

// Serve blocks until ctx is cancelled, then stops gracefully.
func (s *Server) Serve(ctx context.Context, lis net.Listener) error {
	errCh := make(chan error, 1)
	go func() { errCh <- s.Server.Serve(lis) }()

	select {
	case <-ctx.Done():
		s.health.Shutdown()
		s.GracefulStop()
		return nil
	case err := <-errCh:
		return err
	}
}
