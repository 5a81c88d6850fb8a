// Command healthcheck probes the clearlist gRPC health service and exits
// non-zero unless it reports SERVING. Meant for container health checks.
package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"time"

	"github.com/clearlist/clearlist/internal/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

func main() {
	lg := slog.New(slog.NewTextHandler(os.Stdout, nil))

	defAddr := "localhost:5051"
	if v, ok := os.LookupEnv("GRPC_ADDR"); ok && v != "" {
		defAddr = v
	}

	addr := flag.String("addr", defAddr, "address of the gRPC health service")
	service := flag.String("service", health.ServiceName, "service name to check, empty for overall status")
	timeout := flag.Duration("timeout", 3*time.Second, "probe timeout")
	flag.Parse()

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	status, err := health.Probe(ctx, *addr, *service)
	if err != nil {
		lg.Error("probe failed", "addr", *addr, "error", err)
		os.Exit(2)
	}

	if status != healthpb.HealthCheckResponse_SERVING {
		lg.Error("not serving", "addr", *addr, "service", *service, "status", status.String())
		os.Exit(1)
	}

	lg.Info("serving", "addr", *addr, "service", *service)
}
