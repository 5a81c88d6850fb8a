package cli

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/clearlist/clearlist/internal/config"
	"github.com/clearlist/clearlist/internal/database"
	"github.com/clearlist/clearlist/internal/gateway"
	"github.com/clearlist/clearlist/internal/health"
	"github.com/clearlist/clearlist/internal/todo/repository"
	"github.com/clearlist/clearlist/internal/todo/service"
	"github.com/clearlist/clearlist/internal/todo/storage"
)

const shutdownTimeout = 5 * time.Second

// NewServeCommand creates the serve command.
func NewServeCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve the todo API",
		Long: `Serve the todo JSON API, uploaded files and the gRPC health service.

Settings come from --config and the environment:
  DATABASE_URL, UPLOAD_FOLDER, LOG_LEVEL, HTTP_ADDR, GRPC_ADDR,
  MAX_UPLOAD_BYTES, CORS_ORIGIN, HEALTH_INTERVAL`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, lg, err := loadConfig(rootOpts, cmd.OutOrStdout())
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			app, err := NewApp(cfg, lg)
			if err != nil {
				return err
			}
			if err := app.Listen(); err != nil {
				app.Close()
				return err
			}
			return app.Run(ctx)
		},
	}
}

// App wires the store, the HTTP API and the health service together.
type App struct {
	cfg     config.Config
	logger  *slog.Logger
	db      *sql.DB
	handler http.Handler
	health  *health.Server
	monitor *health.Monitor

	httpLis net.Listener
	grpcLis net.Listener
}

// NewApp opens the database and upload directory and builds every layer.
func NewApp(cfg config.Config, lg *slog.Logger) (*App, error) {
	lg.Info("initializing database...", "dsn", cfg.DatabaseURL)
	db, err := database.Open(cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("could not initialize DB: %w", err)
	}

	repo, err := repository.NewTodoRepo(db)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("could not initialize DB: %w", err)
	}
	lg.Info("database ready")

	disk, err := storage.NewDisk(cfg.UploadFolder)
	if err != nil {
		db.Close()
		return nil, err
	}

	svc := service.NewTodoService(repo, disk, lg)
	h := &gateway.TodoHandler{
		Service:       svc,
		Logger:        lg,
		MaxUploadSize: cfg.MaxUploadBytes,
	}

	hs := health.NewServer(lg)

	return &App{
		cfg:     cfg,
		logger:  lg,
		db:      db,
		handler: gateway.NewRouter(h, disk.Dir(), cfg.CORSOrigin).Route(lg),
		health:  hs,
		monitor: &health.Monitor{DB: db, Status: hs, Interval: cfg.HealthInterval, Logger: lg},
	}, nil
}

// Listen binds the HTTP and, when configured, the gRPC address.
func (a *App) Listen() error {
	lis, err := net.Listen("tcp", a.cfg.HTTPAddr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", a.cfg.HTTPAddr, err)
	}
	a.httpLis = lis

	if a.cfg.GRPCAddr == "" {
		return nil
	}

	glis, err := net.Listen("tcp", a.cfg.GRPCAddr)
	if err != nil {
		a.httpLis.Close()
		return fmt.Errorf("failed to listen on %s: %w", a.cfg.GRPCAddr, err)
	}
	a.grpcLis = glis
	return nil
}

// HTTPAddr returns the bound HTTP address, or "" before Listen.
func (a *App) HTTPAddr() string {
	if a.httpLis == nil {
		return ""
	}
	return a.httpLis.Addr().String()
}

// GRPCAddr returns the bound gRPC address, or "" when gRPC is disabled.
func (a *App) GRPCAddr() string {
	if a.grpcLis == nil {
		return ""
	}
	return a.grpcLis.Addr().String()
}

// Run serves until ctx is cancelled or a server fails, then shuts down.
func (a *App) Run(ctx context.Context) error {
	if a.httpLis == nil {
		return errors.New("app: Listen must be called before Run")
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	a.monitor.Start(ctx)

	httpSrv := &http.Server{
		Handler:           a.handler,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 2)

	go func() {
		a.logger.Info("starting backend", "addr", a.HTTPAddr())
		if err := httpSrv.Serve(a.httpLis); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("http server: %w", err)
		}
	}()

	if a.grpcLis != nil {
		go func() {
			if err := a.health.Serve(a.grpcLis); err != nil {
				errCh <- fmt.Errorf("grpc server: %w", err)
			}
		}()
	}

	var runErr error
	select {
	case <-ctx.Done():
		a.logger.Info("received shutdown signal")
	case runErr = <-errCh:
		a.logger.Error("server failed", "error", runErr)
	}

	// сначала health в NOT_SERVING, чтобы балансировщик перестал слать трафик
	a.health.Shutdown()
	cancel()

	sctx, scancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer scancel()
	if err := httpSrv.Shutdown(sctx); err != nil {
		a.logger.Error("http shutdown", "error", err)
	}

	if a.grpcLis != nil {
		a.health.Stop()
	}

	a.Close()
	a.logger.Info("server stopped...")
	return runErr
}

// Close releases the database. Safe to call more than once.
func (a *App) Close() {
	if a.db == nil {
		return
	}
	if err := a.db.Close(); err != nil {
		a.logger.Error("error closing db", "error", err)
	}
	a.db = nil
}
