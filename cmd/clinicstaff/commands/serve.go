package commands

import (
	"clinicstaff/internal/adapters/exports"
	"clinicstaff/internal/adapters/httpapi"
	"clinicstaff/internal/auth"
	"clinicstaff/internal/blob"
	"clinicstaff/internal/cache"
	"clinicstaff/internal/core"
	"clinicstaff/internal/logging"
	"clinicstaff/internal/reports"
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const (
	sessionSweepInterval   = time.Minute
	defaultShutdownTimeout = 10 * time.Second
)

func newServeCmd(opts *rootOptions) *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API and the export worker",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := opts.open(cmd)
			if err != nil {
				return err
			}
			defer a.Close()
			if cmd.Flags().Changed("addr") {
				a.cfg.HTTP.Addr = addr
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			lis, err := net.Listen("tcp", a.cfg.HTTP.Addr)
			if err != nil {
				return fail(a.printer, "Cannot listen", err, "Pick another address with --addr.")
			}
			a.printer.Success("listening on %s", lis.Addr())
			if err := serve(ctx, a, lis); err != nil {
				return fail(a.printer, "Server stopped with an error", err)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "listen address (overrides http.addr)")
	return cmd
}

// serve wires the service stack onto lis and blocks until ctx is done.
func serve(ctx context.Context, a *app, lis net.Listener) error {
	cfg := a.cfg
	log := logging.Adapt(a.logger)

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	recorder, err := core.NewPrometheusMetricsRecorder(reg)
	if err != nil {
		lis.Close()
		return err
	}
	metrics := core.MultiMetricsRecorder{recorder}
	if cfg.Debug.Vars {
		metrics = append(metrics, core.NewExpvarMetricsRecorder("clinicstaff_operations"))
	}
	svcOpts := []core.Option{core.WithMetricsRecorder(metrics)}
	if cfg.Debug.TraceFile != "" {
		f, err := os.OpenFile(cfg.Debug.TraceFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			lis.Close()
			return fmt.Errorf("open trace file: %w", err)
		}
		defer f.Close()
		svcOpts = append(svcOpts, core.WithTracer(core.NewJSONTracer(f)))
	}

	var (
		source reports.Source
		rc     *cache.ReportCache
		ready  func(context.Context) error
	)
	if cfg.Redis.URL != "" {
		rc, err = cache.Dial(ctx, cfg.Redis.URL,
			cache.WithTTL(cfg.Redis.TTL),
			cache.WithPrefix(cfg.Redis.Prefix),
			cache.WithLogger(log.Named("cache")),
		)
		if err != nil {
			lis.Close()
			return err
		}
		defer rc.Close()
		svcOpts = append(svcOpts, core.WithChangeNotifier(rc))
		ready = rc.Ping
	}
	svc := a.service(svcOpts...)
	source = svc
	if rc != nil {
		source = rc.Wrap(svc)
	}

	store, err := blob.Open(ctx, cfg.BlobSettings())
	if err != nil {
		lis.Close()
		return err
	}
	worker := exports.NewWorker(source, store, exports.NewAuditLogger(a.store, log.Named("exports")),
		exports.WithLogger(log.Named("exports")),
		exports.WithQueueSize(cfg.Exports.QueueSize),
		exports.WithURLExpiry(cfg.Exports.URLExpiry),
		exports.WithRetention(cfg.Exports.Retain),
	)
	worker.Start()

	sessions := auth.NewSessions(cfg.Auth.SessionTTL, nil)
	api, err := httpapi.New(httpapi.Options{
		Service:     svc,
		Reports:     source,
		Exports:     worker,
		AuthEnabled: cfg.Auth.Enabled,
		Sessions:    sessions,
		Hasher:      a.hasher(),
		Logger:      a.logger.Named("http"),
		Registerer:  reg,
		Gatherer:    reg,
		Ready:       ready,
		DebugVars:   cfg.Debug.Vars,
	})
	if err != nil {
		lis.Close()
		_ = worker.Stop(context.Background())
		return err
	}
	srv := &http.Server{
		Handler:           api,
		ReadTimeout:       cfg.HTTP.ReadTimeout,
		ReadHeaderTimeout: cfg.HTTP.ReadTimeout,
		WriteTimeout:      cfg.HTTP.WriteTimeout,
	}
	if !cfg.Auth.Enabled {
		a.logger.Warn("authentication disabled; the API is open")
	}
	a.logger.Info("server started",
		zap.String("addr", lis.Addr().String()),
		zap.String("storage", cfg.Storage.Driver),
		zap.String("blob", cfg.Blob.Driver),
		zap.Bool("cache", rc != nil),
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := srv.Serve(lis); !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		ticker := time.NewTicker(sessionSweepInterval)
		defer ticker.Stop()
		for {
			select {
			case <-gctx.Done():
				return nil
			case <-ticker.C:
				if n := sessions.Sweep(); n > 0 {
					a.logger.Debug("expired sessions removed", zap.Int("count", n))
				}
			}
		}
	})
	g.Go(func() error {
		<-gctx.Done()
		timeout := cfg.HTTP.ShutdownTimeout
		if timeout <= 0 {
			timeout = defaultShutdownTimeout
		}
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(gctx), timeout)
		defer cancel()
		a.logger.Info("shutting down")
		return errors.Join(srv.Shutdown(shutdownCtx), worker.Stop(shutdownCtx))
	})
	return g.Wait()
}
