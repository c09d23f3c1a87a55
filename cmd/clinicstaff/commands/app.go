package commands

import (
	"clinicstaff/internal/auth"
	"clinicstaff/internal/config"
	"clinicstaff/internal/core"
	"clinicstaff/internal/logging"
	"clinicstaff/internal/printer"
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// app bundles what every subcommand needs: configuration, logger, store.
type app struct {
	cfg     config.Config
	logger  *zap.Logger
	store   core.PersistentStore
	printer printer.Printer
}

func (o *rootOptions) open(cmd *cobra.Command) (*app, error) {
	p := printer.New(cmd.OutOrStdout(), cmd.ErrOrStderr())
	cfg, err := o.load(cmd)
	if err != nil {
		return nil, fail(p, "Configuration error", err, "Check --config, --env-file and the CLINICSTAFF_* variables.")
	}
	logger, err := logging.New(cfg.Log)
	if err != nil {
		return nil, fail(p, "Logger setup failed", err)
	}
	store, err := core.OpenPersistentStore(cfg.StorageSettings(), nil)
	if err != nil {
		_ = logger.Sync()
		return nil, fail(p, "Storage unavailable", err,
			"Check the storage driver and its connection settings.",
			"Use --storage memory for a throwaway instance.")
	}
	logger.Debug("store opened", zap.String("driver", cfg.Storage.Driver))
	return &app{cfg: cfg, logger: logger, store: store, printer: p}, nil
}

// service builds the staffing service over the app store.
func (a *app) service(opts ...core.Option) *core.Service {
	adapter := logging.Adapt(a.logger)
	base := []core.Option{
		core.WithLogger(adapter.Named("core")),
		core.WithAuditRecorder(core.AuditRecorderFor(a.store, adapter.Named("audit"))),
	}
	return core.NewService(a.store, append(base, opts...)...)
}

func (a *app) hasher() auth.Hasher {
	return auth.Hasher{Cost: a.cfg.Auth.BcryptCost}
}

// Close releases the store and flushes the logger.
func (a *app) Close() error {
	var errs []error
	if c, ok := a.store.(io.Closer); ok {
		errs = append(errs, c.Close())
	}
	// Sync fails on non-syncable stderr; nothing is lost.
	_ = a.logger.Sync()
	return errors.Join(errs...)
}

// fail prints a formatted error and marks it as reported.
func fail(p printer.Printer, title string, err error, suggestions ...string) error {
	_ = p.Error(title, err.Error(), suggestions...)
	return printedError{fmt.Errorf("%s: %w", title, err)}
}
