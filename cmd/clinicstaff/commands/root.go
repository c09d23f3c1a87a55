// Package commands implements the clinicstaff command line.
package commands

import (
	"clinicstaff/internal/config"
	"clinicstaff/internal/printer"
	"fmt"

	"github.com/spf13/cobra"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

// SetVersionInfo records build metadata shown by --version.
func SetVersionInfo(v, c, d string) {
	version, commit, date = v, c, d
}

// rootOptions holds the persistent flags shared by every subcommand.
type rootOptions struct {
	configPath string
	envFile    string
	storage    string
	sqlitePath string
	logLevel   string
}

// NewRootCmd builds the command tree.
func NewRootCmd() *cobra.Command {
	opts := &rootOptions{}
	root := &cobra.Command{
		Use:   "clinicstaff",
		Short: "Clinic staffing backend: doctors, shifts, encounters and productivity reports",
		Long: `clinicstaff manages a clinic's medical staff: specialties, doctors,
shift rosters and patient encounters, and consolidates them into
productivity reports exported as CSV, XLSX or PDF.`,
		Version:       fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, date),
		SilenceErrors: true,
		SilenceUsage:  true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return cmd.Help()
		},
	}
	flags := root.PersistentFlags()
	flags.StringVarP(&opts.configPath, "config", "c", "", "YAML configuration file")
	flags.StringVar(&opts.envFile, "env-file", ".env", "dotenv file with CLINICSTAFF_* variables")
	flags.StringVar(&opts.storage, "storage", "", "storage driver: memory, sqlite, postgres or mysql")
	flags.StringVar(&opts.sqlitePath, "sqlite-path", "", "SQLite database file")
	flags.StringVar(&opts.logLevel, "log-level", "", "log level: debug, info, warn or error")

	root.AddCommand(
		newServeCmd(opts),
		newMigrateCmd(opts),
		newSeedCmd(opts),
		newReportCmd(opts),
	)
	return root
}

// Execute runs the CLI. Errors have already been printed when it returns.
func Execute() error {
	root := NewRootCmd()
	err := root.Execute()
	if err != nil && !printed(err) {
		_ = printer.New(root.OutOrStdout(), root.ErrOrStderr()).Error(err.Error(), "", "Run 'clinicstaff --help' for usage.")
	}
	return err
}

// printedError marks errors already reported through the printer.
type printedError struct{ error }

func (e printedError) Unwrap() error { return e.error }

func printed(err error) bool {
	_, ok := err.(printedError)
	return ok
}

// load resolves the configuration and applies flags set on the command line.
func (o *rootOptions) load(cmd *cobra.Command) (config.Config, error) {
	cfg, err := config.Load(config.LoadOptions{Path: o.configPath, EnvFile: o.envFile})
	if err != nil {
		return cfg, err
	}
	flags := cmd.Flags()
	if flags.Changed("storage") {
		cfg.Storage.Driver = o.storage
	}
	if flags.Changed("sqlite-path") {
		cfg.Storage.SQLitePath = o.sqlitePath
	}
	if flags.Changed("log-level") {
		cfg.Log.Level = o.logLevel
	}
	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}
