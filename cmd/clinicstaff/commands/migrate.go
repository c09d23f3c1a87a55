package commands

import (
	"clinicstaff/internal/schema"
	"context"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
)

type schemaReporter interface {
	SchemaVersion(ctx context.Context) (int, error)
	Dialect() schema.Dialect
}

func newMigrateCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or upgrade the database schema",
		Long: `migrate opens the configured store, which applies the schema when
it is missing, and reports the resulting schema revision.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := opts.open(cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			sr, ok := a.store.(schemaReporter)
			if !ok {
				a.printer.Warning("storage driver %q keeps no schema", a.cfg.Storage.Driver)
				return nil
			}
			version, err := sr.SchemaVersion(cmd.Context())
			if err != nil {
				return fail(a.printer, "Schema check failed", err)
			}
			a.printer.Success("schema up to date")
			a.printer.KeyValues(map[string]string{
				"driver":  a.cfg.Storage.Driver,
				"dialect": fmt.Sprint(sr.Dialect()),
				"version": strconv.Itoa(version),
			})
			return nil
		},
	}
}
