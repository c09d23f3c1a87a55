package commands

import (
	"clinicstaff/internal/seed"
	"errors"
	"strconv"
	"time"

	"github.com/spf13/cobra"
)

func newSeedCmd(opts *rootOptions) *cobra.Command {
	var (
		days     int
		start    string
		password string
	)
	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Load a demonstration roster into an empty store",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := opts.open(cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			so := seed.Options{Days: days, Password: password}
			if start != "" {
				t, err := time.Parse("2006-01-02", start)
				if err != nil {
					return fail(a.printer, "Invalid --start", err, "Use the YYYY-MM-DD format.")
				}
				so.Start = t
			}
			a.printer.Step("seeding %s store", a.cfg.Storage.Driver)
			sum, err := seed.Run(cmd.Context(), a.service(), a.hasher(), so)
			if errors.Is(err, seed.ErrNotEmpty) {
				a.printer.Warning("store already has staff records; nothing seeded")
				return nil
			}
			if err != nil {
				return fail(a.printer, "Seeding failed", err)
			}
			a.printer.Success("demo roster loaded")
			a.printer.KeyValues(map[string]string{
				"specialties": strconv.Itoa(sum.Specialties),
				"doctors":     strconv.Itoa(sum.Doctors),
				"shifts":      strconv.Itoa(sum.Shifts),
				"completed":   strconv.Itoa(sum.Completed),
				"encounters":  strconv.Itoa(sum.Encounters),
				"users":       strconv.Itoa(sum.Users),
			})
			if password == "" {
				a.printer.Warning("seeded users share the default password %q; change it before exposing the API", seed.DefaultPassword)
			}
			return nil
		},
	}
	cmd.Flags().IntVar(&days, "days", 7, "roster length in days")
	cmd.Flags().StringVar(&start, "start", "", "first roster day (YYYY-MM-DD); defaults to a week ago")
	cmd.Flags().StringVar(&password, "password", "", "password for the seeded users")
	return cmd
}
