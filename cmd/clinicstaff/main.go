// Command clinicstaff runs the clinic staffing backend.
package main

import (
	"os"

	"clinicstaff/cmd/clinicstaff/commands"
)

// Set at build time with -ldflags.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	commands.SetVersionInfo(version, commit, date)
	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}
