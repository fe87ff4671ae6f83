package main

import (
	"fmt"
	"os"

	"github.com/common-nighthawk/go-figure"
	"github.com/spf13/cobra"
)

// Version information set at build time.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		errorLine(os.Stderr, err.Error())
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "pooladmin",
		Short: "Admin client for the pool service backend",
		Long: `pooladmin signs an operator in to the pool service backend and
calls its admin API with automatic token refresh and rate limit handling.

Without USE_REAL_API=true an in-process development backend is started
and the seeded account csm@claritypool.com / csm123 can be used.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.AddCommand(
		loginCmd(),
		logoutCmd(),
		whoamiCmd(),
		getCmd(),
		customersCmd(),
		bookingsCmd(),
		reportsCmd(),
		watchCmd(),
		devserverCmd(),
		versionCmd(),
	)
	return rootCmd
}

func displayAppname(cmd *cobra.Command, appname string) {
	myFigure := figure.NewFigure(appname, "cybermedium", true)
	fmt.Fprintln(cmd.OutOrStdout(), myFigure.String())
}
