package main

import (
	"fmt"
	"os"
	"os/signal"
	"runtime"
	"syscall"

	"github.com/jrsteele09/pool-admin/devbackend"
	"github.com/jrsteele09/pool-admin/internal/config"
	"github.com/jrsteele09/pool-admin/internal/logging"
	"github.com/spf13/cobra"
)

func devserverCmd() *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "devserver",
		Short: "Run the development backend on its own",
		Long: `Run the development backend until interrupted. Point other
invocations at it with USE_REAL_API=true API_URL=<printed url>.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			if addr == "" {
				addr = cfg.GetDevAddr()
			}
			log := logging.New(cfg.GetEnv(), cfg.GetLogLevel())
			displayAppname(cmd, cfg.GetAppName())

			srv, err := devbackend.New(cfg, devbackend.WithLogger(log), devbackend.WithCookieName(cfg.GetCookieName()))
			if err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			baseURL, done, err := srv.Start(ctx, addr)
			if err != nil {
				return err
			}
			printRoutes(cmd.OutOrStdout(), srv.Routes())
			fmt.Fprintf(cmd.OutOrStdout(), "API_URL=%s\nseeded login: %s / %s\n", baseURL, devbackend.SeedUserEmail, devbackend.SeedUserPassword)
			return <-done
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "listen address, defaults to DEV_ADDR")
	return cmd
}

func versionCmd() *cobra.Command {
	var short bool

	cmd := &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			out := cmd.OutOrStdout()
			if short {
				fmt.Fprintln(out, version)
				return
			}
			displayAppname(cmd, "pooladmin")
			fmt.Fprintf(out, "  Version:    %s\n", version)
			fmt.Fprintf(out, "  Commit:     %s\n", commit)
			fmt.Fprintf(out, "  Built:      %s\n", date)
			fmt.Fprintf(out, "  Go version: %s\n", runtime.Version())
			fmt.Fprintf(out, "  OS/Arch:    %s/%s\n", runtime.GOOS, runtime.GOARCH)
		},
	}
	cmd.Flags().BoolVarP(&short, "short", "s", false, "print only the version number")
	return cmd
}
