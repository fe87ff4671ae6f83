package main

import (
	"bufio"
	"context"
	"fmt"
	"net/url"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/jrsteele09/pool-admin/apiclient"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

// runWithApp loads the stack, restores the session and hands over to fn.
func runWithApp(cmd *cobra.Command, requireLogin bool, fn func(ctx context.Context, a *app) error) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := loadApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	if requireLogin {
		if err := a.start(ctx); err != nil {
			return err
		}
	}
	return fn(ctx, a)
}

func loginCmd() *cobra.Command {
	var email, password string

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Sign in and store the session",
		RunE: func(cmd *cobra.Command, args []string) error {
			if password == "" {
				fmt.Fprint(cmd.ErrOrStderr(), "Password: ")
				line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
				if err != nil && line == "" {
					return errors.Wrap(err, "read password")
				}
				password = strings.TrimRight(line, "\r\n")
			}

			return runWithApp(cmd, false, func(ctx context.Context, a *app) error {
				if err := a.controller.Login(ctx, email, password); err != nil {
					return errors.New(a.controller.Err())
				}
				u := a.controller.User()
				fmt.Fprintf(cmd.OutOrStdout(), "Logged in as %s (%s)\n", u.FullName(), u.Role)
				return nil
			})
		},
	}

	cmd.Flags().StringVarP(&email, "email", "e", "", "operator email")
	cmd.Flags().StringVarP(&password, "password", "p", "", "password, read from stdin when omitted")
	_ = cmd.MarkFlagRequired("email")
	return cmd
}

func logoutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "End the session and remove the stored credential",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWithApp(cmd, false, func(ctx context.Context, a *app) error {
				if err := a.store.Restore(ctx); err != nil {
					a.log.Warn().Err(err).Msg("could not restore persisted session")
				}
				if err := a.controller.Logout(ctx); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), "Logged out")
				return nil
			})
		},
	}
}

func whoamiCmd() *cobra.Command {
	var query string

	cmd := &cobra.Command{
		Use:   "whoami",
		Short: "Show the signed in operator",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWithApp(cmd, true, func(ctx context.Context, a *app) error {
				return printResult(cmd.OutOrStdout(), a.controller.User(), query)
			})
		},
	}
	addQueryFlag(cmd, &query)
	return cmd
}

func getCmd() *cobra.Command {
	var (
		query  string
		params map[string]string
	)

	cmd := &cobra.Command{
		Use:   "get <path>",
		Short: "GET any backend path through the authenticated pipeline",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			values := url.Values{}
			for k, v := range params {
				values.Set(k, v)
			}
			return runWithApp(cmd, true, func(ctx context.Context, a *app) error {
				data, err := apiclient.Get[any](ctx, a.api, args[0], values)
				if err != nil {
					return err
				}
				return printResult(cmd.OutOrStdout(), data, query)
			})
		},
	}
	addQueryFlag(cmd, &query)
	cmd.Flags().StringToStringVar(&params, "param", nil, "query string parameters, key=value")
	return cmd
}

func addQueryFlag(cmd *cobra.Command, query *string) {
	cmd.Flags().StringVarP(query, "query", "q", "", "JMESPath expression applied to the JSON output")
}

// checkFeature fails commands whose backend feature is switched off.
func checkFeature(enabled bool, envVar string) error {
	if !enabled {
		return errors.Errorf("feature disabled, set %s=true to enable it", envVar)
	}
	return nil
}
