package main

import (
	"context"
	"strconv"
	"time"

	"github.com/jrsteele09/pool-admin/adminapi"
	"github.com/jrsteele09/pool-admin/internal/utils"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

func customersCmd() *cobra.Command {
	var (
		query  string
		search string
		opts   adminapi.ListOptions
	)

	cmd := &cobra.Command{
		Use:   "customers [id]",
		Short: "List, search or show customers",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWithApp(cmd, true, func(ctx context.Context, a *app) error {
				var (
					result any
					err    error
				)
				switch {
				case len(args) == 1:
					id, convErr := strconv.Atoi(args[0])
					if convErr != nil {
						return errors.Errorf("customer id must be numeric, got %q", args[0])
					}
					result, err = a.admin.GetCustomer(ctx, id)
				case search != "":
					result, err = a.admin.SearchCustomers(ctx, search, opts.Limit)
				default:
					result, err = a.admin.ListCustomers(ctx, opts)
				}
				if err != nil {
					return err
				}
				return printResult(cmd.OutOrStdout(), result, query)
			})
		},
	}
	addQueryFlag(cmd, &query)
	cmd.Flags().StringVarP(&search, "search", "s", "", "search by name or email")
	cmd.Flags().IntVar(&opts.Limit, "limit", 0, "maximum number of customers")
	cmd.Flags().IntVar(&opts.Offset, "offset", 0, "number of customers to skip")
	return cmd
}

func bookingsCmd() *cobra.Command {
	var (
		query  string
		status string
		filter adminapi.BookingFilter
	)

	cmd := &cobra.Command{
		Use:   "bookings [id]",
		Short: "List or show bookings",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			filter.Status = adminapi.BookingStatus(status)
			return runWithApp(cmd, true, func(ctx context.Context, a *app) error {
				var (
					result any
					err    error
				)
				if len(args) == 1 {
					result, err = a.admin.GetBooking(ctx, args[0])
				} else {
					result, err = a.admin.ListBookings(ctx, filter)
				}
				if err != nil {
					return err
				}
				return printResult(cmd.OutOrStdout(), result, query)
			})
		},
	}
	addQueryFlag(cmd, &query)
	cmd.Flags().StringVar(&status, "status", "", "pending, assigned, scheduled, completed or cancelled")
	cmd.Flags().BoolVar(&filter.HasDogsOnly, "dogs", false, "only bookings with dogs on site")
	cmd.Flags().StringVar(&filter.TechnicianID, "technician", "", "assigned technician id")
	cmd.Flags().StringVarP(&filter.Search, "search", "s", "", "search by customer or address")
	cmd.Flags().IntVar(&filter.Page, "page", 0, "page number, starting at 1")
	cmd.Flags().IntVar(&filter.Limit, "limit", 0, "page size")

	cmd.AddCommand(assignCmd())
	return cmd
}

func assignCmd() *cobra.Command {
	var (
		query      string
		date       string
		assignment adminapi.Assignment
	)

	cmd := &cobra.Command{
		Use:   "assign <booking-id>",
		Short: "Assign a technician to a booking",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			scheduled, err := time.Parse(time.DateOnly, date)
			if err != nil {
				return errors.Errorf("--date must be YYYY-MM-DD, got %q", date)
			}
			assignment.ScheduledDate = scheduled
			return runWithApp(cmd, true, func(ctx context.Context, a *app) error {
				b, err := a.admin.AssignTechnician(ctx, args[0], assignment)
				if err != nil {
					return err
				}
				return printResult(cmd.OutOrStdout(), b, query)
			})
		},
	}
	addQueryFlag(cmd, &query)
	cmd.Flags().StringVar(&assignment.TechnicianID, "technician", "", "technician id")
	cmd.Flags().StringVar(&date, "date", "", "scheduled date, YYYY-MM-DD")
	cmd.Flags().StringVar(&assignment.Notes, "notes", "", "notes for the technician")
	_ = cmd.MarkFlagRequired("technician")
	_ = cmd.MarkFlagRequired("date")
	return cmd
}

func reportsCmd() *cobra.Command {
	var query string

	cmd := &cobra.Command{
		Use:   "reports",
		Short: "Weekly customer report administration",
	}
	cmd.PersistentFlags().StringVarP(&query, "query", "q", "", "JMESPath expression applied to the JSON output")

	show := func(fetch func(ctx context.Context, a *app) (any, error)) func(*cobra.Command, []string) error {
		return func(cmd *cobra.Command, args []string) error {
			return runWithApp(cmd, true, func(ctx context.Context, a *app) error {
				result, err := fetch(ctx, a)
				if err != nil {
					return err
				}
				return printResult(cmd.OutOrStdout(), result, query)
			})
		}
	}

	var days int
	analytics := &cobra.Command{
		Use:   "analytics",
		Short: "Delivery and open rates",
		RunE: show(func(ctx context.Context, a *app) (any, error) {
			if err := checkFeature(a.cfg.AnalyticsEnabled(), "ENABLE_ANALYTICS"); err != nil {
				return nil, err
			}
			return a.admin.ReportAnalytics(ctx, days)
		}),
	}
	analytics.Flags().IntVar(&days, "days", adminapi.DefaultAnalyticsDays, "window in days")

	configCmd := &cobra.Command{
		Use:   "config",
		Short: "Show the weekly report schedule",
		RunE: show(func(ctx context.Context, a *app) (any, error) {
			return a.admin.GetReportConfig(ctx)
		}),
	}

	var history adminapi.HistoryFilter
	historyCmd := &cobra.Command{
		Use:   "history",
		Short: "Reports sent so far",
		RunE: show(func(ctx context.Context, a *app) (any, error) {
			return a.admin.ReportHistory(ctx, history)
		}),
	}
	historyCmd.Flags().IntVar(&history.CustomerID, "customer", 0, "only this customer")
	historyCmd.Flags().IntVar(&history.Limit, "limit", 0, "maximum number of records")
	historyCmd.Flags().IntVar(&history.Offset, "offset", 0, "number of records to skip")

	preview := &cobra.Command{
		Use:   "preview <customer-id>",
		Short: "Render a customer's next report",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.Atoi(args[0])
			if err != nil {
				return errors.Errorf("customer id must be numeric, got %q", args[0])
			}
			return show(func(ctx context.Context, a *app) (any, error) {
				return a.admin.PreviewReport(ctx, id)
			})(cmd, args)
		},
	}

	var customerIDs []int
	bulk := &cobra.Command{
		Use:   "send",
		Short: "Send reports to the given customers now",
		RunE: show(func(ctx context.Context, a *app) (any, error) {
			if err := checkFeature(a.cfg.BulkOperationsEnabled(), "ENABLE_BULK"); err != nil {
				return nil, err
			}
			return a.admin.SendBulkReports(ctx, customerIDs)
		}),
	}
	bulk.Flags().IntSliceVar(&customerIDs, "customer", nil, "customer ids, repeatable")
	_ = bulk.MarkFlagRequired("customer")

	var (
		enabled, charts bool
		delay           int
		schedule        string
	)
	set := &cobra.Command{
		Use:   "set",
		Short: "Change the weekly report schedule, only flags given are sent",
		RunE: func(cmd *cobra.Command, args []string) error {
			var update adminapi.ReportConfigUpdate
			flags := cmd.Flags()
			if flags.Changed("enabled") {
				update.Enabled = utils.Ptr(enabled)
			}
			if flags.Changed("delay") {
				update.DefaultDelay = utils.Ptr(delay)
			}
			if flags.Changed("charts") {
				update.IncludeCharts = utils.Ptr(charts)
			}
			if flags.Changed("schedule") {
				update.ScheduleCron = utils.Ptr(schedule)
			}
			if update == (adminapi.ReportConfigUpdate{}) {
				return errors.New("nothing to change, pass at least one flag")
			}
			return show(func(ctx context.Context, a *app) (any, error) {
				a.log.Info().
					Bool("enabled", utils.Value(update.Enabled)).
					Str("schedule", utils.Value(update.ScheduleCron)).
					Msg("updating report config")
				return a.admin.UpdateReportConfig(ctx, update)
			})(cmd, args)
		},
	}
	set.Flags().BoolVar(&enabled, "enabled", false, "send weekly reports")
	set.Flags().IntVar(&delay, "delay", 0, "hours to wait after a visit")
	set.Flags().BoolVar(&charts, "charts", false, "include charts")
	set.Flags().StringVar(&schedule, "schedule", "", "cron schedule")

	cmd.AddCommand(analytics, configCmd, historyCmd, preview, bulk, set)
	return cmd
}
