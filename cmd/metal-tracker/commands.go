package main

import (
	"fmt"
	"log/slog"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/ahmethakanbesel/metal-tracker/internal/alert"
	"github.com/ahmethakanbesel/metal-tracker/internal/metric"
)

func newFetchCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "fetch",
		Short: "Fetch and store the latest price once, then evaluate alert rules",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := newApp(cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			v, err := a.metrics.FetchLatest(cmd.Context())
			if err != nil {
				return err
			}
			if v == nil {
				_, _ = fmt.Fprintln(cmd.OutOrStdout(), "nothing stored")
				return nil
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "stored %s at %s\n", v.Value, v.RecordedAt.Format("2006-01-02T15:04:05Z07:00"))

			fired, err := a.alerts.Evaluate(cmd.Context())
			if err != nil {
				return err
			}
			slog.Info("alert rules evaluated", "fired", fired)
			return nil
		},
	}
}

func newBackfillCmd() *cobra.Command {
	var start, end string
	var noPersist bool

	cmd := &cobra.Command{
		Use:   "backfill",
		Short: "Reconcile the daily series for a date range, filling gaps from upstream",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := newApp(cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			res, err := a.metrics.Reconcile(cmd.Context(), metric.ReconcileRequest{
				Start:          start,
				End:            end,
				PersistMissing: !noPersist,
			})
			if err != nil {
				return err
			}

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			_, _ = fmt.Fprintln(tw, "DATE\tOUNCE\tPER 10G")
			for _, r := range res.Data {
				ounce := "-"
				if r.OunceUnit.Valid {
					ounce = r.OunceUnit.Decimal.String()
				}
				_, _ = fmt.Fprintf(tw, "%s\t%s\t%s\n", r.Date, ounce, r.ConvertedUnit)
			}
			if err := tw.Flush(); err != nil {
				return err
			}

			slog.Info("backfill finished", "source", res.Source, "days", len(res.Data),
				"inserted", res.Inserted, "write_errors", len(res.WriteErrors))
			if !res.OK {
				return fmt.Errorf("upstream failed, only persisted days returned: %w", res.Err)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&start, "start", "", "first day, YYYY-MM-DD")
	cmd.Flags().StringVar(&end, "end", "", "last day, YYYY-MM-DD")
	cmd.Flags().BoolVar(&noPersist, "no-persist", false, "do not store fetched days")
	_ = cmd.MarkFlagRequired("start")
	_ = cmd.MarkFlagRequired("end")
	return cmd
}

func newSeedCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Create the tracked source if it does not exist",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := newApp(cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			src, err := a.repo.EnsureSource(cmd.Context(), a.cfg.SourceCode, a.cfg.SourceName)
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "source %d %s (%s) active=%t\n", src.ID, src.Code, src.Name, src.Active)
			return nil
		},
	}
	cmd.Flags().String("source-name", "", "display name of the source (SOURCE_NAME)")
	return cmd
}

func newDeactivateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "deactivate CODE",
		Short: "Deactivate a source; its values are kept",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			ok, err := a.repo.SetSourceActive(cmd.Context(), args[0], false)
			if err != nil {
				return err
			}
			if !ok {
				return fmt.Errorf("unknown source %q", args[0])
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "source %s deactivated\n", args[0])
			return nil
		},
	}
}

func newAlertCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "alert",
		Short: "Manage threshold alert rules",
	}

	var req alert.CreateRuleRequest
	add := &cobra.Command{
		Use:   "add",
		Short: "Add an email alert rule for the tracked source",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := newApp(cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			req.SourceCode = a.cfg.SourceCode
			rule, err := a.alerts.CreateRule(cmd.Context(), req)
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "rule %d: %s %s %s -> %s\n",
				rule.ID, rule.SourceName, rule.Condition, rule.Threshold, rule.Email)
			return nil
		},
	}
	add.Flags().StringVar(&req.Condition, "condition", "", "greater_than or less_than")
	add.Flags().StringVar(&req.Threshold, "threshold", "", "price per 10 grams")
	add.Flags().StringVar(&req.Email, "email", "", "recipient address")
	_ = add.MarkFlagRequired("condition")
	_ = add.MarkFlagRequired("threshold")
	_ = add.MarkFlagRequired("email")

	cmd.AddCommand(add)
	return cmd
}
