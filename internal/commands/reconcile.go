package commands

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newReconcileCommand() *cobra.Command {
	var (
		companies   []string
		concurrency int
	)

	cmd := &cobra.Command{
		Use:   "reconcile",
		Short: "Recompute cached account balances from journal lines",
		Long: `Recompute every cached account balance from the journal lines and
report the balances that had drifted. Without --company all companies are
reconciled.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp()
			if err != nil {
				return err
			}
			defer a.Close()

			if concurrency <= 0 {
				concurrency = a.cfg.Reconcile.Concurrency
			}

			results, err := a.svc.ReconcileAll(cmd.Context(), companies, concurrency)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			for _, r := range results {
				fmt.Fprintf(out, "%s\tchecked=%d\tdrift=%d\n", r.CompanyID, r.AccountsChecked, len(r.Drift))
				for _, d := range r.Drift {
					fmt.Fprintf(out, "  %s\tcached=%s\tactual=%s\n",
						d.AccountID, d.Cached.NetBalance.StringFixed(2), d.Actual.NetBalance.StringFixed(2))
				}
			}
			return nil
		},
	}
	cmd.Flags().StringSliceVar(&companies, "company", nil, "company id to reconcile (repeatable)")
	cmd.Flags().IntVar(&concurrency, "concurrency", 0, "companies reconciled in parallel (default RECONCILE_CONCURRENCY)")

	return cmd
}
