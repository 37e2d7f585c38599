package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/chitieu/finbot/currency"
)

func forecastCmd() *cobra.Command {
	var (
		owner  string
		budget string
		asJSON bool
	)

	cmd := &cobra.Command{
		Use:   "forecast",
		Short: "Forecast month-end spending against the budget",
		RunE: func(cmd *cobra.Command, _ []string) error {
			var amount int64
			if budget != "" {
				v, err := currency.Parse(budget)
				if err != nil {
					return fmt.Errorf("invalid budget: %w", err)
				}
				amount = v
			}

			a, err := newApp(cfg)
			if err != nil {
				return err
			}
			defer a.Close()

			result, err := a.forecaster.Forecast(cmd.Context(), owner, amount)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if asJSON {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(result)
			}

			fmt.Fprintf(out, "Tháng %d/%d (ngày %d/%d)\n", result.Month, result.Year, result.AsOfDay, result.DaysInMonth)
			fmt.Fprintf(out, "Đã chi:     %s\n", currency.Format(result.SpentSoFar))
			fmt.Fprintf(out, "Dự kiến:    %s\n", currency.Format(result.PredictedTotal))
			fmt.Fprintf(out, "Ngân sách:  %s\n", currency.Format(result.Budget))
			fmt.Fprintf(out, "Trạng thái: %s\n\n%s\n", result.Status, result.Narrative)
			return nil
		},
	}

	cmd.Flags().StringVar(&owner, "owner", "default-user", "ledger owner id")
	cmd.Flags().StringVar(&budget, "budget", "", "monthly budget, e.g. 10tr (default: $DEFAULT_MONTHLY_BUDGET)")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the full result as JSON")
	return cmd
}
