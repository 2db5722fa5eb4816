package main

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/ryan4rodrigues/financas-pessoais/pkg/financas"
	"github.com/spf13/cobra"
)

func dashboardCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "dashboard",
		Short: "Show the financial overview",
		RunE: func(cmd *cobra.Command, _ []string) error {
			asJSON, _ := cmd.Flags().GetBool("json")

			return withSession(cmd, func(_ context.Context, client *financas.Client) error {
				d := client.Reports.Dashboard()
				out := cmd.OutOrStdout()

				if asJSON {
					enc := json.NewEncoder(out)
					enc.SetIndent("", "  ")
					return enc.Encode(d)
				}

				fmt.Fprintf(out, "Net worth:        %s\n", money(d.NetWorth))
				fmt.Fprintf(out, "  Balance:        %s\n", money(d.TotalBalance))
				fmt.Fprintf(out, "  Debt:           %s\n", money(d.TotalDebt))
				fmt.Fprintf(out, "This month:       %s\n", money(d.MonthlyBalance))
				fmt.Fprintf(out, "  Income:         %s\n", money(d.MonthlyIncome))
				fmt.Fprintf(out, "  Expenses:       %s\n", money(d.MonthlyExpenses))
				fmt.Fprintf(out, "  Savings rate:   %.1f%%\n", d.SavingsRate)
				fmt.Fprintf(out, "Budgets:          %s of %s\n", money(d.TotalSpent), money(d.TotalBudgeted))
				fmt.Fprintf(out, "Goals:            %s of %s\n", money(d.TotalSaved), money(d.TotalTargeted))

				if len(d.BudgetAlerts) > 0 {
					fmt.Fprintln(out, "\nBudget alerts:")
					for _, b := range d.BudgetAlerts {
						fmt.Fprintf(out, "  %-20s %5.1f%%  %s\n", categoryName(b.CategoryID), b.Percentage, b.Status)
					}
				}

				if len(d.ExpenseDistribution) > 0 {
					fmt.Fprintln(out, "\nTop expenses this month:")
					for _, c := range d.ExpenseDistribution {
						fmt.Fprintf(out, "  %-20s %12s  %5.1f%%\n", c.Category.Name, money(c.Total), c.Share)
					}
				}

				if len(d.RecentTransactions) > 0 {
					fmt.Fprintln(out, "\nRecent transactions:")
					w := newTable(out)
					for _, t := range d.RecentTransactions {
						sign := "-"
						if t.Type == financas.TransactionTypeIncome {
							sign = "+"
						}
						fmt.Fprintf(w, "  %s\t%s%s\t%s\n", t.Date.In(location()).Format("02/01"), sign, money(t.Amount.Float64()), t.Description)
					}
					return w.Flush()
				}
				return nil
			})
		},
	}

	cmd.Flags().Bool("json", false, "print the dashboard as JSON")
	return cmd
}
