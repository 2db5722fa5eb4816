package main

import (
	"context"
	"fmt"

	"github.com/ryan4rodrigues/financas-pessoais/pkg/financas"
	"github.com/spf13/cobra"
)

func budgetsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "budgets",
		Short: "List and manage monthly budgets",
	}

	list := &cobra.Command{
		Use:   "list",
		Short: "List budgets with spending for a month",
		RunE: func(cmd *cobra.Command, _ []string) error {
			monthFlag, _ := cmd.Flags().GetString("month")
			year, month, err := parseMonth(monthFlag, location())
			if err != nil {
				return err
			}

			return withSession(cmd, func(_ context.Context, client *financas.Client) error {
				if err := storeError("budgets", client.Budgets.State()); err != nil {
					return err
				}

				w := newTable(cmd.OutOrStdout())
				fmt.Fprintln(w, "ID\tCATEGORY\tBUDGET\tSPENT\tREMAINING\t%\tSTATUS")
				for _, b := range client.Budgets.WithSpent() {
					if b.Year != year || b.Month != int(month) {
						continue
					}
					fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%.1f\t%s\n",
						b.ID, categoryName(b.CategoryID), money(b.Amount.Float64()), money(b.Spent), money(b.Remaining), b.Percentage, b.Status)
				}
				if err := w.Flush(); err != nil {
					return err
				}

				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "\nBudgeted: %s\n", money(client.Budgets.TotalBudgeted(year, month)))
				fmt.Fprintf(out, "Spent:    %s\n", money(client.Budgets.TotalSpent(year, month)))
				return nil
			})
		},
	}
	list.Flags().String("month", "", "month as YYYY-MM (default: current month)")

	add := &cobra.Command{
		Use:   "add",
		Short: "Create a budget for a category and month",
		RunE: func(cmd *cobra.Command, _ []string) error {
			monthFlag, _ := cmd.Flags().GetString("month")
			year, month, err := parseMonth(monthFlag, location())
			if err != nil {
				return err
			}

			params := &financas.BudgetParams{Year: year, Month: int(month)}
			params.CategoryID, _ = cmd.Flags().GetString("category")
			params.Amount, _ = cmd.Flags().GetFloat64("amount")
			params.Name, _ = cmd.Flags().GetString("name")
			if params.Name == "" {
				params.Name = categoryName(params.CategoryID)
			}

			return withSession(cmd, func(ctx context.Context, client *financas.Client) error {
				budget, err := client.Budgets.Add(ctx, params)
				if err != nil {
					return fmt.Errorf("failed to create budget: %s", financas.ErrorMessage(err))
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Created budget %s: %s for %04d-%02d\n",
					budget.ID, money(budget.Amount.Float64()), budget.Year, budget.Month)
				return nil
			})
		},
	}
	add.Flags().String("category", "", "expense category id")
	add.Flags().Float64("amount", 0, "monthly cap")
	add.Flags().String("month", "", "month as YYYY-MM (default: current month)")
	add.Flags().String("name", "", "budget name (default: category name)")
	_ = add.MarkFlagRequired("category")
	_ = add.MarkFlagRequired("amount")

	cmd.AddCommand(list, add)
	cmd.AddCommand(&cobra.Command{
		Use:   "delete [id]",
		Short: "Delete a budget",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(cmd, func(ctx context.Context, client *financas.Client) error {
				if err := client.Budgets.Remove(ctx, args[0]); err != nil {
					return fmt.Errorf("failed to delete budget: %s", financas.ErrorMessage(err))
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Deleted budget %s\n", args[0])
				return nil
			})
		},
	})

	return cmd
}

func categoryName(id string) string {
	if c, ok := financas.CategoryByID(id); ok {
		return c.Name
	}
	return id
}
