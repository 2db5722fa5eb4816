package main

import (
	"context"
	"fmt"

	"github.com/ryan4rodrigues/financas-pessoais/pkg/financas"
	"github.com/spf13/cobra"
)

func transactionsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "transactions",
		Aliases: []string{"tx"},
		Short:   "List and record transactions",
	}

	list := &cobra.Command{
		Use:   "list",
		Short: "List transactions of a month",
		RunE:  runTransactionsList,
	}
	list.Flags().String("month", "", "month as YYYY-MM (default: current month)")
	list.Flags().String("category", "", "only this category id")
	list.Flags().String("account", "", "only this account id")

	cmd.AddCommand(list)
	cmd.AddCommand(transactionsAddCmd())
	cmd.AddCommand(&cobra.Command{
		Use:   "delete [id]",
		Short: "Delete a transaction",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(cmd, func(ctx context.Context, client *financas.Client) error {
				if err := client.Transactions.Remove(ctx, args[0]); err != nil {
					return fmt.Errorf("failed to delete transaction: %s", financas.ErrorMessage(err))
				}
				client.Wait()
				fmt.Fprintf(cmd.OutOrStdout(), "Deleted transaction %s\n", args[0])
				return nil
			})
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "categories",
		Short: "List the category catalogue",
		RunE: func(cmd *cobra.Command, _ []string) error {
			w := newTable(cmd.OutOrStdout())
			fmt.Fprintln(w, "TYPE\tID\tNAME")
			for _, kind := range []financas.TransactionType{financas.TransactionTypeIncome, financas.TransactionTypeExpense} {
				for _, c := range financas.CategoriesFor(kind) {
					fmt.Fprintf(w, "%s\t%s\t%s\n", kind, c.ID, c.Name)
				}
			}
			return w.Flush()
		},
	})

	return cmd
}

func runTransactionsList(cmd *cobra.Command, _ []string) error {
	monthFlag, _ := cmd.Flags().GetString("month")
	category, _ := cmd.Flags().GetString("category")
	account, _ := cmd.Flags().GetString("account")

	loc := location()
	year, month, err := parseMonth(monthFlag, loc)
	if err != nil {
		return err
	}

	return withSession(cmd, func(_ context.Context, client *financas.Client) error {
		if err := storeError("transactions", client.Transactions.State()); err != nil {
			return err
		}

		start, end := financas.MonthRange(year, month, loc)
		w := newTable(cmd.OutOrStdout())
		fmt.Fprintln(w, "DATE\tID\tTYPE\tCATEGORY\tAMOUNT\tSTATUS\tDESCRIPTION")
		for _, t := range client.Transactions.GetByPeriod(start, end) {
			if category != "" && t.Category.ID != category {
				continue
			}
			if account != "" && t.AccountID != account {
				continue
			}
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
				t.Date.In(loc).Format("2006-01-02"), t.ID, t.Type, t.Category.Name, money(t.Amount.Float64()), t.Status, t.Description)
		}
		if err := w.Flush(); err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "\nIncome:   %s\n", money(client.Transactions.TotalIncome(start, end)))
		fmt.Fprintf(out, "Expenses: %s\n", money(client.Transactions.TotalExpenses(start, end)))
		return nil
	})
}

func transactionsAddCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "add",
		Short: "Record a transaction",
		RunE: func(cmd *cobra.Command, _ []string) error {
			params := &financas.TransactionParams{}
			params.AccountID, _ = cmd.Flags().GetString("account")
			kind, _ := cmd.Flags().GetString("type")
			params.Type = financas.TransactionType(kind)
			params.CategoryID, _ = cmd.Flags().GetString("category")
			params.Amount, _ = cmd.Flags().GetFloat64("amount")
			params.Description, _ = cmd.Flags().GetString("description")
			status, _ := cmd.Flags().GetString("status")
			params.Status = financas.TransactionStatus(status)

			dateFlag, _ := cmd.Flags().GetString("date")
			date, err := parseDate(dateFlag, location())
			if err != nil {
				return err
			}
			params.Date = date

			return withSession(cmd, func(ctx context.Context, client *financas.Client) error {
				tx, err := client.Transactions.Add(ctx, params)
				if err != nil {
					return fmt.Errorf("failed to record transaction: %s", financas.ErrorMessage(err))
				}
				// let the account balances catch up before reporting
				client.Wait()
				fmt.Fprintf(cmd.OutOrStdout(), "Recorded %s %s (%s)\n", tx.Type, money(tx.Amount.Float64()), tx.ID)
				if acc := client.Accounts.GetByID(tx.AccountID); acc != nil {
					fmt.Fprintf(cmd.OutOrStdout(), "%s balance: %s\n", acc.Name, money(acc.Balance.Float64()))
				}
				return nil
			})
		},
	}

	cmd.Flags().String("account", "", "account id")
	cmd.Flags().String("type", string(financas.TransactionTypeExpense), "income or expense")
	cmd.Flags().String("category", "", "category id (see 'transactions categories')")
	cmd.Flags().Float64("amount", 0, "positive amount")
	cmd.Flags().String("description", "", "description")
	cmd.Flags().String("date", "", "date as YYYY-MM-DD (default: today)")
	cmd.Flags().String("status", string(financas.TransactionStatusCompleted), "completed, pending or cancelled")
	_ = cmd.MarkFlagRequired("account")
	_ = cmd.MarkFlagRequired("category")
	_ = cmd.MarkFlagRequired("amount")

	return cmd
}
