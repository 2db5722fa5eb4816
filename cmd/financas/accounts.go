package main

import (
	"context"
	"fmt"

	"github.com/ryan4rodrigues/financas-pessoais/pkg/financas"
	"github.com/spf13/cobra"
)

func accountsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "accounts",
		Short: "List and manage accounts",
		RunE:  runAccountsList,
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List accounts with balance and debt totals",
		RunE:  runAccountsList,
	})
	cmd.AddCommand(accountsAddCmd())
	cmd.AddCommand(&cobra.Command{
		Use:   "delete [id]",
		Short: "Delete an account",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(cmd, func(ctx context.Context, client *financas.Client) error {
				if err := client.Accounts.Remove(ctx, args[0]); err != nil {
					return fmt.Errorf("failed to delete account: %s", financas.ErrorMessage(err))
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Deleted account %s\n", args[0])
				return nil
			})
		},
	})

	return cmd
}

func runAccountsList(cmd *cobra.Command, _ []string) error {
	return withSession(cmd, func(_ context.Context, client *financas.Client) error {
		if err := storeError("accounts", client.Accounts.State()); err != nil {
			return err
		}

		w := newTable(cmd.OutOrStdout())
		fmt.Fprintln(w, "ID\tNAME\tTYPE\tBALANCE\tACTIVE")
		for _, a := range client.Accounts.List() {
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%t\n", a.ID, a.Name, a.Type, money(a.Balance.Float64()), a.IsActive)
		}
		if err := w.Flush(); err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "\nTotal balance: %s\n", money(client.Accounts.TotalBalance()))
		fmt.Fprintf(out, "Total debt:    %s\n", money(client.Accounts.TotalDebt()))
		fmt.Fprintf(out, "Net worth:     %s\n", money(client.Reports.NetWorth()))
		return nil
	})
}

func accountsAddCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "add",
		Short: "Create an account",
		RunE: func(cmd *cobra.Command, _ []string) error {
			params := &financas.CreateAccountParams{}
			params.Name, _ = cmd.Flags().GetString("name")
			accountType, _ := cmd.Flags().GetString("type")
			params.Type = financas.AccountType(accountType)
			params.Balance, _ = cmd.Flags().GetFloat64("balance")
			params.CreditLimit, _ = cmd.Flags().GetFloat64("credit-limit")
			params.Bank, _ = cmd.Flags().GetString("bank")

			return withSession(cmd, func(ctx context.Context, client *financas.Client) error {
				account, err := client.Accounts.Add(ctx, params)
				if err != nil {
					return fmt.Errorf("failed to create account: %s", financas.ErrorMessage(err))
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Created account %s (%s)\n", account.Name, account.ID)
				return nil
			})
		},
	}

	cmd.Flags().String("name", "", "account name")
	cmd.Flags().String("type", string(financas.AccountTypeChecking), "checking, savings, credit, cash or investment")
	cmd.Flags().Float64("balance", 0, "opening balance")
	cmd.Flags().Float64("credit-limit", 0, "credit limit for credit accounts")
	cmd.Flags().String("bank", "", "bank name")
	_ = cmd.MarkFlagRequired("name")

	return cmd
}
