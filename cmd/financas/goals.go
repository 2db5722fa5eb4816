package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/ryan4rodrigues/financas-pessoais/pkg/financas"
	"github.com/spf13/cobra"
)

func goalsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "goals",
		Short: "Track savings goals",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List goals with progress",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withSession(cmd, func(_ context.Context, client *financas.Client) error {
				if err := storeError("goals", client.Goals.State()); err != nil {
					return err
				}

				w := newTable(cmd.OutOrStdout())
				fmt.Fprintln(w, "ID\tNAME\tSAVED\tTARGET\t%\tDAYS LEFT\tSTATUS")
				for _, g := range client.Goals.WithProgress() {
					days := "-"
					if g.Progress.DaysLeft != nil {
						days = fmt.Sprintf("%d", *g.Progress.DaysLeft)
					}
					status := string(g.Status)
					if g.Progress.IsOverdue {
						status += " (overdue)"
					}
					fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%.1f\t%s\t%s\n",
						g.ID, g.Name, money(g.CurrentAmount.Float64()), money(g.TargetAmount.Float64()), g.Progress.Percentage, days, status)
				}
				if err := w.Flush(); err != nil {
					return err
				}

				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "\nSaved:    %s\n", money(client.Goals.TotalSaved()))
				fmt.Fprintf(out, "Targeted: %s\n", money(client.Goals.TotalTargeted()))
				return nil
			})
		},
	})
	cmd.AddCommand(goalsAddCmd(), goalsContributeCmd())
	cmd.AddCommand(&cobra.Command{
		Use:   "delete [id]",
		Short: "Delete a goal",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(cmd, func(ctx context.Context, client *financas.Client) error {
				if err := client.Goals.Remove(ctx, args[0]); err != nil {
					return fmt.Errorf("failed to delete goal: %s", financas.ErrorMessage(err))
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Deleted goal %s\n", args[0])
				return nil
			})
		},
	})

	return cmd
}

func goalsAddCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "add",
		Short: "Create a goal",
		RunE: func(cmd *cobra.Command, _ []string) error {
			params := &financas.GoalParams{Status: financas.GoalStatusActive}
			params.Name, _ = cmd.Flags().GetString("name")
			params.TargetAmount, _ = cmd.Flags().GetFloat64("target")
			params.CurrentAmount, _ = cmd.Flags().GetFloat64("current")
			goalType, _ := cmd.Flags().GetString("type")
			params.Type = financas.GoalType(goalType)
			params.Description, _ = cmd.Flags().GetString("description")

			if dateFlag, _ := cmd.Flags().GetString("date"); strings.TrimSpace(dateFlag) != "" {
				date, err := parseDate(dateFlag, location())
				if err != nil {
					return err
				}
				target := financas.NewDateOnly(date)
				params.TargetDate = &target
			}

			return withSession(cmd, func(ctx context.Context, client *financas.Client) error {
				goal, err := client.Goals.Add(ctx, params)
				if err != nil {
					return fmt.Errorf("failed to create goal: %s", financas.ErrorMessage(err))
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Created goal %s (%s)\n", goal.Name, goal.ID)
				return nil
			})
		},
	}

	cmd.Flags().String("name", "", "goal name")
	cmd.Flags().Float64("target", 0, "target amount")
	cmd.Flags().Float64("current", 0, "amount already saved")
	cmd.Flags().String("type", string(financas.GoalTypeSavings), "savings, debt_payment, purchase, investment or emergency")
	cmd.Flags().String("description", "", "description")
	cmd.Flags().String("date", "", "target date as YYYY-MM-DD")
	_ = cmd.MarkFlagRequired("name")
	_ = cmd.MarkFlagRequired("target")

	return cmd
}

func goalsContributeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "contribute [id]",
		Short: "Add money to a goal",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			params := &financas.ContributionParams{}
			params.Amount, _ = cmd.Flags().GetFloat64("amount")
			params.Note, _ = cmd.Flags().GetString("note")

			return withSession(cmd, func(ctx context.Context, client *financas.Client) error {
				goal, err := client.Goals.AddContribution(ctx, args[0], params)
				if err != nil {
					return fmt.Errorf("failed to add contribution: %s", financas.ErrorMessage(err))
				}
				progress := client.Goals.Progress(goal)
				fmt.Fprintf(cmd.OutOrStdout(), "%s: %s of %s (%.1f%%)\n",
					goal.Name, money(goal.CurrentAmount.Float64()), money(goal.TargetAmount.Float64()), progress.Percentage)
				return nil
			})
		},
	}

	cmd.Flags().Float64("amount", 0, "amount to add")
	cmd.Flags().String("note", "", "optional note")
	_ = cmd.MarkFlagRequired("amount")

	return cmd
}
