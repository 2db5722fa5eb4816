package main

import (
	"context"
	"fmt"
	"os"

	"github.com/ryan4rodrigues/financas-pessoais/pkg/financas"
	"github.com/spf13/cobra"
)

func loginCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Sign in and store the session",
		Long: `Sign in with email and password. The session is kept in the configured
storage so later commands run as the same user.

The password can also be given through FINANCAS_PASSWORD.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			email, _ := cmd.Flags().GetString("email")
			password, _ := cmd.Flags().GetString("password")
			if password == "" {
				password = os.Getenv("FINANCAS_PASSWORD")
			}

			return withClient(cmd, func(ctx context.Context, client *financas.Client) error {
				user, err := client.Session.Login(ctx, email, password)
				if err != nil {
					return fmt.Errorf("login failed: %s", financas.ErrorMessage(err))
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Logged in as %s <%s>\n", user.Name, user.Email)
				return nil
			})
		},
	}

	cmd.Flags().String("email", "", "account email")
	cmd.Flags().String("password", "", "account password")
	_ = cmd.MarkFlagRequired("email")

	return cmd
}

func registerCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "register",
		Short: "Create a user and sign in",
		RunE: func(cmd *cobra.Command, _ []string) error {
			params := &financas.RegisterParams{}
			params.Name, _ = cmd.Flags().GetString("name")
			params.Email, _ = cmd.Flags().GetString("email")
			params.Password, _ = cmd.Flags().GetString("password")
			params.Phone, _ = cmd.Flags().GetString("phone")
			if params.Password == "" {
				params.Password = os.Getenv("FINANCAS_PASSWORD")
			}
			params.ConfirmPassword = params.Password

			return withClient(cmd, func(ctx context.Context, client *financas.Client) error {
				user, err := client.Session.Register(ctx, params)
				if err != nil {
					return fmt.Errorf("registration failed: %s", financas.ErrorMessage(err))
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Welcome, %s\n", user.Name)
				return nil
			})
		},
	}

	cmd.Flags().String("name", "", "full name")
	cmd.Flags().String("email", "", "account email")
	cmd.Flags().String("password", "", "account password")
	cmd.Flags().String("phone", "", "phone number")
	_ = cmd.MarkFlagRequired("name")
	_ = cmd.MarkFlagRequired("email")

	return cmd
}

func resetPasswordCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "reset-password",
		Short: "Request a password reset email",
		RunE: func(cmd *cobra.Command, _ []string) error {
			email, _ := cmd.Flags().GetString("email")

			return withClient(cmd, func(ctx context.Context, client *financas.Client) error {
				if err := client.Session.ResetPassword(ctx, email); err != nil {
					return fmt.Errorf("password reset failed: %s", financas.ErrorMessage(err))
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Password reset instructions sent to %s\n", email)
				return nil
			})
		},
	}

	cmd.Flags().String("email", "", "account email")
	_ = cmd.MarkFlagRequired("email")

	return cmd
}

func logoutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Forget the stored session",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withClient(cmd, func(ctx context.Context, client *financas.Client) error {
				if err := client.Session.Logout(ctx); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), "Logged out")
				return nil
			})
		},
	}
}

func whoamiCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the signed-in user",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withSession(cmd, func(_ context.Context, client *financas.Client) error {
				user := client.Session.User()
				fmt.Fprintf(cmd.OutOrStdout(), "%s <%s> (%s)\n", user.Name, user.Email, user.ID)
				return nil
			})
		},
	}
}
