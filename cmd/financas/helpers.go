package main

import (
	"context"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/ryan4rodrigues/financas-pessoais/pkg/financas"
	"github.com/spf13/cobra"
)

const monthLayout = "2006-01"

// withClient builds a client from the loaded configuration, restores the
// persisted session and hands it to fn.
func withClient(cmd *cobra.Command, fn func(ctx context.Context, client *financas.Client) error) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	opts, err := cfg.ClientOptions(logger)
	if err != nil {
		return err
	}

	client, err := financas.NewClient(opts)
	if err != nil {
		return fmt.Errorf("failed to create client: %w", err)
	}
	defer func() {
		if err := client.Close(); err != nil {
			logger.Warn("Failed to close client", "error", err)
		}
	}()

	if err := client.Start(ctx); err != nil {
		return fmt.Errorf("failed to restore session: %s", financas.ErrorMessage(err))
	}

	return fn(ctx, client)
}

// withSession is withClient for commands that need a signed-in user
func withSession(cmd *cobra.Command, fn func(ctx context.Context, client *financas.Client) error) error {
	return withClient(cmd, func(ctx context.Context, client *financas.Client) error {
		if client.Session.User() == nil {
			return fmt.Errorf("not logged in: run 'financas login' first")
		}
		return fn(ctx, client)
	})
}

// storeError surfaces the load error a store recorded during restore
func storeError(name string, state financas.StoreState) error {
	if state.Error == "" {
		return nil
	}
	return fmt.Errorf("failed to load %s: %s", name, state.Error)
}

// parseMonth reads a YYYY-MM flag value; empty means the current month
func parseMonth(raw string, loc *time.Location) (int, time.Month, error) {
	if strings.TrimSpace(raw) == "" {
		now := time.Now().In(loc)
		return now.Year(), now.Month(), nil
	}
	t, err := time.ParseInLocation(monthLayout, raw, loc)
	if err != nil {
		return 0, 0, fmt.Errorf("invalid month %q: expected YYYY-MM", raw)
	}
	return t.Year(), t.Month(), nil
}

// parseDate reads a YYYY-MM-DD flag value; empty means now
func parseDate(raw string, loc *time.Location) (time.Time, error) {
	if strings.TrimSpace(raw) == "" {
		return time.Now().In(loc), nil
	}
	t, err := time.ParseInLocation("2006-01-02", raw, loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q: expected YYYY-MM-DD", raw)
	}
	return t, nil
}

func location() *time.Location {
	loc, err := time.LoadLocation(cfg.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

func newTable(w io.Writer) *tabwriter.Writer {
	return tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
}

func money(v float64) string {
	return fmt.Sprintf("R$ %.2f", v)
}
