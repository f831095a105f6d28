package commands

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/AdamTroyan/AnjelaTroyaWeb/internal/core/domain"
	"github.com/AdamTroyan/AnjelaTroyaWeb/internal/infra/app"
)

const clearedByCLI = "cli"

func newUnblockCommand(load CoreLoader) *cobra.Command {
	var token, email, ip string

	cmd := &cobra.Command{
		Use:   "unblock",
		Short: "Clear a lockout by its unblock token, or every lockout for an email or ip",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withCore(cmd, load, func(ctx context.Context, core *app.Core) error {
				out := cmd.OutOrStdout()

				if token != "" {
					lockout, err := core.Lockouts.Unblock(ctx, token, clearedByCLI)
					if err != nil {
						return fmt.Errorf("unblock: %w", err)
					}
					fmt.Fprintf(out, "lockout cleared: email=%s ip=%s\n", lockout.Email, lockout.IP)
					return nil
				}

				removed, err := core.Lockouts.ClearLockouts(ctx, email, ip, clearedByCLI)
				if err != nil {
					return fmt.Errorf("unblock: %w", err)
				}
				for _, lockout := range removed {
					fmt.Fprintf(out, "lockout cleared: email=%s ip=%s\n", lockout.Email, lockout.IP)
				}
				return nil
			})
		},
	}

	cmd.Flags().StringVarP(&token, "token", "t", "", "unblock token from the notification link")
	cmd.Flags().StringVarP(&email, "email", "e", "", "clear every lockout for this email")
	cmd.Flags().StringVar(&ip, "ip", "", "clear every lockout for this client ip")
	cmd.MarkFlagsOneRequired("token", "email", "ip")
	cmd.MarkFlagsMutuallyExclusive("token", "email")
	cmd.MarkFlagsMutuallyExclusive("token", "ip")

	return cmd
}

func newLockoutStatusCommand(load CoreLoader) *cobra.Command {
	var email, ip string

	cmd := &cobra.Command{
		Use:   "lockout-status",
		Short: "Show the login state of an (email, ip) pair",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withCore(cmd, load, func(ctx context.Context, core *app.Core) error {
				status, err := core.Lockouts.Status(ctx, domain.NormalizeEmail(email), strings.TrimSpace(ip))
				if err != nil {
					return fmt.Errorf("lockout status: %w", err)
				}

				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "state: %s\n", status.State)
				switch status.State {
				case domain.LockoutStateAttempting:
					fmt.Fprintf(out, "attempts: %d/%d\n", status.Attempts, core.Lockouts.Threshold())
				case domain.LockoutStateLocked:
					fmt.Fprintf(out, "locked at: %s\n", status.Lockout.CreatedAt.Format(time.RFC3339))
				}
				return nil
			})
		},
	}

	cmd.Flags().StringVarP(&email, "email", "e", "", "login email")
	cmd.Flags().StringVar(&ip, "ip", "", "client ip")
	_ = cmd.MarkFlagRequired("email")
	_ = cmd.MarkFlagRequired("ip")

	return cmd
}

func newCleanupCommand(load CoreLoader) *cobra.Command {
	var attemptsOlderThan, auditOlderThan time.Duration

	cmd := &cobra.Command{
		Use:   "cleanup",
		Short: "Delete stale attempt counters, old audit entries and expired lockouts",
		RunE: func(cmd *cobra.Command, args []string) error {
			if attemptsOlderThan <= 0 || auditOlderThan <= 0 {
				return fmt.Errorf("retention periods must be positive")
			}

			return withCore(cmd, load, func(ctx context.Context, core *app.Core) error {
				now := time.Now().UTC()

				attempts, err := core.Lockouts.PurgeAttempts(ctx, now.Add(-attemptsOlderThan))
				if err != nil {
					return err
				}
				entries, err := core.Audit.PurgeBefore(ctx, now.Add(-auditOlderThan))
				if err != nil {
					return err
				}
				lockouts, err := core.Lockouts.PurgeExpired(ctx)
				if err != nil {
					return err
				}

				fmt.Fprintf(cmd.OutOrStdout(), "removed: attempts=%d audit_entries=%d lockouts=%d\n", attempts, entries, lockouts)
				return nil
			})
		},
	}

	cmd.Flags().DurationVar(&attemptsOlderThan, "attempts-older-than", 30*24*time.Hour, "delete attempt counters not updated within this period")
	cmd.Flags().DurationVar(&auditOlderThan, "audit-older-than", 90*24*time.Hour, "delete audit entries older than this period")

	return cmd
}
