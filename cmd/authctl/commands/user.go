package commands

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/AdamTroyan/AnjelaTroyaWeb/internal/core/domain"
	"github.com/AdamTroyan/AnjelaTroyaWeb/internal/infra/app"
)

func newCreateUserCommand(load CoreLoader) *cobra.Command {
	var (
		email         string
		password      string
		passwordStdin bool
		role          string
	)

	cmd := &cobra.Command{
		Use:   "create-user",
		Short: "Create an identity or replace its password",
		Long: `Create an identity or replace its password.
Replacing the password of an existing identity revokes its sessions.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if passwordStdin {
				line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
				if err != nil && line == "" {
					return fmt.Errorf("read password from stdin: %w", err)
				}
				password = strings.TrimRight(line, "\r\n")
			}
			if password == "" {
				return errors.New("password is required: use --password or --password-stdin")
			}

			parsed, err := parseRole(role)
			if err != nil {
				return err
			}

			return withCore(cmd, load, func(ctx context.Context, core *app.Core) error {
				identity, err := core.Operator.CreateUser(ctx, email, password, parsed)
				if err != nil {
					return fmt.Errorf("create user: %w", err)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "identity %s saved: email=%s role=%s\n", identity.ID, identity.Email, identity.Role)
				return nil
			})
		},
	}

	cmd.Flags().StringVarP(&email, "email", "e", "", "identity email")
	cmd.Flags().StringVarP(&password, "password", "p", "", "plaintext password")
	cmd.Flags().BoolVar(&passwordStdin, "password-stdin", false, "read the password from stdin")
	cmd.Flags().StringVarP(&role, "role", "r", string(domain.RoleAdmin), "role: ADMIN or USER")
	_ = cmd.MarkFlagRequired("email")
	cmd.MarkFlagsMutuallyExclusive("password", "password-stdin")

	return cmd
}

func newRevokeSessionsCommand(load CoreLoader) *cobra.Command {
	var email string

	cmd := &cobra.Command{
		Use:   "revoke-sessions",
		Short: "Invalidate every session issued to an identity",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withCore(cmd, load, func(ctx context.Context, core *app.Core) error {
				version, err := core.Operator.RevokeSessionsByEmail(ctx, domain.NormalizeEmail(email))
				if err != nil {
					return fmt.Errorf("revoke sessions: %w", err)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "sessions revoked: email=%s token_version=%d\n", domain.NormalizeEmail(email), version)
				return nil
			})
		},
	}

	cmd.Flags().StringVarP(&email, "email", "e", "", "identity email")
	_ = cmd.MarkFlagRequired("email")

	return cmd
}

func parseRole(value string) (domain.Role, error) {
	switch domain.Role(strings.ToUpper(strings.TrimSpace(value))) {
	case domain.RoleAdmin:
		return domain.RoleAdmin, nil
	case domain.RoleUser:
		return domain.RoleUser, nil
	default:
		return "", fmt.Errorf("unknown role %q", value)
	}
}
