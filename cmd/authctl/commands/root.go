package commands

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/AdamTroyan/AnjelaTroyaWeb/internal/infra/app"
	"github.com/AdamTroyan/AnjelaTroyaWeb/internal/infra/config"
	"github.com/AdamTroyan/AnjelaTroyaWeb/internal/infra/logger"
)

// CoreLoader builds the services a command operates on.
type CoreLoader func(ctx context.Context) (*app.Core, error)

// LoadCore reads configuration from the environment and opens the configured store.
func LoadCore(ctx context.Context) (*app.Core, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	log, err := logger.New(cfg.App.Env)
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}
	return app.NewCore(ctx, cfg, log)
}

// NewRootCmd creates the root command
func NewRootCmd(load CoreLoader) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "authctl",
		Short:         "Operator tooling for admin accounts, sessions and lockouts",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.AddCommand(
		newCreateUserCommand(load),
		newRevokeSessionsCommand(load),
		newUnblockCommand(load),
		newLockoutStatusCommand(load),
		newCleanupCommand(load),
	)

	return rootCmd
}

// withCore loads the core for the duration of fn.
func withCore(cmd *cobra.Command, load CoreLoader, fn func(ctx context.Context, core *app.Core) error) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	core, err := load(ctx)
	if err != nil {
		return err
	}
	defer core.Close()

	return fn(ctx, core)
}
