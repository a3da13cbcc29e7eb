package main

import (
	"fmt"

	"cinecrowd/internal/conf"
	"cinecrowd/internal/pkg/logger"

	"github.com/go-kratos/kratos/v2/config"
	"github.com/go-kratos/kratos/v2/config/env"
	"github.com/go-kratos/kratos/v2/config/file"
	"github.com/go-kratos/kratos/v2/log"
	"github.com/spf13/cobra"
)

const envPrefix = "CINECROWD_"

// commandContext carries state shared by subcommands.
type commandContext struct {
	configPath string
	bootstrap  *conf.Bootstrap
	zl         *logger.Logger
	logger     log.Logger
}

func newRootCommand() *cobra.Command {
	ctx := &commandContext{}

	rootCmd := &cobra.Command{
		Use:           Name,
		Short:         "CineCrowd movie list and community rating service",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return ctx.load()
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if ctx.zl != nil {
				_ = ctx.zl.Sync()
			}
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}
	rootCmd.PersistentFlags().StringVarP(&ctx.configPath, "conf", "c", "../../configs", "config path, eg: -conf config.yaml")

	rootCmd.AddCommand(newServeCommand(ctx))
	rootCmd.AddCommand(newMigrateCommand(ctx))
	rootCmd.AddCommand(newRecomputeCommand(ctx))
	return rootCmd
}

// load reads the config file (with CINECROWD_* environment overrides for
// ${VAR} placeholders) and builds the process logger.
func (c *commandContext) load() error {
	cfg := config.New(
		config.WithSource(
			env.NewSource(envPrefix),
			file.NewSource(c.configPath),
		),
	)
	defer cfg.Close()

	if err := cfg.Load(); err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	var bc conf.Bootstrap
	if err := cfg.Scan(&bc); err != nil {
		return fmt.Errorf("scan config: %w", err)
	}
	if bc.Server == nil {
		bc.Server = &conf.Server{}
	}
	if bc.Data == nil {
		return fmt.Errorf("config: data section is required")
	}
	c.bootstrap = &bc

	level := ""
	if bc.Log != nil {
		level = bc.Log.Level
	}
	zl, err := logger.New(level)
	if err != nil {
		return err
	}
	c.zl = zl
	c.logger = log.With(zl,
		"service.id", id,
		"service.name", Name,
		"service.version", Version,
	)
	return nil
}

func newServeCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP and gRPC servers",
		RunE: func(cmd *cobra.Command, args []string) error {
			bc := ctx.bootstrap
			app, cleanup, err := wireApp(bc.Server, bc.Data, bc.Auth, bc.Metadata, bc.Cache, ctx.logger)
			if err != nil {
				return err
			}
			defer cleanup()

			// start and wait for stop signal
			return app.Run()
		},
	}
}

func newMigrateCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or update the database schema",
		RunE: func(cmd *cobra.Command, args []string) error {
			d, cleanup, err := wireData(ctx.bootstrap.Data, ctx.logger)
			if err != nil {
				return err
			}
			defer cleanup()
			return d.Migrate(cmd.Context())
		},
	}
}

func newRecomputeCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "recompute",
		Short: "Recompute the community rating of every movie",
		RunE: func(cmd *cobra.Command, args []string) error {
			uc, cleanup, err := wireRecompute(ctx.bootstrap.Data, ctx.logger)
			if err != nil {
				return err
			}
			defer cleanup()

			failed, err := uc.RecomputeAll(cmd.Context())
			if err != nil {
				return err
			}
			if failed > 0 {
				return fmt.Errorf("recompute failed for %d movies", failed)
			}
			fmt.Fprintln(cmd.OutOrStdout(), "community ratings recomputed")
			return nil
		},
	}
}
