// Package commands implements the tessera CLI.
package commands

import (
	"context"
	"fmt"
	"os"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/tessera-io/tessera/pkg/config"
	"github.com/tessera-io/tessera/pkg/connectors"
	"github.com/tessera-io/tessera/pkg/connectors/azure"
	"github.com/tessera-io/tessera/pkg/connectors/incus"
	"github.com/tessera-io/tessera/pkg/connectors/local"
	"github.com/tessera-io/tessera/pkg/progress"
	"github.com/tessera-io/tessera/pkg/telemetry"
)

var (
	// Global flags
	configPath string
	verbose    bool
)

// Execute runs the root command.
func Execute(ctx context.Context, version, commit, buildDate string) error {
	rootCmd := newRootCommand(version, commit, buildDate)
	return rootCmd.ExecuteContext(ctx)
}

func newRootCommand(version, commit, buildDate string) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "tessera",
		Short: "Tessera - target connector toolkit",
		Long: `Tessera discovers remote execution targets through pluggable
connectors and runs primitive operations against them.

Connectors:
  - incus/lxc: execute inside container/VM instances via the hypervisor CLI
  - azure:     enumerate cloud hosts from the resource graph (inventory only)

Targets are addressed as @<connector>/<target>, e.g. @incus/web1,
@incus/myremote:db1 or @azure/dev,prod/webserver.`,
		Version: fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, buildDate),
	}

	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "config file path")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose output")

	rootCmd.AddCommand(newInventoryCommand())
	rootCmd.AddCommand(newExecCommand())
	rootCmd.AddCommand(newPushCommand())
	rootCmd.AddCommand(newPullCommand())

	return rootCmd
}

// setup loads the configuration, installs the root logger and builds the
// connector registry.
func setup() (*config.Config, *connectors.Registry, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, nil, err
	}

	level := cfg.Log.Level
	if verbose {
		level = "debug"
	}
	log.Logger = telemetry.NewLogger(level, cfg.Log.Format).
		With().
		Str("run_id", uuid.New().String()).
		Logger()

	registry, err := newRegistry(cfg)
	if err != nil {
		return nil, nil, err
	}
	return cfg, registry, nil
}

// newRegistry wires the configured connectors into a registry.
func newRegistry(cfg *config.Config) (*connectors.Registry, error) {
	registry := connectors.NewRegistry()
	reporter := progress.NewSpinner()
	executor := local.NewExecutor()

	instanceFactory := func(binary string) connectors.Factory {
		return func(target string) (connectors.Connector, error) {
			instanceCfg := incus.DefaultConfig(target)
			instanceCfg.Binary = binary
			instanceCfg.Shell = cfg.Incus.Shell
			return incus.New(instanceCfg, executor, incus.WithProgress(reporter))
		}
	}
	if err := registry.Register("incus", instanceFactory("incus")); err != nil {
		return nil, err
	}
	if err := registry.Register("lxc", instanceFactory("lxc")); err != nil {
		return nil, err
	}

	azureFactory := func(string) (connectors.Connector, error) {
		client := &azure.HTTPGraphClient{
			Endpoint:      cfg.Azure.Endpoint,
			Subscriptions: cfg.Azure.Subscriptions,
			Tokens:        azure.StaticToken(os.Getenv("AZURE_ACCESS_TOKEN")),
		}
		return azure.New(client,
			azure.WithProgress(reporter),
			azure.WithCacheSize(cfg.Azure.CacheSize),
		)
	}
	if err := registry.Register("azure", azureFactory); err != nil {
		return nil, err
	}

	return registry, nil
}
