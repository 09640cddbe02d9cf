package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/artpar/caravel/internal/core/module"
	"github.com/artpar/caravel/internal/deploy"
	"github.com/artpar/caravel/internal/shell/client"
)

var deployCmd = &cobra.Command{
	Use:   "deploy MODULE...",
	Short: "Deploy modules and their dependencies in order",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runDeploy,
}

func init() {
	deployCmd.Flags().BoolP("force", "f", false, "Redeploy services that are already deployed")
	deployCmd.Flags().Bool("skip-checks", false, "Skip pre-deploy checks")
	deployCmd.Flags().Bool("skip-healthchecks", false, "Do not wait for service healthchecks")
	deployCmd.Flags().StringArrayP("environment", "e", nil, "Activate a named environment set (repeatable; later sets win)")
}

func runDeploy(cmd *cobra.Command, args []string) error {
	defs, err := loadManifest()
	if err != nil {
		return err
	}

	force, _ := cmd.Flags().GetBool("force")
	skipChecks, _ := cmd.Flags().GetBool("skip-checks")
	skipHealth, _ := cmd.Flags().GetBool("skip-healthchecks")
	envSets, _ := cmd.Flags().GetStringArray("environment")
	opts := deploy.Options{
		ForceDeploy:      force,
		SkipChecks:       skipChecks,
		SkipHealthchecks: skipHealth,
		EnvironmentSets:  envSets,
	}

	engine := deploy.New(deploy.Config{
		Backend: client.New(viper.GetString("daemon_url")),
		Out:     cmd.OutOrStdout(),
	})

	_, err = engine.Deploy(cmd.Context(), defs, args, opts)
	return err
}

func loadManifest() ([]module.Definition, error) {
	path := viper.GetString("manifest")
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read manifest %q: %w", path, err)
	}
	return module.ParseManifest(content)
}
