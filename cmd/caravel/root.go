package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// Version information (set by build)
var (
	Version   = "dev"
	BuildTime = "unknown"
)

var rootCmd = &cobra.Command{
	Use:   "caravel",
	Short: "Deploy and operate modules against a caraveld daemon",
	Long: `Caravel reads a module manifest and rolls the selected modules out
against a caraveld daemon, in dependency order, with pre-deploy checks
and post-deploy health confirmation.`,
	SilenceUsage:  true,
	SilenceErrors: false,
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().String("daemon-url", "http://localhost:7757", "Base URL of the caraveld daemon")
	rootCmd.PersistentFlags().StringP("manifest", "m", "caravel.yaml", "Path to the module manifest")
	viper.BindPFlag("daemon_url", rootCmd.PersistentFlags().Lookup("daemon-url"))
	viper.BindPFlag("manifest", rootCmd.PersistentFlags().Lookup("manifest"))

	rootCmd.AddCommand(deployCmd)
	rootCmd.AddCommand(stopCmd)
	rootCmd.AddCommand(restartCmd)
	rootCmd.AddCommand(psCmd)
	rootCmd.AddCommand(execCmd)
	rootCmd.AddCommand(logsCmd)
	rootCmd.AddCommand(historyCmd)
	rootCmd.AddCommand(versionCmd)
}

// initConfig loads ~/.caravel.yaml (when present) and CARAVEL_* env vars.
func initConfig() {
	if home, err := os.UserHomeDir(); err == nil {
		viper.AddConfigPath(home)
		viper.SetConfigName(".caravel")
		viper.SetConfigType("yaml")
	}

	viper.SetEnvPrefix("CARAVEL")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()

	// Missing config file is fine; flags and defaults cover everything.
	_ = viper.ReadInConfig()
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the caravel version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("caravel %s (built %s)\n", Version, BuildTime)
	},
}
