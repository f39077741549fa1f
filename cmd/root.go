package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/alexnaranjo95/metrics-lab-speed-server-sub002/internal/config"
	"github.com/alexnaranjo95/metrics-lab-speed-server-sub002/internal/logging"
)

var agentConfig *config.Config

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "speedagent",
	Short: "Speedagent - closed-loop website performance optimization",
	Long: `Speedagent records a behavioral and visual baseline of a live site,
builds an optimized copy, deploys it, and verifies the result against the
baseline along four independent dimensions. Failed iterations adjust the
optimization settings and retry, bounded by an iteration ceiling.`,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().BoolP("verbose", "V", false, "verbose output")
	rootCmd.PersistentFlags().StringP("project", "p", ".", "project directory")
}

// initConfig sets up logging and loads configuration.
func initConfig() {
	projectDir, _ := rootCmd.PersistentFlags().GetString("project")

	if err := logging.Initialize(projectDir); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: Failed to initialize logging: %v\n", err)
	} else {
		logging.RedirectStandardLog()
	}

	if verbose, _ := rootCmd.PersistentFlags().GetBool("verbose"); verbose {
		logging.GetLogger().SetLevel(logging.DEBUG)
	}

	loaded, err := config.NewLoader(projectDir).Load()
	if err != nil {
		logging.Warn("Failed to load config, using defaults: %v", err)
		loaded = &config.Config{}
		loaded.ApplyDefaults()
	}
	agentConfig = loaded
}
