package cli

import (
	"github.com/spf13/cobra"
)

var cfgFile string

var rootCmd = &cobra.Command{
	Use:   "awsres",
	Short: "Declarative AWS resource reconciliation",
	Long: `awsres drives declaratively configured AWS resources through the
Cloud Control API.

Resources are declared in a YAML file and tracked in a pluggable state
store. Every change funnels through the same create, poll and patch
loop, so any resource type in the CloudFormation registry works without
per-service code.

  • One-shot convergence with 'awsres sync'
  • Teardown with 'awsres drain'
  • Continuous drift detection with 'awsres watch'`,
	SilenceUsage: true,
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "awsres.yaml", "Path to the configuration file")

	rootCmd.AddCommand(syncCmd)
	rootCmd.AddCommand(drainCmd)
	rootCmd.AddCommand(watchCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(versionCmd)
}
