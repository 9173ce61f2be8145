package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/spacelift-io/flows-app-aws-resources/internal/resource"
)

var drainAutoApprove bool

var drainCmd = &cobra.Command{
	Use:   "drain [resource...]",
	Short: "Delete managed resources",
	Long: `Deletes the remote resources behind the named declarations and
discards their state records.

This command is the inverse of 'awsres sync'. Resources are drained in
reverse declaration order. Without arguments every declared resource is
drained.`,
	RunE: runDrain,
}

func init() {
	drainCmd.Flags().BoolVar(&drainAutoApprove, "auto-approve", false, "Skip interactive approval before deleting")
}

func runDrain(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	app, err := buildApp(ctx)
	if err != nil {
		return err
	}
	defer app.Close()

	targets, err := selectResources(app.cfg, args)
	if err != nil {
		return err
	}
	if len(targets) == 0 {
		fmt.Println("No resources declared.")
		return nil
	}

	if !drainAutoApprove {
		fmt.Printf("This will delete %d resource(s). Continue? (y/n): ", len(targets))
		var response string
		fmt.Scanln(&response)
		if response != "y" && response != "yes" {
			fmt.Println("Drain cancelled.")
			return nil
		}
	}

	failed := 0
	for i := len(targets) - 1; i >= 0; i-- {
		rc := targets[i]
		fmt.Printf("Draining %s (%s)... ", rc.Name, rc.Type)

		_, res, err := app.sched.RunDrain(ctx, rc.Name, app.cfg.Instance(rc))
		if err != nil {
			fmt.Println("ERROR")
			return fmt.Errorf("draining %s: %w", rc.Name, err)
		}

		fmt.Println(string(res.Status))
		if res.Description != "" {
			fmt.Printf("  %s\n", res.Description)
		}
		if res.Status == resource.StatusFailed {
			failed++
		}
	}

	if failed > 0 {
		return fmt.Errorf("%d of %d resources failed to drain", failed, len(targets))
	}
	fmt.Println("\nDrain complete.")
	return nil
}
