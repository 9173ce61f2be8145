package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/spacelift-io/flows-app-aws-resources/internal/resource"
)

var syncCmd = &cobra.Command{
	Use:   "sync [resource...]",
	Short: "Converge declared resources with AWS",
	Long: `Reconciles each declared resource against its live AWS state.

Missing resources are created, config changes are applied as minimal
patches, and drift is reported or corrected depending on the resource's
reconcile_on_drift setting. Without arguments every declared resource
is synced; otherwise only the named ones.`,
	RunE: runSync,
}

func runSync(cmd *cobra.Command, args []string) error {
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

	failed := 0
	for _, rc := range targets {
		fmt.Printf("Syncing %s (%s)... ", rc.Name, rc.Type)

		_, res, err := app.sched.RunSync(ctx, rc.Name, app.cfg.Instance(rc))
		if err != nil {
			fmt.Println("ERROR")
			return fmt.Errorf("syncing %s: %w", rc.Name, err)
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
		return fmt.Errorf("%d of %d resources failed to converge", failed, len(targets))
	}
	fmt.Println("\nSync complete.")
	return nil
}
