package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/spacelift-io/flows-app-aws-resources/internal/store"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the tracked state of declared resources",
	Long: `Prints the stored reconciliation state of every declared resource.

This reads only the state store; AWS is not contacted, so the output
reflects the last completed sync rather than live reality.`,
	RunE: runStatus,
}

func runStatus(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	st, err := store.Open(ctx, cfg.Store)
	if err != nil {
		return fmt.Errorf("opening state store: %w", err)
	}
	defer st.Close()

	if len(cfg.Resources) == 0 {
		fmt.Println("No resources declared.")
		return nil
	}

	fmt.Printf("%-20s %-36s %-18s %-6s %s\n", "NAME", "TYPE", "STATUS", "DRIFT", "IDENTIFIER")
	for _, rc := range cfg.Resources {
		inst := cfg.Instance(rc)
		if err := store.LoadInstance(ctx, st.Bucket(rc.Name), &inst); err != nil {
			return fmt.Errorf("loading %s: %w", rc.Name, err)
		}

		drift := "no"
		if inst.Drifted {
			drift = "yes"
		}
		identifier := inst.Identifier
		if identifier == "" {
			identifier = "-"
		}
		fmt.Printf("%-20s %-36s %-18s %-6s %s\n", rc.Name, rc.Type, inst.Status, drift, identifier)
	}
	return nil
}
