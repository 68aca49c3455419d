package cli

import (
	"github.com/spf13/cobra"

	"civreply/internal/models"
)

var councilsCmd = &cobra.Command{
	Use:   "councils",
	Short: "List the configured councils",
	RunE:  runCouncils,
}

func init() {
	rootCmd.AddCommand(councilsCmd)
}

func runCouncils(cmd *cobra.Command, _ []string) error {
	for _, tenant := range models.DefaultCouncils() {
		policy, _ := models.PolicyFor(tenant.Plan)
		cmd.Printf("  %-14s %-14s %s plan (%s)\n", tenant.Key, tenant.Name, tenant.Plan, policy.Price)
	}
	return nil
}
