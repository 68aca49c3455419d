package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"civreply/internal/models"
)

var (
	quotaPlan   string
	quotaRecent int
)

var quotaCmd = &cobra.Command{
	Use:   "quota [council]",
	Short: "Show a council's query usage for the current month",
	Args:  cobra.ExactArgs(1),
	RunE:  runQuota,
}

func init() {
	quotaCmd.Flags().StringVar(&quotaPlan, "plan", string(models.PlanBasic), "plan whose limit to report against")
	quotaCmd.Flags().IntVar(&quotaRecent, "recent", 0, "also show the N most recent logged queries")
	rootCmd.AddCommand(quotaCmd)
}

func runQuota(cmd *cobra.Command, args []string) error {
	tenant := models.NormalizeTenantKey(args[0])
	if err := models.ValidateTenantKey(tenant); err != nil {
		return err
	}

	policy, ok := models.PolicyFor(models.Plan(quotaPlan))
	if !ok {
		return fmt.Errorf("unknown plan: %s", quotaPlan)
	}

	app, err := newApplication(cmd.Context())
	if err != nil {
		return err
	}
	defer app.Close()

	used, err := app.governor.Used(tenant)
	if err != nil {
		return fmt.Errorf("failed to read usage: %w", err)
	}

	if policy.Unlimited() {
		cmd.Printf("%s: %d queries this month (%s plan, unlimited)\n", tenant, used, quotaPlan)
	} else {
		cmd.Printf("%s: %d of %d queries this month (%s plan)\n", tenant, used, policy.QueryLimit, quotaPlan)
	}

	if quotaRecent > 0 {
		records, err := app.governor.RecentQueries(tenant, quotaRecent)
		if err != nil {
			return fmt.Errorf("failed to read query log: %w", err)
		}
		if len(records) > 0 {
			cmd.Println()
			for _, rec := range records {
				cmd.Printf("  %s  [%s]  %s\n", rec.CreatedAt.Format("2006-01-02 15:04"), rec.Role, rec.Question)
			}
		}
	}
	return nil
}
