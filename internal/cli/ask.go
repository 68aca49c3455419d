package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"civreply/internal/models"
)

var (
	askLanguage string
	askPlan     string
	askRole     string
)

var askCmd = &cobra.Command{
	Use:   "ask [council] [question]",
	Short: "Ask a question against a council's documents",
	Args:  cobra.ExactArgs(2),
	RunE:  runAsk,
}

func init() {
	askCmd.Flags().StringVar(&askLanguage, "lang", "", "translate the answer into this language code (e.g. vi, zh)")
	askCmd.Flags().StringVar(&askPlan, "plan", string(models.PlanBasic), "subscription plan to answer under")
	askCmd.Flags().StringVar(&askRole, "role", "resident", "role recorded in the usage log")
	rootCmd.AddCommand(askCmd)
}

func runAsk(cmd *cobra.Command, args []string) error {
	tenant := models.NormalizeTenantKey(args[0])
	question := args[1]

	app, err := newApplication(cmd.Context())
	if err != nil {
		return err
	}
	defer app.Close()

	resp, err := app.service.Ask(cmd.Context(), models.AskRequest{
		Tenant:   tenant,
		Question: question,
		Language: askLanguage,
		Plan:     models.Plan(askPlan),
		Role:     askRole,
	})
	if err != nil {
		return fmt.Errorf("ask failed: %w", err)
	}

	cmd.Println(resp.Answer)
	if resp.TranslatedAnswer != "" {
		cmd.Println()
		cmd.Println(resp.TranslatedAnswer)
	}
	if len(resp.Sources) > 0 {
		cmd.Println()
		cmd.Println("Sources:")
		for _, src := range resp.Sources {
			cmd.Printf("  %s, page %d\n", src.Document, src.Page)
		}
	}
	return nil
}
