package cli

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"civreply/internal/models"
)

var indexDocsDir string

var indexCmd = &cobra.Command{
	Use:   "index [council]",
	Short: "Rebuild a council's document index",
	Long: `Ingests every document in the council's directory, embeds the chunks, and
atomically replaces the council's index. The council may be given as a display
name ("Hobsons Bay") or key ("hobsons_bay").`,
	Args: cobra.ExactArgs(1),
	RunE: runIndex,
}

func init() {
	indexCmd.Flags().StringVar(&indexDocsDir, "docs", "", "document directory (default <docs_root>/<council>)")
	rootCmd.AddCommand(indexCmd)
}

func runIndex(cmd *cobra.Command, args []string) error {
	tenant := models.NormalizeTenantKey(args[0])
	if err := models.ValidateTenantKey(tenant); err != nil {
		return err
	}

	app, err := newApplication(cmd.Context())
	if err != nil {
		return err
	}
	defer app.Close()

	docsDir := indexDocsDir
	if docsDir == "" {
		docsDir = filepath.Join(app.cfg.Paths.DocsRoot, tenant)
	}

	cmd.Printf("Indexing %s from %s...\n", tenant, docsDir)
	chunks, err := app.builder.Rebuild(cmd.Context(), tenant, docsDir)
	if err != nil {
		return fmt.Errorf("rebuild failed: %w", err)
	}

	cmd.Printf("Indexed %d chunks for %s.\n", chunks, tenant)
	return nil
}
