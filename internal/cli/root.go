// Package cli wires the application together and exposes it as a set of
// cobra commands.
package cli

import (
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "civreply",
	Short: "Council document question answering",
	Long: `CivReply answers residents' questions from each council's own documents.
Documents are chunked, embedded, and stored in a per-council vector index;
answers are generated only from retrieved extracts and cite their sources.`,
	SilenceUsage: true,
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}
