// CivReply answers residents' questions from council documents, with
// per-council vector indexes, plan-based quotas, and cited sources.
package main

import (
	"log"
	"os"

	"civreply/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		log.Printf("Error: %v", err)
		os.Exit(1)
	}
}
