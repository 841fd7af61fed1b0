package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"
)

var indexWatch bool

var indexCmd = &cobra.Command{
	Use:   "index [path]",
	Short: "Index a file or directory",
	Long: `Loads, chunks and embeds the documents under path.
Indexing is idempotent: unchanged content is skipped, changed content
replaces its stale chunks. With --watch, re-indexes on file changes
until interrupted.`,
	Args: cobra.ExactArgs(1),
	RunE: runIndex,
}

func init() {
	indexCmd.Flags().BoolVarP(&indexWatch, "watch", "w", false, "re-index on file changes")
	rootCmd.AddCommand(indexCmd)
}

func runIndex(cmd *cobra.Command, args []string) error {
	if indexService == nil {
		return errors.New("index service not configured")
	}

	path := args[0]
	report, err := indexService.IndexPath(cmd.Context(), path)
	if err != nil {
		return fmt.Errorf("indexing failed: %w", err)
	}

	cmd.Printf("Indexed %d document(s): %d chunk(s) written, %d skipped, %d failed\n",
		report.Documents, report.ChunksWritten, report.ChunksSkipped, report.ChunksFailed)

	if !indexWatch {
		return nil
	}

	cmd.Printf("Watching %s for changes (ctrl-c to stop)\n", path)
	return indexService.Watch(cmd.Context(), path)
}
