package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/arah-ai/arah/internal/adapters/driven/ingest"
	"github.com/arah-ai/arah/internal/logger"
)

var docsCmd = &cobra.Command{
	Use:     "docs",
	Aliases: []string{"document"},
	Short:   "Manage a user's documents",
	Long:    `List, import or delete the documents arah answers from.`,
}

var docsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List the user's documents",
	Args:  cobra.NoArgs,
	RunE:  runDocsList,
}

var docsDeleteCmd = &cobra.Command{
	Use:   "delete [doc-id]",
	Short: "Delete a document and its chunks",
	Args:  cobra.ExactArgs(1),
	RunE:  runDocsDelete,
}

var docsListJSON bool

func init() {
	docsListCmd.Flags().BoolVar(&docsListJSON, "json", false, "output documents as JSON")

	docsCmd.AddCommand(docsListCmd)
	docsCmd.AddCommand(docsDeleteCmd)
	rootCmd.AddCommand(docsCmd)
}

func runDocsList(cmd *cobra.Command, _ []string) error {
	if documentService == nil {
		return errors.New("document service not configured")
	}
	user, err := requireUser()
	if err != nil {
		return err
	}

	docs, err := documentService.List(cmd.Context(), user)
	if err != nil {
		return fmt.Errorf("failed to list documents: %w", err)
	}

	if docsListJSON {
		data, err := json.MarshalIndent(docs, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal documents: %w", err)
		}
		cmd.Println(string(data))
		return nil
	}

	if len(docs) == 0 {
		cmd.Printf("No documents found for user: %s\n", user)
		return nil
	}

	cmd.Printf("Documents for %s:\n\n", user)
	for i := range docs {
		cmd.Printf("  %s\n", docs[i].ID)
		cmd.Printf("    Title: %s\n", docs[i].Title)
		cmd.Printf("    Type: %s\n", docs[i].DocType)
		cmd.Printf("    Chunks: %d\n", docs[i].ChunkCount)
		cmd.Println()
	}
	cmd.Printf("Total: %d documents\n", len(docs))
	return nil
}

func runDocsDelete(cmd *cobra.Command, args []string) error {
	if documentService == nil {
		return errors.New("document service not configured")
	}
	user, err := requireUser()
	if err != nil {
		return err
	}

	docID := args[0]
	if err := documentService.Delete(cmd.Context(), user, docID); err != nil {
		return fmt.Errorf("failed to delete document: %w", err)
	}
	cmd.Printf("Deleted document: %s\n", docID)
	return nil
}

var ingestWatch bool

var ingestCmd = &cobra.Command{
	Use:   "ingest [path]",
	Short: "Import chunk exports",
	Long: `Imports JSONL chunk exports produced by the document ingestion pipeline.

PATH may be a single .jsonl file or a directory of them. With --watch the
directory is imported once and then re-imported whenever an export is
written, until interrupted.`,
	Args: cobra.ExactArgs(1),
	RunE: runIngest,
}

func init() {
	ingestCmd.Flags().BoolVarP(&ingestWatch, "watch", "w", false, "keep watching the directory for new exports")
	rootCmd.AddCommand(ingestCmd)
}

func runIngest(cmd *cobra.Command, args []string) error {
	if documentService == nil {
		return errors.New("document service not configured")
	}
	path := args[0]
	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", path, err)
	}

	report := func(r ingest.Result) {
		if r.Err != nil {
			cmd.PrintErrf("  %s: %v\n", r.Path, r.Err)
			return
		}
		cmd.Printf("  %s: %d chunks\n", r.Path, r.Chunks)
	}

	if !info.IsDir() {
		if ingestWatch {
			return errors.New("--watch needs a directory")
		}
		r := ingest.LoadFile(cmd.Context(), documentService, path)
		report(r)
		return r.Err
	}

	if ingestWatch {
		logger.Info("watching %s", path)
		done, err := ingest.Watch(cmd.Context(), documentService, path, ingest.WatchOptions{OnResult: report})
		if err != nil {
			return fmt.Errorf("failed to watch %s: %w", path, err)
		}
		cmd.Printf("Watching %s for exports (Ctrl+C to stop)\n", path)
		<-done
		return nil
	}

	results, err := ingest.LoadDir(cmd.Context(), documentService, path)
	if err != nil {
		return fmt.Errorf("failed to import %s: %w", path, err)
	}
	var failed []string
	total := 0
	for _, r := range results {
		report(r)
		if r.Err != nil {
			failed = append(failed, r.Path)
			continue
		}
		total += r.Chunks
	}
	cmd.Printf("Imported %d chunks from %d files\n", total, len(results)-len(failed))
	if len(failed) > 0 {
		return fmt.Errorf("failed to import %d files: %s", len(failed), strings.Join(failed, ", "))
	}
	return nil
}
