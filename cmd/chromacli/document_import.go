package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/matsen/chromacli/internal/loader"
	"github.com/matsen/chromacli/internal/vectordb"
)

var importFile string

var documentImportCmd = &cobra.Command{
	Use:   "import [collection]",
	Short: "Add documents from a JSONL file",
	Long: `Add every document in a JSONL file in one request.

Each line is an object with "text" and optional "id" and "metadata":
  {"id": "a", "text": "first document", "metadata": {"author": "John Doe"}}
  {"id": "b", "text": "second document"}

Ids are all-or-nothing: give every line an id, or none to generate them.`,
	Args:              usageArgs(cobra.MaximumNArgs(1)),
	ValidArgsFunction: completeCollectionNames,
	RunE:              runDocumentImport,
}

func init() {
	documentCmd.AddCommand(documentImportCmd)
	addCollectionFlag(documentImportCmd)

	documentImportCmd.Flags().StringVarP(&importFile, "file", "f", "", "JSONL file to import (required)")
}

func runDocumentImport(cmd *cobra.Command, args []string) error {
	name, err := resolveCollection(args)
	if err != nil {
		return err
	}
	if importFile == "" {
		return usageErrorf("--file is required")
	}

	ids, texts, metas, err := loader.ReadJSONL(importFile)
	if err != nil {
		return usageError{err}
	}
	if len(texts) == 0 {
		return usageErrorf("%s contains no documents", importFile)
	}
	logger.Debug("read import file", zap.String("file", importFile), zap.Int("documents", len(texts)))

	req := vectordb.AddRequest{Collection: name, IDs: ids, Texts: texts, Metadatas: metas}

	return withClient(cmd, func(ctx context.Context, c vectordb.Client) error {
		res, err := c.Add(ctx, req)
		if err != nil {
			return err
		}
		if jsonOutput {
			return outputJSON(cmd.OutOrStdout(), res)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Added %d document(s) to collection '%s'.\n", len(res.IDs), res.Collection)
		return nil
	})
}
