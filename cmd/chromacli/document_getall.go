package main

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/matsen/chromacli/internal/vectordb"
)

var (
	getAllLimit  int
	getAllOffset int
)

var documentGetAllCmd = &cobra.Command{
	Use:               "get-all [collection]",
	Aliases:           []string{"list"},
	Short:             "Retrieve all documents from a collection",
	Long:              `Retrieve the documents of a collection sorted by id, optionally paged with --limit and --offset.`,
	Args:              usageArgs(cobra.MaximumNArgs(1)),
	ValidArgsFunction: completeCollectionNames,
	RunE:              runDocumentGetAll,
}

func init() {
	documentCmd.AddCommand(documentGetAllCmd)
	addCollectionFlag(documentGetAllCmd)

	documentGetAllCmd.Flags().IntVar(&getAllLimit, "limit", 0, "Maximum number of documents to return (0 = all)")
	documentGetAllCmd.Flags().IntVar(&getAllOffset, "offset", 0, "Number of documents to skip")
}

func runDocumentGetAll(cmd *cobra.Command, args []string) error {
	name, err := resolveCollection(args)
	if err != nil {
		return err
	}
	if getAllLimit < 0 || getAllOffset < 0 {
		return usageErrorf("--limit and --offset must not be negative")
	}

	req := vectordb.GetRequest{Collection: name, Limit: getAllLimit, Offset: getAllOffset}

	return withClient(cmd, func(ctx context.Context, c vectordb.Client) error {
		docs, err := c.GetAll(ctx, req)
		if err != nil {
			return err
		}
		if jsonOutput {
			return outputJSON(cmd.OutOrStdout(), DocumentsResponse{Collection: name, Count: len(docs), Documents: docs})
		}
		printDocuments(cmd.OutOrStdout(), name, docs)
		return nil
	})
}
