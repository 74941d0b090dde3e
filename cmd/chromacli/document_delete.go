package main

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/matsen/chromacli/internal/filter"
	"github.com/matsen/chromacli/internal/vectordb"
)

var (
	deleteIDs           []string
	deleteWhere         []string
	deleteWhereDocument string
)

var documentDeleteCmd = &cobra.Command{
	Use:   "delete [collection]",
	Short: "Delete documents from a collection",
	Long: `Delete the documents matching every given criterion.

At least one of --id, --where or --where-document is required. Filters take
the same forms as in 'document query'.

Examples:
  chromacli document delete --collection-name notes --id a --id b
  chromacli document delete notes --where 'author=John Doe'
  chromacli document delete notes --where-document '{"$contains": "obsolete"}'`,
	Args:              usageArgs(cobra.MaximumNArgs(1)),
	ValidArgsFunction: completeCollectionNames,
	RunE:              runDocumentDelete,
}

func init() {
	documentCmd.AddCommand(documentDeleteCmd)
	addCollectionFlag(documentDeleteCmd)

	f := documentDeleteCmd.Flags()
	f.StringArrayVar(&deleteIDs, "id", nil, "Id of a document to delete (repeatable)")
	f.StringArrayVar(&deleteWhere, "where", nil, "Metadata filter: key=value or JSON (repeatable)")
	f.StringVar(&deleteWhereDocument, "where-document", "", `Content filter as JSON, e.g. '{"$contains": "keyword"}'`)
}

func runDocumentDelete(cmd *cobra.Command, args []string) error {
	name, err := resolveCollection(args)
	if err != nil {
		return err
	}
	where, err := filter.ParseWhere(deleteWhere)
	if err != nil {
		return err
	}
	whereDoc, err := filter.ParseWhereDocument(deleteWhereDocument)
	if err != nil {
		return err
	}
	if len(deleteIDs) == 0 && len(where) == 0 && len(whereDoc) == 0 {
		return usageErrorf("no ids or filters given for deletion; specify at least one of --id, --where or --where-document")
	}

	req := vectordb.DeleteRequest{
		Collection:    name,
		IDs:           deleteIDs,
		Where:         where,
		WhereDocument: whereDoc,
	}

	return withClient(cmd, func(ctx context.Context, c vectordb.Client) error {
		ids, err := c.Delete(ctx, req)
		if err != nil {
			return err
		}
		if jsonOutput {
			return outputJSON(cmd.OutOrStdout(), DeleteResponse{Collection: name, Deleted: len(ids), IDs: ids})
		}
		printDeleted(cmd.OutOrStdout(), name, ids)
		return nil
	})
}
