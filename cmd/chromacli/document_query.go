package main

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/matsen/chromacli/internal/filter"
	"github.com/matsen/chromacli/internal/vectordb"
)

var (
	queryTexts         []string
	queryNResults      int
	queryWhere         []string
	queryWhereDocument string
)

var documentQueryCmd = &cobra.Command{
	Use:   "query [collection]",
	Short: "Query documents by similarity",
	Long: `Return the documents nearest to each --query-text, closest first.

--where restricts matches by metadata equality. It takes key=value
(repeatable, all must hold) or a JSON object:
  --where 'author=John Doe'
  --where '{"author": "John Doe"}'
  --where '{"$and": [{"author": "John"}, {"year": {"$eq": "2023"}}]}'

--where-document restricts matches by content:
  --where-document '{"$contains": "keyword"}'
  --where-document '{"$not_contains": "draft"}'

Examples:
  chromacli document query --collection-name notes --query-text "vector search"
  chromacli document query notes --query-text "a" --query-text "b" --n-results 3`,
	Args:              usageArgs(cobra.MaximumNArgs(1)),
	ValidArgsFunction: completeCollectionNames,
	RunE:              runDocumentQuery,
}

func init() {
	documentCmd.AddCommand(documentQueryCmd)
	addCollectionFlag(documentQueryCmd)

	f := documentQueryCmd.Flags()
	f.StringArrayVar(&queryTexts, "query-text", nil, "Text to search for (repeatable, required)")
	f.IntVarP(&queryNResults, "n-results", "n", vectordb.DefaultNResults, "Number of results per query text")
	f.StringArrayVar(&queryWhere, "where", nil, "Metadata filter: key=value or JSON (repeatable)")
	f.StringVar(&queryWhereDocument, "where-document", "", `Content filter as JSON, e.g. '{"$contains": "keyword"}'`)
}

func runDocumentQuery(cmd *cobra.Command, args []string) error {
	name, err := resolveCollection(args)
	if err != nil {
		return err
	}
	if len(queryTexts) == 0 {
		return usageErrorf("at least one --query-text is required")
	}
	if queryNResults <= 0 {
		return usageErrorf("--n-results must be positive, got %d", queryNResults)
	}
	where, err := filter.ParseWhere(queryWhere)
	if err != nil {
		return err
	}
	whereDoc, err := filter.ParseWhereDocument(queryWhereDocument)
	if err != nil {
		return err
	}

	req := vectordb.QueryRequest{
		Collection:    name,
		QueryTexts:    queryTexts,
		NResults:      queryNResults,
		Where:         where,
		WhereDocument: whereDoc,
	}

	return withClient(cmd, func(ctx context.Context, c vectordb.Client) error {
		results, err := c.Query(ctx, req)
		if err != nil {
			return err
		}
		if jsonOutput {
			return outputJSON(cmd.OutOrStdout(), QueryResponse{Collection: name, Results: results})
		}
		printQueryResults(cmd.OutOrStdout(), name, results)
		return nil
	})
}
