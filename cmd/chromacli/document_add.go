package main

import (
	"context"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/matsen/chromacli/internal/filter"
	"github.com/matsen/chromacli/internal/loader"
	"github.com/matsen/chromacli/internal/vectordb"
)

var (
	addTexts        []string
	addMetadata     []string
	addIDs          []string
	addFiles        []string
	addChunkSize    int
	addChunkOverlap int
)

var documentAddCmd = &cobra.Command{
	Use:   "add [collection]",
	Short: "Add documents to a collection",
	Long: `Add documents to a collection, creating the collection if needed.

Each --text is one document. --file reads a text, Markdown or PDF file as
one more document, or as several when --chunk-size is set. File documents
get "source" (and with chunking "chunk") metadata unless already set.

Ids:
  --id pairs with the documents in order; the counts must match.
  Without --id, random UUIDs are generated.

Metadata (key=value, split at the first '='):
  one --metadata per document   entry i belongs to document i
  a single --metadata           applies to every document
  a single document             all --metadata entries are merged

Examples:
  chromacli document add --collection-name notes --text "first" --text "second"
  chromacli document add notes --text "hello" --id greeting --metadata 'author=John Doe'
  chromacli document add notes --file paper.pdf --chunk-size 1000 --chunk-overlap 100`,
	Args:              usageArgs(cobra.MaximumNArgs(1)),
	ValidArgsFunction: completeCollectionNames,
	RunE:              runDocumentAdd,
}

func init() {
	documentCmd.AddCommand(documentAddCmd)
	addCollectionFlag(documentAddCmd)

	f := documentAddCmd.Flags()
	f.StringArrayVar(&addTexts, "text", nil, "Document text (repeatable)")
	f.StringArrayVar(&addMetadata, "metadata", nil, "Document metadata as key=value (repeatable)")
	f.StringArrayVar(&addIDs, "id", nil, "Document id, paired with documents in order (repeatable)")
	f.StringArrayVar(&addFiles, "file", nil, "Read a document from a text, Markdown or PDF file (repeatable)")
	f.IntVar(&addChunkSize, "chunk-size", 0, "Split --file documents into chunks of at most this many characters (0 = whole file)")
	f.IntVar(&addChunkOverlap, "chunk-overlap", 0, "Characters shared between neighbouring chunks")
}

func runDocumentAdd(cmd *cobra.Command, args []string) error {
	name, err := resolveCollection(args)
	if err != nil {
		return err
	}
	req, err := buildAddRequest(name)
	if err != nil {
		return err
	}

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

// buildAddRequest validates the add flags and assembles the request. It
// fails before any client call when the counts do not line up.
func buildAddRequest(name string) (vectordb.AddRequest, error) {
	if addChunkSize < 0 || addChunkOverlap < 0 {
		return vectordb.AddRequest{}, usageErrorf("--chunk-size and --chunk-overlap must not be negative")
	}

	texts := append([]string{}, addTexts...)
	pieces, err := loader.LoadFiles(addFiles, addChunkSize, addChunkOverlap)
	if err != nil {
		return vectordb.AddRequest{}, err
	}
	for _, p := range pieces {
		texts = append(texts, p.Text)
	}

	if len(texts) == 0 {
		return vectordb.AddRequest{}, usageErrorf("at least one --text or --file is required")
	}
	if len(addIDs) > 0 && len(addIDs) != len(texts) {
		return vectordb.AddRequest{}, usageErrorf("got %d --id values for %d documents; counts must match", len(addIDs), len(texts))
	}

	metas, skipped, err := filter.AssignMetadata(addMetadata, len(texts))
	if err != nil {
		return vectordb.AddRequest{}, usageError{err}
	}
	warnSkipped(skipped)

	if len(pieces) > 0 {
		if metas == nil {
			metas = make([]map[string]string, len(texts))
		}
		offset := len(addTexts)
		for i, p := range pieces {
			m := metas[offset+i]
			if m == nil {
				m = make(map[string]string)
				metas[offset+i] = m
			}
			if _, ok := m["source"]; !ok {
				m["source"] = p.Source
			}
			if _, ok := m["chunk"]; !ok && addChunkSize > 0 {
				m["chunk"] = strconv.Itoa(p.Chunk)
			}
		}
		logger.Debug("loaded files", zap.Int("files", len(addFiles)), zap.Int("documents", len(pieces)))
	}

	return vectordb.AddRequest{
		Collection: name,
		IDs:        addIDs,
		Texts:      texts,
		Metadatas:  metas,
	}, nil
}
