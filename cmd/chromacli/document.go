package main

import (
	"github.com/spf13/cobra"
)

// collectionName is shared by every document subcommand.
var collectionName string

var documentCmd = &cobra.Command{
	Use:   "document",
	Short: "Manage documents within a collection",
	Long: `Add, query, delete and list documents within a collection.

Every subcommand takes the collection either as --collection-name or as its
first positional argument.`,
	Args: usageArgs(cobra.NoArgs),
	RunE: runGroup,
}

func init() {
	rootCmd.AddCommand(documentCmd)
}

// addCollectionFlag registers --collection-name on a document subcommand.
func addCollectionFlag(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&collectionName, "collection-name", "c", "", "Name of the collection")
	_ = cmd.RegisterFlagCompletionFunc("collection-name", completeCollectionNames)
}

// resolveCollection returns the collection named by --collection-name or the
// positional argument. Giving two different names is an error.
func resolveCollection(args []string) (string, error) {
	positional := ""
	if len(args) > 0 {
		positional = args[0]
	}
	switch {
	case collectionName != "" && positional != "" && collectionName != positional:
		return "", usageErrorf("collection given twice: --collection-name %q and argument %q", collectionName, positional)
	case collectionName != "":
		return collectionName, nil
	case positional != "":
		return positional, nil
	default:
		return "", usageErrorf("a collection is required: pass --collection-name or a positional argument")
	}
}
