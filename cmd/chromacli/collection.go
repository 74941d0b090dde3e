package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/term"

	"github.com/matsen/chromacli/internal/filter"
	"github.com/matsen/chromacli/internal/vectordb"
)

var (
	collectionMetadata []string
	collectionYes      bool
)

// isInteractive reports whether confirmation prompts can be shown.
var isInteractive = func() bool {
	return term.IsTerminal(int(os.Stdin.Fd()))
}

var collectionCmd = &cobra.Command{
	Use:   "collection",
	Short: "Manage collections",
	Args:  usageArgs(cobra.NoArgs),
	RunE:  runGroup,
}

var collectionCreateCmd = &cobra.Command{
	Use:   "create <name>",
	Short: "Create a new collection",
	Long: `Create a new, empty collection.

Collection names are 3-63 characters of [a-zA-Z0-9._-] and start and end
with a letter or digit. Creating a collection that already exists fails.

Examples:
  chromacli collection create notes
  chromacli collection create papers --metadata owner=lab --metadata topic=biology`,
	Args: usageArgs(cobra.ExactArgs(1)),
	RunE: runCollectionCreate,
}

var collectionListCmd = &cobra.Command{
	Use:   "list",
	Short: "List all collections",
	Args:  usageArgs(cobra.NoArgs),
	RunE:  runCollectionList,
}

var collectionDeleteCmd = &cobra.Command{
	Use:               "delete <name>",
	Short:             "Delete a collection and all of its documents",
	Args:              usageArgs(cobra.ExactArgs(1)),
	ValidArgsFunction: completeCollectionNames,
	RunE:              runCollectionDelete,
}

func init() {
	rootCmd.AddCommand(collectionCmd)
	collectionCmd.AddCommand(collectionCreateCmd, collectionListCmd, collectionDeleteCmd)

	collectionCreateCmd.Flags().StringArrayVar(&collectionMetadata, "metadata", nil, "Collection metadata as key=value (repeatable)")
	collectionDeleteCmd.Flags().BoolVarP(&collectionYes, "yes", "y", false, "Delete without asking for confirmation")
}

func runCollectionCreate(cmd *cobra.Command, args []string) error {
	name := args[0]
	meta, skipped := filter.ParseMetadata(collectionMetadata)
	warnSkipped(skipped)

	return withClient(cmd, func(ctx context.Context, c vectordb.Client) error {
		col, err := c.CreateCollection(ctx, name, meta)
		if err != nil {
			return err
		}
		if jsonOutput {
			return outputJSON(cmd.OutOrStdout(), col)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Collection '%s' created successfully.\n", col.Name)
		return nil
	})
}

func runCollectionList(cmd *cobra.Command, args []string) error {
	return withClient(cmd, func(ctx context.Context, c vectordb.Client) error {
		cols, err := c.ListCollections(ctx)
		if err != nil {
			return err
		}
		if jsonOutput {
			return outputJSON(cmd.OutOrStdout(), CollectionListResponse{Collections: cols})
		}
		printCollections(cmd.OutOrStdout(), cols)
		return nil
	})
}

func runCollectionDelete(cmd *cobra.Command, args []string) error {
	name := args[0]

	if !collectionYes && !jsonOutput && isInteractive() {
		fmt.Fprintf(cmd.ErrOrStderr(), "Delete collection '%s' and all of its documents? [y/N] ", name)
		answer, _ := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
		answer = strings.ToLower(strings.TrimSpace(answer))
		if answer != "y" && answer != "yes" {
			fmt.Fprintln(cmd.OutOrStdout(), "Aborted.")
			return nil
		}
	}

	return withClient(cmd, func(ctx context.Context, c vectordb.Client) error {
		if err := c.DeleteCollection(ctx, name); err != nil {
			return err
		}
		if jsonOutput {
			return outputJSON(cmd.OutOrStdout(), StatusResponse{Status: "deleted", Collection: name})
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Collection '%s' deleted successfully.\n", name)
		return nil
	})
}

// completeCollectionNames offers existing collection names for shell
// completion. Errors yield no suggestions.
func completeCollectionNames(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
	if len(args) > 0 {
		return nil, cobra.ShellCompDirectiveNoFileComp
	}
	client, err := newClient(cmd)
	if err != nil {
		return nil, cobra.ShellCompDirectiveNoFileComp
	}
	defer client.Close()

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	cols, err := client.ListCollections(ctx)
	if err != nil {
		return nil, cobra.ShellCompDirectiveNoFileComp
	}

	names := make([]string, 0, len(cols))
	for _, col := range cols {
		if strings.HasPrefix(col.Name, toComplete) {
			names = append(names, col.Name)
		}
	}
	return names, cobra.ShellCompDirectiveNoFileComp
}

// warnSkipped logs metadata items that were not key=value.
func warnSkipped(skipped []string) {
	for _, item := range skipped {
		logger.Warn("metadata item is not in key=value format and will be ignored", zap.String("item", item))
	}
}
