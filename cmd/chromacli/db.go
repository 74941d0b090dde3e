package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/matsen/chromacli/internal/vectordb"
)

var dbCompress bool

var dbCmd = &cobra.Command{
	Use:   "db",
	Short: "Export or import the whole local database",
	Long: `Dump every collection of the local store into one file, or restore one.

Only the embedded store supports this; a Chroma server has its own backups.`,
	Args: usageArgs(cobra.NoArgs),
	RunE: runGroup,
}

var dbExportCmd = &cobra.Command{
	Use:   "export <file>",
	Short: "Write every collection to a file",
	Args:  usageArgs(cobra.ExactArgs(1)),
	RunE:  runDBExport,
}

var dbImportCmd = &cobra.Command{
	Use:   "import <file>",
	Short: "Load collections from an export file, replacing same-named ones",
	Args:  usageArgs(cobra.ExactArgs(1)),
	RunE:  runDBImport,
}

func init() {
	rootCmd.AddCommand(dbCmd)
	dbCmd.AddCommand(dbExportCmd, dbImportCmd)

	dbExportCmd.Flags().BoolVar(&dbCompress, "compress", false, "Gzip the export file")
}

func archiver(c vectordb.Client) (vectordb.Archiver, error) {
	a, ok := c.(vectordb.Archiver)
	if !ok {
		return nil, fmt.Errorf("db export/import: %w", vectordb.ErrUnsupported)
	}
	return a, nil
}

func runDBExport(cmd *cobra.Command, args []string) error {
	file := args[0]
	return withClient(cmd, func(ctx context.Context, c vectordb.Client) error {
		a, err := archiver(c)
		if err != nil {
			return err
		}
		names, err := a.Export(ctx, file, dbCompress)
		if err != nil {
			return err
		}
		return printArchive(cmd, "Exported", file, names)
	})
}

func runDBImport(cmd *cobra.Command, args []string) error {
	file := args[0]
	return withClient(cmd, func(ctx context.Context, c vectordb.Client) error {
		a, err := archiver(c)
		if err != nil {
			return err
		}
		names, err := a.Import(ctx, file)
		if err != nil {
			return err
		}
		return printArchive(cmd, "Imported", file, names)
	})
}

func printArchive(cmd *cobra.Command, verb, file string, names []string) error {
	if jsonOutput {
		return outputJSON(cmd.OutOrStdout(), ArchiveResponse{File: file, Collections: names})
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%s %d collection(s) via %s", verb, len(names), file)
	if len(names) > 0 {
		fmt.Fprintf(cmd.OutOrStdout(), ": %s", strings.Join(names, ", "))
	}
	fmt.Fprintln(cmd.OutOrStdout())
	return nil
}
