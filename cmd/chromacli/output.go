package main

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/matsen/chromacli/internal/vectordb"
)

// ErrorResponse is a JSON error response.
type ErrorResponse struct {
	Error string `json:"error"`
}

// StatusResponse is the response for commands that only report success.
type StatusResponse struct {
	Status     string `json:"status"`
	Collection string `json:"collection"`
}

// CollectionListResponse is the response for collection list.
type CollectionListResponse struct {
	Collections []vectordb.Collection `json:"collections"`
}

// QueryResponse is the response for document query.
type QueryResponse struct {
	Collection string                 `json:"collection"`
	Results    []vectordb.QueryResult `json:"results"`
}

// DeleteResponse is the response for document delete.
type DeleteResponse struct {
	Collection string   `json:"collection"`
	Deleted    int      `json:"deleted"`
	IDs        []string `json:"ids"`
}

// DocumentsResponse is the response for document get-all.
type DocumentsResponse struct {
	Collection string              `json:"collection"`
	Count      int                 `json:"count"`
	Documents  []vectordb.Document `json:"documents"`
}

// ArchiveResponse is the response for db export and db import.
type ArchiveResponse struct {
	File        string   `json:"file"`
	Collections []string `json:"collections"`
}

// outputJSON writes a value as formatted JSON to w.
func outputJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// reportError prints err as "Error: ..." on stderr, or as an ErrorResponse
// on stdout when --json is set.
func reportError(stderr, stdout io.Writer, err error) {
	if jsonOutput {
		if encErr := outputJSON(stdout, ErrorResponse{Error: err.Error()}); encErr == nil {
			return
		}
	}
	fmt.Fprintf(stderr, "Error: %s\n", err)
}

// formatMetadata renders metadata as sorted key=value pairs.
func formatMetadata(m map[string]string) string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = k + "=" + m[k]
	}
	return strings.Join(parts, ", ")
}

func printCollections(w io.Writer, cols []vectordb.Collection) {
	if len(cols) == 0 {
		fmt.Fprintln(w, "No collections found.")
		return
	}
	fmt.Fprintln(w, "Available Collections:")
	for _, c := range cols {
		fmt.Fprintf(w, "- %s (%d documents)\n", c.Name, c.Count)
	}
}

func printQueryResults(w io.Writer, collection string, results []vectordb.QueryResult) {
	fmt.Fprintf(w, "Query results from collection '%s':\n", collection)
	for _, r := range results {
		fmt.Fprintf(w, "\n--- Query: '%s' ---\n", r.Query)
		if len(r.Matches) == 0 {
			fmt.Fprintln(w, "  No matching documents found.")
			continue
		}
		for j, m := range r.Matches {
			fmt.Fprintf(w, "  Result %d (ID: %s):\n", j+1, m.ID)
			fmt.Fprintf(w, "    Document: %s\n", m.Text)
			fmt.Fprintf(w, "    Distance: %.4f\n", m.Distance)
			if len(m.Metadata) > 0 {
				fmt.Fprintf(w, "    Metadata: %s\n", formatMetadata(m.Metadata))
			}
		}
	}
}

func printDeleted(w io.Writer, collection string, ids []string) {
	if len(ids) == 0 {
		fmt.Fprintf(w, "No documents matched the criteria for deletion in collection '%s'.\n", collection)
		return
	}
	fmt.Fprintf(w, "Deleted %d document(s) from collection '%s'.\n", len(ids), collection)
	fmt.Fprintf(w, "Deleted IDs: %s\n", strings.Join(ids, ", "))
}

func printDocuments(w io.Writer, collection string, docs []vectordb.Document) {
	if len(docs) == 0 {
		fmt.Fprintf(w, "No documents found in collection '%s'.\n", collection)
		return
	}
	fmt.Fprintf(w, "Retrieved %d documents from collection '%s':\n", len(docs), collection)
	for _, d := range docs {
		fmt.Fprintf(w, "\n--- Document ID: %s ---\n", d.ID)
		fmt.Fprintf(w, "  Document: %s\n", d.Text)
		if len(d.Metadata) > 0 {
			fmt.Fprintf(w, "  Metadata: %s\n", formatMetadata(d.Metadata))
		}
	}
}
