package main

import (
	"bytes"
	"context"
	"testing"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/matsen/chromacli/internal/vectordb"
)

// call records one client operation and its request.
type call struct {
	Op  string
	Req interface{}
}

// fakeClient records every call and returns canned results.
type fakeClient struct {
	calls  []call
	err    error
	closed bool

	collections []vectordb.Collection
	results     []vectordb.QueryResult
	deleted     []string
	documents   []vectordb.Document
}

func (f *fakeClient) record(op string, req interface{}) error {
	f.calls = append(f.calls, call{Op: op, Req: req})
	return f.err
}

func (f *fakeClient) CreateCollection(ctx context.Context, name string, metadata map[string]string) (vectordb.Collection, error) {
	if err := f.record("CreateCollection", vectordb.Collection{Name: name, Metadata: metadata}); err != nil {
		return vectordb.Collection{}, err
	}
	return vectordb.Collection{Name: name, Metadata: metadata}, nil
}

func (f *fakeClient) ListCollections(ctx context.Context) ([]vectordb.Collection, error) {
	if err := f.record("ListCollections", nil); err != nil {
		return nil, err
	}
	return f.collections, nil
}

func (f *fakeClient) DeleteCollection(ctx context.Context, name string) error {
	return f.record("DeleteCollection", name)
}

func (f *fakeClient) Add(ctx context.Context, req vectordb.AddRequest) (vectordb.AddResult, error) {
	if err := f.record("Add", req); err != nil {
		return vectordb.AddResult{}, err
	}
	ids := req.IDs
	if len(ids) == 0 {
		ids = make([]string, len(req.Texts))
	}
	return vectordb.AddResult{Collection: req.Collection, IDs: ids}, nil
}

func (f *fakeClient) Query(ctx context.Context, req vectordb.QueryRequest) ([]vectordb.QueryResult, error) {
	if err := f.record("Query", req); err != nil {
		return nil, err
	}
	return f.results, nil
}

func (f *fakeClient) Delete(ctx context.Context, req vectordb.DeleteRequest) ([]string, error) {
	if err := f.record("Delete", req); err != nil {
		return nil, err
	}
	return f.deleted, nil
}

func (f *fakeClient) GetAll(ctx context.Context, req vectordb.GetRequest) ([]vectordb.Document, error) {
	if err := f.record("GetAll", req); err != nil {
		return nil, err
	}
	return f.documents, nil
}

func (f *fakeClient) Close() error {
	f.closed = true
	return nil
}

// resetCommandState restores every flag and flag variable to its default so
// commands can run repeatedly in one test binary.
func resetCommandState() {
	var reset func(cmd *cobra.Command)
	reset = func(cmd *cobra.Command) {
		visit := func(f *pflag.Flag) {
			if _, ok := f.Value.(pflag.SliceValue); !ok {
				_ = f.Value.Set(f.DefValue)
			}
			f.Changed = false
		}
		cmd.Flags().VisitAll(visit)
		cmd.PersistentFlags().VisitAll(visit)
		for _, child := range cmd.Commands() {
			reset(child)
		}
	}
	reset(rootCmd)

	collectionMetadata = nil
	addTexts, addMetadata, addIDs, addFiles = nil, nil, nil, nil
	queryTexts, queryWhere = nil, nil
	deleteIDs, deleteWhere = nil, nil
}

// executeWith runs the command line against client (nil means the real
// client factory) and returns stdout, stderr and the command error.
func executeWith(t *testing.T, client vectordb.Client, args ...string) (string, string, error) {
	t.Helper()
	resetCommandState()

	origClient, origInteractive := newClient, isInteractive
	t.Cleanup(func() {
		newClient, isInteractive = origClient, origInteractive
		resetCommandState()
	})
	isInteractive = func() bool { return false }
	if client != nil {
		newClient = func(*cobra.Command) (vectordb.Client, error) { return client, nil }
	}

	var stdout, stderr bytes.Buffer
	rootCmd.SetOut(&stdout)
	rootCmd.SetErr(&stderr)
	rootCmd.SetArgs(args)
	err := rootCmd.ExecuteContext(context.Background())
	return stdout.String(), stderr.String(), err
}
