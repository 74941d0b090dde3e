package vectordb

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"sort"
	"strings"

	chromem "github.com/philippgille/chromem-go"
	"go.uber.org/zap"

	"github.com/matsen/chromacli/internal/embedding"
)

// LocalClient is an embedded persistent store backed by chromem-go. Every
// collection lives in a subdirectory of the database directory, one gob file
// per document.
type LocalClient struct {
	db       *chromem.DB
	path     string
	provider embedding.Provider
	logger   *zap.Logger
}

// NewLocalClient opens (creating if needed) the database directory at path.
func NewLocalClient(path string, provider embedding.Provider, logger *zap.Logger) (*LocalClient, error) {
	if provider == nil {
		return nil, fmt.Errorf("%w: embedding provider is required", ErrInvalidRequest)
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	if err := os.MkdirAll(path, 0755); err != nil {
		return nil, fmt.Errorf("creating database directory %s: %w", path, err)
	}

	db, err := chromem.NewPersistentDB(path, false)
	if err != nil {
		if strings.Contains(err.Error(), "collection metadata file not found") {
			return nil, fmt.Errorf("opening database at %s: a collection directory is damaged (missing metadata): %w", path, err)
		}
		return nil, fmt.Errorf("opening database at %s: %w", path, err)
	}

	logger.Debug("opened local database",
		zap.String("path", path),
		zap.Int("collections", len(db.ListCollections())),
		zap.String("embedding_model", provider.ModelName()),
	)

	return &LocalClient{db: db, path: path, provider: provider, logger: logger}, nil
}

// NewMemoryClient returns a LocalClient that keeps everything in memory.
func NewMemoryClient(provider embedding.Provider, logger *zap.Logger) *LocalClient {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LocalClient{db: chromem.NewDB(), provider: provider, logger: logger}
}

// Path returns the database directory, or "" for an in-memory client.
func (c *LocalClient) Path() string {
	return c.path
}

func (c *LocalClient) embeddingFunc() chromem.EmbeddingFunc {
	return embedding.Func(c.provider)
}

func (c *LocalClient) collection(name string) (*chromem.Collection, error) {
	col := c.db.GetCollection(name, c.embeddingFunc())
	if col == nil {
		return nil, fmt.Errorf("%w: %s", ErrCollectionNotFound, name)
	}
	return col, nil
}

// collectionMetadata returns name's stored metadata, model key included.
// Persistent stores read only the collection's metadata file.
func (c *LocalClient) collectionMetadata(name string) (map[string]string, error) {
	if c.path != "" {
		meta, err := readCollectionMetadata(c.path, name)
		if err == nil {
			return meta, nil
		}
		if !errors.Is(err, fs.ErrNotExist) {
			return nil, err
		}
	}

	snap, err := c.snapshot(name)
	if err != nil {
		return nil, err
	}
	if sc := snap.Collections[name]; sc != nil {
		return sc.Metadata, nil
	}
	return nil, nil
}

// CreateCollection creates name, failing if it already exists. The active
// embedding model is recorded in the collection's metadata.
func (c *LocalClient) CreateCollection(ctx context.Context, name string, metadata map[string]string) (Collection, error) {
	if err := ValidateCollectionName(name); err != nil {
		return Collection{}, err
	}
	if c.db.GetCollection(name, c.embeddingFunc()) != nil {
		return Collection{}, fmt.Errorf("%w: %s", ErrCollectionExists, name)
	}

	model := embedding.ActiveModel(ctx, c.provider)
	if _, err := c.db.CreateCollection(name, withModel(metadata, model), c.embeddingFunc()); err != nil {
		return Collection{}, fmt.Errorf("creating collection %s: %w", name, err)
	}

	c.logger.Debug("created collection", zap.String("collection", name), zap.String("model", model))
	user, _ := splitModel(metadata)
	return Collection{Name: name, Metadata: user, EmbeddingModel: model}, nil
}

// ListCollections returns every collection sorted by name.
func (c *LocalClient) ListCollections(ctx context.Context) ([]Collection, error) {
	cols := c.db.ListCollections()
	names := make([]string, 0, len(cols))
	for name := range cols {
		names = append(names, name)
	}
	sort.Strings(names)

	out := make([]Collection, 0, len(names))
	for _, name := range names {
		meta, err := c.collectionMetadata(name)
		if err != nil {
			return nil, err
		}
		user, model := splitModel(meta)
		out = append(out, Collection{
			Name:           name,
			Count:          cols[name].Count(),
			Metadata:       user,
			EmbeddingModel: model,
		})
	}
	return out, nil
}

// DeleteCollection removes name and its documents.
func (c *LocalClient) DeleteCollection(ctx context.Context, name string) error {
	if _, err := c.collection(name); err != nil {
		return err
	}
	if err := c.db.DeleteCollection(name); err != nil {
		return fmt.Errorf("deleting collection %s: %w", name, err)
	}
	c.logger.Debug("deleted collection", zap.String("collection", name))
	return nil
}

// Add embeds and stores the request's texts, creating the collection if
// needed. Nothing is written when any id already exists.
func (c *LocalClient) Add(ctx context.Context, req AddRequest) (AddResult, error) {
	if err := req.prepare(); err != nil {
		return AddResult{}, err
	}

	active := embedding.ActiveModel(ctx, c.provider)
	col := c.db.GetCollection(req.Collection, c.embeddingFunc())
	created := col == nil

	var meta map[string]string
	if created {
		if err := ValidateCollectionName(req.Collection); err != nil {
			return AddResult{}, err
		}
	} else {
		var err error
		if meta, err = c.collectionMetadata(req.Collection); err != nil {
			return AddResult{}, err
		}
		if err := checkModel(req.Collection, col.Count(), meta[ModelMetadataKey], active); err != nil {
			return AddResult{}, err
		}
		for _, id := range req.IDs {
			if _, err := col.GetByID(ctx, id); err == nil {
				return AddResult{}, fmt.Errorf("%w: %q already exists in %s", ErrDuplicateID, id, req.Collection)
			}
		}
	}

	vectors, err := embedding.EmbedAll(ctx, c.provider, req.Texts)
	if err != nil {
		return AddResult{}, fmt.Errorf("embedding documents: %w", err)
	}

	switch {
	case created:
		col, err = c.db.GetOrCreateCollection(req.Collection, withModel(nil, active), c.embeddingFunc())
		if err != nil {
			return AddResult{}, fmt.Errorf("creating collection %s: %w", req.Collection, err)
		}
		c.logger.Debug("created collection on add", zap.String("collection", req.Collection))
	case col.Count() == 0 && meta[ModelMetadataKey] != active:
		// An empty collection adopts the model of its first documents.
		// chromem cannot update metadata in place, so recreate it.
		if err := c.db.DeleteCollection(req.Collection); err != nil {
			return AddResult{}, fmt.Errorf("updating collection %s: %w", req.Collection, err)
		}
		col, err = c.db.CreateCollection(req.Collection, withModel(meta, active), c.embeddingFunc())
		if err != nil {
			return AddResult{}, fmt.Errorf("updating collection %s: %w", req.Collection, err)
		}
		c.logger.Debug("recorded embedding model", zap.String("collection", req.Collection), zap.String("model", active))
	}

	if err := col.Add(ctx, req.IDs, vectors, req.Metadatas, req.Texts); err != nil {
		return AddResult{}, fmt.Errorf("adding documents to %s: %w", req.Collection, err)
	}

	c.logger.Debug("added documents",
		zap.String("collection", req.Collection),
		zap.Int("count", len(req.IDs)),
		zap.String("model", c.provider.ModelName()),
	)

	return AddResult{Collection: req.Collection, IDs: req.IDs, Created: created}, nil
}

// Query returns up to NResults matches per query text. NResults larger than
// the collection is clamped; an empty collection yields no matches.
func (c *LocalClient) Query(ctx context.Context, req QueryRequest) ([]QueryResult, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	col, err := c.collection(req.Collection)
	if err != nil {
		return nil, err
	}

	out := make([]QueryResult, len(req.QueryTexts))
	total := col.Count()
	if total > 0 {
		meta, err := c.collectionMetadata(req.Collection)
		if err != nil {
			return nil, err
		}
		if err := checkModel(req.Collection, total, meta[ModelMetadataKey], embedding.ActiveModel(ctx, c.provider)); err != nil {
			return nil, err
		}
	}

	for i, text := range req.QueryTexts {
		out[i] = QueryResult{Query: text, Matches: []Match{}}
		if total == 0 {
			continue
		}

		emb, err := c.provider.Embed(ctx, text)
		if err != nil {
			return nil, fmt.Errorf("embedding query %q: %w", text, err)
		}

		// Rank everything that passes chromem's filters, then apply the
		// stricter key-presence rule before cutting to NResults.
		results, err := col.QueryEmbedding(ctx, emb.Vector, total, req.Where, req.WhereDocument)
		if err != nil {
			return nil, fmt.Errorf("querying %s: %w", req.Collection, err)
		}

		for _, r := range results {
			if !req.Where.Matches(r.Metadata) {
				continue
			}
			out[i].Matches = append(out[i].Matches, Match{
				ID:       r.ID,
				Text:     r.Content,
				Distance: 1 - float64(r.Similarity),
				Metadata: r.Metadata,
			})
			if len(out[i].Matches) == req.NResults {
				break
			}
		}
	}

	return out, nil
}

// Delete removes every document matching all given criteria and returns
// their ids, sorted.
func (c *LocalClient) Delete(ctx context.Context, req DeleteRequest) ([]string, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	col, err := c.collection(req.Collection)
	if err != nil {
		return nil, err
	}

	snap, err := c.snapshot(req.Collection)
	if err != nil {
		return nil, err
	}
	sc := snap.Collections[req.Collection]
	if sc == nil {
		return []string{}, nil
	}

	wanted := make(map[string]bool, len(req.IDs))
	for _, id := range req.IDs {
		wanted[id] = true
	}

	targets := []string{}
	for _, doc := range sc.documents() {
		if len(wanted) > 0 && !wanted[doc.ID] {
			continue
		}
		if !req.Where.Matches(doc.Metadata) || !req.WhereDocument.Matches(doc.Text) {
			continue
		}
		targets = append(targets, doc.ID)
	}

	if len(targets) == 0 {
		return targets, nil
	}

	// Filters must be nil: chromem ignores ids whenever a filter is set.
	if err := col.Delete(ctx, nil, nil, targets...); err != nil {
		return nil, fmt.Errorf("deleting from %s: %w", req.Collection, err)
	}

	c.logger.Debug("deleted documents",
		zap.String("collection", req.Collection),
		zap.Int("count", len(targets)),
	)
	return targets, nil
}

// GetAll returns the collection's documents sorted by id and windowed by
// Offset and Limit.
func (c *LocalClient) GetAll(ctx context.Context, req GetRequest) ([]Document, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	if _, err := c.collection(req.Collection); err != nil {
		return nil, err
	}

	snap, err := c.snapshot(req.Collection)
	if err != nil {
		return nil, err
	}
	sc := snap.Collections[req.Collection]
	if sc == nil {
		return []Document{}, nil
	}

	docs := sc.documents()
	start, end := window(len(docs), req.Offset, req.Limit)
	return docs[start:end], nil
}

// Export writes every collection to path and returns their names.
func (c *LocalClient) Export(ctx context.Context, path string, compress bool) ([]string, error) {
	if path == "" {
		return nil, fmt.Errorf("%w: export path is required", ErrInvalidRequest)
	}
	if err := c.db.ExportToFile(path, compress, ""); err != nil {
		return nil, fmt.Errorf("exporting to %s: %w", path, err)
	}

	names := make([]string, 0)
	for name := range c.db.ListCollections() {
		names = append(names, name)
	}
	sort.Strings(names)

	c.logger.Debug("exported database", zap.String("file", path), zap.Int("collections", len(names)))
	return names, nil
}

// Import loads every collection from an export file, replacing collections
// with the same name, and returns the imported names. chromem's import writes
// over existing files without removing stale documents, so same-named
// collections are deleted first.
func (c *LocalClient) Import(ctx context.Context, path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", path, err)
	}
	snap, err := decodeSnapshot(f)
	f.Close()
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	for _, name := range snap.names() {
		if err := ValidateCollectionName(name); err != nil {
			return nil, fmt.Errorf("importing %s: %w", path, err)
		}
	}

	for _, name := range snap.names() {
		if err := c.db.DeleteCollection(name); err != nil {
			return nil, fmt.Errorf("replacing collection %s: %w", name, err)
		}
	}

	if err := c.db.ImportFromFile(path, ""); err != nil {
		return nil, fmt.Errorf("importing %s: %w", path, err)
	}

	names := snap.names()
	c.logger.Debug("imported database", zap.String("file", path), zap.Strings("collections", names))
	return names, nil
}

// Close is a no-op; chromem persists every write immediately.
func (c *LocalClient) Close() error {
	return nil
}

var (
	_ Client   = (*LocalClient)(nil)
	_ Archiver = (*LocalClient)(nil)
)
