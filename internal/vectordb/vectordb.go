// Package vectordb provides the Chroma-compatible collection and document
// operations the CLI dispatches to, backed either by an embedded persistent
// store or by a Chroma server.
package vectordb

import (
	"context"
	"errors"
	"fmt"
	"net"
	"regexp"
	"strings"

	"github.com/google/uuid"

	"github.com/matsen/chromacli/internal/filter"
)

var (
	ErrCollectionExists   = errors.New("collection already exists")
	ErrCollectionNotFound = errors.New("collection does not exist")
	ErrDuplicateID        = errors.New("duplicate document id")
	ErrInvalidRequest     = errors.New("invalid request")
	ErrUnsupported        = errors.New("not supported by this backend")
	ErrEmbeddingMismatch  = errors.New("embedding model mismatch")
)

// ModelMetadataKey is the collection metadata key recording the embedding
// model that produced the collection's vectors. It is kept out of
// Collection.Metadata.
const ModelMetadataKey = "chromacli:embedding_model"

// DefaultNResults is the number of matches returned per query text when
// the caller does not ask for a specific number.
const DefaultNResults = 5

// Collection describes a named group of documents.
type Collection struct {
	Name           string            `json:"name"`
	Count          int               `json:"count"`
	Metadata       map[string]string `json:"metadata,omitempty"`
	EmbeddingModel string            `json:"embedding_model,omitempty"`
}

// Document is a stored text with its id and metadata.
type Document struct {
	ID       string            `json:"id"`
	Text     string            `json:"text"`
	Metadata map[string]string `json:"metadata,omitempty"`
}

// AddRequest adds Texts to Collection. IDs, when given, pair with Texts by
// index; when empty, ids are generated. Metadatas is empty or one entry per
// text.
type AddRequest struct {
	Collection string
	IDs        []string
	Texts      []string
	Metadatas  []map[string]string
}

// AddResult reports the ids written and whether the collection was created.
type AddResult struct {
	Collection string   `json:"collection"`
	IDs        []string `json:"ids"`
	Created    bool     `json:"created_collection"`
}

// QueryRequest runs one similarity search per query text.
type QueryRequest struct {
	Collection    string
	QueryTexts    []string
	NResults      int
	Where         filter.Where
	WhereDocument filter.WhereDocument
}

// QueryResult holds the matches for one query text, nearest first.
type QueryResult struct {
	Query   string  `json:"query"`
	Matches []Match `json:"matches"`
}

// Match is one query hit. Distance is cosine distance: 0 is identical.
type Match struct {
	ID       string            `json:"id"`
	Text     string            `json:"text"`
	Distance float64           `json:"distance"`
	Metadata map[string]string `json:"metadata,omitempty"`
}

// DeleteRequest deletes documents matching every given criterion.
type DeleteRequest struct {
	Collection    string
	IDs           []string
	Where         filter.Where
	WhereDocument filter.WhereDocument
}

// GetRequest pages through a collection. Limit 0 means no limit.
type GetRequest struct {
	Collection string
	Limit      int
	Offset     int
}

// Client is the set of operations the CLI dispatches to. Every call is one
// request against the underlying store.
type Client interface {
	CreateCollection(ctx context.Context, name string, metadata map[string]string) (Collection, error)
	ListCollections(ctx context.Context) ([]Collection, error)
	DeleteCollection(ctx context.Context, name string) error
	Add(ctx context.Context, req AddRequest) (AddResult, error)
	Query(ctx context.Context, req QueryRequest) ([]QueryResult, error)
	Delete(ctx context.Context, req DeleteRequest) ([]string, error)
	GetAll(ctx context.Context, req GetRequest) ([]Document, error)
	Close() error
}

// Archiver is implemented by backends that can dump and restore the whole
// database as a single file.
type Archiver interface {
	Export(ctx context.Context, path string, compress bool) ([]string, error)
	Import(ctx context.Context, path string) ([]string, error)
}

// Validate checks request shape without modifying it.
func (r *AddRequest) Validate() error {
	if r.Collection == "" {
		return fmt.Errorf("%w: collection name is required", ErrInvalidRequest)
	}
	if len(r.Texts) == 0 {
		return fmt.Errorf("%w: at least one document text is required", ErrInvalidRequest)
	}
	if len(r.IDs) > 0 && len(r.IDs) != len(r.Texts) {
		return fmt.Errorf("%w: got %d ids for %d texts", ErrInvalidRequest, len(r.IDs), len(r.Texts))
	}
	if len(r.Metadatas) > 0 && len(r.Metadatas) != len(r.Texts) {
		return fmt.Errorf("%w: got %d metadata entries for %d texts", ErrInvalidRequest, len(r.Metadatas), len(r.Texts))
	}

	seen := make(map[string]bool, len(r.IDs))
	for i, id := range r.IDs {
		if id == "" {
			return fmt.Errorf("%w: id %d is empty", ErrInvalidRequest, i+1)
		}
		if seen[id] {
			return fmt.Errorf("%w: %q appears more than once in the request", ErrDuplicateID, id)
		}
		seen[id] = true
	}
	return nil
}

// prepare validates r and generates UUIDv4 ids when none were given.
func (r *AddRequest) prepare() error {
	if err := r.Validate(); err != nil {
		return err
	}
	if len(r.IDs) == 0 {
		r.IDs = make([]string, len(r.Texts))
		for i := range r.IDs {
			r.IDs[i] = uuid.NewString()
		}
	}
	return nil
}

// Validate checks request shape.
func (r *QueryRequest) Validate() error {
	if r.Collection == "" {
		return fmt.Errorf("%w: collection name is required", ErrInvalidRequest)
	}
	if len(r.QueryTexts) == 0 {
		return fmt.Errorf("%w: at least one query text is required", ErrInvalidRequest)
	}
	for i, q := range r.QueryTexts {
		if q == "" {
			return fmt.Errorf("%w: query text %d is empty", ErrInvalidRequest, i+1)
		}
	}
	if r.NResults <= 0 {
		return fmt.Errorf("%w: n-results must be positive, got %d", ErrInvalidRequest, r.NResults)
	}
	return nil
}

// Validate checks that at least one criterion narrows the delete.
func (r *DeleteRequest) Validate() error {
	if r.Collection == "" {
		return fmt.Errorf("%w: collection name is required", ErrInvalidRequest)
	}
	if len(r.IDs) == 0 && len(r.Where) == 0 && len(r.WhereDocument) == 0 {
		return fmt.Errorf("%w: specify at least one of ids, where or where-document", ErrInvalidRequest)
	}
	return nil
}

// Validate checks paging bounds.
func (r *GetRequest) Validate() error {
	if r.Collection == "" {
		return fmt.Errorf("%w: collection name is required", ErrInvalidRequest)
	}
	if r.Limit < 0 || r.Offset < 0 {
		return fmt.Errorf("%w: limit and offset must not be negative", ErrInvalidRequest)
	}
	return nil
}

var collectionNamePattern = regexp.MustCompile(`^[a-zA-Z0-9][a-zA-Z0-9._-]{1,61}[a-zA-Z0-9]$`)

// ValidateCollectionName applies Chroma's naming rules: 3-63 characters from
// [a-zA-Z0-9._-], starting and ending with a letter or digit, no "..", and
// not an IPv4 address.
func ValidateCollectionName(name string) error {
	if !collectionNamePattern.MatchString(name) {
		return fmt.Errorf("%w: collection name %q must be 3-63 characters of [a-zA-Z0-9._-] and start and end with a letter or digit", ErrInvalidRequest, name)
	}
	if strings.Contains(name, "..") {
		return fmt.Errorf("%w: collection name %q must not contain \"..\"", ErrInvalidRequest, name)
	}
	if ip := net.ParseIP(name); ip != nil && ip.To4() != nil {
		return fmt.Errorf("%w: collection name %q must not be an IPv4 address", ErrInvalidRequest, name)
	}
	return nil
}

// withModel returns a copy of meta with model recorded under
// ModelMetadataKey.
func withModel(meta map[string]string, model string) map[string]string {
	out := make(map[string]string, len(meta)+1)
	for k, v := range meta {
		out[k] = v
	}
	if model != "" {
		out[ModelMetadataKey] = model
	}
	return out
}

// splitModel separates the recorded model from user metadata. The returned
// map is nil when only the model was set.
func splitModel(meta map[string]string) (map[string]string, string) {
	model := meta[ModelMetadataKey]
	var user map[string]string
	for k, v := range meta {
		if k == ModelMetadataKey {
			continue
		}
		if user == nil {
			user = make(map[string]string, len(meta))
		}
		user[k] = v
	}
	return user, model
}

// checkModel rejects mixing vectors from different models in a collection
// that already has documents. Collections without a recorded model are not
// checked.
func checkModel(collection string, count int, recorded, active string) error {
	if count == 0 || recorded == "" || recorded == active {
		return nil
	}
	return fmt.Errorf("%w: collection %s was embedded with %q but the active model is %q (is Ollama running?)",
		ErrEmbeddingMismatch, collection, recorded, active)
}

// window applies offset and limit to n items and returns the slice bounds.
func window(n, offset, limit int) (int, int) {
	if offset > n {
		offset = n
	}
	end := n
	if limit > 0 && offset+limit < n {
		end = offset + limit
	}
	return offset, end
}
