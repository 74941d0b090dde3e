package vectordb

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	chroma "github.com/amikos-tech/chroma-go/pkg/api/v2"
	"github.com/amikos-tech/chroma-go/pkg/embeddings"
	"go.uber.org/zap"

	"github.com/matsen/chromacli/internal/embedding"
	"github.com/matsen/chromacli/internal/filter"
)

// includeDistances asks the server for query distances. chroma-go has no
// constant for it.
const includeDistances chroma.Include = "distances"

// RemoteClient forwards every operation to a Chroma server over HTTP.
// Documents and queries are embedded on this side with the configured
// provider, so the server never needs an embedding function of its own.
type RemoteClient struct {
	api      chroma.Client
	url      string
	provider embedding.Provider
	ef       embeddings.EmbeddingFunction
	logger   *zap.Logger
}

// NewRemoteClient connects to the Chroma server at baseURL.
func NewRemoteClient(baseURL string, provider embedding.Provider, logger *zap.Logger) (*RemoteClient, error) {
	if provider == nil {
		return nil, fmt.Errorf("%w: embedding provider is required", ErrInvalidRequest)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	api, err := chroma.NewHTTPClient(chroma.WithBaseURL(baseURL))
	if err != nil {
		return nil, fmt.Errorf("connecting to chroma at %s: %w", baseURL, err)
	}
	logger.Debug("using chroma server", zap.String("url", baseURL), zap.String("embedding_model", provider.ModelName()))
	return &RemoteClient{
		api:      api,
		url:      baseURL,
		provider: provider,
		ef:       embeddingFunction{provider},
		logger:   logger,
	}, nil
}

// embeddingFunction adapts a Provider to chroma-go's EmbeddingFunction.
type embeddingFunction struct {
	provider embedding.Provider
}

func (f embeddingFunction) EmbedDocuments(ctx context.Context, texts []string) ([]embeddings.Embedding, error) {
	vectors, err := embedding.EmbedAll(ctx, f.provider, texts)
	if err != nil {
		return nil, err
	}
	return embeddings.NewEmbeddingsFromFloat32(vectors)
}

func (f embeddingFunction) EmbedQuery(ctx context.Context, text string) (embeddings.Embedding, error) {
	emb, err := f.provider.Embed(ctx, text)
	if err != nil {
		return nil, err
	}
	return embeddings.NewEmbeddingFromFloat32(emb.Vector), nil
}

// classify maps server error text onto the package's sentinel errors while
// keeping the server's message.
func classify(err error, name string) error {
	if err == nil {
		return nil
	}
	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "already exists"):
		return fmt.Errorf("%w: %s: %v", ErrCollectionExists, name, err)
	case isNotFound(err):
		return fmt.Errorf("%w: %s: %v", ErrCollectionNotFound, name, err)
	default:
		return fmt.Errorf("%s: %w", name, err)
	}
}

func (c *RemoteClient) getCollection(ctx context.Context, name string) (chroma.Collection, error) {
	return c.api.GetCollection(ctx, name, chroma.WithEmbeddingFunctionGet(c.ef))
}

func (c *RemoteClient) createCollection(ctx context.Context, name string, metadata map[string]string, model string) (chroma.Collection, error) {
	return c.api.CreateCollection(ctx, name,
		chroma.WithCollectionMetadataCreate(chroma.NewMetadataFromMap(toAnyMap(withModel(metadata, model)))),
		chroma.WithEmbeddingFunctionCreate(c.ef),
	)
}

// CreateCollection creates name on the server, recording the active
// embedding model in its metadata.
func (c *RemoteClient) CreateCollection(ctx context.Context, name string, metadata map[string]string) (Collection, error) {
	if err := ValidateCollectionName(name); err != nil {
		return Collection{}, err
	}
	model := embedding.ActiveModel(ctx, c.provider)
	col, err := c.createCollection(ctx, name, metadata, model)
	if err != nil {
		return Collection{}, classify(err, name)
	}
	user, _ := splitModel(metadata)
	return Collection{Name: col.Name(), Metadata: user, EmbeddingModel: model}, nil
}

// ListCollections returns every collection sorted by name.
func (c *RemoteClient) ListCollections(ctx context.Context) ([]Collection, error) {
	cols, err := c.api.ListCollections(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing collections: %w", err)
	}

	out := make([]Collection, 0, len(cols))
	for _, col := range cols {
		count, err := col.Count(ctx)
		if err != nil {
			return nil, classify(err, col.Name())
		}
		user, model := splitModel(stringMap(col.Metadata()))
		out = append(out, Collection{
			Name:           col.Name(),
			Count:          count,
			Metadata:       user,
			EmbeddingModel: model,
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

// DeleteCollection removes name on the server.
func (c *RemoteClient) DeleteCollection(ctx context.Context, name string) error {
	return classify(c.api.DeleteCollection(ctx, name), name)
}

// Add writes the request's texts. Ids already present on the server are
// rejected before anything is written.
func (c *RemoteClient) Add(ctx context.Context, req AddRequest) (AddResult, error) {
	if err := req.prepare(); err != nil {
		return AddResult{}, err
	}
	active := embedding.ActiveModel(ctx, c.provider)

	created := false
	col, err := c.getCollection(ctx, req.Collection)
	if err != nil {
		if !isNotFound(err) {
			return AddResult{}, classify(err, req.Collection)
		}
		if err := ValidateCollectionName(req.Collection); err != nil {
			return AddResult{}, err
		}
		col, err = c.createCollection(ctx, req.Collection, nil, active)
		if err != nil {
			return AddResult{}, classify(err, req.Collection)
		}
		created = true
	}

	ids := documentIDs(req.IDs)
	if !created {
		count, err := col.Count(ctx)
		if err != nil {
			return AddResult{}, classify(err, req.Collection)
		}
		recorded := stringMap(col.Metadata())[ModelMetadataKey]
		if err := checkModel(req.Collection, count, recorded, active); err != nil {
			return AddResult{}, err
		}

		existing, err := col.Get(ctx, chroma.WithIDsGet(ids...))
		if err != nil {
			return AddResult{}, classify(err, req.Collection)
		}
		if dup := existing.GetIDs(); len(dup) > 0 {
			return AddResult{}, fmt.Errorf("%w: %q already exists in %s", ErrDuplicateID, string(dup[0]), req.Collection)
		}

		if count == 0 && recorded != active {
			meta := anyMap(col.Metadata())
			meta[ModelMetadataKey] = active
			if err := col.ModifyMetadata(ctx, chroma.NewMetadataFromMap(meta)); err != nil {
				return AddResult{}, classify(err, req.Collection)
			}
		}
	}

	opts := []chroma.CollectionAddOption{
		chroma.WithIDs(ids...),
		chroma.WithTexts(req.Texts...),
	}
	if len(req.Metadatas) > 0 {
		metas := make([]chroma.DocumentMetadata, len(req.Metadatas))
		for i, m := range req.Metadatas {
			metas[i] = documentMetadata(m)
		}
		opts = append(opts, chroma.WithMetadatas(metas...))
	}

	if err := col.Add(ctx, opts...); err != nil {
		return AddResult{}, classify(err, req.Collection)
	}
	c.logger.Debug("added documents",
		zap.String("collection", req.Collection),
		zap.Int("count", len(req.IDs)),
		zap.String("model", active),
	)
	return AddResult{Collection: req.Collection, IDs: req.IDs, Created: created}, nil
}

// Query runs the query texts on the server in one request.
func (c *RemoteClient) Query(ctx context.Context, req QueryRequest) ([]QueryResult, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	col, err := c.getCollection(ctx, req.Collection)
	if err != nil {
		return nil, classify(err, req.Collection)
	}

	total, err := col.Count(ctx)
	if err != nil {
		return nil, classify(err, req.Collection)
	}
	out := make([]QueryResult, len(req.QueryTexts))
	for i, q := range req.QueryTexts {
		out[i] = QueryResult{Query: q, Matches: []Match{}}
	}
	if total == 0 {
		return out, nil
	}
	recorded := stringMap(col.Metadata())[ModelMetadataKey]
	if err := checkModel(req.Collection, total, recorded, embedding.ActiveModel(ctx, c.provider)); err != nil {
		return nil, err
	}

	n := req.NResults
	if n > total {
		n = total
	}

	opts := []chroma.CollectionQueryOption{
		chroma.WithQueryTexts(req.QueryTexts...),
		chroma.WithNResults(n),
		chroma.WithIncludeQuery(chroma.IncludeDocuments, chroma.IncludeMetadatas, includeDistances),
	}
	if len(req.Where) > 0 {
		opts = append(opts, chroma.WithWhereQuery(whereClause(req.Where)))
	}
	if len(req.WhereDocument) > 0 {
		wd, err := whereDocumentFilter(req.WhereDocument)
		if err != nil {
			return nil, err
		}
		opts = append(opts, chroma.WithWhereDocumentQuery(wd))
	}

	res, err := col.Query(ctx, opts...)
	if err != nil {
		return nil, classify(err, req.Collection)
	}

	idGroups := res.GetIDGroups()
	docGroups := res.GetDocumentsGroups()
	metaGroups := res.GetMetadatasGroups()
	distGroups := res.GetDistancesGroups()

	offset := 0
	for i := range out {
		if i >= len(idGroups) {
			break
		}
		for j, id := range idGroups[i] {
			m := Match{ID: string(id), Text: groupedText(docGroups, len(idGroups), i, j, offset)}
			if i < len(metaGroups) && j < len(metaGroups[i]) && metaGroups[i][j] != nil {
				m.Metadata = stringMap(metaGroups[i][j])
			}
			if i < len(distGroups) && j < len(distGroups[i]) {
				m.Distance = float64(distGroups[i][j])
			}
			out[i].Matches = append(out[i].Matches, m)
		}
		offset += len(idGroups[i])
	}
	return out, nil
}

// groupedText returns the document of match j for query i. chroma-go decodes
// the documents of every query into one group, so when there are fewer
// document groups than id groups the running offset indexes that one group.
func groupedText(groups []chroma.Documents, queries, i, j, offset int) string {
	var doc chroma.Document
	switch {
	case len(groups) == queries && j < len(groups[i]):
		doc = groups[i][j]
	case len(groups) == 1 && offset+j < len(groups[0]):
		doc = groups[0][offset+j]
	}
	if doc == nil {
		return ""
	}
	return doc.ContentString()
}

// Delete resolves the matching ids first so it can report them, then deletes
// exactly those ids.
func (c *RemoteClient) Delete(ctx context.Context, req DeleteRequest) ([]string, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	col, err := c.getCollection(ctx, req.Collection)
	if err != nil {
		return nil, classify(err, req.Collection)
	}

	var opts []chroma.CollectionGetOption
	if len(req.IDs) > 0 {
		opts = append(opts, chroma.WithIDsGet(documentIDs(req.IDs)...))
	}
	if len(req.Where) > 0 {
		opts = append(opts, chroma.WithWhereGet(whereClause(req.Where)))
	}
	if len(req.WhereDocument) > 0 {
		wd, err := whereDocumentFilter(req.WhereDocument)
		if err != nil {
			return nil, err
		}
		opts = append(opts, chroma.WithWhereDocumentGet(wd))
	}

	matched, err := col.Get(ctx, opts...)
	if err != nil {
		return nil, classify(err, req.Collection)
	}

	ids := matched.GetIDs()
	targets := make([]string, 0, len(ids))
	for _, id := range ids {
		targets = append(targets, string(id))
	}
	sort.Strings(targets)
	if len(targets) == 0 {
		return targets, nil
	}

	if err := col.Delete(ctx, chroma.WithIDsDelete(ids...)); err != nil {
		return nil, classify(err, req.Collection)
	}
	return targets, nil
}

// GetAll fetches the whole collection and windows it locally so ordering
// matches the embedded store.
func (c *RemoteClient) GetAll(ctx context.Context, req GetRequest) ([]Document, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	col, err := c.getCollection(ctx, req.Collection)
	if err != nil {
		return nil, classify(err, req.Collection)
	}

	res, err := col.Get(ctx, chroma.WithIncludeGet(chroma.IncludeDocuments, chroma.IncludeMetadatas))
	if err != nil {
		return nil, classify(err, req.Collection)
	}

	ids := res.GetIDs()
	texts := res.GetDocuments()
	metas := res.GetMetadatas()

	docs := make([]Document, 0, len(ids))
	for i, id := range ids {
		d := Document{ID: string(id)}
		if i < len(texts) && texts[i] != nil {
			d.Text = texts[i].ContentString()
		}
		if i < len(metas) && metas[i] != nil {
			d.Metadata = stringMap(metas[i])
		}
		docs = append(docs, d)
	}
	sort.Slice(docs, func(i, j int) bool { return docs[i].ID < docs[j].ID })

	start, end := window(len(docs), req.Offset, req.Limit)
	return docs[start:end], nil
}

// Close releases the HTTP client.
func (c *RemoteClient) Close() error {
	return c.api.Close()
}

func isNotFound(err error) bool {
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "does not exist") || strings.Contains(msg, "not found")
}

func documentIDs(ids []string) []chroma.DocumentID {
	out := make([]chroma.DocumentID, len(ids))
	for i, id := range ids {
		out[i] = chroma.DocumentID(id)
	}
	return out
}

func documentMetadata(m map[string]string) chroma.DocumentMetadata {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	attrs := make([]*chroma.MetaAttribute, 0, len(keys))
	for _, k := range keys {
		attrs = append(attrs, chroma.NewStringAttribute(k, m[k]))
	}
	return chroma.NewDocumentMetadata(attrs...)
}

// whereClause ANDs one equality clause per key. Keys are sorted so the
// request body is stable.
func whereClause(w filter.Where) chroma.WhereClause {
	keys := w.Keys()
	if len(keys) == 1 {
		return chroma.EqString(keys[0], w[keys[0]])
	}
	clauses := make([]chroma.WhereClause, 0, len(keys))
	for _, k := range keys {
		clauses = append(clauses, chroma.EqString(k, w[k]))
	}
	return chroma.And(clauses...)
}

// whereDocumentFilter ANDs the content predicates. Both operators together
// become an $and clause.
func whereDocumentFilter(wd filter.WhereDocument) (chroma.WhereDocumentFilter, error) {
	var clauses []chroma.WhereDocumentFilter
	if s, ok := wd[filter.OpContains]; ok {
		clauses = append(clauses, chroma.Contains(s))
	}
	if s, ok := wd[filter.OpNotContains]; ok {
		clauses = append(clauses, chroma.NotContains(s))
	}
	switch len(clauses) {
	case 0:
		return nil, fmt.Errorf("%w: empty where-document filter", ErrInvalidRequest)
	case 1:
		return clauses[0], nil
	default:
		return chroma.AndDocument(clauses...), nil
	}
}

func toAnyMap(m map[string]string) map[string]interface{} {
	out := make(map[string]interface{}, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

// anyMap copies collection metadata through its JSON form, keeping numbers
// numeric. hnsw: keys are left out because the server refuses to change
// them after creation.
func anyMap(v interface{}) map[string]interface{} {
	out := make(map[string]interface{})
	if v == nil {
		return out
	}
	data, err := json.Marshal(v)
	if err != nil {
		return out
	}
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var raw map[string]interface{}
	if err := dec.Decode(&raw); err != nil {
		return out
	}
	for k, val := range raw {
		if strings.HasPrefix(k, "hnsw:") {
			continue
		}
		if n, ok := val.(json.Number); ok {
			if i, err := n.Int64(); err == nil {
				val = i
			} else if f, err := n.Float64(); err == nil {
				val = f
			}
		}
		out[k] = val
	}
	return out
}

// stringMap flattens chroma metadata through its JSON form. Non-string
// values keep their JSON text, so 2023 becomes "2023".
func stringMap(v interface{}) map[string]string {
	if v == nil {
		return nil
	}
	data, err := json.Marshal(v)
	if err != nil {
		return nil
	}
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil || len(raw) == 0 {
		return nil
	}
	out := make(map[string]string, len(raw))
	for k, r := range raw {
		var s string
		if err := json.Unmarshal(r, &s); err == nil {
			out[k] = s
			continue
		}
		out[k] = string(r)
	}
	return out
}

var _ Client = (*RemoteClient)(nil)
