package vectordb

import (
	"bufio"
	"bytes"
	"compress/gzip"
	"crypto/sha256"
	"encoding/gob"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"

	chromem "github.com/philippgille/chromem-go"
)

// snapshot mirrors the layout chromem writes with ExportToWriter. gob matches
// struct fields by name, so it decodes the export stream directly.
type snapshot struct {
	Collections map[string]*snapshotCollection
}

type snapshotCollection struct {
	Name      string
	Metadata  map[string]string
	Documents map[string]*chromem.Document
}

// snapshot reads a point-in-time copy of the named collections, or all
// collections when none are named.
func (c *LocalClient) snapshot(names ...string) (*snapshot, error) {
	var buf bytes.Buffer
	if err := c.db.ExportToWriter(&buf, false, "", names...); err != nil {
		return nil, fmt.Errorf("reading collections: %w", err)
	}
	return decodeSnapshot(&buf)
}

// decodeSnapshot decodes a chromem export stream, gzip-compressed or not.
func decodeSnapshot(r io.Reader) (*snapshot, error) {
	var s snapshot
	if err := decodeGob(r, &s); err != nil {
		return nil, fmt.Errorf("decoding snapshot: %w", err)
	}
	return &s, nil
}

// decodeGob decodes one gob value from r, unwrapping gzip when the stream
// starts with the gzip magic bytes.
func decodeGob(r io.Reader, v interface{}) error {
	br := bufio.NewReader(r)

	var src io.Reader = br
	if magic, err := br.Peek(2); err == nil && magic[0] == 0x1f && magic[1] == 0x8b {
		zr, err := gzip.NewReader(br)
		if err != nil {
			return fmt.Errorf("opening gzip stream: %w", err)
		}
		defer zr.Close()
		src = zr
	}
	return gob.NewDecoder(src).Decode(v)
}

// collectionDir is where chromem persists name: the hex of the first four
// bytes of the name's SHA-256.
func collectionDir(dbPath, name string) string {
	sum := sha256.Sum256([]byte(name))
	return filepath.Join(dbPath, hex.EncodeToString(sum[:4]))
}

// readCollectionMetadata reads only the metadata file chromem keeps next to a
// collection's documents. It returns fs.ErrNotExist when there is none.
func readCollectionMetadata(dbPath, name string) (map[string]string, error) {
	dir := collectionDir(dbPath, name)
	for _, file := range []string{"00000000.gob", "00000000.gob.gz"} {
		f, err := os.Open(filepath.Join(dir, file))
		if errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err != nil {
			return nil, err
		}

		var pc struct {
			Name     string
			Metadata map[string]string
		}
		err = decodeGob(f, &pc)
		f.Close()
		if err != nil {
			return nil, fmt.Errorf("decoding metadata of %s: %w", name, err)
		}
		if pc.Name != name {
			return nil, fmt.Errorf("metadata of %s: %w", name, fs.ErrNotExist)
		}
		return pc.Metadata, nil
	}
	return nil, fs.ErrNotExist
}

// names returns the collection names in sorted order.
func (s *snapshot) names() []string {
	names := make([]string, 0, len(s.Collections))
	for _, col := range s.Collections {
		names = append(names, col.Name)
	}
	sort.Strings(names)
	return names
}

// documents returns the collection's documents sorted by id.
func (sc *snapshotCollection) documents() []Document {
	docs := make([]Document, 0, len(sc.Documents))
	for _, d := range sc.Documents {
		docs = append(docs, Document{ID: d.ID, Text: d.Content, Metadata: d.Metadata})
	}
	sort.Slice(docs, func(i, j int) bool { return docs[i].ID < docs[j].ID })
	return docs
}
