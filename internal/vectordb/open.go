package vectordb

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/matsen/chromacli/internal/embedding"
)

// Options selects and configures a backend.
type Options struct {
	// ChromaURL selects the remote backend when set.
	ChromaURL string
	// DBPath is the local database directory.
	DBPath string
	// Provider embeds documents and queries for either backend.
	Provider embedding.Provider
	Logger   *zap.Logger
}

// Open returns a RemoteClient when ChromaURL is set and a LocalClient
// rooted at DBPath otherwise.
func Open(opts Options) (Client, error) {
	if opts.ChromaURL != "" {
		return NewRemoteClient(opts.ChromaURL, opts.Provider, opts.Logger)
	}
	if opts.DBPath == "" {
		return nil, fmt.Errorf("%w: database path is required", ErrInvalidRequest)
	}
	return NewLocalClient(opts.DBPath, opts.Provider, opts.Logger)
}
