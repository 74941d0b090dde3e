// Package config resolves chromacli settings from flags, environment
// variables, the global config file and built-in defaults.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
)

const (
	// DefaultDBName names the database directory under ~/.chromadb.
	DefaultDBName = "my_chroma_app_db"
	// DefaultDBRoot is the directory under $HOME that holds named databases.
	DefaultDBRoot = ".chromadb"

	DefaultEmbeddingProvider = "ollama"
	DefaultEmbeddingModel    = "all-minilm:l6-v2"
	DefaultOllamaURL         = "http://localhost:11434"
	DefaultDimensions        = 384

	EnvDBPath     = "CHROMA_DB_PATH"
	EnvChromaURL  = "CHROMA_URL"
	EnvOllamaHost = "OLLAMA_HOST"
)

// ErrInvalidSetting is returned when a resolved setting cannot be used.
var ErrInvalidSetting = errors.New("invalid setting")

// Overrides carries values given on the command line. Empty fields are unset.
type Overrides struct {
	DBPath            string
	DBName            string
	ChromaURL         string
	EmbeddingProvider string
}

// Settings is the fully resolved configuration for one invocation.
type Settings struct {
	DBPath       string // local store directory; empty when ChromaURL is set
	DBPathSource string // flag, env, config or default
	DBName       string
	ChromaURL    string
	Embedding    EmbeddingConfig
}

// Remote reports whether a Chroma server should be used instead of the local store.
func (s *Settings) Remote() bool {
	return s.ChromaURL != ""
}

// Resolve merges overrides, environment and global config into Settings.
// getenv is usually os.Getenv; tests pass a map lookup.
func Resolve(o Overrides, global *GlobalConfig, getenv func(string) string) (*Settings, error) {
	if global == nil {
		global = &GlobalConfig{}
	}

	s := &Settings{
		DBName:    firstNonEmpty(o.DBName, global.DBName, DefaultDBName),
		ChromaURL: firstNonEmpty(o.ChromaURL, getenv(EnvChromaURL), global.ChromaURL),
		Embedding: global.Embedding,
	}

	if s.ChromaURL != "" {
		u, err := url.Parse(s.ChromaURL)
		if err != nil || u.Scheme == "" || u.Host == "" {
			return nil, fmt.Errorf("%w: chroma url %q must be absolute (e.g. http://localhost:8000)", ErrInvalidSetting, s.ChromaURL)
		}
	} else {
		path, source, err := ResolveDBPath(o.DBPath, s.DBName, global, getenv)
		if err != nil {
			return nil, err
		}
		s.DBPath = path
		s.DBPathSource = source
	}

	s.Embedding.Provider = firstNonEmpty(o.EmbeddingProvider, s.Embedding.Provider, DefaultEmbeddingProvider)
	s.Embedding.Model = firstNonEmpty(s.Embedding.Model, DefaultEmbeddingModel)
	s.Embedding.OllamaURL = firstNonEmpty(s.Embedding.OllamaURL, ollamaURLFromEnv(getenv), DefaultOllamaURL)
	if s.Embedding.Dimensions == 0 {
		s.Embedding.Dimensions = DefaultDimensions
	}
	if s.Embedding.Dimensions < 0 {
		return nil, fmt.Errorf("%w: embedding dimensions must be positive, got %d", ErrInvalidSetting, s.Embedding.Dimensions)
	}
	if s.Embedding.RequestsPerSecond < 0 {
		return nil, fmt.Errorf("%w: requests_per_second must not be negative", ErrInvalidSetting)
	}

	return s, nil
}

// ResolveDBPath picks the local database directory.
// Precedence: explicit path, CHROMA_DB_PATH, config db_path, ~/.chromadb/{dbName}.
// It returns the absolute path and which source supplied it.
func ResolveDBPath(explicit, dbName string, global *GlobalConfig, getenv func(string) string) (string, string, error) {
	var path, source string
	switch {
	case explicit != "":
		path, source = explicit, "flag"
	case getenv(EnvDBPath) != "":
		path, source = getenv(EnvDBPath), "env"
	case global != nil && global.DBPath != "":
		path, source = global.DBPath, "config"
	default:
		home, err := os.UserHomeDir()
		if err != nil {
			return "", "", fmt.Errorf("resolving home directory: %w", err)
		}
		if dbName == "" {
			dbName = DefaultDBName
		}
		if strings.ContainsAny(dbName, `/\`) || dbName == "." || dbName == ".." {
			return "", "", fmt.Errorf("%w: db name %q must not contain path separators", ErrInvalidSetting, dbName)
		}
		return filepath.Join(home, DefaultDBRoot, dbName), "default", nil
	}

	abs, err := filepath.Abs(ExpandPath(path))
	if err != nil {
		return "", "", fmt.Errorf("resolving db path %q: %w", path, err)
	}
	return abs, source, nil
}

// ExpandPath expands a leading ~ or ~/ to the user's home directory.
// Other paths, including ~user forms, are returned unchanged.
func ExpandPath(path string) string {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return path // Return original if we can't get home directory
	}

	return filepath.Join(home, path[1:])
}

// ollamaURLFromEnv accepts OLLAMA_HOST with or without a scheme, as the
// ollama CLI does.
func ollamaURLFromEnv(getenv func(string) string) string {
	host := getenv(EnvOllamaHost)
	if host == "" {
		return ""
	}
	if !strings.Contains(host, "://") {
		host = "http://" + host
	}
	return strings.TrimRight(host, "/")
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
