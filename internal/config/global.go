package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// GlobalConfig represents configuration stored in ~/.config/chromacli/config.yml.
type GlobalConfig struct {
	DBPath    string          `yaml:"db_path,omitempty"`
	DBName    string          `yaml:"db_name,omitempty"`
	ChromaURL string          `yaml:"chroma_url,omitempty"`
	Embedding EmbeddingConfig `yaml:"embedding,omitempty"`
}

// EmbeddingConfig selects and tunes the embedding provider used by the local store.
type EmbeddingConfig struct {
	Provider          string  `yaml:"provider,omitempty"`            // ollama or hash
	Model             string  `yaml:"model,omitempty"`               // e.g. all-minilm:l6-v2
	Dimensions        int     `yaml:"dimensions,omitempty"`          // expected vector size
	OllamaURL         string  `yaml:"ollama_url,omitempty"`          // Ollama API base URL
	RequestsPerSecond float64 `yaml:"requests_per_second,omitempty"` // 0 disables the limit
}

const (
	// GlobalConfigDir is the directory name under XDG_CONFIG_HOME.
	GlobalConfigDir = "chromacli"
	// GlobalConfigFile is the config file name.
	GlobalConfigFile = "config.yml"
)

// globalConfigCache caches the loaded global config.
var globalConfigCache *GlobalConfig

// GlobalConfigPath returns the path to the global config file.
// Respects XDG_CONFIG_HOME, defaults to ~/.config/chromacli/config.yml.
func GlobalConfigPath() string {
	configHome := os.Getenv("XDG_CONFIG_HOME")
	if configHome == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return ""
		}
		configHome = filepath.Join(home, ".config")
	}
	return filepath.Join(configHome, GlobalConfigDir, GlobalConfigFile)
}

// LoadGlobalConfig loads the global configuration file.
// Returns an empty config (not an error) if the file doesn't exist.
func LoadGlobalConfig() (*GlobalConfig, error) {
	if globalConfigCache != nil {
		return globalConfigCache, nil
	}

	path := GlobalConfigPath()
	if path == "" {
		return &GlobalConfig{}, nil
	}

	cfg, err := ReadGlobalConfig(path)
	if err != nil {
		return nil, err
	}

	globalConfigCache = cfg
	return cfg, nil
}

// ReadGlobalConfig parses a config file at an explicit path.
// A missing file yields an empty config.
func ReadGlobalConfig(path string) (*GlobalConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return &GlobalConfig{}, nil
		}
		return nil, fmt.Errorf("reading global config: %w", err)
	}

	var cfg GlobalConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing global config %s: %w", path, err)
	}

	if cfg.DBPath != "" {
		cfg.DBPath = ExpandPath(cfg.DBPath)
	}

	return &cfg, nil
}

// ResetGlobalConfigCache clears the cached global config.
// Useful for testing.
func ResetGlobalConfigCache() {
	globalConfigCache = nil
}

// HelpfulConfigMessage describes where settings can be placed.
func HelpfulConfigMessage() string {
	configPath := GlobalConfigPath()
	return fmt.Sprintf(`Settings can be placed in %s:
  db_path: ~/data/chroma
  chroma_url: http://localhost:8000
  embedding:
    provider: ollama
    model: %s`,
		configPath, DefaultEmbeddingModel)
}
