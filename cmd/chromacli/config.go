package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/matsen/chromacli/internal/config"
)

// ConfigResponse is the response for the config command.
type ConfigResponse struct {
	ConfigFile        string  `json:"config_file"`
	Backend           string  `json:"backend"`
	DBPath            string  `json:"db_path,omitempty"`
	DBPathSource      string  `json:"db_path_source,omitempty"`
	DBName            string  `json:"db_name"`
	ChromaURL         string  `json:"chroma_url,omitempty"`
	EmbeddingProvider string  `json:"embedding_provider"`
	EmbeddingModel    string  `json:"embedding_model"`
	Dimensions        int     `json:"dimensions"`
	OllamaURL         string  `json:"ollama_url"`
	RequestsPerSecond float64 `json:"requests_per_second,omitempty"`
}

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Show the resolved settings",
	Long: `Show the settings this invocation would use after applying flags,
environment variables (CHROMA_DB_PATH, CHROMA_URL, OLLAMA_HOST), the config
file and defaults. Nothing is opened or created.`,
	Args: usageArgs(cobra.NoArgs),
	RunE: runConfig,
}

func init() {
	rootCmd.AddCommand(configCmd)
}

func runConfig(cmd *cobra.Command, args []string) error {
	settings, err := resolveSettings()
	if err != nil {
		return err
	}

	resp := ConfigResponse{
		ConfigFile:        config.GlobalConfigPath(),
		Backend:           "local",
		DBPath:            settings.DBPath,
		DBPathSource:      settings.DBPathSource,
		DBName:            settings.DBName,
		ChromaURL:         settings.ChromaURL,
		EmbeddingProvider: settings.Embedding.Provider,
		EmbeddingModel:    settings.Embedding.Model,
		Dimensions:        settings.Embedding.Dimensions,
		OllamaURL:         settings.Embedding.OllamaURL,
		RequestsPerSecond: settings.Embedding.RequestsPerSecond,
	}
	if settings.Remote() {
		resp.Backend = "remote"
	}

	if jsonOutput {
		return outputJSON(cmd.OutOrStdout(), resp)
	}

	w := cmd.OutOrStdout()
	fmt.Fprintf(w, "config-file: %s\n", resp.ConfigFile)
	fmt.Fprintf(w, "backend:     %s\n", resp.Backend)
	if settings.Remote() {
		fmt.Fprintf(w, "chroma-url:  %s\n", resp.ChromaURL)
	} else {
		fmt.Fprintf(w, "db-path:     %s (from %s)\n", resp.DBPath, resp.DBPathSource)
	}
	fmt.Fprintf(w, "embedding:   %s %s (%d dims)\n", resp.EmbeddingProvider, resp.EmbeddingModel, resp.Dimensions)
	if resp.EmbeddingProvider == "ollama" {
		fmt.Fprintf(w, "ollama-url:  %s\n", resp.OllamaURL)
	}
	fmt.Fprintf(w, "db-name:     %s\n", resp.DBName)
	return nil
}
