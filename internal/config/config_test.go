package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func envMap(m map[string]string) func(string) string {
	return func(k string) string { return m[k] }
}

func TestResolveDBPath_Precedence(t *testing.T) {
	home, err := os.UserHomeDir()
	if err != nil {
		t.Skip("Cannot get home directory")
	}
	tmpDir := t.TempDir()
	flagPath := filepath.Join(tmpDir, "flag")
	envPath := filepath.Join(tmpDir, "env")
	cfgPath := filepath.Join(tmpDir, "cfg")

	tests := []struct {
		name       string
		explicit   string
		env        map[string]string
		global     *GlobalConfig
		dbName     string
		want       string
		wantSource string
	}{
		{
			name:       "flag wins over everything",
			explicit:   flagPath,
			env:        map[string]string{EnvDBPath: envPath},
			global:     &GlobalConfig{DBPath: cfgPath},
			want:       flagPath,
			wantSource: "flag",
		},
		{
			name:       "env wins over config",
			env:        map[string]string{EnvDBPath: envPath},
			global:     &GlobalConfig{DBPath: cfgPath},
			want:       envPath,
			wantSource: "env",
		},
		{
			name:       "config when no flag or env",
			global:     &GlobalConfig{DBPath: cfgPath},
			want:       cfgPath,
			wantSource: "config",
		},
		{
			name:       "default uses db name",
			dbName:     "notes",
			want:       filepath.Join(home, ".chromadb", "notes"),
			wantSource: "default",
		},
		{
			name:       "default db name",
			want:       filepath.Join(home, ".chromadb", DefaultDBName),
			wantSource: "default",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, source, err := ResolveDBPath(tt.explicit, tt.dbName, tt.global, envMap(tt.env))
			if err != nil {
				t.Fatalf("ResolveDBPath() error = %v", err)
			}
			if got != tt.want {
				t.Errorf("ResolveDBPath() = %q, want %q", got, tt.want)
			}
			if source != tt.wantSource {
				t.Errorf("source = %q, want %q", source, tt.wantSource)
			}
		})
	}
}

func TestResolveDBPath_ExpandsTilde(t *testing.T) {
	home, err := os.UserHomeDir()
	if err != nil {
		t.Skip("Cannot get home directory")
	}
	got, _, err := ResolveDBPath("~/vectors", "", nil, envMap(nil))
	if err != nil {
		t.Fatalf("ResolveDBPath() error = %v", err)
	}
	if want := filepath.Join(home, "vectors"); got != want {
		t.Errorf("ResolveDBPath() = %q, want %q", got, want)
	}
}

func TestResolveDBPath_RejectsSeparatorInName(t *testing.T) {
	_, _, err := ResolveDBPath("", "../escape", nil, envMap(nil))
	if !errors.Is(err, ErrInvalidSetting) {
		t.Errorf("ResolveDBPath() error = %v, want ErrInvalidSetting", err)
	}
}

func TestResolve_Defaults(t *testing.T) {
	s, err := Resolve(Overrides{}, nil, envMap(nil))
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	if s.DBName != DefaultDBName {
		t.Errorf("DBName = %q, want %q", s.DBName, DefaultDBName)
	}
	if s.Remote() {
		t.Error("Remote() = true, want false")
	}
	if s.Embedding.Provider != DefaultEmbeddingProvider {
		t.Errorf("Embedding.Provider = %q, want %q", s.Embedding.Provider, DefaultEmbeddingProvider)
	}
	if s.Embedding.Model != DefaultEmbeddingModel {
		t.Errorf("Embedding.Model = %q, want %q", s.Embedding.Model, DefaultEmbeddingModel)
	}
	if s.Embedding.OllamaURL != DefaultOllamaURL {
		t.Errorf("Embedding.OllamaURL = %q, want %q", s.Embedding.OllamaURL, DefaultOllamaURL)
	}
	if s.Embedding.Dimensions != DefaultDimensions {
		t.Errorf("Embedding.Dimensions = %d, want %d", s.Embedding.Dimensions, DefaultDimensions)
	}
}

func TestResolve_ChromaURL(t *testing.T) {
	s, err := Resolve(Overrides{}, &GlobalConfig{ChromaURL: "http://cfg:8000"},
		envMap(map[string]string{EnvChromaURL: "http://env:8000"}))
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	if s.ChromaURL != "http://env:8000" {
		t.Errorf("ChromaURL = %q, want env value", s.ChromaURL)
	}
	if !s.Remote() {
		t.Error("Remote() = false, want true")
	}
	if s.DBPath != "" {
		t.Errorf("DBPath = %q, want empty for remote", s.DBPath)
	}

	s, err = Resolve(Overrides{ChromaURL: "https://flag:443"}, nil,
		envMap(map[string]string{EnvChromaURL: "http://env:8000"}))
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	if s.ChromaURL != "https://flag:443" {
		t.Errorf("ChromaURL = %q, want flag value", s.ChromaURL)
	}
}

func TestResolve_InvalidChromaURL(t *testing.T) {
	_, err := Resolve(Overrides{ChromaURL: "localhost:8000"}, nil, envMap(nil))
	if !errors.Is(err, ErrInvalidSetting) {
		t.Errorf("Resolve() error = %v, want ErrInvalidSetting", err)
	}
}

func TestResolve_OllamaHostEnv(t *testing.T) {
	tests := []struct {
		host string
		want string
	}{
		{"127.0.0.1:11434", "http://127.0.0.1:11434"},
		{"http://gpu-box:11434/", "http://gpu-box:11434"},
	}
	for _, tt := range tests {
		t.Run(tt.host, func(t *testing.T) {
			s, err := Resolve(Overrides{DBPath: t.TempDir()}, nil, envMap(map[string]string{EnvOllamaHost: tt.host}))
			if err != nil {
				t.Fatalf("Resolve() error = %v", err)
			}
			if s.Embedding.OllamaURL != tt.want {
				t.Errorf("OllamaURL = %q, want %q", s.Embedding.OllamaURL, tt.want)
			}
		})
	}
}

func TestResolve_ProviderOverride(t *testing.T) {
	global := &GlobalConfig{Embedding: EmbeddingConfig{Provider: "ollama", Model: "nomic-embed-text", Dimensions: 768}}
	s, err := Resolve(Overrides{EmbeddingProvider: "hash", DBPath: t.TempDir()}, global, envMap(nil))
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	if s.Embedding.Provider != "hash" {
		t.Errorf("Provider = %q, want hash", s.Embedding.Provider)
	}
	if s.Embedding.Model != "nomic-embed-text" {
		t.Errorf("Model = %q, want nomic-embed-text", s.Embedding.Model)
	}
	if s.Embedding.Dimensions != 768 {
		t.Errorf("Dimensions = %d, want 768", s.Embedding.Dimensions)
	}
}

func TestExpandPath(t *testing.T) {
	home, err := os.UserHomeDir()
	if err != nil {
		t.Skip("Cannot get home directory")
	}

	tests := []struct {
		in   string
		want string
	}{
		{"", ""},
		{"/abs/path", "/abs/path"},
		{"relative", "relative"},
		{"~", home},
		{"~/data", filepath.Join(home, "data")},
		{"~alice/db", "~alice/db"},
		{"~data", "~data"},
	}
	for _, tt := range tests {
		if got := ExpandPath(tt.in); got != tt.want {
			t.Errorf("ExpandPath(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
