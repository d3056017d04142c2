package config

import (
	"os"
	"path/filepath"
	"testing"
)

func validConfig() Config {
	cfg := Config{
		HTTP:      HTTPConfig{Port: 8080},
		Embedding: EmbeddingConfig{Model: "text-embedding-3-small", Dimensions: 1536},
		LLM:       LLMConfig{Model: "gpt-4o-mini"},
		Store: StoreConfig{
			TextNorms:  "data/text_norms.json",
			TextIndex:  "data/text.idx",
			TableNorms: "data/table_norms.json",
			TableIndex: "data/table.idx",
		},
	}
	cfg.ApplyDefaults()
	return cfg
}

func TestValidate_OK(t *testing.T) {
	cfg := validConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestValidate_InvalidPort(t *testing.T) {
	cfg := validConfig()
	cfg.HTTP.Port = 0

	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for invalid port")
	}
}

func TestValidate_InvalidMode(t *testing.T) {
	cfg := validConfig()
	cfg.Synthesis.Mode = "parallel"

	err := cfg.Validate()
	if err == nil {
		t.Fatal("expected error for invalid mode")
	}

	expected := `synthesis.mode must be "categorized" or "combined", got "parallel"`
	if err.Error() != expected {
		t.Errorf("unexpected error message:\ngot:  %q\nwant: %q", err.Error(), expected)
	}
}

func TestValidate_InvalidStrategy(t *testing.T) {
	cfg := validConfig()
	cfg.Synthesis.Strategy = "thirds"

	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for invalid strategy")
	}
}

func TestValidate_StorePaths(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*StoreConfig)
	}{
		{"no collections", func(s *StoreConfig) { *s = StoreConfig{} }},
		{"text without index", func(s *StoreConfig) { s.TextIndex = "" }},
		{"table without index", func(s *StoreConfig) { s.TableIndex = "" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(&cfg.Store)
			if err := cfg.Validate(); err == nil {
				t.Fatal("expected error")
			}
		})
	}
}

func TestValidate_TableOnlyStore(t *testing.T) {
	cfg := validConfig()
	cfg.Store.TextNorms = ""
	cfg.Store.TextIndex = ""

	if err := cfg.Validate(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestValidate_Threshold(t *testing.T) {
	for _, v := range []float32{-0.1, 1.5} {
		cfg := validConfig()
		cfg.Retrieval.AppliesThreshold = v
		if err := cfg.Validate(); err == nil {
			t.Errorf("expected error for threshold %v", v)
		}
	}
}

func TestValidate_MissingModels(t *testing.T) {
	cfg := validConfig()
	cfg.Embedding.Model = ""
	if err := cfg.Validate(); err == nil {
		t.Error("expected error for missing embedding model")
	}

	cfg = validConfig()
	cfg.LLM.Model = ""
	if err := cfg.Validate(); err == nil {
		t.Error("expected error for missing llm model")
	}

	cfg = validConfig()
	cfg.Embedding.Dimensions = 0
	if err := cfg.Validate(); err == nil {
		t.Error("expected error for zero dimensions")
	}
}

func TestApplyDefaults(t *testing.T) {
	cfg := Config{Store: StoreConfig{TextNorms: filepath.Join("data", "text_norms.json")}}
	cfg.ApplyDefaults()

	if cfg.HTTP.ReadTimeoutSec != 10 {
		t.Errorf("expected ReadTimeoutSec=10, got %d", cfg.HTTP.ReadTimeoutSec)
	}
	if cfg.HTTP.WriteTimeoutSec != 300 {
		t.Errorf("expected WriteTimeoutSec=300, got %d", cfg.HTTP.WriteTimeoutSec)
	}
	if cfg.Database.Driver != "valkey" {
		t.Errorf("expected Driver=valkey, got %q", cfg.Database.Driver)
	}
	if cfg.Retrieval.TextTopK != 20 || cfg.Retrieval.TableTopK != 5 {
		t.Errorf("unexpected top-k defaults: %d/%d", cfg.Retrieval.TextTopK, cfg.Retrieval.TableTopK)
	}
	if cfg.Synthesis.Mode != "categorized" {
		t.Errorf("expected Mode=categorized, got %q", cfg.Synthesis.Mode)
	}
	if cfg.Synthesis.Strategy != "halves" {
		t.Errorf("expected Strategy=halves, got %q", cfg.Synthesis.Strategy)
	}
	if cfg.Synthesis.Workers != 4 {
		t.Errorf("expected Workers=4, got %d", cfg.Synthesis.Workers)
	}
	if want := filepath.Join("data", ".normindex.lock"); cfg.Store.LockFile != want {
		t.Errorf("expected LockFile=%q, got %q", want, cfg.Store.LockFile)
	}
}

func TestApplyDefaults_NoOverride(t *testing.T) {
	cfg := Config{
		HTTP:      HTTPConfig{ReadTimeoutSec: 30, WriteTimeoutSec: 60, ShutdownSec: 5},
		Database:  DatabaseConfig{Driver: "redis", ReadinessTimeout: 15},
		Retrieval: RetrievalConfig{TextTopK: 7},
		Synthesis: SynthesisConfig{Mode: "combined", Workers: 2},
		Store:     StoreConfig{LockFile: "/tmp/custom.lock"},
	}
	cfg.ApplyDefaults()

	if cfg.HTTP.ReadTimeoutSec != 30 {
		t.Errorf("expected ReadTimeoutSec=30, got %d", cfg.HTTP.ReadTimeoutSec)
	}
	if cfg.Database.Driver != "redis" {
		t.Errorf("expected Driver=redis, got %q", cfg.Database.Driver)
	}
	if cfg.Retrieval.TextTopK != 7 {
		t.Errorf("expected TextTopK=7, got %d", cfg.Retrieval.TextTopK)
	}
	if cfg.Synthesis.Mode != "combined" || cfg.Synthesis.Workers != 2 {
		t.Errorf("synthesis overridden: %+v", cfg.Synthesis)
	}
	if cfg.Store.LockFile != "/tmp/custom.lock" {
		t.Errorf("expected custom lock file, got %q", cfg.Store.LockFile)
	}
}

func TestExpandEnvVars(t *testing.T) {
	t.Setenv("NORMRAG_TEST_KEY", "secret")
	os.Unsetenv("NORMRAG_TEST_MISSING") //nolint:errcheck

	got := string(expandEnvVars([]byte("a: ${NORMRAG_TEST_KEY}\nb: ${NORMRAG_TEST_MISSING:-fallback}\nc: ${NORMRAG_TEST_MISSING}")))
	want := "a: secret\nb: fallback\nc: "
	if got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestLoad_LocalConfig(t *testing.T) {
	cfg, err := Load("local")
	if err != nil {
		t.Fatalf("load local config: %v", err)
	}
	if cfg.HTTP.Port == 0 {
		t.Error("expected http.port to be set")
	}
	if cfg.Synthesis.Jurisdiction != nil {
		t.Errorf("expected default jurisdiction, got %q", *cfg.Synthesis.Jurisdiction)
	}
}
