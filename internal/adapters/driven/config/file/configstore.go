package file

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/pelletier/go-toml/v2"

	"github.com/custodia-labs/aska-cli/internal/core/domain"
	"github.com/custodia-labs/aska-cli/internal/core/ports/driven"
)

// Ensure ConfigStore implements the interface.
var _ driven.ConfigStore = (*ConfigStore)(nil)

// ServiceConfig holds the endpoint settings for one model service.
type ServiceConfig struct {
	// BaseURL is the service base URL.
	BaseURL string `toml:"base_url"`

	// Model is the model name the service should use.
	Model string `toml:"model"`
}

// ServicesConfig groups the model service endpoints.
type ServicesConfig struct {
	// Embedding is the embedding service endpoint.
	Embedding ServiceConfig `toml:"embedding"`

	// LLM is the generation service endpoint.
	LLM ServiceConfig `toml:"llm"`

	// Rerank is the rerank service endpoint. An empty base URL disables
	// reranking.
	Rerank ServiceConfig `toml:"rerank"`
}

// pipelineConfig is the TOML shape of domain.PipelineSettings.
// Durations are expressed in seconds; zero values fall back to defaults.
type pipelineConfig struct {
	ChunkSize             int     `toml:"chunk_size"`
	ChunkOverlap          *int    `toml:"chunk_overlap"`
	EmbeddingDimensions   int     `toml:"embedding_dimensions"`
	Metric                string  `toml:"metric"`
	TopKRetrieval         int     `toml:"top_k_retrieval"`
	TopKRerank            int     `toml:"top_k_rerank"`
	MemoryTokenBudget     *int    `toml:"memory_token_budget"`
	RetrieveTimeoutSecs   float64 `toml:"retrieve_timeout_seconds"`
	RerankTimeoutSecs     float64 `toml:"rerank_timeout_seconds"`
	GenerateTimeoutSecs   float64 `toml:"generate_timeout_seconds"`
	EmbedTimeoutSecs      float64 `toml:"embed_timeout_seconds"`
	EmbedRetryAttempts    int     `toml:"embed_retry_attempts"`
	EmbedRetryBaseDelayMS int     `toml:"embed_retry_base_delay_ms"`
	EmbedRatePerSecond    float64 `toml:"embed_rate_per_second"`
}

// fileConfig is the full TOML document.
type fileConfig struct {
	Pipeline pipelineConfig `toml:"pipeline"`
	Services ServicesConfig `toml:"services"`
}

// ConfigStore is a file-based implementation of driven.ConfigStore using TOML.
type ConfigStore struct {
	mu       sync.RWMutex
	filePath string
}

// NewConfigStore creates a new TOML-based config store.
// If configDir is empty, defaults to ~/.aska.
func NewConfigStore(configDir string) (*ConfigStore, error) {
	if configDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, err
		}
		configDir = filepath.Join(home, ".aska")
	}

	// Ensure directory exists
	if err := os.MkdirAll(configDir, 0700); err != nil {
		return nil, err
	}

	return &ConfigStore{
		filePath: filepath.Join(configDir, "config.toml"),
	}, nil
}

// Path returns the config file path.
func (s *ConfigStore) Path() string {
	return s.filePath
}

// Load returns the stored settings, falling back to defaults for
// anything unset. A missing config file yields the defaults.
func (s *ConfigStore) Load() (domain.PipelineSettings, error) {
	cfg, err := s.read()
	if err != nil {
		return domain.PipelineSettings{}, err
	}

	settings := domain.DefaultPipelineSettings()
	p := cfg.Pipeline

	if p.ChunkSize > 0 {
		settings.ChunkSize = p.ChunkSize
	}
	if p.ChunkOverlap != nil {
		settings.ChunkOverlap = *p.ChunkOverlap
	}
	if p.EmbeddingDimensions > 0 {
		settings.EmbeddingDimensions = p.EmbeddingDimensions
	}
	if p.Metric != "" {
		settings.Metric = domain.DistanceMetric(p.Metric)
	}
	if p.TopKRetrieval > 0 {
		settings.TopKRetrieval = p.TopKRetrieval
	}
	if p.TopKRerank > 0 {
		settings.TopKRerank = p.TopKRerank
	}
	if p.MemoryTokenBudget != nil {
		settings.MemoryTokenBudget = *p.MemoryTokenBudget
	}
	if p.RetrieveTimeoutSecs > 0 {
		settings.RetrieveTimeout = secondsToDuration(p.RetrieveTimeoutSecs)
	}
	if p.RerankTimeoutSecs > 0 {
		settings.RerankTimeout = secondsToDuration(p.RerankTimeoutSecs)
	}
	if p.GenerateTimeoutSecs > 0 {
		settings.GenerateTimeout = secondsToDuration(p.GenerateTimeoutSecs)
	}
	if p.EmbedTimeoutSecs > 0 {
		settings.EmbedTimeout = secondsToDuration(p.EmbedTimeoutSecs)
	}
	if p.EmbedRetryAttempts > 0 {
		settings.EmbedRetryAttempts = p.EmbedRetryAttempts
	}
	if p.EmbedRetryBaseDelayMS > 0 {
		settings.EmbedRetryBaseDelay = time.Duration(p.EmbedRetryBaseDelayMS) * time.Millisecond
	}
	if p.EmbedRatePerSecond > 0 {
		settings.EmbedRatePerSecond = p.EmbedRatePerSecond
	}

	if err := settings.Validate(); err != nil {
		return domain.PipelineSettings{}, fmt.Errorf("config %s: %w", s.filePath, err)
	}

	return settings, nil
}

// Save persists the settings, preserving the services section.
func (s *ConfigStore) Save(settings domain.PipelineSettings) error {
	if err := settings.Validate(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	cfg, err := s.readLocked()
	if err != nil {
		return err
	}

	overlap := settings.ChunkOverlap
	budget := settings.MemoryTokenBudget
	cfg.Pipeline = pipelineConfig{
		ChunkSize:             settings.ChunkSize,
		ChunkOverlap:          &overlap,
		EmbeddingDimensions:   settings.EmbeddingDimensions,
		Metric:                string(settings.Metric),
		TopKRetrieval:         settings.TopKRetrieval,
		TopKRerank:            settings.TopKRerank,
		MemoryTokenBudget:     &budget,
		RetrieveTimeoutSecs:   settings.RetrieveTimeout.Seconds(),
		RerankTimeoutSecs:     settings.RerankTimeout.Seconds(),
		GenerateTimeoutSecs:   settings.GenerateTimeout.Seconds(),
		EmbedTimeoutSecs:      settings.EmbedTimeout.Seconds(),
		EmbedRetryAttempts:    settings.EmbedRetryAttempts,
		EmbedRetryBaseDelayMS: int(settings.EmbedRetryBaseDelay / time.Millisecond),
		EmbedRatePerSecond:    settings.EmbedRatePerSecond,
	}

	data, err := toml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshalling config: %w", err)
	}

	if err := os.WriteFile(s.filePath, data, 0600); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}
	return nil
}

// Services returns the configured model service endpoints.
func (s *ConfigStore) Services() (ServicesConfig, error) {
	cfg, err := s.read()
	if err != nil {
		return ServicesConfig{}, err
	}
	return cfg.Services, nil
}

// read parses the config file under the read lock.
func (s *ConfigStore) read() (fileConfig, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.readLocked()
}

// readLocked parses the config file. A missing file is an empty config.
func (s *ConfigStore) readLocked() (fileConfig, error) {
	var cfg fileConfig

	data, err := os.ReadFile(s.filePath)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("reading config: %w", err)
	}

	if err := toml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parsing config %s: %w", s.filePath, err)
	}
	return cfg, nil
}

// secondsToDuration converts a fractional second count to a Duration.
func secondsToDuration(secs float64) time.Duration {
	return time.Duration(secs * float64(time.Second))
}
