package domain

import (
	"fmt"
	"time"
)

const unknownDescription = "Unknown"

// AIProvider identifies an AI service provider for embeddings or LLM.
type AIProvider string

// Available AI providers.
const (
	// AIProviderOllama is local Ollama instance.
	AIProviderOllama AIProvider = "ollama"

	// AIProviderOpenAI is OpenAI cloud API.
	AIProviderOpenAI AIProvider = "openai"

	// AIProviderAnthropic is Anthropic cloud API.
	AIProviderAnthropic AIProvider = "anthropic"
)

// IsValid returns true if the AI provider is recognised.
func (p AIProvider) IsValid() bool {
	switch p {
	case AIProviderOllama, AIProviderOpenAI, AIProviderAnthropic:
		return true
	default:
		return false
	}
}

// RequiresAPIKey returns true if this provider needs an API key.
func (p AIProvider) RequiresAPIKey() bool {
	return p == AIProviderOpenAI || p == AIProviderAnthropic
}

// IsLocal returns true if this provider runs locally.
func (p AIProvider) IsLocal() bool {
	return p == AIProviderOllama
}

// String returns the string representation.
func (p AIProvider) String() string {
	return string(p)
}

// Description returns a human-readable description of the provider.
func (p AIProvider) Description() string {
	switch p {
	case AIProviderOllama:
		return "Ollama (local)"
	case AIProviderOpenAI:
		return "OpenAI (cloud)"
	case AIProviderAnthropic:
		return "Anthropic (cloud)"
	default:
		return unknownDescription
	}
}

// Duration is a time.Duration read from and written to config as "1m30s".
type Duration time.Duration

// UnmarshalText parses a Go duration string.
func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return fmt.Errorf("%w: %v", ErrConfiguration, err)
	}
	*d = Duration(v)
	return nil
}

// MarshalText formats the duration as a Go duration string.
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(time.Duration(d).String()), nil
}

// Std returns the standard library duration.
func (d Duration) Std() time.Duration {
	return time.Duration(d)
}

// PartitionerKind selects how PDFs are partitioned and chunked.
type PartitionerKind string

// Available partitioners.
const (
	// PartitionerUnstructured calls the hosted Unstructured API.
	PartitionerUnstructured PartitionerKind = "unstructured"

	// PartitionerLocal extracts page text in-process. No layout detection,
	// images or tables.
	PartitionerLocal PartitionerKind = "local"
)

// IsValid returns true if the partitioner kind is recognised.
func (k PartitionerKind) IsValid() bool {
	return k == PartitionerUnstructured || k == PartitionerLocal
}

// DirectorySettings holds filesystem locations.
type DirectorySettings struct {
	// InputDir receives uploaded and watched PDFs.
	InputDir string `toml:"input_dir"`

	// OutputDir holds the stage artifact directories.
	OutputDir string `toml:"output_dir"`

	// DataDir holds the SQLite database.
	DataDir string `toml:"data_dir"`
}

// PartitionerSettings configures the partitioning collaborator.
type PartitionerSettings struct {
	Kind     PartitionerKind `toml:"kind"`
	APIURL   string          `toml:"api_url"`
	APIKey   string          `toml:"api_key"`
	Strategy string          `toml:"strategy"`
	Timeout  Duration        `toml:"timeout"`
}

// ChunkingSettings configures title chunking.
type ChunkingSettings struct {
	Kind          PartitionerKind `toml:"kind"`
	MaxCharacters int             `toml:"max_characters"`
	Overlap       int             `toml:"overlap"`

	// Processors is the ordered list of chunk processors run after
	// chunking. Empty means the defaults.
	Processors []string `toml:"processors"`
}

// EmbeddingSettings holds embedding provider configuration.
type EmbeddingSettings struct {
	// Provider is the embedding service provider.
	Provider AIProvider `toml:"provider"`

	// Model is the embedding model name.
	Model string `toml:"model"`

	// BaseURL is the API endpoint (for Ollama).
	BaseURL string `toml:"base_url"`

	// APIKey is the API key (for OpenAI).
	APIKey string `toml:"api_key"`
}

// IsConfigured returns true if the embedding provider is set up.
func (e EmbeddingSettings) IsConfigured() bool {
	if !e.Provider.IsValid() || e.Provider == AIProviderAnthropic {
		return false
	}
	if e.Provider.RequiresAPIKey() && e.APIKey == "" {
		return false
	}
	return true
}

// LLMSettings holds LLM provider configuration.
type LLMSettings struct {
	// Provider is the LLM service provider.
	Provider AIProvider `toml:"provider"`

	// Model is used for text tagging.
	Model string `toml:"model"`

	// VisionModel describes images and tables.
	VisionModel string `toml:"vision_model"`

	// ExtractionModel answers catalogue questions.
	ExtractionModel string `toml:"extraction_model"`

	// BaseURL is the API endpoint (for Ollama).
	BaseURL string `toml:"base_url"`

	// APIKey is the API key (for OpenAI/Anthropic).
	APIKey string `toml:"api_key"`
}

// IsConfigured returns true if the LLM provider is set up.
func (l LLMSettings) IsConfigured() bool {
	if !l.Provider.IsValid() {
		return false
	}
	if l.Provider.RequiresAPIKey() && l.APIKey == "" {
		return false
	}
	return true
}

// OracleSettings bounds calls to the model providers.
type OracleSettings struct {
	// RequestsPerSecond limits call rate. Zero disables limiting.
	RequestsPerSecond float64 `toml:"requests_per_second"`

	// MaxRetries is the number of retries after a failed call.
	MaxRetries int `toml:"max_retries"`

	// InitialBackoff is doubled on every retry.
	InitialBackoff Duration `toml:"initial_backoff"`
}

// RetrievalSettings configures similarity retrieval.
type RetrievalSettings struct {
	Threshold float64 `toml:"threshold"`
	Count     int     `toml:"count"`
}

// ServerSettings configures the HTTP API.
type ServerSettings struct {
	Addr           string   `toml:"addr"`
	MaxUploadBytes int64    `toml:"max_upload_bytes"`
	RequestTimeout Duration `toml:"request_timeout"`
}

// ArchiveSettings configures optional object storage for uploaded PDFs.
type ArchiveSettings struct {
	Enabled   bool   `toml:"enabled"`
	Endpoint  string `toml:"endpoint"`
	AccessKey string `toml:"access_key"`
	SecretKey string `toml:"secret_key"`
	Bucket    string `toml:"bucket"`
	UseSSL    bool   `toml:"use_ssl"`
}

// CacheSettings configures the optional embedding cache.
type CacheSettings struct {
	Enabled  bool     `toml:"enabled"`
	Addr     string   `toml:"addr"`
	Password string   `toml:"password"`
	DB       int      `toml:"db"`
	TTL      Duration `toml:"ttl"`
}

// LoggingSettings configures log output.
type LoggingSettings struct {
	Level  string `toml:"level"`
	Format string `toml:"format"`
}

// WatchSettings configures the input directory watcher.
type WatchSettings struct {
	// Debounce is how long a file must stay quiet before it is ingested.
	Debounce Duration `toml:"debounce"`
	// Rescan is the interval of the full directory sweep that catches
	// files whose events were missed.
	Rescan Duration `toml:"rescan"`
}

// AppSettings holds all application settings. It is constructed once at
// startup and passed to the components that need it.
type AppSettings struct {
	Directories DirectorySettings   `toml:"directories"`
	Partitioner PartitionerSettings `toml:"partitioner"`
	Chunking    ChunkingSettings    `toml:"chunking"`
	Embedding   EmbeddingSettings   `toml:"embedding"`
	LLM         LLMSettings         `toml:"llm"`
	Oracle      OracleSettings      `toml:"oracle"`
	Retrieval   RetrievalSettings   `toml:"retrieval"`
	Server      ServerSettings      `toml:"server"`
	Archive     ArchiveSettings     `toml:"archive"`
	Cache       CacheSettings       `toml:"cache"`
	Watch       WatchSettings       `toml:"watch"`
	Logging     LoggingSettings     `toml:"logging"`
}

// Retrieval defaults used by the extraction engine.
const (
	DefaultMatchThreshold = -0.2
	DefaultMatchCount     = 5
)

// DefaultAppSettings returns settings with sensible defaults.
// API keys are left empty and must come from the config file or environment.
func DefaultAppSettings() AppSettings {
	return AppSettings{
		Directories: DirectorySettings{
			InputDir:  "data/input",
			OutputDir: "data/output",
			DataDir:   "data",
		},
		Partitioner: PartitionerSettings{
			Kind:     PartitionerUnstructured,
			APIURL:   "https://api.unstructuredapp.io/general/v0/general",
			Strategy: "hi_res",
			Timeout:  Duration(10 * time.Minute),
		},
		Chunking: ChunkingSettings{
			Kind:          PartitionerLocal,
			MaxCharacters: 3000,
			Overlap:       150,
		},
		Embedding: EmbeddingSettings{
			Provider: AIProviderOpenAI,
			Model:    "text-embedding-ada-002",
		},
		LLM: LLMSettings{
			Provider:        AIProviderOpenAI,
			Model:           "gpt-4",
			VisionModel:     "gpt-4o",
			ExtractionModel: "gpt-4-turbo-preview",
		},
		Oracle: OracleSettings{
			RequestsPerSecond: 2,
			MaxRetries:        2,
			InitialBackoff:    Duration(time.Second),
		},
		Retrieval: RetrievalSettings{
			Threshold: DefaultMatchThreshold,
			Count:     DefaultMatchCount,
		},
		Server: ServerSettings{
			Addr:           ":8000",
			MaxUploadBytes: 64 << 20,
			RequestTimeout: Duration(30 * time.Minute),
		},
		Archive: ArchiveSettings{
			Bucket: "contracts",
		},
		Cache: CacheSettings{
			Addr: "localhost:6379",
			TTL:  Duration(24 * time.Hour),
		},
		Watch: WatchSettings{
			Debounce: Duration(2 * time.Second),
			Rescan:   Duration(time.Minute),
		},
		Logging: LoggingSettings{
			Level:  "info",
			Format: "text",
		},
	}
}

// Validate checks the settings every command needs. Provider credentials
// are checked separately because read-only commands run without them.
func (s AppSettings) Validate() error {
	if s.Directories.InputDir == "" {
		return fmt.Errorf("%w: directories.input_dir is required", ErrConfiguration)
	}
	if s.Directories.OutputDir == "" {
		return fmt.Errorf("%w: directories.output_dir is required", ErrConfiguration)
	}
	if !s.Partitioner.Kind.IsValid() {
		return fmt.Errorf("%w: unknown partitioner %q", ErrConfiguration, s.Partitioner.Kind)
	}
	if !s.Chunking.Kind.IsValid() {
		return fmt.Errorf("%w: unknown chunker %q", ErrConfiguration, s.Chunking.Kind)
	}
	if s.Chunking.MaxCharacters <= 0 {
		return fmt.Errorf("%w: chunking.max_characters must be positive", ErrConfiguration)
	}
	if s.Chunking.Overlap < 0 || s.Chunking.Overlap >= s.Chunking.MaxCharacters {
		return fmt.Errorf("%w: chunking.overlap must be in [0, max_characters)", ErrConfiguration)
	}
	if s.Retrieval.Count <= 0 {
		return fmt.Errorf("%w: retrieval.count must be positive", ErrConfiguration)
	}
	return nil
}

// ValidateProcessing checks the credentials the full pipeline needs.
func (s AppSettings) ValidateProcessing() error {
	if err := s.Validate(); err != nil {
		return err
	}
	if s.Partitioner.Kind == PartitionerUnstructured && s.Partitioner.APIKey == "" {
		return fmt.Errorf("%w: partitioner.api_key is required for the unstructured partitioner", ErrConfiguration)
	}
	if s.Chunking.Kind == PartitionerUnstructured && s.Partitioner.APIKey == "" {
		return fmt.Errorf("%w: partitioner.api_key is required for the unstructured chunker", ErrConfiguration)
	}
	if !s.LLM.IsConfigured() {
		return fmt.Errorf("%w: llm provider %q is not configured", ErrConfiguration, s.LLM.Provider)
	}
	if !s.Embedding.IsConfigured() {
		return fmt.Errorf("%w: embedding provider %q is not configured", ErrConfiguration, s.Embedding.Provider)
	}
	return nil
}

// AllLLMProviders returns providers that support LLM operations.
func AllLLMProviders() []AIProvider {
	return []AIProvider{
		AIProviderOllama,
		AIProviderOpenAI,
		AIProviderAnthropic,
	}
}

// AllEmbeddingProviders returns providers that support embeddings.
func AllEmbeddingProviders() []AIProvider {
	return []AIProvider{
		AIProviderOllama,
		AIProviderOpenAI,
	}
}

// EmbeddingDimensions returns the vector dimensions for known models.
func EmbeddingDimensions() map[string]int {
	return map[string]int{
		// Ollama models
		"nomic-embed-text":  768,
		"mxbai-embed-large": 1024,
		"all-minilm":        384,
		// OpenAI models
		"text-embedding-3-small": 1536,
		"text-embedding-3-large": 3072,
		"text-embedding-ada-002": 1536,
	}
}

// DefaultLLMModels returns the tagging model used per provider when none is given.
func DefaultLLMModels() map[AIProvider]string {
	return map[AIProvider]string{
		AIProviderOllama:    "llama3.2",
		AIProviderOpenAI:    "gpt-4",
		AIProviderAnthropic: "claude-3-5-sonnet-latest",
	}
}

// DefaultEmbeddingModels returns the embedding model used per provider when none is given.
func DefaultEmbeddingModels() map[AIProvider]string {
	return map[AIProvider]string{
		AIProviderOllama: "nomic-embed-text",
		AIProviderOpenAI: "text-embedding-ada-002",
	}
}
