package file

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"sync"

	"github.com/joho/godotenv"
	"github.com/pelletier/go-toml/v2"

	"github.com/custodia-labs/clause/internal/core/domain"
)

// ConfigFileName is the settings file name inside the config directory.
const ConfigFileName = "config.toml"

// envOverrides maps environment variables to the setting they replace.
// Secrets usually arrive this way rather than through the TOML file.
var envOverrides = map[string]func(s *domain.AppSettings, v string) error{
	"OPENAI_API_KEY": func(s *domain.AppSettings, v string) error {
		if s.LLM.Provider == domain.AIProviderOpenAI {
			s.LLM.APIKey = v
		}
		if s.Embedding.Provider == domain.AIProviderOpenAI {
			s.Embedding.APIKey = v
		}
		return nil
	},
	"ANTHROPIC_API_KEY": func(s *domain.AppSettings, v string) error {
		if s.LLM.Provider == domain.AIProviderAnthropic {
			s.LLM.APIKey = v
		}
		return nil
	},
	"OLLAMA_HOST": func(s *domain.AppSettings, v string) error {
		if s.LLM.Provider == domain.AIProviderOllama {
			s.LLM.BaseURL = v
		}
		if s.Embedding.Provider == domain.AIProviderOllama {
			s.Embedding.BaseURL = v
		}
		return nil
	},
	"UNSTRUCTURED_API_KEY": func(s *domain.AppSettings, v string) error {
		s.Partitioner.APIKey = v
		return nil
	},
	"UNSTRUCTURED_API_URL": func(s *domain.AppSettings, v string) error {
		s.Partitioner.APIURL = v
		return nil
	},
	"CLAUSE_INPUT_DIR": func(s *domain.AppSettings, v string) error {
		s.Directories.InputDir = v
		return nil
	},
	"CLAUSE_OUTPUT_DIR": func(s *domain.AppSettings, v string) error {
		s.Directories.OutputDir = v
		return nil
	},
	"CLAUSE_DATA_DIR": func(s *domain.AppSettings, v string) error {
		s.Directories.DataDir = v
		return nil
	},
	"CLAUSE_ADDR": func(s *domain.AppSettings, v string) error {
		s.Server.Addr = v
		return nil
	},
	"CLAUSE_LOG_LEVEL": func(s *domain.AppSettings, v string) error {
		s.Logging.Level = v
		return nil
	},
	"MINIO_ENDPOINT": func(s *domain.AppSettings, v string) error {
		s.Archive.Endpoint = v
		s.Archive.Enabled = true
		return nil
	},
	"MINIO_ACCESS_KEY": func(s *domain.AppSettings, v string) error {
		s.Archive.AccessKey = v
		return nil
	},
	"MINIO_SECRET_KEY": func(s *domain.AppSettings, v string) error {
		s.Archive.SecretKey = v
		return nil
	},
	"REDIS_ADDR": func(s *domain.AppSettings, v string) error {
		s.Cache.Addr = v
		s.Cache.Enabled = true
		return nil
	},
	"REDIS_PASSWORD": func(s *domain.AppSettings, v string) error {
		s.Cache.Password = v
		return nil
	},
	"REDIS_DB": func(s *domain.AppSettings, v string) error {
		db, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("REDIS_DB: %w", err)
		}
		s.Cache.DB = db
		return nil
	},
}

// SettingsStore reads and writes AppSettings as TOML.
type SettingsStore struct {
	mu       sync.Mutex
	filePath string
	envFiles []string
	lookup   func(string) (string, bool)
}

// NewSettingsStore creates a settings store for path. If path is empty,
// defaults to ~/.clause/config.toml. envFiles are loaded with godotenv
// before overrides are applied; missing files are ignored.
func NewSettingsStore(path string, envFiles ...string) (*SettingsStore, error) {
	if path == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("getting home directory: %w", err)
		}
		path = filepath.Join(home, ".clause", ConfigFileName)
	}
	return &SettingsStore{
		filePath: path,
		envFiles: envFiles,
		lookup:   os.LookupEnv,
	}, nil
}

// Path returns the configuration file path.
func (s *SettingsStore) Path() string {
	return s.filePath
}

// Load returns defaults overlaid with the TOML file (if present) and then the
// environment. Unknown TOML keys are rejected. The result is for building
// runtime services; use LoadFile for settings that will be saved back.
func (s *SettingsStore) Load() (domain.AppSettings, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	settings, err := s.readFile()
	if err != nil {
		return settings, err
	}
	if err := s.loadEnvFiles(); err != nil {
		return settings, err
	}
	if err := applyEnv(&settings, s.lookup); err != nil {
		return settings, fmt.Errorf("%w: %v", domain.ErrConfiguration, err)
	}
	return settings, nil
}

// LoadFile returns defaults overlaid with the TOML file only. Environment
// overrides are left out so they never end up in the file on Save.
func (s *SettingsStore) LoadFile() (domain.AppSettings, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.readFile()
}

func (s *SettingsStore) readFile() (domain.AppSettings, error) {
	settings := domain.DefaultAppSettings()

	data, err := os.ReadFile(s.filePath)
	switch {
	case errors.Is(err, os.ErrNotExist):
		// No config file yet
	case err != nil:
		return settings, fmt.Errorf("reading config: %w", err)
	default:
		dec := toml.NewDecoder(bytes.NewReader(data))
		dec.DisallowUnknownFields()
		if err := dec.Decode(&settings); err != nil {
			return settings, fmt.Errorf("%w: %s: %v", domain.ErrConfiguration, s.filePath, err)
		}
	}
	return settings, nil
}

// Save writes settings to the TOML file with restricted permissions.
func (s *SettingsStore) Save(settings domain.AppSettings) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := toml.Marshal(settings)
	if err != nil {
		return fmt.Errorf("encoding config: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(s.filePath), 0700); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}
	return os.WriteFile(s.filePath, data, 0600)
}

// loadEnvFiles populates the process environment from .env files without
// overriding variables that are already set.
func (s *SettingsStore) loadEnvFiles() error {
	for _, f := range s.envFiles {
		if _, err := os.Stat(f); errors.Is(err, os.ErrNotExist) {
			continue
		}
		if err := godotenv.Load(f); err != nil {
			return fmt.Errorf("loading %s: %w", f, err)
		}
	}
	return nil
}

func applyEnv(settings *domain.AppSettings, lookup func(string) (string, bool)) error {
	var errs []error
	for key, apply := range envOverrides {
		v, ok := lookup(key)
		if !ok || v == "" {
			continue
		}
		if err := apply(settings, v); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
