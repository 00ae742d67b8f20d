package config

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/pflag"
)

type Mode string

const (
	ModeLocal Mode = "local"
	ModeGCP   Mode = "gcp"
)

// Storage backends.
const (
	StorageMemory    = "memory"
	StorageFile      = "file"
	StorageFirestore = "firestore"
)

type Config struct {
	Mode Mode

	Port string

	GCPProjectID string
	GCPLocation  string
	ModelName    string

	StorageBackend string // "memory", "file" or "firestore"
	DataDir        string // used by the file backend
	UseMockLLM     bool   // true = use mock even on GCP

	LogLevel        string
	GenerateTimeout time.Duration

	// SettingsFile optionally points at a YAML or JSONC file with the world
	// definition, window size and moderation blocklist.
	SettingsFile string
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getBoolEnv(key string, def bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	if v == "1" || v == "true" || v == "TRUE" {
		return true
	}
	return false
}

func getDurationEnv(key string, def time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return d, nil
}

// Load reads all env vars and then applies command line flags on top.
// args excludes the program name.
func Load(args []string) (*Config, error) {
	modeStr := getEnv("CAMPFIRE_MODE", "local")
	var mode Mode
	switch modeStr {
	case "gcp":
		mode = ModeGCP
	default:
		mode = ModeLocal
	}

	timeout, err := getDurationEnv("CAMPFIRE_GENERATE_TIMEOUT", 30*time.Second)
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		Mode: mode,

		Port: getEnv("CAMPFIRE_PORT", getEnv("PORT", "8080")),

		GCPProjectID: getEnv("CAMPFIRE_GCP_PROJECT", ""),
		GCPLocation:  getEnv("CAMPFIRE_GCP_LOCATION", "us-central1"),
		ModelName:    getEnv("CAMPFIRE_MODEL_NAME", "gemini-2.5-flash-lite"),

		StorageBackend: getEnv("CAMPFIRE_STORAGE_BACKEND", StorageMemory),
		DataDir:        getEnv("CAMPFIRE_DATA_DIR", "./data"),
		UseMockLLM:     getBoolEnv("CAMPFIRE_USE_MOCK_LLM", mode == ModeLocal),

		LogLevel:        getEnv("CAMPFIRE_LOG_LEVEL", "info"),
		GenerateTimeout: timeout,

		SettingsFile: getEnv("CAMPFIRE_SETTINGS_FILE", ""),
	}

	flags := pflag.NewFlagSet("campfire-api", pflag.ContinueOnError)
	flags.StringVar(&cfg.SettingsFile, "config", cfg.SettingsFile, "path to a YAML or JSONC settings file")
	flags.StringVar(&cfg.Port, "port", cfg.Port, "HTTP listen port")
	flags.StringVar(&cfg.StorageBackend, "storage", cfg.StorageBackend, "storage backend: memory, file or firestore")
	flags.StringVar(&cfg.DataDir, "data-dir", cfg.DataDir, "directory for the file storage backend")
	flags.StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "debug, info, warn or error")
	flags.BoolVar(&cfg.UseMockLLM, "mock-llm", cfg.UseMockLLM, "use the offline mock generator")
	if err := flags.Parse(args); err != nil {
		return nil, err
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	switch c.StorageBackend {
	case StorageMemory, StorageFile, StorageFirestore:
	default:
		return fmt.Errorf("unknown storage backend %q", c.StorageBackend)
	}

	// Minimal validation in GCP mode
	if c.Mode == ModeGCP && c.GCPProjectID == "" {
		return fmt.Errorf("CAMPFIRE_GCP_PROJECT must be set in gcp mode")
	}
	if c.StorageBackend == StorageFirestore && c.GCPProjectID == "" {
		return fmt.Errorf("CAMPFIRE_GCP_PROJECT is required for the firestore backend")
	}
	if !c.UseMockLLM && c.GCPProjectID == "" {
		return fmt.Errorf("CAMPFIRE_GCP_PROJECT is required unless the mock LLM is used")
	}
	return nil
}
