package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/spf13/viper"
)

var (
	once    sync.Once
	initErr error
)

// Init initializes the configuration system
// This should be called once at application startup
func Init() error {
	once.Do(func() {
		setDefaults()

		// Environment variables override file values, e.g. SCRIBE_STORAGE_BACKEND
		viper.SetEnvPrefix("SCRIBE")
		viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
		viper.AutomaticEnv()

		configPath := filepath.Clean("./config/settings.yaml")
		viper.SetConfigFile(configPath)

		if err := viper.ReadInConfig(); err != nil {
			// A missing file means defaults and env vars only
			if !os.IsNotExist(err) {
				initErr = fmt.Errorf("error reading config file %s: %w", configPath, err)
				return
			}
		}

		if err := validate(); err != nil {
			initErr = fmt.Errorf("invalid configuration: %w", err)
		}
	})

	return initErr
}

// GetConfig returns the current configuration as a struct
// Init() must be called before using this
func GetConfig() (*Config, error) {
	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}
	return &config, nil
}

// Get returns a config value by key using Viper directly
func Get(key string) any {
	return viper.Get(key)
}

// GetString returns a string config value
func GetString(key string) string {
	return viper.GetString(key)
}

// GetInt returns an int config value
func GetInt(key string) int {
	return viper.GetInt(key)
}

// GetInt64 returns an int64 config value
func GetInt64(key string) int64 {
	return viper.GetInt64(key)
}

// GetBool returns a bool config value
func GetBool(key string) bool {
	return viper.GetBool(key)
}

// GetDuration returns a time.Duration config value
func GetDuration(key string) time.Duration {
	return viper.GetDuration(key)
}

// validate validates the configuration using Viper values
func validate() error {
	port := viper.GetInt("server.port")
	if port <= 0 || port > 65535 {
		return fmt.Errorf("invalid server port: %d", port)
	}

	if viper.GetString("database.path") == "" {
		fmt.Println("Warning: No database path configured")
	}

	switch viper.GetString("storage.backend") {
	case StorageBackendFilesystem:
	case StorageBackendGCS:
		if viper.GetString("storage.bucket") == "" {
			return fmt.Errorf("storage.bucket is required for the gcs backend")
		}
	default:
		return fmt.Errorf("unknown storage backend: %q", viper.GetString("storage.backend"))
	}

	if viper.GetInt64("storage.max_upload_bytes") <= 0 {
		return fmt.Errorf("storage.max_upload_bytes must be positive")
	}

	if viper.GetString("appointments.source") == AppointmentSourcePostgres &&
		viper.GetString("appointments.postgres_dsn") == "" {
		return fmt.Errorf("appointments.postgres_dsn is required for the postgres source")
	}

	// Auto-correct a zero tick interval, the UI timer needs one
	if viper.GetDuration("capture.tick_interval") <= 0 {
		viper.Set("capture.tick_interval", time.Second)
	}

	return validateAPIKeys()
}

// validateAPIKeys validates that API keys are not using placeholder values
func validateAPIKeys() error {
	env := viper.GetString("environment")
	isProduction := env == "production" || env == "prod"

	placeholders := []string{
		"YOUR_KEY_HERE",
		"YOUR_SECRET_HERE",
		"YOUR_API_KEY",
		"changeme",
		"CHANGEME",
		"",
	}

	keys := map[string]bool{
		"notes.api_key":   viper.GetString("notes.provider") == NotesProviderOpenAI,
		"whisper.api_key": viper.GetString("whisper.backend") == WhisperBackendAPI,
	}

	for key, required := range keys {
		if !required {
			continue
		}
		value := viper.GetString(key)
		for _, placeholder := range placeholders {
			if value == placeholder {
				if isProduction {
					return fmt.Errorf("invalid %s: cannot use placeholder values in production", key)
				}
				fmt.Printf("Warning: %s is using a placeholder value\n", key)
				break
			}
		}
	}

	return nil
}

// Validate validates a Config struct (for testing)
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}

	switch c.Storage.Backend {
	case StorageBackendFilesystem:
	case StorageBackendGCS:
		if c.Storage.Bucket == "" {
			return fmt.Errorf("storage.bucket is required for the gcs backend")
		}
	default:
		return fmt.Errorf("unknown storage backend: %q", c.Storage.Backend)
	}

	if c.Storage.MaxUploadBytes <= 0 {
		return fmt.Errorf("storage.max_upload_bytes must be positive")
	}

	if c.Capture.TickInterval <= 0 {
		c.Capture.TickInterval = time.Second
	}

	return nil
}

// setDefaults sets default configuration values
func setDefaults() {
	viper.SetDefault("environment", "development")

	// Server defaults
	viper.SetDefault("server.host", "127.0.0.1")
	viper.SetDefault("server.port", 8080)
	viper.SetDefault("server.read_timeout", 30*time.Second)
	viper.SetDefault("server.write_timeout", 0)
	viper.SetDefault("server.shutdown_timeout", 10*time.Second)
	viper.SetDefault("server.max_header_bytes", 1048576)

	// Database defaults
	viper.SetDefault("database.path", "./data/scribe.db")
	viper.SetDefault("database.verbose", false)

	// Storage defaults, 25 MB matches the transcription service's hard limit
	viper.SetDefault("storage.backend", StorageBackendFilesystem)
	viper.SetDefault("storage.base_path", "./data/recordings")
	viper.SetDefault("storage.bucket", "")
	viper.SetDefault("storage.max_upload_bytes", 26214400)
	viper.SetDefault("storage.temp_dir", "./tmp/capture")
	viper.SetDefault("storage.max_temp_age", 24*time.Hour)

	// Capture defaults
	viper.SetDefault("capture.ffmpeg_path", "ffmpeg")
	viper.SetDefault("capture.ffprobe_path", "ffprobe")
	viper.SetDefault("capture.input_format", "pulse")
	viper.SetDefault("capture.input_device", "default")
	viper.SetDefault("capture.sample_rate", 16000)
	viper.SetDefault("capture.channels", 1)
	viper.SetDefault("capture.tick_interval", time.Second)
	viper.SetDefault("capture.level_interval", 100*time.Millisecond)

	// Whisper defaults
	viper.SetDefault("whisper.backend", WhisperBackendAPI)
	viper.SetDefault("whisper.api_url", "https://api.openai.com/v1/audio/transcriptions")
	viper.SetDefault("whisper.api_key", "")
	viper.SetDefault("whisper.model", "whisper-1")
	viper.SetDefault("whisper.language", "")
	viper.SetDefault("whisper.timeout", 5*time.Minute)
	viper.SetDefault("whisper.cli_path", "whisper-cli")
	viper.SetDefault("whisper.model_path", "./models/ggml-base.en.bin")

	// Note synthesis defaults
	viper.SetDefault("notes.provider", NotesProviderOpenAI)
	viper.SetDefault("notes.api_url", "https://api.openai.com/v1/chat/completions")
	viper.SetDefault("notes.api_key", "")
	viper.SetDefault("notes.model", "gpt-4o")
	viper.SetDefault("notes.temperature", 0.1)
	viper.SetDefault("notes.max_tokens", 2000)
	viper.SetDefault("notes.timeout", 2*time.Minute)
	viper.SetDefault("notes.vertex_project", "")
	viper.SetDefault("notes.vertex_region", "us-central1")
	viper.SetDefault("notes.vertex_model", "gemini-2.0-flash")

	// Appointment lookup defaults
	viper.SetDefault("appointments.source", AppointmentSourceLocal)
	viper.SetDefault("appointments.postgres_dsn", "")
	viper.SetDefault("appointments.cache_size", 256)
	viper.SetDefault("appointments.cache_ttl", 5*time.Minute)

	// Auth defaults
	viper.SetDefault("auth.enabled", false)
	viper.SetDefault("auth.jwks_url", "")
	viper.SetDefault("auth.jwks_cache_ttl", time.Hour)
	viper.SetDefault("auth.dev_auth_enabled", false)
	viper.SetDefault("auth.dev_auth_token", "")

	// Rate limiting defaults
	viper.SetDefault("rate_limiting.enabled", true)
	viper.SetDefault("rate_limiting.rps", 10)
	viper.SetDefault("rate_limiting.burst", 20)

	// Monitoring defaults
	viper.SetDefault("monitoring.metrics_enabled", true)
	viper.SetDefault("monitoring.metrics_path", "/metrics")

	// Cleanup defaults
	viper.SetDefault("cleanup.enabled", true)
	viper.SetDefault("cleanup.interval", time.Hour)
	viper.SetDefault("cleanup.stale_recording_age", 6*time.Hour)
	viper.SetDefault("cleanup.concurrency", 4)
}
