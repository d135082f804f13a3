package config

import "time"

// Storage backends
const (
	StorageBackendFilesystem = "filesystem"
	StorageBackendGCS        = "gcs"
)

// Whisper backends
const (
	WhisperBackendAPI = "api"
	WhisperBackendCLI = "cli"
)

// Note synthesis providers
const (
	NotesProviderOpenAI = "openai"
	NotesProviderVertex = "vertex"
)

// Appointment sources
const (
	AppointmentSourceLocal    = "local"
	AppointmentSourcePostgres = "postgres"
)

// Config represents the complete application configuration
type Config struct {
	Environment  string             `mapstructure:"environment"`
	Server       ServerConfig       `mapstructure:"server"`
	Database     DatabaseConfig     `mapstructure:"database"`
	Storage      StorageConfig      `mapstructure:"storage"`
	Capture      CaptureConfig      `mapstructure:"capture"`
	Whisper      WhisperConfig      `mapstructure:"whisper"`
	Notes        NotesConfig        `mapstructure:"notes"`
	Appointments AppointmentsConfig `mapstructure:"appointments"`
	Auth         AuthConfig         `mapstructure:"auth"`
	RateLimiting RateLimitConfig    `mapstructure:"rate_limiting"`
	Monitoring   MonitoringConfig   `mapstructure:"monitoring"`
	Cleanup      CleanupConfig      `mapstructure:"cleanup"`
}

// ServerConfig contains HTTP server settings
type ServerConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
	MaxHeaderBytes  int           `mapstructure:"max_header_bytes"`
}

// DatabaseConfig contains database settings
type DatabaseConfig struct {
	Path    string `mapstructure:"path"`
	Verbose bool   `mapstructure:"verbose"`
}

// StorageConfig contains durable object storage and local artifact settings
type StorageConfig struct {
	Backend        string        `mapstructure:"backend"`
	BasePath       string        `mapstructure:"base_path"`
	Bucket         string        `mapstructure:"bucket"`
	MaxUploadBytes int64         `mapstructure:"max_upload_bytes"`
	TempDir        string        `mapstructure:"temp_dir"`
	MaxTempAge     time.Duration `mapstructure:"max_temp_age"`
}

// CaptureConfig contains microphone capture settings
type CaptureConfig struct {
	FFmpegPath    string        `mapstructure:"ffmpeg_path"`
	FFprobePath   string        `mapstructure:"ffprobe_path"`
	InputFormat   string        `mapstructure:"input_format"`
	InputDevice   string        `mapstructure:"input_device"`
	SampleRate    int           `mapstructure:"sample_rate"`
	Channels      int           `mapstructure:"channels"`
	TickInterval  time.Duration `mapstructure:"tick_interval"`
	LevelInterval time.Duration `mapstructure:"level_interval"`
}

// WhisperConfig contains speech-to-text settings
type WhisperConfig struct {
	Backend   string        `mapstructure:"backend"`
	APIURL    string        `mapstructure:"api_url"`
	APIKey    string        `mapstructure:"api_key"`
	Model     string        `mapstructure:"model"`
	Language  string        `mapstructure:"language"`
	Timeout   time.Duration `mapstructure:"timeout"`
	CLIPath   string        `mapstructure:"cli_path"`
	ModelPath string        `mapstructure:"model_path"`
}

// NotesConfig contains clinical note synthesis settings
type NotesConfig struct {
	Provider      string        `mapstructure:"provider"`
	APIURL        string        `mapstructure:"api_url"`
	APIKey        string        `mapstructure:"api_key"`
	Model         string        `mapstructure:"model"`
	Temperature   float64       `mapstructure:"temperature"`
	MaxTokens     int           `mapstructure:"max_tokens"`
	Timeout       time.Duration `mapstructure:"timeout"`
	VertexProject string        `mapstructure:"vertex_project"`
	VertexRegion  string        `mapstructure:"vertex_region"`
	VertexModel   string        `mapstructure:"vertex_model"`
}

// AppointmentsConfig contains appointment lookup settings
type AppointmentsConfig struct {
	Source      string        `mapstructure:"source"`
	PostgresDSN string        `mapstructure:"postgres_dsn"`
	CacheSize   int           `mapstructure:"cache_size"`
	CacheTTL    time.Duration `mapstructure:"cache_ttl"`
}

// AuthConfig contains JWT validation settings
type AuthConfig struct {
	Enabled        bool          `mapstructure:"enabled"`
	JWKSURL        string        `mapstructure:"jwks_url"`
	JWKSCacheTTL   time.Duration `mapstructure:"jwks_cache_ttl"`
	DevAuthEnabled bool          `mapstructure:"dev_auth_enabled"`
	DevAuthToken   string        `mapstructure:"dev_auth_token"`
}

// RateLimitConfig contains rate limiting settings
type RateLimitConfig struct {
	Enabled bool `mapstructure:"enabled"`
	RPS     int  `mapstructure:"rps"`
	Burst   int  `mapstructure:"burst"`
}

// MonitoringConfig contains monitoring settings
type MonitoringConfig struct {
	MetricsEnabled bool   `mapstructure:"metrics_enabled"`
	MetricsPath    string `mapstructure:"metrics_path"`
}

// CleanupConfig contains stale recording reaper settings
type CleanupConfig struct {
	Enabled           bool          `mapstructure:"enabled"`
	Interval          time.Duration `mapstructure:"interval"`
	StaleRecordingAge time.Duration `mapstructure:"stale_recording_age"`
	Concurrency       int           `mapstructure:"concurrency"`
}
