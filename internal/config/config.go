package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/gshare/gallery-editor/internal/layout"
	"github.com/gshare/gallery-editor/internal/validator"
)

// Config holds all application configuration
type Config struct {
	ServerAddress string                  `json:"serverAddress" yaml:"serverAddress" validate:"required"`
	DatabasePath  string                  `json:"databasePath" yaml:"databasePath"`
	DatabaseURL   string                  `json:"databaseUrl" yaml:"databaseUrl"`
	Backend       Backend                 `json:"backend" yaml:"backend"`
	Images        Images                  `json:"images" yaml:"images"`
	Editor        Editor                  `json:"editor" yaml:"editor"`
	Grids         map[string]layout.Table `json:"grids" yaml:"grids" validate:"dive"`
	Security      Security                `json:"security" yaml:"security"`
	CORS          CORS                    `json:"cors" yaml:"cors"`
	Telemetry     Telemetry               `json:"telemetry" yaml:"telemetry"`
}

// UsePostgres returns true if PostgreSQL should be used
func (c *Config) UsePostgres() bool {
	return c.DatabaseURL != ""
}

// Backend is the gallery API the editor reads from and commits to
type Backend struct {
	BaseURL        string `json:"baseUrl" yaml:"baseUrl" validate:"required,url"`
	PublicURL      string `json:"publicUrl" yaml:"publicUrl" validate:"omitempty,url"`
	Token          string `json:"token" yaml:"token"`
	TimeoutSeconds int    `json:"timeoutSeconds" yaml:"timeoutSeconds" validate:"min=1"`
}

// Timeout returns the request timeout
func (b Backend) Timeout() time.Duration {
	return time.Duration(b.TimeoutSeconds) * time.Second
}

// Images holds rendition defaults
type Images struct {
	AdminQuality         int  `json:"adminQuality" yaml:"adminQuality" validate:"min=1,max=100"`
	ClientQuality        int  `json:"clientQuality" yaml:"clientQuality" validate:"min=1,max=100"`
	MinWidth             int  `json:"minWidth" yaml:"minWidth" validate:"min=1"`
	BlurWidth            int  `json:"blurWidth" yaml:"blurWidth" validate:"min=8,max=256"`
	BlurQuality          int  `json:"blurQuality" yaml:"blurQuality" validate:"min=1,max=100"`
	GeneratePlaceholders bool `json:"generatePlaceholders" yaml:"generatePlaceholders"`
	PlaceholderCacheSize int  `json:"placeholderCacheSize" yaml:"placeholderCacheSize" validate:"min=0"`
}

// AdminRender is the render config for the editing grid
func (i Images) AdminRender() layout.RenderConfig {
	cfg := layout.DefaultRenderConfig()
	cfg.Quality = i.AdminQuality
	cfg.MinWidth = i.MinWidth
	return cfg
}

// ClientRender is the render config for public galleries
func (i Images) ClientRender() layout.RenderConfig {
	cfg := layout.DefaultRenderConfig()
	cfg.Quality = i.ClientQuality
	cfg.MinWidth = i.MinWidth
	return cfg
}

// Editor configures session lifetimes
type Editor struct {
	SessionIdleMinutes   int `json:"sessionIdleMinutes" yaml:"sessionIdleMinutes" validate:"min=1"`
	SweepIntervalSeconds int `json:"sweepIntervalSeconds" yaml:"sweepIntervalSeconds" validate:"min=1"`
	CommitTimeoutSeconds int `json:"commitTimeoutSeconds" yaml:"commitTimeoutSeconds" validate:"min=1"`
	DraftRetentionHours  int `json:"draftRetentionHours" yaml:"draftRetentionHours" validate:"min=1"`
}

func (e Editor) SessionIdle() time.Duration {
	return time.Duration(e.SessionIdleMinutes) * time.Minute
}

func (e Editor) SweepInterval() time.Duration {
	return time.Duration(e.SweepIntervalSeconds) * time.Second
}

func (e Editor) CommitTimeout() time.Duration {
	return time.Duration(e.CommitTimeoutSeconds) * time.Second
}

func (e Editor) DraftRetention() time.Duration {
	return time.Duration(e.DraftRetentionHours) * time.Hour
}

// Security configuration. An empty APIKey disables key checks.
type Security struct {
	APIKey       string `json:"apiKey" yaml:"apiKey" validate:"omitempty,min=16"`
	APIKeyHeader string `json:"apiKeyHeader" yaml:"apiKeyHeader" validate:"required"`
}

// CORS configuration for the browser editor
type CORS struct {
	AllowedOrigins []string `json:"allowedOrigins" yaml:"allowedOrigins"`
}

// Telemetry configuration
type Telemetry struct {
	Enabled     bool    `json:"enabled" yaml:"enabled"`
	Endpoint    string  `json:"endpoint" yaml:"endpoint"`
	Environment string  `json:"environment" yaml:"environment"`
	SampleRatio float64 `json:"sampleRatio" yaml:"sampleRatio" validate:"min=0,max=1"`
}

// Default configuration
func defaultConfig() *Config {
	return &Config{
		ServerAddress: ":5050",
		DatabasePath:  "gallery-editor.db",
		Backend: Backend{
			BaseURL:        "http://localhost:8080",
			TimeoutSeconds: 30,
		},
		Images: Images{
			AdminQuality:         40,
			ClientQuality:        75,
			MinWidth:             256,
			BlurWidth:            64,
			BlurQuality:          30,
			GeneratePlaceholders: true,
			PlaceholderCacheSize: 2048,
		},
		Editor: Editor{
			SessionIdleMinutes:   60,
			SweepIntervalSeconds: 60,
			CommitTimeoutSeconds: 30,
			DraftRetentionHours:  24 * 7,
		},
		Security: Security{
			APIKeyHeader: "X-API-Key",
		},
		CORS: CORS{
			AllowedOrigins: []string{"http://localhost:3000"},
		},
		Telemetry: Telemetry{
			Enabled:     true,
			Endpoint:    "localhost:4317",
			Environment: "development",
			SampleRatio: 1,
		},
	}
}

// Load builds the configuration: defaults, then the config file named by
// CONFIG_PATH (JSON or YAML by extension), then environment overrides.
func Load() (*Config, error) {
	cfg := defaultConfig()

	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "config.yaml"
	}

	if data, err := os.ReadFile(configPath); err == nil {
		if err := decode(configPath, data, cfg); err != nil {
			return nil, fmt.Errorf("parse %s: %w", configPath, err)
		}
	} else if !os.IsNotExist(err) {
		return nil, fmt.Errorf("read %s: %w", configPath, err)
	}

	applyEnv(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func decode(path string, data []byte, cfg *Config) error {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return yaml.Unmarshal(data, cfg)
	default:
		return json.Unmarshal(data, cfg)
	}
}

func applyEnv(cfg *Config) {
	if addr := os.Getenv("SERVER_ADDRESS"); addr != "" {
		cfg.ServerAddress = addr
	}
	if dbPath := os.Getenv("DATABASE_PATH"); dbPath != "" {
		cfg.DatabasePath = dbPath
	}
	if dbURL := os.Getenv("DATABASE_URL"); dbURL != "" {
		cfg.DatabaseURL = dbURL
	}

	if v := os.Getenv("BACKEND_URL"); v != "" {
		cfg.Backend.BaseURL = v
	}
	if v := os.Getenv("BACKEND_PUBLIC_URL"); v != "" {
		cfg.Backend.PublicURL = v
	}
	if v := os.Getenv("BACKEND_TOKEN"); v != "" {
		cfg.Backend.Token = v
	}
	cfg.Backend.TimeoutSeconds = envInt("BACKEND_TIMEOUT_SECONDS", cfg.Backend.TimeoutSeconds)

	cfg.Images.AdminQuality = envInt("ADMIN_IMAGE_QUALITY", cfg.Images.AdminQuality)
	cfg.Images.ClientQuality = envInt("CLIENT_IMAGE_QUALITY", cfg.Images.ClientQuality)
	cfg.Images.MinWidth = envInt("MIN_IMAGE_WIDTH", cfg.Images.MinWidth)
	cfg.Images.GeneratePlaceholders = envBool("GENERATE_PLACEHOLDERS", cfg.Images.GeneratePlaceholders)

	cfg.Editor.SessionIdleMinutes = envInt("SESSION_IDLE_MINUTES", cfg.Editor.SessionIdleMinutes)
	cfg.Editor.CommitTimeoutSeconds = envInt("COMMIT_TIMEOUT_SECONDS", cfg.Editor.CommitTimeoutSeconds)

	if apiKey := os.Getenv("API_KEY"); apiKey != "" {
		cfg.Security.APIKey = apiKey
	}
	if origins := os.Getenv("CORS_ALLOWED_ORIGINS"); origins != "" {
		cfg.CORS.AllowedOrigins = splitList(origins)
	}

	cfg.Telemetry.Enabled = envBool("OTEL_ENABLED", cfg.Telemetry.Enabled)
	if endpoint := os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT"); endpoint != "" {
		cfg.Telemetry.Endpoint = endpoint
	}
	if env := os.Getenv("ENVIRONMENT"); env != "" {
		cfg.Telemetry.Environment = env
	}
	if ratio := os.Getenv("OTEL_SAMPLE_RATIO"); ratio != "" {
		if f, err := strconv.ParseFloat(ratio, 64); err == nil {
			cfg.Telemetry.SampleRatio = f
		}
	}
}

// Validate checks field constraints and that every grid table builds
func (c *Config) Validate() error {
	if err := validator.Struct(c); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	if _, err := c.BuildGrids(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	return nil
}

// BuildGrids returns the built-in grids with configured tables applied
func (c *Config) BuildGrids() (layout.Grids, error) {
	return layout.DefaultGrids().WithOverrides(c.Grids)
}

// envInt reads a positive integer, falling back to def when unset or invalid
func envInt(key string, def int) int {
	s := os.Getenv(key)
	if s == "" {
		return def
	}
	if n, err := strconv.Atoi(s); err == nil && n > 0 {
		return n
	}
	return def
}

func envBool(key string, def bool) bool {
	s := os.Getenv(key)
	if s == "" {
		return def
	}
	return s == "true" || s == "1"
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
