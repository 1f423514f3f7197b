package config

import (
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/spf13/viper"
)

// Config represents the complete cleancode configuration
type Config struct {
	Version int `json:"version" mapstructure:"version"`

	GitHub   GitHubConfig   `json:"github" mapstructure:"github"`
	Analysis AnalysisConfig `json:"analysis" mapstructure:"analysis"`
	Pipeline PipelineConfig `json:"pipeline" mapstructure:"pipeline"`
	State    StateConfig    `json:"state" mapstructure:"state"`
	Logging  LoggingConfig  `json:"logging" mapstructure:"logging"`
}

// GitHubConfig contains source-host API configuration
type GitHubConfig struct {
	APIBaseURL string `json:"apiBaseUrl" mapstructure:"apiBaseUrl"`
	WebBaseURL string `json:"webBaseUrl" mapstructure:"webBaseUrl"`
	Token      string `json:"token" mapstructure:"token"`
	TimeoutMs  int    `json:"timeoutMs" mapstructure:"timeoutMs"`
}

// AnalysisConfig contains analysis-service configuration
type AnalysisConfig struct {
	BaseURL   string `json:"baseUrl" mapstructure:"baseUrl"`
	TimeoutMs int    `json:"timeoutMs" mapstructure:"timeoutMs"`
}

// PipelineConfig contains analysis pipeline limits
type PipelineConfig struct {
	Extensions        []string `json:"extensions" mapstructure:"extensions"`
	MaxFiles          int      `json:"maxFiles" mapstructure:"maxFiles"`
	RequestsPerMinute int      `json:"requestsPerMinute" mapstructure:"requestsPerMinute"`
	MaxContentBytes   int      `json:"maxContentBytes" mapstructure:"maxContentBytes"`
}

// StateConfig contains local state storage configuration
type StateConfig struct {
	Dir string `json:"dir" mapstructure:"dir"`
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Format string `json:"format" mapstructure:"format"`
	Level  string `json:"level" mapstructure:"level"`
}

// DefaultConfig returns the default configuration
func DefaultConfig() *Config {
	return &Config{
		Version: 1,
		GitHub: GitHubConfig{
			APIBaseURL: "https://api.github.com",
			WebBaseURL: "https://github.com",
			TimeoutMs:  15000,
		},
		Analysis: AnalysisConfig{
			BaseURL:   "http://localhost:5000",
			TimeoutMs: 120000,
		},
		Pipeline: PipelineConfig{
			Extensions:        []string{".java", ".py", ".js", ".ts", ".go", ".cpp", ".c", ".cs", ".rb", ".php"},
			MaxFiles:          10,
			RequestsPerMinute: 20,
			MaxContentBytes:   500000,
		},
		State: StateConfig{
			Dir: defaultStateDir(),
		},
		Logging: LoggingConfig{
			Format: "human",
			Level:  "info",
		},
	}
}

func defaultStateDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".cleancode"
	}
	return filepath.Join(home, ".cleancode")
}

// Load loads configuration from <dir>/config.json, falling back to defaults
// when no config file exists
func Load(dir string) (*Config, error) {
	if dir == "" {
		dir = defaultStateDir()
	}

	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("json")
	v.AddConfigPath(dir)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			return DefaultConfig(), nil
		}
		return nil, err
	}

	cfg := DefaultConfig()
	if err := v.Unmarshal(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Save writes the configuration to <dir>/config.json
func (c *Config) Save(dir string) error {
	if dir == "" {
		dir = c.State.Dir
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}

	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return err
	}

	return os.WriteFile(filepath.Join(dir, "config.json"), data, 0644)
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.GitHub.APIBaseURL == "" {
		return &ConfigError{Field: "github.apiBaseUrl", Message: "must not be empty"}
	}
	if c.Analysis.BaseURL == "" {
		return &ConfigError{Field: "analysis.baseUrl", Message: "must not be empty"}
	}
	if c.Pipeline.MaxFiles <= 0 {
		return &ConfigError{Field: "pipeline.maxFiles", Message: "must be positive"}
	}
	if c.Pipeline.RequestsPerMinute <= 0 {
		return &ConfigError{Field: "pipeline.requestsPerMinute", Message: "must be positive"}
	}
	return nil
}

// ConfigError represents a configuration error
type ConfigError struct {
	Field   string
	Message string
}

func (e *ConfigError) Error() string {
	return "config error in field '" + e.Field + "': " + e.Message
}
