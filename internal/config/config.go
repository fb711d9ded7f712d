package config

import (
	"fmt"
	"net/url"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Server struct {
		Port        int               `yaml:"port"`
		APIKeys     map[string]string `yaml:"apiKeys"` // tenant -> key; empty disables auth
		CORSOrigins []string          `yaml:"corsOrigins"`
		RateLimit   struct {
			RPS   float64 `yaml:"rps"`
			Burst int     `yaml:"burst"`
		} `yaml:"rateLimit"`
		// WriteTimeout bounds non-streaming responses. Streams are exempt.
		WriteTimeout time.Duration `yaml:"writeTimeout"`
	} `yaml:"server"`

	Database Database `yaml:"database"`
	Minio    Minio    `yaml:"minio"`
	Redis    Redis    `yaml:"redis"`
	AI       AI       `yaml:"ai"`
	Analysis Analysis `yaml:"analysis"`

	Log struct {
		Level  string `yaml:"level"`
		Format string `yaml:"format"` // json or console
	} `yaml:"log"`
}

type Database struct {
	Driver   string `yaml:"driver"` // mysql, postgres or empty to disable
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	Name     string `yaml:"name"`
	SSLMode  string `yaml:"sslMode"`
}

type Minio struct {
	Endpoint   string `yaml:"endpoint"`
	AccessKey  string `yaml:"accessKey"`
	SecretKey  string `yaml:"secretKey"`
	BucketName string `yaml:"bucketName"`
	Region     string `yaml:"region"`
	UseSSL     bool   `yaml:"useSSL"`
}

type Redis struct {
	Addr       string        `yaml:"addr"`
	Password   string        `yaml:"password"`
	DB         int           `yaml:"db"`
	SessionTTL time.Duration `yaml:"sessionTTL"`
}

type AI struct {
	Provider          string        `yaml:"provider"` // openai or gemini
	APIKey            string        `yaml:"apiKey"`
	BaseURL           string        `yaml:"baseURL"`
	Model             string        `yaml:"model"`
	MaxTokens         int           `yaml:"maxTokens"`
	RequestsPerMinute int           `yaml:"requestsPerMinute"`
	CallTimeout       time.Duration `yaml:"callTimeout"`
}

type Analysis struct {
	MaxBatchSize  int `yaml:"maxBatchSize"`
	MaxTotalBytes int `yaml:"maxTotalBytes"`
	FindingSample int `yaml:"findingSample"`
}

// Load baca file config.yaml, then fills defaults and secrets from the environment.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Parse(data)
}

// Parse decodes YAML config and applies defaults and env overrides.
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	cfg.applyEnv()
	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Default returns the config used when no file exists, e.g. by the CLI.
func Default() *Config {
	var cfg Config
	cfg.applyEnv()
	cfg.applyDefaults()
	return &cfg
}

func (c *Config) applyDefaults() {
	if c.Server.Port == 0 {
		c.Server.Port = 8080
	}
	if c.Server.WriteTimeout == 0 {
		c.Server.WriteTimeout = 30 * time.Second
	}
	if c.Server.RateLimit.RPS == 0 {
		c.Server.RateLimit.RPS = 2
	}
	if c.Server.RateLimit.Burst == 0 {
		c.Server.RateLimit.Burst = 5
	}
	if c.Database.Port == 0 {
		switch c.Database.Driver {
		case "mysql":
			c.Database.Port = 3306
		case "postgres":
			c.Database.Port = 5432
		}
	}
	if c.Database.SSLMode == "" {
		c.Database.SSLMode = "disable"
	}
	if c.Redis.SessionTTL == 0 {
		c.Redis.SessionTTL = 24 * time.Hour
	}
	if c.AI.Provider == "" {
		c.AI.Provider = "openai"
	}
	if c.AI.CallTimeout == 0 {
		c.AI.CallTimeout = 5 * time.Minute
	}
	if c.Analysis.MaxBatchSize == 0 {
		c.Analysis.MaxBatchSize = 10
	}
	if c.Analysis.MaxTotalBytes == 0 {
		c.Analysis.MaxTotalBytes = 4 << 20
	}
	if c.Analysis.FindingSample == 0 {
		c.Analysis.FindingSample = 5
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.Format == "" {
		c.Log.Format = "json"
	}
}

func (c *Config) applyEnv() {
	if c.AI.APIKey == "" {
		switch c.AI.Provider {
		case "gemini":
			c.AI.APIKey = os.Getenv("GEMINI_API_KEY")
		default:
			c.AI.APIKey = os.Getenv("OPENAI_API_KEY")
		}
	}
	fill(&c.Database.Password, "DB_PASSWORD")
	fill(&c.Minio.SecretKey, "MINIO_SECRET_KEY")
	fill(&c.Redis.Password, "REDIS_PASSWORD")
}

func fill(dst *string, env string) {
	if *dst == "" {
		*dst = os.Getenv(env)
	}
}

// Validate rejects settings the server cannot start with.
func (c *Config) Validate() error {
	switch c.Database.Driver {
	case "", "mysql", "postgres":
	default:
		return fmt.Errorf("config: unsupported database driver %q", c.Database.Driver)
	}
	switch c.AI.Provider {
	case "openai", "gemini":
	default:
		return fmt.Errorf("config: unsupported ai provider %q", c.AI.Provider)
	}
	if c.Analysis.MaxBatchSize < 1 {
		return fmt.Errorf("config: analysis.maxBatchSize must be at least 1")
	}
	if c.Analysis.MaxTotalBytes < 0 || c.Analysis.FindingSample < 0 {
		return fmt.Errorf("config: analysis limits must not be negative")
	}
	return nil
}

// Helper untuk build DSN MySQL
func (c *Config) MySQLDSN() string {
	return fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?parseTime=true&charset=utf8mb4&loc=UTC",
		c.Database.User,
		c.Database.Password,
		c.Database.Host,
		c.Database.Port,
		c.Database.Name,
	)
}

// PostgresDSN builds a lib/pq connection URL.
func (c *Config) PostgresDSN() string {
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(c.Database.User, c.Database.Password),
		Host:     fmt.Sprintf("%s:%d", c.Database.Host, c.Database.Port),
		Path:     "/" + c.Database.Name,
		RawQuery: "sslmode=" + url.QueryEscape(c.Database.SSLMode),
	}
	return u.String()
}
