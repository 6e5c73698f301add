// Package config loads application configuration from a YAML file,
// environment variables, and a local .env file, layered through viper.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds all application configuration.
type Config struct {
	App       App       `mapstructure:"app"`
	AWS       AWS       `mapstructure:"aws"`
	LLM       LLM       `mapstructure:"llm"`
	Database  Database  `mapstructure:"database"`
	Search    Search    `mapstructure:"search"`
	Server    Server    `mapstructure:"server"`
	Taxonomy  Taxonomy  `mapstructure:"taxonomy"`
	Intake    Intake    `mapstructure:"intake"`
	Query     Query     `mapstructure:"query"`
	Logging   Logging   `mapstructure:"logging"`
}

// App holds general application configuration.
type App struct {
	Debug    bool   `mapstructure:"debug"`
	LogLevel string `mapstructure:"log_level"`
	DataDir  string `mapstructure:"data_dir"`
}

// AWS holds the shared AWS SDK configuration used by S3, DynamoDB,
// Bedrock, and Textract clients.
type AWS struct {
	Region            string `mapstructure:"region"`
	Endpoint          string `mapstructure:"endpoint"` // non-empty overrides for local/dev (e.g. LocalStack)
	UploadsBucket     string `mapstructure:"uploads_bucket"`
	StateTable        string `mapstructure:"state_table"`
	HRJobTable        string `mapstructure:"hr_job_table"`
}

// LLM holds the Bedrock-backed completion/embedding configuration.
type LLM struct {
	Region               string        `mapstructure:"region"`
	CompletionModel      string        `mapstructure:"completion_model"`       // Claude Sonnet
	ArbitrationModel     string        `mapstructure:"arbitration_model"`      // cheaper model for arbitration and short evaluations
	EmbeddingModel       string        `mapstructure:"embedding_model"`        // Cohere Embed v3
	EmbeddingBatchSize    int          `mapstructure:"embedding_batch_size"`
	RequestTimeout       time.Duration `mapstructure:"request_timeout"`
	StructurerPromptDir  string        `mapstructure:"structurer_prompt_dir"`
	TranslatorPromptDir  string        `mapstructure:"translator_prompt_dir"`
}

// Database holds the PostgreSQL connection configuration.
type Database struct {
	ConnectionString string `mapstructure:"connection_string"`
	MaxConnections   int    `mapstructure:"max_connections"`
	IdleConnections  int    `mapstructure:"idle_connections"`
}

// Search holds the OpenSearch cluster configuration.
type Search struct {
	Addresses    []string `mapstructure:"addresses"`
	Username     string   `mapstructure:"username"`
	Password     string   `mapstructure:"password"`
	IndexAlias   string   `mapstructure:"index_alias"`
	InsecureTLS  bool     `mapstructure:"insecure_tls"`
}

// Server holds HTTP server configuration for the status/query endpoints.
type Server struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// Taxonomy holds the alias-cache configuration.
type Taxonomy struct {
	AliasCacheTTL time.Duration `mapstructure:"alias_cache_ttl"`
}

// Intake holds pipeline-wide intake tuning.
type Intake struct {
	OCRProviderTimeout  time.Duration `mapstructure:"ocr_provider_timeout"`
	StructurerMaxRetries int          `mapstructure:"structurer_max_retries"`
	MaxUploadSizeBytes   int64        `mapstructure:"max_upload_size_bytes"`
}

// Query holds query-router tuning.
type Query struct {
	CacheTTL         time.Duration `mapstructure:"cache_ttl"`
	HRSyncCandidateCap int         `mapstructure:"hr_sync_candidate_cap"`
	RelaxedTopN        int         `mapstructure:"relaxed_top_n"`
}

// Logging holds logger configuration.
type Logging struct {
	Level string `mapstructure:"level"`
}

var globalConfig *Config

// Load reads configuration from (in increasing precedence) defaults,
// a YAML file, and environment variables.
func Load(configFile string) (*Config, error) {
	if globalConfig != nil {
		return globalConfig, nil
	}

	if _, err := os.Stat(".env"); err == nil {
		if err := godotenv.Load(".env"); err != nil {
			fmt.Printf("warning: error loading .env file: %v\n", err)
		}
	}

	if configFile != "" {
		viper.SetConfigFile(configFile)
	} else {
		viper.AddConfigPath(".")
		viper.AddConfigPath("$HOME")
		viper.SetConfigName(".cvintake")
		viper.SetConfigType("yaml")
	}

	setDefaults()
	bindEnvironmentVariables()

	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	cfg := &Config{}
	if err := viper.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	if err := validateConfig(cfg); err != nil {
		return nil, err
	}

	globalConfig = cfg
	return cfg, nil
}

// Get returns the global configuration, loading it (with defaults) if
// necessary.
func Get() *Config {
	if globalConfig == nil {
		cfg, err := Load("")
		if err != nil {
			panic(fmt.Sprintf("failed to load configuration: %v", err))
		}
		return cfg
	}
	return globalConfig
}

// Reset clears the cached global configuration. Test-only.
func Reset() {
	globalConfig = nil
	viper.Reset()
}

func setDefaults() {
	viper.SetDefault("app.log_level", "info")
	viper.SetDefault("app.data_dir", "./data")

	viper.SetDefault("aws.region", "eu-north-1")
	viper.SetDefault("aws.uploads_bucket", "cvintake-uploads")
	viper.SetDefault("aws.state_table", "cvintake-intake-state")
	viper.SetDefault("aws.hr_job_table", "cvintake-hr-jobs")

	viper.SetDefault("llm.region", "eu-north-1")
	viper.SetDefault("llm.completion_model", "eu.anthropic.claude-sonnet-4-5-20250929-v1:0")
	viper.SetDefault("llm.arbitration_model", "eu.anthropic.claude-haiku-4-5-20251001-v1:0")
	viper.SetDefault("llm.embedding_model", "cohere.embed-multilingual-v3")
	viper.SetDefault("llm.embedding_batch_size", 96)
	viper.SetDefault("llm.request_timeout", 30*time.Second)
	viper.SetDefault("llm.structurer_prompt_dir", "./prompts/cv_structurer")
	viper.SetDefault("llm.translator_prompt_dir", "./prompts/query_translator")

	viper.SetDefault("database.max_connections", 25)
	viper.SetDefault("database.idle_connections", 5)

	viper.SetDefault("search.index_alias", "cv-search")

	viper.SetDefault("server.host", "0.0.0.0")
	viper.SetDefault("server.port", 8080)
	viper.SetDefault("server.read_timeout", 15*time.Second)
	viper.SetDefault("server.write_timeout", 30*time.Second)
	viper.SetDefault("server.shutdown_timeout", 10*time.Second)

	viper.SetDefault("taxonomy.alias_cache_ttl", 60*time.Minute)

	viper.SetDefault("intake.ocr_provider_timeout", 45*time.Second)
	viper.SetDefault("intake.structurer_max_retries", 2)
	viper.SetDefault("intake.max_upload_size_bytes", int64(10*1024*1024))

	viper.SetDefault("query.cache_ttl", 24*time.Hour)
	viper.SetDefault("query.hr_sync_candidate_cap", 10)
	viper.SetDefault("query.relaxed_top_n", 5)

	viper.SetDefault("logging.level", "info")
}

func bindEnvironmentVariables() {
	_ = viper.BindEnv("database.connection_string", "DATABASE_URL", "CVINTAKE_DATABASE_URL")
	_ = viper.BindEnv("search.addresses", "OPENSEARCH_ADDRESSES")
	_ = viper.BindEnv("search.username", "OPENSEARCH_USERNAME")
	_ = viper.BindEnv("search.password", "OPENSEARCH_PASSWORD")
	_ = viper.BindEnv("aws.region", "AWS_REGION")
}

func validateConfig(cfg *Config) error {
	if cfg.Intake.MaxUploadSizeBytes <= 0 {
		return fmt.Errorf("intake.max_upload_size_bytes must be positive")
	}
	if cfg.LLM.EmbeddingBatchSize <= 0 {
		return fmt.Errorf("llm.embedding_batch_size must be positive")
	}
	return nil
}
