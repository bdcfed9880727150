package config

import (
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	Store    StoreConfig    `yaml:"store" mapstructure:"store"`
	YouTube  YouTubeConfig  `yaml:"youtube" mapstructure:"youtube"`
	Captions CaptionsConfig `yaml:"captions" mapstructure:"captions"`
	Geocode  GeocodeConfig  `yaml:"geocode" mapstructure:"geocode"`
	LLM      LLMConfig      `yaml:"llm" mapstructure:"llm"`
	Extract  ExtractConfig  `yaml:"extract" mapstructure:"extract"`
	Publish  PublishConfig  `yaml:"publish" mapstructure:"publish"`
	Pipeline PipelineConfig `yaml:"pipeline" mapstructure:"pipeline"`
	Server   ServerConfig   `yaml:"server" mapstructure:"server"`
	Log      LogConfig      `yaml:"log" mapstructure:"log"`
}

// StoreConfig configures the database backend.
type StoreConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"`
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
	Path        string `yaml:"path" mapstructure:"path"`
}

// YouTubeConfig holds Data API credentials and the target channel.
type YouTubeConfig struct {
	APIKey    string `yaml:"api_key" mapstructure:"api_key"`
	ChannelID string `yaml:"channel_id" mapstructure:"channel_id"`
}

// CaptionsConfig configures caption download and intro parsing.
type CaptionsConfig struct {
	Dir             string `yaml:"dir" mapstructure:"dir"`
	MaxDurationSecs int    `yaml:"max_duration_secs" mapstructure:"max_duration_secs"`
	MaxWords        int    `yaml:"max_words" mapstructure:"max_words"`
	YtDlpPath       string `yaml:"ytdlp_path" mapstructure:"ytdlp_path"`
}

// GeocodeConfig configures the forward geocoding client.
type GeocodeConfig struct {
	Provider    string  `yaml:"provider" mapstructure:"provider"`
	APIKey      string  `yaml:"api_key" mapstructure:"api_key"`
	TimeoutSecs int     `yaml:"timeout_secs" mapstructure:"timeout_secs"`
	RatePerSec  float64 `yaml:"rate_per_sec" mapstructure:"rate_per_sec"`
}

// LLMConfig configures the optional LLM extraction collaborator.
type LLMConfig struct {
	Enabled   bool   `yaml:"enabled" mapstructure:"enabled"`
	APIKey    string `yaml:"api_key" mapstructure:"api_key"`
	Model     string `yaml:"model" mapstructure:"model"`
	MaxTokens int    `yaml:"max_tokens" mapstructure:"max_tokens"`
}

// ExtractConfig configures the heuristic extractor.
type ExtractConfig struct {
	GazetteerPath string `yaml:"gazetteer_path" mapstructure:"gazetteer_path"`
}

// PublishConfig configures artifact publishing.
type PublishConfig struct {
	OutDir string `yaml:"out_dir" mapstructure:"out_dir"`
	Limit  int    `yaml:"limit" mapstructure:"limit"`
	XLSX   bool   `yaml:"xlsx" mapstructure:"xlsx"`
}

// PipelineConfig configures batch behavior.
type PipelineConfig struct {
	SinceDays      int `yaml:"since_days" mapstructure:"since_days"`
	PrototypeLimit int `yaml:"prototype_limit" mapstructure:"prototype_limit"`
}

// ServerConfig configures the preview server.
type ServerConfig struct {
	Port int `yaml:"port" mapstructure:"port"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("CHOW")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("store.driver", "sqlite")
	v.SetDefault("store.path", "data/chow.db")
	v.SetDefault("captions.dir", "data/captions")
	v.SetDefault("captions.max_duration_secs", 180)
	v.SetDefault("captions.max_words", 500)
	v.SetDefault("captions.ytdlp_path", "yt-dlp")
	v.SetDefault("geocode.provider", "opencage")
	v.SetDefault("geocode.timeout_secs", 15)
	v.SetDefault("geocode.rate_per_sec", 1)
	v.SetDefault("llm.model", "claude-haiku-4-5-20251001")
	v.SetDefault("llm.max_tokens", 600)
	v.SetDefault("publish.out_dir", "public/data")
	v.SetDefault("pipeline.since_days", 7)
	v.SetDefault("pipeline.prototype_limit", 25)
	v.SetDefault("server.port", 8080)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	return &cfg, nil
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}
