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
	Notion    NotionConfig    `yaml:"notion" mapstructure:"notion"`
	Speech    SpeechConfig    `yaml:"speech" mapstructure:"speech"`
	Storage   StorageConfig   `yaml:"storage" mapstructure:"storage"`
	Manifest  ManifestConfig  `yaml:"manifest" mapstructure:"manifest"`
	Store     StoreConfig     `yaml:"store" mapstructure:"store"`
	Pipeline  PipelineConfig  `yaml:"pipeline" mapstructure:"pipeline"`
	Resources ResourcesConfig `yaml:"resources" mapstructure:"resources"`
	Batch     BatchConfig     `yaml:"batch" mapstructure:"batch"`
	Log       LogConfig       `yaml:"log" mapstructure:"log"`
}

// NotionConfig holds Notion API credentials and database IDs.
type NotionConfig struct {
	Token string `yaml:"token" mapstructure:"token"`
	// LessonDB is the default database lesson pages are created under.
	LessonDB string `yaml:"lesson_db" mapstructure:"lesson_db"`
	// ProfileDB holds per-subject student profiles.
	ProfileDB string `yaml:"profile_db" mapstructure:"profile_db"`
}

// SpeechConfig holds speech synthesis API settings.
type SpeechConfig struct {
	Key     string `yaml:"key" mapstructure:"key"`
	BaseURL string `yaml:"base_url" mapstructure:"base_url"`
	Mode    string `yaml:"mode" mapstructure:"mode"`
}

// StorageConfig configures the audio/object storage backend.
type StorageConfig struct {
	Backend       string    `yaml:"backend" mapstructure:"backend"`
	Key           string    `yaml:"key" mapstructure:"key"`
	BaseURL       string    `yaml:"base_url" mapstructure:"base_url"`
	PublicBaseURL string    `yaml:"public_base_url" mapstructure:"public_base_url"`
	FTP           FTPConfig `yaml:"ftp" mapstructure:"ftp"`
}

// FTPConfig configures the FTP storage backend.
type FTPConfig struct {
	Host     string `yaml:"host" mapstructure:"host"`
	User     string `yaml:"user" mapstructure:"user"`
	Password string `yaml:"password" mapstructure:"password"`
	RootDir  string `yaml:"root_dir" mapstructure:"root_dir"`
}

// ManifestConfig configures where per-document manifests are stored.
type ManifestConfig struct {
	// Backend is "fs" or "object".
	Backend string `yaml:"backend" mapstructure:"backend"`
	Dir     string `yaml:"dir" mapstructure:"dir"`
	Prefix  string `yaml:"prefix" mapstructure:"prefix"`
}

// StoreConfig configures the run-audit database backend.
type StoreConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"`
	Path        string `yaml:"path" mapstructure:"path"`
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
}

// PipelineConfig configures orchestration behavior.
type PipelineConfig struct {
	MaxAttempts   int    `yaml:"max_attempts" mapstructure:"max_attempts"`
	AudioDir      string `yaml:"audio_dir" mapstructure:"audio_dir"`
	DefaultPreset string `yaml:"default_preset" mapstructure:"default_preset"`
}

// ResourcesConfig points at auxiliary resource files.
type ResourcesConfig struct {
	PresetsPath  string `yaml:"presets_path" mapstructure:"presets_path"`
	VoicesPath   string `yaml:"voices_path" mapstructure:"voices_path"`
	ProfilesPath string `yaml:"profiles_path" mapstructure:"profiles_path"`
}

// BatchConfig configures batch publishing.
type BatchConfig struct {
	MaxConcurrentDocuments int `yaml:"max_concurrent_documents" mapstructure:"max_concurrent_documents"`
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
	v.SetEnvPrefix("LESSON")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("speech.base_url", "https://api.speechly.dev")
	v.SetDefault("speech.mode", "dialogue")
	v.SetDefault("storage.backend", "http")
	v.SetDefault("manifest.backend", "fs")
	v.SetDefault("manifest.dir", ".manifests")
	v.SetDefault("manifest.prefix", "manifests")
	v.SetDefault("store.driver", "sqlite")
	v.SetDefault("store.path", "lesson-cli.db")
	v.SetDefault("pipeline.max_attempts", 4)
	v.SetDefault("pipeline.audio_dir", ".audio")
	v.SetDefault("pipeline.default_preset", "classic")
	v.SetDefault("resources.presets_path", "presets.yaml")
	v.SetDefault("resources.voices_path", "voices.yaml")
	v.SetDefault("resources.profiles_path", "profiles.yaml")
	v.SetDefault("batch.max_concurrent_documents", 4)

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
