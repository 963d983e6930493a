package config

import (
	"errors"
	"io/fs"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/extrememax/expo-feria/internal/workbook"
)

// Config is the root configuration.
type Config struct {
	Workbook WorkbookConfig `yaml:"workbook" mapstructure:"workbook"`
	Store    StoreConfig    `yaml:"store" mapstructure:"store"`
	Server   ServerConfig   `yaml:"server" mapstructure:"server"`
	Report   ReportConfig   `yaml:"report" mapstructure:"report"`
	Intake   IntakeConfig   `yaml:"intake" mapstructure:"intake"`
	Log      LogConfig      `yaml:"log" mapstructure:"log"`
}

// WorkbookConfig locates the intake workbook and tunes its lock retries.
type WorkbookConfig struct {
	Dir        string `yaml:"dir" mapstructure:"dir"`
	File       string `yaml:"file" mapstructure:"file"`
	LoadTries  int    `yaml:"load_tries" mapstructure:"load_tries"`
	LoadWaitMs int    `yaml:"load_wait_ms" mapstructure:"load_wait_ms"`
	SaveTries  int    `yaml:"save_tries" mapstructure:"save_tries"`
	SaveWaitMs int    `yaml:"save_wait_ms" mapstructure:"save_wait_ms"`
	Watch      bool   `yaml:"watch" mapstructure:"watch"`
}

// Path is the workbook file path.
func (w WorkbookConfig) Path() string {
	return filepath.Join(w.Dir, w.File)
}

// Options converts the retry settings for the workbook accessor.
func (w WorkbookConfig) Options() workbook.Options {
	return workbook.Options{
		LoadTries: w.LoadTries,
		LoadWait:  time.Duration(w.LoadWaitMs) * time.Millisecond,
		SaveTries: w.SaveTries,
		SaveWait:  time.Duration(w.SaveWaitMs) * time.Millisecond,
	}
}

// StoreConfig selects the row store backend.
type StoreConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"`
	SQLitePath  string `yaml:"sqlite_path" mapstructure:"sqlite_path"`
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
	MaxConns    int32  `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns    int32  `yaml:"min_conns" mapstructure:"min_conns"`
}

// ServerConfig configures the HTTP API.
type ServerConfig struct {
	Port        int      `yaml:"port" mapstructure:"port"`
	CORSOrigins []string `yaml:"cors_origins" mapstructure:"cors_origins"`
	WriteRate   float64  `yaml:"write_rate" mapstructure:"write_rate"`
	WriteBurst  int      `yaml:"write_burst" mapstructure:"write_burst"`
	MaxUploadMB int      `yaml:"max_upload_mb" mapstructure:"max_upload_mb"`
}

// ReportConfig configures the lookup views.
type ReportConfig struct {
	TopN int `yaml:"top_n" mapstructure:"top_n"`
}

// IntakeConfig configures the forms.
type IntakeConfig struct {
	Stands []string `yaml:"stands" mapstructure:"stands"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Load reads configuration from .env, config.yaml and the environment.
// Variables use the EXPO_ prefix; EXCEL_DIR, EXCEL_FILE and PORT are
// accepted as well.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, eris.Wrap(err, "config: read .env")
	}

	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("EXPO")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	for key, envs := range map[string][]string{
		"workbook.dir":  {"EXPO_WORKBOOK_DIR", "EXCEL_DIR"},
		"workbook.file": {"EXPO_WORKBOOK_FILE", "EXCEL_FILE"},
		"server.port":   {"EXPO_SERVER_PORT", "PORT"},
	} {
		if err := v.BindEnv(append([]string{key}, envs...)...); err != nil {
			return nil, eris.Wrapf(err, "config: bind %s", key)
		}
	}

	// Defaults
	v.SetDefault("workbook.dir", "data")
	v.SetDefault("workbook.file", "FORMULARIO DATOS EXPO FERIA.xlsx")
	v.SetDefault("workbook.load_tries", 10)
	v.SetDefault("workbook.load_wait_ms", 400)
	v.SetDefault("workbook.save_tries", 30)
	v.SetDefault("workbook.save_wait_ms", 500)
	v.SetDefault("workbook.watch", true)
	v.SetDefault("store.driver", "xlsx")
	v.SetDefault("store.sqlite_path", "data/expo-feria.db")
	v.SetDefault("store.max_conns", 10)
	v.SetDefault("store.min_conns", 2)
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.cors_origins", []string{"*"})
	v.SetDefault("server.write_rate", 5)
	v.SetDefault("server.write_burst", 10)
	v.SetDefault("server.max_upload_mb", 32)
	v.SetDefault("report.top_n", 10)
	v.SetDefault("intake.stands", []string{"PANTRO", "EXTREMEMAX"})
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
