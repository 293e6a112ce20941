// Package config loads waymap settings from config.yaml, .env files and
// WAYMAP_* environment variables, and installs the global logger.
package config

import (
	"errors"
	"io/fs"
	"runtime"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config is the root configuration.
type Config struct {
	Server  ServerConfig  `yaml:"server" mapstructure:"server"`
	Log     LogConfig     `yaml:"log" mapstructure:"log"`
	OSM     OSMConfig     `yaml:"osm" mapstructure:"osm"`
	Routing RoutingConfig `yaml:"routing" mapstructure:"routing"`
}

// ServerConfig configures the HTTP server.
type ServerConfig struct {
	Port           int           `yaml:"port" mapstructure:"port"`
	ReadTimeout    time.Duration `yaml:"read_timeout" mapstructure:"read_timeout"`
	WriteTimeout   time.Duration `yaml:"write_timeout" mapstructure:"write_timeout"`
	RequestTimeout time.Duration `yaml:"request_timeout" mapstructure:"request_timeout"`
	MaxConcurrent  int           `yaml:"max_concurrent" mapstructure:"max_concurrent"`
	CORSOrigin     string        `yaml:"cors_origin" mapstructure:"cors_origin"`
	RateLimit      float64       `yaml:"rate_limit" mapstructure:"rate_limit"`
	RateBurst      int           `yaml:"rate_burst" mapstructure:"rate_burst"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// OSMConfig configures the OpenStreetMap importer.
type OSMConfig struct {
	File           string  `yaml:"file" mapstructure:"file"`
	Scale          float64 `yaml:"scale" mapstructure:"scale"`
	SplitJunctions bool    `yaml:"split_junctions" mapstructure:"split_junctions"`
	// BBox is "minLon,minLat,maxLon,maxLat"; empty imports everything.
	BBox string `yaml:"bbox" mapstructure:"bbox"`
}

// RoutingConfig configures route queries.
type RoutingConfig struct {
	MaxSnapDist float64 `yaml:"max_snap_dist" mapstructure:"max_snap_dist"`
}

// EnvFiles are loaded, when present, before the environment is read.
// Variables already set in the environment win.
var EnvFiles = []string{".env"}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	for _, f := range EnvFiles {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, eris.Wrapf(err, "config: load %s", f)
		}
	}

	v := viper.New()

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	v.SetEnvPrefix("WAYMAP")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", 5*time.Second)
	v.SetDefault("server.write_timeout", 5*time.Second)
	v.SetDefault("server.request_timeout", 5*time.Second)
	v.SetDefault("server.max_concurrent", runtime.NumCPU()*2)
	v.SetDefault("server.cors_origin", "")
	v.SetDefault("server.rate_limit", 50.0)
	v.SetDefault("server.rate_burst", 100)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("osm.file", "")
	v.SetDefault("osm.scale", 1e5)
	v.SetDefault("osm.split_junctions", true)
	v.SetDefault("osm.bbox", "")
	v.SetDefault("routing.max_snap_dist", 500.0)

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

// Validate checks values that would otherwise fail later at runtime.
func (c *Config) Validate() error {
	var errs []string
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		errs = append(errs, "server.port must be in 1..65535")
	}
	if c.Server.MaxConcurrent <= 0 {
		errs = append(errs, "server.max_concurrent must be positive")
	}
	if c.Server.RateLimit < 0 || c.Server.RateBurst < 0 {
		errs = append(errs, "server.rate_limit and server.rate_burst must not be negative")
	}
	if c.OSM.Scale <= 0 {
		errs = append(errs, "osm.scale must be positive")
	}
	if c.Routing.MaxSnapDist < 0 {
		errs = append(errs, "routing.max_snap_dist must not be negative")
	}
	if len(errs) > 0 {
		return eris.Errorf("config: %s", strings.Join(errs, "; "))
	}
	return nil
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
