// internal/config/config.go
package config

import (
	"log"
	"time"

	"github.com/spf13/viper"
)

type DatabaseConfig struct {
	URL string `mapstructure:"url"`
}

type ServerConfig struct {
	Port string `mapstructure:"port"`
}

type LogConfig struct {
	Level string `mapstructure:"level"`
}

type CORSConfig struct {
	AllowedOrigins   []string `mapstructure:"allowed_origins"`
	AllowedMethods   []string `mapstructure:"allowed_methods"`
	AllowedHeaders   []string `mapstructure:"allowed_headers"`
	ExposedHeaders   []string `mapstructure:"exposed_headers"`
	AllowCredentials bool     `mapstructure:"allow_credentials"`
	MaxAge           int      `mapstructure:"max_age"`
}

type AppConfig struct {
	// ReviewLimit caps a due-batch query.
	ReviewLimit int `mapstructure:"review_limit"`
	// DedupEnabled makes identical text within one partition a rejection
	// instead of a second item.
	DedupEnabled bool `mapstructure:"dedup_enabled"`
	// ReviewDedupWindow bounds how long a duplicate (item, rating) delivery
	// replays the stored result instead of transitioning again.
	ReviewDedupWindow time.Duration `mapstructure:"review_dedup_window"`
	// IngestGrace is added to the creation time to form the first due
	// timestamp. Zero means a new item is immediately due.
	IngestGrace time.Duration `mapstructure:"ingest_grace"`
	// EasyIntervalDays is the offset for an easy rating: 3 by default, 7 in
	// the first-pass variant.
	EasyIntervalDays int `mapstructure:"easy_interval_days"`
	// DefaultPartition receives webhook messages that carry no partition.
	DefaultPartition string `mapstructure:"default_partition"`
}

type Config struct {
	Database DatabaseConfig `mapstructure:"database"`
	Server   ServerConfig   `mapstructure:"server"`
	Log      LogConfig      `mapstructure:"log"`
	CORS     CORSConfig     `mapstructure:"cors"`
	App      AppConfig      `mapstructure:"app"`
}

var Cfg Config

func LoadConfig(path string) error {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(path)
	viper.AddConfigPath(".")

	viper.SetEnvPrefix("APP")
	viper.AutomaticEnv()
	viper.BindEnv("database.url", "DATABASE_URL")

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			log.Println("Warning: Config file not found. Using default settings or environment variables if available.")
		} else {
			log.Printf("Error reading config file: %s\n", err)
			return err
		}
	}

	if err := viper.Unmarshal(&Cfg); err != nil {
		log.Printf("Error unmarshalling config: %s\n", err)
		return err
	}

	if Cfg.Server.Port == "" {
		Cfg.Server.Port = DefaultServerPort
	}
	if Cfg.Log.Level == "" {
		Cfg.Log.Level = DefaultLogLevel
	}
	if Cfg.App.ReviewLimit <= 0 {
		Cfg.App.ReviewLimit = DefaultReviewLimit
	}
	if !viper.IsSet("app.dedup_enabled") {
		Cfg.App.DedupEnabled = DefaultDedupEnabled
	}
	if Cfg.App.ReviewDedupWindow <= 0 {
		Cfg.App.ReviewDedupWindow = DefaultReviewDedupWindow
	}
	if Cfg.App.IngestGrace < 0 {
		Cfg.App.IngestGrace = DefaultIngestGrace
	}
	if Cfg.App.EasyIntervalDays <= 0 {
		Cfg.App.EasyIntervalDays = DefaultEasyIntervalDays
	}
	if Cfg.App.DefaultPartition == "" {
		Cfg.App.DefaultPartition = DefaultPartition
	}
	if Cfg.Database.URL == "" {
		log.Println("Warning: Database URL is not set in config.")
	}

	log.Println("Config loaded successfully")
	log.Printf("Server Port: %s", Cfg.Server.Port)
	log.Printf("Review Limit: %d", Cfg.App.ReviewLimit)
	log.Printf("Dedup Enabled: %t", Cfg.App.DedupEnabled)
	log.Printf("Easy Interval Days: %d", Cfg.App.EasyIntervalDays)

	return nil
}
