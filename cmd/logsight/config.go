package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/tinytelemetry/logsight/internal/backup"
	"github.com/tinytelemetry/logsight/internal/httpserver"
	"github.com/tinytelemetry/logsight/internal/model"
	"github.com/tinytelemetry/logsight/internal/store"
)

const (
	defaultDBPort         = 5432
	defaultBackupKeepLast = 24
)

// appConfig is internal runtime configuration.
// It is package-private to keep defaults and shape local to the CLI entrypoint.
type appConfig struct {
	DBDriver     string        `mapstructure:"db-driver"`
	DBPath       string        `mapstructure:"db-path"`
	DBHost       string        `mapstructure:"db-host"`
	DBPort       int           `mapstructure:"db-port"`
	DBUser       string        `mapstructure:"db-user"`
	DBPassword   string        `mapstructure:"db-password"`
	DBName       string        `mapstructure:"db-name"`
	DBSSLMode    string        `mapstructure:"db-sslmode"`
	QueryTimeout time.Duration `mapstructure:"query-timeout"`

	BatchSize   int `mapstructure:"batch-size"`
	ReportLimit int `mapstructure:"report-limit"`

	LogLevel  string `mapstructure:"log-level"`
	LogFormat string `mapstructure:"log-format"`

	APIAddr string `mapstructure:"api-addr"`

	BackupLocalDir    string        `mapstructure:"backup-local-dir"`
	BackupKeepLast    int           `mapstructure:"backup-keep-last"`
	BackupInterval    time.Duration `mapstructure:"backup-interval"`
	BackupBucketURL   string        `mapstructure:"backup-bucket-url"`
	BackupS3Endpoint  string        `mapstructure:"backup-s3-endpoint"`
	BackupS3Region    string        `mapstructure:"backup-s3-region"`
	BackupS3AccessKey string        `mapstructure:"backup-s3-access-key"`
	BackupS3SecretKey string        `mapstructure:"backup-s3-secret-key"`
	BackupS3PathStyle bool          `mapstructure:"backup-s3-path-style"`

	ConfigPath string `mapstructure:"-"` // not from config file
}

func loadConfig(configPath string) (appConfig, error) {
	var cfg appConfig

	home, err := os.UserHomeDir()
	if err != nil {
		return cfg, fmt.Errorf("finding home directory: %w", err)
	}

	// A missing .env is normal; real environment variables still apply.
	_ = godotenv.Load()

	dataDir := filepath.Join(home, ".local", "share", "logsight")

	v := viper.New()
	v.SetEnvPrefix("LOGSIGHT")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))

	v.SetDefault("db-driver", store.DriverDuckDB)
	v.SetDefault("db-path", filepath.Join(dataDir, "logsight.duckdb"))
	v.SetDefault("db-host", "localhost")
	v.SetDefault("db-port", defaultDBPort)
	v.SetDefault("db-user", "")
	v.SetDefault("db-password", "")
	v.SetDefault("db-name", "logsight")
	v.SetDefault("db-sslmode", "")
	v.SetDefault("query-timeout", model.DefaultQueryTimeout)
	v.SetDefault("batch-size", model.DefaultBatchSize)
	v.SetDefault("report-limit", model.DefaultReportLimit)
	v.SetDefault("log-level", "info")
	v.SetDefault("log-format", "text")
	v.SetDefault("api-addr", httpserver.DefaultAddr)
	v.SetDefault("backup-local-dir", filepath.Join(dataDir, "backups"))
	v.SetDefault("backup-keep-last", defaultBackupKeepLast)
	v.SetDefault("backup-interval", time.Duration(0))
	v.SetDefault("backup-bucket-url", "")
	v.SetDefault("backup-s3-endpoint", "")
	v.SetDefault("backup-s3-region", "")
	v.SetDefault("backup-s3-access-key", "")
	v.SetDefault("backup-s3-secret-key", "")
	v.SetDefault("backup-s3-path-style", false)

	explicit := configPath != ""
	if !explicit {
		configPath = filepath.Join(home, ".config", "logsight", "config.yml")
	}
	v.SetConfigFile(configPath)

	if err := v.ReadInConfig(); err != nil {
		var configFileNotFound viper.ConfigFileNotFoundError
		notFound := errors.As(err, &configFileNotFound) || os.IsNotExist(err)
		if explicit || !notFound {
			return cfg, err
		}
	}

	if err := v.Unmarshal(&cfg); err != nil {
		return cfg, err
	}
	cfg.ConfigPath = v.ConfigFileUsed()

	// Expand ~ in paths
	cfg.DBPath = expandHome(home, cfg.DBPath)
	cfg.BackupLocalDir = expandHome(home, cfg.BackupLocalDir)

	return cfg, cfg.validate()
}

func (c appConfig) validate() error {
	switch c.DBDriver {
	case store.DriverDuckDB, store.DriverPostgres:
	default:
		return fmt.Errorf("invalid db-driver: %q", c.DBDriver)
	}
	if c.DBPort <= 0 || c.DBPort > 65535 {
		return fmt.Errorf("invalid db-port: %d", c.DBPort)
	}
	if c.BatchSize <= 0 {
		return fmt.Errorf("invalid batch-size: %d", c.BatchSize)
	}
	if c.ReportLimit <= 0 {
		return fmt.Errorf("invalid report-limit: %d", c.ReportLimit)
	}
	if c.QueryTimeout <= 0 {
		return fmt.Errorf("invalid query-timeout: %s", c.QueryTimeout)
	}
	switch c.LogFormat {
	case "text", "json":
	default:
		return fmt.Errorf("invalid log-format: %q", c.LogFormat)
	}
	return nil
}

func expandHome(home, p string) string {
	if strings.HasPrefix(p, "~/") {
		return filepath.Join(home, p[2:])
	}
	return p
}

func (c appConfig) storeConfig() store.Config {
	return store.Config{
		Driver:       c.DBDriver,
		Path:         c.DBPath,
		Host:         c.DBHost,
		Port:         c.DBPort,
		User:         c.DBUser,
		Password:     c.DBPassword,
		Database:     c.DBName,
		SSLMode:      c.DBSSLMode,
		QueryTimeout: c.QueryTimeout,
	}
}

func (c appConfig) backupConfig() backup.Config {
	return backup.Config{
		Interval:       c.BackupInterval,
		LocalDir:       c.BackupLocalDir,
		KeepLast:       c.BackupKeepLast,
		BucketURL:      c.BackupBucketURL,
		S3Endpoint:     c.BackupS3Endpoint,
		S3Region:       c.BackupS3Region,
		S3AccessKey:    c.BackupS3AccessKey,
		S3SecretKey:    c.BackupS3SecretKey,
		S3UsePathStyle: c.BackupS3PathStyle,
	}
}
