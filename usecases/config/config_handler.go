//                           _       _
// __      _____  __ ___   ___  __ _| |_ ___
// \ \ /\ / / _ \/ _` \ \ / / |/ _` | __/ _ \
//  \ V  V /  __/ (_| |\ V /| | (_| | ||  __/
//   \_/\_/ \___|\__,_| \_/ |_|\__,_|\__\___|
//
//  Copyright © 2016 - 2024 Weaviate B.V. All rights reserved.
//
//  CONTACT: hello@weaviate.io
//

package config

import (
	"encoding/json"
	"fmt"
	"os"
	"regexp"
	"time"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"
)

// DefaultConfigFile is the default file when no config file is provided
const DefaultConfigFile string = "./catalog.conf.yaml"

const (
	BackendAzure      = "azure"
	BackendS3         = "s3"
	BackendGCS        = "gcs"
	BackendFilesystem = "filesystem"

	CatalogBolt     = "bolt"
	CatalogPostgres = "postgres"

	DefaultPageSize         = 500
	DefaultBlockSize        = 8 * 1024 * 1024
	MinS3BlockSize          = 5 * 1024 * 1024
	DefaultMaxConcurrency   = 50
	DefaultProgressEvery    = 1000
	DefaultCollation        = "en"
	DefaultSearchAPIVersion = "2023-11-01"
	DefaultPollInterval     = 30 * time.Second
	DefaultScheduleInterval = time.Hour
	DefaultMonitorTimeout   = 2 * time.Hour
	DefaultMonitoringPort   = 2112
	DefaultBoltPath         = "./data/catalog.db"
)

// Flags are input options
type Flags struct {
	ConfigFile string `long:"config-file" description:"path to config file (default: ./catalog.conf.yaml)"`

	StorageBackend   string `long:"storage-backend" description:"object storage backend: azure, s3, gcs or filesystem"`
	CatalogBackend   string `long:"catalog-backend" description:"catalog store: bolt or postgres"`
	MaxConcurrency   int    `long:"max-concurrency" description:"maximum catalog writes in flight"`
	CompressionLevel string `long:"compression-level" description:"archive compression: default, speed or best"`
	SearchEndpoint   string `long:"search-endpoint" description:"base URL of the search service"`
	MonitoringPort   int    `long:"monitoring-port" description:"port of the /metrics listener"`
}

// Config outline of the config file
type Config struct {
	Debug      bool       `json:"debug" yaml:"debug"`
	Storage    Storage    `json:"storage" yaml:"storage"`
	Catalog    Catalog    `json:"catalog" yaml:"catalog"`
	Ingestion  Ingestion  `json:"ingestion" yaml:"ingestion"`
	Archive    Archive    `json:"archive" yaml:"archive"`
	Search     Search     `json:"search" yaml:"search"`
	Monitoring Monitoring `json:"monitoring" yaml:"monitoring"`
	Sentry     Sentry     `json:"sentry" yaml:"sentry"`
}

type Storage struct {
	Backend    string     `json:"backend" yaml:"backend"`
	PageSize   int        `json:"page_size" yaml:"page_size"`
	BlockSize  int        `json:"block_size" yaml:"block_size"`
	Azure      Azure      `json:"azure" yaml:"azure"`
	S3         S3         `json:"s3" yaml:"s3"`
	GCS        GCS        `json:"gcs" yaml:"gcs"`
	Filesystem Filesystem `json:"filesystem" yaml:"filesystem"`
}

type Azure struct {
	ConnectionString string `json:"connection_string" yaml:"connection_string"`
	AccountName      string `json:"account_name" yaml:"account_name"`
	AccountKey       string `json:"account_key" yaml:"account_key"`
	Endpoint         string `json:"endpoint" yaml:"endpoint"`
}

type S3 struct {
	Endpoint        string `json:"endpoint" yaml:"endpoint"`
	Region          string `json:"region" yaml:"region"`
	AccessKeyID     string `json:"access_key_id" yaml:"access_key_id"`
	SecretAccessKey string `json:"secret_access_key" yaml:"secret_access_key"`
	UseSSL          bool   `json:"use_ssl" yaml:"use_ssl"`
}

type GCS struct {
	ProjectID       string `json:"project_id" yaml:"project_id"`
	CredentialsFile string `json:"credentials_file" yaml:"credentials_file"`
	Endpoint        string `json:"endpoint" yaml:"endpoint"`
}

type Filesystem struct {
	Root string `json:"root" yaml:"root"`
}

type Catalog struct {
	Backend string `json:"backend" yaml:"backend"`
	Path    string `json:"path" yaml:"path"`
	DSN     string `json:"dsn" yaml:"dsn"`
}

type Ingestion struct {
	MaxConcurrency int    `json:"max_concurrency" yaml:"max_concurrency"`
	ProgressEvery  int    `json:"progress_every" yaml:"progress_every"`
	Collation      string `json:"collation" yaml:"collation"`
}

type Archive struct {
	// CompressionLevel is one of default, speed or best.
	CompressionLevel string `json:"compression_level" yaml:"compression_level"`
}

type Search struct {
	Endpoint         string        `json:"endpoint" yaml:"endpoint"`
	APIKey           string        `json:"api_key" yaml:"api_key"`
	APIVersion       string        `json:"api_version" yaml:"api_version"`
	NamePrefix       string        `json:"name_prefix" yaml:"name_prefix"`
	DataSourceType   string        `json:"data_source_type" yaml:"data_source_type"`
	ConnectionString string        `json:"connection_string" yaml:"connection_string"`
	PollInterval     time.Duration `json:"poll_interval" yaml:"poll_interval"`
	ScheduleInterval time.Duration `json:"schedule_interval" yaml:"schedule_interval"`
	MonitorTimeout   time.Duration `json:"monitor_timeout" yaml:"monitor_timeout"`
	Timeout          time.Duration `json:"timeout" yaml:"timeout"`

	// RequestsPerSecond throttles calls to the service, 0 means unlimited.
	RequestsPerSecond float64 `json:"requests_per_second" yaml:"requests_per_second"`
}

type Sentry struct {
	Enabled bool   `json:"enabled" yaml:"enabled"`
	DSN     string `json:"dsn" yaml:"dsn"`
	Debug   bool   `json:"debug" yaml:"debug"`
}

type Monitoring struct {
	Enabled bool `json:"enabled" yaml:"enabled"`
	Port    int  `json:"port" yaml:"port"`
}

// Default returns a configuration that works without any file, env or
// flags: a bolt catalog and the local filesystem as object storage.
func Default() Config {
	return Config{
		Storage: Storage{
			Backend:    BackendFilesystem,
			PageSize:   DefaultPageSize,
			BlockSize:  DefaultBlockSize,
			Filesystem: Filesystem{Root: "./data/storage"},
		},
		Catalog: Catalog{Backend: CatalogBolt, Path: DefaultBoltPath},
		Ingestion: Ingestion{
			MaxConcurrency: DefaultMaxConcurrency,
			ProgressEvery:  DefaultProgressEvery,
			Collation:      DefaultCollation,
		},
		Archive: Archive{CompressionLevel: "default"},
		Search: Search{
			APIVersion:       DefaultSearchAPIVersion,
			PollInterval:     DefaultPollInterval,
			ScheduleInterval: DefaultScheduleInterval,
			MonitorTimeout:   DefaultMonitorTimeout,
			Timeout:          30 * time.Second,
		},
		Monitoring: Monitoring{Port: DefaultMonitoringPort},
	}
}

func (c *Config) Validate() error {
	if err := c.Storage.Validate(); err != nil {
		return errors.Wrap(err, "storage")
	}
	if err := c.Catalog.Validate(); err != nil {
		return errors.Wrap(err, "catalog")
	}
	if err := c.Ingestion.Validate(); err != nil {
		return errors.Wrap(err, "ingestion")
	}
	if err := c.Archive.Validate(); err != nil {
		return errors.Wrap(err, "archive")
	}
	if err := c.Search.Validate(); err != nil {
		return errors.Wrap(err, "search")
	}
	// the search datasources read views only the postgres catalog creates
	if c.Search.Endpoint != "" && c.Catalog.Backend != CatalogPostgres {
		return fmt.Errorf("search: indexing needs the %s catalog backend, got %q",
			CatalogPostgres, c.Catalog.Backend)
	}
	if c.Monitoring.Enabled && (c.Monitoring.Port <= 0 || c.Monitoring.Port > 65535) {
		return fmt.Errorf("monitoring: invalid port %d", c.Monitoring.Port)
	}
	if c.Sentry.Enabled && c.Sentry.DSN == "" {
		return fmt.Errorf("sentry: enabled but no dsn provided")
	}
	return nil
}

func (s Storage) Validate() error {
	if s.PageSize <= 0 {
		return fmt.Errorf("page_size must be positive, got %d", s.PageSize)
	}
	if s.BlockSize <= 0 {
		return fmt.Errorf("block_size must be positive, got %d", s.BlockSize)
	}
	switch s.Backend {
	case BackendAzure:
		if s.Azure.ConnectionString == "" && s.Azure.AccountName == "" {
			return fmt.Errorf("azure: connection_string or account_name required")
		}
	case BackendS3:
		if s.S3.Endpoint == "" {
			return fmt.Errorf("s3: endpoint required")
		}
		if s.BlockSize < MinS3BlockSize {
			return fmt.Errorf("s3: block_size must be at least %d, got %d", MinS3BlockSize, s.BlockSize)
		}
	case BackendGCS:
	case BackendFilesystem:
		if s.Filesystem.Root == "" {
			return fmt.Errorf("filesystem: root required")
		}
	default:
		return fmt.Errorf("unknown backend %q", s.Backend)
	}
	return nil
}

func (c Catalog) Validate() error {
	switch c.Backend {
	case CatalogBolt:
		if c.Path == "" {
			return fmt.Errorf("bolt: path required")
		}
	case CatalogPostgres:
		if c.DSN == "" {
			return fmt.Errorf("postgres: dsn required")
		}
	default:
		return fmt.Errorf("unknown backend %q", c.Backend)
	}
	return nil
}

func (i Ingestion) Validate() error {
	if i.MaxConcurrency <= 0 {
		return fmt.Errorf("max_concurrency must be positive, got %d", i.MaxConcurrency)
	}
	if i.ProgressEvery <= 0 {
		return fmt.Errorf("progress_every must be positive, got %d", i.ProgressEvery)
	}
	return nil
}

func (a Archive) Validate() error {
	switch a.CompressionLevel {
	case "", "default", "speed", "best":
		return nil
	default:
		return fmt.Errorf("compression_level must be one of default, speed, best, got %q", a.CompressionLevel)
	}
}

// Search settings are only checked if an endpoint is set, ingestion and
// archiving run without a search service.
func (s Search) Validate() error {
	if s.Endpoint == "" {
		return nil
	}
	if s.APIKey == "" {
		return fmt.Errorf("api_key required with endpoint")
	}
	if s.PollInterval <= 0 {
		return fmt.Errorf("poll_interval must be positive")
	}
	if s.MonitorTimeout < 0 {
		return fmt.Errorf("monitor_timeout must not be negative")
	}
	if s.RequestsPerSecond < 0 {
		return fmt.Errorf("requests_per_second must not be negative")
	}
	return nil
}

// CatalogConfig represents the loaded configuration
type CatalogConfig struct {
	Config Config
}

// LoadConfig from config locations. The load order for configuration values if the following
// 1. Config file
// 2. Environment variables
// 3. Command line flags
// If a config option is specified multiple times in different locations, the latest one will be used in this order.
func (f *CatalogConfig) LoadConfig(flags *Flags, logger logrus.FieldLogger) error {
	f.Config = Default()

	configFileName := flags.ConfigFile
	if configFileName == "" {
		configFileName = DefaultConfigFile
	}

	file, err := os.ReadFile(configFileName)
	if err != nil && flags.ConfigFile != "" {
		return configErr(errors.Wrapf(err, "read %s", configFileName))
	}

	if len(file) > 0 {
		logger.WithField("action", "config_load").WithField("config_file_path", configFileName).
			Info("loading config file")
		if err := f.parseConfigFile(file, configFileName); err != nil {
			return configErr(err)
		}
	}

	if err := FromEnv(&f.Config); err != nil {
		return configErr(err)
	}

	f.fromFlags(flags)

	if err := f.Config.Validate(); err != nil {
		return configErr(err)
	}
	return nil
}

// parseConfigFile decodes on top of the current values so that keys
// missing from the file keep their defaults.
func (f *CatalogConfig) parseConfigFile(file []byte, name string) error {
	m := regexp.MustCompile(`.*\.(\w+)$`).FindStringSubmatch(name)
	if len(m) < 2 {
		return fmt.Errorf("config file does not have a file ending, got '%s'", name)
	}

	switch m[1] {
	case "json":
		if err := json.Unmarshal(file, &f.Config); err != nil {
			return fmt.Errorf("error unmarshalling the json config file: %w", err)
		}
	case "yaml", "yml":
		if err := yaml.Unmarshal(file, &f.Config); err != nil {
			return fmt.Errorf("error unmarshalling the yaml config file: %w", err)
		}
	default:
		return fmt.Errorf("unsupported config file extension '%s', use .yaml or .json", m[1])
	}

	return nil
}

// fromFlags parses values from flags given as parameter and overrides values in the config
func (f *CatalogConfig) fromFlags(flags *Flags) {
	if flags.StorageBackend != "" {
		f.Config.Storage.Backend = flags.StorageBackend
	}
	if flags.CatalogBackend != "" {
		f.Config.Catalog.Backend = flags.CatalogBackend
	}
	if flags.MaxConcurrency > 0 {
		f.Config.Ingestion.MaxConcurrency = flags.MaxConcurrency
	}
	if flags.CompressionLevel != "" {
		f.Config.Archive.CompressionLevel = flags.CompressionLevel
	}
	if flags.SearchEndpoint != "" {
		f.Config.Search.Endpoint = flags.SearchEndpoint
	}
	if flags.MonitoringPort > 0 {
		f.Config.Monitoring.Enabled = true
		f.Config.Monitoring.Port = flags.MonitoringPort
	}
}

func configErr(err error) error {
	return fmt.Errorf("invalid config: %w", err)
}
