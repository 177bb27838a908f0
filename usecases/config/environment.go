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
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"
)

// FromEnv takes a *Config as it will respect initial config that has been
// provided by other means (e.g. a config file) and will only extend those that
// are set
func FromEnv(config *Config) error {
	if enabled(os.Getenv("DEBUG")) {
		config.Debug = true
	}

	setString(&config.Storage.Backend, "STORAGE_BACKEND")
	if err := setInt(&config.Storage.PageSize, "STORAGE_PAGE_SIZE"); err != nil {
		return err
	}
	if err := setInt(&config.Storage.BlockSize, "STORAGE_BLOCK_SIZE"); err != nil {
		return err
	}

	setString(&config.Storage.Azure.ConnectionString, "AZURE_STORAGE_CONNECTION_STRING")
	setString(&config.Storage.Azure.AccountName, "AZURE_STORAGE_ACCOUNT")
	setString(&config.Storage.Azure.AccountKey, "AZURE_STORAGE_KEY")
	setString(&config.Storage.Azure.Endpoint, "AZURE_BLOB_ENDPOINT")

	setString(&config.Storage.S3.Endpoint, "S3_ENDPOINT")
	setString(&config.Storage.S3.Region, "AWS_REGION")
	setString(&config.Storage.S3.AccessKeyID, "AWS_ACCESS_KEY_ID")
	setString(&config.Storage.S3.SecretAccessKey, "AWS_SECRET_ACCESS_KEY")
	if v := os.Getenv("S3_USE_SSL"); v != "" {
		config.Storage.S3.UseSSL = enabled(v)
	}

	setString(&config.Storage.GCS.ProjectID, "GOOGLE_CLOUD_PROJECT")
	setString(&config.Storage.GCS.CredentialsFile, "GOOGLE_APPLICATION_CREDENTIALS")
	setString(&config.Storage.GCS.Endpoint, "STORAGE_EMULATOR_HOST")

	setString(&config.Storage.Filesystem.Root, "STORAGE_FILESYSTEM_ROOT")

	setString(&config.Catalog.Backend, "CATALOG_BACKEND")
	setString(&config.Catalog.Path, "CATALOG_BOLT_PATH")
	setString(&config.Catalog.DSN, "CATALOG_POSTGRES_DSN")

	if err := setInt(&config.Ingestion.MaxConcurrency, "INGESTION_MAX_CONCURRENCY"); err != nil {
		return err
	}
	if err := setInt(&config.Ingestion.ProgressEvery, "INGESTION_PROGRESS_EVERY"); err != nil {
		return err
	}
	setString(&config.Ingestion.Collation, "INGESTION_COLLATION")

	setString(&config.Archive.CompressionLevel, "ARCHIVE_COMPRESSION_LEVEL")

	setString(&config.Search.Endpoint, "SEARCH_ENDPOINT")
	setString(&config.Search.APIKey, "SEARCH_API_KEY")
	setString(&config.Search.APIVersion, "SEARCH_API_VERSION")
	setString(&config.Search.NamePrefix, "SEARCH_NAME_PREFIX")
	setString(&config.Search.DataSourceType, "SEARCH_DATASOURCE_TYPE")
	setString(&config.Search.ConnectionString, "SEARCH_DATASOURCE_CONNECTION_STRING")
	for name, target := range map[string]*time.Duration{
		"SEARCH_POLL_INTERVAL":     &config.Search.PollInterval,
		"SEARCH_SCHEDULE_INTERVAL": &config.Search.ScheduleInterval,
		"SEARCH_MONITOR_TIMEOUT":   &config.Search.MonitorTimeout,
		"SEARCH_TIMEOUT":           &config.Search.Timeout,
	} {
		if err := setDuration(target, name); err != nil {
			return err
		}
	}

	if v := os.Getenv("SEARCH_REQUESTS_PER_SECOND"); v != "" {
		rps, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return errors.Wrap(err, "parse SEARCH_REQUESTS_PER_SECOND as float")
		}
		config.Search.RequestsPerSecond = rps
	}

	if enabled(os.Getenv("SENTRY_ENABLED")) {
		config.Sentry.Enabled = true
	}
	setString(&config.Sentry.DSN, "SENTRY_DSN")
	if enabled(os.Getenv("SENTRY_DEBUG")) {
		config.Sentry.Debug = true
	}

	if enabled(os.Getenv("PROMETHEUS_MONITORING_ENABLED")) {
		config.Monitoring.Enabled = true
	}
	if err := setInt(&config.Monitoring.Port, "PROMETHEUS_MONITORING_PORT"); err != nil {
		return err
	}

	return nil
}

func setString(target *string, name string) {
	if v := os.Getenv(name); v != "" {
		*target = v
	}
}

func setInt(target *int, name string) error {
	v := os.Getenv(name)
	if v == "" {
		return nil
	}
	asInt, err := strconv.Atoi(v)
	if err != nil {
		return errors.Wrapf(err, "parse %s as int", name)
	}
	*target = asInt
	return nil
}

func setDuration(target *time.Duration, name string) error {
	v := os.Getenv(name)
	if v == "" {
		return nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return errors.Wrapf(err, "parse %s as duration", name)
	}
	*target = d
	return nil
}

func enabled(value string) bool {
	switch strings.ToLower(value) {
	case "on", "enabled", "1", "true":
		return true
	default:
		return false
	}
}
