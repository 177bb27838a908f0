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

package objectstore

import (
	"context"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/datasetcatalog/catalog/entities/storage"
	modstgazure "github.com/datasetcatalog/catalog/modules/storage-azure/azure"
	modstgfs "github.com/datasetcatalog/catalog/modules/storage-filesystem"
	modstggcs "github.com/datasetcatalog/catalog/modules/storage-gcs/gcs"
	modstgs3 "github.com/datasetcatalog/catalog/modules/storage-s3/s3"
	"github.com/datasetcatalog/catalog/usecases/config"
)

// New returns the object store backend selected in the config.
func New(ctx context.Context, cfg config.Storage, logger logrus.FieldLogger) (storage.ObjectStore, error) {
	logger = logger.WithField("backend", cfg.Backend)

	var (
		store storage.ObjectStore
		err   error
	)
	switch cfg.Backend {
	case config.BackendAzure:
		store, err = modstgazure.New(modstgazure.Config{
			ConnectionString: cfg.Azure.ConnectionString,
			AccountName:      cfg.Azure.AccountName,
			AccountKey:       cfg.Azure.AccountKey,
			Endpoint:         cfg.Azure.Endpoint,
		}, logger)
	case config.BackendS3:
		store, err = modstgs3.New(modstgs3.Config{
			Endpoint:        cfg.S3.Endpoint,
			Region:          cfg.S3.Region,
			AccessKeyID:     cfg.S3.AccessKeyID,
			SecretAccessKey: cfg.S3.SecretAccessKey,
			UseSSL:          cfg.S3.UseSSL,
		}, logger)
	case config.BackendGCS:
		store, err = modstggcs.New(ctx, modstggcs.Config{
			ProjectID:       cfg.GCS.ProjectID,
			CredentialsFile: cfg.GCS.CredentialsFile,
			Endpoint:        cfg.GCS.Endpoint,
		}, logger)
	case config.BackendFilesystem:
		store, err = modstgfs.New(cfg.Filesystem.Root, logger)
	default:
		return nil, errors.Errorf("unknown storage backend %q", cfg.Backend)
	}
	if err != nil {
		return nil, errors.Wrapf(err, "init %s storage", cfg.Backend)
	}

	logger.WithField("action", "storage_init").Debug("object store ready")
	return store, nil
}
