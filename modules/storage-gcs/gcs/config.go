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

package gcs

import "os"

const (
	GOOGLE_APPLICATION_CREDENTIALS = "GOOGLE_APPLICATION_CREDENTIALS"
	GOOGLE_CLOUD_PROJECT           = "GOOGLE_CLOUD_PROJECT"
	GCLOUD_PROJECT                 = "GCLOUD_PROJECT"
	GCP_PROJECT                    = "GCP_PROJECT"
)

type Config struct {
	ProjectID       string
	CredentialsFile string
	// Endpoint points the client at an emulator.
	Endpoint string
}

func (c Config) projectID() string {
	if c.ProjectID != "" {
		return c.ProjectID
	}
	for _, name := range []string{GOOGLE_CLOUD_PROJECT, GCLOUD_PROJECT, GCP_PROJECT} {
		if v := os.Getenv(name); v != "" {
			return v
		}
	}
	return ""
}

func (c Config) authenticated() bool {
	return c.CredentialsFile != "" || os.Getenv(GOOGLE_APPLICATION_CREDENTIALS) != ""
}
