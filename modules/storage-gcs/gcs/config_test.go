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

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestConfigProjectID(t *testing.T) {
	t.Setenv(GOOGLE_CLOUD_PROJECT, "")
	t.Setenv(GCLOUD_PROJECT, "")
	t.Setenv(GCP_PROJECT, "")
	assert.Equal(t, "", Config{}.projectID())

	t.Setenv(GCP_PROJECT, "from-gcp-project")
	assert.Equal(t, "from-gcp-project", Config{}.projectID())

	t.Setenv(GOOGLE_CLOUD_PROJECT, "from-google-cloud-project")
	assert.Equal(t, "from-google-cloud-project", Config{}.projectID())

	assert.Equal(t, "explicit", Config{ProjectID: "explicit"}.projectID())
}

func TestConfigAuthenticated(t *testing.T) {
	t.Setenv(GOOGLE_APPLICATION_CREDENTIALS, "")
	assert.False(t, Config{}.authenticated())
	assert.True(t, Config{CredentialsFile: "/etc/gcs.json"}.authenticated())

	t.Setenv(GOOGLE_APPLICATION_CREDENTIALS, "/etc/gcs.json")
	assert.True(t, Config{}.authenticated())
}
