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

package s3

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestConfigDefaults(t *testing.T) {
	t.Setenv(AWS_REGION, "")
	t.Setenv(AWS_DEFAULT_REGION, "")

	c := Config{}
	assert.Equal(t, DEFAULT_ENDPOINT, c.endpoint())
	assert.Equal(t, "", c.region())

	t.Setenv(AWS_DEFAULT_REGION, "eu-central-1")
	assert.Equal(t, "eu-central-1", c.region())

	t.Setenv(AWS_REGION, "us-east-2")
	assert.Equal(t, "us-east-2", c.region())

	c = Config{Endpoint: "minio:9000", Region: "eu-west-1"}
	assert.Equal(t, "minio:9000", c.endpoint())
	assert.Equal(t, "eu-west-1", c.region())
}
