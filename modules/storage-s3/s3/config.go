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

import "os"

const (
	DEFAULT_ENDPOINT = "s3.amazonaws.com"

	AWS_ROLE_ARN                = "AWS_ROLE_ARN"
	AWS_WEB_IDENTITY_TOKEN_FILE = "AWS_WEB_IDENTITY_TOKEN_FILE"
	AWS_REGION                  = "AWS_REGION"
	AWS_DEFAULT_REGION          = "AWS_DEFAULT_REGION"

	// smallest part S3 accepts for every part but the last
	MinPartSize = 5 * 1024 * 1024
)

type Config struct {
	Endpoint        string
	Region          string
	AccessKeyID     string
	SecretAccessKey string
	UseSSL          bool
}

func (c Config) endpoint() string {
	if len(c.Endpoint) > 0 {
		return c.Endpoint
	}
	return DEFAULT_ENDPOINT
}

func (c Config) region() string {
	if len(c.Region) > 0 {
		return c.Region
	}
	if region := os.Getenv(AWS_REGION); len(region) > 0 {
		return region
	}
	return os.Getenv(AWS_DEFAULT_REGION)
}
