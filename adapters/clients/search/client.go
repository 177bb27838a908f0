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

// Package search is a client for the management REST API of an Azure
// Cognitive Search service: indexes, data sources and indexers.
package search

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"

	entsearch "github.com/datasetcatalog/catalog/entities/search"
)

const (
	DefaultAPIVersion = "2023-11-01"

	// retries of a request answered with a transient status
	maxRetries = 3
)

type Config struct {
	Endpoint   string
	APIKey     string
	APIVersion string
	Timeout    time.Duration

	// RequestsPerSecond caps the request rate, retries included. Zero
	// disables throttling.
	RequestsPerSecond float64
}

type Client struct {
	endpoint   string
	apiKey     string
	apiVersion string
	httpClient *http.Client
	limiter    *rate.Limiter
	*retryer
	logger logrus.FieldLogger
}

func New(config Config, logger logrus.FieldLogger) (*Client, error) {
	if config.Endpoint == "" {
		return nil, errors.New("search endpoint is required")
	}
	if _, err := url.Parse(config.Endpoint); err != nil {
		return nil, errors.Wrap(err, "parse search endpoint")
	}
	version := config.APIVersion
	if version == "" {
		version = DefaultAPIVersion
	}
	limit := rate.Inf
	if config.RequestsPerSecond > 0 {
		limit = rate.Limit(config.RequestsPerSecond)
	}
	return &Client{
		endpoint:   strings.TrimSuffix(config.Endpoint, "/"),
		apiKey:     config.APIKey,
		apiVersion: version,
		httpClient: &http.Client{Timeout: config.Timeout},
		limiter:    rate.NewLimiter(limit, 1),
		retryer:    newRetryer(),
		logger:     logger,
	}, nil
}

func (c *Client) DeleteIndexer(ctx context.Context, name string) error {
	return c.do(ctx, http.MethodDelete, "/indexers/"+url.PathEscape(name), nil, nil)
}

func (c *Client) DeleteDataSource(ctx context.Context, name string) error {
	return c.do(ctx, http.MethodDelete, "/datasources/"+url.PathEscape(name), nil, nil)
}

func (c *Client) DeleteIndex(ctx context.Context, name string) error {
	return c.do(ctx, http.MethodDelete, "/indexes/"+url.PathEscape(name), nil, nil)
}

func (c *Client) CreateIndex(ctx context.Context, index entsearch.Index) error {
	return c.do(ctx, http.MethodPut, "/indexes/"+url.PathEscape(index.Name), newIndexDTO(index), nil)
}

func (c *Client) CreateDataSource(ctx context.Context, ds entsearch.DataSource) error {
	return c.do(ctx, http.MethodPut, "/datasources/"+url.PathEscape(ds.Name), newDataSourceDTO(ds), nil)
}

func (c *Client) CreateIndexer(ctx context.Context, indexer entsearch.Indexer) error {
	return c.do(ctx, http.MethodPut, "/indexers/"+url.PathEscape(indexer.Name), newIndexerDTO(indexer), nil)
}

// RunIndexer requests an immediate run. A run already in progress is not
// an error.
func (c *Client) RunIndexer(ctx context.Context, name string) error {
	err := c.do(ctx, http.MethodPost, "/indexers/"+url.PathEscape(name)+"/run", nil, nil)
	var apiErr *APIError
	if errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusConflict {
		c.logger.WithField("action", "run_indexer").
			WithField("indexer", name).
			Info("indexer is already running")
		return nil
	}
	return err
}

func (c *Client) IndexerStatus(ctx context.Context, name string) (entsearch.IndexerStatus, error) {
	var dto indexerStatusDTO
	if err := c.do(ctx, http.MethodGet, "/indexers/"+url.PathEscape(name)+"/status", nil, &dto); err != nil {
		return entsearch.IndexerStatus{}, err
	}
	return dto.toStatus(), nil
}

// APIError is a non-success response of the service.
type APIError struct {
	StatusCode int
	Code       string
	Message    string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("search service: status code %d", e.StatusCode)
	}
	return fmt.Sprintf("search service: status code %d: %s", e.StatusCode, e.Message)
}

func (e *APIError) Is(target error) bool {
	return target == entsearch.ErrNotFound && e.StatusCode == http.StatusNotFound
}

func (c *Client) do(ctx context.Context, method, path string, body, out interface{}) error {
	var payload []byte
	if body != nil {
		var err error
		if payload, err = json.Marshal(body); err != nil {
			return errors.Wrap(err, "marshal body")
		}
	}
	target := fmt.Sprintf("%s%s?api-version=%s", c.endpoint, path, url.QueryEscape(c.apiVersion))

	try := func(ctx context.Context) (bool, error) {
		if err := c.limiter.Wait(ctx); err != nil {
			return false, err
		}
		var reader io.Reader
		if payload != nil {
			reader = bytes.NewReader(payload)
		}
		req, err := http.NewRequestWithContext(ctx, method, target, reader)
		if err != nil {
			return false, errors.Wrapf(err, "create %s request", method)
		}
		req.Header.Add("api-key", c.apiKey)
		req.Header.Add("Accept", "application/json")
		if payload != nil {
			req.Header.Add("Content-Type", "application/json")
		}

		res, err := c.httpClient.Do(req)
		if err != nil {
			return true, fmt.Errorf("connect: %w", err)
		}
		defer res.Body.Close()

		bodyBytes, err := io.ReadAll(res.Body)
		if err != nil {
			return true, errors.Wrap(err, "read response body")
		}
		if code := res.StatusCode; code > 299 {
			apiErr := &APIError{StatusCode: code}
			var dto apiErrorDTO
			if json.Unmarshal(bodyBytes, &dto) == nil {
				apiErr.Code, apiErr.Message = dto.Error.Code, dto.Error.Message
			}
			shouldRetry := code == http.StatusTooManyRequests || code == http.StatusServiceUnavailable ||
				code == http.StatusBadGateway || code == http.StatusGatewayTimeout
			return shouldRetry, apiErr
		}
		if out != nil {
			if err := json.Unmarshal(bodyBytes, out); err != nil {
				return false, errors.Wrap(err, "unmarshal response body")
			}
		}
		return false, nil
	}

	if err := c.retry(ctx, maxRetries, try); err != nil {
		return errors.Wrapf(err, "%s %s", method, path)
	}
	return nil
}
