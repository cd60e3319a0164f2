// Package unstructured partitions and chunks documents through the hosted
// Unstructured API.
//
// The same endpoint serves both stages: a PDF upload is partitioned into
// layout elements, and an upload of an element JSON file with a chunking
// strategy is rehydrated and chunked by title.
package unstructured

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"path/filepath"
	"time"

	"github.com/custodia-labs/clause/internal/core/domain"
)

// Default configuration values.
const (
	DefaultAPIURL   = "https://api.unstructuredapp.io/general/v0/general"
	DefaultStrategy = "hi_res"
	DefaultTimeout  = 10 * time.Minute

	apiKeyHeader = "unstructured-api-key"
)

// Config holds configuration for the Unstructured client.
type Config struct {
	// APIKey is sent in the unstructured-api-key header (required).
	APIKey string

	// APIURL is the general endpoint.
	APIURL string

	// Strategy is the partition strategy (default: hi_res).
	Strategy string

	// Timeout bounds one request. Large PDFs take minutes.
	Timeout time.Duration
}

// client posts multipart requests to the general endpoint.
type client struct {
	http     *http.Client
	url      string
	apiKey   string
	strategy string
}

func newClient(cfg Config) (*client, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("%w: unstructured API key is required", domain.ErrConfiguration)
	}
	if cfg.APIURL == "" {
		cfg.APIURL = DefaultAPIURL
	}
	if cfg.Strategy == "" {
		cfg.Strategy = DefaultStrategy
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultTimeout
	}
	return &client{
		http:     &http.Client{Timeout: cfg.Timeout},
		url:      cfg.APIURL,
		apiKey:   cfg.APIKey,
		strategy: cfg.Strategy,
	}, nil
}

// formField is one repeated or single multipart value.
type formField struct {
	name  string
	value string
}

// post uploads one file with form fields and decodes the JSON array reply
// into out.
func (c *client) post(ctx context.Context, filename, contentType string, content []byte, fields []formField, out any) error {
	var body bytes.Buffer
	w := multipart.NewWriter(&body)

	for _, f := range fields {
		if err := w.WriteField(f.name, f.value); err != nil {
			return fmt.Errorf("write field %s: %w", f.name, err)
		}
	}

	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition",
		fmt.Sprintf(`form-data; name="files"; filename=%q`, filepath.Base(filename)))
	header.Set("Content-Type", contentType)
	part, err := w.CreatePart(header)
	if err != nil {
		return fmt.Errorf("create file part: %w", err)
	}
	if _, err := part.Write(content); err != nil {
		return fmt.Errorf("write file part: %w", err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("close multipart body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, &body)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", w.FormDataContentType())
	req.Header.Set("Accept", "application/json")
	req.Header.Set(apiKeyHeader, c.apiKey)

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("unstructured request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 4096)) //nolint:errcheck // best-effort error detail
		if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
			return fmt.Errorf("%w: unstructured returned status %d: %s",
				domain.ErrRateLimited, resp.StatusCode, string(msg))
		}
		return fmt.Errorf("unstructured returned status %d: %s", resp.StatusCode, string(msg))
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
