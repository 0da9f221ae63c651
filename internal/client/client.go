// Package client talks to the gateway and converter services from the
// command line.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"golang.org/x/sync/errgroup"

	"github.com/Lllllllleong/pdfmarkdownflow/internal/models"
	"github.com/Lllllllleong/pdfmarkdownflow/internal/server"
)

// Result is a gateway response for one converted file.
type Result struct {
	Success          bool   `json:"success"`
	Content          string `json:"content"`
	ProcessingMethod string `json:"processing_method"`
	Filename         string `json:"filename"`
}

// Client uploads PDFs to the gateway.
type Client struct {
	http *http.Client
}

// New returns a client whose requests give up after timeout.
func New(timeout time.Duration) *Client {
	return &Client{http: &http.Client{Timeout: timeout}}
}

// ConvertFile uploads the PDF at path to convertURL and returns the decoded
// response. Non-2xx answers are returned as errors carrying the service's
// error message.
func (c *Client) ConvertFile(ctx context.Context, convertURL, path string) (*Result, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	payload, contentType, err := server.EncodeUpload(&models.Upload{Filename: filepath.Base(path), Data: data})
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, convertURL, payload)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Content-Type", contentType)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to call %s: %w", convertURL, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var e models.ErrorResponse
		if json.Unmarshal(body, &e) == nil && e.Error != "" {
			return nil, fmt.Errorf("%s: %s", resp.Status, e.Error)
		}
		return nil, fmt.Errorf("%s from %s", resp.Status, convertURL)
	}

	var result Result
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}
	return &result, nil
}

// Endpoint names one service to probe.
type Endpoint struct {
	Name string
	URL  string
}

// Status is the outcome of probing one endpoint.
type Status struct {
	Endpoint
	Healthy bool
	Message string
}

// CheckHealth probes every endpoint concurrently with GET and returns one
// status per endpoint, in input order. A failed probe never aborts the
// others.
func (c *Client) CheckHealth(ctx context.Context, endpoints []Endpoint) []Status {
	statuses := make([]Status, len(endpoints))
	eg, gctx := errgroup.WithContext(ctx)
	for i, ep := range endpoints {
		eg.Go(func() error {
			statuses[i] = c.probe(gctx, ep)
			return nil
		})
	}
	_ = eg.Wait()
	return statuses
}

func (c *Client) probe(ctx context.Context, ep Endpoint) Status {
	st := Status{Endpoint: ep}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, ep.URL, nil)
	if err != nil {
		st.Message = err.Error()
		return st
	}
	resp, err := c.http.Do(req)
	if err != nil {
		st.Message = err.Error()
		return st
	}
	defer resp.Body.Close()

	var health models.HealthResponse
	if err := json.NewDecoder(resp.Body).Decode(&health); err != nil || resp.StatusCode != http.StatusOK {
		st.Message = resp.Status
		return st
	}
	st.Healthy = true
	st.Message = health.Status
	return st
}

var renderer = goldmark.New(goldmark.WithExtensions(extension.GFM))

// RenderHTML renders Markdown, GFM tables included, to HTML.
func RenderHTML(markdown string) ([]byte, error) {
	var buf bytes.Buffer
	if err := renderer.Convert([]byte(markdown), &buf); err != nil {
		return nil, fmt.Errorf("failed to render markdown: %w", err)
	}
	return buf.Bytes(), nil
}
