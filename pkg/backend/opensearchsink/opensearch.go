// Package opensearchsink indexes log records into an OpenSearch index via
// the HTTP bulk API. The cluster API surface needed here is a single POST
// endpoint, so the sink speaks HTTP directly rather than pulling in a full
// search client.
package opensearchsink

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/pkg/errors"

	"github.com/logsink-io/logsink/pkg/record"
)

const (
	DefaultIndex = "logs"

	requestTimeout = 10 * time.Second

	// errorBodyLimit bounds how much of an error response is read back for
	// diagnostics.
	errorBodyLimit = 4096
)

type Config struct {
	// BaseURL of the cluster, e.g. "http://localhost:9200".
	BaseURL string
	Index   string
}

type Sink struct {
	client  *http.Client
	baseURL string
	index   string
}

func New(cfg Config) *Sink {
	if cfg.Index == "" {
		cfg.Index = DefaultIndex
	}
	return &Sink{
		client:  &http.Client{Timeout: requestTimeout},
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		index:   cfg.Index,
	}
}

func (s *Sink) Send(ctx context.Context, rec record.Record) error {
	doc, err := json.Marshal(rec)
	if err != nil {
		return errors.WithMessage(err, "serializing log record")
	}

	// Bulk body with a single index operation.
	body := bytes.Buffer{}
	fmt.Fprintf(&body, "{\"index\":{\"_index\":%q}}\n", s.index)
	body.Write(doc)
	body.WriteByte('\n')

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL+"/_bulk", &body)
	if err != nil {
		return errors.WithMessage(err, "building bulk request")
	}
	req.Header.Set("Content-Type", "application/x-ndjson")

	resp, err := s.client.Do(req)
	if err != nil {
		return errors.WithMessage(err, "posting bulk request")
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		text, _ := io.ReadAll(io.LimitReader(resp.Body, errorBodyLimit))
		return errors.Errorf("opensearch bulk insert failed with status %d: %s", resp.StatusCode, text)
	}

	// Bulk responds 200 even when individual operations fail.
	var result struct {
		Errors bool `json:"errors"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return errors.WithMessage(err, "decoding bulk response")
	}
	if result.Errors {
		return errors.Errorf("opensearch bulk insert reported item errors for index %s", s.index)
	}
	return nil
}
