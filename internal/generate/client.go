// internal/generate/client.go
package generate

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	jmes "github.com/jmespath/go-jmespath"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"qalilab/pkg/config"
)

var completions = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "qalilab_generation_requests_total",
	Help: "Generation endpoint round trips by outcome.",
}, []string{"outcome"})

// Client calls the text-generation endpoint. Failures at this boundary are
// data, not errors: Complete always returns a displayable string, so handlers
// can render whatever came back. No retries, no caching — every call is a
// fresh round trip.
type Client struct {
	url         string
	model       string
	maxTokens   int
	temperature float64
	extractPath string
	httpClient  *http.Client
}

func NewClient(cfg config.Config) *Client {
	return &Client{
		url:         cfg.GenerateURL,
		model:       cfg.GenerateModel,
		maxTokens:   cfg.GenerateMaxTokens,
		temperature: cfg.GenerateTemperature,
		extractPath: cfg.GenerateExtractPath,
		httpClient:  &http.Client{Timeout: cfg.GenerateTimeout},
	}
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	MaxTokens   int           `json:"max_tokens"`
	Temperature float64       `json:"temperature"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Complete sends prompt and returns the completion text verbatim, or a
// human-readable error string ("Erreur API: <status>" / "Erreur: <cause>").
func (c *Client) Complete(ctx context.Context, prompt string) string {
	payload, err := json.Marshal(chatRequest{
		Model:       c.model,
		Messages:    []chatMessage{{Role: "user", Content: prompt}},
		MaxTokens:   c.maxTokens,
		Temperature: c.temperature,
	})
	if err != nil {
		completions.WithLabelValues("error").Inc()
		return fmt.Sprintf("Erreur: %v", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(payload))
	if err != nil {
		completions.WithLabelValues("error").Inc()
		return fmt.Sprintf("Erreur: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		completions.WithLabelValues("transport_error").Inc()
		return fmt.Sprintf("Erreur: %v", err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		completions.WithLabelValues("transport_error").Inc()
		return fmt.Sprintf("Erreur: %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		completions.WithLabelValues("http_error").Inc()
		return fmt.Sprintf("Erreur API: %d - %s", resp.StatusCode, string(body))
	}

	// Response shapes differ between inference servers, so the content path is
	// a configurable JMESPath expression rather than a fixed struct.
	var doc any
	if err := json.Unmarshal(body, &doc); err != nil {
		completions.WithLabelValues("bad_payload").Inc()
		return fmt.Sprintf("Erreur: %v", err)
	}
	res, err := jmes.Search(c.extractPath, doc)
	if err != nil {
		completions.WithLabelValues("bad_payload").Inc()
		return fmt.Sprintf("Erreur: %v", err)
	}
	content, ok := res.(string)
	if !ok || content == "" {
		completions.WithLabelValues("bad_payload").Inc()
		return fmt.Sprintf("Erreur: réponse inattendue du modèle (%s absent)", c.extractPath)
	}
	completions.WithLabelValues("ok").Inc()
	return content
}
