package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"strings"
	"time"
)

// DefaultIngestTimeout bounds a single ingest call. The engine embeds and
// indexes the whole document before responding, so this is deliberately
// generous.
const DefaultIngestTimeout = 500 * time.Second

// PGPTClient talks to a PrivateGPT-compatible HTTP API
// (/v1/ingest/file and /v1/completions).
type PGPTClient struct {
	baseURL       string
	httpClient    *http.Client
	ingestClient  *http.Client
	ingestTimeout time.Duration
}

// PGPTOption customizes a PGPTClient.
type PGPTOption func(*PGPTClient)

// WithIngestTimeout overrides the ingest call timeout.
func WithIngestTimeout(d time.Duration) PGPTOption {
	return func(c *PGPTClient) {
		if d > 0 {
			c.ingestTimeout = d
		}
	}
}

// NewPGPTClient builds an Engine client. baseURL is the server root, e.g.
// "http://localhost:8001".
func NewPGPTClient(baseURL string, opts ...PGPTOption) *PGPTClient {
	c := &PGPTClient{
		baseURL:       strings.TrimRight(strings.TrimSpace(baseURL), "/"),
		httpClient:    &http.Client{Timeout: 120 * time.Second},
		ingestTimeout: DefaultIngestTimeout,
	}
	for _, opt := range opts {
		opt(c)
	}
	c.ingestClient = &http.Client{Timeout: c.ingestTimeout}
	return c
}

// IngestFile uploads document bytes for indexing and returns the assigned
// document id.
func (c *PGPTClient) IngestFile(ctx context.Context, filename string, contents []byte) (string, error) {
	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	part, err := writer.CreateFormFile("file", filename)
	if err != nil {
		return "", err
	}
	if _, err := part.Write(contents); err != nil {
		return "", err
	}
	if err := writer.Close(); err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/ingest/file", &body)
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := c.ingestClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("pgpt ingest request: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 400 {
		return "", fmt.Errorf("pgpt ingest error: %s", apiError(resp))
	}

	var ingestResp pgptIngestResponse
	if err := json.NewDecoder(resp.Body).Decode(&ingestResp); err != nil {
		return "", fmt.Errorf("pgpt ingest decode: %w", err)
	}
	if len(ingestResp.Data) == 0 || ingestResp.Data[0].DocID == "" {
		return "", fmt.Errorf("pgpt ingest: no document id in response")
	}
	return ingestResp.Data[0].DocID, nil
}

// Complete calls the prompt completion endpoint.
func (c *PGPTClient) Complete(ctx context.Context, req CompletionRequest) (Completion, error) {
	payload := pgptCompletionRequest{
		Prompt:         req.Prompt,
		UseContext:     req.UseContext,
		IncludeSources: req.IncludeSources,
	}
	if req.UseContext && len(req.ContextDocIDs) > 0 {
		payload.ContextFilter = &pgptContextFilter{DocsIDs: req.ContextDocIDs}
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return Completion{}, err
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/completions", bytes.NewReader(body))
	if err != nil {
		return Completion{}, err
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return Completion{}, fmt.Errorf("pgpt completion request: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 400 {
		return Completion{}, fmt.Errorf("pgpt completion error: %s", apiError(resp))
	}

	var completionResp pgptCompletionResponse
	if err := json.NewDecoder(resp.Body).Decode(&completionResp); err != nil {
		return Completion{}, fmt.Errorf("pgpt completion decode: %w", err)
	}
	if len(completionResp.Choices) == 0 {
		return Completion{}, fmt.Errorf("pgpt completion: empty choices")
	}
	choice := completionResp.Choices[0]
	result := Completion{Content: choice.Message.Content}
	for _, src := range choice.Sources {
		result.Sources = append(result.Sources, SourceDocument{
			DocID:    src.Document.DocID,
			FileName: src.Document.DocMetadata.FileName,
		})
	}
	return result, nil
}

func apiError(resp *http.Response) string {
	var errResp struct {
		Detail string `json:"detail"`
	}
	_ = json.NewDecoder(resp.Body).Decode(&errResp)
	if errResp.Detail != "" {
		return errResp.Detail
	}
	return resp.Status
}

// PrivateGPT wire types.

type pgptIngestResponse struct {
	Data []struct {
		DocID string `json:"doc_id"`
	} `json:"data"`
}

type pgptContextFilter struct {
	DocsIDs []string `json:"docs_ids"`
}

type pgptCompletionRequest struct {
	Prompt         string             `json:"prompt"`
	UseContext     bool               `json:"use_context"`
	ContextFilter  *pgptContextFilter `json:"context_filter,omitempty"`
	IncludeSources bool               `json:"include_sources"`
}

type pgptCompletionResponse struct {
	Choices []struct {
		Message struct {
			Role    string `json:"role"`
			Content string `json:"content"`
		} `json:"message"`
		Sources []struct {
			Document struct {
				DocID       string `json:"doc_id"`
				DocMetadata struct {
					FileName string `json:"file_name"`
				} `json:"doc_metadata"`
			} `json:"document"`
		} `json:"sources"`
	} `json:"choices"`
}
