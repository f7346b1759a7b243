package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"os"
	"path/filepath"

	"github.com/amishk599/jobenrich/internal/model"
)

// DefaultBaseURL is the public OpenAI API root.
const DefaultBaseURL = "https://api.openai.com/v1"

// BatchClient calls the OpenAI Files and Batches endpoints.
type BatchClient struct {
	baseURL          string
	apiKey           string
	completionWindow string
	httpClient       *http.Client
}

var _ BatchAPI = (*BatchClient)(nil)

// NewBatchClient creates a client targeting baseURL (DefaultBaseURL when empty).
func NewBatchClient(baseURL, apiKey, completionWindow string, httpClient *http.Client) *BatchClient {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if completionWindow == "" {
		completionWindow = "24h"
	}
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &BatchClient{
		baseURL:          baseURL,
		apiKey:           apiKey,
		completionWindow: completionWindow,
		httpClient:       httpClient,
	}
}

type fileObject struct {
	ID      string `json:"id"`
	Purpose string `json:"purpose"`
}

// UploadFile uploads the batch input file at path and returns its file id.
func (c *BatchClient) UploadFile(ctx context.Context, path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("open batch file: %w", err)
	}
	defer f.Close()

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	if err := mw.WriteField("purpose", "batch"); err != nil {
		return "", fmt.Errorf("write purpose field: %w", err)
	}
	part, err := mw.CreateFormFile("file", filepath.Base(path))
	if err != nil {
		return "", fmt.Errorf("create file part: %w", err)
	}
	if _, err := io.Copy(part, f); err != nil {
		return "", fmt.Errorf("copy batch file: %w", err)
	}
	if err := mw.Close(); err != nil {
		return "", fmt.Errorf("close multipart body: %w", err)
	}

	var obj fileObject
	if err := c.do(ctx, http.MethodPost, "/files", mw.FormDataContentType(), &body, &obj); err != nil {
		return "", fmt.Errorf("upload batch file: %w", err)
	}
	if obj.ID == "" {
		return "", fmt.Errorf("upload batch file: response has no file id")
	}
	return obj.ID, nil
}

type createBatchRequest struct {
	InputFileID      string            `json:"input_file_id"`
	Endpoint         string            `json:"endpoint"`
	CompletionWindow string            `json:"completion_window"`
	Metadata         map[string]string `json:"metadata,omitempty"`
}

// CreateBatch starts a batch over an uploaded input file.
func (c *BatchClient) CreateBatch(ctx context.Context, inputFileID string, metadata map[string]string) (Batch, error) {
	payload, err := json.Marshal(createBatchRequest{
		InputFileID:      inputFileID,
		Endpoint:         ChatCompletionsEndpoint,
		CompletionWindow: c.completionWindow,
		Metadata:         metadata,
	})
	if err != nil {
		return Batch{}, fmt.Errorf("marshal batch request: %w", err)
	}

	var b Batch
	if err := c.do(ctx, http.MethodPost, "/batches", "application/json", bytes.NewReader(payload), &b); err != nil {
		return Batch{}, fmt.Errorf("create batch: %w", err)
	}
	if b.ID == "" {
		return Batch{}, fmt.Errorf("create batch: response has no batch id")
	}
	return b, nil
}

// GetBatch fetches the current state of a batch.
func (c *BatchClient) GetBatch(ctx context.Context, batchID string) (Batch, error) {
	var b Batch
	if err := c.do(ctx, http.MethodGet, "/batches/"+url.PathEscape(batchID), "", nil, &b); err != nil {
		return Batch{}, fmt.Errorf("get batch %s: %w", batchID, err)
	}
	return b, nil
}

// FileContent downloads the raw content of a file, e.g. a batch output file.
func (c *BatchClient) FileContent(ctx context.Context, fileID string) ([]byte, error) {
	resp, err := c.send(ctx, http.MethodGet, "/files/"+url.PathEscape(fileID)+"/content", "", nil)
	if err != nil {
		return nil, fmt.Errorf("download file %s: %w", fileID, err)
	}
	defer resp.Body.Close()

	content, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read file %s: %w", fileID, err)
	}
	return content, nil
}

func (c *BatchClient) do(ctx context.Context, method, path, contentType string, body io.Reader, out any) error {
	resp, err := c.send(ctx, method, path, contentType, body)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// send performs the request and returns the response for a 2xx status. Any
// other status becomes a *model.HTTPError carrying the provider's message.
func (c *BatchClient) send(ctx context.Context, method, path, contentType string, body io.Reader) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		defer resp.Body.Close()
		return nil, &model.HTTPError{
			StatusCode: resp.StatusCode,
			RetryAfter: model.ParseRetryAfter(resp.Header.Get("Retry-After")),
			Err:        errors.New(providerMessage(resp.Body)),
		}
	}
	return resp, nil
}

type errorEnvelope struct {
	Error *struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error"`
}

func providerMessage(r io.Reader) string {
	raw, _ := io.ReadAll(io.LimitReader(r, 4096))
	var env errorEnvelope
	if json.Unmarshal(raw, &env) == nil && env.Error != nil && env.Error.Message != "" {
		if env.Error.Type != "" {
			return env.Error.Type + ": " + env.Error.Message
		}
		return env.Error.Message
	}
	return string(bytes.TrimSpace(raw))
}
