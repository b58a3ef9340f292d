package lmstudio

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"qzone-agent/configs"
	"qzone-agent/internal/domain"
	"qzone-agent/internal/ports/output"

	"github.com/sirupsen/logrus"
)

// Compile-time checks to ensure Client implements the output ports
var (
	_ output.TextGenerator  = (*Client)(nil)
	_ output.ImageGenerator = (*Client)(nil)
)

// Client struct - Output adapter for an LM Studio / OpenAI-compatible API,
// serving both text completion and image generation.
type Client struct {
	httpClient  *http.Client
	baseURL     string
	configModel string
	imageModel  string
	imageSize   string
	temperature float64

	// Model caching
	cachedModel string
	modelMu     sync.RWMutex
}

// NewClient func - Creates an LM Studio client adapter.
func NewClient(config configs.LLM) (*Client, error) {
	baseURL := config.BaseURL
	if baseURL == "" {
		baseURL = "http://localhost:1234"
	}
	baseURL = strings.TrimSuffix(baseURL, "/")

	timeout := time.Duration(config.Timeout) * time.Second
	if config.Timeout <= 0 {
		timeout = 120 * time.Second
	}

	httpClient := &http.Client{
		Timeout: timeout,
		Transport: &http.Transport{
			DialContext: (&net.Dialer{
				Timeout:   30 * time.Second,
				KeepAlive: 30 * time.Second,
			}).DialContext,
			MaxIdleConns:        100,
			MaxIdleConnsPerHost: 100,
			IdleConnTimeout:     90 * time.Second,
		},
	}

	client := &Client{
		httpClient:  httpClient,
		baseURL:     baseURL,
		configModel: config.Model,
		imageModel:  config.ImageModel,
		imageSize:   config.ImageSize,
		temperature: config.Temperature,
	}

	logrus.Infof("LM Studio client initialized with base URL: %s, timeout: %v", baseURL, timeout)

	return client, nil
}

// Retry configuration constants
const (
	maxRetryAttempts  = 5
	initialDelay      = 1 * time.Second
	maxDelay          = 30 * time.Second
	backoffMultiplier = 2
)

// Complete sends one prompt and returns the model's reply text.
func (c *Client) Complete(ctx context.Context, prompt string) (string, error) {
	model, err := c.getModel(ctx)
	if err != nil {
		return "", fmt.Errorf("%w: resolving model: %v", domain.ErrGeneration, err)
	}

	reqBody := chatCompletionAPIRequest{
		Model: model,
		Messages: []chatMessageAPI{
			{Role: "user", Content: prompt},
		},
		Temperature: c.temperature,
	}

	bodyBytes, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	url := fmt.Sprintf("%s/v1/chat/completions", c.baseURL)

	resp, err := c.retryWithBackoff(ctx, func() (*http.Response, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(bodyBytes))
		if err != nil {
			return nil, err
		}
		req.Header.Set("Content-Type", "application/json")
		return c.httpClient.Do(req)
	})
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	var apiResp chatCompletionAPIResponse
	if err := json.NewDecoder(resp.Body).Decode(&apiResp); err != nil {
		return "", fmt.Errorf("%w: parsing completion response: %v", domain.ErrGeneration, err)
	}
	if len(apiResp.Choices) == 0 {
		return "", fmt.Errorf("%w: no choices in completion response", domain.ErrGeneration)
	}

	content := strings.TrimSpace(apiResp.Choices[0].Message.Content)
	logrus.Debugf("Completion done, model: %s, tokens: %d", apiResp.Model, apiResp.Usage.TotalTokens)

	return content, nil
}

// GenerateImage renders one image for the prompt and returns the raw bytes.
func (c *Client) GenerateImage(ctx context.Context, prompt string) ([]byte, error) {
	size := c.imageSize
	if size == "" {
		size = "1024x1024"
	}

	reqBody := imageAPIRequest{
		Model:          c.imageModel,
		Prompt:         prompt,
		N:              1,
		Size:           size,
		ResponseFormat: "b64_json",
	}

	bodyBytes, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal image request: %w", err)
	}

	url := fmt.Sprintf("%s/v1/images/generations", c.baseURL)

	resp, err := c.retryWithBackoff(ctx, func() (*http.Response, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(bodyBytes))
		if err != nil {
			return nil, err
		}
		req.Header.Set("Content-Type", "application/json")
		return c.httpClient.Do(req)
	})
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var apiResp imageAPIResponse
	if err := json.NewDecoder(resp.Body).Decode(&apiResp); err != nil {
		return nil, fmt.Errorf("%w: parsing image response: %v", domain.ErrGeneration, err)
	}
	if len(apiResp.Data) == 0 || apiResp.Data[0].B64JSON == "" {
		return nil, fmt.Errorf("%w: no image in response", domain.ErrGeneration)
	}

	image, err := base64.StdEncoding.DecodeString(apiResp.Data[0].B64JSON)
	if err != nil {
		return nil, fmt.Errorf("%w: decoding image payload: %v", domain.ErrGeneration, err)
	}
	return image, nil
}

// retryWithBackoff executes an operation with exponential backoff retry logic
func (c *Client) retryWithBackoff(ctx context.Context, operation func() (*http.Response, error)) (*http.Response, error) {
	var lastErr error
	delay := initialDelay

	for attempt := 1; attempt <= maxRetryAttempts; attempt++ {
		resp, err := operation()

		if err != nil {
			if !c.isTransientError(err, 0) {
				return nil, err
			}
			lastErr = err
			logrus.Warnf("Generator request attempt %d/%d failed with error: %v, retrying in %v", attempt, maxRetryAttempts, err, delay)
		} else if resp != nil {
			if resp.StatusCode >= 200 && resp.StatusCode < 300 {
				return resp, nil
			}

			// Don't retry on 4xx client errors
			if resp.StatusCode >= 400 && resp.StatusCode < 500 {
				body, _ := io.ReadAll(resp.Body)
				resp.Body.Close()
				return nil, fmt.Errorf("%w: status %d - %s", domain.ErrGeneration, resp.StatusCode, string(body))
			}

			if c.isTransientError(nil, resp.StatusCode) {
				body, _ := io.ReadAll(resp.Body)
				resp.Body.Close()
				lastErr = fmt.Errorf("server error: status %d - %s", resp.StatusCode, string(body))
				logrus.Warnf("Generator request attempt %d/%d failed with status %d, retrying in %v", attempt, maxRetryAttempts, resp.StatusCode, delay)
			} else {
				return resp, nil
			}
		}

		if attempt < maxRetryAttempts {
			select {
			case <-ctx.Done():
				return nil, fmt.Errorf("context cancelled: %w", ctx.Err())
			case <-time.After(delay):
			}

			delay = delay * backoffMultiplier
			if delay > maxDelay {
				delay = maxDelay
			}
		}
	}

	if lastErr != nil {
		return nil, fmt.Errorf("%w: %v after %d attempts", domain.ErrTransient, lastErr, maxRetryAttempts)
	}
	return nil, fmt.Errorf("%w: max retries exceeded", domain.ErrTransient)
}

// isTransientError determines if an error or status code is transient and should be retried
func (c *Client) isTransientError(err error, statusCode int) bool {
	if statusCode >= 500 && statusCode < 600 {
		return true
	}
	if statusCode >= 400 && statusCode < 500 {
		return false
	}
	if err == nil {
		return false
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		if netErr.Timeout() {
			return true
		}
	}
	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return true
	}
	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return true
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}

	errMsg := err.Error()
	transientPatterns := []string{
		"connection refused",
		"connection reset",
		"no such host",
		"network is unreachable",
		"i/o timeout",
		"EOF",
	}
	for _, pattern := range transientPatterns {
		if strings.Contains(strings.ToLower(errMsg), strings.ToLower(pattern)) {
			return true
		}
	}

	return false
}

// getModel returns the model to use for requests, with caching
func (c *Client) getModel(ctx context.Context) (string, error) {
	c.modelMu.RLock()
	if c.cachedModel != "" {
		model := c.cachedModel
		c.modelMu.RUnlock()
		return model, nil
	}
	c.modelMu.RUnlock()

	c.modelMu.Lock()
	defer c.modelMu.Unlock()

	if c.cachedModel != "" {
		return c.cachedModel, nil
	}

	if c.configModel != "" {
		c.cachedModel = c.configModel
		return c.cachedModel, nil
	}

	// Query available models and select the first one
	models, err := c.listModels(ctx)
	if err != nil {
		return "", fmt.Errorf("failed to get models for selection: %w", err)
	}
	if len(models) == 0 {
		return "", fmt.Errorf("no models available")
	}

	c.cachedModel = models[0]
	logrus.Infof("Selected first available model: %s", c.cachedModel)

	return c.cachedModel, nil
}

// listModels queries the /v1/models endpoint for the model ids available.
func (c *Client) listModels(ctx context.Context) ([]string, error) {
	url := fmt.Sprintf("%s/v1/models", c.baseURL)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create list models request: %w", err)
	}

	resp, err := c.retryWithBackoff(ctx, func() (*http.Response, error) {
		return c.httpClient.Do(req)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list models: %w", err)
	}
	defer resp.Body.Close()

	var modelsResp modelsResponse
	if err := json.NewDecoder(resp.Body).Decode(&modelsResp); err != nil {
		return nil, fmt.Errorf("failed to parse models response: %w", err)
	}

	models := make([]string, len(modelsResp.Data))
	for i, m := range modelsResp.Data {
		models[i] = m.ID
	}
	return models, nil
}

// API request/response structures for the OpenAI-compatible API

type chatMessageAPI struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatCompletionAPIRequest struct {
	Model       string           `json:"model"`
	Messages    []chatMessageAPI `json:"messages"`
	Temperature float64          `json:"temperature,omitempty"`
}

type chatCompletionAPIResponse struct {
	ID      string `json:"id"`
	Model   string `json:"model"`
	Choices []struct {
		Index   int `json:"index"`
		Message struct {
			Role    string `json:"role"`
			Content string `json:"content"`
		} `json:"message"`
		FinishReason string `json:"finish_reason"`
	} `json:"choices"`
	Usage struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
		TotalTokens      int `json:"total_tokens"`
	} `json:"usage"`
}

type imageAPIRequest struct {
	Model          string `json:"model,omitempty"`
	Prompt         string `json:"prompt"`
	N              int    `json:"n"`
	Size           string `json:"size,omitempty"`
	ResponseFormat string `json:"response_format"`
}

type imageAPIResponse struct {
	Data []struct {
		B64JSON string `json:"b64_json"`
		URL     string `json:"url"`
	} `json:"data"`
}

type modelsResponse struct {
	Object string `json:"object"`
	Data   []struct {
		ID string `json:"id"`
	} `json:"data"`
}
