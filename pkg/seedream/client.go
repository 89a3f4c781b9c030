package seedream

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"math/rand/v2"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

const (
	DefaultAPIBase    = "https://ark.cn-beijing.volces.com"
	DefaultEndpointID = "doubao-seedream-4-5-251128"

	generationsPath = "/api/v3/images/generations"
)

var (
	ErrNoAPIKeys      = errors.New("API密钥未配置")
	ErrInvalidPayload = errors.New("API返回格式错误")
	ErrNoImage        = errors.New("未生成图像")
)

// APIError is returned for non-2xx responses.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("API请求失败: %d - %s", e.StatusCode, e.Body)
}

// TransportError wraps anything that went wrong while talking to the endpoint.
type TransportError struct {
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("API请求异常: %v", e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// Request is a single image generation call.
type Request struct {
	Prompt         string
	ReferenceImage string
	Resolution     string
}

// ReferenceProcessor may rewrite a reference image before it is inlined.
type ReferenceProcessor func(data []byte, path string) ([]byte, error)

type Options struct {
	APIKeys    []string
	APIBase    string
	EndpointID string
	// OutputDir receives decoded b64_json images. Empty means the working directory.
	OutputDir string
	// ProcessReference is optional.
	ProcessReference ReferenceProcessor
}

// Client calls the Ark images endpoint. One HTTP client is created on first use and
// shared by all calls until Close.
type Client struct {
	apiKeys    []string
	apiBase    string
	endpointID string
	outputDir  string
	processRef ReferenceProcessor

	mu         sync.Mutex
	httpClient *http.Client

	pickKey func(n int) int
	now     func() time.Time
}

func NewClient(opts Options) *Client {
	apiBase := opts.APIBase
	if apiBase == "" {
		apiBase = DefaultAPIBase
	}
	endpointID := opts.EndpointID
	if endpointID == "" {
		endpointID = DefaultEndpointID
	}
	return &Client{
		apiKeys:    append([]string(nil), opts.APIKeys...),
		apiBase:    apiBase,
		endpointID: endpointID,
		outputDir:  opts.OutputDir,
		processRef: opts.ProcessReference,
		pickKey:    rand.IntN,
		now:        time.Now,
	}
}

type generationRequest struct {
	Model          string `json:"model"`
	Prompt         string `json:"prompt"`
	ResponseFormat string `json:"response_format"`
	Watermark      bool   `json:"watermark"`
	Size           string `json:"size,omitempty"`
	Image          string `json:"image,omitempty"`
}

// Data stays raw so a wrongly shaped payload reads as a format error
// rather than a transport failure.
type generationResponse struct {
	Data json.RawMessage `json:"data"`
}

type generationItem struct {
	URL     string `json:"url,omitempty"`
	B64JSON string `json:"b64_json,omitempty"`
}

func (c *Client) getHTTPClient() *http.Client {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.httpClient == nil {
		c.httpClient = &http.Client{Transport: http.DefaultTransport.(*http.Transport).Clone()}
	}
	return c.httpClient
}

// Close releases the pooled connections. A later call creates a fresh client.
func (c *Client) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.httpClient != nil {
		c.httpClient.CloseIdleConnections()
		c.httpClient = nil
	}
}

// GenerateImage issues one generation request and returns an image URL or the path
// of a locally saved image. Every failure comes back as an error; nothing panics.
func (c *Client) GenerateImage(ctx context.Context, req Request) (string, error) {
	if len(c.apiKeys) == 0 {
		return "", ErrNoAPIKeys
	}

	apiKey := c.apiKeys[c.pickKey(len(c.apiKeys))]
	url := strings.TrimRight(c.apiBase, "/") + generationsPath

	payload := generationRequest{
		Model:          c.endpointID,
		Prompt:         req.Prompt,
		ResponseFormat: "url",
		Watermark:      false,
		Size:           MapResolution(req.Resolution),
	}

	if req.ReferenceImage != "" {
		if _, err := os.Stat(req.ReferenceImage); err == nil {
			dataURI, err := c.referenceDataURI(req.ReferenceImage)
			if err != nil {
				return "", &TransportError{Err: err}
			}
			payload.Image = dataURI
			log.Printf("[Seedream] Adding reference image to request: %s", req.ReferenceImage)
		}
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return "", &TransportError{Err: err}
	}

	log.Printf("[Seedream] POST %s (key %s)", url, maskKey(apiKey))
	log.Printf("[Seedream] Payload: %s", safePayload(payload))

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return "", &TransportError{Err: err}
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+apiKey)

	resp, err := c.getHTTPClient().Do(httpReq)
	if err != nil {
		return "", &TransportError{Err: err}
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", &TransportError{Err: err}
	}

	log.Printf("[Seedream] Response status: %d", resp.StatusCode)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		log.Printf("[Seedream] Response error: %s", string(respBody))
		return "", &APIError{StatusCode: resp.StatusCode, Body: string(respBody)}
	}

	var result generationResponse
	if err := json.Unmarshal(respBody, &result); err != nil {
		var typeErr *json.UnmarshalTypeError
		if errors.As(err, &typeErr) {
			return "", ErrInvalidPayload
		}
		return "", &TransportError{Err: err}
	}

	var items []json.RawMessage
	if err := json.Unmarshal(result.Data, &items); err != nil || len(items) == 0 {
		return "", ErrInvalidPayload
	}

	for i, raw := range items {
		var item generationItem
		if err := json.Unmarshal(raw, &item); err != nil {
			log.Printf("[Seedream] Skipping malformed data item %d: %v", i, err)
			continue
		}
		if item.URL != "" {
			return item.URL, nil
		}
		if item.B64JSON != "" {
			path, err := c.saveBase64Image(item.B64JSON)
			if err != nil {
				log.Printf("[Seedream] Failed to save image: %v", err)
				continue
			}
			return path, nil
		}
	}

	return "", ErrNoImage
}

func (c *Client) referenceDataURI(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read reference image: %w", err)
	}

	if c.processRef != nil {
		processed, err := c.processRef(data, path)
		if err != nil {
			log.Printf("[Seedream] Using reference image as is, processing failed: %v", err)
		} else {
			data = processed
		}
	}

	return fmt.Sprintf("data:%s;base64,%s", mimeTypeFor(path), base64.StdEncoding.EncodeToString(data)), nil
}

func (c *Client) saveBase64Image(b64 string) (string, error) {
	if strings.HasPrefix(b64, "data:") {
		if idx := strings.LastIndex(b64, ";base64,"); idx >= 0 {
			b64 = b64[idx+len(";base64,"):]
		}
	}

	data, err := base64.StdEncoding.DecodeString(b64)
	if err != nil {
		return "", fmt.Errorf("decode base64 image: %w", err)
	}

	path := filepath.Join(c.outputDir, fmt.Sprintf("selfie_%d.png", c.now().UnixMilli()))
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("write image: %w", err)
	}
	return path, nil
}

func mimeTypeFor(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".jpg", ".jpeg":
		return "image/jpeg"
	case ".webp":
		return "image/webp"
	case ".gif":
		return "image/gif"
	}
	return "image/png"
}

func maskKey(key string) string {
	if len(key) <= 12 {
		return "***"
	}
	return key[:8] + "..." + key[len(key)-4:]
}

// safePayload renders the payload for logs with the inlined image cut short.
func safePayload(p generationRequest) string {
	if len(p.Image) > 100 {
		p.Image = p.Image[:100] + "...(truncated)"
	}
	data, err := json.Marshal(p)
	if err != nil {
		return fmt.Sprintf("%+v", p)
	}
	return string(data)
}
