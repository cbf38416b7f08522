package replicate

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"tryon-canvas-server/modules/common/model"
)

// ProviderName - Job.Provider 값
const ProviderName = "replicate"

// Options - Replicate 클라이언트 설정
type Options struct {
	BaseURL    string
	APIToken   string
	HTTPClient *http.Client
	// RPS - 초당 요청 수 제한 (0 이하면 제한 없음)
	RPS float64
}

// Client - Replicate predictions API 클라이언트
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
	limiter    *rate.Limiter
}

// NewClient - Replicate 클라이언트 생성
func NewClient(opts Options) *Client {
	hc := opts.HTTPClient
	if hc == nil {
		hc = &http.Client{Timeout: 60 * time.Second}
	}
	base := strings.TrimRight(opts.BaseURL, "/")
	if base == "" {
		base = "https://api.replicate.com/v1"
	}

	var limiter *rate.Limiter
	if opts.RPS > 0 {
		burst := int(opts.RPS)
		if burst < 1 {
			burst = 1
		}
		limiter = rate.NewLimiter(rate.Limit(opts.RPS), burst)
	}

	return &Client{
		baseURL:    base,
		token:      opts.APIToken,
		httpClient: hc,
		limiter:    limiter,
	}
}

// APIError - 2xx 가 아닌 응답
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("replicate API error: %d - %s", e.StatusCode, e.Body)
}

// prediction - API 응답 구조
type prediction struct {
	ID     string          `json:"id"`
	Status string          `json:"status"`
	Output json.RawMessage `json:"output"`
	Error  json.RawMessage `json:"error"`
	URLs   struct {
		Get string `json:"get"`
	} `json:"urls"`
}

type createRequest struct {
	Version string                 `json:"version,omitempty"`
	Input   map[string]interface{} `json:"input"`
}

// CreatePrediction - 예측 생성
// ref 가 "owner/name" 이면 모델 엔드포인트, "owner/name:version" 또는 버전 해시면 /predictions 사용
func (c *Client) CreatePrediction(ctx context.Context, ref string, input map[string]interface{}) (*model.Job, error) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return nil, fmt.Errorf("replicate model reference is empty")
	}

	var (
		url  string
		body createRequest
	)
	switch {
	case strings.Contains(ref, ":"):
		url = c.baseURL + "/predictions"
		body = createRequest{Version: ref[strings.LastIndex(ref, ":")+1:], Input: input}
	case strings.Contains(ref, "/"):
		url = fmt.Sprintf("%s/models/%s/predictions", c.baseURL, ref)
		body = createRequest{Input: input}
	default:
		url = c.baseURL + "/predictions"
		body = createRequest{Version: ref, Input: input}
	}

	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	log.Printf("📤 [Replicate] Creating prediction: %s", ref)
	var p prediction
	if err := c.do(ctx, http.MethodPost, url, payload, &p); err != nil {
		return nil, err
	}
	log.Printf("✅ [Replicate] Prediction created: %s (status: %s)", p.ID, p.Status)
	return p.toJob(), nil
}

// GetPrediction - 예측 상태 조회
func (c *Client) GetPrediction(ctx context.Context, id string) (*model.Job, error) {
	if id == "" {
		return nil, fmt.Errorf("prediction id is empty")
	}
	var p prediction
	if err := c.do(ctx, http.MethodGet, c.baseURL+"/predictions/"+id, nil, &p); err != nil {
		return nil, err
	}
	return p.toJob(), nil
}

func (c *Client) do(ctx context.Context, method, url string, payload []byte, out interface{}) error {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return fmt.Errorf("rate limiter: %w", err)
		}
	}

	var body io.Reader
	if payload != nil {
		body = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to make request: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &APIError{StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(data))}
	}

	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

func (p *prediction) toJob() *model.Job {
	return &model.Job{
		ID:       p.ID,
		Provider: ProviderName,
		Status:   model.JobStatus(strings.ToLower(p.Status)),
		Output:   parseOutput(p.Output),
		Error:    parseError(p.Error),
	}
}

// parseOutput - output 은 문자열 또는 문자열 배열
func parseOutput(raw json.RawMessage) []string {
	if len(raw) == 0 || string(raw) == "null" {
		return nil
	}
	var single string
	if err := json.Unmarshal(raw, &single); err == nil {
		if single == "" {
			return nil
		}
		return []string{single}
	}
	var list []string
	if err := json.Unmarshal(raw, &list); err == nil {
		out := list[:0]
		for _, s := range list {
			if s != "" {
				out = append(out, s)
			}
		}
		return out
	}
	return nil
}

// parseError - error 는 문자열 또는 객체
func parseError(raw json.RawMessage) string {
	if len(raw) == 0 || string(raw) == "null" {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	return string(raw)
}
