package network

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sync"
	"time"

	"live-stats/src/helpers"
	"live-stats/src/interfaces"
	"live-stats/src/logger"
	"live-stats/src/models"
)

const maxBodySize = 4 << 20

type AsyncNetworkManager struct {
	Config       *models.MConfig
	ProxyManager interfaces.IProxyManager
	Logger       *logger.Logger
	RetryDelay   time.Duration

	mu     sync.RWMutex
	client *http.Client
}

// -----------------------------------------------------------------------------

func NewAsyncNetworkManager(cfg *models.MConfig, log *logger.Logger) *AsyncNetworkManager {
	nm := &AsyncNetworkManager{
		Config:       cfg,
		ProxyManager: helpers.NewProxyManager(cfg.Network.Proxies, cfg.Network.UserAgent),
		Logger:       log,
		RetryDelay:   500 * time.Millisecond,
	}
	nm.client = nm.createClient()
	return nm
}

// -----------------------------------------------------------------------------

func (nm *AsyncNetworkManager) createClient() *http.Client {
	transport := http.DefaultTransport.(*http.Transport).Clone()

	if nm.ProxyManager.HasProxies() {
		proxyStr, err := nm.ProxyManager.GetCurrentProxy()
		if err == nil && proxyStr != "" {
			proxyURL, err := url.Parse(proxyStr)
			if err == nil {
				transport.Proxy = http.ProxyURL(proxyURL)
			}
		}
	}

	return &http.Client{
		Transport: transport,
		Timeout:   time.Duration(nm.Config.Network.RequestTimeout) * time.Second,
	}
}

// -----------------------------------------------------------------------------

// Client returns the current HTTP client; stream transports share its proxy settings.
func (nm *AsyncNetworkManager) Client() *http.Client {
	nm.mu.RLock()
	defer nm.mu.RUnlock()
	return nm.client
}

// -----------------------------------------------------------------------------

func (nm *AsyncNetworkManager) rotateProxy() {
	if !nm.ProxyManager.HasProxies() {
		return
	}

	nm.ProxyManager.RotateProxy()
	nm.mu.Lock()
	nm.client = nm.createClient()
	nm.mu.Unlock()
}

// -----------------------------------------------------------------------------

// Get performs a GET request with retries and proxy rotation.
func (nm *AsyncNetworkManager) Get(ctx context.Context, urlStr string, params map[string]string, headers map[string]string) ([]byte, error) {
	reqUrl, err := url.Parse(urlStr)
	if err != nil {
		return nil, err
	}

	q := reqUrl.Query()
	for k, v := range params {
		if v != "" {
			q.Set(k, v)
		}
	}
	reqUrl.RawQuery = q.Encode()
	finalUrl := reqUrl.String()

	return helpers.RetryWithBackoff(ctx, nm.Logger, "GET "+reqUrl.Path, nm.Config.Network.MaxRetries, nm.RetryDelay, func() ([]byte, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, finalUrl, nil)
		if err != nil {
			return nil, err
		}
		req.Header.Set("Accept", "application/json")
		return nm.do(req, headers)
	})
}

// -----------------------------------------------------------------------------

// PostJSON sends a JSON body. Non-2xx responses come back as *helpers.APIError.
func (nm *AsyncNetworkManager) PostJSON(ctx context.Context, urlStr string, body interface{}, headers map[string]string) ([]byte, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("failed to encode request body: %w", err)
	}

	return helpers.RetryWithBackoff(ctx, nm.Logger, "POST "+urlStr, nm.Config.Network.MaxRetries, nm.RetryDelay, func() ([]byte, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, urlStr, bytes.NewReader(payload))
		if err != nil {
			return nil, err
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Accept", "application/json")
		return nm.do(req, headers)
	})
}

// -----------------------------------------------------------------------------

func (nm *AsyncNetworkManager) do(req *http.Request, headers map[string]string) ([]byte, error) {
	req.Header.Set("User-Agent", nm.ProxyManager.GetUserAgent())
	for k, v := range headers {
		if v != "" {
			req.Header.Set(k, v)
		}
	}

	resp, err := nm.Client().Do(req)
	if err != nil {
		nm.Logger.Debug("Request failed: %v", err)
		nm.rotateProxy()
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return nil, err
	}

	if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode == http.StatusForbidden {
		nm.Logger.Info("Request blocked (%d). Rotating proxy.", resp.StatusCode)
		nm.rotateProxy()
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, ParseAPIError(resp.StatusCode, body)
	}

	return body, nil
}

// -----------------------------------------------------------------------------

// ParseAPIError builds an APIError from a problem-style body, falling back to the raw text.
func ParseAPIError(status int, body []byte) *helpers.APIError {
	apiErr := &helpers.APIError{Status: status}

	var problem struct {
		Code    string `json:"code"`
		Error   string `json:"error"`
		Title   string `json:"title"`
		Detail  string `json:"detail"`
		Message string `json:"message"`
	}
	if err := json.Unmarshal(body, &problem); err == nil {
		apiErr.Code = firstNonEmpty(problem.Code, problem.Error)
		apiErr.Title = problem.Title
		apiErr.Detail = firstNonEmpty(problem.Detail, problem.Message)
	} else {
		apiErr.Detail = string(bytes.TrimSpace(body))
	}

	apiErr.Message = firstNonEmpty(apiErr.Detail, apiErr.Title, fmt.Sprintf("request failed: %d", status))
	return apiErr
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
