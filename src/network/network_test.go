package network

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"live-stats/src/helpers"
	"live-stats/src/logger"
	"live-stats/src/models"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestManager(retries int) *AsyncNetworkManager {
	cfg := &models.MConfig{Network: models.MNetworkConfig{RequestTimeout: 2, MaxRetries: retries, UserAgent: "live-stats-test"}}
	nm := NewAsyncNetworkManager(cfg, logger.NewLogger(nil, "network-test"))
	nm.RetryDelay = time.Millisecond
	return nm
}

func TestGetRetriesServerErrors(t *testing.T) {
	gin.SetMode(gin.TestMode)
	var calls atomic.Int32
	engine := gin.New()
	engine.GET("/live", func(c *gin.Context) {
		if calls.Add(1) < 3 {
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "warming_up"})
			return
		}
		assert.Equal(t, "UZ", c.Query("country"))
		_, hasLocale := c.GetQuery("locale")
		assert.False(t, hasLocale, "empty params are not sent")
		assert.Equal(t, "live-stats-test", c.GetHeader("User-Agent"))
		assert.Equal(t, "ru", c.GetHeader("Accept-Language"))
		c.String(http.StatusOK, `{"ok":true}`)
	})
	ts := httptest.NewServer(engine)
	defer ts.Close()

	body, err := newTestManager(2).Get(context.Background(), ts.URL+"/live",
		map[string]string{"country": "UZ", "locale": ""}, map[string]string{"Accept-Language": "ru"})
	require.NoError(t, err)
	assert.JSONEq(t, `{"ok":true}`, string(body))
	assert.Equal(t, int32(3), calls.Load())
}

func TestClientErrorsAreNotRetried(t *testing.T) {
	gin.SetMode(gin.TestMode)
	var calls atomic.Int32
	engine := gin.New()
	engine.POST("/mood", func(c *gin.Context) {
		calls.Add(1)
		c.JSON(http.StatusConflict, gin.H{"code": "already_voted", "title": "Conflict", "message": "one vote per day"})
	})
	ts := httptest.NewServer(engine)
	defer ts.Close()

	_, err := newTestManager(3).PostJSON(context.Background(), ts.URL+"/mood", map[string]string{"moodType": "HAPPY"}, nil)
	require.Error(t, err)

	var apiErr *helpers.APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusConflict, apiErr.Status)
	assert.Equal(t, "already_voted", apiErr.Code)
	assert.Equal(t, "one vote per day", apiErr.Detail)
	assert.Equal(t, int32(1), calls.Load())
}

func TestParseAPIError(t *testing.T) {
	e := ParseAPIError(http.StatusBadRequest, []byte(`{"error":"bad_country","detail":"unknown country"}`))
	assert.Equal(t, "bad_country", e.Code)
	assert.Equal(t, "unknown country", e.Error())
	assert.False(t, e.Retryable())

	e = ParseAPIError(http.StatusBadGateway, []byte("upstream exploded\n"))
	assert.Equal(t, "upstream exploded", e.Detail)
	assert.True(t, e.Retryable())

	e = ParseAPIError(http.StatusInternalServerError, nil)
	assert.Equal(t, "request failed: 500", e.Error())
}

func TestProxyConfiguredClient(t *testing.T) {
	cfg := &models.MConfig{Network: models.MNetworkConfig{RequestTimeout: 1, Proxies: []string{"127.0.0.1:3128", "not a proxy"}}}
	nm := NewAsyncNetworkManager(cfg, logger.NewLogger(nil, "network-test"))

	assert.True(t, nm.ProxyManager.HasProxies())
	assert.Equal(t, time.Second, nm.Client().Timeout)
	transport := nm.Client().Transport.(*http.Transport)
	req := httptest.NewRequest(http.MethodGet, "http://example.com", nil)
	proxyURL, err := transport.Proxy(req)
	require.NoError(t, err)
	assert.Equal(t, "http://127.0.0.1:3128", proxyURL.String())
}
