package helpers

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRetryWithBackoffSucceedsEventually(t *testing.T) {
	calls := 0
	got, err := RetryWithBackoff(context.Background(), nil, "op", 3, time.Millisecond, func() (string, error) {
		calls++
		if calls < 3 {
			return "", errors.New("flaky")
		}
		return "done", nil
	})
	require.NoError(t, err)
	assert.Equal(t, "done", got)
	assert.Equal(t, 3, calls)
}

func TestRetryWithBackoffStopsOnPermanentError(t *testing.T) {
	calls := 0
	_, err := RetryWithBackoff(context.Background(), nil, "op", 5, time.Millisecond, func() (int, error) {
		calls++
		return 0, &APIError{Status: 404}
	})
	require.Error(t, err)
	assert.Equal(t, 1, calls)
}

func TestRetryWithBackoffGivesUp(t *testing.T) {
	calls := 0
	_, err := RetryWithBackoff(context.Background(), nil, "op", 2, time.Millisecond, func() (int, error) {
		calls++
		return 0, &APIError{Status: 503}
	})
	require.Error(t, err)
	assert.Equal(t, 3, calls)
}

func TestRetryWithBackoffHonoursContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := RetryWithBackoff(ctx, nil, "op", 3, time.Hour, func() (int, error) {
		return 0, errors.New("down")
	})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestErrorTypes(t *testing.T) {
	cause := errors.New("eof")
	err := error(NewTransportError("stream closed", cause))
	assert.Equal(t, "stream closed: eof", err.Error())
	assert.ErrorIs(t, err, cause)

	var transport *TransportError
	assert.True(t, errors.As(err, &transport))
	var decode *DecodeError
	assert.False(t, errors.As(err, &decode))
}

func TestProxyHelpers(t *testing.T) {
	assert.Equal(t, "http://10.0.0.1:8080", FormatProxy("10.0.0.1:8080"))
	assert.True(t, ValidateProxy("socks5://10.0.0.1:1080"))
	assert.False(t, ValidateProxy("ftp://10.0.0.1"))
	assert.False(t, ValidateProxy(""))

	pm := NewProxyManager([]string{"a:1", "b:2"}, "")
	first, _ := pm.GetCurrentProxy()
	pm.RotateProxy()
	second, _ := pm.GetCurrentProxy()
	assert.Equal(t, "http://a:1", first)
	assert.Equal(t, "http://b:2", second)
	assert.Equal(t, "live-stats/1.0", pm.GetUserAgent())
}
