package server

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"live-stats/src/helpers"
	"live-stats/src/livesync"
	"live-stats/src/logger"
	"live-stats/src/metrics"
	"live-stats/src/models"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// -----------------------------------------------------------------------------
// Fakes
// -----------------------------------------------------------------------------

type fakeSync struct {
	mu        sync.Mutex
	view      models.MLiveView
	params    models.MParams
	visible   []bool
	restarts  []models.MParams
	issued    []models.MOverlayEntry
	resolved  map[string]bool
	watchers  []chan models.MLiveView
	nextEntry int
}

func newFakeSync() *fakeSync {
	return &fakeSync{
		view:     models.MLiveView{Status: models.StatusConnected, Version: 3},
		params:   models.MParams{Country: "UZ", Locale: "ru"},
		resolved: make(map[string]bool),
	}
}

func (f *fakeSync) View() models.MLiveView {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.view
}

func (f *fakeSync) Watch() (<-chan models.MLiveView, func()) {
	f.mu.Lock()
	defer f.mu.Unlock()
	ch := make(chan models.MLiveView, 1)
	ch <- f.view
	f.watchers = append(f.watchers, ch)
	return ch, func() {}
}

// publish replaces the view and pushes it to every watcher, latest value wins.
func (f *fakeSync) publish(view models.MLiveView) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.view = view
	for _, ch := range f.watchers {
		select {
		case <-ch:
		default:
		}
		ch <- view
	}
}

func (f *fakeSync) Status() models.ConnectionStatus { return f.View().Status }
func (f *fakeSync) StatusHistory() []models.MStatusChange {
	return []models.MStatusChange{{From: models.StatusIdle, To: models.StatusConnecting}}
}
func (f *fakeSync) Metrics() models.MSyncMetrics {
	return models.MSyncMetrics{MessagesApplied: 4, Generation: 2}
}

func (f *fakeSync) Params() models.MParams {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.params
}

func (f *fakeSync) Restart(params models.MParams) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.params = params
	f.restarts = append(f.restarts, params)
}

func (f *fakeSync) SetVisible(visible bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.visible = append(f.visible, visible)
}

func (f *fakeSync) IssueOverlay(category string, delta int64) models.MOverlayEntry {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextEntry++
	entry := models.MOverlayEntry{ID: strings.Repeat("0", f.nextEntry), Category: category, Delta: delta}
	f.issued = append(f.issued, entry)
	return entry
}

func (f *fakeSync) ResolveOverlay(id string, accepted bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.resolved[id] = accepted
}

func (f *fakeSync) PendingOverlays() []models.MOverlayEntry { return nil }

func (f *fakeSync) visibleCalls() []bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]bool{}, f.visible...)
}

// -----------------------------------------------------------------------------

type fakeSubmitter struct {
	err  error
	got  models.MSubmitMoodRequest
	lang string
}

func (f *fakeSubmitter) SubmitMood(_ context.Context, req models.MSubmitMoodRequest, locale string) (*models.MSubmitMoodResponse, error) {
	f.got, f.lang = req, locale
	if f.err != nil {
		return nil, f.err
	}
	return &models.MSubmitMoodResponse{Status: "ok", ShareCardURL: "https://cards.example/1"}, nil
}

type fakePrefs struct {
	saved []models.MPreferences
	err   error
}

func (f *fakePrefs) Initialize() error                              { return nil }
func (f *fakePrefs) LoadPreferences() (*models.MPreferences, error) { return nil, nil }
func (f *fakePrefs) Close() error                                   { return nil }
func (f *fakePrefs) SavePreferences(p models.MPreferences) error {
	if f.err != nil {
		return f.err
	}
	f.saved = append(f.saved, p)
	return nil
}

// -----------------------------------------------------------------------------

func newTestServer(t *testing.T, live *fakeSync) *FastAPIServer {
	t.Helper()
	cfg := &models.MConfig{Host: "127.0.0.1", Port: 0, LogLevel: "ERROR"}
	s := NewFastAPIServer(cfg, logger.NewLogger(cfg, "server-test"), live)
	t.Cleanup(func() { s.Stop() })
	return s
}

func doJSON(t *testing.T, h http.Handler, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

// -----------------------------------------------------------------------------
// REST
// -----------------------------------------------------------------------------

func TestGetLiveAndHealth(t *testing.T) {
	live := newFakeSync()
	s := newTestServer(t, live)

	rec := doJSON(t, s.Handler(), http.MethodGet, "/api/live", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var view models.MLiveView
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &view))
	assert.Equal(t, models.StatusConnected, view.Status)
	assert.Equal(t, uint64(3), view.Version)

	rec = doJSON(t, s.Handler(), http.MethodGet, "/api/health", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var health map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &health))
	assert.Equal(t, "ok", health["status"])
	assert.Equal(t, "connected", health["sync"])
	assert.EqualValues(t, 0, health["connections"])
}

func TestGetStatusAndMetrics(t *testing.T) {
	s := newTestServer(t, newFakeSync())

	rec := doJSON(t, s.Handler(), http.MethodGet, "/api/status", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"country":"UZ"`)
	assert.Contains(t, rec.Body.String(), `"to":"connecting"`)

	rec = doJSON(t, s.Handler(), http.MethodGet, "/api/metrics", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"messages_applied":4`)
}

func TestPrometheusEndpoint(t *testing.T) {
	s := newTestServer(t, newFakeSync())
	rec := doJSON(t, s.Handler(), http.MethodGet, "/metrics", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	s.Metrics = metrics.NewCollector()
	s.Metrics.Reconnect(time.Second)
	rec = doJSON(t, s.Handler(), http.MethodGet, "/metrics", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "live_stats_reconnects_total 1")
}

func TestPostVisibility(t *testing.T) {
	live := newFakeSync()
	s := newTestServer(t, live)

	rec := doJSON(t, s.Handler(), http.MethodPost, "/api/visibility", map[string]string{})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = doJSON(t, s.Handler(), http.MethodPost, "/api/visibility", map[string]bool{"visible": false})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []bool{false}, live.visibleCalls())

	// With a monitor, only transitions reach the sync core.
	s.Visibility = livesync.NewVisibilityMonitor(true)
	s.Visibility.Subscribe(live.SetVisible)
	doJSON(t, s.Handler(), http.MethodPost, "/api/visibility", map[string]bool{"visible": true})
	doJSON(t, s.Handler(), http.MethodPost, "/api/visibility", map[string]bool{"visible": false})
	doJSON(t, s.Handler(), http.MethodPost, "/api/visibility", map[string]bool{"visible": false})
	assert.Equal(t, []bool{false, false}, live.visibleCalls())
}

func TestPutScopeSavesAndRestarts(t *testing.T) {
	live := newFakeSync()
	prefs := &fakePrefs{}
	s := newTestServer(t, live)
	s.Prefs = prefs

	rec := doJSON(t, s.Handler(), http.MethodPut, "/api/scope", models.MScopeRequest{Country: " kz ", Locale: "uz-Latn"})
	require.Equal(t, http.StatusOK, rec.Code)

	want := models.MParams{Country: "KZ", Locale: "uz"}
	assert.Equal(t, []models.MParams{want}, live.restarts)
	require.Len(t, prefs.saved, 1)
	assert.Equal(t, "KZ", prefs.saved[0].Country)
	assert.Equal(t, "uz", prefs.saved[0].Locale)

	// Empty locale keeps the current one, empty country goes global.
	rec = doJSON(t, s.Handler(), http.MethodPut, "/api/scope", models.MScopeRequest{})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, models.MParams{Country: "", Locale: "uz"}, live.Params())
}

func TestPutScopeStorageFailure(t *testing.T) {
	live := newFakeSync()
	s := newTestServer(t, live)
	s.Prefs = &fakePrefs{err: errors.New("disk full")}

	rec := doJSON(t, s.Handler(), http.MethodPut, "/api/scope", models.MScopeRequest{Country: "KZ"})
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Empty(t, live.restarts)
}

// -----------------------------------------------------------------------------
// Mood submission
// -----------------------------------------------------------------------------

func TestPostMoodConfirmsOverlay(t *testing.T) {
	live := newFakeSync()
	sub := &fakeSubmitter{}
	s := newTestServer(t, live)
	s.Submitter = sub

	rec := doJSON(t, s.Handler(), http.MethodPost, "/api/mood", map[string]string{"moodType": "happy"})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "https://cards.example/1")

	require.Len(t, live.issued, 1)
	assert.Equal(t, "happy", live.issued[0].Category)
	assert.Equal(t, int64(1), live.issued[0].Delta)
	assert.Equal(t, map[string]bool{live.issued[0].ID: true}, live.resolved)

	assert.Equal(t, "UZ", sub.got.Country)
	assert.Equal(t, "ru", sub.lang)
}

func TestPostMoodRejected(t *testing.T) {
	live := newFakeSync()
	s := newTestServer(t, live)
	apiErr := &helpers.APIError{Status: http.StatusTooManyRequests, Code: "rate_limited", Detail: "one vote per day"}
	apiErr.Message = apiErr.Detail
	s.Submitter = &fakeSubmitter{err: apiErr}

	rec := doJSON(t, s.Handler(), http.MethodPost, "/api/mood", map[string]string{"moodType": "sad"})
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Contains(t, rec.Body.String(), "rate_limited")
	assert.Contains(t, rec.Body.String(), "one vote per day")
	require.Len(t, live.issued, 1)
	assert.Equal(t, map[string]bool{live.issued[0].ID: false}, live.resolved)

	s.Submitter = &fakeSubmitter{err: errors.New("dial tcp: refused")}
	rec = doJSON(t, s.Handler(), http.MethodPost, "/api/mood", map[string]string{"moodType": "sad"})
	assert.Equal(t, http.StatusBadGateway, rec.Code)
}

func TestPostMoodValidation(t *testing.T) {
	s := newTestServer(t, newFakeSync())

	rec := doJSON(t, s.Handler(), http.MethodPost, "/api/mood", map[string]string{"moodType": "happy"})
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	s.Submitter = &fakeSubmitter{}
	rec = doJSON(t, s.Handler(), http.MethodPost, "/api/mood", map[string]string{})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

// -----------------------------------------------------------------------------
// Push
// -----------------------------------------------------------------------------

func TestLiveStreamSendsViews(t *testing.T) {
	live := newFakeSync()
	s := newTestServer(t, live)
	ts := httptest.NewServer(s.Handler())
	defer ts.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, ts.URL+"/api/live-stream", nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Contains(t, resp.Header.Get("Content-Type"), "text/event-stream")

	reader := bufio.NewReader(resp.Body)
	readView := func() models.MLiveView {
		for {
			line, err := reader.ReadString('\n')
			require.NoError(t, err)
			if strings.HasPrefix(line, "data:") {
				var view models.MLiveView
				require.NoError(t, json.Unmarshal([]byte(strings.TrimSpace(strings.TrimPrefix(line, "data:"))), &view))
				return view
			}
		}
	}

	assert.Equal(t, uint64(3), readView().Version)
	live.publish(models.MLiveView{Status: models.StatusPolling, Version: 4})
	assert.Equal(t, uint64(4), readView().Version)
}

func TestWebSocketHub(t *testing.T) {
	live := newFakeSync()
	s := newTestServer(t, live)
	s.Config.Visibility.FollowClients = true
	s.Visibility = livesync.NewVisibilityMonitor(false)
	s.Visibility.Subscribe(live.SetVisible)
	go s.handleWebsockets()

	ts := httptest.NewServer(s.Handler())
	defer ts.Close()

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(ts.URL, "http")+"/ws", nil)
	require.NoError(t, err)

	var view models.MLiveView
	require.NoError(t, conn.ReadJSON(&view))
	assert.Equal(t, uint64(3), view.Version, "current view on connect")
	assert.Eventually(t, func() bool { return s.Visibility.Visible() }, time.Second, 10*time.Millisecond)
	assert.Equal(t, 1, s.Connections())

	s.Broadcast(models.MLiveView{Status: models.StatusReconnecting, Version: 9})
	require.NoError(t, conn.ReadJSON(&view))
	assert.Equal(t, uint64(9), view.Version)

	live.publish(models.MLiveView{Status: models.StatusConnected, Version: 10})
	require.NoError(t, conn.WriteJSON(models.MClientCommand{Command: "view"}))
	require.NoError(t, conn.ReadJSON(&view))
	assert.Equal(t, uint64(10), view.Version)

	conn.Close()
	assert.Eventually(t, func() bool { return !s.Visibility.Visible() }, time.Second, 10*time.Millisecond)
	assert.Eventually(t, func() bool { return s.Connections() == 0 }, time.Second, 10*time.Millisecond)
	assert.Equal(t, []bool{true, false}, live.visibleCalls())
}

func TestWebSocketBadCommandDisconnects(t *testing.T) {
	s := newTestServer(t, newFakeSync())
	go s.handleWebsockets()

	ts := httptest.NewServer(s.Handler())
	defer ts.Close()

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(ts.URL, "http")+"/ws", nil)
	require.NoError(t, err)
	defer conn.Close()

	var view models.MLiveView
	require.NoError(t, conn.ReadJSON(&view))
	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte("not json")))

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, _, err = conn.ReadMessage()
	assert.Error(t, err)
}

// -----------------------------------------------------------------------------

func TestScopeParams(t *testing.T) {
	current := models.MParams{Country: "UZ", Locale: "ru"}
	assert.Equal(t, models.MParams{Country: "KZ", Locale: "ru"}, ScopeParams(models.MScopeRequest{Country: "kz"}, current))
	assert.Equal(t, models.MParams{Country: "", Locale: "en"}, ScopeParams(models.MScopeRequest{Locale: "fr"}, current))
}
