package main

import (
	"context"
	"encoding/json"
	"io"
	"math/rand/v2"
	"net/http"
	"sort"
	"strings"
	"sync"
	"time"

	"live-stats/src/logger"
	"live-stats/src/models"

	"github.com/gin-contrib/sse"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/oklog/ulid/v2"
)

var moodCodes = []string{"HAPPY", "CALM", "TIRED", "SAD", "EXCITED", "NEUTRAL"}

// update is one stream payload: id plus the fields that changed.
type update struct {
	ID         string          `json:"id"`
	TotalCount int64           `json:"totalCount"`
	Top        []string        `json:"top"`
	Totals     []models.MTotal `json:"totals"`
}

// -----------------------------------------------------------------------------

// upstream keeps per-scope counts and fans updates out to stream subscribers.
type upstream struct {
	logger   *logger.Logger
	dupEvery int

	mu     sync.Mutex
	counts map[string]map[string]int64 // scope key -> mood -> count
	subs   map[chan []byte]struct{}
	sent   int
	last   []byte
}

func newUpstream(log *logger.Logger, dupEvery int) *upstream {
	return &upstream{
		logger:   log,
		dupEvery: dupEvery,
		counts:   make(map[string]map[string]int64),
		subs:     make(map[chan []byte]struct{}),
	}
}

// -----------------------------------------------------------------------------

func (u *upstream) server(addr, prefix string) *http.Server {
	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()
	engine.Use(gin.Recovery())

	api := engine.Group(prefix)
	api.GET("/live", u.getLive)
	api.GET("/live-stream", u.getStream)
	api.POST("/mood", u.postMood)

	return &http.Server{Addr: addr, Handler: engine, ReadHeaderTimeout: 5 * time.Second}
}

// -----------------------------------------------------------------------------

func (u *upstream) getLive(c *gin.Context) {
	country := strings.ToUpper(c.Query("country"))
	u.mu.Lock()
	snapshot := u.snapshotLocked(country)
	u.mu.Unlock()
	c.JSON(http.StatusOK, snapshot)
}

// -----------------------------------------------------------------------------

var upgrader = websocket.Upgrader{CheckOrigin: func(r *http.Request) bool { return true }}

// getStream serves SSE, or websocket frames when the client asks to upgrade.
// Updates are global only; the fake does not filter by country.
func (u *upstream) getStream(c *gin.Context) {
	ch := make(chan []byte, 16)
	u.mu.Lock()
	u.subs[ch] = struct{}{}
	u.mu.Unlock()
	defer func() {
		u.mu.Lock()
		delete(u.subs, ch)
		u.mu.Unlock()
	}()

	if websocket.IsWebSocketUpgrade(c.Request) {
		u.serveWebSocket(c, ch)
		return
	}

	c.Header("Cache-Control", "no-cache")
	ctx := c.Request.Context()
	c.Stream(func(w io.Writer) bool {
		select {
		case <-ctx.Done():
			return false
		case body := <-ch:
			var upd update
			json.Unmarshal(body, &upd)
			c.Render(-1, sse.Event{Id: upd.ID, Event: "stats", Data: string(body)})
			return true
		}
	})
}

func (u *upstream) serveWebSocket(c *gin.Context, ch <-chan []byte) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		u.logger.Warning("Upgrade failed: %v", err)
		return
	}
	defer conn.Close()

	// Detect the client leaving.
	gone := make(chan struct{})
	go func() {
		defer close(gone)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	for {
		select {
		case <-gone:
			return
		case body := <-ch:
			frame, _ := json.Marshal(map[string]json.RawMessage{"event": json.RawMessage(`"stats"`), "data": body})
			if err := conn.WriteMessage(websocket.TextMessage, frame); err != nil {
				return
			}
		}
	}
}

// -----------------------------------------------------------------------------

func (u *upstream) postMood(c *gin.Context) {
	var req models.MSubmitMoodRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.MoodType == "" {
		c.JSON(http.StatusBadRequest, gin.H{"code": "invalid_request", "title": "Bad request", "detail": "moodType is required"})
		return
	}
	if !strings.HasPrefix(c.GetHeader("Authorization"), "Bearer ") {
		c.JSON(http.StatusUnauthorized, gin.H{"code": "unauthorized", "title": "Unauthorized", "detail": "a bearer token is required"})
		return
	}

	u.vote(strings.ToUpper(req.Country), strings.ToUpper(req.MoodType))
	c.JSON(http.StatusOK, models.MSubmitMoodResponse{
		Status:       "ok",
		ShareCardURL: "https://cards.example/" + strings.ToLower(ulid.Make().String()),
	})
}

// -----------------------------------------------------------------------------

// generate casts a random global vote every interval.
func (u *upstream) generate(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			u.vote("", moodCodes[rand.N(len(moodCodes))])
		}
	}
}

// vote counts one mood and publishes the global update.
func (u *upstream) vote(country, mood string) {
	u.mu.Lock()
	defer u.mu.Unlock()

	keys := []string{""}
	if country != "" {
		keys = append(keys, country)
	}
	for _, key := range keys {
		if u.counts[key] == nil {
			u.counts[key] = make(map[string]int64)
		}
		u.counts[key][mood]++
	}

	u.sent++
	body := u.last
	if u.dupEvery <= 0 || u.sent%u.dupEvery != 0 || body == nil {
		s := u.snapshotLocked("")
		body, _ = json.Marshal(update{ID: ulid.Make().String(), TotalCount: s.TotalCount, Top: s.Top, Totals: s.Totals})
		u.last = body
	}

	for ch := range u.subs {
		select {
		case ch <- body:
		default:
		}
	}
}

// snapshotLocked builds a full snapshot for country, "" meaning global.
func (u *upstream) snapshotLocked(country string) models.MSnapshot {
	counts := u.counts[country]
	snapshot := models.MSnapshot{
		Scope:  "GLOBAL",
		Date:   time.Now().UTC().Format("2006-01-02"),
		Top:    []string{},
		Totals: []models.MTotal{},
	}
	if country != "" {
		snapshot.Scope = "COUNTRY"
		snapshot.Country = &country
	}

	for _, mood := range moodCodes {
		snapshot.TotalCount += counts[mood]
	}
	for _, mood := range moodCodes {
		n := counts[mood]
		if n == 0 {
			continue
		}
		snapshot.Totals = append(snapshot.Totals, models.MTotal{
			MoodType: mood,
			Count:    n,
			Percent:  float64(n*1000/snapshot.TotalCount) / 10,
		})
	}
	sort.SliceStable(snapshot.Totals, func(i, j int) bool { return snapshot.Totals[i].Count > snapshot.Totals[j].Count })
	for _, t := range snapshot.Totals {
		if len(snapshot.Top) < 3 {
			snapshot.Top = append(snapshot.Top, t.MoodType)
		}
	}
	return snapshot
}
