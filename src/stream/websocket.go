package stream

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"live-stats/src/helpers"
	"live-stats/src/interfaces"
	"live-stats/src/models"

	"github.com/gorilla/websocket"
)

const (
	wsPongWait       = 60 * time.Second
	wsMaxMessageSize = 1024 * 1024
)

// -----------------------------------------------------------------------------

// WebSocketSubscriber reads one JSON payload per text frame.
type WebSocketSubscriber struct {
	Dialer  *websocket.Dialer
	Headers http.Header
}

// -----------------------------------------------------------------------------

// NewWebSocketSubscriber copies base's proxy settings into the dialer.
func NewWebSocketSubscriber(base *http.Client, handshakeTimeout time.Duration, headers map[string]string) *WebSocketSubscriber {
	dialer := *websocket.DefaultDialer
	dialer.HandshakeTimeout = handshakeTimeout
	if base != nil {
		if t, ok := base.Transport.(*http.Transport); ok && t.Proxy != nil {
			dialer.Proxy = t.Proxy
		}
	}

	h := http.Header{}
	for k, v := range headers {
		if v != "" {
			h.Set(k, v)
		}
	}
	return &WebSocketSubscriber{Dialer: &dialer, Headers: h}
}

func (s *WebSocketSubscriber) Name() string { return "websocket" }

// -----------------------------------------------------------------------------

func (s *WebSocketSubscriber) Subscribe(ctx context.Context, target string) (interfaces.IStream, error) {
	wsURL, err := toWebSocketURL(target)
	if err != nil {
		return nil, helpers.NewTransportError("invalid websocket url", err)
	}

	conn, resp, err := s.Dialer.DialContext(ctx, wsURL, s.Headers)
	if err != nil {
		if resp != nil && resp.StatusCode != http.StatusSwitchingProtocols {
			return nil, helpers.NewTransportError("websocket handshake rejected: "+resp.Status, err)
		}
		return nil, helpers.NewTransportError("websocket dial failed", err)
	}

	conn.SetReadLimit(wsMaxMessageSize)
	conn.SetReadDeadline(time.Now().Add(wsPongWait))
	conn.SetPingHandler(func(data string) error {
		conn.SetReadDeadline(time.Now().Add(wsPongWait))
		return conn.WriteControl(websocket.PongMessage, []byte(data), time.Now().Add(time.Second))
	})

	ws := &wsStream{conn: conn}
	ws.stop = context.AfterFunc(ctx, func() { ws.Close() })
	return ws, nil
}

// -----------------------------------------------------------------------------

func toWebSocketURL(target string) (string, error) {
	u, err := url.Parse(target)
	if err != nil {
		return "", err
	}
	switch strings.ToLower(u.Scheme) {
	case "http":
		u.Scheme = "ws"
	case "https":
		u.Scheme = "wss"
	}
	return u.String(), nil
}

// -----------------------------------------------------------------------------

type wsStream struct {
	conn *websocket.Conn
	stop func() bool
	once sync.Once
}

// Next skips binary frames. Any text frame read also extends the read deadline.
func (s *wsStream) Next() (models.MStreamMessage, error) {
	for {
		kind, data, err := s.conn.ReadMessage()
		if err != nil {
			return models.MStreamMessage{}, helpers.NewTransportError("websocket read failed", err)
		}
		s.conn.SetReadDeadline(time.Now().Add(wsPongWait))
		if kind != websocket.TextMessage {
			continue
		}
		return DecodeFrame(data), nil
	}
}

func (s *wsStream) Close() error {
	var err error
	s.once.Do(func() {
		if s.stop != nil {
			s.stop()
		}
		s.conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(time.Second))
		err = s.conn.Close()
	})
	return err
}

// -----------------------------------------------------------------------------

// DecodeFrame unwraps {"id", "event", "data"} envelopes. Other frames are the
// payload itself. data may be an embedded object or a JSON string.
func DecodeFrame(frame []byte) models.MStreamMessage {
	var env struct {
		ID    json.RawMessage `json:"id"`
		Event string          `json:"event"`
		Data  json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(frame, &env); err != nil || len(env.Data) == 0 || (env.Event == "" && len(env.ID) == 0) {
		return models.MStreamMessage{Data: frame}
	}

	msg := models.MStreamMessage{Event: env.Event, Data: env.Data}

	var s string
	if json.Unmarshal(env.Data, &s) == nil {
		msg.Data = []byte(s)
	}
	if len(env.ID) > 0 {
		var id string
		if json.Unmarshal(env.ID, &id) == nil {
			msg.ID = id
		} else {
			var n json.Number
			if json.Unmarshal(env.ID, &n) == nil {
				msg.ID = n.String()
			}
		}
	}
	return msg
}
