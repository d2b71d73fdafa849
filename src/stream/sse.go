package stream

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"live-stats/src/helpers"
	"live-stats/src/interfaces"
	"live-stats/src/logger"
	"live-stats/src/models"
	"live-stats/src/network"
)

const maxEventSize = 1 << 20

// -----------------------------------------------------------------------------

// SSESubscriber opens Server-Sent Events streams over a long-lived GET.
type SSESubscriber struct {
	Client           *http.Client
	HandshakeTimeout time.Duration
	Headers          map[string]string
	Logger           *logger.Logger
}

// -----------------------------------------------------------------------------

// NewSSESubscriber reuses base's transport (proxies, TLS) without its overall
// timeout, which would cut long-lived streams.
func NewSSESubscriber(base *http.Client, handshakeTimeout time.Duration, headers map[string]string) *SSESubscriber {
	client := &http.Client{}
	if base != nil {
		client.Transport = base.Transport
	}
	return &SSESubscriber{
		Client:           client,
		HandshakeTimeout: handshakeTimeout,
		Headers:          headers,
		Logger:           logger.NewLogger(nil, "SSE"),
	}
}

func (s *SSESubscriber) Name() string { return "sse" }

// -----------------------------------------------------------------------------

func (s *SSESubscriber) Subscribe(ctx context.Context, target string) (interfaces.IStream, error) {
	streamCtx, cancel := context.WithCancel(ctx)

	req, err := http.NewRequestWithContext(streamCtx, http.MethodGet, target, nil)
	if err != nil {
		cancel()
		return nil, helpers.NewTransportError("failed to build stream request", err)
	}
	req.Header.Set("Accept", "text/event-stream")
	req.Header.Set("Cache-Control", "no-cache")
	for k, v := range s.Headers {
		if v != "" {
			req.Header.Set(k, v)
		}
	}

	var handshake *time.Timer
	if s.HandshakeTimeout > 0 {
		handshake = time.AfterFunc(s.HandshakeTimeout, cancel)
	}

	resp, err := s.Client.Do(req)
	if handshake != nil && !handshake.Stop() {
		if resp != nil {
			resp.Body.Close()
		}
		cancel()
		return nil, helpers.NewTransportError(fmt.Sprintf("stream handshake timed out after %s", s.HandshakeTimeout), context.DeadlineExceeded)
	}
	if err != nil {
		cancel()
		return nil, helpers.NewTransportError("stream connect failed", err)
	}

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		resp.Body.Close()
		cancel()
		return nil, helpers.NewTransportError("stream rejected", network.ParseAPIError(resp.StatusCode, body))
	}

	s.Logger.Debug("SSE stream open: %s", resp.Header.Get("Content-Type"))
	return &sseStream{
		body:   resp.Body,
		reader: NewEventReader(resp.Body),
		cancel: cancel,
	}, nil
}

// -----------------------------------------------------------------------------

type sseStream struct {
	body   io.Closer
	reader *EventReader
	cancel context.CancelFunc
	once   sync.Once
}

func (s *sseStream) Next() (models.MStreamMessage, error) {
	return s.reader.Next()
}

func (s *sseStream) Close() error {
	var err error
	s.once.Do(func() {
		s.cancel()
		err = s.body.Close()
	})
	return err
}

// -----------------------------------------------------------------------------
// EventReader parses the text/event-stream format
// -----------------------------------------------------------------------------

// EventReader yields one message per dispatched event. Comment lines and
// events without data are skipped. The id applies to its own event only.
type EventReader struct {
	r *bufio.Reader
}

func NewEventReader(r io.Reader) *EventReader {
	return &EventReader{r: bufio.NewReaderSize(r, 4096)}
}

// -----------------------------------------------------------------------------

// Next returns io.EOF once the stream ends, dropping a trailing partial event.
func (e *EventReader) Next() (models.MStreamMessage, error) {
	var (
		msg  models.MStreamMessage
		data strings.Builder
		has  bool
	)

	for {
		line, err := e.readLine()
		if err != nil {
			var decodeErr *helpers.DecodeError
			switch {
			case errors.Is(err, io.EOF):
				return models.MStreamMessage{}, io.EOF
			case errors.As(err, &decodeErr):
				return models.MStreamMessage{}, err
			}
			return models.MStreamMessage{}, helpers.NewTransportError("stream read failed", err)
		}

		if line == "" {
			if has {
				msg.Data = []byte(data.String())
				return msg, nil
			}
			msg = models.MStreamMessage{}
			continue
		}
		if strings.HasPrefix(line, ":") {
			continue
		}

		field, value, _ := strings.Cut(line, ":")
		value = strings.TrimPrefix(value, " ")

		switch field {
		case "event":
			msg.Event = value
		case "id":
			msg.ID = value
		case "data":
			if has {
				data.WriteByte('\n')
			}
			data.WriteString(value)
			has = true
			if data.Len() > maxEventSize {
				return models.MStreamMessage{}, helpers.NewDecodeError("stream event too large", nil)
			}
		}
	}
}

// -----------------------------------------------------------------------------

func (e *EventReader) readLine() (string, error) {
	var buf []byte
	for {
		chunk, err := e.r.ReadSlice('\n')
		if len(buf)+len(chunk) > maxEventSize {
			return "", helpers.NewDecodeError("stream line too long", nil)
		}
		buf = append(buf, chunk...)
		if err == bufio.ErrBufferFull {
			continue
		}
		if err != nil {
			// An unterminated last line is never dispatched.
			return "", err
		}
		break
	}
	line := strings.TrimSuffix(string(buf), "\n")
	line = strings.TrimSuffix(line, "\r")
	return line, nil
}
