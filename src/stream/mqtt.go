package stream

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"sync"
	"time"

	"live-stats/src/helpers"
	"live-stats/src/interfaces"
	"live-stats/src/logger"
	"live-stats/src/models"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/oklog/ulid/v2"
)

const mqttBuffer = 256

// -----------------------------------------------------------------------------

// MQTTSubscriber receives updates from a broker topic per scope:
// <prefix>/GLOBAL or <prefix>/<country>.
type MQTTSubscriber struct {
	Broker           string
	TopicPrefix      string
	ClientID         string
	HandshakeTimeout time.Duration
	Logger           *logger.Logger
}

func NewMQTTSubscriber(broker, topicPrefix, clientID string, handshakeTimeout time.Duration) *MQTTSubscriber {
	return &MQTTSubscriber{
		Broker:           broker,
		TopicPrefix:      strings.TrimRight(topicPrefix, "/"),
		ClientID:         clientID,
		HandshakeTimeout: handshakeTimeout,
		Logger:           logger.NewLogger(nil, "MQTT"),
	}
}

func (s *MQTTSubscriber) Name() string { return "mqtt" }

// -----------------------------------------------------------------------------

// Topic maps the stream url's country filter to a broker topic.
func (s *MQTTSubscriber) Topic(target string) (string, error) {
	u, err := url.Parse(target)
	if err != nil {
		return "", err
	}
	scope := strings.ToUpper(strings.TrimSpace(u.Query().Get("country")))
	if scope == "" {
		scope = models.DefaultScope
	}
	return s.TopicPrefix + "/" + scope, nil
}

// -----------------------------------------------------------------------------

func (s *MQTTSubscriber) Subscribe(ctx context.Context, target string) (interfaces.IStream, error) {
	topic, err := s.Topic(target)
	if err != nil {
		return nil, helpers.NewTransportError("invalid stream target", err)
	}

	st := &mqttStream{
		topic: topic,
		msgs:  make(chan models.MStreamMessage, mqttBuffer),
		errs:  make(chan error, 1),
		done:  make(chan struct{}),
		log:   s.Logger,
	}

	clientID := s.ClientID
	if clientID == "" {
		clientID = "live-stats"
	}
	opts := mqtt.NewClientOptions()
	opts.AddBroker(s.Broker)
	opts.SetClientID(fmt.Sprintf("%s-%s", clientID, strings.ToLower(ulid.Make().String()[16:])))
	opts.SetCleanSession(true)
	opts.SetAutoReconnect(false)
	opts.SetConnectRetry(false)
	if s.HandshakeTimeout > 0 {
		opts.SetConnectTimeout(s.HandshakeTimeout)
	}
	if u, err := url.Parse(target); err == nil {
		if token := u.Query().Get("token"); token != "" {
			opts.SetUsername("token")
			opts.SetPassword(token)
		}
	}
	opts.OnConnectionLost = func(_ mqtt.Client, err error) {
		st.fail(helpers.NewTransportError("mqtt connection lost", err))
	}

	st.client = mqtt.NewClient(opts)
	if err := waitToken(ctx, st.client.Connect(), s.HandshakeTimeout); err != nil {
		st.client.Disconnect(0)
		return nil, helpers.NewTransportError("mqtt connect failed", err)
	}
	if err := waitToken(ctx, st.client.Subscribe(topic, 1, st.onMessage), s.HandshakeTimeout); err != nil {
		st.client.Disconnect(0)
		return nil, helpers.NewTransportError("mqtt subscribe failed", err)
	}

	st.stop = context.AfterFunc(ctx, func() { st.Close() })
	s.Logger.Debug("Subscribed to %s on %s", topic, s.Broker)
	return st, nil
}

// -----------------------------------------------------------------------------

func waitToken(ctx context.Context, token mqtt.Token, timeout time.Duration) error {
	var expired <-chan time.Time
	if timeout > 0 {
		t := time.NewTimer(timeout)
		defer t.Stop()
		expired = t.C
	}
	select {
	case <-token.Done():
		return token.Error()
	case <-ctx.Done():
		return ctx.Err()
	case <-expired:
		return fmt.Errorf("timed out after %s", timeout)
	}
}

// -----------------------------------------------------------------------------

// mqttStream has no transport id: packet ids are recycled by the broker and
// would collide in the duplicate window. Payload ids still apply.
type mqttStream struct {
	client mqtt.Client
	topic  string
	msgs   chan models.MStreamMessage
	errs   chan error
	done   chan struct{}
	stop   func() bool
	log    *logger.Logger

	once     sync.Once
	failOnce sync.Once
}

func (s *mqttStream) onMessage(_ mqtt.Client, m mqtt.Message) {
	msg := models.MStreamMessage{Data: append([]byte(nil), m.Payload()...)}
	select {
	case s.msgs <- msg:
	case <-s.done:
	default:
		s.log.Warning("Dropping MQTT message on %s: reader is behind", m.Topic())
	}
}

func (s *mqttStream) fail(err error) {
	s.failOnce.Do(func() { s.errs <- err })
}

// -----------------------------------------------------------------------------

func (s *mqttStream) Next() (models.MStreamMessage, error) {
	select {
	case msg := <-s.msgs:
		return msg, nil
	case err := <-s.errs:
		return models.MStreamMessage{}, err
	case <-s.done:
		return models.MStreamMessage{}, helpers.NewTransportError("mqtt stream closed", nil)
	}
}

func (s *mqttStream) Close() error {
	s.once.Do(func() {
		if s.stop != nil {
			s.stop()
		}
		close(s.done)
		// Disconnect waits up to 250ms for in-flight work; callers may hold locks.
		go func() {
			if s.client.IsConnected() {
				s.client.Unsubscribe(s.topic)
				s.client.Disconnect(250)
			}
		}()
	})
	return nil
}
