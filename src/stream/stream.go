package stream

import (
	"net/http"

	"live-stats/src/config"
	"live-stats/src/helpers"
	"live-stats/src/interfaces"
	"live-stats/src/utils"
)

// NewSubscriber builds the transport named by stream.transport.
// "none" yields a nil subscriber, which leaves the manager polling.
func NewSubscriber(cfg *config.Config, client *http.Client) (interfaces.IStreamSubscriber, error) {
	headers := map[string]string{
		"User-Agent":      cfg.Network.UserAgent,
		"Accept-Language": utils.BuildAcceptLanguage(cfg.API.Locale),
	}

	switch cfg.Stream.Transport {
	case "sse":
		return NewSSESubscriber(client, cfg.HandshakeTimeout(), headers), nil
	case "websocket":
		return NewWebSocketSubscriber(client, cfg.HandshakeTimeout(), headers), nil
	case "mqtt":
		return NewMQTTSubscriber(cfg.Stream.MQTTBroker, cfg.Stream.MQTTTopicPrefix, cfg.Stream.MQTTClientID, cfg.HandshakeTimeout()), nil
	case "none":
		return nil, nil
	}
	return nil, &helpers.ConfigurationError{LiveStatsError: helpers.LiveStatsError{Message: "unknown stream transport: " + cfg.Stream.Transport}}
}
