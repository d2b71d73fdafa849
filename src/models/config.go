package models

// MConfig Structure
type MConfig struct {
	Name       string            `yaml:"name"`
	Host       string            `yaml:"host"`
	Port       int               `yaml:"port"`
	LogLevel   string            `yaml:"log_level"`
	LogFormat  string            `yaml:"log_format"` // "text" (default) or "json"
	API        MAPIConfig        `yaml:"api"`
	Stream     MStreamConfig     `yaml:"stream"`
	Auth       MAuthConfig       `yaml:"auth"`
	Storage    MStorageConfig    `yaml:"storage"`
	Network    MNetworkConfig    `yaml:"network"`
	Render     MRenderConfig     `yaml:"render"`
	Visibility MVisibilityConfig `yaml:"visibility"`
}

type MAPIConfig struct {
	BaseURL        string `yaml:"base_url"`
	LivePath       string `yaml:"live_path"`
	StreamPath     string `yaml:"stream_path"`
	MoodPath       string `yaml:"mood_path"`
	Locale         string `yaml:"locale"`
	DefaultCountry string `yaml:"default_country"`
}

type MStreamConfig struct {
	Transport                 string `yaml:"transport"` // sse, websocket, mqtt or none
	PollIntervalSeconds       int    `yaml:"poll_interval_seconds"`
	HiddenPollIntervalSeconds int    `yaml:"hidden_poll_interval_seconds"`
	HandshakeTimeoutSeconds   int    `yaml:"handshake_timeout_seconds"`
	MQTTBroker                string `yaml:"mqtt_broker"`
	MQTTTopicPrefix           string `yaml:"mqtt_topic_prefix"`
	MQTTClientID              string `yaml:"mqtt_client_id"`
}

type MAuthConfig struct {
	Token     string `yaml:"token"`
	TokenFile string `yaml:"token_file"`
}

type MStorageConfig struct {
	DBType             string `yaml:"db_type"`
	DBPath             string `yaml:"db_path"`
	DBConnectionString string `yaml:"db_connection_string"`
}

type MNetworkConfig struct {
	Proxies        []string `yaml:"proxies"`
	RequestTimeout int      `yaml:"timeout"`
	MaxRetries     int      `yaml:"retries"`
	UserAgent      string   `yaml:"user_agent"`
}

type MRenderConfig struct {
	Terminal bool `yaml:"terminal"`
}

type MVisibilityConfig struct {
	// FollowClients treats "no renderer attached to /ws" as background.
	FollowClients bool `yaml:"follow_clients"`
}
