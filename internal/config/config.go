package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// PortKind identifies one of the three listener sockets.
type PortKind string

const (
	PortImage     PortKind = "tcp"
	PortStatus    PortKind = "udp"
	PortDiscovery PortKind = "discovery"
)

// Config holds application configuration loaded from environment.
type Config struct {
	Network struct {
		BindHost      string
		TCPPort       int
		UDPPort       int
		DiscoveryPort int
		RetryBackoff  time.Duration
	}
	Images struct {
		StoragePath   string
		ReadTimeout   time.Duration
		MaxBytes      int64
		RetentionDays int
	}
	Alerts struct {
		RetentionDays int
		Triggers      string
	}
	Security struct {
		PIN                string
		Armed              bool
		GracePeriodSeconds int
	}
	Notification struct {
		QueueSize  int
		MaxWorkers int
		Cooldown   time.Duration
	}
	Events struct {
		QueueSize int
	}
	Kafka struct {
		Broker string
		Topic  string
	}
	Telegram struct {
		BotToken  string
		ChatID    int64
		RateLimit int
	}
	MQTT struct {
		Broker      string
		ClientID    string
		TopicPrefix string
	}
	DB struct {
		DSN string
	}
	API struct {
		Port     string
		BasePath string
	}
	Logging struct {
		Dir   string
		Level string
	}
}

// Port returns the configured port for a listener kind.
func (c Config) Port(kind PortKind) int {
	switch kind {
	case PortImage:
		return c.Network.TCPPort
	case PortStatus:
		return c.Network.UDPPort
	case PortDiscovery:
		return c.Network.DiscoveryPort
	default:
		return 0
	}
}

// GracePeriod is the countdown length as a duration.
func (c Config) GracePeriod() time.Duration {
	return time.Duration(c.Security.GracePeriodSeconds) * time.Second
}

// AlertRetention is the alert log age cutoff.
func (c Config) AlertRetention() time.Duration {
	return time.Duration(c.Alerts.RetentionDays) * 24 * time.Hour
}

// ImageRetention is the stored image age cutoff.
func (c Config) ImageRetention() time.Duration {
	return time.Duration(c.Images.RetentionDays) * 24 * time.Hour
}

// Load reads environment variables, applies defaults, and returns a Config.
func Load() (Config, error) {
	// Load .env if present
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		return Config{}, fmt.Errorf("failed to load .env file: %w", err)
	}
	return FromEnv()
}

// FromEnv builds a Config from the current environment only.
func FromEnv() (Config, error) {
	var cfg Config
	p := &parser{}

	// Network listeners
	cfg.Network.BindHost = os.Getenv("NETWORK_BIND_HOST")
	cfg.Network.TCPPort = p.int("NETWORK_TCP_PORT", 8080)
	cfg.Network.UDPPort = p.int("NETWORK_UDP_PORT", 8081)
	cfg.Network.DiscoveryPort = p.int("NETWORK_DISCOVERY_PORT", 8082)
	cfg.Network.RetryBackoff = p.duration("NETWORK_RETRY_BACKOFF", time.Second)

	// Image transfer
	cfg.Images.StoragePath = os.Getenv("IMAGE_STORAGE_PATH")
	cfg.Images.ReadTimeout = p.duration("IMAGE_READ_TIMEOUT", 30*time.Second)
	cfg.Images.MaxBytes = int64(p.int("IMAGE_MAX_BYTES", 10<<20))
	cfg.Images.RetentionDays = p.int("IMAGE_RETENTION_DAYS", 14)

	// Alerts and alarm policy
	cfg.Alerts.RetentionDays = p.int("ALERT_RETENTION_DAYS", 30)
	cfg.Alerts.Triggers = os.Getenv("ALARM_TRIGGERS")

	// Security
	cfg.Security.PIN = os.Getenv("SECURITY_PIN")
	cfg.Security.Armed = p.bool("SYSTEM_ARMED", false)
	cfg.Security.GracePeriodSeconds = p.int("GRACE_PERIOD_SECONDS", 30)

	// Escalation worker settings
	cfg.Notification.QueueSize = p.int("NOTIFY_QUEUE_SIZE", 100)
	cfg.Notification.MaxWorkers = p.int("NOTIFY_MAX_WORKERS", 2)
	cfg.Notification.Cooldown = p.duration("NOTIFY_COOLDOWN", 60*time.Second)
	cfg.Events.QueueSize = p.int("EVENTS_QUEUE_SIZE", 256)

	// Providers and sinks
	cfg.Kafka.Broker = os.Getenv("KAFKA_BROKER")
	cfg.Kafka.Topic = os.Getenv("KAFKA_TOPIC")
	cfg.Telegram.BotToken = os.Getenv("TELEGRAM_BOT_TOKEN")
	cfg.Telegram.ChatID = int64(p.int("TELEGRAM_CHAT_ID", 0))
	cfg.Telegram.RateLimit = p.int("TELEGRAM_RATE_LIMIT", 1)
	cfg.MQTT.Broker = os.Getenv("MQTT_BROKER")
	cfg.MQTT.ClientID = os.Getenv("MQTT_CLIENT_ID")
	cfg.MQTT.TopicPrefix = os.Getenv("MQTT_TOPIC_PREFIX")
	cfg.DB.DSN = os.Getenv("DB_DSN")

	// API settings
	cfg.API.Port = os.Getenv("API_PORT")
	cfg.API.BasePath = os.Getenv("API_BASE_PATH")

	cfg.Logging.Dir = os.Getenv("LOG_DIR")
	cfg.Logging.Level = os.Getenv("LOG_LEVEL")

	// Apply defaults
	if cfg.Network.BindHost == "" {
		cfg.Network.BindHost = "0.0.0.0"
	}
	if cfg.Images.StoragePath == "" {
		cfg.Images.StoragePath = "captures"
	}
	if cfg.Alerts.Triggers == "" {
		cfg.Alerts.Triggers = "motion=DETECTED,door=OPEN,window=OPEN"
	}
	if cfg.Security.PIN == "" {
		cfg.Security.PIN = "1234"
	}
	if cfg.Kafka.Topic == "" {
		cfg.Kafka.Topic = "security_alarm"
	}
	if cfg.MQTT.ClientID == "" {
		cfg.MQTT.ClientID = "security-hub"
	}
	if cfg.MQTT.TopicPrefix == "" {
		cfg.MQTT.TopicPrefix = "security"
	}
	if cfg.API.Port == "" {
		cfg.API.Port = ":9191"
	}
	if cfg.API.BasePath == "" {
		cfg.API.BasePath = "/api/v0"
	}
	if cfg.Logging.Dir == "" {
		cfg.Logging.Dir = "logs"
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}

	// Validate
	for _, port := range []struct {
		key   string
		value int
	}{
		{"NETWORK_TCP_PORT", cfg.Network.TCPPort},
		{"NETWORK_UDP_PORT", cfg.Network.UDPPort},
		{"NETWORK_DISCOVERY_PORT", cfg.Network.DiscoveryPort},
	} {
		if port.value < 0 || port.value > 65535 {
			p.fail(port.key)
		}
	}
	if len(cfg.Security.PIN) < 4 {
		p.fail("SECURITY_PIN")
	}
	if cfg.Security.GracePeriodSeconds < 0 {
		p.fail("GRACE_PERIOD_SECONDS")
	}
	if cfg.Images.MaxBytes <= 0 {
		p.fail("IMAGE_MAX_BYTES")
	}
	if cfg.Notification.MaxWorkers <= 0 {
		p.fail("NOTIFY_MAX_WORKERS")
	}
	if len(p.invalid) > 0 {
		return Config{}, fmt.Errorf("invalid configuration values: %s", strings.Join(p.invalid, ", "))
	}

	return cfg, nil
}

// parser collects the keys whose values could not be parsed.
type parser struct {
	invalid []string
}

func (p *parser) fail(key string) {
	p.invalid = append(p.invalid, key)
}

func (p *parser) int(key string, def int) int {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		p.fail(key)
		return def
	}
	return v
}

func (p *parser) bool(key string, def bool) bool {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		p.fail(key)
		return def
	}
	return v
}

func (p *parser) duration(key string, def time.Duration) time.Duration {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def
	}
	v, err := time.ParseDuration(raw)
	if err != nil {
		p.fail(key)
		return def
	}
	return v
}
