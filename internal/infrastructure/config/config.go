package config

import (
	"fmt"
	"net"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config is the root configuration structure for the DMX core.
// All configuration is loaded from YAML and can be overridden by environment variables.
type Config struct {
	Site        SiteConfig        `yaml:"site"`
	Playback    PlaybackConfig    `yaml:"playback"`
	Diagnostics DiagnosticsConfig `yaml:"diagnostics"`
	Network     NetworkConfig     `yaml:"network"`
	Database    DatabaseConfig    `yaml:"database"`
	MQTT        MQTTConfig        `yaml:"mqtt"`
	API         APIConfig         `yaml:"api"`
	WebSocket   WebSocketConfig   `yaml:"websocket"`
	InfluxDB    InfluxDBConfig    `yaml:"influxdb"`
	Logging     LoggingConfig     `yaml:"logging"`
	Security    SecurityConfig    `yaml:"security"`
}

// SiteConfig contains site-specific information.
type SiteConfig struct {
	ID   string `yaml:"id"`
	Name string `yaml:"name"`
}

// PlaybackConfig contains show playback settings.
type PlaybackConfig struct {
	// Loop sets the initial loop flag of the scheduler.
	Loop bool `yaml:"loop"`

	// ShowFile is an optional JSON show sequence loaded at startup.
	ShowFile string `yaml:"show_file"`

	// Autoplay starts playback immediately after ShowFile is loaded.
	Autoplay bool `yaml:"autoplay"`
}

// DiagnosticsConfig contains link health aggregation settings.
type DiagnosticsConfig struct {
	// TickInterval is the stats roll-up period in seconds. Default: 1
	TickInterval int `yaml:"tick_interval"`

	// HistoryLimit caps the in-memory error history. Default: 100
	HistoryLimit int `yaml:"history_limit"`

	// PersistErrors writes every recorded network error to SQLite.
	PersistErrors bool `yaml:"persist_errors"`
}

// NetworkConfig contains the protocol relay adapter settings.
type NetworkConfig struct {
	// Enabled connects the ingestion adapter to the relay on startup.
	Enabled bool `yaml:"enabled"`

	// ReconnectInterval is the fixed delay between reconnect attempts in milliseconds.
	// Default: 1000
	ReconnectInterval int `yaml:"reconnect_interval"`

	// Priority is the protocol priority carried on outbound data. Default: 100
	Priority int `yaml:"priority"`

	// PingInterval is how often the relay round-trip latency is probed, in seconds.
	// 0 disables probing. Default: 5
	PingInterval int `yaml:"ping_interval"`

	// HealthInterval is how often adapter health is published, in seconds. Default: 30
	HealthInterval int `yaml:"health_interval"`

	Multicast MulticastConfig `yaml:"multicast"`
}

// MulticastConfig mirrors the relay's multicast socket settings.
type MulticastConfig struct {
	Address       string `yaml:"address"`
	Port          int    `yaml:"port"`
	TTL           int    `yaml:"ttl"`
	SourceAddress string `yaml:"source_address"`
}

// DatabaseConfig contains SQLite database settings.
type DatabaseConfig struct {
	Path        string `yaml:"path"`
	WALMode     bool   `yaml:"wal_mode"`
	BusyTimeout int    `yaml:"busy_timeout"`
}

// MQTTConfig contains MQTT broker connection settings.
type MQTTConfig struct {
	Broker MQTTBrokerConfig `yaml:"broker"`
	Auth   MQTTAuthConfig   `yaml:"auth"`
	QoS    int              `yaml:"qos"`
}

// MQTTBrokerConfig contains MQTT broker connection details.
type MQTTBrokerConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	TLS      bool   `yaml:"tls"`
	ClientID string `yaml:"client_id"`
}

// MQTTAuthConfig contains MQTT authentication credentials.
type MQTTAuthConfig struct {
	Username string `yaml:"username"`
	Password string `yaml:"password"`
}

// APIConfig contains HTTP API server settings.
type APIConfig struct {
	Enabled  bool             `yaml:"enabled"`
	Host     string           `yaml:"host"`
	Port     int              `yaml:"port"`
	TLS      TLSConfig        `yaml:"tls"`
	Timeouts APITimeoutConfig `yaml:"timeouts"`
	CORS     CORSConfig       `yaml:"cors"`
}

// TLSConfig contains TLS certificate settings.
type TLSConfig struct {
	Enabled  bool   `yaml:"enabled"`
	CertFile string `yaml:"cert_file"`
	KeyFile  string `yaml:"key_file"`
}

// APITimeoutConfig contains HTTP timeout settings.
type APITimeoutConfig struct {
	Read  int `yaml:"read"`
	Write int `yaml:"write"`
	Idle  int `yaml:"idle"`
}

// CORSConfig contains Cross-Origin Resource Sharing settings.
type CORSConfig struct {
	AllowedOrigins []string `yaml:"allowed_origins"`
	AllowedMethods []string `yaml:"allowed_methods"`
	AllowedHeaders []string `yaml:"allowed_headers"`
}

// WebSocketConfig contains WebSocket server settings.
type WebSocketConfig struct {
	Path           string `yaml:"path"`
	MaxMessageSize int    `yaml:"max_message_size"`
	PingInterval   int    `yaml:"ping_interval"`
	PongTimeout    int    `yaml:"pong_timeout"`
}

// InfluxDBConfig contains InfluxDB connection settings.
type InfluxDBConfig struct {
	Enabled       bool   `yaml:"enabled"`
	URL           string `yaml:"url"`
	Token         string `yaml:"token"`
	Org           string `yaml:"org"`
	Bucket        string `yaml:"bucket"`
	BatchSize     int    `yaml:"batch_size"`
	FlushInterval int    `yaml:"flush_interval"`
}

// LoggingConfig contains logging settings.
type LoggingConfig struct {
	Level  string            `yaml:"level"`
	Format string            `yaml:"format"`
	Output string            `yaml:"output"`
	File   FileLoggingConfig `yaml:"file"`
}

// FileLoggingConfig contains file-based logging settings.
type FileLoggingConfig struct {
	Path       string `yaml:"path"`
	MaxSize    int    `yaml:"max_size"`
	MaxBackups int    `yaml:"max_backups"`
	MaxAge     int    `yaml:"max_age"`
	Compress   bool   `yaml:"compress"`
}

// SecurityConfig contains security settings.
type SecurityConfig struct {
	JWT JWTConfig `yaml:"jwt"`
}

// JWTConfig contains JWT bearer token settings for mutating API routes.
type JWTConfig struct {
	Enabled bool   `yaml:"enabled"`
	Secret  string `yaml:"secret"`
	Issuer  string `yaml:"issuer"`
}

// Load reads configuration from a YAML file and applies environment variable overrides.
//
// The configuration loading order is:
//  1. Default values (hardcoded)
//  2. YAML file values (override defaults)
//  3. .env file next to the working directory, if present
//  4. Environment variables (override file values)
//
// Environment variables follow the pattern: GRAYLOGIC_SECTION_KEY
// For example: GRAYLOGIC_DATABASE_PATH, GRAYLOGIC_API_PORT
//
// Parameters:
//   - path: Path to the YAML configuration file
//
// Returns:
//   - *Config: Loaded and validated configuration
//   - error: If file cannot be read, parsed, or validation fails
func Load(path string) (*Config, error) {
	cfg, err := Parse(path)
	if err != nil {
		return nil, err
	}

	// Missing .env is normal outside development.
	_ = godotenv.Load()

	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

// Parse reads the YAML file over the defaults without applying environment
// overrides or validation.
func Parse(path string) (*Config, error) {
	cfg := defaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	return cfg, nil
}

// Default returns the built-in configuration. Useful for tests and for
// running without a config file.
func Default() *Config {
	return defaultConfig()
}

// defaultConfig returns a Config with sensible defaults.
func defaultConfig() *Config {
	return &Config{
		Site: SiteConfig{
			ID:   "site-001",
			Name: "Gray Logic DMX",
		},
		Diagnostics: DiagnosticsConfig{
			TickInterval: 1,
			HistoryLimit: 100,
		},
		Network: NetworkConfig{
			Enabled:           true,
			ReconnectInterval: 1000,
			Priority:          100,
			PingInterval:      5,
			HealthInterval:    30,
			Multicast: MulticastConfig{
				Address:       "239.255.0.1",
				Port:          5568,
				TTL:           128,
				SourceAddress: "0.0.0.0",
			},
		},
		Database: DatabaseConfig{
			Path:        "./data/graylogic-dmx.db",
			WALMode:     true,
			BusyTimeout: 5,
		},
		MQTT: MQTTConfig{
			Broker: MQTTBrokerConfig{
				Host:     "localhost",
				Port:     1883,
				ClientID: "graylogic-dmx",
			},
			QoS: 0,
		},
		API: APIConfig{
			Enabled: true,
			Host:    "0.0.0.0",
			Port:    8090,
			Timeouts: APITimeoutConfig{
				Read:  30,
				Write: 30,
				Idle:  60,
			},
		},
		WebSocket: WebSocketConfig{
			Path:           "/ws",
			MaxMessageSize: 8192,
			PingInterval:   30,
			PongTimeout:    10,
		},
		InfluxDB: InfluxDBConfig{
			BatchSize:     500,
			FlushInterval: 1,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Output: "stdout",
			File: FileLoggingConfig{
				MaxSize:    50,
				MaxBackups: 5,
				MaxAge:     28,
			},
		},
		Security: SecurityConfig{
			JWT: JWTConfig{
				Issuer: "graylogic-dmx",
			},
		},
	}
}

// applyEnvOverrides applies environment variable overrides to the configuration.
// Environment variables follow the pattern: GRAYLOGIC_SECTION_KEY
func applyEnvOverrides(cfg *Config) {
	// Database
	if v := os.Getenv("GRAYLOGIC_DATABASE_PATH"); v != "" {
		cfg.Database.Path = v
	}

	// MQTT
	if v := os.Getenv("GRAYLOGIC_MQTT_HOST"); v != "" {
		cfg.MQTT.Broker.Host = v
	}
	if v := os.Getenv("GRAYLOGIC_MQTT_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.MQTT.Broker.Port = port
		}
	}
	if v := os.Getenv("GRAYLOGIC_MQTT_USERNAME"); v != "" {
		cfg.MQTT.Auth.Username = v
	}
	if v := os.Getenv("GRAYLOGIC_MQTT_PASSWORD"); v != "" {
		cfg.MQTT.Auth.Password = v
	}

	// Multicast
	if v := os.Getenv("GRAYLOGIC_MULTICAST_ADDRESS"); v != "" {
		cfg.Network.Multicast.Address = v
	}
	if v := os.Getenv("GRAYLOGIC_MULTICAST_SOURCE"); v != "" {
		cfg.Network.Multicast.SourceAddress = v
	}

	// API
	if v := os.Getenv("GRAYLOGIC_API_HOST"); v != "" {
		cfg.API.Host = v
	}
	if v := os.Getenv("GRAYLOGIC_API_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.API.Port = port
		}
	}

	// InfluxDB
	if v := os.Getenv("GRAYLOGIC_INFLUXDB_TOKEN"); v != "" {
		cfg.InfluxDB.Token = v
	}

	// Security - JWT secret
	if v := os.Getenv("GRAYLOGIC_JWT_SECRET"); v != "" {
		cfg.Security.JWT.Secret = v
	}
}

// Validate checks the configuration for errors and security issues.
//
// Returns:
//   - error: Description of validation failure, or nil if valid
func (c *Config) Validate() error {
	var errs []string

	if c.Site.ID == "" {
		errs = append(errs, "site.id is required")
	}

	if c.Diagnostics.TickInterval < 1 {
		errs = append(errs, "diagnostics.tick_interval must be at least 1 second")
	}
	if c.Diagnostics.HistoryLimit < 5 {
		errs = append(errs, "diagnostics.history_limit must be at least 5")
	}
	if c.Diagnostics.PersistErrors && c.Database.Path == "" {
		errs = append(errs, "database.path is required when diagnostics.persist_errors is set")
	}

	if c.Network.ReconnectInterval < 1 {
		errs = append(errs, "network.reconnect_interval must be positive")
	}
	if c.Network.Priority < 0 || c.Network.Priority > 200 {
		errs = append(errs, "network.priority must be between 0 and 200")
	}
	errs = append(errs, c.Network.Multicast.validate("network.multicast")...)

	if c.MQTT.QoS < 0 || c.MQTT.QoS > 2 {
		errs = append(errs, "mqtt.qos must be 0, 1, or 2")
	}

	if c.API.Enabled && (c.API.Port < 1 || c.API.Port > 65535) {
		errs = append(errs, "api.port must be between 1 and 65535")
	}

	if c.InfluxDB.Enabled && c.InfluxDB.URL == "" {
		errs = append(errs, "influxdb.url is required when influxdb is enabled")
	}

	if c.Logging.Output == "file" && c.Logging.File.Path == "" {
		errs = append(errs, "logging.file.path is required when logging.output is file")
	}

	// Lighting rigs are physical safety equipment; a forgeable token would
	// let anyone drive the channels.
	const minJWTSecretLength = 32
	if c.Security.JWT.Enabled {
		if c.Security.JWT.Secret == "" {
			errs = append(errs, "security.jwt.secret is required (set GRAYLOGIC_JWT_SECRET environment variable)")
		} else if len(c.Security.JWT.Secret) < minJWTSecretLength {
			errs = append(errs, "security.jwt.secret must be at least 32 characters for adequate security")
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration errors: %s", strings.Join(errs, "; "))
	}

	return nil
}

// Reread parses the file again and applies environment overrides, skipping
// whole-config validation. The config watcher uses it to pick up edits to
// the multicast block.
func Reread(path string) (*Config, error) {
	cfg, err := Parse(path)
	if err != nil {
		return nil, err
	}
	applyEnvOverrides(cfg)
	return cfg, nil
}

// Validate checks the multicast settings on their own.
func (m MulticastConfig) Validate() error {
	if errs := m.validate("network.multicast"); len(errs) > 0 {
		return fmt.Errorf("configuration errors: %s", strings.Join(errs, "; "))
	}
	return nil
}

func (m MulticastConfig) validate(prefix string) []string {
	var errs []string
	if ip := net.ParseIP(m.Address); ip == nil || !ip.IsMulticast() {
		errs = append(errs, prefix+".address must be a multicast IP address")
	}
	if m.Port < 1 || m.Port > 65535 {
		errs = append(errs, prefix+".port must be between 1 and 65535")
	}
	if m.TTL < 1 || m.TTL > 255 {
		errs = append(errs, prefix+".ttl must be between 1 and 255")
	}
	if net.ParseIP(m.SourceAddress) == nil {
		errs = append(errs, prefix+".source_address must be an IP address")
	}
	return errs
}

// ReadTimeout returns the read timeout as a Duration.
func (t APITimeoutConfig) ReadTimeout() time.Duration {
	return time.Duration(t.Read) * time.Second
}

// WriteTimeout returns the write timeout as a Duration.
func (t APITimeoutConfig) WriteTimeout() time.Duration {
	return time.Duration(t.Write) * time.Second
}

// IdleTimeout returns the keep-alive idle timeout as a Duration.
func (t APITimeoutConfig) IdleTimeout() time.Duration {
	return time.Duration(t.Idle) * time.Second
}

// ReconnectDelay returns the fixed relay retry interval.
func (n NetworkConfig) ReconnectDelay() time.Duration {
	return time.Duration(n.ReconnectInterval) * time.Millisecond
}

// TickPeriod returns the diagnostics roll-up period.
func (d DiagnosticsConfig) TickPeriod() time.Duration {
	return time.Duration(d.TickInterval) * time.Second
}
