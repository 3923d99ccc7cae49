package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the root configuration for the Scanpoint daemon. Values come
// from a YAML file, with selected keys overridable through the environment.
type Config struct {
	Site      SiteConfig      `yaml:"site"`
	Roster    RosterConfig    `yaml:"roster"`
	Database  DatabaseConfig  `yaml:"database"`
	MQTT      MQTTConfig      `yaml:"mqtt"`
	API       APIConfig       `yaml:"api"`
	WebSocket WebSocketConfig `yaml:"websocket"`
	InfluxDB  InfluxDBConfig  `yaml:"influxdb"`
	Logging   LoggingConfig   `yaml:"logging"`
	Security  SecurityConfig  `yaml:"security"`
	Session   SessionConfig   `yaml:"session"`
	Terminals TerminalsConfig `yaml:"terminals"`
}

// SiteConfig identifies the installation.
type SiteConfig struct {
	ID       string `yaml:"id"`
	Name     string `yaml:"name"`
	Location string `yaml:"location"`
	Timezone string `yaml:"timezone"`
}

// RosterConfig selects where the verification allow-list comes from.
type RosterConfig struct {
	// Source is one of "inline", "file" or "sqlite".
	Source string `yaml:"source"`

	// File is the YAML roster path, used when source is "file".
	File string `yaml:"file"`

	// Entries maps access codes to permitted identifiers, used when
	// source is "inline". Suits small fixed installations and tests.
	Entries map[string][]string `yaml:"entries"`
}

// DatabaseConfig holds SQLite settings, used when the roster lives in SQLite.
type DatabaseConfig struct {
	Path        string `yaml:"path"`
	WALMode     bool   `yaml:"wal_mode"`
	BusyTimeout int    `yaml:"busy_timeout"`
}

// MQTTConfig describes the broker the terminal bridge attaches to.
type MQTTConfig struct {
	Broker    MQTTBrokerConfig    `yaml:"broker"`
	Auth      MQTTAuthConfig      `yaml:"auth"`
	QoS       int                 `yaml:"qos"`
	Reconnect MQTTReconnectConfig `yaml:"reconnect"`
}

// MQTTBrokerConfig is the broker endpoint and client identity.
type MQTTBrokerConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	TLS      bool   `yaml:"tls"`
	ClientID string `yaml:"client_id"`
}

// MQTTAuthConfig holds broker credentials, usually fed in via the environment.
type MQTTAuthConfig struct {
	Username string `yaml:"username"`
	Password string `yaml:"password"`
}

// MQTTReconnectConfig tunes the broker reconnect backoff, in seconds.
type MQTTReconnectConfig struct {
	InitialDelay int `yaml:"initial_delay"`
	MaxDelay     int `yaml:"max_delay"`
	MaxAttempts  int `yaml:"max_attempts"`
}

// APIConfig is the admin HTTP listener.
type APIConfig struct {
	Host     string           `yaml:"host"`
	Port     int              `yaml:"port"`
	TLS      TLSConfig        `yaml:"tls"`
	Timeouts APITimeoutConfig `yaml:"timeouts"`
	CORS     CORSConfig       `yaml:"cors"`
}

// TLSConfig points at the certificate pair for the admin listener.
type TLSConfig struct {
	Enabled  bool   `yaml:"enabled"`
	CertFile string `yaml:"cert_file"`
	KeyFile  string `yaml:"key_file"`
}

// APITimeoutConfig holds HTTP server timeouts, in seconds.
type APITimeoutConfig struct {
	Read  int `yaml:"read"`
	Write int `yaml:"write"`
	Idle  int `yaml:"idle"`
}

// CORSConfig restricts which browser origins may call the admin API.
type CORSConfig struct {
	AllowedOrigins []string `yaml:"allowed_origins"`
	AllowedMethods []string `yaml:"allowed_methods"`
	AllowedHeaders []string `yaml:"allowed_headers"`
}

// WebSocketConfig tunes the live observation socket.
type WebSocketConfig struct {
	Path           string `yaml:"path"`
	MaxMessageSize int    `yaml:"max_message_size"`
	PingInterval   int    `yaml:"ping_interval"`
	PongTimeout    int    `yaml:"pong_timeout"`
}

// InfluxDBConfig enables the optional telemetry sink.
type InfluxDBConfig struct {
	Enabled       bool   `yaml:"enabled"`
	URL           string `yaml:"url"`
	Token         string `yaml:"token"`
	Org           string `yaml:"org"`
	Bucket        string `yaml:"bucket"`
	BatchSize     int    `yaml:"batch_size"`
	FlushInterval int    `yaml:"flush_interval"`
}

// LoggingConfig selects log level, encoding and destination.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Output string `yaml:"output"`
}

// SecurityConfig groups the token and operator credential settings.
type SecurityConfig struct {
	JWT   JWTConfig   `yaml:"jwt"`
	Admin AdminConfig `yaml:"admin"`
}

// JWTConfig signs admin API access tokens.
type JWTConfig struct {
	Secret         string `yaml:"secret"`
	AccessTokenTTL int    `yaml:"access_token_ttl"`
}

// AdminConfig is the operator credential for the admin API. The password
// is stored as an Argon2id PHC hash, never in plaintext.
type AdminConfig struct {
	Username     string `yaml:"username"`
	PasswordHash string `yaml:"password_hash"`
}

// SessionConfig tunes scan session behaviour.
type SessionConfig struct {
	// DecodeTimeoutSeconds bounds a still-image decode. Default 5.
	DecodeTimeoutSeconds int `yaml:"decode_timeout_seconds"`

	// IdleTimeoutSeconds is how long an untouched session survives
	// before the sweeper removes it. Default 1800.
	IdleTimeoutSeconds int `yaml:"idle_timeout_seconds"`
}

// TerminalsConfig tunes the terminal registry.
type TerminalsConfig struct {
	// StaleAfterSeconds is how long a silent terminal stays marked
	// online. Default 90 (three missed 30-second status beats).
	StaleAfterSeconds int `yaml:"stale_after_seconds"`
}

// Roster source names accepted by RosterConfig.Source.
const (
	RosterSourceInline = "inline"
	RosterSourceFile   = "file"
	RosterSourceSQLite = "sqlite"
)

// Load builds the configuration from three layers, later layers winning:
// built-in defaults, then the YAML file at path, then SCANPOINT_* environment
// variables (see applyEnvOverrides for the recognised keys). The result is
// validated before being returned.
func Load(path string) (*Config, error) {
	cfg := defaultConfig()

	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}
	if err := yaml.Unmarshal(raw, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}
	return cfg, nil
}

// defaultConfig returns a Config with sensible defaults.
func defaultConfig() *Config {
	return &Config{
		Site: SiteConfig{
			ID:       "checkpoint-001",
			Name:     "Scanpoint",
			Timezone: "UTC",
		},
		Roster: RosterConfig{
			Source: RosterSourceInline,
		},
		Database: DatabaseConfig{
			Path:        "./data/scanpoint.db",
			WALMode:     true,
			BusyTimeout: 5,
		},
		MQTT: MQTTConfig{
			Broker: MQTTBrokerConfig{
				Host:     "localhost",
				Port:     1883,
				ClientID: "scanpoint-core",
			},
			QoS: 1,
			Reconnect: MQTTReconnectConfig{
				InitialDelay: 1,
				MaxDelay:     60,
				MaxAttempts:  0,
			},
		},
		API: APIConfig{
			Host: "0.0.0.0",
			Port: 8080,
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
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Output: "stdout",
		},
		Security: SecurityConfig{
			JWT: JWTConfig{
				AccessTokenTTL: 15,
			},
		},
		Session: SessionConfig{
			DecodeTimeoutSeconds: 5,
			IdleTimeoutSeconds:   1800,
		},
		Terminals: TerminalsConfig{
			StaleAfterSeconds: 90,
		},
	}
}

// applyEnvOverrides copies SCANPOINT_* environment variables over the loaded
// values. Only string keys are overridable this way; secrets in particular
// should come from the environment rather than the YAML file.
func applyEnvOverrides(cfg *Config) {
	overrides := map[string]*string{
		"SCANPOINT_ROSTER_SOURCE":       &cfg.Roster.Source,
		"SCANPOINT_ROSTER_FILE":         &cfg.Roster.File,
		"SCANPOINT_DATABASE_PATH":       &cfg.Database.Path,
		"SCANPOINT_MQTT_HOST":           &cfg.MQTT.Broker.Host,
		"SCANPOINT_MQTT_USERNAME":       &cfg.MQTT.Auth.Username,
		"SCANPOINT_MQTT_PASSWORD":       &cfg.MQTT.Auth.Password,
		"SCANPOINT_API_HOST":            &cfg.API.Host,
		"SCANPOINT_INFLUXDB_TOKEN":      &cfg.InfluxDB.Token,
		"SCANPOINT_JWT_SECRET":          &cfg.Security.JWT.Secret,
		"SCANPOINT_ADMIN_USERNAME":      &cfg.Security.Admin.Username,
		"SCANPOINT_ADMIN_PASSWORD_HASH": &cfg.Security.Admin.PasswordHash,
	}
	for key, dst := range overrides {
		if v := os.Getenv(key); v != "" {
			*dst = v
		}
	}
}

// Validate checks the configuration for mistakes that would otherwise
// surface as confusing runtime failures. All problems are reported at once.
func (c *Config) Validate() error {
	var errs []string

	if c.Site.ID == "" {
		errs = append(errs, "site.id must be set")
	}

	switch c.Roster.Source {
	case RosterSourceInline, RosterSourceFile, RosterSourceSQLite:
	default:
		errs = append(errs, fmt.Sprintf("roster.source must be %q, %q or %q",
			RosterSourceInline, RosterSourceFile, RosterSourceSQLite))
	}
	if c.Roster.Source == RosterSourceFile && c.Roster.File == "" {
		errs = append(errs, "roster.file is required when roster.source is \"file\"")
	}
	if c.Roster.Source == RosterSourceSQLite && c.Database.Path == "" {
		errs = append(errs, "database.path is required when roster.source is \"sqlite\"")
	}

	if c.MQTT.QoS < 0 || c.MQTT.QoS > 2 {
		errs = append(errs, "mqtt.qos must be 0, 1 or 2")
	}

	if c.API.Port < 1 || c.API.Port > 65535 {
		errs = append(errs, "api.port must be a valid TCP port")
	}

	// The JWT secret has no default. The admin API can force re-scans and
	// clear the verified identity; a forged token must not be able to do that.
	const minJWTSecretLength = 32
	if c.Security.JWT.Secret == "" {
		errs = append(errs, "security.jwt.secret is required (set SCANPOINT_JWT_SECRET)")
	} else if len(c.Security.JWT.Secret) < minJWTSecretLength {
		errs = append(errs, fmt.Sprintf("security.jwt.secret must be at least %d characters", minJWTSecretLength))
	}

	if c.Security.Admin.Username == "" {
		errs = append(errs, "security.admin.username must be set")
	}
	if c.Security.Admin.PasswordHash == "" {
		errs = append(errs, "security.admin.password_hash is required (set SCANPOINT_ADMIN_PASSWORD_HASH)")
	}

	if c.Session.DecodeTimeoutSeconds < 1 {
		errs = append(errs, "session.decode_timeout_seconds must be at least 1")
	}
	if c.Session.IdleTimeoutSeconds < 1 {
		errs = append(errs, "session.idle_timeout_seconds must be at least 1")
	}

	if len(errs) > 0 {
		return fmt.Errorf("invalid configuration: %s", strings.Join(errs, "; "))
	}
	return nil
}

// GetReadTimeout returns the API read timeout as a Duration.
func (c *Config) GetReadTimeout() time.Duration {
	return time.Duration(c.API.Timeouts.Read) * time.Second
}

// GetWriteTimeout returns the API write timeout as a Duration.
func (c *Config) GetWriteTimeout() time.Duration {
	return time.Duration(c.API.Timeouts.Write) * time.Second
}

// GetIdleTimeout returns the API idle timeout as a Duration.
func (c *Config) GetIdleTimeout() time.Duration {
	return time.Duration(c.API.Timeouts.Idle) * time.Second
}

// GetDecodeTimeout returns the still-image decode timeout as a Duration.
func (c *Config) GetDecodeTimeout() time.Duration {
	return time.Duration(c.Session.DecodeTimeoutSeconds) * time.Second
}

// GetSessionIdleTimeout returns the idle-session lifetime as a Duration.
func (c *Config) GetSessionIdleTimeout() time.Duration {
	return time.Duration(c.Session.IdleTimeoutSeconds) * time.Second
}

// GetTerminalStaleAfter returns the terminal staleness window as a Duration.
func (c *Config) GetTerminalStaleAfter() time.Duration {
	return time.Duration(c.Terminals.StaleAfterSeconds) * time.Second
}
