package config

// Config holds all application configuration.
// It organizes settings into logical groups for better maintainability.
type Config struct {
	Server   ServerConfig   `mapstructure:"server"   validate:"required"`
	Database DatabaseConfig `mapstructure:"database" validate:"required"`
	Auth     AuthConfig     `mapstructure:"auth"     validate:"required"`
	Chat     ChatConfig     `mapstructure:"chat"     validate:"required"`
}

// ServerConfig contains all server-related configuration settings.
type ServerConfig struct {
	Port     int    `mapstructure:"port"      validate:"required,gt=0,lt=65536"`
	LogLevel string `mapstructure:"log_level" validate:"required,oneof=debug info warn error"`
}

// DatabaseConfig contains all database-related configuration settings.
type DatabaseConfig struct {
	URL string `mapstructure:"url" validate:"required"`
}

// AuthConfig contains the settings for verifying bearer credentials.
// Token issuance is handled by the external identity service; this service
// only verifies tokens, so the secret must match the issuer's.
type AuthConfig struct {
	JWTSecret string `mapstructure:"jwt_secret" validate:"required,min=32"`
}

// ChatConfig contains the settings for the realtime chat subsystem.
type ChatConfig struct {
	// HistoryPageSize is the default number of messages returned by a
	// history fetch when the client does not specify one.
	HistoryPageSize int `mapstructure:"history_page_size" validate:"required,gt=0,lte=200"`

	// FanoutWorkers is the number of goroutines draining the notification
	// fan-out queue.
	FanoutWorkers int `mapstructure:"fanout_workers" validate:"required,gt=0"`

	// FanoutQueueSize is the capacity of the fan-out queue. Submissions
	// beyond capacity are dropped (fan-out is best-effort).
	FanoutQueueSize int `mapstructure:"fanout_queue_size" validate:"required,gt=0"`

	// WriteTimeoutSeconds bounds a single websocket write to a client.
	WriteTimeoutSeconds int `mapstructure:"write_timeout_seconds" validate:"required,gt=0"`
}
