package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// DefaultJWTSecret is the development secret shipped in config.toml; production refuses it
const DefaultJWTSecret = "change-me-in-production"

// Config holds all application configuration
type Config struct {
	App          AppConfig
	Database     DatabaseConfig
	Redis        RedisConfig
	JWT          JWTConfig
	Log          LogConfig
	Event        EventConfig
	Kafka        KafkaConfig
	HTTP         HTTPConfig
	Storage      StorageConfig
	Scheduler    SchedulerConfig
	Swagger      SwaggerConfig
	Telemetry    TelemetryConfig
	Hashing      HashingConfig
	Verification VerificationConfig
	Features     FeaturesConfig
}

// LogConfig holds logging configuration
type LogConfig struct {
	Level  string // debug, info, warn, error
	Format string // json, console
	Output string // stdout, stderr, or file path
}

// AppConfig holds application-specific settings
type AppConfig struct {
	Name string
	Env  string
	Port string
}

// IsProduction reports whether the app runs with production safeguards
func (a AppConfig) IsProduction() bool {
	return a.Env == "production"
}

// DatabaseConfig holds database connection settings
type DatabaseConfig struct {
	Driver          string // postgres, sqlite
	Host            string
	Port            int
	User            string
	Password        string
	DBName          string
	SSLMode         string
	SQLitePath      string // file path or ":memory:"
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime int // in minutes
	ConnMaxIdleTime int // in minutes
}

// IsSQLite reports whether the sqlite driver is selected
func (d *DatabaseConfig) IsSQLite() bool {
	return d.Driver == "sqlite"
}

// RedisConfig holds Redis connection settings
type RedisConfig struct {
	Enabled  bool
	Host     string
	Port     int
	Password string
	DB       int
}

// Addr returns host:port
func (r RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", r.Host, r.Port)
}

// JWTConfig holds JWT settings
type JWTConfig struct {
	Secret                 string
	AccessTokenExpiration  time.Duration
	RefreshTokenExpiration time.Duration
	Issuer                 string
	RefreshSecret          string
	MaxRefreshCount        int
}

// EventConfig holds event processing configuration
type EventConfig struct {
	OutboxEnabled    bool
	ProcessorEnabled bool
	BatchSize        int
	PollInterval     time.Duration
	MaxRetries       int
	CleanupEnabled   bool
	CleanupRetention time.Duration
}

// KafkaConfig holds the outbound event sink settings
type KafkaConfig struct {
	Brokers      []string
	Topic        string
	BatchTimeout time.Duration
	WriteTimeout time.Duration
}

// HTTPConfig holds HTTP server configuration
type HTTPConfig struct {
	ReadTimeout           time.Duration
	WriteTimeout          time.Duration
	IdleTimeout           time.Duration
	MaxHeaderBytes        int
	MaxBodySize           int64
	RateLimitEnabled      bool
	RateLimitRequests     int
	RateLimitWindow       time.Duration
	AuthRateLimitEnabled  bool          // Stricter rate limiting for auth and recovery endpoints
	AuthRateLimitRequests int           // Max auth attempts (default: 5)
	AuthRateLimitWindow   time.Duration // Auth rate limit window (default: 1 minute)
	CORSAllowOrigins      []string
	CORSAllowMethods      []string
	CORSAllowHeaders      []string
	TrustedProxies        []string
}

// StorageConfig holds S3-compatible object storage settings for journal exports
type StorageConfig struct {
	Enabled      bool
	Bucket       string
	Region       string
	Endpoint     string // custom endpoint for MinIO and friends
	AccessKey    string
	SecretKey    string
	UsePathStyle bool
	Prefix       string

	// PresignExpiration bounds download links handed out for finished exports
	PresignExpiration time.Duration
}

// SchedulerConfig holds cron job configuration
type SchedulerConfig struct {
	Enabled    bool
	JobTimeout time.Duration
	Jobs       JobsConfig
}

// JobsConfig holds the cron spec of every scheduled job; an empty spec disables the job
type JobsConfig struct {
	OutboxCleanup string
	StashSweep    string
	JournalExport string
}

// SwaggerConfig holds Swagger documentation endpoint configuration
type SwaggerConfig struct {
	Enabled     bool     // Whether to enable Swagger endpoint
	RequireAuth bool     // Require authentication to access Swagger
	AllowedIPs  []string // IP whitelist (empty = allow all)
}

// TelemetryConfig holds OpenTelemetry configuration
type TelemetryConfig struct {
	Enabled           bool    // Whether to enable OpenTelemetry
	CollectorEndpoint string  // OTEL Collector endpoint (e.g., "localhost:4317")
	SamplingRatio     float64 // Sampling ratio (0.0-1.0, 1.0 = 100%)
	ServiceName       string  // Service name for traces
	Insecure          bool    // Use insecure (non-TLS) connection (development only)
	// Database tracing options
	DBTraceEnabled    bool
	DBLogFullSQL      bool
	DBSlowQueryThresh time.Duration
	// Continuous profiling
	ProfilingEnabled  bool
	PyroscopeEndpoint string
}

// HashingConfig selects the default password KDF and its costs
type HashingConfig struct {
	Algorithm         string // argon2id, argon2i, scrypt, pbkdf2-sha256, bcrypt
	Argon2Memory      uint32 // KiB
	Argon2Iterations  uint32
	Argon2Parallelism uint8
	ScryptLogN        int
	ScryptR           int
	ScryptP           int
	PBKDF2Iterations  int
	BcryptCost        int
}

// VerificationConfig holds email verification and recovery settings
type VerificationConfig struct {
	CodeTTL     time.Duration
	RecoveryTTL time.Duration
	MailFrom    string
	BaseURL     string // link target embedded in verification mails

	// SMTP delivery; an empty host logs mails instead of sending them
	SMTPHost     string
	SMTPPort     int
	SMTPUsername string
	SMTPPassword string
}

// FeaturesConfig holds static feature switches
type FeaturesConfig struct {
	RegistrationEnabled     bool
	TestingVerificationCode bool // use the literal code "verification_code" (tests only)
	KafkaOutbound           bool
}

// Load loads configuration from TOML file and environment variables
// Priority (highest to lowest):
// 1. Environment variables with NEURONEK_ prefix (e.g., NEURONEK_DATABASE_PASSWORD)
// 2. .env file in the working directory
// 3. config.toml
// 4. Built-in defaults
func Load() (*Config, error) {
	// .env only fills variables that are not already set in the process
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("error reading .env file: %w", err)
	}

	v := viper.New()

	v.SetConfigName("config")
	v.SetConfigType("toml")
	v.AddConfigPath(".")
	v.AddConfigPath("./backend")
	v.AddConfigPath("/app")

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	return loadFrom(v)
}

func loadFrom(v *viper.Viper) (*Config, error) {
	v.SetEnvPrefix("NEURONEK")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setBoolDefaults(v)

	cfg := &Config{
		App: AppConfig{
			Name: v.GetString("app.name"),
			Env:  v.GetString("app.env"),
			Port: v.GetString("app.port"),
		},
		Database: DatabaseConfig{
			Driver:          v.GetString("database.driver"),
			Host:            v.GetString("database.host"),
			Port:            v.GetInt("database.port"),
			User:            v.GetString("database.user"),
			Password:        v.GetString("database.password"),
			DBName:          v.GetString("database.dbname"),
			SSLMode:         v.GetString("database.sslmode"),
			SQLitePath:      v.GetString("database.sqlite_path"),
			MaxOpenConns:    v.GetInt("database.max_open_conns"),
			MaxIdleConns:    v.GetInt("database.max_idle_conns"),
			ConnMaxLifetime: v.GetInt("database.conn_max_lifetime"),
			ConnMaxIdleTime: v.GetInt("database.conn_max_idle_time"),
		},
		Redis: RedisConfig{
			Enabled:  v.GetBool("redis.enabled"),
			Host:     v.GetString("redis.host"),
			Port:     v.GetInt("redis.port"),
			Password: v.GetString("redis.password"),
			DB:       v.GetInt("redis.db"),
		},
		JWT: JWTConfig{
			Secret:                 v.GetString("jwt.secret"),
			AccessTokenExpiration:  v.GetDuration("jwt.access_token_expiration"),
			RefreshTokenExpiration: v.GetDuration("jwt.refresh_token_expiration"),
			Issuer:                 v.GetString("jwt.issuer"),
			RefreshSecret:          v.GetString("jwt.refresh_secret"),
			MaxRefreshCount:        v.GetInt("jwt.max_refresh_count"),
		},
		Log: LogConfig{
			Level:  v.GetString("log.level"),
			Format: v.GetString("log.format"),
			Output: v.GetString("log.output"),
		},
		Event: EventConfig{
			OutboxEnabled:    v.GetBool("event.outbox_enabled"),
			ProcessorEnabled: v.GetBool("event.processor_enabled"),
			BatchSize:        v.GetInt("event.batch_size"),
			PollInterval:     v.GetDuration("event.poll_interval"),
			MaxRetries:       v.GetInt("event.max_retries"),
			CleanupEnabled:   v.GetBool("event.cleanup_enabled"),
			CleanupRetention: v.GetDuration("event.cleanup_retention"),
		},
		Kafka: KafkaConfig{
			Brokers:      v.GetStringSlice("kafka.brokers"),
			Topic:        v.GetString("kafka.topic"),
			BatchTimeout: v.GetDuration("kafka.batch_timeout"),
			WriteTimeout: v.GetDuration("kafka.write_timeout"),
		},
		HTTP: HTTPConfig{
			ReadTimeout:           v.GetDuration("http.read_timeout"),
			WriteTimeout:          v.GetDuration("http.write_timeout"),
			IdleTimeout:           v.GetDuration("http.idle_timeout"),
			MaxHeaderBytes:        v.GetInt("http.max_header_bytes"),
			MaxBodySize:           v.GetInt64("http.max_body_size"),
			RateLimitEnabled:      v.GetBool("http.rate_limit_enabled"),
			RateLimitRequests:     v.GetInt("http.rate_limit_requests"),
			RateLimitWindow:       v.GetDuration("http.rate_limit_window"),
			AuthRateLimitEnabled:  v.GetBool("http.auth_rate_limit_enabled"),
			AuthRateLimitRequests: v.GetInt("http.auth_rate_limit_requests"),
			AuthRateLimitWindow:   v.GetDuration("http.auth_rate_limit_window"),
			CORSAllowOrigins:      v.GetStringSlice("http.cors_allow_origins"),
			CORSAllowMethods:      v.GetStringSlice("http.cors_allow_methods"),
			CORSAllowHeaders:      v.GetStringSlice("http.cors_allow_headers"),
			TrustedProxies:        v.GetStringSlice("http.trusted_proxies"),
		},
		Storage: StorageConfig{
			Enabled:      v.GetBool("storage.enabled"),
			Bucket:       v.GetString("storage.bucket"),
			Region:       v.GetString("storage.region"),
			Endpoint:     v.GetString("storage.endpoint"),
			AccessKey:    v.GetString("storage.access_key"),
			SecretKey:    v.GetString("storage.secret_key"),
			UsePathStyle: v.GetBool("storage.use_path_style"),
			Prefix:       v.GetString("storage.prefix"),

			PresignExpiration: v.GetDuration("storage.presign_expiration"),
		},
		Scheduler: SchedulerConfig{
			Enabled:    v.GetBool("scheduler.enabled"),
			JobTimeout: v.GetDuration("scheduler.job_timeout"),
			Jobs: JobsConfig{
				OutboxCleanup: v.GetString("scheduler.jobs.outbox_cleanup"),
				StashSweep:    v.GetString("scheduler.jobs.stash_sweep"),
				JournalExport: v.GetString("scheduler.jobs.journal_export"),
			},
		},
		Swagger: SwaggerConfig{
			Enabled:     v.GetBool("swagger.enabled"),
			RequireAuth: v.GetBool("swagger.require_auth"),
			AllowedIPs:  v.GetStringSlice("swagger.allowed_ips"),
		},
		Telemetry: TelemetryConfig{
			Enabled:           v.GetBool("telemetry.enabled"),
			CollectorEndpoint: v.GetString("telemetry.collector_endpoint"),
			SamplingRatio:     v.GetFloat64("telemetry.sampling_ratio"),
			ServiceName:       v.GetString("telemetry.service_name"),
			Insecure:          v.GetBool("telemetry.insecure"),
			DBTraceEnabled:    v.GetBool("telemetry.db_trace_enabled"),
			DBLogFullSQL:      v.GetBool("telemetry.db_log_full_sql"),
			DBSlowQueryThresh: v.GetDuration("telemetry.db_slow_query_threshold"),
			ProfilingEnabled:  v.GetBool("telemetry.profiling_enabled"),
			PyroscopeEndpoint: v.GetString("telemetry.pyroscope_endpoint"),
		},
		Hashing: HashingConfig{
			Algorithm:         v.GetString("hashing.algorithm"),
			Argon2Memory:      v.GetUint32("hashing.argon2_memory"),
			Argon2Iterations:  v.GetUint32("hashing.argon2_iterations"),
			Argon2Parallelism: uint8(v.GetUint("hashing.argon2_parallelism")),
			ScryptLogN:        v.GetInt("hashing.scrypt_log_n"),
			ScryptR:           v.GetInt("hashing.scrypt_r"),
			ScryptP:           v.GetInt("hashing.scrypt_p"),
			PBKDF2Iterations:  v.GetInt("hashing.pbkdf2_iterations"),
			BcryptCost:        v.GetInt("hashing.bcrypt_cost"),
		},
		Verification: VerificationConfig{
			CodeTTL:     v.GetDuration("verification.code_ttl"),
			RecoveryTTL: v.GetDuration("verification.recovery_ttl"),
			MailFrom:    v.GetString("verification.mail_from"),
			BaseURL:     v.GetString("verification.base_url"),

			SMTPHost:     v.GetString("verification.smtp_host"),
			SMTPPort:     v.GetInt("verification.smtp_port"),
			SMTPUsername: v.GetString("verification.smtp_username"),
			SMTPPassword: v.GetString("verification.smtp_password"),
		},
		Features: FeaturesConfig{
			RegistrationEnabled:     v.GetBool("features.registration_enabled"),
			TestingVerificationCode: v.GetBool("features.testing_verification_code"),
			KafkaOutbound:           v.GetBool("features.kafka_outbound"),
		},
	}

	applyDefaults(cfg)

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// setBoolDefaults registers defaults for switches that are on unless turned off
func setBoolDefaults(v *viper.Viper) {
	v.SetDefault("redis.enabled", true)
	v.SetDefault("event.outbox_enabled", true)
	v.SetDefault("event.processor_enabled", true)
	v.SetDefault("event.cleanup_enabled", true)
	v.SetDefault("scheduler.enabled", true)
	v.SetDefault("swagger.enabled", true)
	v.SetDefault("features.registration_enabled", true)
}

// applyDefaults sets default values for any empty config fields
func applyDefaults(cfg *Config) {
	if cfg.App.Name == "" {
		cfg.App.Name = "neuronek"
	}
	if cfg.App.Env == "" {
		cfg.App.Env = "development"
	}
	if cfg.App.Port == "" {
		cfg.App.Port = "8080"
	}
	if cfg.Database.Driver == "" {
		cfg.Database.Driver = "postgres"
	}
	if cfg.Database.Host == "" {
		cfg.Database.Host = "localhost"
	}
	if cfg.Database.Port == 0 {
		cfg.Database.Port = 5432
	}
	if cfg.Database.User == "" {
		cfg.Database.User = "postgres"
	}
	if cfg.Database.DBName == "" {
		cfg.Database.DBName = "neuronek"
	}
	if cfg.Database.SSLMode == "" {
		cfg.Database.SSLMode = "disable"
	}
	if cfg.Database.SQLitePath == "" {
		cfg.Database.SQLitePath = "neuronek.db"
	}
	if cfg.Database.MaxOpenConns == 0 {
		cfg.Database.MaxOpenConns = 25
	}
	if cfg.Database.MaxIdleConns == 0 {
		cfg.Database.MaxIdleConns = 5
	}
	if cfg.Database.ConnMaxLifetime == 0 {
		cfg.Database.ConnMaxLifetime = 60
	}
	if cfg.Database.ConnMaxIdleTime == 0 {
		cfg.Database.ConnMaxIdleTime = 30
	}
	if cfg.Redis.Host == "" {
		cfg.Redis.Host = "localhost"
	}
	if cfg.Redis.Port == 0 {
		cfg.Redis.Port = 6379
	}
	if cfg.JWT.Secret == "" && !cfg.App.IsProduction() {
		cfg.JWT.Secret = DefaultJWTSecret
	}
	if cfg.JWT.AccessTokenExpiration == 0 {
		cfg.JWT.AccessTokenExpiration = 15 * time.Minute
	}
	if cfg.JWT.RefreshTokenExpiration == 0 {
		cfg.JWT.RefreshTokenExpiration = 168 * time.Hour
	}
	if cfg.JWT.Issuer == "" {
		cfg.JWT.Issuer = "neuronek"
	}
	if cfg.JWT.MaxRefreshCount == 0 {
		cfg.JWT.MaxRefreshCount = 10
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "console"
	}
	if cfg.Log.Output == "" {
		cfg.Log.Output = "stdout"
	}
	if cfg.Event.BatchSize == 0 {
		cfg.Event.BatchSize = 100
	}
	if cfg.Event.PollInterval == 0 {
		cfg.Event.PollInterval = 5 * time.Second
	}
	if cfg.Event.MaxRetries == 0 {
		cfg.Event.MaxRetries = 5
	}
	if cfg.Event.CleanupRetention == 0 {
		cfg.Event.CleanupRetention = 168 * time.Hour
	}
	if len(cfg.Kafka.Brokers) == 0 {
		cfg.Kafka.Brokers = []string{"localhost:9092"}
	}
	if cfg.Kafka.Topic == "" {
		cfg.Kafka.Topic = "neuronek.events"
	}
	if cfg.Kafka.BatchTimeout == 0 {
		cfg.Kafka.BatchTimeout = 50 * time.Millisecond
	}
	if cfg.Kafka.WriteTimeout == 0 {
		cfg.Kafka.WriteTimeout = 10 * time.Second
	}
	if cfg.HTTP.ReadTimeout == 0 {
		cfg.HTTP.ReadTimeout = 15 * time.Second
	}
	if cfg.HTTP.WriteTimeout == 0 {
		cfg.HTTP.WriteTimeout = 15 * time.Second
	}
	if cfg.HTTP.IdleTimeout == 0 {
		cfg.HTTP.IdleTimeout = 60 * time.Second
	}
	if cfg.HTTP.MaxHeaderBytes == 0 {
		cfg.HTTP.MaxHeaderBytes = 1 << 20 // 1MB
	}
	if cfg.HTTP.MaxBodySize == 0 {
		cfg.HTTP.MaxBodySize = 1 << 20 // 1MB
	}
	if cfg.HTTP.RateLimitRequests == 0 {
		cfg.HTTP.RateLimitRequests = 100
	}
	if cfg.HTTP.RateLimitWindow == 0 {
		cfg.HTTP.RateLimitWindow = time.Minute
	}
	if cfg.HTTP.AuthRateLimitRequests == 0 {
		cfg.HTTP.AuthRateLimitRequests = 5
	}
	if cfg.HTTP.AuthRateLimitWindow == 0 {
		cfg.HTTP.AuthRateLimitWindow = time.Minute
	}
	// No CORS origin fallback: an empty list denies cross-origin requests.
	if len(cfg.HTTP.CORSAllowMethods) == 0 {
		cfg.HTTP.CORSAllowMethods = []string{"GET", "POST", "PUT", "DELETE", "PATCH", "OPTIONS"}
	}
	if len(cfg.HTTP.CORSAllowHeaders) == 0 {
		cfg.HTTP.CORSAllowHeaders = []string{"Content-Type", "Authorization", "X-Request-ID", "Idempotency-Key"}
	}
	if cfg.Storage.Region == "" {
		cfg.Storage.Region = "us-east-1"
	}
	if cfg.Storage.Prefix == "" {
		cfg.Storage.Prefix = "exports"
	}
	if cfg.Storage.PresignExpiration == 0 {
		cfg.Storage.PresignExpiration = 15 * time.Minute
	}
	if cfg.Scheduler.JobTimeout == 0 {
		cfg.Scheduler.JobTimeout = 30 * time.Minute
	}
	if cfg.Scheduler.Jobs.OutboxCleanup == "" {
		cfg.Scheduler.Jobs.OutboxCleanup = "@hourly"
	}
	if cfg.Scheduler.Jobs.StashSweep == "" {
		cfg.Scheduler.Jobs.StashSweep = "0 3 * * *"
	}
	if cfg.Scheduler.Jobs.JournalExport == "" {
		cfg.Scheduler.Jobs.JournalExport = "30 2 * * *"
	}
	if cfg.Telemetry.CollectorEndpoint == "" {
		cfg.Telemetry.CollectorEndpoint = "localhost:4317"
	}
	if cfg.Telemetry.SamplingRatio == 0 {
		cfg.Telemetry.SamplingRatio = 1.0
	}
	if cfg.Telemetry.ServiceName == "" {
		cfg.Telemetry.ServiceName = "neuronek"
	}
	if cfg.Telemetry.DBSlowQueryThresh == 0 {
		cfg.Telemetry.DBSlowQueryThresh = 200 * time.Millisecond
	}
	if cfg.Telemetry.PyroscopeEndpoint == "" {
		cfg.Telemetry.PyroscopeEndpoint = "http://localhost:4040"
	}
	if cfg.Hashing.Algorithm == "" {
		cfg.Hashing.Algorithm = "argon2id"
	}
	if cfg.Hashing.Argon2Memory == 0 {
		cfg.Hashing.Argon2Memory = 64 * 1024
	}
	if cfg.Hashing.Argon2Iterations == 0 {
		cfg.Hashing.Argon2Iterations = 3
	}
	if cfg.Hashing.Argon2Parallelism == 0 {
		cfg.Hashing.Argon2Parallelism = 4
	}
	if cfg.Hashing.ScryptLogN == 0 {
		cfg.Hashing.ScryptLogN = 15
	}
	if cfg.Hashing.ScryptR == 0 {
		cfg.Hashing.ScryptR = 8
	}
	if cfg.Hashing.ScryptP == 0 {
		cfg.Hashing.ScryptP = 1
	}
	if cfg.Hashing.PBKDF2Iterations == 0 {
		cfg.Hashing.PBKDF2Iterations = 600000
	}
	if cfg.Hashing.BcryptCost == 0 {
		cfg.Hashing.BcryptCost = 12
	}
	if cfg.Verification.CodeTTL == 0 {
		cfg.Verification.CodeTTL = 15 * time.Minute
	}
	if cfg.Verification.RecoveryTTL == 0 {
		cfg.Verification.RecoveryTTL = 15 * time.Minute
	}
	if cfg.Verification.MailFrom == "" {
		cfg.Verification.MailFrom = "no-reply@neuronek.local"
	}
	if cfg.Verification.SMTPHost != "" && cfg.Verification.SMTPPort == 0 {
		cfg.Verification.SMTPPort = 587
	}
}

// validate performs validation on the configuration
func (c *Config) validate() error {
	switch c.Database.Driver {
	case "postgres", "sqlite":
	default:
		return fmt.Errorf("database.driver must be postgres or sqlite, got %q", c.Database.Driver)
	}
	if c.Database.MaxOpenConns <= 0 {
		return fmt.Errorf("database.max_open_conns must be positive")
	}
	if c.Database.MaxIdleConns < 0 {
		return fmt.Errorf("database.max_idle_conns cannot be negative")
	}
	if c.Database.MaxIdleConns > c.Database.MaxOpenConns {
		return fmt.Errorf("database.max_idle_conns (%d) cannot exceed database.max_open_conns (%d)",
			c.Database.MaxIdleConns, c.Database.MaxOpenConns)
	}

	if c.App.IsProduction() {
		if c.JWT.Secret == "" || c.JWT.Secret == DefaultJWTSecret {
			return fmt.Errorf("jwt.secret must be set to a non-default value in production")
		}
		if len(c.JWT.Secret) < 32 {
			return fmt.Errorf("jwt.secret must be at least 32 characters in production")
		}
		if c.Database.IsSQLite() {
			return fmt.Errorf("database.driver cannot be sqlite in production")
		}
		if c.Database.Password == "" {
			return fmt.Errorf("database.password is required in production")
		}
		if c.Database.SSLMode == "disable" {
			return fmt.Errorf("database.sslmode cannot be 'disable' in production")
		}
		for _, origin := range c.HTTP.CORSAllowOrigins {
			if origin == "*" {
				return fmt.Errorf("cors_allow_origins cannot be '*' in production (use specific origins)")
			}
		}
		if c.Swagger.Enabled && !c.Swagger.RequireAuth && len(c.Swagger.AllowedIPs) == 0 {
			return fmt.Errorf("swagger endpoint must be disabled, require authentication, or have IP restriction in production")
		}
		if c.Telemetry.DBLogFullSQL {
			return fmt.Errorf("telemetry.db_log_full_sql must be false in production")
		}
		if c.Features.TestingVerificationCode {
			return fmt.Errorf("features.testing_verification_code cannot be enabled in production")
		}
	}

	if c.Telemetry.SamplingRatio < 0.0 || c.Telemetry.SamplingRatio > 1.0 {
		return fmt.Errorf("telemetry.sampling_ratio must be between 0.0 and 1.0, got %f", c.Telemetry.SamplingRatio)
	}
	if c.Storage.Enabled && c.Storage.Bucket == "" {
		return fmt.Errorf("storage.bucket is required when storage is enabled")
	}
	if c.Features.KafkaOutbound && c.Kafka.Topic == "" {
		return fmt.Errorf("kafka.topic is required when features.kafka_outbound is enabled")
	}

	return nil
}

// DSN returns the database connection string with properly escaped values
func (d *DatabaseConfig) DSN() string {
	u := url.URL{
		Scheme: "postgres",
		User:   url.UserPassword(d.User, d.Password),
		Host:   fmt.Sprintf("%s:%d", d.Host, d.Port),
		Path:   d.DBName,
	}
	q := u.Query()
	q.Set("sslmode", d.SSLMode)
	u.RawQuery = q.Encode()
	return u.String()
}
