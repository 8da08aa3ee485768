package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	Server    ServerConfig
	Database  DatabaseConfig
	Redis     RedisConfig
	Auth      AuthConfig
	Logging   LoggingConfig
	AWS       AWSConfig
	Queues    QueuesConfig
	Kafka     KafkaConfig
	Consumer  ConsumerConfig
	Identity  IdentityConfig
	Notifier  NotifierConfig
	RateLimit RateLimitConfig `mapstructure:"rate_limit"`
}

type ServerConfig struct {
	HTTPPort     int           `mapstructure:"http_port"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	// AllowedOrigins feeds the CORS middleware; "*" allows any origin.
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

type DatabaseConfig struct {
	Host         string `mapstructure:"host"`
	Port         int    `mapstructure:"port"`
	User         string `mapstructure:"user"`
	Password     string `mapstructure:"password"`
	Database     string `mapstructure:"database"`
	SSLMode      string `mapstructure:"ssl_mode"`
	MaxOpenConns int    `mapstructure:"max_open_conns"`
	MaxIdleConns int    `mapstructure:"max_idle_conns"`
	AutoMigrate  bool   `mapstructure:"auto_migrate"`
}

type RedisConfig struct {
	Addresses   []string `mapstructure:"addresses"`
	Password    string   `mapstructure:"password"`
	DB          int      `mapstructure:"db"`
	PoolSize    int      `mapstructure:"pool_size"`
	ClusterMode bool     `mapstructure:"cluster_mode"`
}

type AuthConfig struct {
	JWTSecret string `mapstructure:"jwt_secret"`
	Issuer    string `mapstructure:"issuer"`
	// DecisionRoles may decide applications; ReviewerRoles may list them.
	DecisionRoles []string `mapstructure:"decision_roles"`
	ReviewerRoles []string `mapstructure:"reviewer_roles"`
	AdminRoles    []string `mapstructure:"admin_roles"`
}

type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"` // json or console
}

type AWSConfig struct {
	Region string `mapstructure:"region"`
	// Endpoint overrides the service endpoint, e.g. for localstack.
	Endpoint string `mapstructure:"endpoint"`
}

type QueuesConfig struct {
	CapacityRequests   string `mapstructure:"capacity_requests"`
	CapacityResults    string `mapstructure:"capacity_results"`
	CapacityResultsDLQ string `mapstructure:"capacity_results_dlq"`
	Decisions          string `mapstructure:"decisions"`
	DecisionsDLQ       string `mapstructure:"decisions_dlq"`
	Reports            string `mapstructure:"reports"`
}

type KafkaConfig struct {
	Brokers       []string `mapstructure:"brokers"`
	ClientID      string   `mapstructure:"client_id"`
	DecisionTopic string   `mapstructure:"decision_topic"`
}

type ConsumerConfig struct {
	PollInterval time.Duration `mapstructure:"poll_interval"`
	WaitTime     time.Duration `mapstructure:"wait_time"`
	BatchSize    int           `mapstructure:"batch_size"`
	Concurrency  int           `mapstructure:"concurrency"`
	MaxReceives  int           `mapstructure:"max_receives"`
}

type IdentityConfig struct {
	BaseURL string        `mapstructure:"base_url"`
	Timeout time.Duration `mapstructure:"timeout"`
}

type NotifierConfig struct {
	// Channel selects where decision events go: sqs, sns or kafka.
	Channel          string `mapstructure:"channel"`
	DecisionTopicARN string `mapstructure:"decision_topic_arn"`
	// TopicARN receives the plain-text notification relayed to applicants.
	TopicARN string        `mapstructure:"topic_arn"`
	MailFrom string        `mapstructure:"mail_from"`
	DedupTTL time.Duration `mapstructure:"dedup_ttl"`
}

type RateLimitConfig struct {
	Enabled           bool    `mapstructure:"enabled"`
	RequestsPerSecond float64 `mapstructure:"requests_per_second"`
	Burst             int     `mapstructure:"burst"`
}

func Load() (*Config, error) {
	// A local .env is optional; variables already set in the environment win.
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath("/etc/loanflow/")
	viper.AddConfigPath(".")

	viper.SetEnvPrefix("LOANFLOW")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	setDefaults(viper.GetViper())

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
	}

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.http_port", 8080)
	v.SetDefault("server.read_timeout", "30s")
	v.SetDefault("server.write_timeout", "30s")
	v.SetDefault("server.allowed_origins", []string{"*"})
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.ssl_mode", "disable")
	v.SetDefault("database.max_open_conns", 25)
	v.SetDefault("database.max_idle_conns", 5)
	v.SetDefault("database.auto_migrate", true)
	v.SetDefault("redis.pool_size", 20)
	v.SetDefault("auth.decision_roles", []string{"ASESOR"})
	v.SetDefault("auth.reviewer_roles", []string{"ASESOR", "ADMIN"})
	v.SetDefault("auth.admin_roles", []string{"ADMIN"})
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
	v.SetDefault("aws.region", "us-east-1")
	v.SetDefault("kafka.client_id", "loanflow")
	v.SetDefault("kafka.decision_topic", "loanflow.application.decisions")
	v.SetDefault("consumer.poll_interval", "5s")
	v.SetDefault("consumer.wait_time", "5s")
	v.SetDefault("consumer.batch_size", 5)
	v.SetDefault("consumer.concurrency", 5)
	v.SetDefault("consumer.max_receives", 5)
	v.SetDefault("identity.timeout", "5s")
	v.SetDefault("notifier.channel", "sqs")
	v.SetDefault("notifier.dedup_ttl", "24h")
	v.SetDefault("rate_limit.enabled", true)
	v.SetDefault("rate_limit.requests_per_second", 20)
	v.SetDefault("rate_limit.burst", 40)

	// Keys without a sensible default are registered empty so that
	// environment variables can still populate them. An empty
	// redis.addresses selects the in-memory deduper.
	for _, key := range []string{
		"database.user", "database.password", "database.database",
		"redis.addresses", "redis.password", "auth.jwt_secret", "auth.issuer", "aws.endpoint",
		"queues.capacity_requests", "queues.capacity_results", "queues.capacity_results_dlq",
		"queues.decisions", "queues.decisions_dlq", "queues.reports",
		"kafka.brokers", "identity.base_url",
		"notifier.decision_topic_arn", "notifier.topic_arn", "notifier.mail_from",
	} {
		v.SetDefault(key, "")
	}
}

func (c *Config) Validate() error {
	switch c.Notifier.Channel {
	case "sqs", "sns", "kafka":
	default:
		return fmt.Errorf("notifier.channel must be sqs, sns or kafka, got %q", c.Notifier.Channel)
	}
	if c.Notifier.Channel == "sns" && c.Notifier.DecisionTopicARN == "" {
		return errors.New("notifier.decision_topic_arn is required for the sns channel")
	}
	if c.Consumer.BatchSize < 1 || c.Consumer.BatchSize > 10 {
		return fmt.Errorf("consumer.batch_size must be between 1 and 10, got %d", c.Consumer.BatchSize)
	}
	if c.Consumer.WaitTime > 20*time.Second {
		return fmt.Errorf("consumer.wait_time must not exceed 20s, got %s", c.Consumer.WaitTime)
	}
	return nil
}

func (c *DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Database, c.SSLMode,
	)
}
