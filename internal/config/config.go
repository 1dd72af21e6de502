package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	sharedcfg "github.com/couchcryptid/storm-data-shared/config"
)

// Supported KAFKA_SASL_MECHANISM values.
const (
	SASLNone        = ""
	SASLPlain       = "plain"
	SASLScramSHA256 = "scram-sha-256"
	SASLScramSHA512 = "scram-sha-512"
	SASLAWSMSKIAM   = "aws-msk-iam"
)

// KafkaSecurity holds broker authentication and transport settings shared by
// the consumer and the producer.
type KafkaSecurity struct {
	SASLMechanism string
	SASLUsername  string
	SASLPassword  string
	TLS           bool
	AWSRegion     string
}

// Config holds all consumer settings, populated from environment variables.
type Config struct {
	KafkaBrokers         []string
	KafkaGroupID         string
	KafkaConsumerEnabled bool
	KafkaSecurity        KafkaSecurity
	SourceTopic          string

	HTTPAddr        string
	LogLevel        string
	LogFormat       string
	ShutdownTimeout time.Duration

	BatchSize          int
	BatchFlushInterval time.Duration

	// CrateDB connection and insert target.
	CrateDBHost     string
	CrateDBPort     int
	CrateDBUser     string
	CrateDBPassword string
	CrateDBDatabase string
	CrateDBSchema   string
	CrateDBTable    string
	CrateDBSSLMode  string
	CrateDBMaxConns int
}

// Load reads configuration from environment variables, applying defaults where unset.
func Load() (*Config, error) {
	shutdownTimeout, err := sharedcfg.ParseShutdownTimeout()
	if err != nil {
		return nil, err
	}

	batchSize, err := sharedcfg.ParseBatchSize()
	if err != nil {
		return nil, err
	}

	flushInterval, err := sharedcfg.ParseBatchFlushInterval()
	if err != nil {
		return nil, err
	}

	consumerEnabled, err := parseBool("KAFKA_CONSUMER_ENABLED", "true")
	if err != nil {
		return nil, err
	}

	security, err := loadKafkaSecurity()
	if err != nil {
		return nil, err
	}

	port, err := parsePositiveInt("CRATEDB_PORT", "5432")
	if err != nil {
		return nil, err
	}

	maxConns, err := parsePositiveInt("CRATEDB_MAX_CONNS", "2")
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		KafkaBrokers:         sharedcfg.ParseBrokers(sharedcfg.EnvOrDefault("KAFKA_BROKERS", "localhost:9092")),
		KafkaGroupID:         sharedcfg.EnvOrDefault("KAFKA_GROUP_ID", "climate-ingest"),
		KafkaConsumerEnabled: consumerEnabled,
		KafkaSecurity:        security,
		SourceTopic:          sharedcfg.EnvOrDefault("SOURCE_TOPIC", "climate-data"),
		HTTPAddr:             sharedcfg.EnvOrDefault("HTTP_ADDR", ":8080"),
		LogLevel:             sharedcfg.EnvOrDefault("LOG_LEVEL", "info"),
		LogFormat:            sharedcfg.EnvOrDefault("LOG_FORMAT", "json"),
		ShutdownTimeout:      shutdownTimeout,
		BatchSize:            batchSize,
		BatchFlushInterval:   flushInterval,

		CrateDBHost:     os.Getenv("CRATEDB_HOST"),
		CrateDBPort:     port,
		CrateDBUser:     sharedcfg.EnvOrDefault("CRATEDB_USER", "crate"),
		CrateDBPassword: os.Getenv("CRATEDB_PASS"),
		CrateDBDatabase: sharedcfg.EnvOrDefault("CRATEDB_DB", "doc"),
		CrateDBSchema:   sharedcfg.EnvOrDefault("CRATEDB_SCHEMA", "demo"),
		CrateDBTable:    sharedcfg.EnvOrDefault("CRATEDB_TABLE", "climate_data"),
		CrateDBSSLMode:  sharedcfg.EnvOrDefault("CRATEDB_SSLMODE", "verify-full"),
		CrateDBMaxConns: maxConns,
	}

	if cfg.CrateDBHost == "" {
		return nil, errors.New("CRATEDB_HOST is required")
	}
	if cfg.CrateDBTable == "" {
		return nil, errors.New("CRATEDB_TABLE is required")
	}
	if cfg.SourceTopic == "" {
		return nil, errors.New("SOURCE_TOPIC is required")
	}
	if cfg.KafkaConsumerEnabled && len(cfg.KafkaBrokers) == 0 {
		return nil, errors.New("KAFKA_BROKERS is required")
	}

	return cfg, nil
}

func loadKafkaSecurity() (KafkaSecurity, error) {
	useTLS, err := parseBool("KAFKA_TLS", "false")
	if err != nil {
		return KafkaSecurity{}, err
	}

	s := KafkaSecurity{
		SASLMechanism: strings.ToLower(os.Getenv("KAFKA_SASL_MECHANISM")),
		SASLUsername:  os.Getenv("KAFKA_SASL_USERNAME"),
		SASLPassword:  os.Getenv("KAFKA_SASL_PASSWORD"),
		TLS:           useTLS,
		AWSRegion:     os.Getenv("AWS_REGION"),
	}

	switch s.SASLMechanism {
	case SASLNone:
	case SASLPlain, SASLScramSHA256, SASLScramSHA512:
		if s.SASLUsername == "" {
			return KafkaSecurity{}, fmt.Errorf("KAFKA_SASL_USERNAME is required for KAFKA_SASL_MECHANISM=%s", s.SASLMechanism)
		}
	case SASLAWSMSKIAM:
		if s.AWSRegion == "" {
			return KafkaSecurity{}, errors.New("AWS_REGION is required for KAFKA_SASL_MECHANISM=aws-msk-iam")
		}
		// MSK only accepts IAM authentication over TLS.
		s.TLS = true
	default:
		return KafkaSecurity{}, fmt.Errorf("invalid KAFKA_SASL_MECHANISM %q", s.SASLMechanism)
	}

	return s, nil
}

func parseBool(key, def string) (bool, error) {
	v, err := strconv.ParseBool(sharedcfg.EnvOrDefault(key, def))
	if err != nil {
		return false, fmt.Errorf("invalid %s", key)
	}
	return v, nil
}

func parsePositiveInt(key, def string) (int, error) {
	n, err := strconv.Atoi(sharedcfg.EnvOrDefault(key, def))
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("invalid %s", key)
	}
	return n, nil
}
