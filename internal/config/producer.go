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

// ProducerConfig holds the settings of the publish job.
type ProducerConfig struct {
	Brokers           []string
	Topic             string
	Partitions        int
	ReplicationFactor int
	KafkaSecurity     KafkaSecurity

	// WaitTime is the pause after every published document.
	WaitTime time.Duration

	SkipDownload bool
	SourcePath   string
	SourceURL    string
	SourceYear   int
	SourceMonth  string
	SourceDays   []string

	LogLevel  string
	LogFormat string
}

// LoadProducer reads the producer configuration from environment variables.
func LoadProducer() (*ProducerConfig, error) {
	partitions, err := parseRequiredInt("AWS_MSK_TOPIC_PARTITIONS")
	if err != nil {
		return nil, err
	}

	replication, err := parseRequiredInt("AWS_MSK_TOPIC_REPLICATION")
	if err != nil {
		return nil, err
	}

	waitTime, err := parseSeconds("PRODUCER_WAIT_TIME", "0.1")
	if err != nil {
		return nil, err
	}

	year, err := parsePositiveInt("SOURCE_YEAR", "2025")
	if err != nil {
		return nil, err
	}

	security, err := loadKafkaSecurity()
	if err != nil {
		return nil, err
	}

	cfg := &ProducerConfig{
		Brokers:           splitList(os.Getenv("AWS_MSK_BOOTSTRAP_SERVER")),
		Topic:             os.Getenv("AWS_MSK_TOPIC_NAME"),
		Partitions:        partitions,
		ReplicationFactor: replication,
		KafkaSecurity:     security,
		WaitTime:          waitTime,
		SkipDownload:      parseSkipDownload(sharedcfg.EnvOrDefault("SKIP_DOWNLOAD", "true")),
		SourcePath:        sharedcfg.EnvOrDefault("SOURCE_PATH", "data"),
		SourceURL:         os.Getenv("SOURCE_URL"),
		SourceYear:        year,
		SourceMonth:       sharedcfg.EnvOrDefault("SOURCE_MONTH", "08"),
		SourceDays:        splitList(sharedcfg.EnvOrDefault("SOURCE_DAYS", "10,11,12,13,14")),
		LogLevel:          sharedcfg.EnvOrDefault("LOG_LEVEL", "info"),
		LogFormat:         sharedcfg.EnvOrDefault("LOG_FORMAT", "text"),
	}

	if len(cfg.Brokers) == 0 {
		return nil, errors.New("AWS_MSK_BOOTSTRAP_SERVER is required")
	}
	if cfg.Topic == "" {
		return nil, errors.New("AWS_MSK_TOPIC_NAME is required")
	}
	if !cfg.SkipDownload && cfg.SourceURL == "" {
		return nil, errors.New("SOURCE_URL is required unless SKIP_DOWNLOAD is set")
	}
	if !cfg.SkipDownload && len(cfg.SourceDays) == 0 {
		return nil, errors.New("SOURCE_DAYS is required unless SKIP_DOWNLOAD is set")
	}

	return cfg, nil
}

// parseSkipDownload only downloads for the explicit values "false" and "0";
// anything else skips the download.
func parseSkipDownload(v string) bool {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "false", "0":
		return false
	default:
		return true
	}
}

func parseRequiredInt(key string) (int, error) {
	s := os.Getenv(key)
	if s == "" {
		return 0, fmt.Errorf("%s is required", key)
	}
	n, err := strconv.Atoi(s)
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("invalid %s", key)
	}
	return n, nil
}

func parseSeconds(key, def string) (time.Duration, error) {
	f, err := strconv.ParseFloat(sharedcfg.EnvOrDefault(key, def), 64)
	if err != nil || f < 0 {
		return 0, fmt.Errorf("invalid %s", key)
	}
	return time.Duration(f * float64(time.Second)), nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
