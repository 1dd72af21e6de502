package kafka

import (
	"context"
	"crypto/tls"
	"fmt"
	"time"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/couchcryptid/climate-data-etl/internal/config"
	kafkago "github.com/segmentio/kafka-go"
	"github.com/segmentio/kafka-go/sasl"
	"github.com/segmentio/kafka-go/sasl/aws_msk_iam_v2"
	"github.com/segmentio/kafka-go/sasl/plain"
	"github.com/segmentio/kafka-go/sasl/scram"
)

const dialTimeout = 10 * time.Second

// Mechanism builds the SASL mechanism for the configured security settings.
// It returns nil when SASL is disabled.
func Mechanism(ctx context.Context, s config.KafkaSecurity) (sasl.Mechanism, error) {
	switch s.SASLMechanism {
	case config.SASLNone:
		return nil, nil
	case config.SASLPlain:
		return plain.Mechanism{Username: s.SASLUsername, Password: s.SASLPassword}, nil
	case config.SASLScramSHA256:
		return scramMechanism(scram.SHA256, s)
	case config.SASLScramSHA512:
		return scramMechanism(scram.SHA512, s)
	case config.SASLAWSMSKIAM:
		awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(s.AWSRegion))
		if err != nil {
			return nil, fmt.Errorf("load aws config: %w", err)
		}
		return aws_msk_iam_v2.NewMechanism(awsCfg), nil
	default:
		return nil, fmt.Errorf("unsupported sasl mechanism %q", s.SASLMechanism)
	}
}

func scramMechanism(algo scram.Algorithm, s config.KafkaSecurity) (sasl.Mechanism, error) {
	m, err := scram.Mechanism(algo, s.SASLUsername, s.SASLPassword)
	if err != nil {
		return nil, fmt.Errorf("scram mechanism: %w", err)
	}
	return m, nil
}

// TLSConfig returns the client TLS settings, or nil for plaintext brokers.
func TLSConfig(s config.KafkaSecurity) *tls.Config {
	if !s.TLS {
		return nil
	}
	return &tls.Config{MinVersion: tls.VersionTLS12}
}

// NewDialer returns the dialer used by consumer group readers.
func NewDialer(ctx context.Context, s config.KafkaSecurity) (*kafkago.Dialer, error) {
	mechanism, err := Mechanism(ctx, s)
	if err != nil {
		return nil, err
	}
	return &kafkago.Dialer{
		Timeout:       dialTimeout,
		DualStack:     true,
		TLS:           TLSConfig(s),
		SASLMechanism: mechanism,
	}, nil
}

// NewTransport returns the transport shared by the writer and the admin client.
func NewTransport(ctx context.Context, s config.KafkaSecurity) (*kafkago.Transport, error) {
	mechanism, err := Mechanism(ctx, s)
	if err != nil {
		return nil, err
	}
	return &kafkago.Transport{
		DialTimeout: dialTimeout,
		TLS:         TLSConfig(s),
		SASL:        mechanism,
	}, nil
}
