package domain

import "context"

// RawRecord is one broker message as delivered by the managed Kafka event source.
// Value holds the message body base64-encoded; a nil Value marks a record with no
// body, which is dropped before decoding.
type RawRecord struct {
	Topic         string  `json:"topic,omitempty"`
	Partition     int     `json:"partition,omitempty"`
	Offset        int64   `json:"offset,omitempty"`
	Timestamp     int64   `json:"timestamp,omitempty"`
	TimestampType string  `json:"timestampType,omitempty"`
	Key           string  `json:"key,omitempty"`
	Value         *string `json:"value,omitempty"`

	// Commit acknowledges the record upstream. Only set by the Kafka reader.
	Commit func(ctx context.Context) error `json:"-"`
}

// Event is the invocation payload: records grouped by source key.
type Event struct {
	EventSource      string                 `json:"eventSource,omitempty"`
	BootstrapServers string                 `json:"bootstrapServers,omitempty"`
	Records          map[string][]RawRecord `json:"records"`
}

// Response is the invocation result. Body is a JSON document encoded as a string.
type Response struct {
	StatusCode int    `json:"statusCode"`
	Body       string `json:"body"`
}

// ResponseBody is the decoded form of Response.Body.
type ResponseBody struct {
	Message      string            `json:"message"`
	CrateDBWrite InsertBatchResult `json:"cratedb_write"`
}
