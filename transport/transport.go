// Package transport defines the journal sinks a mock service publishes call
// records to. Each sink lives in its own sub-package and registers itself
// with the transport registry.
package transport

import (
	"context"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
)

// Transport is the publisher a sink produces, plus a subscriber when the sink
// can deliver call records back to the process.
type Transport struct {
	Publisher  message.Publisher
	Subscriber message.Subscriber
}

// Builder is the function signature for creating a sink from config.
type Builder func(ctx context.Context, cfg Config, logger watermill.LoggerAdapter) (Transport, error)

// Config provides the configuration values needed by sinks.
type Config interface {
	// GetJournalSink returns the sink name.
	GetJournalSink() string

	// GetJournalTopic returns the topic call records are published on.
	GetJournalTopic() string

	// GetJournalHTTPURL returns the collector URL of the http sink.
	GetJournalHTTPURL() string

	// GetJournalNATSURL returns the server URL of the nats sink.
	GetJournalNATSURL() string

	// GetJournalKafkaBrokers returns the broker addresses of the kafka sink.
	GetJournalKafkaBrokers() []string

	// GetJournalKafkaConsumerGroup returns the group the kafka sink's
	// subscriber joins.
	GetJournalKafkaConsumerGroup() string

	// GetJournalRabbitMQURL returns the AMQP URI of the rabbitmq sink.
	GetJournalRabbitMQURL() string
}

// CapabilitiesProvider is implemented by sinks that can report their capabilities.
type CapabilitiesProvider interface {
	Capabilities() Capabilities
}
