package transport

// Capabilities describes what a journal sink can do.
type Capabilities struct {
	// SupportsSubscribe indicates published call records can be consumed in
	// the same process.
	SupportsSubscribe bool

	// SupportsOrdering indicates records arrive in publication order.
	SupportsOrdering bool

	// SupportsAck indicates the subscriber side expects explicit acks.
	SupportsAck bool

	// Remote indicates records leave the process.
	Remote bool

	// Name is the human-readable name of the sink.
	Name string
}

// SupportsLocalDelivery reports whether call records can be observed
// in-process through a subscriber.
func (c Capabilities) SupportsLocalDelivery() bool {
	return c.SupportsSubscribe && !c.Remote
}

var (
	// ChannelCapabilities for the in-memory Go channel sink.
	ChannelCapabilities = Capabilities{
		Name:              "channel",
		SupportsSubscribe: true,
		SupportsOrdering:  true,
		SupportsAck:       true,
	}

	// HTTPCapabilities for the sink that POSTs records to a collector.
	HTTPCapabilities = Capabilities{
		Name:   "http",
		Remote: true,
	}

	// NATSCapabilities for the NATS Core sink. Records published while
	// nobody subscribes are lost.
	NATSCapabilities = Capabilities{
		Name:              "nats",
		SupportsSubscribe: true,
		SupportsAck:       true,
		Remote:            true,
	}

	// KafkaCapabilities for the Kafka sink. Ordering holds per partition.
	KafkaCapabilities = Capabilities{
		Name:              "kafka",
		SupportsSubscribe: true,
		SupportsOrdering:  true,
		SupportsAck:       true,
		Remote:            true,
	}

	// RabbitMQCapabilities for the durable AMQP pub/sub sink.
	RabbitMQCapabilities = Capabilities{
		Name:              "rabbitmq",
		SupportsSubscribe: true,
		SupportsAck:       true,
		Remote:            true,
	}
)

// GetCapabilities returns the capabilities for a sink by name.
// Returns a Capabilities with only Name set if the sink is unknown.
func GetCapabilities(name string) Capabilities {
	return DefaultRegistry.GetCapabilities(name)
}
