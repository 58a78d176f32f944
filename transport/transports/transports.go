// Package transports imports the built-in journal sinks for registration.
// Import this package to have them registered with the default registry.
package transports

import (
	_ "github.com/drblury/mockflow/transport/channel"
	_ "github.com/drblury/mockflow/transport/http"
	_ "github.com/drblury/mockflow/transport/kafka"
	_ "github.com/drblury/mockflow/transport/nats"
	_ "github.com/drblury/mockflow/transport/rabbitmq"
)
