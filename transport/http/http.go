// Package http provides the journal sink that POSTs every call record to a
// collector endpoint.
package http

import (
	"context"
	"fmt"
	nethttp "net/http"
	"strings"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill-http/v2/pkg/http"
	"github.com/ThreeDotsLabs/watermill/message"

	"github.com/drblury/mockflow/transport"
)

// TransportName is the journal_sink value selecting this sink.
const TransportName = "http"

// PublisherFactory allows overriding the publisher creation for testing.
var PublisherFactory = func(config http.PublisherConfig, logger watermill.LoggerAdapter) (message.Publisher, error) {
	return http.NewPublisher(config, logger)
}

func init() {
	Register()
}

// Register adds the sink to the default registry.
func Register() {
	transport.RegisterWithCapabilities(TransportName, Build, transport.HTTPCapabilities)
}

// newClient returns the client records are posted with. It owns a transport
// cloned from http.DefaultTransport at build time, so a later Listen that
// swaps the default transport never sees the sink's own requests.
func newClient() *nethttp.Client {
	if base, ok := nethttp.DefaultTransport.(*nethttp.Transport); ok {
		return &nethttp.Client{Transport: base.Clone()}
	}
	return &nethttp.Client{Transport: &nethttp.Transport{Proxy: nethttp.ProxyFromEnvironment}}
}

// TopicURL returns the URL records of topic are posted to.
func TopicURL(base, topic string) string {
	return strings.TrimRight(base, "/") + "/" + topic
}

// Build creates a new HTTP sink. It has no subscriber side.
func Build(ctx context.Context, cfg transport.Config, logger watermill.LoggerAdapter) (transport.Transport, error) {
	collector := cfg.GetJournalHTTPURL()
	if collector == "" {
		return transport.Transport{}, fmt.Errorf("http journal sink requires a collector URL")
	}

	publisher, err := PublisherFactory(
		http.PublisherConfig{
			Client: newClient(),
			MarshalMessageFunc: func(topic string, msg *message.Message) (*nethttp.Request, error) {
				return http.DefaultMarshalMessageFunc(TopicURL(collector, topic), msg)
			},
		},
		logger,
	)
	if err != nil {
		return transport.Transport{}, err
	}

	return transport.Transport{Publisher: publisher}, nil
}

// Capabilities returns the capabilities of this sink.
func Capabilities() transport.Capabilities {
	return transport.HTTPCapabilities
}
