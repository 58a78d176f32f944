package mockflow

import (
	runtimepkg "github.com/drblury/mockflow/internal/runtime"
	configpkg "github.com/drblury/mockflow/internal/runtime/config"
	errspkg "github.com/drblury/mockflow/internal/runtime/errors"
	"github.com/drblury/mockflow/internal/runtime/fixtures"
	handlerpkg "github.com/drblury/mockflow/internal/runtime/handlers"
	idspkg "github.com/drblury/mockflow/internal/runtime/ids"
	jsoncodec "github.com/drblury/mockflow/internal/runtime/jsoncodec"
	loggingpkg "github.com/drblury/mockflow/internal/runtime/logging"
	mockpkg "github.com/drblury/mockflow/internal/runtime/mock"
	"github.com/drblury/mockflow/transport"
)

type (
	Config              = configpkg.Config
	Service             = runtimepkg.Service
	ServiceDependencies = runtimepkg.ServiceDependencies

	Endpoint = mockpkg.Endpoint
	Pattern  = mockpkg.Pattern
	Request  = mockpkg.Request
	Response = mockpkg.Response
	Resolver = mockpkg.Resolver
	Registry = mockpkg.Registry

	SampleRecord = handlerpkg.SampleRecord
	Timestamp    = handlerpkg.Timestamp
	FooBody      = handlerpkg.FooBody
	BarBody      = handlerpkg.BarBody

	FixtureFile     = fixtures.File
	FixtureEndpoint = fixtures.Endpoint
	FixtureRule     = fixtures.Rule

	ResolveFunc            = runtimepkg.ResolveFunc
	ResolveMiddleware      = runtimepkg.ResolveMiddleware
	MiddlewareBuilder      = runtimepkg.MiddlewareBuilder
	MiddlewareRegistration = runtimepkg.MiddlewareRegistration

	// Request lifecycle hooks
	RequestContext = runtimepkg.RequestContext
	RequestHooks   = runtimepkg.RequestHooks

	Call          = runtimepkg.Call
	EndpointInfo  = runtimepkg.EndpointInfo
	EndpointStats = runtimepkg.EndpointStats

	LogFields                 = loggingpkg.LogFields
	ServiceLogger             = loggingpkg.ServiceLogger
	EntryLoggerAdapter[T any] = loggingpkg.EntryLoggerAdapter[T]

	ConfigValidationError = errspkg.ConfigValidationError

	// Journal sinks
	TransportBuilder      = transport.Builder
	TransportConfig       = transport.Config
	TransportRegistry     = transport.Registry
	TransportCapabilities = transport.Capabilities
)

var (
	NewService     = runtimepkg.NewService
	TryNewService  = runtimepkg.TryNewService
	DefaultConfig  = configpkg.Defaults
	LoadConfig     = configpkg.LoadFile
	ValidateConfig = configpkg.ValidateConfig

	NewEndpoint  = mockpkg.NewEndpoint
	MustEndpoint = mockpkg.MustEndpoint
	Get          = mockpkg.Get
	Post         = mockpkg.Post
	ParsePattern = mockpkg.ParsePattern
	MustPattern  = mockpkg.MustPattern
	NewRegistry  = mockpkg.NewRegistry
	NewRequest   = mockpkg.NewRequest
	JSON         = mockpkg.JSON
	Passthrough  = mockpkg.Passthrough

	// Built-in endpoints
	DefaultHandlers = handlerpkg.Default
	SampleQuery     = handlerpkg.SampleQuery
	Root            = handlerpkg.Root
	JobsDashboard   = handlerpkg.JobsDashboard
	SampleRecords   = handlerpkg.SampleRecords
	Date            = handlerpkg.Date

	CookieToggle        = handlerpkg.CookieToggle
	PassthroughResolver = handlerpkg.PassthroughResolver

	LoadFixtures     = fixtures.Load
	LoadFixtureFile  = fixtures.LoadFile
	LoadFixtureFiles = fixtures.LoadFiles

	DefaultMiddlewares      = runtimepkg.DefaultMiddlewares
	CorrelationIDMiddleware = runtimepkg.CorrelationIDMiddleware
	LogRequestsMiddleware   = runtimepkg.LogRequestsMiddleware
	TracerMiddleware        = runtimepkg.TracerMiddleware
	MetricsMiddleware       = runtimepkg.MetricsMiddleware
	RecovererMiddleware     = runtimepkg.RecovererMiddleware

	CorrelationIDFromContext = runtimepkg.CorrelationIDFromContext

	LoggingHooks  = runtimepkg.LoggingHooks
	CountingHooks = runtimepkg.CountingHooks

	PublishCall = runtimepkg.PublishCall

	GetCapabilities          = transport.GetCapabilities
	DefaultTransportRegistry = transport.DefaultRegistry
	RegisterTransport        = transport.Register
	BuildTransport           = transport.Build

	Marshal   = jsoncodec.Marshal
	Unmarshal = jsoncodec.Unmarshal
	Encode    = jsoncodec.Encode
	Decode    = jsoncodec.Decode

	ErrResolverRequired     = errspkg.ErrResolverRequired
	ErrMethodRequired       = errspkg.ErrMethodRequired
	ErrPatternRequired      = errspkg.ErrPatternRequired
	ErrInvalidPattern       = errspkg.ErrInvalidPattern
	ErrUnhandledRequest     = errspkg.ErrUnhandledRequest
	ErrInvalidFixture       = errspkg.ErrInvalidFixture
	ErrPublisherRequired    = errspkg.ErrPublisherRequired
	ErrTopicRequired        = errspkg.ErrTopicRequired
	ErrSubscribeUnsupported = errspkg.ErrSubscribeUnsupported
	ErrConfigRequired       = errspkg.ErrConfigRequired
	ErrLoggerRequired       = errspkg.ErrLoggerRequired

	NewSlogServiceLogger = loggingpkg.NewSlogServiceLogger
	NewDiscardLogger     = loggingpkg.NewDiscardLogger

	CreateULID = idspkg.CreateULID
)

// Unhandled request policies.
const (
	OnUnhandledBypass = configpkg.OnUnhandledBypass
	OnUnhandledWarn   = configpkg.OnUnhandledWarn
	OnUnhandledError  = configpkg.OnUnhandledError
)

// Journal sinks.
const (
	JournalSinkNone     = configpkg.JournalSinkNone
	JournalSinkChannel  = configpkg.JournalSinkChannel
	JournalSinkHTTP     = configpkg.JournalSinkHTTP
	JournalSinkNATS     = configpkg.JournalSinkNATS
	JournalSinkKafka    = configpkg.JournalSinkKafka
	JournalSinkRabbitMQ = configpkg.JournalSinkRabbitMQ
)

const (
	MethodAll           = mockpkg.MethodAll
	HeaderCorrelationID = runtimepkg.HeaderCorrelationID
	BaseURL             = handlerpkg.BaseURL
)

// JSONResolver returns a resolver that always answers with status and body
// encoded as JSON.
func JSONResolver[T any](status int, body T) Resolver {
	return handlerpkg.JSON(status, body)
}

func NewEntryServiceLogger[T EntryLoggerAdapter[T]](entry T) ServiceLogger {
	return loggingpkg.NewEntryServiceLogger(entry)
}
