package observability

import "time"

const (
	// EndpointStdout is a special endpoint value that outputs to stdout (for local development).
	EndpointStdout = "stdout"

	// ProtocolHTTP specifies OTLP over HTTP/protobuf.
	ProtocolHTTP = "http"

	// ProtocolGRPC specifies OTLP over gRPC.
	ProtocolGRPC = "grpc"

	// EnvironmentDevelopment is the default environment name.
	EnvironmentDevelopment = "development"

	defaultServiceName    = "apicall"
	defaultExportInterval = 15 * time.Second
	defaultExportTimeout  = 10 * time.Second
)

// Config defines the configuration for traces and metrics emitted by API calls.
type Config struct {
	// Enabled controls whether observability is active.
	// When false, all observability operations become no-ops.
	Enabled bool `koanf:"enabled" mapstructure:"enabled"`

	// ServiceName identifies the calling application in traces and metrics.
	ServiceName string `koanf:"service" mapstructure:"service"`

	// ServiceVersion is reported as service.version.
	ServiceVersion string `koanf:"version" mapstructure:"version"`

	// Environment indicates the deployment environment.
	Environment string `koanf:"environment" mapstructure:"environment"`

	// Endpoint is the collector address, or "stdout" for local development.
	// HTTP endpoints are host:port; gRPC endpoints must not carry a scheme.
	Endpoint string `koanf:"endpoint" mapstructure:"endpoint"`

	// Protocol is "http" or "grpc" for OTLP export.
	Protocol string `koanf:"protocol" mapstructure:"protocol"`

	// Insecure disables TLS towards the collector.
	Insecure bool `koanf:"insecure" mapstructure:"insecure"`

	// Headers are sent with every export (e.g., API keys).
	Headers map[string]string `koanf:"headers" mapstructure:"headers"`

	// SampleRate is the trace sampling ratio in [0, 1].
	SampleRate *float64 `koanf:"samplerate" mapstructure:"samplerate"`

	// ExportInterval is how often metrics are pushed.
	ExportInterval time.Duration `koanf:"interval" mapstructure:"interval"`
}

// Float64Ptr returns a pointer to the provided float64 value.
func Float64Ptr(v float64) *float64 {
	return &v
}

// ApplyDefaults sets default values for any config fields that are not specified.
func (c *Config) ApplyDefaults() {
	if c.ServiceName == "" {
		c.ServiceName = defaultServiceName
	}
	if c.ServiceVersion == "" {
		c.ServiceVersion = "unknown"
	}
	if c.Environment == "" {
		c.Environment = EnvironmentDevelopment
	}
	if c.Endpoint == "" {
		c.Endpoint = EndpointStdout
	}
	if c.Protocol == "" {
		c.Protocol = ProtocolHTTP
	}
	if c.SampleRate == nil {
		c.SampleRate = Float64Ptr(1.0)
	}
	if c.ExportInterval <= 0 {
		c.ExportInterval = defaultExportInterval
	}
}

// Validate checks the configuration after defaults have been applied.
func (c *Config) Validate() error {
	if c == nil {
		return ErrNilConfig
	}
	if !c.Enabled {
		return nil
	}
	if c.SampleRate != nil && (*c.SampleRate < 0 || *c.SampleRate > 1) {
		return ErrInvalidSampleRate
	}
	if c.Endpoint == EndpointStdout {
		return nil
	}
	if c.Protocol != ProtocolHTTP && c.Protocol != ProtocolGRPC {
		return ErrInvalidProtocol
	}
	return nil
}
