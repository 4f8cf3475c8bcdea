package observability

const (
	AttrAgentName   = "a2abridge.agent"
	AttrRequestID   = "a2abridge.request_id"
	AttrTaskID      = "a2abridge.task_id"
	AttrEventKind   = "a2abridge.event_kind"
	AttrOutcome     = "a2abridge.outcome"
	AttrErrorType   = "error.type"
	AttrHTTPMethod  = "http.method"
	AttrHTTPPath    = "http.path"
	AttrHTTPStatus  = "http.status_code"
	AttrServiceName = "service.name"
	AttrServiceVer  = "service.version"

	SpanRemoteCall = "a2abridge.remote_call"
	SpanHTTP       = "a2abridge.http"

	EventRemote    = "remote_event"
	EventChunk     = "chunk"
	EventInterrupt = "interrupt"

	ExporterOTLP   = "otlp"
	ExporterStdout = "stdout"

	DefaultServiceName    = "a2abridge"
	DefaultSamplingRate   = 1.0
	DefaultOTLPEndpoint   = "localhost:4317"
	DefaultMetricsAddress = ":9464"
	DefaultMetricsPath    = "/metrics"

	instrumentationName = "github.com/kadirpekel/a2abridge"
)
