package observability

const (
	AttrServiceName = "service.name"
	AttrAgentName   = "a2a.agent.name"
	AttrAgentURL    = "a2a.agent.url"
	AttrTransport   = "a2a.transport"
	AttrScenario    = "a2aprobe.scenario"
	AttrMessageID   = "a2a.message.id"
	AttrContextID   = "a2a.context.id"
	AttrTaskID      = "a2a.task.id"
	AttrTaskState   = "a2a.task.state"
	AttrEventCount  = "a2aprobe.events"
	AttrStreaming   = "a2aprobe.streaming"
	AttrEventCapped = "a2aprobe.capped"
	AttrErrorType   = "error.type"

	SpanConnect  = "a2a.connect"
	SpanSend     = "a2a.send_message"
	SpanScenario = "a2aprobe.scenario"
	SpanRun      = "a2aprobe.run"

	ExporterStdout = "stdout"
	ExporterOTLP   = "otlp"

	DefaultServiceName  = "a2aprobe"
	DefaultOTLPEndpoint = "localhost:4317"
	DefaultSamplingRate = 1.0

	// InstrumentationName is the tracer name used across the probe.
	InstrumentationName = "github.com/kadirpekel/a2aprobe"
)
