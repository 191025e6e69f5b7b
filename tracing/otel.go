package tracing

import (
	"github.com/ThreeDotsLabs/watermill/message"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/jaeger"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	tracesdk "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.21.0"
)

// ConfigureTraceProvider sets up the global tracer for one service. With no
// Jaeger endpoint configured, only the propagator is installed and the no-op
// global provider is kept.
func ConfigureTraceProvider(serviceName, jaegerEndpoint string) *tracesdk.TracerProvider {
	// Without the propagator, traces are not carried across message metadata.
	otel.SetTextMapPropagator(propagation.TraceContext{})

	if jaegerEndpoint == "" {
		return nil
	}

	exp, err := jaeger.New(
		jaeger.WithCollectorEndpoint(
			jaeger.WithEndpoint(jaegerEndpoint),
		),
	)
	if err != nil {
		panic(err)
	}

	tp := tracesdk.NewTracerProvider(
		tracesdk.WithBatcher(exp),
		tracesdk.WithResource(
			resource.NewWithAttributes(
				semconv.SchemaURL,
				semconv.ServiceName(serviceName),
			)),
	)

	otel.SetTracerProvider(tp)

	return tp
}

// PublisherDecorator injects the current trace context into message metadata
// so handlers on the consuming side continue the same trace.
type PublisherDecorator struct {
	message.Publisher
}

func (d PublisherDecorator) Publish(topic string, messages ...*message.Message) error {
	for i := range messages {
		otel.GetTextMapPropagator().Inject(messages[i].Context(), propagation.MapCarrier(messages[i].Metadata))
	}
	return d.Publisher.Publish(topic, messages...)
}
