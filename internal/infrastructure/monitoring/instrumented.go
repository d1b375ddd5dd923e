package monitoring

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"github.com/tablewise/server/internal/ports/outbound"
)

// Instrumented adapters record a span and the AI request metrics around
// every upstream call.

type instrumentedTranscriber struct {
	next     outbound.Transcriber
	provider string
	metrics  *Metrics
	tracing  *TracingProvider
}

// InstrumentTranscriber wraps a transcriber with metrics and tracing
func InstrumentTranscriber(next outbound.Transcriber, provider string, metrics *Metrics, tracing *TracingProvider) outbound.Transcriber {
	return &instrumentedTranscriber{next: next, provider: provider, metrics: metrics, tracing: tracing}
}

func (t *instrumentedTranscriber) Transcribe(ctx context.Context, req outbound.TranscriptionRequest) (string, error) {
	ctx, span := t.tracing.StartAISpan(ctx, t.provider, "transcribe")
	defer span.End()
	span.SetAttributes(
		attribute.String("audio.mime_type", req.MimeType),
		attribute.Int("audio.bytes", len(req.Audio)),
	)

	start := time.Now()
	text, err := t.next.Transcribe(ctx, req)
	t.metrics.RecordAIRequest(t.provider, "transcribe", time.Since(start), err)
	RecordError(span, err)
	return text, err
}

type instrumentedStructurer struct {
	next     outbound.RecipeStructurer
	provider string
	metrics  *Metrics
	tracing  *TracingProvider
}

// InstrumentStructurer wraps a structurer with metrics and tracing
func InstrumentStructurer(next outbound.RecipeStructurer, provider string, metrics *Metrics, tracing *TracingProvider) outbound.RecipeStructurer {
	return &instrumentedStructurer{next: next, provider: provider, metrics: metrics, tracing: tracing}
}

func (s *instrumentedStructurer) Structure(ctx context.Context, text string) (*outbound.StructuredRecipe, error) {
	ctx, span := s.tracing.StartAISpan(ctx, s.provider, "structure")
	defer span.End()
	span.SetAttributes(attribute.Int("text.length", len(text)))

	start := time.Now()
	out, err := s.next.Structure(ctx, text)
	s.metrics.RecordAIRequest(s.provider, "structure", time.Since(start), err)
	RecordError(span, err)
	return out, err
}
