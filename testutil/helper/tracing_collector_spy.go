package helper

import (
	"context"
	"sync"

	"libcirc/lending"
)

// TracingCollectorSpy captures span lifecycle calls for testing.
type TracingCollectorSpy struct {
	mu    sync.Mutex
	spans []*SpySpan
}

// SpySpan records a single span from start to finish.
type SpySpan struct {
	Name        string
	StartAttrs  map[string]string
	FinishAttrs map[string]string
	Status      string
	Finished    bool
}

// SetStatus implements the SpanContext interface.
func (s *SpySpan) SetStatus(status string) {
	s.Status = status
}

// AddAttribute implements the SpanContext interface.
func (s *SpySpan) AddAttribute(key, value string) {
	if s.FinishAttrs == nil {
		s.FinishAttrs = make(map[string]string)
	}

	s.FinishAttrs[key] = value
}

// NewTracingCollectorSpy creates a new TracingCollectorSpy.
func NewTracingCollectorSpy() *TracingCollectorSpy {
	return &TracingCollectorSpy{}
}

// StartSpan implements the TracingCollector interface.
func (s *TracingCollectorSpy) StartSpan(ctx context.Context, name string, attrs map[string]string) (context.Context, lending.SpanContext) {
	span := &SpySpan{Name: name, StartAttrs: copyLabels(attrs)}

	s.mu.Lock()
	s.spans = append(s.spans, span)
	s.mu.Unlock()

	return ctx, span
}

// FinishSpan implements the TracingCollector interface.
func (s *TracingCollectorSpy) FinishSpan(spanCtx lending.SpanContext, status string, attrs map[string]string) {
	span, ok := spanCtx.(*SpySpan)
	if !ok {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	span.Status = status
	span.Finished = true
	for k, v := range attrs {
		span.AddAttribute(k, v)
	}
}

// Spans returns a copy of the captured spans.
func (s *TracingCollectorSpy) Spans() []*SpySpan {
	s.mu.Lock()
	defer s.mu.Unlock()

	return append([]*SpySpan(nil), s.spans...)
}
