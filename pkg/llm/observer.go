package llm

import (
	"context"
	"log/slog"
	"time"
)

// Observer receives a notification after every provider call, successful or
// not. Implementations must not block.
type Observer interface {
	OnCall(ctx context.Context, event CallEvent)
}

// CallEvent contains all information about one provider call.
type CallEvent struct {
	Provider  string
	Model     string
	Messages  int
	PromptLen int // runes across all request messages

	// Response is nil when the call failed.
	Response *Response
	Error    error

	Duration  time.Duration
	StartedAt time.Time
}

// ObserverFunc is a convenience type for using a function as an Observer.
type ObserverFunc func(ctx context.Context, event CallEvent)

// OnCall implements Observer.
func (f ObserverFunc) OnCall(ctx context.Context, event CallEvent) {
	f(ctx, event)
}

// MultiObserver dispatches every event to each of its observers in order.
type MultiObserver struct {
	observers []Observer
}

// NewMultiObserver creates an observer that dispatches to multiple observers.
func NewMultiObserver(observers ...Observer) *MultiObserver {
	return &MultiObserver{observers: observers}
}

// OnCall dispatches the event to all registered observers.
func (m *MultiObserver) OnCall(ctx context.Context, event CallEvent) {
	for _, obs := range m.observers {
		obs.OnCall(ctx, event)
	}
}

// Add adds an observer to the multi-observer.
func (m *MultiObserver) Add(obs Observer) {
	m.observers = append(m.observers, obs)
}

// NewLogObserver logs each call on l: failures at WARN, successes at DEBUG.
func NewLogObserver(l *slog.Logger) Observer {
	return ObserverFunc(func(ctx context.Context, e CallEvent) {
		attrs := []any{
			"provider", e.Provider,
			"model", e.Model,
			"messages", e.Messages,
			"prompt_runes", e.PromptLen,
			"duration", e.Duration,
		}
		if e.Error != nil {
			l.WarnContext(ctx, "llm call failed", append(attrs, "error", e.Error)...)
			return
		}
		if r := e.Response; r != nil {
			attrs = append(attrs,
				"finish_reason", r.FinishReason,
				"input_tokens", r.Usage.InputTokens,
				"output_tokens", r.Usage.OutputTokens,
			)
		}
		l.DebugContext(ctx, "llm call", attrs...)
	})
}

// ObservedProvider wraps a Provider and reports every Execute to an Observer.
type ObservedProvider struct {
	Provider
	observer Observer
}

// Observe wraps p so that each call is reported to obs.
func Observe(p Provider, obs Observer) *ObservedProvider {
	return &ObservedProvider{Provider: p, observer: obs}
}

// Execute runs the wrapped provider and notifies the observer.
func (o *ObservedProvider) Execute(ctx context.Context, req Request) (*Response, error) {
	start := time.Now()
	resp, err := o.Provider.Execute(ctx, req)

	promptLen := 0
	for _, m := range req.Messages {
		promptLen += len([]rune(m.Content))
	}
	model := o.Provider.Model()
	if resp != nil && resp.Model != "" {
		model = resp.Model
	}

	o.observer.OnCall(ctx, CallEvent{
		Provider:  o.Provider.Name(),
		Model:     model,
		Messages:  len(req.Messages),
		PromptLen: promptLen,
		Response:  resp,
		Error:     err,
		Duration:  time.Since(start),
		StartedAt: start,
	})
	return resp, err
}
