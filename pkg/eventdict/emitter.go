package eventdict

import (
	"context"
	"fmt"
	"log/slog"
	"reflect"
	"slices"
	"sync"

	"github.com/randalmurphal/eventdict/pkg/eventdict/observability"
	"github.com/randalmurphal/eventdict/pkg/eventdict/registry"
	"go.opentelemetry.io/otel/attribute"
)

// Emitter delivers payloads to listeners keyed by descriptor id.
//
// Delivery is synchronous: Emit returns after every listener has run or one
// has failed. Listeners run in subscription order. An Emitter is safe for
// concurrent use.
type Emitter struct {
	entries *registry.Registry[string, *entry]

	logger  *slog.Logger
	metrics observability.MetricsRecorder
	spans   observability.SpanManager
}

// entry holds the listeners of one descriptor id.
type entry struct {
	mu        sync.Mutex
	listeners []subscriber
}

func newEntry() *entry {
	return &entry{}
}

// subscriber pairs a listener's identity with a type-erased call.
// path is the display path the subscription was counted under.
type subscriber struct {
	key  any
	path string
	call func(ctx context.Context, payload any) error
}

// NewEmitter creates an emitter with no listeners.
func NewEmitter(opts ...Option) *Emitter {
	e := &Emitter{
		entries: registry.New[string, *entry](),
		metrics: observability.NoopMetrics{},
		spans:   observability.NoopSpanManager{},
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// On subscribes l to ev. Subscribing the same listener twice is a no-op.
func On[T any](e *Emitter, ev Event[T], l Listener[T]) error {
	key, err := listenerKey(l)
	if err != nil {
		return err
	}
	e.subscribe(ev.d, subscriber{key: key, call: typedCall(l)})
	return nil
}

// Off unsubscribes l from ev. Unknown listeners are ignored.
func Off[T any](e *Emitter, ev Event[T], l Listener[T]) {
	key, err := listenerKey(l)
	if err != nil {
		return
	}
	e.unsubscribe(ev.d, key)
}

// Emit delivers payload to every listener of ev, in subscription order.
//
// The listener list is captured before the first call: listeners added while
// Emit runs are not called, and listeners removed while it runs still are.
// The first listener error stops delivery and is returned as *ListenerError.
func Emit[T any](ctx context.Context, e *Emitter, ev Event[T], payload T) error {
	return e.emit(ctx, ev.d, payload)
}

// OnDescriptor subscribes an untyped listener. The listener receives the
// payload exactly as it was passed to Emit.
func (e *Emitter) OnDescriptor(d Descriptor, l Listener[any]) error {
	key, err := listenerKey(l)
	if err != nil {
		return err
	}
	e.subscribe(d, subscriber{key: key, call: l.Handle})
	return nil
}

// OffDescriptor removes a listener added with OnDescriptor.
func (e *Emitter) OffDescriptor(d Descriptor, l Listener[any]) {
	key, err := listenerKey(l)
	if err != nil {
		return
	}
	e.unsubscribe(d, key)
}

// EmitDescriptor is the untyped form of Emit. A non-nil payload must be
// assignable to the descriptor's payload type, otherwise ErrPayloadMismatch
// is returned and no listener runs. Assignable payloads are delivered
// converted to the declared type. A nil payload reaches typed listeners as
// the zero value.
func (e *Emitter) EmitDescriptor(ctx context.Context, d Descriptor, payload any) error {
	if payload != nil && d.payloadType != nil {
		got := reflect.TypeOf(payload)
		if !got.AssignableTo(d.payloadType) {
			return fmt.Errorf("emit %s: %w: want %s, got %s", d.displayPath(), ErrPayloadMismatch, d.payloadType, got)
		}
		// A named type sharing the declared underlying type is assignable
		// but would fail the typed listeners' assertion.
		if got != d.payloadType && d.payloadType.Kind() != reflect.Interface {
			payload = reflect.ValueOf(payload).Convert(d.payloadType).Interface()
		}
	}
	return e.emit(ctx, d, payload)
}

// ListenerCount returns the number of listeners subscribed to d.
func (e *Emitter) ListenerCount(d Descriptor) int {
	ent, ok := e.entries.Get(d.id)
	if !ok {
		return 0
	}
	ent.mu.Lock()
	defer ent.mu.Unlock()
	return len(ent.listeners)
}

// IDs returns the ids of every descriptor that has ever had a listener,
// sorted. Entries stay after their last listener is removed.
func (e *Emitter) IDs() []string {
	return e.entries.Keys()
}

// Reset drops every entry. Intended for tests and teardown.
// Subscriptions dropped this way are retracted from the metrics.
func (e *Emitter) Reset() {
	ctx := context.Background()
	e.entries.Range(func(_ string, ent *entry) bool {
		ent.mu.Lock()
		dropped := ent.listeners
		ent.listeners = nil
		ent.mu.Unlock()
		for _, s := range dropped {
			e.metrics.RecordSubscription(ctx, s.path, -1)
		}
		return true
	})
	e.entries.Clear()
}

func (e *Emitter) subscribe(d Descriptor, s subscriber) {
	ent := e.entries.GetOrCreate(d.id, newEntry)
	s.path = d.displayPath()

	ent.mu.Lock()
	if slices.ContainsFunc(ent.listeners, func(x subscriber) bool { return x.key == s.key }) {
		ent.mu.Unlock()
		return
	}
	ent.listeners = append(ent.listeners, s)
	n := len(ent.listeners)
	ent.mu.Unlock()

	observability.LogSubscribe(e.logger, s.path, n)
	e.metrics.RecordSubscription(context.Background(), s.path, 1)
}

func (e *Emitter) unsubscribe(d Descriptor, key any) {
	ent, ok := e.entries.Get(d.id)
	if !ok {
		return
	}

	ent.mu.Lock()
	i := slices.IndexFunc(ent.listeners, func(x subscriber) bool { return x.key == key })
	if i < 0 {
		ent.mu.Unlock()
		return
	}
	removed := ent.listeners[i]
	// Emit works on a clone, so deleting in place is safe.
	ent.listeners = slices.Delete(ent.listeners, i, i+1)
	n := len(ent.listeners)
	ent.mu.Unlock()

	observability.LogUnsubscribe(e.logger, d.displayPath(), n)
	e.metrics.RecordSubscription(context.Background(), removed.path, -1)
}

func (e *Emitter) emit(ctx context.Context, d Descriptor, payload any) (err error) {
	ent, ok := e.entries.Get(d.id)
	if !ok {
		return nil
	}

	ent.mu.Lock()
	snapshot := slices.Clone(ent.listeners)
	ent.mu.Unlock()

	path := d.displayPath()
	ctx, span := e.spans.StartEmitSpan(ctx, d.id, path, len(snapshot))
	defer func() { e.spans.EndSpanWithError(span, err) }()

	done := observability.TimedOperation()
	invoked := 0
	for i, s := range snapshot {
		invoked++
		if lerr := s.call(ctx, payload); lerr != nil {
			observability.LogListenerError(observability.EnrichLogger(e.logger, d.id, path), i, lerr)
			e.spans.AddSpanEvent(ctx, "listener.failed",
				attribute.Int("listener", i),
				attribute.String("error", lerr.Error()),
			)
			err = &ListenerError{EventID: d.id, Path: path, Index: i, Err: lerr}
			break
		}
	}

	elapsed := done()
	e.metrics.RecordEmit(ctx, path, invoked, elapsed, err)
	observability.LogEmit(e.logger, path, invoked, observability.Milliseconds(elapsed))
	return err
}

// typedCall erases T from l. The payload always arrives as the T passed to
// Emit, or as a value checked by EmitDescriptor.
func typedCall[T any](l Listener[T]) func(context.Context, any) error {
	return func(ctx context.Context, payload any) error {
		if payload == nil {
			var zero T
			return l.Handle(ctx, zero)
		}
		v, ok := payload.(T)
		if !ok {
			return fmt.Errorf("%w: listener wants %s, got %T", ErrPayloadMismatch, reflect.TypeFor[T](), payload)
		}
		return l.Handle(ctx, v)
	}
}
