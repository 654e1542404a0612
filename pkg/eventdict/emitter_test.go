package eventdict

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/randalmurphal/eventdict/pkg/eventdict/config"
	"github.com/randalmurphal/eventdict/pkg/eventdict/observability"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

// recorder returns a listener that appends name to calls.
func recorder[T any](calls *[]string, name string) *FuncListener[T] {
	return Callback(func(T) { *calls = append(*calls, name) })
}

// sliceListener is not comparable because of its slice field.
type sliceListener struct {
	seen []int
}

func (l sliceListener) Handle(context.Context, int) error { return nil }

// listenerFunc is a func type, never comparable.
type listenerFunc func(context.Context, int) error

func (f listenerFunc) Handle(ctx context.Context, v int) error { return f(ctx, v) }

func TestEmit_DeliversInSubscriptionOrder(t *testing.T) {
	em := NewEmitter()
	ev := Declare[int]("counter")
	ctx := context.Background()

	var calls []string
	require.NoError(t, On(em, ev, recorder[int](&calls, "L1")))
	require.NoError(t, On(em, ev, recorder[int](&calls, "L2")))
	require.NoError(t, On(em, ev, recorder[int](&calls, "L3")))

	require.NoError(t, Emit(ctx, em, ev, 1))

	assert.Equal(t, []string{"L1", "L2", "L3"}, calls)
}

func TestEmit_PassesPayloadUnchanged(t *testing.T) {
	em := NewEmitter()
	ev := Declare[*taskAdded]("tasks.added")
	payload := &taskAdded{TaskID: "1", Text: "Eat cookies"}

	var got *taskAdded
	require.NoError(t, On(em, ev, Callback(func(p *taskAdded) { got = p })))
	require.NoError(t, Emit(context.Background(), em, ev, payload))

	assert.Same(t, payload, got)
}

func TestOn_Idempotent(t *testing.T) {
	em := NewEmitter()
	ev := Declare[int]("counter")

	var calls []string
	l := recorder[int](&calls, "L")
	require.NoError(t, On(em, ev, l))
	require.NoError(t, On(em, ev, l))

	assert.Equal(t, 1, em.ListenerCount(ev.Descriptor()))
	require.NoError(t, Emit(context.Background(), em, ev, 1))
	assert.Equal(t, []string{"L"}, calls)
}

func TestOn_SameFunctionTwiceWrappedIsTwoListeners(t *testing.T) {
	em := NewEmitter()
	ev := Declare[int]("counter")

	var n int
	fn := func(int) { n++ }
	require.NoError(t, On(em, ev, Callback(fn)))
	require.NoError(t, On(em, ev, Callback(fn)))

	require.NoError(t, Emit(context.Background(), em, ev, 1))
	assert.Equal(t, 2, n)
}

func TestOn_RejectsUnusableListeners(t *testing.T) {
	em := NewEmitter()
	ev := Declare[int]("counter")

	var typedNil *FuncListener[int]

	tests := []struct {
		name    string
		l       Listener[int]
		wantErr error
	}{
		{"nil interface", nil, ErrNilListener},
		{"typed nil pointer", typedNil, ErrNilListener},
		{"nil func", listenerFunc(nil), ErrNilListener},
		{"func value", listenerFunc(func(context.Context, int) error { return nil }), ErrListenerNotComparable},
		{"struct with slice", sliceListener{}, ErrListenerNotComparable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := On(em, ev, tt.l)
			assert.ErrorIs(t, err, tt.wantErr)
			assert.NotPanics(t, func() { Off(em, ev, tt.l) })
		})
	}

	assert.Equal(t, 0, em.ListenerCount(ev.Descriptor()))
	assert.Empty(t, em.IDs(), "rejected listeners never create an entry")
}

func TestOff_RemovesExactlyOne(t *testing.T) {
	em := NewEmitter()
	ev := Declare[int]("counter")

	var calls []string
	l1 := recorder[int](&calls, "L1")
	l2 := recorder[int](&calls, "L2")
	require.NoError(t, On(em, ev, l1))
	require.NoError(t, On(em, ev, l2))

	Off(em, ev, l1)

	require.NoError(t, Emit(context.Background(), em, ev, 1))
	assert.Equal(t, []string{"L2"}, calls)
	assert.Equal(t, 1, em.ListenerCount(ev.Descriptor()))
}

func TestOff_NoOps(t *testing.T) {
	em := NewEmitter()
	ev := Declare[int]("counter")
	var calls []string
	l := recorder[int](&calls, "L")

	t.Run("no entry", func(t *testing.T) {
		assert.NotPanics(t, func() { Off(em, ev, l) })
		assert.Empty(t, em.IDs())
	})

	t.Run("unknown listener", func(t *testing.T) {
		require.NoError(t, On(em, ev, l))
		Off(em, ev, recorder[int](&calls, "other"))
		assert.Equal(t, 1, em.ListenerCount(ev.Descriptor()))
	})

	t.Run("resubscribe after off", func(t *testing.T) {
		Off(em, ev, l)
		require.NoError(t, On(em, ev, l))
		require.NoError(t, Emit(context.Background(), em, ev, 1))
		assert.Equal(t, []string{"L"}, calls)
	})
}

func TestEmit_NoEntryIsNoop(t *testing.T) {
	em := NewEmitter()
	ev := Declare[int]("counter")

	require.NoError(t, Emit(context.Background(), em, ev, 1))
	assert.Empty(t, em.IDs())
}

func TestEmit_CrossDescriptorIsolation(t *testing.T) {
	em := NewEmitter()
	a := MustEventAt[taskAdded](Build(todoDecls()), "tasks", "added")
	b := MustEventAt[taskAdded](Build(todoDecls()), "tasks", "added")
	require.Equal(t, a.Path(), b.Path())

	var calls []string
	require.NoError(t, On(em, b, recorder[taskAdded](&calls, "B")))

	require.NoError(t, Emit(context.Background(), em, a, taskAdded{TaskID: "1"}))
	assert.Empty(t, calls)

	require.NoError(t, Emit(context.Background(), em, b, taskAdded{TaskID: "1"}))
	assert.Equal(t, []string{"B"}, calls)
}

func TestEmit_PathIsNotTheKey(t *testing.T) {
	em := NewEmitter()
	ev := Declare[int]("counter")
	moved := Event[int]{d: ev.Descriptor().WithPath("somewhere.else")}

	var calls []string
	require.NoError(t, On(em, ev, recorder[int](&calls, "L")))
	require.NoError(t, Emit(context.Background(), em, moved, 1))

	assert.Equal(t, []string{"L"}, calls)
}

func TestEmit_ListenerErrorAbortsDelivery(t *testing.T) {
	em := NewEmitter()
	ev := Declare[int]("counter")
	boom := errors.New("boom")

	var calls []string
	require.NoError(t, On(em, ev, recorder[int](&calls, "L1")))
	require.NoError(t, On(em, ev, Func(func(context.Context, int) error {
		calls = append(calls, "L2")
		return boom
	})))
	require.NoError(t, On(em, ev, recorder[int](&calls, "L3")))

	err := Emit(context.Background(), em, ev, 1)
	require.Error(t, err)

	assert.ErrorIs(t, err, boom)
	var lerr *ListenerError
	require.ErrorAs(t, err, &lerr)
	assert.Equal(t, 1, lerr.Index)
	assert.Equal(t, ev.ID(), lerr.EventID)
	assert.Equal(t, "counter", lerr.Path)
	assert.Equal(t, "event counter: listener 1: boom", lerr.Error())

	assert.Equal(t, []string{"L1", "L2"}, calls)
}

func TestEmit_PanicsPropagate(t *testing.T) {
	em := NewEmitter()
	ev := Declare[int]("counter")
	require.NoError(t, On(em, ev, Callback(func(int) { panic("listener panic") })))

	assert.PanicsWithValue(t, "listener panic", func() {
		_ = Emit(context.Background(), em, ev, 1)
	})
}

func TestEmit_SnapshotPolicy(t *testing.T) {
	ctx := context.Background()

	t.Run("listener added during emit runs next time", func(t *testing.T) {
		em := NewEmitter()
		ev := Declare[int]("counter")

		var calls []string
		late := recorder[int](&calls, "late")
		require.NoError(t, On(em, ev, Callback(func(int) {
			calls = append(calls, "adder")
			_ = On(em, ev, late)
		})))

		require.NoError(t, Emit(ctx, em, ev, 1))
		assert.Equal(t, []string{"adder"}, calls)

		calls = nil
		require.NoError(t, Emit(ctx, em, ev, 2))
		assert.Equal(t, []string{"adder", "late"}, calls)
	})

	t.Run("listener removed during emit still runs", func(t *testing.T) {
		em := NewEmitter()
		ev := Declare[int]("counter")

		var calls []string
		victim := recorder[int](&calls, "victim")
		require.NoError(t, On(em, ev, Callback(func(int) {
			calls = append(calls, "remover")
			Off(em, ev, victim)
		})))
		require.NoError(t, On(em, ev, victim))

		require.NoError(t, Emit(ctx, em, ev, 1))
		assert.Equal(t, []string{"remover", "victim"}, calls)

		calls = nil
		require.NoError(t, Emit(ctx, em, ev, 2))
		assert.Equal(t, []string{"remover"}, calls)
	})

	t.Run("listener removes itself", func(t *testing.T) {
		em := NewEmitter()
		ev := Declare[int]("counter")

		var n int
		var once *FuncListener[int]
		once = Callback(func(int) {
			n++
			Off(em, ev, once)
		})
		require.NoError(t, On(em, ev, once))

		require.NoError(t, Emit(ctx, em, ev, 1))
		require.NoError(t, Emit(ctx, em, ev, 2))
		assert.Equal(t, 1, n)
	})

	t.Run("listener emits recursively", func(t *testing.T) {
		em := NewEmitter()
		ev := Declare[int]("countdown")

		var seen []int
		require.NoError(t, On(em, ev, Func(func(ctx context.Context, v int) error {
			seen = append(seen, v)
			if v > 0 {
				return Emit(ctx, em, ev, v-1)
			}
			return nil
		})))

		require.NoError(t, Emit(ctx, em, ev, 3))
		assert.Equal(t, []int{3, 2, 1, 0}, seen)
	})
}

func TestEmit_NilInterfacePayload(t *testing.T) {
	em := NewEmitter()
	ev := Declare[error]("failed")

	called := false
	var got error = errors.New("sentinel")
	require.NoError(t, On(em, ev, Callback(func(err error) {
		called = true
		got = err
	})))

	require.NoError(t, Emit(context.Background(), em, ev, nil))
	assert.True(t, called)
	assert.NoError(t, got)
}

func TestEmitter_Untyped(t *testing.T) {
	ctx := context.Background()
	em := NewEmitter()
	ev := Declare[taskAdded]("tasks.added")
	d := ev.Descriptor()

	var typed []taskAdded
	require.NoError(t, On(em, ev, Callback(func(p taskAdded) { typed = append(typed, p) })))

	var untyped []any
	anyListener := Callback(func(p any) { untyped = append(untyped, p) })
	require.NoError(t, em.OnDescriptor(d, anyListener))

	t.Run("assignable payload reaches both", func(t *testing.T) {
		require.NoError(t, em.EmitDescriptor(ctx, d, taskAdded{TaskID: "1"}))
		assert.Equal(t, []taskAdded{{TaskID: "1"}}, typed)
		assert.Equal(t, []any{taskAdded{TaskID: "1"}}, untyped)
	})

	t.Run("mismatched payload is rejected before delivery", func(t *testing.T) {
		err := em.EmitDescriptor(ctx, d, "not a task")
		assert.ErrorIs(t, err, ErrPayloadMismatch)
		assert.Len(t, typed, 1)
		assert.Len(t, untyped, 1)
	})

	t.Run("nil payload becomes the zero value", func(t *testing.T) {
		require.NoError(t, em.EmitDescriptor(ctx, d, nil))
		assert.Equal(t, taskAdded{}, typed[len(typed)-1])
		assert.Nil(t, untyped[len(untyped)-1])
	})

	t.Run("off", func(t *testing.T) {
		em.OffDescriptor(d, anyListener)
		assert.Equal(t, 1, em.ListenerCount(d))
	})

	t.Run("named type is converted to the declared type", func(t *testing.T) {
		type fields map[string]any
		fev := Declare[map[string]any]("fields")

		var got []any
		require.NoError(t, em.OnDescriptor(fev.Descriptor(), Callback(func(p any) { got = append(got, p) })))
		var typedGot []map[string]any
		require.NoError(t, On(em, fev, Callback(func(p map[string]any) { typedGot = append(typedGot, p) })))

		require.NoError(t, em.EmitDescriptor(ctx, fev.Descriptor(), fields{"a": 1}))
		assert.Equal(t, []map[string]any{{"a": 1}}, typedGot)
		require.Len(t, got, 1)
		assert.IsType(t, map[string]any{}, got[0])
	})

	t.Run("interface payload type keeps the dynamic value", func(t *testing.T) {
		eev := Declare[error]("failure")
		var got []error
		require.NoError(t, On(em, eev, Callback(func(err error) { got = append(got, err) })))

		boom := errors.New("boom")
		require.NoError(t, em.EmitDescriptor(ctx, eev.Descriptor(), boom))
		assert.Equal(t, []error{boom}, got)
	})
}

func TestEmitter_Introspection(t *testing.T) {
	em := NewEmitter()
	d := Build(todoDecls())
	added := MustEventAt[taskAdded](d, "tasks", "added")
	removed := MustEventAt[string](d, "tasks", "removed")

	var calls []string
	require.NoError(t, On(em, added, recorder[taskAdded](&calls, "a")))
	require.NoError(t, On(em, removed, recorder[string](&calls, "r1")))
	require.NoError(t, On(em, removed, recorder[string](&calls, "r2")))

	assert.Equal(t, 1, em.ListenerCount(added.Descriptor()))
	assert.Equal(t, 2, em.ListenerCount(removed.Descriptor()))
	assert.Equal(t, 0, em.ListenerCount(Descriptor{}))

	ids := em.IDs()
	assert.ElementsMatch(t, []string{added.ID(), removed.ID()}, ids)
	assert.IsNonDecreasing(t, ids)

	em.Reset()
	assert.Empty(t, em.IDs())
	require.NoError(t, Emit(context.Background(), em, added, taskAdded{}))
	assert.Empty(t, calls)
}

func TestEmitter_Concurrent(t *testing.T) {
	em := NewEmitter()
	ev := Declare[int]("counter")
	ctx := context.Background()

	var total atomic.Int64
	stable := Callback(func(v int) { total.Add(int64(v)) })
	require.NoError(t, On(em, ev, stable))

	var wg sync.WaitGroup
	for range 8 {
		wg.Add(2)
		go func() {
			defer wg.Done()
			for range 100 {
				assert.NoError(t, Emit(ctx, em, ev, 1))
			}
		}()
		go func() {
			defer wg.Done()
			for range 100 {
				l := Callback(func(int) {})
				assert.NoError(t, On(em, ev, l))
				Off(em, ev, l)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int64(800), total.Load())
	assert.Equal(t, 1, em.ListenerCount(ev.Descriptor()))
}

func TestEmitter_Logging(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	em := NewEmitter(WithLogger(logger))
	ev := Declare[int]("counter")

	l := Func(func(context.Context, int) error { return errors.New("boom") })
	require.NoError(t, On(em, ev, l))
	require.Error(t, Emit(context.Background(), em, ev, 1))
	Off(em, ev, l)

	out := buf.String()
	assert.Contains(t, out, "listener subscribed")
	assert.Contains(t, out, "listener failed")
	assert.Contains(t, out, "event emitted")
	assert.Contains(t, out, "listener unsubscribed")
	assert.Contains(t, out, "event.path=counter")
	assert.Contains(t, out, "event.id="+ev.ID())
}

func TestEmitter_Tracing(t *testing.T) {
	exporter := tracetest.NewInMemoryExporter()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSyncer(exporter))
	t.Cleanup(func() { _ = tp.Shutdown(context.Background()) })

	em := NewEmitter(WithSpans(observability.NewSpanManagerFrom(tp)))
	ev := Declare[int]("counter")
	ctx := context.Background()

	fail := false
	require.NoError(t, On(em, ev, Func(func(context.Context, int) error {
		if fail {
			return errors.New("boom")
		}
		return nil
	})))

	require.NoError(t, Emit(ctx, em, ev, 1))
	fail = true
	require.Error(t, Emit(ctx, em, ev, 2))

	spans := exporter.GetSpans()
	require.Len(t, spans, 2)

	ok, failed := spans[0], spans[1]
	assert.Equal(t, observability.EmitSpanName, ok.Name)
	assert.Contains(t, ok.Attributes, attribute.String("event.id", ev.ID()))
	assert.Contains(t, ok.Attributes, attribute.String("event.path", "counter"))
	assert.Contains(t, ok.Attributes, attribute.Int("event.listeners", 1))
	assert.Equal(t, codes.Ok, ok.Status.Code)
	assert.Empty(t, ok.Events)
	assert.Equal(t, codes.Error, failed.Status.Code)

	var names []string
	for _, e := range failed.Events {
		names = append(names, e.Name)
	}
	assert.Contains(t, names, "listener.failed")
}

func TestEmitter_Metrics(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	t.Cleanup(func() { _ = mp.Shutdown(context.Background()) })

	recorder, err := observability.NewMetricsRecorderFrom(mp)
	require.NoError(t, err)

	em := NewEmitter(WithMetrics(recorder))
	ev := Declare[int]("counter")
	ctx := context.Background()

	l1 := Callback(func(int) {})
	l2 := Callback(func(int) {})
	require.NoError(t, On(em, ev, l1))
	require.NoError(t, On(em, ev, l2))
	Off(em, ev, l2)
	require.NoError(t, Emit(ctx, em, ev, 1))
	require.NoError(t, Emit(ctx, em, ev, 2))

	sums := collectSums(t, reader)
	assert.Equal(t, int64(2), sums["eventdict.emit.count"])
	assert.Equal(t, int64(2), sums["eventdict.listener.invocations"])
	assert.Equal(t, int64(1), sums["eventdict.subscriptions"])

	em.Reset()
	assert.Equal(t, int64(0), collectSums(t, reader)["eventdict.subscriptions"])
}

func TestEmitter_MetricsFollowSubscriptionPath(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	t.Cleanup(func() { _ = mp.Shutdown(context.Background()) })

	recorder, err := observability.NewMetricsRecorderFrom(mp)
	require.NoError(t, err)
	em := NewEmitter(WithMetrics(recorder))

	todo := Build(todoDecls())
	all := Combine(Dict{"todoApp": todo}, "")
	inner := MustEventAt[taskAdded](todo, "tasks", "added")
	outer := MustEventAt[taskAdded](all, "todoApp", "tasks", "added")

	l := Callback(func(taskAdded) {})
	require.NoError(t, On(em, inner, l))
	Off(em, outer, l)

	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			if m.Name != "eventdict.subscriptions" {
				continue
			}
			for _, dp := range m.Data.(metricdata.Sum[int64]).DataPoints {
				assert.Zero(t, dp.Value, "path %v", dp.Attributes.ToSlice())
			}
		}
	}
}

// collectSums totals every int64 sum instrument by name.
func collectSums(t *testing.T, reader sdkmetric.Reader) map[string]int64 {
	t.Helper()
	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))

	sums := map[string]int64{}
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			if s, ok := m.Data.(metricdata.Sum[int64]); ok {
				for _, dp := range s.DataPoints {
					sums[m.Name] += dp.Value
				}
			}
		}
	}
	return sums
}

func TestOptions_NilFallbacks(t *testing.T) {
	em := NewEmitter(WithMetrics(nil), WithSpans(nil), WithLogger(nil))

	assert.IsType(t, observability.NoopMetrics{}, em.metrics)
	assert.IsType(t, observability.NoopSpanManager{}, em.spans)
	assert.Nil(t, em.logger)
}

func TestOptionsFromConfig(t *testing.T) {
	tests := []struct {
		name        string
		data        map[string]any
		wantOpts    int
		wantLogger  bool
		wantMetrics bool
		wantSpans   bool
	}{
		{"empty", nil, 0, false, false, false},
		{"log only", map[string]any{"log": true}, 1, true, false, false},
		{
			"everything",
			map[string]any{"log": true, "metrics": true, "tracing": true},
			3, true, true, true,
		},
		{"disabled explicitly", map[string]any{"log": false, "metrics": false}, 0, false, false, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			opts := OptionsFromConfig(config.New(tt.data))
			require.Len(t, opts, tt.wantOpts)

			em := NewEmitter(opts...)
			assert.Equal(t, tt.wantLogger, em.logger != nil)
			_, noopMetrics := em.metrics.(observability.NoopMetrics)
			assert.Equal(t, tt.wantMetrics, !noopMetrics)
			_, noopSpans := em.spans.(observability.NoopSpanManager)
			assert.Equal(t, tt.wantSpans, !noopSpans)
		})
	}
}
