package core

import (
	"context"
	"expvar"
	"fmt"
	"io"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
)

var expvarSeq atomic.Uint64

// ExpvarMetricsRecorder publishes per-operation totals, cascade counts and
// the latest inventory size under one expvar name. It suits processes that
// expose /debug/vars instead of a Prometheus endpoint.
type ExpvarMetricsRecorder struct {
	name string

	mu        sync.Mutex
	ops       map[string]*opTotals
	cascaded  int64
	inventory InventoryStats
}

type opTotals struct {
	totalMS  float64
	success  int64
	failures int64
}

// ExpvarMetricsSnapshot is a copy of the recorded metrics.
type ExpvarMetricsSnapshot struct {
	DurationsMS   map[string]float64          `json:"durations_ms_total"`
	Results       map[string]map[string]int64 `json:"results_total"`
	CascadedTotal int64                       `json:"cascaded_total"`
	Items         int                         `json:"items"`
	Instances     int                         `json:"instances"`
	RecordedAt    time.Time                   `json:"recorded_at"`
}

// NewExpvarMetricsRecorder publishes a recorder under name, or under a
// generated brickcore_service_metrics_N name when name is empty. expvar
// names are process global, so a name may be used once.
func NewExpvarMetricsRecorder(name string) *ExpvarMetricsRecorder {
	if name == "" {
		name = fmt.Sprintf("brickcore_service_metrics_%d", expvarSeq.Add(1))
	}
	rec := &ExpvarMetricsRecorder{name: name, ops: make(map[string]*opTotals)}
	expvar.Publish(name, expvar.Func(func() any { return rec.Snapshot() }))
	return rec
}

// Name returns the expvar name.
func (r *ExpvarMetricsRecorder) Name() string { return r.name }

// Snapshot copies the current totals.
func (r *ExpvarMetricsRecorder) Snapshot() ExpvarMetricsSnapshot {
	r.mu.Lock()
	defer r.mu.Unlock()
	snap := ExpvarMetricsSnapshot{
		DurationsMS:   make(map[string]float64, len(r.ops)),
		Results:       make(map[string]map[string]int64, len(r.ops)),
		CascadedTotal: r.cascaded,
		Items:         r.inventory.Items,
		Instances:     r.inventory.Instances,
		RecordedAt:    time.Now().UTC(),
	}
	for op, t := range r.ops {
		snap.DurationsMS[op] = t.totalMS
		counts := map[string]int64{}
		if t.success > 0 {
			counts["success"] = t.success
		}
		if t.failures > 0 {
			counts["error"] = t.failures
		}
		snap.Results[op] = counts
	}
	return snap
}

// Observe adds one operation outcome. Unnamed operations are ignored.
func (r *ExpvarMetricsRecorder) Observe(_ context.Context, operation string, success bool, duration time.Duration) {
	if operation == "" {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.ops[operation]
	if !ok {
		t = &opTotals{}
		r.ops[operation] = t
	}
	t.totalMS += float64(duration) / float64(time.Millisecond)
	if success {
		t.success++
	} else {
		t.failures++
	}
}

// ObserveInventory keeps the latest size and accumulates cascade copies.
func (r *ExpvarMetricsRecorder) ObserveInventory(_ context.Context, stats InventoryStats) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.cascaded += int64(stats.Cascaded)
	r.inventory = stats
}

// JSONTraceEntry is one finished span.
type JSONTraceEntry struct {
	Operation  string
	Status     string
	DurationMS float64
	Error      string
	StartedAt  time.Time
	EndedAt    time.Time
}

// JSONTraceTracer keeps finished spans in memory and, when given a writer,
// logs each one as a zerolog JSON line.
type JSONTraceTracer struct {
	mu      sync.Mutex
	entries []JSONTraceEntry
	out     *zerolog.Logger
}

// NewJSONTracer returns a tracer logging spans to w. A nil w only retains
// them.
func NewJSONTracer(w io.Writer) *JSONTraceTracer {
	t := &JSONTraceTracer{}
	if w != nil {
		l := zerolog.New(w).With().Str("kind", "span").Logger()
		t.out = &l
	}
	return t
}

// Entries returns the finished spans in completion order.
func (t *JSONTraceTracer) Entries() []JSONTraceEntry {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]JSONTraceEntry(nil), t.entries...)
}

// Start implements Tracer.
func (t *JSONTraceTracer) Start(ctx context.Context, operation string) (context.Context, TraceSpan) {
	return ctx, &jsonTraceSpan{tracer: t, operation: operation, started: time.Now().UTC()}
}

func (t *JSONTraceTracer) finish(e JSONTraceEntry) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.entries = append(t.entries, e)
	if t.out == nil {
		return
	}
	ev := t.out.Log().
		Str("operation", e.Operation).
		Str("status", e.Status).
		Float64("duration_ms", e.DurationMS).
		Time("started_at", e.StartedAt).
		Time("ended_at", e.EndedAt)
	if e.Error != "" {
		ev = ev.Str("error", e.Error)
	}
	ev.Send()
}

type jsonTraceSpan struct {
	tracer    *JSONTraceTracer
	operation string
	started   time.Time
}

func (s *jsonTraceSpan) End(err error) {
	ended := time.Now().UTC()
	e := JSONTraceEntry{
		Operation:  s.operation,
		Status:     "success",
		DurationMS: float64(ended.Sub(s.started)) / float64(time.Millisecond),
		StartedAt:  s.started,
		EndedAt:    ended,
	}
	if err != nil {
		e.Status = "error"
		e.Error = err.Error()
	}
	s.tracer.finish(e)
}
