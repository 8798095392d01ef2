package core

import (
	"brickcore/internal/infra/persistence/memory"
	"brickcore/pkg/domain"
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/patrickmn/go-cache"
	"github.com/rs/zerolog"
)

// Clock supplies timestamps to the service.
type Clock interface {
	Now() time.Time
}

// ClockFunc adapts a function to Clock. A nil ClockFunc uses the system
// time. Times are returned in UTC.
type ClockFunc func() time.Time

// Now implements Clock.
func (f ClockFunc) Now() time.Time {
	if f == nil {
		return time.Now().UTC()
	}
	return f().UTC()
}

// ServiceOption customises a Service.
type ServiceOption func(*serviceOptions)

type serviceOptions struct {
	store        SnapshotStore
	metrics      MetricsRecorder
	tracer       Tracer
	logger       zerolog.Logger
	scheme       *domain.URLScheme
	clock        Clock
	cacheTTL     time.Duration
	cacheCleanup time.Duration
}

func defaultServiceOptions() serviceOptions {
	return serviceOptions{
		metrics:      noopMetrics{},
		tracer:       noopTracer{},
		logger:       zerolog.Nop(),
		scheme:       domain.BrickLink(),
		clock:        ClockFunc(nil),
		cacheTTL:     10 * time.Minute,
		cacheCleanup: 30 * time.Minute,
	}
}

// WithStore sets the snapshot store. Without one the service keeps
// snapshots in memory.
func WithStore(store SnapshotStore) ServiceOption {
	return func(o *serviceOptions) {
		if store != nil {
			o.store = store
		}
	}
}

// WithMetrics sets the metrics recorder.
func WithMetrics(m MetricsRecorder) ServiceOption {
	return func(o *serviceOptions) {
		if m != nil {
			o.metrics = m
		}
	}
}

// WithTracer sets the tracer.
func WithTracer(t Tracer) ServiceOption {
	return func(o *serviceOptions) {
		if t != nil {
			o.tracer = t
		}
	}
}

// WithLogger sets the service logger.
func WithLogger(l zerolog.Logger) ServiceOption {
	return func(o *serviceOptions) { o.logger = l }
}

// WithURLScheme sets the scheme used by new inventories.
func WithURLScheme(s *domain.URLScheme) ServiceOption {
	return func(o *serviceOptions) {
		if s != nil {
			o.scheme = s
		}
	}
}

// WithClock sets the clock.
func WithClock(c Clock) ServiceOption {
	return func(o *serviceOptions) {
		if c != nil {
			o.clock = c
		}
	}
}

// WithCacheTTL configures the snapshot document cache. A zero ttl disables
// caching.
func WithCacheTTL(ttl, cleanup time.Duration) ServiceOption {
	return func(o *serviceOptions) {
		o.cacheTTL = ttl
		o.cacheCleanup = cleanup
	}
}

// Service owns one Inventory and serialises every access to it. It is the
// single writer for concurrent producers such as the ingest pipeline, and
// connects the inventory to a snapshot store.
type Service struct {
	mu      sync.Mutex
	inv     *Inventory
	store   SnapshotStore
	docs    *cache.Cache
	metrics MetricsRecorder
	tracer  Tracer
	logger  zerolog.Logger
	scheme  *domain.URLScheme
	clock   Clock
}

// NewService constructs a service with an empty inventory.
func NewService(opts ...ServiceOption) *Service {
	o := defaultServiceOptions()
	for _, opt := range opts {
		opt(&o)
	}
	if o.store == nil {
		o.store = memory.NewStore()
	}
	s := &Service{
		store:   o.store,
		metrics: o.metrics,
		tracer:  o.tracer,
		logger:  o.logger,
		scheme:  o.scheme,
		clock:   o.clock,
	}
	if o.cacheTTL > 0 {
		s.docs = cache.New(o.cacheTTL, o.cacheCleanup)
	}
	s.inv = NewInventory(Options{Scheme: s.scheme})
	return s
}

// Store returns the snapshot store.
func (s *Service) Store() SnapshotStore { return s.store }

// Scheme returns the URL scheme of the service inventories.
func (s *Service) Scheme() *domain.URLScheme { return s.scheme }

// Close releases the snapshot store.
func (s *Service) Close() error { return s.store.Close() }

// Push ingests one item request into the inventory.
func (s *Service) Push(ctx context.Context, cfg ItemConfig) (PushResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var res PushResult
	err := s.run(ctx, "push", func(context.Context) error {
		var err error
		res, err = s.inv.Push(cfg)
		if err != nil {
			return err
		}
		s.logger.Debug().
			Str("item", res.Item.IDString()).
			Int("instances", len(res.Instances)).
			Bool("merged", res.Merged).
			Int("cascaded", res.Cascaded).
			Msg("pushed item")
		s.observeInventory(ctx, res.Cascaded)
		return nil
	})
	return res, err
}

// PushAll ingests requests in order as one unit: when any request fails the
// inventory is left as it was before the call.
func (s *Service) PushAll(ctx context.Context, cfgs []ItemConfig) ([]PushResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var results []PushResult
	err := s.run(ctx, "push_all", func(ctx context.Context) error {
		results = make([]PushResult, 0, len(cfgs))
		cascaded := 0
		err := s.inv.atomic(func(*pushTxn) error {
			for i, cfg := range cfgs {
				if err := ctx.Err(); err != nil {
					return err
				}
				res, err := s.inv.Push(cfg)
				if err != nil {
					return fmt.Errorf("request %d: %w", i, err)
				}
				cascaded += res.Cascaded
				results = append(results, res)
			}
			return nil
		})
		if err != nil {
			results = nil
			return err
		}
		s.logger.Info().Int("requests", len(cfgs)).Int("cascaded", cascaded).Int("instances", s.inv.InstanceCount()).Msg("pushed batch")
		s.observeInventory(ctx, cascaded)
		return nil
	})
	return results, err
}

// Update runs fn against the inventory atomically: if fn fails every
// change it made is rolled back.
func (s *Service) Update(ctx context.Context, op string, fn func(*Inventory) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.run(ctx, op, func(ctx context.Context) error {
		var cascaded int
		err := s.inv.atomic(func(tx *pushTxn) error {
			if err := fn(s.inv); err != nil {
				return err
			}
			cascaded = tx.duplicates
			return nil
		})
		if err != nil {
			return err
		}
		s.observeInventory(ctx, cascaded)
		return nil
	})
}

// View runs fn with the inventory under the service lock. fn must not keep
// the inventory or its handles after returning.
func (s *Service) View(fn func(*Inventory) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return fn(s.inv)
}

// Reset replaces the inventory with an empty one.
func (s *Service) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.inv = NewInventory(Options{Scheme: s.scheme})
}

// Export serializes the current inventory.
func (s *Service) Export(ctx context.Context) (domain.Document, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var doc domain.Document
	err := s.run(ctx, "export", func(context.Context) error {
		doc = Serialize(s.inv)
		return nil
	})
	return doc, err
}

// Import replaces the inventory with one rebuilt from doc.
func (s *Service) Import(ctx context.Context, doc domain.Document) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.run(ctx, "import", func(ctx context.Context) error {
		inv, err := Deserialize(doc, Options{Scheme: s.scheme})
		if err != nil {
			return err
		}
		s.inv = inv
		s.observeInventory(ctx, 0)
		return nil
	})
}

// Verify checks that the inventory survives a serialize/deserialize round
// trip unchanged.
func (s *Service) Verify(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.run(ctx, "verify", func(context.Context) error { return Verify(s.inv) })
}

// Save stores the inventory as snapshot name.
func (s *Service) Save(ctx context.Context, name string) (domain.SnapshotInfo, error) {
	if name == "" {
		return domain.SnapshotInfo{}, errors.New("snapshot name required")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	var info domain.SnapshotInfo
	err := s.run(ctx, "save", func(ctx context.Context) error {
		doc := Serialize(s.inv)
		var err error
		info, err = s.store.Save(ctx, name, doc)
		if err != nil {
			return fmt.Errorf("save snapshot %s: %w", name, err)
		}
		s.cacheDocument(name, doc)
		s.logger.Info().Str("snapshot", name).Int("items", info.Items).Int("instances", info.Instances).Msg("saved snapshot")
		return nil
	})
	return info, err
}

// Load replaces the inventory with snapshot name.
func (s *Service) Load(ctx context.Context, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.run(ctx, "load", func(ctx context.Context) error {
		doc, err := s.document(ctx, name)
		if err != nil {
			return err
		}
		inv, err := Deserialize(doc, Options{Scheme: s.scheme})
		if err != nil {
			return fmt.Errorf("restore snapshot %s: %w", name, err)
		}
		s.inv = inv
		s.logger.Info().Str("snapshot", name).Int("items", inv.Len()).Int("instances", inv.InstanceCount()).Msg("loaded snapshot")
		s.observeInventory(ctx, 0)
		return nil
	})
}

// Document returns the record stream of snapshot name, from the cache when
// possible.
func (s *Service) Document(ctx context.Context, name string) (domain.Document, error) {
	var doc domain.Document
	err := s.run(ctx, "document", func(ctx context.Context) error {
		var err error
		doc, err = s.document(ctx, name)
		return err
	})
	return doc, err
}

func (s *Service) document(ctx context.Context, name string) (domain.Document, error) {
	if s.docs != nil {
		if v, ok := s.docs.Get(name); ok {
			return memory.CloneDocument(v.(domain.Document)), nil
		}
	}
	doc, err := s.store.Load(ctx, name)
	if err != nil {
		return domain.Document{}, err
	}
	s.cacheDocument(name, doc)
	return doc, nil
}

func (s *Service) cacheDocument(name string, doc domain.Document) {
	if s.docs != nil {
		s.docs.Set(name, memory.CloneDocument(doc), cache.DefaultExpiration)
	}
}

// Snapshots lists stored snapshots ordered by name.
func (s *Service) Snapshots(ctx context.Context) ([]domain.SnapshotInfo, error) {
	var out []domain.SnapshotInfo
	err := s.run(ctx, "snapshots", func(ctx context.Context) error {
		var err error
		out, err = s.store.List(ctx)
		return err
	})
	return out, err
}

// Stats reports the current inventory size.
func (s *Service) Stats() InventoryStats {
	s.mu.Lock()
	defer s.mu.Unlock()
	return InventoryStats{Items: s.inv.Len(), Instances: s.inv.InstanceCount()}
}

func (s *Service) observeInventory(ctx context.Context, cascaded int) {
	s.metrics.ObserveInventory(ctx, InventoryStats{Items: s.inv.Len(), Instances: s.inv.InstanceCount(), Cascaded: cascaded})
}

// run wraps an operation with tracing, metrics and logging.
func (s *Service) run(ctx context.Context, op string, fn func(context.Context) error) error {
	ctx, span := s.tracer.Start(ctx, op)
	start := s.clock.Now()
	err := fn(ctx)
	elapsed := s.clock.Now().Sub(start)
	s.metrics.Observe(ctx, op, err == nil, elapsed)
	span.End(err)
	if err != nil {
		s.logger.Warn().Err(err).Str("op", op).Dur("duration", elapsed).Msg("operation failed")
	} else {
		s.logger.Debug().Str("op", op).Dur("duration", elapsed).Msg("operation complete")
	}
	return err
}
