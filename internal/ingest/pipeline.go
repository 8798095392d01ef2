package ingest

import (
	"brickcore/internal/core"
	"brickcore/pkg/domain"
	"context"
	"fmt"
	"runtime"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

// Summary counts what a run added to the inventory.
type Summary struct {
	Files     int
	Requests  int
	Merged    int
	Instances int // every instance created, cascade copies included
	Cascaded  int
}

// Pipeline parses batch files and applies them to a service.
type Pipeline struct {
	svc     *core.Service
	logger  zerolog.Logger
	workers int
}

// Option customises a Pipeline.
type Option func(*Pipeline)

// WithLogger sets the pipeline logger.
func WithLogger(l zerolog.Logger) Option { return func(p *Pipeline) { p.logger = l } }

// WithWorkers bounds concurrent file parsing (default GOMAXPROCS).
func WithWorkers(n int) Option {
	return func(p *Pipeline) {
		if n > 0 {
			p.workers = n
		}
	}
}

// NewPipeline returns a pipeline pushing into svc.
func NewPipeline(svc *core.Service, opts ...Option) *Pipeline {
	p := &Pipeline{svc: svc, logger: zerolog.Nop(), workers: runtime.GOMAXPROCS(0)}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Run parses paths concurrently and applies them in argument order.
func (p *Pipeline) Run(ctx context.Context, paths ...string) (Summary, error) {
	batches, err := p.ParseFiles(ctx, paths...)
	if err != nil {
		return Summary{}, err
	}
	return p.Apply(ctx, batches...)
}

// ParseFiles decodes every path; the result keeps argument order.
func (p *Pipeline) ParseFiles(ctx context.Context, paths ...string) ([]Batch, error) {
	batches := make([]Batch, len(paths))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(p.workers)
	for i, path := range paths {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			b, err := ParseFile(path)
			if err != nil {
				return err
			}
			batches[i] = b
			p.logger.Debug().Str("file", path).Int("requests", len(b.Items)).Msg("batch parsed")
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return batches, nil
}

// Apply pushes every request of every batch inside one service update.
func (p *Pipeline) Apply(ctx context.Context, batches ...Batch) (Summary, error) {
	start := time.Now()
	var sum Summary
	err := p.svc.Update(ctx, "ingest", func(inv *core.Inventory) error {
		sum = Summary{}
		for _, b := range batches {
			if err := ctx.Err(); err != nil {
				return err
			}
			if err := applyBatch(inv, b, &sum); err != nil {
				return err
			}
			sum.Files++
		}
		return nil
	})
	if err != nil {
		p.logger.Warn().Err(err).Int("files", len(batches)).Msg("ingest rejected")
		return Summary{}, err
	}
	p.logger.Info().
		Int("files", sum.Files).
		Int("requests", sum.Requests).
		Int("merged", sum.Merged).
		Int("instances", sum.Instances).
		Int("cascaded", sum.Cascaded).
		Dur("duration", time.Since(start)).
		Msg("ingest applied")
	return sum, nil
}

func applyBatch(inv *core.Inventory, b Batch, sum *Summary) error {
	refs := make(map[string]core.Instance)
	for i, req := range b.Items {
		if err := applyRequest(inv, req, refs, sum); err != nil {
			return fmt.Errorf("%s: item %d (%s): %w", sourceName(b), i, req.label(), err)
		}
		sum.Requests++
	}
	return nil
}

// applyRequest pushes one request through Inventory.Push, which inserts a
// new item with all its bundles or merges exactly one bundle into an
// existing item.
func applyRequest(inv *core.Inventory, req ItemRequest, refs map[string]core.Instance, sum *Summary) error {
	cfg, err := req.itemConfig()
	if err != nil {
		return err
	}
	for i, inst := range req.Instances {
		if inst.Parent == "" {
			continue
		}
		parent, ok := refs[inst.Parent]
		if !ok {
			if parent, ok = inv.FindInstanceByID(inst.Parent); !ok {
				return domain.NotFound("parent", inst.Parent)
			}
		}
		cfg.Instances[i].Parent = parent
	}

	res, err := inv.Push(cfg)
	if err != nil {
		return err
	}
	for i, inst := range req.Instances {
		if inst.Ref == "" {
			continue
		}
		if _, dup := refs[inst.Ref]; dup {
			return fmt.Errorf("%w: ref %q defined twice", domain.ErrInvalidBatch, inst.Ref)
		}
		refs[inst.Ref] = res.Instances[i]
	}
	if res.Merged {
		sum.Merged++
	}
	sum.Instances += len(res.Instances) + res.Cascaded
	sum.Cascaded += res.Cascaded
	return nil
}

func sourceName(b Batch) string {
	if b.Source == "" {
		return "batch"
	}
	return b.Source
}
