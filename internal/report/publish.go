package report

import (
	"brickcore/internal/blob"
	"brickcore/internal/core"
	"bytes"
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Artifact extensions and content types.
const (
	ExtJSON     = "json"
	ExtYAML     = "yaml"
	ExtTree     = "txt"
	ExtMarkdown = "md"
)

var contentTypes = map[string]string{
	ExtJSON:     "application/json",
	ExtYAML:     "application/yaml",
	ExtTree:     "text/plain; charset=utf-8",
	ExtMarkdown: "text/markdown; charset=utf-8",
}

// Publication lists the artifacts written by one Publish call; they share ID.
type Publication struct {
	ID       uuid.UUID
	Document blob.Info
	Tree     blob.Info
	Outline  blob.Info
}

// Publisher writes inventory artifacts to a blob store under
// exports/{snapshot}/{uuid}.{ext}.
type Publisher struct {
	store   blob.Store
	logger  zerolog.Logger
	newID   func() uuid.UUID
	now     func() time.Time
	outline OutlineOptions
}

// PublisherOption customises a Publisher.
type PublisherOption func(*Publisher)

// WithPublisherLogger sets the logger for publish events.
func WithPublisherLogger(l zerolog.Logger) PublisherOption {
	return func(p *Publisher) { p.logger = l }
}

// WithIDGenerator replaces uuid.New.
func WithIDGenerator(fn func() uuid.UUID) PublisherOption {
	return func(p *Publisher) {
		if fn != nil {
			p.newID = fn
		}
	}
}

// WithPublisherClock sets the clock stamped into artifact metadata.
func WithPublisherClock(fn func() time.Time) PublisherOption {
	return func(p *Publisher) {
		if fn != nil {
			p.now = fn
		}
	}
}

// WithOutlineOptions sets the options for the published outline.
func WithOutlineOptions(opts OutlineOptions) PublisherOption {
	return func(p *Publisher) { p.outline = opts }
}

// NewPublisher returns a publisher writing to store.
func NewPublisher(store blob.Store, opts ...PublisherOption) *Publisher {
	p := &Publisher{
		store:   store,
		logger:  zerolog.Nop(),
		newID:   uuid.New,
		now:     func() time.Time { return time.Now().UTC() },
		outline: OutlineOptions{ByKind: true},
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Key returns the blob key of one artifact.
func Key(snapshot string, id uuid.UUID, ext string) string {
	return fmt.Sprintf("exports/%s/%s.%s", snapshot, id, ext)
}

// Publish writes the serialized document, the text tree and the outline of
// inv for snapshot.
func (p *Publisher) Publish(ctx context.Context, snapshot string, inv *core.Inventory) (Publication, error) {
	if err := validSnapshot(snapshot); err != nil {
		return Publication{}, err
	}
	pub := Publication{ID: p.newID()}

	var doc bytes.Buffer
	if err := core.EncodeDocument(&doc, core.Serialize(inv), core.FormatJSON); err != nil {
		return Publication{}, err
	}
	var tree bytes.Buffer
	if err := WriteTree(&tree, inv); err != nil {
		return Publication{}, err
	}
	var err error
	if pub.Document, err = p.put(ctx, snapshot, pub.ID, ExtJSON, doc.Bytes()); err != nil {
		return Publication{}, err
	}
	if pub.Tree, err = p.put(ctx, snapshot, pub.ID, ExtTree, tree.Bytes()); err != nil {
		return Publication{}, err
	}
	if pub.Outline, err = p.put(ctx, snapshot, pub.ID, ExtMarkdown, []byte(Outline(inv, p.outline))); err != nil {
		return Publication{}, err
	}
	p.logger.Info().Str("snapshot", snapshot).Str("publication", pub.ID.String()).
		Str("driver", string(p.store.Driver())).Msg("artifacts published")
	return pub, nil
}

// Put writes a single artifact under a fresh id.
func (p *Publisher) Put(ctx context.Context, snapshot, ext string, body []byte) (blob.Info, error) {
	if err := validSnapshot(snapshot); err != nil {
		return blob.Info{}, err
	}
	info, err := p.put(ctx, snapshot, p.newID(), ext, body)
	if err != nil {
		return blob.Info{}, err
	}
	p.logger.Info().Str("snapshot", snapshot).Str("key", info.Key).Msg("artifact published")
	return info, nil
}

// List returns the artifacts published for snapshot.
func (p *Publisher) List(ctx context.Context, snapshot string) ([]blob.Info, error) {
	if err := validSnapshot(snapshot); err != nil {
		return nil, err
	}
	return p.store.List(ctx, "exports/"+snapshot+"/")
}

func (p *Publisher) put(ctx context.Context, snapshot string, id uuid.UUID, ext string, body []byte) (blob.Info, error) {
	ct, ok := contentTypes[ext]
	if !ok {
		return blob.Info{}, fmt.Errorf("unknown artifact extension %q", ext)
	}
	key := Key(snapshot, id, ext)
	info, err := p.store.Put(ctx, key, bytes.NewReader(body), blob.PutOptions{
		ContentType: ct,
		Metadata: map[string]string{
			"snapshot":     snapshot,
			"publication":  id.String(),
			"published-at": p.now().Format(time.RFC3339),
		},
	})
	if err != nil {
		return blob.Info{}, fmt.Errorf("publish %s: %w", key, err)
	}
	return info, nil
}

func validSnapshot(name string) error {
	if strings.TrimSpace(name) == "" || name == "." || name == ".." || strings.ContainsAny(name, `/\`) {
		return fmt.Errorf("invalid snapshot name %q", name)
	}
	return nil
}
