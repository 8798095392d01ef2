package core

import (
	"brickcore/pkg/domain"
	"fmt"
	"strings"
)

type itemNode struct {
	serial      uint64
	id          domain.Identity
	idString    string
	category    []string
	description string
	notes       string
	sourceURL   string
	instances   InstanceCollection
}

// ItemConfig is an ingestion request: an identity (or a source URL that
// resolves to one), item metadata and instance bundles.
type ItemConfig struct {
	Identity    domain.Identity // used when Num is set; Kind defaults to domain.KindUnknown
	SourceURL   string          // resolved through the inventory URL scheme when Identity.Num is empty
	Category    []string        // default ["Catalog", <kind category>, "User Added Item"]
	Description string          // default ""
	Notes       string          // default ""
	Instances   []InstanceConfig
}

// resolveIdentity returns the request identity.
func (cfg ItemConfig) resolveIdentity(scheme *domain.URLScheme) (domain.Identity, error) {
	id := cfg.Identity
	if strings.TrimSpace(id.Num) == "" && cfg.SourceURL != "" {
		parsed, err := scheme.ParseSourceURL(cfg.SourceURL)
		if err != nil {
			return domain.Identity{}, err
		}
		id = parsed
	}
	if id.Kind == "" {
		id.Kind = domain.KindUnknown
	}
	id.Num = strings.TrimSpace(id.Num)
	if err := id.Validate(); err != nil {
		return domain.Identity{}, err
	}
	return id, nil
}

// bundles returns the instance bundles, substituting one default bundle for
// an empty list.
func (cfg ItemConfig) bundles() []InstanceConfig {
	if len(cfg.Instances) == 0 {
		return []InstanceConfig{{Section: domain.SectionUnknown}}
	}
	return cfg.Instances
}

// DefaultCategory returns the category path assigned to items of kind that
// were ingested without one.
func DefaultCategory(scheme *domain.URLScheme, kind domain.ItemKind) []string {
	return []string{domain.CatalogRoot, scheme.CategoryName(kind), domain.DefaultCategoryLeaf}
}

// CatalogItem is a read-only handle to a catalog item stored in an Inventory.
// Like Instance handles, item handles from a rolled-back push are stale.
type CatalogItem struct {
	inv    *Inventory
	slot   int
	serial uint64
}

// IsZero reports whether the handle refers to no item.
func (c CatalogItem) IsZero() bool { return c.inv == nil }

// Valid reports whether the handle still refers to a live item.
func (c CatalogItem) Valid() bool {
	if c.inv == nil {
		return false
	}
	_, err := c.inv.resolveItem(c)
	return err == nil
}

func (c CatalogItem) node() *itemNode {
	if !c.Valid() {
		panic(fmt.Sprintf("core: stale item handle #%d", c.slot))
	}
	return c.inv.items[c.slot]
}

// Identity returns the item identity.
func (c CatalogItem) Identity() domain.Identity { return c.node().id }

// IDString returns the canonical item key.
func (c CatalogItem) IDString() string { return c.node().idString }

// Category returns a copy of the category path.
func (c CatalogItem) Category() []string { return append([]string(nil), c.node().category...) }

// CategoryPath joins the category path with " > ".
func (c CatalogItem) CategoryPath() string { return strings.Join(c.node().category, " > ") }

// Description returns the catalog description.
func (c CatalogItem) Description() string { return c.node().description }

// Notes returns the item notes.
func (c CatalogItem) Notes() string { return c.node().notes }

// SourceURL returns the URL the item was ingested from.
func (c CatalogItem) SourceURL() string { return c.node().sourceURL }

// Instances returns the item's occurrences in push order.
func (c CatalogItem) Instances() *InstanceCollection { return &c.node().instances }

// DisplayName returns "Set 6990-1" or "Part 3001 C5".
func (c CatalogItem) DisplayName() string { return c.node().id.DisplayName() }

// Anchor returns the outline anchor of the item.
func (c CatalogItem) Anchor() string { return Anchor(c.DisplayName()) }

// CatalogURL returns the catalog inventory page, or "" for kinds without one.
func (c CatalogItem) CatalogURL() string {
	u, err := c.inv.scheme.CatalogURL(c.node().id)
	if err != nil {
		return ""
	}
	return u
}

// ImageURL returns the catalog image, or "" for kinds without one.
func (c CatalogItem) ImageURL() string {
	u, err := c.inv.scheme.ImageURL(c.node().id)
	if err != nil {
		return ""
	}
	return u
}

// Push adds one occurrence per bundle through the sibling push, so each new
// occurrence receives a copy of the template occurrence's children.
func (c CatalogItem) Push(bundles ...InstanceConfig) ([]Instance, error) {
	if c.inv == nil {
		return nil, fmt.Errorf("push on zero item: %w", domain.ErrTypeMismatch)
	}
	inv := c.inv
	var out []Instance
	err := inv.atomic(func(tx *pushTxn) error {
		slot, err := inv.resolveItem(c)
		if err != nil {
			return err
		}
		out = make([]Instance, 0, len(bundles))
		for _, b := range bundles {
			inst, err := inv.pushBundle(tx, slot, b)
			if err != nil {
				return err
			}
			out = append(out, inst)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}
