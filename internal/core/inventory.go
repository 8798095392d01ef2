package core

import (
	"brickcore/pkg/domain"
	"fmt"
	"strings"
)

// Options configures a new Inventory.
type Options struct {
	// Scheme resolves source URLs and builds catalog links. Defaults to
	// domain.BrickLink().
	Scheme *domain.URLScheme
}

// Inventory is the arena holding every catalog item and instance of one
// ingestion session. Instances are stored in creation order, so arena order
// is insertion-index order. An Inventory is not safe for concurrent use;
// Service provides the single-writer boundary.
type Inventory struct {
	scheme    *domain.URLScheme
	nodes     []*instanceNode
	items     []*itemNode
	itemSlot  map[string]int
	nextIndex int
	serial    uint64
	tx        *pushTxn
}

// NewInventory returns an empty inventory.
func NewInventory(opts Options) *Inventory {
	scheme := opts.Scheme
	if scheme == nil {
		scheme = domain.BrickLink()
	}
	return &Inventory{scheme: scheme, itemSlot: make(map[string]int)}
}

// PushResult reports the outcome of Inventory.Push.
type PushResult struct {
	Item      CatalogItem
	Instances []Instance // one per requested bundle, in bundle order
	Merged    bool       // the item already existed
	Cascaded  int        // instances created by cascade duplication
	NextIndex int
}

// Scheme returns the URL scheme used by the inventory.
func (inv *Inventory) Scheme() *domain.URLScheme { return inv.scheme }

// Len returns the number of catalog items.
func (inv *Inventory) Len() int { return len(inv.items) }

// InstanceCount returns the number of instances.
func (inv *Inventory) InstanceCount() int { return len(inv.nodes) }

// NextIndex returns the insertion index the next instance will receive.
func (inv *Inventory) NextIndex() int { return inv.nextIndex }

// Items returns the catalog items in discovery order.
func (inv *Inventory) Items() []CatalogItem {
	out := make([]CatalogItem, 0, len(inv.items))
	for slot := range inv.items {
		out = append(out, inv.itemAt(slot))
	}
	return out
}

// ItemsOfKind returns the catalog items of kind in discovery order.
func (inv *Inventory) ItemsOfKind(kind domain.ItemKind) []CatalogItem {
	var out []CatalogItem
	for slot, it := range inv.items {
		if it.id.Kind == kind {
			out = append(out, inv.itemAt(slot))
		}
	}
	return out
}

// AllInstances returns every instance sorted by insertion index.
func (inv *Inventory) AllInstances() []Instance {
	out := make([]Instance, 0, len(inv.nodes))
	for slot := range inv.nodes {
		out = append(out, inv.instanceAt(slot))
	}
	return out
}

// Roots returns the instances without a parent, by insertion index.
func (inv *Inventory) Roots() []Instance {
	var out []Instance
	for slot, n := range inv.nodes {
		if n.parent < 0 {
			out = append(out, inv.instanceAt(slot))
		}
	}
	return out
}

// FindItemByID looks up a catalog item by idString (case-insensitive).
func (inv *Inventory) FindItemByID(id string) (CatalogItem, bool) {
	slot, ok := inv.itemSlot[strings.ToLower(strings.TrimSpace(id))]
	if !ok {
		return CatalogItem{}, false
	}
	return inv.itemAt(slot), true
}

// FindInstanceByID looks up an instance by "{kind}:{num}:{variant}:{ordinal}".
func (inv *Inventory) FindInstanceByID(id string) (Instance, bool) {
	slot, ok := inv.findInstanceSlot(id)
	if !ok {
		return Instance{}, false
	}
	return inv.instanceAt(slot), true
}

func (inv *Inventory) findInstanceSlot(id string) (int, bool) {
	itemID, ordinal, err := domain.SplitInstanceID(strings.ToLower(strings.TrimSpace(id)))
	if err != nil {
		return 0, false
	}
	itemSlot, ok := inv.itemSlot[itemID]
	if !ok {
		return 0, false
	}
	siblings := &inv.items[itemSlot].instances
	if ordinal >= siblings.Len() {
		return 0, false
	}
	return siblings.slots[ordinal], true
}

// Push ingests one item request. A request for an item already present must
// carry exactly one instance bundle, which is merged into the existing item
// through the sibling push; otherwise the item is inserted with all of its
// bundles. A request without bundles receives one default bundle. The push
// is atomic: on error the inventory is left exactly as before the call.
func (inv *Inventory) Push(cfg ItemConfig) (PushResult, error) {
	id, err := cfg.resolveIdentity(inv.scheme)
	if err != nil {
		return PushResult{}, err
	}
	bundles := cfg.bundles()
	var res PushResult
	err = inv.atomic(func(tx *pushTxn) error {
		slot, merged := inv.itemSlot[id.IDString()]
		if merged {
			if len(bundles) != 1 {
				return &domain.ItemError{Op: "merge", ID: id.IDString(), Err: fmt.Errorf("%w: %d instances, want 1", domain.ErrInvalidBatch, len(bundles))}
			}
		} else {
			category := cfg.Category
			if len(category) == 0 {
				category = DefaultCategory(inv.scheme, id.Kind)
			}
			slot = inv.addItem(tx, itemNode{
				id:          id,
				category:    append([]string(nil), category...),
				description: cfg.Description,
				notes:       cfg.Notes,
				sourceURL:   cfg.SourceURL,
			})
		}
		res.Merged = merged
		res.Item = inv.itemAt(slot)
		for _, b := range bundles {
			inst, err := inv.pushBundle(tx, slot, b)
			if err != nil {
				return err
			}
			res.Instances = append(res.Instances, inst)
		}
		res.Cascaded = tx.duplicates
		return nil
	})
	if err != nil {
		return PushResult{}, err
	}
	res.NextIndex = inv.nextIndex
	return res, nil
}

// pushBundle creates a normal instance of item from a bundle and runs it
// through the sibling push.
func (inv *Inventory) pushBundle(tx *pushTxn, item int, b InstanceConfig) (Instance, error) {
	parent := -1
	if !b.Parent.IsZero() {
		if b.Parent.inv != inv {
			return Instance{}, fmt.Errorf("parent from another inventory: %w", domain.ErrTypeMismatch)
		}
		p, err := inv.resolve(b.Parent)
		if err != nil {
			return Instance{}, err
		}
		parent = p
	}
	section := b.Section
	if section == "" {
		section = domain.SectionUnknown
	}
	slot, err := inv.createInstance(tx, instanceNode{
		item:         item,
		parent:       parent,
		section:      section,
		expectedQty:  b.ExpectedQty,
		haveQty:      b.HaveQty,
		hidden:       b.Hidden,
		notes:        b.Notes,
		index:        inv.nextIndex,
		allowCascade: true,
	})
	if err != nil {
		return Instance{}, err
	}
	if err := inv.pushSibling(tx, slot); err != nil {
		return Instance{}, err
	}
	return inv.instanceAt(slot), nil
}

func (inv *Inventory) addItem(tx *pushTxn, it itemNode) int {
	slot := len(inv.items)
	inv.serial++
	it.serial = inv.serial
	it.idString = it.id.IDString()
	it.instances = newCollection(inv, siblingMode, slot)
	inv.items = append(inv.items, &it)
	inv.itemSlot[it.idString] = slot
	tx.addedItems = append(tx.addedItems, it.idString)
	return slot
}

func (inv *Inventory) instanceAt(slot int) Instance {
	return Instance{inv: inv, slot: slot, serial: inv.nodes[slot].serial}
}

func (inv *Inventory) itemAt(slot int) CatalogItem {
	return CatalogItem{inv: inv, slot: slot, serial: inv.items[slot].serial}
}

func (inv *Inventory) instanceID(slot int) string {
	n := inv.nodes[slot]
	return domain.InstanceIDString(inv.items[n.item].idString, n.ordinal)
}

// resolve maps a handle to its arena slot, rejecting handles to instances
// that were rolled back.
func (inv *Inventory) resolve(inst Instance) (int, error) {
	if inst.slot < 0 || inst.slot >= len(inv.nodes) || inv.nodes[inst.slot].serial != inst.serial {
		return 0, domain.NotFound("instance", fmt.Sprintf("#%d", inst.slot))
	}
	return inst.slot, nil
}

func (inv *Inventory) resolveItem(item CatalogItem) (int, error) {
	if item.inv != inv {
		return 0, fmt.Errorf("item from another inventory: %w", domain.ErrTypeMismatch)
	}
	if item.slot < 0 || item.slot >= len(inv.items) || inv.items[item.slot].serial != item.serial {
		return 0, domain.NotFound("item", fmt.Sprintf("#%d", item.slot))
	}
	return item.slot, nil
}
