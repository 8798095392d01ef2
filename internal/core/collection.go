package core

import (
	"brickcore/pkg/domain"
	"fmt"
	"iter"
)

type collectionMode int

const (
	siblingMode collectionMode = iota // owned by a catalog item, cascades
	childMode                         // owned by an instance, no cascade
)

// InstanceCollection is an ordered, uniqueness-enforcing list of instances.
// A catalog item owns one holding its occurrences (sibling mode); every
// instance owns one holding the instances found inside it (child mode).
type InstanceCollection struct {
	inv   *Inventory
	mode  collectionMode
	owner int // item slot in sibling mode, node slot in child mode
	slots []int
	pos   map[int]int
}

func newCollection(inv *Inventory, mode collectionMode, owner int) InstanceCollection {
	return InstanceCollection{inv: inv, mode: mode, owner: owner, pos: make(map[int]int)}
}

// Len returns the number of instances in the collection.
func (c *InstanceCollection) Len() int { return len(c.slots) }

// At returns the instance at position i.
func (c *InstanceCollection) At(i int) Instance {
	return c.inv.instanceAt(c.slots[i])
}

// First returns the template occurrence, if any.
func (c *InstanceCollection) First() (Instance, bool) {
	if len(c.slots) == 0 {
		return Instance{}, false
	}
	return c.At(0), true
}

// All yields instances in collection order.
func (c *InstanceCollection) All() iter.Seq2[int, Instance] {
	return func(yield func(int, Instance) bool) {
		for i, slot := range c.slots {
			if !yield(i, c.inv.instanceAt(slot)) {
				return
			}
		}
	}
}

// Slice returns a copy of the collection as handles.
func (c *InstanceCollection) Slice() []Instance {
	out := make([]Instance, 0, len(c.slots))
	for _, slot := range c.slots {
		out = append(out, c.inv.instanceAt(slot))
	}
	return out
}

// Position returns the position of inst in the collection.
func (c *InstanceCollection) Position(inst Instance) (int, bool) {
	if inst.inv != c.inv {
		return 0, false
	}
	slot, err := c.inv.resolve(inst)
	if err != nil {
		return 0, false
	}
	p, ok := c.pos[slot]
	return p, ok
}

// Contains reports whether inst is in the collection.
func (c *InstanceCollection) Contains(inst Instance) bool {
	_, ok := c.Position(inst)
	return ok
}

// Push is the checked sibling-mode insert. Every instance joins its item's
// collection when Inventory.Push, CatalogItem.Push or DuplicateUnder
// creates it, and those are the only ways to create one, so Push never
// adds anything: it reports ErrDuplicateInstance for an instance already
// present and ErrTypeMismatch or ErrNotFound for any other handle, leaving
// the collection unchanged. It returns the next free insertion index.
func (c *InstanceCollection) Push(inst Instance) (int, error) {
	if c.mode != siblingMode {
		return c.inv.nextIndex, fmt.Errorf("push on child collection: %w", domain.ErrTypeMismatch)
	}
	err := c.inv.atomic(func(tx *pushTxn) error {
		slot, err := c.accept(inst)
		if err != nil {
			return err
		}
		return c.inv.pushSibling(tx, slot)
	})
	return c.inv.nextIndex, err
}

// PushChild is the checked child-mode insert. Like Push it never adds
// anything, since an instance joins its parent's children when created; it
// reports ErrDuplicateInstance for an instance already present and
// ErrTypeMismatch for one whose parent is not the collection owner.
func (c *InstanceCollection) PushChild(inst Instance) error {
	if c.mode != childMode {
		return fmt.Errorf("push child on sibling collection: %w", domain.ErrTypeMismatch)
	}
	return c.inv.atomic(func(tx *pushTxn) error {
		slot, err := c.accept(inst)
		if err != nil {
			return err
		}
		return c.pushChild(tx, slot)
	})
}

// accept resolves a handle and checks it may live in this collection.
func (c *InstanceCollection) accept(inst Instance) (int, error) {
	if inst.inv == nil || inst.inv != c.inv {
		return 0, fmt.Errorf("instance from another inventory: %w", domain.ErrTypeMismatch)
	}
	slot, err := c.inv.resolve(inst)
	if err != nil {
		return 0, err
	}
	n := c.inv.nodes[slot]
	switch c.mode {
	case siblingMode:
		if n.item != c.owner {
			return 0, fmt.Errorf("instance %s is not an occurrence of %s: %w", c.inv.instanceID(slot), c.inv.items[c.owner].idString, domain.ErrTypeMismatch)
		}
	case childMode:
		if n.parent != c.owner {
			return 0, fmt.Errorf("instance %s is not a child of %s: %w", c.inv.instanceID(slot), c.inv.instanceID(c.owner), domain.ErrTypeMismatch)
		}
	}
	return slot, nil
}

// pushChild appends slot without cascading.
func (c *InstanceCollection) pushChild(tx *pushTxn, slot int) error {
	if _, ok := c.pos[slot]; ok {
		return fmt.Errorf("%s already in children of %s: %w", c.inv.instanceID(slot), c.inv.instanceID(c.owner), domain.ErrDuplicateInstance)
	}
	c.append(tx, slot)
	return nil
}

func (c *InstanceCollection) has(slot int) bool {
	_, ok := c.pos[slot]
	return ok
}

func (c *InstanceCollection) append(tx *pushTxn, slot int) {
	tx.touch(c)
	c.pos[slot] = len(c.slots)
	c.slots = append(c.slots, slot)
}

// truncate drops every entry at or after position n.
func (c *InstanceCollection) truncate(n int) {
	for _, slot := range c.slots[n:] {
		delete(c.pos, slot)
	}
	c.slots = c.slots[:n]
}
