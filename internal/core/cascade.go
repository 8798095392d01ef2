package core

import (
	"brickcore/pkg/domain"
	"fmt"
)

// pushTxn journals the appends of one mutating call so a failure can put
// the arena back exactly as it was. The model is append-only, so the
// journal only needs lengths. Nested calls open a savepoint whose journal
// is folded into the parent on success.
type pushTxn struct {
	parent     *pushTxn
	nodes      int
	items      int
	nextIndex  int
	addedItems []string
	touched    map[*InstanceCollection]int
	duplicates int
}

func (tx *pushTxn) touch(c *InstanceCollection) {
	if _, ok := tx.touched[c]; !ok {
		tx.touched[c] = len(c.slots)
	}
}

func (tx *pushTxn) fold(into *pushTxn) {
	for c, n := range tx.touched {
		if _, ok := into.touched[c]; !ok {
			into.touched[c] = n
		}
	}
	into.addedItems = append(into.addedItems, tx.addedItems...)
	into.duplicates += tx.duplicates
}

// atomic runs fn in a transaction. When fn fails, everything it appended is
// rolled back, also when an enclosing call goes on to succeed.
func (inv *Inventory) atomic(fn func(tx *pushTxn) error) error {
	tx := &pushTxn{
		parent:    inv.tx,
		nodes:     len(inv.nodes),
		items:     len(inv.items),
		nextIndex: inv.nextIndex,
		touched:   make(map[*InstanceCollection]int),
	}
	inv.tx = tx
	defer func() { inv.tx = tx.parent }()
	if err := fn(tx); err != nil {
		inv.rollback(tx)
		return err
	}
	if tx.parent != nil {
		tx.fold(tx.parent)
	}
	return nil
}

func (inv *Inventory) rollback(tx *pushTxn) {
	for c, n := range tx.touched {
		c.truncate(n)
	}
	for _, id := range tx.addedItems {
		delete(inv.itemSlot, id)
	}
	for i := tx.nodes; i < len(inv.nodes); i++ {
		inv.nodes[i] = nil
	}
	inv.nodes = inv.nodes[:tx.nodes]
	for i := tx.items; i < len(inv.items); i++ {
		inv.items[i] = nil
	}
	inv.items = inv.items[:tx.items]
	inv.nextIndex = tx.nextIndex
}

// createInstance appends n to the arena with the insertion index it
// carries, and registers it with its parent. An instance may not be nested
// under any instance of its own item.
func (inv *Inventory) createInstance(tx *pushTxn, n instanceNode) (int, error) {
	item := inv.items[n.item]
	if n.expectedQty < 0 || n.haveQty < 0 {
		return 0, &domain.ItemError{Op: "create instance", ID: item.idString, Err: fmt.Errorf("%w: negative quantity", domain.ErrInvalidItem)}
	}
	if !n.section.Valid() {
		return 0, &domain.ItemError{Op: "create instance", ID: item.idString, Err: fmt.Errorf("%w: section %q", domain.ErrInvalidItem, n.section)}
	}
	if n.index < inv.nextIndex {
		return 0, fmt.Errorf("%w: insertion index %d not after %d", domain.ErrMalformedRecord, n.index, inv.nextIndex-1)
	}
	for p := n.parent; p >= 0; p = inv.nodes[p].parent {
		if inv.nodes[p].item == n.item {
			return 0, &domain.ItemError{Op: "create instance", ID: item.idString, Err: fmt.Errorf("%w: ancestor %s", domain.ErrContainmentCycle, inv.instanceID(p))}
		}
	}
	slot := len(inv.nodes)
	inv.serial++
	n.serial = inv.serial
	n.ordinal = -1
	n.children = newCollection(inv, childMode, slot)
	node := n
	inv.nodes = append(inv.nodes, &node)
	inv.nextIndex = n.index + 1
	if n.parent >= 0 {
		if err := inv.nodes[n.parent].children.pushChild(tx, slot); err != nil {
			return 0, err
		}
	}
	return slot, nil
}

// pushSibling is the sibling-mode push: when the item already has
// occurrences and the incoming instance allows cascading, every child of the
// template occurrence is duplicated under it first, each duplicate taking
// the next insertion index. The instance is then appended and receives its
// ordinal.
func (inv *Inventory) pushSibling(tx *pushTxn, slot int) error {
	n := inv.nodes[slot]
	siblings := &inv.items[n.item].instances
	if siblings.has(slot) {
		return fmt.Errorf("%s already in %s: %w", inv.instanceID(slot), inv.items[n.item].idString, domain.ErrDuplicateInstance)
	}
	if siblings.Len() > 0 && n.allowCascade {
		template := inv.nodes[siblings.slots[0]]
		kids := append([]int(nil), template.children.slots...)
		for _, child := range kids {
			if _, err := inv.duplicateUnder(tx, child, slot); err != nil {
				return err
			}
		}
	}
	n.ordinal = siblings.Len()
	siblings.append(tx, slot)
	return nil
}

// duplicateUnder clones src under parent. The clone keeps the item, section
// and quantities, is visible, and notes its source.
func (inv *Inventory) duplicateUnder(tx *pushTxn, src, parent int) (int, error) {
	s := inv.nodes[src]
	slot, err := inv.createInstance(tx, instanceNode{
		item:         s.item,
		parent:       parent,
		section:      s.section,
		expectedQty:  s.expectedQty,
		haveQty:      s.haveQty,
		notes:        "Duplicated from " + inv.instanceID(src),
		index:        inv.nextIndex,
		allowCascade: true,
	})
	if err != nil {
		return 0, err
	}
	if err := inv.pushSibling(tx, slot); err != nil {
		return 0, err
	}
	tx.duplicates++
	return slot, nil
}
