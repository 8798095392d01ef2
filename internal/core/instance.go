package core

import (
	"brickcore/pkg/domain"
	"fmt"
	"regexp"
	"strings"
)

// instanceNode is the arena representation of one physical occurrence.
// Relations are arena slots; parent is -1 for roots.
type instanceNode struct {
	serial       uint64
	item         int
	parent       int
	ordinal      int
	children     InstanceCollection
	section      domain.Section
	expectedQty  int
	haveQty      int
	hidden       bool
	notes        string
	index        int
	allowCascade bool
}

// InstanceConfig describes one instance bundle of an ingestion request.
type InstanceConfig struct {
	Section     domain.Section // default domain.SectionUnknown
	ExpectedQty int            // default 0, must be non-negative
	HaveQty     int            // default 0, must be non-negative
	Hidden      bool           // default false
	Notes       string         // default ""
	Parent      Instance       // zero value for a root instance
}

// Instance is a read-only handle to an instance stored in an Inventory.
// The zero value refers to no instance. A handle created by a push that was
// later rolled back is stale: Valid reports false and the other accessors
// panic rather than read whatever instance reuses the slot.
type Instance struct {
	inv    *Inventory
	slot   int
	serial uint64
}

// IsZero reports whether the handle refers to no instance.
func (i Instance) IsZero() bool { return i.inv == nil }

// Inventory returns the inventory holding the instance.
func (i Instance) Inventory() *Inventory { return i.inv }

// Valid reports whether the handle still refers to a live instance.
func (i Instance) Valid() bool {
	if i.inv == nil {
		return false
	}
	_, err := i.inv.resolve(i)
	return err == nil
}

func (i Instance) node() *instanceNode {
	if !i.Valid() {
		panic(fmt.Sprintf("core: stale instance handle #%d", i.slot))
	}
	return i.inv.nodes[i.slot]
}

// Item returns the catalog item the instance is an occurrence of.
func (i Instance) Item() CatalogItem { return i.inv.itemAt(i.node().item) }

// Ordinal returns the instance position within its item's occurrences.
func (i Instance) Ordinal() int { return i.node().ordinal }

// IDString returns "{kind}:{num}:{variant}:{ordinal}".
func (i Instance) IDString() string {
	i.node()
	return i.inv.instanceID(i.slot)
}

// Parent returns the containing instance, if any.
func (i Instance) Parent() (Instance, bool) {
	p := i.node().parent
	if p < 0 {
		return Instance{}, false
	}
	return i.inv.instanceAt(p), true
}

// Children returns the instances found inside this one.
func (i Instance) Children() *InstanceCollection { return &i.node().children }

// Section returns the inventory section the instance was listed under.
func (i Instance) Section() domain.Section { return i.node().section }

// ExpectedQty returns the quantity listed by the catalog.
func (i Instance) ExpectedQty() int { return i.node().expectedQty }

// HaveQty returns the quantity on hand.
func (i Instance) HaveQty() int { return i.node().haveQty }

// Hidden reports whether the instance is hidden from reports.
func (i Instance) Hidden() bool { return i.node().hidden }

// Notes returns the free-form instance notes.
func (i Instance) Notes() string { return i.node().notes }

// InsertionIndex returns the global creation order of the instance.
func (i Instance) InsertionIndex() int { return i.node().index }

// AllowCascade reports whether pushing this instance onto a non-empty
// sibling list clones the template occurrence's children onto it.
func (i Instance) AllowCascade() bool { return i.node().allowCascade }

// Depth returns the number of ancestors.
func (i Instance) Depth() int {
	d := 0
	for p := i.node().parent; p >= 0; p = i.inv.nodes[p].parent {
		d++
	}
	return d
}

// DisplayName returns the item display name suffixed with the ordinal
// ("Part 3001 C5 I1").
func (i Instance) DisplayName() string {
	return fmt.Sprintf("%s I%d", i.Item().DisplayName(), i.Ordinal())
}

// Anchor returns the outline anchor of the instance ("#part-3001-c5-i1").
func (i Instance) Anchor() string { return Anchor(i.DisplayName()) }

// DuplicateUnder clones the instance under newParent and pushes the clone
// onto its item's occurrences, which may cascade further. It returns the
// clone and the next free insertion index.
func (i Instance) DuplicateUnder(newParent Instance) (Instance, int, error) {
	if i.inv == nil {
		return Instance{}, 0, fmt.Errorf("duplicate zero instance: %w", domain.ErrTypeMismatch)
	}
	inv := i.inv
	var dup Instance
	err := inv.atomic(func(tx *pushTxn) error {
		src, err := inv.resolve(i)
		if err != nil {
			return err
		}
		if newParent.inv != inv {
			return fmt.Errorf("parent from another inventory: %w", domain.ErrTypeMismatch)
		}
		parent, err := inv.resolve(newParent)
		if err != nil {
			return err
		}
		slot, err := inv.duplicateUnder(tx, src, parent)
		if err != nil {
			return err
		}
		dup = inv.instanceAt(slot)
		return nil
	})
	if err != nil {
		return Instance{}, inv.nextIndex, err
	}
	return dup, inv.nextIndex, nil
}

var anchorSeparators = regexp.MustCompile(`[\s-]+`)

// Anchor converts a display name to a Markdown heading anchor.
func Anchor(displayName string) string {
	return "#" + strings.ToLower(anchorSeparators.ReplaceAllString(strings.TrimSpace(displayName), "-"))
}
