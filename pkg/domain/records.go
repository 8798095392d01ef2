package domain

import (
	"fmt"
	"strings"
)

// Record type tags of the serialized inventory form.
const (
	TypeInventory = "Inventory"
	TypeItemFull  = "CatalogItemFull"
	TypeItemStub  = "CatalogItemStub"
)

// Document is the flat serialized inventory: one item record per instance,
// ordered by insertion index.
type Document struct {
	JSONType  string       `json:"jsonType" yaml:"jsonType"`
	ItemArray []ItemRecord `json:"itemArray" yaml:"itemArray"`
}

// ItemRecord is either a full record (the item's first instance, with item
// metadata) or a stub record (a later instance, referencing the item by id).
type ItemRecord struct {
	JSONType string `json:"jsonType" yaml:"jsonType"`

	// Stub records only.
	ItemID string `json:"itemID,omitempty" yaml:"itemID,omitempty"`

	// Full records only.
	Identity    *Identity `json:"identity,omitempty" yaml:"identity,omitempty"`
	Category    []string  `json:"category,omitempty" yaml:"category,omitempty"`
	Description string    `json:"description,omitempty" yaml:"description,omitempty"`
	Notes       string    `json:"notes,omitempty" yaml:"notes,omitempty"`
	SourceURL   string    `json:"sourceUrl,omitempty" yaml:"sourceUrl,omitempty"`

	Instance InstanceRecord `json:"instance" yaml:"instance"`
}

// InstanceRecord carries one instance. Children are never embedded; they
// appear as later records pointing back through ParentInstID.
type InstanceRecord struct {
	InstanceID     string  `json:"instanceID" yaml:"instanceID"`
	ParentInstID   *string `json:"parentInstID" yaml:"parentInstID"`
	Section        Section `json:"section" yaml:"section"`
	ExpectedQty    int     `json:"expectedQty" yaml:"expectedQty"`
	HaveQty        int     `json:"haveQty" yaml:"haveQty"`
	Hidden         bool    `json:"hidden" yaml:"hidden"`
	Notes          string  `json:"notes" yaml:"notes"`
	InsertionIndex int     `json:"insertionIndex" yaml:"insertionIndex"`
}

// IsFull reports whether the record carries item metadata.
func (r ItemRecord) IsFull() bool { return r.JSONType == TypeItemFull }

// ReferencedItemID returns the idString the record belongs to, lowercased
// like every idString.
func (r ItemRecord) ReferencedItemID() string {
	if r.IsFull() && r.Identity != nil {
		return r.Identity.IDString()
	}
	return strings.ToLower(strings.TrimSpace(r.ItemID))
}

// Check validates the shape of a single record, independent of stream context.
func (r ItemRecord) Check() error {
	switch r.JSONType {
	case TypeItemFull:
		if r.Identity == nil {
			return fmt.Errorf("%w: full record %q without identity", ErrMalformedRecord, r.Instance.InstanceID)
		}
		if err := r.Identity.Validate(); err != nil {
			return fmt.Errorf("%w: %v", ErrMalformedRecord, err)
		}
	case TypeItemStub:
		if r.ItemID == "" {
			return fmt.Errorf("%w: stub record %q without itemID", ErrMalformedRecord, r.Instance.InstanceID)
		}
	default:
		return fmt.Errorf("%w: unknown record type %q", ErrMalformedRecord, r.JSONType)
	}
	in := r.Instance
	if in.ExpectedQty < 0 || in.HaveQty < 0 {
		return fmt.Errorf("%w: %s has negative quantity", ErrMalformedRecord, in.InstanceID)
	}
	if in.InsertionIndex < 0 {
		return fmt.Errorf("%w: %s has negative insertion index", ErrMalformedRecord, in.InstanceID)
	}
	if !in.Section.Valid() {
		return fmt.Errorf("%w: %s has unknown section %q", ErrMalformedRecord, in.InstanceID, in.Section)
	}
	itemID, _, err := SplitInstanceID(in.InstanceID)
	if err != nil {
		return err
	}
	if itemID != r.ReferencedItemID() {
		return fmt.Errorf("%w: instance %s does not belong to item %s", ErrMalformedRecord, in.InstanceID, r.ReferencedItemID())
	}
	return nil
}

// InstanceCount returns the number of instance records (one per item record).
func (d Document) InstanceCount() int { return len(d.ItemArray) }

// ItemCount returns the number of full records, i.e. distinct items.
func (d Document) ItemCount() int {
	n := 0
	for _, r := range d.ItemArray {
		if r.IsFull() {
			n++
		}
	}
	return n
}
