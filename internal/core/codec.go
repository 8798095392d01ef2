package core

import (
	"brickcore/pkg/domain"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"gopkg.in/yaml.v3"
)

// Format selects a document encoding.
type Format string

const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

// ParseFormat accepts "json", "yaml" or "yml".
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "json":
		return FormatJSON, nil
	case "yaml", "yml":
		return FormatYAML, nil
	}
	return "", fmt.Errorf("unknown document format %q", s)
}

// Serialize flattens inv into one record per instance in insertion-index
// order. An item's first occurrence yields a full record, later ones stubs.
func Serialize(inv *Inventory) domain.Document {
	doc := domain.Document{JSONType: domain.TypeInventory, ItemArray: make([]domain.ItemRecord, 0, len(inv.nodes))}
	for slot, n := range inv.nodes {
		it := inv.items[n.item]
		rec := domain.ItemRecord{Instance: inv.instanceRecord(slot)}
		if n.ordinal == 0 {
			id := it.id
			rec.JSONType = domain.TypeItemFull
			rec.Identity = &id
			rec.Category = append([]string(nil), it.category...)
			rec.Description = it.description
			rec.Notes = it.notes
			rec.SourceURL = it.sourceURL
		} else {
			rec.JSONType = domain.TypeItemStub
			rec.ItemID = it.idString
		}
		doc.ItemArray = append(doc.ItemArray, rec)
	}
	return doc
}

func (inv *Inventory) instanceRecord(slot int) domain.InstanceRecord {
	n := inv.nodes[slot]
	rec := domain.InstanceRecord{
		InstanceID:     inv.instanceID(slot),
		Section:        n.section,
		ExpectedQty:    n.expectedQty,
		HaveQty:        n.haveQty,
		Hidden:         n.hidden,
		Notes:          n.notes,
		InsertionIndex: n.index,
	}
	if n.parent >= 0 {
		parent := inv.instanceID(n.parent)
		rec.ParentInstID = &parent
	}
	return rec
}

// Deserialize rebuilds an inventory by replaying doc in stream order.
func Deserialize(doc domain.Document, opts Options) (*Inventory, error) {
	if doc.JSONType != domain.TypeInventory {
		return nil, fmt.Errorf("%w: document type %q", domain.ErrMalformedRecord, doc.JSONType)
	}
	inv := NewInventory(opts)
	if err := inv.Replay(doc.ItemArray...); err != nil {
		return nil, err
	}
	return inv, nil
}

// Replay appends serialized records to inv. Restored instances keep their
// recorded insertion index and never cascade; the stream already lists
// every child. Each record is applied atomically.
func (inv *Inventory) Replay(records ...domain.ItemRecord) error {
	for i, rec := range records {
		if err := inv.atomic(func(tx *pushTxn) error { return inv.replayRecord(tx, rec) }); err != nil {
			return fmt.Errorf("record %d (%s): %w", i, rec.Instance.InstanceID, err)
		}
	}
	return nil
}

func (inv *Inventory) replayRecord(tx *pushTxn, rec domain.ItemRecord) error {
	if err := rec.Check(); err != nil {
		return err
	}
	itemID := rec.ReferencedItemID()
	_, ordinal, _ := domain.SplitInstanceID(rec.Instance.InstanceID)

	slot, exists := inv.itemSlot[itemID]
	if rec.IsFull() {
		if exists {
			return fmt.Errorf("%w: second full record for %s", domain.ErrMalformedRecord, itemID)
		}
		if ordinal != 0 {
			return fmt.Errorf("%w: full record carries ordinal %d", domain.ErrMalformedRecord, ordinal)
		}
		slot = inv.addItem(tx, itemNode{
			id:          *rec.Identity,
			category:    append([]string(nil), rec.Category...),
			description: rec.Description,
			notes:       rec.Notes,
			sourceURL:   rec.SourceURL,
		})
	} else {
		if !exists {
			return domain.NotFound("item", itemID)
		}
		if want := inv.items[slot].instances.Len(); ordinal != want {
			return fmt.Errorf("%w: ordinal %d, want %d", domain.ErrMalformedRecord, ordinal, want)
		}
	}

	parent := -1
	if rec.Instance.ParentInstID != nil {
		p, ok := inv.findInstanceSlot(*rec.Instance.ParentInstID)
		if !ok {
			return domain.NotFound("parent instance", *rec.Instance.ParentInstID)
		}
		parent = p
	}
	created, err := inv.createInstance(tx, instanceNode{
		item:        slot,
		parent:      parent,
		section:     rec.Instance.Section,
		expectedQty: rec.Instance.ExpectedQty,
		haveQty:     rec.Instance.HaveQty,
		hidden:      rec.Instance.Hidden,
		notes:       rec.Instance.Notes,
		index:       rec.Instance.InsertionIndex,
	})
	if err != nil {
		return err
	}
	return inv.pushSibling(tx, created)
}

// EncodeDocument writes doc in the requested format.
func EncodeDocument(w io.Writer, doc domain.Document, format Format) error {
	switch format {
	case FormatJSON, "":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(doc)
	case FormatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(doc); err != nil {
			return err
		}
		return enc.Close()
	}
	return fmt.Errorf("unknown document format %q", format)
}

// DecodeDocument reads a document in the requested format.
func DecodeDocument(r io.Reader, format Format) (domain.Document, error) {
	var doc domain.Document
	switch format {
	case FormatJSON, "":
		dec := json.NewDecoder(r)
		dec.DisallowUnknownFields()
		if err := dec.Decode(&doc); err != nil {
			return domain.Document{}, fmt.Errorf("%w: %v", domain.ErrMalformedRecord, err)
		}
	case FormatYAML:
		dec := yaml.NewDecoder(r)
		dec.KnownFields(true)
		if err := dec.Decode(&doc); err != nil {
			return domain.Document{}, fmt.Errorf("%w: %v", domain.ErrMalformedRecord, err)
		}
	default:
		return domain.Document{}, fmt.Errorf("unknown document format %q", format)
	}
	return doc, nil
}

// InstanceDiff describes one field that differs between two instance
// sequences.
type InstanceDiff struct {
	Position int
	Field    string
	Want     string
	Got      string
}

func (d InstanceDiff) String() string {
	return fmt.Sprintf("instance %d %s: want %q, got %q", d.Position, d.Field, d.Want, d.Got)
}

// Compare lists field differences between the insertion-ordered instance
// sequences of two inventories.
func Compare(want, got *Inventory) []InstanceDiff {
	a, b := Serialize(want).ItemArray, Serialize(got).ItemArray
	var diffs []InstanceDiff
	if len(a) != len(b) {
		diffs = append(diffs, InstanceDiff{Position: -1, Field: "count", Want: fmt.Sprint(len(a)), Got: fmt.Sprint(len(b))})
	}
	for i := 0; i < len(a) && i < len(b); i++ {
		x, y := a[i].Instance, b[i].Instance
		check := func(field string, w, g any) {
			ws, gs := fmt.Sprint(w), fmt.Sprint(g)
			if ws != gs {
				diffs = append(diffs, InstanceDiff{Position: i, Field: field, Want: ws, Got: gs})
			}
		}
		check("instanceID", x.InstanceID, y.InstanceID)
		check("parent", parentString(x.ParentInstID), parentString(y.ParentInstID))
		check("section", x.Section, y.Section)
		check("expectedQty", x.ExpectedQty, y.ExpectedQty)
		check("haveQty", x.HaveQty, y.HaveQty)
		check("hidden", x.Hidden, y.Hidden)
		check("notes", x.Notes, y.Notes)
		check("insertionIndex", x.InsertionIndex, y.InsertionIndex)
		check("type", a[i].JSONType, b[i].JSONType)
	}
	return diffs
}

func parentString(p *string) string {
	if p == nil {
		return "<root>"
	}
	return *p
}

// Verify serializes inv, rebuilds it from the record stream and reports
// every difference between the two instance sequences.
func Verify(inv *Inventory) error {
	restored, err := Deserialize(Serialize(inv), Options{Scheme: inv.scheme})
	if err != nil {
		return fmt.Errorf("restore: %w", err)
	}
	diffs := Compare(inv, restored)
	if len(diffs) == 0 {
		return nil
	}
	lines := make([]string, 0, len(diffs))
	for _, d := range diffs {
		lines = append(lines, d.String())
	}
	return fmt.Errorf("round trip mismatch:\n%s", strings.Join(lines, "\n"))
}
