package tables

import (
	"brickcore/pkg/domain"
	"fmt"
	"slices"
	"time"
)

// Snapshot is one named snapshot.
type Snapshot struct {
	Name      string    `gorm:"column:name;primaryKey;type:varchar(200)"`
	Items     int       `gorm:"column:items"`
	Instances int       `gorm:"column:instances"`
	SavedAt   time.Time `gorm:"column:saved_at"`
}

// TableName pins the table name.
func (Snapshot) TableName() string { return "brickcore_table_snapshots" }

// ItemRow is one catalog item of a snapshot.
type ItemRow struct {
	Snapshot    string   `gorm:"column:snapshot;primaryKey;type:varchar(200)"`
	ItemID      string   `gorm:"column:item_id;primaryKey;type:varchar(200)"`
	Kind        string   `gorm:"column:kind;type:varchar(20)"`
	Num         string   `gorm:"column:num;type:varchar(100)"`
	Variant     int      `gorm:"column:variant"`
	Category    []string `gorm:"column:category;type:text;serializer:json"` // JSON array
	Description string   `gorm:"column:description;type:text"`
	Notes       string   `gorm:"column:notes;type:text"`
	SourceURL   string   `gorm:"column:source_url;type:text"`
}

// TableName pins the table name.
func (ItemRow) TableName() string { return "brickcore_table_items" }

// InstanceRow is one instance of a snapshot.
type InstanceRow struct {
	Snapshot       string  `gorm:"column:snapshot;primaryKey;type:varchar(200)"`
	InstanceID     string  `gorm:"column:instance_id;primaryKey;type:varchar(220)"`
	ItemID         string  `gorm:"column:item_id;type:varchar(200);index"`
	ParentInstID   *string `gorm:"column:parent_inst_id;type:varchar(220)"`
	Section        string  `gorm:"column:section;type:varchar(40)"`
	ExpectedQty    int     `gorm:"column:expected_qty"`
	HaveQty        int     `gorm:"column:have_qty"`
	Hidden         bool    `gorm:"column:hidden"`
	Notes          string  `gorm:"column:notes;type:text"`
	InsertionIndex int     `gorm:"column:insertion_index;index"`
}

// TableName pins the table name.
func (InstanceRow) TableName() string { return "brickcore_table_instances" }

// ToRows projects a record stream onto item and instance rows.
func ToRows(snapshot string, doc domain.Document) ([]ItemRow, []InstanceRow) {
	var items []ItemRow
	instances := make([]InstanceRow, 0, len(doc.ItemArray))
	for _, rec := range doc.ItemArray {
		if rec.IsFull() && rec.Identity != nil {
			items = append(items, ItemRow{
				Snapshot:    snapshot,
				ItemID:      rec.Identity.IDString(),
				Kind:        string(rec.Identity.Kind),
				Num:         rec.Identity.Num,
				Variant:     rec.Identity.Variant,
				Category:    slices.Clone(rec.Category),
				Description: rec.Description,
				Notes:       rec.Notes,
				SourceURL:   rec.SourceURL,
			})
		}
		in := rec.Instance
		instances = append(instances, InstanceRow{
			Snapshot:       snapshot,
			InstanceID:     in.InstanceID,
			ItemID:         rec.ReferencedItemID(),
			ParentInstID:   in.ParentInstID,
			Section:        string(in.Section),
			ExpectedQty:    in.ExpectedQty,
			HaveQty:        in.HaveQty,
			Hidden:         in.Hidden,
			Notes:          in.Notes,
			InsertionIndex: in.InsertionIndex,
		})
	}
	return items, instances
}

// FromRows rebuilds the record stream. Instances must be sorted by
// insertion index; an item's first instance becomes its full record.
func FromRows(items []ItemRow, instances []InstanceRow) (domain.Document, error) {
	byID := make(map[string]ItemRow, len(items))
	for _, it := range items {
		byID[it.ItemID] = it
	}
	emitted := make(map[string]bool, len(items))
	doc := domain.Document{JSONType: domain.TypeInventory, ItemArray: make([]domain.ItemRecord, 0, len(instances))}
	for _, row := range instances {
		rec := domain.ItemRecord{Instance: domain.InstanceRecord{
			InstanceID:     row.InstanceID,
			ParentInstID:   row.ParentInstID,
			Section:        domain.Section(row.Section),
			ExpectedQty:    row.ExpectedQty,
			HaveQty:        row.HaveQty,
			Hidden:         row.Hidden,
			Notes:          row.Notes,
			InsertionIndex: row.InsertionIndex,
		}}
		if emitted[row.ItemID] {
			rec.JSONType = domain.TypeItemStub
			rec.ItemID = row.ItemID
		} else {
			it, ok := byID[row.ItemID]
			if !ok {
				return domain.Document{}, fmt.Errorf("%w: instance %s references missing item row %s", domain.ErrMalformedRecord, row.InstanceID, row.ItemID)
			}
			id := domain.Identity{Num: it.Num, Variant: it.Variant, Kind: domain.ItemKind(it.Kind)}
			rec.JSONType = domain.TypeItemFull
			rec.Identity = &id
			rec.Category = slices.Clone(it.Category)
			rec.Description = it.Description
			rec.Notes = it.Notes
			rec.SourceURL = it.SourceURL
			emitted[row.ItemID] = true
		}
		doc.ItemArray = append(doc.ItemArray, rec)
	}
	return doc, nil
}
