// Package domain defines the value types, error kinds, serialized record
// shapes and storage contracts shared by the brickcore inventory model.
package domain

import (
	"fmt"
	"strconv"
	"strings"
)

// ItemKind identifies the BrickLink catalog type of an item.
type ItemKind string

// Catalog item kinds as listed on the BrickLink catalog index.
const (
	KindUnknown ItemKind = "Unknown"
	KindSet     ItemKind = "Set"
	KindPart    ItemKind = "Part"
	KindMinifig ItemKind = "Minifig"
	KindBook    ItemKind = "Book"
	KindGear    ItemKind = "Gear"
)

// Kinds returns every catalog kind except KindUnknown in report order.
func Kinds() []ItemKind {
	return []ItemKind{KindSet, KindMinifig, KindPart, KindBook, KindGear}
}

// Valid reports whether k is one of the declared kinds.
func (k ItemKind) Valid() bool {
	switch k {
	case KindUnknown, KindSet, KindPart, KindMinifig, KindBook, KindGear:
		return true
	}
	return false
}

// ParseItemKind accepts either the kind value ("Part", "part") or an
// inventory page heading ("Parts:", "Minifigures:").
func ParseItemKind(s string) (ItemKind, error) {
	trimmed := strings.TrimSpace(s)
	if trimmed == "" {
		return KindUnknown, nil
	}
	for _, k := range append([]ItemKind{KindUnknown}, Kinds()...) {
		if strings.EqualFold(string(k), trimmed) {
			return k, nil
		}
	}
	if k, ok := inventoryHeadings[strings.ToLower(trimmed)]; ok {
		return k, nil
	}
	return KindUnknown, fmt.Errorf("unknown item kind %q", s)
}

// Section identifies the inventory section an instance was listed under.
type Section string

// Inventory sections as defined by BrickLink inventory pages.
const (
	SectionUnknown   Section = "Unknown"
	SectionAll       Section = "All"
	SectionNone      Section = "None"
	SectionRegular   Section = "Regular Items"
	SectionExtra     Section = "Extra Items"
	SectionAlternate Section = "Alternate Items"
	SectionCounter   Section = "Counterparts"
)

var sections = []Section{
	SectionUnknown, SectionAll, SectionNone, SectionRegular,
	SectionExtra, SectionAlternate, SectionCounter,
}

// Valid reports whether s is one of the declared sections.
func (s Section) Valid() bool {
	for _, known := range sections {
		if s == known {
			return true
		}
	}
	return false
}

// ParseSection accepts a section value in any case, with or without the
// trailing colon used by inventory page headings, or with underscores in
// place of spaces ("regular_items"). Empty input yields SectionUnknown.
func ParseSection(s string) (Section, error) {
	trimmed := strings.TrimSuffix(strings.TrimSpace(s), ":")
	if trimmed == "" {
		return SectionUnknown, nil
	}
	normalized := strings.ReplaceAll(trimmed, "_", " ")
	for _, known := range sections {
		if strings.EqualFold(string(known), normalized) {
			return known, nil
		}
	}
	return SectionUnknown, fmt.Errorf("unknown section %q", s)
}

// Identity names a catalog item: its catalog number, color variant and kind.
type Identity struct {
	Num     string   `json:"num" yaml:"num"`
	Variant int      `json:"variant" yaml:"variant"`
	Kind    ItemKind `json:"kind" yaml:"kind"`
}

// IDString returns the canonical lowercase composite key "{kind}:{num}:{variant}".
func (id Identity) IDString() string {
	return strings.ToLower(fmt.Sprintf("%s:%s:%d", id.Kind, id.Num, id.Variant))
}

// Validate reports ErrInvalidItem when the identity lacks a catalog number or
// carries an undeclared kind.
func (id Identity) Validate() error {
	if strings.TrimSpace(id.Num) == "" {
		return &ItemError{Op: "validate identity", Err: ErrInvalidItem}
	}
	if !id.Kind.Valid() {
		return &ItemError{Op: "validate identity", ID: id.IDString(), Err: fmt.Errorf("%w: kind %q", ErrInvalidItem, id.Kind)}
	}
	if id.Variant < 0 {
		return &ItemError{Op: "validate identity", ID: id.IDString(), Err: fmt.Errorf("%w: negative variant", ErrInvalidItem)}
	}
	return nil
}

// DisplayName renders the identity the way catalog pages label items:
// sets omit the color variant ("Set 6990-1"), other kinds include it
// ("Part 3001 C5").
func (id Identity) DisplayName() string {
	if id.Kind == KindSet {
		return strings.TrimSpace(fmt.Sprintf("%s %s", id.Kind, id.Num))
	}
	return strings.TrimSpace(fmt.Sprintf("%s %s C%d", id.Kind, id.Num, id.Variant))
}

// InstanceIDString returns the instance key "{kind}:{num}:{variant}:{ordinal}".
func InstanceIDString(itemID string, ordinal int) string {
	return fmt.Sprintf("%s:%d", itemID, ordinal)
}

// SplitInstanceID separates an instance key into its item idString and
// ordinal. Keys are case-insensitive; the idString comes back lowercased.
func SplitInstanceID(instanceID string) (string, int, error) {
	instanceID = strings.ToLower(strings.TrimSpace(instanceID))
	cut := strings.LastIndex(instanceID, ":")
	if cut <= 0 || cut == len(instanceID)-1 {
		return "", 0, fmt.Errorf("%w: instance id %q", ErrMalformedRecord, instanceID)
	}
	ordinal, err := strconv.Atoi(instanceID[cut+1:])
	if err != nil || ordinal < 0 {
		return "", 0, fmt.Errorf("%w: instance id %q has no ordinal", ErrMalformedRecord, instanceID)
	}
	return instanceID[:cut], ordinal, nil
}
