package domain

import (
	"errors"
	"testing"
)

func TestIdentityIDString(t *testing.T) {
	cases := []struct {
		id   Identity
		want string
	}{
		{Identity{Num: "3001", Variant: 5, Kind: KindPart}, "part:3001:5"},
		{Identity{Num: "0000-1", Kind: KindSet}, "set:0000-1:0"},
		{Identity{Num: "SW0001A", Variant: 0, Kind: KindMinifig}, "minifig:sw0001a:0"},
		{Identity{Num: "x", Kind: KindUnknown}, "unknown:x:0"},
	}
	for _, tc := range cases {
		if got := tc.id.IDString(); got != tc.want {
			t.Fatalf("IDString(%+v) = %q, want %q", tc.id, got, tc.want)
		}
	}
}

func TestIdentityDisplayName(t *testing.T) {
	if got := (Identity{Num: "0000-1", Kind: KindSet}).DisplayName(); got != "Set 0000-1" {
		t.Fatalf("unexpected set display name %q", got)
	}
	if got := (Identity{Num: "1234-1", Variant: 5, Kind: KindPart}).DisplayName(); got != "Part 1234-1 C5" {
		t.Fatalf("unexpected part display name %q", got)
	}
}

func TestIdentityValidate(t *testing.T) {
	if err := (Identity{Num: "3001", Kind: KindPart}).Validate(); err != nil {
		t.Fatalf("valid identity rejected: %v", err)
	}
	bad := []Identity{
		{Num: "", Kind: KindPart},
		{Num: "  ", Kind: KindPart},
		{Num: "3001", Kind: "Brick"},
		{Num: "3001", Variant: -1, Kind: KindPart},
	}
	for _, id := range bad {
		err := id.Validate()
		if !errors.Is(err, ErrInvalidItem) {
			t.Fatalf("expected ErrInvalidItem for %+v, got %v", id, err)
		}
		var itemErr *ItemError
		if !errors.As(err, &itemErr) || itemErr.Op != "validate identity" {
			t.Fatalf("expected ItemError for %+v, got %T", id, err)
		}
	}
}

func TestParseItemKind(t *testing.T) {
	cases := map[string]ItemKind{
		"":             KindUnknown,
		"part":         KindPart,
		"Minifig":      KindMinifig,
		"Parts:":       KindPart,
		"minifigures:": KindMinifig,
		"Sets":         KindSet,
		"GEAR":         KindGear,
	}
	for in, want := range cases {
		got, err := ParseItemKind(in)
		if err != nil {
			t.Fatalf("ParseItemKind(%q): %v", in, err)
		}
		if got != want {
			t.Fatalf("ParseItemKind(%q) = %s, want %s", in, got, want)
		}
	}
	if _, err := ParseItemKind("brick"); err == nil {
		t.Fatalf("expected error for unknown kind")
	}
}

func TestParseSection(t *testing.T) {
	cases := map[string]Section{
		"":                SectionUnknown,
		"Regular Items:":  SectionRegular,
		"regular_items":   SectionRegular,
		"EXTRA ITEMS":     SectionExtra,
		"Counterparts":    SectionCounter,
		"alternate items": SectionAlternate,
		"none":            SectionNone,
	}
	for in, want := range cases {
		got, err := ParseSection(in)
		if err != nil {
			t.Fatalf("ParseSection(%q): %v", in, err)
		}
		if got != want {
			t.Fatalf("ParseSection(%q) = %s, want %s", in, got, want)
		}
	}
	if _, err := ParseSection("spare parts"); err == nil {
		t.Fatalf("expected error for unknown section")
	}
}

func TestSplitInstanceID(t *testing.T) {
	itemID, ordinal, err := SplitInstanceID("part:4567-1:3:12")
	if err != nil {
		t.Fatalf("split: %v", err)
	}
	if itemID != "part:4567-1:3" || ordinal != 12 {
		t.Fatalf("unexpected split %s %d", itemID, ordinal)
	}
	if got := InstanceIDString(itemID, ordinal); got != "part:4567-1:3:12" {
		t.Fatalf("round trip mismatch %s", got)
	}
	if itemID, ordinal, err := SplitInstanceID("SET:0000-1:0:1"); err != nil || itemID != "set:0000-1:0" || ordinal != 1 {
		t.Fatalf("upper-case split = %s %d %v", itemID, ordinal, err)
	}
	for _, bad := range []string{"", "part", ":1", "part:3001:5:", "part:3001:5:x", "part:3001:5:3x", "part:3001:5:-1"} {
		if _, _, err := SplitInstanceID(bad); !errors.Is(err, ErrMalformedRecord) {
			t.Fatalf("expected ErrMalformedRecord for %q, got %v", bad, err)
		}
	}
}
