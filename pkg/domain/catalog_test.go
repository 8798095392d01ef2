package domain

import (
	"errors"
	"testing"
)

func TestCatalogURL(t *testing.T) {
	scheme := BrickLink()
	got, err := scheme.CatalogURL(Identity{Num: "6990-1", Kind: KindSet})
	if err != nil {
		t.Fatalf("catalog url: %v", err)
	}
	want := "https://www.bricklink.com/catalogItemInv.asp?S=6990-1&viewType=P&viewChk=Y&bt=0&sortBy=0&sortAsc=A&viewID=Y"
	if got != want {
		t.Fatalf("catalog url = %s", got)
	}
	if _, err := scheme.CatalogURL(Identity{Num: "x", Kind: KindUnknown}); !errors.Is(err, ErrUnsupportedItemKind) {
		t.Fatalf("expected ErrUnsupportedItemKind, got %v", err)
	}
	if _, err := scheme.CatalogURL(Identity{Kind: KindPart}); !errors.Is(err, ErrInvalidItem) {
		t.Fatalf("expected ErrInvalidItem, got %v", err)
	}
}

func TestImageURL(t *testing.T) {
	cases := []struct {
		id   Identity
		want string
	}{
		{Identity{Num: "3001", Variant: 5, Kind: KindPart}, "https://img.bricklink.com/ItemImage/PN/5/3001.png"},
		{Identity{Num: "6990-1", Kind: KindSet}, "https://img.bricklink.com/ItemImage/SN/0/6990-1.png"},
		{Identity{Num: "sw0001a", Kind: KindMinifig}, "https://img.bricklink.com/ItemImage/MN/0/sw0001a.png"},
		{Identity{Num: "b1", Kind: KindBook}, "https://img.bricklink.com/ItemImage/BN/0/b1.png"},
		{Identity{Num: "g1", Kind: KindGear}, "https://img.bricklink.com/ItemImage/GN/0/g1.png"},
	}
	for _, tc := range cases {
		got, err := BrickLink().ImageURL(tc.id)
		if err != nil {
			t.Fatalf("image url %+v: %v", tc.id, err)
		}
		if got != tc.want {
			t.Fatalf("image url = %s, want %s", got, tc.want)
		}
	}
	if _, err := BrickLink().ImageURL(Identity{Num: "x", Kind: KindUnknown}); !errors.Is(err, ErrUnsupportedItemKind) {
		t.Fatalf("expected ErrUnsupportedItemKind, got %v", err)
	}
}

func TestCustomURLScheme(t *testing.T) {
	scheme, err := NewURLScheme(URLSchemeConfig{CatalogBase: "http://mirror.local/inv", ImageBase: "http://img.local/", InventoryQuery: "&v=1"})
	if err != nil {
		t.Fatalf("new scheme: %v", err)
	}
	got, _ := scheme.CatalogURL(Identity{Num: "3001", Kind: KindPart})
	if got != "http://mirror.local/inv?P=3001&v=1" {
		t.Fatalf("unexpected catalog url %s", got)
	}
	img, _ := scheme.ImageURL(Identity{Num: "3001", Variant: 1, Kind: KindPart})
	if img != "http://img.local/PN/1/3001.png" {
		t.Fatalf("unexpected image url %s", img)
	}
	if _, err := NewURLScheme(URLSchemeConfig{CatalogBase: "not a url"}); err == nil {
		t.Fatalf("expected invalid base error")
	}
}

func TestCategoryName(t *testing.T) {
	if got := BrickLink().CategoryName(KindMinifig); got != "Minifigures" {
		t.Fatalf("unexpected category %s", got)
	}
	if got := BrickLink().CategoryName(KindUnknown); got != "Unknown" {
		t.Fatalf("unexpected unknown category %s", got)
	}
}

func TestParseSourceURL(t *testing.T) {
	cases := []struct {
		raw  string
		want Identity
	}{
		{"https://www.bricklink.com/catalogItemInv.asp?S=2161-1&viewType=P", Identity{Num: "2161-1", Kind: KindSet}},
		{"https://www.bricklink.com/catalogItemInv.asp?P=2599sprue&idColor=5", Identity{Num: "2599sprue", Variant: 5, Kind: KindPart}},
		{"https://www.bricklink.com/catalogItemInv.asp?M=sw0001a", Identity{Num: "sw0001a", Kind: KindMinifig}},
		{"https://www.bricklink.com/catalogItemInv.asp?G=852", Identity{Num: "852", Kind: KindGear}},
		{"https://www.bricklink.com/catalogItemInv.asp?B=b1", Identity{Num: "b1", Kind: KindBook}},
	}
	for _, tc := range cases {
		got, err := ParseSourceURL(tc.raw)
		if err != nil {
			t.Fatalf("parse %s: %v", tc.raw, err)
		}
		if got != tc.want {
			t.Fatalf("parse %s = %+v, want %+v", tc.raw, got, tc.want)
		}
	}
	bad := []string{
		"https://www.bricklink.com/catalogItemInv.asp?viewType=P",
		"https://www.bricklink.com/catalogItemInv.asp?P=3001&P=3002",
		"https://www.bricklink.com/catalogItemInv.asp?P=",
		"https://www.bricklink.com/catalogItemInv.asp?P=3001&idColor=red",
		"https://www.bricklink.com/catalogItemInv.asp?P=3001&idColor=1&idColor=2",
		"%zz",
	}
	for _, raw := range bad {
		if _, err := ParseSourceURL(raw); !errors.Is(err, ErrMalformedSourceReference) {
			t.Fatalf("expected ErrMalformedSourceReference for %q, got %v", raw, err)
		}
	}
}
